package transform

import (
	"strconv"
	"strings"

	"github.com/gogpu/immediates/ir"
)

// origin is where the pointer given to an array length query comes from.
// It is one of globalOrigin, paramOrigin or unknownOrigin.
type origin interface {
	isOrigin()
}

// globalOrigin is a module-scope variable, reached through a chain of
// struct member accesses.
type globalOrigin struct {
	variable ir.GlobalVariableHandle
	path     []uint32
}

// paramOrigin is a function argument, reached through a chain of struct
// member accesses.
type paramOrigin struct {
	index uint32
	path  []uint32
}

// unknownOrigin covers every pointer the analysis cannot follow.
type unknownOrigin struct{}

func (globalOrigin) isOrigin()  {}
func (paramOrigin) isOrigin()   {}
func (unknownOrigin) isOrigin() {}

// key identifies the origin structurally: two queries reached through
// different expressions that name the same variable and member path share
// a key.
func (o globalOrigin) key() string {
	return "g" + strconv.FormatUint(uint64(o.variable), 10) + pathKey(o.path)
}

func pathKey(path []uint32) string {
	var sb strings.Builder
	for _, idx := range path {
		sb.WriteByte('.')
		sb.WriteString(strconv.FormatUint(uint64(idx), 10))
	}
	return sb.String()
}

// classify follows ptr back through let bindings and struct member
// accesses to a global variable or a function argument.
func classify(m *ir.Module, fn *ir.Function, ptr ir.ExpressionHandle) origin {
	var reversed []uint32
	h := ptr
	for {
		if int(h) >= len(fn.Expressions) {
			return unknownOrigin{}
		}
		switch k := fn.Expressions[h].Kind.(type) {
		case ir.ExprLet:
			h = k.Value
		case ir.ExprAccessIndex:
			if !pointsToStruct(m, fn, k.Base) {
				return unknownOrigin{}
			}
			reversed = append(reversed, k.Index)
			h = k.Base
		case ir.ExprGlobalVariable:
			return globalOrigin{variable: k.Variable, path: reversePath(reversed)}
		case ir.ExprFunctionArgument:
			return paramOrigin{index: k.Index, path: reversePath(reversed)}
		default:
			return unknownOrigin{}
		}
	}
}

func pointsToStruct(m *ir.Module, fn *ir.Function, h ir.ExpressionHandle) bool {
	res, err := ir.ResolveExpressionType(m, fn, h)
	if err != nil {
		return false
	}
	ptr, ok := res.Inner(m).(ir.PointerType)
	if !ok || int(ptr.Base) >= len(m.Types) {
		return false
	}
	_, ok = m.Types[ptr.Base].Inner.(ir.StructType)
	return ok
}

func reversePath(reversed []uint32) []uint32 {
	path := make([]uint32, len(reversed))
	for i, idx := range reversed {
		path[len(reversed)-1-i] = idx
	}
	return path
}

// joinPath appends a callee-relative member path to a caller path.
func joinPath(outer, inner []uint32) []uint32 {
	path := make([]uint32, 0, len(outer)+len(inner))
	path = append(path, outer...)
	return append(path, inner...)
}

// arrayLayout walks a variable's store type along path and returns the
// byte offset of the runtime-sized array it ends at together with the
// array's element stride.
func arrayLayout(m *ir.Module, o globalOrigin) (prefix, stride uint32, ok bool) {
	ty := m.GlobalVariables[o.variable].Type
	for _, idx := range o.path {
		st, isStruct := m.Types[ty].Inner.(ir.StructType)
		if !isStruct || int(idx) >= len(st.Members) {
			return 0, 0, false
		}
		prefix += st.Members[idx].Offset
		ty = st.Members[idx].Type
	}
	arr, isArray := m.Types[ty].Inner.(ir.ArrayType)
	if !isArray || !arr.Size.IsRuntime() {
		return 0, 0, false
	}
	return prefix, m.ArrayStride(arr), true
}
