package irpack

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/gogpu/immediates/ir"
)

// variant is an interface value: the concrete kind and its msgpack body.
type variant struct {
	Kind string             `msgpack:"k"`
	Data msgpack.RawMessage `msgpack:"d,omitempty"`
}

func pack(kind string, v any) (variant, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return variant{}, fmt.Errorf("%s: %w", kind, err)
	}
	return variant{Kind: kind, Data: data}, nil
}

func unpack[T any](v variant) (T, error) {
	var out T
	if err := msgpack.Unmarshal(v.Data, &out); err != nil {
		return out, fmt.Errorf("%s: %w", v.Kind, err)
	}
	return out, nil
}

type packedModule struct {
	Types           []packedType     `msgpack:"types"`
	Constants       []packedConstant `msgpack:"constants"`
	GlobalVariables []packedGlobal   `msgpack:"globals"`
	Functions       []packedFunction `msgpack:"functions"`
	EntryPoints     []ir.EntryPoint  `msgpack:"entry_points"`
}

type packedType struct {
	Name  string  `msgpack:"name"`
	Inner variant `msgpack:"inner"`
}

type packedStruct struct {
	Members []packedMember `msgpack:"members"`
	Span    uint32         `msgpack:"span"`
	Block   bool           `msgpack:"block"`
}

type packedMember struct {
	Name    string        `msgpack:"name"`
	Type    ir.TypeHandle `msgpack:"type"`
	Binding *variant      `msgpack:"binding"`
	Offset  uint32        `msgpack:"offset"`
}

type packedConstant struct {
	Name  string        `msgpack:"name"`
	Type  ir.TypeHandle `msgpack:"type"`
	Value variant       `msgpack:"value"`
}

type packedGlobal struct {
	Name    string              `msgpack:"name"`
	Space   ir.AddressSpace     `msgpack:"space"`
	Binding *ir.ResourceBinding `msgpack:"binding"`
	Type    ir.TypeHandle       `msgpack:"type"`
	Init    *ir.ConstantHandle  `msgpack:"init"`
	IO      *variant            `msgpack:"io"`
}

type packedFunction struct {
	Name        string             `msgpack:"name"`
	Arguments   []packedArgument   `msgpack:"arguments"`
	Result      *packedArgument    `msgpack:"result"`
	LocalVars   []ir.LocalVariable `msgpack:"locals"`
	Expressions []variant          `msgpack:"expressions"`
	Body        []variant          `msgpack:"body"`
}

// packedArgument holds both arguments and results; results have no name.
type packedArgument struct {
	Name    string        `msgpack:"name,omitempty"`
	Type    ir.TypeHandle `msgpack:"type"`
	Binding *variant      `msgpack:"binding"`
}

type packedLiteral struct {
	Value variant `msgpack:"value"`
}

type packedBlock struct {
	Block []variant `msgpack:"block"`
}

type packedIf struct {
	Condition ir.ExpressionHandle `msgpack:"condition"`
	Accept    []variant           `msgpack:"accept"`
	Reject    []variant           `msgpack:"reject"`
}

type packedSwitch struct {
	Selector ir.ExpressionHandle `msgpack:"selector"`
	Cases    []packedCase        `msgpack:"cases"`
}

type packedCase struct {
	Value       variant   `msgpack:"value"`
	Body        []variant `msgpack:"body"`
	FallThrough bool      `msgpack:"fall_through"`
}

type packedLoop struct {
	Body       []variant            `msgpack:"body"`
	Continuing []variant            `msgpack:"continuing"`
	BreakIf    *ir.ExpressionHandle `msgpack:"break_if"`
}

func packModule(m *ir.Module) (*packedModule, error) {
	p := &packedModule{EntryPoints: m.EntryPoints}
	for i, t := range m.Types {
		inner, err := packTypeInner(t.Inner)
		if err != nil {
			return nil, fmt.Errorf("type %d: %w", i, err)
		}
		p.Types = append(p.Types, packedType{Name: t.Name, Inner: inner})
	}
	for i, c := range m.Constants {
		value, err := packConstantValue(c.Value)
		if err != nil {
			return nil, fmt.Errorf("constant %d: %w", i, err)
		}
		p.Constants = append(p.Constants, packedConstant{Name: c.Name, Type: c.Type, Value: value})
	}
	for i, gv := range m.GlobalVariables {
		io, err := packBinding(gv.IO)
		if err != nil {
			return nil, fmt.Errorf("global %d: %w", i, err)
		}
		p.GlobalVariables = append(p.GlobalVariables, packedGlobal{
			Name: gv.Name, Space: gv.Space, Binding: gv.Binding, Type: gv.Type, Init: gv.Init, IO: io,
		})
	}
	for i := range m.Functions {
		fn, err := packFunction(&m.Functions[i])
		if err != nil {
			return nil, fmt.Errorf("function %q: %w", m.Functions[i].Name, err)
		}
		p.Functions = append(p.Functions, fn)
	}
	return p, nil
}

func unpackModule(p *packedModule) (*ir.Module, error) {
	m := &ir.Module{EntryPoints: p.EntryPoints}
	for i, t := range p.Types {
		inner, err := unpackTypeInner(t.Inner)
		if err != nil {
			return nil, fmt.Errorf("type %d: %w", i, err)
		}
		m.Types = append(m.Types, ir.Type{Name: t.Name, Inner: inner})
	}
	for i, c := range p.Constants {
		value, err := unpackConstantValue(c.Value)
		if err != nil {
			return nil, fmt.Errorf("constant %d: %w", i, err)
		}
		m.Constants = append(m.Constants, ir.Constant{Name: c.Name, Type: c.Type, Value: value})
	}
	for i, gv := range p.GlobalVariables {
		io, err := unpackBinding(gv.IO)
		if err != nil {
			return nil, fmt.Errorf("global %d: %w", i, err)
		}
		var binding ir.Binding
		if io != nil {
			binding = *io
		}
		m.GlobalVariables = append(m.GlobalVariables, ir.GlobalVariable{
			Name: gv.Name, Space: gv.Space, Binding: gv.Binding, Type: gv.Type, Init: gv.Init, IO: binding,
		})
	}
	for i := range p.Functions {
		fn, err := unpackFunction(&p.Functions[i])
		if err != nil {
			return nil, fmt.Errorf("function %q: %w", p.Functions[i].Name, err)
		}
		m.Functions = append(m.Functions, fn)
	}
	return m, nil
}

func packTypeInner(inner ir.TypeInner) (variant, error) {
	switch t := inner.(type) {
	case ir.ScalarType:
		return pack("scalar", t)
	case ir.VectorType:
		return pack("vector", t)
	case ir.MatrixType:
		return pack("matrix", t)
	case ir.ArrayType:
		return pack("array", t)
	case ir.PointerType:
		return pack("pointer", t)
	case ir.AtomicType:
		return pack("atomic", t)
	case ir.StructType:
		st := packedStruct{Span: t.Span, Block: t.Block}
		for _, member := range t.Members {
			var b ir.Binding
			if member.Binding != nil {
				b = *member.Binding
			}
			binding, err := packBinding(b)
			if err != nil {
				return variant{}, fmt.Errorf("member %q: %w", member.Name, err)
			}
			st.Members = append(st.Members, packedMember{
				Name: member.Name, Type: member.Type, Binding: binding, Offset: member.Offset,
			})
		}
		return pack("struct", st)
	default:
		return variant{}, fmt.Errorf("unsupported type %T", inner)
	}
}

func unpackTypeInner(v variant) (ir.TypeInner, error) {
	switch v.Kind {
	case "scalar":
		return unpack[ir.ScalarType](v)
	case "vector":
		return unpack[ir.VectorType](v)
	case "matrix":
		return unpack[ir.MatrixType](v)
	case "array":
		return unpack[ir.ArrayType](v)
	case "pointer":
		return unpack[ir.PointerType](v)
	case "atomic":
		return unpack[ir.AtomicType](v)
	case "struct":
		st, err := unpack[packedStruct](v)
		if err != nil {
			return nil, err
		}
		out := ir.StructType{Span: st.Span, Block: st.Block}
		for _, member := range st.Members {
			binding, err := unpackBinding(member.Binding)
			if err != nil {
				return nil, fmt.Errorf("member %q: %w", member.Name, err)
			}
			out.Members = append(out.Members, ir.StructMember{
				Name: member.Name, Type: member.Type, Binding: binding, Offset: member.Offset,
			})
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown type kind %q", v.Kind)
	}
}

func packConstantValue(value ir.ConstantValue) (variant, error) {
	switch c := value.(type) {
	case ir.ScalarValue:
		return pack("scalar", c)
	case ir.CompositeValue:
		return pack("composite", c)
	default:
		return variant{}, fmt.Errorf("unsupported constant %T", value)
	}
}

func unpackConstantValue(v variant) (ir.ConstantValue, error) {
	switch v.Kind {
	case "scalar":
		return unpack[ir.ScalarValue](v)
	case "composite":
		return unpack[ir.CompositeValue](v)
	default:
		return nil, fmt.Errorf("unknown constant kind %q", v.Kind)
	}
}

// packBinding returns nil for a nil binding.
func packBinding(b ir.Binding) (*variant, error) {
	var v variant
	var err error
	switch binding := b.(type) {
	case nil:
		return nil, nil
	case ir.BuiltinBinding:
		v, err = pack("builtin", binding)
	case ir.LocationBinding:
		v, err = pack("location", binding)
	default:
		return nil, fmt.Errorf("unsupported binding %T", b)
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func unpackBinding(v *variant) (*ir.Binding, error) {
	if v == nil {
		return nil, nil
	}
	var b ir.Binding
	var err error
	switch v.Kind {
	case "builtin":
		b, err = unpack[ir.BuiltinBinding](*v)
	case "location":
		b, err = unpack[ir.LocationBinding](*v)
	default:
		return nil, fmt.Errorf("unknown binding kind %q", v.Kind)
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func packArgument(name string, ty ir.TypeHandle, binding *ir.Binding) (packedArgument, error) {
	var b ir.Binding
	if binding != nil {
		b = *binding
	}
	packed, err := packBinding(b)
	if err != nil {
		return packedArgument{}, err
	}
	return packedArgument{Name: name, Type: ty, Binding: packed}, nil
}

func packFunction(fn *ir.Function) (packedFunction, error) {
	p := packedFunction{Name: fn.Name, LocalVars: fn.LocalVars}
	for _, arg := range fn.Arguments {
		packed, err := packArgument(arg.Name, arg.Type, arg.Binding)
		if err != nil {
			return p, fmt.Errorf("argument %q: %w", arg.Name, err)
		}
		p.Arguments = append(p.Arguments, packed)
	}
	if fn.Result != nil {
		packed, err := packArgument("", fn.Result.Type, fn.Result.Binding)
		if err != nil {
			return p, fmt.Errorf("result: %w", err)
		}
		p.Result = &packed
	}
	for h, expr := range fn.Expressions {
		v, err := packExpression(expr.Kind)
		if err != nil {
			return p, fmt.Errorf("expression %d: %w", h, err)
		}
		p.Expressions = append(p.Expressions, v)
	}
	body, err := packBlock(fn.Body)
	if err != nil {
		return p, err
	}
	p.Body = body
	return p, nil
}

func unpackFunction(p *packedFunction) (ir.Function, error) {
	fn := ir.Function{Name: p.Name, LocalVars: p.LocalVars}
	for _, arg := range p.Arguments {
		binding, err := unpackBinding(arg.Binding)
		if err != nil {
			return fn, fmt.Errorf("argument %q: %w", arg.Name, err)
		}
		fn.Arguments = append(fn.Arguments, ir.FunctionArgument{Name: arg.Name, Type: arg.Type, Binding: binding})
	}
	if p.Result != nil {
		binding, err := unpackBinding(p.Result.Binding)
		if err != nil {
			return fn, fmt.Errorf("result: %w", err)
		}
		fn.Result = &ir.FunctionResult{Type: p.Result.Type, Binding: binding}
	}
	for h, v := range p.Expressions {
		kind, err := unpackExpression(v)
		if err != nil {
			return fn, fmt.Errorf("expression %d: %w", h, err)
		}
		fn.Expressions = append(fn.Expressions, ir.Expression{Kind: kind})
	}
	body, err := unpackBlock(p.Body)
	if err != nil {
		return fn, err
	}
	fn.Body = body
	return fn, nil
}

//nolint:gocyclo,cyclop // one case per expression kind
func packExpression(kind ir.ExpressionKind) (variant, error) {
	switch e := kind.(type) {
	case ir.Literal:
		value, err := packLiteral(e.Value)
		if err != nil {
			return variant{}, err
		}
		return pack("literal", packedLiteral{Value: value})
	case ir.ExprConstant:
		return pack("constant", e)
	case ir.ExprZeroValue:
		return pack("zero", e)
	case ir.ExprCompose:
		return pack("compose", e)
	case ir.ExprAccess:
		return pack("access", e)
	case ir.ExprAccessIndex:
		return pack("access_index", e)
	case ir.ExprSplat:
		return pack("splat", e)
	case ir.ExprSwizzle:
		return pack("swizzle", e)
	case ir.ExprFunctionArgument:
		return pack("argument", e)
	case ir.ExprGlobalVariable:
		return pack("global", e)
	case ir.ExprLocalVariable:
		return pack("local", e)
	case ir.ExprLoad:
		return pack("load", e)
	case ir.ExprLet:
		return pack("let", e)
	case ir.ExprUnary:
		return pack("unary", e)
	case ir.ExprBinary:
		return pack("binary", e)
	case ir.ExprSelect:
		return pack("select", e)
	case ir.ExprMath:
		return pack("math", e)
	case ir.ExprAs:
		return pack("as", e)
	case ir.ExprCallResult:
		return pack("call_result", e)
	case ir.ExprArrayLength:
		return pack("array_length", e)
	default:
		return variant{}, fmt.Errorf("unsupported expression %T", kind)
	}
}

//nolint:gocyclo,cyclop // one case per expression kind
func unpackExpression(v variant) (ir.ExpressionKind, error) {
	switch v.Kind {
	case "literal":
		lit, err := unpack[packedLiteral](v)
		if err != nil {
			return nil, err
		}
		value, err := unpackLiteral(lit.Value)
		if err != nil {
			return nil, err
		}
		return ir.Literal{Value: value}, nil
	case "constant":
		return unpack[ir.ExprConstant](v)
	case "zero":
		return unpack[ir.ExprZeroValue](v)
	case "compose":
		return unpack[ir.ExprCompose](v)
	case "access":
		return unpack[ir.ExprAccess](v)
	case "access_index":
		return unpack[ir.ExprAccessIndex](v)
	case "splat":
		return unpack[ir.ExprSplat](v)
	case "swizzle":
		return unpack[ir.ExprSwizzle](v)
	case "argument":
		return unpack[ir.ExprFunctionArgument](v)
	case "global":
		return unpack[ir.ExprGlobalVariable](v)
	case "local":
		return unpack[ir.ExprLocalVariable](v)
	case "load":
		return unpack[ir.ExprLoad](v)
	case "let":
		return unpack[ir.ExprLet](v)
	case "unary":
		return unpack[ir.ExprUnary](v)
	case "binary":
		return unpack[ir.ExprBinary](v)
	case "select":
		return unpack[ir.ExprSelect](v)
	case "math":
		return unpack[ir.ExprMath](v)
	case "as":
		return unpack[ir.ExprAs](v)
	case "call_result":
		return unpack[ir.ExprCallResult](v)
	case "array_length":
		return unpack[ir.ExprArrayLength](v)
	default:
		return nil, fmt.Errorf("unknown expression kind %q", v.Kind)
	}
}

func packLiteral(value ir.LiteralValue) (variant, error) {
	switch l := value.(type) {
	case ir.LiteralF32:
		return pack("f32", l)
	case ir.LiteralU32:
		return pack("u32", l)
	case ir.LiteralI32:
		return pack("i32", l)
	case ir.LiteralBool:
		return pack("bool", l)
	default:
		return variant{}, fmt.Errorf("unsupported literal %T", value)
	}
}

func unpackLiteral(v variant) (ir.LiteralValue, error) {
	switch v.Kind {
	case "f32":
		return unpack[ir.LiteralF32](v)
	case "u32":
		return unpack[ir.LiteralU32](v)
	case "i32":
		return unpack[ir.LiteralI32](v)
	case "bool":
		return unpack[ir.LiteralBool](v)
	default:
		return nil, fmt.Errorf("unknown literal kind %q", v.Kind)
	}
}

func packBlock(b ir.Block) ([]variant, error) {
	out := make([]variant, 0, len(b))
	for i, stmt := range b {
		v, err := packStatement(stmt.Kind)
		if err != nil {
			return nil, fmt.Errorf("statement %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func unpackBlock(vs []variant) (ir.Block, error) {
	if len(vs) == 0 {
		return nil, nil
	}
	out := make(ir.Block, 0, len(vs))
	for i, v := range vs {
		kind, err := unpackStatement(v)
		if err != nil {
			return nil, fmt.Errorf("statement %d: %w", i, err)
		}
		out = append(out, ir.Statement{Kind: kind})
	}
	return out, nil
}

//nolint:gocyclo,cyclop,funlen // one case per statement kind
func packStatement(kind ir.StatementKind) (variant, error) {
	switch s := kind.(type) {
	case ir.StmtEmit:
		return pack("emit", s)
	case ir.StmtBlock:
		body, err := packBlock(s.Block)
		if err != nil {
			return variant{}, err
		}
		return pack("block", packedBlock{Block: body})
	case ir.StmtIf:
		accept, err := packBlock(s.Accept)
		if err != nil {
			return variant{}, err
		}
		reject, err := packBlock(s.Reject)
		if err != nil {
			return variant{}, err
		}
		return pack("if", packedIf{Condition: s.Condition, Accept: accept, Reject: reject})
	case ir.StmtSwitch:
		sw := packedSwitch{Selector: s.Selector}
		for _, c := range s.Cases {
			value, err := packSwitchValue(c.Value)
			if err != nil {
				return variant{}, err
			}
			body, err := packBlock(c.Body)
			if err != nil {
				return variant{}, err
			}
			sw.Cases = append(sw.Cases, packedCase{Value: value, Body: body, FallThrough: c.FallThrough})
		}
		return pack("switch", sw)
	case ir.StmtLoop:
		body, err := packBlock(s.Body)
		if err != nil {
			return variant{}, err
		}
		continuing, err := packBlock(s.Continuing)
		if err != nil {
			return variant{}, err
		}
		return pack("loop", packedLoop{Body: body, Continuing: continuing, BreakIf: s.BreakIf})
	case ir.StmtBreak:
		return variant{Kind: "break"}, nil
	case ir.StmtContinue:
		return variant{Kind: "continue"}, nil
	case ir.StmtReturn:
		return pack("return", s)
	case ir.StmtKill:
		return variant{Kind: "kill"}, nil
	case ir.StmtBarrier:
		return pack("barrier", s)
	case ir.StmtStore:
		return pack("store", s)
	case ir.StmtCall:
		return pack("call", s)
	default:
		return variant{}, fmt.Errorf("unsupported statement %T", kind)
	}
}

//nolint:gocyclo,cyclop,funlen // one case per statement kind
func unpackStatement(v variant) (ir.StatementKind, error) {
	switch v.Kind {
	case "emit":
		return unpack[ir.StmtEmit](v)
	case "block":
		b, err := unpack[packedBlock](v)
		if err != nil {
			return nil, err
		}
		body, err := unpackBlock(b.Block)
		if err != nil {
			return nil, err
		}
		return ir.StmtBlock{Block: body}, nil
	case "if":
		s, err := unpack[packedIf](v)
		if err != nil {
			return nil, err
		}
		accept, err := unpackBlock(s.Accept)
		if err != nil {
			return nil, err
		}
		reject, err := unpackBlock(s.Reject)
		if err != nil {
			return nil, err
		}
		return ir.StmtIf{Condition: s.Condition, Accept: accept, Reject: reject}, nil
	case "switch":
		s, err := unpack[packedSwitch](v)
		if err != nil {
			return nil, err
		}
		out := ir.StmtSwitch{Selector: s.Selector}
		for _, c := range s.Cases {
			value, err := unpackSwitchValue(c.Value)
			if err != nil {
				return nil, err
			}
			body, err := unpackBlock(c.Body)
			if err != nil {
				return nil, err
			}
			out.Cases = append(out.Cases, ir.SwitchCase{Value: value, Body: body, FallThrough: c.FallThrough})
		}
		return out, nil
	case "loop":
		s, err := unpack[packedLoop](v)
		if err != nil {
			return nil, err
		}
		body, err := unpackBlock(s.Body)
		if err != nil {
			return nil, err
		}
		continuing, err := unpackBlock(s.Continuing)
		if err != nil {
			return nil, err
		}
		return ir.StmtLoop{Body: body, Continuing: continuing, BreakIf: s.BreakIf}, nil
	case "break":
		return ir.StmtBreak{}, nil
	case "continue":
		return ir.StmtContinue{}, nil
	case "return":
		return unpack[ir.StmtReturn](v)
	case "kill":
		return ir.StmtKill{}, nil
	case "barrier":
		return unpack[ir.StmtBarrier](v)
	case "store":
		return unpack[ir.StmtStore](v)
	case "call":
		return unpack[ir.StmtCall](v)
	default:
		return nil, fmt.Errorf("unknown statement kind %q", v.Kind)
	}
}

func packSwitchValue(value ir.SwitchValue) (variant, error) {
	switch sv := value.(type) {
	case ir.SwitchValueI32:
		return pack("i32", sv)
	case ir.SwitchValueU32:
		return pack("u32", sv)
	case ir.SwitchValueDefault:
		return variant{Kind: "default"}, nil
	default:
		return variant{}, fmt.Errorf("unsupported switch value %T", value)
	}
}

func unpackSwitchValue(v variant) (ir.SwitchValue, error) {
	switch v.Kind {
	case "i32":
		return unpack[ir.SwitchValueI32](v)
	case "u32":
		return unpack[ir.SwitchValueU32](v)
	case "default":
		return ir.SwitchValueDefault{}, nil
	default:
		return nil, fmt.Errorf("unknown switch value kind %q", v.Kind)
	}
}
