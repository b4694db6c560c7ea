// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/immediates/ir"
	"github.com/gogpu/immediates/transform"
)

const offsetFirstIndexPass = "OffsetFirstIndex"

// OffsetFirstIndex adds the draw's first vertex to every read of the
// vertex_index input, and the first instance to every read of the
// instance_index input. The offsets are u32 members of the immediate block
// at the given byte offsets; a nil offset leaves that builtin untouched.
//
// Each input must be read exactly once per function, through a single
// load that is either a u32 already or feeds a single conversion to u32,
// as ShaderIO produces. Anything else is an internal compiler error.
func OffsetFirstIndex(
	m *ir.Module,
	layout transform.ImmediateDataLayout,
	firstVertexOffset, firstInstanceOffset *uint32,
	opts ...transform.Option,
) error {
	return transform.RunPass(m, offsetFirstIndexPass, func(log *slog.Logger) error {
		if firstVertexOffset == nil && firstInstanceOffset == nil {
			return nil
		}
		for gi, gv := range m.GlobalVariables {
			if gv.Space != ir.SpaceIn {
				continue
			}
			bb, ok := gv.IO.(ir.BuiltinBinding)
			if !ok {
				continue
			}
			var offset *uint32
			switch bb.Builtin {
			case ir.BuiltinVertexIndex:
				offset = firstVertexOffset
			case ir.BuiltinInstanceIndex:
				offset = firstInstanceOffset
			}
			if offset == nil {
				continue
			}
			member, ok := layout.MemberIndex(*offset)
			if !ok {
				fail("no immediate data member at offset %d for %s", *offset, bb.Builtin)
			}
			for fi := range m.Functions {
				fn := &m.Functions[fi]
				if consumer, ok := offsetIndex(m, fn, ir.GlobalVariableHandle(gi), layout.Var, member); ok {
					log.Debug("index offset from immediate data",
						"function", fn.Name, "builtin", bb.Builtin, "expression", consumer)
				}
			}
		}
		return nil
	}, opts...)
}

// offsetIndex rewrites the one read of input in fn. It reports the
// expression whose uses now see the offset value, or false when fn does
// not read input.
func offsetIndex(m *ir.Module, fn *ir.Function, input, block ir.GlobalVariableHandle, member uint32) (ir.ExpressionHandle, bool) {
	var refs []ir.ExpressionHandle
	for h, expr := range fn.Expressions {
		if gv, ok := expr.Kind.(ir.ExprGlobalVariable); ok && gv.Variable == input {
			refs = append(refs, ir.ExpressionHandle(h))
		}
	}
	if len(refs) == 0 {
		return 0, false
	}
	name := m.GlobalVariables[input].Name
	if len(refs) > 1 {
		fail("%q is referenced %d times in %q", name, len(refs), fn.Name)
	}

	load := soleUser(fn, refs[0], name)
	if _, ok := fn.Expressions[load].Kind.(ir.ExprLoad); !ok {
		fail("%q in %q is used by %T, not a load", name, fn.Name, fn.Expressions[load].Kind)
	}

	consumer := load
	if !isU32(m, fn, load) {
		consumer = soleUser(fn, load, name)
		as, ok := fn.Expressions[consumer].Kind.(ir.ExprAs)
		if !ok || as.Kind != ir.ScalarUint {
			fail("load of %q in %q must be converted to u32, found %T", name, fn.Name, fn.Expressions[consumer].Kind)
		}
	}

	ref := fn.Append(m, ir.ExprGlobalVariable{Variable: block})
	ptr := fn.Append(m, ir.ExprAccessIndex{Base: ref, Index: member})
	first := fn.Append(m, ir.ExprLoad{Pointer: ptr})
	sum := fn.Append(m, ir.ExprBinary{Op: ir.BinaryAdd, Left: consumer, Right: first})

	fn.ReplaceUses(consumer, sum, func(h ir.ExpressionHandle) bool { return h == sum })
	if !fn.InsertAfterEmit(consumer, ir.Emit(ptr, sum+1)) {
		fail("read of %q in %q is never emitted", name, fn.Name)
	}
	return consumer, true
}

// soleUser returns the only expression reading h, failing if h has any
// other reader.
func soleUser(fn *ir.Function, h ir.ExpressionHandle, name string) ir.ExpressionHandle {
	users := fn.Users(h)
	if len(users) != 1 || fn.StatementUses(h) != 0 {
		fail("%q must be read exactly once in %q, found %d expression and %d statement uses",
			name, fn.Name, len(users), fn.StatementUses(h))
	}
	return users[0]
}

func isU32(m *ir.Module, fn *ir.Function, h ir.ExpressionHandle) bool {
	res, err := ir.ResolveExpressionType(m, fn, h)
	if err != nil {
		return false
	}
	scalar, ok := res.Inner(m).(ir.ScalarType)
	return ok && scalar == ir.U32
}

func fail(format string, args ...any) {
	panic(&transform.ICE{Pass: offsetFirstIndexPass, Message: fmt.Sprintf(format, args...)})
}
