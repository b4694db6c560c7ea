// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"log/slog"

	"github.com/gogpu/immediates/ir"
	"github.com/gogpu/immediates/transform"
)

const shaderIOPass = "ShaderIO"

// GLSL names of the module-scope index inputs.
const (
	VertexIndexName   = "gl_VertexID"
	InstanceIndexName = "gl_InstanceID"
)

// ShaderIO turns vertex_index and instance_index arguments of vertex entry
// points into module-scope inputs. GLSL exposes both as int, so each input
// is an i32 that the entry point loads once and converts to u32 at the top
// of its body.
func ShaderIO(m *ir.Module, opts ...transform.Option) error {
	return transform.RunPass(m, shaderIOPass, func(log *slog.Logger) error {
		for _, ep := range m.EntryPoints {
			if ep.Stage != ir.StageVertex {
				continue
			}
			fn := &m.Functions[ep.Function]
			for i := 0; i < len(fn.Arguments); {
				builtin, ok := indexBuiltin(fn.Arguments[i].Binding)
				if !ok {
					i++
					continue
				}
				log.Debug("lowering entry point input",
					"entry", ep.Name, "argument", fn.Arguments[i].Name, "builtin", builtin)
				lowerIndexArgument(m, fn, uint32(i), builtin) //nolint:gosec // argument lists are tiny
			}
		}
		return nil
	}, opts...)
}

func indexBuiltin(binding *ir.Binding) (ir.BuiltinValue, bool) {
	if binding == nil {
		return 0, false
	}
	bb, ok := (*binding).(ir.BuiltinBinding)
	if !ok || (bb.Builtin != ir.BuiltinVertexIndex && bb.Builtin != ir.BuiltinInstanceIndex) {
		return 0, false
	}
	return bb.Builtin, true
}

// indexInput returns the module-scope input for builtin, adding it on
// first use. Entry points share one input per builtin.
func indexInput(m *ir.Module, builtin ir.BuiltinValue) ir.GlobalVariableHandle {
	for i, gv := range m.GlobalVariables {
		if gv.Space != ir.SpaceIn {
			continue
		}
		if bb, ok := gv.IO.(ir.BuiltinBinding); ok && bb.Builtin == builtin {
			return ir.GlobalVariableHandle(i)
		}
	}
	name := VertexIndexName
	if builtin == ir.BuiltinInstanceIndex {
		name = InstanceIndexName
	}
	h := ir.GlobalVariableHandle(len(m.GlobalVariables))
	m.GlobalVariables = append(m.GlobalVariables, ir.GlobalVariable{
		Name:  name,
		Space: ir.SpaceIn,
		Type:  m.EnsureType("", ir.I32),
		IO:    ir.BuiltinBinding{Builtin: builtin},
	})
	return h
}

// lowerIndexArgument removes argument index from fn and rewrites its reads
// to u32(load(input)).
func lowerIndexArgument(m *ir.Module, fn *ir.Function, index uint32, builtin ir.BuiltinValue) {
	var refs []ir.ExpressionHandle
	for h, expr := range fn.Expressions {
		if arg, ok := expr.Kind.(ir.ExprFunctionArgument); ok && arg.Index == index {
			refs = append(refs, ir.ExpressionHandle(h))
		}
	}

	fn.Arguments = append(fn.Arguments[:index], fn.Arguments[index+1:]...)
	for h, expr := range fn.Expressions {
		if arg, ok := expr.Kind.(ir.ExprFunctionArgument); ok && arg.Index > index {
			fn.Replace(m, ir.ExpressionHandle(h), ir.ExprFunctionArgument{Index: arg.Index - 1})
		}
	}
	if len(refs) == 0 {
		return
	}

	// The first reference becomes the input pointer; the rest are dead.
	input := refs[0]
	fn.Replace(m, input, ir.ExprGlobalVariable{Variable: indexInput(m, builtin)})
	width := uint8(4)
	load := fn.Append(m, ir.ExprLoad{Pointer: input})
	value := fn.Append(m, ir.ExprAs{Expr: load, Kind: ir.ScalarUint, Convert: &width})
	fn.PrependStatements(ir.Emit(load, value+1))

	u32 := m.EnsureType("", ir.U32)
	for i, ref := range refs {
		fn.ReplaceUses(ref, value, func(h ir.ExpressionHandle) bool { return h == load })
		if i > 0 {
			fn.Replace(m, ref, ir.ExprZeroValue{Type: u32})
		}
	}
}
