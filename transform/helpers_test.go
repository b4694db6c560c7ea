package transform

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gogpu/immediates/ir"
)

const testSizesOffset = 16

type fixture struct {
	b   *ir.Builder
	u32 ir.TypeHandle
	i32 ir.TypeHandle
}

func newFixture() *fixture {
	b := ir.NewBuilder()
	return &fixture{
		b:   b,
		u32: b.Type("", ir.U32),
		i32: b.Type("", ir.I32),
	}
}

// buffer declares `var<storage> name: array<elem>` at group/binding.
func (f *fixture) buffer(name string, elem ir.TypeHandle, group, binding uint32) ir.GlobalVariableHandle {
	return f.b.StorageBuffer(name, f.b.RuntimeArray(elem, 0), group, binding)
}

// arrayPtr is ptr<storage, array<elem>>.
func (f *fixture) arrayPtr(elem ir.TypeHandle) ir.TypeHandle {
	return f.b.Type("", ir.PointerType{Base: f.b.RuntimeArray(elem, 0), Space: ir.SpaceStorage})
}

// sink declares a private u32 that test functions store lengths into.
func (f *fixture) sink() ir.GlobalVariableHandle {
	return f.b.Global(ir.GlobalVariable{Name: "sink", Space: ir.SpacePrivate, Type: f.u32})
}

// leaf builds `fn name(p: ptr<storage, array<elem>>) { sink = arrayLength(p); }`.
func (f *fixture) leaf(name string, elem ir.TypeHandle, sink ir.GlobalVariableHandle) ir.FunctionHandle {
	fb := f.b.Function(name)
	p := fb.Arg("p", f.arrayPtr(elem))
	n := fb.ArrayLength(p)
	fb.Store(fb.GlobalRef(sink), n)
	fb.Return(nil)
	return fb.Finish()
}

// prepareSizes adds the buffer sizes member at testSizesOffset.
func prepareSizes(t *testing.T, m *ir.Module, vectors uint32) ImmediateDataLayout {
	t.Helper()
	var cfg PrepareImmediateDataConfig
	cfg.AddInternalImmediateData(testSizesOffset, BufferSizesMemberName, BufferSizesType(m, vectors))
	layout, err := PrepareImmediateData(m, cfg)
	require.NoError(t, err)
	require.False(t, layout.IsEmpty())
	return layout
}

func functionNamed(t *testing.T, m *ir.Module, name string) *ir.Function {
	t.Helper()
	for i := range m.Functions {
		if m.Functions[i].Name == name {
			return &m.Functions[i]
		}
	}
	t.Fatalf("no function %q", name)
	return nil
}

func countKind[K ir.ExpressionKind](fn *ir.Function) int {
	n := 0
	for _, expr := range fn.Expressions {
		if _, ok := expr.Kind.(K); ok {
			n++
		}
	}
	return n
}

// calls returns the calls in fn in walk order.
func calls(fn *ir.Function) []ir.StmtCall {
	var out []ir.StmtCall
	ir.WalkStatements(fn.Body, func(stmt *ir.Statement) {
		if call, ok := stmt.Kind.(ir.StmtCall); ok {
			out = append(out, call)
		}
	})
	return out
}

// lengthRead is the decoded form of a length computed from immediate data.
type lengthRead struct {
	member uint32
	vector uint32
	lane   uint32
	prefix uint32
	stride uint32
}

// decodeMember decodes an expression of the form lengths.member, where
// lengths is the function's lengths struct value.
func decodeMember(t *testing.T, fn *ir.Function, h ir.ExpressionHandle, layout ImmediateDataLayout) lengthRead {
	t.Helper()
	access, ok := fn.Expressions[h].Kind.(ir.ExprAccessIndex)
	require.True(t, ok, "expected lengths struct member, got %T", fn.Expressions[h].Kind)
	compose, ok := fn.Expressions[access.Base].Kind.(ir.ExprCompose)
	require.True(t, ok, "expected lengths struct value, got %T", fn.Expressions[access.Base].Kind)
	require.Less(t, int(access.Index), len(compose.Components))

	read := decodeLength(t, fn, compose.Components[access.Index], layout)
	read.member = access.Index
	return read
}

// decodeLength decodes `(load(block.sizes[v][l]) - prefix) / stride`.
func decodeLength(t *testing.T, fn *ir.Function, h ir.ExpressionHandle, layout ImmediateDataLayout) lengthRead {
	t.Helper()
	var read lengthRead

	div, ok := fn.Expressions[h].Kind.(ir.ExprBinary)
	require.True(t, ok, "expected division, got %T", fn.Expressions[h].Kind)
	require.Equal(t, ir.BinaryDivide, div.Op)
	read.stride = literalU32(t, fn, div.Right)

	size := div.Left
	if sub, ok := fn.Expressions[size].Kind.(ir.ExprBinary); ok {
		require.Equal(t, ir.BinarySubtract, sub.Op)
		read.prefix = literalU32(t, fn, sub.Right)
		size = sub.Left
	}

	load, ok := fn.Expressions[size].Kind.(ir.ExprLoad)
	require.True(t, ok, "expected load, got %T", fn.Expressions[size].Kind)
	lane, ok := fn.Expressions[load.Pointer].Kind.(ir.ExprAccessIndex)
	require.True(t, ok)
	vector, ok := fn.Expressions[lane.Base].Kind.(ir.ExprAccessIndex)
	require.True(t, ok)
	sizes, ok := fn.Expressions[vector.Base].Kind.(ir.ExprAccessIndex)
	require.True(t, ok)
	block, ok := fn.Expressions[sizes.Base].Kind.(ir.ExprGlobalVariable)
	require.True(t, ok)

	require.Equal(t, layout.Var, block.Variable)
	require.Equal(t, layout.OffsetToIndex[testSizesOffset], sizes.Index)
	read.vector = vector.Index
	read.lane = lane.Index
	return read
}

func literalU32(t *testing.T, fn *ir.Function, h ir.ExpressionHandle) uint32 {
	t.Helper()
	lit, ok := fn.Expressions[h].Kind.(ir.Literal)
	require.True(t, ok, "expected literal, got %T", fn.Expressions[h].Kind)
	v, ok := lit.Value.(ir.LiteralU32)
	require.True(t, ok, "expected u32 literal, got %T", lit.Value)
	return uint32(v)
}

func requireICE(t *testing.T, f func()) *ICE {
	t.Helper()
	var got *ICE
	func() {
		defer func() {
			r := recover()
			require.NotNil(t, r, "expected an internal compiler error")
			e, ok := r.(*ICE)
			require.True(t, ok, "expected *ICE panic, got %T: %v", r, r)
			got = e
		}()
		f()
	}()
	return got
}
