package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/immediates/ir"
)

func TestArrayLength_EndToEnd(t *testing.T) {
	f := newFixture()
	buf := f.buffer("buf", f.i32, 0, 0)
	sink := f.sink()

	fb := f.b.Function("main")
	query := fb.ArrayLength(fb.GlobalRef(buf))
	fb.Store(fb.GlobalRef(sink), query)
	fb.Return(nil)
	f.b.EntryPoint("main", ir.StageCompute, fb.Finish())

	m := f.b.Module()
	layout := prepareSizes(t, m, 1)
	res, err := ArrayLengthFromImmediates(m, layout, testSizesOffset, 1, map[BindingPoint]uint32{{0, 0}: 0})
	require.NoError(t, err)
	assert.True(t, res.NeedsStorageBufferSizes)

	block := m.GlobalVariables[layout.Var]
	assert.Equal(t, ImmediateDataVarName, block.Name)
	assert.Equal(t, ir.SpaceImmediate, block.Space)
	st, ok := m.Types[block.Type].Inner.(ir.StructType)
	require.True(t, ok)
	require.Len(t, st.Members, 1)
	assert.Equal(t, BufferSizesMemberName, st.Members[0].Name)
	assert.Equal(t, uint32(16), st.Members[0].Offset)
	arr, ok := m.Types[st.Members[0].Type].Inner.(ir.ArrayType)
	require.True(t, ok)
	require.NotNil(t, arr.Size.Constant)
	assert.Equal(t, uint32(1), *arr.Size.Constant)
	assert.Equal(t, ir.VectorType{Size: ir.Vec4, Scalar: ir.U32}, m.Types[arr.Base].Inner)

	main := functionNamed(t, m, "main")
	assert.Zero(t, countKind[ir.ExprArrayLength](main))
	got := decodeMember(t, main, query, layout)
	assert.Equal(t, lengthRead{member: 0, vector: 0, lane: 0, prefix: 0, stride: 4}, got)

	// The store still reads the rewritten expression.
	var stored ir.ExpressionHandle
	ir.WalkStatements(main.Body, func(stmt *ir.Statement) {
		if s, ok := stmt.Kind.(ir.StmtStore); ok {
			stored = s.Value
		}
	})
	assert.Equal(t, query, stored)
}

func TestArrayLength_EmptyMapIsNoOp(t *testing.T) {
	f := newFixture()
	buf := f.buffer("buf", f.u32, 0, 0)
	sink := f.sink()
	fb := f.b.Function("main")
	fb.Store(fb.GlobalRef(sink), fb.ArrayLength(fb.GlobalRef(buf)))
	fb.Return(nil)
	f.b.EntryPoint("main", ir.StageCompute, fb.Finish())

	m := f.b.Module()
	layout := prepareSizes(t, m, 1)
	before := ir.Disassemble(m)

	res, err := ArrayLengthFromImmediates(m, layout, testSizesOffset, 1, nil)
	require.NoError(t, err)
	assert.False(t, res.NeedsStorageBufferSizes)
	assert.Equal(t, before, ir.Disassemble(m))
}

func TestArrayLength_Stride(t *testing.T) {
	tests := []struct {
		name   string
		elem   func(f *fixture) ir.TypeHandle
		stride uint32
	}{
		{"u32", func(f *fixture) ir.TypeHandle { return f.u32 }, 4},
		{"vec2<f32>", func(f *fixture) ir.TypeHandle {
			return f.b.Type("", ir.VectorType{Size: ir.Vec2, Scalar: ir.F32})
		}, 8},
		{"vec3<i32>", func(f *fixture) ir.TypeHandle {
			return f.b.Type("", ir.VectorType{Size: ir.Vec3, Scalar: ir.I32})
		}, 16},
		{"mat4x4<f32>", func(f *fixture) ir.TypeHandle {
			return f.b.Type("", ir.MatrixType{Columns: ir.Vec4, Rows: ir.Vec4, Scalar: ir.F32})
		}, 64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			buf := f.buffer("buf", tt.elem(f), 0, 0)
			sink := f.sink()
			fb := f.b.Function("main")
			query := fb.ArrayLength(fb.GlobalRef(buf))
			fb.Store(fb.GlobalRef(sink), query)
			fb.Return(nil)
			f.b.EntryPoint("main", ir.StageCompute, fb.Finish())

			m := f.b.Module()
			layout := prepareSizes(t, m, 1)
			_, err := ArrayLengthFromImmediates(m, layout, testSizesOffset, 1, map[BindingPoint]uint32{{0, 0}: 0})
			require.NoError(t, err)

			got := decodeMember(t, functionNamed(t, m, "main"), query, layout)
			assert.Equal(t, tt.stride, got.stride)
		})
	}
}

func TestArrayLength_SubtractsOffsetOfArrayInStruct(t *testing.T) {
	f := newFixture()
	vec3 := f.b.Type("", ir.VectorType{Size: ir.Vec3, Scalar: ir.F32})
	sb := f.b.Struct("SB",
		ir.StructMember{Name: "count", Type: f.u32},
		ir.StructMember{Name: "origin", Type: vec3},
		ir.StructMember{Name: "data", Type: f.b.RuntimeArray(f.u32, 0)},
	)
	buf := f.b.StorageBuffer("buf", sb, 0, 3)
	sink := f.sink()

	fb := f.b.Function("main")
	query := fb.ArrayLength(fb.Member(fb.GlobalRef(buf), 2))
	fb.Store(fb.GlobalRef(sink), query)
	fb.Return(nil)
	f.b.EntryPoint("main", ir.StageCompute, fb.Finish())

	m := f.b.Module()
	layout := prepareSizes(t, m, 1)
	_, err := ArrayLengthFromImmediates(m, layout, testSizesOffset, 1, map[BindingPoint]uint32{{0, 3}: 2})
	require.NoError(t, err)

	got := decodeMember(t, functionNamed(t, m, "main"), query, layout)
	// count at 0, origin at 16 (12 bytes), data at 28.
	assert.Equal(t, lengthRead{member: 0, vector: 0, lane: 2, prefix: 28, stride: 4}, got)

	lengths := m.Types[findType(t, m, ArrayLengthsStructName)].Inner.(ir.StructType)
	require.Len(t, lengths.Members, 1)
	assert.Equal(t, "buf_2", lengths.Members[0].Name)
}

func TestArrayLength_DeduplicatesPerBuffer(t *testing.T) {
	f := newFixture()
	buf := f.buffer("buf", f.u32, 0, 0)
	sink := f.sink()

	fb := f.b.Function("main")
	first := fb.ArrayLength(fb.GlobalRef(buf))
	second := fb.ArrayLength(fb.GlobalRef(buf))
	bound := fb.Let("p", fb.GlobalRef(buf))
	third := fb.ArrayLength(bound)
	sum := fb.Binary(ir.BinaryAdd, fb.Binary(ir.BinaryAdd, first, second), third)
	fb.Store(fb.GlobalRef(sink), sum)
	fb.Return(nil)
	f.b.EntryPoint("main", ir.StageCompute, fb.Finish())

	m := f.b.Module()
	layout := prepareSizes(t, m, 1)
	_, err := ArrayLengthFromImmediates(m, layout, testSizesOffset, 1, map[BindingPoint]uint32{{0, 0}: 0})
	require.NoError(t, err)

	main := functionNamed(t, m, "main")
	assert.Equal(t, 1, countKind[ir.ExprLoad](main), "buffer size must be loaded once")
	assert.Equal(t, 1, countKind[ir.ExprCompose](main))
	for _, h := range []ir.ExpressionHandle{first, second, third} {
		got := decodeMember(t, main, h, layout)
		assert.Equal(t, uint32(0), got.member)
	}
}

func TestArrayLength_UnmappedBindingUntouched(t *testing.T) {
	f := newFixture()
	mapped := f.buffer("mapped", f.u32, 0, 0)
	unmapped := f.buffer("unmapped", f.u32, 0, 1)
	sink := f.sink()

	fb := f.b.Function("main")
	a := fb.ArrayLength(fb.GlobalRef(mapped))
	bPtr := fb.GlobalRef(unmapped)
	b := fb.ArrayLength(bPtr)
	fb.Store(fb.GlobalRef(sink), fb.Binary(ir.BinaryAdd, a, b))
	fb.Return(nil)
	f.b.EntryPoint("main", ir.StageCompute, fb.Finish())

	m := f.b.Module()
	layout := prepareSizes(t, m, 1)
	_, err := ArrayLengthFromImmediates(m, layout, testSizesOffset, 1, map[BindingPoint]uint32{{0, 0}: 0})
	require.NoError(t, err)

	main := functionNamed(t, m, "main")
	decodeMember(t, main, a, layout)
	assert.Equal(t, ir.ExprArrayLength{Array: bPtr}, main.Expressions[b].Kind)
	assert.Equal(t, 1, countKind[ir.ExprArrayLength](main))
}

func TestArrayLength_SlotPacking(t *testing.T) {
	f := newFixture()
	slots := []uint32{0, 5, 3, 2, 4}
	bufs := make([]ir.GlobalVariableHandle, len(slots))
	sizeIndex := make(map[BindingPoint]uint32, len(slots))
	for i, slot := range slots {
		bufs[i] = f.buffer(string(rune('a'+i)), f.u32, 0, uint32(i))
		sizeIndex[BindingPoint{Group: 0, Binding: uint32(i)}] = slot
	}
	sink := f.sink()

	fb := f.b.Function("main")
	queries := make([]ir.ExpressionHandle, len(bufs))
	for i, buf := range bufs {
		queries[i] = fb.ArrayLength(fb.GlobalRef(buf))
		fb.Store(fb.GlobalRef(sink), queries[i])
	}
	fb.Return(nil)
	f.b.EntryPoint("main", ir.StageCompute, fb.Finish())

	m := f.b.Module()
	layout := prepareSizes(t, m, 2)
	_, err := ArrayLengthFromImmediates(m, layout, testSizesOffset, 2, sizeIndex)
	require.NoError(t, err)

	main := functionNamed(t, m, "main")
	for i, slot := range slots {
		got := decodeMember(t, main, queries[i], layout)
		assert.Equal(t, slot/4, got.vector, "buffer %d", i)
		assert.Equal(t, slot%4, got.lane, "buffer %d", i)
	}
}

func TestArrayLength_SlotOutsideSizesArray(t *testing.T) {
	f := newFixture()
	buf := f.buffer("buf", f.u32, 0, 0)
	sink := f.sink()
	fb := f.b.Function("main")
	fb.Store(fb.GlobalRef(sink), fb.ArrayLength(fb.GlobalRef(buf)))
	fb.Return(nil)
	f.b.EntryPoint("main", ir.StageCompute, fb.Finish())

	m := f.b.Module()
	layout := prepareSizes(t, m, 1)
	e := requireICE(t, func() {
		_, _ = ArrayLengthFromImmediates(m, layout, testSizesOffset, 1, map[BindingPoint]uint32{{0, 0}: 4})
	})
	assert.Equal(t, arrayLengthPass, e.Pass)
	assert.Contains(t, e.Message, "size slot 4")
}

func TestArrayLength_MissingSizesMember(t *testing.T) {
	f := newFixture()
	buf := f.buffer("buf", f.u32, 0, 0)
	sink := f.sink()
	fb := f.b.Function("main")
	fb.Store(fb.GlobalRef(sink), fb.ArrayLength(fb.GlobalRef(buf)))
	fb.Return(nil)
	f.b.EntryPoint("main", ir.StageCompute, fb.Finish())

	m := f.b.Module()
	e := requireICE(t, func() {
		_, _ = ArrayLengthFromImmediates(m, ImmediateDataLayout{}, testSizesOffset, 1, map[BindingPoint]uint32{{0, 0}: 0})
	})
	assert.Contains(t, e.Message, "no buffer sizes member")
}

func TestArrayLength_ThreadsThroughCallChain(t *testing.T) {
	f := newFixture()
	buf := f.buffer("buf", f.u32, 0, 0)
	sink := f.sink()

	leaf := f.leaf("leaf", f.u32, sink)
	mid := f.forward("mid", leaf, f.u32)
	top := f.forward("top", mid, f.u32)

	fb := f.b.Function("main")
	fb.Call(top, fb.GlobalRef(buf))
	fb.Return(nil)
	f.b.EntryPoint("main", ir.StageCompute, fb.Finish())

	m := f.b.Module()
	layout := prepareSizes(t, m, 1)
	res, err := ArrayLengthFromImmediates(m, layout, testSizesOffset, 1, map[BindingPoint]uint32{{0, 0}: 0})
	require.NoError(t, err)
	assert.True(t, res.NeedsStorageBufferSizes)

	for _, name := range []string{"leaf", "mid", "top"} {
		fn := functionNamed(t, m, name)
		require.Len(t, fn.Arguments, 2, name)
		assert.Equal(t, "tint_array_length_0", fn.Arguments[1].Name, name)
		assert.Equal(t, ir.U32, m.Types[fn.Arguments[1].Type].Inner, name)
	}

	leafFn := functionNamed(t, m, "leaf")
	assert.Zero(t, countKind[ir.ExprArrayLength](leafFn))
	assert.Zero(t, countKind[ir.ExprLoad](leafFn), "callee must not read immediate data")

	for _, name := range []string{"mid", "top"} {
		fn := functionNamed(t, m, name)
		cs := calls(fn)
		require.Len(t, cs, 1)
		require.Len(t, cs[0].Arguments, 2)
		assert.Equal(t, ir.ExprFunctionArgument{Index: 1}, fn.Expressions[cs[0].Arguments[1]].Kind, name)
	}

	main := functionNamed(t, m, "main")
	cs := calls(main)
	require.Len(t, cs, 1)
	require.Len(t, cs[0].Arguments, 2)
	got := decodeMember(t, main, cs[0].Arguments[1], layout)
	assert.Equal(t, lengthRead{stride: 4}, got)
}

func TestArrayLength_OneArgumentPerParameter(t *testing.T) {
	f := newFixture()
	sink := f.sink()
	bufs := []ir.GlobalVariableHandle{
		f.buffer("a", f.u32, 0, 0),
		f.buffer("b", f.u32, 0, 1),
		f.buffer("c", f.u32, 0, 2),
	}

	callee := f.b.Function("three")
	var params []ir.ExpressionHandle
	for _, name := range []string{"x", "y", "z"} {
		params = append(params, callee.Arg(name, f.arrayPtr(f.u32)))
	}
	for _, p := range params {
		callee.Store(callee.GlobalRef(sink), callee.ArrayLength(p))
	}
	callee.Return(nil)
	three := callee.Finish()

	fb := f.b.Function("main")
	fb.Call(three, fb.GlobalRef(bufs[0]), fb.GlobalRef(bufs[1]), fb.GlobalRef(bufs[2]))
	fb.Return(nil)
	f.b.EntryPoint("main", ir.StageCompute, fb.Finish())

	m := f.b.Module()
	layout := prepareSizes(t, m, 1)
	_, err := ArrayLengthFromImmediates(m, layout, testSizesOffset, 1,
		map[BindingPoint]uint32{{0, 0}: 0, {0, 1}: 1, {0, 2}: 2})
	require.NoError(t, err)

	fn := functionNamed(t, m, "three")
	require.Len(t, fn.Arguments, 6)
	for i := 0; i < 3; i++ {
		assert.Equal(t, "tint_array_length_"+string(rune('0'+i)), fn.Arguments[3+i].Name)
	}

	main := functionNamed(t, m, "main")
	cs := calls(main)
	require.Len(t, cs, 1)
	require.Len(t, cs[0].Arguments, 6)
	for i := 0; i < 3; i++ {
		got := decodeMember(t, main, cs[0].Arguments[3+i], layout)
		assert.Equal(t, uint32(i), got.lane, "argument for parameter %d", i)
	}
}

func TestArrayLength_StructMemberThroughArgument(t *testing.T) {
	f := newFixture()
	sb := f.b.Struct("SB",
		ir.StructMember{Name: "count", Type: f.u32},
		ir.StructMember{Name: "data", Type: f.b.RuntimeArray(f.u32, 0)},
	)
	buf := f.b.StorageBuffer("buf", sb, 1, 0)
	sink := f.sink()

	callee := f.b.Function("size")
	p := callee.Arg("p", f.b.Type("", ir.PointerType{Base: sb, Space: ir.SpaceStorage}))
	callee.Store(callee.GlobalRef(sink), callee.ArrayLength(callee.Member(p, 1)))
	callee.Return(nil)
	size := callee.Finish()

	fb := f.b.Function("main")
	fb.Call(size, fb.GlobalRef(buf))
	fb.Return(nil)
	f.b.EntryPoint("main", ir.StageCompute, fb.Finish())

	m := f.b.Module()
	layout := prepareSizes(t, m, 1)
	_, err := ArrayLengthFromImmediates(m, layout, testSizesOffset, 1, map[BindingPoint]uint32{{1, 0}: 0})
	require.NoError(t, err)

	main := functionNamed(t, m, "main")
	cs := calls(main)
	require.Len(t, cs, 1)
	require.Len(t, cs[0].Arguments, 2)
	got := decodeMember(t, main, cs[0].Arguments[1], layout)
	assert.Equal(t, lengthRead{prefix: 4, stride: 4}, got)
}

func TestArrayLength_QueryReinsertedForUnmappedCaller(t *testing.T) {
	f := newFixture()
	mapped := f.buffer("mapped", f.u32, 0, 0)
	unmapped := f.buffer("unmapped", f.u32, 0, 1)
	sink := f.sink()
	leaf := f.leaf("leaf", f.u32, sink)

	fb := f.b.Function("main")
	fb.Call(leaf, fb.GlobalRef(mapped))
	unmappedPtr := fb.GlobalRef(unmapped)
	fb.Call(leaf, unmappedPtr)
	fb.Return(nil)
	f.b.EntryPoint("main", ir.StageCompute, fb.Finish())

	m := f.b.Module()
	layout := prepareSizes(t, m, 1)
	_, err := ArrayLengthFromImmediates(m, layout, testSizesOffset, 1, map[BindingPoint]uint32{{0, 0}: 0})
	require.NoError(t, err)

	require.Len(t, functionNamed(t, m, "leaf").Arguments, 2)

	main := functionNamed(t, m, "main")
	cs := calls(main)
	require.Len(t, cs, 2)
	decodeMember(t, main, cs[0].Arguments[1], layout)
	assert.Equal(t, ir.ExprArrayLength{Array: unmappedPtr}, main.Expressions[cs[1].Arguments[1]].Kind)

	// The reinserted query is emitted right before the call that passes it.
	var prev ir.Statement
	ir.WalkStatements(main.Body, func(stmt *ir.Statement) {
		if call, ok := stmt.Kind.(ir.StmtCall); ok && len(call.Arguments) == 2 && call.Arguments[0] == unmappedPtr {
			emit, ok := prev.Kind.(ir.StmtEmit)
			require.True(t, ok, "expected emit before call, got %T", prev.Kind)
			assert.True(t, emit.Range.Start <= call.Arguments[1] && call.Arguments[1] < emit.Range.End)
		}
		prev = *stmt
	})
}

func TestArrayLength_ForwarderReachedOnlyFromUnmappedBuffer(t *testing.T) {
	f := newFixture()
	mapped := f.buffer("mapped", f.u32, 0, 0)
	unmapped := f.buffer("unmapped", f.u32, 0, 1)
	sink := f.sink()
	leaf := f.leaf("leaf", f.u32, sink)
	mid := f.forward("mid", leaf, f.u32)

	a := f.b.Function("a")
	a.Call(leaf, a.GlobalRef(mapped))
	a.Return(nil)
	f.b.EntryPoint("a", ir.StageCompute, a.Finish())

	b := f.b.Function("b")
	b.Call(mid, b.GlobalRef(unmapped))
	b.Return(nil)
	f.b.EntryPoint("b", ir.StageCompute, b.Finish())

	m := f.b.Module()
	layout := prepareSizes(t, m, 1)
	res, err := ArrayLengthFromImmediates(m, layout, testSizesOffset, 1, map[BindingPoint]uint32{{0, 0}: 0})
	require.NoError(t, err)
	assert.True(t, res.NeedsStorageBufferSizes)

	require.Len(t, functionNamed(t, m, "leaf").Arguments, 2)

	midFn := functionNamed(t, m, "mid")
	require.Len(t, midFn.Arguments, 1, "mid has no caller that can supply a length")
	cs := calls(midFn)
	require.Len(t, cs, 1)
	require.Len(t, cs[0].Arguments, 2)
	assert.Equal(t, ir.ExprArrayLength{Array: cs[0].Arguments[0]}, midFn.Expressions[cs[0].Arguments[1]].Kind)

	bFn := functionNamed(t, m, "b")
	bCalls := calls(bFn)
	require.Len(t, bCalls, 1)
	assert.Len(t, bCalls[0].Arguments, 1)

	aFn := functionNamed(t, m, "a")
	aCalls := calls(aFn)
	require.Len(t, aCalls, 1)
	require.Len(t, aCalls[0].Arguments, 2)
	assert.Equal(t, lengthRead{stride: 4}, decodeMember(t, aFn, aCalls[0].Arguments[1], layout))
}

func TestArrayLength_NoThreadingWithoutMappedCaller(t *testing.T) {
	f := newFixture()
	unmapped := f.buffer("unmapped", f.u32, 0, 1)
	sink := f.sink()
	leaf := f.leaf("leaf", f.u32, sink)

	fb := f.b.Function("main")
	fb.Call(leaf, fb.GlobalRef(unmapped))
	fb.Return(nil)
	f.b.EntryPoint("main", ir.StageCompute, fb.Finish())

	m := f.b.Module()
	layout := prepareSizes(t, m, 1)
	before := ir.Disassemble(m)
	res, err := ArrayLengthFromImmediates(m, layout, testSizesOffset, 1, map[BindingPoint]uint32{{0, 0}: 0})
	require.NoError(t, err)

	assert.False(t, res.NeedsStorageBufferSizes)
	assert.Equal(t, before, ir.Disassemble(m))
}

func TestArrayLength_UserFunctionNamedArrayLength(t *testing.T) {
	f := newFixture()
	buf := f.buffer("buf", f.u32, 0, 0)

	user := f.b.Function("arrayLength")
	user.Arg("p", f.arrayPtr(f.u32))
	user.Result(f.u32, nil)
	user.ReturnValue(user.U32(7))
	userFn := user.Finish()

	sink := f.sink()
	fb := f.b.Function("main")
	result, ok := fb.Call(userFn, fb.GlobalRef(buf))
	require.True(t, ok)
	fb.Store(fb.GlobalRef(sink), result)
	fb.Return(nil)
	f.b.EntryPoint("main", ir.StageCompute, fb.Finish())

	m := f.b.Module()
	layout := prepareSizes(t, m, 1)
	before := ir.Disassemble(m)
	res, err := ArrayLengthFromImmediates(m, layout, testSizesOffset, 1, map[BindingPoint]uint32{{0, 0}: 0})
	require.NoError(t, err)

	assert.False(t, res.NeedsStorageBufferSizes)
	assert.Len(t, functionNamed(t, m, "arrayLength").Arguments, 1)
	assert.Equal(t, before, ir.Disassemble(m))
}

func TestArrayLength_Deterministic(t *testing.T) {
	build := func() string {
		f := newFixture()
		a := f.buffer("a", f.u32, 0, 0)
		b := f.buffer("b", f.i32, 0, 1)
		sink := f.sink()
		leaf := f.leaf("leaf", f.i32, sink)

		fb := f.b.Function("main")
		fb.Store(fb.GlobalRef(sink), fb.ArrayLength(fb.GlobalRef(a)))
		fb.Call(leaf, fb.GlobalRef(b))
		fb.Return(nil)
		f.b.EntryPoint("main", ir.StageCompute, fb.Finish())

		m := f.b.Module()
		layout := prepareSizes(t, m, 1)
		_, err := ArrayLengthFromImmediates(m, layout, testSizesOffset, 1,
			map[BindingPoint]uint32{{0, 0}: 1, {0, 1}: 3})
		require.NoError(t, err)
		return ir.Disassemble(m)
	}

	first := build()
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, build())
	}
}

func TestBindingPointString(t *testing.T) {
	assert.Equal(t, "@group(1) @binding(2)", BindingPoint{Group: 1, Binding: 2}.String())
}

// forward builds `fn name(p) { callee(p); }`.
func (f *fixture) forward(name string, callee ir.FunctionHandle, elem ir.TypeHandle) ir.FunctionHandle {
	fb := f.b.Function(name)
	p := fb.Arg("p", f.arrayPtr(elem))
	fb.Call(callee, p)
	fb.Return(nil)
	return fb.Finish()
}

func findType(t *testing.T, m *ir.Module, name string) ir.TypeHandle {
	t.Helper()
	for i, ty := range m.Types {
		if ty.Name == name {
			return ir.TypeHandle(i)
		}
	}
	t.Fatalf("no type %q", name)
	return 0
}

func TestBufferSizesElements(t *testing.T) {
	tests := []struct {
		name  string
		slots map[BindingPoint]uint32
		want  uint32
	}{
		{"empty", nil, 0},
		{"one", map[BindingPoint]uint32{{0, 0}: 0}, 1},
		{"full vector", map[BindingPoint]uint32{{0, 0}: 3}, 1},
		{"packed", map[BindingPoint]uint32{{0, 0}: 0, {0, 1}: 5, {0, 2}: 3, {0, 3}: 2, {0, 4}: 4}, 2},
		{"sparse", map[BindingPoint]uint32{{2, 7}: 12}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BufferSizesElements(tt.slots))
		})
	}
}
