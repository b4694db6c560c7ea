package immediates

import (
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/immediates/glsl"
	"github.com/gogpu/immediates/ir"
	"github.com/gogpu/immediates/irpack"
	"github.com/gogpu/immediates/transform"
)

// vertexShader builds
//
//	@vertex fn main(@builtin(vertex_index) idx: u32) -> @builtin(position) vec4<f32> {
//	    sink = idx + arrayLength(&buf);
//	    return vec4<f32>();
//	}
func vertexShader() *ir.Module {
	b := ir.NewBuilder()
	u32 := b.Type("", ir.U32)
	vec4 := b.Type("", ir.VectorType{Size: ir.Vec4, Scalar: ir.F32})
	sink := b.Global(ir.GlobalVariable{Name: "sink", Space: ir.SpacePrivate, Type: u32})
	buf := b.StorageBuffer("buf", b.RuntimeArray(u32, 0), 0, 0)

	fb := b.Function("main")
	idx := fb.BoundArg("idx", u32, ir.BuiltinBinding{Builtin: ir.BuiltinVertexIndex})
	fb.Result(vec4, ir.BuiltinBinding{Builtin: ir.BuiltinPosition})
	n := fb.ArrayLength(fb.GlobalRef(buf))
	fb.Store(fb.GlobalRef(sink), fb.Binary(ir.BinaryAdd, idx, n))
	fb.ReturnValue(fb.Expr(ir.ExprZeroValue{Type: vec4}))
	b.EntryPoint("main", ir.StageVertex, fb.Finish())
	return b.Module()
}

func testOptions() Options {
	first := uint32(0)
	opts := DefaultOptions()
	opts.Raise.LangVersion = glsl.VersionES310
	opts.Raise.FirstVertexOffset = &first
	opts.Raise.BufferSizesOffset = 16
	opts.Raise.BindpointToSizeIndex = map[transform.BindingPoint]uint32{{Group: 0, Binding: 0}: 0}
	return opts
}

func TestRun(t *testing.T) {
	m := vertexShader()
	res, err := Run(m, testOptions())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.Layout.IsEmpty() {
		t.Fatal("expected an immediate block")
	}
	if !res.NeedsStorageBufferSizes {
		t.Error("expected NeedsStorageBufferSizes")
	}
	if res.BufferSizesArrayElements != 1 {
		t.Errorf("BufferSizesArrayElements = %d, want 1", res.BufferSizesArrayElements)
	}
	if idx, ok := res.Layout.MemberIndex(0); !ok || idx != 0 {
		t.Errorf("first vertex member = %d, %v; want 0", idx, ok)
	}

	errs, err := Validate(m)
	if err != nil || len(errs) != 0 {
		t.Fatalf("transformed module invalid: %v %v", err, errs)
	}
	gv := m.GlobalVariables[res.Layout.Var]
	if gv.Name != transform.ImmediateDataVarName || gv.Space != ir.SpaceImmediate {
		t.Errorf("immediate variable = %q in %s", gv.Name, gv.Space)
	}
	for _, expr := range m.Functions[0].Expressions {
		if _, ok := expr.Kind.(ir.ExprArrayLength); ok {
			t.Error("array length query survived")
		}
	}
}

func TestRunDefaultOptions(t *testing.T) {
	b := ir.NewBuilder()
	vec4 := b.Type("", ir.VectorType{Size: ir.Vec4, Scalar: ir.F32})
	fb := b.Function("main")
	fb.Result(vec4, ir.BuiltinBinding{Builtin: ir.BuiltinPosition})
	fb.ReturnValue(fb.Expr(ir.ExprZeroValue{Type: vec4}))
	b.EntryPoint("main", ir.StageVertex, fb.Finish())
	m := b.Module()

	res, err := Run(m, DefaultOptions())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !res.Layout.IsEmpty() {
		t.Errorf("layout = %+v, want empty", res.Layout)
	}
	if len(m.GlobalVariables) != 0 {
		t.Errorf("globals = %+v, want none", m.GlobalVariables)
	}
}

func TestRunValidationFailed(t *testing.T) {
	b := ir.NewBuilder()
	fb := b.Function("main")
	fb.Return(nil)
	b.EntryPoint("main", ir.StageVertex, fb.Finish())

	_, err := Run(b.Module(), DefaultOptions())
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "validation failed") {
		t.Errorf("error %q does not mention validation", err)
	}
	var verr *ir.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("error %v does not wrap *ir.ValidationError", err)
	}
}

func TestRunUnsupportedVersion(t *testing.T) {
	opts := testOptions()
	opts.Raise.LangVersion = glsl.Version330
	_, err := Run(vertexShader(), opts)
	if !errors.Is(err, glsl.ErrUnsupported) {
		t.Fatalf("error = %v, want ErrUnsupported", err)
	}
}

func TestRunICE(t *testing.T) {
	// gl_VertexID read twice cannot be offset in one place.
	b := ir.NewBuilder()
	u32 := b.Type("", ir.U32)
	i32 := b.Type("", ir.I32)
	vec4 := b.Type("", ir.VectorType{Size: ir.Vec4, Scalar: ir.F32})
	input := b.Global(ir.GlobalVariable{
		Name:  glsl.VertexIndexName,
		Space: ir.SpaceIn,
		Type:  i32,
		IO:    ir.BuiltinBinding{Builtin: ir.BuiltinVertexIndex},
	})
	sink := b.Global(ir.GlobalVariable{Name: "sink", Space: ir.SpacePrivate, Type: u32})
	fb := b.Function("main")
	fb.Result(vec4, ir.BuiltinBinding{Builtin: ir.BuiltinPosition})
	x := fb.Convert(fb.Load(fb.GlobalRef(input)), ir.ScalarUint)
	y := fb.Convert(fb.Load(fb.GlobalRef(input)), ir.ScalarUint)
	fb.Store(fb.GlobalRef(sink), fb.Binary(ir.BinaryAdd, x, y))
	fb.ReturnValue(fb.Expr(ir.ExprZeroValue{Type: vec4}))
	b.EntryPoint("main", ir.StageVertex, fb.Finish())

	first := uint32(0)
	opts := DefaultOptions()
	opts.Raise.FirstVertexOffset = &first
	_, err := Run(b.Module(), opts)
	if err == nil {
		t.Fatal("expected an internal compiler error")
	}
	if !IsICE(err) {
		t.Fatalf("error %v is not an ICE", err)
	}
	var ice *transform.ICE
	if errors.As(err, &ice) && ice.Pass != "OffsetFirstIndex" {
		t.Errorf("ICE pass = %q, want OffsetFirstIndex", ice.Pass)
	}
}

func TestCompile(t *testing.T) {
	data, err := irpack.Marshal(vertexShader())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	out, res, err := Compile(data, testOptions())
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if res.Layout.IsEmpty() {
		t.Error("expected an immediate block")
	}

	direct := vertexShader()
	if _, err := Run(direct, testOptions()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	got, err := irpack.Unmarshal(out)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if want, have := ir.Disassemble(direct), ir.Disassemble(got); want != have {
		t.Errorf("compiled module differs:\n%s\nwant:\n%s", have, want)
	}
}

func TestCompileBadInput(t *testing.T) {
	_, _, err := Compile([]byte("not a module"), DefaultOptions())
	if !errors.Is(err, irpack.ErrBadMagic) {
		t.Fatalf("error = %v, want ErrBadMagic", err)
	}
}
