package ir

// Module represents a shader module in IR form.
type Module struct {
	// Types holds all type definitions
	Types []Type

	// Constants holds module-scope constants
	Constants []Constant

	// GlobalVariables holds module-scope variables
	GlobalVariables []GlobalVariable

	// Functions holds all function definitions, entry points included
	Functions []Function

	// EntryPoints holds shader entry points
	EntryPoints []EntryPoint
}

// EntryPoint represents a shader entry point.
type EntryPoint struct {
	Name      string
	Stage     ShaderStage
	Function  FunctionHandle
	Workgroup [3]uint32 // For compute shaders
}

// ShaderStage represents a shader stage.
type ShaderStage uint8

const (
	StageVertex ShaderStage = iota
	StageFragment
	StageCompute
)

// String returns the WGSL attribute name of the stage.
func (s ShaderStage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageCompute:
		return "compute"
	default:
		return "unknown"
	}
}

// Handle types for referencing IR objects
type (
	TypeHandle           uint32
	FunctionHandle       uint32
	GlobalVariableHandle uint32
	ConstantHandle       uint32
	ExpressionHandle     uint32
)

// Type represents a type in the IR.
type Type struct {
	Name  string
	Inner TypeInner
}

// TypeInner represents the inner type kind.
type TypeInner interface {
	typeInner()
}

// ScalarType represents scalar types.
type ScalarType struct {
	Kind  ScalarKind
	Width uint8 // in bytes
}

func (ScalarType) typeInner() {}

// ScalarKind represents scalar type kinds.
type ScalarKind uint8

const (
	ScalarSint  ScalarKind = iota // Signed integer
	ScalarUint                    // Unsigned integer
	ScalarFloat                   // Floating point
	ScalarBool                    // Boolean
)

// Common scalar types.
var (
	U32 = ScalarType{Kind: ScalarUint, Width: 4}
	I32 = ScalarType{Kind: ScalarSint, Width: 4}
	F32 = ScalarType{Kind: ScalarFloat, Width: 4}
)

// VectorType represents vector types.
type VectorType struct {
	Size   VectorSize
	Scalar ScalarType
}

func (VectorType) typeInner() {}

// VectorSize represents vector sizes.
type VectorSize uint8

const (
	Vec2 VectorSize = 2
	Vec3 VectorSize = 3
	Vec4 VectorSize = 4
)

// MatrixType represents matrix types.
type MatrixType struct {
	Columns VectorSize
	Rows    VectorSize
	Scalar  ScalarType
}

func (MatrixType) typeInner() {}

// ArrayType represents array types.
// A zero Stride means the stride follows from the element layout.
type ArrayType struct {
	Base   TypeHandle
	Size   ArraySize
	Stride uint32
}

func (ArrayType) typeInner() {}

// ArraySize represents array size.
type ArraySize struct {
	Constant *uint32 // nil for runtime-sized arrays
}

// IsRuntime reports whether the array is runtime-sized.
func (s ArraySize) IsRuntime() bool {
	return s.Constant == nil
}

// StructType represents struct types.
type StructType struct {
	Members []StructMember
	Span    uint32 // Size in bytes

	// Block marks a struct that backs a single bound resource as a whole.
	Block bool
}

func (StructType) typeInner() {}

// StructMember represents a struct member.
type StructMember struct {
	Name    string
	Type    TypeHandle
	Binding *Binding // @builtin(position), @location(0), etc.
	Offset  uint32
}

// PointerType represents pointer types.
type PointerType struct {
	Base  TypeHandle
	Space AddressSpace
}

func (PointerType) typeInner() {}

// AtomicType represents atomic types for thread-safe operations.
type AtomicType struct {
	Scalar ScalarType
}

func (AtomicType) typeInner() {}

// AddressSpace represents memory address spaces.
type AddressSpace uint8

const (
	SpaceFunction AddressSpace = iota
	SpacePrivate
	SpaceWorkGroup
	SpaceUniform
	SpaceStorage

	// SpaceImmediate holds small values written by the API at draw or
	// dispatch time (push constants in Vulkan terms). A module has at
	// most one variable in this space.
	SpaceImmediate

	// SpaceIn and SpaceOut hold module-scope shader stage inputs and
	// outputs after entry-point IO has been lowered.
	SpaceIn
	SpaceOut
)

// String returns the WGSL-style name of the address space.
func (s AddressSpace) String() string {
	switch s {
	case SpaceFunction:
		return "function"
	case SpacePrivate:
		return "private"
	case SpaceWorkGroup:
		return "workgroup"
	case SpaceUniform:
		return "uniform"
	case SpaceStorage:
		return "storage"
	case SpaceImmediate:
		return "immediate"
	case SpaceIn:
		return "__in"
	case SpaceOut:
		return "__out"
	default:
		return "unknown"
	}
}

// Constant represents a constant value.
type Constant struct {
	Name  string
	Type  TypeHandle
	Value ConstantValue
}

// ConstantValue represents constant values.
type ConstantValue interface {
	constantValue()
}

// ScalarValue represents a scalar constant.
type ScalarValue struct {
	Bits uint64 // Bit representation
	Kind ScalarKind
}

func (ScalarValue) constantValue() {}

// CompositeValue represents a composite constant.
type CompositeValue struct {
	Components []ConstantHandle
}

func (CompositeValue) constantValue() {}

// GlobalVariable represents a global variable.
type GlobalVariable struct {
	Name    string
	Space   AddressSpace
	Binding *ResourceBinding
	Type    TypeHandle
	Init    *ConstantHandle

	// IO is the builtin or location binding of a SpaceIn/SpaceOut variable.
	IO Binding
}

// ResourceBinding represents a resource binding.
type ResourceBinding struct {
	Group   uint32
	Binding uint32
}

// Function represents a function definition.
type Function struct {
	Name            string
	Arguments       []FunctionArgument
	Result          *FunctionResult
	LocalVars       []LocalVariable
	Expressions     []Expression
	ExpressionTypes []TypeResolution // Type of each expression (parallel to Expressions)
	Body            Block
}

// FunctionArgument represents a function argument.
type FunctionArgument struct {
	Name    string
	Type    TypeHandle
	Binding *Binding
}

// FunctionResult represents a function return type.
type FunctionResult struct {
	Type    TypeHandle
	Binding *Binding
}

// LocalVariable represents a function-local variable.
type LocalVariable struct {
	Name string
	Type TypeHandle
	Init *ExpressionHandle
}

// Binding represents shader bindings.
type Binding interface {
	binding()
}

// BuiltinBinding represents a built-in binding.
type BuiltinBinding struct {
	Builtin BuiltinValue
}

func (BuiltinBinding) binding() {}

// BuiltinValue represents built-in values.
type BuiltinValue uint8

const (
	BuiltinPosition BuiltinValue = iota
	BuiltinVertexIndex
	BuiltinInstanceIndex
	BuiltinFrontFacing
	BuiltinFragDepth
	BuiltinSampleIndex
	BuiltinSampleMask
	BuiltinLocalInvocationID
	BuiltinLocalInvocationIndex
	BuiltinGlobalInvocationID
	BuiltinWorkGroupID
	BuiltinNumWorkGroups
)

var builtinNames = [...]string{
	BuiltinPosition:             "position",
	BuiltinVertexIndex:          "vertex_index",
	BuiltinInstanceIndex:        "instance_index",
	BuiltinFrontFacing:          "front_facing",
	BuiltinFragDepth:            "frag_depth",
	BuiltinSampleIndex:          "sample_index",
	BuiltinSampleMask:           "sample_mask",
	BuiltinLocalInvocationID:    "local_invocation_id",
	BuiltinLocalInvocationIndex: "local_invocation_index",
	BuiltinGlobalInvocationID:   "global_invocation_id",
	BuiltinWorkGroupID:          "workgroup_id",
	BuiltinNumWorkGroups:        "num_workgroups",
}

// String returns the WGSL name of the builtin.
func (b BuiltinValue) String() string {
	if int(b) < len(builtinNames) {
		return builtinNames[b]
	}
	return "unknown"
}

// LocationBinding represents a location binding.
type LocationBinding struct {
	Location      uint32
	Interpolation *Interpolation
}

func (LocationBinding) binding() {}

// Interpolation represents interpolation settings.
type Interpolation struct {
	Kind     InterpolationKind
	Sampling InterpolationSampling
}

// InterpolationKind represents interpolation kinds.
type InterpolationKind uint8

const (
	InterpolationFlat InterpolationKind = iota
	InterpolationLinear
	InterpolationPerspective
)

// InterpolationSampling represents interpolation sampling.
type InterpolationSampling uint8

const (
	SamplingCenter InterpolationSampling = iota
	SamplingCentroid
	SamplingSample
)

// TypeResolution represents the resolved type of an expression.
// It can either reference a type in the module's type arena (Handle)
// or represent an inline/computed type (Value).
type TypeResolution struct {
	Handle *TypeHandle // If set, references a module type
	Value  TypeInner   // If Handle is nil, this is the inline type
}

// Inner returns the type the resolution describes.
func (r TypeResolution) Inner(module *Module) TypeInner {
	if r.Handle != nil {
		if int(*r.Handle) < len(module.Types) {
			return module.Types[*r.Handle].Inner
		}
		return nil
	}
	return r.Value
}

// EntryPointFor returns the entry point backed by fn, if any.
func (m *Module) EntryPointFor(fn FunctionHandle) (*EntryPoint, bool) {
	for i := range m.EntryPoints {
		if m.EntryPoints[i].Function == fn {
			return &m.EntryPoints[i], true
		}
	}
	return nil, false
}

// Expression types are defined in expression.go
// Statement types are defined in statement.go
