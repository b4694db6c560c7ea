package ir

import "fmt"

// ValuePointerType is the inline type of a pointer to a vector component
// or matrix column, which may have no handle in the type arena.
// It only appears in TypeResolution values, never in Module.Types.
type ValuePointerType struct {
	Size   VectorSize // zero for a scalar
	Scalar ScalarType
	Space  AddressSpace
}

func (ValuePointerType) typeInner() {}

// ResolveExpressionType resolves the type of an expression in a function.
// Returns a TypeResolution that either references a module type or contains an inline type.
//
//nolint:gocyclo,cyclop,funlen // Type resolution requires handling all expression kinds
func ResolveExpressionType(module *Module, fn *Function, handle ExpressionHandle) (TypeResolution, error) {
	if int(handle) >= len(fn.Expressions) {
		return TypeResolution{}, fmt.Errorf("expression handle %d out of range (max %d)", handle, len(fn.Expressions))
	}

	expr := fn.Expressions[handle]

	switch kind := expr.Kind.(type) {
	case Literal:
		return resolveLiteralType(kind)
	case ExprConstant:
		if int(kind.Constant) >= len(module.Constants) {
			return TypeResolution{}, fmt.Errorf("constant %d out of range", kind.Constant)
		}
		h := module.Constants[kind.Constant].Type
		return TypeResolution{Handle: &h}, nil
	case ExprZeroValue:
		h := kind.Type
		return TypeResolution{Handle: &h}, nil
	case ExprCompose:
		h := kind.Type
		return TypeResolution{Handle: &h}, nil
	case ExprAccess:
		return resolveAccessType(module, fn, kind.Base, nil)
	case ExprAccessIndex:
		index := kind.Index
		return resolveAccessType(module, fn, kind.Base, &index)
	case ExprSplat:
		valueType, err := ResolveExpressionType(module, fn, kind.Value)
		if err != nil {
			return TypeResolution{}, fmt.Errorf("splat value: %w", err)
		}
		scalar, ok := valueType.Inner(module).(ScalarType)
		if !ok {
			return TypeResolution{}, fmt.Errorf("splat value must be scalar, got %T", valueType.Inner(module))
		}
		return TypeResolution{Value: VectorType{Size: kind.Size, Scalar: scalar}}, nil
	case ExprSwizzle:
		vectorType, err := ResolveExpressionType(module, fn, kind.Vector)
		if err != nil {
			return TypeResolution{}, fmt.Errorf("swizzle vector: %w", err)
		}
		vec, ok := vectorType.Inner(module).(VectorType)
		if !ok {
			return TypeResolution{}, fmt.Errorf("swizzle base must be vector, got %T", vectorType.Inner(module))
		}
		return TypeResolution{Value: VectorType{Size: kind.Size, Scalar: vec.Scalar}}, nil
	case ExprFunctionArgument:
		if int(kind.Index) >= len(fn.Arguments) {
			return TypeResolution{}, fmt.Errorf("function argument index %d out of range", kind.Index)
		}
		h := fn.Arguments[kind.Index].Type
		return TypeResolution{Handle: &h}, nil
	case ExprGlobalVariable:
		if int(kind.Variable) >= len(module.GlobalVariables) {
			return TypeResolution{}, fmt.Errorf("global variable %d out of range", kind.Variable)
		}
		gv := module.GlobalVariables[kind.Variable]
		return TypeResolution{Value: PointerType{Base: gv.Type, Space: gv.Space}}, nil
	case ExprLocalVariable:
		if int(kind.Variable) >= len(fn.LocalVars) {
			return TypeResolution{}, fmt.Errorf("local variable %d out of range", kind.Variable)
		}
		return TypeResolution{Value: PointerType{Base: fn.LocalVars[kind.Variable].Type, Space: SpaceFunction}}, nil
	case ExprLoad:
		return resolveLoadType(module, fn, kind)
	case ExprLet:
		return ResolveExpressionType(module, fn, kind.Value)
	case ExprUnary:
		operandType, err := ResolveExpressionType(module, fn, kind.Expr)
		if err != nil {
			return TypeResolution{}, fmt.Errorf("unary operand: %w", err)
		}
		return operandType, nil
	case ExprBinary:
		return resolveBinaryType(module, fn, kind)
	case ExprSelect:
		acceptType, err := ResolveExpressionType(module, fn, kind.Accept)
		if err != nil {
			return TypeResolution{}, fmt.Errorf("select accept: %w", err)
		}
		return acceptType, nil
	case ExprMath:
		return resolveMathType(module, fn, kind)
	case ExprAs:
		return resolveAsType(module, fn, kind)
	case ExprCallResult:
		if int(kind.Function) >= len(module.Functions) {
			return TypeResolution{}, fmt.Errorf("function %d out of range", kind.Function)
		}
		result := module.Functions[kind.Function].Result
		if result == nil {
			return TypeResolution{}, fmt.Errorf("function has no return type")
		}
		h := result.Type
		return TypeResolution{Handle: &h}, nil
	case ExprArrayLength:
		// ArrayLength returns u32
		return TypeResolution{Value: U32}, nil
	default:
		return TypeResolution{}, fmt.Errorf("unsupported expression kind: %T", kind)
	}
}

func resolveLiteralType(lit Literal) (TypeResolution, error) {
	switch v := lit.Value.(type) {
	case LiteralF32:
		return TypeResolution{Value: F32}, nil
	case LiteralU32:
		return TypeResolution{Value: U32}, nil
	case LiteralI32:
		return TypeResolution{Value: I32}, nil
	case LiteralBool:
		return TypeResolution{Value: ScalarType{Kind: ScalarBool, Width: 1}}, nil
	default:
		return TypeResolution{}, fmt.Errorf("unknown literal type: %T", v)
	}
}

// resolveAccessType resolves an Access (index == nil) or AccessIndex.
// Access through a pointer yields a pointer to the element in the same space.
func resolveAccessType(module *Module, fn *Function, base ExpressionHandle, index *uint32) (TypeResolution, error) {
	baseType, err := ResolveExpressionType(module, fn, base)
	if err != nil {
		return TypeResolution{}, fmt.Errorf("access base: %w", err)
	}

	switch t := baseType.Inner(module).(type) {
	case PointerType:
		if int(t.Base) >= len(module.Types) {
			return TypeResolution{}, fmt.Errorf("pointer base type %d out of range", t.Base)
		}
		elem, err := elementType(module.Types[t.Base].Inner, index)
		if err != nil {
			return TypeResolution{}, err
		}
		if elem.Handle != nil {
			return TypeResolution{Value: PointerType{Base: *elem.Handle, Space: t.Space}}, nil
		}
		switch v := elem.Value.(type) {
		case ScalarType:
			return TypeResolution{Value: ValuePointerType{Scalar: v, Space: t.Space}}, nil
		case VectorType:
			return TypeResolution{Value: ValuePointerType{Size: v.Size, Scalar: v.Scalar, Space: t.Space}}, nil
		}
		return TypeResolution{}, fmt.Errorf("cannot point to element of type %T", elem.Value)
	case ValuePointerType:
		if t.Size == 0 {
			return TypeResolution{}, fmt.Errorf("cannot index into scalar pointer")
		}
		return TypeResolution{Value: ValuePointerType{Scalar: t.Scalar, Space: t.Space}}, nil
	case nil:
		return TypeResolution{}, fmt.Errorf("access base has unresolved type")
	default:
		return elementType(t, index)
	}
}

func elementType(inner TypeInner, index *uint32) (TypeResolution, error) {
	switch t := inner.(type) {
	case ArrayType:
		h := t.Base
		return TypeResolution{Handle: &h}, nil
	case VectorType:
		return TypeResolution{Value: t.Scalar}, nil
	case MatrixType:
		// Matrix access returns a column vector
		return TypeResolution{Value: VectorType{Size: t.Rows, Scalar: t.Scalar}}, nil
	case StructType:
		if index == nil {
			return TypeResolution{}, fmt.Errorf("struct access requires a constant index")
		}
		if int(*index) >= len(t.Members) {
			return TypeResolution{}, fmt.Errorf("struct member index %d out of range", *index)
		}
		h := t.Members[*index].Type
		return TypeResolution{Handle: &h}, nil
	default:
		return TypeResolution{}, fmt.Errorf("cannot index into type %T", t)
	}
}

func resolveLoadType(module *Module, fn *Function, expr ExprLoad) (TypeResolution, error) {
	pointerType, err := ResolveExpressionType(module, fn, expr.Pointer)
	if err != nil {
		return TypeResolution{}, fmt.Errorf("load pointer: %w", err)
	}

	// Load dereferences a pointer
	switch ptr := pointerType.Inner(module).(type) {
	case PointerType:
		h := ptr.Base
		return TypeResolution{Handle: &h}, nil
	case ValuePointerType:
		if ptr.Size == 0 {
			return TypeResolution{Value: ptr.Scalar}, nil
		}
		return TypeResolution{Value: VectorType{Size: ptr.Size, Scalar: ptr.Scalar}}, nil
	default:
		return TypeResolution{}, fmt.Errorf("load requires pointer type, got %T", ptr)
	}
}

func resolveBinaryType(module *Module, fn *Function, expr ExprBinary) (TypeResolution, error) {
	leftType, err := ResolveExpressionType(module, fn, expr.Left)
	if err != nil {
		return TypeResolution{}, fmt.Errorf("binary left: %w", err)
	}

	if expr.Op.IsComparison() {
		if vec, ok := leftType.Inner(module).(VectorType); ok && expr.Op != BinaryLogicalAnd && expr.Op != BinaryLogicalOr {
			// Vector comparison returns vector of bools
			return TypeResolution{Value: VectorType{
				Size:   vec.Size,
				Scalar: ScalarType{Kind: ScalarBool, Width: 1},
			}}, nil
		}
		return TypeResolution{Value: ScalarType{Kind: ScalarBool, Width: 1}}, nil
	}

	// Arithmetic and bitwise operators: if one side is scalar and the other is vector,
	// the result is vector (WGSL broadcasts scalar to match vector size).
	rightType, err := ResolveExpressionType(module, fn, expr.Right)
	if err != nil {
		return TypeResolution{}, fmt.Errorf("binary right: %w", err)
	}
	_, leftIsScalar := leftType.Inner(module).(ScalarType)
	_, rightIsVec := rightType.Inner(module).(VectorType)
	if leftIsScalar && rightIsVec {
		return rightType, nil
	}
	return leftType, nil
}

func resolveMathType(module *Module, fn *Function, expr ExprMath) (TypeResolution, error) {
	argType, err := ResolveExpressionType(module, fn, expr.Arg)
	if err != nil {
		return TypeResolution{}, fmt.Errorf("math argument: %w", err)
	}

	if expr.Fun == MathDot {
		if vec, ok := argType.Inner(module).(VectorType); ok {
			return TypeResolution{Value: vec.Scalar}, nil
		}
	}
	// Most math functions preserve the argument type
	return argType, nil
}

func resolveAsType(module *Module, fn *Function, expr ExprAs) (TypeResolution, error) {
	exprType, err := ResolveExpressionType(module, fn, expr.Expr)
	if err != nil {
		return TypeResolution{}, fmt.Errorf("as expr: %w", err)
	}

	inner := exprType.Inner(module)
	width := uint8(4)
	if expr.Convert != nil {
		width = *expr.Convert
	} else if s, ok := inner.(ScalarType); ok {
		width = s.Width
	} else if v, ok := inner.(VectorType); ok {
		width = v.Scalar.Width
	}

	target := ScalarType{Kind: expr.Kind, Width: width}
	if vec, ok := inner.(VectorType); ok {
		return TypeResolution{Value: VectorType{Size: vec.Size, Scalar: target}}, nil
	}
	return TypeResolution{Value: target}, nil
}
