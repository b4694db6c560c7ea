package ir

import (
	"fmt"
)

// ValidationError represents a validation error.
type ValidationError struct {
	Message string
	// Optional context
	Function   string
	Expression *ExpressionHandle
	Statement  int
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Function != "" {
		if e.Expression != nil {
			return fmt.Sprintf("in function %s, expression %d: %s", e.Function, *e.Expression, e.Message)
		}
		if e.Statement >= 0 {
			return fmt.Sprintf("in function %s, statement %d: %s", e.Function, e.Statement, e.Message)
		}
		return fmt.Sprintf("in function %s: %s", e.Function, e.Message)
	}
	return e.Message
}

// Validator validates IR modules.
type Validator struct {
	module  *Module
	errors  []ValidationError
	context validationContext
}

// validationContext holds current validation context.
type validationContext struct {
	function     *Function
	functionName string
	loopDepth    int
	inContinuing bool

	// emitted tracks expressions visible at the current statement.
	// Expressions emitted inside a nested block go out of scope with it.
	emitted map[ExpressionHandle]bool
	// everEmitted catches expressions emitted twice.
	everEmitted map[ExpressionHandle]bool
}

// Validate checks the IR module for correctness.
// Returns validation errors if any, or nil if module is valid.
func Validate(module *Module) ([]ValidationError, error) {
	if module == nil {
		return nil, fmt.Errorf("module is nil")
	}

	v := &Validator{
		module: module,
		errors: make([]ValidationError, 0),
	}

	v.ValidateModule()

	if len(v.errors) > 0 {
		return v.errors, nil
	}
	return nil, nil
}

// ValidateModule validates the complete module.
func (v *Validator) ValidateModule() {
	v.validateTypes()
	v.validateConstants()
	v.validateGlobalVariables()
	v.validateFunctions()
	v.validateEntryPoints()
}

// validateTypes checks all type definitions.
func (v *Validator) validateTypes() {
	for i, typ := range v.module.Types {
		typ := typ
		v.validateType(TypeHandle(i), &typ)
	}
}

// validateType validates a single type.
//
//nolint:gocognit,gocyclo,cyclop // Type validation requires checking many type variants
func (v *Validator) validateType(handle TypeHandle, typ *Type) {
	if typ.Inner == nil {
		v.addError(fmt.Sprintf("type %d has nil inner type", handle))
		return
	}

	switch inner := typ.Inner.(type) {
	case ScalarType:
		if !validScalarWidth(inner.Width) {
			v.addError(fmt.Sprintf("type %d: scalar width must be 1, 2, 4, or 8 bytes, got %d", handle, inner.Width))
		}

	case VectorType:
		if inner.Size != Vec2 && inner.Size != Vec3 && inner.Size != Vec4 {
			v.addError(fmt.Sprintf("type %d: vector size must be 2, 3, or 4, got %d", handle, inner.Size))
		}
		if !validScalarWidth(inner.Scalar.Width) {
			v.addError(fmt.Sprintf("type %d: vector scalar width must be 1, 2, 4, or 8 bytes, got %d", handle, inner.Scalar.Width))
		}

	case MatrixType:
		if inner.Columns != Vec2 && inner.Columns != Vec3 && inner.Columns != Vec4 {
			v.addError(fmt.Sprintf("type %d: matrix columns must be 2, 3, or 4, got %d", handle, inner.Columns))
		}
		if inner.Rows != Vec2 && inner.Rows != Vec3 && inner.Rows != Vec4 {
			v.addError(fmt.Sprintf("type %d: matrix rows must be 2, 3, or 4, got %d", handle, inner.Rows))
		}
		if inner.Scalar.Kind != ScalarFloat {
			v.addError(fmt.Sprintf("type %d: matrix scalar must be float, got %v", handle, inner.Scalar.Kind))
		}

	case ArrayType:
		if !v.isValidTypeHandle(inner.Base) {
			v.addError(fmt.Sprintf("type %d: array base type %d does not exist", handle, inner.Base))
		}
		if inner.Base == handle {
			v.addError(fmt.Sprintf("type %d: array has circular reference to itself", handle))
		}

	case StructType:
		memberNames := make(map[string]bool)
		for j, member := range inner.Members {
			if member.Name == "" {
				v.addError(fmt.Sprintf("type %d: struct member %d has empty name", handle, j))
			}
			if memberNames[member.Name] {
				v.addError(fmt.Sprintf("type %d: duplicate struct member name %q", handle, member.Name))
			}
			memberNames[member.Name] = true

			if !v.isValidTypeHandle(member.Type) {
				v.addError(fmt.Sprintf("type %d: struct member %q type %d does not exist", handle, member.Name, member.Type))
			}
			if member.Type == handle {
				v.addError(fmt.Sprintf("type %d: struct member %q has circular reference", handle, member.Name))
			}
			if j > 0 && member.Offset < inner.Members[j-1].Offset {
				v.addError(fmt.Sprintf("type %d: struct member %q offset %d is below the previous member's offset %d",
					handle, member.Name, member.Offset, inner.Members[j-1].Offset))
			}
			if arr, ok := v.typeInner(member.Type).(ArrayType); ok && arr.Size.IsRuntime() && j != len(inner.Members)-1 {
				v.addError(fmt.Sprintf("type %d: runtime-sized member %q must be last", handle, member.Name))
			}
		}

	case PointerType:
		if !v.isValidTypeHandle(inner.Base) {
			v.addError(fmt.Sprintf("type %d: pointer base type %d does not exist", handle, inner.Base))
		}

	case AtomicType:
		if inner.Scalar.Kind != ScalarSint && inner.Scalar.Kind != ScalarUint {
			v.addError(fmt.Sprintf("type %d: atomic scalar must be an integer", handle))
		}
	}
}

func validScalarWidth(width uint8) bool {
	return width == 1 || width == 2 || width == 4 || width == 8
}

// validateConstants checks all constants.
func (v *Validator) validateConstants() {
	for i, c := range v.module.Constants {
		if !v.isValidTypeHandle(c.Type) {
			v.addError(fmt.Sprintf("constant %d (%s): type %d does not exist", i, c.Name, c.Type))
		}
	}
}

// validateGlobalVariables checks all global variables.
func (v *Validator) validateGlobalVariables() {
	bindings := make(map[ResourceBinding]bool)
	names := make(map[string]bool)
	immediates := 0

	for i, gv := range v.module.GlobalVariables {
		if gv.Name != "" {
			if names[gv.Name] {
				v.addError(fmt.Sprintf("duplicate global variable name %q", gv.Name))
			}
			names[gv.Name] = true
		}

		if !v.isValidTypeHandle(gv.Type) {
			v.addError(fmt.Sprintf("global variable %d (%s): type %d does not exist", i, gv.Name, gv.Type))
		}

		switch gv.Space {
		case SpaceUniform, SpaceStorage:
			if gv.Binding == nil {
				v.addError(fmt.Sprintf("global variable %q: %s variable requires @group/@binding", gv.Name, gv.Space))
			}
		case SpaceImmediate:
			immediates++
			if immediates == 2 {
				v.addError(fmt.Sprintf("global variable %q: module declares more than one immediate variable", gv.Name))
			}
			if gv.Binding != nil {
				v.addError(fmt.Sprintf("global variable %q: immediate variable cannot have a binding", gv.Name))
			}
		case SpaceIn, SpaceOut:
			if gv.IO == nil {
				v.addError(fmt.Sprintf("global variable %q: %s variable requires a builtin or location", gv.Name, gv.Space))
			}
		}

		if gv.Binding != nil {
			if bindings[*gv.Binding] {
				v.addError(fmt.Sprintf("global variable %q: duplicate binding @group(%d) @binding(%d)",
					gv.Name, gv.Binding.Group, gv.Binding.Binding))
			}
			bindings[*gv.Binding] = true
		}

		if gv.Init != nil {
			if !v.isValidConstantHandle(*gv.Init) {
				v.addError(fmt.Sprintf("global variable %q: init constant %d does not exist", gv.Name, *gv.Init))
			}
		}
	}
}

// validateFunctions checks all functions.
func (v *Validator) validateFunctions() {
	names := make(map[string]bool)

	for i := range v.module.Functions {
		fn := &v.module.Functions[i]
		if fn.Name != "" {
			if names[fn.Name] {
				v.addError(fmt.Sprintf("duplicate function name %q", fn.Name))
			}
			names[fn.Name] = true
		}

		v.context = validationContext{
			function:     fn,
			functionName: fn.Name,
			emitted:      make(map[ExpressionHandle]bool),
			everEmitted:  make(map[ExpressionHandle]bool),
		}

		v.validateFunction(fn)
	}
	v.context = validationContext{}
}

// validateFunction validates a single function.
func (v *Validator) validateFunction(fn *Function) {
	for i, arg := range fn.Arguments {
		if !v.isValidTypeHandle(arg.Type) {
			v.addErrorInFunction(fmt.Sprintf("argument %d (%s): type %d does not exist", i, arg.Name, arg.Type))
		}
	}

	if fn.Result != nil {
		if !v.isValidTypeHandle(fn.Result.Type) {
			v.addErrorInFunction(fmt.Sprintf("result type %d does not exist", fn.Result.Type))
		}
	}

	for i, lv := range fn.LocalVars {
		if !v.isValidTypeHandle(lv.Type) {
			v.addErrorInFunction(fmt.Sprintf("local variable %d (%s): type %d does not exist", i, lv.Name, lv.Type))
		}
		if lv.Init != nil {
			if !v.isValidExpressionHandle(*lv.Init) {
				v.addErrorInFunction(fmt.Sprintf("local variable %q: init expression %d does not exist", lv.Name, *lv.Init))
			}
		}
	}

	if len(fn.ExpressionTypes) != 0 && len(fn.ExpressionTypes) != len(fn.Expressions) {
		v.addErrorInFunction(fmt.Sprintf("expression types length %d does not match %d expressions",
			len(fn.ExpressionTypes), len(fn.Expressions)))
	}

	for i, expr := range fn.Expressions {
		expr := expr
		v.validateExpression(ExpressionHandle(i), &expr)
	}

	v.validateBlock(fn.Body)
}

// validateExpression validates the operands of a single expression.
//
//nolint:gocognit,gocyclo,cyclop,funlen // Expression validation requires checking many expression variants
func (v *Validator) validateExpression(handle ExpressionHandle, expr *Expression) {
	if expr.Kind == nil {
		v.addErrorInExpression(handle, "expression has nil kind")
		return
	}

	for _, operand := range ExpressionOperands(expr.Kind) {
		if !v.isValidExpressionHandle(operand) {
			v.addErrorInExpression(handle, fmt.Sprintf("operand expression %d does not exist", operand))
		}
		if operand == handle {
			v.addErrorInExpression(handle, "expression refers to itself")
		}
	}

	switch kind := expr.Kind.(type) {
	case ExprConstant:
		if !v.isValidConstantHandle(kind.Constant) {
			v.addErrorInExpression(handle, fmt.Sprintf("constant %d does not exist", kind.Constant))
		}

	case ExprZeroValue:
		if !v.isValidTypeHandle(kind.Type) {
			v.addErrorInExpression(handle, fmt.Sprintf("type %d does not exist", kind.Type))
		}

	case ExprCompose:
		if !v.isValidTypeHandle(kind.Type) {
			v.addErrorInExpression(handle, fmt.Sprintf("type %d does not exist", kind.Type))
			break
		}
		if st, ok := v.typeInner(kind.Type).(StructType); ok && len(st.Members) != len(kind.Components) {
			v.addErrorInExpression(handle, fmt.Sprintf("struct compose has %d components, struct has %d members",
				len(kind.Components), len(st.Members)))
		}

	case ExprSplat:
		if kind.Size != Vec2 && kind.Size != Vec3 && kind.Size != Vec4 {
			v.addErrorInExpression(handle, fmt.Sprintf("splat size must be 2, 3, or 4, got %d", kind.Size))
		}

	case ExprSwizzle:
		if kind.Size != Vec2 && kind.Size != Vec3 && kind.Size != Vec4 {
			v.addErrorInExpression(handle, fmt.Sprintf("swizzle size must be 2, 3, or 4, got %d", kind.Size))
		}
		for i := 0; i < int(kind.Size) && i < len(kind.Pattern); i++ {
			if kind.Pattern[i] > SwizzleW {
				v.addErrorInExpression(handle, fmt.Sprintf("pattern[%d] invalid component %d", i, kind.Pattern[i]))
			}
		}

	case ExprFunctionArgument:
		if int(kind.Index) >= len(v.context.function.Arguments) {
			v.addErrorInExpression(handle, fmt.Sprintf("argument index %d out of range (function has %d args)",
				kind.Index, len(v.context.function.Arguments)))
		}

	case ExprGlobalVariable:
		if !v.isValidGlobalVariableHandle(kind.Variable) {
			v.addErrorInExpression(handle, fmt.Sprintf("global variable %d does not exist", kind.Variable))
		}

	case ExprLocalVariable:
		if int(kind.Variable) >= len(v.context.function.LocalVars) {
			v.addErrorInExpression(handle, fmt.Sprintf("local variable index %d out of range (function has %d vars)",
				kind.Variable, len(v.context.function.LocalVars)))
		}

	case ExprCallResult:
		if !v.isValidFunctionHandle(kind.Function) {
			v.addErrorInExpression(handle, fmt.Sprintf("function %d does not exist", kind.Function))
		}
	}
}

// validateBlock validates a block of statements. Expressions emitted in
// the block are out of scope once it ends.
func (v *Validator) validateBlock(block Block) {
	var scoped []ExpressionHandle
	for i, stmt := range block {
		stmt := stmt
		scoped = append(scoped, v.validateStatement(i, &stmt)...)
	}
	for _, h := range scoped {
		delete(v.context.emitted, h)
	}
}

// validateStatement validates a single statement and returns the
// expressions it made visible.
//
//nolint:gocognit,gocyclo,cyclop,funlen // Statement validation requires checking many statement variants
func (v *Validator) validateStatement(index int, stmt *Statement) []ExpressionHandle {
	if stmt.Kind == nil {
		v.addErrorInStatement(index, "statement has nil kind")
		return nil
	}

	switch kind := stmt.Kind.(type) {
	case StmtEmit:
		return v.validateEmit(index, kind.Range)

	case StmtBlock:
		v.validateBlock(kind.Block)

	case StmtIf:
		v.requireAvailable(index, "condition", kind.Condition)
		v.validateBlock(kind.Accept)
		v.validateBlock(kind.Reject)

	case StmtSwitch:
		v.requireAvailable(index, "selector", kind.Selector)
		hasDefault := false
		for _, c := range kind.Cases {
			if _, ok := c.Value.(SwitchValueDefault); ok {
				if hasDefault {
					v.addErrorInStatement(index, "switch has multiple default cases")
				}
				hasDefault = true
			}
			v.validateBlock(c.Body)
		}
		if !hasDefault {
			v.addErrorInStatement(index, "switch missing default case")
		}

	case StmtLoop:
		oldDepth := v.context.loopDepth
		v.context.loopDepth++

		v.validateBlock(kind.Body)

		oldContinuing := v.context.inContinuing
		v.context.inContinuing = true
		var scoped []ExpressionHandle
		for i, s := range kind.Continuing {
			s := s
			scoped = append(scoped, v.validateStatement(i, &s)...)
		}
		if kind.BreakIf != nil {
			v.requireAvailable(index, "break-if", *kind.BreakIf)
		}
		for _, h := range scoped {
			delete(v.context.emitted, h)
		}
		v.context.inContinuing = oldContinuing

		v.context.loopDepth = oldDepth

	case StmtBreak:
		if v.context.loopDepth == 0 {
			v.addErrorInStatement(index, "break outside of loop")
		}
		if v.context.inContinuing {
			v.addErrorInStatement(index, "break in continuing block")
		}

	case StmtContinue:
		if v.context.loopDepth == 0 {
			v.addErrorInStatement(index, "continue outside of loop")
		}
		if v.context.inContinuing {
			v.addErrorInStatement(index, "continue in continuing block")
		}

	case StmtReturn:
		if v.context.inContinuing {
			v.addErrorInStatement(index, "return in continuing block")
		}
		if kind.Value != nil {
			v.requireAvailable(index, "return value", *kind.Value)
		}

	case StmtKill:
		if v.context.inContinuing {
			v.addErrorInStatement(index, "kill in continuing block")
		}

	case StmtBarrier:
		// Barriers are always valid

	case StmtStore:
		v.requireAvailable(index, "pointer", kind.Pointer)
		v.requireAvailable(index, "value", kind.Value)

	case StmtCall:
		if !v.isValidFunctionHandle(kind.Function) {
			v.addErrorInStatement(index, fmt.Sprintf("function %d does not exist", kind.Function))
			break
		}
		callee := &v.module.Functions[kind.Function]
		if len(kind.Arguments) != len(callee.Arguments) {
			v.addErrorInStatement(index, fmt.Sprintf("call to %q passes %d arguments, function takes %d",
				callee.Name, len(kind.Arguments), len(callee.Arguments)))
		}
		for i, arg := range kind.Arguments {
			v.requireAvailable(index, fmt.Sprintf("argument %d", i), arg)
			if i < len(callee.Arguments) {
				v.checkArgumentType(index, callee, i, arg)
			}
		}
		if kind.Result != nil {
			if !v.isValidExpressionHandle(*kind.Result) {
				v.addErrorInStatement(index, fmt.Sprintf("result expression %d does not exist", *kind.Result))
				break
			}
			res, ok := v.context.function.Expressions[*kind.Result].Kind.(ExprCallResult)
			if !ok || res.Function != kind.Function {
				v.addErrorInStatement(index, fmt.Sprintf("result expression %d is not a call result of function %d",
					*kind.Result, kind.Function))
			}
			v.context.emitted[*kind.Result] = true
			return []ExpressionHandle{*kind.Result}
		}
	}
	return nil
}

// checkArgumentType reports a call argument whose type differs from the
// callee's declared parameter type. Unresolvable arguments are left to
// the expression checks.
func (v *Validator) checkArgumentType(index int, callee *Function, i int, arg ExpressionHandle) {
	want := callee.Arguments[i].Type
	if !v.isValidExpressionHandle(arg) || !v.isValidTypeHandle(want) {
		return
	}
	got, err := ResolveExpressionType(v.module, v.context.function, arg)
	if err != nil {
		return
	}
	if got.Handle != nil && *got.Handle == want {
		return
	}
	gotInner := got.Inner(v.module)
	if gotInner == nil || sameTypeInner(v.module, gotInner, v.module.Types[want].Inner) {
		return
	}
	p := printer{m: v.module}
	v.addErrorInStatement(index, fmt.Sprintf("argument %d of call to %q has type %s, parameter %q is %s",
		i, callee.Name, p.innerName(gotInner), callee.Arguments[i].Name, p.typeName(want)))
}

// sameTypeInner compares types structurally. Handles inside the types
// (array bases, pointees, member types) must match exactly, except that a
// value pointer matches a pointer to the same scalar or vector.
func sameTypeInner(m *Module, a, b TypeInner) bool {
	a, b = asValuePointer(m, a), asValuePointer(m, b)
	if vp, ok := a.(ValuePointerType); ok {
		other, ok := b.(ValuePointerType)
		return ok && vp == other
	}
	if _, ok := b.(ValuePointerType); ok {
		return false
	}
	r := NewTypeRegistry()
	return r.normalizeType(a) == r.normalizeType(b)
}

func asValuePointer(m *Module, inner TypeInner) TypeInner {
	ptr, ok := inner.(PointerType)
	if !ok || int(ptr.Base) >= len(m.Types) {
		return inner
	}
	switch base := m.Types[ptr.Base].Inner.(type) {
	case ScalarType:
		return ValuePointerType{Scalar: base, Space: ptr.Space}
	case VectorType:
		return ValuePointerType{Size: base.Size, Scalar: base.Scalar, Space: ptr.Space}
	}
	return inner
}

// validateEmit checks an emit range and marks its expressions visible.
func (v *Validator) validateEmit(index int, r Range) []ExpressionHandle {
	exprCount := ExpressionHandle(len(v.context.function.Expressions))
	if r.Start >= exprCount {
		v.addErrorInStatement(index, fmt.Sprintf("emit range start %d out of range", r.Start))
		return nil
	}
	if r.End > exprCount {
		v.addErrorInStatement(index, fmt.Sprintf("emit range end %d out of range", r.End))
		return nil
	}
	if r.Start >= r.End {
		v.addErrorInStatement(index, fmt.Sprintf("emit range start %d >= end %d", r.Start, r.End))
		return nil
	}

	var visible []ExpressionHandle
	for h := r.Start; h < r.End; h++ {
		if v.context.everEmitted[h] {
			v.addErrorInStatement(index, fmt.Sprintf("expression %d is emitted more than once", h))
		}
		v.context.everEmitted[h] = true
		for _, operand := range ExpressionOperands(v.context.function.Expressions[h].Kind) {
			if !v.isAvailable(operand) {
				v.addErrorInExpression(h, fmt.Sprintf("operand %d is used before it is emitted", operand))
			}
		}
		v.context.emitted[h] = true
		visible = append(visible, h)
	}
	return visible
}

func (v *Validator) requireAvailable(index int, what string, handle ExpressionHandle) {
	if !v.isValidExpressionHandle(handle) {
		v.addErrorInStatement(index, fmt.Sprintf("%s expression %d does not exist", what, handle))
		return
	}
	if !v.isAvailable(handle) {
		v.addErrorInStatement(index, fmt.Sprintf("%s expression %d is used before it is emitted", what, handle))
	}
}

func (v *Validator) isAvailable(handle ExpressionHandle) bool {
	if !v.isValidExpressionHandle(handle) {
		return false
	}
	kind := v.context.function.Expressions[handle].Kind
	if _, isCall := kind.(ExprCallResult); isCall {
		return v.context.emitted[handle]
	}
	return !NeedsEmit(kind) || v.context.emitted[handle]
}

// validateEntryPoints checks all entry points.
func (v *Validator) validateEntryPoints() {
	names := make(map[string]bool)

	for i, ep := range v.module.EntryPoints {
		if ep.Name == "" {
			v.addError(fmt.Sprintf("entry point %d has empty name", i))
		}
		if names[ep.Name] {
			v.addError(fmt.Sprintf("duplicate entry point name %q", ep.Name))
		}
		names[ep.Name] = true

		if !v.isValidFunctionHandle(ep.Function) {
			v.addError(fmt.Sprintf("entry point %q: function %d does not exist", ep.Name, ep.Function))
			continue
		}

		fn := &v.module.Functions[ep.Function]

		switch ep.Stage {
		case StageVertex:
			// Position can be a direct return binding, a struct member, or,
			// once IO is lowered, a SpaceOut global.
			if !v.hasPositionBuiltin(fn.Result) && !v.hasPositionOutput() {
				v.addError(fmt.Sprintf("entry point %q (@vertex): must return @builtin(position)", ep.Name))
			}

		case StageFragment:
			// Fragment shader can optionally return with location binding

		case StageCompute:
			if ep.Workgroup[0] == 0 || ep.Workgroup[1] == 0 || ep.Workgroup[2] == 0 {
				v.addError(fmt.Sprintf("entry point %q (@compute): workgroup size must be non-zero", ep.Name))
			}
		}
	}
}

// hasPositionBuiltin checks if the function result contains @builtin(position).
// This can be either:
// 1. Direct binding on result: fn() -> @builtin(position) vec4<f32>
// 2. Struct member binding: fn() -> Struct { @builtin(position) pos: vec4<f32> }
func (v *Validator) hasPositionBuiltin(result *FunctionResult) bool {
	if result == nil {
		return false
	}
	if result.Binding != nil && isPositionBuiltin(*result.Binding) {
		return true
	}
	return v.structHasPositionBuiltin(result.Type)
}

func (v *Validator) hasPositionOutput() bool {
	for _, gv := range v.module.GlobalVariables {
		if gv.Space == SpaceOut && gv.IO != nil && isPositionBuiltin(gv.IO) {
			return true
		}
	}
	return false
}

// isPositionBuiltin checks if a binding is @builtin(position).
func isPositionBuiltin(binding Binding) bool {
	b, ok := binding.(BuiltinBinding)
	return ok && b.Builtin == BuiltinPosition
}

// structHasPositionBuiltin checks if a struct type has a member with @builtin(position).
func (v *Validator) structHasPositionBuiltin(typeHandle TypeHandle) bool {
	structType, ok := v.typeInner(typeHandle).(StructType)
	if !ok {
		return false
	}
	for _, member := range structType.Members {
		if member.Binding != nil && isPositionBuiltin(*member.Binding) {
			return true
		}
	}
	return false
}

// Helper methods for validation

func (v *Validator) typeInner(handle TypeHandle) TypeInner {
	if !v.isValidTypeHandle(handle) {
		return nil
	}
	return v.module.Types[handle].Inner
}

func (v *Validator) isValidTypeHandle(handle TypeHandle) bool {
	return int(handle) < len(v.module.Types)
}

func (v *Validator) isValidConstantHandle(handle ConstantHandle) bool {
	return int(handle) < len(v.module.Constants)
}

func (v *Validator) isValidGlobalVariableHandle(handle GlobalVariableHandle) bool {
	return int(handle) < len(v.module.GlobalVariables)
}

func (v *Validator) isValidFunctionHandle(handle FunctionHandle) bool {
	return int(handle) < len(v.module.Functions)
}

func (v *Validator) isValidExpressionHandle(handle ExpressionHandle) bool {
	if v.context.function == nil {
		return false
	}
	return int(handle) < len(v.context.function.Expressions)
}

func (v *Validator) addError(msg string) {
	v.errors = append(v.errors, ValidationError{
		Message:   msg,
		Statement: -1,
	})
}

func (v *Validator) addErrorInFunction(msg string) {
	v.errors = append(v.errors, ValidationError{
		Message:   msg,
		Function:  v.context.functionName,
		Statement: -1,
	})
}

func (v *Validator) addErrorInExpression(handle ExpressionHandle, msg string) {
	v.errors = append(v.errors, ValidationError{
		Message:    msg,
		Function:   v.context.functionName,
		Expression: &handle,
		Statement:  -1,
	})
}

func (v *Validator) addErrorInStatement(index int, msg string) {
	v.errors = append(v.errors, ValidationError{
		Message:   msg,
		Function:  v.context.functionName,
		Statement: index,
	})
}
