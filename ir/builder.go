package ir

// Builder assembles a Module programmatically. Types are deduplicated
// against the module's type arena and function bodies get their StmtEmit
// ranges placed automatically.
type Builder struct {
	module *Module
}

// NewBuilder returns a builder for an empty module.
func NewBuilder() *Builder {
	return &Builder{module: &Module{}}
}

// Module returns the module built so far.
func (b *Builder) Module() *Module {
	return b.module
}

// Type registers a type, returning the existing handle for a structural duplicate.
func (b *Builder) Type(name string, inner TypeInner) TypeHandle {
	return b.module.EnsureType(name, inner)
}

// RuntimeArray registers a runtime-sized array of base. A zero stride
// leaves the stride to the layout rules.
func (b *Builder) RuntimeArray(base TypeHandle, stride uint32) TypeHandle {
	return b.Type("", ArrayType{Base: base, Stride: stride})
}

// Struct registers a struct type, laying its members out in order with
// the host-shareable rules. Offsets already set on members are ignored.
func (b *Builder) Struct(name string, members ...StructMember) TypeHandle {
	var offset uint32
	var maxAlign uint32 = 1
	laid := make([]StructMember, len(members))
	for i, member := range members {
		align, size := b.module.TypeAlignmentAndSize(member.Type)
		offset = RoundUp(align, offset)
		member.Offset = offset
		laid[i] = member
		offset += size
		if align > maxAlign {
			maxAlign = align
		}
	}
	return b.Type(name, StructType{Members: laid, Span: RoundUp(maxAlign, offset)})
}

// Global adds a module-scope variable.
func (b *Builder) Global(gv GlobalVariable) GlobalVariableHandle {
	h := GlobalVariableHandle(len(b.module.GlobalVariables))
	b.module.GlobalVariables = append(b.module.GlobalVariables, gv)
	return h
}

// StorageBuffer adds a read-write storage variable at group/binding.
func (b *Builder) StorageBuffer(name string, ty TypeHandle, group, binding uint32) GlobalVariableHandle {
	return b.Global(GlobalVariable{
		Name:    name,
		Space:   SpaceStorage,
		Type:    ty,
		Binding: &ResourceBinding{Group: group, Binding: binding},
	})
}

// EntryPoint registers fn as an entry point.
func (b *Builder) EntryPoint(name string, stage ShaderStage, fn FunctionHandle) {
	ep := EntryPoint{Name: name, Stage: stage, Function: fn}
	if stage == StageCompute {
		ep.Workgroup = [3]uint32{1, 1, 1}
	}
	b.module.EntryPoints = append(b.module.EntryPoints, ep)
}

// Function starts a new function. Its handle is reserved immediately;
// the body is stored when Finish is called.
func (b *Builder) Function(name string) *FunctionBuilder {
	h := FunctionHandle(len(b.module.Functions))
	b.module.Functions = append(b.module.Functions, Function{Name: name})
	fb := &FunctionBuilder{
		builder: b,
		handle:  h,
		fn:      Function{Name: name},
	}
	fb.blocks = []*Block{&fb.fn.Body}
	return fb
}

// FunctionBuilder appends expressions and statements to one function.
type FunctionBuilder struct {
	builder *Builder
	handle  FunctionHandle
	fn      Function
	blocks  []*Block
	pending *ExpressionHandle
}

// Handle returns the function's handle.
func (fb *FunctionBuilder) Handle() FunctionHandle {
	return fb.handle
}

// Arg adds an argument and returns the expression referring to it.
func (fb *FunctionBuilder) Arg(name string, ty TypeHandle) ExpressionHandle {
	return fb.BoundArg(name, ty, nil)
}

// BoundArg adds an argument carrying a builtin or location binding.
func (fb *FunctionBuilder) BoundArg(name string, ty TypeHandle, binding Binding) ExpressionHandle {
	arg := FunctionArgument{Name: name, Type: ty}
	if binding != nil {
		arg.Binding = &binding
	}
	index := uint32(len(fb.fn.Arguments)) //nolint:gosec // argument lists are tiny
	fb.fn.Arguments = append(fb.fn.Arguments, arg)
	return fb.Expr(ExprFunctionArgument{Index: index})
}

// Result sets the function's return type.
func (fb *FunctionBuilder) Result(ty TypeHandle, binding Binding) {
	res := &FunctionResult{Type: ty}
	if binding != nil {
		res.Binding = &binding
	}
	fb.fn.Result = res
}

// Local declares a function-local variable and returns a pointer to it.
func (fb *FunctionBuilder) Local(name string, ty TypeHandle) ExpressionHandle {
	index := uint32(len(fb.fn.LocalVars)) //nolint:gosec // local lists are tiny
	fb.fn.LocalVars = append(fb.fn.LocalVars, LocalVariable{Name: name, Type: ty})
	return fb.Expr(ExprLocalVariable{Variable: index})
}

// Expr appends an expression. Expressions that need evaluation are
// collected into the next StmtEmit.
func (fb *FunctionBuilder) Expr(kind ExpressionKind) ExpressionHandle {
	h := fb.fn.Append(fb.builder.module, kind)
	if NeedsEmit(kind) && fb.pending == nil {
		fb.pending = &h
	}
	return h
}

// U32 appends a u32 literal.
func (fb *FunctionBuilder) U32(v uint32) ExpressionHandle {
	return fb.Expr(Literal{Value: LiteralU32(v)})
}

// I32 appends an i32 literal.
func (fb *FunctionBuilder) I32(v int32) ExpressionHandle {
	return fb.Expr(Literal{Value: LiteralI32(v)})
}

// F32 appends an f32 literal.
func (fb *FunctionBuilder) F32(v float32) ExpressionHandle {
	return fb.Expr(Literal{Value: LiteralF32(v)})
}

// GlobalRef appends a reference to a global variable.
func (fb *FunctionBuilder) GlobalRef(gv GlobalVariableHandle) ExpressionHandle {
	return fb.Expr(ExprGlobalVariable{Variable: gv})
}

// Load appends a load through ptr.
func (fb *FunctionBuilder) Load(ptr ExpressionHandle) ExpressionHandle {
	return fb.Expr(ExprLoad{Pointer: ptr})
}

// Member appends a constant-index access.
func (fb *FunctionBuilder) Member(base ExpressionHandle, index uint32) ExpressionHandle {
	return fb.Expr(ExprAccessIndex{Base: base, Index: index})
}

// Index appends a dynamic-index access.
func (fb *FunctionBuilder) Index(base, index ExpressionHandle) ExpressionHandle {
	return fb.Expr(ExprAccess{Base: base, Index: index})
}

// Binary appends a binary operation.
func (fb *FunctionBuilder) Binary(op BinaryOperator, left, right ExpressionHandle) ExpressionHandle {
	return fb.Expr(ExprBinary{Op: op, Left: left, Right: right})
}

// Let appends a named binding of value.
func (fb *FunctionBuilder) Let(name string, value ExpressionHandle) ExpressionHandle {
	return fb.Expr(ExprLet{Name: name, Value: value})
}

// ArrayLength appends an arrayLength query on ptr.
func (fb *FunctionBuilder) ArrayLength(ptr ExpressionHandle) ExpressionHandle {
	return fb.Expr(ExprArrayLength{Array: ptr})
}

// Convert appends a value conversion to a 32-bit scalar of kind.
func (fb *FunctionBuilder) Convert(value ExpressionHandle, kind ScalarKind) ExpressionHandle {
	width := uint8(4)
	return fb.Expr(ExprAs{Expr: value, Kind: kind, Convert: &width})
}

// Stmt flushes pending expressions and appends a statement.
func (fb *FunctionBuilder) Stmt(kind StatementKind) {
	fb.flush()
	*fb.current() = append(*fb.current(), Statement{Kind: kind})
}

// Store appends a store of value through ptr.
func (fb *FunctionBuilder) Store(ptr, value ExpressionHandle) {
	fb.Stmt(StmtStore{Pointer: ptr, Value: value})
}

// Return appends a return statement, with a value unless value is nil.
func (fb *FunctionBuilder) Return(value *ExpressionHandle) {
	fb.Stmt(StmtReturn{Value: value})
}

// ReturnValue appends a return of value.
func (fb *FunctionBuilder) ReturnValue(value ExpressionHandle) {
	fb.Return(&value)
}

// Call appends a call. For callees with a result the CallResult
// expression is returned with ok set.
func (fb *FunctionBuilder) Call(callee FunctionHandle, args ...ExpressionHandle) (result ExpressionHandle, ok bool) {
	fb.flush()
	stmt := StmtCall{Function: callee, Arguments: args}
	if fb.builder.module.Functions[callee].Result != nil {
		result = fb.fn.Append(fb.builder.module, ExprCallResult{Function: callee})
		stmt.Result = &result
		ok = true
	}
	*fb.current() = append(*fb.current(), Statement{Kind: stmt})
	return result, ok
}

// If appends a conditional; accept and reject build the two branches
// and either may be nil.
func (fb *FunctionBuilder) If(cond ExpressionHandle, accept, reject func()) {
	fb.flush()
	stmt := StmtIf{Condition: cond}
	stmt.Accept = fb.nested(accept)
	stmt.Reject = fb.nested(reject)
	*fb.current() = append(*fb.current(), Statement{Kind: stmt})
}

// Loop appends a loop whose body is built by body.
func (fb *FunctionBuilder) Loop(body func()) {
	fb.flush()
	stmt := StmtLoop{Body: fb.nested(body)}
	*fb.current() = append(*fb.current(), Statement{Kind: stmt})
}

// Finish stores the function in the module and returns its handle.
func (fb *FunctionBuilder) Finish() FunctionHandle {
	fb.flush()
	fb.builder.module.Functions[fb.handle] = fb.fn
	return fb.handle
}

func (fb *FunctionBuilder) nested(build func()) Block {
	if build == nil {
		return nil
	}
	var block Block
	fb.blocks = append(fb.blocks, &block)
	build()
	fb.flush()
	fb.blocks = fb.blocks[:len(fb.blocks)-1]
	return block
}

func (fb *FunctionBuilder) current() *Block {
	return fb.blocks[len(fb.blocks)-1]
}

func (fb *FunctionBuilder) flush() {
	if fb.pending == nil {
		return
	}
	end := ExpressionHandle(len(fb.fn.Expressions))
	*fb.current() = append(*fb.current(), Emit(*fb.pending, end))
	fb.pending = nil
}
