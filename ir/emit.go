package ir

// NeedsEmit reports whether an expression must be covered by a StmtEmit
// before statements may use it. Literals, constants, zero values,
// arguments and variable references are available from the start of the
// function; call results become available at their StmtCall.
func NeedsEmit(kind ExpressionKind) bool {
	switch kind.(type) {
	case Literal, ExprConstant, ExprZeroValue, ExprFunctionArgument,
		ExprGlobalVariable, ExprLocalVariable, ExprCallResult:
		return false
	default:
		return true
	}
}

// ExpressionOperands returns the expressions an expression reads.
func ExpressionOperands(kind ExpressionKind) []ExpressionHandle {
	var out []ExpressionHandle
	MapOperands(kind, func(h ExpressionHandle) ExpressionHandle {
		out = append(out, h)
		return h
	})
	return out
}

// MapOperands returns a copy of kind with every operand replaced by f(operand).
//
//nolint:gocyclo,cyclop // one case per expression kind
func MapOperands(kind ExpressionKind, f func(ExpressionHandle) ExpressionHandle) ExpressionKind {
	switch k := kind.(type) {
	case ExprCompose:
		components := make([]ExpressionHandle, len(k.Components))
		for i, c := range k.Components {
			components[i] = f(c)
		}
		k.Components = components
		return k
	case ExprAccess:
		k.Base = f(k.Base)
		k.Index = f(k.Index)
		return k
	case ExprAccessIndex:
		k.Base = f(k.Base)
		return k
	case ExprSplat:
		k.Value = f(k.Value)
		return k
	case ExprSwizzle:
		k.Vector = f(k.Vector)
		return k
	case ExprLoad:
		k.Pointer = f(k.Pointer)
		return k
	case ExprLet:
		k.Value = f(k.Value)
		return k
	case ExprUnary:
		k.Expr = f(k.Expr)
		return k
	case ExprBinary:
		k.Left = f(k.Left)
		k.Right = f(k.Right)
		return k
	case ExprSelect:
		k.Condition = f(k.Condition)
		k.Accept = f(k.Accept)
		k.Reject = f(k.Reject)
		return k
	case ExprMath:
		k.Arg = f(k.Arg)
		if k.Arg1 != nil {
			a := f(*k.Arg1)
			k.Arg1 = &a
		}
		if k.Arg2 != nil {
			a := f(*k.Arg2)
			k.Arg2 = &a
		}
		return k
	case ExprAs:
		k.Expr = f(k.Expr)
		return k
	case ExprArrayLength:
		k.Array = f(k.Array)
		return k
	default:
		return kind
	}
}

// Append adds an expression to the function's arena and records its
// resolved type. Resolution failures leave an empty TypeResolution for
// the validator to report.
func (fn *Function) Append(module *Module, kind ExpressionKind) ExpressionHandle {
	fn.syncTypes(module)
	handle := ExpressionHandle(len(fn.Expressions))
	fn.Expressions = append(fn.Expressions, Expression{Kind: kind})

	exprType, err := ResolveExpressionType(module, fn, handle)
	if err != nil {
		exprType = TypeResolution{}
	}
	fn.ExpressionTypes = append(fn.ExpressionTypes, exprType)
	return handle
}

// Replace overwrites the expression at handle in place and re-resolves its type.
func (fn *Function) Replace(module *Module, handle ExpressionHandle, kind ExpressionKind) {
	fn.syncTypes(module)
	fn.Expressions[handle] = Expression{Kind: kind}
	exprType, err := ResolveExpressionType(module, fn, handle)
	if err != nil {
		exprType = TypeResolution{}
	}
	fn.ExpressionTypes[handle] = exprType
}

// syncTypes fills ExpressionTypes for modules built without it.
func (fn *Function) syncTypes(module *Module) {
	for h := len(fn.ExpressionTypes); h < len(fn.Expressions); h++ {
		exprType, err := ResolveExpressionType(module, fn, ExpressionHandle(h))
		if err != nil {
			exprType = TypeResolution{}
		}
		fn.ExpressionTypes = append(fn.ExpressionTypes, exprType)
	}
}

// Users returns every expression that reads handle, in arena order.
func (fn *Function) Users(handle ExpressionHandle) []ExpressionHandle {
	var users []ExpressionHandle
	for i, expr := range fn.Expressions {
		for _, operand := range ExpressionOperands(expr.Kind) {
			if operand == handle {
				users = append(users, ExpressionHandle(i))
				break
			}
		}
	}
	return users
}

// StatementUses counts how many statement operands read handle.
func (fn *Function) StatementUses(handle ExpressionHandle) int {
	n := 0
	WalkStatements(fn.Body, func(stmt *Statement) {
		for _, operand := range StatementOperands(stmt.Kind) {
			if operand == handle {
				n++
			}
		}
	})
	return n
}

// ReplaceUses redirects every read of old to replacement, in expressions
// and statements alike. Expressions for which skip returns true keep
// their operands. Emit ranges and call results are not operands and are
// left alone.
func (fn *Function) ReplaceUses(old, replacement ExpressionHandle, skip func(ExpressionHandle) bool) {
	redirect := func(h ExpressionHandle) ExpressionHandle {
		if h == old {
			return replacement
		}
		return h
	}
	for i := range fn.Expressions {
		if skip != nil && skip(ExpressionHandle(i)) {
			continue
		}
		fn.Expressions[i].Kind = MapOperands(fn.Expressions[i].Kind, redirect)
	}
	fn.Body = mapStatementOperands(fn.Body, redirect)
}

// StatementOperands returns the expressions a statement reads directly,
// not counting nested blocks.
func StatementOperands(kind StatementKind) []ExpressionHandle {
	switch k := kind.(type) {
	case StmtIf:
		return []ExpressionHandle{k.Condition}
	case StmtSwitch:
		return []ExpressionHandle{k.Selector}
	case StmtLoop:
		if k.BreakIf != nil {
			return []ExpressionHandle{*k.BreakIf}
		}
	case StmtReturn:
		if k.Value != nil {
			return []ExpressionHandle{*k.Value}
		}
	case StmtStore:
		return []ExpressionHandle{k.Pointer, k.Value}
	case StmtCall:
		return append([]ExpressionHandle(nil), k.Arguments...)
	}
	return nil
}

func mapStatementOperands(body Block, f func(ExpressionHandle) ExpressionHandle) Block {
	return RewriteBlocks(body, func(b Block) Block {
		for i := range b {
			switch k := b[i].Kind.(type) {
			case StmtIf:
				k.Condition = f(k.Condition)
				b[i].Kind = k
			case StmtSwitch:
				k.Selector = f(k.Selector)
				b[i].Kind = k
			case StmtLoop:
				if k.BreakIf != nil {
					h := f(*k.BreakIf)
					k.BreakIf = &h
				}
				b[i].Kind = k
			case StmtReturn:
				if k.Value != nil {
					h := f(*k.Value)
					k.Value = &h
				}
				b[i].Kind = k
			case StmtStore:
				k.Pointer = f(k.Pointer)
				k.Value = f(k.Value)
				b[i].Kind = k
			case StmtCall:
				args := make([]ExpressionHandle, len(k.Arguments))
				for j, a := range k.Arguments {
					args[j] = f(a)
				}
				k.Arguments = args
				b[i].Kind = k
			}
		}
		return b
	})
}

// RewriteBlocks calls f on every block in the tree rooted at body,
// innermost blocks first, and substitutes each block with f's result.
func RewriteBlocks(body Block, f func(Block) Block) Block {
	for i := range body {
		switch k := body[i].Kind.(type) {
		case StmtBlock:
			k.Block = RewriteBlocks(k.Block, f)
			body[i].Kind = k
		case StmtIf:
			k.Accept = RewriteBlocks(k.Accept, f)
			k.Reject = RewriteBlocks(k.Reject, f)
			body[i].Kind = k
		case StmtSwitch:
			cases := make([]SwitchCase, len(k.Cases))
			for j, c := range k.Cases {
				c.Body = RewriteBlocks(c.Body, f)
				cases[j] = c
			}
			k.Cases = cases
			body[i].Kind = k
		case StmtLoop:
			k.Body = RewriteBlocks(k.Body, f)
			k.Continuing = RewriteBlocks(k.Continuing, f)
			body[i].Kind = k
		}
	}
	return f(body)
}

// WalkStatements visits every statement in the tree rooted at body in
// execution order, outer statements before their nested blocks.
func WalkStatements(body Block, visit func(*Statement)) {
	for i := range body {
		stmt := &body[i]
		visit(stmt)
		switch k := stmt.Kind.(type) {
		case StmtBlock:
			WalkStatements(k.Block, visit)
		case StmtIf:
			WalkStatements(k.Accept, visit)
			WalkStatements(k.Reject, visit)
		case StmtSwitch:
			for _, c := range k.Cases {
				WalkStatements(c.Body, visit)
			}
		case StmtLoop:
			WalkStatements(k.Body, visit)
			WalkStatements(k.Continuing, visit)
		}
	}
}

// Emit returns a StmtEmit covering [start, end).
func Emit(start, end ExpressionHandle) Statement {
	return Statement{Kind: StmtEmit{Range: Range{Start: start, End: end}}}
}

// PrependStatements inserts stmts at the top of the function body.
func (fn *Function) PrependStatements(stmts ...Statement) {
	body := make(Block, 0, len(stmts)+len(fn.Body))
	body = append(body, stmts...)
	fn.Body = append(body, fn.Body...)
}

// InsertAfterEmit places stmts immediately after the point where handle
// is emitted, splitting the covering StmtEmit when handle is not its last
// expression. It reports whether an emit covering handle was found.
func (fn *Function) InsertAfterEmit(handle ExpressionHandle, stmts ...Statement) bool {
	found := false
	fn.Body = RewriteBlocks(fn.Body, func(b Block) Block {
		if found {
			return b
		}
		for i, stmt := range b {
			emit, ok := stmt.Kind.(StmtEmit)
			if !ok || !emit.Range.Contains(handle) {
				continue
			}
			found = true
			out := make(Block, 0, len(b)+len(stmts)+1)
			out = append(out, b[:i]...)
			out = append(out, Emit(emit.Range.Start, handle+1))
			out = append(out, stmts...)
			if handle+1 < emit.Range.End {
				out = append(out, Emit(handle+1, emit.Range.End))
			}
			return append(out, b[i+1:]...)
		}
		return b
	})
	return found
}

// InsertBeforeUse places stmts immediately before the first statement
// that reads handle directly. It reports whether such a statement exists.
func (fn *Function) InsertBeforeUse(handle ExpressionHandle, stmts ...Statement) bool {
	found := false
	fn.Body = RewriteBlocks(fn.Body, func(b Block) Block {
		if found {
			return b
		}
		for i, stmt := range b {
			for _, operand := range StatementOperands(stmt.Kind) {
				if operand != handle {
					continue
				}
				found = true
				out := make(Block, 0, len(b)+len(stmts))
				out = append(out, b[:i]...)
				out = append(out, stmts...)
				return append(out, b[i:]...)
			}
		}
		return b
	})
	return found
}
