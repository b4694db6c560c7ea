package ir

import (
	"fmt"
	"io"
	"strings"
)

// Disassemble renders a module as text. The format is meant for humans
// and golden tests; it is not parsed back.
func Disassemble(m *Module) string {
	var sb strings.Builder
	p := printer{m: m, out: &sb}
	p.module()
	return sb.String()
}

// Fprint writes the disassembly of m to w.
func Fprint(w io.Writer, m *Module) error {
	_, err := io.WriteString(w, Disassemble(m))
	return err
}

type printer struct {
	m      *Module
	out    *strings.Builder
	indent int
}

func (p *printer) line(format string, args ...any) {
	p.out.WriteString(strings.Repeat("  ", p.indent))
	fmt.Fprintf(p.out, format, args...)
	p.out.WriteByte('\n')
}

func (p *printer) module() {
	for i, t := range p.m.Types {
		if st, ok := t.Inner.(StructType); ok {
			p.structDecl(TypeHandle(i), t.Name, st)
		}
	}
	for i, gv := range p.m.GlobalVariables {
		p.global(GlobalVariableHandle(i), gv)
	}
	for i := range p.m.Functions {
		p.function(FunctionHandle(i))
	}
	for _, ep := range p.m.EntryPoints {
		p.line("@%s entry %s = %s", ep.Stage, ep.Name, p.functionName(ep.Function))
	}
}

func (p *printer) structDecl(h TypeHandle, name string, st StructType) {
	if name == "" {
		name = fmt.Sprintf("T%d", h)
	}
	attr := ""
	if st.Block {
		attr = "@block "
	}
	p.line("%sstruct %s { // span %d", attr, name, st.Span)
	p.indent++
	for _, member := range st.Members {
		binding := ""
		if member.Binding != nil {
			binding = bindingString(*member.Binding) + " "
		}
		p.line("@offset(%d) %s%s: %s,", member.Offset, binding, member.Name, p.typeName(member.Type))
	}
	p.indent--
	p.line("}")
}

func (p *printer) global(h GlobalVariableHandle, gv GlobalVariable) {
	var attrs []string
	if gv.Binding != nil {
		attrs = append(attrs, fmt.Sprintf("@group(%d) @binding(%d)", gv.Binding.Group, gv.Binding.Binding))
	}
	if gv.IO != nil {
		attrs = append(attrs, bindingString(gv.IO))
	}
	prefix := ""
	if len(attrs) > 0 {
		prefix = strings.Join(attrs, " ") + " "
	}
	p.line("%svar<%s> %s: %s; // g%d", prefix, gv.Space, p.globalName(h), p.typeName(gv.Type), h)
}

func (p *printer) function(h FunctionHandle) {
	fn := &p.m.Functions[h]
	args := make([]string, len(fn.Arguments))
	for i, arg := range fn.Arguments {
		binding := ""
		if arg.Binding != nil {
			binding = bindingString(*arg.Binding) + " "
		}
		args[i] = fmt.Sprintf("%s%s: %s", binding, arg.Name, p.typeName(arg.Type))
	}
	result := ""
	if fn.Result != nil {
		result = " -> " + p.typeName(fn.Result.Type)
	}
	p.line("fn %s(%s)%s {", p.functionName(h), strings.Join(args, ", "), result)
	p.indent++
	for i, lv := range fn.LocalVars {
		p.line("var %s: %s; // l%d", lv.Name, p.typeName(lv.Type), i)
	}
	for i, expr := range fn.Expressions {
		p.line("%%%d = %s", i, p.expression(fn, expr.Kind))
	}
	p.block(fn.Body)
	p.indent--
	p.line("}")
}

//nolint:gocyclo,cyclop // one case per statement kind
func (p *printer) block(b Block) {
	for _, stmt := range b {
		switch k := stmt.Kind.(type) {
		case StmtEmit:
			p.line("emit %%%d..%%%d", k.Range.Start, k.Range.End)
		case StmtBlock:
			p.line("{")
			p.nested(k.Block)
			p.line("}")
		case StmtIf:
			p.line("if %%%d {", k.Condition)
			p.nested(k.Accept)
			if len(k.Reject) > 0 {
				p.line("} else {")
				p.nested(k.Reject)
			}
			p.line("}")
		case StmtSwitch:
			p.line("switch %%%d {", k.Selector)
			for _, c := range k.Cases {
				p.line("case %s:", switchValueString(c.Value))
				p.nested(c.Body)
			}
			p.line("}")
		case StmtLoop:
			p.line("loop {")
			p.nested(k.Body)
			if len(k.Continuing) > 0 || k.BreakIf != nil {
				p.line("continuing {")
				p.nested(k.Continuing)
				if k.BreakIf != nil {
					p.line("  break if %%%d", *k.BreakIf)
				}
				p.line("}")
			}
			p.line("}")
		case StmtBreak:
			p.line("break")
		case StmtContinue:
			p.line("continue")
		case StmtReturn:
			if k.Value != nil {
				p.line("return %%%d", *k.Value)
			} else {
				p.line("return")
			}
		case StmtKill:
			p.line("discard")
		case StmtBarrier:
			p.line("barrier %d", k.Flags)
		case StmtStore:
			p.line("store %%%d, %%%d", k.Pointer, k.Value)
		case StmtCall:
			call := fmt.Sprintf("call %s(%s)", p.functionName(k.Function), handleList(k.Arguments))
			if k.Result != nil {
				call += fmt.Sprintf(" -> %%%d", *k.Result)
			}
			p.line("%s", call)
		default:
			p.line("<%T>", k)
		}
	}
}

func (p *printer) nested(b Block) {
	p.indent++
	p.block(b)
	p.indent--
}

//nolint:gocyclo,cyclop // one case per expression kind
func (p *printer) expression(fn *Function, kind ExpressionKind) string {
	switch k := kind.(type) {
	case Literal:
		return literalString(k.Value)
	case ExprConstant:
		if int(k.Constant) < len(p.m.Constants) && p.m.Constants[k.Constant].Name != "" {
			return "const " + p.m.Constants[k.Constant].Name
		}
		return fmt.Sprintf("const c%d", k.Constant)
	case ExprZeroValue:
		return p.typeName(k.Type) + "()"
	case ExprCompose:
		return fmt.Sprintf("%s(%s)", p.typeName(k.Type), handleList(k.Components))
	case ExprAccess:
		return fmt.Sprintf("%%%d[%%%d]", k.Base, k.Index)
	case ExprAccessIndex:
		return fmt.Sprintf("%%%d.%d", k.Base, k.Index)
	case ExprSplat:
		return fmt.Sprintf("splat%d(%%%d)", k.Size, k.Value)
	case ExprSwizzle:
		const comps = "xyzw"
		var sw strings.Builder
		for i := 0; i < int(k.Size); i++ {
			sw.WriteByte(comps[k.Pattern[i]&3])
		}
		return fmt.Sprintf("%%%d.%s", k.Vector, sw.String())
	case ExprFunctionArgument:
		if int(k.Index) < len(fn.Arguments) {
			return "arg " + fn.Arguments[k.Index].Name
		}
		return fmt.Sprintf("arg #%d", k.Index)
	case ExprGlobalVariable:
		return "&" + p.globalName(k.Variable)
	case ExprLocalVariable:
		if int(k.Variable) < len(fn.LocalVars) {
			return "&" + fn.LocalVars[k.Variable].Name
		}
		return fmt.Sprintf("&l%d", k.Variable)
	case ExprLoad:
		return fmt.Sprintf("load %%%d", k.Pointer)
	case ExprLet:
		return fmt.Sprintf("let %s = %%%d", k.Name, k.Value)
	case ExprUnary:
		ops := [...]string{UnaryNegate: "-", UnaryLogicalNot: "!", UnaryBitwiseNot: "~"}
		op := "?"
		if int(k.Op) < len(ops) {
			op = ops[k.Op]
		}
		return fmt.Sprintf("%s%%%d", op, k.Expr)
	case ExprBinary:
		return fmt.Sprintf("%%%d %s %%%d", k.Left, k.Op, k.Right)
	case ExprSelect:
		return fmt.Sprintf("select(%%%d, %%%d, %%%d)", k.Reject, k.Accept, k.Condition)
	case ExprMath:
		args := []ExpressionHandle{k.Arg}
		if k.Arg1 != nil {
			args = append(args, *k.Arg1)
		}
		if k.Arg2 != nil {
			args = append(args, *k.Arg2)
		}
		return fmt.Sprintf("%s(%s)", k.Fun, handleList(args))
	case ExprAs:
		if k.Convert == nil {
			return fmt.Sprintf("bitcast<%s>(%%%d)", scalarKindName(k.Kind), k.Expr)
		}
		return fmt.Sprintf("%s(%%%d)", scalarName(ScalarType{Kind: k.Kind, Width: *k.Convert}), k.Expr)
	case ExprCallResult:
		return "result of " + p.functionName(k.Function)
	case ExprArrayLength:
		return fmt.Sprintf("arrayLength(%%%d)", k.Array)
	default:
		return fmt.Sprintf("<%T>", k)
	}
}

func (p *printer) typeName(h TypeHandle) string {
	if int(h) >= len(p.m.Types) {
		return fmt.Sprintf("T%d?", h)
	}
	t := p.m.Types[h]
	if _, ok := t.Inner.(StructType); ok {
		if t.Name != "" {
			return t.Name
		}
		return fmt.Sprintf("T%d", h)
	}
	return p.innerName(t.Inner)
}

func (p *printer) innerName(inner TypeInner) string {
	switch t := inner.(type) {
	case ScalarType:
		return scalarName(t)
	case VectorType:
		return fmt.Sprintf("vec%d<%s>", t.Size, scalarName(t.Scalar))
	case MatrixType:
		return fmt.Sprintf("mat%dx%d<%s>", t.Columns, t.Rows, scalarName(t.Scalar))
	case ArrayType:
		stride := ""
		if t.Stride != 0 {
			stride = fmt.Sprintf(" /* stride %d */", t.Stride)
		}
		if t.Size.Constant != nil {
			return fmt.Sprintf("array<%s, %d>%s", p.typeName(t.Base), *t.Size.Constant, stride)
		}
		return fmt.Sprintf("array<%s>%s", p.typeName(t.Base), stride)
	case PointerType:
		return fmt.Sprintf("ptr<%s, %s>", t.Space, p.typeName(t.Base))
	case AtomicType:
		return fmt.Sprintf("atomic<%s>", scalarName(t.Scalar))
	default:
		return fmt.Sprintf("<%T>", t)
	}
}

func (p *printer) globalName(h GlobalVariableHandle) string {
	if int(h) < len(p.m.GlobalVariables) && p.m.GlobalVariables[h].Name != "" {
		return p.m.GlobalVariables[h].Name
	}
	return fmt.Sprintf("g%d", h)
}

func (p *printer) functionName(h FunctionHandle) string {
	if int(h) < len(p.m.Functions) && p.m.Functions[h].Name != "" {
		return p.m.Functions[h].Name
	}
	return fmt.Sprintf("f%d", h)
}

func scalarKindName(k ScalarKind) string {
	switch k {
	case ScalarSint:
		return "i"
	case ScalarUint:
		return "u"
	case ScalarFloat:
		return "f"
	default:
		return "bool"
	}
}

func scalarName(s ScalarType) string {
	if s.Kind == ScalarBool {
		return "bool"
	}
	return fmt.Sprintf("%s%d", scalarKindName(s.Kind), int(s.Width)*8)
}

func literalString(v LiteralValue) string {
	switch l := v.(type) {
	case LiteralU32:
		return fmt.Sprintf("%du", uint32(l))
	case LiteralI32:
		return fmt.Sprintf("%di", int32(l))
	case LiteralF32:
		return fmt.Sprintf("%gf", float32(l))
	case LiteralBool:
		return fmt.Sprintf("%t", bool(l))
	default:
		return fmt.Sprintf("<%T>", l)
	}
}

func bindingString(b Binding) string {
	switch t := b.(type) {
	case BuiltinBinding:
		return fmt.Sprintf("@builtin(%s)", t.Builtin)
	case LocationBinding:
		return fmt.Sprintf("@location(%d)", t.Location)
	default:
		return ""
	}
}

func switchValueString(v SwitchValue) string {
	switch t := v.(type) {
	case SwitchValueI32:
		return fmt.Sprintf("%di", int32(t))
	case SwitchValueU32:
		return fmt.Sprintf("%du", uint32(t))
	default:
		return "default"
	}
}

func handleList(hs []ExpressionHandle) string {
	parts := make([]string, len(hs))
	for i, h := range hs {
		parts[i] = fmt.Sprintf("%%%d", h)
	}
	return strings.Join(parts, ", ")
}
