package ir

// Statement represents a statement in the IR.
// Statements have side effects and structured control flow, but do not produce values.
// The function body is represented as a tree of statements, with references to expressions.
type Statement struct {
	Kind StatementKind
}

// StatementKind represents the different kinds of statements.
type StatementKind interface {
	statementKind()
}

// Block represents a sequence of statements executed in order.
type Block []Statement

// Range represents a range of expression handles for Emit statements.
type Range struct {
	Start ExpressionHandle
	End   ExpressionHandle // Exclusive
}

// Contains reports whether h lies inside the range.
func (r Range) Contains(h ExpressionHandle) bool {
	return h >= r.Start && h < r.End
}

// Empty reports whether the range covers no expressions.
func (r Range) Empty() bool {
	return r.Start >= r.End
}

// StmtEmit emits a range of expressions, making them visible to all statements that follow.
// Expressions that need no evaluation (literals, constants, arguments,
// variable references, call results) are never emitted; see NeedsEmit.
type StmtEmit struct {
	Range Range
}

func (StmtEmit) statementKind() {}

// StmtBlock contains a sequence of statements to be executed in order.
type StmtBlock struct {
	Block Block
}

func (StmtBlock) statementKind() {}

// StmtIf conditionally executes one of two blocks based on the condition value.
// To use values computed in accept or reject blocks after the If statement,
// store them in a LocalVariable.
type StmtIf struct {
	Condition ExpressionHandle // Must be a bool expression
	Accept    Block
	Reject    Block
}

func (StmtIf) statementKind() {}

// StmtSwitch conditionally executes one of multiple blocks based on the selector value.
// Each case must have a distinct value, and exactly one must be Default.
type StmtSwitch struct {
	Selector ExpressionHandle
	Cases    []SwitchCase
}

func (StmtSwitch) statementKind() {}

// SwitchCase represents a case in a switch statement.
type SwitchCase struct {
	Value       SwitchValue
	Body        Block
	FallThrough bool // If true, execution continues to next case
}

// SwitchValue represents the value that triggers a switch case.
type SwitchValue interface {
	switchValue()
}

// SwitchValueI32 represents a signed 32-bit integer switch value.
type SwitchValueI32 int32

func (SwitchValueI32) switchValue() {}

// SwitchValueU32 represents an unsigned 32-bit integer switch value.
type SwitchValueU32 uint32

func (SwitchValueU32) switchValue() {}

// SwitchValueDefault represents the default case in a switch statement.
type SwitchValueDefault struct{}

func (SwitchValueDefault) switchValue() {}

// StmtLoop executes a block repeatedly.
// Each iteration executes the Body block, followed by the Continuing block.
// Break, Return, or Kill statements exit the loop.
type StmtLoop struct {
	Body       Block
	Continuing Block
	BreakIf    *ExpressionHandle // Optional break-if expression evaluated after continuing
}

func (StmtLoop) statementKind() {}

// StmtBreak exits the innermost enclosing Loop or Switch statement.
type StmtBreak struct{}

func (StmtBreak) statementKind() {}

// StmtContinue skips to the continuing block of the innermost enclosing Loop.
type StmtContinue struct{}

func (StmtContinue) statementKind() {}

// StmtReturn returns from the function, possibly with a value.
// Forbidden within the continuing block of a Loop statement.
type StmtReturn struct {
	Value *ExpressionHandle
}

func (StmtReturn) statementKind() {}

// StmtKill aborts the current shader execution (fragment shader discard).
type StmtKill struct{}

func (StmtKill) statementKind() {}

// StmtBarrier synchronizes invocations within the work group.
type StmtBarrier struct {
	Flags BarrierFlags
}

func (StmtBarrier) statementKind() {}

// BarrierFlags represents memory barrier flags using bitflags pattern.
type BarrierFlags uint32

const (
	// BarrierStorage affects all Storage address space accesses.
	BarrierStorage BarrierFlags = 1 << 0
	// BarrierWorkGroup affects all WorkGroup address space accesses.
	BarrierWorkGroup BarrierFlags = 1 << 1
)

// StmtStore stores a value at an address through a pointer.
type StmtStore struct {
	Pointer ExpressionHandle
	Value   ExpressionHandle
}

func (StmtStore) statementKind() {}

// StmtCall calls a function.
// If Result is set, it must be a CallResult expression.
// The number of Arguments always equals the callee's argument count.
type StmtCall struct {
	Function  FunctionHandle
	Arguments []ExpressionHandle
	Result    *ExpressionHandle
}

func (StmtCall) statementKind() {}
