// Package ir defines the intermediate representation the immediate-data
// transforms operate on.
//
// # Structure
//
// The IR is organized around a Module type that contains:
//   - Types: All type definitions used in the shader
//   - Constants: Module-scope constant values
//   - GlobalVariables: Module-scope variables (storage, immediate, IO, etc.)
//   - Functions: All function definitions, entry points included
//   - EntryPoints: Shader entry points with stage information
//
// # Expressions and emission
//
// Every function owns an arena of expressions addressed by
// ExpressionHandle, with ExpressionTypes holding the resolved type of each
// one. The statement tree decides when expressions are evaluated: a
// StmtEmit makes a contiguous range of the arena visible to the statements
// that follow it in the same block. Literals, constants, arguments and
// variable references need no emission (see NeedsEmit).
//
// Transforms append new expressions to the arena, rewrite existing ones in
// place, and insert StmtEmit statements where the new values must be
// evaluated. Handles therefore do not have to be ordered; Validate checks
// that every operand is visible where it is used.
//
// # Layout
//
// Module.TypeAlignmentAndSize and Module.ArrayStride implement the
// host-shareable layout rules used for storage and immediate data.
package ir
