package expr

import "fmt"

// SyntaxError reports a malformed expression.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d: %s", e.Pos, e.Msg)
}

// UndefinedNameError reports a reference to a name the scope does not
// define. The evaluator surfaces it as a typed result so callers can apply
// the bind-to-null repair strategy without inspecting message text.
type UndefinedNameError struct {
	Name string
}

func (e *UndefinedNameError) Error() string {
	return fmt.Sprintf("name %q is not defined", e.Name)
}

// TypeMismatchError reports an operation applied to incompatible operand
// types. Concat is set when the mismatch is a string/non-string "+", the
// case the string-coercion repair strategy handles.
type TypeMismatchError struct {
	Op     string
	Left   string
	Right  string
	Concat bool
}

func (e *TypeMismatchError) Error() string {
	if e.Right == "" {
		return fmt.Sprintf("unsupported operand type for %s: %s", e.Op, e.Left)
	}
	return fmt.Sprintf("unsupported operand types for %s: %s and %s", e.Op, e.Left, e.Right)
}

// FuncError reports a bad call to one of the allow-listed functions.
type FuncError struct {
	Name string
	Msg  string
}

func (e *FuncError) Error() string {
	return fmt.Sprintf("%s(): %s", e.Name, e.Msg)
}
