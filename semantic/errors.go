package semantic

import (
	"fmt"

	"github.com/lookbusy1344/pascal-compiler/lexer"
)

// Error reports a static semantic violation: an undeclared identifier, a
// redeclaration, an arity mismatch, or a disallowed implicit conversion.
type Error struct {
	Pos     lexer.Position
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("semantic error at %s: %s", e.Pos, e.Message)
}

func newError(pos lexer.Position, format string, args ...interface{}) *Error {
	return &Error{Pos: pos, Message: fmt.Sprintf(format, args...)}
}
