package parser

import (
	"fmt"

	"github.com/lookbusy1344/pascal-compiler/lexer"
)

// Error reports a malformed program, including the token at which parsing
// failed.
type Error struct {
	Pos     lexer.Position
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("parser error at %s: %s", e.Pos, e.Message)
}

func newError(pos lexer.Position, format string, args ...interface{}) *Error {
	return &Error{Pos: pos, Message: fmt.Sprintf(format, args...)}
}
