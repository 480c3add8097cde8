package lexer

import "fmt"

// Error reports a malformed token, including its source position.
type Error struct {
	Pos     Position
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("lexer error at %s: %s", e.Pos, e.Message)
}

func newError(pos Position, format string, args ...interface{}) *Error {
	return &Error{Pos: pos, Message: fmt.Sprintf(format, args...)}
}
