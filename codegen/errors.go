package codegen

import "fmt"

// Error reports a failure turning IR into NASM source, such as an
// instruction the generator does not know how to lower.
type Error struct {
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("code generator error: %s", e.Message) }
