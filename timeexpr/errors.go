package timeexpr

import (
	"errors"
	"fmt"
)

// ErrSyntax matches every *SyntaxError.
var ErrSyntax = errors.New("timeexpr: syntax error")

// SyntaxError reports a malformed expression and the input that could not be consumed.
type SyntaxError struct {
	Input     string
	Remainder string
	Msg       string
}

func (e *SyntaxError) Error() string {
	if e.Remainder == "" {
		return fmt.Sprintf("timeexpr: %s in %q", e.Msg, e.Input)
	}
	return fmt.Sprintf("timeexpr: %s in %q at %q", e.Msg, e.Input, e.Remainder)
}

func (e *SyntaxError) Is(target error) bool {
	return target == ErrSyntax
}
