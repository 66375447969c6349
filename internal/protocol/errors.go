package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrReferenceRange = errors.New("protocol: size reference shorter than loop")
	ErrShapeMismatch  = errors.New("protocol: count arrays disagree")
	ErrMissingField   = errors.New("protocol: record missing field")
	ErrValueMismatch  = errors.New("protocol: value does not match layout")
)

// DecodeError reports the field and payload offset where a decode stopped.
type DecodeError struct {
	Bank   string
	Field  string
	Offset int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("protocol: bank=%s field=%s offset=%d: %v", e.Bank, e.Field, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
