package binxml

import (
	"errors"
	"fmt"
)

// Decode failure kinds. A failed decode always returns a *DecodeError wrapping
// one of these, so callers can match them with errors.Is.
var (
	// ErrTruncated means the buffer ended before a required field.
	ErrTruncated = errors.New("truncated")
	// ErrOutOfBounds means a computed offset or length points outside the buffer.
	ErrOutOfBounds = errors.New("out of bounds")
	// ErrMalformed means a pool index is out of range or a chunk size is
	// inconsistent with its container.
	ErrMalformed = errors.New("malformed")
	// ErrInvalidEncoding means pooled string bytes are not valid UTF-8/UTF-16.
	ErrInvalidEncoding = errors.New("invalid encoding")
)

// Query outcomes, never wrapped in a DecodeError.
var (
	// ErrStop can be returned by an ElementFunc to end decoding early
	// without an error.
	ErrStop = errors.New("binxml: stop decoding")
	// ErrElementNotFound is returned when no element carries the queried tag.
	ErrElementNotFound = errors.New("binxml: element not found")
	// ErrAttributeNotFound is returned when the queried element lacks the attribute.
	ErrAttributeNotFound = errors.New("binxml: attribute not found")
)

// DecodeError describes where and why decoding failed.
type DecodeError struct {
	Err    error
	Offset int
	Msg    string
}

func (e *DecodeError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("binxml: %s at offset 0x%x", e.Err, e.Offset)
	}
	return fmt.Sprintf("binxml: %s at offset 0x%x: %s", e.Err, e.Offset, e.Msg)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func newError(kind error, offset int, format string, v ...interface{}) error {
	return &DecodeError{Err: kind, Offset: offset, Msg: fmt.Sprintf(format, v...)}
}
