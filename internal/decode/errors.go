package decode

import (
	"errors"
	"fmt"
)

// Sentinel errors for decode failures.
var (
	// ErrMalformedHandle indicates a required structural segment is missing
	// or the handle cannot be scanned.
	ErrMalformedHandle = errors.New("malformed handle")

	// ErrMalformedSignature indicates a parameter signature violates the
	// erased type grammar.
	ErrMalformedSignature = errors.New("malformed signature")

	// ErrUnsupportedLevel indicates the requested level has no descriptor.
	ErrUnsupportedLevel = errors.New("unsupported test level")
)

// Error carries the raw handle a decode failure came from.
type Error struct {
	Handle string
	// Segment is the offending part of the handle, if known.
	Segment string
	Err     error
}

func (e *Error) Error() string {
	if e.Segment != "" {
		return fmt.Sprintf("decode %q: segment %q: %v", e.Handle, e.Segment, e.Err)
	}
	return fmt.Sprintf("decode %q: %v", e.Handle, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
