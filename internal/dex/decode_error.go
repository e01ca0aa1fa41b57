package dex

import "fmt"

// DecodeError marks a log that does not match the expected Swap shape.
// It is non-fatal: the event is dropped and the pool's stream continues.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode swap log: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("decode swap log: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func decodeErrorf(format string, args ...interface{}) *DecodeError {
	return &DecodeError{Reason: fmt.Sprintf(format, args...)}
}
