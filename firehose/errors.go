package firehose

import (
	"errors"
	"fmt"
)

// FatalError marks a failure the read loop cannot heal on its own: a bad
// endpoint, an unreachable relay at connect time, a broken cursor store.
// Everything else is retried from the last checkpoint.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal subscription error: %v", e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

func fatal(err error) error {
	return &FatalError{Err: err}
}

func IsFatal(err error) bool {
	var f *FatalError
	return errors.As(err, &f)
}
