package thumbnail

import (
	"context"
	"errors"
	"fmt"
)

// Fetch failure kinds. Fetchers wrap the underlying cause with one of these
// so callers can classify with errors.Is.
var (
	ErrTransport = errors.New("transport failure")
	ErrDecode    = errors.New("decode failure")
	ErrAborted   = errors.New("fetch aborted")
)

// ErrCancelled is delivered to a handle whose subscriber cancelled it.
var ErrCancelled = errors.New("request cancelled")

// Transport wraps err as a transport failure.
func Transport(err error) error {
	return fmt.Errorf("%w: %v", ErrTransport, err)
}

// Decode wraps err as a decode failure.
func Decode(err error) error {
	return fmt.Errorf("%w: %v", ErrDecode, err)
}

// Classify maps err to a fetch failure kind. Context cancellation becomes
// ErrAborted and anything unrecognised is treated as a transport failure.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrTransport), errors.Is(err, ErrDecode), errors.Is(err, ErrAborted):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrAborted, err)
	default:
		return Transport(err)
	}
}
