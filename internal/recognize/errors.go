package recognize

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a recognition failure for retry decisions.
type Kind int

const (
	// KindTransient covers timeouts, rate limiting, 5xx-equivalents and
	// transport errors. The gateway retries these with backoff.
	KindTransient Kind = iota

	// KindPermanent covers malformed input, unsupported formats and
	// other 4xx-equivalents. The gateway fails these immediately.
	KindPermanent
)

// String returns the kind name.
func (k Kind) String() string {
	if k == KindPermanent {
		return "permanent"
	}
	return "transient"
}

// RecognitionError is a typed recognition failure.
type RecognitionError struct {
	Kind Kind
	Err  error
}

// Error returns the error message with its classification.
func (e *RecognitionError) Error() string {
	return fmt.Sprintf("%s recognition error: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *RecognitionError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a retryable recognition error.
func Transient(err error) error {
	return &RecognitionError{Kind: KindTransient, Err: err}
}

// Transientf formats a retryable recognition error.
func Transientf(format string, args ...interface{}) error {
	return Transient(fmt.Errorf(format, args...))
}

// Permanent wraps err as a non-retryable recognition error.
func Permanent(err error) error {
	return &RecognitionError{Kind: KindPermanent, Err: err}
}

// Permanentf formats a non-retryable recognition error.
func Permanentf(format string, args ...interface{}) error {
	return Permanent(fmt.Errorf(format, args...))
}

// IsPermanent reports whether err must not be retried. Unclassified errors
// are treated as transient, matching how transport failures surface from
// provider SDKs. Context cancellation is permanent: retrying a cancelled
// call cannot succeed.
func IsPermanent(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var recErr *RecognitionError
	if errors.As(err, &recErr) {
		return recErr.Kind == KindPermanent
	}
	return false
}

// FromStatusCode classifies an HTTP response status into a recognition
// error. Rate limiting and server errors are transient, every other
// non-2xx status is permanent.
func FromStatusCode(status int, err error) error {
	if status == http.StatusTooManyRequests || status >= 500 {
		return Transient(err)
	}
	return Permanent(err)
}
