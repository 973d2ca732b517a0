package fetch

import (
	"errors"
	"fmt"
)

// Kind classifies a fetch failure.
type Kind string

const (
	// KindTimeout means the call was cancelled because its deadline passed.
	KindTimeout Kind = "timeout"
	// KindNetwork covers transport errors and non-2xx responses.
	KindNetwork Kind = "network"
	// KindTooLarge means the decoded body exceeded the fetcher's cap.
	KindTooLarge Kind = "too_large"
)

// ErrBodyTooLarge is wrapped by KindTooLarge failures.
var ErrBodyTooLarge = errors.New("response body exceeds limit")

// Failure is the only error type Fetch returns.
type Failure struct {
	Kind Kind
	// Status is the HTTP status for non-2xx responses, 0 otherwise.
	Status int
	URL    string
	Err    error
}

func (f *Failure) Error() string {
	switch {
	case f.Status != 0:
		return fmt.Sprintf("fetch %s: http status %d", f.URL, f.Status)
	case f.Err != nil:
		return fmt.Sprintf("fetch %s [%s]: %v", f.URL, f.Kind, f.Err)
	default:
		return fmt.Sprintf("fetch %s [%s]", f.URL, f.Kind)
	}
}

func (f *Failure) Unwrap() error { return f.Err }

// IsTimeout reports whether err is a timeout Failure.
func IsTimeout(err error) bool {
	var f *Failure
	return errors.As(err, &f) && f.Kind == KindTimeout
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var f *Failure
	if errors.As(err, &f) {
		return f.Status
	}
	return 0
}
