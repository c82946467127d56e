package git

import (
	"errors"
	"fmt"
	"strings"
)

// Typed errors for failure classes the retry layer treats as transient.

// RateLimitError indicates the remote rejected the operation due to rate limiting.
type RateLimitError struct {
	URL string
	Err error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited by remote %s: %v", e.URL, e.Err)
}
func (e *RateLimitError) Unwrap() error   { return e.Err }
func (e *RateLimitError) Transient() bool { return true }

// NetworkTimeoutError indicates a network-level timeout talking to the remote.
type NetworkTimeoutError struct {
	URL string
	Err error
}

func (e *NetworkTimeoutError) Error() string {
	return fmt.Sprintf("network timeout for remote %s: %v", e.URL, e.Err)
}
func (e *NetworkTimeoutError) Unwrap() error   { return e.Err }
func (e *NetworkTimeoutError) Transient() bool { return true }

// ClassifyRemoteError wraps raw transport errors into typed ones where the
// message allows classification; otherwise the original error is returned.
func ClassifyRemoteError(url string, err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "too many requests"), strings.Contains(msg, "429"):
		return &RateLimitError{URL: url, Err: err}
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"), strings.Contains(msg, "connection refused"), strings.Contains(msg, "temporary failure"):
		return &NetworkTimeoutError{URL: url, Err: err}
	}
	return err
}

// IsTransient reports whether err carries a Transient() classification.
func IsTransient(err error) bool {
	var t interface{ Transient() bool }
	return errors.As(err, &t) && t.Transient()
}
