package git

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifyRemoteError(t *testing.T) {
	cases := []struct {
		msg       string
		wantType  string
		transient bool
	}{
		{"rate limit exceeded", "rate_limit", true},
		{"HTTP 429 Too Many Requests", "rate_limit", true},
		{"dial tcp: i/o timeout", "timeout", true},
		{"connection refused", "timeout", true},
		{"authentication required", "raw", false},
	}

	for _, c := range cases {
		err := ClassifyRemoteError("https://example.com/repo.git", errors.New(c.msg))
		switch c.wantType {
		case "rate_limit":
			var rl *RateLimitError
			if !errors.As(err, &rl) {
				t.Errorf("%q: expected RateLimitError, got %T", c.msg, err)
			}
		case "timeout":
			var nt *NetworkTimeoutError
			if !errors.As(err, &nt) {
				t.Errorf("%q: expected NetworkTimeoutError, got %T", c.msg, err)
			}
		case "raw":
			var rl *RateLimitError
			var nt *NetworkTimeoutError
			if errors.As(err, &rl) || errors.As(err, &nt) {
				t.Errorf("%q: should not be classified", c.msg)
			}
		}
		if got := IsTransient(err); got != c.transient {
			t.Errorf("%q: IsTransient = %v, want %v", c.msg, got, c.transient)
		}
	}
}

func TestClassifyRemoteError_Nil(t *testing.T) {
	if err := ClassifyRemoteError("url", nil); err != nil {
		t.Errorf("nil error must stay nil, got %v", err)
	}
}

func TestClassifiedErrorsUnwrap(t *testing.T) {
	cause := errors.New("rate limit")
	err := ClassifyRemoteError("url", fmt.Errorf("push: %w", cause))
	if !errors.Is(err, cause) {
		t.Error("classification must preserve the error chain")
	}
}
