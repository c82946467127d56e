package retry

import (
	"testing"
	"time"

	"git.home.luguber.info/inful/docpub/internal/config"
)

func TestDelay_Linear(t *testing.T) {
	p := NewPolicy(config.RetryBackoffLinear, time.Second, 30*time.Second, 3)
	cases := []struct {
		retry int
		want  time.Duration
	}{
		{0, 0},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 3 * time.Second},
		{100, 30 * time.Second}, // capped
	}
	for _, c := range cases {
		if got := p.Delay(c.retry); got != c.want {
			t.Errorf("Delay(%d) = %v, want %v", c.retry, got, c.want)
		}
	}
}

func TestDelay_Fixed(t *testing.T) {
	p := NewPolicy(config.RetryBackoffFixed, 5*time.Second, 30*time.Second, 3)
	for _, retry := range []int{1, 2, 10} {
		if got := p.Delay(retry); got != 5*time.Second {
			t.Errorf("Delay(%d) = %v, want 5s", retry, got)
		}
	}
}

func TestDelay_ExponentialCapped(t *testing.T) {
	p := NewPolicy(config.RetryBackoffExponential, time.Second, 10*time.Second, 5)
	cases := []struct {
		retry int
		want  time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 10 * time.Second}, // capped
	}
	for _, c := range cases {
		if got := p.Delay(c.retry); got != c.want {
			t.Errorf("Delay(%d) = %v, want %v", c.retry, got, c.want)
		}
	}
}

func TestNewPolicy_FallsBackOnInvalidValues(t *testing.T) {
	p := NewPolicy("bogus", -1, -1, -1)
	def := DefaultPolicy()
	if p != def {
		t.Errorf("NewPolicy with invalid values = %+v, want defaults %+v", p, def)
	}
}

func TestNewPolicy_ClampsInitialToMax(t *testing.T) {
	p := NewPolicy(config.RetryBackoffFixed, time.Minute, time.Second, 1)
	if p.Initial != time.Second {
		t.Errorf("Initial = %v, want clamped to 1s", p.Initial)
	}
}

func TestFromConfig_Nil(t *testing.T) {
	if p := FromConfig(nil); p != DefaultPolicy() {
		t.Errorf("FromConfig(nil) = %+v, want defaults", p)
	}
}
