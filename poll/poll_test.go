package poll

import (
	"errors"
	"testing"
	"time"
)

// fakeClock advances only when Sleep is called.
type fakeClock struct {
	now    time.Time
	sleeps int
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(d time.Duration) {
	c.sleeps++
	c.now = c.now.Add(d)
}

func TestUntilReturnsWhenDone(t *testing.T) {
	calls := 0
	p := Poller{}
	err := p.Until(func() (bool, error) {
		calls++
		return calls == 5, nil
	})
	if err != nil {
		t.Fatalf("Until failed: %v", err)
	}
	if calls != 5 {
		t.Errorf("calls: expected 5, got %d", calls)
	}
}

func TestUntilMaxAttempts(t *testing.T) {
	calls := 0
	p := Poller{MaxAttempts: 3}
	err := p.Until(func() (bool, error) {
		calls++
		return false, nil
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if calls != 3 {
		t.Errorf("calls: expected 3, got %d", calls)
	}
}

func TestUntilTimeoutUsesInjectedClock(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	p := Poller{
		Interval: 10 * time.Millisecond,
		Timeout:  50 * time.Millisecond,
		Now:      clk.Now,
		Sleep:    clk.Sleep,
	}
	err := p.Until(func() (bool, error) { return false, nil })
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if clk.sleeps != 5 {
		t.Errorf("sleeps: expected 5, got %d", clk.sleeps)
	}
}

func TestUntilPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	p := Poller{MaxAttempts: 10}
	err := p.Until(func() (bool, error) { return false, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestBounded(t *testing.T) {
	tests := []struct {
		name string
		p    Poller
		want bool
	}{
		{"zero", Poller{}, false},
		{"interval only", Poller{Interval: time.Millisecond}, false},
		{"timeout", Poller{Timeout: time.Second}, true},
		{"attempts", Poller{MaxAttempts: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.Bounded(); got != tt.want {
				t.Errorf("Bounded: expected %v, got %v", tt.want, got)
			}
		})
	}
}
