// Package poll repeats a readiness check until a peripheral reports it is done.
//
// The zero Poller spins forever, which is what the firmware wants for a
// peripheral that has no interrupt of its own. Tests and cautious callers set
// Timeout or MaxAttempts so a wedged device turns into ErrTimeout instead of a
// hang.
package poll

import (
	"errors"
	"time"
)

// ErrTimeout is returned when a bound is reached before the check succeeds.
var ErrTimeout = errors.New("poll: timed out")

// Poller configures a polling loop.
type Poller struct {
	// Interval is slept between attempts. Zero spins without sleeping.
	Interval time.Duration
	// Timeout bounds the total time spent polling. Zero means no timeout.
	Timeout time.Duration
	// MaxAttempts bounds the number of checks. Zero means unbounded.
	MaxAttempts int
	// Now and Sleep default to time.Now and time.Sleep.
	Now   func() time.Time
	Sleep func(time.Duration)
}

// Bounded reports whether the poller can give up.
func (p Poller) Bounded() bool {
	return p.Timeout > 0 || p.MaxAttempts > 0
}

// Until calls done until it reports true, returns an error, or a bound is hit.
func (p Poller) Until(done func() (bool, error)) error {
	now := p.Now
	if now == nil {
		now = time.Now
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var start time.Time
	if p.Timeout > 0 {
		start = now()
	}
	for attempt := 1; ; attempt++ {
		ok, err := done()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
			return ErrTimeout
		}
		if p.Timeout > 0 && now().Sub(start) >= p.Timeout {
			return ErrTimeout
		}
		if p.Interval > 0 {
			sleep(p.Interval)
		}
	}
}
