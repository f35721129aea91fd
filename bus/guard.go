// Package bus arbitrates the GPIO port shared by the PS/2 keyboard and the
// LCD shift registers.
//
// The keyboard owns the port by default. Anything that wants to drive the
// shared pins takes the Guard, which disables the keyboard (disarming its
// edge interrupt and holding its clock low) for the duration and re-enables
// it afterwards.
package bus

import (
	"errors"
	"io"
	"log/slog"
	"sync"
)

// Owner is the default user of the port.
type Owner interface {
	Disable() error
	Enable() error
}

// Guard is a critical section over the shared port. It is not reentrant.
type Guard struct {
	mu     sync.Mutex
	owner  Owner
	logger *slog.Logger
}

// New returns a guard for owner. A nil logger discards.
func New(owner Owner, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
			Level: slog.Level(127),
		}))
	}
	return &Guard{
		owner:  owner,
		logger: logger,
	}
}

// Acquire takes the port from its owner. The returned release hands it back;
// calling release more than once is harmless.
func (g *Guard) Acquire() (release func() error, err error) {
	g.mu.Lock()
	if err := g.owner.Disable(); err != nil {
		g.mu.Unlock()
		return nil, errors.New("bus: acquire:" + err.Error())
	}

	var once sync.Once
	release = func() error {
		var rerr error
		once.Do(func() {
			defer g.mu.Unlock()
			if err := g.owner.Enable(); err != nil {
				g.logger.Error("bus:release-failed", slog.String("err", err.Error()))
				rerr = errors.New("bus: release:" + err.Error())
			}
		})
		return rerr
	}
	return release, nil
}

// Do runs fn while holding the port. The port is handed back on every
// return path, including a panic in fn.
func (g *Guard) Do(fn func() error) (err error) {
	release, err := g.Acquire()
	if err != nil {
		return err
	}
	defer func() {
		if rerr := release(); err == nil {
			err = rerr
		}
	}()
	return fn()
}
