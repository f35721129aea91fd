// Package ps2 receives scan codes from a PS/2 keyboard and turns them into
// characters.
//
// The bus is decoded one bit per falling clock edge from a pin interrupt, so
// everything reachable from the edge handler is allocation free and never
// waits longer than the fixed settle and inhibit delays. Decoded bytes go
// through a scan code set 2 translator that tracks modifier keys and pushes
// characters into a small ring buffer. The foreground drains the ring with
// Keyboard.Read or Keyboard.ReadByte.
//
// Only the device-to-host direction is implemented. The host side only ever
// pulls the clock line low to inhibit the keyboard.
package ps2

import (
	"errors"
	"time"
)

// Line is an open-drain bus line with a pull-up.
type Line interface {
	// Get samples the line.
	Get() bool
	// Inhibit pulls the line low.
	Inhibit()
	// Release lets the pull-up float the line high.
	Release()
}

// Input is a line the host only samples.
type Input interface {
	Get() bool
}

// EdgeSource delivers clock-line edges to a handler from interrupt context.
type EdgeSource interface {
	// Arm discards any edge latched while disarmed and starts calling
	// handler on clock edges.
	Arm(handler func()) error
	// Disarm stops edge delivery.
	Disarm() error
}

// ClearScreen is pushed into the buffer when Escape is pressed.
const ClearScreen byte = 0

// Defaults for Config.
const (
	DefaultCapacity     = 8
	DefaultSettleDelay  = 25 * time.Microsecond
	DefaultInhibitPulse = 150 * time.Microsecond
)

var (
	ErrBufferEmpty = errors.New("ps2: buffer empty")
	ErrCapacity    = errors.New("ps2: capacity must be a power of two")
)

// Config tunes the keyboard input subsystem. Zero fields take defaults.
type Config struct {
	// Capacity of the character buffer. Must be a power of two.
	Capacity int
	// SettleDelay is waited after a falling clock edge before the data line
	// is sampled.
	SettleDelay time.Duration
	// InhibitPulse is how long the clock line is held low after a framing
	// error so the keyboard aborts and resends.
	InhibitPulse time.Duration
	// Sleep performs the delays above. Defaults to time.Sleep.
	Sleep func(time.Duration)
}

func (c Config) withDefaults() Config {
	if c.Capacity == 0 {
		c.Capacity = DefaultCapacity
	}
	if c.SettleDelay == 0 {
		c.SettleDelay = DefaultSettleDelay
	}
	if c.InhibitPulse == 0 {
		c.InhibitPulse = DefaultInhibitPulse
	}
	if c.Sleep == nil {
		c.Sleep = time.Sleep
	}
	return c
}

// Stats counts bus events since the keyboard was created.
type Stats struct {
	Frames        uint32 // bytes decoded
	FramingErrors uint32 // frames dropped on a start, parity or stop error
	Overruns      uint32 // characters dropped because the buffer was full
}
