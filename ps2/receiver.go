package ps2

import (
	"math/bits"
	"sync/atomic"
	"time"
)

// State is the receiver's position within an 11-bit frame.
type State uint8

const (
	StateAwaitStart State = iota
	StateBit0
	StateBit1
	StateBit2
	StateBit3
	StateBit4
	StateBit5
	StateBit6
	StateBit7
	StateParity
	StateStop
	StateError
)

func (s State) String() string {
	switch {
	case s == StateAwaitStart:
		return "await-start"
	case s >= StateBit0 && s <= StateBit7:
		return "bit" + string(rune('0'+s-StateBit0))
	case s == StateParity:
		return "parity"
	case s == StateStop:
		return "stop"
	case s == StateError:
		return "error"
	default:
		return "invalid"
	}
}

// Receiver decodes frames of start bit, 8 data bits LSB first, odd parity and
// stop bit. Its state belongs to the edge handler; other contexts must
// disarm the edge source before calling Reset.
type Receiver struct {
	clock   Line
	data    Input
	sleep   func(time.Duration)
	settle  time.Duration
	inhibit time.Duration
	emit    func(byte)

	state State
	b     byte

	frames        atomic.Uint32
	framingErrors atomic.Uint32
}

// NewReceiver returns a receiver that passes each decoded byte to emit.
func NewReceiver(clock Line, data Input, emit func(byte), cfg Config) *Receiver {
	cfg = cfg.withDefaults()
	return &Receiver{
		clock:   clock,
		data:    data,
		sleep:   cfg.Sleep,
		settle:  cfg.SettleDelay,
		inhibit: cfg.InhibitPulse,
		emit:    emit,
	}
}

// Reset drops any partial frame.
func (r *Receiver) Reset() {
	r.state = StateAwaitStart
	r.b = 0
}

// State reports the current frame position.
func (r *Receiver) State() State {
	return r.state
}

// HandleEdge must be called on clock edges. Rising edges are ignored.
func (r *Receiver) HandleEdge() {
	if !r.clock.Get() {
		r.sleep(r.settle)
		r.step(r.data.Get())
	}
	if r.state == StateError {
		r.recover()
	}
}

func (r *Receiver) step(bit bool) {
	switch {
	case r.state == StateAwaitStart:
		if bit {
			r.state = StateError
			return
		}
		r.b = 0
		r.state = StateBit0

	case r.state >= StateBit0 && r.state <= StateBit7:
		r.b >>= 1
		if bit {
			r.b |= 0x80
		}
		r.state++

	case r.state == StateParity:
		// The parity bit makes the count of ones across all 9 bits odd.
		odd := bits.OnesCount8(r.b)&1 == 1
		if bit == odd {
			r.state = StateError
			return
		}
		r.state = StateStop

	case r.state == StateStop:
		if !bit {
			r.state = StateError
			return
		}
		r.state = StateAwaitStart
		r.frames.Add(1)
		r.emit(r.b)

	default:
		r.state = StateError
	}
}

// recover holds the clock low long enough for the keyboard to abandon the
// frame and resend it, then waits for a new start bit.
func (r *Receiver) recover() {
	r.framingErrors.Add(1)
	r.clock.Inhibit()
	r.sleep(r.inhibit)
	r.clock.Release()
	r.Reset()
}
