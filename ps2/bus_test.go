package ps2

import (
	"math/bits"
	"time"
)

// fakeLine is an open-drain line whose remote end drives level.
type fakeLine struct {
	level     bool
	inhibited bool
	inhibits  int
	releases  int
}

func (l *fakeLine) Get() bool { return l.level && !l.inhibited }

func (l *fakeLine) Inhibit() {
	l.inhibited = true
	l.inhibits++
}

func (l *fakeLine) Release() {
	l.inhibited = false
	l.releases++
}

// fakeBus plays the keyboard side of the bus and the pin interrupt.
type fakeBus struct {
	clock   fakeLine
	data    fakeLine
	handler func()
	arms    int
	disarms int
	sleeps  []time.Duration
}

func newFakeBus() *fakeBus {
	b := &fakeBus{}
	b.clock.level = true
	b.data.level = true
	return b
}

func (b *fakeBus) Arm(handler func()) error {
	b.handler = handler
	b.arms++
	return nil
}

func (b *fakeBus) Disarm() error {
	b.handler = nil
	b.disarms++
	return nil
}

func (b *fakeBus) sleep(d time.Duration) {
	b.sleeps = append(b.sleeps, d)
}

func (b *fakeBus) config() Config {
	return Config{Sleep: b.sleep}
}

func (b *fakeBus) edge() {
	if b.handler != nil {
		b.handler()
	}
}

// clockBit presents bit on the data line and pulses the clock low then high.
func (b *fakeBus) clockBit(bit bool) {
	b.data.level = bit
	b.clock.level = false
	b.edge()
	b.clock.level = true
	b.edge()
}

func (b *fakeBus) clockBits(bits []bool) {
	for _, bit := range bits {
		b.clockBit(bit)
	}
}

func (b *fakeBus) send(codes ...byte) {
	for _, code := range codes {
		f := frameBits(code)
		b.clockBits(f[:])
	}
}

// frameBits returns the 11 bits of a well-formed frame in wire order.
func frameBits(code byte) [11]bool {
	var f [11]bool
	f[0] = false
	for i := 0; i < 8; i++ {
		f[1+i] = code&(1<<i) != 0
	}
	f[9] = bits.OnesCount8(code)%2 == 0
	f[10] = true
	return f
}
