// Package shiftreg drives two cascaded 8-bit serial-in/parallel-out shift
// registers (74HC595 style) from a synchronous serial engine and a latch pin.
//
// The first register in the chain carries the LCD control flags, the second
// carries the LCD address/data bus. Shifting a byte pushes the previous one
// down the chain, so the address is shifted first and the flags last. The most
// significant output of the address register is wired back to an input pin and
// doubles as the LCD busy flag.
package shiftreg

import (
	"errors"

	"tinygo.org/x/drivers"
)

// OutputPin is satisfied by machine.Pin configured as an output.
type OutputPin interface {
	High()
	Low()
}

// InputPin is satisfied by machine.Pin configured as an input.
type InputPin interface {
	Get() bool
}

// Link is the serial link to the register pair.
type Link struct {
	spi   drivers.SPI
	latch OutputPin
	busy  InputPin
}

// New returns a Link. spi must already be configured; Transfer must block
// until the byte has been clocked out.
func New(spi drivers.SPI, latch OutputPin, busy InputPin) *Link {
	return &Link{
		spi:   spi,
		latch: latch,
		busy:  busy,
	}
}

// Transmit shifts address then flags into the registers and pulses the latch
// so both registers update their outputs at once.
func (l *Link) Transmit(address, flags byte) error {
	if _, err := l.spi.Transfer(address); err != nil {
		return errors.New("shiftreg: shift address:" + err.Error())
	}
	if _, err := l.spi.Transfer(flags); err != nil {
		return errors.New("shiftreg: shift flags:" + err.Error())
	}
	l.latch.Low()
	l.latch.High()
	return nil
}

// Busy samples the address register MSB as seen on the busy input pin.
func (l *Link) Busy() bool {
	return l.busy.Get()
}
