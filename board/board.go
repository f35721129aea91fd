// Package board maps the terminal's peripherals onto Raspberry Pi Pico pins
// and adapts machine.Pin to the ps2 and shiftreg interfaces.
//
// Wiring:
//
//	GP2  SPI0 SCK  -> shift register clock
//	GP3  SPI0 SDO  -> shift register data, shared with PS/2 DATA
//	GP5  latch     -> shift register output latch
//	GP6  PS/2 CLK  (open drain, pulled up)
//	GP8  busy      <- address register MSB (LCD D7)
//	GP15 LED
package board

import (
	"machine"
	"time"

	"github.com/harveysanders/ps2lcd/ps2"
	"github.com/harveysanders/ps2lcd/shiftreg"
)

const (
	ShiftClock = machine.GP2
	ShiftData  = machine.GP3
	Latch      = machine.GP5
	PS2Clock   = machine.GP6
	PS2Data    = ShiftData
	Busy       = machine.GP8
	LED        = machine.GP15

	// SDI is unused but SPI0 needs a receive pin.
	spiSDI = machine.GP16
)

var spiConfig = machine.SPIConfig{
	Frequency: 1_000_000,
	SCK:       ShiftClock,
	SDO:       ShiftData,
	SDI:       spiSDI,
	LSBFirst:  false,
	Mode:      0,
}

// OpenDrain drives a pulled-up bus line. It only ever pulls low or floats.
type OpenDrain struct {
	Pin machine.Pin
}

// Get samples the line.
func (p OpenDrain) Get() bool {
	return p.Pin.Get()
}

// Inhibit drives the line low.
func (p OpenDrain) Inhibit() {
	p.Pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	p.Pin.Low()
}

// Release floats the line on its pull-up.
func (p OpenDrain) Release() {
	p.Pin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
}

// FallingEdges delivers falling edges on Pin.
type FallingEdges struct {
	Pin machine.Pin
}

// Arm calls handler on every falling edge.
func (e FallingEdges) Arm(handler func()) error {
	return e.Pin.SetInterrupt(machine.PinFalling, func(machine.Pin) {
		handler()
	})
}

// Disarm removes the pin interrupt.
func (e FallingEdges) Disarm() error {
	return e.Pin.SetInterrupt(0, nil)
}

// Spin busy-waits for d. time.Sleep is not usable from an interrupt.
func Spin(d time.Duration) {
	end := time.Now().Add(d)
	for time.Now().Before(end) {
	}
}

// NewKeyboard configures the PS/2 pins and returns a disabled keyboard.
func NewKeyboard(cfg ps2.Config) (*ps2.Keyboard, error) {
	clock := OpenDrain{Pin: PS2Clock}
	data := OpenDrain{Pin: PS2Data}
	clock.Release()
	data.Release()
	if cfg.Sleep == nil {
		cfg.Sleep = Spin
	}
	return ps2.New(clock, data, FallingEdges{Pin: PS2Clock}, cfg)
}

// NewLink configures the latch and busy pins and returns the shift-register
// link. SPI0 itself is configured when the port is taken from the keyboard.
func NewLink() *shiftreg.Link {
	Latch.Configure(machine.PinConfig{Mode: machine.PinOutput})
	Latch.High()
	Busy.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	return shiftreg.New(machine.SPI0, Latch, Busy)
}

// SharedPort hands GP3 between the keyboard and SPI0. It is the bus.Owner
// for the terminal.
type SharedPort struct {
	Keyboard *ps2.Keyboard
}

// Disable parks the keyboard and gives the data pin to SPI0.
func (p SharedPort) Disable() error {
	if err := p.Keyboard.Disable(); err != nil {
		return err
	}
	return machine.SPI0.Configure(spiConfig)
}

// Enable returns the data pin to the keyboard.
func (p SharedPort) Enable() error {
	OpenDrain{Pin: PS2Data}.Release()
	return p.Keyboard.Enable()
}
