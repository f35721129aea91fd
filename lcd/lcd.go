// Package lcd drives an HD44780 compatible character LCD whose 8-bit bus and
// control lines sit behind a pair of shift registers.
//
// The controller has no interrupt line. Every command is followed by a busy
// poll: the driver puts the controller into read mode, raises E and samples
// the busy flag through the link until it clears.
package lcd

import (
	"errors"

	"github.com/harveysanders/ps2lcd/poll"
)

// Flag register bits.
const (
	// FlagEnable is the E line. Reads trigger on its rising edge, writes on
	// its falling edge.
	FlagEnable = 0x80
	// FlagRead selects a read cycle. It also tri-states the address register
	// outputs so they don't fight the controller's data pins.
	FlagRead = 0x40
	// FlagData selects the data register. Clear selects the instruction register.
	FlagData = 0x20
	// FlagLED drives the auxiliary LED.
	FlagLED = 0x10
)

// Controller instructions.
const (
	cmdClear       = 0x01
	cmdDisplayOn   = 0x0F // display on, cursor on, blink on
	cmdFunctionSet = 0x38 // 8-bit bus, 2 lines, 5x8 font
	cmdSetCGRAM    = 0x40
	cmdSetDDRAM    = 0x80
)

// GlyphCount is the number of custom glyph slots addressable by SetCustomGlyph.
// The controller has 64 bytes of CGRAM, so slots 8-15 alias 0-7.
const GlyphCount = 16

// Link is the transport to the shift registers.
type Link interface {
	Transmit(address, flags byte) error
	Busy() bool
}

// Config holds the display geometry and busy-wait policy.
type Config struct {
	Width  uint8
	Height uint8
	// Poll bounds the busy wait. The zero value waits forever.
	Poll poll.Poller
}

// Device is a character LCD behind a shift-register link.
type Device struct {
	link   Link
	poller poll.Poller
	aux    byte
	width  uint8
	height uint8
}

var ErrCursorOutOfRange = errors.New("lcd: cursor out of range")

// New returns a 16x2 device. Call Configure before use.
func New(link Link) *Device {
	return &Device{
		link:   link,
		width:  16,
		height: 2,
	}
}

// Configure applies cfg and initializes the controller.
func (d *Device) Configure(cfg Config) error {
	if cfg.Width != 0 {
		d.width = cfg.Width
	}
	if cfg.Height != 0 {
		d.height = cfg.Height
	}
	d.poller = cfg.Poll
	return d.Init()
}

// Size returns the display geometry in characters.
func (d *Device) Size() (width, height uint8) {
	return d.width, d.height
}

// Init sets 8-bit/2-line/5x8 mode, clears the screen and turns on the display
// with a blinking cursor, waiting for the controller between each step. The
// link is parked afterwards.
func (d *Device) Init() error {
	if err := d.Wait(); err != nil {
		return err
	}
	for _, cmd := range []byte{cmdFunctionSet, cmdClear, cmdDisplayOn} {
		if err := d.Command(cmd); err != nil {
			return err
		}
	}
	return d.Park()
}

// Write latches address into the controller with the given flags. E is
// raised on the first frame and dropped on the second; the controller
// samples on the falling edge.
func (d *Device) Write(address, flags byte) error {
	if err := d.transmit(address, flags|FlagEnable); err != nil {
		return err
	}
	return d.transmit(address, flags&^FlagEnable)
}

// Wait polls the busy flag until the controller is ready, then leaves the
// link with E low in read mode.
func (d *Device) Wait() error {
	err := d.poller.Until(func() (bool, error) {
		if err := d.transmit(0, FlagRead); err != nil {
			return false, err
		}
		if err := d.transmit(0, FlagEnable|FlagRead); err != nil {
			return false, err
		}
		return !d.link.Busy(), nil
	})
	if terr := d.transmit(0, FlagRead); err == nil {
		err = terr
	}
	return err
}

// Command writes an instruction and waits for it to complete.
func (d *Device) Command(cmd byte) error {
	if err := d.Write(cmd, 0); err != nil {
		return err
	}
	return d.Wait()
}

// WriteChar writes c to the data register and waits for it to complete.
func (d *Device) WriteChar(c byte) error {
	if err := d.Write(c, FlagData); err != nil {
		return err
	}
	return d.Wait()
}

// Print writes b at the current cursor position.
func (d *Device) Print(b []byte) error {
	for _, c := range b {
		if err := d.WriteChar(c); err != nil {
			return err
		}
	}
	return nil
}

// ClearDisplay blanks the screen and homes the cursor.
func (d *Device) ClearDisplay() error {
	return d.Command(cmdClear)
}

// SetCursor moves the cursor to col, row.
func (d *Device) SetCursor(col, row uint8) error {
	if col >= d.width || row >= d.height || row > 3 {
		return ErrCursorOutOfRange
	}
	offsets := [4]uint8{0x00, 0x40, d.width, 0x40 + d.width}
	return d.Command(cmdSetDDRAM | (offsets[row] + col))
}

// SetCustomGlyph loads eight 5-pixel rows into glyph slot index. Indexes
// outside [0, GlyphCount) are ignored. The cursor is left in CGRAM; callers
// must SetCursor before printing again.
func (d *Device) SetCustomGlyph(index int, rows [8]byte) error {
	if index < 0 || index >= GlyphCount {
		return nil
	}
	if err := d.Command(cmdSetCGRAM | byte(index*8)&0x3F); err != nil {
		return err
	}
	for _, row := range rows {
		if err := d.WriteChar(row); err != nil {
			return err
		}
	}
	return nil
}

// SetLED switches the auxiliary LED. It takes effect on the next frame.
func (d *Device) SetLED(on bool) {
	if on {
		d.aux = FlagLED
	} else {
		d.aux = 0
	}
}

// Park drives 0xFF onto the address register with E low. Nothing is written
// to the controller, and the busy input is held high so the pin can be read
// by others while the LCD is idle.
func (d *Device) Park() error {
	return d.transmit(0xFF, 0)
}

func (d *Device) transmit(address, flags byte) error {
	return d.link.Transmit(address, flags|d.aux)
}
