// Package terminal moves characters from the keyboard buffer to the LCD.
//
// The keyboard and the LCD share one port, so every burst of LCD output runs
// inside a bus session that parks the keyboard. Characters typed during a
// session are buffered by the keyboard itself (it is held in the inhibit
// state) and arrive once the session ends.
package terminal

import (
	"io"
	"log/slog"
	"time"

	"github.com/harveysanders/ps2lcd/lcd"
	"github.com/harveysanders/ps2lcd/ps2"
)

// Keys is the character source.
type Keys interface {
	Buffered() int
	Read(out *byte) bool
	Stats() ps2.Stats
}

// Display is the character sink.
type Display interface {
	WriteChar(c byte) error
	ClearDisplay() error
	SetCursor(col, row uint8) error
	Size() (width, height uint8)
	Show(msg lcd.Message) error
}

// Session runs fn with exclusive use of the shared port.
type Session interface {
	Do(fn func() error) error
}

// Config wires a Terminal.
type Config struct {
	Keys    Keys
	Display Display
	Port    Session
	// Messages carries status screens to show between keystrokes. Optional.
	Messages <-chan lcd.Message
	// Echo receives a copy of every character shown. Optional; characters
	// are dropped if it is full.
	Echo   chan<- byte
	Logger *slog.Logger
	// Idle is slept when there is nothing to do. Defaults to 10ms.
	Idle time.Duration
}

// Terminal tracks the cursor and feeds the display.
type Terminal struct {
	keys     Keys
	display  Display
	port     Session
	messages <-chan lcd.Message
	echo     chan<- byte
	logger   *slog.Logger
	idle     time.Duration

	col, row uint8
	// stale is set while a status message is on screen. The next
	// keystroke clears it.
	stale bool
	stats ps2.Stats
}

// New returns a terminal with the cursor at the top left.
func New(cfg Config) *Terminal {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
			Level: slog.Level(127),
		}))
	}
	idle := cfg.Idle
	if idle == 0 {
		idle = 10 * time.Millisecond
	}
	return &Terminal{
		keys:     cfg.Keys,
		display:  cfg.Display,
		port:     cfg.Port,
		messages: cfg.Messages,
		echo:     cfg.Echo,
		logger:   logger,
		idle:     idle,
	}
}

// Cursor returns the position the next character will be written to.
func (t *Terminal) Cursor() (col, row uint8) {
	return t.col, t.row
}

// Run shows status messages and pumps keystrokes forever.
func (t *Terminal) Run() {
	for {
		select {
		case msg := <-t.messages:
			if err := t.Show(msg); err != nil {
				t.logger.Error("terminal:show-failed", slog.String("err", err.Error()))
			}
		default:
			n, err := t.Pump()
			if err != nil {
				t.logger.Error("terminal:pump-failed", slog.String("err", err.Error()))
			}
			if n == 0 {
				time.Sleep(t.idle)
			}
		}
	}
}

// Show displays a status message. The next keystroke clears it.
func (t *Terminal) Show(msg lcd.Message) error {
	err := t.port.Do(func() error {
		return t.display.Show(msg)
	})
	t.stale = true
	return err
}

// Pump writes every buffered character to the display in a single session
// and returns how many were consumed.
func (t *Terminal) Pump() (int, error) {
	defer t.logStats()
	if t.keys.Buffered() == 0 {
		return 0, nil
	}

	n := 0
	err := t.port.Do(func() error {
		var c byte
		for t.keys.Read(&c) {
			n++
			t.forward(c)
			if err := t.put(c); err != nil {
				return err
			}
		}
		return nil
	})
	return n, err
}

func (t *Terminal) put(c byte) error {
	if t.stale {
		t.stale = false
		if err := t.clear(); err != nil {
			return err
		}
	}

	switch {
	case c == ps2.ClearScreen:
		return t.clear()
	case c == '\n':
		return t.newline()
	case c == '\t':
		c = ' '
	case c < 0x20 || c > 0x7E:
		return nil
	}

	width, _ := t.display.Size()
	if t.col >= width {
		if err := t.newline(); err != nil {
			return err
		}
	}
	if err := t.display.WriteChar(c); err != nil {
		return err
	}
	t.col++
	return nil
}

func (t *Terminal) clear() error {
	t.col, t.row = 0, 0
	return t.display.ClearDisplay()
}

// newline moves to the start of the next row, wrapping to a blank screen
// after the last one.
func (t *Terminal) newline() error {
	_, height := t.display.Size()
	if t.row+1 >= height {
		return t.clear()
	}
	t.col = 0
	t.row++
	return t.display.SetCursor(t.col, t.row)
}

func (t *Terminal) forward(c byte) {
	if t.echo == nil {
		return
	}
	select {
	case t.echo <- c:
	default:
		t.logger.Debug("terminal:echo-dropped", slog.Int("char", int(c)))
	}
}

// logStats reports new bus errors since the last call.
func (t *Terminal) logStats() {
	s := t.keys.Stats()
	if s.FramingErrors != t.stats.FramingErrors {
		t.logger.Warn("ps2:framing-errors",
			slog.Uint64("total", uint64(s.FramingErrors)),
			slog.Uint64("new", uint64(s.FramingErrors-t.stats.FramingErrors)),
		)
	}
	if s.Overruns != t.stats.Overruns {
		t.logger.Warn("ps2:buffer-overrun",
			slog.Uint64("total", uint64(s.Overruns)),
			slog.Uint64("new", uint64(s.Overruns-t.stats.Overruns)),
		)
	}
	t.stats = s
}
