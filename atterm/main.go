// Command atterm is a standalone terminal: keys typed on a PS/2 keyboard
// appear on a 16x2 character LCD. Escape clears the screen.
//
// Build with a broker address and WiFi credentials to mirror keystrokes to
// MQTT from a Pico W:
//
//	tinygo flash -target=pico-w \
//	  -ldflags="-X main.brokerAddr=10.0.0.9:1883 \
//	    -X github.com/harveysanders/ps2lcd/netlink.ssid=... \
//	    -X github.com/harveysanders/ps2lcd/netlink.pass=..." ./atterm
package main

import (
	"log/slog"
	"machine"
	"time"

	"github.com/harveysanders/ps2lcd/board"
	"github.com/harveysanders/ps2lcd/bus"
	"github.com/harveysanders/ps2lcd/glyphs"
	"github.com/harveysanders/ps2lcd/lcd"
	"github.com/harveysanders/ps2lcd/mirror"
	"github.com/harveysanders/ps2lcd/netlink"
	"github.com/harveysanders/ps2lcd/ps2"
	"github.com/harveysanders/ps2lcd/terminal"
)

const (
	lcdWidth  = 16
	lcdHeight = 2
	// Keep a little headroom over the ring so a burst typed during an LCD
	// session survives.
	keyBuffer = 16
)

// Set via -ldflags "-X main.brokerAddr=host:port". Empty disables the mirror.
var brokerAddr string

func main() {
	boot := time.Now()
	logger := slog.New(slog.NewTextHandler(machine.Serial, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	board.LED.Configure(machine.PinConfig{Mode: machine.PinOutput})

	kb, err := board.NewKeyboard(ps2.Config{Capacity: keyBuffer})
	if err != nil {
		printErrForever(logger, "configure keyboard", slog.Any("reason", err))
	}
	port := bus.New(board.SharedPort{Keyboard: kb}, logger)
	display := lcd.New(board.NewLink())

	// The LCD is brought up first with the keyboard still parked. Releasing
	// the port at the end of the session arms the keyboard.
	err = port.Do(func() error {
		if err := display.Configure(lcd.Config{Width: lcdWidth, Height: lcdHeight}); err != nil {
			return err
		}
		return loadGlyphs(display, logger)
	})
	if err != nil {
		board.LED.High()
		printErrForever(logger, "configure LCD", slog.Any("reason", err))
	}
	logger.Info("atterm:ready", slog.Duration("boot", time.Since(boot)))

	messages := make(chan lcd.Message, 4)
	var echo chan byte
	if brokerAddr != "" && netlink.Configured() {
		echo = make(chan byte, 32)
		go runMirror(boot, logger, echo, messages)
	}

	term := terminal.New(terminal.Config{
		Keys:     kb,
		Display:  display,
		Port:     port,
		Messages: messages,
		Echo:     echo,
		Logger:   logger,
	})
	lcd.Send(messages, "atterm \x00", "type away")
	term.Run()
}

// loadGlyphs restores custom glyphs from flash, seeding slot 0 with a smiley
// on first boot. Storage failures are logged and ignored.
func loadGlyphs(display *lcd.Device, logger *slog.Logger) error {
	store, err := glyphs.Open(machine.Flash, true)
	if err != nil {
		logger.Error("glyphs:open-failed", slog.Any("reason", err))
		return display.SetCustomGlyph(0, glyphs.Smile)
	}
	defer store.Close()

	slots, err := store.List()
	if err == nil && len(slots) == 0 {
		err = store.Save(0, glyphs.Smile)
	}
	if err != nil {
		logger.Error("glyphs:seed-failed", slog.Any("reason", err))
	}
	n, err := store.Apply(display)
	if err != nil {
		return err
	}
	logger.Info("glyphs:loaded", slog.Int("count", n))
	return nil
}

func runMirror(boot time.Time, logger *slog.Logger, keys <-chan byte, status chan<- lcd.Message) {
	link, err := netlink.Join(netlink.Config{
		Hostname:    "atterm",
		MaxTCPPorts: 1,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("mirror:wifi-failed", slog.Any("reason", err))
		lcd.Send(status, "Mirror", "WiFi failed")
		return
	}

	c := mirror.Client{
		ID:                "atterm",
		Timeout:           5 * time.Second,
		TCPBufSize:        512,
		Logger:            logger,
		HeartbeatInterval: 30 * time.Second,
		Boot:              boot,
	}
	err = c.ConnectAndForward(link.Stack(), brokerAddr, keys, status)
	logger.Error("mirror:stopped", slog.Any("reason", err))
}

// printErrForever logs msg once a second. It blocks forever.
func printErrForever(logger *slog.Logger, msg string, args ...any) {
	for {
		logger.Error(msg, args...)
		time.Sleep(time.Second)
	}
}
