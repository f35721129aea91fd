// Command kbblink toggles the board LED every time the A key is pressed.
// It is the smallest check that the PS/2 wiring and decoder work.
package main

import (
	"machine"
	"time"

	"github.com/harveysanders/ps2lcd/board"
	"github.com/harveysanders/ps2lcd/ps2"
)

func main() {
	led := board.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	led.Low()

	kb, err := board.NewKeyboard(ps2.Config{})
	if err != nil {
		for {
			println("could not configure keyboard:", err.Error())
			time.Sleep(time.Second)
		}
	}
	if err := kb.Enable(); err != nil {
		for {
			println("could not enable keyboard:", err.Error())
			time.Sleep(time.Second)
		}
	}

	on := false
	var last ps2.Stats
	for {
		var c byte
		for kb.Read(&c) {
			if c == 'a' || c == 'A' {
				on = !on
				led.Set(on)
				println("toggled LED")
			}
		}
		if s := kb.Stats(); s != last {
			println("frames:", s.Frames, "errors:", s.FramingErrors, "overruns:", s.Overruns)
			last = s
		}
		time.Sleep(10 * time.Millisecond)
	}
}
