package ps2

import "errors"

// Keyboard owns the receiver, translator and buffer for one PS/2 port. The
// decoding state is only reachable through the edge handler armed by Enable;
// the foreground sees characters through Read, ReadByte and Buffered.
type Keyboard struct {
	clock Line
	edges EdgeSource

	rx  *Receiver
	tr  *Translator
	buf *Ring

	enabled bool
}

// New returns a disabled keyboard. Call Enable to start receiving.
func New(clock Line, data Input, edges EdgeSource, cfg Config) (*Keyboard, error) {
	cfg = cfg.withDefaults()
	buf, err := NewRing(cfg.Capacity)
	if err != nil {
		return nil, err
	}
	tr := NewTranslator(buf)
	return &Keyboard{
		clock: clock,
		edges: edges,
		rx:    NewReceiver(clock, data, tr.Feed, cfg),
		tr:    tr,
		buf:   buf,
	}, nil
}

// Enable drops any partial frame, releases the clock line and arms the edge
// handler. Edges latched while the keyboard was disabled are discarded.
func (k *Keyboard) Enable() error {
	if k.enabled {
		return nil
	}
	k.rx.Reset()
	k.clock.Release()
	if err := k.edges.Arm(k.rx.HandleEdge); err != nil {
		k.clock.Inhibit()
		return errors.New("ps2: arm clock edge:" + err.Error())
	}
	k.enabled = true
	return nil
}

// Disable stops edge delivery and holds the clock line low so the keyboard
// buffers keystrokes instead of sending them. The clock is inhibited even if
// the keyboard was never enabled. The shared port is free to use once Disable
// returns.
func (k *Keyboard) Disable() error {
	if k.enabled {
		if err := k.edges.Disarm(); err != nil {
			return errors.New("ps2: disarm clock edge:" + err.Error())
		}
		k.enabled = false
	}
	k.clock.Inhibit()
	return nil
}

// Enabled reports whether the edge handler is armed.
func (k *Keyboard) Enabled() bool {
	return k.enabled
}

// Buffered returns the number of characters waiting to be read.
func (k *Keyboard) Buffered() int {
	return k.buf.Used()
}

// Read copies the oldest character into out. It returns false if out is nil
// or nothing is buffered.
func (k *Keyboard) Read(out *byte) bool {
	if out == nil {
		return false
	}
	b, ok := k.buf.Get()
	if !ok {
		return false
	}
	*out = b
	return true
}

// ReadByte returns the oldest character, or ErrBufferEmpty.
func (k *Keyboard) ReadByte() (byte, error) {
	b, ok := k.buf.Get()
	if !ok {
		return 0, ErrBufferEmpty
	}
	return b, nil
}

// Modifiers returns the currently held modifier keys.
func (k *Keyboard) Modifiers() Modifier {
	return k.tr.Modifiers()
}

// Stats returns bus counters.
func (k *Keyboard) Stats() Stats {
	return Stats{
		Frames:        k.rx.frames.Load(),
		FramingErrors: k.rx.framingErrors.Load(),
		Overruns:      k.buf.Overruns(),
	}
}
