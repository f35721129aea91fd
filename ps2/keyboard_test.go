package ps2

import (
	"errors"
	"testing"
)

func newTestKeyboard(t *testing.T) (*Keyboard, *fakeBus) {
	bus := newFakeBus()
	kb, err := New(&bus.clock, &bus.data, bus, bus.config())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := kb.Enable(); err != nil {
		t.Fatalf("Enable failed: %v", err)
	}
	return kb, bus
}

func TestKeyboardTypesShiftedLetter(t *testing.T) {
	kb, bus := newTestKeyboard(t)

	// shift down, a down, a up, shift up, a down, a up
	bus.send(0x12, 0x1C, 0xF0, 0x1C, 0xF0, 0x12, 0x1C, 0xF0, 0x1C)

	if kb.Buffered() != 2 {
		t.Fatalf("Buffered: expected 2, got %d", kb.Buffered())
	}
	var b byte
	if !kb.Read(&b) || b != 'A' {
		t.Errorf("first read: expected 'A', got %q", b)
	}
	if !kb.Read(&b) || b != 'a' {
		t.Errorf("second read: expected 'a', got %q", b)
	}
	if kb.Read(&b) {
		t.Error("read from empty buffer should fail")
	}
	if kb.Buffered() != 0 {
		t.Errorf("Buffered after drain: expected 0, got %d", kb.Buffered())
	}
	if s := kb.Stats(); s.Frames != 9 || s.FramingErrors != 0 {
		t.Errorf("Stats: got %+v", s)
	}
}

func TestKeyboardReadNilDestination(t *testing.T) {
	kb, bus := newTestKeyboard(t)
	bus.send(0x1C)

	if kb.Read(nil) {
		t.Error("Read(nil) should fail")
	}
	if kb.Buffered() != 1 {
		t.Errorf("Read(nil) must not consume, Buffered=%d", kb.Buffered())
	}
}

func TestKeyboardReadByte(t *testing.T) {
	kb, bus := newTestKeyboard(t)

	if _, err := kb.ReadByte(); !errors.Is(err, ErrBufferEmpty) {
		t.Errorf("expected ErrBufferEmpty, got %v", err)
	}
	bus.send(0x76)
	b, err := kb.ReadByte()
	if err != nil || b != ClearScreen {
		t.Errorf("expected clear sentinel, got %d, %v", b, err)
	}
}

func TestKeyboardDisableInhibitsBus(t *testing.T) {
	kb, bus := newTestKeyboard(t)

	if err := kb.Disable(); err != nil {
		t.Fatalf("Disable failed: %v", err)
	}
	if kb.Enabled() {
		t.Error("expected disabled")
	}
	if !bus.clock.inhibited {
		t.Error("clock must be held low while disabled")
	}
	if bus.disarms != 1 {
		t.Errorf("disarms: expected 1, got %d", bus.disarms)
	}

	// Edges while disabled are not delivered.
	bus.send(0x1C)
	if kb.Buffered() != 0 {
		t.Errorf("Buffered: expected 0 while disabled, got %d", kb.Buffered())
	}

	// Disabling twice does not disarm again.
	if err := kb.Disable(); err != nil || bus.disarms != 1 {
		t.Errorf("second Disable: err=%v disarms=%d", err, bus.disarms)
	}
	if !bus.clock.inhibited {
		t.Error("clock must stay low after a second Disable")
	}
}

func TestDisableBeforeFirstEnableInhibitsClock(t *testing.T) {
	bus := newFakeBus()
	kb, err := New(&bus.clock, &bus.data, bus, bus.config())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	// Board setup releases both lines before the first LCD session.
	bus.clock.Release()

	if err := kb.Disable(); err != nil {
		t.Fatalf("Disable failed: %v", err)
	}
	if !bus.clock.inhibited {
		t.Errorf("clock must be inhibited after the first Disable (inhibits=%d)", bus.clock.inhibits)
	}
	if bus.disarms != 0 {
		t.Errorf("disarms: expected 0 for a keyboard that was never armed, got %d", bus.disarms)
	}
	if kb.Enabled() {
		t.Error("expected disabled")
	}
}

func TestKeyboardEnableResetsPartialFrame(t *testing.T) {
	kb, bus := newTestKeyboard(t)

	f := frameBits(0x1C)
	bus.clockBits(f[:6])

	if err := kb.Disable(); err != nil {
		t.Fatalf("Disable failed: %v", err)
	}
	if err := kb.Enable(); err != nil {
		t.Fatalf("Enable failed: %v", err)
	}
	if bus.clock.inhibited {
		t.Error("clock must be released after Enable")
	}
	if bus.arms != 2 {
		t.Errorf("arms: expected 2, got %d", bus.arms)
	}

	bus.send(0x1C)
	var b byte
	if !kb.Read(&b) || b != 'a' {
		t.Errorf("expected 'a' after re-enable, got %q", b)
	}
}

func TestKeyboardModifiersSurviveDisable(t *testing.T) {
	kb, bus := newTestKeyboard(t)
	bus.send(0x59)

	kb.Disable()
	kb.Enable()

	if kb.Modifiers() != RightShift {
		t.Errorf("Modifiers: expected right shift, got %08b", kb.Modifiers())
	}
}

func TestKeyboardOverrunCounted(t *testing.T) {
	bus := newFakeBus()
	cfg := bus.config()
	cfg.Capacity = 2
	kb, err := New(&bus.clock, &bus.data, bus, cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	kb.Enable()

	bus.send(0x1C, 0x32, 0x21)

	if s := kb.Stats(); s.Overruns != 1 {
		t.Errorf("Overruns: expected 1, got %d", s.Overruns)
	}
	if kb.Buffered() != 2 {
		t.Errorf("Buffered: expected 2, got %d", kb.Buffered())
	}
}

func TestNewRejectsBadCapacity(t *testing.T) {
	bus := newFakeBus()
	cfg := bus.config()
	cfg.Capacity = 6
	if _, err := New(&bus.clock, &bus.data, bus, cfg); !errors.Is(err, ErrCapacity) {
		t.Errorf("expected ErrCapacity, got %v", err)
	}
}

type failingEdges struct{}

func (failingEdges) Arm(func()) error { return errors.New("no irq") }
func (failingEdges) Disarm() error    { return nil }

func TestEnableArmFailureKeepsBusInhibited(t *testing.T) {
	bus := newFakeBus()
	kb, err := New(&bus.clock, &bus.data, failingEdges{}, bus.config())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := kb.Enable(); err == nil {
		t.Fatal("expected Enable to fail")
	}
	if kb.Enabled() {
		t.Error("keyboard must stay disabled")
	}
	if !bus.clock.inhibited {
		t.Error("clock must be inhibited after a failed Enable")
	}
}
