package ps2

import "sync/atomic"

type keyState uint8

const (
	keyNormal keyState = iota
	keyBreak
	keyExtended
	keyExtendedBreak
)

// Translator turns scan code set 2 bytes into characters and modifier state.
// Feed runs in the edge handler; Modifiers may be read from anywhere.
type Translator struct {
	state keyState
	mods  atomic.Uint32
	out   *Ring
}

// NewTranslator returns a translator that pushes characters into out.
func NewTranslator(out *Ring) *Translator {
	return &Translator{out: out}
}

// Modifiers returns the currently held modifier keys.
func (t *Translator) Modifiers() Modifier {
	return Modifier(t.mods.Load())
}

// Reset forgets held modifiers and any pending prefix.
func (t *Translator) Reset() {
	t.state = keyNormal
	t.mods.Store(0)
}

// Feed consumes one decoded byte.
func (t *Translator) Feed(code byte) {
	switch t.state {
	case keyNormal:
		switch code {
		case codeBreak:
			t.state = keyBreak
		case codeExtended:
			t.state = keyExtended
		default:
			t.apply(Lookup(code, t.Modifiers()&Shift != 0))
		}

	case keyBreak:
		if mod, ok := findModifier(normalModifiers[:], code); ok {
			t.clear(mod)
		}
		t.state = keyNormal

	case keyExtended:
		if code == codeBreak {
			t.state = keyExtendedBreak
			return
		}
		t.apply(LookupExtended(code))
		t.state = keyNormal

	case keyExtendedBreak:
		if mod, ok := findModifier(extendedModifiers[:], code); ok {
			t.clear(mod)
		}
		t.state = keyNormal
	}
}

func (t *Translator) apply(a Action) {
	switch a.Kind {
	case ActionChar:
		t.out.Put(a.Char)
	case ActionClear:
		t.out.Put(ClearScreen)
	case ActionModifier:
		t.mods.Store(t.mods.Load() | uint32(a.Mod))
	}
}

func (t *Translator) clear(mod Modifier) {
	t.mods.Store(t.mods.Load() &^ uint32(mod))
}
