package ps2

// Modifier is a bitset of held modifier keys.
type Modifier uint8

const (
	LeftShift Modifier = 1 << iota
	RightShift
	LeftCtrl
	RightCtrl
	LeftAlt
	RightAlt
	LeftGUI
	RightGUI

	Shift = LeftShift | RightShift
	Ctrl  = LeftCtrl | RightCtrl
	Alt   = LeftAlt | RightAlt
	GUI   = LeftGUI | RightGUI
)

// Scan code set 2 prefixes.
const (
	codeBreak    = 0xF0
	codeExtended = 0xE0
	codeEscape   = 0x76
)

// ActionKind tags what a scan code does.
type ActionKind uint8

const (
	ActionNone ActionKind = iota
	ActionChar
	ActionModifier
	ActionClear
)

// Action is the result of looking up a make code.
type Action struct {
	Kind ActionKind
	Char byte
	Mod  Modifier
}

type modifierCode struct {
	code byte
	mod  Modifier
}

var normalModifiers = [...]modifierCode{
	{0x11, LeftAlt},
	{0x12, LeftShift},
	{0x14, LeftCtrl},
	{0x59, RightShift},
}

// Extended page, after an 0xE0 prefix.
var extendedModifiers = [...]modifierCode{
	{0x11, RightAlt},
	{0x14, RightCtrl},
	{0x1F, LeftGUI},
	{0x27, RightGUI},
}

// Characters indexed by scan code. Zero entries produce nothing.
var unshifted = [96]byte{
	0x0D: '\t', 0x0E: '`',
	0x15: 'q', 0x16: '1',
	0x1A: 'z', 0x1B: 's', 0x1C: 'a', 0x1D: 'w', 0x1E: '2',
	0x21: 'c', 0x22: 'x', 0x23: 'd', 0x24: 'e', 0x25: '4', 0x26: '3',
	0x29: ' ', 0x2A: 'v', 0x2B: 'f', 0x2C: 't', 0x2D: 'r', 0x2E: '5',
	0x31: 'n', 0x32: 'b', 0x33: 'h', 0x34: 'g', 0x35: 'y', 0x36: '6',
	0x3A: 'm', 0x3B: 'j', 0x3C: 'u', 0x3D: '7', 0x3E: '8',
	0x41: ',', 0x42: 'k', 0x43: 'i', 0x44: 'o', 0x45: '0', 0x46: '9',
	0x49: '.', 0x4A: '/', 0x4B: 'l', 0x4C: ';', 0x4D: 'p', 0x4E: '-',
	0x52: '\'', 0x54: '[', 0x55: '=',
	0x5A: '\n', 0x5B: ']', 0x5D: '\\',
}

var shifted = [96]byte{
	0x0D: '\t', 0x0E: '~',
	0x15: 'Q', 0x16: '!',
	0x1A: 'Z', 0x1B: 'S', 0x1C: 'A', 0x1D: 'W', 0x1E: '@',
	0x21: 'C', 0x22: 'X', 0x23: 'D', 0x24: 'E', 0x25: '$', 0x26: '#',
	0x29: ' ', 0x2A: 'V', 0x2B: 'F', 0x2C: 'T', 0x2D: 'R', 0x2E: '%',
	0x31: 'N', 0x32: 'B', 0x33: 'H', 0x34: 'G', 0x35: 'Y', 0x36: '^',
	0x3A: 'M', 0x3B: 'J', 0x3C: 'U', 0x3D: '&', 0x3E: '*',
	0x41: '<', 0x42: 'K', 0x43: 'I', 0x44: 'O', 0x45: ')', 0x46: '(',
	0x49: '>', 0x4A: '?', 0x4B: 'L', 0x4C: ':', 0x4D: 'P', 0x4E: '_',
	0x52: '"', 0x54: '{', 0x55: '+',
	0x5A: '\n', 0x5B: '}', 0x5D: '|',
}

// Lookup resolves a make code on the normal page.
func Lookup(code byte, shift bool) Action {
	table := &unshifted
	if shift {
		table = &shifted
	}
	if int(code) < len(table) && table[code] != 0 {
		return Action{Kind: ActionChar, Char: table[code]}
	}
	if mod, ok := findModifier(normalModifiers[:], code); ok {
		return Action{Kind: ActionModifier, Mod: mod}
	}
	if code == codeEscape {
		return Action{Kind: ActionClear}
	}
	return Action{}
}

// LookupExtended resolves a make code that followed an 0xE0 prefix.
func LookupExtended(code byte) Action {
	if mod, ok := findModifier(extendedModifiers[:], code); ok {
		return Action{Kind: ActionModifier, Mod: mod}
	}
	return Action{}
}

func findModifier(list []modifierCode, code byte) (Modifier, bool) {
	for _, m := range list {
		if m.code == code {
			return m.mod, true
		}
	}
	return 0, false
}
