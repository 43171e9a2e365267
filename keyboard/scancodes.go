package keyboard

// Key identifies one key on the keyboard by its Scan Code Set 2 role,
// not by the character it produces — the same physical K_1 key emits
// "1" or "!" depending on whether LSHIFT is held, which the caller
// controls explicitly via KeyDown/KeyUp or implicitly via Type.
type Key int

const (
	KeyA Key = iota
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
	KeyG
	KeyH
	KeyI
	KeyJ
	KeyK
	KeyL
	KeyM
	KeyN
	KeyO
	KeyP
	KeyQ
	KeyR
	KeyS
	KeyT
	KeyU
	KeyV
	KeyW
	KeyX
	KeyY
	KeyZ
	Key0
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	KeyBackquote
	KeyMinus
	KeyEquals
	KeyLeftBracket
	KeyRightBracket
	KeyBackslash
	KeySemicolon
	KeyQuote
	KeyComma
	KeyPeriod
	KeySlash
	KeySpace
	KeyReturn
	KeyBackspace
	KeyTab
	KeyEscape
	KeyLeftShift
	KeyRightShift
	KeyLeftControl
	KeyLeftAlt
	keyCount
)

// makeCode and breakCode hold the Scan Code Set 2 byte sequence emitted
// on press and release, respectively. None of the keys in this table are
// "extended" (E0-prefixed) keys, so break is always {0xF0, make...}.
var makeCode = [keyCount][]byte{
	KeyA: {0x1C}, KeyB: {0x32}, KeyC: {0x21}, KeyD: {0x23}, KeyE: {0x24},
	KeyF: {0x2B}, KeyG: {0x34}, KeyH: {0x33}, KeyI: {0x43}, KeyJ: {0x3B},
	KeyK: {0x42}, KeyL: {0x4B}, KeyM: {0x3A}, KeyN: {0x31}, KeyO: {0x44},
	KeyP: {0x4D}, KeyQ: {0x15}, KeyR: {0x2D}, KeyS: {0x1B}, KeyT: {0x2C},
	KeyU: {0x3C}, KeyV: {0x2A}, KeyW: {0x1D}, KeyX: {0x22}, KeyY: {0x35},
	KeyZ: {0x1A},
	Key0: {0x45}, Key1: {0x16}, Key2: {0x1E}, Key3: {0x26}, Key4: {0x25},
	Key5: {0x2E}, Key6: {0x36}, Key7: {0x3D}, Key8: {0x3E}, Key9: {0x46},
	KeyBackquote: {0x0E}, KeyMinus: {0x4E}, KeyEquals: {0x55},
	KeyLeftBracket: {0x54}, KeyRightBracket: {0x5B}, KeyBackslash: {0x5D},
	KeySemicolon: {0x4C}, KeyQuote: {0x52}, KeyComma: {0x41},
	KeyPeriod: {0x49}, KeySlash: {0x4A},
	KeySpace: {0x29}, KeyReturn: {0x5A}, KeyBackspace: {0x66},
	KeyTab: {0x0D}, KeyEscape: {0x76},
	KeyLeftShift: {0x12}, KeyRightShift: {0x59},
	KeyLeftControl: {0x14}, KeyLeftAlt: {0x11},
}

func breakCode(k Key) []byte {
	return append([]byte{0xF0}, makeCode[k]...)
}

// asciiKey maps one ASCII character to the key (and whether LSHIFT must
// be held) that produces it on a standard US keyboard layout. The full
// typing table is an external collaborator per the emulator's own design
// brief — the character-to-scancode mapping lives at the application
// edge, not in the protocol core — so this table covers printable ASCII
// plus the common whitespace controls rather than exhaustively
// replicating every locale's layout.
type asciiEntry struct {
	key   Key
	shift bool
}

var asciiTable = map[rune]asciiEntry{
	'\b': {KeyBackspace, false},
	'\t': {KeyTab, false},
	'\r': {KeyReturn, false},
	'\n': {KeyReturn, false},
	' ':  {KeySpace, false},

	'`': {KeyBackquote, false}, '~': {KeyBackquote, true},
	'-': {KeyMinus, false}, '_': {KeyMinus, true},
	'=': {KeyEquals, false}, '+': {KeyEquals, true},
	'[': {KeyLeftBracket, false}, '{': {KeyLeftBracket, true},
	']': {KeyRightBracket, false}, '}': {KeyRightBracket, true},
	'\\': {KeyBackslash, false}, '|': {KeyBackslash, true},
	';': {KeySemicolon, false}, ':': {KeySemicolon, true},
	'\'': {KeyQuote, false}, '"': {KeyQuote, true},
	',': {KeyComma, false}, '<': {KeyComma, true},
	'.': {KeyPeriod, false}, '>': {KeyPeriod, true},
	'/': {KeySlash, false}, '?': {KeySlash, true},

	'0': {Key0, false}, ')': {Key0, true},
	'1': {Key1, false}, '!': {Key1, true},
	'2': {Key2, false}, '@': {Key2, true},
	'3': {Key3, false}, '#': {Key3, true},
	'4': {Key4, false}, '$': {Key4, true},
	'5': {Key5, false}, '%': {Key5, true},
	'6': {Key6, false}, '^': {Key6, true},
	'7': {Key7, false}, '&': {Key7, true},
	'8': {Key8, false}, '*': {Key8, true},
	'9': {Key9, false}, '(': {Key9, true},

	'a': {KeyA, false}, 'A': {KeyA, true},
	'b': {KeyB, false}, 'B': {KeyB, true},
	'c': {KeyC, false}, 'C': {KeyC, true},
	'd': {KeyD, false}, 'D': {KeyD, true},
	'e': {KeyE, false}, 'E': {KeyE, true},
	'f': {KeyF, false}, 'F': {KeyF, true},
	'g': {KeyG, false}, 'G': {KeyG, true},
	'h': {KeyH, false}, 'H': {KeyH, true},
	'i': {KeyI, false}, 'I': {KeyI, true},
	'j': {KeyJ, false}, 'J': {KeyJ, true},
	'k': {KeyK, false}, 'K': {KeyK, true},
	'l': {KeyL, false}, 'L': {KeyL, true},
	'm': {KeyM, false}, 'M': {KeyM, true},
	'n': {KeyN, false}, 'N': {KeyN, true},
	'o': {KeyO, false}, 'O': {KeyO, true},
	'p': {KeyP, false}, 'P': {KeyP, true},
	'q': {KeyQ, false}, 'Q': {KeyQ, true},
	'r': {KeyR, false}, 'R': {KeyR, true},
	's': {KeyS, false}, 'S': {KeyS, true},
	't': {KeyT, false}, 'T': {KeyT, true},
	'u': {KeyU, false}, 'U': {KeyU, true},
	'v': {KeyV, false}, 'V': {KeyV, true},
	'w': {KeyW, false}, 'W': {KeyW, true},
	'x': {KeyX, false}, 'X': {KeyX, true},
	'y': {KeyY, false}, 'Y': {KeyY, true},
	'z': {KeyZ, false}, 'Z': {KeyZ, true},
}
