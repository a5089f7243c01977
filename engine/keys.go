package engine

import (
	"fmt"
	"strings"
)

// Key is a keyboard key code. The numbering is part of the scripting contract.
type Key int

const (
	KeyA Key = 1 + iota
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
	KeyPad0
	KeyPad1
	KeyPad2
	KeyPad3
	KeyPad4
	KeyPad5
	KeyPad6
	KeyPad7
	KeyPad8
	KeyPad9
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
	KeyEscape
	KeyTilde
	KeyMinus
	KeyEquals
	KeyBackspace
	KeyTab
	KeyOpenBrace
	KeyCloseBrace
	KeyEnter
	KeySemicolon
	KeyQuote
	KeyBackslash
	KeyBackslash2
	KeyComma
	KeyFullstop
	KeySlash
	KeySpace
	KeyInsert
	KeyDelete
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
	KeyLeft
	KeyRight
	KeyUp
	KeyDown
)

// Modifier and lock keys. Shift, Ctrl and Alt match either side of the
// keyboard.
const (
	KeyShift      Key = 215
	KeyCtrl       Key = 217
	KeyAlt        Key = 219
	KeyScrollLock Key = 224
	KeyNumLock    Key = 225
	KeyCapsLock   Key = 226
)

// KeyNames maps the script-visible names (without the KEY_ prefix) to codes.
var KeyNames = buildKeyNames()

func buildKeyNames() map[string]Key {
	names := map[string]Key{
		"ESCAPE":     KeyEscape,
		"TILDE":      KeyTilde,
		"MINUS":      KeyMinus,
		"EQUALS":     KeyEquals,
		"BACKSPACE":  KeyBackspace,
		"TAB":        KeyTab,
		"OPENBRACE":  KeyOpenBrace,
		"CLOSEBRACE": KeyCloseBrace,
		"ENTER":      KeyEnter,
		"SEMICOLON":  KeySemicolon,
		"APOSTROPHE": KeyQuote,
		"BACKSLASH":  KeyBackslash,
		"COMMA":      KeyComma,
		"PERIOD":     KeyFullstop,
		"SLASH":      KeySlash,
		"SPACE":      KeySpace,
		"INSERT":     KeyInsert,
		"DELETE":     KeyDelete,
		"HOME":       KeyHome,
		"END":        KeyEnd,
		"PAGEUP":     KeyPageUp,
		"PAGEDOWN":   KeyPageDown,
		"LEFT":       KeyLeft,
		"RIGHT":      KeyRight,
		"UP":         KeyUp,
		"DOWN":       KeyDown,
		"SHIFT":      KeyShift,
		"CTRL":       KeyCtrl,
		"ALT":        KeyAlt,
		"SCROLLOCK":  KeyScrollLock,
		"NUMLOCK":    KeyNumLock,
		"CAPSLOCK":   KeyCapsLock,
	}
	for i := 0; i < 26; i++ {
		names[string(rune('A'+i))] = KeyA + Key(i)
	}
	for i := 0; i < 10; i++ {
		names[fmt.Sprint(i)] = Key0 + Key(i)
		names[fmt.Sprintf("NUM_%d", i)] = KeyPad0 + Key(i)
	}
	for i := 0; i < 12; i++ {
		names[fmt.Sprintf("F%d", i+1)] = KeyF1 + Key(i)
	}
	return names
}

// ParseKey resolves a key name such as "SPACE" or "KEY_SPACE".
func ParseKey(name string) (Key, error) {
	n := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(name)), "KEY_")
	if k, ok := KeyNames[n]; ok {
		return k, nil
	}
	return 0, fmt.Errorf("key %q: %w", name, ErrInvalidArgument)
}

func (k Key) String() string {
	for name, code := range KeyNames {
		if code == k {
			return "KEY_" + name
		}
	}
	return fmt.Sprintf("key(%d)", int(k))
}

// Keyboard reports the host's current key state.
type Keyboard interface {
	IsKeyDown(k Key) bool
}
