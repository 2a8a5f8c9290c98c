package hotkey

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Manager defines the interface for global hotkey management
type Manager interface {
	Register(accel string, callback func(pressed bool)) error
	Unregister(accel string) error
	Close() error
}

var (
	ErrUnsupported  = errors.New("global hotkeys not supported on this platform")
	ErrInvalidAccel = errors.New("invalid accelerator")
)

// Modifier is a bit set of held modifier keys
type Modifier uint8

const (
	ModShift Modifier = 1 << iota
	ModCtrl
	ModAlt
	ModSuper
)

// Accel is a parsed accelerator such as "Ctrl+Shift+R". Key is lower-case:
// a-z, 0-9, f1-f12, space, return, tab or escape.
type Accel struct {
	Mods Modifier
	Key  string
}

var modifierNames = map[string]Modifier{
	"shift":   ModShift,
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"alt":     ModAlt,
	"option":  ModAlt,
	"opt":     ModAlt,
	"super":   ModSuper,
	"cmd":     ModSuper,
	"command": ModSuper,
	"meta":    ModSuper,
	"win":     ModSuper,
}

var keyAliases = map[string]string{
	"enter": "return",
	"esc":   "escape",
}

// functionKey returns n for "f1".."f12"
func functionKey(k string) (int, bool) {
	if len(k) < 2 || k[0] != 'f' || k[1] == '0' {
		return 0, false
	}
	n, err := strconv.Atoi(k[1:])
	if err != nil || n < 1 || n > 12 {
		return 0, false
	}
	return n, true
}

func validKey(k string) bool {
	switch k {
	case "space", "return", "tab", "escape":
		return true
	}
	if len(k) == 1 {
		c := k[0]
		return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
	}
	_, ok := functionKey(k)
	return ok
}

// Parse reads a "+"-separated accelerator. Exactly one non-modifier key is
// required; names are case-insensitive.
func Parse(s string) (Accel, error) {
	var a Accel
	parts := strings.Split(s, "+")
	for i, p := range parts {
		name := strings.ToLower(strings.TrimSpace(p))
		if name == "" {
			return Accel{}, fmt.Errorf("%w: %q", ErrInvalidAccel, s)
		}

		if mod, ok := modifierNames[name]; ok && i < len(parts)-1 {
			a.Mods |= mod
			continue
		}
		if i != len(parts)-1 {
			return Accel{}, fmt.Errorf("%w: %q is not a modifier", ErrInvalidAccel, p)
		}

		if alias, ok := keyAliases[name]; ok {
			name = alias
		}
		if !validKey(name) {
			return Accel{}, fmt.Errorf("%w: unknown key %q", ErrInvalidAccel, p)
		}
		a.Key = name
	}
	return a, nil
}

func (a Accel) String() string {
	var parts []string
	if a.Mods&ModCtrl != 0 {
		parts = append(parts, "Ctrl")
	}
	if a.Mods&ModAlt != 0 {
		parts = append(parts, "Alt")
	}
	if a.Mods&ModShift != 0 {
		parts = append(parts, "Shift")
	}
	if a.Mods&ModSuper != 0 {
		parts = append(parts, "Super")
	}

	key := a.Key
	if _, fn := functionKey(key); fn || len(key) == 1 {
		key = strings.ToUpper(key)
	} else if key != "" {
		key = strings.ToUpper(key[:1]) + key[1:]
	}
	return strings.Join(append(parts, key), "+")
}
