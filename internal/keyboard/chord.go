package keyboard

import (
	"errors"
	"fmt"
	"strings"
)

// Parse errors
var (
	ErrEmptySpec   = errors.New("empty key specification")
	ErrInvalidSpec = errors.New("invalid key specification")
)

// Modifier represents keyboard modifier keys.
type Modifier uint8

const (
	// ModNone indicates no modifiers.
	ModNone Modifier = 0

	// ModShift indicates the Shift key.
	ModShift Modifier = 1 << iota

	// ModCtrl indicates the Control key.
	ModCtrl

	// ModAlt indicates the Alt key (Option on macOS).
	ModAlt

	// ModMeta indicates the Meta key (Cmd on macOS, Win on Windows).
	ModMeta
)

// Has returns true if m contains the specified modifier.
func (m Modifier) Has(mod Modifier) bool {
	return m&mod != 0
}

// String returns a human-readable representation like "Ctrl+Alt".
func (m Modifier) String() string {
	var parts []string
	if m.Has(ModCtrl) {
		parts = append(parts, "Ctrl")
	}
	if m.Has(ModAlt) {
		parts = append(parts, "Alt")
	}
	if m.Has(ModShift) {
		parts = append(parts, "Shift")
	}
	if m.Has(ModMeta) {
		parts = append(parts, "Meta")
	}
	return strings.Join(parts, "+")
}

// modifierNameMap maps modifier names (lowercase) to Modifier values.
var modifierNameMap = map[string]Modifier{
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"c":       ModCtrl,
	"alt":     ModAlt,
	"a":       ModAlt,
	"option":  ModAlt,
	"shift":   ModShift,
	"s":       ModShift,
	"meta":    ModMeta,
	"m":       ModMeta,
	"cmd":     ModMeta,
	"command": ModMeta,
}

// keyNames maps accepted key names to their canonical form.
var keyNames = map[string]string{
	"enter":     "Enter",
	"return":    "Enter",
	"cr":        "Enter",
	"backspace": "Backspace",
	"bs":        "Backspace",
	"delete":    "Delete",
	"del":       "Delete",
	"tab":       "Tab",
	"escape":    "Escape",
	"esc":       "Escape",
	"space":     "Space",
	"home":      "Home",
	"end":       "End",
	"up":        "Up",
	"down":      "Down",
	"left":      "Left",
	"right":     "Right",
	"pageup":    "PageUp",
	"pagedown":  "PageDown",
}

// Chord is a single key press with modifiers.
type Chord struct {
	Key  string
	Mods Modifier
}

// String returns the canonical form, for example "Ctrl+Shift+Z".
func (c Chord) String() string {
	if c.Mods == ModNone {
		return c.Key
	}
	return c.Mods.String() + "+" + c.Key
}

// ParseChord parses a key specification.
//
// Supported formats:
//   - Single character: "a", "Z" (letters are case-insensitive)
//   - Named keys: "Enter", "Backspace", "Tab", "Home"
//   - With modifiers: "Ctrl+B", "Ctrl+Shift+Z", "Shift+Tab"
//   - Vim-style: "<C-z>", "<S-Tab>", "<CR>"
func ParseChord(s string) (Chord, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Chord{}, ErrEmptySpec
	}

	sep := "+"
	if strings.HasPrefix(s, "<") && strings.HasSuffix(s, ">") {
		s = s[1 : len(s)-1]
		sep = "-"
	}

	parts := strings.Split(s, sep)
	// "Ctrl++" binds the plus key
	if sep == "+" && strings.HasSuffix(s, "++") {
		parts = append(strings.Split(strings.TrimSuffix(s, "++"), "+"), "+")
	}

	var mods Modifier
	for _, p := range parts[:len(parts)-1] {
		mod, ok := modifierNameMap[strings.ToLower(strings.TrimSpace(p))]
		if !ok {
			return Chord{}, fmt.Errorf("%w: unknown modifier %q", ErrInvalidSpec, p)
		}
		mods |= mod
	}

	k, err := parseKey(strings.TrimSpace(parts[len(parts)-1]))
	if err != nil {
		return Chord{}, err
	}
	return Chord{Key: k, Mods: mods}, nil
}

// MustParseChord is like ParseChord but panics on error.
func MustParseChord(s string) Chord {
	c, err := ParseChord(s)
	if err != nil {
		panic(err)
	}
	return c
}

func parseKey(s string) (string, error) {
	if s == "" {
		return "", ErrInvalidSpec
	}
	if name, ok := keyNames[strings.ToLower(s)]; ok {
		return name, nil
	}
	if r := []rune(s); len(r) == 1 {
		return strings.ToLower(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSpec, s)
}
