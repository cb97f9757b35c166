package hotkeys

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

// Modifier is a bit set of accelerator modifiers
type Modifier uint8

const (
	ModCommand Modifier = 1 << iota
	ModControl
	ModAlt
	ModShift
	ModSuper
)

var modifierNames = []struct {
	mod  Modifier
	name string
}{
	{ModCommand, "Command"},
	{ModControl, "Control"},
	{ModAlt, "Alt"},
	{ModShift, "Shift"},
	{ModSuper, "Super"},
}

// Accelerator is a parsed shortcut such as "Command+Control+C"
type Accelerator struct {
	Modifiers Modifier
	// Key is upper-case: "C", "5", "F1", "SPACE", "ENTER"
	Key string
}

var namedKeys = map[string]string{
	"SPACE":  "SPACE",
	"ENTER":  "ENTER",
	"RETURN": "ENTER",
	"ESC":    "ESCAPE",
	"ESCAPE": "ESCAPE",
	"TAB":    "TAB",
	"DELETE": "DELETE",
	"UP":     "UP",
	"DOWN":   "DOWN",
	"LEFT":   "LEFT",
	"RIGHT":  "RIGHT",
}

// ParseAccelerator parses an Electron-style accelerator string. Modifier
// names are case-insensitive; CommandOrControl resolves per platform.
func ParseAccelerator(s string) (Accelerator, error) {
	var acc Accelerator

	parts := strings.Split(s, "+")
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return Accelerator{}, fmt.Errorf("invalid accelerator %q: empty part", s)
		}

		if i < len(parts)-1 {
			mod, ok := parseModifier(part)
			if !ok {
				return Accelerator{}, fmt.Errorf("invalid accelerator %q: unknown modifier %q", s, part)
			}
			acc.Modifiers |= mod
			continue
		}

		key, ok := parseKey(part)
		if !ok {
			return Accelerator{}, fmt.Errorf("invalid accelerator %q: unknown key %q", s, part)
		}
		acc.Key = key
	}

	if acc.Modifiers == 0 {
		return Accelerator{}, fmt.Errorf("invalid accelerator %q: at least one modifier required", s)
	}
	return acc, nil
}

func parseModifier(s string) (Modifier, bool) {
	switch strings.ToLower(s) {
	case "command", "cmd":
		return ModCommand, true
	case "control", "ctrl":
		return ModControl, true
	case "alt", "option":
		return ModAlt, true
	case "shift":
		return ModShift, true
	case "super", "win", "meta":
		return ModSuper, true
	case "commandorcontrol", "cmdorctrl":
		if runtime.GOOS == "darwin" {
			return ModCommand, true
		}
		return ModControl, true
	}
	return 0, false
}

func parseKey(s string) (string, bool) {
	up := strings.ToUpper(s)
	if len(up) == 1 && ((up[0] >= 'A' && up[0] <= 'Z') || (up[0] >= '0' && up[0] <= '9')) {
		return up, true
	}
	if named, ok := namedKeys[up]; ok {
		return named, true
	}
	if n, ok := strings.CutPrefix(up, "F"); ok {
		if num, err := strconv.Atoi(n); err == nil && num >= 1 && num <= 12 && strconv.Itoa(num) == n {
			return up, true
		}
	}
	return "", false
}

// String renders the canonical form, e.g. "Command+Control+C"
func (a Accelerator) String() string {
	var parts []string
	for _, m := range modifierNames {
		if a.Modifiers&m.mod != 0 {
			parts = append(parts, m.name)
		}
	}
	parts = append(parts, displayKey(a.Key))
	return strings.Join(parts, "+")
}

func displayKey(k string) string {
	if len(k) <= 1 || k[0] == 'F' {
		return k
	}
	return k[:1] + strings.ToLower(k[1:])
}
