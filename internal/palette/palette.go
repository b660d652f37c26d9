// Package palette shows a rofi or dmenu picker for switching users and
// moving windows between desktops.
package palette

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrCancelled is returned when the picker is closed without a selection.
var ErrCancelled = errors.New("palette cancelled")

// Exit codes of the launcher process.
const (
	ExitNormal    = 0
	ExitCancelled = 1
	// ExitAlternate is rofi's kb-custom-1, bound to Alt+Return.
	ExitAlternate = 10
)

// Item is one row of the picker.
type Item struct {
	Label    string
	Action   string // returned on selection
	Icon     string // rofi -show-icons name
	Meta     string // extra search keywords
	IsHeader bool   // non-selectable section title
	IsActive bool
	IsUrgent bool
}

// SelectResult is the chosen item and how it was chosen.
type SelectResult struct {
	Item     Item
	ExitCode int
}

// Alternate reports whether the row was accepted with Alt+Return.
func (r SelectResult) Alternate() bool {
	return r.ExitCode == ExitAlternate
}

// Backend shows items and returns the selected one.
type Backend interface {
	Show(prompt string, items []Item, message string) (SelectResult, error)
	// Rich reports whether headers, icons and row states render.
	Rich() bool
}

// NewBackend creates a backend by name: auto, rofi or dmenu.
func NewBackend(name string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		name, err := DetectBackend()
		if err != nil {
			return nil, err
		}
		return NewBackend(name)
	case "rofi":
		if _, err := exec.LookPath("rofi"); err != nil {
			return nil, fmt.Errorf("palette backend %q not found in PATH", "rofi")
		}
		return newLauncher(kindRofi), nil
	case "dmenu":
		if _, err := exec.LookPath("dmenu"); err != nil {
			return nil, fmt.Errorf("palette backend %q not found in PATH", "dmenu")
		}
		return newLauncher(kindDmenu), nil
	default:
		return nil, fmt.Errorf("unknown palette backend: %q (expected: auto, rofi, dmenu)", name)
	}
}

// DetectBackend returns the first of rofi or dmenu found in PATH.
func DetectBackend() (string, error) {
	for _, name := range []string{"rofi", "dmenu"} {
		if _, err := exec.LookPath(name); err == nil {
			return name, nil
		}
	}
	return "", fmt.Errorf("no palette backend found in PATH (looked for: rofi, dmenu)")
}
