package palette

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"os/exec"
	"strconv"
	"strings"
)

type launcherKind int

const (
	kindRofi launcherKind = iota
	kindDmenu
)

// launcher runs rofi or dmenu in dmenu mode, feeding rows on stdin.
type launcher struct {
	command string
	kind    launcherKind
}

type rowStates struct {
	active      []int
	urgent      []int
	selectedRow int
}

func newLauncher(kind launcherKind) *launcher {
	if kind == kindRofi {
		return &launcher{command: "rofi", kind: kindRofi}
	}
	return &launcher{command: "dmenu", kind: kindDmenu}
}

func (l *launcher) Rich() bool {
	return l.kind == kindRofi
}

func (l *launcher) Show(prompt string, items []Item, message string) (SelectResult, error) {
	rows := l.visibleItems(items)
	if len(rows) == 0 {
		return SelectResult{}, fmt.Errorf("palette: no items to show")
	}

	input, states := l.formatInput(rows)
	cmd := exec.Command(l.command, l.buildArgs(prompt, message, states)...)
	cmd.Stdin = strings.NewReader(input)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	selection := strings.TrimSpace(string(out))

	exitCode := ExitNormal
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return SelectResult{}, fmt.Errorf("%s failed: %w", l.command, err)
		}
		exitCode = exitErr.ExitCode()
		if selection == "" && (exitCode == ExitCancelled || exitCode == 130) {
			return SelectResult{}, ErrCancelled
		}
		if exitCode != ExitAlternate {
			if msg := strings.TrimSpace(stderr.String()); msg != "" {
				return SelectResult{}, fmt.Errorf("%s failed: %s", l.command, msg)
			}
			return SelectResult{}, fmt.Errorf("%s failed: %w", l.command, err)
		}
	}
	if selection == "" {
		return SelectResult{}, ErrCancelled
	}

	item, err := l.parseSelection(selection, rows)
	if err != nil {
		return SelectResult{}, err
	}
	return SelectResult{Item: item, ExitCode: exitCode}, nil
}

// visibleItems drops headers dmenu cannot render and disambiguates equal
// labels, since dmenu selections are matched by text.
func (l *launcher) visibleItems(items []Item) []Item {
	if l.kind == kindRofi {
		return items
	}
	out := make([]Item, 0, len(items))
	seen := make(map[string]int)
	for _, item := range items {
		if item.IsHeader {
			continue
		}
		label := sanitizeLabel(item.Label)
		if n := seen[label]; n > 0 {
			item.Label = fmt.Sprintf("%s (%d)", label, n+1)
		}
		seen[label]++
		out = append(out, item)
	}
	return out
}

func (l *launcher) buildArgs(prompt, message string, states rowStates) []string {
	if l.kind == kindDmenu {
		args := []string{"-i"}
		if prompt != "" {
			args = append(args, "-p", prompt)
		}
		return args
	}

	args := []string{"-dmenu", "-i"}
	if prompt != "" {
		args = append(args, "-p", prompt)
	}
	// Index output survives labels containing markup or separators.
	args = append(args, "-format", "i", "-no-custom", "-markup-rows", "-show-icons")
	if len(states.active) > 0 {
		args = append(args, "-a", formatIndices(states.active))
	}
	if len(states.urgent) > 0 {
		args = append(args, "-u", formatIndices(states.urgent))
	}
	args = append(args, "-selected-row", strconv.Itoa(states.selectedRow))
	args = append(args, "-kb-custom-1", "Alt+Return")
	if message != "" {
		args = append(args, "-mesg", message)
	}
	return args
}

func (l *launcher) formatInput(items []Item) (string, rowStates) {
	lines := make([]string, 0, len(items))
	states := rowStates{selectedRow: -1}
	firstSelectable := -1

	for i, item := range items {
		lines = append(lines, l.formatItem(item))
		if item.IsHeader {
			continue
		}
		if firstSelectable == -1 {
			firstSelectable = i
		}
		if item.IsActive {
			states.active = append(states.active, i)
			if states.selectedRow == -1 {
				states.selectedRow = i
			}
		}
		if item.IsUrgent {
			states.urgent = append(states.urgent, i)
		}
	}
	if states.selectedRow == -1 {
		states.selectedRow = max(firstSelectable, 0)
	}
	return strings.Join(lines, "\n"), states
}

func (l *launcher) formatItem(item Item) string {
	display := sanitizeLabel(item.Label)
	if l.kind != kindRofi {
		return display
	}

	display = html.EscapeString(display)
	if item.IsHeader {
		display = "<b>" + display + "</b>"
	}

	// Row properties follow a single NUL, as key\x1fvalue pairs.
	var attrs []string
	if item.IsHeader {
		attrs = append(attrs, "nonselectable", "true")
	}
	if item.Icon != "" {
		attrs = append(attrs, "icon", sanitizeRofiField(item.Icon))
	}
	if item.Meta != "" {
		attrs = append(attrs, "meta", sanitizeRofiField(item.Meta))
	}
	if len(attrs) == 0 {
		return display
	}
	return display + "\x00" + strings.Join(attrs, "\x1f")
}

func (l *launcher) parseSelection(selection string, items []Item) (Item, error) {
	if l.kind == kindRofi {
		if idx, err := strconv.Atoi(selection); err == nil {
			if idx < 0 || idx >= len(items) {
				return Item{}, fmt.Errorf("palette: index %d out of range", idx)
			}
			return items[idx], nil
		}
	}
	for _, item := range items {
		if sanitizeLabel(item.Label) == selection {
			return item, nil
		}
	}
	return Item{}, fmt.Errorf("palette: unknown selection %q", selection)
}

func sanitizeLabel(label string) string {
	label = strings.ReplaceAll(label, "\r", " ")
	label = strings.ReplaceAll(label, "\n", " ")
	return strings.TrimSpace(label)
}

func sanitizeRofiField(value string) string {
	value = strings.ReplaceAll(value, "\x00", " ")
	value = strings.ReplaceAll(value, "\x1f", " ")
	return sanitizeLabel(value)
}

func formatIndices(indices []int) string {
	parts := make([]string, 0, len(indices))
	for _, i := range indices {
		parts = append(parts, strconv.Itoa(i))
	}
	return strings.Join(parts, ",")
}
