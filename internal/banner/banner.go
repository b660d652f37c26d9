// Package banner draws a short-lived on-screen note naming the active user
// after a switch.
package banner

import (
	"fmt"
	"strings"
)

const (
	margin     = 12
	paddingX   = 10
	paddingY   = 8
	lineHeight = 16
	charWidth  = 7
	minWidth   = 180
	// ImageText8 takes at most 255 bytes.
	maxLineBytes = 255
)

// Corner is where the banner is placed on the screen.
type Corner string

const (
	TopRight    Corner = "top-right"
	TopLeft     Corner = "top-left"
	BottomRight Corner = "bottom-right"
	BottomLeft  Corner = "bottom-left"
)

// ParseCorner accepts the corner names used in the config file.
func ParseCorner(s string) (Corner, bool) {
	switch c := Corner(strings.ToLower(strings.TrimSpace(s))); c {
	case TopRight, TopLeft, BottomRight, BottomLeft:
		return c, true
	case "":
		return TopRight, true
	}
	return "", false
}

// Rect is a screen area in pixels.
type Rect struct {
	X, Y, Width, Height int
}

// Summary is what the banner reports about the new desktop.
type Summary struct {
	User string
	// Windows counts owned windows shown on the user's desktop.
	Windows int
	// Guests counts windows on the desktop that other users own.
	Guests int
	// Away counts the user's own windows shown on other desktops.
	Away int
}

// Lines renders s as banner text.
func Lines(s Summary) []string {
	lines := []string{"desktop: " + s.User, plural(s.Windows, "window")}
	if s.Guests > 0 {
		lines = append(lines, fmt.Sprintf("%d from other users", s.Guests))
	}
	if s.Away > 0 {
		lines = append(lines, fmt.Sprintf("%d shown elsewhere", s.Away))
	}
	return lines
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// size returns the pixel size of a panel holding lines in the core "fixed"
// font.
func size(lines []string) (width, height int) {
	maxChars := 0
	for _, line := range lines {
		if n := len(clip(line)); n > maxChars {
			maxChars = n
		}
	}
	width = max(maxChars*charWidth+2*paddingX, minWidth)
	height = len(lines)*lineHeight + 2*paddingY
	return width, height
}

// place positions a width x height panel in corner of bounds, shrinking it
// to fit.
func place(bounds Rect, corner Corner, width, height int) Rect {
	width = min(width, max(bounds.Width-2*margin, 1))
	height = min(height, max(bounds.Height-2*margin, 1))

	left := bounds.X + margin
	right := max(bounds.X+bounds.Width-margin-width, left)
	top := bounds.Y + margin
	bottom := max(bounds.Y+bounds.Height-margin-height, top)

	r := Rect{X: right, Y: top, Width: width, Height: height}
	switch corner {
	case TopLeft:
		r.X = left
	case BottomRight:
		r.Y = bottom
	case BottomLeft:
		r.X, r.Y = left, bottom
	}
	return r
}

func clip(line string) string {
	if len(line) > maxLineBytes {
		return line[:maxLineBytes]
	}
	return line
}
