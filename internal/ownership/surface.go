package ownership

import "time"

// SurfaceID is an opaque handle to a top-level window or a transient child.
// On X11 it is the window id. The manager never dereferences it; it is only
// used as a map key.
type SurfaceID uint32

// UserID names a logged-in user. The empty string means "unset" and is never
// a valid owner.
type UserID string

// Host is the windowing system the manager drives. Every call happens on the
// event loop that owns the Manager.
type Host interface {
	// Show makes the surface itself visible. Transient children are not
	// affected.
	Show(s SurfaceID, d time.Duration)
	// Hide makes the surface and all of its transient descendants invisible.
	Hide(s SurfaceID, d time.Duration)
	IsVisible(s SurfaceID) bool
	TransientParent(s SurfaceID) (SurfaceID, bool)
	TransientChildren(s SurfaceID) []SurfaceID
	IsSystemModal(s SurfaceID) bool
}

// OpacityHost is implemented by hosts that can fade surfaces during a user
// switch. Hosts without it get an instant switch at animation completion.
type OpacityHost interface {
	SetOpacity(s SurfaceID, opacity float64)
}

// Mode selects how windows of several users share the display.
type Mode int

const (
	// ModeSeparated shows each user's windows only on that user's desktop.
	ModeSeparated Mode = iota
	// ModeMixed shows all windows on every desktop. Used for testing.
	ModeMixed
	// ModeOff disables desktop separation; only one user is signed in.
	ModeOff
)

func (m Mode) String() string {
	switch m {
	case ModeOff:
		return "off"
	case ModeSeparated:
		return "separated"
	case ModeMixed:
		return "mixed"
	default:
		return "unknown"
	}
}

// ParseMode converts a config value into a Mode.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "off":
		return ModeOff, true
	case "separated", "":
		return ModeSeparated, true
	case "mixed":
		return ModeMixed, true
	default:
		return ModeOff, false
	}
}

// AnimationSpeed scales all animation durations.
type AnimationSpeed int

const (
	AnimationSpeedNormal AnimationSpeed = iota
	AnimationSpeedFast
	AnimationSpeedDisabled
)

func (s AnimationSpeed) String() string {
	switch s {
	case AnimationSpeedNormal:
		return "normal"
	case AnimationSpeedFast:
		return "fast"
	case AnimationSpeedDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// ParseAnimationSpeed converts a config value into an AnimationSpeed.
func ParseAnimationSpeed(s string) (AnimationSpeed, bool) {
	switch s {
	case "normal", "":
		return AnimationSpeedNormal, true
	case "fast":
		return AnimationSpeedFast, true
	case "disabled":
		return AnimationSpeedDisabled, true
	default:
		return AnimationSpeedNormal, false
	}
}

// Default durations.
const (
	DefaultUserSwitchDuration = 110 * time.Millisecond
	DefaultTeleportDuration   = 300 * time.Millisecond
	DefaultTransientDuration  = 100 * time.Millisecond

	fastAnimationDuration = 10 * time.Millisecond
)

// adjust maps a default duration onto the given speed.
func (s AnimationSpeed) adjust(d time.Duration) time.Duration {
	switch s {
	case AnimationSpeedFast:
		if d <= 0 {
			return 0
		}
		return fastAnimationDuration
	case AnimationSpeedDisabled:
		return 0
	default:
		return d
	}
}
