package platform

import "github.com/1broseidon/multidesk/internal/ownership"

// WindowID is a platform-neutral window identifier.
type WindowID = ownership.SurfaceID

// Window contains metadata for a top-level window.
type Window struct {
	ID           WindowID
	Instance     string
	Class        string
	Title        string
	Visible      bool
	TransientFor WindowID
	Modal        bool
}

// Backend abstracts window-system operations across platforms. Besides
// driving visibility for the ownership manager it reports the windows it
// knows about.
type Backend interface {
	ownership.Host
	ownership.OpacityHost
	Windows() []Window
	Window(id WindowID) (Window, bool)
	Focus(id WindowID) error
}
