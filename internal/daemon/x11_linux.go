//go:build linux

package daemon

import (
	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/multidesk/internal/platform"
	"github.com/1broseidon/multidesk/internal/x11"
)

// Handlers forwards X structure events to s. They run on the X event
// goroutine and only post into the service loop.
func Handlers(s *Service) x11.WindowHandlers {
	return x11.WindowHandlers{
		Created: func(win xproto.Window) {
			s.WindowCreated(platform.WindowID(win))
		},
		Destroyed: func(win xproto.Window) {
			s.WindowDestroyed(platform.WindowID(win))
		},
		Mapped: func(win xproto.Window) {
			s.WindowMapState(platform.WindowID(win), true)
		},
		Unmapped: func(win xproto.Window) {
			s.WindowMapState(platform.WindowID(win), false)
		},
		PropertyChanged: func(win xproto.Window, name string) {
			s.WindowPropertyChanged(platform.WindowID(win), name)
		},
	}
}
