package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// WindowHandlers receives structure notifications. Callbacks run on the
// goroutine executing EventLoop. Nil callbacks are skipped.
type WindowHandlers struct {
	Created   func(win xproto.Window)
	Destroyed func(win xproto.Window)
	Mapped    func(win xproto.Window)
	Unmapped  func(win xproto.Window)
	// PropertyChanged fires for WM_TRANSIENT_FOR and _NET_WM_STATE.
	PropertyChanged func(win xproto.Window, name string)
}

// ListenRoot selects SubstructureNotify on the root window so every new
// top-level window is reported through h.Created.
func (c *Connection) ListenRoot(h WindowHandlers) error {
	root := xwindow.New(c.XUtil, c.Root)
	if err := root.Listen(xproto.EventMaskSubstructureNotify); err != nil {
		return fmt.Errorf("failed to listen on root window: %w", err)
	}
	if h.Created != nil {
		xevent.CreateNotifyFun(func(xu *xgbutil.XUtil, ev xevent.CreateNotifyEvent) {
			if ev.OverrideRedirect {
				return
			}
			h.Created(ev.Window)
		}).Connect(c.XUtil, c.Root)
	}
	return nil
}

// TrackWindow selects structure and property events on win itself, so they
// keep arriving after a window manager reparents it into a frame.
func (c *Connection) TrackWindow(win xproto.Window, h WindowHandlers) error {
	w := xwindow.New(c.XUtil, win)
	if err := w.Listen(xproto.EventMaskStructureNotify, xproto.EventMaskPropertyChange); err != nil {
		return fmt.Errorf("failed to listen on window 0x%x: %w", uint32(win), err)
	}

	if h.Mapped != nil {
		xevent.MapNotifyFun(func(xu *xgbutil.XUtil, ev xevent.MapNotifyEvent) {
			if ev.Window == win {
				h.Mapped(win)
			}
		}).Connect(c.XUtil, win)
	}
	if h.Unmapped != nil {
		xevent.UnmapNotifyFun(func(xu *xgbutil.XUtil, ev xevent.UnmapNotifyEvent) {
			if ev.Window == win {
				h.Unmapped(win)
			}
		}).Connect(c.XUtil, win)
	}
	xevent.DestroyNotifyFun(func(xu *xgbutil.XUtil, ev xevent.DestroyNotifyEvent) {
		if ev.Window != win {
			return
		}
		xevent.Detach(xu, win)
		if h.Destroyed != nil {
			h.Destroyed(win)
		}
	}).Connect(c.XUtil, win)

	if h.PropertyChanged != nil {
		transientFor := xproto.Atom(xproto.AtomWmTransientFor)
		wmState := c.atom("_NET_WM_STATE")
		xevent.PropertyNotifyFun(func(xu *xgbutil.XUtil, ev xevent.PropertyNotifyEvent) {
			switch ev.Atom {
			case transientFor:
				h.PropertyChanged(win, "WM_TRANSIENT_FOR")
			case wmState:
				h.PropertyChanged(win, "_NET_WM_STATE")
			}
		}).Connect(c.XUtil, win)
	}
	return nil
}

// UntrackWindow drops every callback registered for win.
func (c *Connection) UntrackWindow(win xproto.Window) {
	xevent.Detach(c.XUtil, win)
}

func (c *Connection) atom(name string) xproto.Atom {
	a, err := xprop.Atm(c.XUtil, name)
	if err != nil {
		return xproto.AtomNone
	}
	return a
}
