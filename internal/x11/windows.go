package x11

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
)

// MapWindow asks the server to map the window. A reparenting window manager
// turns this into a MapRequest and manages the window again.
func (c *Connection) MapWindow(win xproto.Window) error {
	if err := xproto.MapWindowChecked(c.XUtil.Conn(), win).Check(); err != nil {
		return fmt.Errorf("map window 0x%x: %w", uint32(win), err)
	}
	return nil
}

// UnmapWindow withdraws the window. The server unmaps all of its
// subwindows with it.
func (c *Connection) UnmapWindow(win xproto.Window) error {
	if err := xproto.UnmapWindowChecked(c.XUtil.Conn(), win).Check(); err != nil {
		return fmt.Errorf("unmap window 0x%x: %w", uint32(win), err)
	}
	return nil
}

// IsViewable reports whether the window is mapped and all of its ancestors
// are mapped.
func (c *Connection) IsViewable(win xproto.Window) (bool, error) {
	attrs, err := xproto.GetWindowAttributes(c.XUtil.Conn(), win).Reply()
	if err != nil {
		return false, fmt.Errorf("get attributes of 0x%x: %w", uint32(win), err)
	}
	return attrs.MapState == xproto.MapStateViewable, nil
}

// IsOverrideRedirect reports windows such as menus and tooltips that the
// window manager never sees.
func (c *Connection) IsOverrideRedirect(win xproto.Window) bool {
	attrs, err := xproto.GetWindowAttributes(c.XUtil.Conn(), win).Reply()
	if err != nil {
		return false
	}
	return attrs.OverrideRedirect
}

// TransientFor returns the WM_TRANSIENT_FOR parent of win. Windows that are
// transient for the root or for None have no parent.
func (c *Connection) TransientFor(win xproto.Window) (xproto.Window, bool) {
	parent, err := icccm.WmTransientForGet(c.XUtil, win)
	if err != nil || parent == 0 || parent == c.Root || parent == win {
		return 0, false
	}
	return parent, true
}

// IsModal reports whether _NET_WM_STATE contains _NET_WM_STATE_MODAL.
func (c *Connection) IsModal(win xproto.Window) bool {
	states, err := ewmh.WmStateGet(c.XUtil, win)
	if err != nil {
		return false
	}
	for _, state := range states {
		if state == "_NET_WM_STATE_MODAL" {
			return true
		}
	}
	return false
}

// SetOpacity sets _NET_WM_WINDOW_OPACITY, honoured by compositing managers.
// An opacity of 1 removes the property.
func (c *Connection) SetOpacity(win xproto.Window, opacity float64) error {
	if opacity >= 1 {
		err := xproto.DeletePropertyChecked(c.XUtil.Conn(), win, c.atom("_NET_WM_WINDOW_OPACITY")).Check()
		if err != nil {
			return fmt.Errorf("clear opacity of 0x%x: %w", uint32(win), err)
		}
		return nil
	}
	if opacity < 0 {
		opacity = 0
	}
	if err := ewmh.WmWindowOpacitySet(c.XUtil, win, opacity); err != nil {
		return fmt.Errorf("set opacity of 0x%x: %w", uint32(win), err)
	}
	return nil
}

// WindowClass returns the WM_CLASS instance and class names.
func (c *Connection) WindowClass(win xproto.Window) (instance, class string) {
	wmClass, err := icccm.WmClassGet(c.XUtil, win)
	if err != nil || wmClass == nil {
		return "", ""
	}
	return strings.TrimSpace(wmClass.Instance), strings.TrimSpace(wmClass.Class)
}

// WindowTitle prefers _NET_WM_NAME and falls back to WM_NAME.
func (c *Connection) WindowTitle(win xproto.Window) string {
	title, err := ewmh.WmNameGet(c.XUtil, win)
	if err == nil {
		title = strings.TrimSpace(title)
		if title != "" {
			return title
		}
	}

	title, err = icccm.WmNameGet(c.XUtil, win)
	if err == nil {
		return strings.TrimSpace(title)
	}
	return ""
}

// IsNormalWindow checks if a window is an application window the user
// interacts with. Docks, desktops and notifications are never owned.
func (c *Connection) IsNormalWindow(win xproto.Window) bool {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, win)
	if err != nil {
		// If we can't determine type, assume it's normal
		return true
	}

	for _, t := range types {
		switch t {
		case "_NET_WM_WINDOW_TYPE_NORMAL", "_NET_WM_WINDOW_TYPE_DIALOG", "_NET_WM_WINDOW_TYPE_UTILITY":
			return true
		case "_NET_WM_WINDOW_TYPE_DESKTOP",
			"_NET_WM_WINDOW_TYPE_DOCK",
			"_NET_WM_WINDOW_TYPE_SPLASH",
			"_NET_WM_WINDOW_TYPE_NOTIFICATION":
			return false
		}
	}

	// If no specific type is set, assume it's normal
	return len(types) == 0
}

// ClientList returns _NET_CLIENT_LIST.
func (c *Connection) ClientList() ([]xproto.Window, error) {
	clients, err := ewmh.ClientListGet(c.XUtil)
	if err != nil {
		return nil, fmt.Errorf("failed to get client list: %w", err)
	}
	return clients, nil
}
