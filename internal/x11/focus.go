package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
)

// FocusWindow activates and raises a window using _NET_ACTIVE_WINDOW.
// The client message is built by hand because the xgbutil ewmh request
// helpers panic on this library version.
func (c *Connection) FocusWindow(win xproto.Window) error {
	const sourceIndication = 2 // pager/direct action
	if err := c.sendRootMessage(win, "_NET_ACTIVE_WINDOW", sourceIndication, 0, 0, 0, 0); err != nil {
		return fmt.Errorf("failed to focus window 0x%x: %w", uint32(win), err)
	}
	return nil
}

func (c *Connection) sendRootMessage(win xproto.Window, messageType string, data ...uint32) error {
	atom := c.atom(messageType)
	if atom == xproto.AtomNone {
		return fmt.Errorf("failed to intern %s", messageType)
	}
	payload := make([]uint32, 5)
	copy(payload, data)
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: win,
		Type:   atom,
		Data:   xproto.ClientMessageDataUnionData32New(payload),
	}

	return xproto.SendEventChecked(
		c.XUtil.Conn(),
		false,
		c.Root,
		xproto.EventMaskSubstructureRedirect|xproto.EventMaskSubstructureNotify,
		string(ev.Bytes()),
	).Check()
}
