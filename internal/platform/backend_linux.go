//go:build linux

package platform

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"

	"github.com/1broseidon/multidesk/internal/ownership"
	"github.com/1broseidon/multidesk/internal/x11"
)

// LinuxBackend drives X11 windows for the ownership manager. It keeps its
// own view of map state and transient relations, fed by X events the daemon
// forwards through the Note methods. It is not safe for concurrent use.
type LinuxBackend struct {
	conn   *x11.Connection
	logger *slog.Logger

	windows    map[WindowID]*Window
	transients *transientIndex
	echoes     *echoTracker
	handlers   x11.WindowHandlers
}

var _ Backend = (*LinuxBackend)(nil)

// NewLinuxBackend wraps an existing X11 connection.
func NewLinuxBackend(conn *x11.Connection, logger *slog.Logger) *LinuxBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &LinuxBackend{
		conn:       conn,
		logger:     logger,
		windows:    make(map[WindowID]*Window),
		transients: newTransientIndex(),
		echoes:     newEchoTracker(),
	}
}

// Disconnect closes the underlying X11 connection.
func (b *LinuxBackend) Disconnect() {
	if b != nil && b.conn != nil {
		b.conn.Close()
	}
}

// EventLoop starts the X11 event loop (blocking).
func (b *LinuxBackend) EventLoop() {
	if b != nil && b.conn != nil {
		b.conn.EventLoop()
	}
}

// XUtil returns the underlying xgbutil connection for X11-specific operations.
func (b *LinuxBackend) XUtil() *xgbutil.XUtil {
	if b == nil || b.conn == nil {
		return nil
	}
	return b.conn.XUtil
}

// RootWindow returns the root window of the default screen.
func (b *LinuxBackend) RootWindow() xproto.Window {
	if b == nil || b.conn == nil {
		return 0
	}
	return b.conn.Root
}

// Connection returns the X11 connection.
func (b *LinuxBackend) Connection() *x11.Connection {
	return b.conn
}

// Show maps the window. Transient children are left alone.
func (b *LinuxBackend) Show(s ownership.SurfaceID, _ time.Duration) {
	b.setMapped(s, true)
}

// Hide unmaps the window and all of its transient descendants, deepest
// first. X does not do this on its own because transients are separate
// top-level windows.
func (b *LinuxBackend) Hide(s ownership.SurfaceID, _ time.Duration) {
	b.hideDeep(s, make(map[WindowID]struct{}))
}

func (b *LinuxBackend) hideDeep(s WindowID, seen map[WindowID]struct{}) {
	if _, ok := seen[s]; ok {
		return
	}
	seen[s] = struct{}{}
	for _, child := range b.transients.childrenOf(s) {
		b.hideDeep(child, seen)
	}
	b.setMapped(s, false)
}

func (b *LinuxBackend) setMapped(s WindowID, visible bool) {
	w, ok := b.windows[s]
	if !ok || w.Visible == visible {
		return
	}
	var err error
	if visible {
		err = b.conn.MapWindow(xproto.Window(s))
	} else {
		err = b.conn.UnmapWindow(xproto.Window(s))
	}
	if err != nil {
		b.logger.Warn("failed to change window visibility", "window", s, "visible", visible, "error", err)
		return
	}
	w.Visible = visible
	b.echoes.expect(s, visible)
}

func (b *LinuxBackend) IsVisible(s ownership.SurfaceID) bool {
	w, ok := b.windows[s]
	return ok && w.Visible
}

func (b *LinuxBackend) TransientParent(s ownership.SurfaceID) (ownership.SurfaceID, bool) {
	return b.transients.parentOf(s)
}

func (b *LinuxBackend) TransientChildren(s ownership.SurfaceID) []ownership.SurfaceID {
	return b.transients.childrenOf(s)
}

// IsSystemModal treats _NET_WM_STATE_MODAL as system modal. X11 has no
// separate application-modal state.
func (b *LinuxBackend) IsSystemModal(s ownership.SurfaceID) bool {
	w, ok := b.windows[s]
	return ok && w.Modal
}

// SetOpacity writes _NET_WM_WINDOW_OPACITY. Without a compositor it has no
// visible effect and the switch still completes.
func (b *LinuxBackend) SetOpacity(s ownership.SurfaceID, opacity float64) {
	if _, ok := b.windows[s]; !ok {
		return
	}
	if err := b.conn.SetOpacity(xproto.Window(s), opacity); err != nil {
		b.logger.Debug("failed to set opacity", "window", s, "error", err)
	}
}

// Windows returns every tracked window sorted by id.
func (b *LinuxBackend) Windows() []Window {
	out := make([]Window, 0, len(b.windows))
	for _, w := range b.windows {
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (b *LinuxBackend) Window(id WindowID) (Window, bool) {
	w, ok := b.windows[id]
	if !ok {
		return Window{}, false
	}
	return *w, true
}

// Focus activates the window through the window manager.
func (b *LinuxBackend) Focus(id WindowID) error {
	if _, ok := b.windows[id]; !ok {
		return fmt.Errorf("unknown window 0x%x", uint32(id))
	}
	return b.conn.FocusWindow(xproto.Window(id))
}

// Adopt starts tracking a top-level window and returns its metadata. It
// returns false for windows that should never be owned.
func (b *LinuxBackend) Adopt(id WindowID) (Window, bool) {
	if w, ok := b.windows[id]; ok {
		return *w, true
	}
	xwin := xproto.Window(id)
	if b.conn.IsOverrideRedirect(xwin) {
		return Window{}, false
	}
	visible, err := b.conn.IsViewable(xwin)
	if err != nil {
		// The window is already gone.
		return Window{}, false
	}
	instance, class := b.conn.WindowClass(xwin)
	w := &Window{
		ID:       id,
		Instance: instance,
		Class:    class,
		Title:    b.conn.WindowTitle(xwin),
		Visible:  visible,
		Modal:    b.conn.IsModal(xwin),
	}
	if parent, ok := b.conn.TransientFor(xwin); ok {
		w.TransientFor = WindowID(parent)
		b.transients.set(id, w.TransientFor)
	}
	b.windows[id] = w
	return *w, true
}

// IsNormal reports whether the window type makes it eligible for ownership.
func (b *LinuxBackend) IsNormal(id WindowID) bool {
	return b.conn.IsNormalWindow(xproto.Window(id))
}

// NoteMapState records a MapNotify or UnmapNotify. It reports whether the
// state actually changed and whether the change echoes a Show or Hide issued
// by this backend.
func (b *LinuxBackend) NoteMapState(id WindowID, visible bool) (changed, selfCaused bool) {
	w, ok := b.windows[id]
	if !ok {
		return false, false
	}
	selfCaused = b.echoes.match(id, visible)
	if selfCaused {
		// Already recorded when the request was sent.
		return false, true
	}
	if w.Visible == visible {
		return false, false
	}
	w.Visible = visible
	return true, false
}

// NoteTransientFor re-reads WM_TRANSIENT_FOR. It returns the old and new
// parents, zero meaning none, and whether they differ.
func (b *LinuxBackend) NoteTransientFor(id WindowID) (oldParent, newParent WindowID, changed bool) {
	w, ok := b.windows[id]
	if !ok {
		return 0, 0, false
	}
	if parent, ok := b.conn.TransientFor(xproto.Window(id)); ok {
		newParent = WindowID(parent)
	}
	oldParent = w.TransientFor
	if oldParent == newParent {
		return oldParent, newParent, false
	}
	w.TransientFor = newParent
	b.transients.set(id, newParent)
	return oldParent, newParent, true
}

// NoteWindowState re-reads _NET_WM_STATE for the modal flag.
func (b *LinuxBackend) NoteWindowState(id WindowID) {
	if w, ok := b.windows[id]; ok {
		w.Modal = b.conn.IsModal(xproto.Window(id))
	}
}

// Forget stops tracking a window and drops its event callbacks. Its
// transient children lose their parent and are returned.
func (b *LinuxBackend) Forget(id WindowID) []WindowID {
	b.conn.UntrackWindow(xproto.Window(id))
	delete(b.windows, id)
	b.echoes.forget(id)
	orphans := b.transients.remove(id)
	for _, c := range orphans {
		if w, ok := b.windows[c]; ok {
			w.TransientFor = 0
		}
	}
	return orphans
}

// Exists reports whether the X server still knows the window.
func (b *LinuxBackend) Exists(id WindowID) bool {
	_, err := b.conn.IsViewable(xproto.Window(id))
	return err == nil
}

// Listen installs h for new top-level windows and remembers it for Watch.
func (b *LinuxBackend) Listen(h x11.WindowHandlers) error {
	b.handlers = h
	return b.conn.ListenRoot(h)
}

// Watch subscribes to map, unmap, destroy and property events of id using
// the handlers given to Listen.
func (b *LinuxBackend) Watch(id WindowID) error {
	return b.conn.TrackWindow(xproto.Window(id), b.handlers)
}

// Refresh re-reads the class, title and modal state of a tracked window.
// Clients often set WM_CLASS after the window is created.
func (b *LinuxBackend) Refresh(id WindowID) (Window, bool) {
	w, ok := b.windows[id]
	if !ok {
		return Window{}, false
	}
	xwin := xproto.Window(id)
	w.Instance, w.Class = b.conn.WindowClass(xwin)
	w.Title = b.conn.WindowTitle(xwin)
	w.Modal = b.conn.IsModal(xwin)
	return *w, true
}

// ClientWindows returns the window manager's client list.
func (b *LinuxBackend) ClientWindows() ([]WindowID, error) {
	clients, err := b.conn.ClientList()
	if err != nil {
		return nil, err
	}
	out := make([]WindowID, 0, len(clients))
	for _, c := range clients {
		out = append(out, WindowID(c))
	}
	return out, nil
}

// Tracked reports whether Adopt has been called for id.
func (b *LinuxBackend) Tracked(id WindowID) bool {
	_, ok := b.windows[id]
	return ok
}
