package daemon

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/1broseidon/multidesk/internal/ownership"
	"github.com/1broseidon/multidesk/internal/platform"
)

// fakeWindows behaves like the X11 backend: Show and Hide change state
// immediately and their echoes are swallowed, Hide takes transient
// descendants along, and external changes arrive through NoteMapState.
type fakeWindows struct {
	server  map[platform.WindowID]*platform.Window // what the X server knows
	tracked map[platform.WindowID]bool
	normal  map[platform.WindowID]bool
	watched map[platform.WindowID]int
	opacity map[platform.WindowID]float64
	focused platform.WindowID
	// nextParent is what WM_TRANSIENT_FOR reads as after a property change.
	nextParent map[platform.WindowID]platform.WindowID
}

var _ WindowSystem = (*fakeWindows)(nil)

func newFakeWindows() *fakeWindows {
	return &fakeWindows{
		server:  make(map[platform.WindowID]*platform.Window),
		tracked: make(map[platform.WindowID]bool),
		normal:  make(map[platform.WindowID]bool),
		watched: make(map[platform.WindowID]int),
		opacity: make(map[platform.WindowID]float64),

		nextParent: make(map[platform.WindowID]platform.WindowID),
	}
}

// create puts a window on the fake server without telling the service.
func (f *fakeWindows) create(id platform.WindowID, class string, visible bool) *platform.Window {
	w := &platform.Window{ID: id, Instance: class, Class: class, Visible: visible}
	f.server[id] = w
	f.normal[id] = true
	return w
}

func (f *fakeWindows) Show(s ownership.SurfaceID, _ time.Duration) {
	if w, ok := f.server[s]; ok {
		w.Visible = true
	}
}

func (f *fakeWindows) Hide(s ownership.SurfaceID, _ time.Duration) {
	for _, c := range f.TransientChildren(s) {
		f.Hide(c, 0)
	}
	if w, ok := f.server[s]; ok {
		w.Visible = false
	}
}

func (f *fakeWindows) IsVisible(s ownership.SurfaceID) bool {
	w, ok := f.server[s]
	return ok && f.tracked[s] && w.Visible
}

func (f *fakeWindows) TransientParent(s ownership.SurfaceID) (ownership.SurfaceID, bool) {
	w, ok := f.server[s]
	if !ok || !f.tracked[s] || w.TransientFor == 0 {
		return 0, false
	}
	return w.TransientFor, true
}

func (f *fakeWindows) TransientChildren(s ownership.SurfaceID) []ownership.SurfaceID {
	var out []ownership.SurfaceID
	for id, w := range f.server {
		if f.tracked[id] && w.TransientFor == s {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (f *fakeWindows) IsSystemModal(s ownership.SurfaceID) bool {
	w, ok := f.server[s]
	return ok && w.Modal
}

func (f *fakeWindows) SetOpacity(s ownership.SurfaceID, opacity float64) {
	f.opacity[s] = opacity
}

func (f *fakeWindows) Windows() []platform.Window {
	var out []platform.Window
	for id := range f.tracked {
		if w, ok := f.server[id]; ok {
			out = append(out, *w)
		} else {
			out = append(out, platform.Window{ID: id})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeWindows) Window(id platform.WindowID) (platform.Window, bool) {
	w, ok := f.server[id]
	if !ok || !f.tracked[id] {
		return platform.Window{}, false
	}
	return *w, true
}

func (f *fakeWindows) Focus(id platform.WindowID) error {
	if !f.tracked[id] {
		return fmt.Errorf("unknown window 0x%x", uint32(id))
	}
	f.focused = id
	return nil
}

func (f *fakeWindows) Watch(id platform.WindowID) error {
	if _, ok := f.server[id]; !ok {
		return fmt.Errorf("bad window 0x%x", uint32(id))
	}
	f.watched[id]++
	return nil
}

func (f *fakeWindows) Adopt(id platform.WindowID) (platform.Window, bool) {
	w, ok := f.server[id]
	if !ok {
		return platform.Window{}, false
	}
	f.tracked[id] = true
	return *w, true
}

func (f *fakeWindows) Refresh(id platform.WindowID) (platform.Window, bool) {
	return f.Window(id)
}

func (f *fakeWindows) IsNormal(id platform.WindowID) bool {
	return f.normal[id]
}

// NoteMapState reports a change made by someone other than the service.
// The test mutates nothing beforehand; the fake applies the new state.
func (f *fakeWindows) NoteMapState(id platform.WindowID, visible bool) (changed, selfCaused bool) {
	w, ok := f.server[id]
	if !ok || !f.tracked[id] || w.Visible == visible {
		return false, false
	}
	w.Visible = visible
	return true, false
}

func (f *fakeWindows) NoteTransientFor(id platform.WindowID) (oldParent, newParent platform.WindowID, changed bool) {
	w, ok := f.server[id]
	if !ok || !f.tracked[id] {
		return 0, 0, false
	}
	newParent = f.nextParent[id]
	oldParent = w.TransientFor
	if oldParent == newParent {
		return oldParent, newParent, false
	}
	w.TransientFor = newParent
	return oldParent, newParent, true
}

func (f *fakeWindows) NoteWindowState(platform.WindowID) {}

func (f *fakeWindows) Forget(id platform.WindowID) []platform.WindowID {
	delete(f.tracked, id)
	var orphans []platform.WindowID
	for cid, w := range f.server {
		if w.TransientFor == id {
			w.TransientFor = 0
			orphans = append(orphans, cid)
		}
	}
	sort.Slice(orphans, func(i, j int) bool { return orphans[i] < orphans[j] })
	return orphans
}

func (f *fakeWindows) Exists(id platform.WindowID) bool {
	_, ok := f.server[id]
	return ok
}

func (f *fakeWindows) Tracked(id platform.WindowID) bool {
	return f.tracked[id]
}

// destroy removes a window from the fake server.
func (f *fakeWindows) destroy(id platform.WindowID) {
	delete(f.server, id)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
