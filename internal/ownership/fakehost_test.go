package ownership

import (
	"io"
	"log/slog"
	"sort"
	"time"
)

// fakeHost mimics a toolkit where hiding a window hides its transient
// descendants, showing only shows the window itself, and every visibility
// change is reported synchronously before and after it happens.
type fakeHost struct {
	mgr     *Manager
	visible map[SurfaceID]bool
	parent  map[SurfaceID]SurfaceID
	modal   map[SurfaceID]bool
	opacity map[SurfaceID]float64
	shows   int
	hides   int
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		visible: make(map[SurfaceID]bool),
		parent:  make(map[SurfaceID]SurfaceID),
		modal:   make(map[SurfaceID]bool),
		opacity: make(map[SurfaceID]float64),
	}
}

func (h *fakeHost) Show(s SurfaceID, _ time.Duration) {
	h.shows++
	h.setVisible(s, true)
}

func (h *fakeHost) Hide(s SurfaceID, _ time.Duration) {
	h.hides++
	h.hideDeep(s)
}

func (h *fakeHost) hideDeep(s SurfaceID) {
	for _, child := range h.TransientChildren(s) {
		h.hideDeep(child)
	}
	h.setVisible(s, false)
}

func (h *fakeHost) setVisible(s SurfaceID, visible bool) {
	if h.visible[s] == visible {
		return
	}
	if h.mgr != nil {
		h.mgr.Handle(VisibilityChanging{Surface: s, Visible: visible})
	}
	h.visible[s] = visible
	if h.mgr != nil {
		h.mgr.Handle(VisibilityChanged{Surface: s, Visible: visible})
	}
}

func (h *fakeHost) IsVisible(s SurfaceID) bool {
	return h.visible[s]
}

func (h *fakeHost) TransientParent(s SurfaceID) (SurfaceID, bool) {
	p, ok := h.parent[s]
	return p, ok
}

func (h *fakeHost) TransientChildren(s SurfaceID) []SurfaceID {
	var out []SurfaceID
	for child, p := range h.parent {
		if p == s {
			out = append(out, child)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (h *fakeHost) IsSystemModal(s SurfaceID) bool {
	return h.modal[s]
}

func (h *fakeHost) SetOpacity(s SurfaceID, opacity float64) {
	h.opacity[s] = opacity
}

// create adds a surface the way an application would, outside the manager.
func (h *fakeHost) create(s SurfaceID, visible bool) {
	h.visible[s] = false
	if h.mgr != nil {
		h.mgr.Handle(SurfaceCreated{Surface: s})
	}
	if visible {
		h.setVisible(s, true)
	}
}

// externalShow and externalHide are visibility changes made by someone
// other than the manager.
func (h *fakeHost) externalShow(s SurfaceID) {
	h.setVisible(s, true)
}

func (h *fakeHost) externalHide(s SurfaceID) {
	h.hideDeep(s)
}

func (h *fakeHost) attach(child, parent SurfaceID) {
	h.parent[child] = parent
	h.mgr.Handle(TransientAdded{Parent: parent, Child: child})
}

func (h *fakeHost) detach(child SurfaceID) {
	parent, ok := h.parent[child]
	if !ok {
		return
	}
	delete(h.parent, child)
	h.mgr.Handle(TransientRemoved{Parent: parent, Child: child})
}

func (h *fakeHost) destroy(s SurfaceID) {
	h.mgr.Handle(SurfaceDestroyed{Surface: s})
	delete(h.visible, s)
	delete(h.parent, s)
	for child, p := range h.parent {
		if p == s {
			delete(h.parent, child)
		}
	}
}

// plainHost hides the optional OpacityHost interface of fakeHost.
type plainHost struct {
	*fakeHost
}

func (plainHost) SetOpacity() {}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.now = c.now.Add(d)
	return c.now
}

type hookRecorder struct {
	calls  int
	active UserID
	owners []UserID
}

func (r *hookRecorder) UpdateVisibleOwners(active UserID, owners []UserID) {
	r.calls++
	r.active = active
	r.owners = append([]UserID(nil), owners...)
}

type changeRecorder struct {
	changes []Change
}

func (r *changeRecorder) OnOwnershipChange(c Change) {
	r.changes = append(r.changes, c)
}

func (r *changeRecorder) count(t ChangeType) int {
	n := 0
	for _, c := range r.changes {
		if c.Type == t {
			n++
		}
	}
	return n
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	host  *fakeHost
	mgr   *Manager
	clock *fakeClock
	hook  *hookRecorder
}

func newTestEnv(active UserID, speed AnimationSpeed) *testEnv {
	host := newFakeHost()
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	hook := &hookRecorder{}
	mgr := NewManager(host, Options{
		ActiveUser:     active,
		Mode:           ModeSeparated,
		Speed:          speed,
		SwitchDuration: 100 * time.Millisecond,
		Hook:           hook,
		Logger:         discardLogger(),
		Now:            clock.Now,
	})
	host.mgr = mgr
	return &testEnv{host: host, mgr: mgr, clock: clock, hook: hook}
}
