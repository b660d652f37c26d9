package daemon

import (
	"github.com/1broseidon/multidesk/internal/ownership"
	"github.com/1broseidon/multidesk/internal/platform"
)

// Property names passed to WindowPropertyChanged.
const (
	PropTransientFor = "WM_TRANSIENT_FOR"
	PropWindowState  = "_NET_WM_STATE"
)

// WindowCreated reports a new top-level window.
func (s *Service) WindowCreated(id platform.WindowID) {
	s.loop.Post(func() { s.windowCreated(id) })
}

// WindowDestroyed reports that a window no longer exists.
func (s *Service) WindowDestroyed(id platform.WindowID) {
	s.loop.Post(func() { s.windowDestroyed(id) })
}

// WindowMapState reports a MapNotify (visible) or UnmapNotify.
func (s *Service) WindowMapState(id platform.WindowID, visible bool) {
	s.loop.Post(func() { s.windowMapState(id, visible) })
}

// WindowPropertyChanged reports a change of WM_TRANSIENT_FOR or
// _NET_WM_STATE.
func (s *Service) WindowPropertyChanged(id platform.WindowID, name string) {
	s.loop.Post(func() { s.windowPropertyChanged(id, name) })
}

func (s *Service) windowCreated(id platform.WindowID) {
	if s.windows.Tracked(id) {
		return
	}
	if !s.adopt(id) {
		return
	}
	if w, ok := s.windows.Window(id); ok && w.Visible {
		s.assignOwner(id)
		return
	}
	s.pending[id] = struct{}{}
}

func (s *Service) windowDestroyed(id platform.WindowID) {
	if !s.windows.Tracked(id) {
		return
	}
	s.mgr.Handle(ownership.SurfaceDestroyed{Surface: id})
	delete(s.pending, id)
	for _, orphan := range s.windows.Forget(id) {
		s.logger.Debug("transient lost its parent", "window", orphan, "parent", id)
	}
}

func (s *Service) windowMapState(id platform.WindowID, visible bool) {
	changed, selfCaused := s.windows.NoteMapState(id, visible)
	if selfCaused || !changed {
		return
	}
	s.mgr.Handle(ownership.VisibilityChanging{Surface: id, Visible: visible})
	s.mgr.Handle(ownership.VisibilityChanged{Surface: id, Visible: visible})

	if _, ok := s.pending[id]; ok && visible {
		s.assignOwner(id)
	}
}

func (s *Service) windowPropertyChanged(id platform.WindowID, name string) {
	if !s.windows.Tracked(id) {
		return
	}
	switch name {
	case PropTransientFor:
		oldParent, newParent, changed := s.windows.NoteTransientFor(id)
		if !changed {
			return
		}
		if oldParent != 0 {
			s.mgr.Handle(ownership.TransientRemoved{Parent: oldParent, Child: id})
		}
		if newParent != 0 {
			s.mgr.Handle(ownership.TransientAdded{Parent: newParent, Child: id})
		}
	case PropWindowState:
		s.windows.NoteWindowState(id)
	}
}
