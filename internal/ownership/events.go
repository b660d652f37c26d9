package ownership

// Event is a notification from the windowing system or the session layer.
// Exactly one of the concrete types below is passed to Manager.Handle.
type Event interface {
	isEvent()
}

// SurfaceCreated reports a new top-level surface.
type SurfaceCreated struct {
	Surface SurfaceID
}

// SurfaceDestroyed reports that a surface is about to become invalid.
type SurfaceDestroyed struct {
	Surface SurfaceID
}

// VisibilityChanging is delivered before a surface's visibility changes.
// SelfCaused is set by hosts that can recognise the echo of their own
// Show/Hide request when it arrives asynchronously.
type VisibilityChanging struct {
	Surface    SurfaceID
	Visible    bool
	SelfCaused bool
}

// VisibilityChanged is delivered after a surface's visibility changed.
type VisibilityChanged struct {
	Surface    SurfaceID
	Visible    bool
	SelfCaused bool
}

// TransientAdded reports that Child became a transient child of Parent.
type TransientAdded struct {
	Parent SurfaceID
	Child  SurfaceID
}

// TransientRemoved reports that Child is no longer a transient child of Parent.
type TransientRemoved struct {
	Parent SurfaceID
	Child  SurfaceID
}

// ActiveUserSwitched reports that the session layer made User active.
type ActiveUserSwitched struct {
	User UserID
}

func (SurfaceCreated) isEvent()     {}
func (SurfaceDestroyed) isEvent()   {}
func (VisibilityChanging) isEvent() {}
func (VisibilityChanged) isEvent()  {}
func (TransientAdded) isEvent()     {}
func (TransientRemoved) isEvent()   {}
func (ActiveUserSwitched) isEvent() {}

// ChangeType identifies an ownership change broadcast to listeners.
type ChangeType int

const (
	ChangeEntryAdded ChangeType = iota
	ChangeEntryChanged
	ChangeEntryRemoved
	ChangeUserAdded
	ChangeActiveUser
)

func (c ChangeType) String() string {
	switch c {
	case ChangeEntryAdded:
		return "entry_added"
	case ChangeEntryChanged:
		return "entry_changed"
	case ChangeEntryRemoved:
		return "entry_removed"
	case ChangeUserAdded:
		return "user_added"
	case ChangeActiveUser:
		return "active_user"
	default:
		return "unknown"
	}
}

// Change is broadcast to listeners. Surface is zero for user changes.
type Change struct {
	Type    ChangeType
	Surface SurfaceID
	User    UserID
}

// Listener receives ownership changes.
type Listener interface {
	OnOwnershipChange(c Change)
}

// NotificationHook is told which users have at least one visible owned
// window, so it can decide which notifications to hold back.
type NotificationHook interface {
	UpdateVisibleOwners(active UserID, owners []UserID)
}

type listenerList struct {
	listeners []Listener
}

func (l *listenerList) add(listener Listener) {
	l.listeners = append(l.listeners, listener)
}

func (l *listenerList) remove(listener Listener) {
	for i, existing := range l.listeners {
		if existing == listener {
			l.listeners = append(l.listeners[:i], l.listeners[i+1:]...)
			return
		}
	}
}

func (l *listenerList) broadcast(c Change) {
	// Copy so listeners may unsubscribe while being notified.
	snapshot := append([]Listener(nil), l.listeners...)
	for _, listener := range snapshot {
		listener.OnOwnershipChange(c)
	}
}
