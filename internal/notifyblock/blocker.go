// Package notifyblock decides whether a user's notifications may be shown
// given which users currently have windows on screen.
package notifyblock

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/1broseidon/multidesk/internal/ownership"
)

// Blocker implements ownership.NotificationHook. It is updated from the
// daemon loop and may be queried from any goroutine.
type Blocker struct {
	mu      sync.RWMutex
	active  ownership.UserID
	visible map[ownership.UserID]struct{}
	logger  *slog.Logger
}

var _ ownership.NotificationHook = (*Blocker)(nil)

// New creates a blocker that shows nothing until the first update.
func New(logger *slog.Logger) *Blocker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Blocker{
		visible: make(map[ownership.UserID]struct{}),
		logger:  logger,
	}
}

// UpdateVisibleOwners records the active user and the owners of visible
// windows.
func (b *Blocker) UpdateVisibleOwners(active ownership.UserID, owners []ownership.UserID) {
	visible := make(map[ownership.UserID]struct{}, len(owners))
	for _, u := range owners {
		visible[u] = struct{}{}
	}

	b.mu.Lock()
	b.active = active
	b.visible = visible
	b.mu.Unlock()

	b.logger.Debug("notification owners updated", "active", active, "visible_owners", owners)
}

// ShouldShow reports whether a notification for user may be displayed in
// the notification center. Users with a window on screen keep receiving
// notifications even when they are not active.
func (b *Blocker) ShouldShow(user ownership.UserID) bool {
	if user == "" {
		return false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if user == b.active {
		return true
	}
	_, ok := b.visible[user]
	return ok
}

// ShouldShowPopup reports whether a notification for user may pop up.
// Popups are reserved for the active user.
func (b *Blocker) ShouldShowPopup(user ownership.UserID) bool {
	if user == "" {
		return false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return user == b.active
}

// Snapshot returns the active user and the sorted visible owners.
func (b *Blocker) Snapshot() (ownership.UserID, []ownership.UserID) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	owners := make([]ownership.UserID, 0, len(b.visible))
	for u := range b.visible {
		owners = append(owners, u)
	}
	sort.Slice(owners, func(i, j int) bool { return owners[i] < owners[j] })
	return b.active, owners
}
