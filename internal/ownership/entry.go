package ownership

import (
	"log/slog"
	"sort"
)

// WindowEntry records who owns a surface and where it is shown.
type WindowEntry struct {
	// Owner never changes after creation.
	Owner UserID
	// ShowForUser is the user whose desktop displays the surface.
	ShowForUser UserID
	// Show is whether the surface should be visible while ShowForUser is active.
	Show bool
}

// EntryStore holds one WindowEntry per owned surface.
type EntryStore struct {
	entries map[SurfaceID]*WindowEntry
	logger  *slog.Logger
}

// NewEntryStore creates an empty store.
func NewEntryStore(logger *slog.Logger) *EntryStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &EntryStore{
		entries: make(map[SurfaceID]*WindowEntry),
		logger:  logger,
	}
}

// AssignOwner creates the entry for s. It returns false without changing
// anything when s already has an owner or user is empty.
func (st *EntryStore) AssignOwner(s SurfaceID, user UserID) bool {
	if user == "" {
		st.logger.Warn("refusing to assign empty owner", "surface", s)
		return false
	}
	if existing, ok := st.entries[s]; ok {
		st.logger.Warn("surface already owned",
			"surface", s,
			"owner", existing.Owner,
			"requested", user)
		return false
	}
	st.entries[s] = &WindowEntry{
		Owner:       user,
		ShowForUser: user,
		Show:        true,
	}
	return true
}

// Owner returns the owner of s, or "" when s is not owned.
func (st *EntryStore) Owner(s SurfaceID) UserID {
	if e, ok := st.entries[s]; ok {
		return e.Owner
	}
	return ""
}

// Entry returns a copy of the entry for s.
func (st *EntryStore) Entry(s SurfaceID) (WindowEntry, bool) {
	e, ok := st.entries[s]
	if !ok {
		return WindowEntry{}, false
	}
	return *e, true
}

// SetShowForUser moves s to the desktop of user. An empty user means the owner.
func (st *EntryStore) SetShowForUser(s SurfaceID, user UserID) {
	e, ok := st.entries[s]
	if !ok {
		return
	}
	if user == "" {
		user = e.Owner
	}
	e.ShowForUser = user
}

// SetShow records whether s should be visible on its presenting desktop.
func (st *EntryStore) SetShow(s SurfaceID, show bool) {
	if e, ok := st.entries[s]; ok {
		e.Show = show
	}
}

// Remove drops the entry for s. Removing an unknown surface is a no-op.
func (st *EntryStore) Remove(s SurfaceID) bool {
	if _, ok := st.entries[s]; !ok {
		return false
	}
	delete(st.entries, s)
	return true
}

// Has reports whether s is owned.
func (st *EntryStore) Has(s SurfaceID) bool {
	_, ok := st.entries[s]
	return ok
}

// Len returns the number of owned surfaces.
func (st *EntryStore) Len() int {
	return len(st.entries)
}

// SurfacesShownFor returns every surface placed on user's desktop with Show
// set, sorted by id.
func (st *EntryStore) SurfacesShownFor(user UserID) []SurfaceID {
	var out []SurfaceID
	for s, e := range st.entries {
		if e.ShowForUser == user && e.Show {
			out = append(out, s)
		}
	}
	sortSurfaces(out)
	return out
}

// Surfaces returns all owned surfaces sorted by id.
func (st *EntryStore) Surfaces() []SurfaceID {
	out := make([]SurfaceID, 0, len(st.entries))
	for s := range st.entries {
		out = append(out, s)
	}
	sortSurfaces(out)
	return out
}

func sortSurfaces(s []SurfaceID) {
	sort.Slice(s, func(i, j int) bool { return s[i] < s[j] })
}
