package ownership

// TransientTracker remembers the visibility of transient children attached
// below an owned surface. Hiding a surface hides all of its transient
// descendants, while showing it only shows the surface itself, so the
// tracker keeps the state each child had before the manager touched it.
type TransientTracker struct {
	host    Host
	store   *EntryStore
	records map[SurfaceID]bool
}

// NewTransientTracker creates a tracker that resolves ownership through store.
func NewTransientTracker(host Host, store *EntryStore) *TransientTracker {
	return &TransientTracker{
		host:    host,
		store:   store,
		records: make(map[SurfaceID]bool),
	}
}

// OwningWindowInChain walks up the transient parents of s and returns the
// first owned ancestor. It returns false when s itself is owned or no owned
// ancestor exists.
func (t *TransientTracker) OwningWindowInChain(s SurfaceID) (SurfaceID, bool) {
	if t.store.Has(s) {
		return 0, false
	}
	seen := map[SurfaceID]struct{}{s: {}}
	parent, ok := t.host.TransientParent(s)
	for ok {
		if _, loop := seen[parent]; loop {
			return 0, false
		}
		seen[parent] = struct{}{}
		if t.store.Has(parent) {
			return parent, true
		}
		parent, ok = t.host.TransientParent(parent)
	}
	return 0, false
}

// Register records s and all of its current transient descendants as
// governed by owned. owned itself is never recorded. Surfaces are returned
// in registration order, descendants first.
func (t *TransientTracker) Register(s, owned SurfaceID) []SurfaceID {
	var added []SurfaceID
	t.register(s, owned, map[SurfaceID]struct{}{}, &added)
	return added
}

func (t *TransientTracker) register(s, owned SurfaceID, seen map[SurfaceID]struct{}, added *[]SurfaceID) {
	if _, ok := seen[s]; ok {
		return
	}
	seen[s] = struct{}{}
	if s != owned && t.store.Has(s) {
		// An owned surface below owned keeps following its own entry.
		return
	}
	for _, child := range t.host.TransientChildren(s) {
		t.register(child, owned, seen, added)
	}
	if s == owned {
		return
	}
	visible := t.host.IsVisible(s)
	if prev, ok := t.records[s]; ok {
		// Repeated attach without a detach: a child already known to be
		// hidden stays hidden.
		t.records[s] = prev && visible
		return
	}
	t.records[s] = visible
	*added = append(*added, s)
}

// Unregister drops the records of s and its descendants. It returns the
// surfaces whose recorded state was visible but which are currently hidden,
// so the caller can restore them.
func (t *TransientTracker) Unregister(s SurfaceID) []SurfaceID {
	var restore []SurfaceID
	t.unregister(s, map[SurfaceID]struct{}{}, &restore)
	return restore
}

func (t *TransientTracker) unregister(s SurfaceID, seen map[SurfaceID]struct{}, restore *[]SurfaceID) {
	if _, ok := seen[s]; ok {
		return
	}
	seen[s] = struct{}{}
	if t.store.Has(s) {
		// Its transients follow its own entry.
		return
	}
	for _, child := range t.host.TransientChildren(s) {
		t.unregister(child, seen, restore)
	}
	wanted, ok := t.records[s]
	if !ok {
		return
	}
	delete(t.records, s)
	if wanted && !t.host.IsVisible(s) {
		*restore = append(*restore, s)
	}
}

// Observe stores a visibility change made by someone other than the manager.
// Changes to surfaces without a record are ignored.
func (t *TransientTracker) Observe(s SurfaceID, visible bool) bool {
	if _, ok := t.records[s]; !ok {
		return false
	}
	t.records[s] = visible
	return true
}

// Record returns the remembered visibility of s.
func (t *TransientTracker) Record(s SurfaceID) (visible bool, ok bool) {
	visible, ok = t.records[s]
	return visible, ok
}

// Len returns the number of tracked transient surfaces.
func (t *TransientTracker) Len() int {
	return len(t.records)
}

// Drop removes the record of s alone, leaving its descendants tracked.
func (t *TransientTracker) Drop(s SurfaceID) {
	delete(t.records, s)
}
