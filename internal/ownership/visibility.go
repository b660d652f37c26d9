package ownership

import "time"

// VisibilityDriver is the only component that calls Host.Show and Host.Hide.
// While it does so the suppression flag is raised, so notifications caused
// by its own calls are not mistaken for changes made by someone else.
type VisibilityDriver struct {
	host    Host
	tracker *TransientTracker
	depth   int
}

// NewVisibilityDriver creates a driver that consults tracker when showing
// transient children.
func NewVisibilityDriver(host Host, tracker *TransientTracker) *VisibilityDriver {
	return &VisibilityDriver{host: host, tracker: tracker}
}

// Suppressed reports whether a driver call is in progress.
func (d *VisibilityDriver) Suppressed() bool {
	return d.depth > 0
}

// SetWindowVisibility shows or hides s. Showing is shallow: s is shown and
// each transient descendant is shown only if its record says it was visible.
// Hiding is deep and unconditional. A zero duration is instant.
func (d *VisibilityDriver) SetWindowVisibility(s SurfaceID, visible bool, dur time.Duration) {
	if d.host.IsVisible(s) == visible {
		return
	}
	d.depth++
	defer func() { d.depth-- }()

	if visible {
		d.showRecursive(s, dur, map[SurfaceID]struct{}{})
		return
	}
	d.host.Hide(s, dur)
}

func (d *VisibilityDriver) showRecursive(s SurfaceID, dur time.Duration, seen map[SurfaceID]struct{}) {
	if _, ok := seen[s]; ok {
		return
	}
	seen[s] = struct{}{}
	wanted, tracked := d.tracker.Record(s)
	if (!tracked || wanted) && !d.host.IsVisible(s) {
		d.host.Show(s, dur)
	}
	for _, child := range d.host.TransientChildren(s) {
		d.showRecursive(child, dur, seen)
	}
}

// Restore shows a single surface that just left the tracker. Its own
// descendants have already been restored by the caller.
func (d *VisibilityDriver) Restore(s SurfaceID) {
	if d.host.IsVisible(s) {
		return
	}
	d.depth++
	defer func() { d.depth-- }()
	d.host.Show(s, 0)
}

// SetOpacity forwards to the host when it supports fading.
func (d *VisibilityDriver) SetOpacity(s SurfaceID, opacity float64) {
	oh, ok := d.host.(OpacityHost)
	if !ok {
		return
	}
	d.depth++
	defer func() { d.depth-- }()
	oh.SetOpacity(s, opacity)
}
