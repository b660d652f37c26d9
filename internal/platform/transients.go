package platform

import "sort"

// transientIndex mirrors WM_TRANSIENT_FOR in both directions.
type transientIndex struct {
	parent   map[WindowID]WindowID
	children map[WindowID]map[WindowID]struct{}
}

func newTransientIndex() *transientIndex {
	return &transientIndex{
		parent:   make(map[WindowID]WindowID),
		children: make(map[WindowID]map[WindowID]struct{}),
	}
}

// set records parent as the transient parent of child. A zero parent clears
// the relation. It returns the previous parent.
func (t *transientIndex) set(child, parent WindowID) (WindowID, bool) {
	old, had := t.parent[child]
	if had && old == parent {
		return old, true
	}
	if had {
		delete(t.children[old], child)
		if len(t.children[old]) == 0 {
			delete(t.children, old)
		}
		delete(t.parent, child)
	}
	if parent != 0 && parent != child {
		t.parent[child] = parent
		if t.children[parent] == nil {
			t.children[parent] = make(map[WindowID]struct{})
		}
		t.children[parent][child] = struct{}{}
	}
	return old, had
}

func (t *transientIndex) parentOf(child WindowID) (WindowID, bool) {
	p, ok := t.parent[child]
	return p, ok
}

func (t *transientIndex) childrenOf(parent WindowID) []WindowID {
	set := t.children[parent]
	out := make([]WindowID, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// remove drops win in both roles and returns the children it had.
func (t *transientIndex) remove(win WindowID) []WindowID {
	t.set(win, 0)
	orphans := t.childrenOf(win)
	for _, c := range orphans {
		delete(t.parent, c)
	}
	delete(t.children, win)
	return orphans
}
