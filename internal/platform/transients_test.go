package platform

import "testing"

func TestTransientIndex_SetAndReparent(t *testing.T) {
	idx := newTransientIndex()
	idx.set(2, 1)
	idx.set(3, 1)

	if p, ok := idx.parentOf(2); !ok || p != 1 {
		t.Fatalf("parentOf(2) = %d, %v; want 1, true", p, ok)
	}
	if got := idx.childrenOf(1); len(got) != 2 || got[0] != 2 || got[1] != 3 {
		t.Fatalf("childrenOf(1) = %v, want [2 3]", got)
	}

	old, had := idx.set(2, 5)
	if !had || old != 1 {
		t.Fatalf("set returned %d, %v; want 1, true", old, had)
	}
	if got := idx.childrenOf(1); len(got) != 1 || got[0] != 3 {
		t.Fatalf("childrenOf(1) after reparent = %v, want [3]", got)
	}
	if got := idx.childrenOf(5); len(got) != 1 || got[0] != 2 {
		t.Fatalf("childrenOf(5) = %v, want [2]", got)
	}

	idx.set(2, 0)
	if _, ok := idx.parentOf(2); ok {
		t.Fatalf("expected parent cleared")
	}
	if got := idx.childrenOf(5); len(got) != 0 {
		t.Fatalf("childrenOf(5) after clear = %v, want empty", got)
	}
}

func TestTransientIndex_SelfParentIgnored(t *testing.T) {
	idx := newTransientIndex()
	idx.set(4, 4)
	if _, ok := idx.parentOf(4); ok {
		t.Fatalf("a window cannot be its own transient parent")
	}
}

func TestTransientIndex_Remove(t *testing.T) {
	idx := newTransientIndex()
	idx.set(2, 1)
	idx.set(3, 2)
	idx.set(4, 2)

	orphans := idx.remove(2)

	if len(orphans) != 2 || orphans[0] != 3 || orphans[1] != 4 {
		t.Fatalf("orphans = %v, want [3 4]", orphans)
	}
	if _, ok := idx.parentOf(3); ok {
		t.Fatalf("expected orphan to lose its parent")
	}
	if got := idx.childrenOf(1); len(got) != 0 {
		t.Fatalf("childrenOf(1) = %v, want empty", got)
	}
}

func TestEchoTracker(t *testing.T) {
	e := newEchoTracker()

	if e.match(1, true) {
		t.Fatalf("nothing expected yet")
	}

	e.expect(1, false)
	e.expect(1, true)
	if !e.match(1, false) {
		t.Fatalf("expected unmap echo")
	}
	if !e.match(1, true) {
		t.Fatalf("expected map echo")
	}
	if e.match(1, true) {
		t.Fatalf("expectations should be consumed")
	}

	// Someone else mapped the window before our unmap arrived.
	e.expect(2, false)
	if e.match(2, true) {
		t.Fatalf("mismatched state must not count as an echo")
	}
	if e.match(2, false) {
		t.Fatalf("expectations should be dropped after a mismatch")
	}

	e.expect(3, true)
	e.forget(3)
	if e.match(3, true) {
		t.Fatalf("forgotten window must not match")
	}
}
