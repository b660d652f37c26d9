package ownership

import "testing"

func TestEntryStore_AssignOwner(t *testing.T) {
	st := NewEntryStore(discardLogger())

	if !st.AssignOwner(1, alice) {
		t.Fatalf("expected first assignment to succeed")
	}
	if st.AssignOwner(1, bob) {
		t.Fatalf("expected reassignment to fail")
	}
	if st.AssignOwner(2, "") {
		t.Fatalf("expected empty owner to fail")
	}

	e, ok := st.Entry(1)
	if !ok {
		t.Fatalf("expected entry for surface 1")
	}
	if e.Owner != alice || e.ShowForUser != alice || !e.Show {
		t.Fatalf("entry = %+v, want owner and presenter alice, shown", e)
	}
	if st.Len() != 1 {
		t.Fatalf("Len = %d, want 1", st.Len())
	}
}

func TestEntryStore_EntryIsCopy(t *testing.T) {
	st := NewEntryStore(discardLogger())
	st.AssignOwner(1, alice)

	e, _ := st.Entry(1)
	e.ShowForUser = bob

	if got := st.Owner(1); got != alice {
		t.Fatalf("Owner = %q, want %q", got, alice)
	}
	if e2, _ := st.Entry(1); e2.ShowForUser != alice {
		t.Fatalf("stored entry modified through copy")
	}
}

func TestEntryStore_SetShowForUser(t *testing.T) {
	st := NewEntryStore(discardLogger())
	st.AssignOwner(1, alice)

	st.SetShowForUser(1, bob)
	if e, _ := st.Entry(1); e.ShowForUser != bob {
		t.Fatalf("ShowForUser = %q, want %q", e.ShowForUser, bob)
	}

	st.SetShowForUser(1, "")
	if e, _ := st.Entry(1); e.ShowForUser != alice {
		t.Fatalf("empty user should reset to owner, got %q", e.ShowForUser)
	}

	// Unknown surfaces are ignored.
	st.SetShowForUser(9, bob)
	if st.Has(9) {
		t.Fatalf("SetShowForUser created an entry")
	}
}

func TestEntryStore_SurfacesShownFor(t *testing.T) {
	st := NewEntryStore(discardLogger())
	st.AssignOwner(3, alice)
	st.AssignOwner(1, alice)
	st.AssignOwner(2, alice)
	st.AssignOwner(4, bob)
	st.SetShow(2, false)
	st.SetShowForUser(4, alice)

	got := st.SurfacesShownFor(alice)
	want := []SurfaceID{1, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("SurfacesShownFor = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("SurfacesShownFor = %v, want %v", got, want)
		}
	}
	if got := st.SurfacesShownFor(bob); len(got) != 0 {
		t.Fatalf("SurfacesShownFor(bob) = %v, want empty", got)
	}
}

func TestEntryStore_Remove(t *testing.T) {
	st := NewEntryStore(discardLogger())
	st.AssignOwner(1, alice)

	if !st.Remove(1) {
		t.Fatalf("expected first remove to report true")
	}
	if st.Remove(1) {
		t.Fatalf("expected second remove to report false")
	}
	if st.Has(1) || st.Owner(1) != "" {
		t.Fatalf("surface still owned after remove")
	}
}
