package hotkeys

import (
	"strings"
	"testing"
)

type nopSwitcher struct{}

func (nopSwitcher) RequestSwitch(string) {}

func TestRegisterSwitches_WithoutX11(t *testing.T) {
	h := NewHandler(struct{}{}, nil)

	errs := h.RegisterSwitches(map[string]string{
		"Mod4-Mod1-2": "bob",
		"Mod4-Mod1-1": "alice",
	}, nopSwitcher{})

	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %v", errs)
	}
	// Keys are registered in sorted order.
	if !strings.Contains(errs[0].Error(), "Mod4-Mod1-1") || !strings.Contains(errs[0].Error(), "alice") {
		t.Fatalf("unexpected first error: %v", errs[0])
	}
	if !strings.Contains(errs[1].Error(), "no X11 connection") {
		t.Fatalf("unexpected second error: %v", errs[1])
	}
}
