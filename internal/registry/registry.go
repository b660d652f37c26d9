// Package registry persists window ownership in the runtime directory so a
// restarted daemon can re-adopt windows that are still open.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/1broseidon/multidesk/internal/ownership"
)

// OwnerRecord is the saved state of one owned window.
type OwnerRecord struct {
	Owner       ownership.UserID `json:"owner"`
	ShowForUser ownership.UserID `json:"show_for_user,omitempty"`
}

// Registry is the on-disk owner registry.
type Registry struct {
	ActiveUser ownership.UserID                    `json:"active_user,omitempty"`
	Owners     map[ownership.SurfaceID]OwnerRecord `json:"owners"`
	SavedAt    time.Time                           `json:"saved_at"`
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{Owners: make(map[ownership.SurfaceID]OwnerRecord)}
}

// FromEntries builds a registry from a manager snapshot.
func FromEntries(active ownership.UserID, entries []ownership.EntrySnapshot) *Registry {
	r := New()
	r.ActiveUser = active
	for _, e := range entries {
		rec := OwnerRecord{Owner: e.Owner}
		if e.ShowForUser != e.Owner {
			rec.ShowForUser = e.ShowForUser
		}
		r.Owners[e.Surface] = rec
	}
	return r
}

// Load reads the registry at path. A missing file yields an empty registry.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("failed to read owner registry: %w", err)
	}

	var r Registry
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse owner registry: %w", err)
	}
	if r.Owners == nil {
		r.Owners = make(map[ownership.SurfaceID]OwnerRecord)
	}
	return &r, nil
}

// Save writes the registry to path, replacing any previous file.
func Save(path string, r *Registry) error {
	if r == nil {
		return fmt.Errorf("registry is nil")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create runtime dir: %w", err)
	}
	r.SavedAt = time.Now().UTC()

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode owner registry: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("failed to write owner registry: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace owner registry: %w", err)
	}
	return nil
}

// Prune drops records whose window no longer exists and returns how many
// were removed.
func (r *Registry) Prune(alive func(ownership.SurfaceID) bool) int {
	removed := 0
	for s := range r.Owners {
		if !alive(s) {
			delete(r.Owners, s)
			removed++
		}
	}
	return removed
}

// Surfaces returns the recorded windows in ascending order.
func (r *Registry) Surfaces() []ownership.SurfaceID {
	out := make([]ownership.SurfaceID, 0, len(r.Owners))
	for s := range r.Owners {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
