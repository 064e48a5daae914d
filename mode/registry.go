package mode

import (
	"sort"
	"sync"
)

// Registry is the slug → Mode table the server consults. It is read-mostly:
// lookups take a read lock, and a reload swaps the entire table under the
// write lock so readers see either the old or the new table, never a mix.
type Registry struct {
	mu    sync.RWMutex
	modes map[string]*Mode
}

// NewRegistry builds a registry from pre-merged modes. Later entries with
// the same slug override earlier ones.
func NewRegistry(modes []*Mode) *Registry {
	r := &Registry{modes: make(map[string]*Mode)}
	for _, m := range modes {
		r.modes[m.Slug] = m
	}
	return r
}

// Merge layers mode lists by precedence: later layers override earlier
// layers, keyed by slug. The result is ordered by slug for determinism.
func Merge(layers ...[]*Mode) []*Mode {
	merged := make(map[string]*Mode)
	for _, layer := range layers {
		for _, m := range layer {
			merged[m.Slug] = m
		}
	}

	slugs := make([]string, 0, len(merged))
	for slug := range merged {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	out := make([]*Mode, 0, len(merged))
	for _, slug := range slugs {
		out = append(out, merged[slug])
	}
	return out
}

// Get returns the mode for a slug, if present.
func (r *Registry) Get(slug string) (*Mode, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modes[slug]
	return m, ok
}

// All returns every registered mode, ordered by slug.
func (r *Registry) All() []*Mode {
	r.mu.RLock()
	defer r.mu.RUnlock()

	slugs := make([]string, 0, len(r.modes))
	for slug := range r.modes {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	out := make([]*Mode, 0, len(slugs))
	for _, slug := range slugs {
		out = append(out, r.modes[slug])
	}
	return out
}

// BySource returns the modes with the given provenance, ordered by slug.
func (r *Registry) BySource(source Source) []*Mode {
	var out []*Mode
	for _, m := range r.All() {
		if m.Source == source {
			out = append(out, m)
		}
	}
	return out
}

// Slugs returns all registered slugs in order. Useful for error payloads
// that tell the client what modes exist.
func (r *Registry) Slugs() []string {
	all := r.All()
	slugs := make([]string, len(all))
	for i, m := range all {
		slugs[i] = m.Slug
	}
	return slugs
}

// Len returns the number of registered modes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.modes)
}

// Replace swaps the registry's table for a new one built from the given
// modes. Readers never observe a partially-updated table.
func (r *Registry) Replace(modes []*Mode) {
	table := make(map[string]*Mode, len(modes))
	for _, m := range modes {
		table[m.Slug] = m
	}

	r.mu.Lock()
	r.modes = table
	r.mu.Unlock()
}
