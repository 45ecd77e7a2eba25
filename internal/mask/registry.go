package mask

import (
	"fmt"
	"image/color"
)

// Registry is the insertion-ordered collection of finalized masks.
// It is not safe for concurrent use; the owning session serializes access.
type Registry struct {
	ids   IDAllocator
	masks []*Mask
	index map[string]int
}

// NewRegistry creates a registry with its own random id allocator.
func NewRegistry() *Registry {
	return NewRegistryWithIDs(RandomIDs{})
}

// NewRegistryWithIDs creates a registry using ids for every identifier it hands out.
func NewRegistryWithIDs(ids IDAllocator) *Registry {
	return &Registry{ids: ids, index: make(map[string]int)}
}

// IDs exposes the registry's allocator so proposals share its id space.
func (r *Registry) IDs() IDAllocator {
	return r.ids
}

// Add appends a copy of m under a fresh id with color c (the current global
// selection; nil leaves the mask on the render-time fallback).
func (r *Registry) Add(m *Mask, c *color.RGBA) (*Mask, error) {
	if m == nil || m.Grid == nil || m.Area == 0 || m.BBox.IsZero() {
		return nil, ErrEmptyMask
	}
	entry := m.withColor(c)
	entry.ID = r.ids.Next()
	r.index[entry.ID] = len(r.masks)
	r.masks = append(r.masks, entry)
	return entry, nil
}

// Get returns the mask with id.
func (r *Registry) Get(id string) (*Mask, bool) {
	i, ok := r.index[id]
	if !ok {
		return nil, false
	}
	return r.masks[i], true
}

// Recolor sets the local color of one entry; nothing else changes.
func (r *Registry) Recolor(id string, c color.RGBA) error {
	i, ok := r.index[id]
	if !ok {
		return fmt.Errorf("recolor %s: %w", id, ErrUnknownMask)
	}
	r.masks[i] = r.masks[i].withColor(&c)
	return nil
}

// All returns the entries in insertion order.
func (r *Registry) All() []*Mask {
	out := make([]*Mask, len(r.masks))
	copy(out, r.masks)
	return out
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	return len(r.masks)
}

// RemoveAll empties the registry. The id allocator keeps counting.
func (r *Registry) RemoveAll() {
	r.masks = nil
	r.index = make(map[string]int)
}
