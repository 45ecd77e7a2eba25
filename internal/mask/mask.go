package mask

import (
	"errors"
	"fmt"
	"image/color"
	"sync/atomic"

	"gunpla-colorizer/pkg/geometry"

	"github.com/google/uuid"
)

var (
	ErrUnknownMask = errors.New("unknown mask id")
	ErrEmptyMask   = errors.New("mask has no true cells")
)

// Mask is one segmentation result, either staged as a proposal or finalized in a Registry.
type Mask struct {
	ID       string
	Grid     *Grid
	BBox     geometry.RectInt
	Area     int
	Centroid geometry.Point2D
	Color    *color.RGBA // nil falls back to the global color when rendering
	GroupID  string      // round that produced the mask
}

// Contains reports whether the native pixel (x, y) is part of the mask.
func (m *Mask) Contains(x, y int) bool {
	if !m.BBox.Contains(x, y) {
		return false
	}
	return m.Grid.At(x, y)
}

// withColor returns a shallow copy carrying c.
func (m *Mask) withColor(c *color.RGBA) *Mask {
	cp := *m
	if c != nil {
		v := *c
		cp.Color = &v
	} else {
		cp.Color = nil
	}
	return &cp
}

// IDAllocator hands out mask identifiers. Each Registry owns one so identifiers never
// leak across sessions.
type IDAllocator interface {
	Next() string
}

// Sequence is a monotonic allocator: "<prefix>-1", "<prefix>-2", ...
type Sequence struct {
	prefix string
	n      atomic.Uint64
}

// NewSequence creates a monotonic allocator.
func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix}
}

func (s *Sequence) Next() string {
	return fmt.Sprintf("%s-%d", s.prefix, s.n.Add(1))
}

// RandomIDs allocates random UUIDs.
type RandomIDs struct{}

func (RandomIDs) Next() string {
	return uuid.NewString()
}

// Ingest measures each grid and builds proposal masks stamped with groupID.
// Grids with zero true cells are dropped and counted in filtered.
func Ingest(grids []*Grid, groupID string, ids IDAllocator) (masks []*Mask, filtered int) {
	for _, g := range grids {
		if g == nil {
			filtered++
			continue
		}
		geo := Measure(g)
		if geo.Area == 0 {
			filtered++
			continue
		}
		masks = append(masks, &Mask{
			ID:       ids.Next(),
			Grid:     g,
			BBox:     geo.BBox,
			Area:     geo.Area,
			Centroid: geo.Centroid,
			GroupID:  groupID,
		})
	}
	return masks, filtered
}
