// Package mask holds segmentation masks: dense boolean grids at native image
// resolution, their extracted geometry, and the registry of finalized masks.
package mask

import (
	"errors"
	"fmt"
)

var (
	ErrRaggedGrid   = errors.New("mask rows have different lengths")
	ErrSizeMismatch = errors.New("mask size does not match image")
	ErrBadRLE       = errors.New("invalid run-length mask")
)

// maxRLECells bounds a decoded grid (16384x16384).
const maxRLECells = 1 << 28

// Grid is a dense row-major boolean matrix sized to the native image.
type Grid struct {
	Width  int
	Height int
	Cells  []bool
}

// NewGrid allocates an all-false grid.
func NewGrid(width, height int) *Grid {
	return &Grid{Width: width, Height: height, Cells: make([]bool, width*height)}
}

// FromRows builds a grid from the service's [][]bool wire form.
func FromRows(rows [][]bool) (*Grid, error) {
	if len(rows) == 0 {
		return NewGrid(0, 0), nil
	}
	w := len(rows[0])
	g := NewGrid(w, len(rows))
	for y, row := range rows {
		if len(row) != w {
			return nil, fmt.Errorf("row %d has %d cells, want %d: %w", y, len(row), w, ErrRaggedGrid)
		}
		copy(g.Cells[y*w:(y+1)*w], row)
	}
	return g, nil
}

// FromRLE decodes row-major run lengths. The first run counts false cells, then runs
// alternate; a leading true cell is encoded with a zero-length first run.
func FromRLE(width, height int, counts []int) (*Grid, error) {
	if width < 0 || height < 0 || (height > 0 && width > maxRLECells/height) {
		return nil, fmt.Errorf("size %dx%d: %w", width, height, ErrBadRLE)
	}
	cells := width * height
	// check every run before allocating
	pos := 0
	for _, n := range counts {
		if n < 0 || n > cells-pos {
			return nil, fmt.Errorf("run of %d at %d overflows %d cells: %w", n, pos, cells, ErrBadRLE)
		}
		pos += n
	}
	if pos != cells {
		return nil, fmt.Errorf("runs cover %d of %d cells: %w", pos, cells, ErrBadRLE)
	}

	g := NewGrid(width, height)
	pos = 0
	value := false
	for _, n := range counts {
		if value {
			for i := pos; i < pos+n; i++ {
				g.Cells[i] = true
			}
		}
		pos += n
		value = !value
	}
	return g, nil
}

// Size returns the grid dimensions.
func (g *Grid) Size() (int, int) {
	return g.Width, g.Height
}

// At reports the cell at column x, row y. Out-of-range cells are false.
func (g *Grid) At(x, y int) bool {
	if x < 0 || y < 0 || x >= g.Width || y >= g.Height {
		return false
	}
	return g.Cells[y*g.Width+x]
}

// Set writes the cell at column x, row y.
func (g *Grid) Set(x, y int, v bool) {
	if x < 0 || y < 0 || x >= g.Width || y >= g.Height {
		return
	}
	g.Cells[y*g.Width+x] = v
}

// Rows converts back to the [][]bool wire form.
func (g *Grid) Rows() [][]bool {
	rows := make([][]bool, g.Height)
	for y := range rows {
		row := make([]bool, g.Width)
		copy(row, g.Cells[y*g.Width:(y+1)*g.Width])
		rows[y] = row
	}
	return rows
}

// CheckSize returns ErrSizeMismatch unless the grid is width x height.
func (g *Grid) CheckSize(width, height int) error {
	if g.Width != width || g.Height != height {
		return fmt.Errorf("grid %dx%d, image %dx%d: %w", g.Width, g.Height, width, height, ErrSizeMismatch)
	}
	return nil
}
