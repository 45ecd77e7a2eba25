package mask

import (
	"gunpla-colorizer/pkg/geometry"
)

// Geometry is what one pass over a grid extracts.
type Geometry struct {
	Area     int
	BBox     geometry.RectInt
	Centroid geometry.Point2D
}

// Measure counts true cells and tracks running min/max row and column.
// An empty grid yields the zero Geometry (null bbox).
func Measure(g *Grid) Geometry {
	minX, minY := g.Width, g.Height
	maxX, maxY := -1, -1
	var area int
	var sumX, sumY float64

	for y := 0; y < g.Height; y++ {
		row := g.Cells[y*g.Width : (y+1)*g.Width]
		for x, on := range row {
			if !on {
				continue
			}
			area++
			sumX += float64(x) + 0.5
			sumY += float64(y) + 0.5
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}

	if area == 0 {
		return Geometry{}
	}
	return Geometry{
		Area: area,
		BBox: geometry.RectInt{
			X:      minX,
			Y:      minY,
			Width:  maxX - minX + 1,
			Height: maxY - minY + 1,
		},
		Centroid: geometry.Point2D{X: sumX / float64(area), Y: sumY / float64(area)},
	}
}
