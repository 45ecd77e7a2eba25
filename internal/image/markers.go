package image

import (
	"image"
	"image/color"

	"gunpla-colorizer/pkg/colorutil"
	"gunpla-colorizer/pkg/geometry"
)

// MarkerStyle colors the point prompt markers by label.
type MarkerStyle struct {
	Foreground color.RGBA
	Background color.RGBA
	Outline    color.RGBA
	Radius     float64
}

// DefaultMarkerStyle is green for foreground, red for background, white rims.
func DefaultMarkerStyle() MarkerStyle {
	return MarkerStyle{
		Foreground: colorutil.Green,
		Background: colorutil.Red,
		Outline:    colorutil.White,
		Radius:     6,
	}
}

// Fill returns the fill color for a marker.
func (s MarkerStyle) Fill(foreground bool) color.RGBA {
	if foreground {
		return s.Foreground
	}
	return s.Background
}

// DrawMarker rasterizes a filled disc with a 2 pixel rim centred on c.
func DrawMarker(dst *image.RGBA, c geometry.Point2D, radius float64, fill, outline color.RGBA) {
	bounds := dst.Bounds()

	minX := int(c.X - radius - 1)
	maxX := int(c.X + radius + 1)
	minY := int(c.Y - radius - 1)
	maxY := int(c.Y + radius + 1)

	r2 := radius * radius
	inner := radius - 2
	if inner < 0 {
		inner = 0
	}
	innerR2 := inner * inner

	for y := minY; y <= maxY; y++ {
		if y < bounds.Min.Y || y >= bounds.Max.Y {
			continue
		}
		for x := minX; x <= maxX; x++ {
			if x < bounds.Min.X || x >= bounds.Max.X {
				continue
			}
			// pixel centres
			dx := float64(x) + 0.5 - c.X
			dy := float64(y) + 0.5 - c.Y
			d2 := dx*dx + dy*dy
			switch {
			case d2 < innerR2:
				dst.SetRGBA(x, y, fill)
			case d2 <= r2:
				dst.SetRGBA(x, y, outline)
			}
		}
	}
}
