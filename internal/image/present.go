package image

import (
	"image"
	"math"

	"gunpla-colorizer/internal/display"
	"gunpla-colorizer/pkg/geometry"

	xdraw "golang.org/x/image/draw"
)

// Present scales a native-resolution frame into a boxW x boxH element the way the
// display does: aspect-fit, centered, padding left transparent.
func Present(src image.Image, boxW, boxH int) (*image.RGBA, error) {
	b := src.Bounds()
	m, err := display.NewMapper(display.Viewport{
		Container: geometry.NewRect(0, 0, float64(boxW), float64(boxH)),
		Image:     geometry.NewRect(0, 0, float64(boxW), float64(boxH)),
		Natural:   geometry.NewSize(float64(b.Dx()), float64(b.Dy())),
	})
	if err != nil {
		return nil, err
	}

	content := m.ContentRect()
	dstRect := image.Rect(
		int(math.Round(content.X)),
		int(math.Round(content.Y)),
		int(math.Round(content.X+content.Width)),
		int(math.Round(content.Y+content.Height)),
	)
	out := image.NewRGBA(image.Rect(0, 0, boxW, boxH))
	xdraw.NearestNeighbor.Scale(out, dstRect, src, b, xdraw.Over, nil)
	return out, nil
}
