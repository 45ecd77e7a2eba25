package image

import (
	"image"
	"image/color"
	"image/draw"

	"gunpla-colorizer/internal/mask"
	"gunpla-colorizer/pkg/colorutil"
)

// Style is a fill color with a fixed layer opacity.
type Style struct {
	Color color.RGBA
	Alpha float64
}

// Palette is the fixed styling of the three overlay tiers.
type Palette struct {
	RegistryAlpha float64 // color comes from the mask or the global selection
	Proposal      Style
	Hover         Style
}

// DefaultPalette matches the overlay defaults in config.
func DefaultPalette() Palette {
	return Palette{
		RegistryAlpha: 0.5,
		Proposal:      Style{Color: colorutil.Gray, Alpha: 0.4},
		Hover:         Style{Color: colorutil.Cyan, Alpha: 0.75},
	}
}

// Scene is everything one overlay frame depends on.
type Scene struct {
	Width, Height int // native image resolution
	Registry      []*mask.Mask
	Proposals     []*mask.Mask
	HoverID       string
	GlobalColor   color.RGBA
}

// Compositor renders masks as colored layers at native resolution.
type Compositor struct {
	Palette Palette
}

// NewCompositor creates a Compositor with the given palette.
func NewCompositor(p Palette) *Compositor {
	return &Compositor{Palette: p}
}

// compositeLayer is one mask with its resolved style.
type compositeLayer struct {
	mask  *mask.Mask
	style Style
}

// Render produces a transparent overlay the size of the native image. Layers go back
// to front: registry entries, staged proposals, then the hovered mask on top.
func (c *Compositor) Render(s Scene) *image.RGBA {
	result := image.NewRGBA(image.Rect(0, 0, s.Width, s.Height))
	for _, l := range c.layers(s) {
		c.compositeLayer(result, l)
	}
	return result
}

func (c *Compositor) layers(s Scene) []compositeLayer {
	layers := make([]compositeLayer, 0, len(s.Registry)+len(s.Proposals)+1)
	var hovered *mask.Mask

	for _, m := range s.Registry {
		col := s.GlobalColor
		if m.Color != nil {
			col = *m.Color
		}
		layers = append(layers, compositeLayer{mask: m, style: Style{Color: col, Alpha: c.Palette.RegistryAlpha}})
		if s.HoverID != "" && m.ID == s.HoverID {
			hovered = m
		}
	}
	for _, m := range s.Proposals {
		layers = append(layers, compositeLayer{mask: m, style: c.Palette.Proposal})
		if s.HoverID != "" && m.ID == s.HoverID {
			hovered = m
		}
	}
	if hovered != nil {
		layers = append(layers, compositeLayer{mask: hovered, style: c.Palette.Hover})
	}
	return layers
}

// compositeLayer rasterizes one mask into its own buffer and blends it over dst,
// so overlapping masks blend as whole layers rather than pixel by pixel.
func (c *Compositor) compositeLayer(dst *image.RGBA, l compositeLayer) {
	m := l.mask
	if m == nil || m.Grid == nil || m.Area == 0 {
		return
	}
	bbox := image.Rect(m.BBox.X, m.BBox.Y, m.BBox.X+m.BBox.Width, m.BBox.Y+m.BBox.Height)
	bbox = bbox.Intersect(dst.Bounds())
	if bbox.Empty() {
		return
	}

	layer := image.NewNRGBA(bbox)
	fill := color.NRGBA{
		R: l.style.Color.R,
		G: l.style.Color.G,
		B: l.style.Color.B,
		A: uint8(clamp(l.style.Alpha, 0, 1)*255 + 0.5),
	}
	for y := bbox.Min.Y; y < bbox.Max.Y; y++ {
		for x := bbox.Min.X; x < bbox.Max.X; x++ {
			if m.Grid.At(x, y) {
				layer.SetNRGBA(x, y, fill)
			}
		}
	}
	draw.Draw(dst, bbox, layer, bbox.Min, draw.Over)
}

// MaskAt returns the topmost mask of s containing the native pixel (x, y), ignoring hover.
func MaskAt(s Scene, x, y int) *mask.Mask {
	for i := len(s.Proposals) - 1; i >= 0; i-- {
		if s.Proposals[i].Contains(x, y) {
			return s.Proposals[i]
		}
	}
	for i := len(s.Registry) - 1; i >= 0; i-- {
		if s.Registry[i].Contains(x, y) {
			return s.Registry[i]
		}
	}
	return nil
}

// Flatten draws overlay over a copy of base.
func Flatten(base image.Image, overlay image.Image) *image.RGBA {
	b := base.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), base, b.Min, draw.Src)
	if overlay != nil {
		draw.Draw(out, out.Bounds(), overlay, overlay.Bounds().Min, draw.Over)
	}
	return out
}

func clamp(x, min, max float64) float64 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}
