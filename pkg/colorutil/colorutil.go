// Package colorutil provides shared color utilities: hex parsing, overlay palette
// and the hue/saturation remap used to preview a recolor.
package colorutil

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Common overlay colors used throughout the application.
var (
	White = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Cyan  = color.RGBA{R: 0, G: 229, B: 255, A: 255}
	Red   = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	Green = color.RGBA{R: 0, G: 200, B: 83, A: 255}
	Gray  = color.RGBA{R: 158, G: 158, B: 158, A: 255}
)

// ParseHex parses "#rrggbb" or "#rgb" into an opaque RGBA color.
func ParseHex(s string) (color.RGBA, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

// Hex formats a color as "#rrggbb", discarding alpha.
func Hex(c color.Color) string {
	cf, _ := colorful.MakeColor(opaque(c))
	return cf.Hex()
}

// opaque drops alpha so MakeColor never sees a zero-alpha color.
func opaque(c color.Color) color.Color {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = 255
	return n
}

// RGBToHSV converts RGB (0-255) to HSV (OpenCV convention: H 0-180, S 0-255, V 0-255).
func RGBToHSV(r, g, b float64) (h, s, v float64) {
	r /= 255.0
	g /= 255.0
	b /= 255.0

	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	diff := maxC - minC

	v = maxC * 255.0

	if maxC == 0 {
		s = 0
	} else {
		s = (diff / maxC) * 255.0
	}

	if diff == 0 {
		h = 0
	} else if maxC == r {
		h = 60 * math.Mod((g-b)/diff, 6)
	} else if maxC == g {
		h = 60 * ((b-r)/diff + 2)
	} else {
		h = 60 * ((r-g)/diff + 4)
	}

	if h < 0 {
		h += 360
	}

	return h / 2, s, v
}

// HSVToRGB is the inverse of RGBToHSV (OpenCV convention input, 0-255 output).
func HSVToRGB(h, s, v float64) (r, g, b uint8) {
	c := colorful.Hsv(math.Mod(h*2, 360), s/255.0, v/255.0).Clamped()
	return c.RGB255()
}

// Cells is the minimal view of a boolean mask the remap needs.
type Cells interface {
	Size() (width, height int)
	At(x, y int) bool
}

// RemapHueSaturation returns a copy of img where every pixel selected by mask takes the
// hue and saturation of target while keeping its own value (brightness), so texture and
// shading survive the recolor. Target H/S are quantized to 8 bits like OpenCV's HSV.
func RemapHueSaturation(img image.Image, mask Cells, target color.Color) (*image.RGBA, error) {
	b := img.Bounds()
	mw, mh := mask.Size()
	if mw != b.Dx() || mh != b.Dy() {
		return nil, fmt.Errorf("mask %dx%d does not match image %dx%d", mw, mh, b.Dx(), b.Dy())
	}

	tr, tg, tb, _ := opaque(target).RGBA()
	th, ts, _ := RGBToHSV(float64(tr>>8), float64(tg>>8), float64(tb>>8))
	th, ts = math.Round(th), math.Round(ts)

	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			src := color.RGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.RGBA)
			if !mask.At(x, y) {
				out.SetRGBA(x, y, src)
				continue
			}
			_, _, v := RGBToHSV(float64(src.R), float64(src.G), float64(src.B))
			r, g, bl := HSVToRGB(th, ts, v)
			out.SetRGBA(x, y, color.RGBA{R: r, G: g, B: bl, A: src.A})
		}
	}
	return out, nil
}
