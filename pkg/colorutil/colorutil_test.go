package colorutil

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cells struct {
	w, h int
	on   map[image.Point]bool
}

func (c cells) Size() (int, int) { return c.w, c.h }
func (c cells) At(x, y int) bool { return c.on[image.Pt(x, y)] }

func TestParseHex(t *testing.T) {
	tests := []struct {
		in   string
		want color.RGBA
		err  bool
	}{
		{in: "#ff0000", want: color.RGBA{R: 255, A: 255}},
		{in: "#00FF80", want: color.RGBA{G: 255, B: 128, A: 255}},
		{in: "#fff", want: color.RGBA{R: 255, G: 255, B: 255, A: 255}},
		{in: "red", err: true},
		{in: "#12345", err: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHex(tt.in)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHexFormat(t *testing.T) {
	assert.Equal(t, "#ff00ff", Hex(color.RGBA{R: 255, B: 255, A: 255}))
	assert.Equal(t, "#102030", Hex(color.NRGBA{R: 0x10, G: 0x20, B: 0x30, A: 0}))
}

func TestHSVRoundTrip(t *testing.T) {
	for _, c := range []color.RGBA{Red, {B: 255, A: 255}, {G: 255, A: 255}, White, {A: 255}} {
		h, s, v := RGBToHSV(float64(c.R), float64(c.G), float64(c.B))
		r, g, b := HSVToRGB(h, s, v)
		assert.Equal(t, [3]uint8{c.R, c.G, c.B}, [3]uint8{r, g, b})
	}
}

func TestRemapHueSaturationKeepsValue(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.SetRGBA(0, 0, color.RGBA{R: 0, G: 128, B: 0, A: 255})
	img.SetRGBA(1, 0, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	mask := cells{w: 2, h: 1, on: map[image.Point]bool{{0, 0}: true}}

	out, err := RemapHueSaturation(img, mask, Red)
	require.NoError(t, err)

	assert.Equal(t, color.RGBA{R: 128, A: 255}, out.RGBAAt(0, 0))
	assert.Equal(t, img.RGBAAt(1, 0), out.RGBAAt(1, 0))
}

func TestRemapHueSaturationSizeMismatch(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 3))
	_, err := RemapHueSaturation(img, cells{w: 2, h: 2}, Red)
	assert.Error(t, err)
}
