package image

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"testing"

	"gunpla-colorizer/internal/mask"
	"gunpla-colorizer/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

var (
	red  = color.RGBA{R: 255, A: 255}
	blue = color.RGBA{B: 255, A: 255}
)

// square builds a mask with true cells in [x0,x1) x [y0,y1).
func square(t *testing.T, id string, w, h, x0, y0, x1, y1 int) *mask.Mask {
	t.Helper()
	g := mask.NewGrid(w, h)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			g.Set(x, y, true)
		}
	}
	masks, _ := mask.Ingest([]*mask.Grid{g}, "round", mask.NewSequence("tmp"))
	require.Len(t, masks, 1)
	masks[0].ID = id
	return masks[0]
}

func nrgba(img image.Image, x, y int) color.NRGBA {
	return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
}

func TestRenderSizedToNativeImage(t *testing.T) {
	c := NewCompositor(DefaultPalette())
	out := c.Render(Scene{Width: 640, Height: 480})
	assert.Equal(t, image.Rect(0, 0, 640, 480), out.Bounds())
	assert.Zero(t, nrgba(out, 10, 10).A)
}

func TestRenderRegistryColors(t *testing.T) {
	c := NewCompositor(DefaultPalette())
	own := square(t, "a", 10, 10, 0, 0, 3, 3)
	own.Color = &red
	fallback := square(t, "b", 10, 10, 6, 6, 9, 9)

	out := c.Render(Scene{Width: 10, Height: 10, Registry: []*mask.Mask{own, fallback}, GlobalColor: blue})

	assert.Equal(t, color.NRGBA{R: 255, A: 128}, nrgba(out, 1, 1))
	assert.Equal(t, color.NRGBA{B: 255, A: 128}, nrgba(out, 7, 7))
	assert.Zero(t, nrgba(out, 5, 5).A)
}

func TestRenderProposalsAboveRegistry(t *testing.T) {
	p := DefaultPalette()
	c := NewCompositor(p)
	entry := square(t, "a", 8, 8, 0, 0, 6, 6)
	entry.Color = &red
	proposal := square(t, "p", 8, 8, 2, 2, 8, 8)

	out := c.Render(Scene{Width: 8, Height: 8, Registry: []*mask.Mask{entry}, Proposals: []*mask.Mask{proposal}})

	want := image.NewRGBA(image.Rect(0, 0, 1, 1))
	draw.Draw(want, want.Bounds(), &image.Uniform{color.NRGBA{R: 255, A: 128}}, image.Point{}, draw.Over)
	draw.Draw(want, want.Bounds(), &image.Uniform{color.NRGBA{R: 158, G: 158, B: 158, A: 102}}, image.Point{}, draw.Over)
	assert.Equal(t, want.RGBAAt(0, 0), out.RGBAAt(3, 3))

	assert.Equal(t, color.NRGBA{R: 158, G: 158, B: 158, A: 102}, nrgba(out, 7, 7))
}

func TestRenderHoverDrawnLast(t *testing.T) {
	c := NewCompositor(DefaultPalette())
	entry := square(t, "a", 8, 8, 0, 0, 4, 4)
	p1 := square(t, "p1", 8, 8, 0, 0, 8, 8)
	p2 := square(t, "p2", 8, 8, 4, 4, 8, 8)

	plain := c.Render(Scene{Width: 8, Height: 8, Registry: []*mask.Mask{entry}, Proposals: []*mask.Mask{p1, p2}})

	t.Run("hovered proposal", func(t *testing.T) {
		out := c.Render(Scene{Width: 8, Height: 8, Registry: []*mask.Mask{entry}, Proposals: []*mask.Mask{p1, p2}, HoverID: "p1"})
		px := nrgba(out, 1, 6)
		assert.Greater(t, px.B, px.R)
		assert.Greater(t, int(px.A), 200)
		assert.NotEqual(t, plain.RGBAAt(7, 7), out.RGBAAt(7, 7), "p1 covers the whole grid")
	})

	t.Run("hovered registry entry", func(t *testing.T) {
		base := Scene{Width: 8, Height: 8, Registry: []*mask.Mask{entry}, Proposals: []*mask.Mask{p2}}
		before := c.Render(base)
		base.HoverID = "a"
		out := c.Render(base)
		px := nrgba(out, 1, 1)
		assert.Greater(t, px.B, px.R)
		assert.Equal(t, before.RGBAAt(6, 6), out.RGBAAt(6, 6), "outside the hovered mask nothing changes")
	})

	t.Run("unknown hover id is ignored", func(t *testing.T) {
		out := c.Render(Scene{Width: 8, Height: 8, Registry: []*mask.Mask{entry}, Proposals: []*mask.Mask{p1, p2}, HoverID: "zzz"})
		assert.Equal(t, plain.Pix, out.Pix)
	})
}

func TestMaskAt(t *testing.T) {
	entry := square(t, "a", 8, 8, 0, 0, 4, 4)
	p1 := square(t, "p1", 8, 8, 2, 2, 6, 6)
	p2 := square(t, "p2", 8, 8, 3, 3, 5, 5)
	s := Scene{Width: 8, Height: 8, Registry: []*mask.Mask{entry}, Proposals: []*mask.Mask{p1, p2}}

	assert.Equal(t, "p2", MaskAt(s, 3, 3).ID)
	assert.Equal(t, "p1", MaskAt(s, 2, 2).ID)
	assert.Equal(t, "a", MaskAt(s, 0, 0).ID)
	assert.Nil(t, MaskAt(s, 7, 0))
}

func TestPresentLetterbox(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 800, 200))
	draw.Draw(src, src.Bounds(), &image.Uniform{red}, image.Point{}, draw.Src)

	out, err := Present(src, 400, 300)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 400, 300), out.Bounds())
	assert.Zero(t, out.RGBAAt(200, 50).A, "letterbox padding stays transparent")
	assert.Equal(t, red, out.RGBAAt(200, 150))
	assert.Zero(t, out.RGBAAt(200, 250).A)

	_, err = Present(image.NewRGBA(image.Rect(0, 0, 0, 0)), 400, 300)
	assert.Error(t, err)
}

func TestFlattenAndDecode(t *testing.T) {
	base := image.NewRGBA(image.Rect(0, 0, 4, 4))
	draw.Draw(base, base.Bounds(), &image.Uniform{blue}, image.Point{}, draw.Src)
	c := NewCompositor(DefaultPalette())
	entry := square(t, "a", 4, 4, 0, 0, 2, 2)
	entry.Color = &red

	flat := Flatten(base, c.Render(Scene{Width: 4, Height: 4, Registry: []*mask.Mask{entry}}))
	assert.Equal(t, blue, flat.RGBAAt(3, 3))
	px := flat.RGBAAt(0, 0)
	assert.Equal(t, uint8(255), px.A)
	assert.InDelta(t, 128, int(px.R), 1)
	assert.InDelta(t, 127, int(px.B), 1)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, flat))
	img, format, err := DecodeBytes(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	b := &Base{ID: "x.png", Image: img}
	assert.Equal(t, 4, b.Width())
	assert.Equal(t, 4, b.Height())

	_, _, err = DecodeBytes([]byte("not an image"))
	assert.Error(t, err)

	var empty *Base
	assert.False(t, empty.Size().IsPositive())
}

func TestSupportedFormatsDecode(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	tests := []struct {
		ext    string
		format string
		encode func(*bytes.Buffer) error
	}{
		{".png", "png", func(b *bytes.Buffer) error { return png.Encode(b, src) }},
		{".bmp", "bmp", func(b *bytes.Buffer) error { return bmp.Encode(b, src) }},
		{".tiff", "tiff", func(b *bytes.Buffer) error { return tiff.Encode(b, src, nil) }},
	}
	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			assert.Contains(t, SupportedFormats(), tt.ext)
			var buf bytes.Buffer
			require.NoError(t, tt.encode(&buf))
			img, format, err := DecodeBytes(buf.Bytes())
			require.NoError(t, err)
			assert.Equal(t, tt.format, format)
			assert.Equal(t, src.Bounds(), img.Bounds())
		})
	}
}

func TestDrawMarker(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 20, 20))
	st := DefaultMarkerStyle()
	DrawMarker(dst, geometry.NewPoint2D(10, 10), 6, st.Fill(true), st.Outline)

	assert.Equal(t, st.Foreground, dst.RGBAAt(10, 10))
	assert.Equal(t, st.Outline, dst.RGBAAt(15, 10), "rim")
	assert.Zero(t, dst.RGBAAt(0, 0).A)
	assert.Equal(t, st.Background, st.Fill(false))

	// Clipped at the image edge without panicking.
	DrawMarker(dst, geometry.NewPoint2D(0, 0), 6, st.Fill(false), st.Outline)
	assert.Equal(t, st.Background, dst.RGBAAt(0, 0))
}
