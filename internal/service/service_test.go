package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"gunpla-colorizer/internal/mask"
	"gunpla-colorizer/internal/prompt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL + "/"
	return NewClient(cfg, nil)
}

func pngBytes(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestClientUpload(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upload-image/", r.URL.Path)
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		body, _ := io.ReadAll(f)
		assert.Equal(t, "kit.jpg", hdr.Filename)
		assert.Equal(t, "pixels", string(body))
		_, _ = w.Write([]byte(`{"info":"ok","image_name":"kit.png"}`))
	}))

	id, err := c.Upload(context.Background(), "/tmp/photos/kit.jpg", bytes.NewBufferString("pixels"))
	require.NoError(t, err)
	assert.Equal(t, "kit.png", id)
}

func TestClientFetchCacheBusts(t *testing.T) {
	data := pngBytes(t, 3, 2, color.RGBA{G: 255, A: 255})
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/uploaded_images/kit.png", r.URL.Path)
		assert.Equal(t, "4", r.URL.Query().Get("v"))
		_, _ = w.Write(data)
	}))

	img, err := c.Fetch(context.Background(), "kit.png", 4)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 2), img.Bounds())
}

func TestClientSegment(t *testing.T) {
	req := prompt.Request{
		ImageID: "kit.png",
		RoundID: "r1",
		Points:  []prompt.Point{{X: 1, Y: 0, Label: prompt.Foreground}, {X: 0, Y: 1, Label: prompt.Background}},
	}

	t.Run("dense masks", func(t *testing.T) {
		c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var got segmentRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			assert.Equal(t, "kit.png", got.ImageName)
			assert.Equal(t, req.Points, got.Prompts)
			_, _ = w.Write([]byte(`{"image_name":"kit.png","masks":[[[false,true],[false,false]],[[true,true],[true,true]]]}`))
		}))
		grids, err := c.Segment(context.Background(), req)
		require.NoError(t, err)
		require.Len(t, grids, 2)
		assert.True(t, grids[0].At(1, 0))
		assert.False(t, grids[0].At(0, 0))
		assert.Equal(t, 4, mask.Measure(grids[1]).Area)
	})

	t.Run("run length masks", func(t *testing.T) {
		c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"image_name":"kit.png","masks":[],"masks_rle":[{"size":[2,3],"counts":[1,2,3]}]}`))
		}))
		grids, err := c.Segment(context.Background(), req)
		require.NoError(t, err)
		require.Len(t, grids, 1)
		w, h := grids[0].Size()
		assert.Equal(t, 3, w)
		assert.Equal(t, 2, h)
		assert.Equal(t, 2, mask.Measure(grids[0]).Area)
	})

	t.Run("overflowing run lengths are a bad response", func(t *testing.T) {
		c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"image_name":"kit.png","masks_rle":[{"size":[2,2],"counts":[1,9223372036854775807,9223372036854775807,5]}]}`))
		}))
		_, err := c.Segment(context.Background(), req)
		assert.ErrorIs(t, err, ErrBadResponse)
		assert.ErrorIs(t, err, mask.ErrBadRLE)
	})

	t.Run("ragged mask is a bad response", func(t *testing.T) {
		c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"image_name":"kit.png","masks":[[[true],[true,false]]]}`))
		}))
		_, err := c.Segment(context.Background(), req)
		assert.ErrorIs(t, err, ErrBadResponse)
	})

	t.Run("error detail is surfaced", func(t *testing.T) {
		c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"Image not found"}`))
		}))
		_, err := c.Segment(context.Background(), req)
		var te *TransportError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, http.StatusNotFound, te.StatusCode)
		assert.Equal(t, "Image not found", te.Detail)
		assert.True(t, IsTransport(err))
	})
}

func TestClientRecolor(t *testing.T) {
	g := mask.NewGrid(2, 1)
	g.Set(1, 0, true)

	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var got recolorRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "kit.png", got.ImageName)
		assert.Equal(t, "#ff8000", got.TargetHexColor)
		assert.Equal(t, [][]bool{{false, true}}, got.Mask)
		_, _ = w.Write([]byte(`{"message":"ok","recolored_image_name":"kit.png","new_color_applied":"#ff8000"}`))
	}))

	err := c.Recolor(context.Background(), RecolorRequest{ImageID: "kit.png", Mask: g, Color: color.RGBA{R: 255, G: 128, A: 255}})
	require.NoError(t, err)

	assert.ErrorIs(t, c.Recolor(context.Background(), RecolorRequest{ImageID: "kit.png"}), mask.ErrEmptyMask)
}

func TestDetailValidationList(t *testing.T) {
	assert.Equal(t, `[{"loc":["body"],"msg":"field required"}]`, detail([]byte(`{"detail":[{"loc":["body"],"msg":"field required"}]}`)))
	assert.Empty(t, detail([]byte("<html>")))
}

func TestLocalBackend(t *testing.T) {
	ctx := context.Background()
	l := NewLocal(nil)

	id, err := l.Upload(ctx, "photos/kit.jpeg", bytes.NewReader(pngBytes(t, 2, 2, color.RGBA{G: 128, A: 255})))
	require.NoError(t, err)
	assert.Equal(t, "kit.png", id)

	g := mask.NewGrid(2, 2)
	g.Set(0, 0, true)
	require.NoError(t, l.Recolor(ctx, RecolorRequest{ImageID: id, Mask: g, Color: color.RGBA{R: 255, A: 255}}))

	img, err := l.Fetch(ctx, id, 1)
	require.NoError(t, err)
	rgba := img.(*image.RGBA)
	assert.Equal(t, color.RGBA{R: 128, A: 255}, rgba.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{G: 128, A: 255}, rgba.RGBAAt(1, 1))

	t.Run("size mismatch", func(t *testing.T) {
		err := l.Recolor(ctx, RecolorRequest{ImageID: id, Mask: mask.NewGrid(3, 3), Color: color.RGBA{A: 255}})
		assert.True(t, IsTransport(err))
	})

	t.Run("unknown image", func(t *testing.T) {
		_, err := l.Fetch(ctx, "missing.png", 0)
		assert.ErrorIs(t, err, ErrUnknownImage)
		assert.True(t, IsTransport(l.Recolor(ctx, RecolorRequest{ImageID: "missing.png", Mask: g})))
	})

	t.Run("bad upload", func(t *testing.T) {
		_, err := l.Upload(ctx, "x.png", bytes.NewBufferString("nope"))
		assert.True(t, IsTransport(err))
	})
}
