// Package image decodes the base image and composites mask overlays on top of it.
package image

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"gunpla-colorizer/pkg/geometry"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Base is the image masks are drawn over, as last fetched from the image store.
type Base struct {
	ID       string      // image store identifier
	Image    image.Image // decoded pixels
	Format   string      // decoder that read it (png, jpeg, tiff, ...)
	Revision int         // bumped after every server-side recolor
}

// Decode reads an encoded image from r.
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// DecodeBytes is Decode for an in-memory payload.
func DecodeBytes(data []byte) (image.Image, string, error) {
	return Decode(bytes.NewReader(data))
}

// Width returns the native width in pixels.
func (b *Base) Width() int {
	if b == nil || b.Image == nil {
		return 0
	}
	return b.Image.Bounds().Dx()
}

// Height returns the native height in pixels.
func (b *Base) Height() int {
	if b == nil || b.Image == nil {
		return 0
	}
	return b.Image.Bounds().Dy()
}

// Size returns the native dimensions. It is zero until an image is loaded.
func (b *Base) Size() geometry.Size {
	return geometry.Size{
		Width:  float64(b.Width()),
		Height: float64(b.Height()),
	}
}

// SupportedFormats returns the file extensions the decoders accept.
func SupportedFormats() []string {
	return []string{".png", ".jpg", ".jpeg", ".tiff", ".tif", ".bmp", ".webp"}
}
