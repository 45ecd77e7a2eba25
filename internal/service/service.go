// Package service talks to the external collaborators of an editing session: the
// image store, the segmentation service and the recolor service.
package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"

	"gunpla-colorizer/internal/mask"
	"gunpla-colorizer/internal/prompt"
)

var (
	ErrBadResponse  = errors.New("malformed service response")
	ErrUnknownImage = errors.New("image not found")
)

// ImageStore uploads images and serves their current pixels.
type ImageStore interface {
	Upload(ctx context.Context, filename string, r io.Reader) (imageID string, err error)
	// Fetch returns the image as of revision; a new revision bypasses any cache.
	Fetch(ctx context.Context, imageID string, revision int) (image.Image, error)
}

// Segmenter turns one round of point prompts into candidate masks.
type Segmenter interface {
	Segment(ctx context.Context, req prompt.Request) ([]*mask.Grid, error)
}

// Recolorer applies a recolor to the stored base image.
type Recolorer interface {
	Recolor(ctx context.Context, req RecolorRequest) error
}

// RecolorRequest asks for the masked region of an image to take Color.
type RecolorRequest struct {
	ImageID string
	Mask    *mask.Grid
	Color   color.RGBA
}

// TransportError is a non-success response from a service.
type TransportError struct {
	Op         string
	StatusCode int
	Detail     string
}

func (e *TransportError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
}

// IsTransport reports whether err came from a failed service call rather than a
// local precondition.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
