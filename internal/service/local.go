package service

import (
	"context"
	"fmt"
	"image"
	"io"
	"path"
	"strings"
	"sync"

	imgpkg "gunpla-colorizer/internal/image"
	"gunpla-colorizer/pkg/colorutil"

	"go.uber.org/zap"
)

// Local is an in-process image store and recolorer. Stored images are replaced
// in place by Recolor, like the HTTP backend.
type Local struct {
	mu     sync.RWMutex
	images map[string]*image.RGBA
	log    *zap.Logger
}

// NewLocal creates an empty Local backend. A nil logger disables logging.
func NewLocal(log *zap.Logger) *Local {
	if log == nil {
		log = zap.NewNop()
	}
	return &Local{images: make(map[string]*image.RGBA), log: log.Named("local")}
}

// Upload decodes r and stores it as "<stem>.png", replacing any image of that name.
func (l *Local) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	img, _, err := imgpkg.Decode(r)
	if err != nil {
		return "", &TransportError{Op: "upload", StatusCode: 400, Detail: err.Error()}
	}
	base := path.Base(filename)
	id := strings.TrimSuffix(base, path.Ext(base)) + ".png"

	l.mu.Lock()
	l.images[id] = imgpkg.Flatten(img, nil)
	l.mu.Unlock()
	l.log.Debug("stored image", zap.String("image", id))
	return id, nil
}

// Put stores img under id directly.
func (l *Local) Put(id string, img image.Image) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.images[id] = imgpkg.Flatten(img, nil)
}

// Fetch returns a copy of the current pixels. Revisions are ignored: there is no cache.
func (l *Local) Fetch(ctx context.Context, imageID string, _ int) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	img, ok := l.images[imageID]
	if !ok {
		return nil, fmt.Errorf("%q: %w", imageID, ErrUnknownImage)
	}
	return imgpkg.Flatten(img, nil), nil
}

// Recolor remaps hue and saturation of the masked pixels, keeping their value.
func (l *Local) Recolor(ctx context.Context, r RecolorRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	img, ok := l.images[r.ImageID]
	if !ok {
		return &TransportError{Op: "recolor", StatusCode: 404, Detail: ErrUnknownImage.Error()}
	}
	if r.Mask == nil {
		return &TransportError{Op: "recolor", StatusCode: 400, Detail: "missing mask"}
	}
	out, err := colorutil.RemapHueSaturation(img, r.Mask, r.Color)
	if err != nil {
		return &TransportError{Op: "recolor", StatusCode: 400, Detail: err.Error()}
	}
	l.images[r.ImageID] = out
	l.log.Debug("recolored", zap.String("image", r.ImageID), zap.String("color", colorutil.Hex(r.Color)))
	return nil
}
