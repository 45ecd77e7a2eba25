// Package display maps between on-screen pointer positions and native image pixels
// for an image drawn with aspect-fit containment (letterbox or pillarbox).
package display

import (
	"errors"

	"gunpla-colorizer/pkg/geometry"
)

var (
	// ErrImageNotLoaded means the native size is not known yet.
	ErrImageNotLoaded = errors.New("image natural size is zero")
	// ErrNoDisplay means the image element has no on-screen size yet.
	ErrNoDisplay = errors.New("image display size is zero")
)

// edgeSlack absorbs float error for clicks exactly on the content edge.
const edgeSlack = 1e-9

// Viewport is what the UI knows at the moment of an interaction, in client coordinates.
type Viewport struct {
	Container geometry.Rect // bounding rect of the element receiving pointer events
	Image     geometry.Rect // bounding rect of the image element (its rendered box)
	Natural   geometry.Size // native image resolution
}

// Geometry is the aspect-fit layout of the image content inside its element box.
// It is derived per interaction and never stored.
type Geometry struct {
	ContentWidth  float64
	ContentHeight float64
	OffsetX       float64 // horizontal padding (pillarbox)
	OffsetY       float64 // vertical padding (letterbox)
}

// Fit computes the aspect-fit layout of natural inside box.
func Fit(natural, box geometry.Size) (Geometry, error) {
	if !natural.IsPositive() {
		return Geometry{}, ErrImageNotLoaded
	}
	if !box.IsPositive() {
		return Geometry{}, ErrNoDisplay
	}

	imageAspect := natural.Aspect()
	displayAspect := box.Aspect()

	if imageAspect > displayAspect {
		contentHeight := box.Width / imageAspect
		return Geometry{
			ContentWidth:  box.Width,
			ContentHeight: contentHeight,
			OffsetY:       (box.Height - contentHeight) / 2,
		}, nil
	}
	contentWidth := box.Height * imageAspect
	return Geometry{
		ContentWidth:  contentWidth,
		ContentHeight: box.Height,
		OffsetX:       (box.Width - contentWidth) / 2,
	}, nil
}

// Mapper converts in both directions through a single affine transform, so a marker
// drawn for a native point lands exactly where the click that produced it was.
type Mapper struct {
	Geometry

	container   geometry.Point2D
	natural     geometry.Size
	toNative    geometry.AffineTransform // container-local -> native
	toContainer geometry.AffineTransform // native -> container-local
}

// NewMapper builds a mapper for v. It refuses zero sizes instead of producing NaN.
func NewMapper(v Viewport) (*Mapper, error) {
	geo, err := Fit(v.Natural, v.Image.Size())
	if err != nil {
		return nil, err
	}

	// container-local -> image-element-local -> content-local
	originX := v.Image.X - v.Container.X + geo.OffsetX
	originY := v.Image.Y - v.Container.Y + geo.OffsetY
	toNative := geometry.Scale(
		v.Natural.Width/geo.ContentWidth,
		v.Natural.Height/geo.ContentHeight,
	).Compose(geometry.Translation(-originX, -originY))

	toContainer, ok := toNative.Inverse()
	if !ok {
		return nil, ErrNoDisplay
	}

	return &Mapper{
		Geometry:    geo,
		container:   v.Container.TopLeft(),
		natural:     v.Natural,
		toNative:    toNative,
		toContainer: toContainer,
	}, nil
}

// ToNative maps a client-coordinate pointer position to a native pixel.
// ok is false when the position falls in the padding or outside the content.
func (m *Mapper) ToNative(client geometry.Point2D) (p geometry.PointInt, ok bool) {
	if !client.IsFinite() {
		return geometry.PointInt{}, false
	}
	n := m.toNative.Apply(client.Sub(m.container))
	if n.X < -edgeSlack || n.Y < -edgeSlack ||
		n.X > m.natural.Width+edgeSlack || n.Y > m.natural.Height+edgeSlack {
		return geometry.PointInt{}, false
	}

	p = n.Round()
	p.X = clampInt(p.X, 0, int(m.natural.Width)-1)
	p.Y = clampInt(p.Y, 0, int(m.natural.Height)-1)
	return p, true
}

// ToContainer maps a native point to container-local coordinates, for markers.
func (m *Mapper) ToContainer(native geometry.Point2D) geometry.Point2D {
	return m.toContainer.Apply(native)
}

// ContentRect returns the drawn image content in container-local coordinates.
func (m *Mapper) ContentRect() geometry.Rect {
	tl := m.toContainer.Apply(geometry.Point2D{})
	return geometry.Rect{X: tl.X, Y: tl.Y, Width: m.ContentWidth, Height: m.ContentHeight}
}

// Scale returns native pixels per display pixel along each axis.
func (m *Mapper) Scale() (sx, sy float64) {
	return m.toNative.A, m.toNative.D
}

func clampInt(v, lo, hi int) int {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
