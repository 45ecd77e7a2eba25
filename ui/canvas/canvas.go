// Package canvas provides the mask editing canvas: the base image and its mask
// overlay drawn contain-fit, point markers on top, and pointer input.
package canvas

import (
	"image"
	"image/color"

	"gunpla-colorizer/internal/app"
	"gunpla-colorizer/internal/display"
	imgpkg "gunpla-colorizer/internal/image"
	"gunpla-colorizer/internal/prompt"
	"gunpla-colorizer/pkg/geometry"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

// MaskCanvas shows a session and forwards clicks and hover to it. Primary
// click adds a foreground point, secondary click a background point.
type MaskCanvas struct {
	widget.BaseWidget

	state  *app.State
	style  imgpkg.MarkerStyle
	base   *fynecanvas.Image
	over   *fynecanvas.Image
	dots   []*fynecanvas.Circle
	points []app.Marker

	onError func(error)
}

var (
	_ fyne.Tappable          = (*MaskCanvas)(nil)
	_ fyne.SecondaryTappable = (*MaskCanvas)(nil)
	_ desktop.Hoverable      = (*MaskCanvas)(nil)
)

// NewMaskCanvas creates a canvas bound to state.
func NewMaskCanvas(state *app.State, style imgpkg.MarkerStyle) *MaskCanvas {
	mc := &MaskCanvas{
		state: state,
		style: style,
		base:  newContainImage(),
		over:  newContainImage(),
	}
	mc.ExtendBaseWidget(mc)
	return mc
}

func newContainImage() *fynecanvas.Image {
	img := fynecanvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, 1, 1)))
	img.FillMode = fynecanvas.ImageFillContain
	// nearest neighbour keeps mask edges on native pixel boundaries
	img.ScaleMode = fynecanvas.ImageScalePixels
	img.Hide()
	return img
}

// OnError sets the callback for operation errors raised by pointer input.
func (mc *MaskCanvas) OnError(f func(error)) {
	mc.onError = f
}

// viewport describes the widget for coordinate mapping. The image objects fill
// the widget, so container and image rects coincide.
func (mc *MaskCanvas) viewport() display.Viewport {
	size := mc.Size()
	r := geometry.NewRect(0, 0, float64(size.Width), float64(size.Height))
	return display.Viewport{Container: r, Image: r}
}

func toPoint(p fyne.Position) geometry.Point2D {
	return geometry.NewPoint2D(float64(p.X), float64(p.Y))
}

// Tapped adds a foreground point.
func (mc *MaskCanvas) Tapped(ev *fyne.PointEvent) {
	mc.addPoint(ev.Position, prompt.Foreground)
}

// TappedSecondary adds a background point.
func (mc *MaskCanvas) TappedSecondary(ev *fyne.PointEvent) {
	mc.addPoint(ev.Position, prompt.Background)
}

func (mc *MaskCanvas) addPoint(pos fyne.Position, label prompt.Label) {
	if _, err := mc.state.AddPointAt(mc.viewport(), toPoint(pos), label); err != nil && mc.onError != nil {
		mc.onError(err)
	}
}

// MouseIn is part of desktop.Hoverable.
func (mc *MaskCanvas) MouseIn(ev *desktop.MouseEvent) {
	mc.state.HoverAt(mc.viewport(), toPoint(ev.Position))
}

// MouseMoved hovers the mask under the pointer.
func (mc *MaskCanvas) MouseMoved(ev *desktop.MouseEvent) {
	mc.state.HoverAt(mc.viewport(), toPoint(ev.Position))
}

// MouseOut clears the hover.
func (mc *MaskCanvas) MouseOut() {
	mc.state.Hover("")
}

// Sync pulls the base image, overlay and markers from the session and redraws.
func (mc *MaskCanvas) Sync() {
	base := mc.state.Image()
	if base == nil {
		mc.base.Hide()
		mc.over.Hide()
		mc.points = nil
		mc.Refresh()
		return
	}
	mc.base.Image = base.Image
	mc.base.Show()
	if ov := mc.state.Overlay(); ov != nil {
		mc.over.Image = ov
		mc.over.Show()
	}
	mc.base.Refresh()
	mc.over.Refresh()
	mc.SyncMarkers()
}

// SyncMarkers repositions the point markers for the current widget size.
func (mc *MaskCanvas) SyncMarkers() {
	markers, err := mc.state.Markers(mc.viewport())
	if err != nil {
		markers = nil
	}
	mc.points = markers
	mc.Refresh()
}

// CreateRenderer implements fyne.Widget.
func (mc *MaskCanvas) CreateRenderer() fyne.WidgetRenderer {
	return &maskCanvasRenderer{canvas: mc}
}

type maskCanvasRenderer struct {
	canvas *MaskCanvas
}

func (r *maskCanvasRenderer) Layout(size fyne.Size) {
	mc := r.canvas
	mc.base.Resize(size)
	mc.over.Resize(size)
	if markers, err := mc.state.Markers(mc.viewport()); err == nil {
		mc.points = markers
	}
	r.layoutMarkers()
}

func (r *maskCanvasRenderer) layoutMarkers() {
	mc := r.canvas
	for len(mc.dots) < len(mc.points) {
		c := fynecanvas.NewCircle(color.Transparent)
		c.StrokeWidth = 2
		mc.dots = append(mc.dots, c)
	}
	rad := float32(mc.style.Radius)
	for i, dot := range mc.dots {
		if i >= len(mc.points) {
			dot.Hide()
			continue
		}
		m := mc.points[i]
		dot.FillColor = mc.style.Fill(m.Label == prompt.Foreground)
		dot.StrokeColor = mc.style.Outline
		dot.Move(fyne.NewPos(float32(m.Center.X)-rad, float32(m.Center.Y)-rad))
		dot.Resize(fyne.NewSize(2*rad, 2*rad))
		dot.Show()
		dot.Refresh()
	}
}

func (r *maskCanvasRenderer) MinSize() fyne.Size {
	return fyne.NewSize(200, 150)
}

func (r *maskCanvasRenderer) Refresh() {
	r.layoutMarkers()
	r.canvas.base.Refresh()
	r.canvas.over.Refresh()
}

func (r *maskCanvasRenderer) Objects() []fyne.CanvasObject {
	objs := []fyne.CanvasObject{r.canvas.base, r.canvas.over}
	for _, d := range r.canvas.dots {
		objs = append(objs, d)
	}
	return objs
}

func (r *maskCanvasRenderer) Destroy() {}
