// Package app owns one editing session: the bound image, the point prompts, the
// staged proposals and the mask registry, and the calls that move data between them.
package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	goimage "image"
	"image/color"
	"io"
	"sync"

	"gunpla-colorizer/internal/display"
	"gunpla-colorizer/internal/image"
	"gunpla-colorizer/internal/mask"
	"gunpla-colorizer/internal/prompt"
	"gunpla-colorizer/internal/service"
	"gunpla-colorizer/pkg/colorutil"
	"gunpla-colorizer/pkg/geometry"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNoUsableMasks means a segmentation round returned nothing but empty masks.
var ErrNoUsableMasks = errors.New("segmentation returned no usable masks")

// Services are the external collaborators of a session.
type Services struct {
	Store     service.ImageStore
	Segmenter service.Segmenter
	Recolorer service.Recolorer
}

// Option configures a State.
type Option func(*State)

// WithLogger sets the session logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *State) { s.log = log }
}

// WithPalette sets the overlay styling.
func WithPalette(p image.Palette) Option {
	return func(s *State) { s.compositor = image.NewCompositor(p) }
}

// WithGlobalColor sets the initial global color selection.
func WithGlobalColor(c color.RGBA) Option {
	return func(s *State) { s.globalColor = c }
}

// WithIDs sets the allocator for proposal and registry ids.
func WithIDs(ids mask.IDAllocator) Option {
	return func(s *State) { s.registry = mask.NewRegistryWithIDs(ids) }
}

// WithRoundIDs sets the round id generator.
func WithRoundIDs(next func() string) Option {
	return func(s *State) { s.newRound = next }
}

// State holds the session. All methods are safe for concurrent use; service
// calls run without the lock so reads stay available while one is pending.
type State struct {
	mu sync.RWMutex

	log        *zap.Logger
	svc        Services
	compositor *image.Compositor
	newRound   func() string

	base      *image.Base
	collector *prompt.Collector
	stager    *prompt.Stager
	registry  *mask.Registry

	hoverID     string
	globalColor color.RGBA

	// Overlay cache, invalidated by bumping revision.
	revision     uint64
	overlay      *goimage.RGBA
	overlayValid uint64

	// Latest recolor token issued per mask id.
	recolorSeq     uint64
	recolorTokens  map[string]uint64
	recolorPending int

	// Last base image revision handed to a fetch. Never reset, so a fetch
	// issued before a rebind cannot outrank one issued after it.
	fetchSeq int

	listeners map[EventType][]EventListener
}

// NewState creates an idle session.
func NewState(svc Services, opts ...Option) *State {
	s := &State{
		svc:           svc,
		compositor:    image.NewCompositor(image.DefaultPalette()),
		newRound:      uuid.NewString,
		collector:     prompt.NewCollector(),
		stager:        prompt.NewStager(),
		registry:      mask.NewRegistry(),
		globalColor:   colorutil.Red,
		recolorTokens: make(map[string]uint64),
		listeners:     make(map[EventType][]EventListener),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// LoadImage decodes the image read from r, uploads it and binds the session to it.
func (s *State) LoadImage(ctx context.Context, filename string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read %s: %w", filename, err)
	}
	img, format, err := image.DecodeBytes(data)
	if err != nil {
		return err
	}
	id, err := s.svc.Store.Upload(ctx, filename, bytes.NewReader(data))
	if err != nil {
		s.Emit(EventError, err)
		return fmt.Errorf("upload %s: %w", filename, err)
	}
	return s.bind(&image.Base{ID: id, Image: img, Format: format})
}

// BindImage binds the session to an image already in the store.
func (s *State) BindImage(id string, img goimage.Image) error {
	return s.bind(&image.Base{ID: id, Image: img})
}

// bind resets the whole session onto base. Any round or recolor in flight becomes stale.
func (s *State) bind(base *image.Base) error {
	if !base.Size().IsPositive() {
		return display.ErrImageNotLoaded
	}
	s.mu.Lock()
	if err := s.collector.Bind(base.ID); err != nil {
		s.mu.Unlock()
		return err
	}
	base.Revision = s.fetchSeq
	s.base = base
	s.stager.Clear()
	s.registry.RemoveAll()
	s.hoverID = ""
	s.recolorTokens = make(map[string]uint64)
	s.invalidate()
	s.mu.Unlock()

	s.log.Info("image bound",
		zap.String("image", base.ID),
		zap.Int("width", base.Width()),
		zap.Int("height", base.Height()))
	s.Emit(EventImageLoaded, base)
	return nil
}

// Reset unbinds the image and drops all session data.
func (s *State) Reset() {
	s.mu.Lock()
	s.base = nil
	s.collector.Reset()
	s.stager.Clear()
	s.registry.RemoveAll()
	s.hoverID = ""
	s.recolorTokens = make(map[string]uint64)
	s.invalidate()
	s.mu.Unlock()
	s.Emit(EventImageLoaded, (*image.Base)(nil))
}

// Image returns the bound base image, or nil.
func (s *State) Image() *image.Base {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.base == nil {
		return nil
	}
	b := *s.base
	return &b
}

// AddPointAt maps a pointer position through v and records a point there. It
// returns false without error when the position falls outside the image content
// or the display geometry cannot be computed yet.
func (s *State) AddPointAt(v display.Viewport, client geometry.Point2D, label prompt.Label) (bool, error) {
	s.mu.RLock()
	if s.base == nil {
		s.mu.RUnlock()
		return false, prompt.ErrNoImage
	}
	v.Natural = s.base.Size()
	s.mu.RUnlock()

	m, err := display.NewMapper(v)
	if err != nil {
		return false, nil
	}
	p, ok := m.ToNative(client)
	if !ok {
		return false, nil
	}
	if err := s.AddPoint(prompt.NewPoint(p, label)); err != nil {
		return false, err
	}
	return true, nil
}

// AddPoint records a point in native image coordinates.
func (s *State) AddPoint(p prompt.Point) error {
	s.mu.Lock()
	if err := s.collector.Add(p); err != nil {
		s.mu.Unlock()
		return err
	}
	n := s.collector.Len()
	s.mu.Unlock()
	s.Emit(EventPointsChanged, n)
	return nil
}

// ClearPoints empties the point sequence, leaving any staged batch alone.
func (s *State) ClearPoints() error {
	s.mu.Lock()
	removed, err := s.collector.Clear()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if removed {
		s.Emit(EventPointsChanged, 0)
	}
	return nil
}

// Points returns the collected points in order.
func (s *State) Points() []prompt.Point {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collector.Points()
}

// Busy reports whether a segmentation round is in flight.
func (s *State) Busy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collector.State() == prompt.Submitting
}

// CollectorState returns the prompt collector state.
func (s *State) CollectorState() prompt.CollectorState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collector.State()
}

// StagerState returns the proposal stager state.
func (s *State) StagerState() prompt.StagerState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stager.State()
}

// Submit sends the collected points as one segmentation round and stages the
// result. A result for a round that is no longer active is dropped and Submit
// returns nil. On failure the points and any previous batch are kept.
func (s *State) Submit(ctx context.Context) error {
	s.mu.Lock()
	req, err := s.collector.Begin(s.newRound())
	var width, height int
	if s.base != nil {
		width, height = s.base.Width(), s.base.Height()
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.log.Info("round submitted", zap.String("round", req.RoundID), zap.Int("points", len(req.Points)))
	grids, err := s.svc.Segmenter.Segment(ctx, req)
	if err == nil {
		err = checkSizes(grids, width, height)
	}

	s.mu.Lock()
	if s.collector.State() != prompt.Submitting || s.collector.ActiveRound() != req.RoundID {
		s.mu.Unlock()
		s.log.Info("stale round dropped", zap.String("round", req.RoundID))
		return nil
	}
	if err != nil {
		_ = s.collector.Abort(req.RoundID)
		s.mu.Unlock()
		s.log.Warn("round failed", zap.String("round", req.RoundID), zap.Error(err))
		s.Emit(EventError, err)
		return fmt.Errorf("segment: %w", err)
	}

	masks, filtered := mask.Ingest(grids, req.RoundID, s.registry.IDs())
	if len(masks) == 0 {
		_ = s.collector.Abort(req.RoundID)
		s.mu.Unlock()
		s.log.Warn("round produced no usable masks", zap.String("round", req.RoundID), zap.Int("filtered", filtered))
		s.Emit(EventError, ErrNoUsableMasks)
		return ErrNoUsableMasks
	}
	_ = s.collector.Finish(req.RoundID)
	s.stager.Stage(req.RoundID, masks)
	s.invalidate()
	s.mu.Unlock()

	s.log.Info("round result",
		zap.String("round", req.RoundID),
		zap.Int("masks", len(masks)),
		zap.Int("filtered", filtered))
	s.Emit(EventProposalsChanged, masks)
	return nil
}

func checkSizes(grids []*mask.Grid, width, height int) error {
	for i, g := range grids {
		if g == nil {
			continue
		}
		if err := g.CheckSize(width, height); err != nil {
			return fmt.Errorf("mask %d: %w", i, err)
		}
	}
	return nil
}

// Proposals returns the staged batch.
func (s *State) Proposals() []*mask.Mask {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stager.Batch()
}

// Select promotes proposal id into the registry, drops its siblings and clears the points.
func (s *State) Select(id string) (*mask.Mask, error) {
	s.mu.Lock()
	chosen, err := s.stager.Select(id)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	entry, err := s.registry.Add(chosen, nil)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.collector.Release()
	unhovered := s.dropStaleHoverLocked()
	s.invalidate()
	s.mu.Unlock()

	s.log.Info("proposal selected", zap.String("proposal", id), zap.String("mask", entry.ID), zap.Int("area", entry.Area))
	events := []event{
		{EventProposalsChanged, []*mask.Mask(nil)},
		{EventRegistryChanged, entry},
		{EventPointsChanged, 0},
	}
	if unhovered {
		events = append(events, event{EventHoverChanged, ""})
	}
	s.emitAll(events)
	return entry, nil
}

// DiscardAll drops the staged batch and keeps the points for refinement.
func (s *State) DiscardAll() bool {
	s.mu.Lock()
	discarded := s.stager.DiscardAll()
	var unhovered bool
	if discarded {
		unhovered = s.dropStaleHoverLocked()
		s.invalidate()
	}
	s.mu.Unlock()
	if discarded {
		s.Emit(EventProposalsChanged, []*mask.Mask(nil))
	}
	if unhovered {
		s.Emit(EventHoverChanged, "")
	}
	return discarded
}

// dropStaleHoverLocked clears the hover when it names a mask that is neither
// staged nor registered any more.
func (s *State) dropStaleHoverLocked() bool {
	if s.hoverID == "" {
		return false
	}
	if _, ok := s.registry.Get(s.hoverID); ok {
		return false
	}
	for _, m := range s.stager.Batch() {
		if m.ID == s.hoverID {
			return false
		}
	}
	s.hoverID = ""
	return true
}

// Hover sets the hovered mask. An empty id clears it.
func (s *State) Hover(id string) {
	s.mu.Lock()
	changed := s.hoverID != id
	if changed {
		s.hoverID = id
		s.invalidate()
	}
	s.mu.Unlock()
	if changed {
		s.Emit(EventHoverChanged, id)
	}
}

// HoverID returns the hovered mask id.
func (s *State) HoverID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hoverID
}

// MaskAt returns the topmost proposal or registry entry containing native pixel p.
func (s *State) MaskAt(p geometry.PointInt) *mask.Mask {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return image.MaskAt(s.sceneLocked(), p.X, p.Y)
}

// HoverAt hovers whatever mask lies under the pointer, or nothing.
func (s *State) HoverAt(v display.Viewport, client geometry.Point2D) {
	s.mu.RLock()
	if s.base == nil {
		s.mu.RUnlock()
		return
	}
	v.Natural = s.base.Size()
	s.mu.RUnlock()

	id := ""
	if m, err := display.NewMapper(v); err == nil {
		if p, ok := m.ToNative(client); ok {
			if hit := s.MaskAt(p); hit != nil {
				id = hit.ID
			}
		}
	}
	s.Hover(id)
}

// SetGlobalColor changes the color used by registry entries without their own.
func (s *State) SetGlobalColor(c color.RGBA) {
	s.mu.Lock()
	changed := s.globalColor != c
	if changed {
		s.globalColor = c
		s.invalidate()
	}
	s.mu.Unlock()
	if changed {
		s.Emit(EventColorChanged, c)
	}
}

// GlobalColor returns the current global color selection.
func (s *State) GlobalColor() color.RGBA {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.globalColor
}

// Masks returns the registry entries in insertion order.
func (s *State) Masks() []*mask.Mask {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry.All()
}

// RemoveAll empties the registry. Points and the staged batch are untouched.
func (s *State) RemoveAll() {
	s.mu.Lock()
	n := s.registry.Len()
	s.registry.RemoveAll()
	if n > 0 {
		s.invalidate()
	}
	s.mu.Unlock()
	if n > 0 {
		s.Emit(EventRegistryChanged, nil)
	}
}

// Overlay returns the composited overlay at native resolution, or nil with no
// image bound. The result is cached until the next change and must not be modified.
func (s *State) Overlay() *goimage.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.base == nil {
		return nil
	}
	if s.overlay == nil || s.overlayValid != s.revision {
		s.overlay = s.compositor.Render(s.sceneLocked())
		s.overlayValid = s.revision
	}
	return s.overlay
}

// Revision changes whenever the overlay would render differently.
func (s *State) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Marker is a point prompt positioned in container coordinates.
type Marker struct {
	Center geometry.Point2D
	Label  prompt.Label
}

// Markers positions the collected points inside v with the inverse of the click mapping.
func (s *State) Markers(v display.Viewport) ([]Marker, error) {
	s.mu.RLock()
	if s.base == nil {
		s.mu.RUnlock()
		return nil, prompt.ErrNoImage
	}
	v.Natural = s.base.Size()
	points := s.collector.Points()
	s.mu.RUnlock()

	m, err := display.NewMapper(v)
	if err != nil {
		return nil, err
	}
	markers := make([]Marker, len(points))
	for i, p := range points {
		markers[i] = Marker{
			Center: m.ToContainer(geometry.NewPoint2D(float64(p.X), float64(p.Y))),
			Label:  p.Label,
		}
	}
	return markers, nil
}

func (s *State) sceneLocked() image.Scene {
	sc := image.Scene{
		Registry:    s.registry.All(),
		Proposals:   s.stager.Batch(),
		HoverID:     s.hoverID,
		GlobalColor: s.globalColor,
	}
	if s.base != nil {
		sc.Width, sc.Height = s.base.Width(), s.base.Height()
	}
	return sc
}

func (s *State) invalidate() {
	s.revision++
}
