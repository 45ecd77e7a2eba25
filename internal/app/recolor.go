package app

import (
	"context"
	"fmt"
	"image/color"

	"gunpla-colorizer/internal/mask"
	"gunpla-colorizer/internal/service"
	"gunpla-colorizer/pkg/colorutil"

	"go.uber.org/zap"
)

// Recolor sets the color of registry entry id locally, then asks the recolor
// service to apply it and refetches the base image. A failed call keeps the local
// color and returns the error. Only the latest request per mask takes effect;
// earlier responses are dropped without a refetch.
func (s *State) Recolor(ctx context.Context, id string, c color.RGBA) error {
	s.mu.Lock()
	if s.base == nil {
		s.mu.Unlock()
		return fmt.Errorf("recolor: %w", mask.ErrUnknownMask)
	}
	current, ok := s.registry.Get(id)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("recolor %s: %w", id, mask.ErrUnknownMask)
	}
	if err := current.Grid.CheckSize(s.base.Width(), s.base.Height()); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("recolor %s: %w", id, err)
	}
	_ = s.registry.Recolor(id, c)
	entry, _ := s.registry.Get(id)
	s.recolorSeq++
	token := s.recolorSeq
	s.recolorTokens[id] = token
	s.recolorPending++
	imageID := s.base.ID
	s.invalidate()
	s.mu.Unlock()
	defer s.recolorDone()

	s.Emit(EventRegistryChanged, entry)
	s.log.Info("recolor requested", zap.String("mask", id), zap.String("color", colorutil.Hex(c)), zap.Uint64("token", token))

	err := s.svc.Recolorer.Recolor(ctx, service.RecolorRequest{ImageID: imageID, Mask: entry.Grid, Color: c})
	if !s.latest(imageID, id, token) {
		s.log.Info("stale recolor dropped", zap.String("mask", id), zap.Uint64("token", token))
		return nil
	}
	if err != nil {
		s.log.Warn("recolor failed", zap.String("mask", id), zap.Uint64("token", token), zap.Error(err))
		s.Emit(EventError, err)
		return fmt.Errorf("recolor: %w", err)
	}
	return s.refresh(ctx, imageID)
}

func (s *State) recolorDone() {
	s.mu.Lock()
	s.recolorPending--
	s.mu.Unlock()
}

// RecolorPending reports whether a recolor call or its refetch is in flight.
func (s *State) RecolorPending() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recolorPending > 0
}

// latest reports whether token is still the newest recolor of id on imageID.
func (s *State) latest(imageID, id string, token uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.base != nil && s.base.ID == imageID && s.recolorTokens[id] == token
}

// refresh refetches the base image under a new revision so no cached copy is
// served. Revisions are allocated in call order, and a fetch only replaces the
// base when it was issued after the one currently shown, so overlapping
// refetches settle on the most recent server state.
func (s *State) refresh(ctx context.Context, imageID string) error {
	s.mu.Lock()
	if s.base == nil || s.base.ID != imageID {
		s.mu.Unlock()
		return nil
	}
	s.fetchSeq++
	revision := s.fetchSeq
	s.mu.Unlock()

	img, err := s.svc.Store.Fetch(ctx, imageID, revision)
	if err != nil {
		s.Emit(EventError, err)
		return fmt.Errorf("refresh %s: %w", imageID, err)
	}

	s.mu.Lock()
	if s.base == nil || s.base.ID != imageID || s.base.Revision >= revision {
		s.mu.Unlock()
		return nil
	}
	b := *s.base
	b.Image = img
	b.Revision = revision
	s.base = &b
	s.mu.Unlock()

	s.log.Info("base image refreshed", zap.String("image", imageID), zap.Int("revision", revision))
	s.Emit(EventBaseImageRefreshed, &b)
	return nil
}
