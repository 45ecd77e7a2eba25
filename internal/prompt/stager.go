package prompt

import (
	"errors"
	"fmt"

	"gunpla-colorizer/internal/mask"
)

var (
	ErrEmptyBatch  = errors.New("no proposals staged")
	ErrUnknownMask = errors.New("mask is not in the staged batch")
)

// StagerState is the Stager's explicit state.
type StagerState int

const (
	Empty StagerState = iota
	Staged
)

func (s StagerState) String() string {
	if s == Staged {
		return "Staged"
	}
	return "Empty"
}

// Stager holds at most one batch of mutually exclusive proposals.
type Stager struct {
	batch   []*mask.Mask
	groupID string
}

// NewStager returns an Empty stager.
func NewStager() *Stager {
	return &Stager{}
}

// State returns Staged while a batch is held.
func (s *Stager) State() StagerState {
	if len(s.batch) == 0 {
		return Empty
	}
	return Staged
}

// GroupID returns the round of the staged batch, or "".
func (s *Stager) GroupID() string {
	return s.groupID
}

// Stage replaces any existing batch. An empty batch leaves the stager Empty.
func (s *Stager) Stage(groupID string, batch []*mask.Mask) {
	if len(batch) == 0 {
		s.Clear()
		return
	}
	s.batch = append([]*mask.Mask(nil), batch...)
	s.groupID = groupID
}

// Batch returns the staged proposals in service order.
func (s *Stager) Batch() []*mask.Mask {
	out := make([]*mask.Mask, len(s.batch))
	copy(out, s.batch)
	return out
}

// Get returns the staged proposal with id.
func (s *Stager) Get(id string) (*mask.Mask, bool) {
	for _, m := range s.batch {
		if m.ID == id {
			return m, true
		}
	}
	return nil, false
}

// Select returns the chosen proposal and discards the whole batch.
// It fails without mutating anything when Empty or when id is not staged.
func (s *Stager) Select(id string) (*mask.Mask, error) {
	if s.State() == Empty {
		return nil, ErrEmptyBatch
	}
	m, ok := s.Get(id)
	if !ok {
		return nil, fmt.Errorf("select %s: %w", id, ErrUnknownMask)
	}
	s.Clear()
	return m, nil
}

// DiscardAll drops the batch and reports whether one was staged.
func (s *Stager) DiscardAll() bool {
	if s.State() == Empty {
		return false
	}
	s.Clear()
	return true
}

// Clear empties the stager unconditionally.
func (s *Stager) Clear() {
	s.batch = nil
	s.groupID = ""
}
