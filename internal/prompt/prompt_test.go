package prompt

import (
	"testing"

	"gunpla-colorizer/internal/mask"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorLifecycle(t *testing.T) {
	c := NewCollector()
	assert.Equal(t, Idle, c.State())

	t.Run("idle rejects points and submission", func(t *testing.T) {
		assert.ErrorIs(t, c.Add(Point{X: 1, Y: 1, Label: Foreground}), ErrNoImage)
		_, err := c.Begin("r0")
		assert.ErrorIs(t, err, ErrNoImage)
	})

	require.NoError(t, c.Bind("img.png"))
	assert.Equal(t, Collecting, c.State())

	t.Run("empty submission is a precondition error", func(t *testing.T) {
		_, err := c.Begin("r0")
		assert.ErrorIs(t, err, ErrNoPoints)
		assert.Equal(t, Collecting, c.State())
	})

	t.Run("points are appended without dedup", func(t *testing.T) {
		p := Point{X: 3, Y: 4, Label: Foreground}
		require.NoError(t, c.Add(p))
		require.NoError(t, c.Add(p))
		require.NoError(t, c.Add(Point{X: 9, Y: 9, Label: Background}))
		assert.Equal(t, 3, c.Len())
		assert.ErrorIs(t, c.Add(Point{Label: Label(7)}), ErrInvalidLabel)
	})

	t.Run("begin freezes the sequence", func(t *testing.T) {
		req, err := c.Begin("r1")
		require.NoError(t, err)
		assert.Equal(t, "img.png", req.ImageID)
		assert.Equal(t, "r1", req.RoundID)
		assert.Len(t, req.Points, 3)
		assert.Equal(t, Submitting, c.State())
		assert.Equal(t, "r1", c.ActiveRound())

		_, err = c.Begin("r2")
		assert.ErrorIs(t, err, ErrBusy)
		assert.ErrorIs(t, c.Add(Point{Label: Foreground}), ErrBusy)
		_, err = c.Clear()
		assert.ErrorIs(t, err, ErrBusy)
	})

	t.Run("finish keeps points and round", func(t *testing.T) {
		assert.ErrorIs(t, c.Finish("other"), ErrNotSubmitted)
		require.NoError(t, c.Finish("r1"))
		assert.Equal(t, Collecting, c.State())
		assert.Equal(t, 3, c.Len())
		assert.Equal(t, "r1", c.ActiveRound())
	})

	t.Run("abort releases the round but keeps points", func(t *testing.T) {
		_, err := c.Begin("r2")
		require.NoError(t, err)
		require.NoError(t, c.Abort("r2"))
		assert.Equal(t, Collecting, c.State())
		assert.Equal(t, 3, c.Len())
		assert.Empty(t, c.ActiveRound())
	})

	t.Run("release clears points", func(t *testing.T) {
		c.Release()
		assert.Zero(t, c.Len())
		assert.Equal(t, Collecting, c.State())
	})

	t.Run("clear on empty is a no-op", func(t *testing.T) {
		removed, err := c.Clear()
		require.NoError(t, err)
		assert.False(t, removed)
	})

	t.Run("reset returns to idle", func(t *testing.T) {
		require.NoError(t, c.Add(Point{Label: Foreground}))
		c.Reset()
		assert.Equal(t, Idle, c.State())
		assert.Zero(t, c.Len())
		assert.Empty(t, c.ImageID())
	})
}

func TestBindRequiresID(t *testing.T) {
	assert.ErrorIs(t, NewCollector().Bind(""), ErrNoImage)
}

func proposals(t *testing.T, group string, n int) []*mask.Mask {
	t.Helper()
	var grids []*mask.Grid
	for i := 0; i < n; i++ {
		g := mask.NewGrid(4, 4)
		g.Set(i, i, true)
		grids = append(grids, g)
	}
	masks, _ := mask.Ingest(grids, group, mask.NewSequence(group))
	require.Len(t, masks, n)
	return masks
}

func TestStager(t *testing.T) {
	t.Run("select while empty", func(t *testing.T) {
		s := NewStager()
		_, err := s.Select("x")
		assert.ErrorIs(t, err, ErrEmptyBatch)
		assert.False(t, s.DiscardAll())
	})

	t.Run("select promotes one and drops the rest", func(t *testing.T) {
		s := NewStager()
		batch := proposals(t, "r1", 3)
		s.Stage("r1", batch)
		assert.Equal(t, Staged, s.State())
		assert.Equal(t, "r1", s.GroupID())

		got, err := s.Select(batch[1].ID)
		require.NoError(t, err)
		assert.Same(t, batch[1], got)
		assert.Equal(t, Empty, s.State())
		assert.Empty(t, s.Batch())
	})

	t.Run("unknown id leaves batch intact", func(t *testing.T) {
		s := NewStager()
		s.Stage("r1", proposals(t, "r1", 2))
		_, err := s.Select("missing")
		assert.ErrorIs(t, err, ErrUnknownMask)
		assert.Len(t, s.Batch(), 2)
	})

	t.Run("new batch replaces the old one", func(t *testing.T) {
		s := NewStager()
		s.Stage("r1", proposals(t, "r1", 2))
		next := proposals(t, "r2", 1)
		s.Stage("r2", next)
		assert.Equal(t, "r2", s.GroupID())
		assert.Equal(t, next, s.Batch())
	})

	t.Run("discard all", func(t *testing.T) {
		s := NewStager()
		s.Stage("r1", proposals(t, "r1", 2))
		assert.True(t, s.DiscardAll())
		assert.Equal(t, Empty, s.State())
		assert.False(t, s.DiscardAll())
	})
}
