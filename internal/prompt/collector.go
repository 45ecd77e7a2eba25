// Package prompt holds the two per-session state machines of a prompt round: the
// Collector that accumulates point prompts and the Stager that holds candidate masks.
package prompt

import (
	"errors"
	"fmt"

	"gunpla-colorizer/pkg/geometry"
)

var (
	ErrNoImage      = errors.New("no image bound")
	ErrNoPoints     = errors.New("no point prompts collected")
	ErrBusy         = errors.New("a segmentation round is already in flight")
	ErrNotSubmitted = errors.New("no segmentation round in flight")
	ErrInvalidLabel = errors.New("invalid point label")
)

// Label is the wire value of a point prompt's polarity.
type Label int

const (
	Background Label = 0
	Foreground Label = 1
)

func (l Label) String() string {
	switch l {
	case Foreground:
		return "foreground"
	case Background:
		return "background"
	default:
		return "unknown"
	}
}

// Valid reports whether l is Foreground or Background.
func (l Label) Valid() bool {
	return l == Foreground || l == Background
}

// Point is one click in native image pixels.
type Point struct {
	X     int   `json:"x"`
	Y     int   `json:"y"`
	Label Label `json:"label"`
}

// NewPoint builds a point from a mapped pixel.
func NewPoint(p geometry.PointInt, label Label) Point {
	return Point{X: p.X, Y: p.Y, Label: label}
}

// CollectorState is the Collector's explicit state.
type CollectorState int

const (
	Idle CollectorState = iota
	Collecting
	Submitting
)

func (s CollectorState) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Collecting:
		return "Collecting"
	case Submitting:
		return "Submitting"
	default:
		return "Unknown"
	}
}

// Request is one round handed to the segmentation service.
type Request struct {
	ImageID string
	RoundID string
	Points  []Point
}

// Collector accumulates point prompts for the bound image.
// Idle -> Collecting (Bind) -> Submitting (Begin) -> Collecting (Finish) | Idle (Reset).
type Collector struct {
	state   CollectorState
	imageID string
	points  []Point
	round   string
}

// NewCollector returns an Idle collector.
func NewCollector() *Collector {
	return &Collector{}
}

// State returns the current state.
func (c *Collector) State() CollectorState {
	return c.state
}

// ImageID returns the bound image, or "" when Idle.
func (c *Collector) ImageID() string {
	return c.imageID
}

// ActiveRound returns the id of the round in flight, or "" when none.
func (c *Collector) ActiveRound() string {
	return c.round
}

// Bind moves to Collecting for a new image, dropping any points and round.
func (c *Collector) Bind(imageID string) error {
	if imageID == "" {
		return ErrNoImage
	}
	c.state = Collecting
	c.imageID = imageID
	c.points = nil
	c.round = ""
	return nil
}

// Reset returns to Idle. A result arriving for the released round is stale.
func (c *Collector) Reset() {
	*c = Collector{}
}

// Add appends p. Points are never deduplicated or capped.
func (c *Collector) Add(p Point) error {
	switch c.state {
	case Idle:
		return ErrNoImage
	case Submitting:
		return ErrBusy
	}
	if !p.Label.Valid() {
		return fmt.Errorf("label %d: %w", p.Label, ErrInvalidLabel)
	}
	c.points = append(c.points, p)
	return nil
}

// Clear empties the point sequence. It reports whether anything was removed.
func (c *Collector) Clear() (bool, error) {
	if c.state == Submitting {
		return false, ErrBusy
	}
	if len(c.points) == 0 {
		return false, nil
	}
	c.points = nil
	return true, nil
}

// Points returns a copy of the ordered point sequence.
func (c *Collector) Points() []Point {
	out := make([]Point, len(c.points))
	copy(out, c.points)
	return out
}

// Len returns the number of collected points.
func (c *Collector) Len() int {
	return len(c.points)
}

// Begin moves to Submitting and returns the request for roundID.
func (c *Collector) Begin(roundID string) (Request, error) {
	switch {
	case c.state == Idle:
		return Request{}, ErrNoImage
	case c.state == Submitting:
		return Request{}, ErrBusy
	case len(c.points) == 0:
		return Request{}, ErrNoPoints
	}
	c.state = Submitting
	c.round = roundID
	return Request{ImageID: c.imageID, RoundID: roundID, Points: c.Points()}, nil
}

// Finish ends the round in flight and returns to Collecting with the points intact,
// so a failed round can be retried and a discarded batch refined. The round id stays
// active until Release, which lets the Stager check staleness against it.
func (c *Collector) Finish(roundID string) error {
	if c.state != Submitting || c.round != roundID {
		return ErrNotSubmitted
	}
	c.state = Collecting
	return nil
}

// Abort ends the round in flight after a failure and releases its id.
func (c *Collector) Abort(roundID string) error {
	if err := c.Finish(roundID); err != nil {
		return err
	}
	c.round = ""
	return nil
}

// Release clears the points and the round id after a proposal has been chosen.
func (c *Collector) Release() {
	if c.state == Idle {
		return
	}
	c.points = nil
	c.round = ""
}
