package grid

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

const (
	CostFree   uint8 = 0
	CostLethal uint8 = 255
)

var (
	ErrDimensions  = errors.New("grid dimensions must be positive")
	ErrGridSize    = errors.New("grid cell count does not match width*height")
	ErrOutOfBounds = errors.New("pose outside grid")
	ErrConstants   = errors.New("invalid environment constants")
)

// Cell is an integer grid coordinate.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (c Cell) String() string { return fmt.Sprintf("(%d,%d)", c.X, c.Y) }

// Pose is a grid cell with a heading in degrees.
type Pose struct {
	X     int     `json:"x"`
	Y     int     `json:"y"`
	Theta float64 `json:"theta"`
}

// Cell returns the grid cell the pose occupies.
func (p Pose) Cell() Cell { return Cell{X: p.X, Y: p.Y} }

// HeadingRadians returns the heading normalized to [0, 2π).
func (p Pose) HeadingRadians() float64 {
	deg := math.Mod(p.Theta, 360)
	if deg < 0 {
		deg += 360
	}
	return deg * math.Pi / 180
}

// Constants are the planning constants delivered alongside a grid.
type Constants struct {
	ObsThresh                       uint8   `json:"obs_thresh"`
	CostInscribedThresh             uint8   `json:"cost_inscribed_thresh"`
	CostPossiblyCircumscribedThresh int     `json:"cost_possibly_circumscribed_thresh"`
	NominalVelocity                 float64 `json:"nominal_velocity"`     // m/s
	TimeToTurn45Degs                float64 `json:"time_to_turn_45_degs"` // seconds
	CellSizeMeters                  float64 `json:"cell_size_m"`
	MotionPrimitives                string  `json:"motion_primitives,omitempty"`
}

// DefaultConstants returns constants for a 1m grid driven at 1m/s, with
// anything at or above 254 treated as an obstacle.
func DefaultConstants() Constants {
	return Constants{
		ObsThresh:                       254,
		CostInscribedThresh:             253,
		CostPossiblyCircumscribedThresh: 128,
		NominalVelocity:                 1.0,
		TimeToTurn45Degs:                2.0,
		CellSizeMeters:                  1.0,
	}
}

// Validate checks the constants can drive a lattice.
func (c Constants) Validate() error {
	switch {
	case c.CellSizeMeters <= 0 || math.IsNaN(c.CellSizeMeters):
		return fmt.Errorf("%w: cell_size_m must be positive, got %v", ErrConstants, c.CellSizeMeters)
	case c.NominalVelocity <= 0 || math.IsNaN(c.NominalVelocity):
		return fmt.Errorf("%w: nominal_velocity must be positive, got %v", ErrConstants, c.NominalVelocity)
	case c.TimeToTurn45Degs < 0 || math.IsNaN(c.TimeToTurn45Degs):
		return fmt.Errorf("%w: time_to_turn_45_degs must be non-negative, got %v", ErrConstants, c.TimeToTurn45Degs)
	case c.ObsThresh == 0:
		return fmt.Errorf("%w: obs_thresh of 0 marks every cell as an obstacle", ErrConstants)
	}
	return nil
}

// Delta maps grid cells to their new cost. It is produced wholesale per
// acquisition cycle; keys are unique and carry no order.
type Delta map[Cell]uint8

// Cells returns the delta's cells in row-major order.
func (d Delta) Cells() []Cell {
	cells := make([]Cell, 0, len(d))
	for c := range d {
		cells = append(cells, c)
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Y != cells[j].Y {
			return cells[i].Y < cells[j].Y
		}
		return cells[i].X < cells[j].X
	})
	return cells
}

// Merge copies other into d; other wins for cells present in both.
func (d Delta) Merge(other Delta) {
	for c, v := range other {
		d[c] = v
	}
}

// Clone returns an independent copy of d.
func (d Delta) Clone() Delta {
	out := make(Delta, len(d))
	out.Merge(d)
	return out
}
