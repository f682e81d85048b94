package acquisition

import (
	"fmt"

	"github.com/banshee-data/drops/internal/grid"
)

// Payload is the JSON document served by the grid source. Grid holds the
// row-major cell costs and is base64 encoded on the wire.
type Payload struct {
	Width     int             `json:"width"`
	Height    int             `json:"height"`
	Grid      []byte          `json:"grid"`
	Start     grid.Pose       `json:"start"`
	Goal      grid.Pose       `json:"goal"`
	Constants *grid.Constants `json:"constants,omitempty"`
	Obstacles []Obstacle      `json:"obstacles,omitempty"`
}

// Obstacle is one moving-obstacle cell update.
type Obstacle struct {
	X    int   `json:"x"`
	Y    int   `json:"y"`
	Cost uint8 `json:"cost"`
}

// Environment converts the payload into a validated environment snapshot.
func (p *Payload) Environment() (*grid.Environment, error) {
	env := &grid.Environment{
		Width:  p.Width,
		Height: p.Height,
		Cells:  p.Grid,
		Start:  p.Start,
		Goal:   p.Goal,
	}
	if err := env.Validate(); err != nil {
		return nil, fmt.Errorf("invalid payload: %w", err)
	}
	return env, nil
}

// ConstantsOrDefault returns the payload constants, or the defaults when the
// source sent none.
func (p *Payload) ConstantsOrDefault() grid.Constants {
	if p.Constants == nil {
		return grid.DefaultConstants()
	}
	return *p.Constants
}

// Delta returns the obstacle updates keyed by cell. Later entries for the
// same cell win.
func (p *Payload) Delta() grid.Delta {
	d := make(grid.Delta, len(p.Obstacles))
	for _, o := range p.Obstacles {
		d[grid.Cell{X: o.X, Y: o.Y}] = o.Cost
	}
	return d
}

// NewPayload builds a payload from an environment, for fixtures and tests.
func NewPayload(env *grid.Environment, consts grid.Constants, delta grid.Delta) *Payload {
	p := &Payload{
		Width:     env.Width,
		Height:    env.Height,
		Grid:      append([]byte(nil), env.Cells...),
		Start:     env.Start,
		Goal:      env.Goal,
		Constants: &consts,
	}
	for _, c := range delta.Cells() {
		p.Obstacles = append(p.Obstacles, Obstacle{X: c.X, Y: c.Y, Cost: delta[c]})
	}
	return p
}
