// Package lattice discretizes a cost grid into an (x, y, heading) state
// space connected by motion primitives, and answers the questions an
// incremental search asks of it: successors, predecessors, heuristics, and
// which states a set of changed cells affects.
package lattice

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/drops/internal/grid"
	"github.com/banshee-data/drops/internal/search"
)

var (
	ErrSpaceInit      = errors.New("state space initialization failed")
	ErrOutOfBounds    = errors.New("state outside the lattice")
	ErrPathConversion = errors.New("no action connects consecutive path states")
)

// Waypoint is a path point in meters with a heading in radians.
type Waypoint struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Theta float64 `json:"theta"`
}

// Environment is an xytheta lattice over a grid it does not own: cost
// updates written through UpdateCost are visible to the next query.
type Environment struct {
	env       *grid.Environment
	consts    grid.Constants
	inscribed uint8

	succActions [NumThetaDirs][]*action // by start heading
	predActions [NumThetaDirs][]*action // by end heading
}

// New returns an empty lattice; call Initialize before use.
func New() *Environment {
	return &Environment{}
}

// Initialize binds the lattice to env and builds its motion primitives.
// The grid is read in place, so the caller must not hand out env to anyone
// who mutates it concurrently.
func (e *Environment) Initialize(env *grid.Environment, consts grid.Constants) error {
	if env == nil {
		return fmt.Errorf("%w: nil environment", ErrSpaceInit)
	}
	if env.Width <= 0 || env.Height <= 0 {
		return fmt.Errorf("%w: %w: %dx%d", ErrSpaceInit, grid.ErrDimensions, env.Width, env.Height)
	}
	if len(env.Cells) != env.Width*env.Height {
		return fmt.Errorf("%w: %w: have %d, want %d", ErrSpaceInit, grid.ErrGridSize, len(env.Cells), env.Width*env.Height)
	}
	if err := consts.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrSpaceInit, err)
	}

	prims := DefaultPrimitives()
	if consts.MotionPrimitives != "" {
		loaded, err := LoadPrimitives(consts.MotionPrimitives)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrSpaceInit, err)
		}
		prims = loaded
	}

	e.env = env
	e.consts = consts
	e.inscribed = consts.CostInscribedThresh
	if e.inscribed == 0 {
		e.inscribed = consts.ObsThresh
	}
	for k := range e.succActions {
		e.succActions[k] = e.succActions[k][:0]
		e.predActions[k] = e.predActions[k][:0]
	}
	for _, p := range prims {
		a := newAction(p, consts)
		e.succActions[a.startTheta] = append(e.succActions[a.startTheta], a)
		e.predActions[a.endTheta] = append(e.predActions[a.endTheta], a)
	}
	return nil
}

// Constants returns the constants the lattice was initialized with.
func (e *Environment) Constants() grid.Constants { return e.consts }

// NumStates is the size of the state id space.
func (e *Environment) NumStates() int {
	if e.env == nil {
		return 0
	}
	return e.env.Width * e.env.Height * NumThetaDirs
}

// StateID returns the id of the state at cell (x, y) with heading theta in
// radians.
func (e *Environment) StateID(x, y int, theta float64) (int, error) {
	if e.env == nil || !e.env.InBounds(x, y) {
		return -1, fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, x, y)
	}
	return e.id(x, y, HeadingBin(theta)), nil
}

// Coords returns the cell and heading bin of a state id.
func (e *Environment) Coords(id int) (x, y, theta int) {
	theta = id % NumThetaDirs
	cell := id / NumThetaDirs
	return cell % e.env.Width, cell / e.env.Width, theta
}

func (e *Environment) id(x, y, theta int) int {
	return theta + NumThetaDirs*(x+e.env.Width*y)
}

// IsValidState reports whether a point agent may occupy the state's cell.
func (e *Environment) IsValidState(id int) bool {
	if id < 0 || id >= e.NumStates() {
		return false
	}
	x, y, _ := e.Coords(id)
	return e.traversable(e.env.Cost(x, y))
}

func (e *Environment) traversable(cost uint8) bool {
	return cost < e.consts.ObsThresh && cost < e.inscribed
}

// UpdateCost writes a cell cost into the bound grid.
func (e *Environment) UpdateCost(x, y int, cost uint8) error {
	if e.env == nil || !e.env.SetCost(x, y, cost) {
		return fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, x, y)
	}
	return nil
}

// actionCost is the cost of executing a from cell (x, y), or false when the
// action sweeps an off-grid or obstructed cell.
func (e *Environment) actionCost(x, y int, a *action) (int, bool) {
	var worst uint8
	for _, c := range a.swept {
		cx, cy := x+c.X, y+c.Y
		if !e.env.InBounds(cx, cy) {
			return 0, false
		}
		cost := e.env.Cost(cx, cy)
		if !e.traversable(cost) {
			return 0, false
		}
		worst = max(worst, cost)
	}
	return a.baseCost * (int(worst) + 1), true
}

// Successors implements search.Space.
func (e *Environment) Successors(id int, out []search.Edge) []search.Edge {
	if !e.IsValidState(id) {
		return out
	}
	x, y, theta := e.Coords(id)
	for _, a := range e.succActions[theta] {
		if cost, ok := e.actionCost(x, y, a); ok {
			out = append(out, search.Edge{To: e.id(x+a.dx, y+a.dy, a.endTheta), Cost: cost})
		}
	}
	return out
}

// Predecessors implements search.Space.
func (e *Environment) Predecessors(id int, out []search.Edge) []search.Edge {
	if !e.IsValidState(id) {
		return out
	}
	x, y, theta := e.Coords(id)
	for _, a := range e.predActions[theta] {
		sx, sy := x-a.dx, y-a.dy
		if !e.env.InBounds(sx, sy) {
			continue
		}
		if cost, ok := e.actionCost(sx, sy, a); ok {
			out = append(out, search.Edge{To: e.id(sx, sy, a.startTheta), Cost: cost})
		}
	}
	return out
}

// Heuristic is the straight-line travel time in milliseconds at nominal
// velocity, which never exceeds the cost of any action sequence.
func (e *Environment) Heuristic(from, to int) int {
	fx, fy, _ := e.Coords(from)
	tx, ty, _ := e.Coords(to)
	d := math.Hypot(float64(tx-fx), float64(ty-fy)) * e.consts.CellSizeMeters
	return int(1000 * d / e.consts.NominalVelocity)
}

// PredsOfChangedCells lists the states with an outgoing action that sweeps
// one of cells. A backward search must re-evaluate these.
func (e *Environment) PredsOfChangedCells(cells []grid.Cell) []int {
	return e.affected(cells, false)
}

// SuccsOfChangedCells lists the states reached by an action that sweeps one
// of cells. A forward search must re-evaluate these.
func (e *Environment) SuccsOfChangedCells(cells []grid.Cell) []int {
	return e.affected(cells, true)
}

func (e *Environment) affected(cells []grid.Cell, ends bool) []int {
	if e.env == nil {
		return nil
	}
	seen := make(map[int]struct{})
	var ids []int
	add := func(x, y, theta int) {
		if !e.env.InBounds(x, y) {
			return
		}
		id := e.id(x, y, theta)
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, c := range cells {
		for theta := range e.succActions {
			for _, a := range e.succActions[theta] {
				for _, off := range a.swept {
					sx, sy := c.X-off.X, c.Y-off.Y
					if ends {
						add(sx+a.dx, sy+a.dy, a.endTheta)
					} else {
						add(sx, sy, a.startTheta)
					}
				}
			}
		}
	}
	return ids
}

// ConvertStateIDPath expands a state id path into metric waypoints, using
// the cheapest valid action between consecutive states.
func (e *Environment) ConvertStateIDPath(ids []int) ([]Waypoint, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cs := e.consts.CellSizeMeters
	var path []Waypoint
	for i := 0; i+1 < len(ids); i++ {
		x, y, theta := e.Coords(ids[i])
		tx, ty, ttheta := e.Coords(ids[i+1])
		var best *action
		bestCost := 0
		for _, a := range e.succActions[theta] {
			if x+a.dx != tx || y+a.dy != ty || a.endTheta != ttheta {
				continue
			}
			if cost, ok := e.actionCost(x, y, a); ok && (best == nil || cost < bestCost) {
				best, bestCost = a, cost
			}
		}
		if best == nil {
			return nil, fmt.Errorf("%w: %d -> %d", ErrPathConversion, ids[i], ids[i+1])
		}
		for _, p := range best.points[:len(best.points)-1] {
			path = append(path, Waypoint{
				X:     (float64(x) + p.X + 0.5) * cs,
				Y:     (float64(y) + p.Y + 0.5) * cs,
				Theta: p.Theta,
			})
		}
	}
	x, y, theta := e.Coords(ids[len(ids)-1])
	path = append(path, Waypoint{
		X:     (float64(x) + 0.5) * cs,
		Y:     (float64(y) + 0.5) * cs,
		Theta: BinHeading(theta),
	})
	return path, nil
}

var _ search.Space = (*Environment)(nil)
