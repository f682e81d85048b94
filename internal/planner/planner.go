// Package planner is the replanning orchestrator. It owns a private copy of
// the environment grid, records which cells change between cycles, turns
// those changes into the change notification its search capability
// understands, and replans under a fixed time budget.
//
// A Planner is driven from a single goroutine and never starts its own.
package planner

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/banshee-data/drops/internal/grid"
	"github.com/banshee-data/drops/internal/lattice"
	"github.com/banshee-data/drops/internal/monitoring"
	"github.com/banshee-data/drops/internal/search"
	"github.com/banshee-data/drops/internal/timeutil"
)

var (
	ErrNotInitialized = errors.New("planner not initialized")
	ErrSpaceInit      = errors.New("failed to initialize state space")
	ErrMDPConfig      = errors.New("failed to configure start and goal states")
	ErrInvalidStart   = errors.New("failed to set start state")
	ErrInvalidGoal    = errors.New("failed to set goal state")
)

// Status is the outcome of Plan.
type Status int

const (
	NoPath Status = iota
	PathFound
)

func (s Status) String() string {
	if s == PathFound {
		return "path found"
	}
	return "no path"
}

// Planner is the replanning orchestrator.
type Planner struct {
	opts   options
	space  *lattice.Environment
	search search.Capability
	notify func(cells []grid.Cell)

	env             *grid.Environment
	startID, goalID int
	initialized     bool

	dirty   DirtyCells
	changed bool

	path         []lattice.Waypoint
	lastPlanGood bool
	stats        search.Stats
}

// New returns a planner configured by opts. The search capability is built
// on the first Initialize.
func New(opts ...Option) *Planner {
	o := options{
		planningTime:   10 * time.Second,
		initialEpsilon: 3.0,
		clock:          timeutil.RealClock{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	p := &Planner{opts: o, space: lattice.New()}

	switch {
	case o.variant == VariantAnytime:
		p.notify = func([]grid.Cell) { p.search.NotifyCostsChanged() }
	case o.searchForward:
		p.notify = func(cells []grid.Cell) {
			p.search.NotifySuccessorsChanged(p.space.SuccsOfChangedCells(cells))
		}
	default:
		p.notify = func(cells []grid.Cell) {
			p.search.NotifyPredecessorsChanged(p.space.PredsOfChangedCells(cells))
		}
	}
	return p
}

func (p *Planner) newCapability() search.Capability {
	opts := []search.Option{
		search.WithInitialEpsilon(p.opts.initialEpsilon),
		search.WithFirstSolutionOnly(p.opts.firstSolutionOnly),
		search.WithClock(p.opts.clock),
	}
	if p.opts.variant == VariantAnytime {
		return search.NewARAPlanner(p.space, p.opts.searchForward, opts...)
	}
	return search.NewADPlanner(p.space, p.opts.searchForward, opts...)
}

// Initialize binds the planner to a copy of env and to its start and goal
// poses. The caller must hold whatever lock guards env for the duration of
// the call. Calling it again rebinds the same search capability to the new
// environment and starts the search over.
//
// A pose off the grid is reported as ErrMDPConfig wrapped together with
// ErrInvalidStart or ErrInvalidGoal; a pose on a lethal cell as just the
// latter.
func (p *Planner) Initialize(env *grid.Environment, consts grid.Constants) error {
	if env == nil {
		return fmt.Errorf("%w: nil environment", ErrSpaceInit)
	}
	p.initialized = false
	p.lastPlanGood = false
	p.path = nil

	private := env.Clone()
	if err := p.space.Initialize(private, consts); err != nil {
		return fmt.Errorf("%w: %w", ErrSpaceInit, err)
	}
	if p.search == nil {
		p.search = p.newCapability()
	} else {
		p.search.Reset()
	}
	p.env = private
	p.dirty.Clear()
	p.changed = true

	startID, err := p.space.StateID(env.Start.X, env.Start.Y, env.Start.HeadingRadians())
	if err != nil {
		return fmt.Errorf("%w: %w: %w", ErrMDPConfig, ErrInvalidStart, err)
	}
	goalID, err := p.space.StateID(env.Goal.X, env.Goal.Y, env.Goal.HeadingRadians())
	if err != nil {
		return fmt.Errorf("%w: %w: %w", ErrMDPConfig, ErrInvalidGoal, err)
	}
	if err := p.search.SetStart(startID); err != nil {
		return fmt.Errorf("%w: %v: %w", ErrInvalidStart, env.Start.Cell(), err)
	}
	if err := p.search.SetGoal(goalID); err != nil {
		return fmt.Errorf("%w: %v: %w", ErrInvalidGoal, env.Goal.Cell(), err)
	}
	p.startID, p.goalID = startID, goalID
	p.initialized = true
	return nil
}

// UpdateGridPoints writes every entry of delta into the planner's grid and
// marks the cells dirty. It does not replan. Entries outside the grid are
// reported in the returned error once the rest have been applied.
func (p *Planner) UpdateGridPoints(delta grid.Delta) error {
	if !p.initialized {
		return ErrNotInitialized
	}
	if len(delta) == 0 {
		return nil
	}
	var outside []grid.Cell
	for _, c := range delta.Cells() {
		if err := p.space.UpdateCost(c.X, c.Y, delta[c]); err != nil {
			outside = append(outside, c)
			continue
		}
		p.dirty.Add(c)
	}
	p.changed = true
	if len(outside) > 0 {
		return fmt.Errorf("%w: %v", grid.ErrOutOfBounds, outside)
	}
	return nil
}

// Plan notifies the search of any changes since the last call and replans
// within the planning budget. Not finding a path is reported as NoPath, not
// as an error.
func (p *Planner) Plan(ctx context.Context) (Status, error) {
	if !p.initialized {
		return NoPath, ErrNotInitialized
	}
	if err := ctx.Err(); err != nil {
		return NoPath, err
	}

	if p.changed {
		p.notify(p.dirty.cells)
		// Notifications are applied synchronously, so nothing is lost if
		// the replan below runs out of time.
		p.dirty.Clear()
		p.changed = false
	}

	p.lastPlanGood = false
	p.path = nil
	res, err := p.search.Replan(ctx, p.opts.planningTime)
	p.stats = p.search.Stats()
	if err != nil {
		return NoPath, fmt.Errorf("replan: %w", err)
	}
	monitoring.Logf("[Planner] replan found=%v cost=%d eps=%.1f expansions=%d",
		res.Found, res.Cost, res.Epsilon, res.Expansions)
	if !res.Found || len(res.Path) == 0 {
		return NoPath, nil
	}

	path, err := p.space.ConvertStateIDPath(res.Path)
	if err != nil {
		monitoring.Logf("[Planner] discarding solution: %v", err)
		return NoPath, nil
	}
	if len(path) == 0 {
		return NoPath, nil
	}
	p.path = path
	p.lastPlanGood = true
	return PathFound, nil
}

// Path returns a copy of the path from the last Plan, or an empty slice if
// it found none.
func (p *Planner) Path() []lattice.Waypoint {
	if !p.lastPlanGood {
		return []lattice.Waypoint{}
	}
	return slices.Clone(p.path)
}

// SetPlannerStates rebinds start and goal by state id.
func (p *Planner) SetPlannerStates(startID, goalID int) error {
	if p.search == nil {
		return ErrNotInitialized
	}
	if err := p.search.SetStart(startID); err != nil {
		return fmt.Errorf("%w: state %d: %w", ErrInvalidStart, startID, err)
	}
	p.startID = startID
	if err := p.search.SetGoal(goalID); err != nil {
		return fmt.Errorf("%w: state %d: %w", ErrInvalidGoal, goalID, err)
	}
	p.goalID = goalID
	return nil
}

// StateIDs returns the bound start and goal state ids.
func (p *Planner) StateIDs() (start, goal int) { return p.startID, p.goalID }

// Environment returns a copy of the planner's grid.
func (p *Planner) Environment() grid.Environment {
	if p.env == nil {
		return grid.Environment{}
	}
	return *p.env.Clone()
}

func (p *Planner) Stats() search.Stats { return p.stats }

// Dirty returns the cells changed since the last Plan.
func (p *Planner) Dirty() []grid.Cell { return p.dirty.Cells() }

func (p *Planner) Changed() bool { return p.changed }

// Variant reports the configured search capability.
func (p *Planner) Variant() Variant { return p.opts.variant }
