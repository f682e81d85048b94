// Package pipeline drives planning cycles: fetch a snapshot, fold it into
// the planner under the grid lock, replan, and journal the timings.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/drops/internal/grid"
	"github.com/banshee-data/drops/internal/journal"
	"github.com/banshee-data/drops/internal/lattice"
	"github.com/banshee-data/drops/internal/monitoring"
	"github.com/banshee-data/drops/internal/planner"
	"github.com/banshee-data/drops/internal/search"
	"github.com/banshee-data/drops/internal/timeutil"
)

// ErrNoInitialData is returned when the first snapshot cannot be fetched.
var ErrNoInitialData = errors.New("no initial grid data")

// Acquirer supplies environment snapshots. *acquisition.Coordinator
// implements it.
type Acquirer interface {
	UpdateData(ctx context.Context) bool
	Wait(ctx context.Context, timeout time.Duration) error
	EnvData() *grid.Environment
	ConstData() grid.Constants
	UpdatedPoints() grid.Delta
	LockEnvGrid() (unlock func())
}

// Planner is the replanning surface the runner drives. *planner.Planner
// implements it.
type Planner interface {
	Initialize(env *grid.Environment, consts grid.Constants) error
	UpdateGridPoints(delta grid.Delta) error
	Plan(ctx context.Context) (planner.Status, error)
	Path() []lattice.Waypoint
	Stats() search.Stats
}

// Recorder persists cycle diagnostics. *journal.Journal implements it.
type Recorder interface {
	RecordCycle(ctx context.Context, c journal.Cycle) (int64, error)
}

// Report describes one completed cycle.
type Report struct {
	Seq       int
	StartedAt time.Time
	// Fresh is false when the fetch failed and the previous snapshot was kept.
	Fresh         bool
	Reinitialized bool
	Status        planner.Status
	Path          []lattice.Waypoint
	Env           *grid.Environment
	Constants     grid.Constants
	Obstacles     grid.Delta
	DirtyCells    int
	Stats         search.Stats

	Communication time.Duration
	Init          time.Duration
	Update        time.Duration
	Planning      time.Duration
}

// Runner owns the planner across cycles so later cycles replan
// incrementally. It is not safe for concurrent use.
type Runner struct {
	acq          Acquirer
	planner      Planner
	recorder     Recorder
	clock        timeutil.Clock
	fetchTimeout time.Duration

	seq          int
	haveSnapshot bool
	env          *grid.Environment
	consts       grid.Constants
}

// Option configures a Runner.
type Option func(*Runner)

// WithRecorder journals every cycle to r.
func WithRecorder(r Recorder) Option {
	return func(rn *Runner) { rn.recorder = r }
}

// WithClock sets the clock used for stage timings.
func WithClock(c timeutil.Clock) Option {
	return func(rn *Runner) { rn.clock = c }
}

// WithFetchTimeout bounds how long a cycle waits for its fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(rn *Runner) { rn.fetchTimeout = d }
}

// NewRunner returns a runner over acq and p.
func NewRunner(acq Acquirer, p Planner, opts ...Option) *Runner {
	r := &Runner{
		acq:          acq,
		planner:      p,
		clock:        timeutil.RealClock{},
		fetchTimeout: 30 * time.Second,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Ready reports whether a first snapshot has been fetched. It stays true
// even if a later snapshot fails to initialize the planner.
func (r *Runner) Ready() bool { return r.haveSnapshot }

// Cycle runs one fetch, update and replan round. The first cycle fails with
// ErrNoInitialData if the fetch fails; later cycles keep the previous
// snapshot and replan anyway.
func (r *Runner) Cycle(ctx context.Context) (Report, error) {
	r.seq++
	rep := Report{Seq: r.seq, StartedAt: r.clock.Now()}
	sw := timeutil.StartStopwatch(r.clock)

	r.acq.UpdateData(ctx)
	fetchErr := r.acq.Wait(ctx, r.fetchTimeout)
	rep.Communication = sw.Lap()
	monitoring.Timing("Communication", rep.Communication)

	switch {
	case fetchErr == nil:
		rep.Fresh = true
		r.haveSnapshot = true
	case ctx.Err() != nil:
		return rep, ctx.Err()
	case !r.Ready():
		return rep, fmt.Errorf("%w: %w", ErrNoInitialData, fetchErr)
	default:
		opsf("cycle %d: keeping previous snapshot: %v", rep.Seq, fetchErr)
	}

	var delta grid.Delta
	if rep.Fresh {
		var err error
		delta, rep.Reinitialized, err = r.absorb()
		rep.Init = sw.Lap()
		monitoring.Timing("Planner Init", rep.Init)
		if err != nil {
			return rep, err
		}

		if err := r.planner.UpdateGridPoints(delta); err != nil {
			opsf("cycle %d: %v", rep.Seq, err)
		}
		for _, c := range delta.Cells() {
			tracef("cycle %d: cell %v cost %d", rep.Seq, c, delta[c])
		}
		rep.Obstacles = r.acq.UpdatedPoints()
		rep.Update = sw.Lap()
		monitoring.Timing("Update Planner", rep.Update)
	}
	rep.DirtyCells = len(delta)

	status, err := r.planner.Plan(ctx)
	rep.Planning = sw.Lap()
	monitoring.Timing("Planning", rep.Planning)
	if err != nil {
		return rep, err
	}

	rep.Status = status
	rep.Path = r.planner.Path()
	rep.Stats = r.planner.Stats()
	rep.Env = r.env.Clone()
	rep.Constants = r.consts
	diagf("cycle %d: %v waypoints=%d dirty=%d reinit=%v expansions=%d",
		rep.Seq, rep.Status, len(rep.Path), rep.DirtyCells, rep.Reinitialized, rep.Stats.Expansions)

	r.record(ctx, rep)
	return rep, nil
}

// absorb folds the coordinator's snapshot into the planner while holding
// the grid lock. A snapshot in the same frame as the last one becomes a set
// of cell updates against the planner's current grid; anything else
// reinitializes the planner. The returned delta is what still has to be
// pushed through UpdateGridPoints.
func (r *Runner) absorb() (grid.Delta, bool, error) {
	unlock := r.acq.LockEnvGrid()
	defer unlock()

	env := r.acq.EnvData()
	consts := r.acq.ConstData()
	if env == nil {
		return nil, false, ErrNoInitialData
	}
	delta := make(grid.Delta)
	reinit := r.env == nil || !r.env.SameFrame(env) || r.consts != consts
	if reinit {
		if err := r.planner.Initialize(env, consts); err != nil {
			r.env = nil
			return nil, true, err
		}
	} else {
		diff, err := r.env.Diff(env)
		if err != nil {
			return nil, false, err
		}
		delta = diff
	}
	// Explicit obstacle reports win over the grid. r.env tracks the
	// planner's view so the next diff also clears obstacles that moved on.
	obstacles := r.acq.UpdatedPoints()
	delta.Merge(obstacles)
	r.env = env.Clone()
	r.env.Apply(obstacles)
	r.consts = consts
	return delta, reinit, nil
}

func (r *Runner) record(ctx context.Context, rep Report) {
	if r.recorder == nil {
		return
	}
	_, err := r.recorder.RecordCycle(ctx, journal.Cycle{
		Seq:           rep.Seq,
		StartedAt:     rep.StartedAt,
		Communication: rep.Communication,
		Init:          rep.Init,
		Update:        rep.Update,
		Planning:      rep.Planning,
		Status:        rep.Status.String(),
		PathLen:       len(rep.Path),
		SolutionCost:  rep.Stats.SolutionCost,
		Epsilon:       rep.Stats.Epsilon,
		Expansions:    rep.Stats.Expansions,
		DirtyCells:    rep.DirtyCells,
		Reinitialized: rep.Reinitialized,
	})
	if err != nil {
		opsf("cycle %d: failed to journal: %v", rep.Seq, err)
	}
}
