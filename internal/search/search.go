// Package search implements the anytime graph searches driven by the
// replanner.
//
//   - ADPlanner (anytime dynamic A*) keeps its search tree between replans and
//     repairs it from edge-level change notifications.
//   - ARAPlanner (anytime repairing A*) reuses effort only while costs are
//     static; any cost change restarts it.
//
// Both produce a first solution whose cost is within InitialEpsilon of optimal
// and tighten the bound toward FinalEpsilon while the time budget lasts.
package search

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/banshee-data/drops/internal/timeutil"
)

// Infinite is the cost of an unreachable state.
const Infinite = math.MaxInt64 / 4

var (
	ErrInvalidStart = errors.New("start state is not valid")
	ErrInvalidGoal  = errors.New("goal state is not valid")
	ErrNoEndpoints  = errors.New("start and goal must be set before replanning")
)

// Edge is a directed transition to (or from) state To with an integer cost.
type Edge struct {
	To   int
	Cost int
}

// Space is the discretized state space a planner searches.
type Space interface {
	// IsValidState reports whether id names a state the agent may occupy.
	IsValidState(id int) bool
	// Successors appends the edges leaving id to out.
	Successors(id int, out []Edge) []Edge
	// Predecessors appends edges into id to out; Edge.To is the source state.
	Predecessors(id int, out []Edge) []Edge
	// Heuristic estimates the cost from one state to another without overestimating.
	Heuristic(from, to int) int
}

// ChangeNotifier receives edge cost change notifications between replans.
type ChangeNotifier interface {
	// NotifySuccessorsChanged lists states whose incoming edges changed cost.
	NotifySuccessorsChanged(ids []int)
	// NotifyPredecessorsChanged lists states whose outgoing edges changed cost.
	NotifyPredecessorsChanged(ids []int)
	// NotifyCostsChanged reports that costs changed without saying where.
	NotifyCostsChanged()
}

// NotIncremental can be embedded by planners that cannot use edge-level
// change information; its notifications are no-ops.
type NotIncremental struct{}

func (NotIncremental) NotifySuccessorsChanged([]int)   {}
func (NotIncremental) NotifyPredecessorsChanged([]int) {}

// Capability is what the replanning orchestrator needs from a planner.
type Capability interface {
	ChangeNotifier

	SetStart(id int) error
	SetGoal(id int) error
	// Reset discards all search effort; the next Replan starts from scratch.
	Reset()
	// Replan searches for at most budget and returns the best solution found.
	// Running out of time or finding no path is not an error.
	Replan(ctx context.Context, budget time.Duration) (Result, error)
	Stats() Stats
}

// Result is the outcome of a single Replan.
type Result struct {
	Found      bool
	Path       []int // start first, goal last
	Cost       int
	Epsilon    float64 // bound the published solution satisfies
	Expansions int
}

// Stats summarizes the planner's most recent Replan.
type Stats struct {
	Replans       int
	Expansions    int
	Epsilon       float64
	SolutionCost  int
	Reinitialized bool
}

// Options configure the anytime search.
type Options struct {
	InitialEpsilon    float64
	FinalEpsilon      float64
	EpsilonStep       float64
	FirstSolutionOnly bool
	Clock             timeutil.Clock
}

// Option is a function that modifies Options.
type Option func(*Options)

// WithInitialEpsilon sets the suboptimality bound of the first solution.
func WithInitialEpsilon(eps float64) Option {
	return func(o *Options) { o.InitialEpsilon = eps }
}

// WithFinalEpsilon sets the bound at which the search stops improving.
func WithFinalEpsilon(eps float64) Option {
	return func(o *Options) { o.FinalEpsilon = eps }
}

// WithEpsilonStep sets how much epsilon drops between improvement passes.
func WithEpsilonStep(step float64) Option {
	return func(o *Options) { o.EpsilonStep = step }
}

// WithFirstSolutionOnly stops each replan at its first solution.
func WithFirstSolutionOnly(first bool) Option {
	return func(o *Options) { o.FirstSolutionOnly = first }
}

// WithClock sets the clock used to enforce the time budget.
func WithClock(c timeutil.Clock) Option {
	return func(o *Options) { o.Clock = c }
}

func buildOptions(options []Option) Options {
	opts := Options{
		InitialEpsilon: 3.0,
		FinalEpsilon:   1.0,
		EpsilonStep:    0.5,
		Clock:          timeutil.RealClock{},
	}
	for _, o := range options {
		o(&opts)
	}
	if opts.FinalEpsilon < 1 {
		opts.FinalEpsilon = 1
	}
	if opts.InitialEpsilon < opts.FinalEpsilon {
		opts.InitialEpsilon = opts.FinalEpsilon
	}
	if opts.EpsilonStep <= 0 {
		opts.EpsilonStep = 0.5
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	return opts
}
