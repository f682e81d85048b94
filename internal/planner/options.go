package planner

import (
	"time"

	"github.com/banshee-data/drops/internal/config"
	"github.com/banshee-data/drops/internal/timeutil"
)

// Variant selects the search capability the planner drives.
type Variant int

const (
	// VariantIncremental repairs the previous search from the dirty cells (AD*).
	VariantIncremental Variant = iota
	// VariantAnytime restarts the search whenever costs change (ARA*).
	VariantAnytime
)

func (v Variant) String() string {
	if v == VariantAnytime {
		return config.VariantAnytime
	}
	return config.VariantIncremental
}

type options struct {
	planningTime      time.Duration
	initialEpsilon    float64
	searchForward     bool
	firstSolutionOnly bool
	variant           Variant
	clock             timeutil.Clock
}

// Option is a function that modifies planner options.
type Option func(*options)

// WithPlanningTime sets the wall-clock budget for each replan.
func WithPlanningTime(d time.Duration) Option {
	return func(o *options) { o.planningTime = d }
}

// WithInitialEpsilon sets the suboptimality bound of the first solution.
func WithInitialEpsilon(eps float64) Option {
	return func(o *options) { o.initialEpsilon = eps }
}

// WithSearchForward searches from start to goal instead of goal to start.
func WithSearchForward(forward bool) Option {
	return func(o *options) { o.searchForward = forward }
}

// WithSearchUntilFirstSolution stops each replan at its first solution.
func WithSearchUntilFirstSolution(first bool) Option {
	return func(o *options) { o.firstSolutionOnly = first }
}

// WithVariant selects the search capability.
func WithVariant(v Variant) Option {
	return func(o *options) { o.variant = v }
}

// WithClock sets the clock that enforces the planning budget.
func WithClock(c timeutil.Clock) Option {
	return func(o *options) { o.clock = c }
}

// OptionsFromConfig maps the planner keys of cfg to options.
func OptionsFromConfig(cfg *config.Config) []Option {
	variant := VariantIncremental
	if cfg.GetPlannerVariant() == config.VariantAnytime {
		variant = VariantAnytime
	}
	return []Option{
		WithPlanningTime(cfg.GetPlanningTime()),
		WithInitialEpsilon(cfg.GetInitialEpsilon()),
		WithSearchForward(cfg.GetSearchForward()),
		WithSearchUntilFirstSolution(cfg.GetSearchUntilFirstSolution()),
		WithVariant(variant),
	}
}
