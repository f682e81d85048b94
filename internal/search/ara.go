package search

import (
	"context"
	"time"
)

// ARAPlanner is an anytime repairing A* planner. It improves its solution
// across replans while costs stay put and starts over when they change.
type ARAPlanner struct {
	NotIncremental
	*engine
}

// NewARAPlanner returns an ARA* planner over space.
func NewARAPlanner(space Space, forward bool, opts ...Option) *ARAPlanner {
	return &ARAPlanner{engine: newEngine(space, forward, opts)}
}

func (p *ARAPlanner) SetStart(id int) error { return p.setStart(id) }
func (p *ARAPlanner) SetGoal(id int) error  { return p.setGoal(id) }
func (p *ARAPlanner) Reset()                { p.fresh = true }
func (p *ARAPlanner) Stats() Stats          { return p.stats }
func (p *ARAPlanner) Forward() bool         { return p.forward }
func (p *ARAPlanner) NotifyCostsChanged()   { p.fresh = true }

func (p *ARAPlanner) Replan(ctx context.Context, budget time.Duration) (Result, error) {
	return p.replan(ctx, budget)
}

var _ Capability = (*ARAPlanner)(nil)
