package search

import (
	"context"
	"time"
)

// ADPlanner is an anytime dynamic A* planner. Between replans it accepts
// edge-level change notifications and repairs only the affected part of its
// search tree.
type ADPlanner struct {
	*engine
}

// NewADPlanner returns an AD* planner over space. A forward planner searches
// from the start and must be told about changed successors; a backward
// planner searches from the goal and must be told about changed predecessors.
func NewADPlanner(space Space, forward bool, opts ...Option) *ADPlanner {
	return &ADPlanner{engine: newEngine(space, forward, opts)}
}

func (p *ADPlanner) SetStart(id int) error { return p.setStart(id) }
func (p *ADPlanner) SetGoal(id int) error  { return p.setGoal(id) }
func (p *ADPlanner) Reset()                { p.fresh = true }
func (p *ADPlanner) Stats() Stats          { return p.stats }

// Forward reports the search direction.
func (p *ADPlanner) Forward() bool { return p.forward }

// NotifySuccessorsChanged repairs a forward search. A backward search cannot
// use the list, so it starts over instead.
func (p *ADPlanner) NotifySuccessorsChanged(ids []int) {
	if !p.forward {
		p.NotifyCostsChanged()
		return
	}
	p.notify(ids)
}

// NotifyPredecessorsChanged repairs a backward search. A forward search
// cannot use the list, so it starts over instead.
func (p *ADPlanner) NotifyPredecessorsChanged(ids []int) {
	if p.forward {
		p.NotifyCostsChanged()
		return
	}
	p.notify(ids)
}

func (p *ADPlanner) NotifyCostsChanged() { p.fresh = true }

func (p *ADPlanner) Replan(ctx context.Context, budget time.Duration) (Result, error) {
	return p.replan(ctx, budget)
}

var _ Capability = (*ADPlanner)(nil)
