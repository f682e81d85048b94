package search

import (
	"container/heap"
	"context"
	"errors"
	"math"
	"time"
)

// errBudget signals that the time budget ran out mid-search.
var errBudget = errors.New("search budget exhausted")

// ctxCheckInterval is how many expansions run between context checks.
const ctxCheckInterval = 64

type state struct {
	id        int
	g, rhs    int
	key       key
	heapIndex int
	closed    int // iteration in which the state was last expanded overconsistent
	incons    bool
}

// engine is the shared anytime search over either direction. A backward
// search grows its tree from the goal and needs Successors to compute
// one-step lookahead values; a forward search grows from the start and uses
// Predecessors.
type engine struct {
	space   Space
	forward bool
	opts    Options

	states    map[int]*state
	open      openList
	incons    []*state
	iteration int
	eps       float64

	startID, goalID     int
	haveStart, haveGoal bool

	fresh   bool // the tree must be rebuilt before the next search
	changed bool // edge costs changed since the last replan

	stats     Stats
	parentBuf []Edge
	childBuf  []Edge
}

func newEngine(space Space, forward bool, options []Option) *engine {
	return &engine{
		space:   space,
		forward: forward,
		opts:    buildOptions(options),
		states:  make(map[int]*state),
		fresh:   true,
	}
}

func (e *engine) setStart(id int) error {
	if !e.space.IsValidState(id) {
		return ErrInvalidStart
	}
	if !e.haveStart || e.startID != id {
		e.startID = id
		e.haveStart = true
		e.fresh = true
	}
	return nil
}

func (e *engine) setGoal(id int) error {
	if !e.space.IsValidState(id) {
		return ErrInvalidGoal
	}
	if !e.haveGoal || e.goalID != id {
		e.goalID = id
		e.haveGoal = true
		e.fresh = true
	}
	return nil
}

func (e *engine) rootID() int {
	if e.forward {
		return e.startID
	}
	return e.goalID
}

func (e *engine) targetID() int {
	if e.forward {
		return e.goalID
	}
	return e.startID
}

// parents lists the edges whose far end feeds a state's lookahead value.
func (e *engine) parents(id int, out []Edge) []Edge {
	if e.forward {
		return e.space.Predecessors(id, out)
	}
	return e.space.Successors(id, out)
}

// children lists the states whose lookahead values depend on id.
func (e *engine) children(id int, out []Edge) []Edge {
	if e.forward {
		return e.space.Successors(id, out)
	}
	return e.space.Predecessors(id, out)
}

func (e *engine) heuristic(id int) int {
	if e.forward {
		return e.space.Heuristic(id, e.goalID)
	}
	return e.space.Heuristic(e.startID, id)
}

func (e *engine) get(id int) *state {
	s, ok := e.states[id]
	if !ok {
		s = &state{id: id, g: Infinite, rhs: Infinite, heapIndex: -1}
		e.states[id] = s
	}
	return s
}

func (e *engine) calcKey(s *state) key {
	h := e.heuristic(s.id)
	if s.g > s.rhs {
		return key{s.rhs + int(e.eps*float64(h)), s.rhs}
	}
	return key{s.g + h, s.g}
}

func (e *engine) updateState(s *state) {
	if s.id != e.rootID() {
		best := Infinite
		e.parentBuf = e.parents(s.id, e.parentBuf[:0])
		for _, edge := range e.parentBuf {
			p, ok := e.states[edge.To]
			if !ok || p.g >= Infinite {
				continue
			}
			if c := p.g + edge.Cost; c < best {
				best = c
			}
		}
		s.rhs = best
	}
	if s.heapIndex >= 0 {
		heap.Remove(&e.open, s.heapIndex)
	}
	if s.g == s.rhs {
		return
	}
	if s.closed != e.iteration {
		s.key = e.calcKey(s)
		heap.Push(&e.open, s)
	} else if !s.incons {
		s.incons = true
		e.incons = append(e.incons, s)
	}
}

func (e *engine) updateChildren(id int) {
	e.childBuf = e.children(id, e.childBuf[:0])
	for _, edge := range e.childBuf {
		e.updateState(e.get(edge.To))
	}
}

// reinitialize drops the search tree and seeds a new one at the root.
func (e *engine) reinitialize() {
	clear(e.states)
	for i := range e.open {
		e.open[i] = nil
	}
	e.open = e.open[:0]
	e.incons = e.incons[:0]
	e.iteration = 1
	e.eps = e.opts.InitialEpsilon
	root := e.get(e.rootID())
	root.rhs = 0
	root.key = e.calcKey(root)
	heap.Push(&e.open, root)
	e.fresh = false
	e.changed = false
	e.stats.Reinitialized = true
}

// beginIteration moves INCONS into OPEN, forgets CLOSED and rekeys OPEN for
// the current epsilon.
func (e *engine) beginIteration() {
	for _, s := range e.incons {
		s.incons = false
		if s.heapIndex < 0 && s.g != s.rhs {
			s.heapIndex = len(e.open)
			e.open = append(e.open, s)
		}
	}
	e.incons = e.incons[:0]
	e.iteration++
	for _, s := range e.open {
		s.key = e.calcKey(s)
	}
	heap.Init(&e.open)
}

func (e *engine) computePath(ctx context.Context, expired func() bool) error {
	target := e.get(e.targetID())
	for e.open.Len() > 0 {
		top := e.open[0]
		if !top.key.less(e.calcKey(target)) && target.g == target.rhs {
			return nil
		}
		if expired() {
			return errBudget
		}
		if e.stats.Expansions%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		s := heap.Pop(&e.open).(*state)
		e.stats.Expansions++
		if s.g > s.rhs {
			s.g = s.rhs
			s.closed = e.iteration
		} else {
			s.g = Infinite
			e.updateState(s)
		}
		e.updateChildren(s.id)
	}
	return nil
}

// extractPath walks greedily from the target toward the root through the
// parent minimizing edge cost plus g, and returns the path in start to goal
// order with its summed cost.
func (e *engine) extractPath() ([]int, int, bool) {
	target, ok := e.states[e.targetID()]
	if !ok || (target.g >= Infinite && target.rhs >= Infinite) {
		return nil, 0, false
	}
	root := e.rootID()
	path := []int{target.id}
	visited := map[int]bool{target.id: true}
	cost := 0
	cur := target.id
	for cur != root {
		best, bestVal, bestCost := -1, Infinite, 0
		e.parentBuf = e.parents(cur, e.parentBuf[:0])
		for _, edge := range e.parentBuf {
			p, ok := e.states[edge.To]
			if !ok || p.g >= Infinite || visited[edge.To] {
				continue
			}
			if v := p.g + edge.Cost; v < bestVal {
				best, bestVal, bestCost = edge.To, v, edge.Cost
			}
		}
		if best < 0 {
			return nil, 0, false
		}
		visited[best] = true
		path = append(path, best)
		cost += bestCost
		cur = best
	}
	if e.forward {
		for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
			path[i], path[j] = path[j], path[i]
		}
	}
	return path, cost, true
}

// notify re-evaluates the listed states after their edges changed.
func (e *engine) notify(ids []int) {
	if e.fresh || len(ids) == 0 {
		return
	}
	// States behind cells that were impassable until now may never have
	// been generated, so create them here.
	for _, id := range ids {
		e.updateState(e.get(id))
	}
	e.changed = true
}

func (e *engine) replan(ctx context.Context, budget time.Duration) (Result, error) {
	if !e.haveStart || !e.haveGoal {
		return Result{}, ErrNoEndpoints
	}
	clock := e.opts.Clock
	began := clock.Now()
	expired := func() bool { return clock.Since(began) >= budget }

	e.stats.Replans++
	e.stats.Expansions = 0
	e.stats.Reinitialized = false
	switch {
	case e.fresh:
		e.reinitialize()
	case e.changed:
		e.eps = e.opts.InitialEpsilon
		e.changed = false
		e.beginIteration()
	default:
		e.beginIteration()
	}

	var best Result
	for {
		if err := e.computePath(ctx, expired); err != nil {
			if errors.Is(err, errBudget) {
				break
			}
			return best, err
		}
		path, cost, ok := e.extractPath()
		if !ok {
			break
		}
		best = Result{Found: true, Path: path, Cost: cost, Epsilon: e.eps}
		if e.opts.FirstSolutionOnly || e.eps <= e.opts.FinalEpsilon {
			break
		}
		e.eps = math.Max(e.opts.FinalEpsilon, e.eps-e.opts.EpsilonStep)
		e.beginIteration()
	}

	best.Expansions = e.stats.Expansions
	e.stats.Epsilon = best.Epsilon
	e.stats.SolutionCost = best.Cost
	return best, nil
}
