// Package acquisition fetches environment snapshots from a grid source on a
// background goroutine and hands them to the planner under a lock.
//
// The coordinator owns two locks. gridMu guards the environment grid buffer
// and is exposed to callers through LockEnvGrid; mu guards the coordinator's
// bookkeeping. When both are needed gridMu is taken first.
package acquisition

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/banshee-data/drops/internal/config"
	"github.com/banshee-data/drops/internal/grid"
	"github.com/banshee-data/drops/internal/monitoring"
	"github.com/banshee-data/drops/internal/timeutil"
)

var (
	ErrTimeout = errors.New("timed out waiting for grid data")
	ErrFetch   = errors.New("grid fetch failed")
	ErrNoData  = errors.New("no grid data fetched yet")
)

// Coordinator runs asynchronous fetches and keeps the latest good snapshot.
type Coordinator struct {
	src          Source
	clock        timeutil.Clock
	fetchTimeout time.Duration

	gridMu sync.Mutex

	mu         sync.Mutex
	env        *grid.Environment
	consts     grid.Constants
	delta      grid.Delta
	inProgress bool
	updated    bool
	lastErr    error
	done       chan struct{}
	fetches    int
}

// Option is a function that modifies a Coordinator.
type Option func(*Coordinator)

// WithClock sets the clock used for fetch timing and Wait timeouts.
func WithClock(c timeutil.Clock) Option {
	return func(co *Coordinator) { co.clock = c }
}

// New creates a coordinator that fetches from src. Only cfg's fetch timeout
// is read here; the source carries its own endpoint.
func New(cfg *config.Config, src Source, opts ...Option) *Coordinator {
	done := make(chan struct{})
	close(done)
	c := &Coordinator{
		src:          src,
		clock:        timeutil.RealClock{},
		fetchTimeout: cfg.GetFetchTimeout(),
		done:         done,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// UpdateData starts a fetch in the background and returns immediately. It
// reports false, and does nothing, when a fetch is already running.
func (c *Coordinator) UpdateData(ctx context.Context) bool {
	c.mu.Lock()
	if c.inProgress {
		c.mu.Unlock()
		return false
	}
	c.inProgress = true
	c.updated = false
	done := make(chan struct{})
	c.done = done
	c.mu.Unlock()

	go c.fetch(ctx, done)
	return true
}

func (c *Coordinator) fetch(ctx context.Context, done chan struct{}) {
	ctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	sw := timeutil.StartStopwatch(c.clock)
	p, err := c.src.Fetch(ctx)
	var env *grid.Environment
	if err == nil {
		env, err = p.Environment()
	}
	if err != nil {
		monitoring.Logf("[Acquisition] Fetch failed after %v: %v", sw.Lap(), err)
		c.mu.Lock()
		c.lastErr = err
		c.inProgress = false
		close(done)
		c.mu.Unlock()
		return
	}

	c.gridMu.Lock()
	c.mu.Lock()
	if c.env != nil && len(c.env.Cells) == len(env.Cells) {
		copy(c.env.Cells, env.Cells)
		c.env.Width, c.env.Height = env.Width, env.Height
		c.env.Start, c.env.Goal = env.Start, env.Goal
	} else {
		c.env = env
	}
	c.consts = p.ConstantsOrDefault()
	c.delta = p.Delta()
	c.updated = true
	c.lastErr = nil
	c.inProgress = false
	c.fetches++
	close(done)
	c.mu.Unlock()
	c.gridMu.Unlock()

	monitoring.Logf("[Acquisition] Fetched %dx%d grid with %d obstacle updates in %v",
		env.Width, env.Height, len(p.Obstacles), sw.Lap())
}

// UpdateInProgress reports whether a fetch is running.
func (c *Coordinator) UpdateInProgress() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inProgress
}

// IsUpdated reports whether the most recent fetch succeeded.
func (c *Coordinator) IsUpdated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updated
}

// LastError returns the error of the most recent failed fetch, cleared by
// the next successful one.
func (c *Coordinator) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Fetches counts successful fetches.
func (c *Coordinator) Fetches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetches
}

// Done returns a channel closed when the current fetch finishes. With no
// fetch running it is already closed.
func (c *Coordinator) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Wait blocks until the current fetch finishes, timeout elapses or ctx is
// cancelled. It returns nil only when the fetch succeeded.
func (c *Coordinator) Wait(ctx context.Context, timeout time.Duration) error {
	done := c.Done()
	timer := c.clock.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C():
		return fmt.Errorf("%w after %v", ErrTimeout, timeout)
	case <-ctx.Done():
		return ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.updated:
		return nil
	case c.lastErr != nil:
		return fmt.Errorf("%w: %w", ErrFetch, c.lastErr)
	default:
		return ErrNoData
	}
}

// EnvData returns the latest environment. Its grid is overwritten in place
// by later fetches, so hold LockEnvGrid while reading it.
func (c *Coordinator) EnvData() *grid.Environment {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.env
}

// ConstData returns the constants of the latest successful fetch.
func (c *Coordinator) ConstData() grid.Constants {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.consts
}

// UpdatedPoints returns a copy of the latest obstacle updates.
func (c *Coordinator) UpdatedPoints() grid.Delta {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.delta.Clone()
}

// LockEnvGrid takes exclusive access to the environment grid. The returned
// function releases it and may be called more than once.
func (c *Coordinator) LockEnvGrid() (unlock func()) {
	c.gridMu.Lock()
	var once sync.Once
	return func() { once.Do(c.gridMu.Unlock) }
}
