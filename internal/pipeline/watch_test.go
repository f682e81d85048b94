package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/drops/internal/acquisition"
	"github.com/banshee-data/drops/internal/config"
	"github.com/banshee-data/drops/internal/grid"
	"github.com/banshee-data/drops/internal/planner"
	"github.com/banshee-data/drops/internal/timeutil"
)

func TestWatch_RunsCycles(t *testing.T) {
	r, spy := newRunner(t, step{payload: payload(open10(), nil)})

	var seqs []int
	err := r.Watch(context.Background(), time.Millisecond, 3, func(rep Report) {
		seqs = append(seqs, rep.Seq)
		assert.Equal(t, planner.PathFound, rep.Status)
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, seqs)
	assert.Equal(t, 1, spy.inits)
}

func TestWatch_StopsOnCancel(t *testing.T) {
	r, _ := newRunner(t, step{payload: payload(open10(), nil)})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	err := r.Watch(ctx, time.Hour, 0, func(Report) {
		calls++
		cancel()
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWatch_FirstFetchFails(t *testing.T) {
	r, _ := newRunner(t, step{err: errors.New("no route to host")})

	err := r.Watch(context.Background(), time.Millisecond, 5, nil)
	assert.ErrorIs(t, err, ErrNoInitialData)
}

func TestWatch_SurvivesFailedRefetch(t *testing.T) {
	r, _ := newRunner(t,
		step{payload: payload(open10(), nil)},
		step{err: errors.New("flaky")},
		step{payload: payload(open10(), nil)},
	)

	var fresh []bool
	err := r.Watch(context.Background(), time.Millisecond, 3, func(rep Report) {
		fresh = append(fresh, rep.Fresh)
	})
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, true}, fresh)
}

func TestWatch_SurvivesFailedReinitialize(t *testing.T) {
	blocked := open10()
	blocked.Start = grid.Pose{X: 1, Y: 0}
	blocked.SetCost(1, 0, grid.CostLethal)
	r, spy := newRunner(t,
		step{payload: payload(open10(), nil)},
		step{payload: payload(blocked, nil)},
		step{err: errors.New("server down")},
		step{payload: payload(open10(), nil)},
	)

	var seqs []int
	err := r.Watch(context.Background(), time.Millisecond, 4, func(rep Report) {
		seqs = append(seqs, rep.Seq)
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 4}, seqs)
	assert.Equal(t, 3, spy.inits)
}

func TestWatch_TicksOnClock(t *testing.T) {
	mock := timeutil.NewMockClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	c := acquisition.New(config.DefaultConfig(), &feed{steps: []step{{payload: payload(open10(), nil)}}})
	r := NewRunner(c, planner.New(), WithClock(mock), WithFetchTimeout(5*time.Second))

	var started []time.Time
	err := r.Watch(context.Background(), time.Minute, 3, func(rep Report) {
		started = append(started, rep.StartedAt)
		mock.Advance(time.Minute)
	})
	require.NoError(t, err)
	require.Len(t, started, 3)
	assert.Equal(t, time.Minute, started[1].Sub(started[0]))
	assert.Equal(t, time.Minute, started[2].Sub(started[1]))
}
