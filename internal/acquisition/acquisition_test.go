package acquisition

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/drops/internal/config"
	"github.com/banshee-data/drops/internal/grid"
	"github.com/banshee-data/drops/internal/httputil"
	"github.com/banshee-data/drops/internal/monitoring"
	"github.com/banshee-data/drops/internal/testutil"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

type result struct {
	payload *Payload
	err     error
}

// scriptedSource returns its results in order, repeating the last one. When
// gate is set every fetch blocks until it receives from it.
type scriptedSource struct {
	mu      sync.Mutex
	results []result
	calls   int
	gate    chan struct{}
}

func (s *scriptedSource) Fetch(ctx context.Context) (*Payload, error) {
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.results[min(s.calls, len(s.results)-1)]
	s.calls++
	return r.payload, r.err
}

func (s *scriptedSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func samplePayload() *Payload {
	env := testutil.OpenGrid(4, 3, grid.Cell{X: 0, Y: 0}, grid.Cell{X: 3, Y: 2})
	env.SetCost(1, 1, 200)
	return NewPayload(env, grid.DefaultConstants(), grid.Delta{{X: 2, Y: 1}: 90})
}

func waitOK(t *testing.T, c *Coordinator) {
	t.Helper()
	require.NoError(t, c.Wait(context.Background(), 5*time.Second))
}

// ---- coordinator

func TestCoordinator_FetchSnapshot(t *testing.T) {
	t.Parallel()
	src := &scriptedSource{results: []result{{payload: samplePayload()}}}
	c := New(config.DefaultConfig(), src)

	assert.False(t, c.IsUpdated())
	require.True(t, c.UpdateData(context.Background()))
	waitOK(t, c)

	assert.True(t, c.IsUpdated())
	assert.False(t, c.UpdateInProgress())
	assert.NoError(t, c.LastError())
	assert.Equal(t, 1, c.Fetches())

	unlock := c.LockEnvGrid()
	env := c.EnvData()
	require.NotNil(t, env)
	assert.Equal(t, 4, env.Width)
	assert.Equal(t, uint8(200), env.Cost(1, 1))
	unlock()

	assert.Equal(t, grid.DefaultConstants(), c.ConstData())
	if diff := cmp.Diff(grid.Delta{{X: 2, Y: 1}: 90}, c.UpdatedPoints()); diff != "" {
		t.Errorf("UpdatedPoints mismatch (-want +got):\n%s", diff)
	}
}

func TestCoordinator_IgnoresUpdateWhileInFlight(t *testing.T) {
	t.Parallel()
	src := &scriptedSource{results: []result{{payload: samplePayload()}}, gate: make(chan struct{})}
	c := New(config.DefaultConfig(), src)

	require.True(t, c.UpdateData(context.Background()))
	assert.True(t, c.UpdateInProgress())
	assert.False(t, c.UpdateData(context.Background()))

	src.gate <- struct{}{}
	waitOK(t, c)
	assert.Equal(t, 1, src.Calls())
	assert.Equal(t, 1, c.Fetches())
}

func TestCoordinator_FailedRefetchKeepsSnapshot(t *testing.T) {
	t.Parallel()
	boom := errors.New("connection reset")
	src := &scriptedSource{results: []result{{payload: samplePayload()}, {err: boom}}}
	c := New(config.DefaultConfig(), src)

	c.UpdateData(context.Background())
	waitOK(t, c)
	first := c.EnvData()

	c.UpdateData(context.Background())
	err := c.Wait(context.Background(), 5*time.Second)
	assert.ErrorIs(t, err, ErrFetch)
	assert.ErrorIs(t, err, boom)
	assert.False(t, c.IsUpdated())
	assert.ErrorIs(t, c.LastError(), boom)
	assert.Same(t, first, c.EnvData())
	assert.Equal(t, uint8(200), c.EnvData().Cost(1, 1))
}

func TestCoordinator_RefetchOverwritesGridInPlace(t *testing.T) {
	t.Parallel()
	second := samplePayload()
	second.Grid[0] = 7
	src := &scriptedSource{results: []result{{payload: samplePayload()}, {payload: second}}}
	c := New(config.DefaultConfig(), src)

	c.UpdateData(context.Background())
	waitOK(t, c)
	first := c.EnvData()

	c.UpdateData(context.Background())
	waitOK(t, c)
	assert.Same(t, first, c.EnvData())
	assert.Equal(t, uint8(7), first.Cost(0, 0))
	assert.Equal(t, 2, c.Fetches())
}

func TestCoordinator_InvalidPayload(t *testing.T) {
	t.Parallel()
	bad := samplePayload()
	bad.Grid = bad.Grid[:3]
	c := New(config.DefaultConfig(), &scriptedSource{results: []result{{payload: bad}}})

	c.UpdateData(context.Background())
	err := c.Wait(context.Background(), 5*time.Second)
	assert.ErrorIs(t, err, grid.ErrGridSize)
	assert.Nil(t, c.EnvData())
}

func TestCoordinator_WaitTimeout(t *testing.T) {
	t.Parallel()
	src := &scriptedSource{results: []result{{payload: samplePayload()}}, gate: make(chan struct{})}
	c := New(config.DefaultConfig(), src)
	c.UpdateData(context.Background())

	err := c.Wait(context.Background(), 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.Wait(ctx, time.Minute), context.Canceled)

	close(src.gate)
	waitOK(t, c)
}

func TestCoordinator_WaitWithoutFetch(t *testing.T) {
	t.Parallel()
	c := New(config.DefaultConfig(), &scriptedSource{results: []result{{payload: samplePayload()}}})
	select {
	case <-c.Done():
	default:
		t.Fatal("Done() should be closed before any fetch")
	}
	assert.ErrorIs(t, c.Wait(context.Background(), time.Second), ErrNoData)
}

func TestCoordinator_LockHoldsOffFetch(t *testing.T) {
	t.Parallel()
	c := New(config.DefaultConfig(), &scriptedSource{results: []result{{payload: samplePayload()}}})

	unlock := c.LockEnvGrid()
	c.UpdateData(context.Background())
	assert.ErrorIs(t, c.Wait(context.Background(), 50*time.Millisecond), ErrTimeout)
	assert.True(t, c.UpdateInProgress())

	unlock()
	unlock()
	waitOK(t, c)
}

func TestCoordinator_FetchTimeout(t *testing.T) {
	t.Parallel()
	cfg := config.DefaultConfig()
	short := "10ms"
	cfg.FetchTimeout = &short
	src := &scriptedSource{results: []result{{payload: samplePayload()}}, gate: make(chan struct{})}
	c := New(cfg, src)

	c.UpdateData(context.Background())
	err := c.Wait(context.Background(), 5*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// ---- sources

func TestHTTPSource(t *testing.T) {
	t.Parallel()
	body, err := json.Marshal(samplePayload())
	require.NoError(t, err)
	client := httputil.NewMockHTTPClient().
		AddResponse(http.StatusOK, string(body)).
		AddResponse(http.StatusServiceUnavailable, "down")
	src := NewHTTPSource(client, "http://planner.local:8080/env")

	p, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, p.Width)
	assert.Len(t, p.Grid, 12)
	require.Len(t, client.Requests, 1)
	assert.Equal(t, "http://planner.local:8080/env", client.Requests[0].URL.String())
	assert.Equal(t, "application/json", client.Requests[0].Header.Get("Accept"))

	_, err = src.Fetch(context.Background())
	assert.ErrorIs(t, err, httputil.ErrUnexpectedStatus)
}

func TestFileSource(t *testing.T) {
	t.Parallel()
	path := testutil.WriteJSONFixture(t, "env.json", samplePayload())
	p, err := FileSource{Path: path}.Fetch(context.Background())
	require.NoError(t, err)
	env, err := p.Environment()
	require.NoError(t, err)
	assert.Equal(t, grid.Pose{X: 3, Y: 2}, env.Goal)

	_, err = FileSource{Path: path + ".missing"}.Fetch(context.Background())
	assert.Error(t, err)
}

func TestNewSource(t *testing.T) {
	t.Parallel()
	cfg := config.DefaultConfig()
	assert.IsType(t, FileSource{}, NewSource(cfg, "fixture.json"))

	src, ok := NewSource(cfg, "").(*HTTPSource)
	require.True(t, ok)
	assert.Equal(t, cfg.GetEnvURL(), src.URL())
}

// ---- payload

func TestPayload_WireFormat(t *testing.T) {
	t.Parallel()
	raw := `{"width":2,"height":2,"grid":"AAH/AA==",
		"start":{"x":0,"y":0,"theta":90},"goal":{"x":1,"y":1,"theta":0},
		"obstacles":[{"x":1,"y":0,"cost":5},{"x":1,"y":0,"cost":9}]}`
	var p Payload
	require.NoError(t, json.Unmarshal([]byte(raw), &p))
	assert.Equal(t, []byte{0, 1, 255, 0}, p.Grid)
	assert.Equal(t, grid.DefaultConstants(), p.ConstantsOrDefault())
	assert.Equal(t, grid.Delta{{X: 1, Y: 0}: 9}, p.Delta())

	env, err := p.Environment()
	require.NoError(t, err)
	assert.Equal(t, 90.0, env.Start.Theta)
	assert.Equal(t, grid.CostLethal, env.Cost(0, 1))
}
