// Package testutil provides shared test utilities and fixtures.
//
// This package centralises grid fixtures and assertion helpers used by the
// planner, acquisition and pipeline tests.
package testutil

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/banshee-data/drops/internal/grid"
	"github.com/banshee-data/drops/internal/lattice"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t testing.TB, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// NewTestRequest creates a test HTTP request.
func NewTestRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

// NewTestRecorder creates a test response recorder.
func NewTestRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}

// OpenGrid returns a free w x h grid with the given start and goal cells,
// both facing 0°.
func OpenGrid(w, h int, start, goal grid.Cell) *grid.Environment {
	env := grid.New(w, h)
	env.Start = grid.Pose{X: start.X, Y: start.Y}
	env.Goal = grid.Pose{X: goal.X, Y: goal.Y}
	return env
}

// WallRow sets every cell of row y to cost.
func WallRow(env *grid.Environment, y int, cost uint8) grid.Delta {
	d := make(grid.Delta, env.Width)
	for x := 0; x < env.Width; x++ {
		d[grid.Cell{X: x, Y: y}] = cost
	}
	env.Apply(d)
	return d
}

// PathCells returns the distinct grid cells a path visits, in order.
func PathCells(path []lattice.Waypoint, cellSize float64) []grid.Cell {
	var cells []grid.Cell
	for _, wp := range path {
		c := WaypointCell(wp, cellSize)
		if len(cells) == 0 || cells[len(cells)-1] != c {
			cells = append(cells, c)
		}
	}
	return cells
}

// WaypointCell returns the grid cell containing a metric waypoint.
func WaypointCell(wp lattice.Waypoint, cellSize float64) grid.Cell {
	return grid.Cell{X: int(math.Floor(wp.X / cellSize)), Y: int(math.Floor(wp.Y / cellSize))}
}

// WriteJSONFixture marshals v into name under a fresh temp dir and returns
// the file path.
func WriteJSONFixture(t *testing.T, name string, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	AssertNoError(t, err)
	path := filepath.Join(t.TempDir(), name)
	AssertNoError(t, os.WriteFile(path, data, 0o644))
	return path
}
