package render

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/drops/internal/grid"
	"github.com/banshee-data/drops/internal/lattice"
)

func sampleEnv() *grid.Environment {
	env := grid.New(5, 3)
	env.Start = grid.Pose{X: 0, Y: 0}
	env.Goal = grid.Pose{X: 4, Y: 0}
	env.SetCost(2, 2, grid.CostLethal)
	env.SetCost(3, 2, 130)
	return env
}

func TestGrid(t *testing.T) {
	t.Parallel()
	env := sampleEnv()
	path := []lattice.Waypoint{
		{X: 0.5, Y: 0.5, Theta: 0},
		{X: 1.5, Y: 0.5, Theta: 0},
		{X: 2.5, Y: 1.5, Theta: math.Pi / 4},
		{X: 3.5, Y: 0.5, Theta: math.Pi / 2},
		{X: 4.5, Y: 0.5, Theta: 0},
	}
	obstacles := grid.Delta{{X: 0, Y: 2}: 52, {X: 3, Y: 2}: 0}

	var buf bytes.Buffer
	require.NoError(t, Grid(&buf, env, obstacles, path, 1.0))
	want := "Grid\n\n" +
		"S- |G\n" +
		"  \\  \n" +
		"2 O  \n"
	assert.Equal(t, want, buf.String())
}

func TestPathOctants_Averaging(t *testing.T) {
	t.Parallel()
	path := []lattice.Waypoint{
		{X: 0.2, Y: 0.2, Theta: 0},
		{X: 0.8, Y: 0.2, Theta: math.Pi / 2},
		{X: 1.2, Y: 0.2, Theta: 3 * math.Pi / 4},
	}
	got := pathOctants(path, 1.0)
	assert.Equal(t, 1, got[grid.Cell{X: 0, Y: 0}])
	assert.Equal(t, 3, got[grid.Cell{X: 1, Y: 0}])

	half := pathOctants([]lattice.Waypoint{{X: 0.9, Y: 0.4}}, 0.5)
	assert.Contains(t, half, grid.Cell{X: 1, Y: 0})
}

func TestCostGlyph(t *testing.T) {
	t.Parallel()
	assert.Equal(t, " ", costGlyph(0))
	assert.Equal(t, "O", costGlyph(255))
	assert.Equal(t, "0", costGlyph(25))
	assert.Equal(t, "9", costGlyph(254))
}

func TestSummaries(t *testing.T) {
	t.Parallel()
	env := sampleEnv()
	env.Goal.Theta = 90

	var buf bytes.Buffer
	require.NoError(t, EnvSummary(&buf, env))
	assert.Contains(t, buf.String(), "width: 5")
	assert.Contains(t, buf.String(), "goal: 4 0 90.0")

	buf.Reset()
	require.NoError(t, ConstantsSummary(&buf, grid.DefaultConstants()))
	assert.Contains(t, buf.String(), "obs_thresh: 254")
	assert.Contains(t, buf.String(), "cell_size_m: 1")

	buf.Reset()
	require.NoError(t, PathListing(&buf, []lattice.Waypoint{{X: 1.5, Y: 2.25, Theta: math.Pi}}))
	assert.Equal(t, "1.500 2.250 180.000\n", buf.String())

	buf.Reset()
	require.NoError(t, ObstacleListing(&buf, grid.Delta{{X: 3, Y: 1}: 9, {X: 1, Y: 0}: 255}))
	assert.Equal(t, "Moving obstacles\n1, 0 255\n3, 1 9\n", buf.String())
}

func TestSavePNG(t *testing.T) {
	t.Parallel()
	file := filepath.Join(t.TempDir(), "plan.png")
	path := []lattice.Waypoint{{X: 0.5, Y: 0.5}, {X: 2.5, Y: 0.5}, {X: 4.5, Y: 0.5}}
	require.NoError(t, SavePNG(file, sampleEnv(), path, 1.0))

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	require.Greater(t, len(data), 8)
	assert.Equal(t, []byte("\x89PNG"), data[:4])

	require.NoError(t, SavePNG(filepath.Join(t.TempDir(), "empty.png"), grid.New(2, 2), nil, 0))
}

func TestWriteHTML(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	path := []lattice.Waypoint{{X: 0.5, Y: 0.5}, {X: 4.5, Y: 0.5}}
	require.NoError(t, WriteHTML(&buf, sampleEnv(), path, 1.0))
	html := buf.String()
	assert.Contains(t, html, "DROPS Plan")
	assert.Contains(t, html, "cells=2 waypoints=2")
	assert.True(t, strings.Contains(html, "echarts"))
}
