package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/drops/internal/acquisition"
	"github.com/banshee-data/drops/internal/grid"
	"github.com/banshee-data/drops/internal/journal"
	"github.com/banshee-data/drops/internal/testutil"
)

const devFixture = "../../config/dev_env.json"

func writeConfig(t *testing.T, overrides map[string]any) string {
	t.Helper()
	cfg := map[string]any{
		"planning_time": "2s",
		"fetch_timeout": "5s",
		"render_grid":   true,
	}
	for k, v := range overrides {
		cfg[k] = v
	}
	return testutil.WriteJSONFixture(t, "drops.json", cfg)
}

func runDrops(t *testing.T, args ...string) (int, string) {
	t.Helper()
	var out bytes.Buffer
	code := run(context.Background(), args, &out)
	return code, out.String()
}

func TestRun_BadConfig(t *testing.T) {
	code, out := runDrops(t, "-config", filepath.Join(t.TempDir(), "missing.json"))
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "Error with config: EXITING")

	bad := testutil.WriteJSONFixture(t, "bad.json", map[string]any{"planning_time": "soon"})
	code, out = runDrops(t, "-config", bad)
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "Error with config: EXITING")
}

func TestRun_DevFixture(t *testing.T) {
	code, out := runDrops(t, "-config", writeConfig(t, nil), "-dev", devFixture)
	require.Equal(t, 0, code, out)

	for _, want := range []string{
		"Waiting for first data from server",
		"Height: 10",
		"Width: 16",
		"Communication Time(ms): ",
		"Planner Init Time(ms): ",
		"Update Planner Time(ms): ",
		"Planning Time(ms): ",
		"Grid\n",
		"Has path",
	} {
		assert.Contains(t, out, want)
	}
	assert.Less(t, strings.Index(out, "Waiting"), strings.Index(out, "Has path"))
}

func TestRun_Debug(t *testing.T) {
	code, out := runDrops(t, "-config", writeConfig(t, nil), "-dev", devFixture, "-debug")
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "Moving obstacles")
	assert.Contains(t, out, "10, 6 255")
}

func TestRun_NoPath(t *testing.T) {
	env := testutil.OpenGrid(6, 6, grid.Cell{X: 0, Y: 0}, grid.Cell{X: 5, Y: 5})
	testutil.WallRow(env, 3, grid.CostLethal)
	fixture := testutil.WriteJSONFixture(t, "walled.json", acquisition.NewPayload(env, grid.DefaultConstants(), nil))

	code, out := runDrops(t, "-config", writeConfig(t, nil), "-dev", fixture)
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "NO PATH FOUND")
	assert.NotContains(t, out, "Has path")
}

func TestRun_MissingFixture(t *testing.T) {
	code, out := runDrops(t, "-config", writeConfig(t, nil), "-dev", filepath.Join(t.TempDir(), "none.json"))
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "Failed to get grid data from server!")
}

func TestRun_InvalidStart(t *testing.T) {
	env := testutil.OpenGrid(6, 6, grid.Cell{X: 0, Y: 0}, grid.Cell{X: 5, Y: 5})
	env.SetCost(0, 0, grid.CostLethal)
	fixture := testutil.WriteJSONFixture(t, "blocked.json", acquisition.NewPayload(env, grid.DefaultConstants(), nil))

	code, _ := runDrops(t, "-config", writeConfig(t, nil), "-dev", fixture)
	assert.Equal(t, 1, code)
}

func TestRun_FromServer(t *testing.T) {
	env := testutil.OpenGrid(8, 8, grid.Cell{X: 0, Y: 0}, grid.Cell{X: 7, Y: 7})
	payload := acquisition.NewPayload(env, grid.DefaultConstants(), grid.Delta{{X: 3, Y: 3}: 200})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/env" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(payload)
	}))
	defer srv.Close()

	code, out := runDrops(t, "-config", writeConfig(t, map[string]any{"server_url": srv.URL}))
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "Height: 8")
	assert.Contains(t, out, "Has path")
}

func TestRun_ServerDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	code, out := runDrops(t, "-config", writeConfig(t, map[string]any{"server_url": srv.URL}))
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "Failed to get grid data from server!")
}

func TestRun_WatchJournalsCycles(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")
	cfg := writeConfig(t, map[string]any{
		"journal_path":   dbPath,
		"watch_interval": "10ms",
		"render_grid":    false,
	})

	code, out := runDrops(t, "-config", cfg, "-dev", devFixture, "-watch", "-cycles", "3")
	require.Equal(t, 0, code, out)
	assert.Equal(t, 3, strings.Count(out, "Has path"))
	assert.Equal(t, 1, strings.Count(out, "Height: 10"))

	j, err := journal.Open(dbPath)
	require.NoError(t, err)
	defer j.Close()
	cycles, err := j.RecentCycles(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, cycles, 3)
	assert.True(t, cycles[2].Reinitialized)
	assert.False(t, cycles[0].Reinitialized)
}

func TestRun_PlotAndHTML(t *testing.T) {
	dir := t.TempDir()
	plot := filepath.Join(dir, "plan.png")
	html := filepath.Join(dir, "plan.html")

	code, out := runDrops(t, "-config", writeConfig(t, nil), "-dev", devFixture, "-plot", plot, "-html", html)
	require.Equal(t, 0, code, out)

	info, err := os.Stat(plot)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
	data, err := os.ReadFile(html)
	require.NoError(t, err)
	assert.Contains(t, string(data), "DROPS Plan")
}

func TestRun_Version(t *testing.T) {
	code, out := runDrops(t, "-version")
	assert.Equal(t, 0, code)
	assert.True(t, strings.HasPrefix(out, "drops "), out)
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    options
		wantErr bool
	}{
		{
			name: "defaults",
			args: []string{},
			want: options{configPath: "config/drops.json"},
		},
		{
			name: "watch mode",
			args: []string{"-watch", "-cycles", "5", "-debug-listen", "localhost:8081"},
			want: options{configPath: "config/drops.json", watch: true, cycles: 5, debugListen: "localhost:8081"},
		},
		{
			name: "version",
			args: []string{"-version"},
			want: options{configPath: "config/drops.json", version: true},
		},
		{
			name: "dev with outputs",
			args: []string{"-config", "x.json", "-dev", "env.json", "-debug", "-plot", "p.png", "-html", "p.html"},
			want: options{configPath: "x.json", fixture: "env.json", debug: true, plotFile: "p.png", htmlFile: "p.html"},
		},
		{
			name:    "unknown flag",
			args:    []string{"-nope"},
			wantErr: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseFlags(tc.args, &bytes.Buffer{})
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
