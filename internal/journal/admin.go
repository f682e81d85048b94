package journal

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"

	"github.com/banshee-data/drops/internal/httputil"
)

// AttachAdminRoutes mounts the journal on mux under /debug/: a live SQL
// console at /debug/tailsql/ and JSON views at /debug/cycles and
// /debug/cycles/summary.
func (j *Journal) AttachAdminRoutes(mux *http.ServeMux, pathFoundStatus string) error {
	debug := tsweb.Debugger(mux)
	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("failed to create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://drops-journal.db", j.DB, &tailsql.DBOptions{
		Label: "DROPS journal",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())
	debug.Handle("cycles", "Recent planning cycles (JSON)", j.cyclesHandler())
	debug.Handle("cycles/summary", "Planning timing summary (JSON)", j.summaryHandler(pathFoundStatus))
	return nil
}

func limitParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 100, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	return n, nil
}

func (j *Journal) cyclesHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, err := limitParam(r)
		if err != nil {
			httputil.WriteJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		cycles, err := j.RecentCycles(r.Context(), limit)
		if err != nil {
			httputil.WriteJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if cycles == nil {
			cycles = []Cycle{}
		}
		httputil.WriteJSON(w, http.StatusOK, cycles)
	})
}

func (j *Journal) summaryHandler(pathFoundStatus string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, err := limitParam(r)
		if err != nil {
			httputil.WriteJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		cycles, err := j.RecentCycles(r.Context(), limit)
		if err != nil {
			httputil.WriteJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		httputil.WriteJSON(w, http.StatusOK, Summarize(cycles, pathFoundStatus))
	})
}
