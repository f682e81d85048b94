package journal

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Summary aggregates planning timings over a set of cycles.
type Summary struct {
	Cycles         int     `json:"cycles"`
	PathFound      int     `json:"path_found"`
	PlanningMeanMs float64 `json:"planning_mean_ms"`
	PlanningStdMs  float64 `json:"planning_std_ms"`
	PlanningP95Ms  float64 `json:"planning_p95_ms"`
	UpdateMeanMs   float64 `json:"update_mean_ms"`
	MeanExpansions float64 `json:"mean_expansions"`
}

// Summarize computes timing statistics for cycles. Cycles whose status is
// pathFoundStatus count toward PathFound.
func Summarize(cycles []Cycle, pathFoundStatus string) Summary {
	s := Summary{Cycles: len(cycles)}
	if len(cycles) == 0 {
		return s
	}
	planning := make([]float64, len(cycles))
	update := make([]float64, len(cycles))
	expansions := make([]float64, len(cycles))
	for i, c := range cycles {
		planning[i] = float64(c.Planning.Microseconds()) / 1000
		update[i] = float64(c.Update.Microseconds()) / 1000
		expansions[i] = float64(c.Expansions)
		if c.Status == pathFoundStatus {
			s.PathFound++
		}
	}
	s.PlanningMeanMs, s.PlanningStdMs = stat.MeanStdDev(planning, nil)
	if len(planning) == 1 {
		s.PlanningStdMs = 0
	}
	s.UpdateMeanMs = stat.Mean(update, nil)
	s.MeanExpansions = stat.Mean(expansions, nil)

	sort.Float64s(planning)
	s.PlanningP95Ms = stat.Quantile(0.95, stat.Empirical, planning, nil)
	return s
}
