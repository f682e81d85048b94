package render

import (
	"fmt"
	"io"
	"math"

	"github.com/banshee-data/drops/internal/grid"
	"github.com/banshee-data/drops/internal/lattice"
)

// EnvSummary writes the dimensions and endpoints of env.
func EnvSummary(w io.Writer, env *grid.Environment) error {
	_, err := fmt.Fprintf(w, "height: %d\nwidth: %d\nstart: %d %d %.1f\ngoal: %d %d %.1f\n",
		env.Height, env.Width,
		env.Start.X, env.Start.Y, env.Start.Theta,
		env.Goal.X, env.Goal.Y, env.Goal.Theta)
	return err
}

// ConstantsSummary writes the environment constants.
func ConstantsSummary(w io.Writer, c grid.Constants) error {
	_, err := fmt.Fprintf(w, "\nEnv Constants\nobs_thresh: %d\ncost_inscribed_thresh: %d\ncost_possibly_circumscribed_thresh: %d\nnominal_velocity: %g\ntime_to_turn_45_degs: %g\ncell_size_m: %g\n\n",
		c.ObsThresh, c.CostInscribedThresh, c.CostPossiblyCircumscribedThresh,
		c.NominalVelocity, c.TimeToTurn45Degs, c.CellSizeMeters)
	return err
}

// PathListing writes one waypoint per line: x and y in meters and the
// heading in degrees.
func PathListing(w io.Writer, path []lattice.Waypoint) error {
	for _, wp := range path {
		if _, err := fmt.Fprintf(w, "%3.3f %3.3f %3.3f\n", wp.X, wp.Y, wp.Theta*180/math.Pi); err != nil {
			return err
		}
	}
	return nil
}

// ObstacleListing writes the obstacle updates in row-major order.
func ObstacleListing(w io.Writer, d grid.Delta) error {
	if _, err := fmt.Fprintln(w, "Moving obstacles"); err != nil {
		return err
	}
	for _, c := range d.Cells() {
		if _, err := fmt.Fprintf(w, "%d, %d %d\n", c.X, c.Y, d[c]); err != nil {
			return err
		}
	}
	return nil
}
