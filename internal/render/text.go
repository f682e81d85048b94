// Package render draws environments and paths for people: a console grid,
// plain-text listings for debugging, a PNG plot and an interactive HTML
// chart.
package render

import (
	"bufio"
	"fmt"
	"io"
	"math"

	"github.com/banshee-data/drops/internal/grid"
	"github.com/banshee-data/drops/internal/lattice"
)

// pathGlyphs are indexed by heading octant; opposite octants share a glyph.
var pathGlyphs = [8]byte{'-', '\\', '|', '/', '-', '\\', '|', '/'}

// Grid writes a character map of env with one row per grid row. Start and
// goal are S and G, path cells show a direction glyph, lethal cells are O and
// other non-zero costs are printed as cost/26. Obstacle updates take
// precedence over the base grid.
func Grid(w io.Writer, env *grid.Environment, obstacles grid.Delta, path []lattice.Waypoint, cellSize float64) error {
	octants := pathOctants(path, cellSize)
	bw := bufio.NewWriter(w)
	fmt.Fprint(bw, "Grid\n\n")
	for y := 0; y < env.Height; y++ {
		for x := 0; x < env.Width; x++ {
			c := grid.Cell{X: x, Y: y}
			switch {
			case c == env.Start.Cell():
				bw.WriteByte('S')
			case c == env.Goal.Cell():
				bw.WriteByte('G')
			default:
				if o, ok := octants[c]; ok {
					bw.WriteByte(pathGlyphs[o])
				} else if cost, ok := obstacles[c]; ok {
					bw.WriteString(costGlyph(cost))
				} else {
					bw.WriteString(costGlyph(env.Cost(x, y)))
				}
			}
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func costGlyph(cost uint8) string {
	switch cost {
	case grid.CostFree:
		return " "
	case grid.CostLethal:
		return "O"
	default:
		return fmt.Sprint(cost / 26)
	}
}

// pathOctants maps each cell the path visits to a heading octant. When
// several waypoints fall in one cell their octants are averaged pairwise in
// path order.
func pathOctants(path []lattice.Waypoint, cellSize float64) map[grid.Cell]int {
	if cellSize <= 0 {
		cellSize = 1
	}
	out := make(map[grid.Cell]int, len(path))
	for _, wp := range path {
		c := grid.Cell{X: int(math.Floor(wp.X / cellSize)), Y: int(math.Floor(wp.Y / cellSize))}
		deg := wp.Theta * 180 / math.Pi
		o := int((deg+22.5)/45) % 8
		if prev, ok := out[c]; ok {
			o = (o + prev) / 2
		}
		out[c] = o
	}
	return out
}
