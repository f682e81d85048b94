package render

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/drops/internal/grid"
	"github.com/banshee-data/drops/internal/lattice"
)

var costPalette = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// WriteHTML writes an interactive scatter chart of the non-free cells,
// coloured by cost, with the path drawn over them.
func WriteHTML(w io.Writer, env *grid.Environment, path []lattice.Waypoint, cellSize float64) error {
	if cellSize <= 0 {
		cellSize = 1
	}
	cells := make([]opts.ScatterData, 0)
	for y := 0; y < env.Height; y++ {
		for x := 0; x < env.Width; x++ {
			cost := env.Cost(x, y)
			if cost == grid.CostFree {
				continue
			}
			cx := (float64(x) + 0.5) * cellSize
			cy := (float64(y) + 0.5) * cellSize
			cells = append(cells, opts.ScatterData{Value: []interface{}{cx, cy, int(cost)}})
		}
	}
	waypoints := make([]opts.ScatterData, 0, len(path))
	for _, wp := range path {
		waypoints = append(waypoints, opts.ScatterData{Value: []interface{}{wp.X, wp.Y, 0}})
	}

	width := float64(env.Width) * cellSize
	height := float64(env.Height) * cellSize
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "DROPS Plan", Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "Cost Grid", Subtitle: fmt.Sprintf("%dx%d cells=%d waypoints=%d", env.Width, env.Height, len(cells), len(waypoints))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: 0, Max: width, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: height, Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(grid.CostLethal),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: costPalette},
		}),
	)
	scatter.AddSeries("cost", cells, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}))
	scatter.AddSeries("path", waypoints, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))
	return scatter.Render(w)
}
