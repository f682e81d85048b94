package render

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/drops/internal/grid"
	"github.com/banshee-data/drops/internal/lattice"
)

var (
	lethalColor = color.RGBA{R: 200, G: 30, B: 30, A: 255}
	costColor   = color.RGBA{R: 240, G: 170, B: 60, A: 255}
	pathColor   = color.RGBA{R: 30, G: 90, B: 220, A: 255}
	endsColor   = color.RGBA{R: 20, G: 160, B: 60, A: 255}
)

// SavePNG plots obstacles, path, start and goal in meters and writes the
// image to file. The format follows the file extension.
func SavePNG(file string, env *grid.Environment, path []lattice.Waypoint, cellSize float64) error {
	if cellSize <= 0 {
		cellSize = 1
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Plan %dx%d", env.Width, env.Height)
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"
	p.X.Min, p.X.Max = 0, float64(env.Width)*cellSize
	p.Y.Min, p.Y.Max = 0, float64(env.Height)*cellSize

	center := func(x, y int) plotter.XY {
		return plotter.XY{X: (float64(x) + 0.5) * cellSize, Y: (float64(y) + 0.5) * cellSize}
	}

	var lethal, costly plotter.XYs
	for y := 0; y < env.Height; y++ {
		for x := 0; x < env.Width; x++ {
			switch cost := env.Cost(x, y); {
			case cost == grid.CostLethal:
				lethal = append(lethal, center(x, y))
			case cost > grid.CostFree:
				costly = append(costly, center(x, y))
			}
		}
	}
	if err := addCells(p, "lethal", lethal, lethalColor); err != nil {
		return err
	}
	if err := addCells(p, "cost", costly, costColor); err != nil {
		return err
	}

	if len(path) > 0 {
		pts := make(plotter.XYs, len(path))
		for i, wp := range path {
			pts[i] = plotter.XY{X: wp.X, Y: wp.Y}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = pathColor
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add("path", line)
	}

	ends, err := plotter.NewScatter(plotter.XYs{
		center(env.Start.X, env.Start.Y),
		center(env.Goal.X, env.Goal.Y),
	})
	if err != nil {
		return err
	}
	ends.GlyphStyle.Color = endsColor
	ends.GlyphStyle.Shape = draw.CircleGlyph{}
	ends.GlyphStyle.Radius = vg.Points(4)
	p.Add(ends)
	p.Legend.Add("start/goal", ends)

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(8*vg.Inch, 8*vg.Inch, file); err != nil {
		return fmt.Errorf("save plot %s: %w", file, err)
	}
	return nil
}

func addCells(p *plot.Plot, name string, pts plotter.XYs, c color.Color) error {
	if len(pts) == 0 {
		return nil
	}
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	s.GlyphStyle.Color = c
	s.GlyphStyle.Shape = draw.BoxGlyph{}
	s.GlyphStyle.Radius = vg.Points(2)
	p.Add(s)
	p.Legend.Add(name, s)
	return nil
}
