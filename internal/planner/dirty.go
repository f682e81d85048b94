package planner

import (
	"slices"

	"github.com/banshee-data/drops/internal/grid"
)

// DirtyCells records the cells whose cost changed since the last replan, in
// the order they changed. Repeats are kept. It is not safe for concurrent use.
type DirtyCells struct {
	cells []grid.Cell
}

func (d *DirtyCells) Add(cells ...grid.Cell) { d.cells = append(d.cells, cells...) }

// Cells returns a copy of the recorded cells.
func (d *DirtyCells) Cells() []grid.Cell { return slices.Clone(d.cells) }

func (d *DirtyCells) Len() int { return len(d.cells) }

func (d *DirtyCells) Clear() { d.cells = d.cells[:0] }
