package grid

import "fmt"

// Environment is a grid snapshot: dimensions, a flat row-major cost array,
// and the start and goal poses.
type Environment struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Cells  []byte `json:"grid"`
	Start  Pose   `json:"start"`
	Goal   Pose   `json:"goal"`
}

// New returns an all-free width x height environment.
func New(width, height int) *Environment {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Environment{Width: width, Height: height, Cells: make([]byte, width*height)}
}

// Validate checks dimensions, cell count, and that start and goal are on the grid.
func (e *Environment) Validate() error {
	if e.Width <= 0 || e.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrDimensions, e.Width, e.Height)
	}
	if len(e.Cells) != e.Width*e.Height {
		return fmt.Errorf("%w: have %d, want %d", ErrGridSize, len(e.Cells), e.Width*e.Height)
	}
	if !e.InBounds(e.Start.X, e.Start.Y) {
		return fmt.Errorf("%w: start %v", ErrOutOfBounds, e.Start.Cell())
	}
	if !e.InBounds(e.Goal.X, e.Goal.Y) {
		return fmt.Errorf("%w: goal %v", ErrOutOfBounds, e.Goal.Cell())
	}
	return nil
}

// InBounds reports whether (x, y) is on the grid.
func (e *Environment) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < e.Width && y < e.Height
}

// Index returns the flat index of (x, y). The caller checks bounds.
func (e *Environment) Index(x, y int) int {
	return x + y*e.Width
}

// Cost returns the cost at (x, y), or CostLethal off the grid.
func (e *Environment) Cost(x, y int) uint8 {
	if !e.InBounds(x, y) {
		return CostLethal
	}
	return e.Cells[e.Index(x, y)]
}

// SetCost writes the cost at (x, y). It returns false when (x, y) is off the grid.
func (e *Environment) SetCost(x, y int, cost uint8) bool {
	if !e.InBounds(x, y) {
		return false
	}
	e.Cells[e.Index(x, y)] = cost
	return true
}

// Apply writes every in-bounds delta entry and returns the cells that were off the grid.
func (e *Environment) Apply(d Delta) []Cell {
	var outside []Cell
	for _, c := range d.Cells() {
		if !e.SetCost(c.X, c.Y, d[c]) {
			outside = append(outside, c)
		}
	}
	return outside
}

// Clone returns a deep copy.
func (e *Environment) Clone() *Environment {
	out := *e
	out.Cells = make([]byte, len(e.Cells))
	copy(out.Cells, e.Cells)
	return &out
}

// SameFrame reports whether other has the same dimensions, start, and goal,
// i.e. whether a planner bound to e can absorb other as a set of cell changes.
func (e *Environment) SameFrame(other *Environment) bool {
	return other != nil &&
		e.Width == other.Width && e.Height == other.Height &&
		e.Start == other.Start && e.Goal == other.Goal
}

// Diff returns the cells whose cost differs in other, with other's values.
// Both environments must share a frame.
func (e *Environment) Diff(other *Environment) (Delta, error) {
	if e.Width != other.Width || e.Height != other.Height || len(e.Cells) != len(other.Cells) {
		return nil, fmt.Errorf("%w: cannot diff %dx%d against %dx%d", ErrGridSize, e.Width, e.Height, other.Width, other.Height)
	}
	d := make(Delta)
	for i, v := range other.Cells {
		if e.Cells[i] != v {
			d[Cell{X: i % e.Width, Y: i / e.Width}] = v
		}
	}
	return d, nil
}
