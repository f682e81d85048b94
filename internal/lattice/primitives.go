package lattice

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/banshee-data/drops/internal/grid"
)

// NumThetaDirs is the number of discrete headings.
const NumThetaDirs = 16

// numIntervals is how many segments each primitive is sampled into.
const numIntervals = 10

const (
	maxPrimitivesFileSize = 1 << 20
	binWidth              = 2 * math.Pi / NumThetaDirs
)

var ErrPrimitives = errors.New("invalid motion primitives")

// headingSteps are the cell displacements that best approximate each of the
// 16 headings, counter-clockwise from +x.
var headingSteps = [NumThetaDirs][2]int{
	{1, 0}, {2, 1}, {1, 1}, {1, 2},
	{0, 1}, {-1, 2}, {-1, 1}, {-2, 1},
	{-1, 0}, {-2, -1}, {-1, -1}, {-1, -2},
	{0, -1}, {1, -2}, {1, -1}, {2, -1},
}

// Primitive is one motion the agent can execute from a start heading.
type Primitive struct {
	StartTheta int `json:"start_theta"`
	EndTheta   int `json:"end_theta"`
	DX         int `json:"dx"`
	DY         int `json:"dy"`
	CostMult   int `json:"cost_mult"`
}

type primitivesFile struct {
	Primitives []Primitive `json:"primitives"`
}

// DefaultPrimitives returns the unicycle set: forward, a gentle arc to either
// neighbouring heading, turning in place by one heading, and a slow reverse.
func DefaultPrimitives() []Primitive {
	prims := make([]Primitive, 0, NumThetaDirs*6)
	for k := 0; k < NumThetaDirs; k++ {
		left := (k + 1) % NumThetaDirs
		right := (k + NumThetaDirs - 1) % NumThetaDirs
		step := headingSteps[k]
		prims = append(prims,
			Primitive{StartTheta: k, EndTheta: k, DX: step[0], DY: step[1], CostMult: 1},
			Primitive{StartTheta: k, EndTheta: left, DX: headingSteps[left][0], DY: headingSteps[left][1], CostMult: 2},
			Primitive{StartTheta: k, EndTheta: right, DX: headingSteps[right][0], DY: headingSteps[right][1], CostMult: 2},
			Primitive{StartTheta: k, EndTheta: left, CostMult: 5},
			Primitive{StartTheta: k, EndTheta: right, CostMult: 5},
			Primitive{StartTheta: k, EndTheta: k, DX: -step[0], DY: -step[1], CostMult: 5},
		)
	}
	return prims
}

// LoadPrimitives reads a JSON primitives file of the form
// {"primitives":[{"start_theta":0,"end_theta":0,"dx":1,"dy":0,"cost_mult":1}]}.
func LoadPrimitives(path string) ([]Primitive, error) {
	if filepath.Ext(path) != ".json" {
		return nil, fmt.Errorf("%w: primitives file must have .json extension, got %s", ErrPrimitives, path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPrimitives, err)
	}
	if info.Size() > maxPrimitivesFileSize {
		return nil, fmt.Errorf("%w: primitives file too large: %d bytes", ErrPrimitives, info.Size())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPrimitives, err)
	}
	var f primitivesFile
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrPrimitives, path, err)
	}
	if err := validatePrimitives(f.Primitives); err != nil {
		return nil, err
	}
	return f.Primitives, nil
}

func validatePrimitives(prims []Primitive) error {
	if len(prims) == 0 {
		return fmt.Errorf("%w: no primitives", ErrPrimitives)
	}
	for i, p := range prims {
		if p.StartTheta < 0 || p.StartTheta >= NumThetaDirs || p.EndTheta < 0 || p.EndTheta >= NumThetaDirs {
			return fmt.Errorf("%w: primitive %d heading outside [0,%d)", ErrPrimitives, i, NumThetaDirs)
		}
		if p.CostMult < 1 {
			return fmt.Errorf("%w: primitive %d cost_mult must be at least 1", ErrPrimitives, i)
		}
		if p.DX == 0 && p.DY == 0 && p.StartTheta == p.EndTheta {
			return fmt.Errorf("%w: primitive %d does not move", ErrPrimitives, i)
		}
	}
	return nil
}

// action is a primitive expanded for a particular lattice: sampled points,
// swept cells and base cost.
type action struct {
	startTheta, endTheta int
	dx, dy               int
	baseCost             int // milliseconds times the cost multiplier
	points               []Waypoint
	swept                []grid.Cell
}

func newAction(p Primitive, consts grid.Constants) *action {
	a := &action{
		startTheta: p.StartTheta,
		endTheta:   p.EndTheta,
		dx:         p.DX,
		dy:         p.DY,
	}
	turn := angleDiff(BinHeading(p.StartTheta), BinHeading(p.EndTheta))
	seen := make(map[grid.Cell]bool)
	for i := 0; i <= numIntervals; i++ {
		f := float64(i) / numIntervals
		pt := Waypoint{
			X:     float64(p.DX) * f,
			Y:     float64(p.DY) * f,
			Theta: normalizeAngle(BinHeading(p.StartTheta) + turn*f),
		}
		a.points = append(a.points, pt)
		c := grid.Cell{X: int(math.Floor(pt.X + 0.5)), Y: int(math.Floor(pt.Y + 0.5))}
		if !seen[c] {
			seen[c] = true
			a.swept = append(a.swept, c)
		}
	}

	dist := math.Hypot(float64(p.DX), float64(p.DY)) * consts.CellSizeMeters / consts.NominalVelocity
	rot := math.Abs(turn) / (math.Pi / 4) * consts.TimeToTurn45Degs
	ms := int(math.Ceil(1000 * math.Max(dist, rot)))
	if ms < 1 {
		ms = 1
	}
	a.baseCost = ms * p.CostMult
	return a
}

// HeadingBin discretizes a heading in radians.
func HeadingBin(theta float64) int {
	return int(normalizeAngle(theta+binWidth/2)/binWidth) % NumThetaDirs
}

// BinHeading returns the heading in radians at the centre of a bin.
func BinHeading(bin int) float64 {
	return float64(((bin%NumThetaDirs)+NumThetaDirs)%NumThetaDirs) * binWidth
}

func normalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

// angleDiff is the signed shortest rotation from a to b.
func angleDiff(a, b float64) float64 {
	d := normalizeAngle(b - a)
	if d > math.Pi {
		d -= 2 * math.Pi
	}
	return d
}
