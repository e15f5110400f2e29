// Package terrain supplies traversability predicates for grid construction:
// obstacle footprints on the X/Z plane and ASCII layouts.
package terrain

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Predicate reports whether a world point is free.
type Predicate func(worldPoint r3.Vec) bool

// Circle is a round obstacle footprint. Center.X is world X, Center.Y is world Z.
type Circle struct {
	Center r2.Vec  `yaml:"center"`
	Radius float64 `yaml:"radius"`
}

// Box is an axis-aligned rectangular footprint on the X/Z plane.
type Box struct {
	Min r2.Vec `yaml:"min"`
	Max r2.Vec `yaml:"max"`
}

// Obstacles is a set of untraversable footprints.
type Obstacles struct {
	Circles []Circle `yaml:"circles"`
	Boxes   []Box    `yaml:"boxes"`
}

func ground(p r3.Vec) r2.Vec { return r2.Vec{X: p.X, Y: p.Z} }

// distance from p to the box, zero inside it.
func (b Box) distance(p r2.Vec) float64 {
	closest := r2.Vec{
		X: math.Max(b.Min.X, math.Min(p.X, b.Max.X)),
		Y: math.Max(b.Min.Y, math.Min(p.Y, b.Max.Y)),
	}
	return r2.Norm(r2.Sub(p, closest))
}

// Traversable returns a predicate that rejects points whose disc of the given
// clearance overlaps any obstacle. Pass the grid's cell radius as clearance to
// block every cell an obstacle touches.
func (o Obstacles) Traversable(clearance float64) Predicate {
	circles := append([]Circle(nil), o.Circles...)
	boxes := append([]Box(nil), o.Boxes...)
	return func(worldPoint r3.Vec) bool {
		p := ground(worldPoint)
		for _, c := range circles {
			if r2.Norm(r2.Sub(p, c.Center)) < c.Radius+clearance {
				return false
			}
		}
		for _, b := range boxes {
			if b.distance(p) < clearance {
				return false
			}
		}
		return true
	}
}

// Validate rejects negative radii and inverted boxes.
func (o Obstacles) Validate() error {
	for i, c := range o.Circles {
		if !(c.Radius >= 0) {
			return fmt.Errorf("circle %d: radius %v", i, c.Radius)
		}
	}
	for i, b := range o.Boxes {
		if b.Min.X > b.Max.X || b.Min.Y > b.Max.Y {
			return fmt.Errorf("box %d: min %v exceeds max %v", i, b.Min, b.Max)
		}
	}
	return nil
}

// All combines predicates; a point is free only if every predicate says so.
func All(predicates ...Predicate) Predicate {
	return func(worldPoint r3.Vec) bool {
		for _, predicate := range predicates {
			if predicate != nil && !predicate(worldPoint) {
				return false
			}
		}
		return true
	}
}

// ErrBadLayout is returned for ragged, empty or unrecognised ASCII layouts.
var ErrBadLayout = errors.New("bad layout")

const (
	layoutBlocked = '#'
	layoutFree    = '.'
)

// Layout is a parsed ASCII map. Row 0 of the text is the top edge (highest Z).
type Layout struct {
	Width   int
	Height  int
	blocked []bool
}

// ParseLayout reads rows of '.' (free) and '#' (blocked).
func ParseLayout(rows []string) (*Layout, error) {
	var lines []string
	for _, row := range rows {
		row = strings.TrimRight(row, " \t\r")
		if row != "" {
			lines = append(lines, row)
		}
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrBadLayout)
	}

	width := len(lines[0])
	layout := &Layout{Width: width, Height: len(lines), blocked: make([]bool, width*len(lines))}
	for row, line := range lines {
		if len(line) != width {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrBadLayout, row, len(line), width)
		}
		y := layout.Height - 1 - row
		for x, ch := range []byte(line) {
			switch ch {
			case layoutBlocked:
				layout.blocked[y*width+x] = true
			case layoutFree:
			default:
				return nil, fmt.Errorf("%w: unexpected %q at row %d column %d", ErrBadLayout, ch, row, x)
			}
		}
	}
	return layout, nil
}

// Blocked reports whether layout cell (x, y) is blocked; y grows towards +Z.
func (l *Layout) Blocked(x, y int) bool {
	if x < 0 || x >= l.Width || y < 0 || y >= l.Height {
		return true
	}
	return l.blocked[y*l.Width+x]
}

// Traversable maps the layout onto the world, one character per cell of the
// given diameter, centred on origin.
func (l *Layout) Traversable(origin r3.Vec, cellDiameter float64) Predicate {
	left := origin.X - float64(l.Width)*cellDiameter/2
	bottom := origin.Z - float64(l.Height)*cellDiameter/2
	return func(worldPoint r3.Vec) bool {
		x := int(math.Floor((worldPoint.X - left) / cellDiameter))
		y := int(math.Floor((worldPoint.Z - bottom) / cellDiameter))
		return !l.Blocked(x, y)
	}
}
