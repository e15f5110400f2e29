package gridpath

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrInvalidGrid is returned for a non-positive world size or cell radius,
	// or a missing traversability predicate.
	ErrInvalidGrid = errors.New("invalid grid parameters")
	// ErrDegenerateGrid is returned when the world size rounds to zero cells on an axis.
	ErrDegenerateGrid = errors.New("degenerate grid")
)

// TraversableFunc reports whether an agent may occupy the given world point.
// It is queried once per cell center while the grid is built.
type TraversableFunc func(worldPoint r3.Vec) bool

// Grid is the cell lattice covering a rectangular area of the X/Z plane.
type Grid struct {
	origin       r3.Vec
	worldSize    r2.Vec
	cellRadius   float64
	cellDiameter float64
	width        int
	height       int
	cells        []Cell

	generation atomic.Uint64

	pathMu   sync.RWMutex
	lastPath []GridCoord
}

// NewGrid builds the lattice centred on origin. worldSize.X spans the world X
// axis and worldSize.Y spans the world Z axis.
func NewGrid(origin r3.Vec, worldSize r2.Vec, cellRadius float64, traversable TraversableFunc) (*Grid, error) {
	if traversable == nil {
		return nil, fmt.Errorf("%w: nil traversability predicate", ErrInvalidGrid)
	}
	if !(cellRadius > 0) || math.IsInf(cellRadius, 0) {
		return nil, fmt.Errorf("%w: cell radius %v", ErrInvalidGrid, cellRadius)
	}
	if !(worldSize.X > 0) || !(worldSize.Y > 0) || math.IsInf(worldSize.X, 0) || math.IsInf(worldSize.Y, 0) {
		return nil, fmt.Errorf("%w: world size %vx%v", ErrInvalidGrid, worldSize.X, worldSize.Y)
	}

	diameter := cellRadius * 2
	width := int(math.RoundToEven(worldSize.X / diameter))
	height := int(math.RoundToEven(worldSize.Y / diameter))
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("%w: %dx%d cells for world %vx%v and cell diameter %v",
			ErrDegenerateGrid, width, height, worldSize.X, worldSize.Y, diameter)
	}

	g := &Grid{
		origin:       origin,
		worldSize:    worldSize,
		cellRadius:   cellRadius,
		cellDiameter: diameter,
		width:        width,
		height:       height,
		cells:        make([]Cell, width*height),
	}

	bottomLeft := r3.Vec{
		X: origin.X - worldSize.X/2,
		Y: origin.Y,
		Z: origin.Z - worldSize.Y/2,
	}
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			center := r3.Add(bottomLeft, r3.Vec{
				X: float64(x)*diameter + cellRadius,
				Z: float64(y)*diameter + cellRadius,
			})
			g.cells[g.index(x, y)] = Cell{
				traversable:   traversable(center),
				worldPosition: center,
				gridX:         x,
				gridY:         y,
				parent:        noParent,
				heapIndex:     -1,
			}
		}
	}
	return g, nil
}

func (g *Grid) index(x, y int) int { return x*g.height + y }

func (g *Grid) inBounds(x, y int) bool {
	return x >= 0 && x < g.width && y >= 0 && y < g.height
}

// Width is the number of cells along world X.
func (g *Grid) Width() int { return g.width }

// Height is the number of cells along world Z.
func (g *Grid) Height() int { return g.height }

// CellRadius is half the cell edge length.
func (g *Grid) CellRadius() float64 { return g.cellRadius }

// CellDiameter is the cell edge length.
func (g *Grid) CellDiameter() float64 { return g.cellDiameter }

// WorldSize is the mapped extent; X spans world X and Y spans world Z.
func (g *Grid) WorldSize() r2.Vec { return g.worldSize }

// Origin is the world point at the center of the mapped area.
func (g *Grid) Origin() r3.Vec { return g.origin }

// Cell returns the cell at lattice coordinates (x, y).
func (g *Grid) Cell(x, y int) (*Cell, bool) {
	if !g.inBounds(x, y) {
		return nil, false
	}
	return &g.cells[g.index(x, y)], true
}

// CellFromWorldPoint returns the cell containing p. Points outside the mapped
// area snap to the nearest edge cell.
func (g *Grid) CellFromWorldPoint(p r3.Vec) *Cell {
	percentX := clamp01((p.X - g.origin.X + g.worldSize.X/2) / g.worldSize.X)
	percentY := clamp01((p.Z - g.origin.Z + g.worldSize.Y/2) / g.worldSize.Y)

	x := int(math.RoundToEven(float64(g.width-1) * percentX))
	y := int(math.RoundToEven(float64(g.height-1) * percentY))
	return &g.cells[g.index(x, y)]
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// Neighbors returns the up to 8 cells surrounding c in raster order
// (x offset outer, y offset inner, both ascending). Search tie-breaking depends
// on this order.
func (g *Grid) Neighbors(c *Cell) []*Cell {
	neighbors := make([]*Cell, 0, 8)
	for _, idx := range g.appendNeighbors(make([]int, 0, 8), c.gridX, c.gridY) {
		neighbors = append(neighbors, &g.cells[idx])
	}
	return neighbors
}

func (g *Grid) appendNeighbors(dst []int, cx, cy int) []int {
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			x, y := cx+dx, cy+dy
			if g.inBounds(x, y) {
				dst = append(dst, g.index(x, y))
			}
		}
	}
	return dst
}

// nextGeneration starts a new search generation, invalidating every cell's
// scratch state at once.
func (g *Grid) nextGeneration() uint64 { return g.generation.Add(1) }

func (g *Grid) currentGeneration() uint64 { return g.generation.Load() }

func (g *Grid) setLastPath(path []GridCoord) {
	g.pathMu.Lock()
	g.lastPath = append(g.lastPath[:0], path...)
	g.pathMu.Unlock()
}

// LastPath returns a copy of the most recently retraced path, start cell excluded.
func (g *Grid) LastPath() []GridCoord {
	g.pathMu.RLock()
	defer g.pathMu.RUnlock()
	if len(g.lastPath) == 0 {
		return nil
	}
	out := make([]GridCoord, len(g.lastPath))
	copy(out, g.lastPath)
	return out
}

// LatticeCell is the read-only view of one cell exposed for visualization.
type LatticeCell struct {
	Coord         GridCoord `json:"coord"`
	WorldPosition r3.Vec    `json:"world_position"`
	Traversable   bool      `json:"traversable"`
}

// Lattice is a diagnostics snapshot of the grid.
type Lattice struct {
	Width        int           `json:"width"`
	Height       int           `json:"height"`
	CellDiameter float64       `json:"cell_diameter"`
	Cells        []LatticeCell `json:"cells"`
	LastPath     []GridCoord   `json:"last_path,omitempty"`
}

// Snapshot copies the immutable part of the lattice and the last path. It is
// safe to call while a search is running.
func (g *Grid) Snapshot() Lattice {
	lattice := Lattice{
		Width:        g.width,
		Height:       g.height,
		CellDiameter: g.cellDiameter,
		Cells:        make([]LatticeCell, len(g.cells)),
		LastPath:     g.LastPath(),
	}
	for i := range g.cells {
		c := &g.cells[i]
		lattice.Cells[i] = LatticeCell{
			Coord:         c.Coord(),
			WorldPosition: c.worldPosition,
			Traversable:   c.traversable,
		}
	}
	return lattice
}
