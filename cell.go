package gridpath

import "gonum.org/v1/gonum/spatial/r3"

// GridCoord addresses a cell in the lattice.
type GridCoord struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

type cellState uint8

const (
	cellUnseen cellState = iota
	cellOpen
	cellClosed
)

const noParent = -1

// Cell is one lattice cell. Position, traversability and grid coordinates are
// fixed when the grid is built and only readable through accessors; the search
// fields are scratch owned by whichever search last touched the cell.
type Cell struct {
	traversable   bool
	worldPosition r3.Vec
	gridX         int
	gridY         int

	gCost     int
	hCost     int
	parent    int
	gen       uint64
	state     cellState
	heapIndex int
	seq       int
}

// Coord returns the cell's lattice coordinates.
func (c *Cell) Coord() GridCoord { return GridCoord{X: c.gridX, Y: c.gridY} }

// Traversable reports the predicate's verdict for the cell center.
func (c *Cell) Traversable() bool { return c.traversable }

// WorldPosition is the cell center.
func (c *Cell) WorldPosition() r3.Vec { return c.worldPosition }

// G is the cost from the start cell recorded by the most recent search.
func (c *Cell) G() int { return c.gCost }

// H is the heuristic estimate to the target recorded by the most recent search.
func (c *Cell) H() int { return c.hCost }

// F is G + H.
func (c *Cell) F() int { return c.gCost + c.hCost }

// reset makes the scratch fields belong to search generation gen.
// Cells from an older generation are stale and must not be trusted.
func (c *Cell) reset(gen uint64) {
	if c.gen == gen {
		return
	}
	c.gen = gen
	c.gCost = 0
	c.hCost = 0
	c.parent = noParent
	c.state = cellUnseen
	c.heapIndex = -1
	c.seq = 0
}
