package gridpath

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pdrpinto/gridpath/internal"
)

// StepSnapshot exposes the per-iteration state of the search
type StepSnapshot struct {
	Current     GridCoord
	OpenCount   int
	ClosedCount int
	Done        bool
	Found       bool
	StepIndex   int
}

// Stepper advances one A* search a single cell evaluation at a time, so a
// frame-stepped caller can interleave other work between steps.
//
// Only one Stepper may be active per Grid. Creating a new one supersedes the
// previous one, whose next Step reports ErrSearchSuperseded.
type Stepper struct {
	grid    *Grid
	gen     uint64
	start   int
	target  int
	options Options

	open      *openSet
	closed    int
	neighbors []int

	stepCount int
	done      bool
	found     bool
	result    Result
}

// NewStepper resolves start and target to cells and seeds the open set with the start cell.
func NewStepper(grid *Grid, startPoint, targetPoint r3.Vec, options ...Option) *Stepper {
	startCell := grid.CellFromWorldPoint(startPoint)
	targetCell := grid.CellFromWorldPoint(targetPoint)

	s := &Stepper{
		grid:      grid,
		gen:       grid.nextGeneration(),
		start:     grid.index(startCell.gridX, startCell.gridY),
		target:    grid.index(targetCell.gridX, targetCell.gridY),
		options:   applyOptions(options),
		open:      newOpenSet(grid.cells),
		neighbors: make([]int, 0, 8),
	}

	startCell.reset(s.gen)
	startCell.gCost = 0
	startCell.hCost = Distance(startCell.Coord(), targetCell.Coord())
	s.open.insert(s.start)
	return s
}

// Start is the cell the start point resolved to.
func (s *Stepper) Start() GridCoord { return s.grid.cells[s.start].Coord() }

// Target is the cell the target point resolved to.
func (s *Stepper) Target() GridCoord { return s.grid.cells[s.target].Coord() }

// Done reports whether the search has terminated.
func (s *Stepper) Done() bool { return s.done }

// Result is the search outcome. It is the zero Result until Done.
func (s *Stepper) Result() Result { return s.result }

// Frontier lists the cells currently in the open set.
func (s *Stepper) Frontier() []GridCoord { return s.open.coords() }

// Step evaluates the best open cell and relaxes its neighbors.
func (s *Stepper) Step() (StepSnapshot, error) {
	if s.done {
		return s.snapshot(GridCoord{}), nil
	}
	if s.grid.currentGeneration() != s.gen {
		s.done = true
		return s.snapshot(GridCoord{}), ErrSearchSuperseded
	}
	if s.open.Len() == 0 {
		s.finish(false)
		return s.snapshot(GridCoord{}), nil
	}

	s.stepCount++
	cells := s.grid.cells
	currentIdx := s.open.popBest()
	current := &cells[currentIdx]
	current.state = cellClosed
	s.closed++

	if currentIdx == s.target {
		s.finish(true)
		return s.snapshot(current.Coord()), nil
	}

	targetCoord := cells[s.target].Coord()
	s.neighbors = s.grid.appendNeighbors(s.neighbors[:0], current.gridX, current.gridY)
	for _, neighborIdx := range s.neighbors {
		neighbor := &cells[neighborIdx]
		if !neighbor.traversable {
			continue
		}
		neighbor.reset(s.gen)
		if neighbor.state == cellClosed {
			continue
		}

		tentativeG := current.gCost + Distance(current.Coord(), neighbor.Coord())
		if tentativeG < neighbor.gCost || neighbor.state != cellOpen {
			neighbor.gCost = tentativeG
			neighbor.hCost = Distance(neighbor.Coord(), targetCoord)
			neighbor.parent = currentIdx
			if neighbor.state != cellOpen {
				s.open.insert(neighborIdx)
			} else {
				s.open.update(neighborIdx)
			}
		}
	}

	return s.snapshot(current.Coord()), nil
}

func (s *Stepper) snapshot(current GridCoord) StepSnapshot {
	return StepSnapshot{
		Current:     current,
		OpenCount:   s.open.Len(),
		ClosedCount: s.closed,
		Done:        s.done,
		Found:       s.found,
		StepIndex:   s.stepCount,
	}
}

func (s *Stepper) finish(found bool) {
	s.done = true
	s.found = found
	s.result = Result{
		Waypoints:     []r3.Vec{},
		ExpandedCells: s.closed,
		Found:         found,
	}
	if !found {
		s.options.Logger.Debug("open set exhausted",
			"start", s.Start(), "target", s.Target(), "expanded", s.closed)
		return
	}

	cells := s.grid.cells
	chain := internal.ReconstructPath(func(idx int) (int, bool) {
		parent := cells[idx].parent
		return parent, parent != noParent
	}, s.target, s.start)

	coords := make([]GridCoord, len(chain))
	for i, idx := range chain {
		coords[i] = cells[idx].Coord()
	}

	s.result.Path = coords[1:]
	s.result.TotalCost = cells[s.target].gCost
	s.result.Waypoints = append(s.result.Waypoints, s.grid.waypointsFor(Simplify(coords))...)
	s.grid.setLastPath(s.result.Path)
}
