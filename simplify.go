package gridpath

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pdrpinto/gridpath/internal"
)

// Simplify collapses straight runs (including diagonal runs) of a path into
// turn points. path[0] is the start cell and is never emitted. A point is emitted
// where the direction of travel changes, and the final point is always emitted.
// Feeding the result back with the start prepended returns it unchanged.
func Simplify(path []GridCoord) []GridCoord {
	if len(path) < 2 {
		return nil
	}
	turns := make([]GridCoord, 0, 4)
	previous := direction(path[0], path[1])
	for i := 2; i < len(path); i++ {
		current := direction(path[i-1], path[i])
		if current != previous {
			turns = append(turns, path[i-1])
		}
		previous = current
	}
	return append(turns, path[len(path)-1])
}

// direction is the step from a to b reduced to its smallest integer multiple,
// so runs of any length along the same heading compare equal.
func direction(a, b GridCoord) GridCoord {
	dx, dy := b.X-a.X, b.Y-a.Y
	divisor := internal.GCD(dx, dy)
	if divisor == 0 {
		return GridCoord{}
	}
	return GridCoord{X: dx / divisor, Y: dy / divisor}
}

// waypointsFor maps simplified lattice coordinates to world positions.
func (g *Grid) waypointsFor(coords []GridCoord) []r3.Vec {
	waypoints := make([]r3.Vec, 0, len(coords))
	for _, coord := range coords {
		waypoints = append(waypoints, g.cells[g.index(coord.X, coord.Y)].worldPosition)
	}
	return waypoints
}
