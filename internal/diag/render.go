package diag

import (
	"strings"

	"github.com/pdrpinto/gridpath"
)

// Render draws the lattice as text, top row first: '#' blocked, '.' free,
// '*' on the last retraced path, and any caller marks on top of that.
func Render(lattice gridpath.Lattice, marks map[gridpath.GridCoord]byte) string {
	rows := make([][]byte, lattice.Height)
	for y := range rows {
		rows[y] = []byte(strings.Repeat(".", lattice.Width))
	}
	for _, c := range lattice.Cells {
		if !c.Traversable {
			rows[c.Coord.Y][c.Coord.X] = '#'
		}
	}
	for _, step := range lattice.LastPath {
		rows[step.Y][step.X] = '*'
	}
	for coord, mark := range marks {
		if coord.X >= 0 && coord.X < lattice.Width && coord.Y >= 0 && coord.Y < lattice.Height {
			rows[coord.Y][coord.X] = mark
		}
	}

	var b strings.Builder
	for y := lattice.Height - 1; y >= 0; y-- {
		b.Write(rows[y])
		b.WriteByte('\n')
	}
	return b.String()
}
