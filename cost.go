package gridpath

const (
	straightCost = 10
	diagonalCost = 14
)

// Distance is the octile movement cost between two cells: diagonal steps cost 14,
// straight steps cost 10. It is both the step cost between neighbors and the
// heuristic towards the target.
func Distance(a, b GridCoord) int {
	dx := abs(a.X - b.X)
	dy := abs(a.Y - b.Y)
	if dx > dy {
		return diagonalCost*dy + straightCost*(dx-dy)
	}
	return diagonalCost*dx + straightCost*(dy-dx)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
