package gridpath

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func cellPos(t *testing.T, grid *Grid, x, y int) r3.Vec {
	t.Helper()
	c, ok := grid.Cell(x, y)
	require.True(t, ok, "cell (%d,%d) out of bounds", x, y)
	return c.WorldPosition()
}

// assertWalkable checks that path is a chain of neighbor moves from start over
// traversable cells whose step costs add up to cost.
func assertWalkable(t *testing.T, grid *Grid, start GridCoord, path []GridCoord, cost int) {
	t.Helper()
	previous := start
	sum := 0
	for _, step := range path {
		dx, dy := abs(step.X-previous.X), abs(step.Y-previous.Y)
		require.True(t, dx <= 1 && dy <= 1 && dx+dy > 0, "non-neighbor step %v -> %v", previous, step)
		c, _ := grid.Cell(step.X, step.Y)
		require.True(t, c.Traversable(), "path crosses blocked cell %v", step)
		sum += Distance(previous, step)
		previous = step
	}
	assert.Equal(t, cost, sum)
}

func TestFindPath_OpenDiagonal(t *testing.T) {
	grid := newUnitGrid(t, 5, 5, allTraversable)

	result, err := FindPath(context.Background(), grid, cellPos(t, grid, 0, 0), cellPos(t, grid, 4, 4))
	require.NoError(t, err)

	assert.True(t, result.Found)
	assert.Equal(t, 56, result.TotalCost)
	assert.Equal(t, []GridCoord{{1, 1}, {2, 2}, {3, 3}, {4, 4}}, result.Path)
	assert.Equal(t, []r3.Vec{cellPos(t, grid, 4, 4)}, result.Waypoints)
	assert.Equal(t, result.Path, grid.LastPath())
}

func TestFindPath_DetourAroundBlockedCell(t *testing.T) {
	grid := newUnitGrid(t, 5, 5, blockedCells(5, 5, GridCoord{2, 2}))

	result, err := FindPath(context.Background(), grid, cellPos(t, grid, 0, 0), cellPos(t, grid, 4, 4))
	require.NoError(t, err)

	assert.True(t, result.Found)
	assert.Equal(t, 62, result.TotalCost)
	assert.NotContains(t, result.Path, GridCoord{2, 2})
	assertWalkable(t, grid, GridCoord{0, 0}, result.Path, result.TotalCost)

	require.GreaterOrEqual(t, len(result.Waypoints), 2, "expected a turn before the target")
	assert.Equal(t, cellPos(t, grid, 4, 4), result.Waypoints[len(result.Waypoints)-1])
}

func TestFindPath_WallBlocksEverything(t *testing.T) {
	wall := []GridCoord{{2, 0}, {2, 1}, {2, 2}, {2, 3}, {2, 4}}
	grid := newUnitGrid(t, 5, 5, blockedCells(5, 5, wall...))

	result, err := FindPath(context.Background(), grid, cellPos(t, grid, 0, 2), cellPos(t, grid, 4, 2))
	assert.True(t, errors.Is(err, ErrNoPath))
	assert.False(t, result.Found)
	assert.NotNil(t, result.Waypoints)
	assert.Empty(t, result.Waypoints)
	assert.Empty(t, result.Path)
	assert.Equal(t, 10, result.ExpandedCells, "every cell left of the wall is evaluated once")
}

func TestFindPath_WallWithGap(t *testing.T) {
	wall := []GridCoord{{2, 0}, {2, 1}, {2, 2}, {2, 3}}
	grid := newUnitGrid(t, 5, 5, blockedCells(5, 5, wall...))

	result, err := FindPath(context.Background(), grid, cellPos(t, grid, 0, 0), cellPos(t, grid, 4, 0))
	require.NoError(t, err)
	assert.Contains(t, result.Path, GridCoord{2, 4})
	assertWalkable(t, grid, GridCoord{0, 0}, result.Path, result.TotalCost)
}

func TestFindPath_SameCell(t *testing.T) {
	grid := newUnitGrid(t, 5, 5, allTraversable)
	p := cellPos(t, grid, 3, 1)

	result, err := FindPath(context.Background(), grid, p, r3.Add(p, r3.Vec{X: 0.1, Z: -0.1}))
	require.NoError(t, err)
	assert.True(t, result.Found)
	assert.Empty(t, result.Waypoints)
	assert.Empty(t, result.Path)
	assert.Equal(t, 0, result.TotalCost)
	assert.Equal(t, 1, result.ExpandedCells)
}

func TestFindPath_SameCellEvenIfBlocked(t *testing.T) {
	grid := newUnitGrid(t, 3, 3, blockedCells(3, 3, GridCoord{1, 1}))
	p := cellPos(t, grid, 1, 1)

	result, err := FindPath(context.Background(), grid, p, p)
	require.NoError(t, err)
	assert.True(t, result.Found)
}

func TestFindPath_BlockedTargetFails(t *testing.T) {
	grid := newUnitGrid(t, 4, 4, blockedCells(4, 4, GridCoord{3, 3}))

	_, err := FindPath(context.Background(), grid, cellPos(t, grid, 0, 0), cellPos(t, grid, 3, 3))
	assert.True(t, errors.Is(err, ErrNoPath))
}

func TestFindPath_BlockedStartStillSearches(t *testing.T) {
	grid := newUnitGrid(t, 4, 1, blockedCells(4, 1, GridCoord{0, 0}))

	result, err := FindPath(context.Background(), grid, cellPos(t, grid, 0, 0), cellPos(t, grid, 3, 0))
	require.NoError(t, err)
	assert.Equal(t, 30, result.TotalCost)
}

func TestFindPath_AdjacentStraightStep(t *testing.T) {
	grid := newUnitGrid(t, 5, 5, allTraversable)

	result, err := FindPath(context.Background(), grid, cellPos(t, grid, 1, 1), cellPos(t, grid, 2, 1))
	require.NoError(t, err)
	assert.Equal(t, 10, result.TotalCost)
	assert.Equal(t, []r3.Vec{cellPos(t, grid, 2, 1)}, result.Waypoints)
}

func TestFindPath_OutOfBoundsTargetSnaps(t *testing.T) {
	grid := newUnitGrid(t, 5, 5, allTraversable)

	result, err := FindPath(context.Background(), grid, cellPos(t, grid, 0, 0), r3.Vec{X: 50, Z: -50})
	require.NoError(t, err)
	assert.Equal(t, GridCoord{4, 0}, result.Path[len(result.Path)-1])
	assert.Equal(t, 40, result.TotalCost)
}

func TestFindPath_ContextCancelled(t *testing.T) {
	grid := newUnitGrid(t, 5, 5, allTraversable)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := FindPath(ctx, grid, cellPos(t, grid, 0, 0), cellPos(t, grid, 4, 4))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, result.Found)
}

func TestFindPath_TurnWaypoints(t *testing.T) {
	// Corridor forcing a right-angle turn:
	//   y=2  . . .
	//   y=1  # # .
	//   y=0  . . .
	grid := newUnitGrid(t, 3, 3, blockedCells(3, 3, GridCoord{0, 1}, GridCoord{1, 1}))

	result, err := FindPath(context.Background(), grid, cellPos(t, grid, 0, 0), cellPos(t, grid, 0, 2))
	require.NoError(t, err)
	assertWalkable(t, grid, GridCoord{0, 0}, result.Path, result.TotalCost)
	assert.Equal(t, 48, result.TotalCost)
	assert.Equal(t, cellPos(t, grid, 0, 2), result.Waypoints[len(result.Waypoints)-1])
	assert.Len(t, result.Waypoints, len(Simplify(append([]GridCoord{{0, 0}}, result.Path...))))
}

// referenceCost is a plain Dijkstra over the same move rules.
func referenceCost(grid *Grid, start, target GridCoord) (int, bool) {
	const inf = int(^uint(0) >> 1)
	dist := map[GridCoord]int{start: 0}
	done := map[GridCoord]bool{}
	for {
		best, bestCost := GridCoord{}, inf
		for c, d := range dist {
			if !done[c] && (d < bestCost || (d == bestCost && (c.X < best.X || (c.X == best.X && c.Y < best.Y)))) {
				best, bestCost = c, d
			}
		}
		if bestCost == inf {
			return 0, false
		}
		if best == target {
			return bestCost, true
		}
		done[best] = true
		cell, _ := grid.Cell(best.X, best.Y)
		for _, n := range grid.Neighbors(cell) {
			if !n.Traversable() || done[n.Coord()] {
				continue
			}
			nd := bestCost + Distance(best, n.Coord())
			if old, ok := dist[n.Coord()]; !ok || nd < old {
				dist[n.Coord()] = nd
			}
		}
	}
}

func randomGrid(t *testing.T, rng *rand.Rand, width, height int, density float64) *Grid {
	t.Helper()
	var blocked []GridCoord
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			if rng.Float64() < density {
				blocked = append(blocked, GridCoord{x, y})
			}
		}
	}
	return newUnitGrid(t, width, height, blockedCells(width, height, blocked...))
}

func TestFindPath_MatchesReferenceCost(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 40; i++ {
		grid := randomGrid(t, rng, 12, 9, 0.3)
		start := GridCoord{rng.Intn(12), rng.Intn(9)}
		target := GridCoord{rng.Intn(12), rng.Intn(9)}

		want, reachable := referenceCost(grid, start, target)
		result, err := FindPath(context.Background(), grid, cellPos(t, grid, start.X, start.Y), cellPos(t, grid, target.X, target.Y))
		if !reachable {
			assert.True(t, errors.Is(err, ErrNoPath), "case %d: expected no path %v -> %v", i, start, target)
			continue
		}
		require.NoError(t, err, "case %d", i)
		assert.Equal(t, want, result.TotalCost, "case %d: %v -> %v", i, start, target)
		assertWalkable(t, grid, start, result.Path, result.TotalCost)
	}
}

func TestFindPath_StaleScratchDoesNotLeak(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 20; i++ {
		seed := rng.Int63()
		reused := randomGrid(t, rand.New(rand.NewSource(seed)), 10, 10, 0.25)
		fresh := randomGrid(t, rand.New(rand.NewSource(seed)), 10, 10, 0.25)

		a := cellPos(t, reused, rng.Intn(10), rng.Intn(10))
		b := cellPos(t, reused, rng.Intn(10), rng.Intn(10))
		c := cellPos(t, reused, rng.Intn(10), rng.Intn(10))

		_, _ = FindPath(context.Background(), reused, a, b)
		got, gotErr := FindPath(context.Background(), reused, b, c)
		want, wantErr := FindPath(context.Background(), fresh, b, c)

		assert.Equal(t, wantErr, gotErr)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("case %d: reused grid result mismatch (-fresh +reused):\n%s", i, diff)
		}
	}
}

func TestDistance(t *testing.T) {
	tests := []struct {
		a, b GridCoord
		want int
	}{
		{GridCoord{0, 0}, GridCoord{0, 0}, 0},
		{GridCoord{0, 0}, GridCoord{1, 0}, 10},
		{GridCoord{0, 0}, GridCoord{1, 1}, 14},
		{GridCoord{0, 0}, GridCoord{4, 4}, 56},
		{GridCoord{0, 0}, GridCoord{5, 2}, 58},
		{GridCoord{3, 7}, GridCoord{1, 0}, 78},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Distance(tt.a, tt.b), "%v -> %v", tt.a, tt.b)
	}
}

func TestDistance_Symmetric(t *testing.T) {
	for ax := -3; ax <= 3; ax++ {
		for ay := -3; ay <= 3; ay++ {
			for bx := -3; bx <= 3; bx++ {
				for by := -3; by <= 3; by++ {
					a, b := GridCoord{ax, ay}, GridCoord{bx, by}
					require.Equal(t, Distance(a, b), Distance(b, a), "%v %v", a, b)
				}
			}
		}
	}
}
