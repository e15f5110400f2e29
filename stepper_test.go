package gridpath

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepper_OneCellPerStep(t *testing.T) {
	grid := newUnitGrid(t, 5, 5, allTraversable)
	stepper := NewStepper(grid, cellPos(t, grid, 0, 0), cellPos(t, grid, 4, 4))

	assert.Equal(t, GridCoord{0, 0}, stepper.Start())
	assert.Equal(t, GridCoord{4, 4}, stepper.Target())
	assert.Equal(t, []GridCoord{{0, 0}}, stepper.Frontier())

	first, err := stepper.Step()
	require.NoError(t, err)
	assert.Equal(t, GridCoord{0, 0}, first.Current)
	assert.Equal(t, 1, first.StepIndex)
	assert.Equal(t, 1, first.ClosedCount)
	assert.Equal(t, 3, first.OpenCount)
	assert.False(t, first.Done)

	var last StepSnapshot
	for !stepper.Done() {
		last, err = stepper.Step()
		require.NoError(t, err)
	}
	assert.True(t, last.Found)
	assert.Equal(t, GridCoord{4, 4}, last.Current)
	assert.Equal(t, 5, last.StepIndex, "straight diagonal needs no side expansions")
	assert.Equal(t, 56, stepper.Result().TotalCost)

	again, err := stepper.Step()
	require.NoError(t, err)
	assert.True(t, again.Done)
	assert.Equal(t, last.StepIndex, again.StepIndex)
}

func TestOpenSet_SelectionOrder(t *testing.T) {
	grid := newUnitGrid(t, 3, 3, allTraversable)
	gen := grid.nextGeneration()
	open := newOpenSet(grid.cells)

	push := func(coord GridCoord, g, h int) {
		c, _ := grid.Cell(coord.X, coord.Y)
		c.reset(gen)
		c.gCost, c.hCost = g, h
		open.insert(grid.index(coord.X, coord.Y))
	}
	push(GridCoord{0, 0}, 30, 20) // f=50
	push(GridCoord{2, 2}, 20, 20) // f=40, h=20
	push(GridCoord{1, 0}, 30, 10) // f=40, h=10: wins the h tie-break
	push(GridCoord{0, 2}, 20, 20) // same key as (2,2), inserted later
	push(GridCoord{2, 0}, 10, 10) // f=20

	var order []GridCoord
	for open.Len() > 0 {
		order = append(order, grid.cells[open.popBest()].Coord())
	}
	assert.Equal(t, []GridCoord{{2, 0}, {1, 0}, {2, 2}, {0, 2}, {0, 0}}, order)
}

func TestOpenSet_UpdateKeepsInsertionRank(t *testing.T) {
	grid := newUnitGrid(t, 3, 3, allTraversable)
	gen := grid.nextGeneration()
	open := newOpenSet(grid.cells)

	a, _ := grid.Cell(0, 0)
	b, _ := grid.Cell(1, 1)
	for _, c := range []*Cell{a, b} {
		c.reset(gen)
		c.gCost, c.hCost = 40, 10
		open.insert(grid.index(c.gridX, c.gridY))
	}
	// Both improve to the same key; a was inserted first so it still wins.
	a.gCost = 20
	open.update(grid.index(a.gridX, a.gridY))
	b.gCost = 20
	open.update(grid.index(b.gridX, b.gridY))

	assert.Equal(t, GridCoord{0, 0}, grid.cells[open.popBest()].Coord())
	assert.Equal(t, GridCoord{1, 1}, grid.cells[open.popBest()].Coord())
}

func TestStepper_Superseded(t *testing.T) {
	grid := newUnitGrid(t, 5, 5, allTraversable)
	older := NewStepper(grid, cellPos(t, grid, 0, 0), cellPos(t, grid, 4, 4))
	newer := NewStepper(grid, cellPos(t, grid, 4, 0), cellPos(t, grid, 0, 4))

	_, err := older.Step()
	assert.True(t, errors.Is(err, ErrSearchSuperseded))
	assert.True(t, older.Done())
	assert.False(t, older.Result().Found)

	for !newer.Done() {
		_, err := newer.Step()
		require.NoError(t, err)
	}
	assert.True(t, newer.Result().Found)
}

func TestStepper_MatchesFindPath(t *testing.T) {
	grid := newUnitGrid(t, 8, 8, blockedCells(8, 8, GridCoord{3, 3}, GridCoord{3, 4}, GridCoord{4, 3}))
	from, to := cellPos(t, grid, 0, 7), cellPos(t, grid, 7, 0)

	stepper := NewStepper(grid, from, to)
	for !stepper.Done() {
		_, err := stepper.Step()
		require.NoError(t, err)
	}
	stepped := stepper.Result()

	direct, err := FindPath(context.Background(), grid, from, to)
	require.NoError(t, err)
	assert.Equal(t, direct, stepped)
}
