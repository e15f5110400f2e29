package gridpath

import "container/heap"

// openSet is the search frontier: a min-heap of cell indices ordered by f cost,
// then h cost, then insertion order. The last key makes the heap pick the same
// cell a front-to-back scan of an insertion-ordered list would pick.
type openSet struct {
	cells []Cell
	items []int
	seq   int
}

func newOpenSet(cells []Cell) *openSet {
	return &openSet{cells: cells, items: make([]int, 0, 64)}
}

func (queue *openSet) Len() int { return len(queue.items) }

func (queue *openSet) Less(i, j int) bool {
	a, b := &queue.cells[queue.items[i]], &queue.cells[queue.items[j]]
	if a.F() != b.F() {
		return a.F() < b.F()
	}
	if a.hCost != b.hCost {
		return a.hCost < b.hCost
	}
	return a.seq < b.seq
}

func (queue *openSet) Swap(i, j int) {
	queue.items[i], queue.items[j] = queue.items[j], queue.items[i]
	queue.cells[queue.items[i]].heapIndex = i
	queue.cells[queue.items[j]].heapIndex = j
}

func (queue *openSet) Push(x any) {
	idx := x.(int)
	queue.cells[idx].heapIndex = len(queue.items)
	queue.items = append(queue.items, idx)
}

func (queue *openSet) Pop() any {
	old := queue.items
	n := len(old)
	idx := old[n-1]
	queue.items = old[:n-1]
	queue.cells[idx].heapIndex = -1
	return idx
}

// insert adds a cell that is not yet in the frontier.
func (queue *openSet) insert(idx int) {
	queue.seq++
	c := &queue.cells[idx]
	c.seq = queue.seq
	c.state = cellOpen
	heap.Push(queue, idx)
}

// update restores heap order after a cell's costs changed in place.
func (queue *openSet) update(idx int) {
	heap.Fix(queue, queue.cells[idx].heapIndex)
}

// popBest removes and returns the cell with the lowest (f, h, insertion) key.
func (queue *openSet) popBest() int {
	return heap.Pop(queue).(int)
}

func (queue *openSet) coords() []GridCoord {
	out := make([]GridCoord, 0, len(queue.items))
	for _, idx := range queue.items {
		out = append(out, queue.cells[idx].Coord())
	}
	return out
}
