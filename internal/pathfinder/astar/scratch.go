// Package astar is ACORN's reference implementation of the pathfinder
// contract (internal/pathfinder). It is deliberately simple: spec.md §1
// treats the single-net pathfinder as a collaborator, not the engineering
// focus of this repository. The open-set and score maps are grounded on the
// teacher's graph.GraphPool / graph.PooledResources pattern (sync.Pool
// backed reusable maps and slices), generalized from per-request residual
// graphs to per-worker A* scratch sized to a 3D cell grid.
package astar

import (
	"container/heap"

	"github.com/danboyne/acorn/internal/grid"
)

// cellKey linearizes a grid.Point for use as a map key, avoiding a struct
// key's larger hash cost in the hot inner loop.
func cellKey(p grid.Point, sizeX, sizeY int) int64 {
	return int64(p.Z)*int64(sizeY)*int64(sizeX) + int64(p.Y)*int64(sizeX) + int64(p.X)
}

// openItem is one entry in the A* open-set priority queue.
type openItem struct {
	point    grid.Point
	key      int64
	priority float64 // gScore + heuristic
	index    int     // heap.Interface bookkeeping
}

// openHeap is a min-heap of openItem ordered by priority, implementing
// container/heap.Interface. This is the scratch equivalent of the teacher's
// Queue type, adapted from FIFO BFS order to priority order for A*.
type openHeap []*openItem

func (h openHeap) Len() int            { return len(h) }
func (h openHeap) Less(i, j int) bool  { return h[i].priority < h[j].priority }
func (h openHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *openHeap) Push(x any) {
	item := x.(*openItem)
	item.index = len(*h)
	*h = append(*h, item)
}
func (h *openHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// Scratch is the astar.Finder's per-thread workspace: a reusable open-set
// heap plus cleared-between-calls score/parent/visited maps. One Scratch is
// acquired per worker goroutine, never per task, mirroring the teacher's
// pattern of pooling request-scoped resources instead of allocating fresh
// maps for every call.
type Scratch struct {
	open      openHeap
	inOpen    map[int64]*openItem
	gScore    map[int64]float64
	cameFrom  map[int64]grid.Point
	closed    map[int64]bool
	sizeX     int
	sizeY     int
}

// NewScratch allocates a Scratch sized for g. Capacity hints keep the common
// case (a path much smaller than the whole board) allocation-free after the
// first few iterations.
func NewScratch(g *grid.Grid) *Scratch {
	return &Scratch{
		inOpen:   make(map[int64]*openItem, 256),
		gScore:   make(map[int64]float64, 256),
		cameFrom: make(map[int64]grid.Point, 256),
		closed:   make(map[int64]bool, 256),
		sizeX:    g.SizeX,
		sizeY:    g.SizeY,
	}
}

// Reset clears all scratch state for reuse on the next FindPath call,
// keeping underlying map/slice capacity.
func (s *Scratch) Reset() {
	s.open = s.open[:0]
	clear(s.inOpen)
	clear(s.gScore)
	clear(s.cameFrom)
	clear(s.closed)
}

func (s *Scratch) key(p grid.Point) int64 {
	return cellKey(p, s.sizeX, s.sizeY)
}

func (s *Scratch) push(p grid.Point, priority float64) {
	item := &openItem{point: p, key: s.key(p), priority: priority}
	s.inOpen[item.key] = item
	heap.Push(&s.open, item)
}

func (s *Scratch) popMin() grid.Point {
	item := heap.Pop(&s.open).(*openItem)
	delete(s.inOpen, item.key)
	return item.point
}

func (s *Scratch) fix(key int64, priority float64) {
	item, ok := s.inOpen[key]
	if !ok {
		return
	}
	item.priority = priority
	heap.Fix(&s.open, item.index)
}
