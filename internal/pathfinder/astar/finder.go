package astar

import (
	"context"
	"math"

	"github.com/danboyne/acorn/internal/grid"
	"github.com/danboyne/acorn/internal/pathfinder"
)

// Finder is the reference Pathfinder implementation: an A* search over the
// 8 in-plane neighbors on the current layer plus same-column layer
// transitions (vias); no move changes layer and in-plane position at once.
// Moves are scored by base cell cost, zone cost multipliers, and congestion
// multipliers.
type Finder struct{}

// NewScratch implements pathfinder.Pathfinder.
func (Finder) NewScratch(g *grid.Grid) pathfinder.Scratch {
	return NewScratch(g)
}

// neighborDeltas enumerates the moves to all 26 surrounding cells, generated
// once at package init; FindPath skips the ones that combine a layer change
// with in-plane movement.
var neighborDeltas = func() []grid.Point {
	deltas := make([]grid.Point, 0, 26)
	for dz := -1; dz <= 1; dz++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				deltas = append(deltas, grid.Point{X: dx, Y: dy, Z: dz})
			}
		}
	}
	return deltas
}()

func heuristic(a, b grid.Point) float64 {
	dx := math.Abs(float64(a.X - b.X))
	dy := math.Abs(float64(a.Y - b.Y))
	dz := math.Abs(float64(a.Z - b.Z))
	// Chebyshev distance in-plane (diagonal moves cost the same as
	// orthogonal ones here) plus a per-layer-change term; admissible for the
	// uniform step cost this Finder uses.
	planar := dx
	if dy > planar {
		planar = dy
	}
	return planar + dz
}

func stepCost(req pathfinder.Request, from, to grid.Point) float64 {
	cost := req.BaseCellCost * req.Grid.TraceCostMultiplier(to)
	cost += req.Grid.At(to).TraceCongestion * req.TraceCongestionMultiplier
	if grid.IsVia(from, to) {
		cost += req.BaseCellCost * req.Grid.ViaCostMultiplier(to)
		cost += req.Grid.At(to).ViaCongestion * req.ViaCongestionMultiplier
	}
	return cost
}

// FindPath implements pathfinder.Pathfinder.
func (f Finder) FindPath(ctx context.Context, req pathfinder.Request) (pathfinder.Result, error) {
	s, ok := req.Scratch.(*Scratch)
	if !ok || s == nil {
		s = NewScratch(req.Grid)
	}
	s.Reset()

	g := req.Grid
	startKey := s.key(req.Start)
	endKey := s.key(req.End)

	s.gScore[startKey] = 0
	s.cameFrom[startKey] = req.Start
	s.push(req.Start, heuristic(req.Start, req.End))

	explored := 0
	for s.open.Len() > 0 {
		select {
		case <-ctx.Done():
			return pathfinder.Result{}, ctx.Err()
		default:
		}

		current := s.popMin()
		currentKey := s.key(current)
		if s.closed[currentKey] {
			continue
		}
		s.closed[currentKey] = true
		explored++

		if currentKey == endKey {
			return pathfinder.Result{
				Path:          reconstruct(s, req.Start, current),
				Cost:          s.gScore[currentKey],
				ExploredCells: explored,
			}, nil
		}

		currentG := s.gScore[currentKey]
		for _, d := range neighborDeltas {
			next := grid.Point{X: current.X + d.X, Y: current.Y + d.Y, Z: current.Z + d.Z}
			if !g.InBounds(next) {
				continue
			}
			if g.At(next).Barrier {
				continue
			}
			// Disallow simultaneous X/Y and Z movement: a via is a discrete
			// layer change at one (x, y) location, not a diagonal jump
			// across layers.
			if next.Z != current.Z && (next.X != current.X || next.Y != current.Y) {
				continue
			}

			nextKey := s.key(next)
			if s.closed[nextKey] {
				continue
			}
			tentativeG := currentG + stepCost(req, current, next)
			existingG, seen := s.gScore[nextKey]
			if seen && tentativeG >= existingG {
				continue
			}
			s.gScore[nextKey] = tentativeG
			s.cameFrom[nextKey] = current
			priority := tentativeG + heuristic(next, req.End)
			if _, inOpen := s.inOpen[nextKey]; inOpen {
				s.fix(nextKey, priority)
			} else {
				s.push(next, priority)
			}
		}
	}

	return pathfinder.Result{}, errNoPath
}

func reconstruct(s *Scratch, start, end grid.Point) []grid.Point {
	path := []grid.Point{end}
	cur := end
	for {
		curKey := s.key(cur)
		prev := s.cameFrom[curKey]
		if prev == cur {
			break
		}
		path = append(path, prev)
		if prev == start {
			break
		}
		cur = prev
	}
	// reverse in place
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
