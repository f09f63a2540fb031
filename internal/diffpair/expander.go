package diffpair

import (
	"errors"
	"math"

	"github.com/danboyne/acorn/internal/grid"
)

// ErrEmptyPath is returned when a pseudo path has fewer than two points —
// there is no direction of travel to offset a pair across.
var ErrEmptyPath = errors.New("diffpair: pseudo path too short to expand")

// ReferenceExpander is the reference implementation of Expander. At every
// step of the pseudo path it computes the in-plane direction of travel,
// rotates it 90 degrees to get the perpendicular axis, and places child A
// and child B at +Pitch/2 and -Pitch/2 along that perpendicular — the
// simplest geometry that keeps both children symmetric about the centerline
// at every point, end to end. Each offset is rounded to whole cells (see
// perpendicularOffset), so the children are exactly Pitch apart only where
// that rounding is exact; a Pitch below one cell puts both on the centerline.
//
// On via cells (a layer change with no in-plane movement) both children
// follow the same via column, preserving the layer transition for each
// child independently rather than attempting an offset via.
type ReferenceExpander struct{}

// Expand implements Expander.
func (ReferenceExpander) Expand(req Request) (Result, error) {
	if len(req.PseudoPath) < 2 {
		return Result{}, ErrEmptyPath
	}
	half := req.Pitch / 2
	childA := make([]grid.Point, len(req.PseudoPath))
	childB := make([]grid.Point, len(req.PseudoPath))

	for i, p := range req.PseudoPath {
		dx, dy := directionAt(req.PseudoPath, i)
		// Perpendicular to (dx, dy) in-plane is (-dy, dx).
		px, py := perpendicularOffset(-dy, dx, half)
		childA[i] = grid.Point{X: p.X + px, Y: p.Y + py, Z: p.Z}
		childB[i] = grid.Point{X: p.X - px, Y: p.Y - py, Z: p.Z}
	}
	return Result{ChildA: childA, ChildB: childB}, nil
}

// directionAt returns the unit in-plane travel direction at index i, looking
// ahead to i+1 (or behind to i-1 at the last point) so every point including
// the endpoints has a defined perpendicular.
func directionAt(path []grid.Point, i int) (dx, dy int) {
	var a, b grid.Point
	if i+1 < len(path) {
		a, b = path[i], path[i+1]
	} else {
		a, b = path[i-1], path[i]
	}
	dx = sign(b.X - a.X)
	dy = sign(b.Y - a.Y)
	if dx == 0 && dy == 0 {
		// Pure layer change (via): no in-plane direction, so no offset axis
		// either; both children collapse onto the same (x, y) via column.
		return 0, 0
	}
	return dx, dy
}

// perpendicularOffset scales a unit (or zero) perpendicular direction by
// half the pitch, rounding to the nearest grid cell. Sub-cell precision is
// not representable on a discrete grid; this rounding is the source of the
// "shares the pitch profile" invariant being exact in direction and nominal
// (rounded) in magnitude, consistent with every other discrete-cell
// measurement in this repository.
func perpendicularOffset(dx, dy int, half float64) (int, int) {
	norm := math.Hypot(float64(dx), float64(dy))
	if norm == 0 {
		return 0, 0
	}
	return int(math.Round(float64(dx) / norm * half)), int(math.Round(float64(dy) / norm * half))
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
