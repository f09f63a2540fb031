// Package diffpair defines the differential-pair post-processor contract
// (spec.md §4.4): given a routed pseudo-net path, produce the pair of child
// paths obeying diff-pair pitch and spacing rules. It runs after pathfinding
// of all non-child nets completes for the iteration and before routability
// metric computation, writing into the same path-result slots a direct
// pathfinder call would have used.
package diffpair

import "github.com/danboyne/acorn/internal/grid"

// Request bundles one pseudo net's routed path and the parameters its two
// children must honor.
type Request struct {
	PseudoPath []grid.Point
	// Pitch is the center-to-center distance between the two child traces,
	// in grid cells.
	Pitch float64
}

// Result holds the two child paths. Both share the pseudo path's pitch
// profile end-to-end: at every step their perpendicular offset from the
// pseudo centerline has the same magnitude (nominally Pitch/2;
// ReferenceExpander rounds it to whole cells).
type Result struct {
	ChildA []grid.Point
	ChildB []grid.Point
}

// Expander is the collaborator contract.
type Expander interface {
	Expand(req Request) (Result, error)
}
