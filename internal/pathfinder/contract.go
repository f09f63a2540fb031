// Package pathfinder defines the contract boundary spec.md §4.2 calls a
// collaborator: given a grid, a net's terminals and design rules, and the
// current global congestion multipliers, produce a path minimizing a
// weighted sum of cell traversal cost and congestion cost.
//
// The pathfinder reads congestion but never mutates the grid; any mutation
// during a pathfinding pass is confined to the caller-supplied per-thread
// scratch. This is the concurrency contract the iteration controller relies
// on to call Pathfinder.FindPath from many goroutines over the same grid
// snapshot without locking.
package pathfinder

import (
	"context"

	"github.com/danboyne/acorn/internal/grid"
	"github.com/danboyne/acorn/internal/netlist"
)

// Request bundles everything one pathfinding task needs.
type Request struct {
	Grid    *grid.Grid
	Start   grid.Point
	End     grid.Point
	Rules   netlist.DesignRuleSubset
	Layer   int // net's design-rule subset layer selector, for multi-layer rule lookups

	// TraceCongestionMultiplier and ViaCongestionMultiplier are the current
	// global sensitivity-band multipliers (spec.md §4.8 step 2); the
	// pathfinder weighs a cell's congestion counter by the multiplier
	// matching its move type (trace vs via).
	TraceCongestionMultiplier float64
	ViaCongestionMultiplier   float64

	// BaseCellCost is the user-configured default per-cell traversal cost
	// (defaultCellCost), applied before congestion and zone multipliers.
	BaseCellCost float64

	// Scratch is per-thread working storage. It must not be shared across
	// concurrently running tasks.
	Scratch Scratch
}

// Result is what a pathfinding task returns.
type Result struct {
	// Path is the raw cell sequence; it may contain gaps from knight moves
	// or diagonal leaps. Contiguity reconstruction densifies it later.
	Path          []grid.Point
	Cost          float64
	ExploredCells int
}

// Scratch is an opaque per-thread workspace a Pathfinder implementation
// uses for its own bookkeeping (open sets, visited maps, and the like). The
// controller acquires one Scratch per worker goroutine and reuses it across
// tasks and iterations; implementations must support being Reset and reused
// this way without leaking state between calls.
type Scratch interface {
	Reset()
}

// Pathfinder is the collaborator contract. A zero-cost result for any net is
// a fatal error per spec.md §4.2 — implementations should return an error
// rather than a zero-cost Result so the caller can distinguish "no result"
// from "degenerate result."
type Pathfinder interface {
	FindPath(ctx context.Context, req Request) (Result, error)
	NewScratch(g *grid.Grid) Scratch
}
