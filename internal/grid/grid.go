// Package grid implements ACORN's 3D cell array: the board-plane-by-layer
// substrate that every other component reads from or writes congestion into.
//
// Congestion lives on the cell, not on an edge between cells. That matches
// the A*-style cost function the pathfinder evaluates per cell and lets the
// inner loop read a single scalar per cell rather than resolving a
// direction-dependent edge weight.
package grid

import (
	"fmt"
	"runtime"
	"sync"
)

// Point addresses a single cell by its two board-plane coordinates and its
// interleaved routing/via layer index.
type Point struct {
	X, Y, Z int
}

// Cell holds everything the router needs to know about one grid location.
//
// DesignRuleSet/DesignRuleSubset select the per-layer trace width, via
// diameter, and spacing rules a net routed through this cell must obey.
// Congestion counters are non-negative floating-point accumulators; every
// other field is a small integer or flag.
type Cell struct {
	DesignRuleSet    int
	DesignRuleSubset int
	Barrier          bool
	Proximity        bool
	PinSwapZone      int // 0 = none
	TraceCostIdx     int
	ViaCostIdx       int
	TraceCongestion  float64
	ViaCongestion    float64
	NearTerminal     bool
}

// Grid is the 3D cell array. Z indexes both routing layers and the via
// layers interleaved between them.
type Grid struct {
	SizeX, SizeY, SizeZ int
	cells               []Cell

	// TraceCostMultipliers and ViaCostMultipliers are looked up by a cell's
	// TraceCostIdx/ViaCostIdx. Index 0 is always the identity multiplier
	// (1.0), matching "no cost zone painted here."
	TraceCostMultipliers []float64
	ViaCostMultipliers   []float64
}

// New allocates a grid of the given dimensions. All cells start non-barrier,
// zero congestion, design-rule index 0 — the "initialize" operation of
// spec.md §4.1.
func New(sizeX, sizeY, sizeZ int) *Grid {
	if sizeX <= 0 || sizeY <= 0 || sizeZ <= 0 {
		panic(fmt.Sprintf("grid: invalid dimensions %dx%dx%d", sizeX, sizeY, sizeZ))
	}
	return &Grid{
		SizeX:                sizeX,
		SizeY:                sizeY,
		SizeZ:                sizeZ,
		cells:                make([]Cell, sizeX*sizeY*sizeZ),
		TraceCostMultipliers: []float64{1.0},
		ViaCostMultipliers:   []float64{1.0},
	}
}

// InBounds reports whether p addresses a cell within the grid.
func (g *Grid) InBounds(p Point) bool {
	return p.X >= 0 && p.X < g.SizeX &&
		p.Y >= 0 && p.Y < g.SizeY &&
		p.Z >= 0 && p.Z < g.SizeZ
}

func (g *Grid) index(p Point) int {
	return (p.Z*g.SizeY+p.Y)*g.SizeX + p.X
}

// At returns a pointer to the cell at p. Callers outside the single-threaded
// controller phase must treat the returned cell as read-only; see the
// concurrency contract in spec.md §5.
func (g *Grid) At(p Point) *Cell {
	return &g.cells[g.index(p)]
}

// Walkable reports whether a path may traverse p: in bounds and not a
// barrier cell.
func (g *Grid) Walkable(p Point) bool {
	return g.InBounds(p) && !g.At(p).Barrier
}

// TraceCostMultiplier returns the effective trace-cost multiplier scalar at
// p, looked up from the cell's TraceCostIdx.
func (g *Grid) TraceCostMultiplier(p Point) float64 {
	idx := g.At(p).TraceCostIdx
	if idx < 0 || idx >= len(g.TraceCostMultipliers) {
		return 1.0
	}
	return g.TraceCostMultipliers[idx]
}

// ViaCostMultiplier returns the effective via-cost multiplier scalar at p.
func (g *Grid) ViaCostMultiplier(p Point) float64 {
	idx := g.At(p).ViaCostIdx
	if idx < 0 || idx >= len(g.ViaCostMultipliers) {
		return 1.0
	}
	return g.ViaCostMultipliers[idx]
}

// Evaporate multiplies every congestion counter by (100-evapRate)/100. The
// scan is fanned out per z-slice across workers goroutines, mirroring the
// controller's worker-pool sizing — evaporation is the one place outside
// pathfinding where per-slice parallelism pays for itself, since each slice
// touches disjoint memory and needs no synchronization.
func (g *Grid) Evaporate(evapRate float64, workers int) {
	factor := (100 - evapRate) / 100
	if factor < 0 {
		factor = 0
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > g.SizeZ {
		workers = g.SizeZ
	}
	if workers <= 1 {
		g.evaporateSlices(0, g.SizeZ, factor)
		return
	}

	var wg sync.WaitGroup
	chunk := (g.SizeZ + workers - 1) / workers
	for start := 0; start < g.SizeZ; start += chunk {
		end := start + chunk
		if end > g.SizeZ {
			end = g.SizeZ
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			g.evaporateSlices(start, end, factor)
		}(start, end)
	}
	wg.Wait()
}

func (g *Grid) evaporateSlices(zStart, zEnd int, factor float64) {
	for z := zStart; z < zEnd; z++ {
		base := z * g.SizeY * g.SizeX
		for i := base; i < base+g.SizeY*g.SizeX; i++ {
			g.cells[i].TraceCongestion *= factor
			g.cells[i].ViaCongestion *= factor
		}
	}
}

// IsVia reports whether two adjacent path points represent a layer change
// (a via), i.e. same X/Y, different Z.
func IsVia(a, b Point) bool {
	return a.X == b.X && a.Y == b.Y && a.Z != b.Z
}

// DepositPath adds congestion quanta along a routed path. Trace cells
// accumulate trace congestion scaled by the cell's trace-cost multiplier;
// cells where the path changes layer additionally accumulate via congestion
// scaled by the via-cost multiplier. Deposition only adds — evaporation is
// the only operation that reduces congestion.
func (g *Grid) DepositPath(path []Point, quantum float64) {
	for i, p := range path {
		c := g.At(p)
		c.TraceCongestion += quantum * g.TraceCostMultiplier(p)
		if i > 0 && IsVia(path[i-1], p) {
			c.ViaCongestion += quantum * g.ViaCostMultiplier(p)
		}
	}
}

// DepositPseudoViaNeighborhood adds trace congestion to the cells
// immediately surrounding a via on layers where pseudo-trace-congestion mode
// (intervention A) has been enabled for this (pseudo-net, layer) pair. This
// grounds spec.md §4.7 intervention A's effect and §4.1's "pseudo-via trace-
// congestion deposition."
func (g *Grid) DepositPseudoViaNeighborhood(via Point, quantum float64) {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			p := Point{X: via.X + dx, Y: via.Y + dy, Z: via.Z}
			if !g.InBounds(p) || g.At(p).Barrier {
				continue
			}
			g.At(p).TraceCongestion += quantum * g.TraceCostMultiplier(p)
		}
	}
}

// DepositTerminalSurround adds extra trace congestion on each terminal cell
// and on the in-bounds, non-barrier cells of its 3x3 in-plane neighborhood,
// used by the controller's per-iteration step 9 on iterations that deposit
// congestion.
func (g *Grid) DepositTerminalSurround(terminals []Point, quantum float64) {
	for _, t := range terminals {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				p := Point{X: t.X + dx, Y: t.Y + dy, Z: t.Z}
				if (dx != 0 || dy != 0) && (!g.InBounds(p) || g.At(p).Barrier) {
					continue
				}
				g.At(p).TraceCongestion += quantum * g.TraceCostMultiplier(p)
			}
		}
	}
}
