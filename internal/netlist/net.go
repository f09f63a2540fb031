// Package netlist holds the Net and per-iteration PathResult types, and the
// strict pseudo-net/diff-pair-child tree spec.md §3 describes.
package netlist

import "github.com/danboyne/acorn/internal/grid"

// NetID identifies a net within a Netlist. Pseudo nets and their children
// are stored by index into the same slice, not by pointer, since the
// pseudo/child relationship is a strict tree per spec.md §9.
type NetID int

// Net is one source/sink terminal pair to be routed.
type Net struct {
	ID                  NetID
	Name                string
	Start, End          grid.Point
	DesignRuleSubset    int
	IsDiffPairChild      bool
	IsPseudoNet         bool
	Parent              NetID // valid iff IsDiffPairChild; the pseudo net
	ChildA, ChildB      NetID // valid iff IsPseudoNet; -1 until assigned
	IsTerminalSwappable bool
}

// NoNet is the zero value for "no net here" in Parent/ChildA/ChildB fields.
const NoNet NetID = -1

// Netlist is the full set of nets for a run, indexable by NetID.
type Netlist struct {
	Nets []Net
}

// Get returns a pointer to the net with the given id.
func (nl *Netlist) Get(id NetID) *Net {
	return &nl.Nets[id]
}

// NonChildNets returns the ids of every net the pathfinder is invoked for
// directly: ordinary nets and pseudo nets, excluding diff-pair children
// (spec.md §3 invariant: "a diff-pair child net is never fed to the
// pathfinder directly").
func (nl *Netlist) NonChildNets() []NetID {
	ids := make([]NetID, 0, len(nl.Nets))
	for _, n := range nl.Nets {
		if !n.IsDiffPairChild {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

// DRCBitmapWindow is the width of the rolling per-layer DRC history. The
// constant is load-bearing: every plateau predicate looks at the last 20
// iterations (spec.md §4.5).
const DRCBitmapWindow = 20

const drcBitmapMask = (1 << DRCBitmapWindow) - 1

// DRCBitmap is a fixed-width rolling history of "had a DRC on this layer N
// iterations ago," bit 0 being the most recent iteration. Only the low
// DRCBitmapWindow bits are meaningful.
type DRCBitmap uint32

// Shift pushes hadDRC in as the new most-recent bit, discarding the oldest.
func (b DRCBitmap) Shift(hadDRC bool) DRCBitmap {
	next := b << 1
	if hadDRC {
		next |= 1
	}
	return DRCBitmap(uint32(next) & drcBitmapMask)
}

// AllOnes reports whether every one of the last DRCBitmapWindow iterations
// had a DRC on this layer.
func (b DRCBitmap) AllOnes() bool {
	return uint32(b)&drcBitmapMask == drcBitmapMask
}

// DRCFreeCount reports whether this iteration's DRC bit (bit 0) is clear.
func (b DRCBitmap) DRCFreeCount() bool {
	return uint32(b)&1 == 0
}

// PathResult is the per-net, per-iteration routing outcome.
type PathResult struct {
	Net           NetID
	Sparse        []grid.Point // raw pathfinder output, may skip cells
	Dense         []grid.Point // contiguity-reconstructed, cell-adjacent
	Cost          float64
	ExploredCells int
	Elapsed       float64 // seconds
	DRCCells      int
	// PerLayerDRCHistory tracks, for each layer this net's dense path
	// touches, the rolling 20-bit "had a DRC here" history.
	PerLayerDRCHistory map[int]DRCBitmap
}

// Length returns the number of cells in the dense (contiguous) path.
func (r PathResult) Length() int {
	return len(r.Dense)
}

// ViaCount returns the number of layer changes in the dense path.
func (r PathResult) ViaCount() int {
	n := 0
	for i := 1; i < len(r.Dense); i++ {
		if grid.IsVia(r.Dense[i-1], r.Dense[i]) {
			n++
		}
	}
	return n
}
