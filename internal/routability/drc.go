package routability

import (
	"math"

	"github.com/danboyne/acorn/internal/grid"
	"github.com/danboyne/acorn/internal/netlist"
)

// occupant is one net's claim on a cell, with whether that claim is a via
// cell (a layer change) rather than a trace cell — trace-to-trace and
// trace-to-via gaps are different design-rule values.
type occupant struct {
	net   netlist.NetID
	isVia bool
}

// DRCDetector finds design-rule spacing violations between simultaneously
// routed nets. Walkability (barrier avoidance) is already guaranteed by the
// pathfinder contract, so the only violation this component can discover is
// two different nets' geometry coming closer together than their design
// rules allow on a shared layer.
//
// This treats a subset's gap values as a grid-cell radius directly — a
// modeling simplification the external geometry layer (which knows physical
// units per cell) is expected to have already reconciled, per spec.md §1's
// assignment of design-rule-zone painting to an external collaborator.
type DRCDetector struct {
	Subsets []netlist.DesignRuleSubset
}

func (d DRCDetector) subsetFor(id int) (netlist.DesignRuleSubset, bool) {
	for _, s := range d.Subsets {
		if s.ID == id {
			return s, true
		}
	}
	return netlist.DesignRuleSubset{}, false
}

// NetDRCResult is one net's DRC findings for a single iteration.
type NetDRCResult struct {
	CellCount     int
	FlaggedLayers map[int]bool
	// FlaggedCells lists each of this net's own path cells found too close to
	// a different net's geometry, for report.DRCDetail construction. Bounded
	// by the net's own path length, not by maxRecordedDRCs — the controller
	// truncates at report-assembly time.
	FlaggedCells []grid.Point
}

// Detect scans every net's dense path against every other net's occupied
// cells and returns, per net id, the count of that net's own path cells
// found too close to a different net's geometry this iteration (a pseudo
// net and its own diff-pair children are not checked against each other),
// along with which layers those flagged cells fell on (for UpdateDRCHistory).
func (d DRCDetector) Detect(nl *netlist.Netlist, results map[netlist.NetID]*netlist.PathResult) map[netlist.NetID]NetDRCResult {
	occupancy := make(map[grid.Point][]occupant)
	for id, r := range results {
		for i, p := range r.Dense {
			isVia := i > 0 && grid.IsVia(r.Dense[i-1], p)
			occupancy[p] = append(occupancy[p], occupant{net: id, isVia: isVia})
		}
	}

	out := make(map[netlist.NetID]NetDRCResult, len(results))
	for id, r := range results {
		net := nl.Get(id)
		subset, ok := d.subsetFor(net.DesignRuleSubset)
		if !ok {
			out[id] = NetDRCResult{FlaggedLayers: map[int]bool{}}
			continue
		}
		res := NetDRCResult{FlaggedLayers: map[int]bool{}}
		for i, p := range r.Dense {
			isVia := i > 0 && grid.IsVia(r.Dense[i-1], p)
			rule, ok := subset.Rule(p.Z)
			if !ok {
				continue
			}
			gap := rule.TraceToTraceGap
			if isVia {
				gap = rule.TraceToViaGap
			}
			radius := int(math.Ceil(gap))
			if radius < 1 {
				radius = 1
			}
			if d.hasForeignOccupantNearby(nl, p, radius, id, occupancy) {
				res.CellCount++
				res.FlaggedLayers[p.Z] = true
				res.FlaggedCells = append(res.FlaggedCells, p)
			}
		}
		out[id] = res
	}
	return out
}

func (d DRCDetector) hasForeignOccupantNearby(nl *netlist.Netlist, p grid.Point, radius int, self netlist.NetID, occupancy map[grid.Point][]occupant) bool {
	me := nl.Get(self)
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			q := grid.Point{X: p.X + dx, Y: p.Y + dy, Z: p.Z}
			for _, occ := range occupancy[q] {
				if occ.net == self {
					continue
				}
				// A pseudo net's virtual centerline runs between its own two
				// children by construction; that proximity is not a violation.
				other := nl.Get(occ.net)
				if (me.IsDiffPairChild && me.Parent == occ.net) || (other.IsDiffPairChild && other.Parent == self) {
					continue
				}
				return true
			}
		}
	}
	return false
}

// UpdateDRCHistory shifts this iteration's had-a-DRC-on-this-layer bit into
// the rolling per-layer bitmap for every layer the net's dense path touches
// (spec.md §4.5). A layer the path touches but that was not flagged shifts
// in a zero bit, same as any other DRC-free layer for this net.
func UpdateDRCHistory(r *netlist.PathResult, d NetDRCResult) {
	if r.PerLayerDRCHistory == nil {
		r.PerLayerDRCHistory = make(map[int]netlist.DRCBitmap)
	}
	touched := make(map[int]bool)
	for _, p := range r.Dense {
		touched[p.Z] = true
	}
	for layer := range touched {
		r.PerLayerDRCHistory[layer] = r.PerLayerDRCHistory[layer].Shift(d.FlaggedLayers[layer])
	}
}
