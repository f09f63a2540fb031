package routability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danboyne/acorn/internal/grid"
	"github.com/danboyne/acorn/internal/netlist"
)

func subsetWithGap(gap float64) netlist.DesignRuleSubset {
	return netlist.DesignRuleSubset{
		ID: 0,
		Layers: []netlist.LayerRule{
			{Layer: 0, TraceToTraceGap: gap, TraceToViaGap: gap},
		},
	}
}

func TestDRCDetectorFlagsAdjacentNets(t *testing.T) {
	nl := &netlist.Netlist{Nets: []netlist.Net{
		{ID: 0, DesignRuleSubset: 0},
		{ID: 1, DesignRuleSubset: 0},
	}}
	d := DRCDetector{Subsets: []netlist.DesignRuleSubset{subsetWithGap(1)}}

	results := map[netlist.NetID]*netlist.PathResult{
		0: {Net: 0, Dense: []grid.Point{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}}},
		1: {Net: 1, Dense: []grid.Point{{X: 1, Y: 1, Z: 0}, {X: 2, Y: 1, Z: 0}}},
	}

	out := d.Detect(nl, results)
	require.Contains(t, out, netlist.NetID(0))
	assert.Greater(t, out[0].CellCount, 0, "net 0's path runs within one cell of net 1's")
	assert.True(t, out[0].FlaggedLayers[0])
}

func TestDRCDetectorNoViolationWhenFarApart(t *testing.T) {
	nl := &netlist.Netlist{Nets: []netlist.Net{
		{ID: 0, DesignRuleSubset: 0},
		{ID: 1, DesignRuleSubset: 0},
	}}
	d := DRCDetector{Subsets: []netlist.DesignRuleSubset{subsetWithGap(1)}}

	results := map[netlist.NetID]*netlist.PathResult{
		0: {Net: 0, Dense: []grid.Point{{X: 0, Y: 0, Z: 0}}},
		1: {Net: 1, Dense: []grid.Point{{X: 10, Y: 10, Z: 0}}},
	}

	out := d.Detect(nl, results)
	assert.Equal(t, 0, out[0].CellCount)
	assert.Equal(t, 0, out[1].CellCount)
}

func TestUpdateDRCHistoryShiftsPerTouchedLayer(t *testing.T) {
	r := &netlist.PathResult{Dense: []grid.Point{{X: 0, Y: 0, Z: 0}, {X: 0, Y: 0, Z: 1}}}
	d := NetDRCResult{FlaggedLayers: map[int]bool{1: true}}

	UpdateDRCHistory(r, d)

	assert.True(t, r.PerLayerDRCHistory[0].DRCFreeCount(), "layer 0 was not flagged, so its bit shifts in clear")
	assert.False(t, r.PerLayerDRCHistory[1].DRCFreeCount(), "layer 1 was flagged, so its bit shifts in set")
}

// TestUpdateDRCHistoryAccumulatesAcrossIterations guards against the bitmap
// collapsing to a 1-bit flag: a caller must carry PerLayerDRCHistory forward
// itself (netlist.PathResult is rebuilt fresh every iteration), and once it
// does, DRCBitmapWindow consecutive flagged iterations must make AllOnes
// true, not just the most recent one.
func TestUpdateDRCHistoryAccumulatesAcrossIterations(t *testing.T) {
	history := map[int]netlist.DRCBitmap{}
	flagged := NetDRCResult{FlaggedLayers: map[int]bool{0: true}}

	for i := 0; i < netlist.DRCBitmapWindow; i++ {
		r := &netlist.PathResult{
			Dense:              []grid.Point{{X: 0, Y: 0, Z: 0}},
			PerLayerDRCHistory: history,
		}
		UpdateDRCHistory(r, flagged)
		history = r.PerLayerDRCHistory
		if i < netlist.DRCBitmapWindow-1 {
			assert.False(t, history[0].AllOnes(), "iteration %d: window not yet full", i)
		}
	}

	assert.True(t, history[0].AllOnes(), "20 consecutive flagged iterations must fill the rolling window")
}
