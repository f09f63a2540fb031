package controller

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danboyne/acorn/internal/apperror"
	"github.com/danboyne/acorn/internal/diffpair"
	"github.com/danboyne/acorn/internal/grid"
	"github.com/danboyne/acorn/internal/netlist"
	"github.com/danboyne/acorn/internal/pathfinder"
	"github.com/danboyne/acorn/internal/report"
)

// fakeScratch is a no-op pathfinder.Scratch for tests that don't exercise
// real A* search state.
type fakeScratch struct{}

func (fakeScratch) Reset() {}

// straightLinePathfinder returns a two-point sparse path straight from
// Start to End with cost equal to the Chebyshev distance between them, so
// contiguity.Reconstruct can bridge it deterministically.
type straightLinePathfinder struct{}

func (p straightLinePathfinder) FindPath(_ context.Context, req pathfinder.Request) (pathfinder.Result, error) {
	cost := chebyshev(req.Start, req.End)
	if cost == 0 {
		cost = 1
	}
	return pathfinder.Result{
		Path:          []grid.Point{req.Start, req.End},
		Cost:          cost,
		ExploredCells: 2,
	}, nil
}

func (straightLinePathfinder) NewScratch(*grid.Grid) pathfinder.Scratch {
	return fakeScratch{}
}

func chebyshev(a, b grid.Point) float64 {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	if dz < 0 {
		dz = -dz
	}
	max := dx
	if dy > max {
		max = dy
	}
	if dz > max {
		max = dz
	}
	return float64(max)
}

// offsetExpander produces two child paths, each the pseudo path shifted by
// +1/-1 in Y — not a physically exact diff-pair expansion, just enough
// structure for the controller to exercise the expansion step.
type offsetExpander struct{}

func (offsetExpander) Expand(req diffpair.Request) (diffpair.Result, error) {
	a := make([]grid.Point, len(req.PseudoPath))
	b := make([]grid.Point, len(req.PseudoPath))
	for i, p := range req.PseudoPath {
		a[i] = grid.Point{X: p.X, Y: p.Y + 1, Z: p.Z}
		b[i] = grid.Point{X: p.X, Y: p.Y - 1, Z: p.Z}
	}
	return diffpair.Result{ChildA: a, ChildB: b}, nil
}

// recordingSink captures every IterationReport written to it.
type recordingSink struct {
	reports []report.IterationReport
	closed  bool
}

func (s *recordingSink) WriteIteration(_ context.Context, r report.IterationReport) error {
	s.reports = append(s.reports, r)
	return nil
}

func (s *recordingSink) Close() error {
	s.closed = true
	return nil
}

func baseConfig(t *testing.T) Config {
	t.Helper()
	g := grid.New(20, 20, 1)
	nl := &netlist.Netlist{Nets: []netlist.Net{
		{ID: 0, Name: "net1", Start: grid.Point{X: 0, Y: 0, Z: 0}, End: grid.Point{X: 3, Y: 0, Z: 0}, Parent: netlist.NoNet, ChildA: netlist.NoNet, ChildB: netlist.NoNet},
	}}
	return Config{
		Grid:                     g,
		Netlist:                  nl,
		Rules:                    []netlist.DesignRuleSubset{{ID: 0, Layers: []netlist.LayerRule{{Layer: 0, TraceToTraceGap: 1, TraceToViaGap: 1}}}},
		Pitches:                  map[netlist.NetID]float64{},
		Pathfinder:               straightLinePathfinder{},
		DiffPairExpander:         offsetExpander{},
		Sink:                     &recordingSink{},
		MaxIterations:            50,
		PreEvaporationIterations: 0,
		DefaultEvapRate:          25,
		DefaultCellCost:          1,
		UserDRCFreeThreshold:     1,
		MaxRecordedDRCs:          10,
		NumThreads:               2,
		TraceSensitivityLevels:   []float64{1, 2, 3},
		ViaSensitivityLevels:     []float64{1, 2, 3},
	}
}

func TestRunSingleNetTerminatesAtIterationOne(t *testing.T) {
	cfg := baseConfig(t)
	sink := cfg.Sink.(*recordingSink)

	ctrl := New(cfg)
	result, err := ctrl.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Terminated)
	assert.Equal(t, 1, result.Iterations)
	assert.Equal(t, 1, result.BestIteration)
	require.Len(t, sink.reports, 1)
	assert.Equal(t, 0, sink.reports[0].TotalDRCCells)
	assert.True(t, sink.closed)
}

type zeroCostPathfinder struct{}

func (zeroCostPathfinder) FindPath(_ context.Context, req pathfinder.Request) (pathfinder.Result, error) {
	return pathfinder.Result{Path: []grid.Point{req.Start, req.End}, Cost: 0, ExploredCells: 2}, nil
}

func (zeroCostPathfinder) NewScratch(*grid.Grid) pathfinder.Scratch { return fakeScratch{} }

func TestRunPropagatesPathfinderZeroCostAsIterationFatal(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Pathfinder = zeroCostPathfinder{}
	sink := cfg.Sink.(*recordingSink)

	ctrl := New(cfg)
	_, err := ctrl.Run(context.Background())

	require.Error(t, err)
	assert.Equal(t, apperror.CodePathfinderZeroCost, apperror.CodeOf(err))
	assert.True(t, sink.closed)
}

// TestRunPersistsPerLayerDRCHistoryAcrossIterations guards against
// PerLayerDRCHistory collapsing to a 1-bit flag: two nets routed close
// enough to flag each other on every iteration must accumulate a
// multi-bit rolling history in the controller's own storage, not just a
// single shifted-in bit that resets every iteration.
func TestRunPersistsPerLayerDRCHistoryAcrossIterations(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Rules = []netlist.DesignRuleSubset{{ID: 0, Layers: []netlist.LayerRule{{Layer: 0, TraceToTraceGap: 5, TraceToViaGap: 5}}}}
	cfg.Netlist.Nets = []netlist.Net{
		{ID: 0, Name: "a", Start: grid.Point{X: 0, Y: 0, Z: 0}, End: grid.Point{X: 5, Y: 0, Z: 0}, Parent: netlist.NoNet, ChildA: netlist.NoNet, ChildB: netlist.NoNet},
		{ID: 1, Name: "b", Start: grid.Point{X: 0, Y: 1, Z: 0}, End: grid.Point{X: 5, Y: 1, Z: 0}, Parent: netlist.NoNet, ChildA: netlist.NoNet, ChildB: netlist.NoNet},
	}
	cfg.UserDRCFreeThreshold = 1000 // keep the run from terminating early

	ctrl := New(cfg)
	ctx := context.Background()

	_, err := ctrl.runIteration(ctx, 1)
	require.NoError(t, err)
	afterOne := ctrl.drcHistory[0][0]
	require.Equal(t, netlist.DRCBitmap(1), afterOne, "a single flagged iteration sets only bit 0")

	_, err = ctrl.runIteration(ctx, 2)
	require.NoError(t, err)
	afterTwo := ctrl.drcHistory[0][0]
	assert.Equal(t, netlist.DRCBitmap(0b11), afterTwo,
		"a second consecutive flagged iteration must build on the first, not reset it")
}

func TestRunDiffPairExpandsAndReconstructsChildren(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Netlist.Nets = []netlist.Net{
		{ID: 0, Name: "pair_p", Start: grid.Point{X: 0, Y: 5, Z: 0}, End: grid.Point{X: 10, Y: 5, Z: 0}, IsPseudoNet: true, ChildA: 1, ChildB: 2, Parent: netlist.NoNet},
		{ID: 1, Name: "pair_a", IsDiffPairChild: true, Parent: 0, ChildA: netlist.NoNet, ChildB: netlist.NoNet},
		{ID: 2, Name: "pair_b", IsDiffPairChild: true, Parent: 0, ChildA: netlist.NoNet, ChildB: netlist.NoNet},
	}
	cfg.Pitches = map[netlist.NetID]float64{0: 2}
	cfg.MaxIterations = 1
	sink := cfg.Sink.(*recordingSink)

	ctrl := New(cfg)
	_, err := ctrl.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, sink.reports, 1)
	// The pseudo net's own virtual centerline never contributes to the
	// reported totals; only its two children (physical copper) do.
	assert.Equal(t, 0, sink.reports[0].TotalDRCCells)
}
