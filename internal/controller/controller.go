// Package controller implements ACORN's iteration controller: the
// fork-join loop spec.md §4.8 describes, driving the pathfinder, the
// diff-pair expander, contiguity reconstruction, and the routability and
// intervention packages through one routing run from first iteration to
// termination.
//
// The controller owns the grid and the netlist's mutable fields (terminal
// swaps) and is the only thing that mutates either between iterations; the
// worker pool only ever reads the grid during its join-barrier-bounded
// parallel region (spec.md §5).
package controller

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"time"

	"github.com/danboyne/acorn/internal/apperror"
	"github.com/danboyne/acorn/internal/contiguity"
	"github.com/danboyne/acorn/internal/diffpair"
	"github.com/danboyne/acorn/internal/grid"
	"github.com/danboyne/acorn/internal/intervention"
	"github.com/danboyne/acorn/internal/netlist"
	"github.com/danboyne/acorn/internal/obsmetrics"
	"github.com/danboyne/acorn/internal/pathfinder"
	"github.com/danboyne/acorn/internal/plateau"
	"github.com/danboyne/acorn/internal/report"
	"github.com/danboyne/acorn/internal/routability"
)

// depositQuantum is the congestion unit deposited per routed pass. The
// source's deposit-then-evaporate cycle only cares about the quantum and
// the evaporation rate in relation to each other, not its absolute scale,
// so one unit per pass keeps the arithmetic in CongestionMultiplier (which
// already folds in defaultCellCost and evapRate) the only place the cost
// scale actually lives.
const depositQuantum = 1.0

// plateauCooldown is how many iterations past the DRC-free threshold first
// being met the controller keeps running before the termination predicate's
// elapsed-iterations leg fires, even with no plateau and more than one net,
// per spec.md §4.8.
const plateauCooldown = 20

// Config bundles everything one controller run needs: the scenario (grid,
// netlist, design rules), the pluggable collaborators (pathfinder,
// diff-pair expander, report sink), and the engine knobs spec.md §6
// assigns to the input file or the ambient configuration layer.
type Config struct {
	Grid    *grid.Grid
	Netlist *netlist.Netlist
	Rules   []netlist.DesignRuleSubset

	// Pitches carries each pseudo net's diff-pair pitch, keyed by pseudo net
	// ID (see boardfile.Scenario.Pitches).
	Pitches map[netlist.NetID]float64

	Pathfinder       pathfinder.Pathfinder
	DiffPairExpander diffpair.Expander
	Sink             report.Sink
	Metrics          *obsmetrics.Metrics // nil disables metrics recording

	MaxIterations            int
	PreEvaporationIterations int
	DefaultEvapRate          float64
	DefaultCellCost          float64
	UserDRCFreeThreshold     int
	MaxRecordedDRCs          int

	// NumThreads sizes the worker pool; <= 0 means one per logical CPU.
	NumThreads int

	TraceSensitivityLevels []float64
	ViaSensitivityLevels   []float64
}

// RunResult summarizes how a controller run ended.
type RunResult struct {
	Iterations    int
	BestIteration int
	// Terminated is true when the run stopped because the DRC-free
	// threshold's termination predicate was satisfied, false when it simply
	// exhausted the iteration cap (spec.md §7's "terminal: iteration cap
	// reached without meeting the DRC-free threshold" soft-failure case).
	Terminated bool
}

// Controller runs one routing job end to end.
type Controller struct {
	cfg       Config
	nl        *netlist.Netlist
	rulesByID map[int]netlist.DesignRuleSubset
	state     *routability.State
	detector  routability.DRCDetector
	pool      *workerPool
	numThreads int

	numNets   int
	threshold int

	order   []netlist.NetID
	elapsed map[netlist.NetID]float64

	pseudoTraceEnabled map[intervention.PseudoPair]bool

	// drcHistory persists each net's rolling per-layer DRC bitmap across
	// iterations, since netlist.PathResult itself is rebuilt fresh every
	// iteration (spec.md §4.5's 20-bit rolling window only means something if
	// the bits survive between calls to UpdateDRCHistory).
	drcHistory map[netlist.NetID]map[int]netlist.DRCBitmap

	costMultipliersConfigured bool
	savedTraceMultipliers     []float64
	savedViaMultipliers       []float64
}

// New builds a Controller ready to Run. It does not mutate cfg.Grid.
func New(cfg Config) *Controller {
	numThreads := cfg.NumThreads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	rulesByID := make(map[int]netlist.DesignRuleSubset, len(cfg.Rules))
	for _, r := range cfg.Rules {
		rulesByID[r.ID] = r
	}

	order := append([]netlist.NetID(nil), cfg.Netlist.NonChildNets()...)

	return &Controller{
		cfg:        cfg,
		nl:         cfg.Netlist,
		rulesByID:  rulesByID,
		state:      routability.NewState(cfg.TraceSensitivityLevels, cfg.ViaSensitivityLevels),
		detector:   routability.DRCDetector{Subsets: cfg.Rules},
		pool:       newWorkerPool(cfg.Pathfinder, cfg.Grid, numThreads),
		numThreads: numThreads,

		numNets:   len(order),
		threshold: routability.DRCFreeThreshold(cfg.UserDRCFreeThreshold, len(order)),

		order:   order,
		elapsed: make(map[netlist.NetID]float64, len(order)),

		pseudoTraceEnabled: make(map[intervention.PseudoPair]bool),
		drcHistory:         make(map[netlist.NetID]map[int]netlist.DRCBitmap),

		costMultipliersConfigured: len(cfg.Grid.TraceCostMultipliers) > 1 || len(cfg.Grid.ViaCostMultipliers) > 1,
		savedTraceMultipliers:     append([]float64(nil), cfg.Grid.TraceCostMultipliers...),
		savedViaMultipliers:       append([]float64(nil), cfg.Grid.ViaCostMultipliers...),
	}
}

// Run drives the controller loop to completion: either the iteration cap or
// the DRC-free termination predicate, whichever comes first. It always
// closes the configured Sink exactly once before returning, including on
// error.
func (c *Controller) Run(ctx context.Context) (RunResult, error) {
	if c.cfg.MaxIterations <= 0 {
		// spec.md §8: maxIterations == 0 is pre-routing only. Nothing in the
		// grid or netlist may be touched, so there is nothing further to do.
		_ = c.cfg.Sink.Close()
		return RunResult{}, nil
	}

	var result RunResult
	for iteration := 1; iteration <= c.cfg.MaxIterations; iteration++ {
		terminated, err := c.runIteration(ctx, iteration)
		result.Iterations = iteration
		result.BestIteration = c.state.BestIteration
		if err != nil {
			_ = c.cfg.Sink.Close()
			return result, err
		}
		if terminated {
			result.Terminated = true
			break
		}
	}

	if err := c.cfg.Sink.Close(); err != nil {
		return result, err
	}
	return result, nil
}

// runIteration executes steps 1-14 of spec.md §4.8 for one iteration,
// returning whether the termination predicate was satisfied.
func (c *Controller) runIteration(ctx context.Context, iteration int) (bool, error) {
	start := time.Now()

	l := routability.SensitivityBreakpoint(c.numNets)
	traceMult := routability.CongestionMultiplier(iteration, l, c.state.TraceSensitivity.CurrentBand().Level, c.cfg.DefaultCellCost, c.cfg.DefaultEvapRate)
	viaMult := routability.CongestionMultiplier(iteration, l, c.state.ViaSensitivity.CurrentBand().Level, c.cfg.DefaultCellCost, c.cfg.DefaultEvapRate)

	if iteration > c.cfg.PreEvaporationIterations {
		c.cfg.Grid.Evaporate(c.cfg.DefaultEvapRate, c.numThreads)
	}

	depositCongestion := true
	if iteration == 1 && c.costMultipliersConfigured {
		depositCongestion = false
		c.cfg.Grid.TraceCostMultipliers = []float64{1.0}
		c.cfg.Grid.ViaCostMultipliers = []float64{1.0}
	}

	tasks := make([]pathfindTask, len(c.order))
	for i, id := range c.order {
		net := c.nl.Get(id)
		tasks[i] = pathfindTask{
			idx: i,
			net: id,
			req: pathfinder.Request{
				Grid:                      c.cfg.Grid,
				Start:                     net.Start,
				End:                       net.End,
				Rules:                     c.rulesByID[net.DesignRuleSubset],
				Layer:                     net.Start.Z,
				TraceCongestionMultiplier: traceMult,
				ViaCongestionMultiplier:   viaMult,
				BaseCellCost:              c.cfg.DefaultCellCost,
			},
		}
	}
	outcomes := c.pool.run(ctx, tasks)

	if iteration == 1 && c.costMultipliersConfigured {
		c.cfg.Grid.TraceCostMultipliers = c.savedTraceMultipliers
		c.cfg.Grid.ViaCostMultipliers = c.savedViaMultipliers
	}

	results := make(map[netlist.NetID]*netlist.PathResult, len(c.order))
	for _, o := range outcomes {
		if o.err != nil {
			return false, apperror.Wrap(o.err, apperror.KindIterationFatal, apperror.CodePathfinderZeroCost,
				fmt.Sprintf("pathfinder failed for net %q", c.nl.Get(o.net).Name))
		}
		if o.result.Cost <= 0 {
			return false, apperror.IterationFatal(apperror.CodePathfinderZeroCost,
				fmt.Sprintf("pathfinder returned zero cost for net %q", c.nl.Get(o.net).Name))
		}
		c.elapsed[o.net] = o.elapsed
		results[o.net] = &netlist.PathResult{
			Net:           o.net,
			Sparse:        o.result.Path,
			Cost:          o.result.Cost,
			ExploredCells: o.result.ExploredCells,
			Elapsed:       o.elapsed,
		}
	}

	// Step 6: diff-pair expansion. Each pseudo net's raw centerline path
	// expands into two child sparse paths, written into the children's own
	// result slots exactly as a direct pathfinder call would have.
	for i := range c.nl.Nets {
		net := &c.nl.Nets[i]
		if !net.IsPseudoNet {
			continue
		}
		pseudoResult, ok := results[net.ID]
		if !ok {
			continue
		}
		expanded, err := c.cfg.DiffPairExpander.Expand(diffpair.Request{
			PseudoPath: pseudoResult.Sparse,
			Pitch:      c.cfg.Pitches[net.ID],
		})
		if err != nil {
			return false, apperror.Wrap(err, apperror.KindIterationFatal, apperror.CodeDiffPairMisaligned,
				fmt.Sprintf("diff-pair expansion failed for pseudo net %q", net.Name))
		}
		if net.ChildA != netlist.NoNet {
			results[net.ChildA] = &netlist.PathResult{Net: net.ChildA, Sparse: expanded.ChildA}
		}
		if net.ChildB != netlist.NoNet {
			results[net.ChildB] = &netlist.PathResult{Net: net.ChildB, Sparse: expanded.ChildB}
		}
	}

	// Step 7: contiguity reconstruction for every net, pseudo and child
	// included.
	for _, r := range results {
		r.Dense = contiguity.Reconstruct(r.Sparse, c.cfg.Grid.Walkable)
	}

	// Step 8: routability metrics. DRC detection runs over every result
	// (including each pseudo net's own centerline, so its rolling per-layer
	// history can still qualify it for intervention A), but the DRC and
	// length totals and congestion deposition only ever consider physical
	// copper: ordinary nets and diff-pair children, never a pseudo net's
	// virtual centerline. TotalCost is the exception: it sums the pathfinder
	// cost of every directly routed net, pseudo nets included, since
	// diff-pair children carry no pathfinder cost of their own.
	drcResults := c.detector.Detect(c.nl, results)
	for id, r := range results {
		d := drcResults[id]
		r.DRCCells = d.CellCount
		// Seed this iteration's result from the net's persisted history before
		// shifting in this iteration's bit, then write the updated map back —
		// PathResult itself does not survive across iterations, only this map
		// does.
		r.PerLayerDRCHistory = c.drcHistory[id]
		routability.UpdateDRCHistory(r, d)
		c.drcHistory[id] = r.PerLayerDRCHistory
	}

	physical := make(map[netlist.NetID]*netlist.PathResult)
	for id, r := range results {
		if c.nl.Get(id).IsPseudoNet {
			continue
		}
		physical[id] = r
	}

	var totalCost float64
	for _, id := range c.order {
		if r, ok := results[id]; ok {
			totalCost += r.Cost
		}
	}

	var totalDRCCells, totalLength int
	var drcDetails []report.DRCDetail
	var drcDetailsTotal int
	netViaCounts := make(map[netlist.NetID]int, len(physical))
	var multiViaNetCount int
	for id, r := range physical {
		totalDRCCells += r.DRCCells
		totalLength += r.Length()
		if depositCongestion {
			c.cfg.Grid.DepositPath(r.Dense, depositQuantum)
		}
		for _, cell := range drcResults[id].FlaggedCells {
			drcDetailsTotal++
			if len(drcDetails) < c.cfg.MaxRecordedDRCs {
				drcDetails = append(drcDetails, report.DRCDetail{Net: id, Layer: cell.Z, Cell: cell})
			}
		}
		if depositCongestion && c.nl.Get(id).IsDiffPairChild {
			c.depositPseudoViaNeighborhood(r)
		}
		if vc := r.ViaCount(); vc > 0 {
			netViaCounts[id] = vc
			if vc >= 2 {
				multiViaNetCount++
			}
		}
	}

	if depositCongestion {
		terminals := make([]grid.Point, 0, c.numNets*2)
		for _, id := range c.order {
			net := c.nl.Get(id)
			terminals = append(terminals, net.Start, net.End)
		}
		c.cfg.Grid.DepositTerminalSurround(terminals, depositQuantum)
	}

	// Step 10: re-sort the next iteration's dispatch order by descending
	// last-iteration elapsed time (longest-first improves pool utilization).
	c.order = append([]netlist.NetID(nil), c.nl.NonChildNets()...)
	sort.SliceStable(c.order, func(i, j int) bool {
		return c.elapsed[c.order[i]] > c.elapsed[c.order[j]]
	})

	// Step 11: update best-iteration pointer (folded into RecordIteration).
	metrics := routability.IterationMetrics{
		Iteration:             iteration,
		TotalDRCCells:          totalDRCCells,
		TotalCost:              totalCost,
		TotalNonPseudoLength:   totalLength,
		TotalNonPseudoDRCells:  totalDRCCells,
		ElapsedSeconds:         time.Since(start).Seconds(),
	}
	c.state.RecordIteration(metrics, c.costMultipliersConfigured)

	thresholdMet := c.state.ThresholdMet(c.threshold)
	if thresholdMet {
		c.state.NoteThresholdFirstMet(iteration)
	}
	plateauStatus := plateau.Evaluate(c.state)
	c.state.InMetricsPlateau = plateauStatus.InMetricsPlateau()

	// Step 12: evaluate termination.
	terminate := thresholdMet && (c.numNets == 1 || plateauStatus.InMetricsPlateau() ||
		(c.state.ThresholdFirstMetAt != 0 && iteration-c.state.ThresholdFirstMetAt >= plateauCooldown))

	// Step 13: algorithm-change selector; apply at most one intervention.
	decision := intervention.Select(iteration, c.state, plateauStatus, c.interventionInputs(thresholdMet, physical, results))
	c.applyIntervention(iteration, decision, &metrics)

	if c.cfg.Metrics != nil {
		c.cfg.Metrics.RecordIteration(time.Since(start), totalDRCCells, totalCost, c.state.BestIteration, (traceMult+viaMult)/2)
		for _, r := range results {
			c.cfg.Metrics.RecordNetRouted("real", r.DRCCells == 0, time.Duration(r.Elapsed*float64(time.Second)))
		}
		if metrics.AnyIntervention() {
			c.cfg.Metrics.RecordIntervention(interventionKindName(decision.Kind))
		}
		c.cfg.Metrics.SetPlateau("trace", plateauStatus.TraceInPlateau)
		c.cfg.Metrics.SetPlateau("via", plateauStatus.ViaInPlateau)
		c.cfg.Metrics.SetBandAge("trace", float64(c.state.TraceSensitivity.CurrentBand().IterationsSinceEntered(iteration)))
		c.cfg.Metrics.SetBandAge("via", float64(c.state.ViaSensitivity.CurrentBand().IterationsSinceEntered(iteration)))
	}

	// Step 14: emit per-iteration report.
	ir := report.IterationReport{
		Iteration:               iteration,
		TotalDRCCells:           metrics.TotalDRCCells,
		TotalCost:               metrics.TotalCost,
		TotalNonPseudoLength:    metrics.TotalNonPseudoLength,
		TotalNonPseudoDRCells:   metrics.TotalNonPseudoDRCells,
		ElapsedSeconds:          metrics.ElapsedSeconds,
		SwappedTerminals:        metrics.SwappedTerminals,
		ChangedViaSensitivity:   metrics.ChangedViaSensitivity,
		ChangedTraceSensitivity: metrics.ChangedTraceSensitivity,
		EnabledPseudoTraceCong:  metrics.EnabledPseudoTraceCong,
		BestIterationSoFar:      c.state.BestIteration,
		InMetricsPlateau:        plateauStatus.InMetricsPlateau(),
		DRCDetails:              drcDetails,
		DRCDetailsTotal:         drcDetailsTotal,
		NetViaCounts:            netViaCounts,
		MultiViaNetCount:        multiViaNetCount,
	}
	if err := c.cfg.Sink.WriteIteration(ctx, ir); err != nil {
		return false, err
	}

	return terminate, nil
}

// depositPseudoViaNeighborhood applies intervention A's effect: extra
// congestion around a diff-pair child's vias on a layer where
// pseudo-trace-congestion deposition has been enabled for its parent pseudo
// net.
func (c *Controller) depositPseudoViaNeighborhood(r *netlist.PathResult) {
	net := c.nl.Get(r.Net)
	if net.Parent == netlist.NoNet {
		return
	}
	for i := 1; i < len(r.Dense); i++ {
		if !grid.IsVia(r.Dense[i-1], r.Dense[i]) {
			continue
		}
		via := r.Dense[i]
		if c.pseudoTraceEnabled[intervention.PseudoPair{PseudoNet: net.Parent, Layer: via.Z}] {
			c.cfg.Grid.DepositPseudoViaNeighborhood(via, depositQuantum)
		}
	}
}

// interventionInputs gathers the netlist-derived facts intervention.Select
// needs beyond routability.State.
func (c *Controller) interventionInputs(thresholdMet bool, physical, results map[netlist.NetID]*netlist.PathResult) intervention.Inputs {
	numLayers := c.cfg.Grid.SizeZ

	var swapEligible []netlist.NetID
	for id, r := range physical {
		if r.DRCCells == 0 {
			continue
		}
		net := c.nl.Get(id)
		if net.IsTerminalSwappable && !c.cfg.Grid.InPinSwapZone(net.Start) && !c.cfg.Grid.InPinSwapZone(net.End) {
			swapEligible = append(swapEligible, id)
		}
	}

	// A (pseudo net, layer) pair qualifies once that layer's rolling 20-bit
	// DRC history (tracked on the pseudo net's own pre-expansion centerline)
	// is all-ones, or an adjacent layer already has deposition enabled for
	// this pseudo net (spec.md §4.7(A)).
	var qualifying []intervention.PseudoPair
	for i := range c.nl.Nets {
		net := &c.nl.Nets[i]
		if !net.IsPseudoNet {
			continue
		}
		r, ok := results[net.ID]
		if !ok {
			continue
		}
		for layer, bitmap := range r.PerLayerDRCHistory {
			pair := intervention.PseudoPair{PseudoNet: net.ID, Layer: layer}
			if bitmap.AllOnes() || c.pseudoTraceEnabled[intervention.PseudoPair{PseudoNet: net.ID, Layer: layer - 1}] ||
				c.pseudoTraceEnabled[intervention.PseudoPair{PseudoNet: net.ID, Layer: layer + 1}] {
				qualifying = append(qualifying, pair)
			}
		}
	}

	return intervention.Inputs{
		NumLayers:           numLayers,
		ThresholdMet:        thresholdMet,
		SwapEligibleDRCNets: swapEligible,
		QualifyingPairs:     qualifying,
		AlreadyEnabledPairs: c.pseudoTraceEnabled,
	}
}

// applyIntervention mutates controller/netlist/state per the selected
// decision and records what happened into metrics for reporting.
func (c *Controller) applyIntervention(iteration int, d intervention.Decision, metrics *routability.IterationMetrics) {
	switch d.Kind {
	case intervention.EnablePseudoTraceCongestion:
		for _, pair := range d.Pairs {
			c.pseudoTraceEnabled[pair] = true
		}
		c.state.PseudoTraceCongEnabled = true
		if d.NewlyToggled {
			// Every via-sensitivity band's rolling statistics are now stale,
			// not just the current one (spec.md §4.7(A)), since deposition
			// enabling changes the congestion landscape every band's samples
			// were measured against.
			for i := range c.state.ViaSensitivity.Bands {
				c.state.ViaSensitivity.Bands[i].Enter(iteration)
			}
		}
		c.state.LastInterventionAt = iteration
		metrics.EnabledPseudoTraceCong = true

	case intervention.ChangeViaSensitivity:
		dir := c.moveLadder(&c.state.ViaSensitivity, d.Direction, iteration)
		if dir != 0 {
			c.state.ViaSensDirectionMemory = dir
			c.bumpSensitivityCounters(dir)
			c.state.LastInterventionAt = iteration
			metrics.ChangedViaSensitivity = dir
		}

	case intervention.ChangeTraceSensitivity:
		dir := c.moveLadder(&c.state.TraceSensitivity, d.Direction, iteration)
		if dir != 0 {
			c.state.TraceSensDirectionMemory = dir
			c.bumpSensitivityCounters(dir)
			c.state.LastInterventionAt = iteration
			metrics.ChangedTraceSensitivity = dir
		}

	case intervention.SwapTerminals:
		if len(d.SwapNets) == 0 {
			return
		}
		for _, id := range d.SwapNets {
			net := c.nl.Get(id)
			net.Start, net.End = net.End, net.Start
		}
		c.state.SwapRounds++
		c.state.LastInterventionAt = iteration
		metrics.SwappedTerminals = true
	}
}

func (c *Controller) moveLadder(ladder *routability.Ladder, dir intervention.Direction, iteration int) int {
	if dir == intervention.Increase {
		if ladder.Increase(iteration) {
			return 1
		}
		return 0
	}
	if ladder.Decrease(iteration) {
		return -1
	}
	return 0
}

func (c *Controller) bumpSensitivityCounters(dir int) {
	if dir > 0 {
		c.state.SensitivityIncreases++
	} else {
		c.state.SensitivityDecreases++
	}
}

func interventionKindName(k intervention.Kind) string {
	switch k {
	case intervention.EnablePseudoTraceCongestion:
		return "enable_pseudo_trace_congestion"
	case intervention.ChangeViaSensitivity:
		return "change_via_sensitivity"
	case intervention.ChangeTraceSensitivity:
		return "change_trace_sensitivity"
	case intervention.SwapTerminals:
		return "swap_terminals"
	default:
		return "none"
	}
}
