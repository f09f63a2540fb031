package routability

import "math"

// IterationMetrics is the per-iteration record spec.md §3 describes: the
// aggregate totals computed after contiguity reconstruction, plus the four
// intervention flags recording what (if anything) was triggered for that
// iteration.
type IterationMetrics struct {
	Iteration int

	TotalDRCCells        int
	TotalCost             float64
	TotalNonPseudoLength  int
	TotalNonPseudoDRCells int
	ElapsedSeconds        float64

	SwappedTerminals         bool
	ChangedViaSensitivity    int // +1, -1, or 0
	ChangedTraceSensitivity  int // +1, -1, or 0
	EnabledPseudoTraceCong   bool
}

// AnyIntervention reports whether any of the four intervention flags is set
// on this record. It does not check that at most one is set.
func (m IterationMetrics) AnyIntervention() bool {
	return m.SwappedTerminals || m.ChangedViaSensitivity != 0 ||
		m.ChangedTraceSensitivity != 0 || m.EnabledPseudoTraceCong
}

// PlateauStabilityFraction is the "fixed fraction of the mean" spec.md §4.6
// leaves as a named but unspecified constant. The window of 20 samples and
// the stderr/mean shape come directly from the source; the numeric fraction
// itself is not present in the header-only routability interface this
// repository could recover, so two percent is chosen as a conservative value
// that still lets genuinely noisy late-iteration metrics reach a plateau
// within a handful of stale iterations. See DESIGN.md for this resolution.
const PlateauStabilityFraction = 0.02

// Congestion multiplier regime boundaries and the iteration-1..L prefactor,
// taken verbatim from the three-regime formula in the source: for iteration
// <= L the prefactor is fixed at 0.20; for L < iteration <= 5L it scales
// linearly as iteration/(5L); beyond 5L it holds at 1.0.
const earlyRegimePrefactor = 0.20

// SensitivityBreakpoint returns L = 20*log10(num_nets), the iteration count
// past which the congestion-multiplier prefactor begins scaling up from its
// fixed early-iteration value (spec.md §4.8 step 2).
func SensitivityBreakpoint(numNets int) float64 {
	if numNets <= 0 {
		return 0
	}
	return 20 * math.Log10(float64(numNets))
}

// CongestionPrefactor computes the iteration-dependent scale factor applied
// to both the trace- and via-congestion multipliers. L is the breakpoint
// from SensitivityBreakpoint.
func CongestionPrefactor(iteration int, l float64) float64 {
	switch {
	case l <= 0:
		return earlyRegimePrefactor
	case float64(iteration) <= l:
		return earlyRegimePrefactor
	case float64(iteration) <= 5*l:
		return float64(iteration) / (5 * l)
	default:
		return 1.0
	}
}

// CongestionMultiplier computes the effective trace- or via-congestion
// multiplier for the current iteration, following
// update_iterationDependent_parameters: prefactor * (bandLevelPercent/100) *
// baseCellCost * evapRate/(100-evapRate)/100.
func CongestionMultiplier(iteration int, l float64, bandLevelPercent, baseCellCost, evapRate float64) float64 {
	prefactor := CongestionPrefactor(iteration, l)
	return prefactor * (bandLevelPercent / 100.0) * baseCellCost * evapRate / (100.0 - evapRate) / 100.0
}

// DRCFreeThreshold computes the number of cumulative DRC-free iterations
// required before the run may terminate (spec.md §4.8): the user's base
// threshold plus 35*log10(num_nets).
func DRCFreeThreshold(userThreshold, numNets int) int {
	if numNets <= 0 {
		return userThreshold
	}
	return userThreshold + int(math.Round(35*math.Log10(float64(numNets))))
}

// State is the mutable "global loop state" spec.md §3 describes: the
// sensitivity ladders, per-iteration history, and DRC-free bookkeeping the
// controller consults for termination and the algorithm-change selector
// consults for its preconditions.
type State struct {
	TraceSensitivity Ladder
	ViaSensitivity   Ladder

	History []IterationMetrics

	// CumulativeDRCFreeIterations is a running count of how many iterations
	// (of any kind) have been DRC-free so far, mirroring the source's
	// cumulative_DRCfree_iterations[iteration] array collapsed to its latest
	// value — nothing downstream needs the full history, only the current
	// count and the iteration it first met the threshold.
	CumulativeDRCFreeIterations int
	ThresholdFirstMetAt         int // 0 = not yet met

	BestIteration int // 0 = none recorded yet

	SwapRounds             int
	SensitivityIncreases   int
	SensitivityDecreases   int
	LastInterventionAt     int // iteration of the most recent intervention of any kind
	PseudoTraceCongEnabled bool

	// ViaSensDirectionMemory and TraceSensDirectionMemory record the
	// direction (+1 increase, -1 decrease, 0 never moved) each ladder last
	// moved, so the next hill-climb step knows which way it was heading
	// (spec.md §4.7(B)).
	ViaSensDirectionMemory   int
	TraceSensDirectionMemory int

	InMetricsPlateau bool
}

// NewState builds the initial global loop state from the trace- and
// via-sensitivity percent ladders declared in the input configuration.
func NewState(traceSensLevels, viaSensLevels []float64) *State {
	return &State{
		TraceSensitivity: NewLadder(traceSensLevels),
		ViaSensitivity:   NewLadder(viaSensLevels),
	}
}

// RecordIteration appends m to the history, observes it into both sensitivity
// bands' rolling windows, advances the cumulative DRC-free counter, and
// updates the best-iteration pointer per the monotonic property in spec.md
// §8: best iteration never advances to one with strictly more DRC cells, and
// ties break on lower cost. costMultipliersUsed excludes iteration 1 from
// candidacy, since iteration 1 deliberately ignores cost multipliers.
func (s *State) RecordIteration(m IterationMetrics, costMultipliersUsed bool) {
	s.History = append(s.History, m)

	sample := Sample{
		DRCFree: m.TotalDRCCells == 0,
		DRCNets: float64(m.TotalNonPseudoDRCells),
		Cost:    m.TotalCost,
	}
	s.TraceSensitivity.CurrentBand().Observe(m.Iteration, sample)
	s.ViaSensitivity.CurrentBand().Observe(m.Iteration, sample)

	if sample.DRCFree {
		s.CumulativeDRCFreeIterations++
	}

	s.updateBestIteration(m, costMultipliersUsed)
}

func (s *State) updateBestIteration(m IterationMetrics, costMultipliersUsed bool) {
	if costMultipliersUsed && m.Iteration == 1 {
		return
	}
	if s.BestIteration == 0 {
		s.BestIteration = m.Iteration
		return
	}
	incumbent := s.History[s.BestIteration-1]
	switch {
	case m.TotalDRCCells < incumbent.TotalDRCCells:
		s.BestIteration = m.Iteration
	case m.TotalDRCCells == incumbent.TotalDRCCells && m.TotalCost < incumbent.TotalCost:
		s.BestIteration = m.Iteration
	}
}

// DRCFreeFractionOverLast20 reports the fraction of the most recent (up to)
// 20 recorded iterations that were DRC-free, regardless of sensitivity band
// — this is the aggregate figure the algorithm-change selector's "N% of the
// last 20 iterations were DRC-free" preconditions read (spec.md §4.7).
func (s *State) DRCFreeFractionOverLast20() float64 {
	n := len(s.History)
	if n == 0 {
		return 0
	}
	start := n - WindowSize
	if start < 0 {
		start = 0
	}
	window := s.History[start:]
	free := 0
	for _, m := range window {
		if m.TotalDRCCells == 0 {
			free++
		}
	}
	return float64(free) / float64(len(window))
}

// IterationsSinceLastIntervention returns how many iterations have elapsed
// since any of the four interventions last fired, or the current iteration
// itself if none ever have.
func (s *State) IterationsSinceLastIntervention(iteration int) int {
	if s.LastInterventionAt == 0 {
		return iteration
	}
	return iteration - s.LastInterventionAt
}

// ThresholdMet reports whether the cumulative DRC-free count has reached the
// given threshold.
func (s *State) ThresholdMet(threshold int) bool {
	return s.CumulativeDRCFreeIterations >= threshold
}

// NoteThresholdFirstMet records the first iteration at which the threshold
// was met, if it has not already been recorded.
func (s *State) NoteThresholdFirstMet(iteration int) {
	if s.ThresholdFirstMetAt == 0 {
		s.ThresholdFirstMetAt = iteration
	}
}
