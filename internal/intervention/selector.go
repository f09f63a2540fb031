package intervention

import (
	"github.com/danboyne/acorn/internal/netlist"
	"github.com/danboyne/acorn/internal/plateau"
	"github.com/danboyne/acorn/internal/routability"
)

// Inputs bundles the facts Select needs that live outside routability.State
// — netlist-derived bookkeeping the controller already computes each
// iteration while detecting DRCs and walking the netlist.
type Inputs struct {
	NumLayers    int
	ThresholdMet bool

	// SwapEligibleDRCNets lists every net currently holding a DRC whose
	// start/end terminals may be swapped: the controller includes a net only
	// if it is marked IsTerminalSwappable and both terminals sit outside any
	// pin-swap zone.
	SwapEligibleDRCNets []netlist.NetID

	// QualifyingPairs lists every (pseudo net, layer) pair whose rolling
	// 20-bit DRC history is all-ones on that layer, or on an adjacent layer
	// where pseudo-trace-congestion deposition is already enabled — the
	// precondition in spec.md §4.7(A).
	QualifyingPairs []PseudoPair

	// AlreadyEnabledPairs is the set of (pseudo net, layer) pairs for which
	// deposition mode is already on, carried over from prior iterations.
	AlreadyEnabledPairs map[PseudoPair]bool
}

// Select evaluates the four interventions in strict priority order and
// returns at most one. iteration is the iteration just completed; the
// decision takes effect from the next one.
func Select(iteration int, s *routability.State, p plateau.Status, in Inputs) Decision {
	if d, ok := tryEnablePseudoTraceCongestion(iteration, s, p, in); ok {
		return d
	}
	if d, ok := tryChangeSensitivity(iteration, s, p, in, ChangeViaSensitivity, &s.ViaSensitivity, s.ViaSensDirectionMemory); ok {
		return d
	}
	if d, ok := tryChangeSensitivity(iteration, s, p, in, ChangeTraceSensitivity, &s.TraceSensitivity, s.TraceSensDirectionMemory); ok {
		return d
	}
	if d, ok := trySwapTerminals(iteration, s, p, in); ok {
		return d
	}
	return Decision{Kind: None}
}

func sinceLastIntervention(iteration int, s *routability.State) int {
	return s.IterationsSinceLastIntervention(iteration)
}

// tryEnablePseudoTraceCongestion implements spec.md §4.7(A).
func tryEnablePseudoTraceCongestion(iteration int, s *routability.State, p plateau.Status, in Inputs) (Decision, bool) {
	if in.NumLayers <= 1 {
		return Decision{}, false
	}
	if len(in.QualifyingPairs) == 0 {
		return Decision{}, false
	}
	if !p.InMetricsPlateau() {
		return Decision{}, false
	}
	if in.ThresholdMet {
		return Decision{}, false
	}
	if s.DRCFreeFractionOverLast20() != 0 {
		return Decision{}, false
	}
	if sinceLastIntervention(iteration, s) < MinIterationsSinceIntervention {
		return Decision{}, false
	}
	if s.SensitivityDecreases < 1 {
		return Decision{}, false
	}

	newly := false
	for _, pair := range in.QualifyingPairs {
		if !in.AlreadyEnabledPairs[pair] {
			newly = true
			break
		}
	}
	return Decision{
		Kind:         EnablePseudoTraceCongestion,
		Pairs:        in.QualifyingPairs,
		NewlyToggled: newly,
	}, true
}

// tryChangeSensitivity implements spec.md §4.7(B) and (C): identical
// preconditions evaluated separately against the via- and trace-sensitivity
// bands. The direction rule continues stepping the same way the ladder last
// moved until it reaches an edge, then reverses — a hill-climb with memory
// of the prior attempt (spec.md §4.7(B)).
func tryChangeSensitivity(iteration int, s *routability.State, p plateau.Status, in Inputs, kind Kind, ladder *routability.Ladder, memory int) (Decision, bool) {
	if !p.InMetricsPlateau() {
		return Decision{}, false
	}
	if in.ThresholdMet {
		return Decision{}, false
	}
	if s.DRCFreeFractionOverLast20() > 0.20 {
		return Decision{}, false
	}
	if sinceLastIntervention(iteration, s) < MinIterationsSinceIntervention {
		return Decision{}, false
	}
	if s.SwapRounds < 3 && len(in.SwapEligibleDRCNets) != 0 {
		return Decision{}, false
	}

	dir, ok := nextDirection(ladder, memory)
	if !ok {
		return Decision{}, false
	}
	direction := Increase
	if dir < 0 {
		direction = Decrease
	}
	return Decision{Kind: kind, Direction: direction}, true
}

// nextDirection picks which way to move a sensitivity ladder next, given the
// direction of its last move (0 if it has never moved). It keeps moving the
// same direction until the ladder reaches that edge, then reverses.
func nextDirection(ladder *routability.Ladder, memory int) (int, bool) {
	switch {
	case memory >= 0 && !ladder.AtTop():
		return 1, true
	case memory < 0 && !ladder.AtBottom():
		return -1, true
	case !ladder.AtBottom():
		return -1, true
	case !ladder.AtTop():
		return 1, true
	default:
		return 0, false
	}
}

// trySwapTerminals implements spec.md §4.7(D).
func trySwapTerminals(iteration int, s *routability.State, p plateau.Status, in Inputs) (Decision, bool) {
	if len(in.SwapEligibleDRCNets) == 0 {
		return Decision{}, false
	}
	if !p.InMetricsPlateau() {
		return Decision{}, false
	}
	if in.ThresholdMet {
		return Decision{}, false
	}
	if s.DRCFreeFractionOverLast20() > 0.60 {
		return Decision{}, false
	}
	if sinceLastIntervention(iteration, s) < MinIterationsSinceIntervention {
		return Decision{}, false
	}
	return Decision{Kind: SwapTerminals, SwapNets: in.SwapEligibleDRCNets}, true
}
