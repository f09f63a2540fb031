// Package intervention implements the algorithm-change selector, spec.md
// §4.7: a pure function of the current routability state, plateau status,
// and a handful of netlist-derived facts the controller already has to
// hand, returning at most one of four tagged interventions for the next
// iteration. Selection always happens in the same strict priority order —
// enable-pseudo-trace-congestion, change-via-sensitivity,
// change-trace-sensitivity, swap-terminals — matching spec.md §9's tagged
// variant and §4.7's "reverse order of their likelihood to occur" ordering.
package intervention

import "github.com/danboyne/acorn/internal/netlist"

// Kind tags which intervention (if any) Select chose.
type Kind int

const (
	None Kind = iota
	EnablePseudoTraceCongestion
	ChangeViaSensitivity
	ChangeTraceSensitivity
	SwapTerminals
)

// Direction tags which way a sensitivity change moves its ladder.
type Direction int

const (
	Increase Direction = iota
	Decrease
)

// PseudoPair names one (pseudo net, layer) combination eligible for
// pseudo-trace-congestion deposition.
type PseudoPair struct {
	PseudoNet netlist.NetID
	Layer     int
}

// Decision is the tagged variant spec.md §9 asks for, over
// {None, SwapTerminals, ChangeViaSens(±1), ChangeTraceSens(±1),
// EnablePseudoTraceCong}. Only the fields relevant to Kind are meaningful.
type Decision struct {
	Kind Kind

	// Direction is valid iff Kind is ChangeViaSensitivity or
	// ChangeTraceSensitivity.
	Direction Direction

	// SwapNets is valid iff Kind == SwapTerminals: every swap-eligible
	// DRC-holding net whose start/end terminals should be exchanged.
	SwapNets []netlist.NetID

	// Pairs is valid iff Kind == EnablePseudoTraceCongestion: the qualifying
	// (pseudo net, layer) pairs to toggle the deposition mode on for.
	Pairs []PseudoPair

	// NewlyToggled is true when at least one pair in Pairs was not already
	// enabled — the controller must reset all via-sensitivity band
	// statistics when this is true (spec.md §4.7(A)).
	NewlyToggled bool
}

// MinIterationsSinceIntervention is the "at least 60 iterations since the
// last intervention of any kind" precondition shared by all four
// interventions (spec.md §4.7).
const MinIterationsSinceIntervention = 60
