// Package plateau implements spec.md §4.6: deciding whether the trace- and
// via-congestion sensitivity bands have stopped moving. A band is in
// plateau once it has accrued a full rolling window at its current level
// and both of its tracked series (DRC-net count, routing cost) have
// stabilized. The overall per-iteration plateau flag is true when at least
// one band is in plateau — the two bands are evaluated independently since
// a run can stall on via congestion while trace congestion is still
// drifting, or vice versa.
package plateau

import "github.com/danboyne/acorn/internal/routability"

// Status reports the plateau state of each sensitivity band plus the
// combined flag the controller and algorithm-change selector consult.
type Status struct {
	TraceInPlateau bool
	ViaInPlateau   bool
}

// InMetricsPlateau is the OR of the two bands, matching
// routability.inMetricsPlateau in spec.md §4.6.
func (s Status) InMetricsPlateau() bool {
	return s.TraceInPlateau || s.ViaInPlateau
}

// Evaluate computes the current plateau status from the global loop state.
// It does not mutate state; the controller is expected to store the result
// on routability.State.InMetricsPlateau itself between iterations.
func Evaluate(s *routability.State) Status {
	return Status{
		TraceInPlateau: bandInPlateau(s.TraceSensitivity.CurrentBand()),
		ViaInPlateau:   bandInPlateau(s.ViaSensitivity.CurrentBand()),
	}
}

func bandInPlateau(b *routability.Band) bool {
	return b.HasFullWindow() && b.Stable(routability.PlateauStabilityFraction)
}
