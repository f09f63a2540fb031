// Package routability computes per-iteration routing metrics and maintains
// the rolling congestion-sensitivity-band statistics the plateau detector
// and algorithm-change selector (spec.md §4.6, §4.7) read. It owns the
// "global loop state" of spec.md §3: the current sensitivity indices, their
// computed multipliers, and the DRC-free bookkeeping the controller checks
// for termination.
package routability

import "math"

// WindowSize is the rolling-window width every plateau and DRC-free-fraction
// predicate looks at. It matches netlist.DRCBitmapWindow — both are the same
// "last 20 iterations" spec.md §4.5/§4.6 describe, kept as separate
// constants since they live in different packages and measure different
// things (per-path-per-layer history vs. per-band aggregate history).
const WindowSize = 20

// Sample is one iteration's contribution to a sensitivity band's rolling
// window: whether that iteration was DRC-free, how many non-pseudo nets
// still held a DRC, and the non-pseudo routing cost.
type Sample struct {
	DRCFree bool
	DRCNets float64
	Cost    float64
}

// Band is one discrete level of a congestion-sensitivity ladder: its scalar
// value (percent, used as a multiplier term) and the rolling statistics
// measured while this level has been current. The window resets whenever
// the band is re-entered, since spec.md §4.5 says statistics are "taken
// only iterations at that sensitivity level since it was last entered."
type Band struct {
	Level       float64
	LastEntered int
	LastUpdated int
	window      []Sample
}

// Enter marks iteration as the point this band became current, discarding
// any stale statistics from a previous stay at this level.
func (b *Band) Enter(iteration int) {
	b.LastEntered = iteration
	b.window = b.window[:0]
}

// Observe appends one iteration's sample to the rolling window, keeping at
// most the most recent WindowSize entries.
func (b *Band) Observe(iteration int, s Sample) {
	b.LastUpdated = iteration
	b.window = append(b.window, s)
	if len(b.window) > WindowSize {
		b.window = b.window[len(b.window)-WindowSize:]
	}
}

// IterationsSinceEntered returns how many iterations have accrued at this
// level, counting from (and including) the iteration it was entered.
func (b *Band) IterationsSinceEntered(iteration int) int {
	return iteration - b.LastEntered + 1
}

// HasFullWindow reports whether at least WindowSize samples have been
// observed since the band was last entered — the plateau detector's "at
// least 20 iterations have accrued" precondition (spec.md §4.6).
func (b *Band) HasFullWindow() bool {
	return len(b.window) >= WindowSize
}

// DRCFreeFraction returns the fraction of the rolling window's iterations
// that were DRC-free. An empty window reports zero.
func (b *Band) DRCFreeFraction() float64 {
	if len(b.window) == 0 {
		return 0
	}
	n := 0
	for _, s := range b.window {
		if s.DRCFree {
			n++
		}
	}
	return float64(n) / float64(len(b.window))
}

// DRCNetsStats returns the mean and standard error of the rolling window's
// non-pseudo-DRC-net counts.
func (b *Band) DRCNetsStats() (mean, stdErr float64) {
	xs := make([]float64, len(b.window))
	for i, s := range b.window {
		xs[i] = s.DRCNets
	}
	return meanAndStdErr(xs)
}

// CostStats returns the mean and standard error of the rolling window's
// non-pseudo routing costs.
func (b *Band) CostStats() (mean, stdErr float64) {
	xs := make([]float64, len(b.window))
	for i, s := range b.window {
		xs[i] = s.Cost
	}
	return meanAndStdErr(xs)
}

// Stable reports whether both the DRC-net count and the cost have stabilized
// at this band: each series' rolling standard error falls below fraction
// times its mean. A mean of zero is treated as already stable for that
// series (nothing left to converge toward).
func (b *Band) Stable(fraction float64) bool {
	return seriesStable(b.DRCNetsStats, fraction) && seriesStable(b.CostStats, fraction)
}

func seriesStable(stats func() (mean, stdErr float64), fraction float64) bool {
	mean, stdErr := stats()
	if mean == 0 {
		return true
	}
	return stdErr < fraction*mean
}

func meanAndStdErr(xs []float64) (mean, stdErr float64) {
	n := len(xs)
	if n == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	mean = sum / float64(n)
	if n < 2 {
		return mean, 0
	}
	var variance float64
	for _, x := range xs {
		d := x - mean
		variance += d * d
	}
	variance /= float64(n - 1)
	stdErr = math.Sqrt(variance) / math.Sqrt(float64(n))
	return mean, stdErr
}

// Ladder is an ordered list of sensitivity levels (index 0 = lowest) plus
// the index currently in effect. Trace and via congestion each have their
// own Ladder (spec.md §3).
type Ladder struct {
	Bands   []Band
	Current int
}

// NewLadder builds a ladder from the given percent levels, starting at
// index 0.
func NewLadder(levels []float64) Ladder {
	bands := make([]Band, len(levels))
	for i, l := range levels {
		bands[i] = Band{Level: l}
	}
	return Ladder{Bands: bands, Current: 0}
}

// CurrentBand returns the band currently in effect.
func (l *Ladder) CurrentBand() *Band {
	return &l.Bands[l.Current]
}

// AtTop reports whether the ladder is already at its highest sensitivity.
func (l *Ladder) AtTop() bool {
	return l.Current == len(l.Bands)-1
}

// AtBottom reports whether the ladder is already at its lowest sensitivity.
func (l *Ladder) AtBottom() bool {
	return l.Current == 0
}

// Increase moves one level up and enters the new band, or reports false if
// already at the top.
func (l *Ladder) Increase(iteration int) bool {
	if l.AtTop() {
		return false
	}
	l.Current++
	l.Bands[l.Current].Enter(iteration)
	return true
}

// Decrease moves one level down and enters the new band, or reports false
// if already at the bottom.
func (l *Ladder) Decrease(iteration int) bool {
	if l.AtBottom() {
		return false
	}
	l.Current--
	l.Bands[l.Current].Enter(iteration)
	return true
}
