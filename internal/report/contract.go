// Package report defines the report-sink contract (spec.md §6, §4.9 of
// SPEC_FULL.md): consumers of per-iteration metric snapshots and bounded
// DRC-detail buffers. Snapshot format is opaque to the iteration controller,
// which only ever calls the Sink interface; concrete encodings (JSON, CSV,
// Markdown, and an optional Postgres sink) live alongside it in this
// package as collaborators a deployment wires in, not engine logic.
package report

import (
	"context"

	"github.com/danboyne/acorn/internal/grid"
	"github.com/danboyne/acorn/internal/netlist"
)

// DRCDetail is one flagged cell from a single net's iteration, truncated to
// at most maxRecordedDRCs entries per iteration by the controller before
// it ever reaches a Sink — spec.md §9 calls this cap deliberate and
// load-bearing, since the full list can run to hundreds of thousands of
// entries.
type DRCDetail struct {
	Net   netlist.NetID
	Layer int
	Cell  grid.Point
}

// IterationReport is the per-iteration snapshot every Sink receives: the
// same aggregate totals and intervention flags routability.IterationMetrics
// tracks internally, plus the bounded DRC-detail buffer and the current
// best-iteration pointer.
type IterationReport struct {
	Iteration int

	TotalDRCCells         int
	TotalCost             float64
	TotalNonPseudoLength  int
	TotalNonPseudoDRCells int
	ElapsedSeconds        float64

	SwappedTerminals        bool
	ChangedViaSensitivity   int
	ChangedTraceSensitivity int
	EnabledPseudoTraceCong  bool

	BestIterationSoFar int
	InMetricsPlateau   bool

	DRCDetails      []DRCDetail
	DRCDetailsTotal int // true count before truncation, for "N of M shown"

	// NetViaCounts is each physical (non-pseudo) net's layer-change count
	// this iteration, keyed by net id — spec.md §8 scenario 3 needs to verify
	// "via count >= 2 on exactly one net in the best iteration" against this.
	NetViaCounts map[netlist.NetID]int
	// MultiViaNetCount is the number of entries in NetViaCounts with a count
	// of at least 2, the scalar summary CSV/Markdown sinks render instead of
	// the full per-net map.
	MultiViaNetCount int
}

// Sink is the collaborator contract. WriteIteration is called once per
// iteration, synchronously, from the controller's single-threaded phase —
// sinks never see concurrent calls and may buffer freely. Close flushes and
// releases any resources; the controller calls it exactly once, after the
// loop terminates.
type Sink interface {
	WriteIteration(ctx context.Context, r IterationReport) error
	Close() error
}

// MultiSink fans one IterationReport out to every wrapped Sink in order,
// stopping at (and returning) the first error. This is how the CLI wires
// multiple requested output formats to a single controller run.
type MultiSink struct {
	Sinks []Sink
}

// WriteIteration implements Sink.
func (m MultiSink) WriteIteration(ctx context.Context, r IterationReport) error {
	for _, s := range m.Sinks {
		if err := s.WriteIteration(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// Close implements Sink, closing every wrapped sink and returning the first
// error encountered (continuing to close the rest regardless).
func (m MultiSink) Close() error {
	var first error
	for _, s := range m.Sinks {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
