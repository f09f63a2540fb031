package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
)

// CSVSink writes one row per iteration with a fixed column header written
// once, lazily, on the first call — mirroring the teacher's csvWriter
// wrapper that defers error checking to a single Flush/Error pair instead
// of threading an error return through every Write call.
type CSVSink struct {
	w           *csv.Writer
	wroteHeader bool
	err         error
}

// NewCSVSink wraps w.
func NewCSVSink(w io.Writer) *CSVSink {
	return &CSVSink{w: csv.NewWriter(w)}
}

var csvHeader = []string{
	"iteration", "total_drc_cells", "total_cost", "total_nonpseudo_length",
	"total_nonpseudo_drc_cells", "elapsed_seconds", "swapped_terminals",
	"changed_via_sensitivity", "changed_trace_sensitivity",
	"enabled_pseudo_trace_congestion", "best_iteration_so_far", "in_metrics_plateau",
	"drc_details_total", "multi_via_net_count",
}

func (s *CSVSink) write(record []string) {
	if s.err != nil {
		return
	}
	s.err = s.w.Write(record)
}

// WriteIteration implements Sink.
func (s *CSVSink) WriteIteration(_ context.Context, r IterationReport) error {
	if !s.wroteHeader {
		s.write(csvHeader)
		s.wroteHeader = true
	}
	s.write([]string{
		fmt.Sprintf("%d", r.Iteration),
		fmt.Sprintf("%d", r.TotalDRCCells),
		fmt.Sprintf("%g", r.TotalCost),
		fmt.Sprintf("%d", r.TotalNonPseudoLength),
		fmt.Sprintf("%d", r.TotalNonPseudoDRCells),
		fmt.Sprintf("%g", r.ElapsedSeconds),
		fmt.Sprintf("%t", r.SwappedTerminals),
		fmt.Sprintf("%d", r.ChangedViaSensitivity),
		fmt.Sprintf("%d", r.ChangedTraceSensitivity),
		fmt.Sprintf("%t", r.EnabledPseudoTraceCong),
		fmt.Sprintf("%d", r.BestIterationSoFar),
		fmt.Sprintf("%t", r.InMetricsPlateau),
		fmt.Sprintf("%d", r.DRCDetailsTotal),
		fmt.Sprintf("%d", r.MultiViaNetCount),
	})
	s.w.Flush()
	if s.err == nil {
		s.err = s.w.Error()
	}
	return s.err
}

// Close implements Sink, returning any error accumulated across writes.
func (s *CSVSink) Close() error {
	s.w.Flush()
	if s.err == nil {
		s.err = s.w.Error()
	}
	return s.err
}
