package report

import (
	"context"
	"fmt"
	"io"
)

// MarkdownSink renders a running human-readable report: one top-level
// header written once, then a table row appended per iteration. It is the
// sink a user would `tail -f` during a long run.
type MarkdownSink struct {
	w           io.Writer
	wroteHeader bool
	err         error
}

// NewMarkdownSink wraps w.
func NewMarkdownSink(w io.Writer) *MarkdownSink {
	return &MarkdownSink{w: w}
}

func (s *MarkdownSink) writeString(str string) {
	if s.err != nil {
		return
	}
	_, s.err = io.WriteString(s.w, str)
}

// WriteIteration implements Sink.
func (s *MarkdownSink) WriteIteration(_ context.Context, r IterationReport) error {
	if !s.wroteHeader {
		s.writeString("# ACORN routing report\n\n")
		s.writeString("| iter | DRC cells | cost | non-pseudo length | multi-via nets | plateau | intervention |\n")
		s.writeString("|---|---|---|---|---|---|---|\n")
		s.wroteHeader = true
	}
	intervention := "-"
	switch {
	case r.SwappedTerminals:
		intervention = "swap-terminals"
	case r.ChangedViaSensitivity != 0:
		intervention = fmt.Sprintf("via-sensitivity(%+d)", r.ChangedViaSensitivity)
	case r.ChangedTraceSensitivity != 0:
		intervention = fmt.Sprintf("trace-sensitivity(%+d)", r.ChangedTraceSensitivity)
	case r.EnabledPseudoTraceCong:
		intervention = "pseudo-trace-congestion"
	}
	s.writeString(fmt.Sprintf("| %d | %d | %.2f | %d | %d | %t | %s |\n",
		r.Iteration, r.TotalDRCCells, r.TotalCost, r.TotalNonPseudoLength, r.MultiViaNetCount, r.InMetricsPlateau, intervention))
	return s.err
}

// Close implements Sink, returning any error accumulated across writes.
func (s *MarkdownSink) Close() error {
	return s.err
}
