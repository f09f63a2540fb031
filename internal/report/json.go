package report

import (
	"context"
	"encoding/json"
	"io"

	"github.com/danboyne/acorn/internal/netlist"
)

// JSONSink writes one JSON object per iteration as a line (JSON Lines),
// which lets a consumer tail the report file while a long run is still in
// progress rather than waiting for a single top-level array to close.
type JSONSink struct {
	w       io.Writer
	enc     *json.Encoder
}

// NewJSONSink wraps w. The caller owns w's lifecycle: Close is a no-op and
// never closes w, even when w is also an io.Closer.
func NewJSONSink(w io.Writer) *JSONSink {
	return &JSONSink{w: w, enc: json.NewEncoder(w)}
}

type jsonIterationRecord struct {
	Iteration               int         `json:"iteration"`
	TotalDRCCells           int         `json:"totalDrcCells"`
	TotalCost               float64     `json:"totalCost"`
	TotalNonPseudoLength    int         `json:"totalNonPseudoLength"`
	TotalNonPseudoDRCells   int         `json:"totalNonPseudoDrcCells"`
	ElapsedSeconds          float64     `json:"elapsedSeconds"`
	SwappedTerminals        bool        `json:"swappedTerminals"`
	ChangedViaSensitivity   int         `json:"changedViaSensitivity"`
	ChangedTraceSensitivity int         `json:"changedTraceSensitivity"`
	EnabledPseudoTraceCong  bool        `json:"enabledPseudoTraceCongestion"`
	BestIterationSoFar      int         `json:"bestIterationSoFar"`
	InMetricsPlateau        bool        `json:"inMetricsPlateau"`
	DRCDetails              []DRCDetail `json:"drcDetails,omitempty"`
	DRCDetailsTotal         int         `json:"drcDetailsTotal"`

	NetViaCounts     map[netlist.NetID]int `json:"netViaCounts,omitempty"`
	MultiViaNetCount int                   `json:"multiViaNetCount"`
}

// WriteIteration implements Sink.
func (s *JSONSink) WriteIteration(_ context.Context, r IterationReport) error {
	rec := jsonIterationRecord{
		Iteration:               r.Iteration,
		TotalDRCCells:           r.TotalDRCCells,
		TotalCost:               r.TotalCost,
		TotalNonPseudoLength:    r.TotalNonPseudoLength,
		TotalNonPseudoDRCells:   r.TotalNonPseudoDRCells,
		ElapsedSeconds:          r.ElapsedSeconds,
		SwappedTerminals:        r.SwappedTerminals,
		ChangedViaSensitivity:   r.ChangedViaSensitivity,
		ChangedTraceSensitivity: r.ChangedTraceSensitivity,
		EnabledPseudoTraceCong:  r.EnabledPseudoTraceCong,
		BestIterationSoFar:      r.BestIterationSoFar,
		InMetricsPlateau:        r.InMetricsPlateau,
		DRCDetails:              r.DRCDetails,
		DRCDetailsTotal:         r.DRCDetailsTotal,
		NetViaCounts:            r.NetViaCounts,
		MultiViaNetCount:        r.MultiViaNetCount,
	}
	return s.enc.Encode(rec)
}

// Close implements Sink. JSONSink holds no resources of its own beyond the
// writer it was given, so this is a no-op.
func (s *JSONSink) Close() error {
	return nil
}
