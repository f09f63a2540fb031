package report

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danboyne/acorn/internal/netlist"
)

func sampleReport() IterationReport {
	return IterationReport{
		Iteration:            3,
		TotalDRCCells:        2,
		TotalCost:            123.5,
		TotalNonPseudoLength: 40,
		InMetricsPlateau:     true,
		ChangedViaSensitivity: 1,
	}
}

func TestJSONSinkWritesOneLinePerIteration(t *testing.T) {
	var buf bytes.Buffer
	s := NewJSONSink(&buf)

	require.NoError(t, s.WriteIteration(context.Background(), sampleReport()))
	require.NoError(t, s.WriteIteration(context.Background(), sampleReport()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"iteration":3`)
	assert.Contains(t, lines[0], `"changedViaSensitivity":1`)
}

func TestJSONSinkIncludesPerNetViaCounts(t *testing.T) {
	var buf bytes.Buffer
	s := NewJSONSink(&buf)

	r := sampleReport()
	r.NetViaCounts = map[netlist.NetID]int{0: 3}
	r.MultiViaNetCount = 1
	require.NoError(t, s.WriteIteration(context.Background(), r))

	out := buf.String()
	assert.Contains(t, out, `"multiViaNetCount":1`)
	assert.Contains(t, out, `"netViaCounts"`)
}

func TestCSVSinkWritesHeaderOnce(t *testing.T) {
	var buf bytes.Buffer
	s := NewCSVSink(&buf)

	require.NoError(t, s.WriteIteration(context.Background(), sampleReport()))
	require.NoError(t, s.WriteIteration(context.Background(), sampleReport()))
	require.NoError(t, s.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3) // header + 2 rows
	assert.Equal(t, "iteration,total_drc_cells,total_cost,total_nonpseudo_length,total_nonpseudo_drc_cells,elapsed_seconds,swapped_terminals,changed_via_sensitivity,changed_trace_sensitivity,enabled_pseudo_trace_congestion,best_iteration_so_far,in_metrics_plateau,drc_details_total,multi_via_net_count", lines[0])
}

func TestMarkdownSinkWritesTableHeaderOnce(t *testing.T) {
	var buf bytes.Buffer
	s := NewMarkdownSink(&buf)

	require.NoError(t, s.WriteIteration(context.Background(), sampleReport()))
	require.NoError(t, s.WriteIteration(context.Background(), sampleReport()))

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "# ACORN routing report"))
	assert.Equal(t, 2, strings.Count(out, "via-sensitivity(+1)"))
}

func TestMultiSinkFansOutToEverySink(t *testing.T) {
	var a, b bytes.Buffer
	m := MultiSink{Sinks: []Sink{NewJSONSink(&a), NewCSVSink(&b)}}

	require.NoError(t, m.WriteIteration(context.Background(), sampleReport()))
	require.NoError(t, m.Close())

	assert.NotEmpty(t, a.String())
	assert.NotEmpty(t, b.String())
}
