package report

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSink persists each iteration's report row to a Postgres table,
// for deployments that want query access across runs instead of (or beside)
// a flat-file sink. It is optional per spec.md §6's "persisted state: none
// beyond the report artifacts" — the core never requires it, and the CLI
// only constructs one when a connection string is configured.
type PostgresSink struct {
	pool    *pgxpool.Pool
	runID   string
}

// NewPostgresSink connects to connString and ensures the report table
// exists, tagging every row with runID so multiple runs can share one
// table.
func NewPostgresSink(ctx context.Context, connString, runID string) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("report: connecting to postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, createIterationReportsTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("report: ensuring schema: %w", err)
	}
	return &PostgresSink{pool: pool, runID: runID}, nil
}

const createIterationReportsTable = `
CREATE TABLE IF NOT EXISTS acorn_iteration_reports (
	run_id                    TEXT NOT NULL,
	iteration                 INTEGER NOT NULL,
	total_drc_cells           INTEGER NOT NULL,
	total_cost                DOUBLE PRECISION NOT NULL,
	total_nonpseudo_length    INTEGER NOT NULL,
	total_nonpseudo_drc_cells INTEGER NOT NULL,
	elapsed_seconds           DOUBLE PRECISION NOT NULL,
	swapped_terminals         BOOLEAN NOT NULL,
	changed_via_sensitivity   INTEGER NOT NULL,
	changed_trace_sensitivity INTEGER NOT NULL,
	enabled_pseudo_trace_cong BOOLEAN NOT NULL,
	best_iteration_so_far     INTEGER NOT NULL,
	in_metrics_plateau        BOOLEAN NOT NULL,
	drc_details_total         INTEGER NOT NULL,
	PRIMARY KEY (run_id, iteration)
)`

// WriteIteration implements Sink.
func (s *PostgresSink) WriteIteration(ctx context.Context, r IterationReport) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO acorn_iteration_reports (
	run_id, iteration, total_drc_cells, total_cost, total_nonpseudo_length,
	total_nonpseudo_drc_cells, elapsed_seconds, swapped_terminals,
	changed_via_sensitivity, changed_trace_sensitivity, enabled_pseudo_trace_cong,
	best_iteration_so_far, in_metrics_plateau, drc_details_total
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
ON CONFLICT (run_id, iteration) DO UPDATE SET
	total_drc_cells = EXCLUDED.total_drc_cells,
	total_cost = EXCLUDED.total_cost,
	total_nonpseudo_length = EXCLUDED.total_nonpseudo_length,
	total_nonpseudo_drc_cells = EXCLUDED.total_nonpseudo_drc_cells,
	elapsed_seconds = EXCLUDED.elapsed_seconds,
	swapped_terminals = EXCLUDED.swapped_terminals,
	changed_via_sensitivity = EXCLUDED.changed_via_sensitivity,
	changed_trace_sensitivity = EXCLUDED.changed_trace_sensitivity,
	enabled_pseudo_trace_cong = EXCLUDED.enabled_pseudo_trace_cong,
	best_iteration_so_far = EXCLUDED.best_iteration_so_far,
	in_metrics_plateau = EXCLUDED.in_metrics_plateau,
	drc_details_total = EXCLUDED.drc_details_total
`, s.runID, r.Iteration, r.TotalDRCCells, r.TotalCost, r.TotalNonPseudoLength,
		r.TotalNonPseudoDRCells, r.ElapsedSeconds, r.SwappedTerminals,
		r.ChangedViaSensitivity, r.ChangedTraceSensitivity, r.EnabledPseudoTraceCong,
		r.BestIterationSoFar, r.InMetricsPlateau, r.DRCDetailsTotal)
	if err != nil {
		return fmt.Errorf("report: inserting iteration %d: %w", r.Iteration, err)
	}
	return nil
}

// Close implements Sink, releasing the connection pool.
func (s *PostgresSink) Close() error {
	s.pool.Close()
	return nil
}
