// Command acorn routes a netlist onto a multi-layer grid per the board file
// named on the command line, reporting progress iteration by iteration until
// the DRC-free threshold is met or the iteration cap is reached.
//
// Usage:
//
//	acorn [-t num_threads] [-config path] [-metrics-addr addr] input_filename
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/danboyne/acorn/internal/acornlog"
	"github.com/danboyne/acorn/internal/apperror"
	"github.com/danboyne/acorn/internal/boardfile"
	"github.com/danboyne/acorn/internal/config"
	"github.com/danboyne/acorn/internal/controller"
	"github.com/danboyne/acorn/internal/diffpair"
	"github.com/danboyne/acorn/internal/obsmetrics"
	"github.com/danboyne/acorn/internal/pathfinder/astar"
	"github.com/danboyne/acorn/internal/report"
)

// exit codes per spec.md §6/§7: 0 on success (including the soft failure of
// reaching the iteration cap without meeting the DRC-free threshold), 1 on
// every configuration-fatal or iteration-fatal condition.
const (
	exitOK    = 0
	exitFatal = 1
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("acorn", flag.ContinueOnError)
	numThreads := fs.Int("t", 0, "number of worker threads (0 = one per logical CPU)")
	configPath := fs.String("config", "", "optional engine configuration file (YAML)")
	metricsAddr := fs.String("metrics-addr", "", "address to serve Prometheus /metrics on (empty disables)")
	if err := fs.Parse(args); err != nil {
		return exitFatal
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: acorn [-t num_threads] [-config path] [-metrics-addr addr] input_filename")
		return exitFatal
	}
	inputFilename := fs.Arg(0)

	loaderOpts := []config.LoaderOption{}
	if *configPath != "" {
		loaderOpts = append(loaderOpts, config.WithConfigPaths(*configPath))
	}
	cfg, err := config.NewLoader(loaderOpts...).Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "acorn: loading configuration: %v\n", err)
		return exitFatal
	}
	acornlog.InitWithConfig(cfg.Log)

	if *metricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = *metricsAddr
	}
	var metrics *obsmetrics.Metrics
	if cfg.Metrics.Enabled {
		metrics = obsmetrics.Init("acorn", "")
		go func() {
			if err := obsmetrics.StartServer(cfg.Metrics.Addr); err != nil {
				acornlog.Warn("metrics server stopped", "error", err)
			}
		}()
	}

	scenario, err := boardfile.Load(inputFilename)
	if err != nil {
		acornlog.Error("loading board file", "filename", inputFilename, "error", err)
		return exitFatal
	}

	numThreadsFinal := *numThreads
	if numThreadsFinal == 0 {
		numThreadsFinal = cfg.Engine.NumThreads
	}

	sink, closeSink, err := buildSink(cfg.Report)
	if err != nil {
		acornlog.Error("building report sink", "error", err)
		return exitFatal
	}
	defer closeSink()

	traceSens := cfg.Engine.TraceSensitivityLevels
	viaSens := cfg.Engine.ViaSensitivityLevels
	if len(traceSens) == 0 {
		traceSens = []float64{0, 25, 50, 75, 100}
	}
	if len(viaSens) == 0 {
		viaSens = []float64{0, 25, 50, 75, 100}
	}

	ctrl := controller.New(controller.Config{
		Grid:                     scenario.Grid,
		Netlist:                  scenario.Netlist,
		Rules:                    scenario.Rules,
		Pitches:                  scenario.Pitches,
		Pathfinder:               astar.Finder{},
		DiffPairExpander:         diffpair.ReferenceExpander{},
		Sink:                     sink,
		Metrics:                  metrics,
		MaxIterations:            scenario.MaxIterations,
		PreEvaporationIterations: scenario.PreEvaporationIterations,
		DefaultEvapRate:          scenario.DefaultEvapRate,
		DefaultCellCost:          scenario.DefaultCellCost,
		UserDRCFreeThreshold:     scenario.UserDRCFreeThreshold,
		MaxRecordedDRCs:          cfg.Report.MaxRecordedDRCs,
		NumThreads:               numThreadsFinal,
		TraceSensitivityLevels:   traceSens,
		ViaSensitivityLevels:     viaSens,
	})

	result, err := ctrl.Run(context.Background())
	if err != nil {
		acornlog.Error("controller run failed", "error", err, "code", apperror.CodeOf(err))
		return exitFatal
	}

	acornlog.Info("routing finished",
		"iterations", result.Iterations,
		"best_iteration", result.BestIteration,
		"terminated", result.Terminated,
		"design_rule_conflict", scenario.DesignRuleConflict,
	)

	// A design-rule conflict forces the single diagnostic iteration just run
	// rather than aborting before any report exists, but the run still ends
	// in a fatal exit code (spec.md §6 scenario 6: "diagnostic exit").
	if scenario.DesignRuleConflict {
		return exitFatal
	}
	return exitOK
}

// buildSink wires every configured report sink behind a single
// report.MultiSink, defaulting to JSON-on-stdout when nothing is configured
// so the CLI always produces visible output. The returned close func closes
// the files opened for the file-backed sinks; the sinks themselves, the
// Postgres sink included, are closed through the returned Sink's Close.
func buildSink(cfg config.ReportConfig) (report.Sink, func(), error) {
	var sinks []report.Sink
	var files []*os.File

	if cfg.JSONPath != "" {
		f, err := os.Create(cfg.JSONPath)
		if err != nil {
			return nil, nil, err
		}
		files = append(files, f)
		sinks = append(sinks, report.NewJSONSink(f))
	}
	if cfg.CSVPath != "" {
		f, err := os.Create(cfg.CSVPath)
		if err != nil {
			return nil, nil, err
		}
		files = append(files, f)
		sinks = append(sinks, report.NewCSVSink(f))
	}
	if cfg.MarkdownPath != "" {
		f, err := os.Create(cfg.MarkdownPath)
		if err != nil {
			return nil, nil, err
		}
		files = append(files, f)
		sinks = append(sinks, report.NewMarkdownSink(f))
	}
	if cfg.PostgresDSN != "" {
		pg, err := report.NewPostgresSink(context.Background(), cfg.PostgresDSN, "cli-run")
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, pg)
	}
	if len(sinks) == 0 {
		sinks = append(sinks, report.NewJSONSink(os.Stdout))
	}

	closeFn := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}
	return report.MultiSink{Sinks: sinks}, closeFn, nil
}
