// Package obsmetrics exports ACORN's routing-loop progress as Prometheus
// metrics, grounded on the teacher's pkg/metrics: the same promauto-built
// container, global-accessor, and /metrics-plus-/health HTTP server shape,
// generalized from gRPC/solver-service metrics to per-iteration routing
// metrics (nets routed, DRC cells, congestion, interventions, plateaus).
package obsmetrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the process-wide metrics container.
type Metrics struct {
	IterationsTotal  prometheus.Counter
	IterationDuration prometheus.Histogram

	NetsRoutedTotal   *prometheus.CounterVec
	PathfindDuration  *prometheus.HistogramVec

	DRCCellsGauge        prometheus.Gauge
	TotalCostGauge        prometheus.Gauge
	BestIterationGauge    prometheus.Gauge
	CongestionMultiplier  prometheus.Gauge

	InterventionsTotal *prometheus.CounterVec
	InPlateau          *prometheus.GaugeVec
	BandAge            *prometheus.GaugeVec

	ServiceInfo *prometheus.GaugeVec
}

var defaultMetrics *Metrics

// Init builds the Metrics container and registers it with the default
// Prometheus registry under namespace/subsystem.
func Init(namespace, subsystem string) *Metrics {
	m := &Metrics{
		IterationsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "iterations_total", Help: "Total number of controller iterations run",
		}),
		IterationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name:    "iteration_duration_seconds",
			Help:    "Wall-clock duration of one controller iteration",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}),

		NetsRoutedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "nets_routed_total", Help: "Total pathfinding attempts by outcome",
		}, []string{"status"}),
		PathfindDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name:    "pathfind_duration_seconds",
			Help:    "Duration of a single net's A* search",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"net_kind"}),

		DRCCellsGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "drc_cells", Help: "Total DRC-flagged cells in the current iteration",
		}),
		TotalCostGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "total_cost", Help: "Total routed cost in the current iteration",
		}),
		BestIterationGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "best_iteration", Help: "Index of the best iteration seen so far",
		}),
		CongestionMultiplier: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "congestion_multiplier", Help: "Congestion-deposit multiplier applied this iteration",
		}),

		InterventionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "interventions_total", Help: "Algorithm-change interventions applied, by kind",
		}, []string{"kind"}),
		InPlateau: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "in_plateau", Help: "Whether a sensitivity band is currently in a metrics plateau (1) or not (0)",
		}, []string{"band"}),
		BandAge: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "band_age_iterations", Help: "Iterations accrued since the current sensitivity band was entered",
		}, []string{"band"}),

		ServiceInfo: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "build_info", Help: "Build information",
		}, []string{"version"}),
	}

	defaultMetrics = m
	return m
}

// Get returns the global metrics container, lazily initializing it with
// ACORN defaults if Init was never called.
func Get() *Metrics {
	if defaultMetrics == nil {
		return Init("acorn", "")
	}
	return defaultMetrics
}

// RecordIteration records one controller-iteration's summary metrics.
func (m *Metrics) RecordIteration(duration time.Duration, drcCells int, totalCost float64, bestIteration int, congestionMultiplier float64) {
	m.IterationsTotal.Inc()
	m.IterationDuration.Observe(duration.Seconds())
	m.DRCCellsGauge.Set(float64(drcCells))
	m.TotalCostGauge.Set(totalCost)
	m.BestIterationGauge.Set(float64(bestIteration))
	m.CongestionMultiplier.Set(congestionMultiplier)
}

// RecordNetRouted records one net's pathfinding outcome and duration.
func (m *Metrics) RecordNetRouted(netKind string, drcFree bool, duration time.Duration) {
	status := "drc_free"
	if !drcFree {
		status = "has_drc"
	}
	m.NetsRoutedTotal.WithLabelValues(status).Inc()
	m.PathfindDuration.WithLabelValues(netKind).Observe(duration.Seconds())
}

// RecordIntervention records one applied intervention by kind name.
func (m *Metrics) RecordIntervention(kind string) {
	m.InterventionsTotal.WithLabelValues(kind).Inc()
}

// SetPlateau records whether the named sensitivity band is currently
// plateaued.
func (m *Metrics) SetPlateau(band string, inPlateau bool) {
	v := 0.0
	if inPlateau {
		v = 1.0
	}
	m.InPlateau.WithLabelValues(band).Set(v)
}

// SetBandAge records how many iterations have accrued since the named
// sensitivity band (trace or via) was last entered.
func (m *Metrics) SetBandAge(band string, age float64) {
	m.BandAge.WithLabelValues(band).Set(age)
}

// SetBuildInfo publishes the build version as a constant gauge.
func (m *Metrics) SetBuildInfo(version string) {
	m.ServiceInfo.WithLabelValues(version).Set(1)
}

// Handler returns the HTTP handler serving /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// StartServer runs the /metrics and /health HTTP endpoints on addr, blocking
// until the server stops or errors. Callers typically run it in a goroutine.
func StartServer(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return server.ListenAndServe()
}
