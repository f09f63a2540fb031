package obsmetrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestInit(t *testing.T) {
	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg

	m := Init("test", "service")
	if m == nil {
		t.Fatal("Init returned nil")
	}
	if m.IterationsTotal == nil {
		t.Error("IterationsTotal should not be nil")
	}
	if m.NetsRoutedTotal == nil {
		t.Error("NetsRoutedTotal should not be nil")
	}
}

func TestGet(t *testing.T) {
	defaultMetrics = nil

	m := Get()
	if m == nil {
		t.Error("Get() should not return nil")
	}
	if m2 := Get(); m2 != m {
		t.Error("Get() should return same instance")
	}
}

func TestRecordIteration(t *testing.T) {
	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg

	m := Init("test", "iter")
	m.RecordIteration(100*time.Millisecond, 3, 452.5, 7, 1.8)
}

func TestRecordNetRouted(t *testing.T) {
	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg

	m := Init("test", "net")
	m.RecordNetRouted("real", true, 5*time.Millisecond)
	m.RecordNetRouted("pseudo", false, 1*time.Millisecond)
}

func TestRecordIntervention(t *testing.T) {
	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg

	m := Init("test", "intervention")
	m.RecordIntervention("swap_terminals")
}

func TestSetPlateau(t *testing.T) {
	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg

	m := Init("test", "plateau")
	m.SetPlateau("trace", true)
	m.SetPlateau("via", false)
}

func TestSetBandAge(t *testing.T) {
	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg

	m := Init("test", "bandage")
	m.SetBandAge("trace", 12)
	m.SetBandAge("via", 0)
}

func TestSetBuildInfo(t *testing.T) {
	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg

	m := Init("test", "info")
	m.SetBuildInfo("1.0.0")
}

func TestRuntimeCollector(t *testing.T) {
	c := NewRuntimeCollector("test", "runtime")

	descCh := make(chan *prometheus.Desc, 10)
	c.Describe(descCh)
	close(descCh)
	count := 0
	for range descCh {
		count++
	}
	if count < 5 {
		t.Errorf("expected at least 5 descriptors, got %d", count)
	}

	metricCh := make(chan prometheus.Metric, 10)
	c.Collect(metricCh)
	close(metricCh)
	count = 0
	for range metricCh {
		count++
	}
	if count < 5 {
		t.Errorf("expected at least 5 metrics, got %d", count)
	}
}

func TestTimer(t *testing.T) {
	histogram := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "test_duration",
		Buckets: []float64{.01, .1, 1},
	}, []string{"net_kind"})

	timer := NewTimer(histogram, "real")
	time.Sleep(10 * time.Millisecond)

	if d := timer.ObserveDuration(); d < 10*time.Millisecond {
		t.Errorf("duration = %v, expected >= 10ms", d)
	}
}

func TestHandler(t *testing.T) {
	if Handler() == nil {
		t.Error("Handler() should not return nil")
	}
}
