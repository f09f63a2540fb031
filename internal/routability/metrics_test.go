package routability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSensitivityBreakpoint(t *testing.T) {
	assert.Equal(t, float64(0), SensitivityBreakpoint(0))
	assert.InDelta(t, 20*0.3010299957, SensitivityBreakpoint(2), 1e-6)
}

func TestCongestionPrefactorRegimes(t *testing.T) {
	l := SensitivityBreakpoint(100) // L = 40

	assert.Equal(t, earlyRegimePrefactor, CongestionPrefactor(1, l))
	assert.Equal(t, earlyRegimePrefactor, CongestionPrefactor(int(l), l))

	mid := int(l) + 10
	got := CongestionPrefactor(mid, l)
	assert.Greater(t, got, earlyRegimePrefactor)
	assert.Less(t, got, 1.0)

	assert.Equal(t, 1.0, CongestionPrefactor(int(5*l)+1, l))
}

func TestCongestionMultiplierScalesWithLevelAndEvapRate(t *testing.T) {
	l := SensitivityBreakpoint(10)
	low := CongestionMultiplier(1, l, 50, 1.0, 20)
	high := CongestionMultiplier(1, l, 100, 1.0, 20)
	assert.Greater(t, high, low)
}

func TestDRCFreeThreshold(t *testing.T) {
	assert.Equal(t, 5, DRCFreeThreshold(5, 0))
	// 35*log10(100) = 70
	assert.Equal(t, 75, DRCFreeThreshold(5, 100))
}

func TestStateRecordIterationTracksBestIterationMonotonically(t *testing.T) {
	s := NewState([]float64{10, 20, 30}, []float64{10, 20, 30})

	s.RecordIteration(IterationMetrics{Iteration: 1, TotalDRCCells: 5, TotalCost: 100}, false)
	require.Equal(t, 1, s.BestIteration)

	s.RecordIteration(IterationMetrics{Iteration: 2, TotalDRCCells: 8, TotalCost: 50}, false)
	assert.Equal(t, 1, s.BestIteration, "more DRC cells must never displace the incumbent")

	s.RecordIteration(IterationMetrics{Iteration: 3, TotalDRCCells: 5, TotalCost: 80}, false)
	assert.Equal(t, 3, s.BestIteration, "tie on DRC cells breaks on lower cost")

	s.RecordIteration(IterationMetrics{Iteration: 4, TotalDRCCells: 0, TotalCost: 200}, false)
	assert.Equal(t, 4, s.BestIteration, "fewer DRC cells always wins regardless of cost")
}

func TestStateRecordIterationExcludesIterationOneWhenCostMultipliersUsed(t *testing.T) {
	s := NewState([]float64{10}, []float64{10})

	s.RecordIteration(IterationMetrics{Iteration: 1, TotalDRCCells: 0, TotalCost: 10}, true)
	assert.Equal(t, 0, s.BestIteration, "iteration 1 must not be a best-iteration candidate when cost multipliers are in effect")

	s.RecordIteration(IterationMetrics{Iteration: 2, TotalDRCCells: 3, TotalCost: 500}, true)
	assert.Equal(t, 2, s.BestIteration)
}

func TestStateCumulativeDRCFreeIterationsAccumulates(t *testing.T) {
	s := NewState([]float64{10}, []float64{10})
	s.RecordIteration(IterationMetrics{Iteration: 1, TotalDRCCells: 0}, false)
	s.RecordIteration(IterationMetrics{Iteration: 2, TotalDRCCells: 2}, false)
	s.RecordIteration(IterationMetrics{Iteration: 3, TotalDRCCells: 0}, false)

	assert.Equal(t, 2, s.CumulativeDRCFreeIterations)
	assert.True(t, s.ThresholdMet(2))
	assert.False(t, s.ThresholdMet(3))
}

func TestStateDRCFreeFractionOverLast20WindowsAtTwenty(t *testing.T) {
	s := NewState([]float64{10}, []float64{10})
	for i := 1; i <= 25; i++ {
		drc := 0
		if i <= 5 {
			drc = 1 // only the first 5 (now outside the last-20 window) had DRCs
		}
		s.RecordIteration(IterationMetrics{Iteration: i, TotalDRCCells: drc}, false)
	}
	assert.Equal(t, 1.0, s.DRCFreeFractionOverLast20())
}
