package routability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBandHasFullWindowAtTwentySamples(t *testing.T) {
	b := &Band{}
	b.Enter(1)
	for i := 1; i <= 19; i++ {
		b.Observe(i, Sample{DRCFree: true})
		assert.False(t, b.HasFullWindow())
	}
	b.Observe(20, Sample{DRCFree: true})
	assert.True(t, b.HasFullWindow())
}

func TestBandObserveDropsOldestBeyondWindow(t *testing.T) {
	b := &Band{}
	b.Enter(1)
	for i := 1; i <= 25; i++ {
		b.Observe(i, Sample{DRCFree: i > 5}) // first 5 samples are DRC-holding
	}
	// Only the most recent 20 (iterations 6..25) remain, all DRC-free.
	assert.Equal(t, 1.0, b.DRCFreeFraction())
}

func TestBandEnterResetsWindow(t *testing.T) {
	b := &Band{}
	b.Enter(1)
	b.Observe(1, Sample{DRCFree: false})
	b.Observe(2, Sample{DRCFree: false})
	require.Equal(t, 0.0, b.DRCFreeFraction())

	b.Enter(3)
	assert.Equal(t, 0.0, b.DRCFreeFraction(), "an empty window reports zero, not stale history")
}

func TestBandStableTreatsZeroMeanAsStable(t *testing.T) {
	b := &Band{}
	b.Enter(1)
	for i := 1; i <= 20; i++ {
		b.Observe(i, Sample{DRCFree: true, DRCNets: 0, Cost: 0})
	}
	assert.True(t, b.Stable(PlateauStabilityFraction))
}

func TestBandStableFalseWhenNoisy(t *testing.T) {
	b := &Band{}
	b.Enter(1)
	vals := []float64{1, 100, 1, 100, 1, 100, 1, 100, 1, 100, 1, 100, 1, 100, 1, 100, 1, 100, 1, 100}
	for i, v := range vals {
		b.Observe(i+1, Sample{DRCNets: v, Cost: 50})
	}
	assert.False(t, b.Stable(PlateauStabilityFraction))
}

func TestLadderIncreaseDecreaseClampsAtEdges(t *testing.T) {
	l := NewLadder([]float64{10, 20, 30})

	assert.True(t, l.AtBottom())
	assert.False(t, l.Decrease(1))

	require.True(t, l.Increase(2))
	require.True(t, l.Increase(3))
	assert.True(t, l.AtTop())
	assert.False(t, l.Increase(4))

	require.True(t, l.Decrease(5))
	assert.Equal(t, float64(20), l.CurrentBand().Level)
}

func TestLadderIncreaseEntersFreshBand(t *testing.T) {
	l := NewLadder([]float64{10, 20})
	l.CurrentBand().Observe(1, Sample{DRCFree: true})
	l.Increase(2)
	assert.Equal(t, 0.0, l.CurrentBand().DRCFreeFraction())
	assert.Equal(t, 2, l.CurrentBand().LastEntered)
}
