package intervention

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danboyne/acorn/internal/netlist"
	"github.com/danboyne/acorn/internal/plateau"
	"github.com/danboyne/acorn/internal/routability"
)

func plateauState() *routability.State {
	s := routability.NewState([]float64{10, 20, 30}, []float64{10, 20, 30})
	for i := 1; i <= 20; i++ {
		s.RecordIteration(routability.IterationMetrics{Iteration: i, TotalDRCCells: 1, TotalNonPseudoDRCells: 1, TotalCost: 10}, false)
	}
	return s
}

func inPlateau() plateau.Status {
	return plateau.Status{TraceInPlateau: true, ViaInPlateau: true}
}

func TestSelectNoneWhenNotInPlateau(t *testing.T) {
	s := plateauState()
	d := Select(100, s, plateau.Status{}, Inputs{})
	assert.Equal(t, None, d.Kind)
}

func TestSelectNoneWithinCooldown(t *testing.T) {
	s := plateauState()
	s.LastInterventionAt = 90
	d := Select(100, s, inPlateau(), Inputs{SwapEligibleDRCNets: []netlist.NetID{1}})
	assert.Equal(t, None, d.Kind, "fewer than 60 iterations since the last intervention must suppress every intervention")
}

func TestSelectSwapTerminalsWhenEligibleAndDRCFreeFractionLow(t *testing.T) {
	s := plateauState() // 0/20 DRC-free (every recorded iteration had a DRC)
	d := Select(100, s, inPlateau(), Inputs{SwapEligibleDRCNets: []netlist.NetID{1, 2}})
	require.Equal(t, SwapTerminals, d.Kind)
	assert.ElementsMatch(t, []netlist.NetID{1, 2}, d.SwapNets)
}

func TestSelectViaSensitivityOutranksSwapOnceEligible(t *testing.T) {
	s := plateauState()
	s.SwapRounds = 3
	d := Select(100, s, inPlateau(), Inputs{SwapEligibleDRCNets: []netlist.NetID{1}})
	require.Equal(t, ChangeViaSensitivity, d.Kind)
	assert.Equal(t, Increase, d.Direction)
}

func TestSelectPseudoTraceCongestionOutranksSensitivityChange(t *testing.T) {
	s := plateauState()
	s.SwapRounds = 3
	s.SensitivityDecreases = 1
	pairs := []PseudoPair{{PseudoNet: 5, Layer: 2}}
	d := Select(100, s, inPlateau(), Inputs{
		NumLayers:       3,
		QualifyingPairs: pairs,
	})
	require.Equal(t, EnablePseudoTraceCongestion, d.Kind)
	assert.Equal(t, pairs, d.Pairs)
	assert.True(t, d.NewlyToggled)
}

func TestSelectPseudoTraceCongestionRequiresPriorSensitivityReduction(t *testing.T) {
	s := plateauState()
	s.SwapRounds = 3
	pairs := []PseudoPair{{PseudoNet: 5, Layer: 2}}
	d := Select(100, s, inPlateau(), Inputs{
		NumLayers:       3,
		QualifyingPairs: pairs,
	})
	assert.NotEqual(t, EnablePseudoTraceCongestion, d.Kind, "must not fire before any congestion-sensitivity reduction has occurred")
}

func TestNextDirectionReversesAtTop(t *testing.T) {
	ladder := routability.NewLadder([]float64{10, 20})
	ladder.Increase(1)
	require.True(t, ladder.AtTop())

	dir, ok := nextDirection(&ladder, 1)
	require.True(t, ok)
	assert.Equal(t, -1, dir, "must reverse once the top of the ladder is reached")
}

func TestThresholdMetSuppressesAllInterventions(t *testing.T) {
	s := plateauState()
	d := Select(100, s, inPlateau(), Inputs{ThresholdMet: true, SwapEligibleDRCNets: []netlist.NetID{1}})
	assert.Equal(t, None, d.Kind)
}
