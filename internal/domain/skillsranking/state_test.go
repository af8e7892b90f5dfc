package skillsranking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStateSeedsInitialPhase(t *testing.T) {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	state := NewState(42, Group1, started)

	assert.Equal(t, 42, state.SessionID)
	assert.Equal(t, Group1, state.ExperimentGroup)
	require.Len(t, state.Phases, 1)
	assert.Equal(t, PhaseInitial, state.CurrentPhase())
	assert.Equal(t, started, state.StartedAt)
	assert.False(t, state.Completed())
}

func TestAdvanceAppendsMonotonically(t *testing.T) {
	state := NewState(1, Group2, time.Now().UTC())
	path := []Phase{PhaseBriefing, PhaseProofOfValue, PhaseMarketDisclosure, PhasePerceivedRank, PhaseCompleted}

	for i, next := range path {
		at := time.Now().UTC().Add(time.Duration(i) * time.Second)
		require.NoError(t, state.Advance(next, at))
		assert.Equal(t, next, state.CurrentPhase())
		assert.Len(t, state.Phases, i+2)
	}

	assert.True(t, state.Completed())
}

func TestAdvanceRejectsOutOfGraphPhase(t *testing.T) {
	state := NewState(1, Group3, time.Now().UTC())
	require.NoError(t, state.Advance(PhaseBriefing, time.Now().UTC()))
	require.NoError(t, state.Advance(PhaseProofOfValue, time.Now().UTC()))

	// Group 3 never passes through the market disclosure.
	err := state.Advance(PhaseMarketDisclosure, time.Now().UTC())
	require.Error(t, err)
	assert.Len(t, state.Phases, 3, "rejected transition must not grow the history")
	assert.Equal(t, PhaseProofOfValue, state.CurrentPhase())
}

func TestAdvanceRejectsUnknownPhase(t *testing.T) {
	state := NewState(1, Group1, time.Now().UTC())
	require.Error(t, state.Advance(Phase("WARMUP"), time.Now().UTC()))
}

func TestAdvanceRejectsSkippingAhead(t *testing.T) {
	state := NewState(1, Group1, time.Now().UTC())
	require.NoError(t, state.Advance(PhaseBriefing, time.Now().UTC()))

	err := state.Advance(PhasePerceivedRank, time.Now().UTC())
	require.Error(t, err)
}

func TestCloneIsIndependent(t *testing.T) {
	state := NewState(7, Group1, time.Now().UTC())
	require.NoError(t, state.Advance(PhaseBriefing, time.Now().UTC()))
	state.Score = &Score{
		JobsMatchedPercentage: 61,
		ComparisonRank:        2,
		ComparisonLabel:       "top",
		DemandLabels:          []string{"communication"},
		CalculatedAt:          time.Now().UTC(),
	}

	clone := state.Clone()
	require.NoError(t, clone.Advance(PhaseProofOfValue, time.Now().UTC()))
	clone.Score.DemandLabels[0] = "negotiation"
	clone.Score.ComparisonRank = 9

	assert.Equal(t, PhaseBriefing, state.CurrentPhase())
	assert.Equal(t, "communication", state.Score.DemandLabels[0])
	assert.Equal(t, 2, state.Score.ComparisonRank)
}

func TestCloneNil(t *testing.T) {
	var state *State
	assert.Nil(t, state.Clone())
}
