package engine

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pocket-poker/models"
)

func testSettings() models.Settings {
	s := models.DefaultSettings()
	s.StartingChips = 1000
	return s
}

// newTestEngine seats players "A", "B", ... with the default stack.
func newTestEngine(t *testing.T, numPlayers int, settings models.Settings, opts ...Option) (*GameEngine, []*models.Seat) {
	t.Helper()
	seats := make([]*models.Seat, numPlayers)
	for i := range seats {
		id := string(rune('A' + i))
		seats[i] = models.NewSeat(id, "Player "+id, 0)
	}
	opts = append([]Option{WithRand(rand.New(rand.NewSource(int64(numPlayers))))}, opts...)
	e, err := NewGameEngine(settings, seats, opts...)
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e, seats
}

// setupTestGame starts the first hand right away.
func setupTestGame(t *testing.T, numPlayers int) *GameEngine {
	t.Helper()
	e, _ := newTestEngine(t, numPlayers, testSettings())
	require.NoError(t, e.StartHand())
	return e
}

func TestPreventDoubleActionSameRound(t *testing.T) {
	e := setupTestGame(t, 3)

	first := e.Snapshot().CurrentSeatID
	require.NoError(t, e.ApplyAction(first, models.ActionCall, 0))

	err := e.ApplyAction(first, models.ActionCheck, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotYourTurn))
	assert.True(t, errors.Is(err, ErrIllegalAction))
}

func TestHeadsUpRoundTransition(t *testing.T) {
	e := setupTestGame(t, 2)
	st := e.Snapshot()

	// dealer posts the small blind and acts first preflop
	require.Equal(t, "A", st.CurrentSeatID)
	require.NoError(t, e.ApplyAction("A", models.ActionCall, 0))

	st = e.Snapshot()
	require.Equal(t, models.PhasePreFlop, st.Phase)
	require.Equal(t, "B", st.CurrentSeatID)
	require.NoError(t, e.ApplyAction("B", models.ActionCheck, 0))

	st = e.Snapshot()
	assert.Equal(t, models.PhaseFlop, st.Phase)
	assert.Len(t, st.CommunityCards, 3)
	assert.Equal(t, "B", st.CurrentSeatID, "big blind acts first after the flop heads-up")
	assert.Equal(t, 0, st.MinBet)
	assert.Equal(t, 20, st.MinRaise)

	require.NoError(t, e.ApplyAction("B", models.ActionCheck, 0))
	require.NoError(t, e.ApplyAction("A", models.ActionCheck, 0))
	st = e.Snapshot()
	assert.Equal(t, models.PhaseTurn, st.Phase)
	assert.Len(t, st.CommunityCards, 4)
}

func TestThreePlayerRoundTransition(t *testing.T) {
	e := setupTestGame(t, 3)
	st := e.Snapshot()

	// seat three past the dealer wraps around to the dealer with three players
	require.Equal(t, "A", st.CurrentSeatID)
	require.NoError(t, e.ApplyAction("A", models.ActionCall, 0))
	require.NoError(t, e.ApplyAction("B", models.ActionCall, 0))
	require.NoError(t, e.ApplyAction("C", models.ActionCheck, 0))

	st = e.Snapshot()
	assert.Equal(t, models.PhaseFlop, st.Phase)
	assert.Equal(t, 60, st.Pot)
	assert.Equal(t, "B", st.CurrentSeatID)
	for _, s := range st.Seats {
		assert.Equal(t, 0, s.CurrentBet)
		assert.False(t, s.HasActed)
	}
}

func TestTurnValidatorEdgeCases(t *testing.T) {
	e, _ := newTestEngine(t, 3, testSettings())

	err := e.ApplyAction("A", models.ActionCheck, 0)
	assert.True(t, errors.Is(err, ErrNoHandInProgress))

	require.NoError(t, e.StartHand())

	err = e.ApplyAction("Z", models.ActionFold, 0)
	assert.True(t, errors.Is(err, ErrSeatNotFound))

	err = e.ApplyAction("A", models.ActionType("SHOUT"), 0)
	assert.True(t, errors.Is(err, ErrUnknownAction))
	assert.True(t, errors.Is(err, ErrIllegalAction))

	require.NoError(t, e.ApplyAction("A", models.ActionFold, 0))
	err = e.ApplyAction("A", models.ActionFold, 0)
	assert.True(t, errors.Is(err, ErrNotYourTurn))
}

func TestActionSequenceIncrement(t *testing.T) {
	e := setupTestGame(t, 2)
	before := e.Snapshot().Sequence

	require.NoError(t, e.ApplyAction("A", models.ActionCall, 0))
	assert.Equal(t, before+1, e.Snapshot().Sequence)

	// rejected actions do not bump the sequence
	_ = e.ApplyAction("A", models.ActionCall, 0)
	assert.Equal(t, before+1, e.Snapshot().Sequence)
}
