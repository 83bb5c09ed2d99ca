package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pocket-poker/models"
)

func contributor(id string, contributed int, active bool) *models.Seat {
	s := models.NewSeat(id, id, 0)
	s.TotalContributed = contributed
	s.IsActive = active
	return s
}

func TestPotCalculator_SimpleCase(t *testing.T) {
	pc := NewPotCalculator()
	pots := pc.CalculatePots([]*models.Seat{
		contributor("p1", 100, true),
		contributor("p2", 100, true),
		contributor("p3", 100, true),
	})

	require.Len(t, pots, 1)
	assert.Equal(t, 300, pots[0].Amount)
	assert.Equal(t, []string{"p1", "p2", "p3"}, pots[0].EligibleSeatIDs)
}

func TestPotCalculator_OneAllIn(t *testing.T) {
	pc := NewPotCalculator()
	pots := pc.CalculatePots([]*models.Seat{
		contributor("p1", 50, true),
		contributor("p2", 100, true),
		contributor("p3", 100, true),
	})

	require.Len(t, pots, 2)
	assert.Equal(t, 150, pots[0].Amount)
	assert.Equal(t, []string{"p1", "p2", "p3"}, pots[0].EligibleSeatIDs)
	assert.Equal(t, 100, pots[1].Amount)
	assert.Equal(t, []string{"p2", "p3"}, pots[1].EligibleSeatIDs)
}

func TestPotCalculator_MultipleAllIns(t *testing.T) {
	pc := NewPotCalculator()
	pots := pc.CalculatePots([]*models.Seat{
		contributor("p1", 25, true),
		contributor("p2", 75, true),
		contributor("p3", 150, true),
		contributor("p4", 150, true),
	})

	require.Len(t, pots, 3)
	assert.Equal(t, 100, pots[0].Amount)
	assert.Equal(t, 150, pots[1].Amount)
	assert.Equal(t, 150, pots[2].Amount)
	assert.Equal(t, []string{"p3", "p4"}, pots[2].EligibleSeatIDs)
}

func TestPotCalculator_WithFoldedPlayers(t *testing.T) {
	pc := NewPotCalculator()
	// p3 folded after putting in more than the all-in seat
	pots := pc.CalculatePots([]*models.Seat{
		contributor("p1", 50, true),
		contributor("p2", 200, true),
		contributor("p3", 120, false),
	})

	require.Len(t, pots, 2)
	assert.Equal(t, 150, pots[0].Amount)
	assert.Equal(t, []string{"p1", "p2"}, pots[0].EligibleSeatIDs)
	assert.Equal(t, 220, pots[1].Amount)
	assert.Equal(t, []string{"p2"}, pots[1].EligibleSeatIDs)
}

func TestPotCalculator_NoBets(t *testing.T) {
	pc := NewPotCalculator()
	pots := pc.CalculatePots([]*models.Seat{
		contributor("p1", 0, true),
		contributor("p2", 0, true),
	})
	assert.Empty(t, pots)
}

func TestPotCalculator_SplitWithOddChip(t *testing.T) {
	pc := NewPotCalculator()
	seats := []*models.Seat{
		contributor("p1", 0, true),
		contributor("p2", 0, true),
		contributor("p3", 0, true),
	}
	tie := &models.HandResult{Key: 5 << 20}
	seats[0].HandResult = tie
	seats[1].HandResult = &models.HandResult{Key: 1 << 20}
	seats[2].HandResult = tie

	pots := []models.SidePot{{Amount: 101, EligibleSeatIDs: []string{"p1", "p2", "p3"}}}

	// dealer p1: clockwise order is p2, p3, p1 so p3 gets the odd chip
	payouts, winners := pc.DistributeWinnings(pots, seats, 0)
	assert.Equal(t, 50, payouts["p1"])
	assert.Equal(t, 51, payouts["p3"])
	assert.Zero(t, payouts["p2"])
	assert.Equal(t, []string{"p1", "p3"}, winners)
}

func TestPotCalculator_SidePotGoesToEligibleBest(t *testing.T) {
	pc := NewPotCalculator()
	seats := []*models.Seat{
		contributor("short", 0, true),
		contributor("big1", 0, true),
		contributor("big2", 0, true),
	}
	seats[0].HandResult = &models.HandResult{Key: 9 << 20}
	seats[1].HandResult = &models.HandResult{Key: 3 << 20}
	seats[2].HandResult = &models.HandResult{Key: 2 << 20}

	pots := []models.SidePot{
		{Amount: 150, EligibleSeatIDs: []string{"short", "big1", "big2"}},
		{Amount: 400, EligibleSeatIDs: []string{"big1", "big2"}},
	}
	payouts, winners := pc.DistributeWinnings(pots, seats, 2)
	assert.Equal(t, 150, payouts["short"])
	assert.Equal(t, 400, payouts["big1"])
	assert.Equal(t, []string{"short", "big1"}, winners)
}

func TestPotCalculator_AllInBelowBigBlind(t *testing.T) {
	pc := NewPotCalculator()
	pots := pc.CalculatePots([]*models.Seat{
		contributor("p1", 5, true),
		contributor("p2", 100, true),
		contributor("p3", 100, true),
	})

	require.Len(t, pots, 2)
	assert.Equal(t, 15, pots[0].Amount)
	assert.Equal(t, 190, pots[1].Amount)
	assert.Equal(t, []string{"p2", "p3"}, pots[1].EligibleSeatIDs)
}

func TestPotCalculator_ThreeWayAllIn(t *testing.T) {
	pc := NewPotCalculator()
	pots := pc.CalculatePots([]*models.Seat{
		contributor("p1", 100, true),
		contributor("p2", 200, true),
		contributor("p3", 300, true),
	})

	require.Len(t, pots, 3)
	total := 0
	for _, p := range pots {
		total += p.Amount
	}
	assert.Equal(t, 600, total)
	assert.Equal(t, 300, pots[0].Amount)
	assert.Equal(t, []string{"p3"}, pots[2].EligibleSeatIDs)
}

func TestPotCalculator_AllFoldedButOne(t *testing.T) {
	pc := NewPotCalculator()
	pots := pc.CalculatePots([]*models.Seat{
		contributor("p1", 50, false),
		contributor("p2", 100, false),
		contributor("p3", 150, true),
	})

	require.Len(t, pots, 1)
	assert.Equal(t, 300, pots[0].Amount)
	assert.Equal(t, []string{"p3"}, pots[0].EligibleSeatIDs)
}

func TestPotCalculator_HeadsUpAllIn(t *testing.T) {
	pc := NewPotCalculator()
	pots := pc.CalculatePots([]*models.Seat{
		contributor("p1", 500, true),
		contributor("p2", 1000, true),
	})

	require.Len(t, pots, 2)
	assert.Equal(t, 1000, pots[0].Amount)
	assert.Equal(t, 500, pots[1].Amount, "the uncalled excess comes back through its own pot")
	assert.Equal(t, []string{"p2"}, pots[1].EligibleSeatIDs)
}
