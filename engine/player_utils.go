package engine

import (
	"github.com/thoas/go-funk"

	"pocket-poker/models"
)

type SeatFilter func(*models.Seat) bool

func isActive(s *models.Seat) bool {
	return s != nil && s.IsActive
}

func canAct(s *models.Seat) bool {
	return s != nil && s.CanAct()
}

func hasChips(s *models.Seat) bool {
	return s != nil && s.Chips > 0 && !s.HasLeft
}

// needsToAct is true for a seat that has not acted or has not matched the highest bet.
func needsToAct(highest int) SeatFilter {
	return func(s *models.Seat) bool {
		return canAct(s) && (!s.HasActed || s.CurrentBet < highest)
	}
}

func filterSeats(seats []*models.Seat, filter SeatFilter) []*models.Seat {
	return funk.Filter(seats, func(s *models.Seat) bool { return filter(s) }).([]*models.Seat)
}

func countSeats(seats []*models.Seat, filter SeatFilter) int {
	return len(filterSeats(seats, filter))
}

func seatIDs(seats []*models.Seat) []string {
	return funk.Map(seats, func(s *models.Seat) string { return s.ID }).([]string)
}

func resetSeatsForNewRound(seats []*models.Seat) {
	for _, s := range seats {
		s.CurrentBet = 0
		s.HasActed = false
	}
}

func reopenBetting(seats []*models.Seat, except *models.Seat) {
	for _, s := range seats {
		if s != except && canAct(s) {
			s.HasActed = false
		}
	}
}
