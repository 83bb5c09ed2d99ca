package engine

import (
	"fmt"

	"pocket-poker/models"
)

// TurnValidator checks that a seat may act right now.
type TurnValidator struct {
	state *models.GameState
}

func NewTurnValidator(state *models.GameState) *TurnValidator {
	return &TurnValidator{state: state}
}

func (tv *TurnValidator) ValidateTurn(seatID string) (*models.Seat, error) {
	if !tv.state.Phase.IsBetting() {
		return nil, reject(ErrNoHandInProgress)
	}

	seat := tv.state.SeatByID(seatID)
	if seat == nil {
		return nil, reject(fmt.Errorf("%w: %s", ErrSeatNotFound, seatID))
	}

	if tv.state.CurrentSeatID != seatID {
		return nil, reject(fmt.Errorf("%w (current: %s, requested: %s)",
			ErrNotYourTurn, tv.state.CurrentSeatID, seatID))
	}

	if !seat.IsActive {
		return nil, reject(fmt.Errorf("%w: seat has folded", ErrNotYourTurn))
	}
	if seat.IsAllIn {
		return nil, reject(fmt.Errorf("%w: seat is all-in", ErrNotYourTurn))
	}

	return seat, nil
}
