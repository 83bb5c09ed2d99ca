package engine

import (
	"fmt"

	"pocket-poker/models"
)

type BettingValidator struct {
	minBet   int
	minRaise int
}

func NewBettingValidator(minBet, minRaise int) *BettingValidator {
	return &BettingValidator{
		minBet:   minBet,
		minRaise: minRaise,
	}
}

func (bv *BettingValidator) validateCheck(owed int) error {
	if owed > 0 {
		return fmt.Errorf("%w: owes %d", ErrCannotCheck, owed)
	}
	return nil
}

// validateRaise checks a raise to a new total of amount. A raise that puts the
// whole stack in may fall short of the minimum.
func (bv *BettingValidator) validateRaise(seat *models.Seat, amount int) error {
	if amount <= seat.CurrentBet {
		return fmt.Errorf("%w: raise to %d does not exceed current bet %d", ErrRaiseTooSmall, amount, seat.CurrentBet)
	}

	cost := amount - seat.CurrentBet
	if cost > seat.Chips {
		return fmt.Errorf("%w: raise to %d costs %d, stack is %d", ErrInsufficientChips, amount, cost, seat.Chips)
	}

	if amount < bv.minTotalBet() && cost < seat.Chips {
		return fmt.Errorf("%w: raise must be at least %d (min bet %d + min raise %d)",
			ErrRaiseTooSmall, bv.minTotalBet(), bv.minBet, bv.minRaise)
	}
	return nil
}

func (bv *BettingValidator) validateAllIn(seat *models.Seat) error {
	if seat.Chips <= 0 {
		return fmt.Errorf("%w: no chips to go all-in", ErrInsufficientChips)
	}
	return nil
}

func (bv *BettingValidator) minTotalBet() int {
	return bv.minBet + bv.minRaise
}

func (bv *BettingValidator) isFullRaise(total int) bool {
	return total >= bv.minTotalBet()
}
