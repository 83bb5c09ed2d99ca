package engine

import "pocket-poker/models"

// ActionProcessor applies one validated betting action to the state.
type ActionProcessor struct {
	validator *BettingValidator
	state     *models.GameState
}

func NewActionProcessor(state *models.GameState) *ActionProcessor {
	return &ActionProcessor{
		validator: NewBettingValidator(state.MinBet, state.MinRaise),
		state:     state,
	}
}

// process returns the event describing what happened and the chips moved.
// On error the state is untouched.
func (ap *ActionProcessor) process(seat *models.Seat, action models.ActionType, amount int) (models.EventType, int, error) {
	switch action {
	case models.ActionFold:
		ap.processFold(seat)
		return models.EventFold, 0, nil
	case models.ActionCheck:
		if err := ap.processCheck(seat); err != nil {
			return "", 0, err
		}
		return models.EventCheck, 0, nil
	case models.ActionCall:
		paid := ap.processCall(seat)
		if seat.IsAllIn {
			return models.EventAllIn, paid, nil
		}
		return models.EventCall, paid, nil
	case models.ActionRaise:
		paid, err := ap.processRaise(seat, amount)
		if err != nil {
			return "", 0, err
		}
		if seat.IsAllIn {
			return models.EventAllIn, paid, nil
		}
		return models.EventRaise, paid, nil
	case models.ActionAllIn:
		paid, err := ap.processAllIn(seat)
		if err != nil {
			return "", 0, err
		}
		return models.EventAllIn, paid, nil
	}
	return "", 0, ErrUnknownAction
}

func (ap *ActionProcessor) processFold(seat *models.Seat) {
	seat.IsActive = false
	seat.HasActed = true
}

func (ap *ActionProcessor) processCheck(seat *models.Seat) error {
	if err := ap.validator.validateCheck(AmountOwed(ap.state, seat)); err != nil {
		return err
	}
	seat.HasActed = true
	return nil
}

// processCall pays what is owed, capped at the stack.
func (ap *ActionProcessor) processCall(seat *models.Seat) int {
	owed := AmountOwed(ap.state, seat)
	paid := 0
	if owed > 0 {
		paid = seat.PlaceBet(owed)
	}
	ap.state.Pot += paid
	seat.HasActed = true
	return paid
}

func (ap *ActionProcessor) processRaise(seat *models.Seat, amount int) (int, error) {
	if err := ap.validator.validateRaise(seat, amount); err != nil {
		return 0, err
	}
	return ap.raiseTo(seat, amount), nil
}

func (ap *ActionProcessor) processAllIn(seat *models.Seat) (int, error) {
	if err := ap.validator.validateAllIn(seat); err != nil {
		return 0, err
	}
	return ap.raiseTo(seat, seat.CurrentBet+seat.Chips), nil
}

// raiseTo moves the seat's bet to total. Only a full raise reopens the action;
// a short all-in above the bet just lifts the amount others must call.
func (ap *ActionProcessor) raiseTo(seat *models.Seat, total int) int {
	paid := seat.PlaceBet(total - seat.CurrentBet)
	ap.state.Pot += paid
	seat.HasActed = true

	if seat.CurrentBet > ap.state.MinBet {
		full := ap.validator.isFullRaise(seat.CurrentBet)
		ap.state.MinBet = seat.CurrentBet
		ap.state.LastAggressorID = seat.ID
		if full {
			ap.state.MinRaise = seat.CurrentBet * 2
			reopenBetting(ap.state.Seats, seat)
		}
	}
	return paid
}
