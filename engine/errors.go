package engine

import (
	"errors"
	"fmt"
)

var (
	ErrIllegalAction     = errors.New("illegal action")
	ErrNotYourTurn       = errors.New("not your turn")
	ErrCannotCheck       = errors.New("cannot check, a bet is owed")
	ErrInsufficientChips = errors.New("insufficient chips")
	ErrRaiseTooSmall     = errors.New("raise below minimum")
	ErrUnknownAction     = errors.New("unknown action")
	ErrSeatNotFound      = errors.New("seat not found")
	ErrNoHandInProgress  = errors.New("no hand in progress")
	ErrHandInProgress    = errors.New("hand already in progress")
	ErrNotEnoughPlayers  = errors.New("not enough players to start hand")
)

// reject marks err as an illegal action rejection so callers can match either.
func reject(err error) error {
	return fmt.Errorf("%w: %w", ErrIllegalAction, err)
}
