package engine

import "pocket-poker/models"

type PositionFinder struct {
	seats []*models.Seat
}

func NewPositionFinder(seats []*models.Seat) *PositionFinder {
	return &PositionFinder{seats: seats}
}

// findNext scans clockwise starting after currentPos. Returns -1 if no seat matches.
func (pf *PositionFinder) findNext(currentPos int, filter SeatFilter) int {
	return pf.findFrom(currentPos+1, filter)
}

// findFrom scans clockwise starting at pos itself.
func (pf *PositionFinder) findFrom(pos int, filter SeatFilter) int {
	n := len(pf.seats)
	if n == 0 {
		return -1
	}
	pos = ((pos % n) + n) % n
	for checked := 0; checked < n; checked++ {
		if filter(pf.seats[pos]) {
			return pos
		}
		pos = (pos + 1) % n
	}
	return -1
}

func (pf *PositionFinder) findNextActive(currentPos int) int {
	return pf.findNext(currentPos, isActive)
}

func (pf *PositionFinder) findNextWithChips(currentPos int) int {
	return pf.findNext(currentPos, hasChips)
}

// calculateBlindPositions: heads-up the dealer posts the small blind.
func (pf *PositionFinder) calculateBlindPositions(dealerPos, activeSeats int) (int, int) {
	if activeSeats == 2 {
		return dealerPos, pf.findNextActive(dealerPos)
	}
	sbPos := pf.findNextActive(dealerPos)
	bbPos := pf.findNextActive(sbPos)
	return sbPos, bbPos
}

// firstPreflopActor is the dealer heads-up, otherwise the seat after the big blind.
func (pf *PositionFinder) firstPreflopActor(dealerPos, bbPos, activeSeats int) int {
	if activeSeats == 2 {
		return pf.findFrom(dealerPos, canAct)
	}
	return pf.findNext(bbPos, canAct)
}

func (pf *PositionFinder) firstPostflopActor(dealerPos int) int {
	return pf.findNext(dealerPos, canAct)
}
