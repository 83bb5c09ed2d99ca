package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/pterm/pterm"

	"pocket-poker/engine"
	"pocket-poker/models"
)

// actor is the seat a terminal player drives: a netsync Host or Client.
type actor interface {
	SubmitAction(action models.ActionType, amount int) error
}

// table draws snapshots as they arrive and prompts when it is our turn.
// Snapshots queue one deep; a newer one replaces an unread older one.
type table struct {
	me       func() string
	player   actor
	nextHand func() error
	updates  chan *models.GameState
	mu       sync.Mutex

	answered  uint64
	dealtNext int
}

func newTable(me func() string, player actor) *table {
	return &table{
		me:      me,
		player:  player,
		updates: make(chan *models.GameState, 1),
	}
}

// offer is safe to call from transport and engine goroutines.
func (t *table) offer(st *models.GameState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	select {
	case <-t.updates:
	default:
	}
	t.updates <- st
}

// retry requeues st unless something newer is already waiting.
func (t *table) retry(st *models.GameState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	select {
	case t.updates <- st:
	default:
	}
}

// play runs until ctx is done or the match cannot continue.
func (t *table) play(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case st := <-t.updates:
			done, err := t.handle(st)
			if err != nil || done {
				return err
			}
		}
	}
}

func (t *table) handle(st *models.GameState) (bool, error) {
	me := t.me()
	out, err := renderTable(st, me)
	if err != nil {
		return false, err
	}
	pterm.Print("\n" + out)

	if st.Phase == models.PhaseShowdown {
		return t.afterHand(st)
	}
	if st.CurrentSeatID != me || !st.Phase.IsBetting() || st.Sequence <= t.answered {
		return false, nil
	}
	seat := st.SeatByID(me)
	if seat == nil {
		return false, nil
	}

	action, amount, err := promptAction(st, seat)
	if err != nil {
		return false, err
	}
	if err := t.player.SubmitAction(action, amount); err != nil {
		pterm.Warning.Printfln("%v", err)
		t.retry(st)
		return false, nil
	}
	t.answered = st.Sequence
	return false, nil
}

// afterHand asks whether to deal again. Clients and auto-dealing hosts only watch.
func (t *table) afterHand(st *models.GameState) (bool, error) {
	me := t.me()
	if seat := st.SeatByID(me); seat != nil && seat.Chips == 0 {
		pterm.Error.Println("You have been eliminated, better luck next time!")
	}
	if t.nextHand == nil || st.HandNumber <= t.dealtNext {
		return false, nil
	}
	t.dealtNext = st.HandNumber

	again, err := pterm.DefaultInteractiveConfirm.WithDefaultValue(true).Show("Deal the next hand?")
	if err != nil {
		return false, err
	}
	if !again {
		return true, nil
	}
	if err := t.nextHand(); err != nil {
		if errors.Is(err, engine.ErrNotEnoughPlayers) {
			pterm.Success.Println("Match over: one player holds every chip.")
			return true, nil
		}
		return false, err
	}
	return false, nil
}

type actionChoice struct {
	label  string
	action models.ActionType
	amount int
}

// actionChoices lists the legal moves for seat, labelled with what they cost.
func actionChoices(st *models.GameState, seat *models.Seat) []actionChoice {
	stack := seat.CurrentBet + seat.Chips
	var choices []actionChoice
	for _, a := range engine.LegalActionsFor(st, seat) {
		switch a {
		case models.ActionFold:
			choices = append(choices, actionChoice{label: "Fold", action: a})
		case models.ActionCheck:
			choices = append(choices, actionChoice{label: "Check", action: a})
		case models.ActionCall:
			owed := min(engine.AmountOwed(st, seat), seat.Chips)
			choices = append(choices, actionChoice{label: fmt.Sprintf("Call %d", owed), action: a, amount: owed})
		case models.ActionRaise:
			minTo := min(engine.MinRaiseTotal(st), stack)
			choices = append(choices, actionChoice{label: fmt.Sprintf("Raise (to %d-%d)", minTo, stack), action: a, amount: minTo})
		case models.ActionAllIn:
			choices = append(choices, actionChoice{label: fmt.Sprintf("All-in %d", stack), action: a, amount: stack})
		}
	}
	return choices
}

// parseRaise reads a raise total. Anything below the minimum is refused
// unless it puts the whole stack in.
func parseRaise(input string, minTo, stack int) (int, error) {
	input = strings.TrimSpace(input)
	if strings.EqualFold(input, "all") || strings.EqualFold(input, "all-in") {
		return stack, nil
	}
	amount, err := strconv.Atoi(input)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", input)
	}
	if amount > stack {
		return 0, fmt.Errorf("you only have %d", stack)
	}
	if amount < minTo && amount != stack {
		return 0, fmt.Errorf("minimum raise is to %d", minTo)
	}
	return amount, nil
}

func promptAction(st *models.GameState, seat *models.Seat) (models.ActionType, int, error) {
	choices := actionChoices(st, seat)
	labels := make([]string, len(choices))
	for i, c := range choices {
		labels[i] = c.label
	}

	picked, err := pterm.DefaultInteractiveSelect.WithOptions(labels).Show("Your move")
	if err != nil {
		return "", 0, err
	}
	var choice actionChoice
	for _, c := range choices {
		if c.label == picked {
			choice = c
		}
	}
	if choice.action != models.ActionRaise {
		return choice.action, choice.amount, nil
	}

	stack := seat.CurrentBet + seat.Chips
	for {
		text, err := pterm.DefaultInteractiveTextInput.WithDefaultValue(strconv.Itoa(choice.amount)).Show("Raise to")
		if err != nil {
			return "", 0, err
		}
		amount, err := parseRaise(text, choice.amount, stack)
		if err != nil {
			pterm.Warning.Println(err)
			continue
		}
		return models.ActionRaise, amount, nil
	}
}
