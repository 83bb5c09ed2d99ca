package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"
	"github.com/thoas/go-funk"

	"pocket-poker/models"
)

func cardsString(cards []models.Card) string {
	if len(cards) == 0 {
		return ""
	}
	return strings.Join(funk.Map(cards, func(c models.Card) string { return c.Symbol() }).([]string), " ")
}

func seatStatus(st *models.GameState, seat *models.Seat) string {
	switch {
	case seat.HasLeft:
		return pterm.Gray("Left")
	case seat.Chips == 0 && !seat.IsActive:
		return pterm.Gray("Busted")
	case !seat.IsActive:
		return pterm.LightRed("Folded")
	case seat.IsAllIn:
		return pterm.LightMagenta("All-in")
	case seat.ID == st.CurrentSeatID && st.Phase.IsBetting():
		return pterm.LightYellow("To act")
	}
	return pterm.LightGreen("Active")
}

// seatBox draws one seat. Hole cards are only in the snapshot when the viewer
// may see them, so hidden hands show as backs.
func seatBox(st *models.GameState, seat *models.Seat, me string) string {
	title := seat.Name
	if seat.IsBot {
		title += " (bot)"
	}
	if idx := st.SeatIndex(seat.ID); idx == st.DealerIndex {
		title += " [D]"
	}
	if seat.ID == me {
		title = pterm.LightCyan(title + " - you")
	}

	lines := []string{
		seatStatus(st, seat),
		fmt.Sprintf("Chips: %d", seat.Chips),
		fmt.Sprintf("Bet: %d", seat.CurrentBet),
	}
	switch {
	case len(seat.HoleCards) > 0:
		lines = append(lines, pterm.BgGreen.Sprint(" "+cardsString(seat.HoleCards)+" "))
	case seat.IsActive:
		lines = append(lines, "🂠 🂠")
	}
	if seat.WinOdds != nil {
		lines = append(lines, fmt.Sprintf("Win: %d%%", *seat.WinOdds))
	}
	if seat.HandResult != nil && st.Phase == models.PhaseShowdown {
		lines = append(lines, seat.HandResult.Name)
	}

	padding := 2
	if seat.ID == me {
		padding = 4
	}
	return pterm.DefaultBox.WithLeftPadding(padding).WithRightPadding(padding).WithTitle(title).WithTitleTopLeft().Sprint(strings.Join(lines, "\n"))
}

func boardBox(st *models.GameState) string {
	board := cardsString(st.CommunityCards)
	if board == "" {
		board = "-"
	}
	lines := []string{
		pterm.BgGreen.Sprint(" " + board + " "),
		fmt.Sprintf("Pot: %d", st.Pot),
	}
	for i, sp := range st.SidePots {
		lines = append(lines, fmt.Sprintf("Pot %d: %d (%d eligible)", i+1, sp.Amount, len(sp.EligibleSeatIDs)))
	}
	lines = append(lines, fmt.Sprintf("Blinds: %d/%d", st.SmallBlind, st.BigBlind))
	title := fmt.Sprintf("|HAND %d - %s|", st.HandNumber, st.Phase)
	return pterm.DefaultBox.WithLeftPadding(4).WithRightPadding(4).WithTitle(pterm.LightYellow(title)).WithTitleTopCenter().Sprint(strings.Join(lines, "\n"))
}

// resultBox lists the payouts of a finished hand, largest first.
func resultBox(st *models.GameState) string {
	ids := make([]string, 0, len(st.Payouts))
	for id := range st.Payouts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if st.Payouts[ids[i]] != st.Payouts[ids[j]] {
			return st.Payouts[ids[i]] > st.Payouts[ids[j]]
		}
		return ids[i] < ids[j]
	})

	var lines []string
	for _, id := range ids {
		seat := st.SeatByID(id)
		if seat == nil {
			continue
		}
		line := fmt.Sprintf("%s won %d", pterm.LightCyan(seat.Name), st.Payouts[id])
		if seat.HandResult != nil && len(seat.HoleCards) > 0 {
			line += " with " + seat.HandResult.Description
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		lines = append(lines, "No winner")
	}
	return pterm.DefaultBox.WithLeftPadding(4).WithRightPadding(4).WithTitle(pterm.LightGreen("|SHOWDOWN|")).WithTitleTopCenter().Sprint(strings.Join(lines, "\n"))
}

// describeEvent turns the snapshot's last event into a line of table talk.
func describeEvent(st *models.GameState) string {
	ev := st.LastEvent
	if ev == nil {
		return ""
	}
	name := ev.SeatID
	if seat := st.SeatByID(ev.SeatID); seat != nil {
		name = seat.Name
	}
	switch ev.Type {
	case models.EventDeal:
		return fmt.Sprintf("Hand %d dealt", st.HandNumber)
	case models.EventFlop:
		return "The flop"
	case models.EventTurnRiver:
		if st.Phase == models.PhaseRiver {
			return "The river"
		}
		return "The turn"
	case models.EventCheck:
		return name + " checks"
	case models.EventCall:
		return fmt.Sprintf("%s calls %d", name, ev.Amount)
	case models.EventRaise:
		return fmt.Sprintf("%s raises to %d", name, ev.Amount)
	case models.EventAllIn:
		return fmt.Sprintf("%s is all-in for %d", name, ev.Amount)
	case models.EventFold:
		return name + " folds"
	case models.EventWin:
		return fmt.Sprintf("%s wins %d", name, ev.Amount)
	}
	return string(ev.Type)
}

// renderTable lays out opponents on top, the board in the middle and the
// viewer's own seat at the bottom.
func renderTable(st *models.GameState, me string) (string, error) {
	var others []pterm.Panel
	var dashboard []pterm.Panel
	for _, seat := range st.Seats {
		panel := pterm.Panel{Data: seatBox(st, seat, me)}
		if seat.ID == me {
			dashboard = append([]pterm.Panel{panel}, dashboard...)
		} else {
			others = append(others, panel)
		}
	}
	if line := describeEvent(st); line != "" {
		last := pterm.DefaultBox.WithLeftPadding(2).WithRightPadding(2).WithTitle(pterm.LightYellow("|LAST ACTION|")).WithTitleTopCenter().Sprint(line)
		dashboard = append(dashboard, pterm.Panel{Data: last})
	}

	rows := pterm.Panels{others, {{Data: boardBox(st)}}}
	if st.Phase == models.PhaseShowdown {
		rows = append(rows, []pterm.Panel{{Data: resultBox(st)}})
	}
	if len(dashboard) > 0 {
		rows = append(rows, dashboard)
	}
	return pterm.DefaultPanel.WithPanels(rows).Srender()
}

func renderLobby(peers []models.LobbyPeer, bots int) (string, error) {
	data := pterm.TableData{{"Name", "Role"}}
	for _, p := range peers {
		role := "player"
		if p.IsHost {
			role = "host"
		}
		data = append(data, []string{p.Name, role})
	}
	if bots > 0 {
		data = append(data, []string{fmt.Sprintf("%d bots", bots), "bot"})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
}

func printBanner() {
	title, err := pterm.DefaultBigText.WithLetters(
		putils.LettersFromStringWithStyle("Pocket", pterm.FgRed.ToStyle()),
		putils.LettersFromStringWithStyle("Poker", pterm.FgDarkGray.ToStyle()),
	).Srender()
	if err != nil {
		return
	}
	pterm.Print(title)
}
