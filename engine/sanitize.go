package engine

import "pocket-poker/models"

// Sanitize returns the copy of state that viewerID is allowed to see.
// Other seats' hole cards stay hidden until showdown (active seats only)
// unless RevealAll is set. Win odds follow the calculator permissions.
func Sanitize(state *models.GameState, viewerID string) *models.GameState {
	view := state.Clone()
	settings := view.Settings

	for _, seat := range view.Seats {
		own := seat.ID == viewerID
		revealed := own || settings.RevealAll ||
			(view.Phase == models.PhaseShowdown && seat.IsActive)
		if !revealed {
			seat.HoleCards = []models.Card{}
			seat.HandResult = nil
		}

		oddsVisible := settings.AllowAllCalculator || settings.ShowEnemyOdds ||
			(own && (settings.AllowCalculator || settings.ShowOdds))
		if !oddsVisible {
			seat.WinOdds = nil
		}
	}
	return view
}
