package engine

import (
	"fmt"

	"github.com/google/uuid"

	"pocket-poker/models"
)

var botNames = []string{"Ada", "Boris", "Clara", "Dmitri", "Elena", "Felix", "Greta", "Hugo", "Ines"}

// NewHumanSeat creates a seat for a person. Remote seats are driven over the network.
func NewHumanSeat(id, name, avatarURL string, remote bool) *models.Seat {
	seat := models.NewSeat(id, name, 0)
	seat.AvatarURL = avatarURL
	seat.IsRemote = remote
	if remote {
		seat.PeerID = id
	}
	return seat
}

// NewBotSeat creates the n-th computer seat. useAI routes decisions to the language model.
func NewBotSeat(n int, style models.PlayStyle, difficulty models.Difficulty, useAI bool) *models.Seat {
	name := botNames[n%len(botNames)]
	if n >= len(botNames) {
		name = fmt.Sprintf("%s %d", name, n/len(botNames)+1)
	}
	seat := models.NewSeat("bot-"+uuid.NewString()[:8], name, 0)
	seat.IsBot = true
	seat.UseAI = useAI
	seat.PlayStyle = style
	seat.Difficulty = difficulty
	return seat
}

// ArrangeSeats orders seats by the ids in order. Seats not listed keep their
// relative order behind the listed ones; unknown ids are ignored.
func ArrangeSeats(seats []*models.Seat, order []string) []*models.Seat {
	byID := make(map[string]*models.Seat, len(seats))
	for _, s := range seats {
		byID[s.ID] = s
	}

	arranged := make([]*models.Seat, 0, len(seats))
	placed := make(map[string]bool, len(seats))
	for _, id := range order {
		if s, ok := byID[id]; ok && !placed[id] {
			arranged = append(arranged, s)
			placed[id] = true
		}
	}
	for _, s := range seats {
		if !placed[s.ID] {
			arranged = append(arranged, s)
		}
	}
	return arranged
}
