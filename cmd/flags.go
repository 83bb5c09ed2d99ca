package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pocket-poker/models"
	"pocket-poker/netsync"
)

var errNoOpponents = errors.New("solo play needs at least one bot")

var botStyles = []models.PlayStyle{
	models.StyleAggressive,
	models.StylePassive,
	models.StyleTricky,
	models.StyleRandom,
}

// tableFlags are the match settings shared by host and solo.
type tableFlags struct {
	chips      int
	maxSeats   int
	turbo      bool
	ante       int
	turnTimer  int
	odds       bool
	bots       int
	style      string
	difficulty string
	ai         bool
}

func (f *tableFlags) register(cmd *cobra.Command, defaultBots int) {
	defaults := models.DefaultSettings()
	cmd.Flags().IntVar(&f.chips, "chips", defaults.StartingChips, "starting stack")
	cmd.Flags().IntVar(&f.maxSeats, "max-seats", defaults.MaxSeats, "seats at the table")
	cmd.Flags().BoolVar(&f.turbo, "turbo", false, "use 50/100 blinds")
	cmd.Flags().IntVar(&f.ante, "ante", 0, "ante per hand; 0 disables antes")
	cmd.Flags().IntVar(&f.turnTimer, "turn-timer", 0, "seconds per turn; 0 disables the clock")
	cmd.Flags().BoolVar(&f.odds, "odds", false, "show your win odds")
	cmd.Flags().IntVar(&f.bots, "bots", defaultBots, "computer opponents")
	cmd.Flags().StringVar(&f.style, "style", "mixed", "bot style: aggressive, passive, tricky, random or mixed")
	cmd.Flags().StringVar(&f.difficulty, "difficulty", string(defaults.BotDifficulty), "bot difficulty: easy, medium or hard")
	cmd.Flags().BoolVar(&f.ai, "ai", false, "let bots consult the language model (needs GEMINI_API_KEY)")
}

func (f tableFlags) settings() (models.Settings, error) {
	s := models.DefaultSettings()
	s.StartingChips = f.chips
	s.MaxSeats = f.maxSeats
	if f.turbo {
		s.BlindStructure = models.BlindsTurbo
	}
	s.AnteEnabled = f.ante > 0
	s.AnteAmount = f.ante
	s.TurnTimerEnabled = f.turnTimer > 0
	s.TurnTimerSeconds = f.turnTimer
	s.ShowOdds = f.odds

	difficulty, err := parseDifficulty(f.difficulty)
	if err != nil {
		return s, err
	}
	s.BotDifficulty = difficulty

	if s.StartingChips <= 0 {
		return s, fmt.Errorf("starting chips must be positive")
	}
	if s.MaxSeats < 2 {
		return s, fmt.Errorf("a table needs at least 2 seats")
	}
	return s, nil
}

// botSpecs fills the requested bots; "mixed" deals the styles out in turn.
func (f tableFlags) botSpecs() ([]netsync.BotSpec, error) {
	if f.bots < 0 {
		return nil, fmt.Errorf("bots must not be negative")
	}
	if f.bots >= f.maxSeats {
		return nil, fmt.Errorf("%d bots leave no seat free at a %d-seat table", f.bots, f.maxSeats)
	}
	mixed := strings.EqualFold(f.style, "mixed")
	var style models.PlayStyle
	if !mixed {
		var err error
		if style, err = parseStyle(f.style); err != nil {
			return nil, err
		}
	}

	specs := make([]netsync.BotSpec, f.bots)
	for i := range specs {
		specs[i] = netsync.BotSpec{Style: style, UseAI: f.ai}
		if mixed {
			specs[i].Style = botStyles[i%len(botStyles)]
		}
	}
	return specs, nil
}

func parseStyle(s string) (models.PlayStyle, error) {
	style := models.PlayStyle(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range botStyles {
		if style == known {
			return style, nil
		}
	}
	return "", fmt.Errorf("unknown bot style %q", s)
}

func parseDifficulty(s string) (models.Difficulty, error) {
	d := models.Difficulty(strings.ToUpper(strings.TrimSpace(s)))
	switch d {
	case models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard:
		return d, nil
	}
	return "", fmt.Errorf("unknown difficulty %q", s)
}
