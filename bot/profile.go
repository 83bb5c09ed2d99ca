package bot

import "pocket-poker/models"

// Profile tunes the heuristic decision tree. Strength is on a 1-10 scale.
type Profile struct {
	FoldThreshold     int
	RaiseThreshold    int
	Looseness         float64
	BluffFrequency    float64
	SlowPlayFrequency float64
	RaiseMultiplier   int
}

// ProfileFor combines a difficulty baseline with the play style.
func ProfileFor(style models.PlayStyle, difficulty models.Difficulty) Profile {
	p := Profile{
		FoldThreshold:   2,
		RaiseThreshold:  5,
		Looseness:       0.3,
		RaiseMultiplier: 1,
	}

	switch difficulty {
	case models.DifficultyEasy:
		p.Looseness = 0.8
		p.RaiseThreshold = 6
	case models.DifficultyHard:
		p.Looseness = 0.4
		p.BluffFrequency = 0.1
	}

	switch style {
	case models.StyleAggressive:
		p.RaiseThreshold--
		p.BluffFrequency += 0.15
		p.RaiseMultiplier = 3
	case models.StylePassive:
		p.RaiseThreshold = 8
		p.BluffFrequency = 0
		p.Looseness += 0.2
	case models.StyleTricky:
		p.BluffFrequency += 0.1
		p.SlowPlayFrequency = 0.4
		p.RaiseMultiplier = 2
	}
	return p
}

// styleInstructions are the persona lines given to the language model.
var styleInstructions = map[models.PlayStyle]string{
	models.StyleRandom:     "You are unpredictable. Occasionally bluff or make wild moves, but generally try to win.",
	models.StyleAggressive: "You are an Aggressive player. You like to Raise and Re-Raise. You bluff frequently. You treat checks as weakness.",
	models.StylePassive:    "You are a Passive player (Calling Station). You rarely Raise. You prefer to Check/Call unless you have the nuts.",
	models.StyleTricky:     "You are a Tricky player. You trap with strong hands (Check-Raise). You float with weak hands to bluff later. You are unpredictable.",
}
