package models

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Suit string
type Rank string

const (
	Hearts   Suit = "h"
	Diamonds Suit = "d"
	Clubs    Suit = "c"
	Spades   Suit = "s"
)

const (
	Two   Rank = "2"
	Three Rank = "3"
	Four  Rank = "4"
	Five  Rank = "5"
	Six   Rank = "6"
	Seven Rank = "7"
	Eight Rank = "8"
	Nine  Rank = "9"
	Ten   Rank = "T"
	Jack  Rank = "J"
	Queen Rank = "Q"
	King  Rank = "K"
	Ace   Rank = "A"
)

// Variant selects the card population a deck is built from.
type Variant string

const (
	Standard  Variant = "standard"
	ShortDeck Variant = "short"
)

var (
	allSuits = []Suit{Hearts, Diamonds, Clubs, Spades}
	allRanks = []Rank{Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King, Ace}
)

type Card struct {
	Rank Rank `json:"rank"`
	Suit Suit `json:"suit"`
}

func (c Card) String() string {
	return fmt.Sprintf("%s%s", c.Rank, c.Suit)
}

func (c Card) Value() int {
	switch c.Rank {
	case Two:
		return 2
	case Three:
		return 3
	case Four:
		return 4
	case Five:
		return 5
	case Six:
		return 6
	case Seven:
		return 7
	case Eight:
		return 8
	case Nine:
		return 9
	case Ten:
		return 10
	case Jack:
		return 11
	case Queen:
		return 12
	case King:
		return 13
	case Ace:
		return 14
	}
	return 0
}

// Symbol renders the card with its suit glyph, e.g. "A♠".
func (c Card) Symbol() string {
	glyph := map[Suit]string{Hearts: "♥", Diamonds: "♦", Clubs: "♣", Spades: "♠"}[c.Suit]
	return string(c.Rank) + glyph
}

// ParseCard accepts the two-character form produced by String ("Ah", "Td").
func ParseCard(s string) (Card, error) {
	if len(s) != 2 {
		return Card{}, fmt.Errorf("invalid card %q", s)
	}
	c := Card{Rank: Rank(strings.ToUpper(s[:1])), Suit: Suit(strings.ToLower(s[1:]))}
	if c.Value() == 0 {
		return Card{}, fmt.Errorf("invalid rank in card %q", s)
	}
	switch c.Suit {
	case Hearts, Diamonds, Clubs, Spades:
	default:
		return Card{}, fmt.Errorf("invalid suit in card %q", s)
	}
	return c, nil
}

// MustParseCards parses a space separated list of cards and panics on error.
func MustParseCards(s string) []Card {
	fields := strings.Fields(s)
	cards := make([]Card, 0, len(fields))
	for _, f := range fields {
		c, err := ParseCard(f)
		if err != nil {
			panic(err)
		}
		cards = append(cards, c)
	}
	return cards
}

// FullSet returns the ordered card population of a variant.
func FullSet(variant Variant) []Card {
	cards := make([]Card, 0, 52)
	for _, suit := range allSuits {
		for _, rank := range allRanks {
			c := Card{Rank: rank, Suit: suit}
			if variant == ShortDeck && c.Value() <= 5 {
				continue
			}
			cards = append(cards, c)
		}
	}
	return cards
}

type Deck struct {
	variant Variant
	cards   []Card
	rng     *rand.Rand
	logger  zerolog.Logger
}

// NewDeck builds an unshuffled deck. A nil rng seeds from the clock.
func NewDeck(variant Variant, rng *rand.Rand) *Deck {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	deck := &Deck{
		rng:    rng,
		logger: zerolog.Nop(),
	}
	deck.Reset(variant)
	return deck
}

func (d *Deck) SetLogger(logger zerolog.Logger) {
	d.logger = logger
}

func (d *Deck) Variant() Variant {
	return d.variant
}

// Reset restores the full population of the variant in canonical order.
func (d *Deck) Reset(variant Variant) {
	if variant == "" {
		variant = Standard
	}
	d.variant = variant
	d.cards = FullSet(variant)
}

func (d *Deck) Shuffle() {
	d.rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Deal removes k cards from the top. Running dry resets and reshuffles
// the deck and deals from the fresh one.
func (d *Deck) Deal(k int) []Card {
	if k > len(d.cards) {
		d.logger.Warn().
			Int("requested", k).
			Int("remaining", len(d.cards)).
			Msg("deck exhausted, reshuffling")
		d.Reset(d.variant)
		d.Shuffle()
	}
	cards := make([]Card, k)
	copy(cards, d.cards[:k])
	d.cards = d.cards[k:]
	return cards
}

func (d *Deck) Remaining() int {
	return len(d.cards)
}

// Cards returns a copy of the undealt cards, top first.
func (d *Deck) Cards() []Card {
	out := make([]Card, len(d.cards))
	copy(out, d.cards)
	return out
}
