package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/thoas/go-funk"

	"pocket-poker/engine"
	"pocket-poker/models"
)

const (
	DefaultGeminiModel    = "gemini-2.0-flash"
	DefaultGeminiEndpoint = "https://generativelanguage.googleapis.com"
)

var (
	ErrNoAPIKey       = errors.New("llm api key not configured")
	ErrMalformedReply = errors.New("malformed llm reply")
)

// LLMPolicy asks the Gemini generateContent API for a decision and falls back
// to check-or-fold whenever the call or its output cannot be used.
type LLMPolicy struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
	logger   zerolog.Logger
}

type LLMOption func(*LLMPolicy)

func WithModel(model string) LLMOption {
	return func(p *LLMPolicy) {
		if model != "" {
			p.model = model
		}
	}
}

func WithEndpoint(endpoint string) LLMOption {
	return func(p *LLMPolicy) {
		if endpoint != "" {
			p.endpoint = strings.TrimRight(endpoint, "/")
		}
	}
}

func WithHTTPClient(client *http.Client) LLMOption {
	return func(p *LLMPolicy) {
		p.client = client
	}
}

func WithLLMLogger(logger zerolog.Logger) LLMOption {
	return func(p *LLMPolicy) {
		p.logger = logger.With().Str("component", "llm").Logger()
	}
}

func NewLLMPolicy(apiKey string, opts ...LLMOption) *LLMPolicy {
	p := &LLMPolicy{
		apiKey:   apiKey,
		model:    DefaultGeminiModel,
		endpoint: DefaultGeminiEndpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Decide always returns a legal decision. A non-nil error means the fallback was used.
func (p *LLMPolicy) Decide(ctx context.Context, state *models.GameState, seat *models.Seat) (Decision, error) {
	fallback := Fallback(state, seat)
	if p.apiKey == "" {
		return fallback, ErrNoAPIKey
	}

	text, err := p.generate(ctx, BuildPrompt(state, seat))
	if err != nil {
		p.logger.Warn().Err(err).Str("seat", seat.ID).Msg("llm request failed, using fallback")
		return fallback, err
	}

	d, err := ParseDecision(text)
	if err != nil {
		p.logger.Warn().Err(err).Str("seat", seat.ID).Str("reply", text).Msg("llm reply rejected")
		return fallback, err
	}

	legal := Legalize(state, seat, d)
	p.logger.Debug().
		Str("seat", seat.ID).
		Str("action", string(legal.Action)).
		Int("amount", legal.Amount).
		Msg("llm decision")
	return legal, nil
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig map[string]any  `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

var decisionSchema = map[string]any{
	"type": "OBJECT",
	"properties": map[string]any{
		"action": map[string]any{
			"type":        "STRING",
			"enum":        []string{"FOLD", "CHECK", "CALL", "RAISE"},
			"description": "The poker action to take.",
		},
		"amount": map[string]any{
			"type":        "NUMBER",
			"description": "The total bet amount if RAISE. Ignored otherwise.",
		},
	},
	"required": []string{"action"},
}

func (p *LLMPolicy) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: map[string]any{
			"responseMimeType": "application/json",
			"responseSchema":   decisionSchema,
		},
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", p.endpoint, p.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("llm response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out geminiResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	for _, c := range out.Candidates {
		for _, part := range c.Content.Parts {
			if part.Text != "" {
				return part.Text, nil
			}
		}
	}
	return "", fmt.Errorf("%w: empty candidates", ErrMalformedReply)
}

// ParseDecision reads the {action, amount} object the model replies with.
func ParseDecision(text string) (Decision, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var raw struct {
		Action string  `json:"action"`
		Amount float64 `json:"amount"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &raw); err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}

	action := models.ActionType(strings.ToUpper(strings.TrimSpace(raw.Action)))
	switch action {
	case models.ActionFold, models.ActionCheck, models.ActionCall, models.ActionRaise, models.ActionAllIn:
	default:
		return Decision{}, fmt.Errorf("%w: unknown action %q", ErrMalformedReply, raw.Action)
	}
	if raw.Amount < 0 {
		return Decision{}, fmt.Errorf("%w: negative amount", ErrMalformedReply)
	}
	return Decision{Action: action, Amount: int(raw.Amount)}, nil
}

// BuildPrompt describes the table from the seat's point of view.
func BuildPrompt(state *models.GameState, seat *models.Seat) string {
	toCall := engine.AmountOwed(state, seat)
	opponents := countOpponents(state, seat)

	board := "None"
	if len(state.CommunityCards) > 0 {
		board = cardList(state.CommunityCards)
	}
	hand := engine.Evaluate(seat.HoleCards, state.CommunityCards)

	style, ok := styleInstructions[seat.PlayStyle]
	if !ok {
		style = styleInstructions[models.StyleRandom]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a professional Texas Hold'em Poker player named %s.\n", seat.Name)
	fmt.Fprintf(&b, "PERSONALITY: %s\n\n", style)
	b.WriteString("CURRENT SITUATION:\n")
	fmt.Fprintf(&b, "- Phase: %s\n", state.Phase)
	fmt.Fprintf(&b, "- Pot Size: $%d\n", state.Pot)
	fmt.Fprintf(&b, "- Your Stack: $%d\n", seat.Chips)
	fmt.Fprintf(&b, "- Your Hand: %s\n", cardList(seat.HoleCards))
	fmt.Fprintf(&b, "- Community Cards: %s\n", board)
	fmt.Fprintf(&b, "- Current Hand Strength: %s\n", hand.Description)
	fmt.Fprintf(&b, "- Position: %s\n", positionLabel(state, seat))
	fmt.Fprintf(&b, "- Opponents Remaining: %d\n", opponents)
	if state.Settings.AICanSeeOdds && seat.WinOdds != nil {
		fmt.Fprintf(&b, "- Win Probability: %d%%\n", *seat.WinOdds)
	}
	b.WriteString("\nBETTING CONTEXT:\n")
	fmt.Fprintf(&b, "- Amount to Call: $%d\n", toCall)
	fmt.Fprintf(&b, "- Minimum Raise To: $%d\n", engine.MinRaiseTotal(state))
	fmt.Fprintf(&b, "- Your Current Bet in this Round: $%d\n", seat.CurrentBet)
	b.WriteString("\nRULES:\n")
	b.WriteString("1. If Amount to Call is 0, never FOLD. CHECK or RAISE.\n")
	b.WriteString("2. If you RAISE, amount is the new total bet, at least the minimum raise and at most your stack plus your current bet.\n")
	b.WriteString("3. Reply with JSON only: {\"action\": \"FOLD|CHECK|CALL|RAISE\", \"amount\": number}.\n")
	return b.String()
}

func countOpponents(state *models.GameState, seat *models.Seat) int {
	others := funk.Filter(state.Seats, func(s *models.Seat) bool {
		return s.IsActive && s.ID != seat.ID
	}).([]*models.Seat)
	return len(others)
}

func cardList(cards []models.Card) string {
	return strings.Join(funk.Map(cards, func(c models.Card) string {
		return c.String()
	}).([]string), " ")
}

func positionLabel(state *models.GameState, seat *models.Seat) string {
	idx := state.SeatIndex(seat.ID)
	n := len(state.Seats)
	switch {
	case idx < 0 || n == 0:
		return "Generic Position"
	case idx == state.DealerIndex:
		return "Dealer (Button)"
	case n > 2 && idx == (state.DealerIndex+2)%n:
		return "Big Blind"
	case n > 2 && idx == (state.DealerIndex+1)%n:
		return "Small Blind"
	case n == 2:
		return "Big Blind"
	}
	return "Generic Position"
}
