package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"landprice/internal/model"
	"landprice/internal/utils"
)

// Usage categories accepted in an intent
var validUsages = map[string]bool{
	"住宅地":   true,
	"宅地見込地": true,
	"商業地":   true,
	"準工業地":  true,
	"工業地":   true,
	"林地":    true,
}

const intentSystemPrompt = `You extract search conditions for a database of Tokyo land prices from a user's question.
Respond ONLY with a JSON object. If a field is not mentioned in the question, omit it. Never output false or null for a field that was not asked about.

Fields:
- ward: municipality name without the trailing 市, 区, 町 or 村 (e.g. "渋谷区" -> "渋谷", "八王子市" -> "八王子") (string)
- station: nearest railway station name without the trailing 駅 (string)
- usage: land use category, must be one of: "住宅地", "宅地見込地", "商業地", "準工業地", "工業地", "林地" (string)
- time_to_station_max: maximum walking time to the station in minutes (integer)
- require_max_price: true if the question asks for the highest land price (boolean)
- require_min_price: true if the question asks for the lowest land price (boolean)
- require_top_1_percent_price: true if the question asks for the most expensive areas in general, e.g. "top class" or "premium" (boolean)
- require_bottom_1_percent_price: true if the question asks for the cheapest areas in general (boolean)
- require_max_change_rate: true if the question asks for the largest price increase (boolean)
- require_min_change_rate: true if the question asks for the largest price decrease (boolean)
- require_top_1_percent_change_rate: true if the question asks for areas with rapidly rising prices (boolean)
- require_bottom_1_percent_change_rate: true if the question asks for areas with rapidly falling prices (boolean)

Examples:
Question: "渋谷区の商業地の地価を教えて"
Response: {"ward": "渋谷", "usage": "商業地"}

Question: "Which area has the highest land price?"
Response: {"require_max_price": true}

Question: "Residential land within a 10 minute walk of Kichijoji station"
Response: {"station": "吉祥寺", "usage": "住宅地", "time_to_station_max": 10}

Question: "What is land like in Tokyo?"
Response: {}`

// IntentParseError reports a completion that could not be turned into a SearchIntent
type IntentParseError struct {
	Raw string
	Err error
}

func (e *IntentParseError) Error() string {
	return fmt.Sprintf("failed to parse intent: %v (content: %s)", e.Err, truncate(e.Raw, 200))
}

func (e *IntentParseError) Unwrap() error {
	return e.Err
}

// IntentExtractor turns a question into a SearchIntent with one JSON-mode completion
type IntentExtractor struct {
	llm    ChatCompleter
	logger zerolog.Logger
}

// NewIntentExtractor creates a new intent extractor
func NewIntentExtractor(llm ChatCompleter, logger zerolog.Logger) *IntentExtractor {
	return &IntentExtractor{
		llm:    llm,
		logger: logger.With().Str("component", "intent").Logger(),
	}
}

// Extract calls the model and parses its answer. A transport error is returned
// as is; malformed or invalid output is returned as *IntentParseError.
func (e *IntentExtractor) Extract(ctx context.Context, question string) (model.SearchIntent, error) {
	content, err := e.llm.Complete(ctx, CompletionRequest{
		System: intentSystemPrompt,
		User:   question,
		JSON:   true,
	})
	if err != nil {
		return model.SearchIntent{}, fmt.Errorf("intent completion: %w", err)
	}

	var intent model.SearchIntent
	if err := utils.ParseAIJSON(content, &intent); err != nil {
		return model.SearchIntent{}, &IntentParseError{Raw: content, Err: err}
	}

	normalizeIntent(&intent)

	if err := validateIntent(&intent); err != nil {
		return model.SearchIntent{}, &IntentParseError{Raw: content, Err: err}
	}

	e.logger.Debug().Interface("intent", intent).Msg("intent extracted")
	return intent, nil
}

// normalizeIntent trims strings, drops empty ones and maps place names to the
// form stored in the corpus
func normalizeIntent(intent *model.SearchIntent) {
	intent.Ward = normalizeString(intent.Ward, utils.CanonicalWard)
	intent.Station = normalizeString(intent.Station, utils.CanonicalStation)
	intent.Usage = normalizeString(intent.Usage, strings.TrimSpace)
}

func normalizeString(s *string, canonical func(string) string) *string {
	if s == nil {
		return nil
	}
	v := canonical(strings.TrimSpace(*s))
	if v == "" {
		return nil
	}
	return &v
}

// validateIntent checks values the store cannot match meaningfully
func validateIntent(intent *model.SearchIntent) error {
	if intent.Usage != nil && !validUsages[*intent.Usage] {
		return fmt.Errorf("invalid usage: %s", *intent.Usage)
	}
	if intent.TimeToStationMax != nil && *intent.TimeToStationMax <= 0 {
		return fmt.Errorf("time_to_station_max must be positive, got %d", *intent.TimeToStationMax)
	}
	return nil
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
