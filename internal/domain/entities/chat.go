package entities

// Intent enumerates everything the chat router knows how to answer.
type Intent string

const (
	IntentRecoNear    Intent = "RECO_NEAR"
	IntentRecoFar     Intent = "RECO_FAR"
	IntentPhone       Intent = "PHONE"
	IntentAddress     Intent = "ADDRESS"
	IntentFee         Intent = "FEE"
	IntentCapSum      Intent = "CAP_SUM"
	IntentNoise       Intent = "NOISE"
	IntentOutOfDomain Intent = "OUT_OF_DOMAIN"
)

// valid intents for fallback classification output
var knownIntents = map[Intent]struct{}{
	IntentRecoNear: {}, IntentRecoFar: {}, IntentPhone: {}, IntentAddress: {},
	IntentFee: {}, IntentCapSum: {}, IntentNoise: {}, IntentOutOfDomain: {},
}

// IsKnown reports whether the intent is one of the enumerated values.
func (i Intent) IsKnown() bool {
	_, ok := knownIntents[i]
	return ok
}

// IntentResult is the outcome of classifying a single message.
// Created fresh per message and never stored.
type IntentResult struct {
	Intent Intent            `json:"intent"`
	Slots  map[string]string `json:"slots"`
}

// ChatRequest is the inbound chat payload. Coordinates are optional; without
// them the geo recommendation branch is skipped.
type ChatRequest struct {
	Message string   `json:"message"`
	Lat     *float64 `json:"lat,omitempty"`
	Lon     *float64 `json:"lon,omitempty"`
}

// ChatResponse carries the user-facing text plus the raw candidate list for
// client-side rendering.
type ChatResponse struct {
	Text    string         `json:"text"`
	Centers []ScoredCenter `json:"centers"`
}

// Turn is one entry in the bounded per-session conversation history.
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}
