package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	EventScoreUpdated      = "score_updated"
	EventBoardStateUpdated = "board_state_updated"
)

const (
	KindScore   = "score"
	KindSwap    = "swap"
	KindUnknown = "unknown"
)

// Update is one decoded remote update: ScoreUpdate, SwapUpdate or UnknownUpdate.
type Update interface {
	Kind() string
	isUpdate()
}

// ScoreUpdate overwrites both scores as a pair.
type ScoreUpdate struct {
	A int
	B int
}

// SwapUpdate overwrites the swap flag only.
type SwapUpdate struct {
	Swapped bool
}

// UnknownUpdate is any event this device does not act on.
type UnknownUpdate struct {
	Name string
}

func (ScoreUpdate) Kind() string   { return KindScore }
func (SwapUpdate) Kind() string    { return KindSwap }
func (UnknownUpdate) Kind() string { return KindUnknown }

func (ScoreUpdate) isUpdate()   {}
func (SwapUpdate) isUpdate()    {}
func (UnknownUpdate) isUpdate() {}

type scorePayload struct {
	A *int `json:"score_A"`
	B *int `json:"score_B"`
}

type swapPayload struct {
	Swapped json.RawMessage `json:"is_swapped"`
}

// Decode maps an event name and its JSON payload onto an Update.
// Unrecognized names decode to UnknownUpdate without error. Fields other than
// the ones an update needs are ignored.
func Decode(name string, payload json.RawMessage) (Update, error) {
	switch name {
	case EventScoreUpdated:
		return decodeScore(payload)
	case EventBoardStateUpdated:
		return decodeSwap(payload)
	default:
		return UnknownUpdate{Name: name}, nil
	}
}

func decodeScore(payload json.RawMessage) (Update, error) {
	if isAbsent(payload) {
		return nil, fmt.Errorf("%w: %s has no payload", ErrMalformedPayload, EventScoreUpdated)
	}
	var body scorePayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("%w: %w: %v", ErrMalformedPayload, ErrFieldTypeInvalid, err)
	}
	if body.A == nil {
		return nil, fmt.Errorf("%w: %w: score_A", ErrMalformedPayload, ErrMissingField)
	}
	if body.B == nil {
		return nil, fmt.Errorf("%w: %w: score_B", ErrMalformedPayload, ErrMissingField)
	}
	return ScoreUpdate{A: *body.A, B: *body.B}, nil
}

func decodeSwap(payload json.RawMessage) (Update, error) {
	if isAbsent(payload) {
		return nil, fmt.Errorf("%w: %s has no payload", ErrMalformedPayload, EventBoardStateUpdated)
	}
	var body swapPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if isAbsent(body.Swapped) {
		return nil, fmt.Errorf("%w: %w: is_swapped", ErrMalformedPayload, ErrMissingField)
	}
	// The backend sends 0/1; booleans are accepted too.
	switch string(bytes.TrimSpace(body.Swapped)) {
	case "1", "true":
		return SwapUpdate{Swapped: true}, nil
	case "0", "false":
		return SwapUpdate{Swapped: false}, nil
	default:
		return nil, fmt.Errorf("%w: %w: is_swapped=%s", ErrMalformedPayload, ErrFieldTypeInvalid, body.Swapped)
	}
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
