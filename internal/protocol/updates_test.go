package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/danmuck/scoreboard/internal/testutil/testlog"
)

func TestDecodeScoreUpdate(t *testing.T) {
	testlog.Start(t)
	upd, err := Decode(EventScoreUpdated, json.RawMessage(`{"score_A":3,"score_B":5,"court_id":12}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got, ok := upd.(ScoreUpdate)
	if !ok {
		t.Fatalf("expected ScoreUpdate, got %T", upd)
	}
	if got.A != 3 || got.B != 5 {
		t.Fatalf("unexpected scores: %+v", got)
	}
}

func TestDecodeScoreUpdateRejects(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		payload string
		want    error
	}{
		{payload: ``, want: ErrMalformedPayload},
		{payload: `null`, want: ErrMalformedPayload},
		{payload: `{"score_A":3}`, want: ErrMissingField},
		{payload: `{"score_B":3}`, want: ErrMissingField},
		{payload: `{"score_A":1.5,"score_B":2}`, want: ErrFieldTypeInvalid},
		{payload: `{"score_A":"1","score_B":2}`, want: ErrFieldTypeInvalid},
		{payload: `[1,2]`, want: ErrFieldTypeInvalid},
	}
	for _, tc := range cases {
		_, err := Decode(EventScoreUpdated, json.RawMessage(tc.payload))
		if !errors.Is(err, tc.want) {
			t.Fatalf("payload %q expected %v, got %v", tc.payload, tc.want, err)
		}
		if !errors.Is(err, ErrMalformedPayload) {
			t.Fatalf("payload %q should be malformed, got %v", tc.payload, err)
		}
	}
}

func TestDecodeSwapUpdate(t *testing.T) {
	testlog.Start(t)
	cases := map[string]bool{
		`{"is_swapped":1}`:                  true,
		`{"is_swapped":0}`:                  false,
		`{"is_swapped":true}`:               true,
		`{"is_swapped":false,"court_id":3}`: false,
	}
	for payload, want := range cases {
		upd, err := Decode(EventBoardStateUpdated, json.RawMessage(payload))
		if err != nil {
			t.Fatalf("payload %q: %v", payload, err)
		}
		got, ok := upd.(SwapUpdate)
		if !ok || got.Swapped != want {
			t.Fatalf("payload %q got=%+v want swapped=%t", payload, upd, want)
		}
	}
}

func TestDecodeSwapUpdateRejects(t *testing.T) {
	testlog.Start(t)
	for _, payload := range []string{`{}`, `{"is_swapped":null}`, `{"is_swapped":2}`, `{"is_swapped":"yes"}`, `nope`} {
		if _, err := Decode(EventBoardStateUpdated, json.RawMessage(payload)); !errors.Is(err, ErrMalformedPayload) {
			t.Fatalf("payload %q expected ErrMalformedPayload, got %v", payload, err)
		}
	}
}

func TestDecodeUnknownEvent(t *testing.T) {
	testlog.Start(t)
	upd, err := Decode("timer_started", json.RawMessage(`{"score_A":1,"score_B":1}`))
	if err != nil {
		t.Fatalf("unknown events should not error: %v", err)
	}
	if u, ok := upd.(UnknownUpdate); !ok || u.Name != "timer_started" || u.Kind() != KindUnknown {
		t.Fatalf("unexpected update: %+v", upd)
	}
}
