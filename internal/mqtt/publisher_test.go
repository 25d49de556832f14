package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/AaronLay10/Hellevator/internal/scene"
)

func TestScorePublisher(t *testing.T) {
	mock := NewMockMQTTClient()
	pub := NewScorePublisher(mock, "hellevator/hell")

	sig := scene.Signal{
		Outcome:  scene.Failure,
		Agent:    "a-1",
		Score:    -1,
		Failures: 1,
		At:       time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	if err := pub.PublishScore(context.Background(), sig); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(mock.published) != 1 {
		t.Fatalf("expected 1 publish, got %d", len(mock.published))
	}
	p := mock.published[0]
	if p.topic != "hellevator/hell/score" || !p.retained || p.qos != 1 {
		t.Errorf("unexpected publish %+v", p)
	}

	var got scene.Signal
	if err := json.Unmarshal(p.payload, &got); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if !got.At.Equal(sig.At) {
		t.Errorf("at = %v, want %v", got.At, sig.At)
	}
	got.At = sig.At
	if got != sig {
		t.Errorf("got %+v, want %+v", got, sig)
	}
}

func TestScorePublisherError(t *testing.T) {
	mock := NewMockMQTTClient()
	mock.publishErr = ErrNotConnected
	pub := NewScorePublisher(mock, "p")

	err := pub.PublishScore(context.Background(), scene.Signal{Outcome: scene.Success})
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
}
