package mqtt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/AaronLay10/Hellevator/internal/scene"
)

type publishClient interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// ScorePublisher publishes every score signal to <prefix>/score for the
// score display.
type ScorePublisher struct {
	client publishClient
	topic  string
}

// NewScorePublisher creates a publisher for prefix + "/score".
func NewScorePublisher(client publishClient, prefix string) *ScorePublisher {
	return &ScorePublisher{client: client, topic: prefix + "/score"}
}

// Topic returns the publish topic.
func (p *ScorePublisher) Topic() string { return p.topic }

// PublishScore implements scene.ScoreSink. The latest signal is retained so
// a display that connects late shows the current score.
func (p *ScorePublisher) PublishScore(_ context.Context, s scene.Signal) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal score: %w", err)
	}
	return p.client.Publish(p.topic, 1, true, b)
}
