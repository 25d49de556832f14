package mqtt

import (
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/AaronLay10/Hellevator/internal/events"
	"github.com/AaronLay10/Hellevator/internal/scene"
)

// Commander queues operator commands for the tick loop. *scene.Scene
// implements it.
type Commander interface {
	Enqueue(cmd scene.Command)
}

type subscribeClient interface {
	Subscribe(topic string, handler paho.MessageHandler) error
}

// OperatorSubscriber feeds install/remove commands from <prefix>/operator
// into the scene. Subscribing is idempotent across reconnects.
type OperatorSubscriber struct {
	mu         sync.Mutex
	client     subscribeClient
	commander  Commander
	topic      string
	subscribed bool
}

// NewOperatorSubscriber creates a subscriber for prefix + "/operator".
func NewOperatorSubscriber(client subscribeClient, commander Commander, prefix string) *OperatorSubscriber {
	return &OperatorSubscriber{
		client:    client,
		commander: commander,
		topic:     prefix + "/operator",
	}
}

// Topic returns the subscribed topic.
func (s *OperatorSubscriber) Topic() string { return s.topic }

// Subscribe subscribes the operator topic if not already subscribed.
func (s *OperatorSubscriber) Subscribe() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subscribed {
		return nil
	}
	if err := s.client.Subscribe(s.topic, s.Handle); err != nil {
		return err
	}
	s.subscribed = true
	return nil
}

// IsSubscribed reports whether the operator topic is subscribed.
func (s *OperatorSubscriber) IsSubscribed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscribed
}

// ClearSubscription forgets the subscription.
// Call this on connection loss so the next Subscribe re-subscribes.
func (s *OperatorSubscriber) ClearSubscription() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribed = false
}

// Handle is the paho message handler for the operator topic.
func (s *OperatorSubscriber) Handle(_ paho.Client, msg paho.Message) {
	cmd, err := ParseCommand(msg.Payload())
	if err != nil {
		events.Emit("warning", "operator.rejected", err.Error(), map[string]interface{}{
			"topic":   msg.Topic(),
			"payload": string(msg.Payload()),
		})
		return
	}
	s.commander.Enqueue(cmd)
}
