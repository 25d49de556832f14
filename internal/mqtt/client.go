package mqtt

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/AaronLay10/Hellevator/internal/ctxlog"
)

// ErrNotConnected is returned when publishing without a broker connection.
var ErrNotConnected = errors.New("mqtt not connected")

// Client wraps the Paho MQTT client for the simulator.
type Client struct {
	client paho.Client
	mu     sync.Mutex
}

// BrokerURL returns the MQTT broker URL from env or default.
func BrokerURL() string {
	if url := os.Getenv("MQTT_URL"); url != "" {
		return url
	}
	return "tcp://localhost:1883"
}

// NewClient creates a new MQTT client but does not connect. Empty
// credentials connect anonymously.
func NewClient(clientID, username, password string) *Client {
	opts := paho.NewClientOptions().
		AddBroker(BrokerURL()).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetKeepAlive(30 * time.Second)
	if username != "" {
		opts.SetUsername(username).SetPassword(password)
	}

	return &Client{
		client: paho.NewClient(opts),
	}
}

// Connect attempts to connect to the broker.
// Returns an error if connection fails, but does not block indefinitely.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	token := c.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return &ConnectTimeoutError{}
	}
	return token.Error()
}

// Subscribe subscribes to a topic with the given handler.
func (c *Client) Subscribe(topic string, handler paho.MessageHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	token := c.client.Subscribe(topic, 1, handler)
	if !token.WaitTimeout(10 * time.Second) {
		return &SubscribeTimeoutError{Topic: topic}
	}
	return token.Error()
}

// Publish sends payload without waiting for the broker. It reports an
// error only if the client is offline or the publish already failed.
func (c *Client) Publish(topic string, qos byte, retained bool, payload []byte) error {
	if !c.client.IsConnected() {
		return ErrNotConnected
	}
	token := c.client.Publish(topic, qos, retained, payload)
	select {
	case <-token.Done():
		return token.Error()
	default:
		return nil
	}
}

// Disconnect cleanly disconnects from the broker.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.client.Disconnect(1000)
}

// IsConnected returns true if the client is connected.
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// ConnectTimeoutError indicates connection timed out.
type ConnectTimeoutError struct{}

func (e *ConnectTimeoutError) Error() string {
	return "mqtt connect timeout"
}

// SubscribeTimeoutError indicates subscription timed out.
type SubscribeTimeoutError struct {
	Topic string
}

func (e *SubscribeTimeoutError) Error() string {
	return "mqtt subscribe timeout: " + e.Topic
}

// Start connects and subscribes the operator topic, logging errors but not
// failing. It reports whether the client is connected and subscribed.
func (c *Client) Start(ctx context.Context, sub *OperatorSubscriber) bool {
	logger := ctxlog.FromContext(ctx)
	if err := c.Connect(); err != nil {
		logger.Warn("mqtt connect failed", "broker", BrokerURL(), "error", err)
		return false
	}

	if err := sub.Subscribe(); err != nil {
		logger.Warn("mqtt subscribe failed", "topic", sub.Topic(), "error", err)
		return false
	}

	logger.Info("mqtt connected", "broker", BrokerURL(), "topic", sub.Topic())
	return true
}

// Watch polls the connection every interval until ctx is done. When the
// client has reconnected it subscribes the operator topic again. onState
// is called with the connection state whenever it changes.
func (c *Client) Watch(ctx context.Context, sub *OperatorSubscriber, interval time.Duration, onState func(connected bool)) {
	logger := ctxlog.FromContext(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := c.IsConnected()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		connected := c.IsConnected()
		if !connected {
			sub.ClearSubscription()
		} else if !sub.IsSubscribed() {
			if err := sub.Subscribe(); err != nil {
				logger.Warn("mqtt resubscribe failed", "topic", sub.Topic(), "error", err)
			} else {
				logger.Info("mqtt resubscribed", "topic", sub.Topic())
			}
		}

		if connected != last {
			last = connected
			logger.Info("mqtt connection changed", "connected", connected)
			if onState != nil {
				onState(connected)
			}
		}
	}
}
