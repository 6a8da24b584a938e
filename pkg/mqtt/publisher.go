package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/getmockd/acceptevents/pkg/logging"
)

// Default timeouts for broker operations.
const (
	DefaultConnectTimeout = 5 * time.Second
	DefaultPublishTimeout = 5 * time.Second
	DefaultRetryInterval  = 2 * time.Second
)

var (
	// ErrNotConnected is returned when publishing without a broker connection.
	ErrNotConnected = errors.New("mqtt: not connected")

	// ErrTimeout is returned when the broker does not acknowledge in time.
	ErrTimeout = errors.New("mqtt: operation timed out")
)

// PublisherConfig configures the broker connection.
type PublisherConfig struct {
	// BrokerURL is the broker address, e.g. tcp://localhost:1883.
	BrokerURL string `yaml:"brokerUrl" json:"brokerUrl"`

	// ClientID identifies the publisher. A random ID is used when empty.
	ClientID string `yaml:"clientId" json:"clientId,omitempty"`

	Username string `yaml:"username" json:"username,omitempty"`
	Password string `yaml:"password" json:"password,omitempty"`

	ConnectTimeout time.Duration `yaml:"connectTimeout" json:"connectTimeout,omitempty"`
	PublishTimeout time.Duration `yaml:"publishTimeout" json:"publishTimeout,omitempty"`

	// RetryInterval is the delay between connection attempts, both before
	// the first successful connect and after a lost connection.
	RetryInterval time.Duration `yaml:"retryInterval" json:"retryInterval,omitempty"`

	// Logger for connection events.
	Logger *slog.Logger `yaml:"-" json:"-"`
}

func (c PublisherConfig) parse() PublisherConfig {
	if c.ClientID == "" {
		c.ClientID = "acceptevents-" + uuid.NewString()[:8]
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = DefaultPublishTimeout
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = DefaultRetryInterval
	}
	if c.Logger == nil {
		c.Logger = logging.Nop()
	}
	return c
}

// Publisher publishes event payloads over a shared broker connection.
// It is safe for concurrent use.
type Publisher struct {
	cfg    PublisherConfig
	client paho.Client
	log    *slog.Logger
}

// NewPublisher creates a publisher. Call Connect before publishing.
func NewPublisher(cfg PublisherConfig) *Publisher {
	cfg = cfg.parse()
	p := &Publisher{cfg: cfg, log: cfg.Logger}

	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL)
	opts.SetClientID(cfg.ClientID)
	opts.SetConnectTimeout(cfg.ConnectTimeout)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(cfg.RetryInterval)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(cfg.RetryInterval)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetOnConnectHandler(func(paho.Client) {
		p.log.Info("connected to mqtt broker", "broker", cfg.BrokerURL, "clientId", cfg.ClientID)
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		p.log.Warn("mqtt connection lost", "broker", cfg.BrokerURL, "error", err)
	})

	p.client = paho.NewClient(opts)
	return p
}

// Connect connects to the broker. If the broker cannot be reached within
// the connect timeout an error is returned, but the publisher keeps retrying
// in the background until Close.
func (p *Publisher) Connect(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	token := p.client.Connect()
	if !token.WaitTimeout(p.cfg.ConnectTimeout) {
		return fmt.Errorf("%w: connecting to %s", ErrTimeout, p.cfg.BrokerURL)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", p.cfg.BrokerURL, err)
	}
	return nil
}

// IsConnected reports whether the broker connection is open.
func (p *Publisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Publish sends payload to topic and waits for the broker acknowledgment
// required by qos.
func (p *Publisher) Publish(topic string, qos byte, retain bool, payload []byte) error {
	if !p.IsConnected() {
		return ErrNotConnected
	}

	token := p.client.Publish(topic, qos, retain, payload)
	if !token.WaitTimeout(p.cfg.PublishTimeout) {
		return fmt.Errorf("%w: publishing to %s", ErrTimeout, topic)
	}
	return token.Error()
}

// Close disconnects from the broker, waiting briefly for in-flight work.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
