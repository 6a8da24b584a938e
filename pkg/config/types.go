package config

import (
	"github.com/getmockd/acceptevents/pkg/mqtt"
	"github.com/getmockd/acceptevents/pkg/sse"
	"github.com/getmockd/acceptevents/pkg/webhook"
	"github.com/getmockd/acceptevents/pkg/websocket"
)

const (
	// DefaultListen is the default HTTP listen address.
	DefaultListen = ":8080"

	// DefaultSource is the CloudEvents source of the default webhook section.
	DefaultSource = "urn:getmockd:acceptevents"
)

// ServerConfig is the top-level server configuration.
// A nil protocol section disables that protocol.
type ServerConfig struct {
	Listen    string            `yaml:"listen" json:"listen"`
	Log       LogConfig         `yaml:"log" json:"log"`
	SSE       *sse.Config       `yaml:"sse,omitempty" json:"sse,omitempty"`
	Webhook   *webhook.Config   `yaml:"webhook,omitempty" json:"webhook,omitempty"`
	WebSocket *websocket.Config `yaml:"websocket,omitempty" json:"websocket,omitempty"`
	MQTT      *MQTTConfig       `yaml:"mqtt,omitempty" json:"mqtt,omitempty"`
}

// LogConfig selects the log level and format.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// MQTTConfig holds the broker connection and the protocol settings.
type MQTTConfig struct {
	Broker   mqtt.PublisherConfig `yaml:",inline"`
	Protocol mqtt.Config          `yaml:",inline"`
}

// Default returns a configuration with sse, webhook and websocket enabled.
func Default() *ServerConfig {
	return &ServerConfig{
		Listen:    DefaultListen,
		Log:       LogConfig{Level: "info", Format: "text"},
		SSE:       &sse.Config{},
		Webhook:   &webhook.Config{Source: DefaultSource},
		WebSocket: &websocket.Config{},
	}
}

// Protocols returns the identifiers of the enabled protocols.
func (c *ServerConfig) Protocols() []string {
	var out []string
	if c.SSE != nil {
		out = append(out, sse.Protocol)
	}
	if c.Webhook != nil {
		out = append(out, webhook.Protocol)
	}
	if c.WebSocket != nil {
		out = append(out, websocket.Protocol)
	}
	if c.MQTT != nil {
		out = append(out, mqtt.Protocol)
	}
	return out
}
