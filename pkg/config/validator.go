package config

import (
	"fmt"
	"strings"
)

// ValidationError describes an invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on %s: %s", e.Field, e.Message)
}

var validLogLevels = map[string]bool{
	"":        true,
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

var validLogFormats = map[string]bool{
	"":     true,
	"text": true,
	"json": true,
}

// Validate checks the configuration for errors.
func (c *ServerConfig) Validate() error {
	if strings.TrimSpace(c.Listen) == "" {
		return &ValidationError{Field: "listen", Message: "listen address is required"}
	}
	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		return &ValidationError{Field: "log.level", Message: fmt.Sprintf("unknown level %q", c.Log.Level)}
	}
	if !validLogFormats[strings.ToLower(c.Log.Format)] {
		return &ValidationError{Field: "log.format", Message: fmt.Sprintf("unknown format %q", c.Log.Format)}
	}

	if c.SSE != nil && c.SSE.Retry < 0 {
		return &ValidationError{Field: "sse.retry", Message: "retry must not be negative"}
	}

	if c.Webhook != nil {
		if c.Webhook.Source == "" {
			return &ValidationError{Field: "webhook.source", Message: "event source is required"}
		}
		if c.Webhook.Timeout < 0 {
			return &ValidationError{Field: "webhook.timeout", Message: "timeout must not be negative"}
		}
	}

	if c.MQTT != nil {
		if c.MQTT.Broker.BrokerURL == "" {
			return &ValidationError{Field: "mqtt.brokerUrl", Message: "broker URL is required"}
		}
		if c.MQTT.Protocol.QoS > 2 {
			return &ValidationError{Field: "mqtt.qos", Message: "qos must be 0, 1 or 2"}
		}
	}

	if c.SSE == nil && c.Webhook == nil && c.WebSocket == nil && c.MQTT == nil {
		return &ValidationError{Field: "protocols", Message: "at least one protocol section is required"}
	}
	return nil
}
