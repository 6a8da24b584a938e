package mqtt

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/getmockd/acceptevents/pkg/events"
)

// Protocol is the Accept-Events identifier of this handler.
const Protocol = "mqtt"

// Accept-Events parameters understood by this handler.
const (
	ParamTopic = "topic"
	ParamQoS   = "qos"
)

// Failure reasons reported in the Events header.
const (
	ReasonBrokerUnavailable = "broker-unavailable"
	ReasonInvalidTopic      = "invalid-topic"
	ReasonPublishFailed     = "publish-failed"
)

// Client is the publishing side of a broker connection.
// *Publisher implements it.
type Client interface {
	IsConnected() bool
	Publish(topic string, qos byte, retain bool, payload []byte) error
}

// Config is the server-side configuration of the mqtt protocol.
type Config struct {
	// TopicPrefix is prepended to the client's topic, e.g. "events/".
	TopicPrefix string `yaml:"topicPrefix" json:"topicPrefix,omitempty"`

	// QoS is the maximum quality of service level (0, 1 or 2).
	QoS byte `yaml:"qos" json:"qos,omitempty"`

	// Retain publishes retained messages.
	Retain bool `yaml:"retain" json:"retain,omitempty"`
}

// Modifiers override Config for a single event.
type Modifiers struct {
	Retain *bool
}

// Handler publishes a negotiated event to the broker.
type Handler struct {
	events.Base
	client Client
	cfg    Config
}

// NewFactory returns the events.Factory registering this protocol.
// Every request shares client.
func NewFactory(client Client) events.Factory {
	return func(_ http.ResponseWriter, _ *http.Request) events.Handler {
		return &Handler{client: client}
	}
}

// Configure checks the broker connection and the configuration.
func (h *Handler) Configure(_ context.Context, cfg any) error {
	c, ok := events.DecodeConfig[Config](cfg)
	if !ok {
		return h.Settle(events.InvalidConfig(Protocol, cfg))
	}
	if c.QoS > 2 {
		return h.Settle(status(http.StatusBadRequest, events.ReasonInvalidConfig, fmt.Sprintf("qos %d out of range", c.QoS)))
	}
	if h.client == nil || !h.client.IsConnected() {
		return h.Settle(status(http.StatusServiceUnavailable, ReasonBrokerUnavailable, ""))
	}
	h.cfg = c
	return h.Settle(nil)
}

// Send publishes the event body to the client's topic.
func (h *Handler) Send(_ context.Context, d events.Delivery) error {
	topic, ok := d.Params.String(ParamTopic)
	if !ok || topic == "" {
		return status(http.StatusBadRequest, events.ReasonMissingParam, "topic parameter is required")
	}
	if strings.ContainsAny(topic, "+#\x00") {
		return status(http.StatusBadRequest, ReasonInvalidTopic, "topic must not contain wildcards")
	}

	qos := h.cfg.QoS
	if q, ok := d.Params.Int(ParamQoS); ok && q >= 0 && q < int64(qos) {
		qos = byte(q)
	}

	retain := h.cfg.Retain
	if mods, _ := events.DecodeConfig[Modifiers](d.Modifiers); mods.Retain != nil {
		retain = *mods.Retain
	}

	var payload []byte
	if d.Body != nil {
		var err error
		if payload, err = io.ReadAll(d.Body); err != nil {
			return status(http.StatusInternalServerError, events.ReasonError, err.Error())
		}
	}

	if err := h.client.Publish(h.cfg.TopicPrefix+topic, qos, retain, payload); err != nil {
		return status(http.StatusBadGateway, ReasonPublishFailed, err.Error())
	}
	return nil
}

func status(code int, reason, detail string) *events.Status {
	return &events.Status{Protocol: Protocol, Code: code, Reason: reason, Detail: detail}
}
