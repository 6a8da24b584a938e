package sse

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/getmockd/acceptevents/pkg/events"
	"github.com/google/uuid"
)

// Config is the server-side configuration of the sse protocol.
type Config struct {
	// EventType is the event field of delivered events. Empty means "message".
	EventType string `yaml:"eventType" json:"eventType,omitempty"`

	// Retry is the reconnection time in milliseconds sent to the client.
	Retry int `yaml:"retry" json:"retry,omitempty"`

	// Comment is written as a comment line before each event.
	Comment string `yaml:"comment" json:"comment,omitempty"`
}

// Modifiers override Config for a single event.
type Modifiers struct {
	EventType string
	ID        string
}

// Handler writes a negotiated event as a text/event-stream response.
type Handler struct {
	events.Base
	w       http.ResponseWriter
	flusher http.Flusher
	encoder *Encoder
	cfg     Config
}

// NewHandler creates an SSE handler writing to w.
func NewHandler(w http.ResponseWriter) *Handler {
	return &Handler{
		w:       w,
		encoder: NewEncoder(),
	}
}

// NewFactory returns the events.Factory registering this protocol.
func NewFactory() events.Factory {
	return func(w http.ResponseWriter, _ *http.Request) events.Handler {
		return NewHandler(w)
	}
}

// Configure checks that the response can be streamed.
func (h *Handler) Configure(_ context.Context, cfg any) error {
	c, ok := events.DecodeConfig[Config](cfg)
	if !ok {
		return h.Settle(events.InvalidConfig(Protocol, cfg))
	}

	flusher, ok := h.w.(http.Flusher)
	if !ok {
		return h.Settle(&events.Status{
			Protocol: Protocol,
			Code:     http.StatusNotImplemented,
			Reason:   ReasonNotStreamable,
			Detail:   "response writer does not support flushing",
		})
	}

	h.cfg = c
	h.flusher = flusher
	return h.Settle(nil)
}

// Send writes the event and flushes it to the client.
func (h *Handler) Send(_ context.Context, d events.Delivery) error {
	mods, _ := events.DecodeConfig[Modifiers](d.Modifiers)

	msg := Message{
		Type:    h.cfg.EventType,
		ID:      uuid.NewString(),
		Retry:   h.cfg.Retry,
		Comment: h.cfg.Comment,
	}
	if mods.EventType != "" {
		msg.Type = mods.EventType
	}
	if mods.ID != "" {
		msg.ID = mods.ID
	}

	if d.Body != nil {
		data, err := io.ReadAll(io.LimitReader(d.Body, MaxEventDataSize+1))
		if err != nil {
			return &events.Status{
				Protocol: Protocol,
				Code:     http.StatusInternalServerError,
				Reason:   events.ReasonError,
				Detail:   err.Error(),
			}
		}
		msg.Data = data
	}

	wire, err := h.encoder.Encode(msg)
	if err != nil {
		st := &events.Status{
			Protocol: Protocol,
			Code:     http.StatusBadRequest,
			Reason:   ReasonInvalidEvent,
			Detail:   err.Error(),
		}
		if errors.Is(err, ErrEventTooLarge) {
			st.Code = http.StatusRequestEntityTooLarge
			st.Reason = ReasonTooLarge
		}
		return st
	}

	h.setSSEHeaders()
	h.w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(h.w, wire); err != nil {
		return &events.Status{
			Protocol: Protocol,
			Code:     http.StatusBadGateway,
			Reason:   events.ReasonFailed,
			Detail:   err.Error(),
		}
	}
	h.flusher.Flush()
	return nil
}

func (h *Handler) setSSEHeaders() {
	h.w.Header().Set("Content-Type", ContentTypeEventStream)
	h.w.Header().Set("Cache-Control", "no-cache")
	h.w.Header().Set("Connection", "keep-alive")
	h.w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
}
