package events

import (
	"fmt"
	"io"
	"net/http"
)

// Header names used by event negotiation.
const (
	// HeaderAcceptEvents lists the protocols a client accepts, most preferred first.
	HeaderAcceptEvents = "Accept-Events"

	// HeaderEvents carries the terminal delivery failure on the response.
	HeaderEvents = "Events"
)

// AcceptedProtocol is one entry of the Accept-Events header.
type AcceptedProtocol struct {
	// Protocol is the protocol identifier, e.g. "sse" or "webhook".
	Protocol string

	// Params holds the parameters the client attached to the protocol.
	Params Params
}

// Params holds protocol parameters taken from the Accept-Events header.
// Values are string, int64, float64, bool or []byte.
type Params map[string]any

// String returns the parameter as a string.
func (p Params) String(key string) (string, bool) {
	v, ok := p[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Int returns the parameter as an int64.
func (p Params) Int(key string) (int64, bool) {
	v, ok := p[key]
	if !ok {
		return 0, false
	}
	i, ok := v.(int64)
	return i, ok
}

// Bool returns the parameter as a bool.
// A missing parameter reports false.
func (p Params) Bool(key string) bool {
	b, _ := p[key].(bool)
	return b
}

// Config maps a protocol identifier to the server-side settings used when
// configuring that protocol for one send.
type Config map[string]any

// Event is the payload handed to SendEvent.
type Event struct {
	// Body is the event body. A body implementing io.Seeker is rewound before
	// every delivery attempt; any other reader is consumed by the first attempt.
	Body io.Reader

	// Header holds headers to deliver along with the body.
	Header http.Header

	// Modifiers holds per-protocol delivery overrides keyed by protocol identifier.
	Modifiers map[string]any

	// Config holds the per-protocol configuration for this send.
	Config Config
}

// Delivery is what a Handler receives when asked to send an event.
type Delivery struct {
	Body      io.Reader
	Header    http.Header
	Params    Params
	Modifiers any
}

// State is the configuration state of a handler for the current request.
type State int

// Handler configuration states.
const (
	StateUnconfigured State = iota
	StateConfigured
	StateFailed
)

// Configured reports whether configuration succeeded.
func (s State) Configured() bool {
	return s == StateConfigured
}

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateConfigured:
		return "configured"
	case StateFailed:
		return "failed"
	default:
		return "unconfigured"
	}
}

// DecodeConfig converts a Config or Modifiers value to T.
// It accepts T, *T and nil (the zero T). Any other type reports false.
func DecodeConfig[T any](v any) (T, bool) {
	var zero T
	switch c := v.(type) {
	case nil:
		return zero, true
	case T:
		return c, true
	case *T:
		if c == nil {
			return zero, true
		}
		return *c, true
	default:
		return zero, false
	}
}

// InvalidConfig returns the failure reported when a protocol receives a
// configuration of the wrong type.
func InvalidConfig(protocol string, v any) *Status {
	return &Status{
		Protocol: protocol,
		Code:     http.StatusBadRequest,
		Reason:   ReasonInvalidConfig,
		Detail:   fmt.Sprintf("unexpected config type %T", v),
	}
}
