package events

import (
	"context"
	"net/http"
)

// Handler delivers events over one protocol for one request.
//
// Configure prepares the handler with the server-side configuration for the
// protocol and records the outcome, which State then reports. Send delivers
// the event. Both return nil on success and a *Status, or any other error,
// on failure.
type Handler interface {
	Configure(ctx context.Context, cfg any) error
	Send(ctx context.Context, d Delivery) error
	State() State
}

// Factory builds the Handler for a protocol on one request.
// It may return nil when the protocol cannot serve the request at all.
// Factories must not perform I/O.
type Factory func(w http.ResponseWriter, r *http.Request) Handler

// Base records the configuration state of a handler.
// Protocol handlers embed it and call Settle from Configure.
type Base struct {
	state State
}

// State returns the configuration state.
func (b *Base) State() State {
	return b.state
}

// Settle records the outcome of configuration and returns err unchanged.
// Only the first call per handler changes the state.
func (b *Base) Settle(err error) error {
	if b.state != StateUnconfigured {
		return err
	}
	if err != nil {
		b.state = StateFailed
	} else {
		b.state = StateConfigured
	}
	return err
}
