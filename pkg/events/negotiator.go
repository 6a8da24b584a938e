package events

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sort"

	"github.com/getmockd/acceptevents/pkg/logging"
)

// Option configures a Negotiator.
type Option func(*Negotiator)

// WithLogger sets the logger used for negotiation traces.
func WithLogger(l *slog.Logger) Option {
	return func(n *Negotiator) {
		if l != nil {
			n.log = l
		}
	}
}

// Negotiator picks the delivery protocol for events sent on one response.
// It is request scoped and not safe for concurrent use.
type Negotiator struct {
	w         http.ResponseWriter
	path      string
	accepted  []AcceptedProtocol
	handlers  map[string]Handler
	log       *slog.Logger
	delivered string
}

// NewNegotiator creates a Negotiator for one response.
// accepted must be in client preference order.
func NewNegotiator(w http.ResponseWriter, r *http.Request, accepted []AcceptedProtocol, handlers map[string]Handler, opts ...Option) *Negotiator {
	n := &Negotiator{
		w:        w,
		accepted: accepted,
		handlers: handlers,
		log:      logging.Nop(),
	}
	if r != nil && r.URL != nil {
		n.path = r.URL.Path
	}
	if n.handlers == nil {
		n.handlers = map[string]Handler{}
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Accepted returns the protocols accepted by the client in preference order.
func (n *Negotiator) Accepted() []AcceptedProtocol {
	return n.accepted
}

// Handler returns the handler registered for protocol on this response.
func (n *Negotiator) Handler(protocol string) (Handler, bool) {
	h, ok := n.handlers[protocol]
	return h, ok && h != nil
}

// Delivered returns the protocol that delivered the last successful event.
func (n *Negotiator) Delivered() (string, bool) {
	return n.delivered, n.delivered != ""
}

// SendEvent configures every protocol named in ev.Config and delivers the
// event through the first accepted protocol that was configured.
//
// It returns nil once one protocol delivers. When no protocol could be
// configured it returns the first configuration failure, or
// ErrNoProtocolConfigured if nothing reported one. When every attempted
// delivery fails it sets the Events response header to the first send
// failure and returns it. When no accepted protocol was configured it
// returns ErrNoAcceptedProtocol.
func (n *Negotiator) SendEvent(ctx context.Context, ev Event) error {
	n.delivered = ""

	var failure *Status

	// Config order carries no meaning; sort for deterministic first-failure selection.
	protocols := make([]string, 0, len(ev.Config))
	for p := range ev.Config {
		protocols = append(protocols, p)
	}
	sort.Strings(protocols)

	for _, protocol := range protocols {
		h, ok := n.Handler(protocol)
		if !ok {
			continue
		}

		if err := h.Configure(ctx, ev.Config[protocol]); err != nil {
			st := AsStatus(protocol, err)
			n.log.Debug("failed to configure event protocol",
				"protocol", protocol, "path", n.path, "status", st.Error())
			if failure == nil {
				failure = st
			}
		}
	}

	if !n.anyConfigured() {
		n.log.Debug("no event protocol configured", "path", n.path)
		if failure == nil {
			return ErrNoProtocolConfigured
		}
		return failure
	}

	failure = nil

	for _, a := range n.accepted {
		h, ok := n.Handler(a.Protocol)
		if !ok || !h.State().Configured() {
			continue
		}

		if err := rewind(ev.Body); err != nil {
			st := AsStatus(a.Protocol, err)
			if failure == nil {
				failure = st
			}
			continue
		}

		var modifiers any
		if ev.Modifiers != nil {
			modifiers = ev.Modifiers[a.Protocol]
		}

		err := h.Send(ctx, Delivery{
			Body:      ev.Body,
			Header:    ev.Header,
			Params:    a.Params,
			Modifiers: modifiers,
		})
		if err == nil {
			n.log.Debug("sent event", "protocol", a.Protocol, "path", n.path)
			n.delivered = a.Protocol
			return nil
		}

		st := AsStatus(a.Protocol, err)
		n.log.Debug("failed to send event",
			"protocol", a.Protocol, "path", n.path, "status", st.Error())
		if failure == nil {
			failure = st
		}
	}

	if failure == nil {
		return ErrNoAcceptedProtocol
	}

	if v, err := FormatEvents(failure); err != nil {
		n.log.Debug("failed to serialize events header", "protocol", failure.Protocol, "error", err)
	} else {
		n.w.Header().Set(HeaderEvents, v)
	}
	return failure
}

func (n *Negotiator) anyConfigured() bool {
	for _, h := range n.handlers {
		if h != nil && h.State().Configured() {
			return true
		}
	}
	return false
}

func rewind(body io.Reader) error {
	s, ok := body.(io.Seeker)
	if !ok {
		return nil
	}
	_, err := s.Seek(0, io.SeekStart)
	return err
}
