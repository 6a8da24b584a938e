// Package events negotiates how an event is delivered to an HTTP client.
//
// A client lists the event-delivery protocols it accepts in the Accept-Events
// request header, most preferred first:
//
//	Accept-Events: "websocket", "sse";retry=2000, "webhook";target="https://example.com/hook"
//
// The server registers a Factory per protocol in a Registry and installs the
// negotiation Middleware. For every request the middleware parses the header,
// builds one Handler per registered protocol and stores a Negotiator in the
// request context.
//
// # Sending
//
// Application code calls SendEvent with the body and the server-side
// configuration of every protocol it is willing to use:
//
//	err := events.SendEvent(r, events.Event{
//	    Body: strings.NewReader(`{"state":"updated"}`),
//	    Config: events.Config{
//	        "sse":     sse.Config{EventType: "update"},
//	        "webhook": webhook.Config{Source: "/resources/a"},
//	    },
//	})
//
// Negotiation runs in two phases. Every protocol named in Config is configured
// first; if none succeeds the first configuration failure is returned. Then the
// accepted protocols are tried in client preference order and the first
// successful delivery ends the call. At most one protocol delivers an event.
//
// # Failures
//
// Failures are *Status values carrying the protocol, an HTTP-style code and a
// reason token. Only the first failure of each phase is kept. When no accepted
// protocol delivers, the first send failure is also written to the Events
// response header as a structured-field dictionary:
//
//	Events: webhook=502;reason=delivery-failed
package events
