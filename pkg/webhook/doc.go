// Package webhook delivers negotiated events to a client-supplied callback URL.
//
// The client names the callback in its Accept-Events entry:
//
//	Accept-Events: "webhook";target="https://client.example/hooks/orders"
//
// Events are posted as CloudEvents over HTTP, in binary content mode unless
// the protocol is configured for structured mode. Any 2xx response from the
// target counts as delivered.
//
// Without AllowedHosts only hosts resolving to public addresses are contacted.
// Loopback, private and link-local targets need an explicit AllowedHosts entry
// or AllowPrivateTargets.
package webhook
