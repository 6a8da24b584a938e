// Package websocket delivers negotiated events over a WebSocket upgrade.
//
// When the client's request is a WebSocket handshake and lists "websocket" in
// Accept-Events, the handler accepts the upgrade, writes the event body as a
// single message and closes the connection normally:
//
//	Accept-Events: "websocket";binary
//
// The binary parameter selects a binary frame; text is the default.
//
// The package uses github.com/coder/websocket for the underlying WebSocket protocol
// implementation.
package websocket
