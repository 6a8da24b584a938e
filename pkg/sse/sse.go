// Package sse delivers negotiated events as server-sent events.
//
// The handler answers the current request with a text/event-stream response
// carrying the event, formatted per the W3C EventSource specification.
package sse

import (
	"errors"
)

// Protocol is the Accept-Events identifier of this handler.
const Protocol = "sse"

// SSE-related constants per W3C specification
const (
	// ContentTypeEventStream is the MIME type for SSE responses
	ContentTypeEventStream = "text/event-stream"

	// MaxEventDataSize is the maximum size of event data in bytes
	MaxEventDataSize = 1 << 20 // 1MB
)

// SSE field prefixes per W3C specification
const (
	fieldEvent   = "event:"
	fieldData    = "data:"
	fieldID      = "id:"
	fieldRetry   = "retry:"
	fieldComment = ":"
)

// Failure reasons reported in the Events header.
const (
	ReasonNotStreamable = "not-streamable"
	ReasonTooLarge      = "event-too-large"
	ReasonInvalidEvent  = "invalid-event"
)

// Errors
var (
	// ErrEventTooLarge indicates the event data exceeds size limit
	ErrEventTooLarge = errors.New("sse: event data too large")

	// ErrInvalidField indicates an event type or ID containing a line break
	ErrInvalidField = errors.New("sse: invalid event field")
)
