package sse

import (
	"strconv"
	"strings"
)

// Message is one server-sent event.
type Message struct {
	Type    string
	ID      string
	Retry   int
	Comment string
	Data    []byte
}

// Encoder handles SSE message formatting per W3C specification.
// See: https://html.spec.whatwg.org/multipage/server-sent-events.html
type Encoder struct{}

// NewEncoder creates a new SSE encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Encode formats a message into wire format.
func (e *Encoder) Encode(m Message) (string, error) {
	if len(m.Data) > MaxEventDataSize {
		return "", ErrEventTooLarge
	}
	if strings.ContainsAny(m.Type, "\r\n") || strings.ContainsAny(m.ID, "\r\n") {
		return "", ErrInvalidField
	}

	var sb strings.Builder

	if m.Comment != "" {
		sb.WriteString(e.FormatComment(m.Comment))
	}

	if m.Type != "" {
		sb.WriteString(fieldEvent)
		sb.WriteString(m.Type)
		sb.WriteByte('\n')
	}

	if m.ID != "" {
		sb.WriteString(fieldID)
		sb.WriteString(m.ID)
		sb.WriteByte('\n')
	}

	if m.Retry > 0 {
		sb.WriteString(fieldRetry)
		sb.WriteString(strconv.Itoa(m.Retry))
		sb.WriteByte('\n')
	}

	// Split multiline data into multiple data: fields
	data := strings.ReplaceAll(string(m.Data), "\r\n", "\n")
	for _, line := range strings.Split(data, "\n") {
		sb.WriteString(fieldData)
		sb.WriteString(line)
		sb.WriteByte('\n')
	}

	// End with blank line to dispatch the event
	sb.WriteByte('\n')

	return sb.String(), nil
}

// FormatComment formats a comment line.
// Comments start with : and are ignored by EventSource clients.
func (e *Encoder) FormatComment(comment string) string {
	var sb strings.Builder
	for _, line := range strings.Split(comment, "\n") {
		sb.WriteString(fieldComment)
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}
