package websocket

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	ws "github.com/coder/websocket"

	"github.com/getmockd/acceptevents/pkg/events"
)

// Protocol is the Accept-Events identifier of this handler.
const Protocol = "websocket"

// ParamBinary selects a binary message when present in Accept-Events.
const ParamBinary = "binary"

// DefaultWriteTimeout bounds writing the event message.
const DefaultWriteTimeout = 10 * time.Second

// Config is the server-side configuration of the websocket protocol.
type Config struct {
	// Subprotocols lists the subprotocols the server supports, in preference order.
	Subprotocols []string `yaml:"subprotocols" json:"subprotocols,omitempty"`

	// OriginPatterns lists additional allowed origin host patterns.
	OriginPatterns []string `yaml:"originPatterns" json:"originPatterns,omitempty"`

	// InsecureSkipVerify disables the origin check.
	InsecureSkipVerify bool `yaml:"insecureSkipVerify" json:"insecureSkipVerify,omitempty"`

	// WriteTimeout bounds writing the message. Defaults to DefaultWriteTimeout.
	WriteTimeout time.Duration `yaml:"writeTimeout" json:"writeTimeout,omitempty"`
}

// Modifiers override Config for a single event.
type Modifiers struct {
	// CloseReason is sent with the normal closure frame.
	CloseReason string
}

// Handler upgrades the request and writes the event as one message.
type Handler struct {
	events.Base
	w   http.ResponseWriter
	r   *http.Request
	cfg Config
}

// NewHandler creates a WebSocket handler for one request.
func NewHandler(w http.ResponseWriter, r *http.Request) *Handler {
	return &Handler{w: w, r: r}
}

// NewFactory returns the events.Factory registering this protocol.
func NewFactory() events.Factory {
	return func(w http.ResponseWriter, r *http.Request) events.Handler {
		return NewHandler(w, r)
	}
}

// Configure checks that the request is a WebSocket handshake the server
// will accept. Accepting writes the response, so every check that could
// reject the upgrade happens here rather than in Send.
func (h *Handler) Configure(_ context.Context, cfg any) error {
	c, ok := events.DecodeConfig[Config](cfg)
	if !ok {
		return h.Settle(events.InvalidConfig(Protocol, cfg))
	}
	if err := h.verifyHandshake(c); err != nil {
		return h.Settle(err)
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	h.cfg = c
	return h.Settle(nil)
}

func (h *Handler) verifyHandshake(c Config) *events.Status {
	if !IsUpgradeRequest(h.r) {
		return status(http.StatusUpgradeRequired, ReasonUpgradeRequired, "")
	}
	if v := h.r.Header.Get("Sec-WebSocket-Version"); v != "13" {
		return status(http.StatusBadRequest, ReasonBadHandshake, fmt.Sprintf("unsupported version %q", v))
	}
	keys := h.r.Header.Values("Sec-WebSocket-Key")
	if len(keys) != 1 {
		return status(http.StatusBadRequest, ReasonBadHandshake, "exactly one Sec-WebSocket-Key is required")
	}
	if key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(keys[0])); err != nil || len(key) != 16 {
		return status(http.StatusBadRequest, ReasonBadHandshake, "Sec-WebSocket-Key must be 16 base64 encoded bytes")
	}
	if !c.InsecureSkipVerify {
		if err := checkOrigin(h.r, c.OriginPatterns); err != nil {
			return status(http.StatusForbidden, ReasonOriginForbidden, err.Error())
		}
	}
	if !canHijack(h.w) {
		return status(http.StatusNotImplemented, events.ReasonUnsupported, "response writer does not support hijacking")
	}
	return nil
}

// checkOrigin allows a missing Origin, a same-host Origin and origins
// matching one of patterns.
func checkOrigin(r *http.Request, patterns []string) error {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return nil
	}
	u, err := url.Parse(origin)
	if err != nil {
		return fmt.Errorf("invalid origin %q", origin)
	}
	if strings.EqualFold(r.Host, u.Host) {
		return nil
	}
	for _, pattern := range patterns {
		target := u.Host
		if strings.Contains(pattern, "://") {
			target = u.Scheme + "://" + u.Host
		}
		matched, err := path.Match(strings.ToLower(pattern), strings.ToLower(target))
		if err != nil {
			return fmt.Errorf("invalid origin pattern %q", pattern)
		}
		if matched {
			return nil
		}
	}
	return fmt.Errorf("origin %q not allowed", u.Host)
}

func canHijack(w http.ResponseWriter) bool {
	for {
		switch t := w.(type) {
		case http.Hijacker:
			return true
		case interface{ Unwrap() http.ResponseWriter }:
			w = t.Unwrap()
		default:
			return false
		}
	}
}

// Send accepts the upgrade, writes the event and closes the connection.
func (h *Handler) Send(ctx context.Context, d events.Delivery) error {
	mods, _ := events.DecodeConfig[Modifiers](d.Modifiers)

	var data []byte
	if d.Body != nil {
		var err error
		if data, err = io.ReadAll(d.Body); err != nil {
			return status(http.StatusInternalServerError, events.ReasonError, err.Error())
		}
	}

	conn, err := ws.Accept(h.w, h.r, &ws.AcceptOptions{
		Subprotocols:       h.cfg.Subprotocols,
		OriginPatterns:     h.cfg.OriginPatterns,
		InsecureSkipVerify: h.cfg.InsecureSkipVerify,
	})
	if err != nil {
		return status(http.StatusBadRequest, ReasonHandshakeFailed, err.Error())
	}

	msgType := ws.MessageText
	if d.Params.Bool(ParamBinary) {
		msgType = ws.MessageBinary
	}

	writeCtx, cancel := context.WithTimeout(ctx, h.cfg.WriteTimeout)
	defer cancel()

	if err := conn.Write(writeCtx, msgType, data); err != nil {
		_ = conn.Close(ws.StatusInternalError, "write failed")
		return status(http.StatusBadGateway, ReasonWriteFailed, err.Error())
	}

	_ = conn.Close(ws.StatusNormalClosure, mods.CloseReason)
	return nil
}

// IsUpgradeRequest reports whether r is a WebSocket opening handshake.
func IsUpgradeRequest(r *http.Request) bool {
	if r == nil || r.Method != http.MethodGet || !r.ProtoAtLeast(1, 1) {
		return false
	}
	return hasToken(r.Header, "Upgrade", "websocket") && hasToken(r.Header, "Connection", "upgrade")
}

func hasToken(h http.Header, key, token string) bool {
	for _, v := range h.Values(key) {
		for _, t := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(t), token) {
				return true
			}
		}
	}
	return false
}

func status(code int, reason, detail string) *events.Status {
	return &events.Status{Protocol: Protocol, Code: code, Reason: reason, Detail: detail}
}
