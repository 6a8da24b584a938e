package websocket

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/acceptevents/pkg/events"
	"github.com/getmockd/acceptevents/pkg/sse"
)

// newEventServer serves one event per request through the negotiation middleware.
func newEventServer(t *testing.T, body string, sendErr chan<- error) *httptest.Server {
	t.Helper()

	reg := events.NewRegistry()
	require.NoError(t, reg.Register(Protocol, NewFactory()))
	require.NoError(t, reg.Register(sse.Protocol, sse.NewFactory()))

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sendErr <- events.SendEvent(r, events.Event{
			Body: strings.NewReader(body),
			Config: events.Config{
				Protocol:     Config{Subprotocols: []string{"events.v1"}},
				sse.Protocol: sse.Config{},
			},
			Modifiers: map[string]any{Protocol: Modifiers{CloseReason: "done"}},
		})
	})
	return httptest.NewServer(events.Middleware(reg)(next))
}

func TestHandler_DeliversOverUpgrade(t *testing.T) {
	sendErr := make(chan error, 1)
	srv := newEventServer(t, `{"state":"updated"}`, sendErr)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := ws.Dial(ctx, url, &ws.DialOptions{
		Subprotocols: []string{"events.v1"},
		HTTPHeader:   http.Header{events.HeaderAcceptEvents: []string{`"websocket", "sse"`}},
	})
	require.NoError(t, err)
	defer func() { _ = conn.CloseNow() }()

	assert.Equal(t, "events.v1", conn.Subprotocol())

	typ, data, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, ws.MessageText, typ)
	assert.JSONEq(t, `{"state":"updated"}`, string(data))

	_, _, err = conn.Read(ctx)
	assert.Equal(t, ws.StatusNormalClosure, ws.CloseStatus(err))

	select {
	case err := <-sendErr:
		assert.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("timed out waiting for SendEvent")
	}
}

func TestHandler_BinaryParam(t *testing.T) {
	sendErr := make(chan error, 1)
	srv := newEventServer(t, "raw-bytes", sendErr)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := ws.Dial(ctx, url, &ws.DialOptions{
		HTTPHeader: http.Header{events.HeaderAcceptEvents: []string{`"websocket";binary`}},
	})
	require.NoError(t, err)
	defer func() { _ = conn.CloseNow() }()

	typ, data, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, ws.MessageBinary, typ)
	assert.Equal(t, "raw-bytes", string(data))
}

func TestHandler_FallsBackWithoutUpgrade(t *testing.T) {
	sendErr := make(chan error, 1)
	srv := newEventServer(t, "hello", sendErr)
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	req.Header.Set(events.HeaderAcceptEvents, `"websocket", "sse"`)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, sse.ContentTypeEventStream, resp.Header.Get("Content-Type"))
	assert.NoError(t, <-sendErr)
}

func TestHandler_ConfigureRequiresUpgrade(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	h := NewHandler(httptest.NewRecorder(), req)

	err := h.Configure(context.Background(), nil)

	var st *events.Status
	require.ErrorAs(t, err, &st)
	assert.Equal(t, http.StatusUpgradeRequired, st.Code)
	assert.Equal(t, ReasonUpgradeRequired, st.Reason)
	assert.Equal(t, events.StateFailed, h.State())
}

func TestHandler_ConfigureRejectsBadHandshake(t *testing.T) {
	const key = "dGhlIHNhbXBsZSBub25jZQ=="

	tests := []struct {
		name   string
		header map[string]string
		cfg    Config
		code   int
		reason string
	}{
		{
			name:   "missing version and key",
			header: map[string]string{},
			code:   http.StatusBadRequest,
			reason: ReasonBadHandshake,
		},
		{
			name:   "old version",
			header: map[string]string{"Sec-WebSocket-Version": "8", "Sec-WebSocket-Key": key},
			code:   http.StatusBadRequest,
			reason: ReasonBadHandshake,
		},
		{
			name:   "short key",
			header: map[string]string{"Sec-WebSocket-Version": "13", "Sec-WebSocket-Key": "c2hvcnQ="},
			code:   http.StatusBadRequest,
			reason: ReasonBadHandshake,
		},
		{
			name:   "foreign origin",
			header: map[string]string{"Sec-WebSocket-Version": "13", "Sec-WebSocket-Key": key, "Origin": "https://evil.example"},
			code:   http.StatusForbidden,
			reason: ReasonOriginForbidden,
		},
		{
			name:   "origin pattern match",
			header: map[string]string{"Sec-WebSocket-Version": "13", "Sec-WebSocket-Key": key, "Origin": "https://app.example"},
			cfg:    Config{OriginPatterns: []string{"*.example"}},
		},
		{
			name:   "origin check disabled",
			header: map[string]string{"Sec-WebSocket-Version": "13", "Sec-WebSocket-Key": key, "Origin": "https://evil.example"},
			cfg:    Config{InsecureSkipVerify: true},
		},
		{
			name:   "same host origin",
			header: map[string]string{"Sec-WebSocket-Version": "13", "Sec-WebSocket-Key": key, "Origin": "http://example.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "http://example.com/", nil)
			req.Header.Set("Upgrade", "websocket")
			req.Header.Set("Connection", "Upgrade")
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			h := NewHandler(hijackableRecorder{httptest.NewRecorder()}, req)

			err := h.Configure(context.Background(), tt.cfg)
			if tt.code == 0 {
				require.NoError(t, err)
				assert.Equal(t, events.StateConfigured, h.State())
				return
			}

			var st *events.Status
			require.ErrorAs(t, err, &st)
			assert.Equal(t, tt.code, st.Code)
			assert.Equal(t, tt.reason, st.Reason)
		})
	}
}

func TestHandler_ConfigureRequiresHijacker(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Sec-WebSocket-Version", "13")
	req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
	h := NewHandler(httptest.NewRecorder(), req)

	err := h.Configure(context.Background(), nil)

	var st *events.Status
	require.ErrorAs(t, err, &st)
	assert.Equal(t, http.StatusNotImplemented, st.Code)
}

// hijackableRecorder satisfies http.Hijacker without supporting it.
type hijackableRecorder struct {
	*httptest.ResponseRecorder
}

func (hijackableRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return nil, nil, errors.New("not supported")
}

func TestIsUpgradeRequest(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		upgrade    string
		connection string
		want       bool
	}{
		{"handshake", http.MethodGet, "websocket", "Upgrade", true},
		{"mixed case and list", http.MethodGet, "WebSocket", "keep-alive, upgrade", true},
		{"plain get", http.MethodGet, "", "", false},
		{"post", http.MethodPost, "websocket", "Upgrade", false},
		{"other upgrade", http.MethodGet, "h2c", "Upgrade", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, "/", nil)
			if tt.upgrade != "" {
				r.Header.Set("Upgrade", tt.upgrade)
			}
			if tt.connection != "" {
				r.Header.Set("Connection", tt.connection)
			}
			assert.Equal(t, tt.want, IsUpgradeRequest(r))
		})
	}
	assert.False(t, IsUpgradeRequest(nil))
}
