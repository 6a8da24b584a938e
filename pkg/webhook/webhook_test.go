package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"sync"
	"testing"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	cehttp "github.com/cloudevents/sdk-go/v2/protocol/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/acceptevents/pkg/events"
)

// receiver collects CloudEvents posted to a test server.
type receiver struct {
	mu      sync.Mutex
	events  []cloudevents.Event
	headers []http.Header
	status  int
}

func (rc *receiver) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	event, err := cehttp.NewEventFromHTTPRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rc.mu.Lock()
	rc.events = append(rc.events, *event)
	rc.headers = append(rc.headers, r.Header.Clone())
	code := rc.status
	rc.mu.Unlock()
	if code == 0 {
		code = http.StatusNoContent
	}
	w.WriteHeader(code)
}

func newHandler(t *testing.T, cfg any) *Handler {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/resources/orders", nil)
	h, ok := NewFactory()(httptest.NewRecorder(), req).(*Handler)
	require.True(t, ok)
	require.NoError(t, h.Configure(context.Background(), cfg))
	return h
}

func TestHandler_SendBinary(t *testing.T) {
	rc := &receiver{}
	srv := httptest.NewServer(rc)
	defer srv.Close()

	h := newHandler(t, Config{Source: "/resources/orders", AllowPrivateTargets: true})

	err := h.Send(context.Background(), events.Delivery{
		Body:   strings.NewReader(`{"id":7}`),
		Header: http.Header{"Content-Type": []string{"application/json"}},
		Params: events.Params{ParamTarget: srv.URL + "/hook"},
	})
	require.NoError(t, err)

	require.Len(t, rc.events, 1)
	got := rc.events[0]
	assert.Equal(t, "/resources/orders", got.Source())
	assert.Equal(t, DefaultEventType, got.Type())
	assert.Equal(t, "/resources/orders", got.Subject())
	assert.Equal(t, "application/json", got.DataContentType())
	assert.JSONEq(t, `{"id":7}`, string(got.Data()))
	assert.NotEmpty(t, rc.headers[0].Get("Ce-Id"), "binary mode carries attributes in headers")
}

func TestHandler_SendStructuredWithModifiers(t *testing.T) {
	rc := &receiver{}
	srv := httptest.NewServer(rc)
	defer srv.Close()

	h := newHandler(t, &Config{Source: "urn:test", Type: "order.created", AllowedHosts: []string{"127.0.0.1"}, Structured: true, Timeout: 5 * time.Second})

	err := h.Send(context.Background(), events.Delivery{
		Body:      strings.NewReader("plain"),
		Params:    events.Params{ParamTarget: srv.URL},
		Modifiers: Modifiers{Type: "order.updated", Subject: "orders/7"},
	})
	require.NoError(t, err)

	require.Len(t, rc.events, 1)
	assert.Equal(t, "order.updated", rc.events[0].Type())
	assert.Equal(t, "orders/7", rc.events[0].Subject())
	assert.Equal(t, "application/octet-stream", rc.events[0].DataContentType())
	assert.Contains(t, rc.headers[0].Get("Content-Type"), "application/cloudevents+json")
}

func TestHandler_SendFailures(t *testing.T) {
	rc := &receiver{status: http.StatusInternalServerError}
	srv := httptest.NewServer(rc)
	defer srv.Close()

	tests := []struct {
		name   string
		cfg    Config
		params events.Params
		code   int
		reason string
	}{
		{
			name:   "missing target",
			cfg:    Config{Source: "s"},
			params: events.Params{},
			code:   http.StatusBadRequest,
			reason: events.ReasonMissingParam,
		},
		{
			name:   "relative target",
			cfg:    Config{Source: "s"},
			params: events.Params{ParamTarget: "/hook"},
			code:   http.StatusBadRequest,
			reason: ReasonInvalidTarget,
		},
		{
			name:   "unsupported scheme",
			cfg:    Config{Source: "s"},
			params: events.Params{ParamTarget: "ftp://example.com/x"},
			code:   http.StatusBadRequest,
			reason: ReasonInvalidTarget,
		},
		{
			name:   "host not allowed",
			cfg:    Config{Source: "s", AllowedHosts: []string{"hooks.example.com"}},
			params: events.Params{ParamTarget: srv.URL},
			code:   http.StatusForbidden,
			reason: ReasonTargetForbidden,
		},
		{
			name:   "loopback target",
			cfg:    Config{Source: "s"},
			params: events.Params{ParamTarget: srv.URL},
			code:   http.StatusForbidden,
			reason: ReasonTargetForbidden,
		},
		{
			name:   "metadata address",
			cfg:    Config{Source: "s"},
			params: events.Params{ParamTarget: "http://169.254.169.254/latest/meta-data/"},
			code:   http.StatusForbidden,
			reason: ReasonTargetForbidden,
		},
		{
			name:   "private network address",
			cfg:    Config{Source: "s"},
			params: events.Params{ParamTarget: "http://10.0.0.8:8080/hook"},
			code:   http.StatusForbidden,
			reason: ReasonTargetForbidden,
		},
		{
			name:   "ipv4-mapped loopback",
			cfg:    Config{Source: "s"},
			params: events.Params{ParamTarget: "http://[::ffff:127.0.0.1]/hook"},
			code:   http.StatusForbidden,
			reason: ReasonTargetForbidden,
		},
		{
			name:   "target rejects event",
			cfg:    Config{Source: "s", AllowedHosts: []string{"127.0.0.1"}},
			params: events.Params{ParamTarget: srv.URL},
			code:   http.StatusBadGateway,
			reason: events.ReasonFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHandler(t, tt.cfg)

			err := h.Send(context.Background(), events.Delivery{
				Body:   strings.NewReader("x"),
				Params: tt.params,
			})

			var st *events.Status
			require.ErrorAs(t, err, &st)
			assert.Equal(t, Protocol, st.Protocol)
			assert.Equal(t, tt.code, st.Code)
			assert.Equal(t, tt.reason, st.Reason)
		})
	}
}

func TestHandler_LoopbackHostnameRefused(t *testing.T) {
	rc := &receiver{}
	srv := httptest.NewServer(rc)
	defer srv.Close()

	target := strings.Replace(srv.URL, "127.0.0.1", "localhost", 1)
	h := newHandler(t, Config{Source: "s"})

	err := h.Send(context.Background(), events.Delivery{Params: events.Params{ParamTarget: target}})

	var st *events.Status
	require.ErrorAs(t, err, &st)
	assert.Equal(t, http.StatusForbidden, st.Code)
	assert.Equal(t, ReasonTargetForbidden, st.Reason)
	assert.Empty(t, rc.events, "refused targets are never contacted")
}

func TestIsPublicAddr(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"93.184.216.34", true},
		{"2606:4700::1111", true},
		{"127.0.0.1", false},
		{"::1", false},
		{"10.1.2.3", false},
		{"172.16.0.1", false},
		{"192.168.1.1", false},
		{"169.254.169.254", false},
		{"fe80::1", false},
		{"fd00::1", false},
		{"100.64.0.1", false},
		{"0.0.0.0", false},
		{"224.0.0.1", false},
		{"::ffff:10.0.0.1", false},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPublicAddr(netip.MustParseAddr(tt.addr)))
		})
	}
}

func TestHandler_ConfigureRequiresSource(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	h := NewFactory()(httptest.NewRecorder(), req)

	err := h.Configure(context.Background(), Config{})

	var st *events.Status
	require.ErrorAs(t, err, &st)
	assert.Equal(t, events.ReasonInvalidConfig, st.Reason)
	assert.Equal(t, events.StateFailed, h.State())
}

func TestHandler_UnreachableTarget(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	target := srv.URL
	srv.Close()

	h := newHandler(t, Config{Source: "s", AllowPrivateTargets: true})
	err := h.Send(context.Background(), events.Delivery{Params: events.Params{ParamTarget: target}})

	var st *events.Status
	require.ErrorAs(t, err, &st)
	assert.Equal(t, http.StatusBadGateway, st.Code)
}
