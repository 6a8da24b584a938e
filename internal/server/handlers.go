package server

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/getmockd/acceptevents/internal/storage"
	"github.com/getmockd/acceptevents/pkg/events"
	"github.com/getmockd/acceptevents/pkg/httputil"
	"github.com/getmockd/acceptevents/pkg/metrics"
	"github.com/getmockd/acceptevents/pkg/sse"
	"github.com/getmockd/acceptevents/pkg/webhook"
	"github.com/getmockd/acceptevents/pkg/websocket"
)

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status    string   `json:"status"`
	Protocols []string `json:"protocols"`
	Resources int      `json:"resources"`
}

// DeliveryResponse is returned when an event was delivered out of band.
type DeliveryResponse struct {
	Resource  string `json:"resource"`
	Version   int    `json:"version"`
	Delivered string `json:"delivered"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteOK(w, HealthResponse{
		Status:    "ok",
		Protocols: s.registry.Protocols(),
		Resources: s.store.Count(),
	})
}

func (s *Server) handleListResources(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteOK(w, s.store.List())
}

func (s *Server) handlePutResource(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxResourceSize+1))
	if err != nil {
		httputil.WriteBadRequest(w, "read_error", err.Error())
		return
	}
	if len(body) > MaxResourceSize {
		httputil.WriteError(w, http.StatusRequestEntityTooLarge, "too_large", "resource body exceeds "+strconv.Itoa(MaxResourceSize)+" bytes")
		return
	}

	existed := s.store.Exists(name)
	res := s.store.Set(name, r.Header.Get("Content-Type"), body)
	s.metrics.Resources.WithLabels().Set(float64(s.store.Count()))
	s.log.Debug("resource stored", "name", name, "version", res.Version, "size", len(body))

	if existed {
		httputil.WriteOK(w, res)
		return
	}
	httputil.WriteCreated(w, res)
}

func (s *Server) handleDeleteResource(w http.ResponseWriter, r *http.Request) {
	if !s.store.Delete(r.PathValue("name")) {
		httputil.WriteNotFound(w, "not_found", "resource not found")
		return
	}
	s.metrics.Resources.WithLabels().Set(float64(s.store.Count()))
	httputil.WriteNoContent(w)
}

func (s *Server) handleGetResource(w http.ResponseWriter, r *http.Request) {
	res := s.store.Get(r.PathValue("name"))
	if res == nil {
		httputil.WriteNotFound(w, "not_found", "resource not found")
		return
	}

	n := events.FromContext(r.Context())
	if n == nil || len(n.Accepted()) == 0 {
		s.metrics.Negotiations.WithLabels(metrics.ResultSkipped).Inc()
		writeResource(w, res)
		return
	}

	if err := s.deliver(w, r, n, res); err != nil {
		writeResource(w, res)
	}
}

// handleNotifyResource sends the resource as an event without the plain
// response fallback. A failed negotiation is reported as an error.
func (s *Server) handleNotifyResource(w http.ResponseWriter, r *http.Request) {
	res := s.store.Get(r.PathValue("name"))
	if res == nil {
		httputil.WriteNotFound(w, "not_found", "resource not found")
		return
	}

	n := events.FromContext(r.Context())
	if n == nil || len(n.Accepted()) == 0 {
		s.metrics.Negotiations.WithLabels(metrics.ResultSkipped).Inc()
		httputil.WriteError(w, http.StatusNotAcceptable, "not_acceptable", "request names no event protocol in "+events.HeaderAcceptEvents)
		return
	}

	if err := s.deliver(w, r, n, res); err != nil {
		httputil.WriteEventError(w, err)
	}
}

// deliver sends res through the negotiated protocols. On success the
// response is complete; on failure nothing has been written except the
// Events header.
func (s *Server) deliver(w http.ResponseWriter, r *http.Request, n *events.Negotiator, res *storage.Resource) error {
	start := time.Now()
	err := n.SendEvent(r.Context(), s.resourceEvent(res))
	s.observeNegotiation(w, n, err, time.Since(start))
	if err == nil {
		protocol, _ := n.Delivered()
		s.log.Debug("event delivered", "resource", res.Name, "protocol", protocol)
		if ownsResponse(protocol) {
			return nil
		}
		httputil.WriteJSON(w, http.StatusAccepted, DeliveryResponse{
			Resource:  res.Name,
			Version:   res.Version,
			Delivered: protocol,
		})
		return nil
	}

	var st *events.Status
	if errors.As(err, &st) {
		s.log.Debug("event negotiation failed", "resource", res.Name, "protocol", st.Protocol, "code", st.Code, "reason", st.Reason)
	} else {
		s.log.Debug("event negotiation failed", "resource", res.Name, "error", err)
	}
	return err
}

func (s *Server) resourceEvent(res *storage.Resource) events.Event {
	header := http.Header{}
	if res.ContentType != "" {
		header.Set("Content-Type", res.ContentType)
	}
	version := strconv.Itoa(res.Version)
	return events.Event{
		Body:   bytes.NewReader(res.Body),
		Header: header,
		Config: s.eventConfig(),
		Modifiers: map[string]any{
			sse.Protocol:       sse.Modifiers{ID: res.Name + ":" + version},
			webhook.Protocol:   webhook.Modifiers{Subject: res.Name},
			websocket.Protocol: websocket.Modifiers{CloseReason: "delivered"},
		},
	}
}

// ownsResponse reports whether protocol writes the HTTP response itself.
func ownsResponse(protocol string) bool {
	return protocol == sse.Protocol || protocol == websocket.Protocol
}

func writeResource(w http.ResponseWriter, res *storage.Resource) {
	if res.ContentType != "" {
		w.Header().Set("Content-Type", res.ContentType)
	}
	w.Header().Set("ETag", strconv.Quote(strconv.Itoa(res.Version)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Body)
}
