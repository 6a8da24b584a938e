package server

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/getmockd/acceptevents/pkg/events"
	"github.com/getmockd/acceptevents/pkg/metrics"
)

// statusRecorder captures the response status. It keeps the Flusher and
// Hijacker of the underlying writer available to sse and websocket.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	if r.status == 0 {
		r.status = http.StatusSwitchingProtocols
	}
	return hj.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// instrument counts requests by method, route pattern and status.
func (s *Server) instrument(mux *http.ServeMux, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		_, route := mux.Handler(r)
		if route == "" {
			route = "unmatched"
		}
		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.Requests.WithLabels(r.Method, route, strconv.Itoa(status)).Inc()
	})
}

// observeNegotiation records the result of one SendEvent call.
func (s *Server) observeNegotiation(w http.ResponseWriter, n *events.Negotiator, err error, elapsed time.Duration) {
	m := s.metrics
	if err == nil {
		protocol, _ := n.Delivered()
		m.Negotiations.WithLabels(metrics.ResultDelivered).Inc()
		m.Deliveries.WithLabels(protocol, "ok").Observe(elapsed.Seconds())
		return
	}

	var st *events.Status
	switch {
	case errors.Is(err, events.ErrNoAcceptedProtocol):
		m.Negotiations.WithLabels(metrics.ResultNotAccepted).Inc()
	case w.Header().Get(events.HeaderEvents) != "" && errors.As(err, &st):
		m.Negotiations.WithLabels(metrics.ResultFailed).Inc()
		m.Failures.WithLabels(st.Protocol, st.Reason).Inc()
		m.Deliveries.WithLabels(st.Protocol, "error").Observe(elapsed.Seconds())
	default:
		m.Negotiations.WithLabels(metrics.ResultUnconfigured).Inc()
	}
}
