package metrics

import (
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounter(t *testing.T) {
	reg := NewRegistry()
	c := reg.NewCounter("test_total", "Test counter", "protocol")

	c.WithLabels("sse").Inc()
	c.WithLabels("sse").Add(2)
	c.WithLabels("sse").Add(-5)
	c.WithLabels("webhook").Inc()

	assert.Equal(t, 3.0, c.WithLabels("sse").Value())
	assert.Equal(t, 1.0, c.WithLabels("webhook").Value())

	// wrong label count discards updates
	c.WithLabels("a", "b").Inc()
	assert.Equal(t, 0.0, c.WithLabels("a", "b").Value())
}

func TestGauge(t *testing.T) {
	reg := NewRegistry()
	g := reg.NewGauge("test_gauge", "Test gauge")

	g.WithLabels().Set(4)
	g.WithLabels().Add(-1)
	assert.Equal(t, 3.0, g.WithLabels().Value())
}

func TestHistogram(t *testing.T) {
	reg := NewRegistry()
	h := reg.NewHistogram("test_seconds", "Test histogram", []float64{1, 0.5}, "protocol")

	child := h.WithLabels("mqtt")
	child.Observe(0.25)
	child.Observe(0.5)
	child.Observe(4)
	assert.Equal(t, uint64(3), child.Count())

	var sb strings.Builder
	require.NoError(t, reg.Write(&sb))
	out := sb.String()

	assert.Contains(t, out, "# TYPE test_seconds histogram\n")
	assert.Contains(t, out, `test_seconds_bucket{protocol="mqtt",le="0.5"} 2`)
	assert.Contains(t, out, `test_seconds_bucket{protocol="mqtt",le="1"} 2`)
	assert.Contains(t, out, `test_seconds_bucket{protocol="mqtt",le="+Inf"} 3`)
	assert.Contains(t, out, `test_seconds_sum{protocol="mqtt"} 4.75`)
	assert.Contains(t, out, `test_seconds_count{protocol="mqtt"} 3`)
}

func TestRegistry_Handler(t *testing.T) {
	reg := NewRegistry()
	m := New(reg)
	m.Negotiations.WithLabels(ResultDelivered).Inc()
	m.Failures.WithLabels("webhook", `bad"reason`).Inc()

	rec := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "version=0.0.4")

	body := rec.Body.String()
	assert.Contains(t, body, "# HELP acceptevents_negotiations_total Event negotiations by result\n")
	assert.Contains(t, body, `acceptevents_negotiations_total{result="delivered"} 1`)
	assert.Contains(t, body, `acceptevents_delivery_failures_total{protocol="webhook",reason="bad\"reason"} 1`)
	assert.NotContains(t, body, "acceptevents_requests_total", "metrics without samples are omitted")
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	reg := NewRegistry()
	reg.NewCounter("dup", "a")
	assert.Panics(t, func() { reg.NewGauge("dup", "b") })
}

func TestCounter_Concurrent(t *testing.T) {
	reg := NewRegistry()
	c := reg.NewCounter("concurrent_total", "c", "k")

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.WithLabels("x").Inc()
		}()
	}
	wg.Wait()
	assert.Equal(t, 100.0, c.WithLabels("x").Value())
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "3", formatFloat(3))
	assert.Equal(t, "0.25", formatFloat(0.25))
	assert.Equal(t, "NaN", formatFloat(math.NaN()))
	assert.Equal(t, "+Inf", formatFloat(math.Inf(1)))
}
