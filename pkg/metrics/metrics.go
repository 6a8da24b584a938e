package metrics

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// ErrLabelCountMismatch is returned when the number of label values doesn't match the defined labels.
var ErrLabelCountMismatch = errors.New("label count mismatch")

// ErrDuplicateMetric is returned when registering a metric with a name that is already registered.
var ErrDuplicateMetric = errors.New("duplicate metric name")

// MetricType represents the type of a metric.
type MetricType string

const (
	MetricTypeCounter   MetricType = "counter"
	MetricTypeGauge     MetricType = "gauge"
	MetricTypeHistogram MetricType = "histogram"
)

// Sample is a single exposed value.
type Sample struct {
	Name   string
	Labels []Label
	Value  float64
}

// Label is one name/value pair of a sample.
type Label struct {
	Name  string
	Value string
}

// metric is implemented by every metric kind.
type metric interface {
	desc() *desc
	collect() []Sample
}

// desc holds what every metric kind shares.
type desc struct {
	name       string
	help       string
	typ        MetricType
	labelNames []string
}

func (d *desc) labels(values []string) ([]Label, error) {
	if len(values) != len(d.labelNames) {
		return nil, fmt.Errorf("%w: %s expected %d labels, got %d", ErrLabelCountMismatch, d.name, len(d.labelNames), len(values))
	}
	out := make([]Label, len(values))
	for i, v := range values {
		out[i] = Label{Name: d.labelNames[i], Value: v}
	}
	return out, nil
}

// series is a set of children keyed by label values.
type series[T any] struct {
	mu       sync.RWMutex
	children map[string]*T
	labels   map[string][]Label
}

func (s *series[T]) get(d *desc, values []string, create func() *T) (*T, error) {
	key := strings.Join(values, "\x00")

	s.mu.RLock()
	c, ok := s.children[key]
	s.mu.RUnlock()
	if ok {
		return c, nil
	}

	labels, err := d.labels(values)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.children[key]; ok {
		return c, nil
	}
	if s.children == nil {
		s.children = make(map[string]*T)
		s.labels = make(map[string][]Label)
	}
	c = create()
	s.children[key] = c
	s.labels[key] = labels
	return c, nil
}

func (s *series[T]) each(fn func(labels []Label, c *T)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.children))
	for k := range s.children {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fn(s.labels[k], s.children[k])
	}
}

// atomicFloat64 stores a float64 as bits for atomic access.
type atomicFloat64 struct {
	bits atomic.Uint64
}

func (a *atomicFloat64) Load() float64 {
	return math.Float64frombits(a.bits.Load())
}

func (a *atomicFloat64) Store(v float64) {
	a.bits.Store(math.Float64bits(v))
}

func (a *atomicFloat64) Add(delta float64) {
	for {
		old := a.bits.Load()
		if a.bits.CompareAndSwap(old, math.Float64bits(math.Float64frombits(old)+delta)) {
			return
		}
	}
}

// Counter is a monotonically increasing metric.
type Counter struct {
	d      desc
	series series[atomicFloat64]
}

// CounterChild is the counter of one label combination.
type CounterChild struct {
	v *atomicFloat64
}

// WithLabels returns the child for the given label values.
// A mismatched label count returns a child that discards updates.
func (c *Counter) WithLabels(values ...string) *CounterChild {
	v, err := c.series.get(&c.d, values, func() *atomicFloat64 { return &atomicFloat64{} })
	if err != nil {
		return &CounterChild{}
	}
	return &CounterChild{v: v}
}

// Inc increments the counter by 1.
func (c *CounterChild) Inc() { c.Add(1) }

// Add adds delta to the counter. Negative deltas are ignored.
func (c *CounterChild) Add(delta float64) {
	if c.v == nil || delta < 0 {
		return
	}
	c.v.Add(delta)
}

// Value returns the current value.
func (c *CounterChild) Value() float64 {
	if c.v == nil {
		return 0
	}
	return c.v.Load()
}

func (c *Counter) desc() *desc { return &c.d }

func (c *Counter) collect() []Sample {
	var out []Sample
	c.series.each(func(labels []Label, v *atomicFloat64) {
		out = append(out, Sample{Name: c.d.name, Labels: labels, Value: v.Load()})
	})
	return out
}

// Gauge is a metric that can go up and down.
type Gauge struct {
	d      desc
	series series[atomicFloat64]
}

// GaugeChild is the gauge of one label combination.
type GaugeChild struct {
	v *atomicFloat64
}

// WithLabels returns the child for the given label values.
func (g *Gauge) WithLabels(values ...string) *GaugeChild {
	v, err := g.series.get(&g.d, values, func() *atomicFloat64 { return &atomicFloat64{} })
	if err != nil {
		return &GaugeChild{}
	}
	return &GaugeChild{v: v}
}

// Set sets the gauge value.
func (g *GaugeChild) Set(value float64) {
	if g.v != nil {
		g.v.Store(value)
	}
}

// Add adds delta to the gauge.
func (g *GaugeChild) Add(delta float64) {
	if g.v != nil {
		g.v.Add(delta)
	}
}

// Value returns the current value.
func (g *GaugeChild) Value() float64 {
	if g.v == nil {
		return 0
	}
	return g.v.Load()
}

func (g *Gauge) desc() *desc { return &g.d }

func (g *Gauge) collect() []Sample {
	var out []Sample
	g.series.each(func(labels []Label, v *atomicFloat64) {
		out = append(out, Sample{Name: g.d.name, Labels: labels, Value: v.Load()})
	})
	return out
}

// Histogram counts observations in cumulative buckets.
type Histogram struct {
	d       desc
	buckets []float64
	series  series[histogramValue]
}

type histogramValue struct {
	counts []atomic.Uint64
	sum    atomicFloat64
	count  atomic.Uint64
}

// HistogramChild is the histogram of one label combination.
type HistogramChild struct {
	h *Histogram
	v *histogramValue
}

// WithLabels returns the child for the given label values.
func (h *Histogram) WithLabels(values ...string) *HistogramChild {
	v, err := h.series.get(&h.d, values, func() *histogramValue {
		return &histogramValue{counts: make([]atomic.Uint64, len(h.buckets))}
	})
	if err != nil {
		return &HistogramChild{}
	}
	return &HistogramChild{h: h, v: v}
}

// Observe records value.
func (c *HistogramChild) Observe(value float64) {
	if c.v == nil {
		return
	}
	for i, bound := range c.h.buckets {
		if value <= bound {
			c.v.counts[i].Add(1)
			break
		}
	}
	c.v.sum.Add(value)
	c.v.count.Add(1)
}

// Count returns the number of observations.
func (c *HistogramChild) Count() uint64 {
	if c.v == nil {
		return 0
	}
	return c.v.count.Load()
}

func (h *Histogram) desc() *desc { return &h.d }

func (h *Histogram) collect() []Sample {
	var out []Sample
	h.series.each(func(labels []Label, v *histogramValue) {
		var cumulative uint64
		for i, bound := range h.buckets {
			cumulative += v.counts[i].Load()
			le := make([]Label, len(labels), len(labels)+1)
			copy(le, labels)
			le = append(le, Label{Name: "le", Value: formatFloat(bound)})
			out = append(out, Sample{Name: h.d.name + "_bucket", Labels: le, Value: float64(cumulative)})
		}
		out = append(out,
			Sample{Name: h.d.name + "_sum", Labels: labels, Value: v.sum.Load()},
			Sample{Name: h.d.name + "_count", Labels: labels, Value: float64(v.count.Load())},
		)
	})
	return out
}

// Registry holds all registered metrics.
type Registry struct {
	mu      sync.RWMutex
	metrics []metric
	names   map[string]struct{}
}

// NewRegistry creates a new metric registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]struct{})}
}

// NewCounter creates and registers a counter.
func (r *Registry) NewCounter(name, help string, labels ...string) *Counter {
	c := &Counter{d: desc{name: name, help: help, typ: MetricTypeCounter, labelNames: labels}}
	r.register(c)
	return c
}

// NewGauge creates and registers a gauge.
func (r *Registry) NewGauge(name, help string, labels ...string) *Gauge {
	g := &Gauge{d: desc{name: name, help: help, typ: MetricTypeGauge, labelNames: labels}}
	r.register(g)
	return g
}

// NewHistogram creates and registers a histogram. A +Inf bucket is always added.
func (r *Registry) NewHistogram(name, help string, buckets []float64, labels ...string) *Histogram {
	sorted := append([]float64(nil), buckets...)
	sort.Float64s(sorted)
	if len(sorted) == 0 || !math.IsInf(sorted[len(sorted)-1], 1) {
		sorted = append(sorted, math.Inf(1))
	}
	h := &Histogram{d: desc{name: name, help: help, typ: MetricTypeHistogram, labelNames: labels}, buckets: sorted}
	r.register(h)
	return h
}

// register panics on duplicate names; they would produce invalid exposition output.
func (r *Registry) register(m metric) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := m.desc().name
	if _, exists := r.names[name]; exists {
		panic(fmt.Sprintf("%s: %s", ErrDuplicateMetric, name))
	}
	r.names[name] = struct{}{}
	r.metrics = append(r.metrics, m)
}

// Handler returns an http.Handler that serves the metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_ = r.Write(w)
	})
}

// Write writes every metric with at least one sample in text format.
func (r *Registry) Write(w io.Writer) error {
	r.mu.RLock()
	metrics := append([]metric(nil), r.metrics...)
	r.mu.RUnlock()

	for _, m := range metrics {
		samples := m.collect()
		if len(samples) == 0 {
			continue
		}
		d := m.desc()
		if _, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", d.name, escapeHelp(d.help), d.name, d.typ); err != nil {
			return err
		}
		for _, s := range samples {
			if _, err := fmt.Fprintf(w, "%s%s %s\n", s.Name, formatLabels(s.Labels), formatFloat(s.Value)); err != nil {
				return err
			}
		}
	}
	return nil
}

func formatLabels(labels []Label) string {
	if len(labels) == 0 {
		return ""
	}
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = l.Name + `="` + escapeLabelValue(l.Value) + `"`
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	case v == math.Trunc(v) && math.Abs(v) < 1e15:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%g", v)
	}
}

func escapeHelp(s string) string {
	return strings.NewReplacer(`\`, `\\`, "\n", `\n`).Replace(s)
}

func escapeLabelValue(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`).Replace(s)
}
