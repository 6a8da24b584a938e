package metrics

// DefaultBuckets are the histogram buckets for delivery durations in seconds.
var DefaultBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// Negotiation results used as the result label of Metrics.Negotiations.
const (
	ResultDelivered    = "delivered"
	ResultFailed       = "failed"
	ResultNotAccepted  = "not_accepted"
	ResultUnconfigured = "unconfigured"
	ResultSkipped      = "skipped"
)

// Metrics are the server metrics.
type Metrics struct {
	// Requests counts HTTP requests. Labels: method, route, status.
	Requests *Counter

	// Negotiations counts event negotiations by result. Labels: result.
	Negotiations *Counter

	// Deliveries tracks negotiation duration by delivering or failing protocol.
	// Labels: protocol, outcome (ok, error).
	Deliveries *Histogram

	// Failures counts terminal failures written to the Events header.
	// Labels: protocol, reason.
	Failures *Counter

	// Resources is the number of stored resources.
	Resources *Gauge
}

// New registers the server metrics on reg.
func New(reg *Registry) *Metrics {
	return &Metrics{
		Requests:     reg.NewCounter("acceptevents_requests_total", "Total HTTP requests", "method", "route", "status"),
		Negotiations: reg.NewCounter("acceptevents_negotiations_total", "Event negotiations by result", "result"),
		Deliveries:   reg.NewHistogram("acceptevents_delivery_duration_seconds", "Duration of event negotiation and delivery", DefaultBuckets, "protocol", "outcome"),
		Failures:     reg.NewCounter("acceptevents_delivery_failures_total", "Failures reported in the Events header", "protocol", "reason"),
		Resources:    reg.NewGauge("acceptevents_resources", "Number of stored resources"),
	}
}
