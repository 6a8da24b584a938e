// Package metrics provides Prometheus-compatible metrics for the acceptevents server.
//
// Metrics are exposed in the Prometheus text exposition format
// (text/plain; version=0.0.4). Counters, gauges and histograms carry a fixed
// set of label names; every label combination is created on first use.
//
//	reg := metrics.NewRegistry()
//	m := metrics.New(reg)
//	m.Negotiations.WithLabels("delivered").Inc()
//	m.Deliveries.WithLabels("sse", "ok").Observe(0.004)
//	http.Handle("/metrics", reg.Handler())
package metrics
