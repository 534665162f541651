// Package metrics exposes Prometheus instrumentation for Homio Core.
//
// A Metrics value owns its own registry, so tests and multiple instances
// never collide on the global default registerer. Every recording method
// is safe to call on a nil *Metrics, which disables instrumentation.
//
// Usage:
//
//	m := metrics.New("homio")
//	m.MessageReceived("zigbee")
//	router.Handle("/metrics", m.Handler())
package metrics
