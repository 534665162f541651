// Package api implements the HTTP REST API and WebSocket stream for
// Homio Core.
//
// This package provides:
//   - Read-only REST endpoints for datapoint values and history
//   - WebSocket hub broadcasting datapoint changes as they are ingested
//   - The Prometheus scrape endpoint
//   - Middleware stack (request ID, logging, recovery, CORS)
//
// # Architecture
//
// The server reads from the datapoint Store for current values and from
// the Repository for history. It never writes; values only enter the core
// through the MQTT ingest pipeline, which also feeds the Hub.
//
// # Graceful Degradation
//
// Without a repository the history endpoint answers 503; everything else
// keeps working.
package api
