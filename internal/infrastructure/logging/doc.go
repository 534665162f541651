// Package logging builds the structured slog logger used across Homio Core.
//
// Every entry carries service and version fields and a UTC timestamp.
// Format is json (default) or text; output is stdout, stderr or a file
// path, falling back to stderr when the file cannot be opened.
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"
//	  output: "/var/log/homio/core.log"
//
// Subsystems derive child loggers instead of repeating fields:
//
//	log := logging.New(cfg.Logging, version)
//	log.Component("ingest").Datapoint("living-temp").Warn("rejected payload", "error", err)
//
// Never log the MQTT password or the InfluxDB token.
package logging
