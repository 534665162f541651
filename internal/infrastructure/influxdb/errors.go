package influxdb

import "errors"

// Sentinel errors returned by the InfluxDB client; match with errors.Is.
var (
	// ErrDisabled is returned by Connect when influxdb.enabled is false.
	ErrDisabled = errors.New("influxdb: disabled in configuration")

	// ErrConnectionFailed means the server did not answer the initial ping.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrNotConnected is returned by HealthCheck after Close.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrWriteFailed wraps asynchronous batch failures passed to the
	// SetOnError callback.
	ErrWriteFailed = errors.New("influxdb: write failed")
)
