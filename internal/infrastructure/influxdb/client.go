package influxdb

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/nerrad567/homio-core/internal/infrastructure/config"
)

// Default timeouts and batching for InfluxDB operations.
const (
	defaultConnectTimeout = 10 * time.Second
	defaultPingTimeout    = 5 * time.Second

	defaultBatchSize     = 100
	defaultFlushInterval = 10 // seconds

	// millisecondsPerSecond converts seconds to milliseconds for the InfluxDB API.
	millisecondsPerSecond = 1000

	// Datapoint timestamps carry millisecond resolution.
	writePrecision = time.Millisecond
)

// Client wraps the InfluxDB v2 client for recording datapoint values.
//
// It provides connection management, batched non-blocking writes and
// health monitoring.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Write operations are non-blocking and batched.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	cfg      config.InfluxDBConfig

	// connected tracks current connection state.
	connected bool
	mu        sync.RWMutex

	// onError is called when async write errors occur.
	onError func(err error)

	queued  atomic.Uint64
	dropped atomic.Uint64
	failed  atomic.Uint64
}

// Stats counts points handed to the client since Connect.
type Stats struct {
	Queued  uint64 // accepted into the write batch
	Dropped uint64 // discarded because the client was closed
	Failed  uint64 // batch failures reported by the server
}

// Connect establishes a connection to the InfluxDB server.
//
// It performs the following setup:
//  1. Creates the client with token authentication
//  2. Verifies connectivity with a ping
//  3. Configures the non-blocking write API with batching
//  4. Sets up error callback for async write failures
//
// Parameters:
//   - ctx: Context bounding the initial ping
//   - cfg: InfluxDB configuration from config.yaml
//
// Returns:
//   - *Client: Connected client ready for use
//   - error: ErrDisabled, or ErrConnectionFailed when the ping fails
func Connect(ctx context.Context, cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, clientOptions(cfg))

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer cancel()

	healthy, err := client.Ping(pingCtx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	// Create non-blocking write API
	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)

	c := &Client{
		client:    client,
		writeAPI:  writeAPI,
		cfg:       cfg,
		connected: true,
	}

	// Set up error callback for async write failures
	errorsCh := writeAPI.Errors()
	go c.handleWriteErrors(errorsCh)

	return c, nil
}

// clientOptions maps the influxdb config section onto client options,
// applying defaults for unset batching values.
func clientOptions(cfg config.InfluxDBConfig) *influxdb2.Options {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	flushInterval := cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = defaultFlushInterval
	}

	// #nosec G115 -- values validated above to be positive
	return influxdb2.DefaultOptions().
		SetBatchSize(uint(batchSize)).
		SetFlushInterval(uint(flushInterval) * millisecondsPerSecond).
		SetPrecision(writePrecision)
}

// handleWriteErrors forwards async batch failures to the error callback.
func (c *Client) handleWriteErrors(errorsCh <-chan error) {
	for err := range errorsCh {
		c.failed.Add(1)

		c.mu.RLock()
		callback := c.onError
		c.mu.RUnlock()

		if callback != nil {
			callback(fmt.Errorf("%w: %w", ErrWriteFailed, err))
		}
	}
}

// Stats returns the point counters. A nil client reports zeros.
func (c *Client) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	return Stats{
		Queued:  c.queued.Load(),
		Dropped: c.dropped.Load(),
		Failed:  c.failed.Load(),
	}
}

// Close gracefully shuts down the InfluxDB connection.
//
// It performs:
//  1. Flushes any pending writes
//  2. Closes the underlying client
//
// Returns:
//   - error: nil (InfluxDB client Close doesn't return errors)
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}

	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()

	// Flush pending writes
	c.writeAPI.Flush()

	// Close the client
	c.client.Close()

	return nil
}

// HealthCheck verifies the InfluxDB connection is alive and functioning.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	// Create a timeout context if none provided
	checkCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	healthy, err := c.client.Ping(checkCtx)
	if err != nil {
		return fmt.Errorf("influxdb health check failed: %w", err)
	}
	if !healthy {
		return fmt.Errorf("influxdb health check failed: server not healthy")
	}

	return nil
}

// IsConnected returns the current connection state.
//
// Note: This reflects the last known state. For reliability,
// use HealthCheck which performs an active ping.
func (c *Client) IsConnected() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// SetOnError sets a callback for asynchronous batch failures. Errors passed
// to it wrap ErrWriteFailed.
func (c *Client) SetOnError(callback func(err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = callback
}

// Flush blocks until buffered points are sent. It is a no-op on a nil or
// closed client.
func (c *Client) Flush() {
	if c == nil || c.writeAPI == nil {
		return
	}

	c.mu.RLock()
	connected := c.connected
	c.mu.RUnlock()

	if !connected {
		return
	}

	c.writeAPI.Flush()
}
