// Homio Core - datapoint value service
//
// This is the main entry point for the Homio Core application. The core
// listens to device state on MQTT, turns each payload into a typed value,
// keeps the latest value of every datapoint and republishes changes on a
// canonical, retained topic.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/homio-core/migrations"

	"github.com/nerrad567/homio-core/internal/api"
	"github.com/nerrad567/homio-core/internal/datapoint"
	"github.com/nerrad567/homio-core/internal/infrastructure/config"
	"github.com/nerrad567/homio-core/internal/infrastructure/database"
	"github.com/nerrad567/homio-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/homio-core/internal/infrastructure/logging"
	"github.com/nerrad567/homio-core/internal/infrastructure/metrics"
	"github.com/nerrad567/homio-core/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

const (
	// Default configuration file path
	defaultConfigPath = "configs/config.yaml"

	metricsShutdownTimeout = 5 * time.Second
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // linear startup sequence
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Homio Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Restore the last known value of every datapoint
	repo := datapoint.NewSQLiteRepository(db.DB)
	store := datapoint.NewStore()
	if loadErr := store.Load(ctx, repo); loadErr != nil {
		return fmt.Errorf("restoring datapoints: %w", loadErr)
	}
	log.Info("datapoint store restored", "datapoints", store.Len())

	resolver, err := buildResolver(cfg)
	if err != nil {
		return err
	}
	log.Info("datapoint definitions loaded", "configured", len(cfg.Datapoints))

	collectors := metrics.New(cfg.Metrics.Namespace)
	collectors.SetDatapoints(store.Len())

	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log.Component("mqtt"))
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	mqttClient.SetOnConnect(func() {
		if n := mqttClient.Stats().Reconnects; n > 0 {
			log.Info("MQTT session restored", "reconnects", n)
		}
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Start the API server. Its hub receives change events even when the
	// HTTP listener is disabled, so the pipeline wiring stays the same.
	apiServer, err := api.New(api.Deps{
		Config:     cfg.API,
		WS:         cfg.WebSocket,
		Metrics:    cfg.Metrics,
		Logger:     log.Component("api"),
		Store:      store,
		Resolver:   resolver,
		Repository: repo,
		Collectors: collectors,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if cfg.API.Enabled {
		if startErr := apiServer.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API disabled")
		if cfg.Metrics.Enabled && cfg.Metrics.Addr != "" {
			metricsServer, addr, serveErr := serveMetrics(cfg.Metrics, collectors, log)
			if serveErr != nil {
				return serveErr
			}
			defer shutdownMetrics(metricsServer, log)
			log.Info("metrics listener started", "address", addr)
		}
	}

	ingestor, err := datapoint.NewIngestor(datapoint.IngestorDeps{
		Resolver:    resolver,
		Store:       store,
		Repository:  repo,
		Publisher:   mqttClient,
		Points:      pointWriter(influxClient),
		Broadcaster: apiServer.Hub(),
		Metrics:     collectors,
		Logger:      log.Component("ingest"),
	})
	if err != nil {
		return fmt.Errorf("creating ingestor: %w", err)
	}
	if subErr := ingestor.Subscribe(mqttClient, byte(cfg.MQTT.QoS)); subErr != nil { //nolint:gosec // QoS validated to 0-2
		return fmt.Errorf("subscribing to state topics: %w", subErr)
	}
	log.Info("ingest pipeline subscribed", "topics", resolver.Topics())

	pruner := datapoint.NewHistoryPruner(repo, cfg.GetRetention(), cfg.History.PruneInterval, log.Component("history"))
	go pruner.Run(ctx)

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	st := mqttClient.Stats()
	log.Info("MQTT traffic",
		"received", st.Received,
		"handler_errors", st.HandlerErrors,
		"published", st.Published,
		"reconnects", st.Reconnects,
	)
	if influxClient != nil {
		is := influxClient.Stats()
		log.Info("InfluxDB points", "queued", is.Queued, "dropped", is.Dropped, "failed", is.Failed)
	}
	if dropped := apiServer.Hub().Dropped(); dropped > 0 {
		log.Warn("WebSocket events dropped for slow clients", "dropped", dropped)
	}

	// Deferred Close() calls run in reverse order:
	// API/metrics, InfluxDB (if enabled), MQTT, database.

	log.Info("Homio Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses HOMIO_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HOMIO_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// buildResolver turns the datapoint section of the config into a resolver.
// Topics under homio/state/{source}/{address} that are not configured are
// accepted with an inferred definition.
func buildResolver(cfg *config.Config) (*datapoint.Resolver, error) {
	defs, err := datapoint.NewDefinitions(cfg.Datapoints)
	if err != nil {
		return nil, fmt.Errorf("loading datapoint definitions: %w", err)
	}
	resolver, err := datapoint.NewResolver(defs, true)
	if err != nil {
		return nil, fmt.Errorf("building datapoint resolver: %w", err)
	}
	return resolver, nil
}

// pointWriter returns c as a PointWriter, or nil when InfluxDB is not in use.
// A nil *Client must not be stored in the interface.
func pointWriter(c *influxdb.Client) datapoint.PointWriter {
	if c == nil || !c.IsConnected() {
		return nil
	}
	return c
}

// serveMetrics starts a dedicated Prometheus listener, used when the API
// server is disabled.
func serveMetrics(cfg config.MetricsConfig, m *metrics.Metrics, log *logging.Logger) (*http.Server, string, error) {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, m.Handler())

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, "", fmt.Errorf("binding metrics listener: %w", err)
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server error", "error", err)
		}
	}()

	return srv, ln.Addr().String(), nil
}

func shutdownMetrics(srv *http.Server, log *logging.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("error closing metrics listener", "error", err)
	}
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
