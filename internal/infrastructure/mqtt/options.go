package mqtt

import (
	"crypto/tls"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/goccy/go-json"

	"github.com/nerrad567/homio-core/internal/infrastructure/config"
)

// Connection constants.
const (
	// defaultConnectTimeout is the maximum time to wait for initial connection.
	defaultConnectTimeout = 10 * time.Second

	// defaultPublishTimeout is the maximum time to wait for publish acknowledgment.
	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 1000 // milliseconds

	// defaultKeepAlive is the keepalive interval for the connection.
	defaultKeepAlive = 60 * time.Second

	// maxQoS is the maximum QoS level supported.
	maxQoS = 2

	// tlsMinVersion is the minimum TLS version for secure connections.
	tlsMinVersion = tls.VersionTLS12
)

// buildClientOptions creates paho MQTT options from the mqtt config section.
//
// This configures:
//   - Broker URL (tcp:// or ssl:// based on TLS setting)
//   - Client ID for identification
//   - Authentication credentials (if provided)
//   - Auto-reconnect with exponential backoff
//   - TLS configuration (if enabled)
//   - Clean session mode
func buildClientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	opts.AddBroker(brokerURL(cfg))

	// Client identification
	opts.SetClientID(cfg.Broker.ClientID)

	// Authentication (if credentials provided)
	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	// Clean session - start fresh on connect (no persistent session on broker)
	opts.SetCleanSession(true)

	// Auto-reconnect with exponential backoff
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second)
	opts.SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second)

	// Connection timeout
	opts.SetConnectTimeout(defaultConnectTimeout)

	// Keepalive - broker sends PINGs to detect dead connections
	opts.SetKeepAlive(defaultKeepAlive)

	// TLS configuration if enabled
	if cfg.Broker.TLS {
		tlsConfig := &tls.Config{
			MinVersion: tlsMinVersion,
		}
		opts.SetTLSConfig(tlsConfig)
	}

	return opts
}

// Status values carried on the system status topic.
const (
	statusOnline  = "online"
	statusOffline = "offline"

	reasonGracefulShutdown     = "graceful_shutdown"
	reasonUnexpectedDisconnect = "unexpected_disconnect"
)

// systemStatus is the JSON body published on homio/system/status.
type systemStatus struct {
	Status    string `json:"status"`
	ClientID  string `json:"client_id"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

// configureLWT sets up Last Will and Testament for offline detection.
//
// The broker publishes the will if Core disconnects unexpectedly, so other
// services see Core go offline.
//
// Topic: homio/system/status
// QoS: 1 (guaranteed delivery)
// Retained: true (new subscribers see last status)
func configureLWT(opts *pahomqtt.ClientOptions, clientID string) {
	opts.SetBinaryWill(Topics{}.SystemStatus(), statusPayload(clientID, statusOffline, reasonUnexpectedDisconnect), 1, true)
}

// statusPayload encodes a system status message.
func statusPayload(clientID, status, reason string) []byte {
	data, err := json.Marshal(systemStatus{
		Status:    status,
		ClientID:  clientID,
		Reason:    reason,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		// Only strings are marshalled; this cannot fail.
		return []byte(`{"status":"` + status + `"}`)
	}
	return data
}

// brokerURL returns the paho broker URL for cfg.
func brokerURL(cfg config.MQTTConfig) string {
	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port)
}
