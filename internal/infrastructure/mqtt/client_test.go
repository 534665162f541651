package mqtt

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/nerrad567/homio-core/internal/infrastructure/config"
)

// testConfig returns a valid MQTT configuration for testing against a local
// broker at 127.0.0.1:1883.
func testConfig(clientID string) config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: clientID,
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// connectOrSkip connects to the local broker, skipping the test when no
// broker is listening.
func connectOrSkip(t *testing.T, clientID string) *Client {
	t.Helper()

	conn, err := net.DialTimeout("tcp", "127.0.0.1:1883", 500*time.Millisecond)
	if err != nil {
		t.Skip("MQTT broker not available, skipping integration test")
	}
	conn.Close()

	client, err := Connect(testConfig(clientID))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { client.Close() }) //nolint:errcheck // Test cleanup
	return client
}

// recordingLogger captures log calls from the client.
type recordingLogger struct {
	mu      sync.Mutex
	entries []string
}

func (l *recordingLogger) log(level, msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, fmt.Sprint(level, " ", msg, " ", args))
}

func (l *recordingLogger) Info(msg string, args ...any)  { l.log("INFO", msg, args...) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.log("WARN", msg, args...) }
func (l *recordingLogger) Error(msg string, args ...any) { l.log("ERROR", msg, args...) }

func (l *recordingLogger) contains(s string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if strings.Contains(e, s) {
			return true
		}
	}
	return false
}

// fakeMessage implements pahomqtt.Message.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

// =============================================================================
// Unit Tests (no broker)
// =============================================================================

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"SourceState", topics.SourceState("zigbee", "living-temp"), "homio/state/zigbee/living-temp"},
		{"CoreDatapointState", topics.CoreDatapointState("living-temp"), "homio/core/datapoint/living-temp/state"},
		{"SystemStatus", topics.SystemStatus(), "homio/system/status"},
		{"AllSourceStates", topics.AllSourceStates(), "homio/state/+/+"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("%s() = %q, want %q", tt.name, tt.got, tt.expected)
			}
		})
	}
}

func TestParseSourceState(t *testing.T) {
	tests := []struct {
		topic       string
		wantSource  string
		wantAddress string
		wantOK      bool
	}{
		{"homio/state/zigbee/living-temp", "zigbee", "living-temp", true},
		{"homio/state/zigbee", "", "", false},
		{"homio/state/zigbee/living/temp", "", "", false},
		{"homio/command/zigbee/hall-light", "", "", false},
		{"other/state/zigbee/x", "", "", false},
		{"homio/state//x", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			source, address, ok := ParseSourceState(tt.topic)
			if ok != tt.wantOK || source != tt.wantSource || address != tt.wantAddress {
				t.Errorf("ParseSourceState(%q) = %q, %q, %v", tt.topic, source, address, ok)
			}
		})
	}
}

func TestStatusPayload(t *testing.T) {
	var got systemStatus
	if err := json.Unmarshal(statusPayload("homio-core", statusOffline, reasonGracefulShutdown), &got); err != nil {
		t.Fatalf("statusPayload() is not JSON: %v", err)
	}
	if got.Status != "offline" || got.ClientID != "homio-core" || got.Reason != "graceful_shutdown" {
		t.Errorf("statusPayload() = %+v", got)
	}
	if _, err := time.Parse(time.RFC3339, got.Timestamp); err != nil {
		t.Errorf("timestamp %q is not RFC3339", got.Timestamp)
	}

	online := string(statusPayload("homio-core", statusOnline, ""))
	if strings.Contains(online, "reason") {
		t.Errorf("online payload should omit reason: %s", online)
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig("homio-options")
	cfg.Broker.TLS = true
	cfg.Auth = config.MQTTAuthConfig{Username: "core", Password: "secret"}

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "ssl://127.0.0.1:1883" {
		t.Errorf("Servers = %v, want ssl://127.0.0.1:1883", opts.Servers)
	}
	if opts.ClientID != "homio-options" {
		t.Errorf("ClientID = %q", opts.ClientID)
	}
	if opts.Username != "core" || opts.Password != "secret" {
		t.Error("credentials not applied")
	}
	if opts.TLSConfig == nil {
		t.Error("TLSConfig not set for TLS broker")
	}
	if !opts.AutoReconnect {
		t.Error("AutoReconnect should be enabled")
	}
}

func TestWrapHandler_LogsErrors(t *testing.T) {
	logger := &recordingLogger{}
	c := &Client{}
	c.SetLogger(logger)

	handler := c.wrapHandler(func(string, []byte) error {
		return errors.New("bad payload")
	})
	handler(nil, fakeMessage{topic: "homio/state/zigbee/x", payload: []byte("1")})

	if !logger.contains("MQTT handler returned error") {
		t.Errorf("handler error not logged: %v", logger.entries)
	}
	if st := c.Stats(); st.Received != 1 || st.HandlerErrors != 1 {
		t.Errorf("Stats() = %+v, want 1 received and 1 handler error", st)
	}
}

func TestWrapHandler_RecoversPanic(t *testing.T) {
	logger := &recordingLogger{}
	c := &Client{}
	c.SetLogger(logger)

	handler := c.wrapHandler(func(string, []byte) error {
		panic("boom")
	})
	handler(nil, fakeMessage{topic: "homio/state/zigbee/x"})

	if !logger.contains("MQTT handler panic recovered") {
		t.Errorf("panic not logged: %v", logger.entries)
	}
	if c.Stats().Panics != 1 {
		t.Errorf("Stats().Panics = %d, want 1", c.Stats().Panics)
	}
}

func TestValidateFilter(t *testing.T) {
	tests := []struct {
		filter string
		valid  bool
	}{
		{"homio/state/+/+", true},
		{"homio/#", true},
		{"#", true},
		{"+", true},
		{"plant/temp", true},
		{"", false},
		{"homio/#/state", false},
		{"homio/sta+e", false},
		{"homio/state#", false},
	}
	for _, tt := range tests {
		err := ValidateFilter(tt.filter)
		if (err == nil) != tt.valid {
			t.Errorf("ValidateFilter(%q) error = %v, want valid=%v", tt.filter, err, tt.valid)
		}
		if err != nil && !errors.Is(err, ErrInvalidFilter) {
			t.Errorf("ValidateFilter(%q) error = %v, want ErrInvalidFilter", tt.filter, err)
		}
	}
}

func TestValidateTopic(t *testing.T) {
	if err := ValidateTopic(Topics{}.CoreDatapointState("living-temp")); err != nil {
		t.Errorf("ValidateTopic(canonical) error = %v", err)
	}
	for _, topic := range []string{"", "homio/+/x", "homio/#"} {
		if err := ValidateTopic(topic); !errors.Is(err, ErrInvalidTopic) {
			t.Errorf("ValidateTopic(%q) error = %v, want ErrInvalidTopic", topic, err)
		}
	}
}

func TestMatchFilter(t *testing.T) {
	tests := []struct {
		filter, topic string
		want          bool
	}{
		{"homio/state/+/+", "homio/state/zigbee/living-temp", true},
		{"homio/state/+/+", "homio/state/zigbee", false},
		{"homio/state/+/+", "homio/state/zigbee/a/b", false},
		{"homio/#", "homio", true},
		{"homio/#", "homio/core/datapoint/x/state", true},
		{"#", "$SYS/broker/uptime", false},
		{"plant/temp", "plant/temp", true},
		{"plant/temp", "plant/humidity", false},
	}
	for _, tt := range tests {
		if got := MatchFilter(tt.filter, tt.topic); got != tt.want {
			t.Errorf("MatchFilter(%q, %q) = %v, want %v", tt.filter, tt.topic, got, tt.want)
		}
	}
}

func TestWrapHandler_PassesTopicAndPayload(t *testing.T) {
	c := &Client{}
	var gotTopic, gotPayload string
	handler := c.wrapHandler(func(topic string, payload []byte) error {
		gotTopic, gotPayload = topic, string(payload)
		return nil
	})
	handler(nil, fakeMessage{topic: "homio/state/zigbee/x", payload: []byte("21.5")})

	if gotTopic != "homio/state/zigbee/x" || gotPayload != "21.5" {
		t.Errorf("handler got %q=%q", gotTopic, gotPayload)
	}
}

func TestCloseNil(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v, want nil", err)
	}
}

func TestConnect_BrokerRefused(t *testing.T) {
	cfg := testConfig("homio-test-refused")
	cfg.Broker.Port = 19998

	_, err := Connect(cfg)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

// =============================================================================
// Broker Tests
// =============================================================================

func TestConnect(t *testing.T) {
	client := connectOrSkip(t, "homio-test-connect")

	if !client.IsConnected() {
		t.Error("IsConnected() = false, want true")
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v, want nil", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck() expected error for cancelled context")
	}
}

func TestClose(t *testing.T) {
	client := connectOrSkip(t, "homio-test-close")

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close(), want false")
	}
	if err := client.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
	if err := client.Publish("homio/test", []byte("x"), 1, false); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() error = %v, want ErrNotConnected", err)
	}
	if err := client.Subscribe("homio/test", 1, func(string, []byte) error { return nil }); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe() error = %v, want ErrNotConnected", err)
	}
}

func TestPublishValidation(t *testing.T) {
	client := connectOrSkip(t, "homio-test-publish")

	if err := client.Publish("", []byte("test"), 1, false); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Publish(empty topic) error = %v, want ErrInvalidTopic", err)
	}
	if err := client.Publish("homio/test", []byte("test"), 3, false); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Publish(qos 3) error = %v, want ErrInvalidQoS", err)
	}
	if err := client.Publish("homio/state/+/x", []byte("test"), 1, false); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Publish(wildcard) error = %v, want ErrInvalidTopic", err)
	}
	if err := client.Publish("homio/test", make([]byte, maxPayloadSize+1), 1, false); !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("Publish(oversized) error = %v, want ErrPayloadTooLarge", err)
	}
	if err := client.PublishRetained(Topics{}.CoreDatapointState("test-datapoint"), []byte(`{"value":1}`)); err != nil {
		t.Errorf("PublishRetained() error = %v", err)
	}
}

func TestSubscribeMultiple(t *testing.T) {
	client := connectOrSkip(t, "homio-test-subscribe")
	handler := func(string, []byte) error { return nil }

	if err := client.Subscribe("", 1, handler); !errors.Is(err, ErrInvalidFilter) {
		t.Errorf("Subscribe(empty) error = %v, want ErrInvalidFilter", err)
	}
	if err := client.Subscribe("homio/#/state", 1, handler); !errors.Is(err, ErrInvalidFilter) {
		t.Errorf("Subscribe(bad #) error = %v, want ErrInvalidFilter", err)
	}
	if err := client.Subscribe("homio/test", 3, handler); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Subscribe(qos 3) error = %v, want ErrInvalidQoS", err)
	}
	if err := client.Subscribe("homio/test", 1, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("Subscribe(nil handler) error = %v, want ErrSubscribeFailed", err)
	}
	if err := client.SubscribeMultiple(nil, 1, handler); !errors.Is(err, ErrInvalidFilter) {
		t.Errorf("SubscribeMultiple(nil) error = %v, want ErrInvalidFilter", err)
	}

	filters := []string{Topics{}.AllSourceStates(), "plant/temp", "homio/test/topic"}
	if err := client.SubscribeMultiple(filters, 1, handler); err != nil {
		t.Fatalf("SubscribeMultiple() error = %v", err)
	}

	got := client.Subscriptions()
	want := []string{"homio/state/+/+", "homio/test/topic", "plant/temp"}
	if len(got) != len(want) {
		t.Fatalf("Subscriptions() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Subscriptions()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if client.Stats().Subscriptions != len(want) {
		t.Errorf("Stats().Subscriptions = %d, want %d", client.Stats().Subscriptions, len(want))
	}
}

func TestPublishSubscribeRoundtrip(t *testing.T) {
	pubClient := connectOrSkip(t, "homio-test-pub")
	subClient := connectOrSkip(t, "homio-test-sub")

	received := make(chan string, 1)
	err := subClient.Subscribe(Topics{}.AllSourceStates(), 1, func(topic string, payload []byte) error {
		received <- topic + "=" + string(payload)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	// Give subscription time to register
	time.Sleep(100 * time.Millisecond)

	topic := Topics{}.SourceState("test", "roundtrip")
	if err := pubClient.Publish(topic, []byte("21.5"), 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case got := <-received:
		if got != topic+"=21.5" {
			t.Errorf("received %q, want %q", got, topic+"=21.5")
		}
	case <-time.After(5 * time.Second):
		t.Error("Timeout waiting for message")
	}
}
