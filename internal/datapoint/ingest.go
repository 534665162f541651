package datapoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/nerrad567/homio-core/internal/infrastructure/metrics"
	"github.com/nerrad567/homio-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/homio-core/internal/state"
)

// ChannelChanged is the broadcast channel carrying change events.
const ChannelChanged = "datapoint.changed"

// sourceConfigured labels messages on configured topics outside the
// homio/state tree.
const sourceConfigured = "configured"

// Logger defines the logging interface used by the Ingestor.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Publisher sends canonical state messages to the bus.
type Publisher interface {
	PublishRetained(topic string, payload []byte) error
}

// Subscriber registers one MQTT message handler for several filters.
type Subscriber interface {
	SubscribeMultiple(filters []string, qos byte, handler mqtt.MessageHandler) error
}

// PointWriter records numeric values as time-series points.
type PointWriter interface {
	WriteDatapoint(datapointID, kind, unit string, value float64, ts time.Time)
}

// Broadcaster fans change events out to live clients.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// Event is the canonical description of a value change.
//
// It is published retained on homio/core/datapoint/{id}/state and
// broadcast on ChannelChanged.
type Event struct {
	DatapointID string      `json:"datapoint_id"`
	Kind        state.Kind  `json:"kind"`
	Value       state.Value `json:"value"`
	Previous    state.Value `json:"previous"`
	Changed     bool        `json:"changed"`
	EventID     string      `json:"event_id"`
	Timestamp   time.Time   `json:"timestamp"`
}

// IngestorDeps holds the collaborators of an Ingestor.
// Resolver and Store are required; everything else is optional.
type IngestorDeps struct {
	Resolver    *Resolver
	Store       *Store
	Repository  Repository
	Publisher   Publisher
	Points      PointWriter
	Broadcaster Broadcaster
	Metrics     *metrics.Metrics
	Logger      Logger
}

// Ingestor turns raw bus payloads into datapoint values.
//
// For every message it resolves the topic, parses the payload and updates
// the Store. Only changed values are persisted, recorded, written to the
// time-series database and published.
type Ingestor struct {
	deps   IngestorDeps
	logger Logger
	topics mqtt.Topics
	newID  func() string
}

// NewIngestor creates an ingestor.
// Returns ErrInvalidDatapoint when Resolver or Store is missing.
func NewIngestor(deps IngestorDeps) (*Ingestor, error) {
	if deps.Resolver == nil || deps.Store == nil {
		return nil, fmt.Errorf("%w: ingestor requires a resolver and a store", ErrInvalidDatapoint)
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Ingestor{
		deps:   deps,
		logger: logger,
		newID:  func() string { return uuid.NewString() },
	}, nil
}

// Subscribe registers the ingestor for every topic the resolver needs in
// a single request.
func (in *Ingestor) Subscribe(sub Subscriber, qos byte) error {
	topics := in.deps.Resolver.Topics()
	if len(topics) == 0 {
		in.logger.Warn("no datapoint topics to subscribe to")
		return nil
	}
	if err := sub.SubscribeMultiple(topics, qos, in.HandleMessage); err != nil {
		return fmt.Errorf("subscribing to datapoint topics: %w", err)
	}
	in.logger.Info("subscribed to datapoint topics", "topics", topics)
	return nil
}

// HandleMessage processes one inbound message. It satisfies
// mqtt.MessageHandler; returned errors are logged by the MQTT client.
func (in *Ingestor) HandleMessage(topic string, payload []byte) error {
	source := sourceOf(topic)

	def, err := in.deps.Resolver.Resolve(topic)
	if err != nil {
		in.deps.Metrics.MessageProcessed(source, metrics.OutcomeUnknown)
		return err
	}

	v, err := in.deps.Resolver.Parse(def, payload)
	if err != nil {
		in.deps.Metrics.MessageProcessed(source, metrics.OutcomeRejected)
		in.deps.Metrics.ParseError(def.ID)
		return fmt.Errorf("parsing payload of %s: %w", def.ID, err)
	}

	tr := in.deps.Store.Update(def.ID, v)
	in.deps.Metrics.SetDatapoints(in.deps.Store.Len())

	if !tr.Changed() {
		in.deps.Metrics.MessageProcessed(source, metrics.OutcomeUnchanged)
		return nil
	}
	in.deps.Metrics.MessageProcessed(source, metrics.OutcomeChanged)

	sample, _ := in.deps.Store.Get(def.ID)
	in.logger.Debug("datapoint changed", "datapoint_id", def.ID, "kind", v.Kind(), "value", v.String())

	return in.apply(def, tr, sample)
}

// apply fans a changed value out to persistence, telemetry and the bus.
// Every sink is attempted; failures are joined.
func (in *Ingestor) apply(def Definition, tr state.Transition, sample Sample) error {
	var errs []error
	ctx := context.Background()

	if repo := in.deps.Repository; repo != nil {
		if err := repo.SaveLatest(ctx, sample); err != nil {
			errs = append(errs, err)
		}
		if err := repo.RecordHistory(ctx, sample); err != nil {
			errs = append(errs, err)
		}
	}

	if f, err := tr.Current.Float(); err == nil {
		in.deps.Metrics.ObserveValue(def.ID, string(tr.Current.Kind()), f)
		if def.Record && in.deps.Points != nil {
			in.deps.Points.WriteDatapoint(def.ID, string(tr.Current.Kind()), def.Unit, f, sample.Timestamp)
		}
	}

	event := Event{
		DatapointID: def.ID,
		Kind:        tr.Current.Kind(),
		Value:       tr.Current,
		Previous:    tr.Previous,
		Changed:     true,
		EventID:     in.newID(),
		Timestamp:   sample.Timestamp,
	}

	if in.deps.Publisher != nil {
		if err := in.publish(event); err != nil {
			in.deps.Metrics.PublishError()
			errs = append(errs, err)
		}
	}

	if in.deps.Broadcaster != nil {
		in.deps.Broadcaster.Broadcast(ChannelChanged, event)
	}

	return errors.Join(errs...)
}

func (in *Ingestor) publish(event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshalling event for %s: %w", event.DatapointID, err)
	}
	if err := in.deps.Publisher.PublishRetained(in.topics.CoreDatapointState(event.DatapointID), payload); err != nil {
		return fmt.Errorf("publishing state of %s: %w", event.DatapointID, err)
	}
	return nil
}

// sourceOf returns the bridge name of a homio/state topic.
func sourceOf(topic string) string {
	if source, _, ok := mqtt.ParseSourceState(topic); ok {
		return source
	}
	return sourceConfigured
}
