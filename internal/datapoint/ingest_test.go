package datapoint

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/nerrad567/homio-core/internal/infrastructure/metrics"
	"github.com/nerrad567/homio-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/homio-core/internal/state"
)

// fakePublisher records retained publishes.
type fakePublisher struct {
	mu       sync.Mutex
	messages map[string][]byte
	count    int
	err      error
}

func (p *fakePublisher) PublishRetained(topic string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	if p.messages == nil {
		p.messages = make(map[string][]byte)
	}
	p.messages[topic] = payload
	p.count++
	return nil
}

type point struct {
	id, kind, unit string
	value          float64
}

// fakePoints records time-series writes.
type fakePoints struct {
	points []point
}

func (f *fakePoints) WriteDatapoint(id, kind, unit string, value float64, _ time.Time) {
	f.points = append(f.points, point{id, kind, unit, value})
}

// fakeBroadcaster records broadcast events.
type fakeBroadcaster struct {
	events []Event
}

func (b *fakeBroadcaster) Broadcast(channel string, payload any) {
	if channel == ChannelChanged {
		b.events = append(b.events, payload.(Event)) //nolint:forcetypeassert // test fake
	}
}

// fakeSubscriber records subscriptions.
type fakeSubscriber struct {
	topics []string
	err    error
}

func (s *fakeSubscriber) SubscribeMultiple(filters []string, _ byte, _ mqtt.MessageHandler) error {
	if s.err != nil {
		return s.err
	}
	s.topics = append(s.topics, filters...)
	return nil
}

type ingestFixture struct {
	ingestor *Ingestor
	store    *Store
	repo     *SQLiteRepository
	pub      *fakePublisher
	points   *fakePoints
	bcast    *fakeBroadcaster
}

func newIngestFixture(t *testing.T, defs ...Definition) *ingestFixture {
	t.Helper()
	repo, _ := newTestRepository(t)
	f := &ingestFixture{
		store:  NewStore(),
		repo:   repo,
		pub:    &fakePublisher{},
		points: &fakePoints{},
		bcast:  &fakeBroadcaster{},
	}
	in, err := NewIngestor(IngestorDeps{
		Resolver:    newTestResolver(t, true, defs...),
		Store:       f.store,
		Repository:  repo,
		Publisher:   f.pub,
		Points:      f.points,
		Broadcaster: f.bcast,
		Metrics:     metrics.New("test"),
	})
	if err != nil {
		t.Fatalf("NewIngestor() error = %v", err)
	}
	in.newID = func() string { return "evt-1" }
	f.ingestor = in
	return f
}

func TestNewIngestor_RequiresResolverAndStore(t *testing.T) {
	if _, err := NewIngestor(IngestorDeps{}); !errors.Is(err, ErrInvalidDatapoint) {
		t.Errorf("NewIngestor() error = %v, want ErrInvalidDatapoint", err)
	}
}

func TestIngestor_ChangedValue(t *testing.T) {
	temp := Definition{ID: "living-temp", Topic: "homio/state/zigbee/living", Kind: state.KindDecimal, Unit: "°C", Record: true}
	f := newIngestFixture(t, temp)

	if err := f.ingestor.HandleMessage("homio/state/zigbee/living", []byte("21.5")); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	// Store
	sample, ok := f.store.Get("living-temp")
	if !ok || sample.Value.String() != "21.5" {
		t.Fatalf("store value = %+v, %v", sample, ok)
	}

	// Persistence
	ctx := context.Background()
	latest, err := f.repo.GetLatest(ctx, "living-temp")
	if err != nil || latest.Value.String() != "21.5" {
		t.Errorf("GetLatest() = %+v, %v", latest, err)
	}
	history, err := f.repo.GetHistory(ctx, "living-temp", 0)
	if err != nil || len(history) != 1 {
		t.Errorf("GetHistory() = %d, %v", len(history), err)
	}

	// Time series
	if len(f.points.points) != 1 || f.points.points[0] != (point{"living-temp", "decimal", "°C", 21.5}) {
		t.Errorf("points = %+v", f.points.points)
	}

	// Canonical publish
	raw, ok := f.pub.messages["homio/core/datapoint/living-temp/state"]
	if !ok {
		t.Fatalf("nothing published, got %v", f.pub.messages)
	}
	var msg map[string]any
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("unmarshal canonical payload: %v", err)
	}
	want := map[string]any{
		"datapoint_id": "living-temp",
		"kind":         "decimal",
		"value":        21.5,
		"previous":     nil,
		"changed":      true,
		"event_id":     "evt-1",
	}
	for k, v := range want {
		if msg[k] != v {
			t.Errorf("payload[%q] = %v, want %v", k, msg[k], v)
		}
	}
	if _, ok := msg["timestamp"].(string); !ok {
		t.Errorf("payload timestamp = %v, want string", msg["timestamp"])
	}

	// Broadcast
	if len(f.bcast.events) != 1 || f.bcast.events[0].DatapointID != "living-temp" {
		t.Errorf("broadcast events = %+v", f.bcast.events)
	}
}

func TestIngestor_UnchangedValueOnlyCounts(t *testing.T) {
	f := newIngestFixture(t)
	topic := "homio/state/knx/1-1-1"

	for _, payload := range []string{"true", "true", "1"} {
		if err := f.ingestor.HandleMessage(topic, []byte(payload)); err != nil {
			t.Fatalf("HandleMessage(%q) error = %v", payload, err)
		}
	}

	if f.pub.count != 2 {
		t.Errorf("publishes = %d, want 2 (on, then decimal 1)", f.pub.count)
	}

	history, err := f.repo.GetHistory(context.Background(), "knx.1-1-1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Errorf("history rows = %d, want 2", len(history))
	}
}

func TestIngestor_PreviousValueInEvent(t *testing.T) {
	f := newIngestFixture(t, Definition{ID: "relay", Topic: "plant/relay", Kind: state.KindOnOff})

	for _, payload := range []string{"OFF", "ON"} {
		if err := f.ingestor.HandleMessage("plant/relay", []byte(payload)); err != nil {
			t.Fatalf("HandleMessage(%q) error = %v", payload, err)
		}
	}

	if len(f.bcast.events) != 2 {
		t.Fatalf("events = %d, want 2", len(f.bcast.events))
	}
	last := f.bcast.events[1]
	if last.Value != state.Value(state.On) || last.Previous != state.Value(state.Off) {
		t.Errorf("event = %+v, want Off -> On", last)
	}
	// Record is off: no time-series points.
	if len(f.points.points) != 0 {
		t.Errorf("points = %+v, want none", f.points.points)
	}
}

func TestIngestor_Rejections(t *testing.T) {
	f := newIngestFixture(t, Definition{ID: "temp", Topic: "plant/temp", Kind: state.KindDecimal})

	if err := f.ingestor.HandleMessage("unrelated/topic", []byte("1")); !errors.Is(err, ErrUnknownTopic) {
		t.Errorf("HandleMessage(unknown) error = %v, want ErrUnknownTopic", err)
	}
	if err := f.ingestor.HandleMessage("plant/temp", []byte("warm")); !errors.Is(err, state.ErrInvalidPayload) {
		t.Errorf("HandleMessage(bad payload) error = %v, want ErrInvalidPayload", err)
	}
	if err := f.ingestor.HandleMessage("plant/temp", nil); !errors.Is(err, ErrEmptyPayload) {
		t.Errorf("HandleMessage(empty) error = %v, want ErrEmptyPayload", err)
	}
	if f.store.Len() != 0 || f.pub.count != 0 {
		t.Errorf("rejected messages reached the store (%d) or bus (%d)", f.store.Len(), f.pub.count)
	}
}

func TestIngestor_PublishFailureStillPersists(t *testing.T) {
	f := newIngestFixture(t)
	boom := errors.New("broker gone")
	f.pub.err = boom

	err := f.ingestor.HandleMessage("homio/state/zigbee/lux", []byte("350"))
	if !errors.Is(err, boom) {
		t.Fatalf("HandleMessage() error = %v, want broker error", err)
	}
	if _, err := f.repo.GetLatest(context.Background(), "zigbee.lux"); err != nil {
		t.Errorf("GetLatest() error = %v, want persisted value", err)
	}
	if len(f.bcast.events) != 1 {
		t.Errorf("broadcast events = %d, want 1", len(f.bcast.events))
	}
}

func TestIngestor_MinimalDeps(t *testing.T) {
	in, err := NewIngestor(IngestorDeps{Resolver: newTestResolver(t, true), Store: NewStore()})
	if err != nil {
		t.Fatal(err)
	}
	if err := in.HandleMessage("homio/state/zigbee/door", []byte(`{"contact":false}`)); err != nil {
		t.Errorf("HandleMessage() error = %v", err)
	}
}

func TestIngestor_Subscribe(t *testing.T) {
	f := newIngestFixture(t, Definition{ID: "temp", Topic: "plant/temp"})

	sub := &fakeSubscriber{}
	if err := f.ingestor.Subscribe(sub, 1); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if len(sub.topics) != 2 || sub.topics[0] != "homio/state/+/+" || sub.topics[1] != "plant/temp" {
		t.Errorf("subscribed topics = %v, want wildcard and plant/temp", sub.topics)
	}

	failing := &fakeSubscriber{err: errors.New("not connected")}
	if err := f.ingestor.Subscribe(failing, 1); err == nil {
		t.Error("Subscribe() expected error from failing subscriber")
	}
}

func TestSourceOf(t *testing.T) {
	if got := sourceOf("homio/state/knx/1-1-1"); got != "knx" {
		t.Errorf("sourceOf() = %q, want knx", got)
	}
	if got := sourceOf("plant/temp"); got != sourceConfigured {
		t.Errorf("sourceOf() = %q, want %q", got, sourceConfigured)
	}
}
