package datapoint

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"unicode/utf8"

	"github.com/goccy/go-json"

	"github.com/nerrad567/homio-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/homio-core/internal/state"
)

// Resolver maps MQTT topics to datapoint definitions and parses payloads
// into values.
//
// Configured topics resolve to their definition. Any other topic of the
// form homio/state/{source}/{address} resolves to an inferred definition
// with ID "{source}.{address}". The inferred definitions are remembered so
// repeated lookups return the same ID.
type Resolver struct {
	mu       sync.RWMutex
	byTopic  map[string]Definition
	byID     map[string]Definition
	inferred bool
}

// NewResolver creates a resolver over defs.
//
// Parameters:
//   - defs: configured definitions; IDs and topics must be unique
//   - inferUnknown: resolve unconfigured homio/state topics on the fly
//
// Returns:
//   - *Resolver: ready for use
//   - error: ErrInvalidDatapoint when an ID or topic is duplicated
func NewResolver(defs []Definition, inferUnknown bool) (*Resolver, error) {
	r := &Resolver{
		byTopic:  make(map[string]Definition, len(defs)),
		byID:     make(map[string]Definition, len(defs)),
		inferred: inferUnknown,
	}
	for _, d := range defs {
		if _, dup := r.byID[d.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidDatapoint, d.ID)
		}
		if _, dup := r.byTopic[d.Topic]; dup {
			return nil, fmt.Errorf("%w: duplicate topic %q", ErrInvalidDatapoint, d.Topic)
		}
		r.byTopic[d.Topic] = d
		r.byID[d.ID] = d
	}
	return r, nil
}

// Resolve returns the definition for topic.
// Returns ErrUnknownTopic when topic is neither configured nor inferable.
func (r *Resolver) Resolve(topic string) (Definition, error) {
	r.mu.RLock()
	d, ok := r.byTopic[topic]
	r.mu.RUnlock()
	if ok {
		return d, nil
	}

	if !r.inferred {
		return Definition{}, fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}
	source, address, ok := mqtt.ParseSourceState(topic)
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}

	id := source + "." + address
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byID[id]; ok {
		// A configured datapoint already owns this ID under another topic.
		if !existing.Inferred {
			return Definition{}, fmt.Errorf("%w: %s shadows datapoint %q", ErrUnknownTopic, topic, id)
		}
		return existing, nil
	}
	d = Definition{ID: id, Topic: topic, Inferred: true}
	r.byTopic[topic] = d
	r.byID[id] = d
	return d, nil
}

// Lookup returns the definition with the given ID.
func (r *Resolver) Lookup(id string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byID[id]
	return d, ok
}

// Definitions returns all known definitions, configured and inferred.
func (r *Resolver) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]Definition, 0, len(r.byID))
	for _, d := range r.byID {
		defs = append(defs, d)
	}
	return defs
}

// Topics returns the subscriptions needed to receive every datapoint:
// configured topics plus the homio/state wildcard when inference is on.
func (r *Resolver) Topics() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wildcard := mqtt.Topics{}.AllSourceStates()

	var configured []string
	for topic, d := range r.byTopic {
		if d.Inferred || (r.inferred && mqtt.MatchFilter(wildcard, topic)) {
			continue
		}
		configured = append(configured, topic)
	}
	sort.Strings(configured)

	if r.inferred {
		return append([]string{wildcard}, configured...)
	}
	return configured
}

// Parse converts payload into a value for d.
//
// With a kind, the payload text overrides the default
// (state.Optional); an empty payload yields the default or
// ErrEmptyPayload. Raw datapoints keep the payload bytes and sniff the
// content type.
//
// Without a kind the variant is inferred: valid JSON is decoded first
// (so "21.5" is a decimal and "true" is on), other UTF-8 text goes
// through state.Of, and binary payloads become Raw.
func (r *Resolver) Parse(d Definition, payload []byte) (state.Value, error) {
	trimmed := bytes.TrimSpace(payload)

	if d.Kind != "" {
		if len(trimmed) == 0 {
			if d.Default == nil {
				return nil, fmt.Errorf("%w: %s", ErrEmptyPayload, d.ID)
			}
			return d.Default, nil
		}
		if d.Kind == state.KindRaw {
			return state.NewRaw(payload, ""), nil
		}
		template := d.Default
		if template == nil {
			template = prototype(d.Kind)
		}
		return state.Optional(template, string(trimmed))
	}

	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyPayload, d.ID)
	}
	return infer(payload, trimmed), nil
}

// infer guesses the variant of an untyped payload.
func infer(payload, trimmed []byte) state.Value {
	if json.Valid(trimmed) {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		var doc any
		if err := dec.Decode(&doc); err == nil && doc != nil {
			return state.Of(doc)
		}
	}
	if utf8.Valid(payload) {
		return state.Of(string(trimmed))
	}
	return state.Of(payload)
}
