package datapoint

import (
	"fmt"
	"strings"

	"github.com/nerrad567/homio-core/internal/infrastructure/config"
	"github.com/nerrad567/homio-core/internal/state"
)

// Definition describes one datapoint.
//
// When Kind is empty the variant of each reading is inferred from its
// payload. Otherwise every payload is parsed as Kind, and an empty
// payload yields Default.
type Definition struct {
	ID      string
	Topic   string
	Kind    state.Kind
	Default state.Value
	Unit    string
	Record  bool

	// Inferred marks definitions created on the fly for unconfigured
	// homio/state topics.
	Inferred bool
}

// NewDefinition builds a Definition from its configuration entry.
//
// Returns:
//   - Definition: validated definition with Default parsed
//   - error: ErrInvalidDatapoint wrapping the reason
func NewDefinition(cfg config.DatapointConfig) (Definition, error) {
	d := Definition{
		ID:     strings.TrimSpace(cfg.ID),
		Topic:  strings.TrimSpace(cfg.Topic),
		Unit:   cfg.Unit,
		Record: cfg.Record,
	}
	if d.ID == "" {
		return Definition{}, fmt.Errorf("%w: id is required", ErrInvalidDatapoint)
	}
	if d.Topic == "" {
		return Definition{}, fmt.Errorf("%w: %s: topic is required", ErrInvalidDatapoint, d.ID)
	}

	if cfg.Kind == "" {
		if cfg.Default != "" {
			return Definition{}, fmt.Errorf("%w: %s: default requires a kind", ErrInvalidDatapoint, d.ID)
		}
		return d, nil
	}

	kind, err := state.ParseKind(cfg.Kind)
	if err != nil {
		return Definition{}, fmt.Errorf("%w: %s: %w", ErrInvalidDatapoint, d.ID, err)
	}
	if kind == state.KindObject {
		return Definition{}, fmt.Errorf("%w: %s: kind %s cannot be parsed from payloads", ErrInvalidDatapoint, d.ID, kind)
	}
	d.Kind = kind

	if cfg.Default != "" {
		def, err := state.Optional(prototype(kind), cfg.Default)
		if err != nil {
			return Definition{}, fmt.Errorf("%w: %s: default: %w", ErrInvalidDatapoint, d.ID, err)
		}
		d.Default = def
	}
	return d, nil
}

// NewDefinitions builds definitions for every configured datapoint.
// The first invalid entry aborts the build.
func NewDefinitions(cfgs []config.DatapointConfig) ([]Definition, error) {
	defs := make([]Definition, 0, len(cfgs))
	for _, c := range cfgs {
		d, err := NewDefinition(c)
		if err != nil {
			return nil, err
		}
		defs = append(defs, d)
	}
	return defs, nil
}

// prototype returns a value of kind used as the parse template when no
// default is configured.
func prototype(kind state.Kind) state.Value {
	switch kind {
	case state.KindOnOff:
		return state.Off
	case state.KindDecimal:
		return state.DecimalFromInt(0)
	case state.KindString:
		return state.NewString("")
	case state.KindJSON:
		return &state.JSON{}
	case state.KindRaw:
		return state.RawPlainText("")
	}
	return nil
}
