package datapoint

import (
	"errors"
	"testing"

	"github.com/nerrad567/homio-core/internal/state"
)

func newTestResolver(t *testing.T, infer bool, defs ...Definition) *Resolver {
	t.Helper()
	r, err := NewResolver(defs, infer)
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}
	return r
}

func TestNewResolver_Duplicates(t *testing.T) {
	tests := []struct {
		name string
		defs []Definition
	}{
		{"duplicate id", []Definition{{ID: "a", Topic: "x"}, {ID: "a", Topic: "y"}}},
		{"duplicate topic", []Definition{{ID: "a", Topic: "x"}, {ID: "b", Topic: "x"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewResolver(tt.defs, false); !errors.Is(err, ErrInvalidDatapoint) {
				t.Errorf("NewResolver() error = %v, want ErrInvalidDatapoint", err)
			}
		})
	}
}

func TestResolver_Resolve(t *testing.T) {
	configured := Definition{ID: "boiler", Topic: "plant/boiler/temp", Kind: state.KindDecimal}
	r := newTestResolver(t, true, configured)

	d, err := r.Resolve("plant/boiler/temp")
	if err != nil || d.ID != "boiler" {
		t.Fatalf("Resolve(configured) = %+v, %v", d, err)
	}

	d, err = r.Resolve("homio/state/zigbee/hall-motion")
	if err != nil {
		t.Fatalf("Resolve(inferred) error = %v", err)
	}
	if d.ID != "zigbee.hall-motion" || !d.Inferred || d.Kind != "" {
		t.Errorf("Resolve(inferred) = %+v", d)
	}
	if got, ok := r.Lookup("zigbee.hall-motion"); !ok || got.Topic != "homio/state/zigbee/hall-motion" {
		t.Errorf("Lookup() = %+v, %v", got, ok)
	}

	if _, err := r.Resolve("other/topic"); !errors.Is(err, ErrUnknownTopic) {
		t.Errorf("Resolve(other) error = %v, want ErrUnknownTopic", err)
	}
}

func TestResolver_InferenceDisabled(t *testing.T) {
	r := newTestResolver(t, false)
	if _, err := r.Resolve("homio/state/zigbee/x"); !errors.Is(err, ErrUnknownTopic) {
		t.Errorf("Resolve() error = %v, want ErrUnknownTopic", err)
	}
}

func TestResolver_InferredIDShadowsConfigured(t *testing.T) {
	r := newTestResolver(t, true, Definition{ID: "zigbee.lamp", Topic: "custom/lamp"})
	if _, err := r.Resolve("homio/state/zigbee/lamp"); !errors.Is(err, ErrUnknownTopic) {
		t.Errorf("Resolve() error = %v, want ErrUnknownTopic", err)
	}
}

func TestResolver_Topics(t *testing.T) {
	defs := []Definition{
		{ID: "a", Topic: "homio/state/knx/1-1-1"},
		{ID: "b", Topic: "plant/boiler"},
	}

	got := newTestResolver(t, true, defs...).Topics()
	want := []string{"homio/state/+/+", "plant/boiler"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Topics() with inference = %v, want %v", got, want)
	}

	got = newTestResolver(t, false, defs...).Topics()
	want = []string{"homio/state/knx/1-1-1", "plant/boiler"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Topics() without inference = %v, want %v", got, want)
	}
}

func TestResolver_ParseInferred(t *testing.T) {
	r := newTestResolver(t, true)
	d := Definition{ID: "x", Inferred: true}

	tests := []struct {
		name       string
		payload    []byte
		wantKind   state.Kind
		wantString string
	}{
		{"integer", []byte("21"), state.KindDecimal, "21"},
		{"decimal with spaces", []byte(" 21.50 \n"), state.KindDecimal, "21.5"},
		{"true", []byte("true"), state.KindOnOff, "1"},
		{"false", []byte("false"), state.KindOnOff, "0"},
		{"quoted string", []byte(`"eco"`), state.KindString, "eco"},
		{"bare text", []byte("ON"), state.KindString, "ON"},
		{"object", []byte(`{"a": 1}`), state.KindJSON, `{"a":1}`},
		{"array", []byte(`[1, 2]`), state.KindJSON, `[1,2]`},
		{"malformed brackets", []byte(`{oops`), state.KindString, "{oops"},
		{"null", []byte("null"), state.KindString, "null"},
		{"binary", []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0xff}, state.KindRaw, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := r.Parse(d, tt.payload)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if v.Kind() != tt.wantKind {
				t.Fatalf("Parse() kind = %s, want %s", v.Kind(), tt.wantKind)
			}
			if tt.wantString != "" && v.String() != tt.wantString {
				t.Errorf("Parse() = %q, want %q", v.String(), tt.wantString)
			}
		})
	}
}

func TestResolver_ParseTyped(t *testing.T) {
	r := newTestResolver(t, false)
	def, err := state.ParseDecimal("20")
	if err != nil {
		t.Fatal(err)
	}

	withDefault := Definition{ID: "temp", Kind: state.KindDecimal, Default: def}
	noDefault := Definition{ID: "relay", Kind: state.KindOnOff}

	v, err := r.Parse(withDefault, []byte(""))
	if err != nil || v != state.Value(def) {
		t.Errorf("Parse(empty) = %v, %v; want default instance", v, err)
	}

	v, err = r.Parse(withDefault, []byte("21.5"))
	if err != nil || v.String() != "21.5" {
		t.Errorf("Parse(21.5) = %v, %v", v, err)
	}

	if _, err := r.Parse(withDefault, []byte("warm")); !errors.Is(err, state.ErrInvalidPayload) {
		t.Errorf("Parse(warm) error = %v, want ErrInvalidPayload", err)
	}

	if _, err := r.Parse(noDefault, nil); !errors.Is(err, ErrEmptyPayload) {
		t.Errorf("Parse(nil) error = %v, want ErrEmptyPayload", err)
	}

	v, err = r.Parse(noDefault, []byte("ON"))
	if err != nil || v != state.Value(state.On) {
		t.Errorf("Parse(ON) = %v, %v; want On singleton", v, err)
	}

	v, err = r.Parse(Definition{ID: "s", Kind: state.KindString}, []byte("hello"))
	if err != nil || v.Kind() != state.KindString || v.String() != "hello" {
		t.Errorf("Parse(string) = %v, %v", v, err)
	}

	v, err = r.Parse(Definition{ID: "doc", Kind: state.KindJSON}, []byte(`{"x": true}`))
	if err != nil || v.String() != `{"x":true}` {
		t.Errorf("Parse(json) = %v, %v", v, err)
	}

	png := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}
	v, err = r.Parse(Definition{ID: "cam", Kind: state.KindRaw}, png)
	if err != nil {
		t.Fatalf("Parse(raw) error = %v", err)
	}
	raw, ok := v.(*state.Raw)
	if !ok || raw.ContentType() != "image/png" || raw.Len() != len(png) {
		t.Errorf("Parse(raw) = %#v", v)
	}
}
