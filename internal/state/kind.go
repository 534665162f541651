package state

import (
	"fmt"
	"strings"
)

// Kind identifies a Value variant.
//
// Kinds are persisted next to encoded values and appear in canonical MQTT
// payloads, so the string forms must stay stable.
type Kind string

// Variant kinds.
const (
	KindOnOff   Kind = "on_off"
	KindDecimal Kind = "decimal"
	KindString  Kind = "string"
	KindJSON    Kind = "json"
	KindRaw     Kind = "raw"
	KindObject  Kind = "object"
)

// AllKinds returns every known kind in declaration order.
func AllKinds() []Kind {
	return []Kind{KindOnOff, KindDecimal, KindString, KindJSON, KindRaw, KindObject}
}

// ParseKind converts a kind identifier to a Kind.
//
// Matching is case-insensitive and ignores surrounding whitespace.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if k.Valid() {
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindOnOff, KindDecimal, KindString, KindJSON, KindRaw, KindObject:
		return true
	}
	return false
}

func (k Kind) String() string {
	return string(k)
}
