package mqtt

import (
	"fmt"
	"strings"
)

// ValidateTopic checks a topic used for publishing. Publish topics must be
// non-empty and must not contain the + or # wildcards.
func ValidateTopic(topic string) error {
	if topic == "" {
		return fmt.Errorf("%w: empty", ErrInvalidTopic)
	}
	if strings.ContainsAny(topic, "+#") {
		return fmt.Errorf("%w: %q contains wildcards", ErrInvalidTopic, topic)
	}
	return nil
}

// ValidateFilter checks a subscription filter.
//
// A + must occupy a whole level; a # must occupy the last level.
func ValidateFilter(filter string) error {
	if filter == "" {
		return fmt.Errorf("%w: empty", ErrInvalidFilter)
	}

	levels := strings.Split(filter, "/")
	for i, level := range levels {
		switch {
		case level == "#":
			if i != len(levels)-1 {
				return fmt.Errorf("%w: %q has # before the last level", ErrInvalidFilter, filter)
			}
		case level == "+":
		case strings.ContainsAny(level, "+#"):
			return fmt.Errorf("%w: %q has a wildcard inside level %q", ErrInvalidFilter, filter, level)
		}
	}
	return nil
}

// MatchFilter reports whether topic matches filter. The filter is assumed
// valid; topics starting with $ are not matched by leading wildcards.
//
//	MatchFilter("homio/state/+/+", "homio/state/zigbee/living-temp") // true
//	MatchFilter("homio/#", "homio")                                   // true
func MatchFilter(filter, topic string) bool {
	if strings.HasPrefix(topic, "$") && (strings.HasPrefix(filter, "+") || strings.HasPrefix(filter, "#")) {
		return false
	}

	fl := strings.Split(filter, "/")
	tl := strings.Split(topic, "/")

	for i, level := range fl {
		if level == "#" {
			return true
		}
		if i >= len(tl) {
			return false
		}
		if level != "+" && level != tl[i] {
			return false
		}
	}
	return len(fl) == len(tl)
}
