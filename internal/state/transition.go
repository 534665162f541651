package state

// Transition pairs a new value with the value it replaced.
//
// It is owned by the producer of the change (an MQTT listener comparing
// consecutive payloads, the datapoint store) and is used for change
// detection. Previous is nil for the first reading of a datapoint.
type Transition struct {
	Current  Value
	Previous Value
}

// EqualToOldValue reports whether Current equals Previous.
// Two nil values are equal; a nil and a non-nil value are not.
func (t Transition) EqualToOldValue() bool {
	switch {
	case t.Current == nil && t.Previous == nil:
		return true
	case t.Current == nil || t.Previous == nil:
		return false
	}
	return t.Current.Equal(t.Previous)
}

// Changed reports whether the transition carries a different value.
func (t Transition) Changed() bool {
	return !t.EqualToOldValue()
}

// First reports whether there was no previous value.
func (t Transition) First() bool {
	return t.Previous == nil
}
