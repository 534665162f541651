package datapoint

import "errors"

// Domain errors for the datapoint package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, datapoint.ErrDatapointNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDatapointNotFound is returned when a datapoint ID has no value.
	ErrDatapointNotFound = errors.New("datapoint: not found")

	// ErrInvalidDatapoint is returned when a definition fails validation.
	ErrInvalidDatapoint = errors.New("datapoint: invalid")

	// ErrUnknownTopic is returned when a topic maps to no datapoint.
	ErrUnknownTopic = errors.New("datapoint: unknown topic")

	// ErrEmptyPayload is returned when an empty payload arrives for a
	// datapoint without a default value.
	ErrEmptyPayload = errors.New("datapoint: empty payload")
)
