package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement and tag names used for datapoint values.
const (
	measurementDatapoint = "datapoint_values"

	tagDatapointID = "datapoint_id"
	tagKind        = "kind"
	tagUnit        = "unit"

	fieldValue = "value"
)

// WriteDatapoint records the numeric form of a datapoint value.
//
// The write is non-blocking; points are batched and sent asynchronously.
// Calls on a closed client are dropped.
//
// Parameters:
//   - datapointID: Datapoint identifier (e.g., "living-temp")
//   - kind: Value variant tag (e.g., "decimal", "on_off")
//   - unit: Optional unit, omitted from the tags when empty
//   - value: Numeric value to record
//   - ts: Time the value was observed
//
// Example:
//
//	client.WriteDatapoint("living-temp", "decimal", "°C", 21.5, time.Now())
func (c *Client) WriteDatapoint(datapointID, kind, unit string, value float64, ts time.Time) {
	c.write(datapointPoint(datapointID, kind, unit, value, ts))
}

// datapointPoint builds the point written by WriteDatapoint.
func datapointPoint(datapointID, kind, unit string, value float64, ts time.Time) *write.Point {
	tags := map[string]string{
		tagDatapointID: datapointID,
		tagKind:        kind,
	}
	if unit != "" {
		tags[tagUnit] = unit
	}
	return write.NewPoint(measurementDatapoint, tags, map[string]any{fieldValue: value}, ts)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//   - ts: The exact time for this data point; zero means now
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any, ts time.Time) {
	if ts.IsZero() {
		ts = time.Now()
	}
	c.write(write.NewPoint(measurement, tags, fields, ts))
}

// write queues p, counting it as dropped when the client is closed.
func (c *Client) write(p *write.Point) {
	if c == nil {
		return
	}
	if !c.IsConnected() {
		c.dropped.Add(1)
		return
	}
	c.queued.Add(1)
	c.writeAPI.WritePoint(p)
}
