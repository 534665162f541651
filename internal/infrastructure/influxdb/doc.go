// Package influxdb mirrors numeric datapoint values into InfluxDB.
//
// Writes go through the non-blocking batching API of influxdb-client-go:
// WriteDatapoint queues a point and returns immediately, and failures are
// reported later through SetOnError. Values without a numeric form never
// reach this package; the SQLite history keeps those.
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteDatapoint("living-temp", "decimal", "°C", 21.5, time.Now())
//
// Stats counts queued, dropped (client closed or disconnected) and failed
// points. All methods are safe for concurrent use.
package influxdb
