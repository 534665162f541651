// Package config loads Homio Core's YAML configuration.
//
// Values are layered: built-in defaults, then the file, then HOMIO_*
// environment variables (HOMIO_DATABASE_PATH, HOMIO_MQTT_HOST,
// HOMIO_MQTT_USERNAME, HOMIO_MQTT_PASSWORD, HOMIO_API_HOST,
// HOMIO_INFLUXDB_TOKEN, HOMIO_METRICS_ADDR). Validate reports every problem
// in one error, including malformed datapoint declarations.
//
// Keep secrets (MQTT password, InfluxDB token) in the environment and the
// file itself at 0600.
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
package config
