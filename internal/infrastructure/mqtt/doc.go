// Package mqtt connects Homio Core to the MQTT broker.
//
// Device sources (Zigbee, Z-Wave, ESPHome gateways) publish raw readings on
// homio/state/{source}/{address}. Core subscribes, normalises each payload
// into a state.Value and republishes it retained on
// homio/core/datapoint/{id}/state.
//
//	sources → broker → core (ingest) → broker → UIs, automations
//
// The client reconnects on its own, replays subscriptions after every
// reconnect and announces itself on homio/system/status, with a Last Will
// for unclean exits. Handler errors and panics are contained and counted
// (see Stats).
//
// Topic filters are validated before they reach the broker; MatchFilter
// applies the same wildcard rules locally.
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.SubscribeMultiple([]string{mqtt.Topics{}.AllSourceStates()}, 1,
//	    func(topic string, payload []byte) error {
//	        return ingest(topic, payload)
//	    })
//
// Enable TLS (broker.tls) for anything beyond a local broker.
package mqtt
