// Package mqtt publishes lightsync's mirror activity to an MQTT broker.
//
// The client is publish-only. When mqtt.enabled is set, lightsync announces
// what it discovered and every state it forwards, so home automation
// systems can follow the mirror without polling the lamps themselves.
//
// # Topics
//
//	lightsync/system/status             online/offline, retained, LWT
//	lightsync/discovery/wiz             discovered source lamps, retained
//	lightsync/discovery/hypercube       the sink in use, retained
//	lightsync/state/wiz/{address}       last forwarded state, retained
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, runID)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishMirrorState(mqtt.MirrorState{...})
//
// Reconnection is handled by paho with exponential backoff between
// mqtt.reconnect.initial_delay and mqtt.reconnect.max_delay.
package mqtt
