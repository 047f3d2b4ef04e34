// Package mirror copies the colour and brightness of WiZ lamps onto a
// HyperCube.
//
// A Syncer polls its sources one at a time, drops states it must not
// forward, and pushes the rest to the sink:
//
//	poll -> scene active?      skip
//	     -> same as last push? skip
//	     -> push -> on success remember state, notify observers
//
// The last forwarded state per source lives in a StateCache owned by the
// Syncer. It is written only after the sink accepted a command, so a failed
// push is retried on the next pass.
//
// Observers receive a ForwardEvent for every accepted push. The SQLite
// history repository, the MQTT publisher, the InfluxDB writer and the
// WebSocket hub are all observers; none of them can stop the loop.
package mirror
