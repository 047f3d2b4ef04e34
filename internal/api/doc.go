// Package api implements the local status API of lightsync.
//
// This package provides:
//   - GET /api/v1/health: component health (database, MQTT, InfluxDB)
//   - GET /api/v1/metrics: runtime and mirror loop counters
//   - GET /api/v1/status: run id, mode, sink, sources, last forwarded states
//   - GET /api/v1/history/{source}?limit=n: the forward journal of one lamp
//   - GET /api/v1/ws: WebSocket event stream
//
// WebSocket clients subscribe to channels:
//
//	{"type":"subscribe","id":"1","payload":{"channels":["mirror.state_forwarded"]}}
//
// The Hub is a mirror.Observer, so every state the sink accepts is
// broadcast on mirror.state_forwarded. Subscribing to mirror.snapshot
// returns the last forwarded state of every source once.
//
// The API is read-only and has no authentication; bind it to a local
// address. It is disabled by default.
package api
