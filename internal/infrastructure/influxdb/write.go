package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementMirrorState is the measurement written for every forwarded state.
const MeasurementMirrorState = "mirror_state"

// MirrorState is one forwarded colour state.
type MirrorState struct {
	Source         string
	Sink           string
	Red            int
	Green          int
	Blue           int
	Brightness     int
	SinkBrightness int
	Timestamp      time.Time
}

// WriteMirrorState records a forwarded state as a mirror_state point
// tagged with source and sink.
//
// The write is non-blocking; points are batched and sent asynchronously.
// A zero Timestamp is replaced with the current time.
func (c *Client) WriteMirrorState(state MirrorState) {
	ts := state.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	c.WritePointWithTime(MeasurementMirrorState,
		map[string]string{
			"source": state.Source,
			"sink":   state.Sink,
		},
		map[string]interface{}{
			"red":             state.Red,
			"green":           state.Green,
			"blue":            state.Blue,
			"brightness":      state.Brightness,
			"sink_brightness": state.SinkBrightness,
		},
		ts,
	)
}

// WritePoint writes a custom point stamped with the current time.
//
// Example:
//
//	client.WritePoint("sync_loop",
//	    map[string]string{"run_id": runID},
//	    map[string]interface{}{"pushes": 12, "poll_failures": 1})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a custom point with a specific timestamp.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
