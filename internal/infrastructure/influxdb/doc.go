// Package influxdb records forwarded mirror states in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library. Every state pushed
// to the HyperCube becomes one point:
//
//	mirror_state,sink=192.168.1.60,source=192.168.1.20 red=255i,green=0i,blue=0i,brightness=100i,sink_brightness=255i
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteMirrorState(influxdb.MirrorState{Source: src, Sink: sink, Red: 255})
//
// # Error Handling
//
// Writes are non-blocking and batched according to batch_size and
// flush_interval. Write failures are delivered to the SetOnError callback.
// Connection and health check errors are returned directly.
package influxdb
