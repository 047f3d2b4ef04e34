package mirror

import (
	"context"
	"time"

	"github.com/nerrad567/lightsync/internal/device"
)

// ForwardEvent describes one state the sink accepted.
type ForwardEvent struct {
	RunID          string            `json:"run_id"`
	Source         string            `json:"source"`
	Sink           string            `json:"sink"`
	State          device.LightState `json:"state"`
	SinkBrightness int               `json:"sink_brightness"`
	Timestamp      time.Time         `json:"timestamp"`
}

// Observer is notified after every accepted push.
// Errors are logged by the Syncer and otherwise ignored.
type Observer interface {
	OnForward(ctx context.Context, event ForwardEvent) error
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, event ForwardEvent) error

// OnForward calls f.
func (f ObserverFunc) OnForward(ctx context.Context, event ForwardEvent) error {
	return f(ctx, event)
}
