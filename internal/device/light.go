package device

import (
	"fmt"
	"math"
)

// Light value ranges.
const (
	// MaxChannel is the largest value of a single colour channel.
	MaxChannel = 255

	// MaxBrightness is the largest source brightness (percent).
	MaxBrightness = 100

	// DefaultBrightness is assumed when a lamp omits its dimming level.
	DefaultBrightness = 100
)

// LightState is one polled snapshot of a source lamp.
//
// It is a value type: a fresh snapshot is produced on every poll and two
// snapshots are compared with ==. SceneID is 0 when the lamp reports no
// scene; any other value means the lamp is running an on-device effect.
type LightState struct {
	Red        int `json:"r"`
	Green      int `json:"g"`
	Blue       int `json:"b"`
	Brightness int `json:"dimming"`
	SceneID    int `json:"scene_id,omitempty"`
}

// Validate reports whether every channel and the brightness are in range.
func (s LightState) Validate() error {
	for _, ch := range []struct {
		name  string
		value int
	}{
		{"red", s.Red},
		{"green", s.Green},
		{"blue", s.Blue},
	} {
		if ch.value < 0 || ch.value > MaxChannel {
			return fmt.Errorf("%w: %s channel %d out of range 0-%d", ErrInvalidState, ch.name, ch.value, MaxChannel)
		}
	}
	if s.Brightness < 0 || s.Brightness > MaxBrightness {
		return fmt.Errorf("%w: brightness %d out of range 0-%d", ErrInvalidState, s.Brightness, MaxBrightness)
	}
	return nil
}

// InScene reports whether the lamp is running an on-device scene.
// Scene states are not mirrored.
func (s LightState) InScene() bool {
	return s.SceneID != 0
}

// RGB returns the colour channels as a triple.
func (s LightState) RGB() [3]int {
	return [3]int{s.Red, s.Green, s.Blue}
}

// ScaledBrightness maps the 0-100 brightness onto a 0-255 scale,
// rounding half away from zero (50 -> 128).
func (s LightState) ScaledBrightness() int {
	return int(math.Round(float64(s.Brightness) / MaxBrightness * MaxChannel))
}

// String renders the state for log output.
func (s LightState) String() string {
	return fmt.Sprintf("rgb(%d,%d,%d) dim=%d%%", s.Red, s.Green, s.Blue, s.Brightness)
}
