package device

import (
	"errors"
	"testing"
)

func TestLightState_ScaledBrightness(t *testing.T) {
	tests := []struct {
		brightness int
		want       int
	}{
		{brightness: 100, want: 255},
		{brightness: 50, want: 128}, // 127.5 rounds up
		{brightness: 0, want: 0},
		{brightness: 10, want: 26}, // 25.5 rounds up
		{brightness: 1, want: 3},   // 2.55
	}

	for _, tt := range tests {
		s := LightState{Brightness: tt.brightness}
		if got := s.ScaledBrightness(); got != tt.want {
			t.Errorf("ScaledBrightness(%d) = %d, want %d", tt.brightness, got, tt.want)
		}
	}
}

func TestLightState_Validate(t *testing.T) {
	tests := []struct {
		name    string
		state   LightState
		wantErr bool
	}{
		{name: "valid", state: LightState{Red: 255, Green: 0, Blue: 10, Brightness: 100}},
		{name: "negative red", state: LightState{Red: -1, Brightness: 50}, wantErr: true},
		{name: "blue too high", state: LightState{Blue: 256, Brightness: 50}, wantErr: true},
		{name: "brightness too high", state: LightState{Brightness: 101}, wantErr: true},
		{name: "brightness negative", state: LightState{Brightness: -5}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.state.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidState) {
				t.Errorf("Validate() error = %v, want ErrInvalidState", err)
			}
		})
	}
}

func TestLightState_Equality(t *testing.T) {
	a := LightState{Red: 10, Green: 20, Blue: 30, Brightness: 50}
	b := LightState{Red: 10, Green: 20, Blue: 30, Brightness: 50}
	c := LightState{Red: 10, Green: 20, Blue: 31, Brightness: 50}

	if a != b {
		t.Error("identical snapshots should compare equal")
	}
	if a == c {
		t.Error("snapshots differing in blue should not compare equal")
	}
}

func TestLightState_InScene(t *testing.T) {
	if (LightState{}).InScene() {
		t.Error("zero scene id should not count as an active scene")
	}
	if !(LightState{SceneID: 5}).InScene() {
		t.Error("scene id 5 should count as an active scene")
	}
}

func TestLightState_RGB(t *testing.T) {
	got := LightState{Red: 1, Green: 2, Blue: 3}.RGB()
	if got != [3]int{1, 2, 3} {
		t.Errorf("RGB() = %v, want [1 2 3]", got)
	}
}
