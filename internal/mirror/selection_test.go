package mirror

import (
	"errors"
	"reflect"
	"testing"

	"github.com/nerrad567/lightsync/internal/device"
)

func TestSelectionApply(t *testing.T) {
	discovered := []string{"192.168.1.20", "192.168.1.21", "192.168.1.22"}

	tests := []struct {
		name       string
		selection  Selection
		discovered []string
		want       []string
		wantErr    error
	}{
		{"all", Selection{Mode: ModeAll}, discovered, discovered, nil},
		{"single first", Selection{Mode: ModeSingle, Index: 1}, discovered, []string{"192.168.1.20"}, nil},
		{"single last", Selection{Mode: ModeSingle, Index: 3}, discovered, []string{"192.168.1.22"}, nil},
		{"single zero", Selection{Mode: ModeSingle, Index: 0}, discovered, nil, ErrInvalidSelection},
		{"single past end", Selection{Mode: ModeSingle, Index: 4}, discovered, nil, ErrInvalidSelection},
		{"unknown mode", Selection{Mode: "some"}, discovered, nil, ErrInvalidSelection},
		{"nothing discovered", Selection{Mode: ModeAll}, nil, nil, ErrNoSources},
		{"nothing discovered single", Selection{Mode: ModeSingle, Index: 1}, []string{}, nil, ErrNoSources},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.selection.Apply(tt.discovered)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Apply() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Apply() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Apply() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelectionApply_DoesNotAlias(t *testing.T) {
	discovered := []string{"a", "b"}
	got, err := Selection{Mode: ModeAll}.Apply(discovered)
	if err != nil {
		t.Fatal(err)
	}
	got[0] = "changed"
	if discovered[0] != "a" {
		t.Error("Apply() result shares storage with its input")
	}
}

func TestStateCache(t *testing.T) {
	c := NewStateCache()
	state := device.LightState{Red: 1, Green: 2, Blue: 3, Brightness: 40}

	if c.Unchanged("lamp", device.LightState{}) {
		t.Error("empty cache should report every state as changed")
	}

	c.Set("lamp", state)
	if !c.Unchanged("lamp", state) {
		t.Error("identical state should be unchanged")
	}
	changed := state
	changed.Blue = 4
	if c.Unchanged("lamp", changed) {
		t.Error("different blue should be a change")
	}

	snap := c.Snapshot()
	snap["lamp"] = changed
	if got, _ := c.Get("lamp"); got != state {
		t.Error("Snapshot() must return a copy")
	}
	if len(c.Snapshot()) != 1 {
		t.Errorf("Snapshot() has %d entries, want 1", len(c.Snapshot()))
	}
}
