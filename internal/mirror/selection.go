package mirror

import "fmt"

// Selection modes.
const (
	ModeSingle = "single"
	ModeAll    = "all"
)

// Selection picks which discovered sources are mirrored.
//
// In single mode Index is the 1-based position of the source in discovery
// order. Index is ignored in all mode.
type Selection struct {
	Mode  string
	Index int
}

// Apply returns the selected sources in discovery order.
func (s Selection) Apply(discovered []string) ([]string, error) {
	if len(discovered) == 0 {
		return nil, ErrNoSources
	}

	switch s.Mode {
	case ModeAll:
		return append([]string(nil), discovered...), nil
	case ModeSingle:
		if s.Index < 1 || s.Index > len(discovered) {
			return nil, fmt.Errorf("%w: index %d, %d sources discovered", ErrInvalidSelection, s.Index, len(discovered))
		}
		return []string{discovered[s.Index-1]}, nil
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidSelection, s.Mode)
	}
}
