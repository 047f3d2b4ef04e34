package mirror

import (
	"sync"

	"github.com/nerrad567/lightsync/internal/device"
)

// StateCache holds the last state successfully forwarded per source.
//
// Thread Safety: All methods are safe for concurrent use.
type StateCache struct {
	mu     sync.RWMutex
	states map[string]device.LightState
}

// NewStateCache creates an empty cache.
func NewStateCache() *StateCache {
	return &StateCache{states: make(map[string]device.LightState)}
}

// Get returns the last forwarded state of source.
func (c *StateCache) Get(source string) (device.LightState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	state, ok := c.states[source]
	return state, ok
}

// Unchanged reports whether state equals the last forwarded state of source.
// A source with no entry is always changed.
func (c *StateCache) Unchanged(source string, state device.LightState) bool {
	cached, ok := c.Get(source)
	return ok && cached == state
}

// Set records state as the last forwarded state of source.
func (c *StateCache) Set(source string, state device.LightState) {
	c.mu.Lock()
	c.states[source] = state
	c.mu.Unlock()
}

// Snapshot returns a copy of every entry.
func (c *StateCache) Snapshot() map[string]device.LightState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]device.LightState, len(c.states))
	for k, v := range c.states {
		out[k] = v
	}
	return out
}
