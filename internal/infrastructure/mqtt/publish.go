package mqtt

import (
	"encoding/json"
	"fmt"
	"time"
)

// Maximum payload size for MQTT messages (1MB).
const maxPayloadSize = 1 << 20

// MirrorState is the retained payload of a state topic.
type MirrorState struct {
	RunID          string    `json:"run_id"`
	Source         string    `json:"source"`
	Sink           string    `json:"sink"`
	Red            int       `json:"r"`
	Green          int       `json:"g"`
	Blue           int       `json:"b"`
	Brightness     int       `json:"dimming"`
	SinkBrightness int       `json:"bri"`
	Timestamp      time.Time `json:"timestamp"`
}

// DiscoveredDevice is one entry of a discovery payload.
type DiscoveredDevice struct {
	Address string `json:"address"`
	MAC     string `json:"mac,omitempty"`
}

// Discovery is the retained payload of a discovery topic.
type Discovery struct {
	RunID     string             `json:"run_id"`
	Devices   []DiscoveredDevice `json:"devices"`
	Timestamp time.Time          `json:"timestamp"`
}

// Publish sends a message to the specified MQTT topic.
//
// Parameters:
//   - topic: The topic to publish to (e.g., "lightsync/state/wiz/192.168.1.20")
//   - payload: The message payload (max 1MB)
//   - qos: Quality of Service level (0, 1, or 2)
//   - retained: Whether the broker should keep the message for new subscribers
//
// Returns:
//   - error: nil on success, or wrapped error describing the failure
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// PublishRetained publishes a retained message with the configured QoS.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	return c.Publish(topic, payload, byte(c.cfg.QoS), true)
}

// PublishJSON encodes v and publishes it retained.
func (c *Client) PublishJSON(topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encoding payload: %w", ErrPublishFailed, err)
	}
	return c.PublishRetained(topic, payload)
}

// PublishMirrorState publishes a forwarded state on the source's state topic.
func (c *Client) PublishMirrorState(state MirrorState) error {
	if state.RunID == "" {
		state.RunID = c.runID
	}
	return c.PublishJSON(Topics{}.State(ProtocolWiZ, state.Source), state)
}

// PublishDiscovery publishes the discovery result of one protocol.
func (c *Client) PublishDiscovery(protocol string, devices []DiscoveredDevice) error {
	if devices == nil {
		devices = []DiscoveredDevice{}
	}
	return c.PublishJSON(Topics{}.Discovery(protocol), Discovery{
		RunID:     c.runID,
		Devices:   devices,
		Timestamp: time.Now().UTC(),
	})
}
