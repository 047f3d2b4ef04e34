package mqtt

import "fmt"

// TopicPrefix is the root of every lightsync topic.
const TopicPrefix = "lightsync"

// Protocol names used in topics.
const (
	ProtocolWiZ       = "wiz"
	ProtocolHyperCube = "hypercube"
)

// Topics provides builders for lightsync MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.State("wiz", "192.168.1.20")
//	// Returns: "lightsync/state/wiz/192.168.1.20"
type Topics struct{}

// State returns the topic carrying the last forwarded state of a source.
//
// Example: lightsync/state/wiz/192.168.1.20
func (Topics) State(protocol, address string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefix, protocol, address)
}

// Discovery returns the topic carrying the discovery result of one protocol.
//
// Example: lightsync/discovery/hypercube
func (Topics) Discovery(protocol string) string {
	return fmt.Sprintf("%s/discovery/%s", TopicPrefix, protocol)
}

// SystemStatus returns the online/offline status topic.
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}
