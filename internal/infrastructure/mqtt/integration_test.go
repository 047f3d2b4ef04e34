//go:build integration

package mqtt

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// Integration tests against a real broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -v ./internal/infrastructure/mqtt/...

func TestIntegration_ConnectAndClose(t *testing.T) {
	client, err := Connect(testConfig(), "run-int")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect")
	}
	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close")
	}
}

func TestIntegration_ConnectRefused(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Port = 19999

	_, err := Connect(cfg, "run-int")
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestIntegration_MirrorStateIsRetained(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.ClientID = "lightsync-int-publisher"
	client, err := Connect(cfg, "run-int")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	want := MirrorState{Source: "10.0.0.42", Sink: "10.0.0.10", Red: 1, Green: 2, Blue: 3, Brightness: 100, SinkBrightness: 255}
	if err := client.PublishMirrorState(want); err != nil {
		t.Fatalf("PublishMirrorState() error = %v", err)
	}

	// A fresh subscriber receives the retained state.
	opts := pahomqtt.NewClientOptions().AddBroker(brokerURL(cfg)).SetClientID("lightsync-int-reader")
	reader := pahomqtt.NewClient(opts)
	if token := reader.Connect(); !token.WaitTimeout(5*time.Second) || token.Error() != nil {
		t.Fatalf("reader connect failed: %v", token.Error())
	}
	defer reader.Disconnect(100)

	var once sync.Once
	got := make(chan MirrorState, 1)
	reader.Subscribe(Topics{}.State(ProtocolWiZ, "10.0.0.42"), 1, func(_ pahomqtt.Client, msg pahomqtt.Message) {
		var s MirrorState
		if json.Unmarshal(msg.Payload(), &s) == nil {
			once.Do(func() { got <- s })
		}
	})

	select {
	case s := <-got:
		if s.RunID != "run-int" || s.Red != 1 || s.SinkBrightness != 255 {
			t.Errorf("retained state = %+v", s)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("retained state not received")
	}
}
