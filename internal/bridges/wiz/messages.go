package wiz

import (
	"encoding/json"
	"fmt"

	"github.com/nerrad567/lightsync/internal/device"
)

// Protocol method names.
const (
	methodGetSystemConfig = "getSystemConfig"
	methodGetPilot        = "getPilot"
)

// request is the JSON-RPC-like envelope sent to a lamp.
type request struct {
	Method string   `json:"method"`
	Params struct{} `json:"params"`
}

// Pre-encoded queries; both carry empty params.
var (
	discoveryQuery = mustEncode(methodGetSystemConfig)
	pilotQuery     = mustEncode(methodGetPilot)
)

func mustEncode(method string) []byte {
	data, err := json.Marshal(request{Method: method})
	if err != nil {
		panic(fmt.Sprintf("wiz: encoding %s query: %v", method, err))
	}
	return data
}

// rpcError is the error object a lamp returns for rejected requests.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// systemConfigResponse is the subset of a getSystemConfig reply used for discovery.
type systemConfigResponse struct {
	Result *struct {
		MAC *string `json:"mac"`
	} `json:"result"`
}

// pilotResponse is a getPilot reply.
type pilotResponse struct {
	Result *pilotResult `json:"result"`
	Error  *rpcError    `json:"error"`
}

// pilotResult holds the lamp state fields. All are optional on the wire.
type pilotResult struct {
	R       *int `json:"r"`
	G       *int `json:"g"`
	B       *int `json:"b"`
	Dimming *int `json:"dimming"`
	SceneID *int `json:"sceneId"`
}

// parseSystemConfig returns the lamp MAC from a discovery reply.
// A reply counts as a lamp only if it has a result section with a mac field.
func parseSystemConfig(data []byte) (string, error) {
	var resp systemConfigResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("decoding system config: %w", err)
	}
	if resp.Result == nil {
		return "", fmt.Errorf("system config has no result")
	}
	if resp.Result.MAC == nil {
		return "", fmt.Errorf("system config result has no mac")
	}
	return *resp.Result.MAC, nil
}

// parsePilot converts a getPilot reply into a LightState.
//
// A lamp running a scene may omit its colour, so the scene id is checked
// before the colour channels. Missing dimming defaults to 100.
func parsePilot(data []byte) (device.LightState, error) {
	var resp pilotResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return device.LightState{}, fmt.Errorf("%w: decoding pilot: %w", ErrPoll, err)
	}
	if resp.Error != nil {
		return device.LightState{}, fmt.Errorf("%w: lamp error %d: %s", ErrPoll, resp.Error.Code, resp.Error.Message)
	}
	if resp.Result == nil {
		return device.LightState{}, fmt.Errorf("%w: pilot has no result", ErrPoll)
	}

	res := resp.Result
	state := device.LightState{Brightness: device.DefaultBrightness}
	if res.Dimming != nil {
		state.Brightness = *res.Dimming
	}
	if res.SceneID != nil && *res.SceneID != 0 {
		state.SceneID = *res.SceneID
		return state, nil
	}

	if res.R == nil || res.G == nil || res.B == nil {
		return device.LightState{}, fmt.Errorf("%w: pilot has no rgb colour", ErrPoll)
	}
	state.Red, state.Green, state.Blue = *res.R, *res.G, *res.B

	if err := state.Validate(); err != nil {
		return device.LightState{}, fmt.Errorf("%w: %w", ErrPoll, err)
	}
	return state, nil
}
