// Package device holds the light state shared by the WiZ source client,
// the HyperCube sink client and the mirror loop.
//
// A LightState is a value: every poll produces a fresh one and two states
// are compared with ==. Brightness is a 0-100 percentage on the source side;
// ScaledBrightness converts it to the 0-255 scale the sink expects.
package device
