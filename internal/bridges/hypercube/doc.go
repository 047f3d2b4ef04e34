// Package hypercube drives a Hyperspace HyperCube over its WLED-style JSON
// HTTP API.
//
// Two endpoints are used:
//
//	GET  /json/info   identification; a cube reports "brand":"Hyperspace"
//	POST /json/state  colour and brightness command
//
// Discovery walks a list of candidate addresses in order and returns the
// first one that identifies as a HyperCube. Identification is by brand
// string only, so any device claiming that brand is accepted.
//
// # Usage
//
//	client := hypercube.NewClient(hypercube.DefaultConfig(), nil)
//	sink, found, err := client.DiscoverSink(ctx, scanRange)
//	if !found {
//	    // no cube on this network
//	}
//	err = client.PushToSink(ctx, sink, state)
package hypercube
