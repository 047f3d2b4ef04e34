// Package wiz talks to WiZ smart lamps over their UDP JSON protocol.
//
// Two exchanges are supported, both on UDP port 38899:
//
//	{"method":"getSystemConfig","params":{}}  broadcast discovery
//	{"method":"getPilot","params":{}}         per-lamp state poll
//
// Every call opens its own socket and closes it before returning; nothing
// stays bound between calls.
//
// # Usage
//
//	client := wiz.NewClient(wiz.Config{})
//	sources, err := client.DiscoverSources(ctx, "192.168.1.255")
//	state, err := client.PollSource(ctx, sources[0].Address)
//	if errors.Is(err, wiz.ErrTimeout) {
//	    // lamp did not answer, try again next pass
//	}
package wiz
