package hypercube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/lightsync/internal/device"
)

// roundTripFunc lets a test answer HTTP requests without a network.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(req *http.Request, status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    req,
	}
}

// fakeNetwork answers /json/info per host and records the probe order.
type fakeNetwork struct {
	mu     sync.Mutex
	probed []string
	hosts  map[string]func(*http.Request) (*http.Response, error)
}

func (n *fakeNetwork) client() *http.Client {
	return &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		host := req.URL.Hostname()
		n.mu.Lock()
		n.probed = append(n.probed, host)
		n.mu.Unlock()
		if h, ok := n.hosts[host]; ok {
			return h(req)
		}
		return nil, fmt.Errorf("dial tcp %s:80: connect: no route to host", host)
	})}
}

func scanRange() []string {
	addrs := make([]string, 0, 254)
	for i := 1; i <= 254; i++ {
		addrs = append(addrs, "192.168.1."+strconv.Itoa(i))
	}
	return addrs
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Port != 80 || cfg.Brand != "Hyperspace" || cfg.SegmentStop != 88 || cfg.Effect != 103 || cfg.Palette != 0 {
		t.Errorf("DefaultConfig() = %+v", cfg)
	}
	if cfg.ProbeTimeout != time.Second {
		t.Errorf("ProbeTimeout = %v, want 1s", cfg.ProbeTimeout)
	}
	if cfg.CommandTimeout != 5*time.Second {
		t.Errorf("CommandTimeout = %v, want 5s", cfg.CommandTimeout)
	}
}

func TestDiscoverSink_FindsHyperspaceBrand(t *testing.T) {
	fake := &fakeNetwork{hosts: map[string]func(*http.Request) (*http.Response, error){
		"192.168.1.1": func(req *http.Request) (*http.Response, error) {
			return jsonResponse(req, http.StatusOK, `{"brand":"WLED","product":"FOSS"}`), nil
		},
		"192.168.1.5": func(req *http.Request) (*http.Response, error) {
			return jsonResponse(req, http.StatusNotFound, `not found`), nil
		},
		"192.168.1.7": func(req *http.Request) (*http.Response, error) {
			return jsonResponse(req, http.StatusOK, `<html>router</html>`), nil
		},
		"192.168.1.10": func(req *http.Request) (*http.Response, error) {
			if req.URL.Path != "/json/info" || req.Method != http.MethodGet {
				return jsonResponse(req, http.StatusNotFound, ``), nil
			}
			return jsonResponse(req, http.StatusOK, `{"brand":"Hyperspace","product":"HyperCube","name":"Cube","ver":"0.14.0"}`), nil
		},
		"192.168.1.20": func(req *http.Request) (*http.Response, error) {
			return jsonResponse(req, http.StatusOK, `{"brand":"Hyperspace"}`), nil
		},
	}}

	client := NewClient(DefaultConfig(), fake.client())
	sink, found, err := client.DiscoverSink(context.Background(), scanRange())
	if err != nil {
		t.Fatalf("DiscoverSink() error = %v", err)
	}
	if !found || sink != "192.168.1.10" {
		t.Fatalf("DiscoverSink() = (%q, %v), want (192.168.1.10, true)", sink, found)
	}

	// Scan stops at the first match.
	if len(fake.probed) != 10 {
		t.Errorf("probed %d addresses, want 10", len(fake.probed))
	}
	for i, host := range fake.probed {
		if want := "192.168.1." + strconv.Itoa(i+1); host != want {
			t.Errorf("probe %d went to %s, want %s", i, host, want)
		}
	}
}

func TestDiscoverSink_NotFound(t *testing.T) {
	fake := &fakeNetwork{hosts: map[string]func(*http.Request) (*http.Response, error){
		"192.168.1.3": func(req *http.Request) (*http.Response, error) {
			return jsonResponse(req, http.StatusOK, `{"brand":"WLED"}`), nil
		},
	}}

	client := NewClient(DefaultConfig(), fake.client())
	sink, found, err := client.DiscoverSink(context.Background(), scanRange())
	if err != nil {
		t.Fatalf("DiscoverSink() error = %v", err)
	}
	if found || sink != "" {
		t.Errorf("DiscoverSink() = (%q, %v), want (\"\", false)", sink, found)
	}
	if len(fake.probed) != 254 {
		t.Errorf("probed %d addresses, want 254", len(fake.probed))
	}
}

func TestDiscoverSink_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fake := &fakeNetwork{hosts: map[string]func(*http.Request) (*http.Response, error){
		"192.168.1.2": func(req *http.Request) (*http.Response, error) {
			cancel()
			return nil, req.Context().Err()
		},
	}}

	client := NewClient(DefaultConfig(), fake.client())
	_, found, err := client.DiscoverSink(ctx, scanRange())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("DiscoverSink() error = %v, want context.Canceled", err)
	}
	if found {
		t.Error("DiscoverSink() found a sink after cancellation")
	}
	if len(fake.probed) != 2 {
		t.Errorf("probed %d addresses after cancel, want 2", len(fake.probed))
	}
}

func TestIdentify_CustomBrand(t *testing.T) {
	fake := &fakeNetwork{hosts: map[string]func(*http.Request) (*http.Response, error){
		"10.0.0.9": func(req *http.Request) (*http.Response, error) {
			return jsonResponse(req, http.StatusOK, `{"brand":"Hyperspace"}`), nil
		},
	}}

	cfg := DefaultConfig()
	cfg.Brand = "Acme"
	client := NewClient(cfg, fake.client())

	info, err := client.Identify(context.Background(), "10.0.0.9")
	if !errors.Is(err, ErrNotHyperCube) {
		t.Errorf("Identify() error = %v, want ErrNotHyperCube", err)
	}
	if info.Brand != "Hyperspace" {
		t.Errorf("Identify() should still return the reported info, got %+v", info)
	}

	if _, err := client.Identify(context.Background(), "10.0.0.10"); !errors.Is(err, ErrSinkUnreachable) {
		t.Errorf("Identify() error = %v, want ErrSinkUnreachable", err)
	}
}

// sinkServer is an httptest server recording state commands.
type sinkServer struct {
	*httptest.Server
	mu       sync.Mutex
	commands []StateCommand
	types    []string
	status   int
}

func newSinkServer(t *testing.T, status int) *sinkServer {
	t.Helper()
	s := &sinkServer{status: status}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/json/state" {
			http.NotFound(w, r)
			return
		}
		var cmd StateCommand
		if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		s.commands = append(s.commands, cmd)
		s.types = append(s.types, r.Header.Get("Content-Type"))
		s.mu.Unlock()
		w.WriteHeader(s.status)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *sinkServer) received() ([]StateCommand, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StateCommand(nil), s.commands...), append([]string(nil), s.types...)
}

// clientFor returns a client whose port points at the test server.
func clientFor(t *testing.T, srv *httptest.Server) (*Client, string) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfig()
	cfg.Port = port
	return NewClient(cfg, srv.Client()), host
}

func TestPushToSink(t *testing.T) {
	tests := []struct {
		name    string
		state   device.LightState
		wantBri int
	}{
		{"full brightness", device.LightState{Red: 255, Green: 0, Blue: 0, Brightness: 100}, 255},
		{"half brightness rounds up", device.LightState{Red: 0, Green: 128, Blue: 255, Brightness: 50}, 128},
		{"off", device.LightState{Red: 1, Green: 2, Blue: 3, Brightness: 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newSinkServer(t, http.StatusOK)
			client, host := clientFor(t, srv.Server)

			if err := client.PushToSink(context.Background(), host, tt.state); err != nil {
				t.Fatalf("PushToSink() error = %v", err)
			}

			commands, types := srv.received()
			if len(commands) != 1 {
				t.Fatalf("sink received %d commands, want 1", len(commands))
			}
			cmd := commands[0]
			if !cmd.On {
				t.Error("command should switch the cube on")
			}
			if cmd.Brightness != tt.wantBri {
				t.Errorf("bri = %d, want %d", cmd.Brightness, tt.wantBri)
			}
			if len(cmd.Segments) != 1 {
				t.Fatalf("segments = %d, want 1", len(cmd.Segments))
			}
			seg := cmd.Segments[0]
			if seg.Start != 0 || seg.Stop != 88 || seg.Effect != 103 || seg.Palette != 0 {
				t.Errorf("segment = %+v", seg)
			}
			if len(seg.Colors) != 1 || seg.Colors[0] != tt.state.RGB() {
				t.Errorf("col = %v, want [%v]", seg.Colors, tt.state.RGB())
			}
			if types[0] != "application/json" {
				t.Errorf("Content-Type = %q", types[0])
			}
		})
	}
}

func TestBuildCommand_WireFormat(t *testing.T) {
	client := NewClient(DefaultConfig(), nil)
	data, err := json.Marshal(client.BuildCommand(device.LightState{Red: 10, Green: 20, Blue: 30, Brightness: 50}))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"on":true,"bri":128,"seg":[{"start":0,"stop":88,"col":[[10,20,30]],"fx":103,"pal":0}]}`
	if string(data) != want {
		t.Errorf("body = %s\nwant   %s", data, want)
	}
}

func TestPushToSink_Rejected(t *testing.T) {
	srv := newSinkServer(t, http.StatusInternalServerError)
	client, host := clientFor(t, srv.Server)

	err := client.PushToSink(context.Background(), host, device.LightState{Brightness: 100})
	if !errors.Is(err, ErrSinkRejected) {
		t.Fatalf("PushToSink() error = %v, want ErrSinkRejected", err)
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("error should carry the status, got %v", err)
	}
}

func TestPushToSink_Unreachable(t *testing.T) {
	srv := newSinkServer(t, http.StatusOK)
	client, host := clientFor(t, srv.Server)
	srv.Close()

	err := client.PushToSink(context.Background(), host, device.LightState{Brightness: 100})
	if !errors.Is(err, ErrSinkUnreachable) {
		t.Fatalf("PushToSink() error = %v, want ErrSinkUnreachable", err)
	}
}

func TestPushToSink_CommandTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	client, host := clientFor(t, srv)
	client.cfg.CommandTimeout = 50 * time.Millisecond

	start := time.Now()
	err := client.PushToSink(context.Background(), host, device.LightState{Brightness: 100})
	if !errors.Is(err, ErrSinkUnreachable) {
		t.Fatalf("PushToSink() error = %v, want ErrSinkUnreachable", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("command timeout was not applied")
	}
}

// countingSink answers info and state requests and counts accepted TCP connections.
func countingSink(t *testing.T) (*httptest.Server, func() int) {
	t.Helper()
	var mu sync.Mutex
	conns := 0

	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/json/info" {
			fmt.Fprint(w, `{"brand":"Hyperspace"}`)
			return
		}
		fmt.Fprint(w, `{"success":true}`)
	}))
	srv.Config.ConnState = func(_ net.Conn, state http.ConnState) {
		if state == http.StateNew {
			mu.Lock()
			conns++
			mu.Unlock()
		}
	}
	srv.Start()
	t.Cleanup(srv.Close)

	return srv, func() int {
		mu.Lock()
		defer mu.Unlock()
		return conns
	}
}

func TestClient_NoPersistentConnections(t *testing.T) {
	tests := []struct {
		name     string
		injected bool
	}{
		{"default client", false},
		{"injected keep-alive client", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, conns := countingSink(t)
			client, host := clientFor(t, srv)
			if !tt.injected {
				client = NewClient(client.Config(), nil)
			}
			ctx := context.Background()

			for i := 0; i < 3; i++ {
				if err := client.PushToSink(ctx, host, device.LightState{Red: i, Brightness: 100}); err != nil {
					t.Fatalf("PushToSink() error = %v", err)
				}
			}
			if _, err := client.Identify(ctx, host); err != nil {
				t.Fatalf("Identify() error = %v", err)
			}

			// StateNew fires before the request is served, so the count is final here.
			if n := conns(); n != 4 {
				t.Errorf("new connections = %d, want 4 (one per call)", n)
			}
		})
	}
}
