package hypercube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Defaults for a stock HyperCube.
const (
	// DefaultPort is the HTTP port of the cube's JSON API.
	DefaultPort = 80

	// DefaultBrand is the brand string a HyperCube reports in /json/info.
	DefaultBrand = "Hyperspace"

	// DefaultProbeTimeout bounds each identification request during discovery.
	DefaultProbeTimeout = time.Second

	// DefaultCommandTimeout bounds each state command.
	DefaultCommandTimeout = 5 * time.Second

	// DefaultSegmentStop is the LED count of the cube's single segment.
	DefaultSegmentStop = 88

	// DefaultEffect is the effect id the cube is switched to when mirroring.
	DefaultEffect = 103

	// DefaultPalette is the palette id sent with every command.
	DefaultPalette = 0

	// maxBodySize caps how much of a response body is read.
	maxBodySize = 64 * 1024
)

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Config holds the sink client settings.
type Config struct {
	// Port is the HTTP port of the JSON API.
	Port int

	// Brand is the identification string matched against /json/info.
	Brand string

	// ProbeTimeout bounds each /json/info request.
	ProbeTimeout time.Duration

	// CommandTimeout bounds each /json/state request.
	CommandTimeout time.Duration

	// SegmentStop, Effect and Palette fill the segment of every command.
	SegmentStop int
	Effect      int
	Palette     int
}

// DefaultConfig returns the settings for a stock HyperCube.
func DefaultConfig() Config {
	return Config{
		Port:           DefaultPort,
		Brand:          DefaultBrand,
		ProbeTimeout:   DefaultProbeTimeout,
		CommandTimeout: DefaultCommandTimeout,
		SegmentStop:    DefaultSegmentStop,
		Effect:         DefaultEffect,
		Palette:        DefaultPalette,
	}
}

// Info is the subset of /json/info used to identify a device.
type Info struct {
	Brand   string `json:"brand"`
	Product string `json:"product"`
	Name    string `json:"name"`
	Version string `json:"ver"`
	MAC     string `json:"mac"`
}

// Client identifies and commands HyperCube sinks.
//
// Thread Safety: All methods are safe for concurrent use.
type Client struct {
	cfg  Config
	http *http.Client

	logger   Logger
	loggerMu sync.RWMutex
}

// NewClient creates a sink client. Zero port, brand, timeouts and segment
// length are replaced with defaults; Effect and Palette are used as given.
// If httpClient is nil a dedicated client without keep-alives is created.
// Every request asks for its connection to be closed afterwards.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Brand == "" {
		cfg.Brand = DefaultBrand
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = DefaultCommandTimeout
	}
	if cfg.SegmentStop <= 0 {
		cfg.SegmentStop = DefaultSegmentStop
	}
	if httpClient == nil {
		httpClient = &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	}
	return &Client{cfg: cfg, http: httpClient}
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// SetLogger sets the logger for the client.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}

func (c *Client) logDebug(msg string, keysAndValues ...any) {
	if logger := c.getLogger(); logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}

func (c *Client) logInfo(msg string, keysAndValues ...any) {
	if logger := c.getLogger(); logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

// endpoint builds the URL of an API path on addr.
func (c *Client) endpoint(addr, path string) string {
	return "http://" + net.JoinHostPort(addr, strconv.Itoa(c.cfg.Port)) + path
}

// Identify fetches /json/info from addr.
//
// Returns:
//   - Info: The device's identification block
//   - error: ErrSinkUnreachable on transport failure, ErrNotHyperCube if the
//     device answers with a non-200 status, undecodable JSON or another brand
func (c *Client) Identify(ctx context.Context, addr string) (Info, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(addr, "/json/info"), nil)
	if err != nil {
		return Info{}, fmt.Errorf("building info request for %s: %w", addr, err)
	}
	req.Close = true

	resp, err := c.http.Do(req)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %s: %w", ErrSinkUnreachable, addr, err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return Info{}, fmt.Errorf("%w: %s answered status %d", ErrNotHyperCube, addr, resp.StatusCode)
	}

	var info Info
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&info); err != nil {
		return Info{}, fmt.Errorf("%w: %s: decoding info: %w", ErrNotHyperCube, addr, err)
	}
	if info.Brand != c.cfg.Brand {
		return info, fmt.Errorf("%w: %s reports brand %q", ErrNotHyperCube, addr, info.Brand)
	}
	return info, nil
}

// drainAndClose discards the rest of a body and closes it.
func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxBodySize)) //nolint:errcheck // Best-effort drain
	_ = body.Close()                                               //nolint:errcheck // Read-only body
}
