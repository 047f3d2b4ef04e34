package influxdb

import (
	"context"
	"fmt"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/nerrad567/lightsync/internal/infrastructure/config"
)

const (
	// connectTimeout bounds the initial ping when ctx has no earlier deadline.
	connectTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second

	defaultBatchSize     = 100
	defaultFlushInterval = 10 // seconds
)

// Client records forwarded mirror states in an InfluxDB v2 bucket.
//
// Writes are batched and non-blocking; failures surface through the
// SetOnError callback.
//
// Thread Safety: All methods are safe for concurrent use.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	cfg      config.InfluxDBConfig

	mu        sync.RWMutex
	connected bool
	onError   func(err error)
}

// writeOptions maps the configured batching onto client options.
// Zero or negative values select the defaults.
func writeOptions(cfg config.InfluxDBConfig) *influxdb2.Options {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	flush := cfg.FlushInterval
	if flush <= 0 {
		flush = defaultFlushInterval
	}
	// #nosec G115 -- both values are positive here
	return influxdb2.DefaultOptions().
		SetBatchSize(uint(batch)).
		SetFlushInterval(uint(time.Duration(flush) * time.Second / time.Millisecond))
}

// Connect pings the server and prepares the batched write API.
//
// Parameters:
//   - ctx: Bounds the initial ping together with a 10 second timeout
//   - cfg: InfluxDB section of the configuration
//
// Returns:
//   - *Client: Ready for writes
//   - error: ErrDisabled when the section is disabled, ErrConnectionFailed
//     when the server does not answer the ping
func Connect(ctx context.Context, cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, writeOptions(cfg))

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	ok, err := client.Ping(pingCtx)
	if err != nil || !ok {
		client.Close()
		if err == nil {
			err = fmt.Errorf("server not ready")
		}
		return nil, fmt.Errorf("%w: pinging %s: %w", ErrConnectionFailed, cfg.URL, err)
	}

	c := &Client{
		client:    client,
		writeAPI:  client.WriteAPI(cfg.Org, cfg.Bucket),
		cfg:       cfg,
		connected: true,
	}
	go c.forwardErrors(c.writeAPI.Errors())

	return c, nil
}

// forwardErrors hands async write errors to the callback until the write
// API is closed.
func (c *Client) forwardErrors(errs <-chan error) {
	for err := range errs {
		c.mu.RLock()
		callback := c.onError
		c.mu.RUnlock()

		if callback != nil {
			callback(err)
		}
	}
}

// SetOnError sets the callback for async write failures.
func (c *Client) SetOnError(callback func(err error)) {
	c.mu.Lock()
	c.onError = callback
	c.mu.Unlock()
}

// IsConnected reports whether Connect succeeded and Close has not been called.
// Use HealthCheck for a live check.
func (c *Client) IsConnected() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	ok, err := c.client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("influxdb health check failed: %w", err)
	}
	if !ok {
		return fmt.Errorf("influxdb health check failed: server not ready")
	}
	return nil
}

// Flush sends buffered points now. It is a no-op after Close.
func (c *Client) Flush() {
	if c.IsConnected() {
		c.writeAPI.Flush()
	}
}

// Close flushes pending points and releases the client. Safe on a nil client.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}

	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()

	c.writeAPI.Flush()
	c.client.Close()
	return nil
}
