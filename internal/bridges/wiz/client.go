package wiz

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"
)

// Protocol defaults.
const (
	// DefaultPort is the UDP port WiZ lamps listen on.
	DefaultPort = 38899

	// DefaultDiscoveryTimeout is how long discovery listens for replies.
	DefaultDiscoveryTimeout = 3 * time.Second

	// DefaultPollTimeout is how long a poll waits for its reply.
	DefaultPollTimeout = 2 * time.Second

	// readBufferSize is large enough for a full getSystemConfig reply.
	readBufferSize = 4096
)

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Config holds the WiZ client settings. Zero values select the defaults.
type Config struct {
	Port             int
	DiscoveryTimeout time.Duration
	PollTimeout      time.Duration
}

// Client discovers and polls WiZ lamps.
//
// The client holds no sockets; every call opens and closes its own.
//
// Thread Safety: All methods are safe for concurrent use.
type Client struct {
	cfg Config

	logger   Logger
	loggerMu sync.RWMutex
}

// NewClient creates a client, filling unset config fields with defaults.
func NewClient(cfg Config) *Client {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.DiscoveryTimeout <= 0 {
		cfg.DiscoveryTimeout = DefaultDiscoveryTimeout
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultPollTimeout
	}
	return &Client{cfg: cfg}
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

func (c *Client) logError(msg string, keysAndValues ...any) {
	if logger := c.getLogger(); logger != nil {
		logger.Error(msg, keysAndValues...)
	}
}

// deadlineFor returns now+timeout, or the context deadline if it is earlier.
func deadlineFor(ctx context.Context, timeout time.Duration) time.Time {
	deadline := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	return deadline
}

// isTimeout reports whether err is a network timeout.
func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
