package mirror

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/lightsync/internal/bridges/wiz"
	"github.com/nerrad567/lightsync/internal/device"
)

// Pause between passes.
const (
	// DefaultSingleInterval is used when one source is mirrored.
	DefaultSingleInterval = 100 * time.Millisecond

	// DefaultMultiInterval is used when several sources are mirrored.
	DefaultMultiInterval = 700 * time.Millisecond
)

// Poller reads the current state of a source lamp.
// Implemented by *wiz.Client.
type Poller interface {
	PollSource(ctx context.Context, addr string) (device.LightState, error)
}

// Pusher sends a state to the sink.
// Implemented by *hypercube.Client.
type Pusher interface {
	PushToSink(ctx context.Context, sink string, state device.LightState) error
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Options configures a Syncer.
type Options struct {
	// Sources are the lamp addresses to mirror, polled in this order.
	Sources []string

	// Sink is the HyperCube address.
	Sink string

	Poller Poller
	Pusher Pusher

	// Logger is optional.
	Logger Logger

	// Observers are notified of every accepted push, in order.
	Observers []Observer

	// SingleInterval and MultiInterval override the pause between passes.
	SingleInterval time.Duration
	MultiInterval  time.Duration

	// RunID tags log lines and events of this session.
	RunID string
}

// Metrics are the loop counters since the Syncer was created.
type Metrics struct {
	Passes        uint64    `json:"passes"`
	Polls         uint64    `json:"polls"`
	PollFailures  uint64    `json:"poll_failures"`
	PollTimeouts  uint64    `json:"poll_timeouts"`
	SkippedScenes uint64    `json:"skipped_scenes"`
	Unchanged     uint64    `json:"unchanged"`
	Pushes        uint64    `json:"pushes"`
	PushFailures  uint64    `json:"push_failures"`
	LastPassAt    time.Time `json:"last_pass_at,omitzero"`
}

// Syncer mirrors source lamps onto the sink.
//
// Thread Safety: Run and SyncOnce must not be called concurrently with each
// other. Metrics, LastForwarded and the accessors are safe from any goroutine.
type Syncer struct {
	sources   []string
	sink      string
	poller    Poller
	pusher    Pusher
	observers []Observer
	interval  time.Duration
	runID     string
	cache     *StateCache

	logger   Logger
	loggerMu sync.RWMutex

	passes        atomic.Uint64
	polls         atomic.Uint64
	pollFailures  atomic.Uint64
	pollTimeouts  atomic.Uint64
	skippedScenes atomic.Uint64
	unchanged     atomic.Uint64
	pushes        atomic.Uint64
	pushFailures  atomic.Uint64
	lastPassAt    atomic.Int64
}

// NewSyncer validates opts and creates a Syncer with an empty cache.
//
// Returns:
//   - *Syncer: Ready to Run
//   - error: ErrNoSink, ErrNoSources, or a plain error for missing collaborators
func NewSyncer(opts Options) (*Syncer, error) {
	if opts.Sink == "" {
		return nil, ErrNoSink
	}
	if len(opts.Sources) == 0 {
		return nil, ErrNoSources
	}
	if opts.Poller == nil {
		return nil, fmt.Errorf("mirror: poller is required")
	}
	if opts.Pusher == nil {
		return nil, fmt.Errorf("mirror: pusher is required")
	}
	if opts.SingleInterval <= 0 {
		opts.SingleInterval = DefaultSingleInterval
	}
	if opts.MultiInterval <= 0 {
		opts.MultiInterval = DefaultMultiInterval
	}

	interval := opts.SingleInterval
	if len(opts.Sources) > 1 {
		interval = opts.MultiInterval
	}

	return &Syncer{
		sources:   append([]string(nil), opts.Sources...),
		sink:      opts.Sink,
		poller:    opts.Poller,
		pusher:    opts.Pusher,
		observers: append([]Observer(nil), opts.Observers...),
		interval:  interval,
		runID:     opts.RunID,
		cache:     NewStateCache(),
		logger:    opts.Logger,
	}, nil
}

// SetLogger sets the logger for the syncer.
func (s *Syncer) SetLogger(logger Logger) {
	s.loggerMu.Lock()
	s.logger = logger
	s.loggerMu.Unlock()
}

func (s *Syncer) getLogger() Logger {
	s.loggerMu.RLock()
	defer s.loggerMu.RUnlock()
	return s.logger
}

func (s *Syncer) logDebug(msg string, keysAndValues ...any) {
	if logger := s.getLogger(); logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}

func (s *Syncer) logInfo(msg string, keysAndValues ...any) {
	if logger := s.getLogger(); logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

func (s *Syncer) logWarn(msg string, keysAndValues ...any) {
	if logger := s.getLogger(); logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}

func (s *Syncer) logError(msg string, keysAndValues ...any) {
	if logger := s.getLogger(); logger != nil {
		logger.Error(msg, keysAndValues...)
	}
}

// Sources returns the mirrored source addresses.
func (s *Syncer) Sources() []string {
	return append([]string(nil), s.sources...)
}

// Sink returns the sink address.
func (s *Syncer) Sink() string {
	return s.sink
}

// RunID returns the session id.
func (s *Syncer) RunID() string {
	return s.runID
}

// Interval returns the pause between passes.
func (s *Syncer) Interval() time.Duration {
	return s.interval
}

// Run repeats SyncOnce, pausing Interval between passes, until ctx is done.
//
// Returns:
//   - error: Always nil; cancellation is the normal way to stop
func (s *Syncer) Run(ctx context.Context) error {
	s.logInfo("mirror loop started",
		"run_id", s.runID,
		"sink", s.sink,
		"sources", s.sources,
		"interval", s.interval,
	)

	for {
		s.SyncOnce(ctx)

		select {
		case <-ctx.Done():
			s.logInfo("mirror loop stopped", "run_id", s.runID, "passes", s.passes.Load())
			return nil
		case <-time.After(s.interval):
		}
	}
}

// SyncOnce runs one pass over every source in order.
// Per-source failures are logged and counted; they never end the pass early.
// A cancelled ctx stops the pass before the next source.
func (s *Syncer) SyncOnce(ctx context.Context) {
	defer func() {
		s.passes.Add(1)
		s.lastPassAt.Store(time.Now().UnixNano())
	}()

	for _, source := range s.sources {
		if ctx.Err() != nil {
			return
		}
		s.syncSource(ctx, source)
	}
}

func (s *Syncer) syncSource(ctx context.Context, source string) {
	s.polls.Add(1)
	state, err := s.poller.PollSource(ctx, source)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return
		case errors.Is(err, wiz.ErrTimeout):
			s.pollTimeouts.Add(1)
			s.logWarn("source did not answer", "source", source, "error", err)
		default:
			s.pollFailures.Add(1)
			s.logError("polling source failed", "source", source, "error", err)
		}
		return
	}

	if state.InScene() {
		s.skippedScenes.Add(1)
		s.logDebug("source is running a scene, not mirrored", "source", source, "scene_id", state.SceneID)
		return
	}

	if s.cache.Unchanged(source, state) {
		s.unchanged.Add(1)
		return
	}

	if err := s.pusher.PushToSink(ctx, s.sink, state); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.pushFailures.Add(1)
		s.logError("pushing to sink failed", "source", source, "sink", s.sink, "error", err)
		return
	}

	s.cache.Set(source, state)
	s.pushes.Add(1)
	s.logInfo("state mirrored",
		"source", source,
		"sink", s.sink,
		"rgb", state.RGB(),
		"dimming", state.Brightness,
		"bri", state.ScaledBrightness(),
	)

	s.notify(ctx, ForwardEvent{
		RunID:          s.runID,
		Source:         source,
		Sink:           s.sink,
		State:          state,
		SinkBrightness: state.ScaledBrightness(),
		Timestamp:      time.Now().UTC(),
	})
}

func (s *Syncer) notify(ctx context.Context, event ForwardEvent) {
	for _, obs := range s.observers {
		if err := obs.OnForward(ctx, event); err != nil {
			s.logWarn("forward observer failed", "source", event.Source, "error", err)
		}
	}
}

// Metrics returns a snapshot of the loop counters.
func (s *Syncer) Metrics() Metrics {
	m := Metrics{
		Passes:        s.passes.Load(),
		Polls:         s.polls.Load(),
		PollFailures:  s.pollFailures.Load(),
		PollTimeouts:  s.pollTimeouts.Load(),
		SkippedScenes: s.skippedScenes.Load(),
		Unchanged:     s.unchanged.Load(),
		Pushes:        s.pushes.Load(),
		PushFailures:  s.pushFailures.Load(),
	}
	if ns := s.lastPassAt.Load(); ns != 0 {
		m.LastPassAt = time.Unix(0, ns).UTC()
	}
	return m
}

// LastForwarded returns a copy of the last state forwarded per source.
func (s *Syncer) LastForwarded() map[string]device.LightState {
	return s.cache.Snapshot()
}
