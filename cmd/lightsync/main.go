// lightsync mirrors the colour of WiZ lamps onto a HyperCube.
//
// It discovers the lamps with a UDP broadcast, finds the HyperCube by
// scanning the local /24, then polls the selected lamps and forwards every
// colour change. Optional integrations record what was forwarded:
//   - SQLite sync history
//   - MQTT retained state topics
//   - InfluxDB metrics
//   - a local status API with a WebSocket event stream
//
// Configuration is read from configs/config.yaml or $LIGHTSYNC_CONFIG.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/lightsync/internal/api"
	"github.com/nerrad567/lightsync/internal/bridges/hypercube"
	"github.com/nerrad567/lightsync/internal/bridges/wiz"
	"github.com/nerrad567/lightsync/internal/infrastructure/config"
	"github.com/nerrad567/lightsync/internal/infrastructure/database"
	"github.com/nerrad567/lightsync/internal/infrastructure/influxdb"
	"github.com/nerrad567/lightsync/internal/infrastructure/logging"
	"github.com/nerrad567/lightsync/internal/infrastructure/mqtt"
	"github.com/nerrad567/lightsync/internal/mirror"
	"github.com/nerrad567/lightsync/internal/network"
	"github.com/nerrad567/lightsync/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	// defaultConfigPath is used when LIGHTSYNC_CONFIG is unset.
	defaultConfigPath = "configs/config.yaml"

	// loopMetricsInterval is how often loop counters are written to InfluxDB.
	loopMetricsInterval = time.Minute
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// run is the actual application logic, separated from main for testability.
//
// Cancellation at any point is a clean shutdown and returns nil. Missing
// sink, missing sources and an invalid selection are returned as errors.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting lightsync",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	defer log.Close()
	log.Info("configuration loaded", "path", configPath, "mode", cfg.Sync.Mode)

	localAddr, err := localAddress(cfg.Network)
	if err != nil {
		return fmt.Errorf("resolving local address: %w", err)
	}
	broadcast, err := network.DeriveBroadcast(localAddr)
	if err != nil {
		return fmt.Errorf("deriving broadcast address: %w", err)
	}
	log.Info("local network resolved", "address", localAddr, "broadcast", broadcast)

	wizClient := wiz.NewClient(wiz.Config{
		Port:             cfg.WiZ.Port,
		DiscoveryTimeout: cfg.WiZ.DiscoveryTimeout,
		PollTimeout:      cfg.WiZ.PollTimeout,
	})
	wizClient.SetLogger(log)

	sources, err := wizClient.DiscoverSources(ctx, broadcast)
	if ctx.Err() != nil {
		log.Info("shutdown requested during source discovery")
		return nil
	}
	if err != nil {
		return fmt.Errorf("discovering sources: %w", err)
	}
	for i, src := range sources {
		log.Info("source discovered", "index", i+1, "address", src.Address, "mac", src.MAC)
	}

	cubeClient := hypercube.NewClient(hypercube.Config{
		Port:           cfg.HyperCube.Port,
		Brand:          cfg.HyperCube.Brand,
		ProbeTimeout:   cfg.HyperCube.ProbeTimeout,
		CommandTimeout: cfg.HyperCube.CommandTimeout,
		SegmentStop:    cfg.HyperCube.SegmentStop,
		Effect:         cfg.HyperCube.Effect,
		Palette:        cfg.HyperCube.Palette,
	}, nil)
	cubeClient.SetLogger(log)

	sink, err := findSink(ctx, cfg.HyperCube, localAddr, cubeClient, log)
	if ctx.Err() != nil {
		log.Info("shutdown requested during sink discovery")
		return nil
	}
	if err != nil {
		return err
	}

	selection := mirror.Selection{Mode: cfg.Sync.Mode, Index: cfg.Sync.SourceIndex}
	selected, err := selection.Apply(wiz.Addresses(sources))
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	log = log.With("run_id", runID)

	var observers []mirror.Observer
	checks := make(map[string]api.HealthChecker)

	var history *mirror.SQLiteHistoryRepository
	if cfg.Database.Enabled {
		db, dbErr := openDatabase(ctx, cfg.Database, log)
		if dbErr != nil {
			return dbErr
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()

		history = mirror.NewSQLiteHistoryRepository(db.DB)
		if cfg.Database.HistoryRetention > 0 {
			pruned, pruneErr := history.PruneHistory(ctx, cfg.Database.HistoryRetention)
			if pruneErr != nil {
				log.Warn("pruning sync history failed", "error", pruneErr)
			} else if pruned > 0 {
				log.Info("sync history pruned", "rows", pruned)
			}
		}
		observers = append(observers, history)
		checks["database"] = db
	}

	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := connectMQTT(cfg.MQTT, runID, sources, sink, log)
		if mqttErr != nil {
			return mqttErr
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		observers = append(observers, mirror.ObserverFunc(func(_ context.Context, event mirror.ForwardEvent) error {
			return mqttClient.PublishMirrorState(mqttState(event))
		}))
		checks["mqtt"] = mqttClient
	}

	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		observers = append(observers, mirror.ObserverFunc(func(_ context.Context, event mirror.ForwardEvent) error {
			influxClient.WriteMirrorState(influxState(event))
			return nil
		}))
		checks["influxdb"] = influxClient
	}

	var hub *api.Hub
	if cfg.API.Enabled {
		hub = api.NewHub(cfg.WebSocket, log)
		go hub.Run(ctx)
		observers = append(observers, hub)
	}

	syncer, err := mirror.NewSyncer(mirror.Options{
		Sources:        selected,
		Sink:           sink,
		Poller:         wizClient,
		Pusher:         cubeClient,
		Logger:         log,
		Observers:      observers,
		SingleInterval: cfg.Sync.SingleInterval,
		MultiInterval:  cfg.Sync.MultiInterval,
		RunID:          runID,
	})
	if err != nil {
		return fmt.Errorf("creating sync loop: %w", err)
	}

	if cfg.API.Enabled {
		deps := api.Deps{
			Config:      cfg.API,
			WS:          cfg.WebSocket,
			Logger:      log,
			Syncer:      syncer,
			Mode:        cfg.Sync.Mode,
			Version:     version,
			Checks:      checks,
			ExternalHub: hub,
		}
		if history != nil {
			deps.History = history
		}
		server, apiErr := api.New(deps)
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := server.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	if influxClient != nil {
		go writeLoopMetrics(ctx, influxClient, syncer, loopMetricsInterval)
	}

	log.Info("mirroring",
		"sink", sink,
		"sources", selected,
		"interval", syncer.Interval(),
	)
	if err := syncer.Run(ctx); err != nil {
		return fmt.Errorf("sync loop: %w", err)
	}

	log.Info("lightsync stopped", "pushes", syncer.Metrics().Pushes)
	return nil
}

// getConfigPath returns the configuration file path.
// It checks the LIGHTSYNC_CONFIG environment variable first.
func getConfigPath() string {
	if path := os.Getenv("LIGHTSYNC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// localAddress returns the configured local address or inspects the host
// interfaces for the first usable IPv4 address.
func localAddress(cfg config.NetworkConfig) (string, error) {
	if cfg.LocalAddress != "" {
		return cfg.LocalAddress, nil
	}
	return network.ResolveLocalAddress()
}

// findSink returns the configured HyperCube address or scans the local /24.
//
// A configured address is still identified; a failed identification is
// logged as a warning and the address is used anyway.
//
// Returns:
//   - string: Sink address
//   - error: mirror.ErrNoSink when the scan finds nothing
func findSink(ctx context.Context, cfg config.HyperCubeConfig, localAddr string, client *hypercube.Client, log *logging.Logger) (string, error) {
	if cfg.Address != "" {
		info, err := client.Identify(ctx, cfg.Address)
		if err != nil {
			log.Warn("configured sink did not identify as a HyperCube",
				"address", cfg.Address,
				"brand", info.Brand,
				"error", err,
			)
		} else {
			log.Info("configured sink identified", "address", cfg.Address, "name", info.Name, "version", info.Version)
		}
		return cfg.Address, nil
	}

	candidates, err := network.DeriveScanRange(localAddr)
	if err != nil {
		return "", fmt.Errorf("deriving scan range: %w", err)
	}

	log.Info("scanning for sink", "candidates", len(candidates))
	sink, found, err := client.DiscoverSink(ctx, candidates)
	if err != nil {
		return "", fmt.Errorf("discovering sink: %w", err)
	}
	if !found {
		return "", mirror.ErrNoSink
	}
	return sink, nil
}

// openDatabase opens the history database and applies the embedded migrations.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig, log *logging.Logger) (*database.DB, error) {
	db, err := database.Open(database.Config{
		Path:        cfg.Path,
		WALMode:     cfg.WALMode,
		BusyTimeout: cfg.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Migrate(ctx, migrations.FS); err != nil {
		db.Close() //nolint:errcheck // Already failing
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	log.Info("database ready", "path", cfg.Path)
	return db, nil
}

// connectMQTT connects to the broker and publishes the retained discovery
// topics, again on every reconnect.
func connectMQTT(cfg config.MQTTConfig, runID string, sources []wiz.Source, sink string, log *logging.Logger) (*mqtt.Client, error) {
	client, err := mqtt.Connect(cfg, runID)
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	client.SetLogger(log)

	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.Broker.Host, cfg.Broker.Port),
		"client_id", cfg.Broker.ClientID,
	)

	lamps := make([]mqtt.DiscoveredDevice, 0, len(sources))
	for _, src := range sources {
		lamps = append(lamps, mqtt.DiscoveredDevice{Address: src.Address, MAC: src.MAC})
	}
	cube := []mqtt.DiscoveredDevice{{Address: sink}}

	publish := func() {
		if err := client.PublishDiscovery(mqtt.ProtocolWiZ, lamps); err != nil {
			log.Warn("publishing source discovery failed", "error", err)
		}
		if err := client.PublishDiscovery(mqtt.ProtocolHyperCube, cube); err != nil {
			log.Warn("publishing sink discovery failed", "error", err)
		}
	}

	client.SetOnConnect(publish)
	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	publish()

	return client, nil
}

// mqttState converts a forward event to its MQTT payload.
func mqttState(event mirror.ForwardEvent) mqtt.MirrorState {
	return mqtt.MirrorState{
		RunID:          event.RunID,
		Source:         event.Source,
		Sink:           event.Sink,
		Red:            event.State.Red,
		Green:          event.State.Green,
		Blue:           event.State.Blue,
		Brightness:     event.State.Brightness,
		SinkBrightness: event.SinkBrightness,
		Timestamp:      event.Timestamp,
	}
}

// influxState converts a forward event to an InfluxDB point.
func influxState(event mirror.ForwardEvent) influxdb.MirrorState {
	return influxdb.MirrorState{
		Source:         event.Source,
		Sink:           event.Sink,
		Red:            event.State.Red,
		Green:          event.State.Green,
		Blue:           event.State.Blue,
		Brightness:     event.State.Brightness,
		SinkBrightness: event.SinkBrightness,
		Timestamp:      event.Timestamp,
	}
}

// metricsWriter is the part of *influxdb.Client used for loop counters.
type metricsWriter interface {
	WritePoint(measurement string, tags map[string]string, fields map[string]interface{})
}

// metricsSource is the part of *mirror.Syncer read for loop counters.
type metricsSource interface {
	RunID() string
	Metrics() mirror.Metrics
}

// writeLoopMetrics writes the loop counters every interval until ctx is done.
func writeLoopMetrics(ctx context.Context, w metricsWriter, src metricsSource, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.WritePoint("sync_loop", map[string]string{"run_id": src.RunID()}, loopFields(src.Metrics()))
		}
	}
}

// loopFields flattens loop counters into InfluxDB fields.
func loopFields(m mirror.Metrics) map[string]interface{} {
	return map[string]interface{}{
		"passes":         int64(m.Passes),
		"polls":          int64(m.Polls),
		"poll_failures":  int64(m.PollFailures),
		"poll_timeouts":  int64(m.PollTimeouts),
		"skipped_scenes": int64(m.SkippedScenes),
		"unchanged":      int64(m.Unchanged),
		"pushes":         int64(m.Pushes),
		"push_failures":  int64(m.PushFailures),
	}
}

// exitCode maps a run error to the process exit status: 2 when there is
// nothing to mirror (no sink, no sources, invalid selection), 1 otherwise.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, mirror.ErrNoSink),
		errors.Is(err, mirror.ErrNoSources),
		errors.Is(err, mirror.ErrInvalidSelection):
		return 2
	default:
		return 1
	}
}
