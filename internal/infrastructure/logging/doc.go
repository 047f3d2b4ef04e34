// Package logging provides structured logging for lightsync.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the entire application.
//
// # Features
//
//   - JSON or text output
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Persistent log file teed with the console stream
//   - Thread-safe for concurrent use
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "text"     # json, text
//	  output: "stdout"   # stdout, stderr, discard
//	  file:
//	    path: "./data/lightsync.log"
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	defer logger.Close()
//	logger.Info("sink discovered", "address", addr)
//	logger.Error("push failed", "sink", addr, "error", err)
//
// Per-call device failures (probe misses, poll timeouts) are logged at
// debug and warn so the console stays readable while the file keeps them.
package logging
