package mirror

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nerrad567/lightsync/internal/device"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200

	// historyTimeFormat is fixed width so created_at sorts as text.
	historyTimeFormat = "2006-01-02T15:04:05.000000000Z"
)

// HistoryEntry is one row of the forward journal.
type HistoryEntry struct {
	ID             int64             `json:"id"`
	RunID          string            `json:"run_id"`
	Source         string            `json:"source"`
	Sink           string            `json:"sink"`
	State          device.LightState `json:"state"`
	SinkBrightness int               `json:"sink_brightness"`
	CreatedAt      time.Time         `json:"created_at"`
}

// HistoryRepository reads and writes the forward journal.
type HistoryRepository interface {
	RecordForward(ctx context.Context, event ForwardEvent) error
	GetHistory(ctx context.Context, source string, limit int) ([]HistoryEntry, error)
	PruneHistory(ctx context.Context, olderThan time.Duration) (int64, error)
}

// SQLiteHistoryRepository implements HistoryRepository on the sync_history table.
// It also satisfies Observer so it can be handed straight to a Syncer.
type SQLiteHistoryRepository struct {
	db *sql.DB
}

// NewSQLiteHistoryRepository creates a repository on an open, migrated database.
func NewSQLiteHistoryRepository(db *sql.DB) *SQLiteHistoryRepository {
	return &SQLiteHistoryRepository{db: db}
}

// OnForward records event.
func (r *SQLiteHistoryRepository) OnForward(ctx context.Context, event ForwardEvent) error {
	return r.RecordForward(ctx, event)
}

// RecordForward inserts one journal row.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - event: The accepted push
//
// Returns:
//   - error: nil on success, otherwise the underlying database error
func (r *SQLiteHistoryRepository) RecordForward(ctx context.Context, event ForwardEvent) error {
	if event.Source == "" {
		return fmt.Errorf("source is required")
	}
	createdAt := event.Timestamp
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sync_history
		 (run_id, source, sink, r, g, b, brightness, sink_brightness, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.RunID,
		event.Source,
		event.Sink,
		event.State.Red,
		event.State.Green,
		event.State.Blue,
		event.State.Brightness,
		event.SinkBrightness,
		createdAt.UTC().Format(historyTimeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting sync history: %w", err)
	}
	return nil
}

// GetHistory returns the most recent journal rows of a source, newest first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - source: Lamp address
//   - limit: Maximum entries to return (default 50, max 200)
//
// Returns:
//   - []HistoryEntry: Rows ordered by created_at DESC
//   - error: nil on success, otherwise the underlying query error
func (r *SQLiteHistoryRepository) GetHistory(ctx context.Context, source string, limit int) ([]HistoryEntry, error) {
	if source == "" {
		return nil, fmt.Errorf("source is required")
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, run_id, source, sink, r, g, b, brightness, sink_brightness, created_at
		 FROM sync_history
		 WHERE source = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		source,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying sync history: %w", err)
	}
	defer rows.Close()

	entries := make([]HistoryEntry, 0, limit)
	for rows.Next() {
		var e HistoryEntry
		var createdAt string
		if err := rows.Scan(
			&e.ID, &e.RunID, &e.Source, &e.Sink,
			&e.State.Red, &e.State.Green, &e.State.Blue, &e.State.Brightness,
			&e.SinkBrightness, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scanning sync history: %w", err)
		}

		e.CreatedAt, err = parseHistoryTimestamp(createdAt)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sync history: %w", err)
	}
	return entries, nil
}

// PruneHistory deletes rows older than olderThan and returns how many went.
func (r *SQLiteHistoryRepository) PruneHistory(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(historyTimeFormat)
	result, err := r.db.ExecContext(ctx, "DELETE FROM sync_history WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting sync history: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}

// parseHistoryTimestamp accepts both the RFC 3339 values written by
// RecordForward and the column default.
func parseHistoryTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("created_at is empty")
	}
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing created_at: %w", err)
	}
	return ts, nil
}
