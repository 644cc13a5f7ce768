// Package results holds the published, reconciled scan result set: one
// canonical store that persists snapshots locally and republishes them to
// subscribers (UI surface, agent-context bridge).
package results

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/KJWesthoff/ventiscan/internal/interfaces"
	"github.com/KJWesthoff/ventiscan/internal/model"
)

//go:embed schema.sql
var schemaFS embed.FS

// Namespace is the fixed key the current snapshot is persisted under.
const Namespace = "ventiscan:results:v1"

// Subscriber receives every published state. A nil state means the results
// were cleared. Callbacks run synchronously on the publishing goroutine
// and must not call back into the store.
type Subscriber func(state *model.ScanResultsState)

// Store holds the single current ScanResultsState. Construction leaves it
// empty; Hydrate is an explicit post-construction step so the externally
// visible initial value is deterministic regardless of what is on disk.
type Store struct {
	db     *sql.DB
	logger interfaces.Logger

	mu       sync.Mutex
	state    *model.ScanResultsState
	subs     []Subscriber
	hydrated bool
}

// OpenDatabase opens (creating if needed) the local SQLite database under
// storagePath and applies the schema.
func OpenDatabase(storagePath string) (*sql.DB, error) {
	if err := os.MkdirAll(storagePath, 0o755); err != nil {
		return nil, fmt.Errorf("ensure storage path %s: %w", storagePath, err)
	}
	db, err := sql.Open("sqlite", filepath.Join(storagePath, "ventiscan.db"))
	if err != nil {
		return nil, fmt.Errorf("open results database: %w", err)
	}
	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("read schema.sql: %w", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}

func NewStore(db *sql.DB, logger interfaces.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("results: db is nil")
	}
	return &Store{
		db:     db,
		logger: logger.With(interfaces.Field{Key: "component", Value: "results_store"}),
	}, nil
}

// Subscribe registers a callback for future publishes and clears.
func (s *Store) Subscribe(fn Subscriber) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

// Current returns the held state, or nil when empty.
func (s *Store) Current() *model.ScanResultsState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Publish replaces the current state, persists it and notifies
// subscribers. States violating the summary invariants are rejected.
func (s *Store) Publish(ctx context.Context, state *model.ScanResultsState) error {
	if state == nil {
		return fmt.Errorf("results: nil state; use Clear")
	}
	if !state.Valid() {
		return fmt.Errorf("results: state for scan %q violates summary invariants", state.ScanID)
	}

	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (namespace, payload, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(namespace) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		Namespace, string(payload), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("persist snapshot: %w", err)
	}

	s.mu.Lock()
	s.state = state
	subs := append([]Subscriber(nil), s.subs...)
	s.mu.Unlock()

	s.logger.Info("published results",
		interfaces.Field{Key: "scan_id", Value: state.ScanID},
		interfaces.Field{Key: "status", Value: state.Status},
		interfaces.Field{Key: "total", Value: state.Summary.Total})

	for _, fn := range subs {
		fn(state)
	}
	return nil
}

// Clear drops the current state and the persisted snapshot.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE namespace = ?`, Namespace); err != nil {
		return fmt.Errorf("remove snapshot: %w", err)
	}

	s.mu.Lock()
	s.state = nil
	subs := append([]Subscriber(nil), s.subs...)
	s.mu.Unlock()

	s.logger.Info("cleared results")
	for _, fn := range subs {
		fn(nil)
	}
	return nil
}

// Hydrate loads a persisted snapshot, if any. It runs once, after
// construction, so a server-rendered and client-rendered first read agree
// on the empty state. Corrupt or invalid rows behave as if nothing was
// persisted.
func (s *Store) Hydrate(ctx context.Context) error {
	s.mu.Lock()
	if s.hydrated {
		s.mu.Unlock()
		return nil
	}
	s.hydrated = true
	s.mu.Unlock()

	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM snapshots WHERE namespace = ?`, Namespace).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	var state model.ScanResultsState
	if err := json.Unmarshal([]byte(payload), &state); err != nil {
		s.logger.Warn("discarding unreadable persisted snapshot",
			interfaces.Field{Key: "error", Value: err.Error()})
		return nil
	}
	if !state.Valid() {
		s.logger.Warn("discarding invalid persisted snapshot",
			interfaces.Field{Key: "scan_id", Value: state.ScanID})
		return nil
	}

	s.mu.Lock()
	s.state = &state
	subs := append([]Subscriber(nil), s.subs...)
	s.mu.Unlock()

	s.logger.Info("hydrated persisted results",
		interfaces.Field{Key: "scan_id", Value: state.ScanID})
	for _, fn := range subs {
		fn(&state)
	}
	return nil
}

// RecordScan appends a launched scan to the local history index.
func (s *Store) RecordScan(ctx context.Context, scanID, targetURL, status string, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scan_history (id, scan_id, target_url, status, started_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(scan_id) DO UPDATE SET status = excluded.status`,
		uuid.New().String(), scanID, targetURL, status, startedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("record scan: %w", err)
	}
	return nil
}

// UpdateScanStatus moves a history row to its terminal status.
func (s *Store) UpdateScanStatus(ctx context.Context, scanID, status string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE scan_history SET status = ? WHERE scan_id = ?`, status, scanID)
	if err != nil {
		return fmt.Errorf("update scan status: %w", err)
	}
	return nil
}

// History lists locally launched scans, newest first.
func (s *Store) History(ctx context.Context, limit int) ([]model.ScanListEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT scan_id, target_url, status, started_at FROM scan_history
		 ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var out []model.ScanListEntry
	for rows.Next() {
		var e model.ScanListEntry
		var started string
		if err := rows.Scan(&e.ScanID, &e.TargetURL, &e.Status, &started); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, started); err == nil {
			e.StartedAt = t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
