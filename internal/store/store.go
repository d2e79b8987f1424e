// Package store persists application tracking records in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/iwvelando/loan-leads/pkg/tracking"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

var (
	// ErrNotFound is returned when no record exists for a reference number.
	ErrNotFound = errors.New("application not found")
	// ErrExists is returned when creating a record whose reference number is
	// already taken.
	ErrExists = errors.New("application already exists")
)

const schema = `
CREATE TABLE IF NOT EXISTS applications (
	uuid           TEXT PRIMARY KEY,
	current_status TEXT NOT NULL,
	submitted_at   TEXT NOT NULL,
	last_updated   TEXT NOT NULL,
	metadata       TEXT
);

CREATE TABLE IF NOT EXISTS status_transitions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	uuid        TEXT NOT NULL REFERENCES applications(uuid) ON DELETE CASCADE,
	from_status TEXT,
	to_status   TEXT NOT NULL,
	occurred_at TEXT NOT NULL,
	updated_by  TEXT NOT NULL DEFAULT '',
	notes       TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_status_transitions_uuid ON status_transitions(uuid, id);
`

// Store is a SQLite-backed tracking record repository.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (creating if needed) the database at path and applies the
// schema. Use MemoryPath for a throwaway database.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dsn := MemoryPath
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every connection to :memory: is a separate database, and SQLite
	// serializes writers anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	logger.Debug("opened tracking store",
		zap.String("op", "store.Open"),
		zap.String("path", path),
	)
	return &Store{db: db, logger: logger}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create inserts a new record together with its history.
func (s *Store) Create(ctx context.Context, record *tracking.ApplicationTracking) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM applications WHERE uuid = ?`, record.UUID).Scan(&exists)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s", ErrExists, record.UUID)
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("failed to check application %s: %w", record.UUID, err)
	}

	metadata, err := encodeMetadata(record.Metadata)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO applications (uuid, current_status, submitted_at, last_updated, metadata) VALUES (?, ?, ?, ?, ?)`,
		record.UUID, string(record.CurrentStatus), formatTime(record.SubmittedAt), formatTime(record.LastUpdated), metadata,
	); err != nil {
		return fmt.Errorf("failed to insert application %s: %w", record.UUID, err)
	}

	for _, t := range record.StatusHistory {
		if err := insertTransition(ctx, tx, record.UUID, t); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit application %s: %w", record.UUID, err)
	}
	s.logger.Info("stored application",
		zap.String("op", "store.Create"),
		zap.String("uuid", record.UUID),
		zap.String("status", string(record.CurrentStatus)),
	)
	return nil
}

// Get loads the record for uuid or returns ErrNotFound.
func (s *Store) Get(ctx context.Context, uuid string) (*tracking.ApplicationTracking, error) {
	return get(ctx, s.db, uuid)
}

// Transition moves the record for uuid to a new status. It returns
// tracking.ErrInvalidTransition (wrapped) when the lifecycle forbids the
// move and ErrNotFound for an unknown reference.
func (s *Store) Transition(ctx context.Context, uuid string, to tracking.Status, at time.Time, updatedBy, notes string) (*tracking.ApplicationTracking, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	record, err := get(ctx, tx, uuid)
	if err != nil {
		return nil, err
	}
	if err := record.Apply(to, at, updatedBy, notes); err != nil {
		return nil, err
	}

	last := record.StatusHistory[len(record.StatusHistory)-1]
	if err := insertTransition(ctx, tx, uuid, last); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE applications SET current_status = ?, last_updated = ? WHERE uuid = ?`,
		string(record.CurrentStatus), formatTime(record.LastUpdated), uuid,
	); err != nil {
		return nil, fmt.Errorf("failed to update application %s: %w", uuid, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transition for %s: %w", uuid, err)
	}
	s.logger.Info("application status changed",
		zap.String("op", "store.Transition"),
		zap.String("uuid", uuid),
		zap.String("from", string(last.FromStatus())),
		zap.String("to", string(to)),
	)
	return record, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func get(ctx context.Context, q querier, uuid string) (*tracking.ApplicationTracking, error) {
	var (
		record                    tracking.ApplicationTracking
		status, submitted, update string
		metadata                  sql.NullString
	)
	err := q.QueryRowContext(ctx,
		`SELECT uuid, current_status, submitted_at, last_updated, metadata FROM applications WHERE uuid = ?`, uuid,
	).Scan(&record.UUID, &status, &submitted, &update, &metadata)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, uuid)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load application %s: %w", uuid, err)
	}

	record.CurrentStatus = tracking.Status(status)
	if record.SubmittedAt, err = parseTime(submitted); err != nil {
		return nil, err
	}
	if record.LastUpdated, err = parseTime(update); err != nil {
		return nil, err
	}
	if metadata.Valid && metadata.String != "" {
		record.Metadata = &tracking.Metadata{}
		if err := json.Unmarshal([]byte(metadata.String), record.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata of %s: %w", uuid, err)
		}
	}

	rows, err := q.QueryContext(ctx,
		`SELECT from_status, to_status, occurred_at, updated_by, notes FROM status_transitions WHERE uuid = ? ORDER BY id`, uuid,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load history of %s: %w", uuid, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			t        tracking.StatusTransition
			from     sql.NullString
			to, when string
		)
		if err := rows.Scan(&from, &to, &when, &t.UpdatedBy, &t.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan history of %s: %w", uuid, err)
		}
		if from.Valid {
			s := tracking.Status(from.String)
			t.From = &s
		}
		t.To = tracking.Status(to)
		if t.Timestamp, err = parseTime(when); err != nil {
			return nil, err
		}
		record.StatusHistory = append(record.StatusHistory, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history of %s: %w", uuid, err)
	}

	return &record, nil
}

func insertTransition(ctx context.Context, tx *sql.Tx, uuid string, t tracking.StatusTransition) error {
	var from sql.NullString
	if t.From != nil {
		from = sql.NullString{String: string(*t.From), Valid: true}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO status_transitions (uuid, from_status, to_status, occurred_at, updated_by, notes) VALUES (?, ?, ?, ?, ?, ?)`,
		uuid, from, string(t.To), formatTime(t.Timestamp), t.UpdatedBy, t.Notes,
	); err != nil {
		return fmt.Errorf("failed to insert transition for %s: %w", uuid, err)
	}
	return nil
}

func encodeMetadata(m *tracking.Metadata) (sql.NullString, error) {
	if m == nil {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode metadata: %w", err)
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored timestamp %q: %w", value, err)
	}
	return t, nil
}
