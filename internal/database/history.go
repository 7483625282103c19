package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/wdcrawl/internal/model"
)

// ErrJobNotFound is returned when a job record is not in the history.
var ErrJobNotFound = errors.New("job not found in history")

// HistoryDB provides SQLite-based storage for crawl job history.
// It manages connection pooling and provides methods for CRUD operations.
//
// Design decision: We use a single database file for all jobs rather
// than relying only on per-job metadata side-files. The side-file is the
// authoritative record next to its artifacts; the database exists so
// "list my past crawls" does not require walking the artifact tree.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HistoryDB in the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, "wdcrawl.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite connection string: mode=rw prevents creating new
	// files, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; a single pooled connection avoids
	// writer contention entirely.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close() //nolint:errcheck // Best effort cleanup
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close() //nolint:errcheck // Best effort cleanup
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables() error {
	schema := `
	-- Jobs store one row per crawl job, with the full record as JSON
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		classes TEXT NOT NULL,
		radius INTEGER NOT NULL,
		triple_count INTEGER NOT NULL DEFAULT 0,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		output_dir TEXT NOT NULL,
		record_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
	CREATE INDEX IF NOT EXISTS idx_jobs_started ON jobs(started_at);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveJob inserts or replaces a job record.
// Uses UPSERT so saving at job start and again at job end is one API.
func (hdb *HistoryDB) SaveJob(ctx context.Context, rec *model.JobRecord) error {
	recordJSON, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to serialize job record: %w", err)
	}
	classesJSON, err := json.Marshal(model.EntityIDStrings(rec.Config.TargetClasses))
	if err != nil {
		return fmt.Errorf("failed to serialize class list: %w", err)
	}

	query := `
	INSERT INTO jobs (id, status, classes, radius, triple_count, started_at, finished_at, output_dir, record_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		status = excluded.status,
		triple_count = excluded.triple_count,
		finished_at = excluded.finished_at,
		record_json = excluded.record_json
	`

	var finishedAt any
	if !rec.FinishedAt.IsZero() {
		finishedAt = rec.FinishedAt.UTC().Format(time.RFC3339Nano)
	}

	_, err = hdb.db.ExecContext(ctx, query,
		rec.ID,
		rec.Status.String(),
		string(classesJSON),
		rec.Config.Radius,
		rec.TripleCount,
		rec.StartedAt.UTC().Format(time.RFC3339Nano),
		finishedAt,
		rec.OutputDir,
		string(recordJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save job record: %w", err)
	}

	return nil
}

// GetJob retrieves a job record by identifier.
func (hdb *HistoryDB) GetJob(ctx context.Context, id string) (*model.JobRecord, error) {
	query := `SELECT record_json FROM jobs WHERE id = ?`

	var recordJSON string
	err := hdb.db.QueryRowContext(ctx, query, id).Scan(&recordJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job record: %w", err)
	}

	var rec model.JobRecord
	if err := json.Unmarshal([]byte(recordJSON), &rec); err != nil {
		return nil, fmt.Errorf("failed to parse job record: %w", err)
	}

	return &rec, nil
}

// ListJobs returns all job records, most recent first.
func (hdb *HistoryDB) ListJobs(ctx context.Context) ([]*model.JobRecord, error) {
	query := `SELECT record_json FROM jobs ORDER BY started_at DESC`

	rows, err := hdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Best effort cleanup

	var records []*model.JobRecord
	for rows.Next() {
		var recordJSON string
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, fmt.Errorf("failed to scan job record: %w", err)
		}

		var rec model.JobRecord
		if err := json.Unmarshal([]byte(recordJSON), &rec); err != nil {
			continue // Skip malformed records
		}
		records = append(records, &rec)
	}

	return records, rows.Err()
}

// ListJobsByStatus returns job records with the given status, most
// recent first.
func (hdb *HistoryDB) ListJobsByStatus(ctx context.Context, status model.JobStatus) ([]*model.JobRecord, error) {
	query := `SELECT record_json FROM jobs WHERE status = ? ORDER BY started_at DESC`

	rows, err := hdb.db.QueryContext(ctx, query, status.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Best effort cleanup

	var records []*model.JobRecord
	for rows.Next() {
		var recordJSON string
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, fmt.Errorf("failed to scan job record: %w", err)
		}

		var rec model.JobRecord
		if err := json.Unmarshal([]byte(recordJSON), &rec); err != nil {
			continue // Skip malformed records
		}
		records = append(records, &rec)
	}

	return records, rows.Err()
}

// DeleteJob removes a job record from the history. Artifacts on disk
// are not touched.
func (hdb *HistoryDB) DeleteJob(ctx context.Context, id string) error {
	result, err := hdb.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete job record: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete job record: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return nil
}

// Purge removes all job records from the history.
func (hdb *HistoryDB) Purge(ctx context.Context) (int64, error) {
	result, err := hdb.db.ExecContext(ctx, `DELETE FROM jobs`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge history: %w", err)
	}
	return result.RowsAffected()
}
