package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"netcensus/internal/domain"
	"netcensus/internal/repository"

	_ "modernc.org/sqlite"
)

var _ repository.Repository = (*Repository)(nil)

// Repository implements repository.Repository using SQLite
type Repository struct {
	db *sql.DB
}

// New creates a new SQLite repository
func New(dbPath string) (*Repository, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		dsn = "file:" + dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer; also keeps a :memory: database on a single connection.
	db.SetMaxOpenConns(1)

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	PRAGMA foreign_keys = ON;

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		input_digest TEXT NOT NULL DEFAULT '',
		snapshot_count INTEGER NOT NULL DEFAULT 0,
		total_devices INTEGER NOT NULL DEFAULT 0,
		rejected JSON,
		document JSON NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS devices (
		run_id TEXT NOT NULL,
		id TEXT NOT NULL,
		primary_ip TEXT,
		sys_name TEXT,
		vendor TEXT,
		device_type TEXT,
		data JSON NOT NULL,
		PRIMARY KEY (run_id, id),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_runs_finished ON runs(finished_at);
	CREATE INDEX IF NOT EXISTS idx_devices_vendor ON devices(run_id, vendor);
	CREATE INDEX IF NOT EXISTS idx_devices_type ON devices(run_id, device_type);
	`

	_, err := r.db.Exec(schema)
	return err
}

const runColumns = `id, started_at, finished_at, input_digest, snapshot_count, total_devices, rejected`

const latestRunID = `(SELECT id FROM runs ORDER BY finished_at DESC, rowid DESC LIMIT 1)`

// SaveRun stores a run, its document and its device index in one transaction
func (r *Repository) SaveRun(ctx context.Context, run *domain.Run) error {
	if run == nil || run.Inventory == nil {
		return errors.New("run has no inventory")
	}
	if run.ID == "" {
		return errors.New("run has no id")
	}

	args, err := runInsertArgs(run)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (`+runColumns+`, document)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, args...); err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}

	deviceStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO devices (run_id, id, primary_ip, sys_name, vendor, device_type, data)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare device statement: %w", err)
	}
	defer deviceStmt.Close()

	for _, id := range run.Inventory.DeviceIDs() {
		devArgs, err := deviceInsertArgs(run.ID, id, run.Inventory.Devices[id])
		if err != nil {
			return err
		}
		if _, err := deviceStmt.ExecContext(ctx, devArgs...); err != nil {
			return fmt.Errorf("failed to insert device %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LatestRun returns the most recently finished run with its document
func (r *Repository) LatestRun(ctx context.Context) (*domain.Run, error) {
	return r.queryRun(ctx, `
		SELECT `+runColumns+`, document FROM runs
		ORDER BY finished_at DESC, rowid DESC LIMIT 1
	`)
}

// GetRun retrieves a single run by ID
func (r *Repository) GetRun(ctx context.Context, id string) (*domain.Run, error) {
	return r.queryRun(ctx, `
		SELECT `+runColumns+`, document FROM runs WHERE id = ?
	`, id)
}

func (r *Repository) queryRun(ctx context.Context, query string, args ...interface{}) (*domain.Run, error) {
	var row runRow
	err := r.db.QueryRowContext(ctx, query, args...).Scan(row.scanArgs(true)...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	return row.toDomain()
}

// ListRuns returns run summaries, newest first. A limit <= 0 returns all runs.
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]*domain.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY finished_at DESC, rowid DESC`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []*domain.Run{}
	for rows.Next() {
		var row runRow
		if err := rows.Scan(row.scanArgs(false)...); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// ListDevices returns devices of the latest run ordered by id.
// Vendor and type filters compare case-insensitively.
func (r *Repository) ListDevices(ctx context.Context, filter repository.DeviceFilter) ([]*domain.DeviceRecord, error) {
	var (
		where = []string{`run_id = ` + latestRunID}
		args  []interface{}
	)
	if filter.Vendor != "" {
		where = append(where, `vendor = ? COLLATE NOCASE`)
		args = append(args, filter.Vendor)
	}
	if filter.DeviceType != "" {
		where = append(where, `device_type = ? COLLATE NOCASE`)
		args = append(args, filter.DeviceType)
	}

	query := `SELECT id, data FROM devices WHERE ` + strings.Join(where, ` AND `) + ` ORDER BY id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	defer rows.Close()

	devices := []*domain.DeviceRecord{}
	for rows.Next() {
		var (
			id   string
			data []byte
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		dev, err := unmarshalDevice(id, data)
		if err != nil {
			return nil, err
		}
		devices = append(devices, dev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating devices: %w", err)
	}
	return devices, nil
}

// GetDevice retrieves a device of the latest run by ID
func (r *Repository) GetDevice(ctx context.Context, id string) (*domain.DeviceRecord, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT data FROM devices WHERE run_id = `+latestRunID+` AND id = ?
	`, id).Scan(&data)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query device: %w", err)
	}
	return unmarshalDevice(id, data)
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}
