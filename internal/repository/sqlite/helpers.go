package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"netcensus/internal/domain"
)

// ============================================================================
// Null Type Conversion Helpers
// ============================================================================

// nullToString safely converts sql.NullString to string
func nullToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// stringToNull safely converts string to sql.NullString
func stringToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// ============================================================================
// Time Helpers
// ============================================================================

// timeLayout is fixed width so stored timestamps sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		// rows written by hand or older builds
		t, err = time.Parse(time.RFC3339Nano, s)
	}
	return t, err
}

// ============================================================================
// Row Types
// ============================================================================

// runRow holds the scanned columns of the runs table
type runRow struct {
	id            string
	startedAt     string
	finishedAt    string
	inputDigest   string
	snapshotCount int
	totalDevices  int
	rejected      sql.NullString
	document      []byte
}

func (r *runRow) scanArgs(withDocument bool) []interface{} {
	args := []interface{}{
		&r.id, &r.startedAt, &r.finishedAt, &r.inputDigest,
		&r.snapshotCount, &r.totalDevices, &r.rejected,
	}
	if withDocument {
		args = append(args, &r.document)
	}
	return args
}

func (r *runRow) toDomain() (*domain.Run, error) {
	started, err := parseTime(r.startedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse started_at of run %s: %w", r.id, err)
	}
	finished, err := parseTime(r.finishedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse finished_at of run %s: %w", r.id, err)
	}

	run := &domain.Run{
		ID:            r.id,
		StartedAt:     started,
		FinishedAt:    finished,
		InputDigest:   r.inputDigest,
		SnapshotCount: r.snapshotCount,
		TotalDevices:  r.totalDevices,
	}

	if rejected := nullToString(r.rejected); rejected != "" {
		if err := json.Unmarshal([]byte(rejected), &run.Rejected); err != nil {
			return nil, fmt.Errorf("failed to unmarshal rejected files of run %s: %w", r.id, err)
		}
	}

	if len(r.document) > 0 {
		inv := &domain.Inventory{}
		if err := json.Unmarshal(r.document, inv); err != nil {
			return nil, fmt.Errorf("failed to unmarshal document of run %s: %w", r.id, err)
		}
		run.Inventory = inv
	}

	return run, nil
}

// runInsertArgs builds the insert arguments for a run
func runInsertArgs(run *domain.Run) ([]interface{}, error) {
	document, err := json.Marshal(run.Inventory)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}

	var rejected sql.NullString
	if len(run.Rejected) > 0 {
		data, err := json.Marshal(run.Rejected)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal rejected files: %w", err)
		}
		rejected = stringToNull(string(data))
	}

	total := run.TotalDevices
	if run.Inventory != nil {
		total = len(run.Inventory.Devices)
	}

	return []interface{}{
		run.ID,
		formatTime(run.StartedAt),
		formatTime(run.FinishedAt),
		run.InputDigest,
		run.SnapshotCount,
		total,
		rejected,
		document,
	}, nil
}

// deviceInsertArgs builds the insert arguments for one indexed device
func deviceInsertArgs(runID, id string, dev *domain.DeviceRecord) ([]interface{}, error) {
	data, err := json.Marshal(dev)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal device %s: %w", id, err)
	}
	return []interface{}{
		runID,
		id,
		stringToNull(dev.PrimaryIP),
		stringToNull(dev.SysName),
		stringToNull(dev.Vendor),
		stringToNull(dev.DeviceType),
		data,
	}, nil
}

func unmarshalDevice(id string, data []byte) (*domain.DeviceRecord, error) {
	dev := &domain.DeviceRecord{}
	if err := json.Unmarshal(data, dev); err != nil {
		return nil, fmt.Errorf("failed to unmarshal device %s: %w", id, err)
	}
	if dev.ID == "" {
		dev.ID = id
	}
	return dev, nil
}
