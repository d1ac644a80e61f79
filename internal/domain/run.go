package domain

import "time"

// Run is one persisted aggregation run
type Run struct {
	ID            string    `json:"id"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	InputDigest   string    `json:"input_digest"`
	SnapshotCount int       `json:"snapshot_count"`
	TotalDevices  int       `json:"total_devices"`
	Rejected      []string  `json:"rejected,omitempty"`

	// Inventory is nil in run listings
	Inventory *Inventory `json:"inventory,omitempty"`
}

// Duration returns how long the run took
func (r *Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
