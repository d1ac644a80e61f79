package repository

import (
	"context"

	"netcensus/internal/domain"
)

// DeviceFilter narrows a device listing. Empty fields match everything.
type DeviceFilter struct {
	Vendor     string
	DeviceType string
	Limit      int
}

// Repository defines the interface for aggregation run storage.
// Lookups that find nothing return a nil value and a nil error.
type Repository interface {
	// Write operations
	SaveRun(ctx context.Context, run *domain.Run) error

	// Run queries
	LatestRun(ctx context.Context) (*domain.Run, error)
	GetRun(ctx context.Context, id string) (*domain.Run, error)
	ListRuns(ctx context.Context, limit int) ([]*domain.Run, error)

	// Device queries, always against the latest run
	ListDevices(ctx context.Context, filter DeviceFilter) ([]*domain.DeviceRecord, error)
	GetDevice(ctx context.Context, id string) (*domain.DeviceRecord, error)

	// Close releases resources
	Close() error
}
