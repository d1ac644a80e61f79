package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"netcensus/internal/domain"
	"netcensus/internal/loader"
	"netcensus/internal/metrics"
	"netcensus/internal/repository"
)

var (
	// ErrNoInventory is returned by queries before the first successful run
	ErrNoInventory = errors.New("no inventory has been aggregated yet")
	// ErrNotFound is returned when a requested device or run does not exist
	ErrNotFound = errors.New("not found")
	// ErrPathNotAllowed is returned when a run names a path outside the
	// configured snapshot sources
	ErrPathNotAllowed = errors.New("path is outside the configured snapshot sources")
)

// SnapshotLoader reads snapshot files
type SnapshotLoader interface {
	Load(ctx context.Context, paths ...string) (*loader.Result, error)
}

// Aggregator folds snapshots into an inventory
type Aggregator interface {
	Aggregate(snapshots []*domain.Snapshot) (*domain.Inventory, error)
}

// RunObserver receives run outcomes, see metrics.Recorder
type RunObserver interface {
	ObserveRun(status string, snapshots, rejected int)
}

type nopRunObserver struct{}

func (nopRunObserver) ObserveRun(string, int, int) {}

// RunOptions controls a single aggregation run
type RunOptions struct {
	// Paths overrides the configured snapshot sources
	Paths []string
	// Force aggregates even when the inputs match the latest run
	Force bool
}

// RunResult is the outcome of an aggregation run
type RunResult struct {
	Run      *domain.Run
	Skipped  bool
	Rejected []loader.Rejection
}

// AggregationService loads snapshots, aggregates them and stores the result
type AggregationService struct {
	repo     repository.Repository
	loader   SnapshotLoader
	engine   Aggregator
	eventBus *EventBus
	paths    []string

	logger   zerolog.Logger
	observer RunObserver
	now      func() time.Time
	newID    func() string

	mu sync.Mutex
}

// Option configures an AggregationService
type Option func(*AggregationService)

// WithLogger sets the service logger
func WithLogger(l zerolog.Logger) Option {
	return func(s *AggregationService) {
		s.logger = l
	}
}

// WithRunObserver sets the run outcome observer
func WithRunObserver(o RunObserver) Option {
	return func(s *AggregationService) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *AggregationService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides run id generation
func WithIDGenerator(newID func() string) Option {
	return func(s *AggregationService) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// NewAggregationService creates a new aggregation service reading from paths
func NewAggregationService(repo repository.Repository, ld SnapshotLoader, engine Aggregator, eventBus *EventBus, paths []string, opts ...Option) *AggregationService {
	s := &AggregationService{
		repo:     repo,
		loader:   ld,
		engine:   engine,
		eventBus: eventBus,
		paths:    paths,
		logger:   zerolog.Nop(),
		observer: nopRunObserver{},
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Paths returns the configured snapshot sources
func (s *AggregationService) Paths() []string {
	return s.paths
}

// Run performs one aggregation run. Runs are serialised; when the loaded
// inputs are identical to the latest stored run and opts.Force is unset,
// the latest run is returned with Skipped set.
func (s *AggregationService) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.paths) == 0 && len(opts.Paths) == 0 {
		return nil, errors.New("no snapshot sources configured")
	}
	paths := s.paths
	if len(opts.Paths) > 0 {
		if err := s.confine(opts.Paths); err != nil {
			return nil, err
		}
		paths = opts.Paths
	}

	started := s.now()

	loaded, err := s.loader.Load(ctx, paths...)
	if err != nil {
		return nil, s.fail(0, 0, nil, err)
	}
	rejected := rejectionStrings(loaded.Rejected)
	for _, rej := range loaded.Rejected {
		s.logger.Warn().Str("path", rej.Path).Err(rej.Err).Msg("snapshot rejected")
	}

	if !opts.Force && loaded.Digest != "" {
		latest, err := s.repo.LatestRun(ctx)
		if err != nil {
			return nil, s.fail(len(loaded.Snapshots), len(loaded.Rejected), rejected, err)
		}
		if latest != nil && latest.InputDigest == loaded.Digest {
			s.observer.ObserveRun(metrics.RunSkipped, len(loaded.Snapshots), len(loaded.Rejected))
			s.logger.Info().Str("run_id", latest.ID).Msg("inputs unchanged, skipping aggregation")
			s.eventBus.Publish(Event{
				Type: EventAggregateSkipped,
				Payload: RunPayload{
					RunID:        latest.ID,
					TotalDevices: latest.TotalDevices,
					Snapshots:    len(loaded.Snapshots),
					Rejected:     rejected,
				},
			})
			return &RunResult{Run: latest, Skipped: true, Rejected: loaded.Rejected}, nil
		}
	}

	inv, err := s.engine.Aggregate(loaded.Snapshots)
	if err != nil {
		return nil, s.fail(len(loaded.Snapshots), len(loaded.Rejected), rejected, err)
	}

	id := s.newID()
	if inv.MergeInfo == nil {
		inv.MergeInfo = &domain.MergeInfo{}
	}
	inv.MergeInfo.RunID = id

	run := &domain.Run{
		ID:            id,
		StartedAt:     started,
		FinishedAt:    s.now(),
		InputDigest:   loaded.Digest,
		SnapshotCount: len(loaded.Snapshots),
		TotalDevices:  inv.TotalDevices,
		Rejected:      rejected,
		Inventory:     inv,
	}

	if err := s.repo.SaveRun(ctx, run); err != nil {
		return nil, s.fail(run.SnapshotCount, len(loaded.Rejected), rejected, fmt.Errorf("save run: %w", err))
	}

	s.observer.ObserveRun(metrics.RunSucceeded, run.SnapshotCount, len(loaded.Rejected))
	s.logger.Info().
		Str("run_id", id).
		Int("snapshots", run.SnapshotCount).
		Int("devices", run.TotalDevices).
		Int("rejected", len(rejected)).
		Dur("duration", run.Duration()).
		Msg("inventory updated")

	s.eventBus.Publish(Event{
		Type: EventInventoryUpdated,
		Payload: RunPayload{
			RunID:        id,
			TotalDevices: run.TotalDevices,
			Snapshots:    run.SnapshotCount,
			Rejected:     rejected,
		},
	})

	return &RunResult{Run: run, Rejected: loaded.Rejected}, nil
}

func (s *AggregationService) fail(snapshots, rejectedCount int, rejected []string, err error) error {
	s.observer.ObserveRun(metrics.RunFailed, snapshots, rejectedCount)
	s.logger.Error().Err(err).Int("snapshots", snapshots).Msg("aggregation failed")
	s.eventBus.Publish(Event{
		Type: EventAggregateFailed,
		Payload: RunPayload{
			Snapshots: snapshots,
			Rejected:  rejected,
			Error:     err.Error(),
		},
	})
	return err
}

// Inventory returns the latest aggregated inventory
func (s *AggregationService) Inventory(ctx context.Context) (*domain.Inventory, error) {
	run, err := s.repo.LatestRun(ctx)
	if err != nil {
		return nil, err
	}
	if run == nil || run.Inventory == nil {
		return nil, ErrNoInventory
	}
	return run.Inventory, nil
}

// Statistics returns the statistics block of the latest inventory
func (s *AggregationService) Statistics(ctx context.Context) (*domain.Statistics, error) {
	inv, err := s.Inventory(ctx)
	if err != nil {
		return nil, err
	}
	return &inv.Statistics, nil
}

// ListDevices returns devices of the latest inventory, optionally filtered
func (s *AggregationService) ListDevices(ctx context.Context, filter repository.DeviceFilter) ([]*domain.DeviceRecord, error) {
	return s.repo.ListDevices(ctx, filter)
}

// GetDevice retrieves a single device of the latest inventory by ID
func (s *AggregationService) GetDevice(ctx context.Context, id string) (*domain.DeviceRecord, error) {
	dev, err := s.repo.GetDevice(ctx, id)
	if err != nil {
		return nil, err
	}
	if dev == nil {
		return nil, fmt.Errorf("device %s: %w", id, ErrNotFound)
	}
	return dev, nil
}

// ListRuns returns run summaries, newest first
func (s *AggregationService) ListRuns(ctx context.Context, limit int) ([]*domain.Run, error) {
	return s.repo.ListRuns(ctx, limit)
}

// GetRun retrieves a run with its document
func (s *AggregationService) GetRun(ctx context.Context, id string) (*domain.Run, error) {
	run, err := s.repo.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return run, nil
}

func rejectionStrings(rejections []loader.Rejection) []string {
	if len(rejections) == 0 {
		return nil
	}
	out := make([]string, len(rejections))
	for i, r := range rejections {
		out[i] = r.Error()
	}
	return out
}

// confine checks that every requested path is one of the configured sources
// or lies below one. Symlinks are resolved on both sides when they exist.
func (s *AggregationService) confine(requested []string) error {
	roots := make([]string, 0, len(s.paths))
	for _, p := range s.paths {
		if root, err := resolvePath(p); err == nil {
			roots = append(roots, root)
		}
	}

	for _, p := range requested {
		target, err := resolvePath(p)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrPathNotAllowed, p)
		}
		if !within(target, roots) {
			return fmt.Errorf("%w: %s", ErrPathNotAllowed, p)
		}
	}
	return nil
}

func resolvePath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real, nil
	}
	return abs, nil
}

func within(target string, roots []string) bool {
	for _, root := range roots {
		rel, err := filepath.Rel(root, target)
		if err != nil {
			continue
		}
		if rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))) {
			return true
		}
	}
	return false
}
