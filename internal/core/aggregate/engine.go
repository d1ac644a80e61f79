package aggregate

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"netcensus/internal/domain"
)

// ErrNoValidInput is returned when there is no snapshot to aggregate.
// Callers must treat it as a hard stop rather than an empty result.
var ErrNoValidInput = errors.New("no valid input snapshots")

// Observer receives per-record and per-run aggregation outcomes
type Observer interface {
	ObserveRecord(outcome domain.RecordOutcome)
	ObserveAggregate(devices int, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveRecord(domain.RecordOutcome) {}
func (nopObserver) ObserveAggregate(int, time.Duration) {}

// Aggregator folds snapshots into an Inventory
type Aggregator struct {
	weights  Weights
	version  string
	logger   zerolog.Logger
	observer Observer
	now      func() time.Time
}

// Option configures an Aggregator
type Option func(*Aggregator)

// WithWeights sets the scoring policy
func WithWeights(w Weights) Option {
	return func(a *Aggregator) {
		a.weights = w
	}
}

// WithVersion sets the document version written to the output.
// When unset the first snapshot's version is used.
func WithVersion(v string) Option {
	return func(a *Aggregator) {
		a.version = v
	}
}

// WithLogger sets the logger used for decision tracing
func WithLogger(l zerolog.Logger) Option {
	return func(a *Aggregator) {
		a.logger = l
	}
}

// WithObserver sets the outcome observer
func WithObserver(o Observer) Option {
	return func(a *Aggregator) {
		if o != nil {
			a.observer = o
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// New creates an Aggregator with the default weights
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		weights:  DefaultWeights(),
		logger:   zerolog.Nop(),
		observer: nopObserver{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Weights returns the scoring policy in use
func (a *Aggregator) Weights() Weights {
	return a.weights
}

// Aggregate merges the snapshots, in order, into one inventory.
// Nil snapshots are skipped; if none remain ErrNoValidInput is returned.
func (a *Aggregator) Aggregate(snapshots []*domain.Snapshot) (*domain.Inventory, error) {
	var valid []*domain.Snapshot
	for _, snap := range snapshots {
		if snap != nil {
			valid = append(valid, snap)
		}
	}
	if len(valid) == 0 {
		return nil, ErrNoValidInput
	}

	started := a.now()
	reg := newRegistry()
	info := &domain.MergeInfo{
		SourceFiles:         make([]string, 0, len(valid)),
		ProvenancesMerged:   make([]domain.Provenance, 0, len(valid)),
		ProvenanceBreakdown: make(map[domain.Provenance]int),
		Outcomes:            make(map[domain.RecordOutcome]int),
	}

	for _, snap := range valid {
		prov := domain.ParseProvenance(string(snap.Provenance))
		info.SourceFiles = append(info.SourceFiles, snap.Source)
		info.ProvenancesMerged = append(info.ProvenancesMerged, prov)
		info.ProvenanceBreakdown[prov] += snap.Devices.Len()

		for _, de := range snap.Devices {
			if de.Record == nil {
				continue
			}
			outcome, e := a.add(reg, de, prov)
			a.record(info, outcome)
			a.logger.Debug().
				Str("source", snap.Source).
				Str("key", de.Key).
				Str("identity", e.key).
				Int("score", e.score).
				Str("outcome", string(outcome)).
				Msg("folded device record")
		}
	}

	for _, al := range reg.resolveAliases() {
		a.record(info, al.outcome)
		a.logger.Debug().Str("from", al.from).Str("to", al.to).Msg("folded address identity into hostname")
	}

	devices, collisions := reg.devices()
	for _, al := range collisions {
		a.record(info, al.outcome)
		a.logger.Debug().Str("from", al.from).Str("to", al.to).Msg("merged entries sharing a device id")
	}

	sessions := collectSessions(valid)
	generated := started.UTC().Format(time.RFC3339)
	info.MergeTimestamp = generated

	inv := &domain.Inventory{
		Version:      a.documentVersion(valid),
		LastUpdated:  generated,
		TotalDevices: len(devices),
		Devices:      devices,
		Sessions:     sessions,
		Statistics:   Summarize(devices, sessions),
		Config:       firstConfig(valid),
		MergeInfo:    info,
	}

	elapsed := a.now().Sub(started)
	a.observer.ObserveAggregate(inv.TotalDevices, elapsed)
	a.logger.Info().
		Int("snapshots", len(valid)).
		Int("devices", inv.TotalDevices).
		Int("sessions", len(sessions)).
		Dur("elapsed", elapsed).
		Msg("aggregation complete")

	return inv, nil
}

// add resolves, scores and folds one snapshot record
func (a *Aggregator) add(reg *registry, de domain.DeviceEntry, prov domain.Provenance) (domain.RecordOutcome, *entry) {
	rec := de.Record
	if domain.IsAbsent(rec.ID) {
		rec = rec.Clone()
		rec.ID = de.Key
	}

	identity, canon := Resolve(rec)
	canon.ID = identity.CanonicalID

	e := &entry{
		key:        identity.DedupKey,
		record:     canon,
		provenance: prov,
		score:      Score(canon, prov, a.weights),
	}
	return reg.fold(e), e
}

func (a *Aggregator) record(info *domain.MergeInfo, outcome domain.RecordOutcome) {
	info.Outcomes[outcome]++
	a.observer.ObserveRecord(outcome)
}

func (a *Aggregator) documentVersion(snapshots []*domain.Snapshot) string {
	if a.version != "" {
		return a.version
	}
	for _, snap := range snapshots {
		if snap.Version != "" {
			return snap.Version
		}
	}
	return domain.DefaultInventoryVersion
}

// collectSessions concatenates every snapshot's sessions, tags each copy with
// its source and provenance, and sorts them by timestamp.
func collectSessions(snapshots []*domain.Snapshot) []domain.Session {
	sessions := make([]domain.Session, 0)
	for _, snap := range snapshots {
		for _, s := range snap.Sessions {
			cp := s.Clone()
			if _, ok := cp["source_file"]; !ok {
				cp["source_file"] = snap.Source
			}
			if _, ok := cp["provenance"]; !ok {
				cp["provenance"] = string(domain.ParseProvenance(string(snap.Provenance)))
			}
			sessions = append(sessions, cp)
		}
	}
	domain.SortSessions(sessions)
	return sessions
}

// firstConfig returns a copy of the first configuration block found
func firstConfig(snapshots []*domain.Snapshot) map[string]any {
	for _, snap := range snapshots {
		if len(snap.Config) == 0 {
			continue
		}
		cp := make(map[string]any, len(snap.Config))
		for k, v := range snap.Config {
			cp[k] = v
		}
		return cp
	}
	return nil
}
