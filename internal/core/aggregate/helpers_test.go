package aggregate

import (
	"time"

	"netcensus/internal/domain"
)

var fixedNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func testAggregator(opts ...Option) *Aggregator {
	return New(append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)...)
}

func snapshot(source string, prov domain.Provenance, entries ...domain.DeviceEntry) *domain.Snapshot {
	return &domain.Snapshot{
		Source:     source,
		Provenance: prov,
		Devices:    domain.DeviceSet(entries),
	}
}

func dev(key string, rec domain.DeviceRecord) domain.DeviceEntry {
	r := rec
	return domain.DeviceEntry{Key: key, Record: &r}
}
