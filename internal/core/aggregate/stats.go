package aggregate

import (
	"netcensus/internal/domain"
)

const unknownBucket = "unknown"

// Summarize recomputes statistics over a final device collection and the
// merged session list.
func Summarize(devices map[string]*domain.DeviceRecord, sessions []domain.Session) domain.Statistics {
	stats := domain.Statistics{
		TotalDevices:     len(devices),
		TotalSessions:    len(sessions),
		VendorBreakdown:  make(map[string]int),
		TypeBreakdown:    make(map[string]int),
		DevicesPerSubnet: make(map[string]int),
		ErrorStats:       make(map[string]int),
	}

	inv := domain.Inventory{Devices: devices}
	totalConfidence := 0
	for _, id := range inv.DeviceIDs() {
		d := devices[id]

		stats.VendorBreakdown[bucket(domain.FieldVendor, d.Vendor)]++
		stats.TypeBreakdown[bucket(domain.FieldDeviceType, d.DeviceType)]++
		if subnet := d.Subnet24(); subnet != "" {
			stats.DevicesPerSubnet[subnet]++
		}
		totalConfidence += d.ConfidenceScore

		if domain.IsPresent(d.FirstSeen) &&
			(stats.OldestDevice == "" || domain.CompareTimestamps(d.FirstSeen, stats.OldestDevice) < 0) {
			stats.OldestDevice = domain.Clean(domain.FieldTimestamp, d.FirstSeen)
		}
		if domain.LaterTimestamp(d.LastSeen, stats.LastScanDate) {
			stats.LastScanDate = domain.Clean(domain.FieldTimestamp, d.LastSeen)
		}
	}
	if len(devices) > 0 {
		stats.AvgConfidence = float64(totalConfidence) / float64(len(devices))
	}

	for _, s := range sessions {
		for _, t := range s.ErrorTypes() {
			stats.ErrorStats[t]++
		}
	}

	return stats
}

func bucket(field domain.Field, raw string) string {
	if v, ok := domain.Normalize(field, raw); ok {
		return v
	}
	return unknownBucket
}
