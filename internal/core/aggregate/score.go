package aggregate

import (
	"strings"

	"netcensus/internal/domain"
)

// Weights are the additive terms of the priority score
type Weights struct {
	HigherTrust  int `yaml:"higher_trust" json:"higher_trust"`
	Enhanced     int `yaml:"enhanced" json:"enhanced"`
	Definitive   int `yaml:"definitive" json:"definitive"`
	OIDMatch     int `yaml:"oid_match" json:"oid_match"`
	Vendor       int `yaml:"vendor" json:"vendor"`
	DeviceType   int `yaml:"device_type" json:"device_type"`
	SerialNumber int `yaml:"serial_number" json:"serial_number"`
	SysDescr     int `yaml:"sys_descr" json:"sys_descr"`
	LastSeen     int `yaml:"last_seen" json:"last_seen"`
}

// DefaultWeights returns the stock scoring policy
func DefaultWeights() Weights {
	return Weights{
		HigherTrust:  100,
		Enhanced:     20,
		Definitive:   15,
		OIDMatch:     10,
		Vendor:       5,
		DeviceType:   5,
		SerialNumber: 5,
		SysDescr:     3,
		LastSeen:     1,
	}
}

// WithoutTrustPreference returns a copy that gives no provenance bonus
func (w Weights) WithoutTrustPreference() Weights {
	w.HigherTrust = 0
	return w
}

// Score computes the priority of a record from the given provenance.
// Higher wins. The detection method contributes at most one term, checked
// in the order enhanced, definitive, oid_match.
func Score(rec *domain.DeviceRecord, prov domain.Provenance, w Weights) int {
	score := 0

	if prov == domain.ProvenanceHigherTrust {
		score += w.HigherTrust
	}

	score += rec.ConfidenceScore

	switch method := rec.DetectionMethod; {
	case strings.Contains(method, "enhanced"):
		score += w.Enhanced
	case strings.Contains(method, "definitive"):
		score += w.Definitive
	case strings.Contains(method, "oid_match"):
		score += w.OIDMatch
	}

	if domain.IsPresent(rec.Vendor) {
		score += w.Vendor
	}
	if domain.IsPresent(rec.DeviceType) {
		score += w.DeviceType
	}
	if domain.IsPresent(rec.SerialNumber) {
		score += w.SerialNumber
	}
	if domain.IsPresent(rec.SysDescr) {
		score += w.SysDescr
	}
	if domain.IsPresent(rec.LastSeen) {
		score += w.LastSeen
	}

	return score
}
