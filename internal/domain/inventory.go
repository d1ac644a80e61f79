package domain

import (
	"sort"
)

// DefaultInventoryVersion is the document version written when none is configured
const DefaultInventoryVersion = "1.0.0"

// Inventory is the merged, deduplicated document produced by one aggregation run
type Inventory struct {
	Version      string                   `json:"version" yaml:"version"`
	LastUpdated  string                   `json:"last_updated" yaml:"last_updated"`
	TotalDevices int                      `json:"total_devices" yaml:"total_devices"`
	Devices      map[string]*DeviceRecord `json:"devices" yaml:"devices"`
	Sessions     []Session                `json:"sessions" yaml:"sessions"`
	Statistics   Statistics               `json:"statistics" yaml:"statistics"`
	Config       map[string]any           `json:"config,omitempty" yaml:"config,omitempty"`
	MergeInfo    *MergeInfo               `json:"merge_info,omitempty" yaml:"merge_info,omitempty"`
}

// DeviceIDs returns the inventory keys in sorted order
func (inv *Inventory) DeviceIDs() []string {
	ids := make([]string, 0, len(inv.Devices))
	for id := range inv.Devices {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Statistics are aggregates recomputed from the final device collection
type Statistics struct {
	TotalDevices     int            `json:"total_devices" yaml:"total_devices"`
	TotalSessions    int            `json:"total_sessions" yaml:"total_sessions"`
	VendorBreakdown  map[string]int `json:"vendor_breakdown" yaml:"vendor_breakdown"`
	TypeBreakdown    map[string]int `json:"type_breakdown" yaml:"type_breakdown"`
	DevicesPerSubnet map[string]int `json:"devices_per_subnet" yaml:"devices_per_subnet"`
	AvgConfidence    float64        `json:"avg_confidence" yaml:"avg_confidence"`
	OldestDevice     string         `json:"oldest_device,omitempty" yaml:"oldest_device,omitempty"`
	LastScanDate     string         `json:"last_scan_date,omitempty" yaml:"last_scan_date,omitempty"`
	ErrorStats       map[string]int `json:"error_stats" yaml:"error_stats"`
}

// RecordOutcome is what the aggregation driver did with one input record
type RecordOutcome string

const (
	OutcomeInserted RecordOutcome = "inserted" // new identity
	OutcomeMerged   RecordOutcome = "merged"   // folded into the existing identity
	OutcomeReplaced RecordOutcome = "replaced" // took over the identity, absorbing the old record
	OutcomeAliased  RecordOutcome = "aliased"  // matched across hostname/IP keys
)

// MergeInfo records how an inventory was assembled
type MergeInfo struct {
	RunID               string                `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	SourceFiles         []string              `json:"source_files" yaml:"source_files"`
	ProvenancesMerged   []Provenance          `json:"provenances_merged" yaml:"provenances_merged"`
	ProvenanceBreakdown map[Provenance]int    `json:"provenance_breakdown" yaml:"provenance_breakdown"`
	Outcomes            map[RecordOutcome]int `json:"outcomes" yaml:"outcomes"`
	MergeTimestamp      string                `json:"merge_timestamp" yaml:"merge_timestamp"`
}
