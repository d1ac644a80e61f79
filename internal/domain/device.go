package domain

import (
	"maps"
	"net/netip"
	"slices"
	"sort"
	"strings"
)

// Interface is the opaque per-interface detail reported by a collector.
// It is carried through merges without inspection.
type Interface map[string]any

// DeviceRecord describes one network device as seen by one or more snapshots
type DeviceRecord struct {
	ID        string   `json:"id" yaml:"id"`
	PrimaryIP string   `json:"primary_ip" yaml:"primary_ip"`
	SysName   string   `json:"sys_name,omitempty" yaml:"sys_name,omitempty"`
	AllIPs    []string `json:"all_ips" yaml:"all_ips"`
	MACs      []string `json:"mac_addresses" yaml:"mac_addresses"`
	Hostname  string   `json:"hostname,omitempty" yaml:"hostname,omitempty"`

	Interfaces map[string]Interface `json:"interfaces,omitempty" yaml:"interfaces,omitempty"`
	SNMPByIP   SNMPData             `json:"snmp_data_by_ip,omitempty" yaml:"snmp_data_by_ip,omitempty"`

	Vendor       string `json:"vendor" yaml:"vendor"`
	DeviceType   string `json:"device_type" yaml:"device_type"`
	Model        string `json:"model,omitempty" yaml:"model,omitempty"`
	SerialNumber string `json:"serial_number,omitempty" yaml:"serial_number,omitempty"`
	OSVersion    string `json:"os_version,omitempty" yaml:"os_version,omitempty"`

	FirmwareVersion  string `json:"firmware_version,omitempty" yaml:"firmware_version,omitempty"`
	HardwareRevision string `json:"hardware_revision,omitempty" yaml:"hardware_revision,omitempty"`

	SysDescr     string `json:"sys_descr,omitempty" yaml:"sys_descr,omitempty"`
	SysObjectID  string `json:"sys_object_id,omitempty" yaml:"sys_object_id,omitempty"`
	SysContact   string `json:"sys_contact,omitempty" yaml:"sys_contact,omitempty"`
	SysLocation  string `json:"sys_location,omitempty" yaml:"sys_location,omitempty"`
	SysUptime    string `json:"sys_uptime,omitempty" yaml:"sys_uptime,omitempty"`

	ConfidenceScore int    `json:"confidence_score" yaml:"confidence_score"`
	DetectionMethod string `json:"detection_method" yaml:"detection_method"`

	IdentityMethod     string `json:"identity_method,omitempty" yaml:"identity_method,omitempty"`
	IdentityConfidence int    `json:"identity_confidence,omitempty" yaml:"identity_confidence,omitempty"`

	ScanCount  int    `json:"scan_count" yaml:"scan_count"`
	FirstSeen  string `json:"first_seen,omitempty" yaml:"first_seen,omitempty"`
	LastSeen   string `json:"last_seen,omitempty" yaml:"last_seen,omitempty"`
	LastScanID string `json:"last_scan_id,omitempty" yaml:"last_scan_id,omitempty"`

	Tags         []string          `json:"tags,omitempty" yaml:"tags,omitempty"`
	CustomFields map[string]string `json:"custom_fields,omitempty" yaml:"custom_fields,omitempty"`
}

// Clone returns a deep copy of the record
func (d *DeviceRecord) Clone() *DeviceRecord {
	if d == nil {
		return nil
	}
	cp := *d
	cp.AllIPs = slices.Clone(d.AllIPs)
	cp.MACs = slices.Clone(d.MACs)
	cp.Interfaces = cloneInterfaces(d.Interfaces)
	cp.SNMPByIP = d.SNMPByIP.Clone()
	cp.Tags = slices.Clone(d.Tags)
	cp.CustomFields = maps.Clone(d.CustomFields)
	return &cp
}

// Canonical returns a normalized copy: scalars trimmed with absent values
// blanked, address sets de-duplicated and sorted, MACs lower-cased.
func (d *DeviceRecord) Canonical() *DeviceRecord {
	cp := d.Clone()

	cp.PrimaryIP = Clean(FieldPrimaryIP, cp.PrimaryIP)
	cp.SysName = Clean(FieldSysName, cp.SysName)
	cp.Vendor = Clean(FieldVendor, cp.Vendor)
	cp.DeviceType = Clean(FieldDeviceType, cp.DeviceType)
	cp.Model = Clean(FieldModel, cp.Model)
	cp.SerialNumber = Clean(FieldSerialNumber, cp.SerialNumber)
	cp.OSVersion = Clean(FieldOSVersion, cp.OSVersion)
	cp.SysDescr = Clean(FieldSysDescr, cp.SysDescr)
	cp.SysObjectID = Clean(Field("sys_object_id"), cp.SysObjectID)
	cp.SysContact = Clean(Field("sys_contact"), cp.SysContact)
	cp.SysLocation = Clean(Field("sys_location"), cp.SysLocation)
	cp.SysUptime = Clean(Field("sys_uptime"), cp.SysUptime)
	cp.Hostname = Clean(FieldSysName, cp.Hostname)
	cp.FirmwareVersion = Clean(Field("firmware_version"), cp.FirmwareVersion)
	cp.HardwareRevision = Clean(Field("hardware_revision"), cp.HardwareRevision)
	cp.IdentityMethod = Clean(Field("identity_method"), cp.IdentityMethod)
	cp.DetectionMethod = strings.TrimSpace(cp.DetectionMethod)
	cp.FirstSeen = Clean(FieldTimestamp, cp.FirstSeen)
	cp.LastSeen = Clean(FieldTimestamp, cp.LastSeen)
	cp.LastScanID = Clean(Field("last_scan_id"), cp.LastScanID)

	cp.AllIPs = UnionSorted(FieldIP, cp.AllIPs)
	cp.MACs = UnionSorted(FieldMAC, cp.MACs)
	cp.SNMPByIP = cp.SNMPByIP.Canonical()
	if len(cp.Tags) > 0 {
		cp.Tags = UnionSorted(FieldTag, cp.Tags)
	}
	cp.CustomFields = MergeCustomFields(cp.CustomFields, nil)

	if cp.ScanCount < 0 {
		cp.ScanCount = 0
	}
	return cp
}

// HasIP reports whether ip is the primary address or one of AllIPs
func (d *DeviceRecord) HasIP(ip string) bool {
	if ip == "" {
		return false
	}
	if d.PrimaryIP == ip {
		return true
	}
	for _, existing := range d.AllIPs {
		if existing == ip {
			return true
		}
	}
	return false
}

// Addresses returns the primary address plus AllIPs, de-duplicated and sorted
func (d *DeviceRecord) Addresses() []string {
	return UnionSorted(FieldIP, []string{d.PrimaryIP}, d.AllIPs)
}

// Subnet24 returns the /24 network of an IPv4 primary address, or "" if none
func (d *DeviceRecord) Subnet24() string {
	addr, err := netip.ParseAddr(d.PrimaryIP)
	if err != nil || !addr.Is4() {
		return ""
	}
	prefix, err := addr.Prefix(24)
	if err != nil {
		return ""
	}
	return prefix.String()
}

// UnionSorted merges string sets, dropping absent values, normalizing per
// field, and returning a sorted slice (never nil).
func UnionSorted(field Field, sets ...[]string) []string {
	seen := make(map[string]struct{})
	for _, set := range sets {
		for _, raw := range set {
			if v, ok := Normalize(field, raw); ok {
				seen[v] = struct{}{}
			}
		}
	}

	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// MergeCustomFields returns base's present keys plus the keys only incoming
// sets. Absent values are dropped. The result is nil when nothing remains.
func MergeCustomFields(base, incoming map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(incoming))
	for _, src := range []map[string]string{base, incoming} {
		for k, raw := range src {
			if _, ok := out[k]; ok {
				continue
			}
			if v, ok := Normalize(Field(k), raw); ok {
				out[k] = v
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func cloneInterfaces(in map[string]Interface) map[string]Interface {
	if in == nil {
		return nil
	}
	out := make(map[string]Interface, len(in))
	for name, detail := range in {
		cp := make(Interface, len(detail))
		for k, v := range detail {
			cp[k] = v
		}
		out[name] = cp
	}
	return out
}
