package domain

import (
	"strings"
)

// Field names a scalar attribute for normalization purposes
type Field string

const (
	FieldSysName      Field = "sys_name"
	FieldPrimaryIP    Field = "primary_ip"
	FieldIP           Field = "ip"
	FieldMAC          Field = "mac_address"
	FieldVendor       Field = "vendor"
	FieldDeviceType   Field = "device_type"
	FieldModel        Field = "model"
	FieldSerialNumber Field = "serial_number"
	FieldOSVersion    Field = "os_version"
	FieldSysDescr     Field = "sys_descr"
	FieldTimestamp    Field = "timestamp"
	FieldTag          Field = "tag"
)

// NilSentinel is the placeholder some collectors write for unset SNMP values
const NilSentinel = "<nil>"

// IPNamePrefix marks scanner-synthesized, IP-derived device names
const IPNamePrefix = "ip_"

// IsAbsent reports whether a raw value means "no value"
func IsAbsent(raw string) bool {
	v := strings.TrimSpace(raw)
	return v == "" || v == NilSentinel || strings.EqualFold(v, "none")
}

// IsPresent is the inverse of IsAbsent
func IsPresent(raw string) bool {
	return !IsAbsent(raw)
}

// Normalize canonicalizes a raw scalar for the given field.
// The second return value is false when the value is absent, in which case
// the returned string is always empty.
func Normalize(field Field, raw string) (string, bool) {
	if IsAbsent(raw) {
		return "", false
	}

	v := strings.TrimSpace(raw)
	switch field {
	case FieldMAC:
		v = strings.ToLower(v)
	}
	return v, true
}

// Clean returns the normalized value or "" when absent
func Clean(field Field, raw string) string {
	v, _ := Normalize(field, raw)
	return v
}

// FillMissing returns base unless it is absent, in which case incoming fills it
func FillMissing(field Field, base, incoming string) string {
	if v, ok := Normalize(field, base); ok {
		return v
	}
	return Clean(field, incoming)
}

// HostKey returns the case-folded form of a hostname used for identity matching
func HostKey(name string) string {
	return strings.ToLower(Clean(FieldSysName, name))
}

// IsSyntheticName reports whether a name was synthesized from an address
func IsSyntheticName(name string) bool {
	return strings.HasPrefix(name, IPNamePrefix)
}
