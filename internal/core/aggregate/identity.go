package aggregate

import (
	"strings"

	"netcensus/internal/domain"
)

// Dedup key prefixes
const (
	hostnameKeyPrefix = "hostname_"
	ipKeyPrefix       = "ip_"
	idKeyPrefix       = "id_"
)

// Identity is the result of resolving a record's identity
type Identity struct {
	DedupKey    string // internal registry key
	CanonicalID string // externally visible device id
	Hostname    string // real name backing the identity; "" for address identities
}

// IsHostname reports whether the identity is name-based
func (id Identity) IsHostname() bool {
	return id.Hostname != ""
}

// Resolve derives the identity of a record.
// The returned record is a canonical copy; when no real sys_name is present
// but the SNMP data carries one, it is promoted into the copy's SysName.
func Resolve(rec *domain.DeviceRecord) (Identity, *domain.DeviceRecord) {
	out := rec.Canonical()

	if !isRealName(out.SysName, out.PrimaryIP) {
		if name, ok := out.SNMPByIP.FirstSysName(out.PrimaryIP); ok {
			out.SysName = name
		}
	}

	if isRealName(out.SysName, out.PrimaryIP) {
		return Identity{
			DedupKey:    hostnameKeyPrefix + domain.HostKey(out.SysName),
			CanonicalID: out.SysName,
			Hostname:    out.SysName,
		}, out
	}

	if out.PrimaryIP == "" && out.ID != "" {
		return Identity{
			DedupKey:    idKeyPrefix + out.ID,
			CanonicalID: out.ID,
		}, out
	}

	return Identity{
		DedupKey:    ipKeyPrefix + out.PrimaryIP,
		CanonicalID: IPDeviceID(out.PrimaryIP),
	}, out
}

// IPDeviceID returns the synthetic device id for an address
func IPDeviceID(ip string) string {
	return domain.IPNamePrefix + strings.ReplaceAll(ip, ".", "_")
}

// isRealName reports whether name can serve as a hostname identity
func isRealName(name, primaryIP string) bool {
	v, ok := domain.Normalize(domain.FieldSysName, name)
	if !ok {
		return false
	}
	return v != primaryIP && !domain.IsSyntheticName(v)
}

// addressOf returns the IP encoded in an address dedup key
func addressOf(dedupKey string) (string, bool) {
	if !strings.HasPrefix(dedupKey, ipKeyPrefix) {
		return "", false
	}
	ip := strings.TrimPrefix(dedupKey, ipKeyPrefix)
	return ip, ip != ""
}
