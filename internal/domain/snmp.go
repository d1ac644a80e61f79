package domain

import (
	"sort"
)

// Well-known MIB-II system group OIDs
const (
	OIDSysDescr    = "1.3.6.1.2.1.1.1.0"
	OIDSysObjectID = "1.3.6.1.2.1.1.2.0"
	OIDSysContact  = "1.3.6.1.2.1.1.4.0"
	OIDSysName     = "1.3.6.1.2.1.1.5.0"
	OIDSysLocation = "1.3.6.1.2.1.1.6.0"
)

// SNMPData holds raw SNMP results per polled address: IP -> OID (or label) -> value
type SNMPData map[string]map[string]string

// IPs returns the polled addresses in sorted order
func (s SNMPData) IPs() []string {
	ips := make([]string, 0, len(s))
	for ip := range s {
		ips = append(ips, ip)
	}
	sort.Strings(ips)
	return ips
}

// Get returns a present value for ip/key
func (s SNMPData) Get(ip, key string) (string, bool) {
	inner, ok := s[ip]
	if !ok {
		return "", false
	}
	return Normalize(Field(key), inner[key])
}

// Clone returns a deep copy; nil stays nil
func (s SNMPData) Clone() SNMPData {
	if s == nil {
		return nil
	}
	out := make(SNMPData, len(s))
	for ip, inner := range s {
		cp := make(map[string]string, len(inner))
		for k, v := range inner {
			cp[k] = v
		}
		out[ip] = cp
	}
	return out
}

// Canonical returns a copy with absent inner values rewritten to ""
func (s SNMPData) Canonical() SNMPData {
	out := s.Clone()
	for _, inner := range out {
		for k, v := range inner {
			if IsAbsent(v) {
				inner[k] = ""
			}
		}
	}
	return out
}

// Merge folds incoming into a copy of s.
// IPs present on one side only are carried through unchanged. For IPs on
// both sides, an incoming key overwrites the base key only when the incoming
// value is present.
func (s SNMPData) Merge(incoming SNMPData) SNMPData {
	if s == nil && incoming == nil {
		return nil
	}

	out := s.Clone()
	if out == nil {
		out = make(SNMPData, len(incoming))
	}

	for ip, in := range incoming {
		base, ok := out[ip]
		if !ok {
			cp := make(map[string]string, len(in))
			for k, v := range in {
				cp[k] = v
			}
			out[ip] = cp
			continue
		}
		for k, v := range in {
			if IsPresent(v) {
				base[k] = v
				continue
			}
			if _, exists := base[k]; !exists {
				base[k] = v
			}
		}
	}
	return out
}

// FirstSysName scans every polled address for a usable sysName.
// A candidate qualifies when it is present, differs from the address it was
// polled on and from exclude, and is not a synthetic ip_ name.
func (s SNMPData) FirstSysName(exclude string) (string, bool) {
	for _, ip := range s.IPs() {
		name, ok := s.Get(ip, OIDSysName)
		if !ok || name == ip || name == exclude || IsSyntheticName(name) {
			continue
		}
		return name, true
	}
	return "", false
}
