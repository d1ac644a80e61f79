package aggregate

import (
	"netcensus/internal/domain"
)

// Merge folds incoming into base and returns a new record.
// Neither input is mutated. Identity-bound fields (id, confidence_score,
// detection_method) come from base; the caller decides which side is base.
// identity_method and identity_confidence come from base when it has them.
func Merge(base, incoming *domain.DeviceRecord) *domain.DeviceRecord {
	out := base.Clone()

	out.AllIPs = domain.UnionSorted(domain.FieldIP, base.AllIPs, incoming.AllIPs)
	out.MACs = domain.UnionSorted(domain.FieldMAC, base.MACs, incoming.MACs)
	out.Interfaces = mergeInterfaces(base.Interfaces, incoming.Interfaces)
	out.SNMPByIP = base.SNMPByIP.Merge(incoming.SNMPByIP)

	out.PrimaryIP = domain.FillMissing(domain.FieldPrimaryIP, base.PrimaryIP, incoming.PrimaryIP)
	out.SysName = mergeSysName(base, incoming)
	out.Vendor = domain.FillMissing(domain.FieldVendor, base.Vendor, incoming.Vendor)
	out.DeviceType = domain.FillMissing(domain.FieldDeviceType, base.DeviceType, incoming.DeviceType)
	out.Model = domain.FillMissing(domain.FieldModel, base.Model, incoming.Model)
	out.SerialNumber = domain.FillMissing(domain.FieldSerialNumber, base.SerialNumber, incoming.SerialNumber)
	out.OSVersion = domain.FillMissing(domain.FieldOSVersion, base.OSVersion, incoming.OSVersion)
	out.SysDescr = domain.FillMissing(domain.FieldSysDescr, base.SysDescr, incoming.SysDescr)
	out.SysObjectID = domain.FillMissing("sys_object_id", base.SysObjectID, incoming.SysObjectID)
	out.SysContact = domain.FillMissing("sys_contact", base.SysContact, incoming.SysContact)
	out.SysLocation = domain.FillMissing("sys_location", base.SysLocation, incoming.SysLocation)
	out.SysUptime = domain.FillMissing("sys_uptime", base.SysUptime, incoming.SysUptime)
	out.Hostname = domain.FillMissing(domain.FieldSysName, base.Hostname, incoming.Hostname)
	out.FirmwareVersion = domain.FillMissing("firmware_version", base.FirmwareVersion, incoming.FirmwareVersion)
	out.HardwareRevision = domain.FillMissing("hardware_revision", base.HardwareRevision, incoming.HardwareRevision)

	out.IdentityMethod = domain.FillMissing("identity_method", base.IdentityMethod, incoming.IdentityMethod)
	if out.IdentityConfidence == 0 {
		out.IdentityConfidence = incoming.IdentityConfidence
	}

	if len(base.Tags) > 0 || len(incoming.Tags) > 0 {
		out.Tags = domain.UnionSorted(domain.FieldTag, base.Tags, incoming.Tags)
	}
	out.CustomFields = domain.MergeCustomFields(base.CustomFields, incoming.CustomFields)

	out.ScanCount = base.ScanCount + incoming.ScanCount

	if domain.LaterTimestamp(incoming.LastSeen, base.LastSeen) {
		out.LastSeen = incoming.LastSeen
		out.LastScanID = incoming.LastScanID
	}
	if domain.IsPresent(incoming.FirstSeen) &&
		(domain.IsAbsent(base.FirstSeen) || domain.CompareTimestamps(incoming.FirstSeen, base.FirstSeen) < 0) {
		out.FirstSeen = incoming.FirstSeen
	}

	return out
}

// mergeSysName fills base's name from incoming, treating names that are
// only an address or a synthetic ip_ placeholder as missing. Case variants
// of one name resolve to the smaller spelling.
func mergeSysName(base, incoming *domain.DeviceRecord) string {
	switch {
	case isRealName(base.SysName, base.PrimaryIP) && isRealName(incoming.SysName, incoming.PrimaryIP):
		return caseVariant(domain.Clean(domain.FieldSysName, base.SysName), domain.Clean(domain.FieldSysName, incoming.SysName))
	case isRealName(base.SysName, base.PrimaryIP):
		return domain.Clean(domain.FieldSysName, base.SysName)
	case isRealName(incoming.SysName, incoming.PrimaryIP):
		return domain.Clean(domain.FieldSysName, incoming.SysName)
	}
	return domain.FillMissing(domain.FieldSysName, base.SysName, incoming.SysName)
}

func mergeInterfaces(base, incoming map[string]domain.Interface) map[string]domain.Interface {
	if base == nil && incoming == nil {
		return nil
	}
	out := make(map[string]domain.Interface, len(base)+len(incoming))
	for _, src := range []map[string]domain.Interface{base, incoming} {
		for name, detail := range src {
			cp := make(domain.Interface, len(detail))
			for k, v := range detail {
				cp[k] = v
			}
			out[name] = cp
		}
	}
	return out
}
