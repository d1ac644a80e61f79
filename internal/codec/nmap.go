package codec

import (
	"fmt"
	"io"
	"strings"
	"time"

	nmap "github.com/Ullaakut/nmap/v3"

	"netcensus/internal/domain"
)

// Detection methods recorded on nmap-derived records
const (
	nmapDetection   = "nmap"
	nmapOSDetection = "nmap_os_match"
)

// NmapCodec decodes nmap XML output (-oX) into lower-trust snapshots
type NmapCodec struct{}

// NewNmapCodec creates a new nmap codec
func NewNmapCodec() *NmapCodec {
	return &NmapCodec{}
}

// Format returns the codec format identifier
func (c *NmapCodec) Format() string {
	return "nmap"
}

// Decode parses an nmap XML report
func (c *NmapCodec) Decode(r io.Reader) (*domain.Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read nmap XML: %w", err)
	}

	var run nmap.Run
	if err := nmap.Parse(data, &run); err != nil {
		return nil, fmt.Errorf("failed to parse nmap XML: %w", err)
	}

	return c.FromRun(&run), nil
}

// FromRun converts a parsed nmap run. Hosts that are not up are skipped.
func (c *NmapCodec) FromRun(run *nmap.Run) *domain.Snapshot {
	started := time.Time(run.Start)
	seen := ""
	if !started.IsZero() {
		seen = started.UTC().Format(time.RFC3339)
	}
	sessionID := "nmap"
	if !started.IsZero() {
		sessionID = "nmap-" + started.UTC().Format("20060102T150405Z")
	}

	snap := &domain.Snapshot{
		Provenance: domain.ProvenanceLowerTrust,
	}

	for _, host := range run.Hosts {
		if host.Status.State != "up" {
			continue
		}
		rec := hostRecord(host)
		if rec.PrimaryIP == "" {
			continue
		}
		rec.ScanCount = 1
		rec.FirstSeen = seen
		rec.LastSeen = seen
		rec.LastScanID = sessionID

		snap.Devices.Add(domain.IPNamePrefix+strings.ReplaceAll(rec.PrimaryIP, ".", "_"), rec)
	}

	session := domain.Session{
		"session_id":    sessionID,
		"scanner":       "nmap",
		"devices_found": snap.Devices.Len(),
	}
	if seen != "" {
		session["timestamp"] = seen
	}
	if run.Args != "" {
		session["args"] = run.Args
	}
	if run.Version != "" {
		session["scanner_version"] = run.Version
	}
	snap.Sessions = []domain.Session{session}

	return snap
}

// hostRecord maps one nmap host onto a device record
func hostRecord(host nmap.Host) *domain.DeviceRecord {
	rec := &domain.DeviceRecord{DetectionMethod: nmapDetection}

	var v4, v6 []string
	for _, addr := range host.Addresses {
		switch addr.AddrType {
		case "ipv4":
			v4 = append(v4, addr.Addr)
		case "ipv6":
			v6 = append(v6, addr.Addr)
		case "mac":
			rec.MACs = append(rec.MACs, addr.Addr)
			if rec.Vendor == "" && addr.Vendor != "" {
				rec.Vendor = addr.Vendor
			}
		}
	}
	switch {
	case len(v4) > 0:
		rec.PrimaryIP = v4[0]
	case len(v6) > 0:
		rec.PrimaryIP = v6[0]
	}
	rec.AllIPs = append(v4, v6...)

	if len(host.Hostnames) > 0 {
		rec.SysName = host.Hostnames[0].Name
	}

	// Use first (best) OS match
	if len(host.OS.Matches) > 0 {
		match := host.OS.Matches[0]
		rec.OSVersion = match.Name
		rec.ConfidenceScore = int(match.Accuracy)
		rec.DetectionMethod = nmapOSDetection
		for _, class := range match.Classes {
			if rec.DeviceType == "" && class.Type != "" {
				rec.DeviceType = class.Type
			}
			if rec.Vendor == "" && class.Vendor != "" {
				rec.Vendor = class.Vendor
			}
		}
	}

	return rec
}
