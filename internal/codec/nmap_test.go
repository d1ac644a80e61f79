package codec

import (
	"strings"
	"testing"

	nmap "github.com/Ullaakut/nmap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netcensus/internal/domain"
)

const nmapXML = `<?xml version="1.0" encoding="UTF-8"?>
<nmaprun scanner="nmap" args="nmap -O -oX - 10.0.0.0/24" start="1735725600" version="7.94" xmloutputversion="1.05">
<host starttime="1735725600" endtime="1735725660">
<status state="up" reason="arp-response"/>
<address addr="10.0.0.5" addrtype="ipv4"/>
<address addr="AA:BB:CC:DD:EE:01" addrtype="mac" vendor="Cisco Systems"/>
<hostnames><hostname name="core-sw1.lab" type="PTR"/></hostnames>
<os>
<osmatch name="Cisco IOS 15.X" accuracy="96" line="1">
<osclass type="switch" vendor="Cisco" osfamily="IOS" osgen="15.X" accuracy="96"/>
</osmatch>
</os>
</host>
<host>
<status state="down" reason="no-response"/>
<address addr="10.0.0.6" addrtype="ipv4"/>
</host>
<host>
<status state="up" reason="syn-ack"/>
<address addr="10.0.0.7" addrtype="ipv4"/>
</host>
</nmaprun>`

func TestNmapDecode(t *testing.T) {
	snap, err := NewNmapCodec().Decode(strings.NewReader(nmapXML))
	require.NoError(t, err)

	assert.Equal(t, domain.ProvenanceLowerTrust, snap.Provenance)
	require.Equal(t, 2, snap.Devices.Len())
	assert.Equal(t, "ip_10_0_0_5", snap.Devices[0].Key)
	assert.Equal(t, "ip_10_0_0_7", snap.Devices[1].Key)

	sw := snap.Devices[0].Record
	assert.Equal(t, "10.0.0.5", sw.PrimaryIP)
	assert.Equal(t, "core-sw1.lab", sw.SysName)
	assert.Equal(t, []string{"10.0.0.5"}, sw.AllIPs)
	assert.Equal(t, []string{"AA:BB:CC:DD:EE:01"}, sw.MACs)
	assert.Equal(t, "Cisco Systems", sw.Vendor)
	assert.Equal(t, "switch", sw.DeviceType)
	assert.Equal(t, "Cisco IOS 15.X", sw.OSVersion)
	assert.Equal(t, 96, sw.ConfidenceScore)
	assert.Equal(t, "nmap_os_match", sw.DetectionMethod)
	assert.Equal(t, 1, sw.ScanCount)
	assert.Equal(t, "2025-01-01T10:00:00Z", sw.LastSeen)
	assert.Equal(t, "nmap-20250101T100000Z", sw.LastScanID)

	bare := snap.Devices[1].Record
	assert.Equal(t, "nmap", bare.DetectionMethod)
	assert.Empty(t, bare.SysName)

	require.Len(t, snap.Sessions, 1)
	session := snap.Sessions[0]
	assert.Equal(t, "2025-01-01T10:00:00Z", session.Timestamp())
	assert.Equal(t, 2, session["devices_found"])
	assert.Equal(t, "7.94", session["scanner_version"])
}

func TestNmapDecodeMalformed(t *testing.T) {
	_, err := NewNmapCodec().Decode(strings.NewReader("<nmaprun><host>"))
	assert.Error(t, err)
}

func TestNmapFromRunIPv6Only(t *testing.T) {
	run := &nmap.Run{
		Hosts: []nmap.Host{
			{
				Addresses: []nmap.Address{{Addr: "fe80::1", AddrType: "ipv6"}},
				Status:    nmap.Status{State: "up"},
			},
			{
				Addresses: []nmap.Address{{Addr: "AA:BB:CC:DD:EE:02", AddrType: "mac"}},
				Status:    nmap.Status{State: "up"},
			},
		},
	}

	snap := NewNmapCodec().FromRun(run)

	require.Equal(t, 1, snap.Devices.Len())
	assert.Equal(t, "fe80::1", snap.Devices[0].Record.PrimaryIP)
	assert.Empty(t, snap.Devices[0].Record.LastSeen)
	assert.Equal(t, "nmap", snap.Sessions[0]["session_id"])
}
