package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"netcensus/internal/domain"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		record   domain.DeviceRecord
		wantKey  string
		wantID   string
		wantName string
	}{
		{
			name:     "real hostname",
			record:   domain.DeviceRecord{PrimaryIP: "10.0.0.1", SysName: "core-sw1"},
			wantKey:  "hostname_core-sw1",
			wantID:   "core-sw1",
			wantName: "core-sw1",
		},
		{
			name:     "hostname key is case folded, id keeps case",
			record:   domain.DeviceRecord{PrimaryIP: "10.0.0.1", SysName: " Core-SW1 "},
			wantKey:  "hostname_core-sw1",
			wantID:   "Core-SW1",
			wantName: "Core-SW1",
		},
		{
			name:    "name equal to address",
			record:  domain.DeviceRecord{PrimaryIP: "10.0.0.5", SysName: "10.0.0.5"},
			wantKey: "ip_10.0.0.5",
			wantID:  "ip_10_0_0_5",
		},
		{
			name:    "synthetic name",
			record:  domain.DeviceRecord{PrimaryIP: "10.0.0.5", SysName: "ip_10_0_0_5"},
			wantKey: "ip_10.0.0.5",
			wantID:  "ip_10_0_0_5",
		},
		{
			name:    "sentinel name",
			record:  domain.DeviceRecord{PrimaryIP: "10.0.0.5", SysName: "<nil>"},
			wantKey: "ip_10.0.0.5",
			wantID:  "ip_10_0_0_5",
		},
		{
			name: "sysName promoted from SNMP data",
			record: domain.DeviceRecord{
				PrimaryIP: "10.0.0.5",
				SNMPByIP: domain.SNMPData{
					"10.0.0.5": {domain.OIDSysName: "10.0.0.5"},
					"10.0.0.6": {domain.OIDSysName: "dist-rtr2"},
				},
			},
			wantKey:  "hostname_dist-rtr2",
			wantID:   "dist-rtr2",
			wantName: "dist-rtr2",
		},
		{
			name: "synthetic SNMP names are skipped",
			record: domain.DeviceRecord{
				PrimaryIP: "10.0.0.5",
				SNMPByIP: domain.SNMPData{
					"10.0.0.5": {domain.OIDSysName: "ip_10_0_0_5"},
					"10.0.0.6": {domain.OIDSysName: "none"},
				},
			},
			wantKey: "ip_10.0.0.5",
			wantID:  "ip_10_0_0_5",
		},
		{
			name:    "no address falls back to record id",
			record:  domain.DeviceRecord{ID: "printer-lobby"},
			wantKey: "id_printer-lobby",
			wantID:  "printer-lobby",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := tt.record.Clone()
			id, out := Resolve(&tt.record)

			assert.Equal(t, tt.wantKey, id.DedupKey)
			assert.Equal(t, tt.wantID, id.CanonicalID)
			assert.Equal(t, tt.wantName, id.Hostname)
			assert.Equal(t, tt.wantName != "", id.IsHostname())
			if tt.wantName != "" {
				assert.Equal(t, tt.wantName, out.SysName)
			}
			assert.Equal(t, input, &tt.record, "input must not be modified")
		})
	}
}

func TestIPDeviceID(t *testing.T) {
	assert.Equal(t, "ip_192_168_1_10", IPDeviceID("192.168.1.10"))
}
