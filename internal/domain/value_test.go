package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		field   Field
		raw     string
		want    string
		present bool
	}{
		{"empty", FieldVendor, "", "", false},
		{"whitespace", FieldVendor, "   ", "", false},
		{"none lower", FieldVendor, "none", "", false},
		{"none mixed case", FieldVendor, "NoNe", "", false},
		{"nil sentinel", FieldVendor, "<nil>", "", false},
		{"padded sentinel", FieldVendor, " <nil> ", "", false},
		{"value trimmed", FieldVendor, "  cisco ", "cisco", true},
		{"case kept", FieldSysName, "Core-SW1", "Core-SW1", true},
		{"mac lower-cased", FieldMAC, "AA:BB:CC:DD:EE:FF", "aa:bb:cc:dd:ee:ff", true},
		{"none as substring is present", FieldModel, "nonexistent", "nonexistent", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.field, tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.present, ok)
			assert.Equal(t, !tt.present, IsAbsent(tt.raw))
		})
	}
}

func TestFillMissing(t *testing.T) {
	assert.Equal(t, "cisco", FillMissing(FieldVendor, "cisco", "juniper"))
	assert.Equal(t, "juniper", FillMissing(FieldVendor, "<nil>", "juniper"))
	assert.Equal(t, "", FillMissing(FieldVendor, "none", "<nil>"))
}

func TestHostKey(t *testing.T) {
	assert.Equal(t, "core-sw1", HostKey(" Core-SW1 "))
	assert.Equal(t, "", HostKey("None"))
}

func TestIsSyntheticName(t *testing.T) {
	assert.True(t, IsSyntheticName("ip_10_0_0_5"))
	assert.False(t, IsSyntheticName("core-sw1"))
	assert.False(t, IsSyntheticName("ipam-01"))
}
