package sqlite

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netcensus/internal/domain"
	"netcensus/internal/repository"
)

// ============================================================================
// Test Helpers
// ============================================================================

// newTestRepo creates an in-memory SQLite repository for testing
func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.Close()
	})
	return repo
}

var baseTime = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func testRun(id string, offset time.Duration, devices ...*domain.DeviceRecord) *domain.Run {
	inv := &domain.Inventory{
		Version:     domain.DefaultInventoryVersion,
		LastUpdated: baseTime.Add(offset).Format(time.RFC3339),
		Devices:     make(map[string]*domain.DeviceRecord, len(devices)),
		Sessions:    []domain.Session{},
		MergeInfo:   &domain.MergeInfo{RunID: id},
	}
	for _, d := range devices {
		inv.Devices[d.ID] = d
	}
	inv.TotalDevices = len(inv.Devices)

	return &domain.Run{
		ID:            id,
		StartedAt:     baseTime.Add(offset),
		FinishedAt:    baseTime.Add(offset + 250*time.Millisecond),
		InputDigest:   "digest-" + id,
		SnapshotCount: 2,
		Inventory:     inv,
	}
}

func device(id, ip, vendor, deviceType string) *domain.DeviceRecord {
	return &domain.DeviceRecord{
		ID:         id,
		PrimaryIP:  ip,
		AllIPs:     []string{ip},
		MACs:       []string{},
		Vendor:     vendor,
		DeviceType: deviceType,
		ScanCount:  1,
	}
}

// ============================================================================
// Helper Function Tests
// ============================================================================

func TestNullToString(t *testing.T) {
	tests := []struct {
		name     string
		input    sql.NullString
		expected string
	}{
		{"valid", sql.NullString{String: "x", Valid: true}, "x"},
		{"invalid", sql.NullString{String: "x"}, ""},
		{"empty", sql.NullString{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, nullToString(tt.input))
		})
	}
}

func TestStringToNull(t *testing.T) {
	assert.False(t, stringToNull("").Valid)
	assert.Equal(t, sql.NullString{String: "a", Valid: true}, stringToNull("a"))
}

func TestTimeRoundTripSortsLexically(t *testing.T) {
	whole := formatTime(baseTime)
	fractional := formatTime(baseTime.Add(500 * time.Millisecond))
	assert.Less(t, whole, fractional)

	parsed, err := parseTime(fractional)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(baseTime.Add(500*time.Millisecond)))

	parsed, err = parseTime("2025-03-14T12:00:00Z")
	require.NoError(t, err)
	assert.True(t, parsed.Equal(baseTime))
}

// ============================================================================
// Run Tests
// ============================================================================

func TestSaveAndGetRun(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	run := testRun("run-1", 0,
		device("core-sw1", "10.0.0.1", "Cisco", "switch"),
		device("ip_10_0_0_9", "10.0.0.9", "", ""),
	)
	run.Rejected = []string{"broken.json: unexpected EOF"}
	require.NoError(t, repo.SaveRun(ctx, run))

	got, err := repo.GetRun(ctx, "run-1")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "run-1", got.ID)
	assert.True(t, got.StartedAt.Equal(run.StartedAt))
	assert.Equal(t, 250*time.Millisecond, got.Duration())
	assert.Equal(t, "digest-run-1", got.InputDigest)
	assert.Equal(t, 2, got.SnapshotCount)
	assert.Equal(t, 2, got.TotalDevices)
	assert.Equal(t, []string{"broken.json: unexpected EOF"}, got.Rejected)

	require.NotNil(t, got.Inventory)
	assert.Equal(t, []string{"core-sw1", "ip_10_0_0_9"}, got.Inventory.DeviceIDs())
	assert.Equal(t, "Cisco", got.Inventory.Devices["core-sw1"].Vendor)
	assert.Equal(t, "run-1", got.Inventory.MergeInfo.RunID)
}

func TestGetRunNotFound(t *testing.T) {
	repo := newTestRepo(t)

	got, err := repo.GetRun(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSaveRunRejectsIncompleteRuns(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	assert.Error(t, repo.SaveRun(ctx, nil))
	assert.Error(t, repo.SaveRun(ctx, &domain.Run{ID: "x"}))

	run := testRun("", 0)
	assert.Error(t, repo.SaveRun(ctx, run))
}

func TestSaveRunDuplicateIDIsAtomic(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveRun(ctx, testRun("run-1", 0, device("a", "10.0.0.1", "", ""))))
	err := repo.SaveRun(ctx, testRun("run-1", time.Minute, device("b", "10.0.0.2", "", "")))
	require.Error(t, err)

	devices, err := repo.ListDevices(ctx, repository.DeviceFilter{})
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "a", devices[0].ID)
}

func TestLatestRun(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	latest, err := repo.LatestRun(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	require.NoError(t, repo.SaveRun(ctx, testRun("old", 0)))
	require.NoError(t, repo.SaveRun(ctx, testRun("new", time.Hour)))
	require.NoError(t, repo.SaveRun(ctx, testRun("middle", time.Minute)))

	latest, err = repo.LatestRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "new", latest.ID)
	assert.NotNil(t, latest.Inventory)
}

func TestListRuns(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	runs, err := repo.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, runs)

	for i, id := range []string{"r1", "r2", "r3"} {
		require.NoError(t, repo.SaveRun(ctx, testRun(id, time.Duration(i)*time.Minute)))
	}

	runs, err = repo.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "r3", runs[0].ID)
	assert.Equal(t, "r1", runs[2].ID)
	for _, run := range runs {
		assert.Nil(t, run.Inventory, "listings carry no document")
	}

	runs, err = repo.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

// ============================================================================
// Device Tests
// ============================================================================

func TestListDevicesUsesLatestRun(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveRun(ctx, testRun("r1", 0,
		device("stale", "10.0.0.50", "HP", "printer"),
	)))
	require.NoError(t, repo.SaveRun(ctx, testRun("r2", time.Minute,
		device("core-sw1", "10.0.0.1", "Cisco", "switch"),
		device("edge-sw2", "10.0.0.2", "cisco", "switch"),
		device("fw1", "10.0.0.254", "Fortinet", "firewall"),
	)))

	tests := []struct {
		name     string
		filter   repository.DeviceFilter
		expected []string
	}{
		{"all", repository.DeviceFilter{}, []string{"core-sw1", "edge-sw2", "fw1"}},
		{"vendor ignores case", repository.DeviceFilter{Vendor: "CISCO"}, []string{"core-sw1", "edge-sw2"}},
		{"type", repository.DeviceFilter{DeviceType: "firewall"}, []string{"fw1"}},
		{"vendor and type", repository.DeviceFilter{Vendor: "cisco", DeviceType: "firewall"}, []string{}},
		{"limit", repository.DeviceFilter{Limit: 1}, []string{"core-sw1"}},
		{"old run hidden", repository.DeviceFilter{Vendor: "HP"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			devices, err := repo.ListDevices(ctx, tt.filter)
			require.NoError(t, err)
			ids := make([]string, 0, len(devices))
			for _, d := range devices {
				ids = append(ids, d.ID)
			}
			assert.Equal(t, tt.expected, ids)
		})
	}
}

func TestGetDevice(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	got, err := repo.GetDevice(ctx, "core-sw1")
	require.NoError(t, err)
	assert.Nil(t, got)

	sw := device("core-sw1", "10.0.0.1", "Cisco", "switch")
	sw.SNMPByIP = domain.SNMPData{"10.0.0.1": {domain.OIDSysName: "core-sw1"}}
	require.NoError(t, repo.SaveRun(ctx, testRun("r1", 0, sw)))

	got, err = repo.GetDevice(ctx, "core-sw1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "10.0.0.1", got.PrimaryIP)
	assert.Equal(t, "core-sw1", got.SNMPByIP["10.0.0.1"][domain.OIDSysName])

	got, err = repo.GetDevice(ctx, "fw1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
