package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"netcensus/internal/domain"
)

const (
	v2Scan = `{"version": "2.1.0", "devices": {"sw1": {"primary_ip": "10.0.0.1", "sys_name": "sw1", "vendor": "", "confidence_score": 90, "scan_count": 1}}}`
	v3Scan = `{"devices": {"sw1": {"primary_ip": "10.0.0.1", "sys_name": "sw1", "vendor": "Cisco", "confidence_score": 60, "scan_count": 2}}}`
)

func setup(t *testing.T) (dir, cfgPath string) {
	t.Helper()
	dir = t.TempDir()
	cfgPath = filepath.Join(t.TempDir(), "netcensus.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("version: 1\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "site_v2.json"), []byte(v2Scan), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "site_v3.json"), []byte(v3Scan), 0644))
	return dir, cfgPath
}

func TestRunWritesMergedFile(t *testing.T) {
	dir, cfgPath := setup(t)
	out := filepath.Join(dir, "merged.json")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{
		"-config", cfgPath, "-o", out,
		filepath.Join(dir, "site_v2.json"), filepath.Join(dir, "site_v3.json"),
	}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	var inv domain.Inventory
	require.NoError(t, json.Unmarshal(data, &inv))
	assert.Equal(t, 1, inv.TotalDevices)
	assert.Equal(t, "2.1.0", inv.Version)

	sw := inv.Devices["sw1"]
	require.NotNil(t, sw)
	// the v3 record outranks the higher confidence v2 one
	assert.Equal(t, 60, sw.ConfidenceScore)
	assert.Equal(t, "Cisco", sw.Vendor)
	assert.Equal(t, 3, sw.ScanCount)
	assert.Contains(t, stderr.String(), "merged scan files")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".merged.json.", "temporary file left behind")
	}
}

func TestRunTwiceIgnoresPreviousOutput(t *testing.T) {
	dir, cfgPath := setup(t)
	out := filepath.Join(dir, "merged_scan.json")

	for i := 0; i < 2; i++ {
		var stdout, stderr bytes.Buffer
		code := run(context.Background(), []string{"-config", cfgPath, "-o", out, dir}, &stdout, &stderr)
		require.Equal(t, exitOK, code, stderr.String())
	}

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	var inv domain.Inventory
	require.NoError(t, json.Unmarshal(data, &inv))
	assert.Equal(t, 3, inv.Devices["sw1"].ScanCount)
	assert.Len(t, inv.MergeInfo.SourceFiles, 2)
}

func TestRunWithoutTrustPreference(t *testing.T) {
	dir, cfgPath := setup(t)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{
		"-config", cfgPath, "-o", "-", "-no-trust-preference", dir,
	}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())

	var inv domain.Inventory
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &inv))
	assert.Equal(t, 90, inv.Devices["sw1"].ConfidenceScore)
	assert.Equal(t, "Cisco", inv.Devices["sw1"].Vendor)
}

func TestRunYAMLToStdout(t *testing.T) {
	dir, cfgPath := setup(t)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-config", cfgPath, "-o", "-", "-format", "yaml", dir}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(stdout.Bytes(), &doc))
	assert.Equal(t, 1, doc["total_devices"])
}

func TestRunExitCodes(t *testing.T) {
	dir, cfgPath := setup(t)
	empty := t.TempDir()

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no inputs", []string{"-config", cfgPath}, exitUsage},
		{"unknown flag", []string{"-config", cfgPath, "-bogus", dir}, exitUsage},
		{"bad format", []string{"-config", cfgPath, "-format", "xml", dir}, exitUsage},
		{"missing config", []string{"-config", filepath.Join(dir, "nope.yaml"), dir}, exitUsage},
		{"empty directory", []string{"-config", cfgPath, "-o", "-", empty}, exitError},
		{"missing file", []string{"-config", cfgPath, "-o", "-", filepath.Join(dir, "gone.json")}, exitError},
		{"help", []string{"-h"}, exitOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			assert.Equal(t, tt.want, run(context.Background(), tt.args, &stdout, &stderr))
		})
	}
}
