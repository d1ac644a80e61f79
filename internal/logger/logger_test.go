package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriterLevels(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantDebug bool
		wantInfo  bool
	}{
		{"default", Config{}, false, true},
		{"debug flag", Config{Debug: true}, true, true},
		{"warn level", Config{Level: "warn"}, false, false},
		{"debug flag overrides level", Config{Level: "error", Debug: true}, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l, err := NewWithWriter(tt.cfg, &buf)
			require.NoError(t, err)

			l.Debug().Msg("debug line")
			assert.Equal(t, tt.wantDebug, bytes.Contains(buf.Bytes(), []byte("debug line")))

			buf.Reset()
			l.Info().Msg("info line")
			assert.Equal(t, tt.wantInfo, bytes.Contains(buf.Bytes(), []byte("info line")))
		})
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(Config{}, &buf)
	require.NoError(t, err)

	cl := WithComponent(l, "loader")
	cl.Info().Str("file", "a.json").Msg("loaded snapshot")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "loader", line["component"])
	assert.Equal(t, "a.json", line["file"])
	assert.Equal(t, "loaded snapshot", line["message"])
	assert.Equal(t, "info", line["level"])
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)

	_, err = New(Config{Output: "syslog"})
	assert.Error(t, err)

	_, err = New(Config{Format: "xml"})
	assert.Error(t, err)
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(Config{Format: FormatConsole}, &buf)
	require.NoError(t, err)

	l.Info().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
	assert.NotContains(t, buf.String(), `"message"`)
}
