package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	config "github.com/thirdweb-dev/eth-ingest/configs"
)

func TestLevel(t *testing.T) {
	tests := []struct {
		name  string
		want  zerolog.Level
		known bool
	}{
		{"", zerolog.InfoLevel, true},
		{"debug", zerolog.DebugLevel, true},
		{" WARN ", zerolog.WarnLevel, true},
		{"trace", zerolog.TraceLevel, true},
		{"verbose", zerolog.InfoLevel, false},
	}
	for _, tt := range tests {
		level, known := Level(tt.name)
		assert.Equal(t, tt.want, level, tt.name)
		assert.Equal(t, tt.known, known, tt.name)
	}
}

func TestNewWritesJSONWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, config.LogConfig{Level: "warn"})

	logger.Info().Msg("dropped")
	assert.Zero(t, buf.Len())

	logger.Warn().Uint64("block", 23732687).Msg("kept")
	var event map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &event))
	assert.Equal(t, "eth-ingest", event["component"])
	assert.Equal(t, "warn", event["level"])
	assert.Equal(t, "kept", event["message"])
	assert.Equal(t, float64(23732687), event["block"])
	assert.Contains(t, event, "time")
	assert.Contains(t, event["caller"], "logger_test.go")
}

func TestNewPrettify(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, config.LogConfig{Prettify: true})

	logger.Info().Str("table", "crypto_ethereum.transactions").Msg("Load job done")
	out := buf.String()
	require.NotEmpty(t, out)
	assert.NotEqual(t, byte('{'), out[0])
	assert.Contains(t, out, "Load job done")
	assert.Contains(t, out, "table=")
	assert.Contains(t, out, "crypto_ethereum.transactions")
}
