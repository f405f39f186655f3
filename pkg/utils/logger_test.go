package utils

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_FileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "portal.log")
	logger, err := NewLogger(LoggerConfig{Level: "info", OutputPath: path, Format: "json", Service: "kisan-portal"})
	require.NoError(t, err)

	logger.Debug("dropped below level")
	logger.Info("Submission created", zap.String("reference_id", "KA-REG-1"))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &entry), "exactly one JSON line")
	assert.Equal(t, "Submission created", entry["msg"])
	assert.Equal(t, "KA-REG-1", entry["reference_id"])
	assert.Equal(t, "kisan-portal", entry["service"])
	assert.Contains(t, entry, "timestamp")
}

func TestNewLogger_BadLevelFallsBackToInfo(t *testing.T) {
	logger, err := NewLogger(LoggerConfig{Level: "loud", OutputPath: "stderr", Format: "console"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestKVLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	kv := NewKVLogger(zap.New(core))

	kv.Info("Receipt requested", "reference_id", "KA-REG-1", "attempt", 2)
	kv.Error("Receipt failed", "error", errors.New("render: boom"), 42, "skipped", "dangling")

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)

	info := entries[0].ContextMap()
	assert.Equal(t, "KA-REG-1", info["reference_id"])
	assert.EqualValues(t, 2, info["attempt"])

	failed := entries[1].ContextMap()
	assert.Equal(t, "render: boom", failed["error"])
	assert.Len(t, failed, 1, "non-string keys and dangling keys are dropped")
}

func TestKVLogger_Nil(t *testing.T) {
	assert.NotPanics(t, func() { NewKVLogger(nil).Info("quiet") })
}
