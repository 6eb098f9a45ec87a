package logging_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/manyblack/studio/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriters_FansOut(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := logging.NewWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Info("catalog reset", "catalog", "automations", "error", errors.New("boom"))
	logger.Debug("hidden")

	assert.Contains(t, stderr.String(), "catalog reset")
	assert.Contains(t, stderr.String(), "err=boom")
	assert.NotContains(t, stderr.String(), "hidden")

	var line map[string]any
	require.NoError(t, json.Unmarshal(file.Bytes(), &line))
	assert.Equal(t, "catalog reset", line["msg"])
	assert.Equal(t, "boom", line["err"])
}

func TestNewWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "studio.log")
	logger, cleanup, err := logging.NewWithFile(path, slog.LevelDebug)
	require.NoError(t, err)

	logger.Debug("hello")
	require.NoError(t, cleanup())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}

func TestNewWithFile_FallsBack(t *testing.T) {
	logger, cleanup, err := logging.NewWithFile(filepath.Join(t.TempDir(), "missing", "x.log"), slog.LevelInfo)
	assert.Error(t, err)
	assert.NotNil(t, logger)
	assert.NoError(t, cleanup())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, logging.ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, logging.ParseLevel("WARN"))
	assert.Equal(t, slog.LevelInfo, logging.ParseLevel("loud"))
}
