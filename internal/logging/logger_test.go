package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	logger, err := New(Config{Level: "debug"})
	require.NoError(t, err)
	require.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = New(Config{Level: "loud"})
	require.NoError(t, err)
	require.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	require.True(t, logger.Core().Enabled(zapcore.InfoLevel))
}

func TestNewJSONToFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "crop.log")

	logger, err := New(Config{Level: "info", Format: "json", Output: out})
	require.NoError(t, err)

	logger.Info("crop request finished")
	_ = logger.Sync()

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Contains(t, string(data), `"msg":"crop request finished"`)
	require.Contains(t, string(data), `"level":"info"`)
}
