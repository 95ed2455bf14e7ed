package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestBuild_WritesToFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "filegirl.log")

	l, err := Build(&LogConfig{
		Level:      "info",
		OutputPath: logPath,
		MaxSize:    1,
		EnableJSON: true,
	})
	require.NoError(t, err)

	l.Info("Monitoring directory", zap.String("dir", "/var/www/html"))
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"Monitoring directory"`)
	assert.Contains(t, string(data), `"dir":"/var/www/html"`)
}

func TestBuild_LevelFiltering(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "filegirl.log")

	l, err := Build(&LogConfig{Level: "warn", OutputPath: logPath})
	require.NoError(t, err)

	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))
}

func TestBuild_InvalidLevelFallsBackToInfo(t *testing.T) {
	l, err := Build(&LogConfig{Level: "chatty"})
	require.NoError(t, err)

	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestInitializeAndGet(t *testing.T) {
	require.NoError(t, Initialize(&LogConfig{Level: "error"}))

	assert.False(t, Get().Core().Enabled(zapcore.WarnLevel))
	assert.NotNil(t, ForDirectory(nil, "/srv/www"))
}
