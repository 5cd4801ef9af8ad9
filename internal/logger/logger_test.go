package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/investigate/case-graph/internal/config"
)

func TestNew_LevelFallback(t *testing.T) {
	log, err := New(config.LoggingConfig{Level: "nonsense", Format: "json"})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))

	log, err = New(config.LoggingConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestWithComponent(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	WithComponent(zap.New(core), "resolver").Info("hello")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "resolver", logs.All()[0].ContextMap()["component"])
}
