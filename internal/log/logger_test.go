package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureJSON(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "test", JSON: true})
	t.Cleanup(func() { Configure(Config{}) })

	l := WithComponent("makefile")
	l.Debug().Str("path", "/tmp/Makefile").Msg("flags enabled")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "test", entry["service"])
	assert.Equal(t, "makefile", entry["component"])
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "flags enabled", entry["message"])
}

func TestConfigureLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "warn", Output: &buf, JSON: true})
	t.Cleanup(func() { Configure(Config{}) })

	l := Base()
	l.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	l.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestConfigureDefaultLevelIgnoresEnv(t *testing.T) {
	t.Setenv("EPOCH_LOG_LEVEL", "debug")
	var buf bytes.Buffer
	Configure(Config{Output: &buf, JSON: true})
	t.Cleanup(func() { Configure(Config{}) })

	l := Base()
	l.Info().Msg("hidden")
	assert.Zero(t, buf.Len(), "level comes from Config only")

	l.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestInvocationID(t *testing.T) {
	assert.Empty(t, InvocationIDFromContext(context.Background()))

	ctx := ContextWithInvocationID(context.Background())
	id := InvocationIDFromContext(ctx)
	_, err := uuid.Parse(id)
	require.NoError(t, err)

	var buf bytes.Buffer
	Configure(Config{Level: "info", Output: &buf, JSON: true})
	t.Cleanup(func() { Configure(Config{}) })

	l := FromContext(ctx, "build")
	l.Info().Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, id, entry["invocation_id"])
	assert.Equal(t, "build", entry["component"])
}
