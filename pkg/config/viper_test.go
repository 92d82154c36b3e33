package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	v, err := Load(t.TempDir(), "does-not-exist")
	require.NoError(t, err)

	SetDefaults(v, map[string]any{"server.port": 8090})
	assert.Equal(t, 8090, v.GetInt("server.port"))
}

func TestLoad_ReadsYAMLFile(t *testing.T) {
	dir := t.TempDir()
	body := []byte("server:\n  port: 9001\nlive:\n  default_title: Evening show\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "relay.yaml"), body, 0o600))

	v, err := Load(dir, "relay")
	require.NoError(t, err)

	assert.Equal(t, 9001, v.GetInt("server.port"))
	assert.Equal(t, "Evening show", v.GetString("live.default_title"))
}

func TestBindEnvs_OverridesDefault(t *testing.T) {
	t.Setenv("RELAY_TEST_PORT", "7777")

	v, err := Load(t.TempDir(), "none")
	require.NoError(t, err)
	SetDefaults(v, map[string]any{"server.port": 8090})
	require.NoError(t, BindEnvs(v, map[string]string{"server.port": "RELAY_TEST_PORT"}))

	assert.Equal(t, 7777, v.GetInt("server.port"))
}

func TestDuration(t *testing.T) {
	v, err := Load(t.TempDir(), "none")
	require.NoError(t, err)
	SetDefaults(v, map[string]any{
		"ok":       "45s",
		"bad":      "soon",
		"negative": "-3s",
	})

	assert.Equal(t, 45*time.Second, Duration(v, "ok", time.Second))
	assert.Equal(t, time.Second, Duration(v, "bad", time.Second))
	assert.Equal(t, time.Second, Duration(v, "negative", time.Second))
	assert.Equal(t, 2*time.Minute, Duration(v, "missing", 2*time.Minute))
}
