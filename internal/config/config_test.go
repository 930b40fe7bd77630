package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "")

	cfg, err := Load(zap.NewNop(), path)
	require.NoError(t, err)

	assert.Equal(t, "org.mpris.MediaPlayer2.", cfg.GetBusPrefix())
	assert.Equal(t, defaultPreferredPlayers, cfg.GetPreferredPlayers())
	assert.True(t, cfg.GetReconcileOnStart())
	assert.Equal(t, 3*time.Second, cfg.GetQueryTimeout())
	assert.Equal(t, 3*time.Second, cfg.GetCommandTimeout())
	assert.Equal(t, 100*time.Millisecond, cfg.GetRefreshDelay())
	assert.Equal(t, 96, cfg.GetArtSize())
	assert.Equal(t, 500*time.Millisecond, cfg.GetArtDebounce())
	assert.Equal(t, "info", cfg.GetLogLevel())
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
preferred_players:
  - org.mpris.MediaPlayer2.mpv
reconcile_on_start: false
query_timeout: 1500ms
art_size: 128
`)

	cfg, err := Load(zap.NewNop(), path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.GetLogLevel())
	assert.Equal(t, []string{"org.mpris.MediaPlayer2.mpv"}, cfg.GetPreferredPlayers())
	assert.False(t, cfg.GetReconcileOnStart())
	assert.Equal(t, 1500*time.Millisecond, cfg.GetQueryTimeout())
	assert.Equal(t, 128, cfg.GetArtSize())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "query_timeout: 1s\n")
	t.Setenv("WIDGET_QUERY_TIMEOUT", "7s")
	t.Setenv("WIDGET_REFRESH_DELAY", "250ms")

	cfg, err := Load(zap.NewNop(), path)
	require.NoError(t, err)

	assert.Equal(t, 7*time.Second, cfg.GetQueryTimeout())
	assert.Equal(t, 250*time.Millisecond, cfg.GetRefreshDelay())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "Empty Prefix", body: "bus_prefix: \"\"\n"},
		{name: "Zero Query Timeout", body: "query_timeout: 0s\n"},
		{name: "Negative Art Size", body: "art_size: -1\n"},
		{name: "Broken YAML", body: "art_size: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(zap.NewNop(), writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestDefault_MatchesLoad(t *testing.T) {
	loaded, err := Load(zap.NewNop(), writeConfig(t, ""))
	require.NoError(t, err)

	def := Default(zap.NewNop())
	assert.Equal(t, loaded.GetPreferredPlayers(), def.GetPreferredPlayers())
	assert.Equal(t, loaded.GetQueryTimeout(), def.GetQueryTimeout())
	assert.Equal(t, loaded.GetArtDebounce(), def.GetArtDebounce())
}
