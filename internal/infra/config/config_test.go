package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSpotify() SpotifyConfig {
	return SpotifyConfig{
		ClientID:     "test-client-id",
		ClientSecret: "test-client-secret",
		RefreshToken: "test-refresh-token",
		Market:       "US",
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
spotify:
  client_id: id
  client_secret: secret
  refresh_token: token
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, "US", cfg.Spotify.Market)
	assert.Equal(t, "normal", cfg.Game.DefaultMode)
	assert.NotEmpty(t, cfg.Server.AllowedOrigins)
	assert.Equal(t, 5, cfg.Playback.ResolveAttempts)

	// Built-in modes are present and decode properly.
	normal, err := cfg.Mode("normal")
	require.NoError(t, err)
	assert.Equal(t, 100, normal.Rounds)
	assert.Equal(t, time.Minute, normal.SchedulerConfig().Interval)

	test, err := cfg.Mode("test")
	require.NoError(t, err)
	assert.Equal(t, 20, test.Rounds)
	assert.Equal(t, 10000, test.IntervalMs)
}

func TestLoad_MissingCredentials(t *testing.T) {
	path := writeConfig(t, `
spotify:
  client_id: id
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SPOTIFY_CLIENT_SECRET", "env-secret")
	t.Setenv("SPOTIFY_REFRESH_TOKEN", "env-token")

	path := writeConfig(t, `
spotify:
  client_id: id
  client_secret: file-secret
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-secret", cfg.Spotify.ClientSecret)
	assert.Equal(t, "env-token", cfg.Spotify.RefreshToken)
}

func TestLoad_CustomMode(t *testing.T) {
	path := writeConfig(t, `
game:
  default_mode: warmup
  modes:
    warmup:
      rounds: 10
      interval_ms: 5000
spotify:
  client_id: id
  client_secret: secret
  refresh_token: token
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	mode, err := cfg.Mode("")
	require.NoError(t, err)
	assert.Equal(t, 10, mode.Rounds)
	assert.Equal(t, 5000, mode.IntervalMs)

	_, err = cfg.Mode("nonexistent")
	assert.Error(t, err)
}

func TestLoad_InvalidMode(t *testing.T) {
	path := writeConfig(t, `
game:
  modes:
    broken:
      rounds: 0
spotify:
  client_id: id
  client_secret: secret
  refresh_token: token
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_UnknownDefaultMode(t *testing.T) {
	path := writeConfig(t, `
game:
  default_mode: missing
spotify:
  client_id: id
  client_secret: secret
  refresh_token: token
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestConfig_Validate_Market(t *testing.T) {
	cfg := Config{Spotify: validSpotify(), Game: GameConfig{DefaultMode: "normal"}}
	cfg.applyBuiltins()
	cfg.Playback = PlaybackConfig{ResolveAttempts: 5, ResolveDelayMs: 1000}
	require.NoError(t, cfg.Validate())

	cfg.Spotify.Market = "USA"
	assert.Error(t, cfg.Validate())
}
