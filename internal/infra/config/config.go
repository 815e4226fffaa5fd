// Package config provides configuration loading from YAML files.
package config

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/clubhundred/club100/internal/app/game"
)

// ErrUnknownMode is returned when a mode name is not configured.
var ErrUnknownMode = errors.New("unknown game mode")

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Admin    AdminConfig    `yaml:"admin"`
	Game     GameConfig     `yaml:"game"`
	Playback PlaybackConfig `yaml:"playback"`
	Spotify  SpotifyConfig  `yaml:"spotify"`
}

// ServerConfig represents HTTP server configuration.
type ServerConfig struct {
	Addr string `yaml:"addr" default:":8000"`
	// Origins allowed by CORS; the defaults cover the common local
	// frontend dev servers the game UI runs on.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// AdminConfig represents the optional control-endpoint guard. When the
// token is empty, mutating endpoints are open (personal use).
type AdminConfig struct {
	Token string `yaml:"token"`
}

// GameConfig represents game mode configuration. Modes are free-form
// settings maps decoded and validated by game.DecodeMode.
type GameConfig struct {
	DefaultMode string                    `yaml:"default_mode" default:"normal"`
	Modes       map[string]map[string]any `yaml:"modes"`
}

// PlaybackConfig represents playback device configuration.
type PlaybackConfig struct {
	// Device is the default device name or ID; a start request may
	// override it.
	Device string `yaml:"device"`
	// Device resolution polls the Spotify device registry; a freshly
	// opened Web Playback SDK player takes a few seconds to register.
	ResolveAttempts int `yaml:"resolve_attempts" default:"5" validate:"gte=1,lte=30"`
	ResolveDelayMs  int `yaml:"resolve_delay_ms" default:"1000" validate:"gte=100,lte=10000"`
}

// SpotifyConfig represents Spotify API configuration.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id" validate:"required"`
	ClientSecret string `yaml:"client_secret" validate:"required"`
	RefreshToken string `yaml:"refresh_token" validate:"required"`
	Market       string `yaml:"market" validate:"omitempty,len=2" default:"US"`
}

// Load loads configuration from a YAML file. Environment variables
// take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	cfg.applyBuiltins()

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("SPOTIFY_REFRESH_TOKEN"); v != "" {
		c.Spotify.RefreshToken = v
	}
	if v := os.Getenv("ADMIN_TOKEN"); v != "" {
		c.Admin.Token = v
	}
	if v := os.Getenv("MARKET"); v != "" {
		c.Spotify.Market = v
	}
}

// applyBuiltins fills in the built-in game modes and CORS origins when
// the config file does not define them.
func (c *Config) applyBuiltins() {
	if c.Game.Modes == nil {
		c.Game.Modes = map[string]map[string]any{}
	}
	if _, ok := c.Game.Modes["normal"]; !ok {
		c.Game.Modes["normal"] = map[string]any{"rounds": 100, "interval_ms": 60000}
	}
	if _, ok := c.Game.Modes["test"]; !ok {
		c.Game.Modes["test"] = map[string]any{"rounds": 20, "interval_ms": 10000}
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{
			"http://localhost:3000",
			"http://localhost:5173",
			"http://127.0.0.1:3000",
			"http://127.0.0.1:5173",
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	// Every mode must decode, including the default one.
	if _, ok := c.Game.Modes[c.Game.DefaultMode]; !ok {
		return errors.Newf("default mode %q is not defined", c.Game.DefaultMode)
	}
	for name, settings := range c.Game.Modes {
		if _, err := game.DecodeMode(settings); err != nil {
			return errors.Wrapf(err, "mode %q", name)
		}
	}

	return nil
}

// Mode resolves a mode by name, falling back to the default mode when
// name is empty.
func (c *Config) Mode(name string) (game.Mode, error) {
	if name == "" {
		name = c.Game.DefaultMode
	}
	settings, ok := c.Game.Modes[name]
	if !ok {
		return game.Mode{}, errors.Wrapf(ErrUnknownMode, "%q", name)
	}
	return game.DecodeMode(settings)
}

// ModeNames returns the configured mode names.
func (c *Config) ModeNames() []string {
	names := make([]string, 0, len(c.Game.Modes))
	for name := range c.Game.Modes {
		names = append(names, name)
	}
	return names
}
