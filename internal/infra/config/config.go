// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Catalog types
const (
	CatalogDirectory = "directory"
	CatalogSpotify   = "spotify"
)

// Handle modes of the directory catalog
const (
	HandleModeURL  = "url"
	HandleModePath = "path"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig            `yaml:"server"`
	Admin    AdminConfig             `yaml:"admin"`
	Catalog  CatalogConfig           `yaml:"catalog"`
	Playback PlaybackConfig          `yaml:"playback"`
	Filters  map[string]FilterConfig `yaml:"filters"`
	Messages MessagesConfig          `yaml:"messages"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr  string      `yaml:"addr" default:":8080"`
	Hooks HooksConfig `yaml:"hooks"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// AdminConfig represents control API access configuration.
// An empty token leaves the control API open.
type AdminConfig struct {
	Token string `yaml:"token"`
}

// CatalogConfig selects and configures the track catalog.
type CatalogConfig struct {
	Type      string          `yaml:"type" default:"directory" validate:"oneof=directory spotify"`
	Directory DirectoryConfig `yaml:"directory"`
	Spotify   SpotifyConfig   `yaml:"spotify"`
}

// DirectoryConfig represents the local music directory catalog.
type DirectoryConfig struct {
	Path          string   `yaml:"path" default:"./music"`
	Extensions    []string `yaml:"extensions" default:"[\".mp3\"]"`
	Watch         bool     `yaml:"watch"`
	ReadDuration  bool     `yaml:"read_duration"`
	HandleMode    string   `yaml:"handle_mode" default:"url" validate:"oneof=url path"`
}

// SpotifyConfig represents the Spotify playlist catalog.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
	Market       string `yaml:"market" validate:"omitempty,len=2" default:"JP"`
	PlaylistURL  string `yaml:"playlist_url"`
}

// PlaybackConfig represents playback session configuration.
type PlaybackConfig struct {
	DefaultDurationSec int  `yaml:"default_duration_sec" default:"180" validate:"gt=0,lte=86400"`
	EarlyMarginSec     int  `yaml:"early_margin_sec" default:"10" validate:"gte=0"`
	TickIntervalMs     int  `yaml:"tick_interval_ms" default:"1000" validate:"gte=50,lte=60000"`
	HistoryCapacity    int  `yaml:"history_capacity" default:"50" validate:"gt=0,lte=10000"`
	Autoplay           bool `yaml:"autoplay"`
	Replay             bool `yaml:"replay"`
	EventBuffer        int  `yaml:"event_buffer" default:"32" validate:"gt=0,lte=4096"`
}

// FilterConfig represents a filter's configuration.
type FilterConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// MessagesConfig represents user-facing messages.
type MessagesConfig struct {
	Success               string `yaml:"success" default:"Added to the queue."`
	DefaultError          string `yaml:"default_error" default:"Something went wrong."`
	AlreadyQueued         string `yaml:"already_queued" default:"That song is already in the queue."`
	DuplicateTrack        string `yaml:"duplicate_track" default:"Another version of that song is already in the queue."`
	TrackNotFound         string `yaml:"track_not_found" default:"Song not found."`
	TrackUnavailable      string `yaml:"track_unavailable" default:"Song could not be played."`
	EmptyQueueAutoplay    string `yaml:"empty_queue_autoplay" default:"Autoplay is on, but there are no songs in the queue."`
	AutoplayDisabled      string `yaml:"autoplay_disabled" default:"Playback finished. Autoplay is off."`
	DurationLimitExceeded string `yaml:"duration_limit_exceeded" default:"Song length is outside the allowed range."`
	NoLyrics              string `yaml:"no_lyrics" default:"No lyrics available."`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse builds a configuration from YAML bytes, applying environment
// overrides, defaults and validation like Load.
func Parse(data []byte) (*Config, error) {
	// Switches that default to on are seeded before unmarshalling;
	// creasty/defaults cannot tell an explicit false from an unset bool.
	cfg := Config{
		Catalog: CatalogConfig{
			Directory: DirectoryConfig{
				Watch:         true,
				ReadDuration:  true,
			},
		},
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Catalog.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Catalog.Spotify.ClientSecret = v
	}
	if v := os.Getenv("SPOTIFY_REFRESH_TOKEN"); v != "" {
		c.Catalog.Spotify.RefreshToken = v
	}
	if v := os.Getenv("ADMIN_TOKEN"); v != "" {
		c.Admin.Token = v
	}
	if v := os.Getenv("SOLOBOX_MUSIC_DIR"); v != "" {
		c.Catalog.Directory.Path = v
	}
}

// GetMessage returns the message for the given code.
func (c *Config) GetMessage(code string) string {
	switch code {
	case "success":
		return c.Messages.Success
	case "already_queued":
		return c.Messages.AlreadyQueued
	case "duplicate_track":
		return c.Messages.DuplicateTrack
	case "track_not_found":
		return c.Messages.TrackNotFound
	case "track_unavailable":
		return c.Messages.TrackUnavailable
	case "empty_queue_autoplay":
		return c.Messages.EmptyQueueAutoplay
	case "autoplay_disabled":
		return c.Messages.AutoplayDisabled
	case "duration_limit_exceeded":
		return c.Messages.DurationLimitExceeded
	case "no_lyrics":
		return c.Messages.NoLyrics
	default:
		return c.Messages.DefaultError
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if err := c.validateCatalog(); err != nil {
		return err
	}

	if c.Playback.EarlyMarginSec >= c.Playback.DefaultDurationSec {
		return errors.Newf("early_margin_sec (%d) must be smaller than default_duration_sec (%d)",
			c.Playback.EarlyMarginSec, c.Playback.DefaultDurationSec)
	}

	return nil
}

// validateCatalog checks the settings required by the selected catalog type.
func (c *Config) validateCatalog() error {
	switch c.Catalog.Type {
	case CatalogDirectory:
		if c.Catalog.Directory.Path == "" {
			return errors.New("catalog.directory.path is required")
		}
		if len(c.Catalog.Directory.Extensions) == 0 {
			return errors.New("catalog.directory.extensions must not be empty")
		}
	case CatalogSpotify:
		s := c.Catalog.Spotify
		if s.ClientID == "" || s.ClientSecret == "" || s.RefreshToken == "" {
			return errors.New("catalog.spotify requires client_id, client_secret and refresh_token")
		}
		if s.PlaylistURL == "" {
			return errors.New("catalog.spotify.playlist_url is required")
		}
	}
	return nil
}

// DefaultDuration returns the duration assumed for tracks of unknown length.
func (p PlaybackConfig) DefaultDuration() time.Duration {
	return time.Duration(p.DefaultDurationSec) * time.Second
}

// EarlyMargin returns the near-end lead time.
func (p PlaybackConfig) EarlyMargin() time.Duration {
	return time.Duration(p.EarlyMarginSec) * time.Second
}

// TickInterval returns the completion heuristic polling interval.
func (p PlaybackConfig) TickInterval() time.Duration {
	return time.Duration(p.TickIntervalMs) * time.Millisecond
}

// IsFilterEnabled checks if a filter is enabled.
func (c *Config) IsFilterEnabled(filterName string) bool {
	if f, ok := c.Filters[filterName]; ok {
		return f.Enabled
	}
	return false
}

// GetFilterSettings returns the settings for a filter.
func (c *Config) GetFilterSettings(filterName string) map[string]any {
	if f, ok := c.Filters[filterName]; ok {
		return f.Settings
	}
	return nil
}
