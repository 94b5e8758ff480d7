package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	// Output format template for the now command
	// Default: "{{.Artist}} - {{.Name}}"
	OutputFormat string

	// Fixed display width for the now command; 0 disables padding
	OutputWidth int

	// Scroll text wider than OutputWidth instead of truncating it
	MarqueeEnabled   bool
	MarqueeSpeed     int // Characters per second
	MarqueeSeparator string

	// Remote snapshot poll interval (in milliseconds)
	PollIntervalMs int

	// Progress interpolation interval (in milliseconds)
	ProgressIntervalMs int

	// Outgoing Web API request budget
	RequestsPerSecond float64

	// Freshness window for cached catalog listings (in minutes)
	CacheTTLMinutes int

	// Directory holding the database and state snapshot
	// Default: ~/.local/share/tether
	DataDir string

	Spotify SpotifyConfig
	Player  PlayerConfig
	Discord DiscordConfig
	Notify  NotifyConfig
	MPRIS   MPRISConfig
}

// SpotifyConfig holds Spotify application credentials
type SpotifyConfig struct {
	ClientID     string
	ClientSecret string // Optional; PKCE is used when empty
	RedirectURL  string
}

// PlayerConfig identifies this player's Connect device
type PlayerConfig struct {
	Name       string
	InstanceID string // Generated per process when empty
	DeviceID   string // Known device id, skips device discovery
}

// DiscordConfig holds Discord Rich Presence settings
type DiscordConfig struct {
	AppID string // Presence is disabled when empty
}

type NotifyConfig struct {
	Enabled bool
}

type MPRISConfig struct {
	Enabled bool
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Config file locations (in order of precedence)
	configDir := getConfigDir()
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	// Set defaults
	v.SetDefault("output_format", "{{.Artist}} - {{.Name}}")
	v.SetDefault("output_width", 0)
	v.SetDefault("marquee_enabled", false)
	v.SetDefault("marquee_speed", 2)
	v.SetDefault("marquee_separator", " • ")
	v.SetDefault("poll_interval_ms", 1000)
	v.SetDefault("progress_interval_ms", 100)
	v.SetDefault("requests_per_second", 5)
	v.SetDefault("cache_ttl_minutes", 360)
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("spotify.redirect_url", "http://127.0.0.1:8888/callback")
	v.SetDefault("player.name", "tether")
	v.SetDefault("notify.enabled", false)
	v.SetDefault("mpris.enabled", true)

	// Read config file (optional - don't fail if missing)
	_ = v.ReadInConfig()

	// Read from environment variables, e.g. TETHER_SPOTIFY_CLIENT_ID
	v.SetEnvPrefix("TETHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Map config to struct
	cfg := &Config{
		OutputFormat:       v.GetString("output_format"),
		OutputWidth:        v.GetInt("output_width"),
		MarqueeEnabled:     v.GetBool("marquee_enabled"),
		MarqueeSpeed:       v.GetInt("marquee_speed"),
		MarqueeSeparator:   v.GetString("marquee_separator"),
		PollIntervalMs:     v.GetInt("poll_interval_ms"),
		ProgressIntervalMs: v.GetInt("progress_interval_ms"),
		RequestsPerSecond:  v.GetFloat64("requests_per_second"),
		CacheTTLMinutes:    v.GetInt("cache_ttl_minutes"),
		DataDir:            v.GetString("data_dir"),
		Spotify: SpotifyConfig{
			ClientID:     v.GetString("spotify.client_id"),
			ClientSecret: v.GetString("spotify.client_secret"),
			RedirectURL:  v.GetString("spotify.redirect_url"),
		},
		Player: PlayerConfig{
			Name:       v.GetString("player.name"),
			InstanceID: v.GetString("player.instance_id"),
			DeviceID:   v.GetString("player.device_id"),
		},
		Discord: DiscordConfig{
			AppID: v.GetString("discord.app_id"),
		},
		Notify: NotifyConfig{
			Enabled: v.GetBool("notify.enabled"),
		},
		MPRIS: MPRISConfig{
			Enabled: v.GetBool("mpris.enabled"),
		},
	}

	return cfg, nil
}

// DatabasePath is the sqlite file holding preferences, tokens and cache.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "tether.db")
}

// StatePath is where the daemon publishes the current playback state.
func (c *Config) StatePath() string {
	return filepath.Join(c.DataDir, "state.json")
}

// getConfigDir returns the configuration directory path
// Creates the directory if it doesn't exist
func getConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	configDir := filepath.Join(homeDir, ".config", "tether")

	// Create config directory if it doesn't exist
	_ = os.MkdirAll(configDir, 0755)

	return configDir
}

func defaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(homeDir, ".local", "share", "tether")
}

// GetConfigDir returns the configuration directory path (public helper)
func GetConfigDir() string {
	return getConfigDir()
}

// Save writes configuration to file
func (c *Config) Save() error {
	v := viper.New()

	// Set config file path
	configDir := getConfigDir()
	configFile := filepath.Join(configDir, "config.yaml")

	// Set values in viper
	v.Set("output_format", c.OutputFormat)
	v.Set("output_width", c.OutputWidth)
	v.Set("marquee_enabled", c.MarqueeEnabled)
	v.Set("marquee_speed", c.MarqueeSpeed)
	v.Set("marquee_separator", c.MarqueeSeparator)
	v.Set("poll_interval_ms", c.PollIntervalMs)
	v.Set("progress_interval_ms", c.ProgressIntervalMs)
	v.Set("requests_per_second", c.RequestsPerSecond)
	v.Set("cache_ttl_minutes", c.CacheTTLMinutes)
	v.Set("data_dir", c.DataDir)
	v.Set("spotify.client_id", c.Spotify.ClientID)
	v.Set("spotify.client_secret", c.Spotify.ClientSecret)
	v.Set("spotify.redirect_url", c.Spotify.RedirectURL)
	v.Set("player.name", c.Player.Name)
	v.Set("player.instance_id", c.Player.InstanceID)
	v.Set("player.device_id", c.Player.DeviceID)
	v.Set("discord.app_id", c.Discord.AppID)
	v.Set("notify.enabled", c.Notify.Enabled)
	v.Set("mpris.enabled", c.MPRIS.Enabled)

	// Write to file
	return v.WriteConfigAs(configFile)
}
