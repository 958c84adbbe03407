package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level application configuration
type Config struct {
	Downloads DownloadsConfig `mapstructure:"downloads"`
	Network   NetworkConfig   `mapstructure:"network"`
	Channels  ChannelsConfig  `mapstructure:"channels"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Clipboard ClipboardConfig `mapstructure:"clipboard"`
}

// DownloadsConfig controls how downloads are performed and where they land.
// These are the fields captured into a per-job snapshot at enqueue time.
type DownloadsConfig struct {
	Path              string   `mapstructure:"path"`
	Concurrent        int      `mapstructure:"concurrent"`
	Quality           string   `mapstructure:"quality"`
	Container         string   `mapstructure:"container"`
	Codec             string   `mapstructure:"codec"`
	AudioOnly         bool     `mapstructure:"audio_only"`
	AudioBitrate      string   `mapstructure:"audio_bitrate"`
	SubtitleMode      string   `mapstructure:"subtitle_mode"` // none, download, embed
	SubtitleLanguages []string `mapstructure:"subtitle_languages"`
	SubtitleFormat    string   `mapstructure:"subtitle_format"`
	EmbedSubtitles    bool     `mapstructure:"embed_subtitles"`
	Fragments         int      `mapstructure:"fragments"`
	PlaylistLimit     int      `mapstructure:"playlist_limit"`    // 0 = unlimited
	MinFreeSpaceGB    int      `mapstructure:"min_free_space_gb"` // 0 = no check
}

// NetworkConfig is read fresh at every dispatch, never snapshotted,
// so a cookie or proxy fix applies to the very next attempt.
type NetworkConfig struct {
	CookiesPath        string  `mapstructure:"cookies_path"`
	CookiesFromBrowser string  `mapstructure:"cookies_from_browser"`
	Proxy              string  `mapstructure:"proxy"`
	RateLimitMBps      float64 `mapstructure:"rate_limit_mbps"`
}

// ChannelsConfig controls the background channel poller
type ChannelsConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	AutoDownload bool          `mapstructure:"auto_download"`
	FetchRetries int           `mapstructure:"fetch_retries"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path           string `mapstructure:"path"`
	MaxConnections int    `mapstructure:"max_connections"`
	WALMode        bool   `mapstructure:"wal_mode"`
	AutoVacuum     bool   `mapstructure:"auto_vacuum"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // text, json
	File       string `mapstructure:"file"`
	Color      bool   `mapstructure:"color"`
	MaxSize    int    `mapstructure:"max_size"` // megabytes
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
	Compress   bool   `mapstructure:"compress"`
}

// ClipboardConfig allows overriding the clipboard tool
type ClipboardConfig struct {
	Command string `mapstructure:"command"`
}

// GetConfigDir returns the configuration directory for hoist
func GetConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "hoist")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "hoist")
	}
	return filepath.Join(home, ".config", "hoist")
}

// GetDataDir returns the data directory for hoist (database, durable state)
func GetDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "hoist")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".local", "share", "hoist")
	}
	return filepath.Join(home, ".local", "share", "hoist")
}

func getStateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".local", "state")
	}
	return filepath.Join(home, ".local", "state")
}

// InitializeDirs creates the config and data directories if missing
func InitializeDirs() error {
	for _, dir := range []string{GetConfigDir(), GetDataDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// setDefaults registers default values on the given viper instance
func setDefaults(v *viper.Viper) {
	home, _ := os.UserHomeDir()

	v.SetDefault("downloads.path", filepath.Join(home, "Videos", "hoist"))
	v.SetDefault("downloads.concurrent", 3)
	v.SetDefault("downloads.quality", "best")
	v.SetDefault("downloads.container", "mkv")
	v.SetDefault("downloads.codec", "")
	v.SetDefault("downloads.audio_only", false)
	v.SetDefault("downloads.audio_bitrate", "192k")
	v.SetDefault("downloads.subtitle_mode", "none")
	v.SetDefault("downloads.subtitle_languages", []string{"en"})
	v.SetDefault("downloads.subtitle_format", "srt")
	v.SetDefault("downloads.embed_subtitles", false)
	v.SetDefault("downloads.fragments", 10)
	v.SetDefault("downloads.playlist_limit", 0)
	v.SetDefault("downloads.min_free_space_gb", 1)

	v.SetDefault("network.cookies_path", "")
	v.SetDefault("network.cookies_from_browser", "")
	v.SetDefault("network.proxy", "")
	v.SetDefault("network.rate_limit_mbps", 0.0)

	v.SetDefault("channels.poll_interval", 15*time.Minute)
	v.SetDefault("channels.auto_download", true)
	v.SetDefault("channels.fetch_retries", 3)

	v.SetDefault("database.path", filepath.Join(GetDataDir(), "hoist.db"))
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.wal_mode", true)
	v.SetDefault("database.auto_vacuum", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", filepath.Join(getStateDir(), "hoist", "hoist.log"))
	v.SetDefault("logging.color", true)
	v.SetDefault("logging.max_size", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 30)
	v.SetDefault("logging.compress", true)

	v.SetDefault("clipboard.command", "")
}

// Load reads the configuration file and returns the parsed config along with
// the viper instance so callers can wire hot reload.
func Load(cfgFile string) (*Config, *viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(GetConfigDir())
	}

	v.SetEnvPrefix("HOIST")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults apply
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !os.IsNotExist(err) {
				return nil, nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Downloads.Concurrent < 1 {
		cfg.Downloads.Concurrent = 1
	}

	return &cfg, v, nil
}

// SaveDefaultConfig writes a config file populated with defaults
func SaveDefaultConfig(path string) error {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
