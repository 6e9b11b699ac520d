package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"spots/internal/shared"
)

const (
	RequestTimeout      = 30 * time.Second
	DefaultConfigFile   = "config/config.json"
	DefaultDownloadDir  = "Music"
	DefaultRetryTimeout = 120
)

// Configuration structure
type Config struct {
	DownloadLocation     string `json:"DownloadLocation"`
	MetadataFile         string `json:"MetadataFile"`
	HistoryFile          string `json:"HistoryFile"`
	HistoryBackend       string `json:"HistoryBackend"` // "text" or "sqlite"
	SpotifyClientID      string `json:"SpotifyClientID"`
	SpotifyClientSecret  string `json:"SpotifyClientSecret"`
	GeniusToken          string `json:"GeniusToken"`
	StrictLyricsMatch    bool   `json:"StrictLyricsMatch"`
	Bitrate              string `json:"Bitrate"`
	CoverSize            int    `json:"CoverSize"`
	RetryDeadlineSeconds int    `json:"RetryDeadlineSeconds"`
	Parallelism          int    `json:"Parallelism"`
	EnrichGenres         bool   `json:"EnrichGenres"`
	NavidromeURL         string `json:"NavidromeURL"`
	NavidromeUsername    string `json:"NavidromeUsername"`
	NavidromePassword    string `json:"NavidromePassword"`
	Debug                bool   `json:"Debug"`
}

// DefaultConfig returns a configuration with every optional field filled in
func DefaultConfig() *Config {
	return &Config{
		DownloadLocation:     DefaultDownloadDir,
		HistoryBackend:       "text",
		StrictLyricsMatch:    true,
		Bitrate:              "192",
		CoverSize:            640,
		RetryDeadlineSeconds: DefaultRetryTimeout,
		Parallelism:          1,
	}
}

// ApplyDefaults fills empty fields from DefaultConfig
func (cfg *Config) ApplyDefaults() {
	defaults := DefaultConfig()
	if cfg.DownloadLocation == "" {
		cfg.DownloadLocation = defaults.DownloadLocation
	}
	if cfg.HistoryBackend == "" {
		cfg.HistoryBackend = defaults.HistoryBackend
	}
	if cfg.Bitrate == "" {
		cfg.Bitrate = defaults.Bitrate
	}
	if cfg.CoverSize <= 0 {
		cfg.CoverSize = defaults.CoverSize
	}
	if cfg.RetryDeadlineSeconds <= 0 {
		cfg.RetryDeadlineSeconds = defaults.RetryDeadlineSeconds
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = defaults.Parallelism
	}
}

// MetadataPath returns the metadata store file, inside the download folder
// unless configured otherwise
func (cfg *Config) MetadataPath() string {
	if cfg.MetadataFile != "" {
		return cfg.MetadataFile
	}
	return filepath.Join(cfg.DownloadLocation, ".metadata.json")
}

// HistoryPath returns the history ledger file for the configured backend
func (cfg *Config) HistoryPath() string {
	if cfg.HistoryFile != "" {
		return cfg.HistoryFile
	}
	if cfg.HistoryBackend == "sqlite" {
		return filepath.Join(cfg.DownloadLocation, ".spots_history.db")
	}
	return filepath.Join(cfg.DownloadLocation, ".spots_download_history.txt")
}

// RetryDeadline is the wall-clock budget for one top-level input
func (cfg *Config) RetryDeadline() time.Duration {
	return time.Duration(cfg.RetryDeadlineSeconds) * time.Second
}

// NavidromeEnabled reports whether playlist mirroring is configured
func (cfg *Config) NavidromeEnabled() bool {
	return cfg.NavidromeURL != "" && cfg.NavidromeUsername != ""
}

// Validate fails fast on configuration the run cannot proceed without
func (cfg *Config) Validate() error {
	if cfg.SpotifyClientID == "" || cfg.SpotifyClientSecret == "" {
		return fmt.Errorf("%w: set SPOTIPY_CLIENT_ID and SPOTIPY_CLIENT_SECRET", shared.ErrMissingCredentials)
	}
	switch cfg.HistoryBackend {
	case "text", "sqlite":
	default:
		return fmt.Errorf("unknown history backend %q (want text or sqlite)", cfg.HistoryBackend)
	}
	if cfg.Parallelism < 1 {
		return fmt.Errorf("parallelism must be at least 1")
	}
	return nil
}

// ApplyEnv overrides fields from the environment. The older lowercase
// variable names are still honoured.
func (cfg *Config) ApplyEnv() {
	setString(&cfg.SpotifyClientID, "SPOTIPY_CLIENT_ID")
	setString(&cfg.SpotifyClientSecret, "client_secret", "SPOTIPY_CLIENT_SECRET")
	setString(&cfg.GeniusToken, "lyricsgenius_key", "GENIUS_ACCESS_TOKEN")
	setString(&cfg.DownloadLocation, "SPOTS_DOWNLOAD_DIR")
	setString(&cfg.NavidromeURL, "NAVIDROME_URL")
	setString(&cfg.NavidromeUsername, "NAVIDROME_USERNAME")
	setString(&cfg.NavidromePassword, "NAVIDROME_PASSWORD")

	if v := os.Getenv("SPOTS_RETRY_DEADLINE"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.RetryDeadlineSeconds = secs
		}
	}
}

// later names win
func setString(field *string, names ...string) {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			*field = v
		}
	}
}

// Load builds the effective configuration: defaults, then the config file if
// present, then .env and the environment.
func Load(configFile string) (*Config, error) {
	cfg := DefaultConfig()

	if configFile != "" && shared.FileExists(configFile) {
		if err := LoadConfig(configFile, cfg); err != nil {
			return nil, err
		}
	}

	// a missing .env is normal
	_ = godotenv.Load()

	cfg.ApplyEnv()
	cfg.ApplyDefaults()
	return cfg, nil
}

// LoadConfig loads configuration from a JSON file
func LoadConfig(filePath string, config *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := json.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return nil
}

// SaveConfig saves configuration to a JSON file. The file may hold
// credentials, so it is written owner-only.
func SaveConfig(filePath string, config *Config) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := shared.CreateDirIfNotExists(filepath.Dir(filePath)); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
