package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Providers ProvidersConfig `toml:"providers"`
	Breaker   BreakerConfig   `toml:"breaker"`
	Cache     CacheConfig     `toml:"cache"`
}

// ProvidersConfig contains per-provider client settings.
type ProvidersConfig struct {
	YouTube     YouTubeConfig     `toml:"youtube"`
	MusicBrainz MusicBrainzConfig `toml:"musicbrainz"`
}

// YouTubeConfig contains YouTube Data API settings.
type YouTubeConfig struct {
	APIKey            string  `toml:"api_key"`
	AccessToken       string  `toml:"access_token"`
	BaseURL           string  `toml:"base_url"`
	PageSize          int     `toml:"page_size"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// MusicBrainzConfig contains MusicBrainz API settings.
//
// MusicBrainz requires a descriptive User-Agent and limits anonymous
// clients to one request per second.
type MusicBrainzConfig struct {
	BaseURL           string  `toml:"base_url"`
	UserAgent         string  `toml:"user_agent"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// BreakerConfig contains the default circuit breaker settings shared by all providers.
type BreakerConfig struct {
	FailureThreshold int `toml:"failure_threshold"`
	CooldownMS       int `toml:"cooldown_ms"`
}

// CacheConfig contains settings for the persistent resolved-track cache.
type CacheConfig struct {
	Path string `toml:"path"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
