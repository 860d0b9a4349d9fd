package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Storage StorageConfig `toml:"storage"`
	Engine  EngineConfig  `toml:"engine"`
	Lookup  LookupConfig  `toml:"lookup"`
	Server  ServerConfig  `toml:"server"`
	Log     LogConfig     `toml:"log"`
}

// StorageConfig selects the durable document backend and the debounce window.
type StorageConfig struct {
	Driver       string        `toml:"driver"`
	DataDir      string        `toml:"data_dir"`
	DatabasePath string        `toml:"database_path"`
	FlushDelay   time.Duration `toml:"flush_delay"`
}

// EngineConfig contains settings for the download engine sidecar.
type EngineConfig struct {
	URL            string        `toml:"url"`
	Timeout        time.Duration `toml:"timeout"`
	HealthInterval time.Duration `toml:"health_interval"`
}

// LookupConfig contains settings for the metadata lookup service.
type LookupConfig struct {
	URL       string        `toml:"url"`
	Token     string        `toml:"token"`
	Timeout   time.Duration `toml:"timeout"`
	RateLimit float64       `toml:"rate_limit"`
	Workers   int           `toml:"workers"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "file", "sqlite":
	default:
		return fmt.Errorf("%w: unknown storage driver %q", ErrInvalidConfig, c.Storage.Driver)
	}
	if c.Storage.FlushDelay <= 0 {
		return fmt.Errorf("%w: storage.flush_delay must be positive", ErrInvalidConfig)
	}
	if c.Engine.URL == "" {
		return fmt.Errorf("%w: engine.url is required", ErrInvalidConfig)
	}
	if c.Lookup.URL == "" {
		return fmt.Errorf("%w: lookup.url is required", ErrInvalidConfig)
	}
	return nil
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

// ResolveConfig loads the config at path when it exists and falls back to [DefaultConfig] otherwise.
func ResolveConfig(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	return LoadConfig(path)
}
