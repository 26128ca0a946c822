package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Quota       QuotaConfig       `toml:"quota"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	YouTube YouTubeConfig `toml:"youtube"`
}

// YouTubeConfig contains YouTube Data API OAuth credentials.
type YouTubeConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	BaseURL      string `toml:"base_url"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// QuotaConfig contains daily budget and ledger maintenance settings.
//
// Each field can be overridden by an environment variable: DAILY_BUDGET,
// RETENTION_DAYS and VACUUM_INTERVAL_DAYS. The quota rollover timezone is
// fixed (America/Los_Angeles) and intentionally not configurable.
type QuotaConfig struct {
	DailyBudget        int `toml:"daily_budget"`
	RetentionDays      int `toml:"retention_days"`
	VacuumIntervalDays int `toml:"vacuum_interval_days"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Environment overrides are applied after parsing.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.applyEnvOverrides()
	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
//
// Environment overrides are applied after parsing.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	config.applyEnvOverrides()
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, err)
	}

	// Write the embedded example config to the file
	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnvOverrides replaces quota settings with positive integer values from the environment.
func (c *Config) applyEnvOverrides() {
	if v := envInt("DAILY_BUDGET"); v > 0 {
		c.Quota.DailyBudget = v
	}
	if v := envInt("RETENTION_DAYS"); v > 0 {
		c.Quota.RetentionDays = v
	}
	if v := envInt("VACUUM_INTERVAL_DAYS"); v > 0 {
		c.Quota.VacuumIntervalDays = v
	}
}

// envInt parses an integer environment variable, returning 0 when unset or invalid.
func envInt(name string) int {
	raw := os.Getenv(name)
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return v
}
