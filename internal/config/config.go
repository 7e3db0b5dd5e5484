package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Import   ImportConfig
	Defaults DefaultsConfig
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr string
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string
}

// ImportConfig bounds CSV ingestion.
type ImportConfig struct {
	MaxRows   int `mapstructure:"max_rows"`
	BatchSize int `mapstructure:"batch_size"`
}

// DefaultsConfig holds per-install fallbacks.
type DefaultsConfig struct {
	Currency string
}

// Load reads configuration from file and env. Env var overrides use prefix
// FINANCEFLOW_ (e.g. FINANCEFLOW_SERVER_ADDR).
func Load() (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "financeflow", "financeflow.db"))
	v.SetDefault("import.max_rows", 5000)
	v.SetDefault("import.batch_size", 10)
	v.SetDefault("defaults.currency", "USD")

	v.SetConfigType("toml")

	cfgPath := os.Getenv("FINANCEFLOW_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "financeflow"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("FINANCEFLOW")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}
