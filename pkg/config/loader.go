package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// LoadSessionConfig reads a session configuration document from path,
// layers DIALECTICA_SESSION_-prefixed environment overrides on top (e.g.
// DIALECTICA_SESSION_MAX_CYCLES overrides max_cycles), resolves the result
// against Defaults(), and validates it. It returns the resolved config even
// on validation failure, so a caller can still log what was parsed.
func LoadSessionConfig(path string) (SessionConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return SessionConfig{}, NewLoadError(path, ErrConfigNotFound)
		}
		return SessionConfig{}, NewLoadError(path, err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return SessionConfig{}, NewLoadError(path, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}

	v.SetEnvPrefix("DIALECTICA_SESSION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range v.AllKeys() {
		_ = v.BindEnv(key)
	}

	// Round-trip through YAML instead of v.Unmarshal so the merged
	// file+env view resolves against Input's existing yaml tags rather
	// than requiring a parallel set of mapstructure tags.
	merged, err := yaml.Marshal(v.AllSettings())
	if err != nil {
		return SessionConfig{}, NewLoadError(path, err)
	}
	var in Input
	if err := yaml.Unmarshal(merged, &in); err != nil {
		return SessionConfig{}, NewLoadError(path, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}

	cfg := Resolve(in)
	if err := NewValidator(cfg).Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ServerConfig is the process-level configuration for the dialectica HTTP
// server and its persistence layer, distinct from any one session's
// SessionConfig. It is populated from the environment via viper, which
// also reads an optional ./dialectica.yaml in the working directory for
// operators who'd rather check server settings into a file than export
// them; a missing file is not an error.
type ServerConfig struct {
	HTTPPort      string
	GinMode       string
	DatabaseDSN   string
	MigrationsDir string
	LogLevel      string
	MetricsPort   string
}

// ServerConfigFromEnv reads ServerConfig from the process environment (and,
// if present, a dialectica.yaml config file), applying sensible defaults
// for local development.
func ServerConfigFromEnv() ServerConfig {
	v := viper.New()
	v.SetDefault("http_port", "8080")
	v.SetDefault("gin_mode", "debug")
	v.SetDefault("database_url", "postgres://localhost:5432/dialectica?sslmode=disable")
	v.SetDefault("migrations_dir", "./pkg/database/migrations")
	v.SetDefault("log_level", "info")
	v.SetDefault("metrics_port", "9090")

	v.SetConfigName("dialectica")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // no config file is the normal case; defaults+env still apply

	v.AutomaticEnv()
	for _, key := range []string{"http_port", "gin_mode", "database_url", "migrations_dir", "log_level", "metrics_port"} {
		_ = v.BindEnv(key, strings.ToUpper(key))
	}

	return ServerConfig{
		HTTPPort:      v.GetString("http_port"),
		GinMode:       v.GetString("gin_mode"),
		DatabaseDSN:   v.GetString("database_url"),
		MigrationsDir: v.GetString("migrations_dir"),
		LogLevel:      v.GetString("log_level"),
		MetricsPort:   v.GetString("metrics_port"),
	}
}
