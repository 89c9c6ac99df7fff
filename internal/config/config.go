package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Environment string
	Host        string `toml:"host"`
	Port        int    `toml:"port"`

	// logging
	LogLevel    string `toml:"log_level"`
	LogsPath    string `toml:"logs_path"`
	LogToStdout bool   `toml:"log_to_stdout"`

	// postgres
	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresDBName string `toml:"postgres_db_name"`

	// prometheus metrics server
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`

	SentryEnabled  bool `toml:"sentry_enabled"`
	TracingEnabled bool `toml:"tracing_enabled"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

// Secrets holds values that never live in the TOML file.
type Secrets struct {
	SentryDSN    string `env:"SENTRY_DSN"`
	PostgresUser string `env:"WORKOUT_BACKEND_DB_USER, default=postgres"`
	PostgresPass string `env:"WORKOUT_BACKEND_DB_PASS"`
}

func Load(env, path string) (*Config, error) {
	tomlData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var t Toml
	if _, err := toml.Decode(string(tomlData), &t); err != nil {
		return nil, fmt.Errorf("decode config file: %w", err)
	}

	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}

	cfg.Environment = env
	return cfg, nil
}

// LoadSecrets reads the secret values from the process environment.
func LoadSecrets(ctx context.Context) (*Secrets, error) {
	var s Secrets
	if err := envconfig.Process(ctx, &s); err != nil {
		return nil, fmt.Errorf("process env secrets: %w", err)
	}
	return &s, nil
}

func (t *Toml) Get(env string) (*Config, error) {
	switch strings.ToLower(env) {
	case "dev", "development":
		return t.Development, nil
	case "prod", "production":
		return t.Production, nil
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
}
