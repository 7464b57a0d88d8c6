package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DBConfig holds the PostgreSQL connection parameters. All fields are kept
// as strings; they are handed to the driver without validation.
type DBConfig struct {
	User               string        `yaml:"user"`
	Password           string        `yaml:"password"`
	Name               string        `yaml:"name"`
	Host               string        `yaml:"host"`
	Port               string        `yaml:"port"`
	ConnectTimeout     time.Duration `yaml:"connect_timeout"`
	SlowQueryThreshold time.Duration `yaml:"slow_query_threshold"`
}

// ServerConfig holds the HTTP surface settings.
type ServerConfig struct {
	ListenAddr     string `yaml:"listen_addr"`
	CORSEnabled    bool   `yaml:"cors_enabled"`
	MetricsEnabled bool   `yaml:"metrics_enabled"`
}

// Config holds all service configuration.
type Config struct {
	DB       DBConfig     `yaml:"db"`
	Server   ServerConfig `yaml:"server"`
	LogLevel string       `yaml:"log_level"`
}

// Defaults returns the configuration used when neither a config file nor
// environment variables say otherwise.
func Defaults() Config {
	return Config{
		DB: DBConfig{
			User:               "user",
			Password:           "password",
			Name:               "ecommerce_db",
			Host:               "database",
			Port:               "5432",
			SlowQueryThreshold: 100 * time.Millisecond,
		},
		Server: ServerConfig{
			ListenAddr:     ":8000",
			CORSEnabled:    true,
			MetricsEnabled: true,
		},
		LogLevel: "info",
	}
}

// Load reads configuration from an optional YAML file (CONFIG_FILE) and
// then from environment variables, falling back to defaults.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	cfg.DB = OverrideDBFromEnv(cfg.DB)
	cfg.Server.ListenAddr = envOrDefault("LISTEN_ADDR", cfg.Server.ListenAddr)
	cfg.Server.CORSEnabled = envOrDefaultBool("CORS_ENABLED", cfg.Server.CORSEnabled)
	cfg.Server.MetricsEnabled = envOrDefaultBool("METRICS_ENABLED", cfg.Server.MetricsEnabled)
	cfg.LogLevel = envOrDefault("LOG_LEVEL", cfg.LogLevel)

	return &cfg, nil
}

// OverrideDBFromEnv returns base with every DB_* variable that is set
// applied on top. It does not modify base.
func OverrideDBFromEnv(base DBConfig) DBConfig {
	base.User = envOrDefault("DB_USER", base.User)
	base.Password = envOrDefault("DB_PASSWORD", base.Password)
	base.Name = envOrDefault("DB_NAME", base.Name)
	base.Host = envOrDefault("DB_HOST", base.Host)
	base.Port = envOrDefault("DB_PORT", base.Port)
	base.ConnectTimeout = envOrDefaultDuration("DB_CONNECT_TIMEOUT", base.ConnectTimeout)
	base.SlowQueryThreshold = envOrDefaultDuration("DB_SLOW_QUERY_THRESHOLD", base.SlowQueryThreshold)
	return base
}

func loadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
