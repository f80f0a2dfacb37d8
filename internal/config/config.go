// Package config loads application configuration in three layers:
// struct defaults, an optional YAML file, then environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/mikebarrdiaz/redistour/internal/logging"
	"github.com/mikebarrdiaz/redistour/internal/similarity"
)

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "REDISTOUR_CONFIG"

// DefaultConfigPaths lists where a config file is searched, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/redistour/config.yaml",
}

// Config is the full application configuration.
type Config struct {
	Server    ServerConfig      `koanf:"server"`
	Data      DataConfig        `koanf:"data"`
	Recommend similarity.Config `koanf:"recommend"`
	Logging   logging.Config    `koanf:"logging"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	CORSOrigins []string      `koanf:"cors_origins"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DataConfig locates the reference tables and the SQLite store.
type DataConfig struct {
	DatabasePath     string `koanf:"database_path"`
	ZonesPath        string `koanf:"zones_path"`
	ForecastsPath    string `koanf:"forecasts_path"`
	TravelersPath    string `koanf:"travelers_path"`
	DescriptionsPath string `koanf:"descriptions_path"`
	OpinionsPath     string `koanf:"opinions_path"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			Timeout:     30 * time.Second,
			CORSOrigins: []string{"*"},
		},
		Data: DataConfig{
			DatabasePath:     "data/redistour.db",
			ZonesPath:        "data/zones.json",
			ForecastsPath:    "data/forecasts.json",
			TravelersPath:    "data/travelers.json",
			DescriptionsPath: "data/descriptions.json",
			OpinionsPath:     "data/opinions.json",
		},
		Recommend: similarity.Config{
			Metric:   similarity.MetricCosine,
			DefaultK: 10,
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, file, and environment.
// Environment variables use the REDISTOUR_ prefix with underscores for
// nesting: REDISTOUR_SERVER_PORT=9090, REDISTOUR_RECOMMEND_METRIC=euclidean.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: file %s: %w", path, err)
		}
	}

	envProvider := env.Provider("REDISTOUR_", ".", func(key string) string {
		key = strings.TrimPrefix(key, "REDISTOUR_")
		key = strings.ToLower(key)
		return strings.Replace(key, "_", ".", 1)
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the application cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server port %d", c.Server.Port)
	}
	switch c.Recommend.Metric {
	case similarity.MetricCosine, similarity.MetricEuclidean, "":
	default:
		return fmt.Errorf("config: unknown distance metric %q", c.Recommend.Metric)
	}
	if c.Data.DatabasePath == "" {
		return fmt.Errorf("config: database path is required")
	}
	return nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
