// Package config loads application configuration from config.yaml and the
// AFLUENCIA_* environment, and installs the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mkfnx/dashboard-afluencia-metro-cdmx/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Sources SourcesConfig `yaml:"sources" mapstructure:"sources"`
	Store   store.Config  `yaml:"store" mapstructure:"store"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Chart   ChartConfig   `yaml:"chart" mapstructure:"chart"`
	Map     MapConfig     `yaml:"map" mapstructure:"map"`
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// SourcesConfig locates the two input files and the optional alias table.
type SourcesConfig struct {
	RidershipCSV string `yaml:"ridership_csv" mapstructure:"ridership_csv"`
	StationsFile string `yaml:"stations_file" mapstructure:"stations_file"`
	AliasesFile  string `yaml:"aliases_file" mapstructure:"aliases_file"`
}

// ServerConfig configures the dashboard HTTP server.
type ServerConfig struct {
	Port          int     `yaml:"port" mapstructure:"port"`
	RateLimit     float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst     int     `yaml:"rate_burst" mapstructure:"rate_burst"`
	FromStore     bool    `yaml:"from_store" mapstructure:"from_store"`
	AllowedOrigin string  `yaml:"allowed_origin" mapstructure:"allowed_origin"`
}

// ChartConfig configures the time-series chart.
type ChartConfig struct {
	TopStations int `yaml:"top_stations" mapstructure:"top_stations"`
}

// MapConfig configures the station map.
type MapConfig struct {
	MaxMarkerSize float64 `yaml:"max_marker_size" mapstructure:"max_marker_size"`
}

// CacheConfig configures dataset memoization.
type CacheConfig struct {
	TTLMinutes int `yaml:"ttl_minutes" mapstructure:"ttl_minutes"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("AFLUENCIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("sources.ridership_csv", "afluenciastc_simple_02_2024.csv")
	v.SetDefault("sources.stations_file", "stc.kml")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "afluencia.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit", 10)
	v.SetDefault("server.rate_burst", 20)
	v.SetDefault("server.allowed_origin", "*")
	v.SetDefault("chart.top_stations", 5)
	v.SetDefault("map.max_marker_size", 1000)
	v.SetDefault("cache.ttl_minutes", 15)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
