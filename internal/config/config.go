package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the analyzer service.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Runbooks RunbooksConfig `yaml:"runbooks"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Logging  LoggingConfig  `yaml:"logging"`
	Cache    CacheConfig    `yaml:"cache"`
}

// ServerConfig controls the HTTP listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// RunbooksConfig locates the runbook store and tunes the health rollup.
type RunbooksConfig struct {
	Dir            string        `yaml:"dir"`
	RollupInterval time.Duration `yaml:"rollupInterval"`
	StaleAfterDays int           `yaml:"staleAfterDays"`
}

// AnalysisConfig tunes the suggestion engine defaults.
type AnalysisConfig struct {
	MinFrequency   int `yaml:"minFrequency"`
	MaxFindResults int `yaml:"maxFindResults"`
	TopFixes       int `yaml:"topFixes"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// CacheConfig controls Valkey-backed caching of suggestion runs.
type CacheConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Addr           string        `yaml:"addr"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	DB             int           `yaml:"db"`
	DialTimeout    time.Duration `yaml:"dialTimeout"`
	ReadTimeout    time.Duration `yaml:"readTimeout"`
	WriteTimeout   time.Duration `yaml:"writeTimeout"`
	MaxRetries     int           `yaml:"maxRetries"`
	TLS            bool          `yaml:"tls"`
	SuggestionsTTL time.Duration `yaml:"suggestionsTTL"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("RUNBOOK_ANALYZER_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8080",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Runbooks: RunbooksConfig{
			Dir:            "runbooks",
			RollupInterval: 5 * time.Minute,
			StaleAfterDays: 90,
		},
		Analysis: AnalysisConfig{
			MinFrequency:   2,
			MaxFindResults: 5,
			TopFixes:       10,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Cache: CacheConfig{
			Enabled:        false,
			SuggestionsTTL: 2 * time.Minute,
			DialTimeout:    2 * time.Second,
			ReadTimeout:    500 * time.Millisecond,
			WriteTimeout:   500 * time.Millisecond,
			MaxRetries:     2,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RUNBOOK_ANALYZER_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("RUNBOOK_ANALYZER_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("RUNBOOK_ANALYZER_RUNBOOKS_DIR"); v != "" {
		cfg.Runbooks.Dir = v
	}
	if v := os.Getenv("RUNBOOK_ANALYZER_ROLLUP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Runbooks.RollupInterval = d
		}
	}
	if v := os.Getenv("RUNBOOK_ANALYZER_STALE_AFTER_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil {
			cfg.Runbooks.StaleAfterDays = days
		}
	}
	if v := os.Getenv("RUNBOOK_ANALYZER_MIN_FREQUENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Analysis.MinFrequency = n
		}
	}
	if v := os.Getenv("RUNBOOK_ANALYZER_MAX_FIND_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Analysis.MaxFindResults = n
		}
	}
	if v := os.Getenv("RUNBOOK_ANALYZER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("RUNBOOK_ANALYZER_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("RUNBOOK_ANALYZER_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = strings.EqualFold(v, "true") || strings.EqualFold(v, "1")
	}
	if v := os.Getenv("RUNBOOK_ANALYZER_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("RUNBOOK_ANALYZER_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("RUNBOOK_ANALYZER_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("RUNBOOK_ANALYZER_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("RUNBOOK_ANALYZER_CACHE_TLS"); strings.EqualFold(v, "true") || strings.EqualFold(v, "1") {
		cfg.Cache.TLS = true
	}
	if v := os.Getenv("RUNBOOK_ANALYZER_CACHE_MAX_RETRIES"); v != "" {
		if retry, err := strconv.Atoi(v); err == nil {
			cfg.Cache.MaxRetries = retry
		}
	}
	if v := os.Getenv("RUNBOOK_ANALYZER_CACHE_SUGGESTIONS_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.SuggestionsTTL = d
		}
	}
}
