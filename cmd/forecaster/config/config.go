// Package config provides configuration parsing for the forecaster.
//
// It handles both command-line flags and environment variables, with flags
// taking precedence over environment variables. The Config struct contains
// all runtime configuration for the forecaster including:
//   - Forecast parameters (train split, horizon, steps, seasonal period)
//   - Data source settings (kind and a generic SOURCE_* config map)
//   - Storage backend settings (memory or redis)
//   - Timing configuration (refresh interval)
//   - Logging configuration (level, format)
//
// Supported configuration sources (in order of precedence):
//  1. Command-line flags
//  2. Environment variables
//  3. Default values
package config

import (
	"flag"
	"fmt"
	"os"
	"regexp"
	"time"
)

// Config holds all forecaster configuration.
type Config struct {
	Listen    string
	LogFormat string
	LogLevel  string

	Storage       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration

	Series       string
	Source       string
	SourceConfig map[string]string

	TrainSize float64
	Steps     int
	Period    int
	Tune      bool
	Interval  time.Duration
}

// ParseFlags parses command-line flags and environment variables into a
// Config. Environment variables are used as fallbacks when flags are not
// provided.
func ParseFlags() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.Listen, "listen", getEnv("LISTEN", ":8080"), "HTTP listen address")

	flag.StringVar(&cfg.LogFormat, "log-format", getEnv("LOG_FORMAT", "text"), "Log format: text or json")
	flag.StringVar(&cfg.LogLevel, "log-level", getEnv("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")

	flag.StringVar(&cfg.Storage, "storage", getEnv("STORAGE", "memory"), "Storage backend: memory or redis")
	flag.StringVar(&cfg.RedisAddr, "redis-addr", getEnv("REDIS_ADDR", "localhost:6379"), "Redis server address")
	flag.StringVar(&cfg.RedisPassword, "redis-password", getEnv("REDIS_PASSWORD", ""), "Redis password")
	flag.IntVar(&cfg.RedisDB, "redis-db", getEnvInt("REDIS_DB", 0), "Redis database number")
	flag.DurationVar(&cfg.RedisTTL, "redis-ttl", getEnvDuration("REDIS_TTL", 30*time.Minute), "Redis snapshot TTL")

	flag.StringVar(&cfg.Series, "series", getEnv("SERIES", "default"), "Series name for stored snapshots")
	flag.StringVar(&cfg.Source, "source", getEnv("SOURCE", ""), "Data source kind: csv or http (empty disables the refresh loop)")

	flag.Float64Var(&cfg.TrainSize, "train-size", getEnvFloat("TRAIN_SIZE", 0.8), "Fraction of history used for backtest training")
	flag.IntVar(&cfg.Steps, "steps", getEnvInt("STEPS", 30), "Forecast horizon in days")
	flag.IntVar(&cfg.Period, "period", getEnvInt("PERIOD", 7), "Seasonal period in days for the default models")
	flag.BoolVar(&cfg.Tune, "tune", getEnvBool("TUNE", false), "Run hyperparameter search instead of the default roster")
	flag.DurationVar(&cfg.Interval, "interval", getEnvDuration("INTERVAL", 1*time.Hour), "Refresh loop interval")

	flag.Parse()

	cfg.SourceConfig = parseSourceConfig()
	return cfg
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if !seriesNameRegex.MatchString(c.Series) {
		return fmt.Errorf("invalid series name %q (must be alphanumeric with dash/underscore/dot)", c.Series)
	}
	if c.TrainSize <= 0 || c.TrainSize >= 1 {
		return fmt.Errorf("train-size must be in (0, 1), got %v", c.TrainSize)
	}
	if c.Steps <= 0 {
		return fmt.Errorf("steps must be > 0, got %d", c.Steps)
	}
	if c.Period < 0 {
		return fmt.Errorf("period cannot be negative, got %d", c.Period)
	}
	if c.Storage != "memory" && c.Storage != "redis" {
		return fmt.Errorf("invalid storage %q (must be memory or redis)", c.Storage)
	}
	if c.Source != "" && c.Source != "csv" && c.Source != "http" {
		return fmt.Errorf("invalid source %q (must be csv or http)", c.Source)
	}
	if c.Source != "" && c.Interval <= 0 {
		return fmt.Errorf("interval must be > 0 when a source is configured, got %v", c.Interval)
	}
	return nil
}

var seriesNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,252}$`)

// parseSourceConfig parses SOURCE_* environment variables into a generic
// configuration map. Source-specific configuration is provided via
// environment variables with the SOURCE_ prefix, e.g. SOURCE_PATH,
// SOURCE_URL, SOURCE_VALUE_PATH. Names are converted to camelCase for the
// map keys (SOURCE_VALUE_PATH -> valuePath).
func parseSourceConfig() map[string]string {
	config := make(map[string]string)

	for _, env := range os.Environ() {
		if len(env) > 7 && env[:7] == "SOURCE_" {
			parts := splitEnv(env)
			if len(parts) == 2 {
				key := toLowerCamelCase(parts[0][7:])
				config[key] = parts[1]
			}
		}
	}

	return config
}

func splitEnv(env string) []string {
	for i := 0; i < len(env); i++ {
		if env[i] == '=' {
			return []string{env[:i], env[i+1:]}
		}
	}
	return []string{env}
}

func toLowerCamelCase(s string) string {
	if s == "" {
		return s
	}
	parts := []rune(s)
	result := make([]rune, 0, len(parts))
	nextUpper := false
	for i, r := range parts {
		if r == '_' {
			nextUpper = true
			continue
		}
		if i == 0 {
			result = append(result, toLower(r))
		} else if nextUpper {
			result = append(result, r)
			nextUpper = false
		} else {
			result = append(result, toLower(r))
		}
	}
	return string(result)
}

func toLower(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + 32
	}
	return r
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var f float64
		if _, err := fmt.Sscanf(value, "%f", &f); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}
