// Package config loads the storefront settings: defaults, then an optional YAML file,
// then environment variables.
package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/norun9/bakery-storefront/cartstore"
	"github.com/norun9/bakery-storefront/pricing"
)

type Config struct {
	Port       string `yaml:"port"`
	HealthPort string `yaml:"health_port"`
	LogLevel   string `yaml:"log_level"`

	Storage StorageConfig `yaml:"storage"`
	TaxRate float64       `yaml:"tax_rate"`

	Tracing TracingConfig `yaml:"tracing"`
}

type StorageConfig struct {
	Backend    string `yaml:"backend"`
	QuotaBytes int    `yaml:"quota_bytes"`
	Dir        string `yaml:"dir"`
	RedisAddr  string `yaml:"redis_addr"`
	RedisHash  string `yaml:"redis_hash"`
	SQLitePath string `yaml:"sqlite_path"`
}

type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		Port:       "8080",
		HealthPort: "7070",
		LogLevel:   "info",
		Storage: StorageConfig{
			Backend:    cartstore.BackendMemory,
			QuotaBytes: 5 << 20,
			Dir:        "data/carts",
			RedisHash:  cartstore.DefaultRedisHash,
			SQLitePath: "data/storefront.db",
		},
		TaxRate: pricing.DefaultTaxRate,
		Tracing: TracingConfig{
			Enabled:  false,
			Endpoint: "localhost:4317",
		},
	}
}

// Load applies the YAML file at path (skipped when path is empty) and then the
// environment on top of the defaults, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	setString := func(name string, dst *string) {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*dst = v
		}
	}
	setString("PORT", &c.Port)
	setString("HEALTH_PORT", &c.HealthPort)
	setString("LOG_LEVEL", &c.LogLevel)
	setString("STORAGE_BACKEND", &c.Storage.Backend)
	setString("STORAGE_DIR", &c.Storage.Dir)
	setString("REDIS_ADDR", &c.Storage.RedisAddr)
	setString("REDIS_HASH", &c.Storage.RedisHash)
	setString("SQLITE_PATH", &c.Storage.SQLitePath)
	setString("OTEL_EXPORTER_OTLP_ENDPOINT", &c.Tracing.Endpoint)

	if v := os.Getenv("STORAGE_QUOTA_BYTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("STORAGE_QUOTA_BYTES: %w", err)
		}
		c.Storage.QuotaBytes = n
	}
	if v := os.Getenv("TAX_RATE"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("TAX_RATE: %w", err)
		}
		c.TaxRate = rate
	}
	if v := os.Getenv("TRACING_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TRACING_ENABLED: %w", err)
		}
		c.Tracing.Enabled = enabled
	}
	return nil
}

func (c Config) Validate() error {
	for name, port := range map[string]string{"port": c.Port, "health_port": c.HealthPort} {
		n, err := strconv.Atoi(port)
		if err != nil || n < 0 || n > 65535 {
			return fmt.Errorf("%s %q is not a valid port", name, port)
		}
	}
	switch c.Storage.Backend {
	case cartstore.BackendMemory, cartstore.BackendFile, cartstore.BackendSQLite:
	case cartstore.BackendRedis:
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("storage backend redis needs REDIS_ADDR")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if math.IsNaN(c.TaxRate) || c.TaxRate < 0 || c.TaxRate > 1 {
		return fmt.Errorf("tax_rate %v must be between 0 and 1", c.TaxRate)
	}
	return nil
}

// redisAddr adds the default port when the address has none.
func (s StorageConfig) redisAddr() string {
	if s.RedisAddr != "" && !strings.Contains(s.RedisAddr, ":") {
		return s.RedisAddr + ":6379"
	}
	return s.RedisAddr
}

// StorageOptions converts the storage section for cartstore.Open.
func (c Config) StorageOptions() cartstore.Options {
	return cartstore.Options{
		Backend:    c.Storage.Backend,
		QuotaBytes: c.Storage.QuotaBytes,
		Dir:        c.Storage.Dir,
		RedisAddr:  c.Storage.redisAddr(),
		RedisHash:  c.Storage.RedisHash,
		SQLitePath: c.Storage.SQLitePath,
	}
}
