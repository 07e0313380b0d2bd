// Package common provides shared utilities for coinfolio
package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for coinfolio
type Config struct {
	Environment   string        `toml:"environment"`
	QuoteCurrency string        `toml:"quote_currency"` // Currency prices are quoted in (default "usd")
	Storage       StorageConfig `toml:"storage"`
	Clients       ClientsConfig `toml:"clients"`
	Sync          SyncConfig    `toml:"sync"`
	Logging       LoggingConfig `toml:"logging"`
}

// StorageConfig selects the key-value backend holding the investment collection.
type StorageConfig struct {
	Backend   string          `toml:"backend"` // file | badger | surrealdb
	Key       string          `toml:"key"`     // Name of the entry holding the serialized collection
	File      FileConfig      `toml:"file"`
	Badger    AreaConfig      `toml:"badger"`
	SurrealDB SurrealDBConfig `toml:"surrealdb"`
}

// FileConfig holds file backend settings. Versions is the number of previous
// copies kept beside each entry.
type FileConfig struct {
	Path     string `toml:"path"`
	Versions int    `toml:"versions"`
}

// AreaConfig holds path configuration for a storage area.
type AreaConfig struct {
	Path string `toml:"path"`
}

// SurrealDBConfig holds SurrealDB connection settings.
type SurrealDBConfig struct {
	Address   string `toml:"address"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	CoinGecko CoinGeckoConfig `toml:"coingecko"`
}

// CoinGeckoConfig holds price service configuration
type CoinGeckoConfig struct {
	BaseURL     string `toml:"base_url"`
	RelayURL    string `toml:"relay_url"` // Empty disables the fallback transport
	APIKey      string `toml:"api_key"`
	RateLimit   int    `toml:"rate_limit"`
	Timeout     string `toml:"timeout"`
	CoinListTTL string `toml:"coin_list_ttl"` // How long a downloaded /coins/list is reused by the resolver
}

// GetTimeout parses and returns the timeout duration
func (c *CoinGeckoConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 15 * time.Second
	}
	return d
}

// GetCoinListTTL parses the coin list TTL. Zero disables caching.
func (c *CoinGeckoConfig) GetCoinListTTL() time.Duration {
	d, err := time.ParseDuration(c.CoinListTTL)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// SyncConfig holds price synchronization settings
type SyncConfig struct {
	Interval                 string  `toml:"interval"`
	ResolveConcurrency       int     `toml:"resolve_concurrency"`
	SuspiciousPriceThreshold float64 `toml:"suspicious_price_threshold"`
}

// GetInterval parses and returns the refresh interval
func (c *SyncConfig) GetInterval() time.Duration {
	d, err := time.ParseDuration(c.Interval)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level    string   `toml:"level"`
	Format   string   `toml:"format"`
	Outputs  []string `toml:"outputs"`
	FilePath string   `toml:"file_path"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment:   "development",
		QuoteCurrency: "usd",
		Storage: StorageConfig{
			Backend: "file",
			Key:     "investments",
			File:    FileConfig{Path: "data", Versions: 3},
			Badger:  AreaConfig{Path: "data/badger"},
			SurrealDB: SurrealDBConfig{
				Address:   "ws://localhost:8000/rpc",
				Namespace: "coinfolio",
				Database:  "coinfolio",
				Username:  "root",
				Password:  "root",
			},
		},
		Clients: ClientsConfig{
			CoinGecko: CoinGeckoConfig{
				BaseURL:     "https://api.coingecko.com/api/v3",
				RelayURL:    "https://api.allorigins.win/raw?url=",
				RateLimit:   5,
				Timeout:     "15s",
				CoinListTTL: FreshnessCoinList.String(),
			},
		},
		Sync: SyncConfig{
			Interval:                 "5m",
			ResolveConcurrency:       4,
			SuspiciousPriceThreshold: 1.0,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "console",
			Outputs:  []string{"console"},
			FilePath: "logs/coinfolio.log",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Later files override earlier ones
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)
	normalize(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("COINFOLIO_ENV"); env != "" {
		config.Environment = env
	}

	if qc := os.Getenv("COINFOLIO_QUOTE_CURRENCY"); qc != "" {
		config.QuoteCurrency = qc
	}

	if backend := os.Getenv("COINFOLIO_STORAGE_BACKEND"); backend != "" {
		config.Storage.Backend = backend
	}

	if path := os.Getenv("COINFOLIO_DATA_PATH"); path != "" {
		config.Storage.File.Path = path
		config.Storage.Badger.Path = filepath.Join(path, "badger")
	}

	if addr := os.Getenv("COINFOLIO_SURREALDB_ADDRESS"); addr != "" {
		config.Storage.SurrealDB.Address = addr
	}

	if url := os.Getenv("COINFOLIO_COINGECKO_BASE_URL"); url != "" {
		config.Clients.CoinGecko.BaseURL = url
	}

	// An explicitly empty value is meaningful here: it disables the relay.
	if relay, ok := os.LookupEnv("COINFOLIO_RELAY_URL"); ok {
		config.Clients.CoinGecko.RelayURL = relay
	}

	if key := os.Getenv("COINGECKO_API_KEY"); key != "" {
		config.Clients.CoinGecko.APIKey = key
	}

	if rl := os.Getenv("COINFOLIO_RATE_LIMIT"); rl != "" {
		if n, err := strconv.Atoi(rl); err == nil && n > 0 {
			config.Clients.CoinGecko.RateLimit = n
		}
	}

	if interval := os.Getenv("COINFOLIO_SYNC_INTERVAL"); interval != "" {
		config.Sync.Interval = interval
	}

	if level := os.Getenv("COINFOLIO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// normalize fills in values that must never be empty after loading.
func normalize(config *Config) {
	config.QuoteCurrency = strings.ToLower(strings.TrimSpace(config.QuoteCurrency))
	if config.QuoteCurrency == "" {
		config.QuoteCurrency = "usd"
	}
	config.Storage.Backend = strings.ToLower(strings.TrimSpace(config.Storage.Backend))
	if config.Storage.Backend == "" {
		config.Storage.Backend = "file"
	}
	if config.Storage.Key == "" {
		config.Storage.Key = "investments"
	}
	if config.Sync.ResolveConcurrency <= 0 {
		config.Sync.ResolveConcurrency = 1
	}
	if config.Clients.CoinGecko.RateLimit <= 0 {
		config.Clients.CoinGecko.RateLimit = 5
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
