// Package config loads the node configuration from a YAML file, an optional
// .env file and FEED_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/R3E-Network/socialfeed/internal/ledger"
	"github.com/R3E-Network/socialfeed/internal/program"
	"github.com/R3E-Network/socialfeed/pkg/logger"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config is the full node configuration.
type Config struct {
	// ProgramID is the base58 identity of the feed program. Empty selects
	// program.DefaultProgramID.
	ProgramID string        `yaml:"program_id" env:"FEED_PROGRAM_ID"`
	Server    ServerConfig  `yaml:"server"`
	Storage   StorageConfig `yaml:"storage"`
	Logging   logger.Config `yaml:"logging"`
	Fees      FeeConfig     `yaml:"fees"`
	Genesis   GenesisConfig `yaml:"genesis"`
	Jobs      JobsConfig    `yaml:"jobs"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"FEED_HTTP_ADDR"`
	RateLimit       float64       `yaml:"rate_limit" env:"FEED_RATE_LIMIT"` // requests per second per client
	RateBurst       int           `yaml:"rate_burst" env:"FEED_RATE_BURST"`
	EnableAirdrop   bool          `yaml:"enable_airdrop" env:"FEED_ENABLE_AIRDROP"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"FEED_SHUTDOWN_TIMEOUT"`
	// AllowedOrigins enables CORS for browser clients; "*" allows any origin.
	AllowedOrigins []string `yaml:"allowed_origins" env:"FEED_CORS_ORIGINS"`
}

// StorageConfig selects and configures the ledger backend.
type StorageConfig struct {
	Backend       string `yaml:"backend" env:"FEED_STORAGE_BACKEND"`
	PostgresDSN   string `yaml:"postgres_dsn" env:"FEED_POSTGRES_DSN"`
	RedisAddr     string `yaml:"redis_addr" env:"FEED_REDIS_ADDR"`
	RedisPassword string `yaml:"redis_password" env:"FEED_REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"FEED_REDIS_DB"`
	RedisPrefix   string `yaml:"redis_prefix" env:"FEED_REDIS_PREFIX"`
}

// FeeConfig overrides the program fee schedule.
type FeeConfig struct {
	Post uint64 `yaml:"post" env:"FEED_FEE_POST"`
	Like uint64 `yaml:"like" env:"FEED_FEE_LIKE"`
}

// GenesisConfig funds deterministic wallets when the ledger starts empty.
type GenesisConfig struct {
	MasterSeed string           `yaml:"master_seed" env:"FEED_MASTER_SEED"`
	Accounts   []GenesisAccount `yaml:"accounts"`
}

// GenesisAccount is one funded wallet, derived from the master seed by name.
type GenesisAccount struct {
	Name    string `yaml:"name"`
	Balance uint64 `yaml:"balance"`
}

// JobsConfig schedules background jobs.
type JobsConfig struct {
	// StatsSchedule is a cron spec for publishing ledger statistics.
	StatsSchedule string `yaml:"stats_schedule" env:"FEED_STATS_SCHEDULE"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	fees := program.DefaultFees()
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			RateLimit:       20,
			RateBurst:       40,
			ShutdownTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Backend:     BackendMemory,
			RedisAddr:   "localhost:6379",
			RedisPrefix: "socialfeed",
		},
		Logging: logger.Config{Level: "info", Format: "json"},
		Fees:    FeeConfig{Post: fees.Post, Like: fees.Like},
		Jobs:    JobsConfig{StatsSchedule: "@every 30s"},
	}
}

// Load builds the configuration. path is an optional YAML file; envFiles are
// optional .env files, missing ones are skipped.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load env (%s): %w", file, err)
		}
	}
	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if _, err := c.Program(); err != nil {
		return fmt.Errorf("program_id: %w", err)
	}
	switch strings.ToLower(c.Storage.Backend) {
	case BackendMemory:
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage: postgres_dsn is required for the postgres backend")
		}
	case BackendRedis:
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("storage: redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("storage: unknown backend %q", c.Storage.Backend)
	}
	if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
		return fmt.Errorf("server: rate limits must not be negative")
	}
	if len(c.Genesis.Accounts) > 0 && c.Genesis.MasterSeed == "" {
		return fmt.Errorf("genesis: master_seed is required to derive genesis accounts")
	}
	for i, acct := range c.Genesis.Accounts {
		if strings.TrimSpace(acct.Name) == "" {
			return fmt.Errorf("genesis: account %d: name is required", i)
		}
	}
	return nil
}

// Program returns the configured program identity.
func (c *Config) Program() (ledger.Address, error) {
	if c.ProgramID == "" {
		return program.DefaultProgramID, nil
	}
	return ledger.ParseAddress(c.ProgramID)
}

// ProgramFees returns the fee schedule for the program.
func (c *Config) ProgramFees() program.Fees {
	return program.Fees{Post: c.Fees.Post, Like: c.Fees.Like}
}
