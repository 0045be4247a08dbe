package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/socialfeed/internal/program"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, program.DefaultFees(), cfg.ProgramFees())
	id, err := cfg.Program()
	require.NoError(t, err)
	assert.Equal(t, program.DefaultProgramID, id)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "feed.yaml", `
server:
  addr: ":9090"
  enable_airdrop: true
  shutdown_timeout: 3s
  allowed_origins: ["https://feed.example"]
storage:
  backend: postgres
  postgres_dsn: postgres://feed@localhost/feed
fees:
  post: 5
  like: 1
genesis:
  master_seed: dev-seed
  accounts:
    - name: alice
      balance: 1000
jobs:
  stats_schedule: "@every 1m"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.True(t, cfg.Server.EnableAirdrop)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, []string{"https://feed.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, BackendPostgres, cfg.Storage.Backend)
	assert.Equal(t, program.Fees{Post: 5, Like: 1}, cfg.ProgramFees())
	require.Len(t, cfg.Genesis.Accounts, 1)
	assert.Equal(t, GenesisAccount{Name: "alice", Balance: 1000}, cfg.Genesis.Accounts[0])
	assert.Equal(t, "@every 1m", cfg.Jobs.StatsSchedule)
	// Untouched values keep their defaults.
	assert.Equal(t, 20.0, cfg.Server.RateLimit)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	path := writeFile(t, "feed.yaml", "server:\n  addr: \":9090\"\n")
	t.Setenv("FEED_HTTP_ADDR", ":7070")
	t.Setenv("FEED_FEE_LIKE", "250")
	t.Setenv("FEED_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, uint64(250), cfg.Fees.Like)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_EnvFile(t *testing.T) {
	env := writeFile(t, ".env", "FEED_REDIS_PREFIX=from-dotenv\n")
	t.Cleanup(func() { os.Unsetenv("FEED_REDIS_PREFIX") })

	cfg, err := Load("", env, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Storage.RedisPrefix)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "bad.yaml", "server: [\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad program id", func(c *Config) { c.ProgramID = "0OIl" }},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "sqlite" }},
		{"postgres without dsn", func(c *Config) { c.Storage.Backend = BackendPostgres }},
		{"redis without addr", func(c *Config) { c.Storage.Backend = BackendRedis; c.Storage.RedisAddr = "" }},
		{"negative rate", func(c *Config) { c.Server.RateLimit = -1 }},
		{"genesis without seed", func(c *Config) { c.Genesis.Accounts = []GenesisAccount{{Name: "a", Balance: 1}} }},
		{"genesis without name", func(c *Config) {
			c.Genesis.MasterSeed = "seed"
			c.Genesis.Accounts = []GenesisAccount{{Balance: 1}}
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, Default().Validate())
}

func TestLoad_ExampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "feedd.yaml"))
	require.NoError(t, err)
	assert.True(t, cfg.Server.EnableAirdrop)
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.Len(t, cfg.Genesis.Accounts, 2)
}
