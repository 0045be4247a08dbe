// Command feedd runs a social feed node: the ledger, the feed program and
// the HTTP API in front of them.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/R3E-Network/socialfeed/internal/config"
	"github.com/R3E-Network/socialfeed/internal/executor"
	"github.com/R3E-Network/socialfeed/internal/httpapi"
	"github.com/R3E-Network/socialfeed/internal/ledger"
	"github.com/R3E-Network/socialfeed/internal/metrics"
	"github.com/R3E-Network/socialfeed/internal/middleware"
	"github.com/R3E-Network/socialfeed/internal/program"
	"github.com/R3E-Network/socialfeed/internal/storage/memory"
	"github.com/R3E-Network/socialfeed/internal/storage/postgres"
	"github.com/R3E-Network/socialfeed/internal/storage/redis"
	"github.com/R3E-Network/socialfeed/internal/wallet"
	"github.com/R3E-Network/socialfeed/pkg/logger"
)

const limiterIdle = 10 * time.Minute

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	envFile := flag.String("env", ".env", "Path to .env file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "feedd: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("feedd", cfg.Logging)
	if err := run(cfg, log); err != nil {
		log.WithError(err).Error("feedd stopped")
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := openBackend(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	l, err := ledger.Open(ctx, ledger.WithBackend(backend), ledger.WithLogger(log.Named("ledger")))
	if err != nil {
		_ = backend.Close()
		return fmt.Errorf("open ledger: %w", err)
	}
	defer func() {
		if err := l.Close(); err != nil {
			log.WithError(err).Warn("close ledger")
		}
	}()

	if err := fundGenesis(ctx, l, cfg.Genesis, log); err != nil {
		return err
	}

	programID, err := cfg.Program()
	if err != nil {
		return err
	}
	p := program.New(programID,
		program.WithFees(cfg.ProgramFees()),
		program.WithLogger(log.Named("program")),
	)
	exec := executor.New(l, p, log.Named("executor"))

	var limiter *middleware.RateLimiter
	if cfg.Server.RateLimit > 0 {
		limiter = middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst, log.Named("ratelimit"))
	}

	jobs, err := startJobs(cfg.Jobs, l, limiter, log.Named("jobs"))
	if err != nil {
		return err
	}
	defer func() { <-jobs.Stop().Done() }()

	server := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: httpapi.NewHandler(httpapi.Deps{
			Ledger:         l,
			Program:        p,
			Executor:       exec,
			Logger:         log.Named("http"),
			Limiter:        limiter,
			AllowedOrigins: cfg.Server.AllowedOrigins,
			EnableAirdrop:  cfg.Server.EnableAirdrop,
		}),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(map[string]interface{}{
			"addr":    cfg.Server.Addr,
			"program": programID.String(),
			"backend": cfg.Storage.Backend,
		}).Info("feed node listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func openBackend(ctx context.Context, cfg config.StorageConfig) (ledger.Backend, error) {
	switch strings.ToLower(cfg.Backend) {
	case config.BackendPostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres backend: %w", err)
		}
		return store, nil
	case config.BackendRedis:
		store, err := redis.Open(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisPrefix)
		if err != nil {
			return nil, fmt.Errorf("open redis backend: %w", err)
		}
		return store, nil
	default:
		return memory.New(), nil
	}
}

// fundGenesis credits the configured wallets, but only on a fresh ledger so
// restarts do not mint again.
func fundGenesis(ctx context.Context, l *ledger.Ledger, cfg config.GenesisConfig, log *logger.Logger) error {
	if len(cfg.Accounts) == 0 {
		return nil
	}
	if stats := l.Stats(); stats.Slot > 0 || stats.Accounts > 0 {
		log.WithField("slot", stats.Slot).Info("ledger already initialized, skipping genesis")
		return nil
	}
	for _, acct := range cfg.Accounts {
		w, err := wallet.Derive([]byte(cfg.MasterSeed), acct.Name)
		if err != nil {
			return fmt.Errorf("derive genesis wallet %s: %w", acct.Name, err)
		}
		if acct.Balance > 0 {
			if _, err := l.Airdrop(ctx, w.Address(), acct.Balance); err != nil {
				return fmt.Errorf("fund genesis wallet %s: %w", acct.Name, err)
			}
		}
		log.WithFields(map[string]interface{}{
			"name":       acct.Name,
			"address":    w.Address().String(),
			"public_key": w.PublicKeyHex(),
			"balance":    acct.Balance,
		}).Info("genesis wallet")
	}
	return nil
}

func startJobs(cfg config.JobsConfig, l *ledger.Ledger, limiter *middleware.RateLimiter, log *logger.Logger) (*cron.Cron, error) {
	c := cron.New()
	if cfg.StatsSchedule != "" {
		_, err := c.AddFunc(cfg.StatsSchedule, func() {
			stats := l.Stats()
			metrics.RecordLedgerStats(stats.Slot, stats.Accounts, stats.DataAccounts, stats.TotalBalance)
			log.WithFields(map[string]interface{}{
				"slot":     stats.Slot,
				"accounts": stats.Accounts,
			}).Debug("ledger stats published")
		})
		if err != nil {
			return nil, fmt.Errorf("schedule stats job: %w", err)
		}
	}
	if limiter != nil {
		_, err := c.AddFunc("@every 1m", func() {
			if n := limiter.Cleanup(limiterIdle); n > 0 {
				log.WithField("removed", n).Debug("rate limiter entries expired")
			}
		})
		if err != nil {
			return nil, fmt.Errorf("schedule limiter cleanup: %w", err)
		}
	}
	c.Start()
	return c, nil
}
