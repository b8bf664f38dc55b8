package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	authhttp "github.com/PaulFidika/authcore/adapters/http"
	"github.com/PaulFidika/authcore/config"
	"github.com/PaulFidika/authcore/cookie"
	oauthkit "github.com/PaulFidika/authcore/oauth"
	"github.com/PaulFidika/authcore/ratelimit"
	"github.com/PaulFidika/authcore/riverjobs"
	"github.com/PaulFidika/authcore/session"
	memorystore "github.com/PaulFidika/authcore/storage/memory"
	pgstore "github.com/PaulFidika/authcore/storage/postgres"
	redisstore "github.com/PaulFidika/authcore/storage/redis"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.App{
		Name:  "authcore-devserver",
		Usage: "OAuth login and session server for local development",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "debug, info, warn or error",
				Value:   "info",
				EnvVars: []string{"AUTHCORE_LOG_LEVEL"},
			},
		},
		Before: func(cctx *cli.Context) error {
			var level slog.Level
			if err := level.UnmarshalText([]byte(cctx.String("log-level"))); err != nil {
				return fmt.Errorf("invalid log level: %w", err)
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "serve the /auth routes",
				Action: runServe,
			},
			{
				Name:   "migrate",
				Usage:  "apply the session event log migrations",
				Action: runMigrate,
			},
		},
		DefaultCommand: "serve",
	}
	app.RunAndExitOnError()
}

func runServe(cctx *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger := slog.Default()

	store, rdb, err := sessionStore(ctx, cfg)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	mgrOpts := []session.Option{session.WithLogger(logger)}
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		events := pgstore.NewEventLog(pool)
		mgrOpts = append(mgrOpts, session.WithEventLogger(events))

		rc, err := startPurger(ctx, cfg, pool, events, logger)
		if err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := rc.Stop(stopCtx); err != nil {
				logger.Warn("river stop", "err", err)
			}
		}()
	} else {
		logger.Warn("DATABASE_URL not set: session events are not recorded")
	}

	registry := oauthkit.NewRegistry(cfg.RedirectURLBase, cfg.Credentials(),
		oauthkit.WithClientOptions(
			oauthkit.WithLogger(logger),
			oauthkit.WithHTTPClient(&http.Client{Timeout: 15 * time.Second}),
		))
	if len(registry.Configured()) == 0 {
		logger.Warn("no OAuth providers configured")
	}

	codec, err := cookie.NewCodec([]byte(cfg.CookieSecret), int(session.TTL.Seconds()))
	if err != nil {
		return err
	}
	svc := authhttp.NewService(registry, session.NewManager(store, mgrOpts...)).
		WithCookieCodec(codec).
		WithLogger(logger).
		WithMetrics(authhttp.NewMetrics(prometheus.DefaultRegisterer)).
		WithPostLoginURL(cfg.PostLoginURL)
	if err := configureRateLimit(svc, cfg, rdb); err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/auth/", svc.Handler())

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("authcore listening", "addr", cfg.ListenAddr, "providers", registry.Configured())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// sessionStore also returns the Redis client, nil in memory mode, so the
// rate limiter can share it.
func sessionStore(ctx context.Context, cfg config.Config) (session.Store, *redis.Client, error) {
	if cfg.RedisURL == "" {
		slog.Warn("REDIS_URL not set: sessions are kept in memory")
		return memorystore.NewKV(), nil, nil
	}
	rdb, err := redisstore.NewClientFromURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	kv := redisstore.NewKV(rdb)
	if err := kv.Ping(ctx); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	return kv, rdb, nil
}

func configureRateLimit(svc *authhttp.Service, cfg config.Config, rdb *redis.Client) error {
	if cfg.RateLimitDisabled {
		slog.Warn("rate limiting disabled")
		svc.DisableRateLimiter()
		return nil
	}
	if rdb != nil {
		svc.WithRateLimiter(ratelimit.NewRedis(rdb, authhttp.DefaultRateLimits()))
	}
	trusted, err := cfg.TrustedProxyPrefixes()
	if err != nil {
		return err
	}
	if len(trusted) > 0 {
		svc.WithClientIPFunc(authhttp.ClientIPFromForwardedHeaders(trusted))
	}
	return nil
}

func startPurger(ctx context.Context, cfg config.Config, pool *pgxpool.Pool, events *pgstore.EventLog, logger *slog.Logger) (*river.Client[pgx.Tx], error) {
	workers := river.NewWorkers()
	riverjobs.RegisterPurgeSessionEventsWorker(workers, events, logger)

	job, err := riverjobs.PeriodicPurgeJob(cfg.PurgeCron, riverjobs.PurgeSessionEventsArgs{RetentionDays: cfg.EventRetentionDays}, false)
	if err != nil {
		return nil, err
	}
	rc, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues:       map[string]river.QueueConfig{river.QueueDefault: {MaxWorkers: 1}},
		Workers:      workers,
		PeriodicJobs: []*river.PeriodicJob{job},
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("river client: %w", err)
	}
	if err := rc.Start(ctx); err != nil {
		return nil, fmt.Errorf("river start: %w", err)
	}
	return rc, nil
}

func runMigrate(cctx *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required for migrate")
	}
	pool, err := pgxpool.New(cctx.Context, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	if err := pgstore.NewEventLog(pool).Migrate(cctx.Context); err != nil {
		return err
	}
	slog.Info("session event migrations applied")
	return nil
}
