// Command wishlist runs the feature wishlist API.
//
// Subcommands:
//   - serve:   migrate, optionally seed demo data, and serve HTTP until SIGINT/SIGTERM
//   - migrate: create or update the schema and exit
//   - seed:    load the demo catalog into an empty store and exit
//
// Configuration comes from the environment (see internal/config); a .env file
// in the working directory is loaded first when present.
//
// @title                      Feature Wishlist API
// @version                    1.0
// @description                Collect feature requests, vote on them once per browser, and triage them.
// @BasePath                   /api/v1
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/tbourn/go-wishlist-backend/internal/auth"
	"github.com/tbourn/go-wishlist-backend/internal/cache"
	"github.com/tbourn/go-wishlist-backend/internal/config"
	httpapi "github.com/tbourn/go-wishlist-backend/internal/http"
	"github.com/tbourn/go-wishlist-backend/internal/observability"
	"github.com/tbourn/go-wishlist-backend/internal/repo"
	"github.com/tbourn/go-wishlist-backend/internal/seed"
	"github.com/tbourn/go-wishlist-backend/internal/sysutil"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string
	root := &cobra.Command{
		Use:           "wishlist",
		Short:         "Feature wishlist API",
		Version:       sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A missing .env is normal outside local development.
			if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("load %s: %w", envFile, err)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading configuration")
	root.AddCommand(newServeCmd(), newMigrateCmd(), newSeedCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run migrations, then serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.close()
			if err := repo.AutoMigrate(a.db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			a.log.Info().Str("driver", a.cfg.DB.Driver).Msg("schema up to date")
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the demo catalog into an empty store",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.close()
			if err := repo.AutoMigrate(a.db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			if _, err := seed.DemoData(cmd.Context(), a.db, a.ids, time.Now()); err != nil {
				return fmt.Errorf("seed: %w", err)
			}
			return nil
		},
	}
}

// app holds what every subcommand needs.
type app struct {
	cfg     config.Config
	log     zerolog.Logger
	logSink io.Closer
	db      *gorm.DB
	ids     *snowflake.Node
}

func bootstrap() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	// Honour the standard OTel kill switch on top of OTEL_ENABLED.
	if sysutil.IsTruthy(os.Getenv("OTEL_SDK_DISABLED")) {
		cfg.OTEL.Enabled = false
	}

	logger, sink := sysutil.SetupLogger(sysutil.LogOptions{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		File:    cfg.LogFile,
		Service: cfg.OTEL.ServiceName,
		Version: sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version),
	})

	dsn := cfg.DB.Path
	if cfg.DB.Driver == repo.DriverPostgres {
		dsn = cfg.DB.URL
	}
	db, err := repo.Open(repo.Options{
		Driver:     cfg.DB.Driver,
		DSN:        dsn,
		Tracing:    cfg.OTEL.Enabled,
		LogQueries: cfg.LogLevel == "debug",
	})
	if err != nil {
		_ = sink.Close()
		return nil, fmt.Errorf("open %s store: %w", cfg.DB.Driver, err)
	}

	ids, err := snowflake.NewNode(cfg.SnowflakeNode)
	if err != nil {
		_ = sink.Close()
		return nil, fmt.Errorf("snowflake node: %w", err)
	}

	return &app{cfg: cfg, log: logger, logSink: sink, db: db, ids: ids}, nil
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.logSink.Close()
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()
	cfg := a.cfg

	shutdownTracing, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			a.log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	if err := repo.AutoMigrate(a.db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if cfg.TestDataEnabled {
		if _, err := seed.DemoData(ctx, a.db, a.ids, time.Now()); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}
	go purgeIdempotency(ctx, a.db, min(cfg.IdempotencyTTL, time.Hour), a.log)

	users, err := auth.ParseUsers(cfg.Auth.Users, 0)
	if err != nil {
		return err
	}
	if cfg.Auth.JWTSecret == "" {
		a.log.Warn().Msg("AUTH_JWT_SECRET not set: sessions end on restart")
	}
	sessions, err := auth.NewSessions(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)
	if err != nil {
		return err
	}

	var counter redis.Cmdable
	if cfg.Cache.RedisAddr != "" && cfg.Cache.VoteTTL > 0 {
		client, err := cache.NewRedisClient(ctx, cache.RedisOptions{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		if err != nil {
			return fmt.Errorf("redis %s: %w", cfg.Cache.RedisAddr, err)
		}
		defer client.Close()
		counter = client
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, a.db, cfg, httpapi.Deps{
		Users:    users,
		Sessions: sessions,
		Counts:   cache.New(cfg.Cache.VoteTTL, counter),
		IDs:      a.ids,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().
			Str("addr", srv.Addr).
			Str("api", cfg.APIBasePath).
			Str("store", cfg.DB.Driver).
			Int("users", users.Len()).
			Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}

// purgeIdempotency deletes expired idempotency records every interval until
// ctx is done.
func purgeIdempotency(ctx context.Context, db *gorm.DB, every time.Duration, log zerolog.Logger) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := repo.PurgeExpiredIdempotency(ctx, db, now.UTC())
			if err != nil {
				log.Warn().Err(err).Msg("idempotency purge failed")
				continue
			}
			if n > 0 {
				log.Debug().Int64("deleted", n).Msg("expired idempotency records purged")
			}
		}
	}
}
