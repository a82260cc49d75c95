package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/playperu/vrquest/internal/auth"
	"github.com/playperu/vrquest/internal/catalog"
	"github.com/playperu/vrquest/internal/config"
	"github.com/playperu/vrquest/internal/database"
	"github.com/playperu/vrquest/internal/engine"
	"github.com/playperu/vrquest/internal/events"
	"github.com/playperu/vrquest/internal/handler/health"
	"github.com/playperu/vrquest/internal/migrations"
	"github.com/playperu/vrquest/internal/quest"
	"github.com/playperu/vrquest/internal/ranking"
	"github.com/playperu/vrquest/internal/server"
	"github.com/playperu/vrquest/internal/store/postgres"
	"github.com/playperu/vrquest/internal/store/sqlite"
	"github.com/playperu/vrquest/internal/telemetry"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- Tracing ---
	shutdownTracing, err := telemetry.Setup(ctx, "vrquest", cfg.OTELEndpoint)
	if err != nil {
		return fmt.Errorf("setting up tracing: %w", err)
	}
	defer shutdownTracing(context.Background())

	// --- SQLite ---
	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := database.Open(ctx, cfg.DBDriver, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	applied, err := migrations.Run(ctx, db)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "driver", cfg.DBDriver, "path", cfg.DBPath, "migrations_applied", len(applied))

	sqlStore := sqlite.New(db)
	checks := map[string]health.Checker{"sqlite": dbChecker{db}}

	// --- Catalog ---
	if cfg.SeedDemo {
		stats, err := catalog.Import(ctx, catalog.Demo(), sqlStore)
		if err != nil {
			return fmt.Errorf("seeding demo tour: %w", err)
		}
		logger.Info("seeded demo tour", "tours", stats.Tours, "scenes", stats.Scenes, "pois", stats.POIs)
	}
	var tours quest.Catalog = sqlStore
	if cfg.CatalogFile != "" {
		fileCatalog, err := catalog.LoadFile(cfg.CatalogFile)
		if err != nil {
			return fmt.Errorf("loading catalog: %w", err)
		}
		tours = fileCatalog
		logger.Info("serving catalog from file", "path", cfg.CatalogFile)
	}

	// --- Progress store ---
	var progress quest.ProgressStore = sqlStore
	if cfg.ProgressDSN != "" {
		pg, err := postgres.New(ctx, cfg.ProgressDSN)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer pg.Close()
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
		progress = pg
		checks["postgres"] = health.CheckerFunc(pg.Ping)
		logger.Info("connected to postgres progress store")
	}

	// --- Leaderboard cache ---
	var cache ranking.Cache = ranking.NewMemoryCache()
	if cfg.RedisURL != "" {
		rdb, err := openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		cache = ranking.NewRedisCache(rdb)
		checks["redis"] = health.Optional(redisChecker{rdb})
		logger.Info("connected to redis")
	}
	boards := ranking.NewService(progress, cache, cfg.LeaderboardTTL, logger)

	// --- Progress events ---
	publisher, err := events.NewPublisher(events.Config{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.KafkaTopic,
	}, logger)
	if err != nil {
		return fmt.Errorf("creating event publisher: %w", err)
	}
	defer publisher.Close()

	eng := engine.New(tours, progress, logger,
		engine.WithLeaderboards(boards),
		engine.WithPublisher(publisher),
		engine.WithDailyContent(cfg.DailyContent),
		engine.WithSessionIdle(cfg.SessionIdle),
	)
	verifier := auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer)

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, eng, verifier, func(r chi.Router) {
		r.Mount("/healthz", health.NewHandler(logger, checks).Routes())
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}

// dbChecker adapts *sql.DB to health.Checker.
type dbChecker struct{ db *sql.DB }

func (d dbChecker) Check(ctx context.Context) error { return d.db.PingContext(ctx) }

// redisChecker adapts *redis.Client to health.Checker.
type redisChecker struct{ client *redis.Client }

func (r redisChecker) Check(ctx context.Context) error { return r.client.Ping(ctx).Err() }
