package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/mnavtrack/nav-engine/internal/config"
	"github.com/mnavtrack/nav-engine/internal/feed"
	"github.com/mnavtrack/nav-engine/internal/metrics"
	"github.com/mnavtrack/nav-engine/internal/store"
	"github.com/mnavtrack/nav-engine/internal/tracker"
)

func main() {
	configPath := flag.String("config", os.Getenv("MNAV_CONFIG"), "path to TOML config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "path", *configPath, "err", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "err", err)
		os.Exit(1)
	}
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	// Validate has already checked both.
	loc, _ := cfg.Location()
	classifier, _ := cfg.Classifier()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// --- Initialize store and price cache ---
	var st store.Store
	var priceCache feed.PriceCache = feed.NewMemoryPriceCache()
	var cleanup []func()

	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.New(ctx, cfg.Postgres.URL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		pg := store.NewPostgresStore(pool)
		if err := pg.Migrate(ctx); err != nil {
			slog.Error("database migration failed", "err", err)
			os.Exit(1)
		}
		st = pg
		slog.Info("connected to PostgreSQL")
	} else {
		slog.Warn("postgres url not set, using in-memory store (parameter updates will not persist)")
		st = store.NewMemoryStore()
	}

	if cfg.Redis.URL != "" {
		opt, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			slog.Error("invalid redis url", "err", err)
			os.Exit(1)
		}
		rdb := redis.NewClient(opt)
		cleanup = append(cleanup, func() { rdb.Close() })
		if cfg.Postgres.URL != "" {
			st = store.NewCachedStore(st, rdb, cfg.Redis.TreasuryTTL.Duration)
		}
		priceCache = feed.NewRedisPriceCache(rdb, 10*cfg.Feed.CacheTTL.Duration)
		slog.Info("Redis cache enabled")
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	seeded, err := store.Seed(ctx, st, &cfg.Treasury)
	if err != nil {
		slog.Error("failed to seed treasury parameters", "err", err)
		os.Exit(1)
	}
	slog.Info("treasury parameters loaded",
		"name", seeded.Name,
		"equity", seeded.EquitySymbol,
		"shares", seeded.SharesOutstanding,
	)

	// --- Price feed ---
	var pf feed.Feed = feed.NewYahooFeed(cfg.Feed.BaseURL, cfg.Feed.Timeout.Duration)
	if cfg.Feed.CacheTTL.Duration > 0 {
		pf = feed.NewCachedFeed(pf, priceCache, cfg.Feed.CacheTTL.Duration)
	}

	// --- WebSocket hub and refresher ---
	wsHub := tracker.NewWSHub()
	go wsHub.Run(ctx)

	refresher := tracker.NewRefresher(st, pf, classifier, wsHub, cfg.Feed.RefreshInterval.Duration, loc)
	go refresher.Run(ctx)

	svc := tracker.NewService(st, refresher, wsHub)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	// CORS middleware for the dashboard frontend.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"nav-engine"}`))
	})

	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", svc.Routes)

	// --- Server ---
	addr := ":" + strconv.Itoa(cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
		IdleTimeout:  cfg.Server.IdleTimeout.Duration,
	}

	go func() {
		slog.Info("nav-engine listening", "addr", addr, "refresh_interval", cfg.Feed.RefreshInterval.Duration)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down nav-engine...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("nav-engine stopped")
}
