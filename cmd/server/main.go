package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/kwei/leadsync/internal/catalog"
	"github.com/kwei/leadsync/internal/config"
	"github.com/kwei/leadsync/internal/logging"
	"github.com/kwei/leadsync/internal/order"
	"github.com/kwei/leadsync/internal/session"
	"github.com/kwei/leadsync/internal/takealot"
	"github.com/kwei/leadsync/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_max_conns", cfg.Database.MaxConns,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"stock_sync_enabled", cfg.Takealot.APIKey != "",
	)

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		slog.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		Password: cfg.Redis.Password,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Error("failed to ping redis", "addr", cfg.Redis.Addr, "error", err)
		os.Exit(1)
	}
	slog.Info("connected to redis", "addr", cfg.Redis.Addr)

	parts := catalog.New(pool)
	warnings, scoped := checkStockLocation(ctx, parts, cfg)
	if scoped {
		parts = parts.WithLocation(cfg.Sync.DefaultStockLocation)
	}

	orders := order.NewStore(pool, cfg.Sync.CustomerName, cfg.Sync.OrderBaseURL)
	if scoped {
		orders = orders.WithLocation(cfg.Sync.DefaultStockLocation)
	}
	publisher := takealot.NewClient(
		cfg.Takealot.BaseURL,
		cfg.Takealot.APIKey,
		cfg.Takealot.WarehouseID,
		cfg.Takealot.Timeout,
		cfg.Takealot.PartialBatch,
	)
	sessions := session.New(rdb, cfg.Redis.SessionTTL)

	server := web.NewServer(cfg, parts, sessions, orders, publisher, warnings)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}

// checkStockLocation verifies the stock-location configuration once at boot.
// It returns user-facing warnings (repeated on every upload response) and
// whether availability queries should be scoped to the configured location.
func checkStockLocation(ctx context.Context, parts *catalog.Store, cfg *config.Config) ([]string, bool) {
	if cfg.Sync.DefaultStockLocation == 0 {
		return []string{"No default stock location configured; availability is computed across all locations."}, false
	}

	name, ok, err := parts.LocationName(ctx, cfg.Sync.DefaultStockLocation)
	if err != nil {
		slog.Error("failed to verify stock location", "id", cfg.Sync.DefaultStockLocation, "error", err)
		os.Exit(1)
	}
	if !ok {
		slog.Warn("configured stock location does not exist", "id", cfg.Sync.DefaultStockLocation)
		return []string{"Configured stock location not found; availability is computed across all locations."}, false
	}

	slog.Info("availability scoped to stock location", "id", cfg.Sync.DefaultStockLocation, "name", name)
	return nil, true
}
