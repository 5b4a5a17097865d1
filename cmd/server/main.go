package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/garyjia/payment-portal/internal/config"
	"github.com/garyjia/payment-portal/internal/export"
	"github.com/garyjia/payment-portal/internal/gateway"
	httpserver "github.com/garyjia/payment-portal/internal/interfaces/http"
	"github.com/garyjia/payment-portal/internal/resource"
	"github.com/garyjia/payment-portal/internal/session"
	"github.com/garyjia/payment-portal/internal/storage"
	"github.com/garyjia/payment-portal/migrations"
	"github.com/garyjia/payment-portal/pkg/database"
	"github.com/garyjia/payment-portal/pkg/utils"
)

func main() {
	configPath := "configs/config.yaml"
	if p := os.Getenv("PORTAL_CONFIG"); p != "" {
		configPath = p
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(cfg.LoggerConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting payment portal",
		zap.String("version", "1.0.0"),
		zap.String("upstream", cfg.Upstream.BaseURL),
		zap.String("addr", cfg.Addr()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database for durable sessions
	db, err := database.New(cfg.DatabaseConfig(), logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	if err := database.NewMigrator(db, logger).Run(ctx, migrations.FS); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	scoped, err := newScopedStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize session store", zap.Error(err))
	}

	// Payment API gateway and the shared query cache
	client := gateway.NewClient(cfg.GatewayConfig(), logger)
	api := gateway.NewAPI(client, cfg.Upstream.CountryCodesURL)
	cache := resource.NewCache(cfg.Cache.Size, cfg.Cache.TTL)

	sessions := session.NewManager(api, session.NewSQLiteStore(db, logger), scoped, cache, cfg.SessionManagerConfig(), logger)
	if err := sessions.StartJanitor(); err != nil {
		logger.Fatal("Failed to start session janitor", zap.Error(err))
	}
	defer sessions.StopJanitor()

	// Attachment staging
	stager := storage.NewStager(cfg.Uploads.Dir, cfg.Uploads.MaxFileSize, logger)
	uploadJanitor, err := startUploadJanitor(stager, cfg.Uploads.StaleAfter, logger)
	if err != nil {
		logger.Fatal("Failed to start upload janitor", zap.Error(err))
	}
	defer uploadJanitor.Stop()

	server, err := httpserver.NewServer(httpserver.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		SecureCookies:   cfg.Server.SecureCookies,
		TrustedProxies:  cfg.Server.TrustedProxies,
	}, httpserver.Deps{
		API:      api,
		Sessions: sessions,
		Loaders:  resource.NewLoaders(api, cache),
		Stager:   stager,
		Exporter: export.NewRequestsExporter(logger),
		Limiter:  httpserver.NewLoginLimiter(cfg.RateLimit.LoginPerMinute, cfg.RateLimit.LoginBurst),
		Defaults: cfg.FormDefaults(),
	}, httpserver.NewZapLogger(logger))
	if err != nil {
		logger.Fatal("Failed to create HTTP server", zap.Error(err))
	}

	if err := server.Start(ctx); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}

	logger.Info("Server exited")
}

// newScopedStore opens the store for browser-session logins
func newScopedStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (session.Store, error) {
	if cfg.Session.Store != "redis" {
		logger.Info("Using in-memory session store")
		return session.NewMemoryStore(), nil
	}

	store := session.NewRedisStore(session.NewRedisClient(cfg.RedisConfig()))
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("redis is unreachable: %w", err)
	}
	logger.Info("Using redis session store", zap.Strings("addrs", cfg.Session.Redis.Addrs))
	return store, nil
}

// startUploadJanitor removes staging folders left behind by interrupted
// submissions, once now and then every staleAfter
func startUploadJanitor(stager *storage.Stager, staleAfter time.Duration, logger *zap.Logger) (*cron.Cron, error) {
	purge := func() {
		n, err := stager.Folders().PurgeStale(time.Now().Add(-staleAfter))
		if err != nil {
			logger.Error("Failed to purge stale uploads", zap.Error(err))
			return
		}
		if n > 0 {
			logger.Info("Purged stale uploads", zap.Int("folders", n))
		}
	}
	purge()

	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", staleAfter), purge); err != nil {
		return nil, fmt.Errorf("invalid upload purge interval %s: %w", staleAfter, err)
	}
	c.Start()
	return c, nil
}
