package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	appservice "github.com/turtacn/tokengate/internal/application/service"
	"github.com/turtacn/tokengate/internal/config"
	"github.com/turtacn/tokengate/internal/domain/service"
	"github.com/turtacn/tokengate/internal/infrastructure/crypto"
	"github.com/turtacn/tokengate/internal/infrastructure/monitoring"
	"github.com/turtacn/tokengate/internal/infrastructure/persistence/postgres"
	redisconn "github.com/turtacn/tokengate/internal/infrastructure/persistence/redis"
	"github.com/turtacn/tokengate/internal/infrastructure/ratelimit"
	"github.com/turtacn/tokengate/internal/interfaces/http/handlers"
	"github.com/turtacn/tokengate/internal/interfaces/http/router"
	"github.com/turtacn/tokengate/pkg/errors"
	"github.com/turtacn/tokengate/pkg/logger"
)

func main() {
	configFile := flag.String("config", "", "path to the configuration file")
	flag.Parse()

	// Load config
	loader := config.NewLoader(*configFile)
	cfg, err := loader.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	appLogger, err := monitoring.NewZapLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, loader, cfg, appLogger); err != nil {
		appLogger.Error(ctx, "Server exited with error", err)
		_ = appLogger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, loader *config.Loader, cfg *config.Config, appLogger *monitoring.ZapLogger) error {
	appLogger.Info(ctx, "Configuration loaded", logger.Fields{"config_file": loader.ConfigFileUsed()})

	// Reload the log level when the config file changes
	loader.Watch(func(next *config.Config) {
		if err := appLogger.SetLevel(next.Log.Level); err != nil {
			appLogger.Warn(ctx, "Ignoring invalid log level", logger.Fields{"level": next.Log.Level})
			return
		}
		appLogger.Info(ctx, "Log level reloaded", logger.Fields{"level": appLogger.Level()})
	}, func(err error) {
		appLogger.Error(ctx, "Config reload rejected", err)
	})

	// Initialize tracing
	tracing, err := monitoring.NewTracingManager(ctx, cfg.Tracing, appLogger)
	if err != nil {
		return err
	}
	defer func() { _ = tracing.Shutdown(context.Background()) }()

	// Key material; a corrupt or half-present key pair aborts boot
	keys, err := crypto.NewKeyProvider(cfg.Keys, appLogger).EnsureKeys(ctx)
	if err != nil {
		appLogger.Error(ctx, "Failed to load signing keys", err, logger.Fields{"dir": cfg.Keys.Dir})
		return errors.ErrKeyLoad.WithMessage("signing keys in %s are unusable", cfg.Keys.Dir).WithError(err)
	}
	kid, err := keys.KeyID()
	if err != nil {
		return err
	}

	// Initialize database
	db, err := postgres.NewDBConnection(ctx, cfg.Database, appLogger)
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			return err
		}
	}
	userRepo := postgres.NewUserRepository(db.DB(), appLogger)

	// Rate limiting: Redis when configured, in-process otherwise
	healthChecks := map[string]handlers.Pinger{"database": db}
	memoryLimiter := ratelimit.NewMemoryRateLimiter(cfg.RateLimit)
	var limiter service.RateLimiter = memoryLimiter
	if cfg.Redis.Enabled {
		rc, err := redisconn.NewRedisConnection(ctx, cfg.Redis, appLogger)
		if err != nil {
			return err
		}
		defer rc.Close()
		limiter = ratelimit.NewRedisRateLimiter(rc.Client(), cfg.RateLimit, memoryLimiter, appLogger)
		healthChecks["redis"] = rc
	}

	metrics := monitoring.NewMetrics(nil)

	// Token policy and use cases
	codecOpts := []crypto.CodecOption{crypto.WithKeyID(kid)}
	if cfg.JWT.Issuer != "" {
		codecOpts = append(codecOpts, crypto.WithIssuer(cfg.JWT.Issuer))
	}
	tokens := service.NewTokenService(
		crypto.NewTokenCodec(keys, codecOpts...),
		service.TokenPolicy{
			AccessTokenTTL:  cfg.JWT.AccessTokenTTL(),
			RefreshTokenTTL: cfg.JWT.RefreshTokenTTL(),
		},
		service.WithMetrics(metrics),
	)
	hasher := crypto.NewBcryptHasher(cfg.Security.BcryptCost)
	authService := appservice.NewAuthAppService(userRepo, userRepo, hasher, hasher, tokens, appLogger,
		appservice.WithAuthMetrics(metrics))
	userService := appservice.NewUserAppService(userRepo, hasher, hasher, appLogger)

	jwks, err := handlers.NewJWKSHandler(keys)
	if err != nil {
		return err
	}

	r := router.NewRouter(router.Dependencies{
		Config:      cfg,
		Logger:      appLogger,
		Tokens:      tokens,
		Users:       userRepo,
		AuthService: authService,
		UserService: userService,
		JWKS:        jwks,
		Health:      handlers.NewHealthHandler(healthChecks, appLogger),
		Metrics:     metrics,
		RateLimiter: limiter,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info(context.Background(), "Shutdown signal received")
		return nil
	})
	return g.Wait()
}
