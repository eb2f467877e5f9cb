package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/redis/go-redis/v9"

	"github.com/ANAVHEOBA/dumzfun/adapters/cache"
	"github.com/ANAVHEOBA/dumzfun/adapters/events"
	"github.com/ANAVHEOBA/dumzfun/adapters/ledger"
	"github.com/ANAVHEOBA/dumzfun/adapters/store/postgres"
	"github.com/ANAVHEOBA/dumzfun/adapters/tokenizer"
	"github.com/ANAVHEOBA/dumzfun/adapters/wallet"
	"github.com/ANAVHEOBA/dumzfun/config"
	"github.com/ANAVHEOBA/dumzfun/internal/logctx"
	"github.com/ANAVHEOBA/dumzfun/ports"
	"github.com/ANAVHEOBA/dumzfun/service"
	transport "github.com/ANAVHEOBA/dumzfun/transport/http"
)

const cacheSweepInterval = 5 * time.Minute

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(*configPath)
	log := setupLogger(cfg.Env)
	log.Info("starting", "env", cfg.Env, "addr", cfg.HTTP.Addr())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logctx.Into(ctx, log)

	if err := run(ctx, cfg, log); err != nil {
		log.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	store, err := postgres.New(ctx, cfg.DB.DatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		return err
	}

	sharedCache, publisher, err := setupRedis(ctx, cfg, log)
	if err != nil {
		return err
	}

	var blobs ports.LedgerBlobStore
	if cfg.Ledger.GatewayURL != "" {
		blobs = ledger.NewHTTPGateway(cfg.Ledger.GatewayURL, &http.Client{Timeout: cfg.Ledger.Timeout})
	} else {
		log.Warn("no ledger gateway configured, profile anchoring is in-memory only")
		blobs = ledger.NewMemoryStore()
	}

	issuer := tokenizer.NewJWTTokenizer([]byte(cfg.Auth.JWTSecret), cfg.Auth.AccessTokenTTL)
	verifier := wallet.NewVerifier()

	authService := service.NewAuthService(
		verifier, issuer, sharedCache,
		store.Sessions(), store.Identities(), publisher,
		cfg.Auth.NonceTTL, cfg.Auth.SessionTTL,
	)
	sessionService := service.NewSessionService(store.Sessions(), sharedCache, publisher)
	profileService := service.NewProfileService(store.Profiles(), blobs, sharedCache)
	adminService := service.NewAdminService(
		store.Identities(), store.Profiles(), sessionService, store.Sessions(), sharedCache,
	)

	sweeper := service.NewSessionSweeper(store.Sessions(), service.DefaultSweepInterval)
	go sweeper.Run(ctx)

	router := transport.SetupRouter(transport.RouterDeps{
		Log:             log,
		Issuer:          issuer,
		Cache:           sharedCache,
		Auth:            authService,
		Sessions:        sessionService,
		Profiles:        profileService,
		Admin:           adminService,
		RateLimitMax:    int64(cfg.RateLimit.Max),
		RateLimitWindow: cfg.RateLimit.Window,
	})

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// setupRedis returns the shared cache and event publisher. Without a Redis
// URL the service falls back to an in-process cache and drops events,
// which is only correct single-instance.
func setupRedis(ctx context.Context, cfg *config.Config, log *slog.Logger) (ports.Cache, ports.EventPublisher, error) {
	if cfg.Redis.RedisURL == "" {
		log.Warn("no redis configured, using in-process cache and dropping events")
		mem := cache.NewMemoryCache()
		go mem.Run(ctx, cacheSweepInterval)
		return mem, events.NopPublisher{}, nil
	}

	opts, err := redis.ParseURL(cfg.Redis.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, nil, err
	}

	publisher, err := newStreamPublisher(client, log)
	if err != nil {
		return nil, nil, err
	}
	return cache.NewRedisCache(client, ""), publisher, nil
}

func newStreamPublisher(client *redis.Client, log *slog.Logger) (ports.EventPublisher, error) {
	wmLogger := watermill.NewSlogLogger(log)
	pub, err := events.NewRedisStreamPublisher(client, wmLogger)
	if err != nil {
		return nil, err
	}
	return pub, nil
}

func setupLogger(env string) *slog.Logger {
	var handler slog.Handler
	switch env {
	case "local":
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	case "dev":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	default:
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}
