package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"claims-portal/internal/assistant"
	"claims-portal/internal/config"
	"claims-portal/internal/dispatch"
	"claims-portal/internal/external"
	apphttp "claims-portal/internal/http"
	"claims-portal/internal/repository"
	"claims-portal/internal/repository/memory"
	"claims-portal/internal/seed"
	"claims-portal/internal/service"
	"claims-portal/internal/session"
	"claims-portal/internal/storage"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	configureLogger(logger, cfg)

	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fixture, err := seed.Load(cfg.Claims.SeedFile)
	if err != nil {
		logger.Fatalf("load seed: %v", err)
	}
	identity := service.NewIdentityService(memory.NewUserRepository(fixture.Users))

	dispatcher := dispatch.New(dispatch.Config{
		MaxConcurrent: cfg.Dispatch.Workers,
		JobTimeout:    cfg.BackendTimeout(),
		Logger:        logger,
	})
	if err := dispatcher.Start(ctx); err != nil {
		logger.Fatalf("start dispatcher: %v", err)
	}

	backend := external.NewBackend(external.BackendConfig{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: cfg.BackendTimeout(),
	})
	if backend.Enabled() {
		logger.Infof("claims backend at %s", cfg.Backend.BaseURL)
	} else {
		logger.Info("claims backend not configured, creating claims locally")
	}

	storageSvc, err := buildStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup storage: %v", err)
	}

	sessionStore, err := buildSessionStore(cfg)
	if err != nil {
		logger.Fatalf("setup session store: %v", err)
	}
	tokens, err := session.NewTokens(cfg.Auth.JWTSecret, cfg.TokenTTL())
	if err != nil {
		logger.Fatalf("setup tokens: %v", err)
	}

	claimStores := session.MemoryClaimStores()
	if cfg.Store.Driver == "sqlite" {
		claimStores = session.SQLiteClaimStores()
	}

	claimCfg := service.ClaimConfig{
		SubmitDelay: cfg.SubmitDelay(),
		CustomerID:  cfg.Backend.CustomerID,
		Logger:      logger,
	}
	sessions := session.NewManager(session.ManagerConfig{
		Identity:    identity,
		ClaimStores: claimStores,
		NewClaims: func(repo repository.ClaimRepository) service.ClaimService {
			return service.NewClaimService(claimCfg, repo, backend, dispatcher)
		},
		SeedClaims: fixture.Claims,
		Store:      sessionStore,
		Tokens:     tokens,
		TTL:        cfg.SessionTTL(),
		Logger:     logger,
	})
	go sessions.Run(ctx, time.Minute)

	gemini := external.NewGemini(external.GeminiConfig{
		APIKey:  cfg.AI.APIKey,
		BaseURL: cfg.AI.BaseURL,
		Models:  cfg.AI.Models,
		Logger:  logger,
	})
	if !gemini.Enabled() {
		logger.Warn(external.DisabledMessage)
	}

	ledger := service.NewLedgerSync(backend, dispatcher, cfg.Backend.CustomerID, logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(apphttp.Config{
		Sessions:       sessions,
		Identity:       identity,
		Intake:         service.NewIntake(backend, storageSvc, ledger, logger),
		Storage:        storageSvc,
		Assistant:      assistant.New(gemini, logger),
		CORSOrigin:     cfg.Server.CORSOrigin,
		MaxUploadBytes: cfg.Storage.MaxInlineBytes,
		AIRate:         rate.Limit(cfg.AI.RatePerSecond),
		AIBurst:        cfg.AI.Burst,
		Logger:         logger,
	})
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	dispatcher.Shutdown()
	sessions.Shutdown()

	logger.Info("bye")
}

func configureLogger(logger *logrus.Logger, cfg config.Config) {
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warnf("unknown log level %q, using info", cfg.Log.Level)
	}
	if cfg.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
}

func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	if cfg.Storage.Driver != "s3" {
		logger.Info("storing claim documents inline")
		return storage.NewInlineService(cfg.Storage.MaxInlineBytes), nil
	}

	svc, err := storage.NewS3FromConfig(ctx, storage.S3Options{
		Bucket:     cfg.Storage.Bucket,
		KeyPrefix:  cfg.Storage.KeyPrefix,
		Region:     cfg.Storage.Region,
		Endpoint:   cfg.Storage.Endpoint,
		Profile:    cfg.AWS.Profile,
		PresignTTL: cfg.PresignTTL(),
		MaxBytes:   cfg.Storage.MaxInlineBytes,
	})
	if err != nil {
		return nil, err
	}
	logger.Infof("using s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return svc, nil
}

func buildSessionStore(cfg config.Config) (session.Store, error) {
	switch cfg.Session.Backend {
	case "redis":
		store, err := session.NewRedisStore(cfg.Session.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis session store: %w", err)
		}
		return store, nil
	default:
		return session.NewMemoryStore(), nil
	}
}
