package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/authwatch/authwatch/pkg/anomaly"
	"github.com/authwatch/authwatch/pkg/cache"
	"github.com/authwatch/authwatch/pkg/config"
	handlers "github.com/authwatch/authwatch/pkg/handlers/http"
	"github.com/authwatch/authwatch/pkg/infra/jwt"
	infraLogger "github.com/authwatch/authwatch/pkg/infra/logger"
	"github.com/authwatch/authwatch/pkg/infra/metrics"
	"github.com/authwatch/authwatch/pkg/infra/prometheus"
	"github.com/authwatch/authwatch/pkg/middleware"
	"github.com/authwatch/authwatch/pkg/server"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Println("no .env file found, using system environment variables")
	}

	logger := infraLogger.NewLogger()

	if err := config.Load("./config"); err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	cfg := config.GetConfig()

	if cfg.Metrics.Enabled {
		prometheus.Initialize()
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize profile store: %v", err)
	}

	sink := anomaly.MultiSink{anomaly.NewLogSink(logger)}
	if cfg.Metrics.Enabled {
		sink = append(sink, metrics.NewPrometheusSink())
	}

	engine, err := anomaly.NewEngine(cfg.Engine, store, logger, anomaly.WithEventSink(sink))
	if err != nil {
		logger.Fatalf("Failed to initialize anomaly engine: %v", err)
	}
	engine.StartDecay(ctx)

	if cfg.Metrics.Enabled {
		go refreshProfileGauges(ctx, engine, logger)
	}

	jwtManager := jwt.NewJwtManager(cfg.Server.SecretKey)

	middlewareTransport := middleware.Transport{
		AdminAuthMiddleware: middleware.NewAdminAuthMiddleware(logger, jwtManager),
		MetricsMiddleware:   middleware.NewMetricsMiddleware(logger),
		RecoverMiddleware:   middleware.NewPanicRecoverMiddleware(logger),
	}

	handlerTransport := handlers.HandlerTransport{
		RecordLoginHandler:   handlers.NewRecordLoginHandler(logger, engine),
		RecordActionHandler:  handlers.NewRecordActionHandler(logger, engine),
		GetProfileHandler:    handlers.NewGetProfileHandler(logger, engine),
		ResetProfileHandler:  handlers.NewResetProfileHandler(logger, engine),
		UnlockProfileHandler: handlers.NewUnlockProfileHandler(logger, engine),
		GetStatsHandler:      handlers.NewGetStatsHandler(logger, engine),
	}

	srv := server.NewEngineServer(server.EngineServerDI{
		MiddlewareTransport: middlewareTransport,
		HandlerTransport:    handlerTransport,
		Config:              cfg,
		Logger:              logger,
	})

	go func() {
		if err := srv.Run(); err != nil {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server...")
	cancel()
	engine.Stop()
	if err := srv.Shutdown(); err != nil {
		logger.WithError(err).Error("error shutting down server")
		os.Exit(1)
	}
	logger.Info("server gracefully stopped")
}

func refreshProfileGauges(ctx context.Context, engine *anomaly.Engine, logger *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m, err := engine.GetMetrics(ctx)
			if err != nil {
				logger.WithError(err).Warn("failed to refresh profile gauges")
				continue
			}
			prometheus.ProfilesTotal.Set(float64(m.TotalProfiles))
			prometheus.LockedProfiles.Set(float64(m.LockedCount))
		}
	}
}

func buildStore(ctx context.Context, cfg *config.Config) (anomaly.ProfileStore, error) {
	profileTTL, err := time.ParseDuration(cfg.Storage.ProfileTTL)
	if err != nil {
		return nil, err
	}

	switch cfg.Storage.Backend {
	case "redis":
		client, err := cache.NewClient(cfg.Redis)
		if err != nil {
			return nil, err
		}
		return anomaly.NewRedisStore(client, profileTTL), nil
	default:
		sweepInterval, err := time.ParseDuration(cfg.Storage.SweepInterval)
		if err != nil {
			return nil, err
		}
		store := anomaly.NewMemoryStore(profileTTL)
		store.StartJanitor(ctx, sweepInterval)
		return store, nil
	}
}
