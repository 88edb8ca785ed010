package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/todocloud/auth-service/config"
	"github.com/todocloud/auth-service/db"
	"github.com/todocloud/auth-service/internal/auth/handler"
	repo "github.com/todocloud/auth-service/internal/auth/repository/postgres"
	"github.com/todocloud/auth-service/internal/auth/service"
	"github.com/todocloud/auth-service/internal/obs"
	"github.com/todocloud/auth-service/internal/ratelimit"
)

func main() {
	cfg := config.Load()

	logger, err := obs.NewLogger(obs.LogConfig{
		Level:  "info",
		Pretty: cfg.Env != "production",
		App:    "auth-service",
		Env:    cfg.Env,
	})
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := db.NewPostgresPool(ctx, cfg.DBURL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer dbPool.Close()

	limiter := ratelimit.NewSlidingWindow(cfg.LoginMaxAttempts,
		time.Duration(cfg.LoginWindowMinutes)*time.Minute, logger)
	limiter.Start(ctx)
	defer limiter.Stop()

	userRepo := repo.NewPostgresRepository(dbPool)
	tokenService := service.NewTokenService(cfg.AccessTokenSecret, cfg.RefreshTokenSecret,
		cfg.AccessExpiryMin, cfg.RefreshExpiryMin, cfg.TokenAudience, cfg.TokenIssuer)
	sessionService := service.NewSessionService(userRepo, tokenService, limiter, cfg, logger)
	authHandler := handler.NewAuthHandler(sessionService, cfg, logger)

	var oauthHandler *handler.OAuthHandler
	if cfg.GoogleClientID != "" {
		oauthHandler = handler.NewOAuthHandler(authHandler, handler.NewGoogleOAuthConfig(cfg))
	}

	app := fiber.New()
	handler.RegisterRoutes(app, authHandler, oauthHandler)

	go func() {
		<-ctx.Done()
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	logger.Info("starting auth service", zap.String("port", cfg.Port))
	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
