package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vitalform/backend-api/internal/api"
	"github.com/vitalform/backend-api/internal/config"
	"github.com/vitalform/backend-api/internal/crypto"
	"github.com/vitalform/backend-api/internal/database"
	"github.com/vitalform/backend-api/internal/logging"
	"github.com/vitalform/backend-api/internal/services"
	"github.com/vitalform/backend-api/internal/telegram"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(1)
	}
}

// run wires configuration, storage, services and the HTTP server together,
// then blocks until a termination signal triggers graceful shutdown.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	stdLogger := logging.NewStandardLogger(cfg.LogLevel, cfg.Environment)
	logging.SetDefault(stdLogger)
	defer stdLogger.Sync()
	logger := stdLogger.WithService("vitalform-backend-api")

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Sentry.Environment,
			TracesSampleRate: cfg.Sentry.SampleRate,
			Release:          api.Version,
		}); err != nil {
			logger.Warn("failed to initialize Sentry", zap.Error(err))
		}
		defer sentry.Flush(2 * time.Second)
	}

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("failed to close database connection", zap.Error(err))
		}
	}()

	// Redis only backs the rate limiter; the service runs without it.
	redisClient, err := database.NewRedisConnection(cfg.Redis)
	if err != nil {
		logger.Warn("failed to connect to Redis, continuing without it", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	sessions := services.NewSessionService(db)
	vault := services.NewMemoryTokenVault()
	directory := telegram.NewDirectory(db)

	var deliverer *telegram.Deliverer
	if cfg.Telegram.BotToken != "" {
		bot, err := telegram.NewBot(cfg.Telegram.BotToken)
		if err != nil {
			logger.Warn("failed to connect to Telegram, codes will not be delivered", zap.Error(err))
		} else {
			deliverer = telegram.NewDeliverer(bot, directory)
		}
	} else {
		logger.Warn("TELEGRAM_BOT_TOKEN is not set, codes will not be delivered")
	}

	// A nil *Deliverer must not end up as a non-nil interface value.
	var codeDeliverer services.CodeDeliverer
	if deliverer != nil {
		codeDeliverer = deliverer
	}
	otp := services.NewOTPService(db, sessions, codeDeliverer)

	var questionnaires *services.QuestionnaireService
	if cfg.Auth.EncryptionKey != "" {
		encryptor, err := crypto.NewEncryptorFromKeyString(cfg.Auth.EncryptionKey)
		if err != nil {
			return fmt.Errorf("invalid AUTH_ENCRYPTION_KEY: %w", err)
		}
		questionnaires = services.NewQuestionnaireService(db, encryptor)
	} else {
		logger.Warn("AUTH_ENCRYPTION_KEY is not set, questionnaire endpoints will reject requests")
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	api.SetupRoutes(router, api.Dependencies{
		DB:             db,
		Redis:          redisClient,
		OTP:            otp,
		Sessions:       sessions,
		Vault:          vault,
		Questionnaires: questionnaires,
		Deliverer:      deliverer,
		Directory:      directory,
		Config:         cfg,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       15 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Server.Port), zap.String("driver", cfg.Database.Driver))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited gracefully")
	return nil
}
