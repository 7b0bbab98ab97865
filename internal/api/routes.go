package api

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vitalform/backend-api/internal/api/handlers"
	"github.com/vitalform/backend-api/internal/config"
	"github.com/vitalform/backend-api/internal/database"
	"github.com/vitalform/backend-api/internal/middleware"
	"github.com/vitalform/backend-api/internal/services"
	"github.com/vitalform/backend-api/internal/telegram"
)

// Version is stamped at build time.
var Version = "dev"

// Dependencies carries everything SetupRoutes wires into handlers. Redis,
// the bot and the encryptor are optional; routes depending on them degrade
// gracefully when absent.
type Dependencies struct {
	DB             database.Database
	Redis          *database.RedisClient
	OTP            *services.OTPService
	Sessions       *services.SessionService
	Vault          services.TokenVault
	Questionnaires *services.QuestionnaireService
	Deliverer      *telegram.Deliverer
	Directory      *telegram.Directory
	Config         *config.Config
	Logger         *zap.Logger
}

// SetupRoutes registers the full HTTP surface on the router.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	var redisHealth handlers.RedisHealthChecker
	var redisClient = deps.Redis
	if redisClient != nil {
		redisHealth = redisClient
	}
	healthHandler := handlers.NewHealthHandler(deps.DB, redisHealth, Version)

	router.GET("/health", healthHandler.HealthCheck)
	router.HEAD("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)

	authHandler := handlers.NewAuthHandler(deps.OTP, deps.Sessions)
	handshakeHandler := handlers.NewHandshakeHandler(deps.Vault, deps.Config.Telegram.BotSecret, deps.Config.Server.PublicURL)
	questionnaireHandler := handlers.NewQuestionnaireHandler(deps.Questionnaires, deps.Sessions, deps.Deliverer)
	webhookHandler := handlers.NewWebhookHandler(deps.Directory)

	// Telegram calls these two directly; they live outside /api/v1.
	router.GET("/auth/bot/callback", handshakeHandler.Callback)
	router.POST("/telegram/webhook", webhookHandler.Handle)

	var redisForLimiter *redis.Client
	if redisClient != nil {
		redisForLimiter = redisClient.Client
	}
	otpLimiter := middleware.NewRateLimiter(middleware.OTPRateLimitConfig(), redisForLimiter, deps.Logger)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.TelemetryMiddleware())
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/otp/request", otpLimiter.Middleware(), authHandler.RequestOTP)
			auth.POST("/otp/verify", authHandler.VerifyOTP)
			auth.POST("/signout", authHandler.SignOut)
			auth.GET("/session", middleware.SessionAuth(deps.Sessions), authHandler.WhoAmI)
			auth.POST("/bot/token", handshakeHandler.IssueToken)
		}

		questionnaire := v1.Group("/questionnaire")
		{
			questionnaire.POST("", questionnaireHandler.Save)
			questionnaire.GET("", questionnaireHandler.Get)
			questionnaire.DELETE("", questionnaireHandler.Delete)
		}
	}
}
