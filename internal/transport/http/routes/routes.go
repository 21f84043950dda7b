package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/bwanakweli4ever/prozlab-backend/internal/core/port"
	"github.com/bwanakweli4ever/prozlab-backend/internal/infra/config"
	"github.com/bwanakweli4ever/prozlab-backend/internal/transport/http/handlers"
	"github.com/bwanakweli4ever/prozlab-backend/internal/transport/http/middleware"
	"github.com/bwanakweli4ever/prozlab-backend/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Verification  *usecase.VerificationService
	PasswordReset *usecase.PasswordResetService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config    *config.AppConfig
	Logger    *zap.Logger
	Services  ServiceSet
	Users     port.UserRepository
	IPLimiter middleware.Limiter
	Metrics   *middleware.HTTPMetrics
	Status    handlers.StatusResponse
	Database  DatabaseChecker
	Cache     CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS([]string{"*"}))

	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	healthOptions := []handlers.HealthOption{
		handlers.WithServiceStatus(deps.Status),
	}

	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}

	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}

	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		isDev := deps.Config.App.IsDevelopment()

		authGroup := api.Group("/auth")

		authGroup.GET("/status", healthHandler.ServiceStatus)

		emailGroup := authGroup.Group("/email")
		emailGroup.Use(throttle(deps, "auth_email_ip"))
		emailHandler := handlers.NewEmailVerificationHandler(deps.Services.Verification, deps.Users, deps.Logger, isDev)
		emailHandler.RegisterRoutes(emailGroup)

		otpGroup := authGroup.Group("/otp")
		otpGroup.Use(throttle(deps, "auth_otp_ip"))
		otpHandler := handlers.NewOTPHandler(deps.Services.Verification, deps.Users, deps.Logger, isDev)
		otpHandler.RegisterRoutes(otpGroup)

		passwordGroup := authGroup.Group("/password")
		passwordGroup.Use(throttle(deps, "auth_password_ip"))
		passwordHandler := handlers.NewPasswordHandler(deps.Services.PasswordReset, deps.Logger, isDev)
		passwordHandler.RegisterRoutes(passwordGroup)
	}

	return r
}

func throttle(deps Dependencies, name string) gin.HandlerFunc {
	if deps.IPLimiter == nil {
		return func(c *gin.Context) { c.Next() }
	}

	rule := middleware.ThrottleRule{
		Name:       name,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return middleware.Throttle(deps.IPLimiter, rule, deps.Logger)
}
