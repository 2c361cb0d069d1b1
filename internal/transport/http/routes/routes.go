package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/juanjice29/PortalCapacitaciones/internal/core/domain"
	"github.com/juanjice29/PortalCapacitaciones/internal/infra/config"
	"github.com/juanjice29/PortalCapacitaciones/internal/infra/security"
	"github.com/juanjice29/PortalCapacitaciones/internal/transport/http/handlers"
	"github.com/juanjice29/PortalCapacitaciones/internal/transport/http/middleware"
	"github.com/juanjice29/PortalCapacitaciones/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth        *usecase.AuthService
	Federation  *usecase.FederationService
	Users       *usecase.UserService
	Enrollments *usecase.EnrollmentService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Metrics     *middleware.HTTPMetrics
	Services    ServiceSet
	TokenCodec  *security.TokenCodec
}

// Register configures the Gin engine with routes and middleware.
//
// Every route is gated by exactly one capability: credential exchange and
// health are public, account and enrollment routes require an identity, and
// the per-route middleware plus the usecases enforce role and ownership.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Trace())
	r.Use(middleware.Logger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}
	r.Use(middleware.Identity(deps.TokenCodec))

	healthHandler := handlers.NewHealthHandler()
	r.GET("/healthz", healthHandler.Status)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		authHandler := handlers.NewAuthHandler(deps.Services.Auth)
		authHandler.RegisterRoutes(authGroup,
			buildRateLimit(deps, "auth_login_ip", deps.Config.RateLimit.LoginMaxAttempts),
			buildRateLimit(deps, "auth_register_ip", deps.Config.RateLimit.RegisterMaxAttempts),
		)

		if deps.Services.Federation != nil {
			oauthHandler := handlers.NewOAuthHandler(deps.Services.Federation, deps.Config.OAuth, deps.Logger)
			oauthHandler.RegisterRoutes(authGroup)
		}

		authenticated := middleware.RequireCapability(domain.Authenticated(), "")

		userGroup := api.Group("/usuarios")
		userGroup.Use(authenticated)
		handlers.NewUserHandler(deps.Services.Users).RegisterRoutes(userGroup)

		enrollmentHandler := handlers.NewEnrollmentHandler(deps.Services.Enrollments)
		enrollmentHandler.RegisterUserRoutes(userGroup)

		enrollmentGroup := api.Group("/inscripciones")
		enrollmentGroup.Use(authenticated)
		enrollmentHandler.RegisterEnrollmentRoutes(enrollmentGroup)

		reportGroup := api.Group("/reportes")
		reportGroup.Use(authenticated)
		handlers.NewReportHandler(deps.Services.Enrollments).RegisterRoutes(reportGroup)
	}

	return r
}

func buildRateLimit(deps Dependencies, name string, limit int) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil || limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := middleware.RateLimitRule{
		Name:       name,
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}
