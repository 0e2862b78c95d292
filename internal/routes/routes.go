package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/pulseesg/backend/internal/config"
	"github.com/pulseesg/backend/internal/controllers"
	"github.com/pulseesg/backend/internal/database"
	"github.com/pulseesg/backend/internal/metrics"
	"github.com/pulseesg/backend/internal/middleware"
	"github.com/pulseesg/backend/internal/models"
	"github.com/pulseesg/backend/internal/repository"
	"github.com/pulseesg/backend/internal/services"
	"gorm.io/gorm"
)

// Deps are the long-lived objects the router is built from.
type Deps struct {
	DB      *gorm.DB
	Config  *config.Config
	AI      *services.AIClient // nil leaves analysis unavailable
	Metrics *metrics.Metrics
	Version string
}

// NewRouter creates the engine with the global middleware stack and all
// routes.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false

	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.CustomLoggerMiddleware())
	r.Use(middleware.CORSMiddleware(d.Config.CORS.AllowedOrigins()))
	r.Use(gin.Recovery())

	SetupRoutes(r, d)
	return r
}

// SetupRoutes configures all application routes
func SetupRoutes(r *gin.Engine, d Deps) {
	// Repositories
	analysts := repository.NewAnalystRepository(d.DB)
	companies := repository.NewCompanyRepository(d.DB)
	analyses := repository.NewAnalysisRepository(d.DB)

	// The payload column probe runs once; the guard keeps the answer.
	guard := services.NewPersistenceGuard(analyses, analyses.HasPayloadColumn(context.Background()),
		services.WithGuardMetrics(d.Metrics))

	// Services
	authService := services.NewAuthService(analysts, d.Config.JWT.Secret, d.Config.JWT.Expiration)
	companyService := services.NewCompanyService(companies)
	// A nil *AIClient must not become a non-nil interface.
	var analyzer services.RemoteAnalyzer
	var aiHealth controllers.HealthChecker
	if d.AI != nil {
		analyzer = d.AI
		aiHealth = d.AI
	}
	esgService := services.NewESGAnalysisService(companies, analyzer, services.NewResponseValidator(), guard, analyses, d.Metrics)

	// Controllers
	authController := controllers.NewAuthController(authService)
	userController := controllers.NewUserController(authService)
	companyController := controllers.NewCompanyController(companyService)
	esgController := controllers.NewESGController(esgService)
	healthController := controllers.NewHealthController(func() error { return database.Ping(d.DB) }, aiHealth, d.Version)

	loginLimiter := middleware.NewLoginRateLimiter(d.Config.Login.RatePerMinute, d.Config.Login.Burst)

	r.GET("/", healthController.Health)
	r.GET("/health", healthController.Health)
	r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	api := r.Group("/api")
	{
		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/login", loginLimiter.Middleware(), authController.Login)
			auth.POST("/register", loginLimiter.Middleware(), authController.Register)
		}

		// Protected routes
		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware(authService))
		{
			protected.POST("/auth/change-password", authController.ChangePassword)

			users := protected.Group("/users")
			{
				users.GET("/me", userController.GetCurrentUser)
				users.GET("", middleware.RequireRoles(models.RoleAdmin), userController.GetUsers)
			}

			anyRole := middleware.RequireRoles(models.RoleAdmin, models.RoleAnalyst)
			adminOnly := middleware.RequireRoles(models.RoleAdmin)

			companiesGroup := protected.Group("/companies")
			{
				companiesGroup.GET("", anyRole, companyController.List)
				companiesGroup.POST("", adminOnly, companyController.Create)
				companiesGroup.DELETE("/:id", adminOnly, companyController.Delete)
			}

			esg := protected.Group("/esg")
			{
				esg.POST("/analyze", anyRole, esgController.Analyze)
				esg.GET("/history/:companyId", anyRole, esgController.History)
			}

			// Older frontends post here.
			protected.POST("/analyze", anyRole, esgController.Analyze)
		}
	}
}
