package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/pulseesg/backend/internal/config"
	"github.com/pulseesg/backend/internal/database"
	"github.com/pulseesg/backend/internal/logger"
	"github.com/pulseesg/backend/internal/metrics"
	"github.com/pulseesg/backend/internal/routes"
	"github.com/pulseesg/backend/internal/services"
	"github.com/rotisserie/eris"
	"gorm.io/gorm"
)

const version = "1.0.0"

func main() {
	// Load environment variables before the logger so LOG_LEVEL/LOG_FILE apply
	envErr := godotenv.Load()
	logger.Initialize()
	if envErr != nil {
		logger.Warn("No .env file found, using environment variables", nil)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", map[string]interface{}{"error": err.Error()})
	}
	if err := database.AutoMigrate(db); err != nil {
		logger.Fatal("Failed to migrate database", map[string]interface{}{"error": err.Error()})
	}

	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r, ai, err := buildRouter(cfg, db)
	if err != nil {
		logger.Fatal("Failed to build router", map[string]interface{}{"error": err.Error()})
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	logger.Info("Starting PulseESG backend server", map[string]interface{}{
		"port":     cfg.Port,
		"gin_mode": gin.Mode(),
		"ai_url":   ai.URL(),
		"db":       cfg.Database.Driver,
	})

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	<-sigChan
	logger.Info("Shutting down server gracefully...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		logger.Info("Server exited gracefully", nil)
	}
}

// buildRouter creates the metrics registry and AI client and wires them into
// the HTTP router.
func buildRouter(cfg *config.Config, db *gorm.DB) (*gin.Engine, *services.AIClient, error) {
	m, err := metrics.New()
	if err != nil {
		return nil, nil, eris.Wrap(err, "register metrics")
	}

	ai, err := services.NewAIClient(services.AIClientConfigFrom(cfg.AI), services.WithClientMetrics(m))
	if err != nil {
		return nil, nil, eris.Wrap(err, "configure AI client")
	}

	r := routes.NewRouter(routes.Deps{
		DB:      db,
		Config:  cfg,
		AI:      ai,
		Metrics: m,
		Version: version,
	})
	return r, ai, nil
}
