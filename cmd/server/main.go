package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/saleflow/backend/internal/app"
	"github.com/saleflow/backend/internal/config"
	"github.com/saleflow/backend/internal/logger"
	"github.com/saleflow/backend/internal/middleware"
	"github.com/saleflow/backend/internal/routes"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}

	logger.Initialize(logger.Options{
		Level:  cfg.LogLevel,
		File:   cfg.LogFile,
		Format: cfg.LogFormat,
	})

	application, err := app.New(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize backing services", map[string]interface{}{"error": err.Error()})
	}
	defer application.Close()

	if err := application.Bootstrap(context.Background()); err != nil {
		logger.Fatal("Failed to bootstrap system accounts", map[string]interface{}{"error": err.Error()})
	}

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	pollerDone := make(chan struct{})
	go func() {
		defer close(pollerDone)
		application.Poller.Run(ctx)
	}()

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create router without default middleware
	r := gin.New()

	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false

	r.Use(middleware.CustomLoggerMiddleware())
	r.Use(middleware.CORSMiddleware(cfg.CORSOrigin))
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		overallStatus := "ok"
		statusCode := http.StatusOK
		checks := gin.H{}
		for name, err := range application.Health(pingCtx) {
			if err != nil {
				overallStatus = "error"
				statusCode = http.StatusServiceUnavailable
				checks[name] = gin.H{"status": "error", "error": err.Error()}
				continue
			}
			checks[name] = gin.H{"status": "ok"}
		}
		checks["subscribers"] = application.Hub.Count()

		c.JSON(statusCode, gin.H{
			"status":    overallStatus,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"version":   version,
			"services":  checks,
		})
	})

	routes.SetupRoutes(r, application.Dependencies())

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	logger.Info("Starting SaleFlow backend server", map[string]interface{}{
		"port":           cfg.Port,
		"gin_mode":       gin.Mode(),
		"store":          cfg.StoreDriver,
		"activity_store": cfg.ActivityDriver,
	})

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Failed to start server", map[string]interface{}{
				"error": err.Error(),
			})
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server gracefully...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		logger.Info("Server exited gracefully", nil)
	}
	<-pollerDone
}
