// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/teambind/support-server/internal/config"
	"github.com/teambind/support-server/internal/database"
	"github.com/teambind/support-server/internal/i18n"
	"github.com/teambind/support-server/internal/idgen"
	"github.com/teambind/support-server/internal/metrics"
	"github.com/teambind/support-server/internal/repository"
	"github.com/teambind/support-server/internal/router"
	"github.com/teambind/support-server/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	setupLogging(cfg.Log)

	// Initialize i18n
	if err := i18n.Initialize(cfg.I18n.DefaultLocale); err != nil {
		logrus.WithError(err).Fatal("Failed to initialize i18n")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reportStore, categoryStore, closeStore := openStores(cfg)
	defer closeStore()

	collector := metrics.NewCollector()

	generator, err := idgen.New(idgen.Options{
		NodeID:            cfg.Snowflake.NodeID,
		MaxBackwardWait:   cfg.Snowflake.MaxBackwardWait,
		OnClockRegression: collector.ClockRegression,
	})
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create id generator")
	}

	categoryCache := services.NewInMemoryCategoryCache(categoryStore, collector, services.CategoryCacheOptions{
		InitialAttempts: cfg.CategoryCache.InitialAttempts,
		RetryDelay:      cfg.CategoryCache.RetryDelay,
	})
	if err := categoryCache.Initialize(ctx); err != nil {
		// Reports cannot be created until an admin reload succeeds.
		logrus.WithError(err).Error("Starting with an empty category cache")
	}

	reportService := services.NewReportService(reportStore, categoryCache, generator, collector)

	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router
	r := router.Initialize(ctx, cfg, router.Dependencies{
		Reports:    reportService,
		Categories: categoryCache,
		Metrics:    collector,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logrus.WithFields(logrus.Fields{
			"addr":    srv.Addr,
			"node_id": generator.NodeID(),
			"store":   cfg.Database.Driver,
		}).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()
	logrus.Info("Shutting down server...")

	// Create a deadline for shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Shutdown server
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Server forced to shutdown")
	}

	logrus.Info("Server exited")
}

func setupLogging(cfg config.LogConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stdout)

	if cfg.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// openStores returns the configured report and category stores plus a
// cleanup function.
func openStores(cfg *config.Config) (repository.ReportStore, repository.CategoryStore, func()) {
	if cfg.Database.Driver == "memory" {
		logrus.Warn("Using in-memory store, data is lost on restart")
		return repository.NewMemoryReportStore(),
			repository.NewMemoryCategoryStore(repository.DefaultCategories()...),
			func() {}
	}

	// Initialize database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize database")
	}

	if cfg.Database.AutoMigrate {
		// Run database migrations
		if err := database.RunMigrations(db); err != nil {
			logrus.WithError(err).Fatal("Failed to run migrations")
		}
		if err := database.SeedCategories(db, repository.DefaultCategories()); err != nil {
			logrus.WithError(err).Fatal("Failed to seed categories")
		}
	}

	return repository.NewGormReportStore(db), repository.NewGormCategoryStore(db), func() { database.Close(db) }
}
