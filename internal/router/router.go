// internal/router/router.go
package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/teambind/support-server/internal/config"
	"github.com/teambind/support-server/internal/handlers"
	"github.com/teambind/support-server/internal/metrics"
	"github.com/teambind/support-server/internal/middleware"
	"github.com/teambind/support-server/internal/services"
	"github.com/teambind/support-server/internal/utils"
)

const version = "1.0.0"

type Dependencies struct {
	Reports    *services.ReportService
	Categories services.CategoryCache
	Metrics    *metrics.Collector
}

// Initialize builds the HTTP engine. Background work started here (rate
// limiter janitors) stops when ctx is cancelled.
func Initialize(ctx context.Context, cfg *config.Config, deps Dependencies) *gin.Engine {
	// Initialize handlers
	reportHandler := handlers.NewReportHandler(deps.Reports)
	categoryHandler := handlers.NewCategoryHandler(deps.Categories)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery())
	r.Use(deps.Metrics.Middleware())
	r.Use(middleware.RequestLogger())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept-Language", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader, utils.PageSizeHeader, utils.NextCursorHeader, utils.HasNextHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.I18nMiddleware())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":           "healthy",
			"version":          version,
			"category_cache":   deps.Categories.Initialized(),
			"category_entries": deps.Categories.Size(),
		})
	})
	r.GET("/metrics", deps.Metrics.Handler())

	// API v1 routes
	v1 := r.Group("/v1")
	v1.Use(middleware.AuthRequired())
	if cfg.RateLimit.Enabled {
		general := middleware.NewRateLimiter(ctx, rate.Limit(cfg.RateLimit.RequestsPerSec), cfg.RateLimit.Burst)
		v1.Use(general.Middleware())
	}
	{
		createLimits := []gin.HandlerFunc{}
		if cfg.RateLimit.Enabled {
			perMinute := rate.Limit(float64(cfg.RateLimit.CreatePerMinute) / 60)
			createLimits = append(createLimits,
				middleware.NewRateLimiter(ctx, perMinute, cfg.RateLimit.CreateBurst).Middleware())
		}

		// Report routes
		reports := v1.Group("/reports")
		{
			reports.POST("", append(createLimits, reportHandler.CreateReport)...)
			reports.GET("", reportHandler.SearchReports)
			reports.GET("/:id", reportHandler.GetReport)
			reports.GET("/reporter/:reporterId", reportHandler.GetReportsByReporter)
			reports.GET("/reported/:reportedId", reportHandler.GetReportsByReported)
			reports.POST("/:id/withdraw", reportHandler.WithdrawReport)
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AdminRequired())
		{
			admin.GET("/reports/:id/history", reportHandler.GetReportHistory)
			admin.PATCH("/reports/:id", reportHandler.UpdateReportStatus)
			admin.POST("/reports/:id/review", reportHandler.StartReview)
			admin.POST("/reports/:id/approve", reportHandler.ApproveReport)
			admin.POST("/reports/:id/reject", reportHandler.RejectReport)
			admin.POST("/reports/:id/hold", reportHandler.HoldReport)
			admin.POST("/reports/:id/comments", reportHandler.AddComment)

			admin.POST("/categories/reload", categoryHandler.Reload)
			admin.GET("/categories/status", categoryHandler.Status)
		}
	}

	return r
}
