package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nazm-contest-api/internal/config"
	"github.com/nazm-contest-api/internal/identity"
	"github.com/nazm-contest-api/internal/service"
	"github.com/nazm-contest-api/pkg/logger"
	"github.com/rs/zerolog"
)

// HealthChecker reports whether a backing store is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// NewRouter creates and configures the Gin router. db may be nil.
func NewRouter(services *service.Services, resolver identity.Resolver, db HealthChecker, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	// larger multipart parts are spooled to disk
	router.MaxMultipartMemory = cfg.Upload.MaxAudioSize

	// Middleware
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware())

	// Handlers
	verseHandler := NewVerseHandler(services, log)
	entryHandler := NewEntryHandler(services, log)
	reviewHandler := NewReviewHandler(services, log)
	exportHandler := NewExportHandler(services, log)

	router.GET("/health", healthCheck(db))
	router.GET("/metrics", metricsHandler(services))

	v1 := router.Group("/v1")
	v1.Use(authMiddleware(resolver, log))
	{
		verses := v1.Group("/verses")
		{
			verses.GET("", verseHandler.List)
			verses.GET("/:id", verseHandler.Get)
			verses.POST("", verseHandler.Create)
			verses.POST("/import", verseHandler.Import)
			verses.PATCH("/:id", verseHandler.Update)
			verses.DELETE("/:id", verseHandler.Delete)
		}

		entries := v1.Group("/entries")
		{
			entries.GET("", entryHandler.List)
			entries.GET("/best", entryHandler.Best)
			entries.GET("/featured", entryHandler.Featured)
			entries.GET("/:id", entryHandler.Get)
			entries.GET("/:id/file", entryHandler.Download)
			entries.POST("", entryHandler.SubmitManual)
			entries.POST("/upload", entryHandler.SubmitFile)

			entries.DELETE("/:id", reviewHandler.Reject)
			entries.PUT("/:id/approve", reviewHandler.Approve)
			entries.PUT("/:id/status", reviewHandler.SetStatus)
			entries.PUT("/:id/rating", reviewHandler.Rate)
			entries.PUT("/:id/feature", reviewHandler.Feature)
			entries.DELETE("/:id/feature", reviewHandler.Unfeature)
			entries.POST("/:id/correction", reviewHandler.RecordCorrection)
		}

		v1.GET("/leaderboard", entryHandler.Leaderboard)

		exports := v1.Group("/exports")
		{
			exports.GET("/entries", exportHandler.StreamEntries)
			exports.GET("/leaderboard", exportHandler.StreamLeaderboard)
		}
	}

	return router
}

// healthCheck returns the health status
func healthCheck(db HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, code := "healthy", http.StatusOK
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := db.HealthCheck(ctx); err != nil {
				status, code = "unhealthy", http.StatusServiceUnavailable
			}
		}

		c.JSON(code, gin.H{
			"status":    status,
			"timestamp": time.Now().Format(time.RFC3339),
			"service":   logger.ServiceName,
		})
	}
}

// metricsHandler returns row counts
func metricsHandler(services *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		entriesCount, _ := services.Export.GetCount(ctx, "entries")
		versesCount, _ := services.Export.GetCount(ctx, "verses")

		c.JSON(http.StatusOK, gin.H{
			"database": gin.H{
				"entries": entriesCount,
				"verses":  versesCount,
			},
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}

// authMiddleware resolves the bearer token into a principal. Requests without
// an Authorization header continue anonymously; a bad token is rejected with 401.
func authMiddleware(resolver identity.Resolver, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if strings.TrimSpace(header) == "" {
			c.Next()
			return
		}

		p, err := resolver.Resolve(c.Request.Context(), identity.BearerToken(header))
		if err != nil {
			if !errors.Is(err, identity.ErrInvalidToken) {
				log.Error().Err(err).Msg("Identity resolver failed")
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(principalKey, p)
		c.Next()
	}
}

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("error", err).Msg("Panic recovered")
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs requests
func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		if p := principalFrom(c); p.Authenticated() {
			event = event.Str("user_id", p.UserID)
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("Request completed")
	}
}

// corsMiddleware handles CORS
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
