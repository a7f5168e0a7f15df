package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Skufu/diabetes-risk/internal/observability"
	"github.com/Skufu/diabetes-risk/internal/pipeline"
)

// HealthChecker is satisfied by the database store.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the router needs. DB, Metrics and Limiter may be nil.
type Deps struct {
	Pipeline       *pipeline.Pipeline
	DB             HealthChecker
	Metrics        *observability.Metrics
	Limiter        *RateLimiter
	Logger         *zap.Logger
	AllowedOrigins []string
}

// NewRouter wires middleware and routes.
func NewRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	registerJSONFieldNames()

	corsCfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}
	if len(d.AllowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = d.AllowedOrigins
	}

	router := gin.New()
	router.Use(
		observability.GinLogger(d.Logger),
		gin.Recovery(),
		limitBodySize(1<<20), // 1MB max body
		cors.New(corsCfg),
	)
	if d.Metrics != nil {
		router.Use(d.Metrics.Middleware())
		router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/readyz", readyHandler(d.DB))

	h := &handlers{pipeline: d.Pipeline, logger: d.Logger.Named("api")}
	api := router.Group("/api")
	{
		api.GET("/survey", h.survey)
		api.POST("/risk/features", h.features)
		api.POST("/risk/assess", d.Limiter.Middleware(), h.assess)
	}

	return router
}

func readyHandler(db HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "disabled"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "degraded",
				"db":     fmt.Sprintf("unhealthy: %v", err),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "ok"})
	}
}

func limitBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
