package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"outbreaksim/app"
	"outbreaksim/internal/metrics"
	"outbreaksim/ports"
)

// RouterConfig holds the router's dependencies. Experiments is optional;
// without it POST /experiments is not registered.
type RouterConfig struct {
	Results     ports.ResultRepository
	Experiments *app.ExperimentService
	Metrics     *metrics.Registry
	Logger      *zap.Logger
}

// NewRouter wires the results server routes.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(cfg.Logger), requestMetrics(cfg.Metrics))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))

	results := NewResultsHandler(cfg.Results, cfg.Logger)
	router.GET("/results", results.ListResults)

	if cfg.Experiments != nil {
		experiments := NewExperimentHandler(cfg.Experiments, cfg.Results, cfg.Logger)
		router.POST("/experiments", experiments.RunExperiment)
	}
	return router
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)))
	}
}

func requestMetrics(registry *metrics.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		registry.RecordHTTPRequest(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
