package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmbook/internal/server/handlers"
)

// New wires the Gin engine with required routes and middlewares.
func New(records *handlers.RecordsHandler, dashboard *handlers.DashboardHandler, sync *handlers.SyncHandler, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	metrics := newHTTPMetrics()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))
	r.Use(metrics.middleware())

	r.POST("/forms/:formID", records.SubmitForm)

	r.GET("/records/:category", records.List)
	r.POST("/records/:category", records.Create)
	r.GET("/records/:category/:id", records.Get)
	r.PUT("/records/:category/:id", records.Update)
	r.DELETE("/records/:category/:id", records.Delete)
	r.GET("/export/:category", records.Export)
	r.GET("/snapshot", records.Snapshot)

	r.GET("/dashboard", dashboard.Dashboard)
	r.GET("/reports/:category", dashboard.Report)

	r.POST("/sync", sync.SyncAll)
	r.GET("/sync/:category", sync.Pull)
	r.POST("/sync/:category/push", sync.Push)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", metrics.handler())

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
