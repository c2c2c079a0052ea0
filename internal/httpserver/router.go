package httpserver

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/HighTechnologyAI/ironbrain-sub001/internal/engine"
	"github.com/HighTechnologyAI/ironbrain-sub001/internal/handler"
	"github.com/HighTechnologyAI/ironbrain-sub001/pkg/metrics"
	"github.com/HighTechnologyAI/ironbrain-sub001/pkg/trace"
)

// NewRouter builds the HTTP surface: health probes, metrics, and the
// auth-guarded objective endpoints.
func NewRouter(
	objectiveHandler *handler.ObjectiveHandler,
	eng *engine.Engine,
	logger *zap.Logger,
	db *pgxpool.Pool,
	jwtSecret string,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		traceID := c.GetHeader(trace.HeaderName())
		if traceID == "" {
			traceID = trace.New()
		}
		c.Request = c.Request.WithContext(trace.WithContext(c.Request.Context(), traceID))
		c.Header(trace.HeaderName(), traceID)

		c.Next()

		latency := time.Since(start)
		logger.Info("HTTP Request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
			zap.String("trace_id", traceID),
		)
		metrics.HTTPRequestDuration.WithLabelValues(
			c.Request.Method, path, strconv.Itoa(c.Writer.Status()),
		).Observe(latency.Seconds())
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(200)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c, 1*time.Second)
		defer cancel()

		if db != nil {
			if err := db.Ping(ctx); err != nil {
				c.JSON(500, gin.H{"status": "db_not_ready", "error": err.Error()})
				return
			}
		}

		st := eng.State()
		if st.SyncStatus == engine.SyncDisconnected {
			c.JSON(500, gin.H{"status": "feed_not_ready"})
			return
		}

		c.JSON(200, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	protected := r.Group("/")
	protected.Use(handler.AuthMiddleware(jwtSecret))
	{
		protected.GET("/objective", objectiveHandler.GetObjective)
		protected.PATCH("/objective", objectiveHandler.UpdateObjective)
	}

	return r
}
