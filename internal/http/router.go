package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/coursegraph-backend/internal/http/handlers"
	httpMW "github.com/yungbote/coursegraph-backend/internal/http/middleware"
	"github.com/yungbote/coursegraph-backend/internal/platform/logger"
)

type RouterConfig struct {
	ServiceName string
	CORSOrigins []string
	Log         *logger.Logger

	// Metrics instruments requests; MetricsHandler serves /metrics. Both optional.
	Metrics        httpMW.HTTPObserver
	MetricsHandler http.Handler

	HealthHandler    *httpH.HealthHandler
	EnrolmentHandler *httpH.EnrolmentHandler
	IntegrityHandler *httpH.IntegrityHandler
	JobHandler       *httpH.JobHandler
	RealtimeHandler  *httpH.RealtimeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.RequestIdentity())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
	}

	api := r.Group("/api")
	{
		// Progress
		if cfg.EnrolmentHandler != nil {
			api.GET("/users/:id/enrolments", cfg.EnrolmentHandler.GetUserEnrolments)
		}

		// Catalog
		if cfg.IntegrityHandler != nil {
			api.GET("/catalog/integrity", cfg.IntegrityHandler.ListReports)
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			api.GET("/events", cfg.RealtimeHandler.Stream)
		}

		// Job
		if cfg.JobHandler != nil {
			api.GET("/jobs/:type", cfg.JobHandler.GetLastRun)
			api.POST("/jobs/:type", cfg.JobHandler.RunJob)
		}
	}

	return r
}
