package app

import (
	repo "github.com/yungbote/coursegraph-backend/internal/data/repos/integrity"
	server "github.com/yungbote/coursegraph-backend/internal/http"
	httpH "github.com/yungbote/coursegraph-backend/internal/http/handlers"
	"github.com/yungbote/coursegraph-backend/internal/observability"
	"github.com/yungbote/coursegraph-backend/internal/platform/logger"
	"github.com/yungbote/coursegraph-backend/internal/progress"
	"github.com/yungbote/coursegraph-backend/internal/realtime"
)

func wireServer(log *logger.Logger, cfg Config, clients Clients, engine *progress.Engine, reports repo.ReportRepo, jobs Jobs, hub *realtime.Hub, metrics *observability.Collector) *server.Server {
	rc := server.RouterConfig{
		ServiceName:      cfg.ServiceName,
		CORSOrigins:      cfg.CORSOrigins,
		Log:              log,
		HealthHandler:    httpH.NewHealthHandler(clients.readinessChecks()...),
		EnrolmentHandler: httpH.NewEnrolmentHandler(engine),
		IntegrityHandler: httpH.NewIntegrityHandler(reports),
		JobHandler:       httpH.NewJobHandler(jobs.Worker, jobs.Registry.Types()),
		RealtimeHandler:  httpH.NewRealtimeHandler(hub),
	}
	if metrics != nil {
		rc.Metrics = metrics
		rc.MetricsHandler = metrics.Handler()
	}
	return server.NewServer(":"+cfg.Port, rc)
}
