package app

import (
	"fmt"

	repo "github.com/yungbote/coursegraph-backend/internal/data/repos/integrity"
	"github.com/yungbote/coursegraph-backend/internal/jobs/pipeline/catalog_audit"
	"github.com/yungbote/coursegraph-backend/internal/jobs/pipeline/content_reindex"
	jobrt "github.com/yungbote/coursegraph-backend/internal/jobs/runtime"
	"github.com/yungbote/coursegraph-backend/internal/jobs/worker"
	"github.com/yungbote/coursegraph-backend/internal/observability"
	"github.com/yungbote/coursegraph-backend/internal/platform/logger"
)

type Jobs struct {
	Registry *jobrt.Registry
	Worker   *worker.Worker
}

func wireJobs(log *logger.Logger, clients Clients, reports repo.ReportRepo, metrics *observability.Collector) (Jobs, error) {
	log.Info("Wiring jobs...")
	registry := jobrt.NewRegistry()

	var faults catalog_audit.FaultCounter
	if metrics != nil {
		faults = metrics
	}
	handlers := []jobrt.Handler{
		catalog_audit.New(clients.DB(), reports, clients.Source, clients.Bus, faults, log),
		content_reindex.New(clients.Source, clients.Bus, log),
	}
	for _, h := range handlers {
		if err := registry.Register(h); err != nil {
			return Jobs{}, fmt.Errorf("register job %s: %w", h.Type(), err)
		}
	}

	w := worker.NewWorker(log, registry, jobrt.NewBusNotifier(clients.Bus, log))
	if metrics != nil {
		w.WithCounter(metrics)
	}
	return Jobs{Registry: registry, Worker: w}, nil
}
