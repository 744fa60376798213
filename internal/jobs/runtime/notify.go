package runtime

import (
	"context"

	"github.com/yungbote/coursegraph-backend/internal/platform/logger"
	"github.com/yungbote/coursegraph-backend/internal/realtime/bus"
)

type busNotifier struct {
	bus bus.Bus
	log *logger.Logger
}

// NewBusNotifier publishes job lifecycle updates as bus events. Publish failures are logged.
func NewBusNotifier(b bus.Bus, log *logger.Logger) Notifier {
	if b == nil {
		b = bus.Nop()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &busNotifier{bus: b, log: log.With("component", "JobNotifier")}
}

func (n *busNotifier) JobProgress(ctx context.Context, run Run) {
	n.publish(ctx, bus.EventJobProgress, run)
}

func (n *busNotifier) JobFailed(ctx context.Context, run Run) {
	n.publish(ctx, bus.EventJobFailed, run)
}

func (n *busNotifier) JobDone(ctx context.Context, run Run) {
	n.publish(ctx, bus.EventJobDone, run)
}

func (n *busNotifier) publish(ctx context.Context, eventType string, run Run) {
	ev, err := bus.NewEvent(eventType, run)
	if err != nil {
		n.log.Warn("encode job event", "error", err, "job_type", run.JobType)
		return
	}
	if err := n.bus.Publish(ctx, ev); err != nil {
		n.log.Warn("publish job event", "error", err, "job_type", run.JobType, "event", eventType)
	}
}
