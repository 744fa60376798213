package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yungbote/coursegraph-backend/internal/jobs/runtime"
	"github.com/yungbote/coursegraph-backend/internal/platform/logger"
)

// RunCounter is told the final status of every run.
type RunCounter interface {
	IncJobRun(jobType, status string)
}

type Worker struct {
	log      *logger.Logger
	registry *runtime.Registry
	notify   runtime.Notifier
	counter  RunCounter

	mu   sync.RWMutex
	last map[string]runtime.Run
}

func NewWorker(baseLog *logger.Logger, registry *runtime.Registry, notify runtime.Notifier) *Worker {
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	return &Worker{
		log:      baseLog.With("component", "JobWorker"),
		registry: registry,
		notify:   notify,
		last:     make(map[string]runtime.Run),
	}
}

func (w *Worker) WithCounter(c RunCounter) *Worker {
	w.counter = c
	return w
}

// RunOnce executes one job synchronously and returns its final record. A handler that returns
// without finishing the run, returns an error or panics leaves the run failed.
func (w *Worker) RunOnce(ctx context.Context, jobType string, payload map[string]any) runtime.Run {
	jc := runtime.NewContext(ctx, jobType, payload, w.notify, w.log)

	h, ok := w.registry.Get(jobType)
	if !ok {
		w.log.Warn("No handler registered for job_type", "job_type", jobType)
		jc.Fail("dispatch", &missingHandlerError{JobType: jobType})
		return w.record(jc.Run())
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				w.log.Error("Job handler panic",
					"job_id", jc.Run().ID,
					"job_type", jobType,
					"panic", r,
				)
				jc.Fail("panic", errFromRecover(r))
			}
		}()

		if runErr := h.Run(jc); runErr != nil {
			// Handlers usually call jc.Fail themselves; this is a safety net.
			jc.Fail("run", runErr)
		}
	}()

	run := jc.Run()
	if !run.Terminal() {
		jc.Fail(run.Stage, fmt.Errorf("handler returned without finishing"))
		run = jc.Run()
	}
	return w.record(run)
}

// RunAll runs every registered job once, one after another, in name order.
func (w *Worker) RunAll(ctx context.Context) []runtime.Run {
	types := w.registry.Types()
	w.log.Info("Running startup jobs", "count", len(types))
	out := make([]runtime.Run, 0, len(types))
	for _, t := range types {
		if ctx.Err() != nil {
			break
		}
		out = append(out, w.RunOnce(ctx, t, nil))
	}
	return out
}

// Every re-runs jobType on a fixed interval until ctx is done. Non-positive intervals do nothing.
func (w *Worker) Every(ctx context.Context, jobType string, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info("Job schedule stopped", "job_type", jobType)
			return
		case <-ticker.C:
			w.RunOnce(ctx, jobType, nil)
		}
	}
}

// Last returns the most recent finished run of jobType.
func (w *Worker) Last(jobType string) (runtime.Run, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	r, ok := w.last[jobType]
	return r, ok
}

func (w *Worker) record(run runtime.Run) runtime.Run {
	w.mu.Lock()
	w.last[run.JobType] = run
	w.mu.Unlock()
	if w.counter != nil {
		w.counter.IncJobRun(run.JobType, run.Status)
	}
	return run
}

type missingHandlerError struct{ JobType string }

func (e *missingHandlerError) Error() string { return "no handler registered for job_type=" + e.JobType }

func errFromRecover(v any) error { return &panicError{Val: v} }

type panicError struct{ Val any }

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.Val) }
