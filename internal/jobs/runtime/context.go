package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/coursegraph-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursegraph-backend/internal/platform/logger"
)

const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Run is the in-memory record of one job execution.
type Run struct {
	ID         uuid.UUID       `json:"id"`
	JobType    string          `json:"job_type"`
	Status     string          `json:"status"`
	Stage      string          `json:"stage"`
	Progress   int             `json:"progress"`
	Message    string          `json:"message,omitempty"`
	Error      string          `json:"error,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}

func (r *Run) Terminal() bool {
	return r != nil && (r.Status == StatusSucceeded || r.Status == StatusFailed)
}

// Notifier receives job lifecycle updates. A nil Notifier is allowed.
type Notifier interface {
	JobProgress(ctx context.Context, run Run)
	JobFailed(ctx context.Context, run Run)
	JobDone(ctx context.Context, run Run)
}

/*
Context is the execution handle passed to a Handler for one run.
Handlers report through Progress and finish with exactly one of Fail or Succeed; later
terminal calls are ignored.
*/
type Context struct {
	Ctx     context.Context
	Log     *logger.Logger
	Notify  Notifier
	mu      sync.Mutex
	run     Run
	payload map[string]any
}

func NewContext(ctx context.Context, jobType string, payload map[string]any, notify Notifier, log *logger.Logger) *Context {
	if log == nil {
		log = logger.Nop()
	}
	if payload == nil {
		payload = map[string]any{}
	}
	c := &Context{
		Ctx:    ctx,
		Notify: notify,
		run: Run{
			ID:        uuid.New(),
			JobType:   jobType,
			Status:    StatusRunning,
			Stage:     "queued",
			StartedAt: time.Now().UTC(),
		},
		payload: payload,
	}
	c.applyTraceData()
	c.Log = log.With("job_type", jobType, "job_id", c.run.ID.String())
	return c
}

func (c *Context) applyTraceData() {
	traceID := strings.TrimSpace(c.PayloadString("trace_id"))
	reqID := strings.TrimSpace(c.PayloadString("request_id"))
	if traceID == "" && reqID == "" {
		return
	}
	c.Ctx = ctxutil.WithTraceData(c.Ctx, &ctxutil.TraceData{
		TraceID:   traceID,
		RequestID: reqID,
	})
}

// Run returns a snapshot of the run record.
func (c *Context) Run() Run {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.run
}

// Payload never returns nil.
func (c *Context) Payload() map[string]any { return c.payload }

func (c *Context) PayloadString(key string) string {
	v, ok := c.payload[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func (c *Context) PayloadBool(key string, def bool) bool {
	raw := strings.TrimSpace(c.PayloadString(key))
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return b
}

func (c *Context) Progress(stage string, pct int, msg string) {
	c.mu.Lock()
	if c.run.Terminal() {
		c.mu.Unlock()
		return
	}
	c.run.Stage = stage
	c.run.Progress = pct
	c.run.Message = msg
	snap := c.run
	c.mu.Unlock()

	c.Log.Debug("job progress", "stage", stage, "progress", pct, "message", msg)
	if c.Notify != nil {
		c.Notify.JobProgress(c.ctx(), snap)
	}
}

func (c *Context) Fail(stage string, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	now := time.Now().UTC()

	c.mu.Lock()
	if c.run.Terminal() {
		c.mu.Unlock()
		return
	}
	c.run.Status = StatusFailed
	c.run.Stage = stage
	c.run.Message = ""
	c.run.Error = msg
	c.run.FinishedAt = &now
	snap := c.run
	c.mu.Unlock()

	c.Log.Warn("job failed", "stage", stage, "error", msg)
	if c.Notify != nil {
		c.Notify.JobFailed(c.ctx(), snap)
	}
}

func (c *Context) Succeed(finalStage string, result any) {
	var res json.RawMessage
	if result != nil {
		b, err := json.Marshal(result)
		if err != nil {
			c.Fail("result", err)
			return
		}
		res = b
	}
	now := time.Now().UTC()

	c.mu.Lock()
	if c.run.Terminal() {
		c.mu.Unlock()
		return
	}
	c.run.Status = StatusSucceeded
	c.run.Stage = finalStage
	c.run.Progress = 100
	c.run.Message = ""
	c.run.Error = ""
	c.run.Result = res
	c.run.FinishedAt = &now
	snap := c.run
	c.mu.Unlock()

	c.Log.Info("job succeeded", "stage", finalStage, "duration_ms", now.Sub(snap.StartedAt).Milliseconds())
	if c.Notify != nil {
		c.Notify.JobDone(c.ctx(), snap)
	}
}

// Notifications still go out after the run's context is canceled.
func (c *Context) ctx() context.Context {
	if c.Ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(c.Ctx)
}
