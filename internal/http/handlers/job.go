package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursegraph-backend/internal/http/response"
	jobrt "github.com/yungbote/coursegraph-backend/internal/jobs/runtime"
)

type JobRunner interface {
	RunOnce(ctx context.Context, jobType string, payload map[string]any) jobrt.Run
	Last(jobType string) (jobrt.Run, bool)
}

type JobHandler struct {
	runner JobRunner
	known  map[string]bool
}

func NewJobHandler(runner JobRunner, jobTypes []string) *JobHandler {
	known := make(map[string]bool, len(jobTypes))
	for _, t := range jobTypes {
		known[t] = true
	}
	return &JobHandler{runner: runner, known: known}
}

// GET /api/jobs/:type
func (h *JobHandler) GetLastRun(c *gin.Context) {
	jobType := strings.TrimSpace(c.Param("type"))
	if !h.known[jobType] {
		response.RespondError(c, http.StatusNotFound, "unknown_job_type", fmt.Errorf("unknown job type %q", jobType))
		return
	}
	run, ok := h.runner.Last(jobType)
	if !ok {
		response.RespondError(c, http.StatusNotFound, "job_not_run", fmt.Errorf("job %q has not run yet", jobType))
		return
	}
	response.RespondOK(c, gin.H{"run": run})
}

// POST /api/jobs/:type runs the job to completion. Query parameters become the payload.
func (h *JobHandler) RunJob(c *gin.Context) {
	jobType := strings.TrimSpace(c.Param("type"))
	if !h.known[jobType] {
		response.RespondError(c, http.StatusNotFound, "unknown_job_type", fmt.Errorf("unknown job type %q", jobType))
		return
	}
	payload := map[string]any{}
	for k, v := range c.Request.URL.Query() {
		if len(v) > 0 {
			payload[k] = v[0]
		}
	}
	if td, ok := c.Get("request_id"); ok {
		payload["request_id"] = td
	}
	if td, ok := c.Get("trace_id"); ok {
		payload["trace_id"] = td
	}
	run := h.runner.RunOnce(c.Request.Context(), jobType, payload)
	status := http.StatusOK
	if run.Status == jobrt.StatusFailed {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, gin.H{"run": run})
}
