package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sony/gobreaker"

	"github.com/yungbote/coursegraph-backend/internal/domain/catalog"
	"github.com/yungbote/coursegraph-backend/internal/http/response"
	"github.com/yungbote/coursegraph-backend/internal/platform/apierr"
	"github.com/yungbote/coursegraph-backend/internal/progress"
)

// ProgressBuilder produces a learner's grouped course tree.
type ProgressBuilder interface {
	Build(ctx context.Context, userID string) (*progress.Result, error)
}

type EnrolmentHandler struct {
	engine ProgressBuilder
}

func NewEnrolmentHandler(engine ProgressBuilder) *EnrolmentHandler {
	return &EnrolmentHandler{engine: engine}
}

// GET /api/users/:id/enrolments[?status=enrolled,completed]
func (h *EnrolmentHandler) GetUserEnrolments(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("id"))
	if userID == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_user_id", fmt.Errorf("user id is required"))
		return
	}
	only, err := statusFilter(c.QueryArray("status"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_status", err)
		return
	}

	res, err := h.engine.Build(c.Request.Context(), userID)
	if err != nil {
		response.RespondAPIError(c, storeError(err), "store_unavailable")
		return
	}
	response.RespondOK(c, res.Only(only...))
}

// statusFilter accepts repeated and comma-separated status names.
func statusFilter(raw []string) ([]catalog.Status, error) {
	var out []catalog.Status
	for _, v := range raw {
		for _, name := range strings.Split(v, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			var s catalog.Status
			if err := s.UnmarshalText([]byte(name)); err != nil {
				return nil, fmt.Errorf("unknown status %q (want one of %v)", name, catalog.Statuses())
			}
			out = append(out, s)
		}
	}
	return out, nil
}

func storeError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return apierr.New(http.StatusServiceUnavailable, "store_circuit_open", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apierr.New(http.StatusGatewayTimeout, "store_timeout", err)
	}
	return apierr.New(http.StatusBadGateway, "store_unavailable", err)
}
