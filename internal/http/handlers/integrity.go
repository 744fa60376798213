package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	repo "github.com/yungbote/coursegraph-backend/internal/data/repos/integrity"
	domain "github.com/yungbote/coursegraph-backend/internal/domain/integrity"
	"github.com/yungbote/coursegraph-backend/internal/http/response"
)

type IntegrityHandler struct {
	reports repo.ReportRepo
}

// NewIntegrityHandler accepts a nil repo; the endpoint then answers 404 not_configured.
func NewIntegrityHandler(reports repo.ReportRepo) *IntegrityHandler {
	return &IntegrityHandler{reports: reports}
}

// GET /api/catalog/integrity
func (h *IntegrityHandler) ListReports(c *gin.Context) {
	if h.reports == nil {
		response.RespondError(c, http.StatusNotFound, "not_configured", fmt.Errorf("integrity reports are not configured"))
		return
	}
	out, err := h.reports.List(c.Request.Context(), nil)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "list_integrity_reports_failed", err)
		return
	}
	if out == nil {
		out = []*domain.CourseIntegrityReport{}
	}
	response.RespondOK(c, gin.H{"reports": out})
}
