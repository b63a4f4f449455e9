package handler

import (
	"net/http"

	"invoicing-backend/internal/middleware"
	"invoicing-backend/internal/model"
	"invoicing-backend/internal/repository"
	"invoicing-backend/pkg/pagination"
	"invoicing-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	audits repository.AuditRepository
}

func NewAuditHandler(audits repository.AuditRepository) *AuditHandler {
	return &AuditHandler{audits: audits}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/audit-logs", middleware.RequireRole(model.RoleAdmin, model.RoleManagement), h.ListAuditLogs)
}

// ListAuditLogs returns paginated audit entries, newest first
// @Summary      List audit logs
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        action  query     string  false  "Filter by action, e.g. CREATE_INVOICE, RATE_DEGRADATION"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Failure      500     {object}  response.Response
// @Router       /api/audit-logs [get]
func (h *AuditHandler) ListAuditLogs(c *gin.Context) {
	params := pagination.Parse(c)

	logs, total, err := h.audits.List(c.Request.Context(), c.Query("action"), params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"logs":  logs,
		"total": total,
		"page":  params.Page,
		"pages": params.Pages(total),
		"limit": params.Limit,
	}))
}
