package handler

import (
	"net/http"
	"time"

	"invoicing-backend/internal/middleware"
	"invoicing-backend/internal/model"
	"invoicing-backend/internal/service"
	"invoicing-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type NumberingHandler struct {
	numbering service.NumberingService
}

func NewNumberingHandler(numbering service.NumberingService) *NumberingHandler {
	return &NumberingHandler{numbering: numbering}
}

func (h *NumberingHandler) RegisterRoutes(router *gin.RouterGroup) {
	anyRole := middleware.RequireRole(model.RoleAdmin, model.RoleManagement, model.RoleAccounts)
	router.GET("/api/numbering/next", anyRole, h.PeekNextNumber)
}

// PeekNextNumber previews the next document number without reserving it
// @Summary      Preview next document number
// @Description  Shows the number the next creation would receive; a concurrent creation can invalidate the preview
// @Tags         numbering
// @Security     BearerAuth
// @Produce      json
// @Param        company  query     string  true   "Issuing company code"
// @Param        kind     query     string  false  "INVOICE (default) or PROFORMA"
// @Param        date     query     string  false  "Issue date YYYY-MM-DD (default today)"
// @Success      200      {object}  response.Response{data=object}
// @Failure      400      {object}  response.Response
// @Router       /api/numbering/next [get]
func (h *NumberingHandler) PeekNextNumber(c *gin.Context) {
	company := c.Query("company")
	kind := c.DefaultQuery("kind", model.KindInvoice)

	issueDate := time.Now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid date"))
			return
		}
		issueDate = parsed
	}

	number, err := h.numbering.Peek(c.Request.Context(), company, kind, service.PeriodOf(issueDate))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"next_number": number}))
}
