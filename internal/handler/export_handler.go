package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"invoicing-backend/internal/middleware"
	"invoicing-backend/internal/model"
	"invoicing-backend/internal/service"
	"invoicing-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type ExportHandler struct {
	exportService service.ExportService
}

func NewExportHandler(exportService service.ExportService) *ExportHandler {
	return &ExportHandler{exportService: exportService}
}

func (h *ExportHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/exports/monthly", middleware.RequireRole(model.RoleAdmin, model.RoleManagement), h.ExportMonth)
}

// ExportMonth streams a zip of the month's documents plus a CSV manifest
// @Summary      Monthly audit export
// @Description  Bundles every PDF issued in the period with a CSV manifest; unreadable PDFs are skipped and flagged
// @Tags         exports
// @Security     BearerAuth
// @Produce      application/zip
// @Param        year   query     int     true   "Year, e.g. 2026"
// @Param        month  query     int     true   "Month 1-12"
// @Param        kind   query     string  false  "Restrict to INVOICE or PROFORMA"
// @Success      200    {file}    binary
// @Failure      400    {object}  response.Response
// @Router       /api/exports/monthly [get]
func (h *ExportHandler) ExportMonth(c *gin.Context) {
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil || year < 2000 || year > 2100 {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid year"))
		return
	}
	month, err := strconv.Atoi(c.Query("month"))
	if err != nil || month < 1 || month > 12 {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid month"))
		return
	}
	kind := c.Query("kind")
	if kind != "" && kind != model.KindInvoice && kind != model.KindProforma {
		c.JSON(http.StatusBadRequest, response.Errorf(http.StatusBadRequest, "Invalid kind %q", kind))
		return
	}

	result, err := h.exportService.ExportMonth(c.Request.Context(), year, time.Month(month), kind, middleware.ActorID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, result.FileName))
	c.Header("X-Export-Included", strconv.Itoa(result.Included))
	c.Header("X-Export-Skipped", strconv.Itoa(len(result.Skipped)))
	c.Data(http.StatusOK, "application/zip", result.Content)
}
