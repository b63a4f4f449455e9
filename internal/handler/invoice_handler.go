package handler

import (
	"errors"
	"fmt"
	"net/http"

	"invoicing-backend/internal/middleware"
	"invoicing-backend/internal/model"
	"invoicing-backend/internal/repository"
	"invoicing-backend/internal/service"
	"invoicing-backend/pkg/pagination"
	"invoicing-backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type InvoiceHandler struct {
	invoiceService service.InvoiceService
}

func NewInvoiceHandler(invoiceService service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService}
}

func (h *InvoiceHandler) RegisterRoutes(router *gin.RouterGroup) {
	anyRole := middleware.RequireRole(model.RoleAdmin, model.RoleManagement, model.RoleAccounts)
	writer := middleware.RequireRole(model.RoleAdmin, model.RoleAccounts)

	invoices := router.Group("/api/invoices")
	{
		invoices.POST("", writer, h.CreateInvoice)
		invoices.GET("", anyRole, h.ListInvoices)
		invoices.GET("/:id", anyRole, h.GetInvoice)
		invoices.GET("/:id/pdf", anyRole, h.DownloadPDF)
		invoices.PUT("/:id/payment-status", writer, h.UpdatePaymentStatus)
		invoices.DELETE("/:id", middleware.RequireRole(model.RoleAdmin), h.DeleteInvoice)
	}
	router.GET("/api/invoices/by-number/:invoiceNo", anyRole, h.GetInvoiceByNumber)
}

// CreateInvoice issues a new invoice or proforma
// @Summary      Create invoice or proforma
// @Description  Computes totals and tax, allocates the document number, stores the rendered PDF
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateInvoiceRequest  true  "Create Invoice Payload"
// @Success      201      {object}  response.Response{data=service.InvoiceResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/invoices [post]
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	var req service.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	invoice, err := h.invoiceService.Create(c.Request.Context(), req, middleware.ActorID(c))
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, service.ErrAllocationConflict) {
			status = http.StatusConflict
		}
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, invoice))
}

// ListInvoices returns a paginated, filtered list of documents
// @Summary      List invoices
// @Description  Retrieves a paginated list of invoices and proformas
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        kind        query     string  false  "Filter by kind (INVOICE, PROFORMA)"
// @Param        company     query     string  false  "Filter by issuing company code"
// @Param        status      query     string  false  "Filter by payment status (Pending, Partial, Paid)"
// @Param        invoice_no  query     string  false  "Partial invoice number match"
// @Param        client_id   query     string  false  "Filter by client ID"
// @Param        page        query     int     false  "Page number (default 1)"
// @Param        limit       query     int     false  "Number of items per page (default 20)"
// @Success      200         {object}  response.Response{data=service.InvoiceListResponse}
// @Failure      500         {object}  response.Response
// @Router       /api/invoices [get]
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	params := pagination.Parse(c)

	filter := repository.InvoiceListFilter{
		Kind:          c.Query("kind"),
		Company:       c.Query("company"),
		PaymentStatus: c.Query("status"),
		InvoiceNo:     c.Query("invoice_no"),
		Page:          params.Page,
		Limit:         params.Limit,
	}
	if raw := c.Query("client_id"); raw != "" {
		clientID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid client_id"))
			return
		}
		filter.ClientID = &clientID
	}

	list, err := h.invoiceService.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, list))
}

// GetInvoice returns a single document with line items
// @Summary      Get invoice
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.InvoiceResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid invoice ID"))
		return
	}

	invoice, err := h.invoiceService.GetByID(c.Request.Context(), id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrInvoiceNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// GetInvoiceByNumber returns a single document looked up by its number
// @Summary      Get invoice by number
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        invoiceNo  path      string  true  "Invoice number, e.g. WT2501INV003"
// @Success      200        {object}  response.Response{data=service.InvoiceResponse}
// @Failure      404        {object}  response.Response
// @Router       /api/invoices/by-number/{invoiceNo} [get]
func (h *InvoiceHandler) GetInvoiceByNumber(c *gin.Context) {
	invoice, err := h.invoiceService.GetByNumber(c.Request.Context(), c.Param("invoiceNo"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrInvoiceNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// DownloadPDF streams the stored PDF of a document
// @Summary      Download invoice PDF
// @Description  Reconstructs the chunked PDF and streams it
// @Tags         invoices
// @Security     BearerAuth
// @Produce      application/pdf
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {file}    binary
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/invoices/{id}/pdf [get]
func (h *InvoiceHandler) DownloadPDF(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid invoice ID"))
		return
	}

	doc, err := h.invoiceService.DownloadPDF(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvoiceNotFound), errors.Is(err, service.ErrDocumentNotFound):
			c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		case errors.Is(err, service.ErrIncompleteDocument):
			c.JSON(http.StatusConflict, response.Error(http.StatusConflict, err.Error()))
		default:
			c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		}
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.pdf"`, doc.InvoiceNo))
	c.Data(http.StatusOK, doc.ContentType, doc.Content)
}

// UpdatePaymentStatus moves a document to a new payment status
// @Summary      Update payment status
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                              true  "Invoice ID"
// @Param        payload  body      service.UpdatePaymentStatusRequest  true  "New status"
// @Success      200      {object}  response.Response{data=service.InvoiceResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/invoices/{id}/payment-status [put]
func (h *InvoiceHandler) UpdatePaymentStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid invoice ID"))
		return
	}

	var req service.UpdatePaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	invoice, err := h.invoiceService.UpdatePaymentStatus(c.Request.Context(), id, req.PaymentStatus, middleware.ActorID(c))
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, service.ErrInvoiceNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// DeleteInvoice removes a document and its stored PDF
// @Summary      Delete invoice
// @Description  Deletes the document and its PDF chunks; the number is never reissued
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id} [delete]
func (h *InvoiceHandler) DeleteInvoice(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid invoice ID"))
		return
	}

	if err := h.invoiceService.Delete(c.Request.Context(), id, middleware.ActorID(c)); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrInvoiceNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}
