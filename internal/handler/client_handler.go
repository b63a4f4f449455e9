package handler

import (
	"errors"
	"net/http"

	"invoicing-backend/internal/middleware"
	"invoicing-backend/internal/model"
	"invoicing-backend/internal/service"
	"invoicing-backend/pkg/pagination"
	"invoicing-backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ClientHandler struct {
	clientService service.ClientService
}

func NewClientHandler(clientService service.ClientService) *ClientHandler {
	return &ClientHandler{clientService: clientService}
}

func (h *ClientHandler) RegisterRoutes(router *gin.RouterGroup) {
	anyRole := middleware.RequireRole(model.RoleAdmin, model.RoleManagement, model.RoleAccounts)
	writer := middleware.RequireRole(model.RoleAdmin, model.RoleAccounts)

	clients := router.Group("/api/clients")
	{
		clients.POST("", writer, h.CreateClient)
		clients.GET("", anyRole, h.ListClients)
		clients.GET("/:id", anyRole, h.GetClient)
		clients.GET("/:id/currency", anyRole, h.GetCurrencyInfo)
		clients.PUT("/:id", writer, h.UpdateClient)
		clients.DELETE("/:id", middleware.RequireRole(model.RoleAdmin), h.DeleteClient)
	}
}

// CreateClient registers a new billed party
// @Summary      Create client
// @Tags         clients
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateClientRequest  true  "Create Client Payload"
// @Success      201      {object}  response.Response{data=model.Client}
// @Failure      400      {object}  response.Response
// @Router       /api/clients [post]
func (h *ClientHandler) CreateClient(c *gin.Context) {
	var req service.CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	client, err := h.clientService.Create(c.Request.Context(), req, middleware.ActorID(c))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, client))
}

// ListClients returns a paginated list of clients
// @Summary      List clients
// @Tags         clients
// @Security     BearerAuth
// @Produce      json
// @Param        company  query     string  false  "Filter by company group"
// @Param        search   query     string  false  "Search by name or email"
// @Param        page     query     int     false  "Page number (default 1)"
// @Param        limit    query     int     false  "Number of items per page (default 20)"
// @Success      200      {object}  response.Response{data=service.ClientListResponse}
// @Failure      500      {object}  response.Response
// @Router       /api/clients [get]
func (h *ClientHandler) ListClients(c *gin.Context) {
	params := pagination.Parse(c)

	list, err := h.clientService.List(c.Request.Context(), c.Query("company"), c.Query("search"), params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, list))
}

// GetClient returns a single client
// @Summary      Get client
// @Tags         clients
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Client ID"
// @Success      200  {object}  response.Response{data=model.Client}
// @Failure      404  {object}  response.Response
// @Router       /api/clients/{id} [get]
func (h *ClientHandler) GetClient(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid client ID"))
		return
	}

	client, err := h.clientService.GetByID(c.Request.Context(), id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrClientNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, client))
}

// GetCurrencyInfo returns the invoicing currency defaults for a client
// @Summary      Get client currency defaults
// @Description  Resolves the default invoicing currency and sensible alternatives for the client's country
// @Tags         clients
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Client ID"
// @Success      200  {object}  response.Response{data=service.ClientCurrencyInfo}
// @Failure      404  {object}  response.Response
// @Router       /api/clients/{id}/currency [get]
func (h *ClientHandler) GetCurrencyInfo(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid client ID"))
		return
	}

	info, err := h.clientService.CurrencyInfo(c.Request.Context(), id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrClientNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, info))
}

// UpdateClient updates client fields
// @Summary      Update client
// @Tags         clients
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true  "Client ID"
// @Param        payload  body      service.UpdateClientRequest  true  "Fields to update"
// @Success      200      {object}  response.Response{data=model.Client}
// @Failure      400      {object}  response.Response
// @Router       /api/clients/{id} [put]
func (h *ClientHandler) UpdateClient(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid client ID"))
		return
	}

	var req service.UpdateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	client, err := h.clientService.Update(c.Request.Context(), id, req, middleware.ActorID(c))
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, service.ErrClientNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, client))
}

// DeleteClient soft-deletes a client
// @Summary      Delete client
// @Tags         clients
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Client ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/clients/{id} [delete]
func (h *ClientHandler) DeleteClient(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid client ID"))
		return
	}

	if err := h.clientService.Delete(c.Request.Context(), id, middleware.ActorID(c)); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrClientNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}
