package handler

import (
	"net/http"
	"time"

	"invoicing-backend/internal/currency"
	"invoicing-backend/internal/middleware"
	"invoicing-backend/internal/model"
	"invoicing-backend/internal/rates"
	"invoicing-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type RatesHandler struct {
	provider *rates.Provider
}

func NewRatesHandler(provider *rates.Provider) *RatesHandler {
	return &RatesHandler{provider: provider}
}

func (h *RatesHandler) RegisterRoutes(router *gin.RouterGroup) {
	anyRole := middleware.RequireRole(model.RoleAdmin, model.RoleManagement, model.RoleAccounts)

	router.GET("/api/rates", anyRole, h.GetRates)
	router.POST("/api/rates/refresh", middleware.RequireRole(model.RoleAdmin), h.RefreshRates)
	router.GET("/api/currencies", anyRole, h.ListCurrencies)
}

// RatesResponse is the API shape of a rate snapshot. Rates are INR per one
// unit of each currency.
type RatesResponse struct {
	Rates     map[string]string `json:"rates"`
	Source    string            `json:"source"`
	FetchedAt time.Time         `json:"fetched_at"`
}

func toRatesResponse(snap currency.Snapshot) RatesResponse {
	out := RatesResponse{
		Rates:     make(map[string]string, len(snap.Rates)),
		Source:    string(snap.Source),
		FetchedAt: snap.FetchedAt,
	}
	for code, rate := range snap.Rates {
		out.Rates[code] = rate.String()
	}
	return out
}

// GetRates returns the current exchange rate snapshot
// @Summary      Get exchange rates
// @Description  Returns the current INR exchange rate snapshot and its provenance
// @Tags         rates
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=handler.RatesResponse}
// @Router       /api/rates [get]
func (h *RatesHandler) GetRates(c *gin.Context) {
	snap := h.provider.Snapshot(c.Request.Context())
	c.JSON(http.StatusOK, response.Success(http.StatusOK, toRatesResponse(snap)))
}

// RefreshRates forces a live refresh of the rate snapshot
// @Summary      Refresh exchange rates
// @Description  Bypasses the cache TTL and fetches fresh rates; degrades through fallbacks on failure
// @Tags         rates
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=handler.RatesResponse}
// @Router       /api/rates/refresh [post]
func (h *RatesHandler) RefreshRates(c *gin.Context) {
	snap := h.provider.ForceRefresh(c.Request.Context())
	c.JSON(http.StatusOK, response.Success(http.StatusOK, toRatesResponse(snap)))
}

// ListCurrencies returns the supported currency catalog
// @Summary      List supported currencies
// @Tags         rates
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]currency.Currency}
// @Router       /api/currencies [get]
func (h *RatesHandler) ListCurrencies(c *gin.Context) {
	codes := currency.Codes()
	out := make([]currency.Currency, 0, len(codes))
	for _, code := range codes {
		if cur, ok := currency.Get(code); ok {
			out = append(out, cur)
		}
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, out))
}
