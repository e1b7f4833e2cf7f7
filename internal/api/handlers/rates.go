package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eshaffer321/invoice-reconciler/internal/api/dto"
)

// RatesHandler handles exchange rate cache requests.
type RatesHandler struct {
	*Base
}

// NewRatesHandler creates a new rates handler.
func NewRatesHandler(svc Reconciler) *RatesHandler {
	return &RatesHandler{
		Base: NewBase(svc),
	}
}

// ClearCache handles DELETE /api/rates/cache - drops every cached rate.
func (h *RatesHandler) ClearCache(c *gin.Context) {
	cleared := h.svc.ClearRateCache()
	h.WriteJSON(c, http.StatusOK, dto.CacheClearResponse{Cleared: cleared})
}
