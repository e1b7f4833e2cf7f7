package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/eshaffer321/invoice-reconciler/internal/api/dto"
	"github.com/eshaffer321/invoice-reconciler/internal/application/service"
	"github.com/eshaffer321/invoice-reconciler/internal/domain/currency"
	"github.com/eshaffer321/invoice-reconciler/internal/domain/validator"
	"github.com/eshaffer321/invoice-reconciler/internal/infrastructure/storage"
)

// Reconciler is the service surface the handlers depend on.
type Reconciler interface {
	Reconcile(ctx context.Context, req service.Request) (*service.Outcome, error)
	ReconcileBatch(ctx context.Context, reqs []service.Request) []service.BatchResult
	GetAudit(id string) (*storage.AuditRecord, error)
	ListAudits(filters storage.AuditFilters) (*storage.AuditListResult, error)
	Stats() (*storage.Stats, error)
	ClearRateCache() int
}

var _ Reconciler = (*service.ReconciliationService)(nil)

// Base provides shared functionality for all handlers.
type Base struct {
	svc Reconciler
}

// NewBase creates a new base handler with the given service.
func NewBase(svc Reconciler) *Base {
	return &Base{svc: svc}
}

// WriteJSON writes a JSON response with the given status code.
func (b *Base) WriteJSON(c *gin.Context, status int, data any) {
	c.JSON(status, data)
}

// WriteError writes an error response with the given status code.
func (b *Base) WriteError(c *gin.Context, status int, err dto.APIError) {
	c.AbortWithStatusJSON(status, err)
}

// ErrorResponse maps a service error to a status code and API error.
func ErrorResponse(err error) (int, dto.APIError) {
	var rateErr *currency.RateFetchError
	switch {
	case errors.Is(err, dto.ErrMalformedRequest):
		return http.StatusBadRequest, dto.BadRequestError(err.Error())
	case errors.Is(err, validator.ErrInvalidDocument):
		return http.StatusUnprocessableEntity, dto.ValidationError(err.Error())
	case errors.As(err, &rateErr):
		return http.StatusBadGateway, dto.RateUnavailableError(rateErr.Error())
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, dto.NotFoundError("audit record")
	default:
		return http.StatusInternalServerError, dto.InternalError()
	}
}

// ParseIntParam parses an integer query parameter with a default value.
func ParseIntParam(c *gin.Context, name string, defaultVal int) int {
	val := c.Query(name)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}
