package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eshaffer321/invoice-reconciler/internal/api/dto"
)

// AuditsHandler handles audit-related HTTP requests.
type AuditsHandler struct {
	*Base
}

// NewAuditsHandler creates a new audits handler.
func NewAuditsHandler(svc Reconciler) *AuditsHandler {
	return &AuditsHandler{
		Base: NewBase(svc),
	}
}

// List handles GET /api/audits - returns a paginated list of audit records.
func (h *AuditsHandler) List(c *gin.Context) {
	params := dto.DefaultAuditListParams()
	params.Decision = c.Query("decision")
	params.SupplierID = c.Query("supplier_id")
	params.InvoiceID = c.Query("invoice_id")
	params.Since = c.Query("since")
	params.Limit = ParseIntParam(c, "limit", params.Limit)
	params.Offset = ParseIntParam(c, "offset", params.Offset)

	if params.Offset < 0 {
		h.WriteError(c, http.StatusBadRequest, dto.BadRequestError("offset must not be negative"))
		return
	}

	filters, err := params.Filters()
	if err != nil {
		h.WriteError(c, http.StatusBadRequest, dto.BadRequestError(err.Error()))
		return
	}

	result, err := h.svc.ListAudits(filters)
	if err != nil {
		h.WriteError(c, http.StatusInternalServerError, dto.InternalError())
		return
	}

	audits := make([]dto.AuditResponse, 0, len(result.Audits))
	for _, record := range result.Audits {
		audits = append(audits, dto.NewAuditResponse(record))
	}

	h.WriteJSON(c, http.StatusOK, dto.AuditListResponse{
		Audits:     audits,
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// Get handles GET /api/audits/:id - returns a single audit record.
func (h *AuditsHandler) Get(c *gin.Context) {
	id := c.Param("id")

	record, err := h.svc.GetAudit(id)
	if err != nil {
		status, apiErr := ErrorResponse(err)
		h.WriteError(c, status, apiErr)
		return
	}

	h.WriteJSON(c, http.StatusOK, dto.NewAuditResponse(record))
}
