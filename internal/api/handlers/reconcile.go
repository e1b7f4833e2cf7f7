package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eshaffer321/invoice-reconciler/internal/api/dto"
	"github.com/eshaffer321/invoice-reconciler/internal/application/service"
)

// MaxBatchSize is the largest batch accepted in one request.
const MaxBatchSize = 100

// ReconcileHandler handles reconciliation requests.
type ReconcileHandler struct {
	*Base
}

// NewReconcileHandler creates a new reconcile handler.
func NewReconcileHandler(svc Reconciler) *ReconcileHandler {
	return &ReconcileHandler{
		Base: NewBase(svc),
	}
}

// Reconcile handles POST /api/reconcile - matches one invoice.
func (h *ReconcileHandler) Reconcile(c *gin.Context) {
	var body dto.ReconcileRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.WriteError(c, http.StatusBadRequest, dto.BadRequestError("invalid request body: "+err.Error()))
		return
	}

	req, err := toServiceRequest(body)
	if err != nil {
		status, apiErr := ErrorResponse(err)
		h.WriteError(c, status, apiErr)
		return
	}

	outcome, err := h.svc.Reconcile(c.Request.Context(), req)
	if err != nil {
		status, apiErr := ErrorResponse(err)
		h.WriteError(c, status, apiErr)
		return
	}

	h.WriteJSON(c, http.StatusOK, dto.NewReconcileResponse(outcome))
}

// ReconcileBatch handles POST /api/reconcile/batch - matches several
// invoices. Entries fail independently; the response is always 200 once
// the body parses.
func (h *ReconcileHandler) ReconcileBatch(c *gin.Context) {
	var body dto.BatchReconcileRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.WriteError(c, http.StatusBadRequest, dto.BadRequestError("invalid request body: "+err.Error()))
		return
	}
	if len(body.Requests) == 0 {
		h.WriteError(c, http.StatusBadRequest, dto.BadRequestError("requests must not be empty"))
		return
	}
	if len(body.Requests) > MaxBatchSize {
		h.WriteError(c, http.StatusBadRequest, dto.BadRequestError("too many requests in batch"))
		return
	}

	resp := dto.BatchReconcileResponse{
		Results: make([]dto.BatchEntryResponse, len(body.Requests)),
	}

	// Entries that fail conversion never reach the service
	reqs := make([]service.Request, 0, len(body.Requests))
	positions := make([]int, 0, len(body.Requests))
	for i, entry := range body.Requests {
		req, err := toServiceRequest(entry)
		if err != nil {
			_, apiErr := ErrorResponse(err)
			resp.Results[i] = dto.BatchEntryResponse{Index: i, Error: &apiErr}
			continue
		}
		reqs = append(reqs, req)
		positions = append(positions, i)
	}

	for _, r := range h.svc.ReconcileBatch(c.Request.Context(), reqs) {
		i := positions[r.Index]
		if r.Err != nil {
			_, apiErr := ErrorResponse(r.Err)
			resp.Results[i] = dto.BatchEntryResponse{Index: i, Error: &apiErr}
			continue
		}
		result := dto.NewReconcileResponse(r.Outcome)
		resp.Results[i] = dto.BatchEntryResponse{Index: i, Result: &result}
	}

	for _, r := range resp.Results {
		if r.Error != nil {
			resp.Failed++
		} else {
			resp.Succeeded++
		}
	}

	h.WriteJSON(c, http.StatusOK, resp)
}

func toServiceRequest(body dto.ReconcileRequest) (service.Request, error) {
	invoice, candidates, err := body.ToDocuments()
	if err != nil {
		return service.Request{}, err
	}
	return service.Request{
		Invoice:    invoice,
		Candidates: candidates,
		Extensions: body.Extensions,
	}, nil
}
