package http

import (
	"encoding/json"
	"net/http"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/correction"
	"github.com/cmlabs-hris/attendance-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/attendance-backend-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type CorrectionHandler interface {
	Submit(w http.ResponseWriter, r *http.Request)
	ListMine(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Approve(w http.ResponseWriter, r *http.Request)
	Reject(w http.ResponseWriter, r *http.Request)
}

type correctionHandlerImpl struct {
	correctionService correction.CorrectionService
}

func NewCorrectionHandler(correctionService correction.CorrectionService) CorrectionHandler {
	return &correctionHandlerImpl{
		correctionService: correctionService,
	}
}

// Submit handles POST /corrections
func (h *correctionHandlerImpl) Submit(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	var req correction.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.WorkerID = identity.WorkerID

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.correctionService.Submit(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Correction request submitted", result)
}

// ListMine handles GET /corrections/my
func (h *correctionHandlerImpl) ListMine(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	filter := correctionFilterFromQuery(r)
	result, err := h.correctionService.ListMine(r.Context(), identity.WorkerID, filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	writeCorrectionPage(w, result)
}

// List handles GET /corrections for approvers, optionally ?employee_id=
func (h *correctionHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	filter := correctionFilterFromQuery(r)
	if employeeID := r.URL.Query().Get("employee_id"); employeeID != "" {
		filter.WorkerID = &employeeID
	}

	result, err := h.correctionService.List(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	writeCorrectionPage(w, result)
}

// Get handles GET /corrections/{id}. Non-approvers only see their own requests.
func (h *correctionHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Correction ID is required", nil)
		return
	}

	result, err := h.correctionService.Get(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	if !identity.CanApprove() && result.WorkerID != identity.WorkerID {
		response.HandleError(w, correction.ErrCorrectionNotFound)
		return
	}

	response.Success(w, result)
}

// Approve handles POST /corrections/{id}/approve
func (h *correctionHandlerImpl) Approve(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	var req correction.ApproveRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "Invalid request format", nil)
			return
		}
	}
	req.ID = chi.URLParam(r, "id")
	req.ApproverID = identity.UserID

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.correctionService.Approve(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Correction request approved", result)
}

// Reject handles POST /corrections/{id}/reject
func (h *correctionHandlerImpl) Reject(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	var req correction.RejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.ID = chi.URLParam(r, "id")
	req.ApproverID = identity.UserID

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.correctionService.Reject(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Correction request rejected", result)
}

func correctionFilterFromQuery(r *http.Request) correction.CorrectionFilter {
	filter := correction.CorrectionFilter{
		Page:  getIntQueryParam(r, "page", 1),
		Limit: getIntQueryParam(r, "limit", 20),
	}
	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = &status
	}
	return filter
}

func writeCorrectionPage(w http.ResponseWriter, result correction.ListCorrectionResponse) {
	response.SuccessWithMeta(w, result, &response.Meta{
		Page:       result.Page,
		Limit:      result.Limit,
		TotalItems: result.TotalCount,
		TotalPages: result.TotalPages,
	})
}
