package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/chamapesa/chama-engine/internal/domain"
	"github.com/chamapesa/chama-engine/internal/service"
	"github.com/chamapesa/chama-engine/pkg/response"
)

type CycleHandler struct {
	cycles    *service.CycleService
	validator *validator.Validate
}

func NewCycleHandler(cycles *service.CycleService) *CycleHandler {
	return &CycleHandler{
		cycles:    cycles,
		validator: validator.New(),
	}
}

// CreateCycle handles POST /api/v1/chamas/{chamaId}/cycles
func (h *CycleHandler) CreateCycle(w http.ResponseWriter, r *http.Request) {
	chamaID, err := uuid.Parse(mux.Vars(r)["chamaId"])
	if err != nil {
		response.BadRequest(w, "invalid chama id", err)
		return
	}

	var req domain.CreateCycleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "invalid cycle request", err)
		return
	}

	cycle, err := h.cycles.CreateCycle(r.Context(), chamaID, req.DueDate)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Created(w, cycle)
}

// ActivateCycle handles POST /api/v1/chamas/{chamaId}/cycles/{cycleId}/activate
func (h *CycleHandler) ActivateCycle(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	chamaID, err := uuid.Parse(vars["chamaId"])
	if err != nil {
		response.BadRequest(w, "invalid chama id", err)
		return
	}

	cycleID, err := uuid.Parse(vars["cycleId"])
	if err != nil {
		response.BadRequest(w, "invalid cycle id", err)
		return
	}

	if err := h.cycles.ActivateCycle(r.Context(), chamaID, cycleID); err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, map[string]string{"status": domain.CycleStatusActive})
}

// CancelCycle handles POST /api/v1/cycles/{cycleId}/cancel
func (h *CycleHandler) CancelCycle(w http.ResponseWriter, r *http.Request) {
	cycleID, err := uuid.Parse(mux.Vars(r)["cycleId"])
	if err != nil {
		response.BadRequest(w, "invalid cycle id", err)
		return
	}

	if err := h.cycles.CancelCycle(r.Context(), cycleID); err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, map[string]string{"status": domain.CycleStatusCancelled})
}

// GetActiveCycle handles GET /api/v1/chamas/{chamaId}/cycles/active
func (h *CycleHandler) GetActiveCycle(w http.ResponseWriter, r *http.Request) {
	chamaID, err := uuid.Parse(mux.Vars(r)["chamaId"])
	if err != nil {
		response.BadRequest(w, "invalid chama id", err)
		return
	}

	cycle, err := h.cycles.GetActiveCycle(r.Context(), chamaID)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, cycle)
}

// GetComposition handles GET /api/v1/cycles/{cycleId}/composition
func (h *CycleHandler) GetComposition(w http.ResponseWriter, r *http.Request) {
	cycleID, err := uuid.Parse(mux.Vars(r)["cycleId"])
	if err != nil {
		response.BadRequest(w, "invalid cycle id", err)
		return
	}

	composition, err := h.cycles.ExpectedComposition(r.Context(), cycleID)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, composition)
}

// AttachType handles POST /api/v1/cycles/{cycleId}/types
func (h *CycleHandler) AttachType(w http.ResponseWriter, r *http.Request) {
	cycleID, err := uuid.Parse(mux.Vars(r)["cycleId"])
	if err != nil {
		response.BadRequest(w, "invalid cycle id", err)
		return
	}

	var req domain.AttachTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "invalid attach request", err)
		return
	}

	if err := h.cycles.AttachType(r.Context(), cycleID, req.TypeID, req.ExpectedAmount); err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Created(w, map[string]string{"cycle_id": cycleID.String(), "type_id": req.TypeID.String()})
}

// CreateType handles POST /api/v1/chamas/{chamaId}/types
func (h *CycleHandler) CreateType(w http.ResponseWriter, r *http.Request) {
	chamaID, err := uuid.Parse(mux.Vars(r)["chamaId"])
	if err != nil {
		response.BadRequest(w, "invalid chama id", err)
		return
	}

	var req domain.CreateTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "invalid type request", err)
		return
	}

	ct, err := h.cycles.CreateType(r.Context(), chamaID, &req)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Created(w, ct)
}

// DeactivateType handles DELETE /api/v1/types/{typeId}
func (h *CycleHandler) DeactivateType(w http.ResponseWriter, r *http.Request) {
	typeID, err := uuid.Parse(mux.Vars(r)["typeId"])
	if err != nil {
		response.BadRequest(w, "invalid type id", err)
		return
	}

	if err := h.cycles.DeactivateType(r.Context(), typeID); err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, map[string]bool{"active": false})
}
