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

type MemberHandler struct {
	members   *service.MemberService
	validator *validator.Validate
}

func NewMemberHandler(members *service.MemberService) *MemberHandler {
	return &MemberHandler{
		members:   members,
		validator: validator.New(),
	}
}

// CreateMember handles POST /api/v1/chamas/{chamaId}/members
func (h *MemberHandler) CreateMember(w http.ResponseWriter, r *http.Request) {
	chamaID, err := uuid.Parse(mux.Vars(r)["chamaId"])
	if err != nil {
		response.BadRequest(w, "invalid chama id", err)
		return
	}

	var req domain.CreateMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "invalid member request", err)
		return
	}

	member, err := h.members.CreateMember(r.Context(), chamaID, &req)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Created(w, member)
}

// GetMember handles GET /api/v1/members/{memberId}
func (h *MemberHandler) GetMember(w http.ResponseWriter, r *http.Request) {
	memberID, err := uuid.Parse(mux.Vars(r)["memberId"])
	if err != nil {
		response.BadRequest(w, "invalid member id", err)
		return
	}

	member, err := h.members.GetMember(r.Context(), memberID)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, member)
}

// RemoveMember handles DELETE /api/v1/members/{memberId}
func (h *MemberHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	memberID, err := uuid.Parse(mux.Vars(r)["memberId"])
	if err != nil {
		response.BadRequest(w, "invalid member id", err)
		return
	}

	if err := h.members.RemoveMember(r.Context(), memberID); err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, map[string]bool{"active": false})
}
