package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/chamapesa/chama-engine/internal/service"
	"github.com/chamapesa/chama-engine/pkg/response"
)

type ReportHandler struct {
	reports *service.ReportService
}

func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// MemberSummary handles GET /api/v1/members/{memberId}/summary
func (h *ReportHandler) MemberSummary(w http.ResponseWriter, r *http.Request) {
	memberID, err := uuid.Parse(mux.Vars(r)["memberId"])
	if err != nil {
		response.BadRequest(w, "invalid member id", err)
		return
	}

	summary, err := h.reports.MemberSummary(r.Context(), memberID)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, summary)
}

// CycleSummary handles GET /api/v1/cycles/{cycleId}/summary
func (h *ReportHandler) CycleSummary(w http.ResponseWriter, r *http.Request) {
	cycleID, err := uuid.Parse(mux.Vars(r)["cycleId"])
	if err != nil {
		response.BadRequest(w, "invalid cycle id", err)
		return
	}

	summary, err := h.reports.CycleSummary(r.Context(), cycleID)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, summary)
}
