package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/chamapesa/chama-engine/internal/domain"
	"github.com/chamapesa/chama-engine/internal/service"
	"github.com/chamapesa/chama-engine/pkg/response"
)

type PaymentHandler struct {
	payments  *service.PaymentService
	ledger    *service.LedgerService
	validator *validator.Validate
}

func NewPaymentHandler(payments *service.PaymentService, ledger *service.LedgerService) *PaymentHandler {
	return &PaymentHandler{
		payments:  payments,
		ledger:    ledger,
		validator: validator.New(),
	}
}

// RecordPayment handles POST /api/v1/payments
func (h *PaymentHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req domain.RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "invalid payment request", err)
		return
	}

	actingUser, err := actingUserID(r)
	if err != nil {
		response.BadRequest(w, "missing or invalid X-User-ID header", err)
		return
	}

	result, err := h.payments.RecordPayment(r.Context(), &req, actingUser)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Created(w, result)
}

// AdjustBalance handles POST /api/v1/members/{memberId}/adjustments
func (h *PaymentHandler) AdjustBalance(w http.ResponseWriter, r *http.Request) {
	memberID, err := uuid.Parse(mux.Vars(r)["memberId"])
	if err != nil {
		response.BadRequest(w, "invalid member id", err)
		return
	}

	var req domain.AdjustBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "invalid adjustment request", err)
		return
	}

	actingUser, err := actingUserID(r)
	if err != nil {
		response.BadRequest(w, "missing or invalid X-User-ID header", err)
		return
	}

	newBalance, err := h.ledger.ApplyDelta(r.Context(), service.ApplyDeltaParams{
		MemberID:        memberID,
		Amount:          req.Amount,
		TransactionType: domain.TxnTypeAdjustment,
		Description:     req.Description,
		ActingUserID:    actingUser,
	})
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, domain.AdjustBalanceResponse{
		MemberID:   memberID,
		Amount:     req.Amount,
		NewBalance: newBalance,
	})
}

// GetLedger handles GET /api/v1/members/{memberId}/ledger
func (h *PaymentHandler) GetLedger(w http.ResponseWriter, r *http.Request) {
	memberID, err := uuid.Parse(mux.Vars(r)["memberId"])
	if err != nil {
		response.BadRequest(w, "invalid member id", err)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(w, "invalid limit", err)
			return
		}
	}

	entries, err := h.ledger.History(r.Context(), memberID, limit)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, domain.LedgerResponse{
		MemberID: memberID,
		Entries:  entries,
	})
}

// WaiveContribution handles POST /api/v1/contributions/{contributionId}/waive
func (h *PaymentHandler) WaiveContribution(w http.ResponseWriter, r *http.Request) {
	contributionID, err := uuid.Parse(mux.Vars(r)["contributionId"])
	if err != nil {
		response.BadRequest(w, "invalid contribution id", err)
		return
	}

	if err := h.payments.WaiveContribution(r.Context(), contributionID); err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, map[string]string{"status": domain.ContributionStatusWaived})
}

// CancelContribution handles POST /api/v1/contributions/{contributionId}/cancel
func (h *PaymentHandler) CancelContribution(w http.ResponseWriter, r *http.Request) {
	contributionID, err := uuid.Parse(mux.Vars(r)["contributionId"])
	if err != nil {
		response.BadRequest(w, "invalid contribution id", err)
		return
	}

	actingUser, err := actingUserID(r)
	if err != nil {
		response.BadRequest(w, "missing or invalid X-User-ID header", err)
		return
	}

	if err := h.payments.CancelContribution(r.Context(), contributionID, actingUser); err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, map[string]string{"status": domain.ContributionStatusCancelled})
}

// actingUserID extracts the authenticated user injected by the auth layer
// upstream. The engine trusts this identity.
func actingUserID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(r.Header.Get("X-User-ID"))
}
