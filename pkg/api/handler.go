package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/kudupay/kuduq-backend/pkg/obs"
	"github.com/kudupay/kuduq-backend/pkg/payments"
)

// Orchestrator is the payment capability behind the HTTP handlers.
type Orchestrator interface {
	CanPay(ctx context.Context, userID string, amountCents int64) payments.Result
	PayUser(ctx context.Context, req payments.PayRequest) payments.Result
	SponsorUser(ctx context.Context, req payments.SponsorRequest) payments.Result
	FundUser(ctx context.Context, sponsorID string, amountCents int64) payments.Result
}

type Handler struct {
	payments Orchestrator
}

func NewHandler(orchestrator Orchestrator) *Handler {
	return &Handler{payments: orchestrator}
}

type canPayRequest struct {
	StudentID   string `json:"studentId"`
	AmountCents int64  `json:"amount_cents"`
}

type payUserRequest struct {
	MerchantID     string `json:"merchantId"`
	StudentID      string `json:"studentId"`
	IdempotencyKey string `json:"idempotency_key"`
	AmountCents    int64  `json:"amount_cents"`
}

type fundUserRequest struct {
	SponsorID   string `json:"sponsorId"`
	AmountCents int64  `json:"amount_cents"`
}

type sponsorUserRequest struct {
	SponsorID      string `json:"sponsorId"`
	StudentID      string `json:"studentId"`
	IdempotencyKey string `json:"idempotency_key"`
	AmountCents    int64  `json:"amount_cents"`
}

type resultResponse struct {
	Result  bool   `json:"result"`
	Message string `json:"message,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, messageResponse{Message: "pong"})
}

func (h *Handler) canPay(w http.ResponseWriter, r *http.Request) {
	var req canPayRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res := h.payments.CanPay(r.Context(), req.StudentID, req.AmountCents)
	writeJSON(w, resultResponse{Result: res.OK, Message: res.Message})
}

func (h *Handler) payUser(w http.ResponseWriter, r *http.Request) {
	var req payUserRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res := h.payments.PayUser(r.Context(), payments.PayRequest{
		MerchantID:     req.MerchantID,
		StudentID:      req.StudentID,
		AmountCents:    req.AmountCents,
		IdempotencyKey: req.IdempotencyKey,
	})
	writeJSON(w, resultResponse{Result: res.OK, Message: res.Message})
}

func (h *Handler) fundUser(w http.ResponseWriter, r *http.Request) {
	var req fundUserRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res := h.payments.FundUser(r.Context(), req.SponsorID, req.AmountCents)
	writeJSON(w, messageResponse{Message: res.Message})
}

func (h *Handler) sponsorUser(w http.ResponseWriter, r *http.Request) {
	var req sponsorUserRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res := h.payments.SponsorUser(r.Context(), payments.SponsorRequest{
		SponsorID:      req.SponsorID,
		StudentID:      req.StudentID,
		AmountCents:    req.AmountCents,
		IdempotencyKey: req.IdempotencyKey,
	})
	writeJSON(w, resultResponse{Result: res.OK, Message: res.Message})
}

// decodeBody reads a JSON request body. Malformed input still answers 200
// with a body-level failure; clients only ever branch on the body flags.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		obs.Warn(r.Context(), "rejecting malformed request body",
			"path", r.URL.Path, "request_id", requestIDFromContext(r.Context()))
		writeJSON(w, resultResponse{Result: false, Message: "Invalid request body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		obs.Error(context.Background(), "failed to encode response", err)
	}
}
