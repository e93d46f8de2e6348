package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kudupay/kuduq-backend/pkg/auth"
	"github.com/kudupay/kuduq-backend/pkg/payments"
)

type MockOrchestrator struct {
	canPayResult  payments.Result
	payResult     payments.Result
	sponsorResult payments.Result
	fundResult    payments.Result

	payRequests     []payments.PayRequest
	sponsorRequests []payments.SponsorRequest
	fundSponsorIDs  []string
}

func (m *MockOrchestrator) CanPay(ctx context.Context, userID string, amountCents int64) payments.Result {
	return m.canPayResult
}

func (m *MockOrchestrator) PayUser(ctx context.Context, req payments.PayRequest) payments.Result {
	m.payRequests = append(m.payRequests, req)
	return m.payResult
}

func (m *MockOrchestrator) SponsorUser(ctx context.Context, req payments.SponsorRequest) payments.Result {
	m.sponsorRequests = append(m.sponsorRequests, req)
	return m.sponsorResult
}

func (m *MockOrchestrator) FundUser(ctx context.Context, sponsorID string, amountCents int64) payments.Result {
	m.fundSponsorIDs = append(m.fundSponsorIDs, sponsorID)
	return m.fundResult
}

func newTestRouter(orchestrator Orchestrator, jwtConfig *auth.JWTConfig) http.Handler {
	return NewRouter(NewHandler(orchestrator), jwtConfig, nil)
}

func postJSON(t *testing.T, router http.Handler, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	return body
}

func TestPings(t *testing.T) {
	router := newTestRouter(&MockOrchestrator{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/pings", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeResponse(t, rec)
	if body["message"] != "pong" {
		t.Errorf("expected pong, got %v", body["message"])
	}
}

func TestCanPayEndpoint(t *testing.T) {
	orchestrator := &MockOrchestrator{
		canPayResult: payments.Result{OK: false, Message: "Insufficient funds"},
	}
	router := newTestRouter(orchestrator, nil)

	rec := postJSON(t, router, "/can-pay", `{"studentId": "s-1", "amount_cents": 5000}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 even on failure, got %d", rec.Code)
	}
	body := decodeResponse(t, rec)
	if body["result"] != false {
		t.Errorf("expected result false, got %v", body["result"])
	}
	if body["message"] != "Insufficient funds" {
		t.Errorf("expected Insufficient funds, got %v", body["message"])
	}
}

func TestCanPaySuccessOmitsMessage(t *testing.T) {
	orchestrator := &MockOrchestrator{canPayResult: payments.Result{OK: true}}
	router := newTestRouter(orchestrator, nil)

	rec := postJSON(t, router, "/can-pay", `{"studentId": "s-1", "amount_cents": 100}`, nil)
	body := decodeResponse(t, rec)
	if body["result"] != true {
		t.Errorf("expected result true, got %v", body["result"])
	}
	if _, ok := body["message"]; ok {
		t.Error("expected message omitted on success")
	}
}

func TestPayUserEndpoint(t *testing.T) {
	orchestrator := &MockOrchestrator{
		payResult: payments.Result{OK: true, Message: "Transfer successful"},
	}
	router := newTestRouter(orchestrator, nil)

	rec := postJSON(t, router, "/pay-user",
		`{"merchantId": "m-1", "studentId": "s-1", "idempotency_key": "k-1", "amount_cents": 1234}`, nil)
	body := decodeResponse(t, rec)
	if body["result"] != true || body["message"] != "Transfer successful" {
		t.Errorf("unexpected response %v", body)
	}

	if len(orchestrator.payRequests) != 1 {
		t.Fatalf("expected 1 pay request, got %d", len(orchestrator.payRequests))
	}
	req := orchestrator.payRequests[0]
	if req.MerchantID != "m-1" || req.StudentID != "s-1" ||
		req.IdempotencyKey != "k-1" || req.AmountCents != 1234 {
		t.Errorf("request fields not mapped: %+v", req)
	}
}

func TestFundUserEndpoint(t *testing.T) {
	orchestrator := &MockOrchestrator{fundResult: payments.Result{Message: "User can pay"}}
	router := newTestRouter(orchestrator, nil)

	rec := postJSON(t, router, "/fund-user", `{"sponsorId": "sp-1", "amount_cents": 10000}`, nil)
	body := decodeResponse(t, rec)
	if body["message"] != "User can pay" {
		t.Errorf("expected User can pay, got %v", body["message"])
	}
	if _, ok := body["result"]; ok {
		t.Error("fund-user responses carry only a message")
	}
	if len(orchestrator.fundSponsorIDs) != 1 || orchestrator.fundSponsorIDs[0] != "sp-1" {
		t.Errorf("expected fund call for sp-1, got %v", orchestrator.fundSponsorIDs)
	}
}

func TestSponsorUserEndpoint(t *testing.T) {
	orchestrator := &MockOrchestrator{
		sponsorResult: payments.Result{OK: true, Message: "Sponsor user transfer successful"},
	}
	router := newTestRouter(orchestrator, nil)

	rec := postJSON(t, router, "/sponsor-user",
		`{"sponsorId": "sp-1", "studentId": "s-1", "idempotency_key": "k-2", "amount_cents": 5000}`, nil)
	body := decodeResponse(t, rec)
	if body["result"] != true {
		t.Errorf("expected result true, got %v", body)
	}

	req := orchestrator.sponsorRequests[0]
	if req.SponsorID != "sp-1" || req.StudentID != "s-1" {
		t.Errorf("request fields not mapped: %+v", req)
	}
}

func TestMalformedBodyStillAnswers200(t *testing.T) {
	router := newTestRouter(&MockOrchestrator{}, nil)

	rec := postJSON(t, router, "/pay-user", `{not json`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with body-level failure, got %d", rec.Code)
	}
	body := decodeResponse(t, rec)
	if body["result"] != false {
		t.Errorf("expected result false, got %v", body)
	}
}

func TestPaymentRoutesRequireTokenWhenConfigured(t *testing.T) {
	jwtConfig := auth.DefaultJWTConfig("test-secret")
	router := newTestRouter(&MockOrchestrator{}, jwtConfig)

	rec := postJSON(t, router, "/can-pay", `{"studentId": "s-1", "amount_cents": 100}`, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	token, err := auth.IssueToken("u-1", "student", jwtConfig)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	rec = postJSON(t, router, "/can-pay", `{"studentId": "s-1", "amount_cents": 100}`,
		map[string]string{"Authorization": "Bearer " + token})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid token, got %d", rec.Code)
	}
}

func TestHealthRoutesBypassAuth(t *testing.T) {
	router := newTestRouter(&MockOrchestrator{}, auth.DefaultJWTConfig("test-secret"))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected health endpoint to bypass auth, got %d", rec.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	router := newTestRouter(&MockOrchestrator{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/pings", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("expected a generated X-Request-Id header")
	}

	req = httptest.NewRequest(http.MethodGet, "/pings", nil)
	req.Header.Set("X-Request-Id", "req-42")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-Id"); got != "req-42" {
		t.Errorf("expected propagated request id req-42, got %q", got)
	}
}
