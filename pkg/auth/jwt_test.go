package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIssueAndParseToken(t *testing.T) {
	config := DefaultJWTConfig("test-secret-key")

	token, err := IssueToken("u-123", "student", config)
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}
	if token == "" {
		t.Fatal("Token should not be empty")
	}

	claims, err := ParseToken(token, config)
	if err != nil {
		t.Fatalf("Failed to parse token: %v", err)
	}
	if claims.UserID != "u-123" {
		t.Errorf("Expected UserID u-123, got %s", claims.UserID)
	}
	if claims.Role != "student" {
		t.Errorf("Expected Role student, got %s", claims.Role)
	}
	if claims.Issuer != "kudupay" {
		t.Errorf("Expected issuer kudupay, got %s", claims.Issuer)
	}
}

func TestIssueTokenValidation(t *testing.T) {
	if _, err := IssueToken("u-1", "student", DefaultJWTConfig("")); err == nil {
		t.Error("expected error for empty secret")
	}
	if _, err := IssueToken("", "student", DefaultJWTConfig("secret")); err == nil {
		t.Error("expected error for empty user id")
	}
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, err := IssueToken("u-1", "student", DefaultJWTConfig("secret-a"))
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}
	if _, err := ParseToken(token, DefaultJWTConfig("secret-b")); err == nil {
		t.Fatal("expected parse to fail with the wrong secret")
	}
}

func TestParseExpiredToken(t *testing.T) {
	config := &JWTConfig{
		SecretKey:     "test-secret-key",
		TokenDuration: -time.Minute,
		Issuer:        "kudupay",
	}
	token, err := IssueToken("u-1", "student", config)
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}
	if _, err := ParseToken(token, config); err == nil {
		t.Fatal("expected parse to reject an expired token")
	}
}

func TestMiddlewareAllowsValidToken(t *testing.T) {
	config := DefaultJWTConfig("test-secret-key")
	token, err := IssueToken("u-1", "student", config)
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}

	var gotClaims *Claims
	handler := Middleware(config)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClaims, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotClaims == nil || gotClaims.UserID != "u-1" {
		t.Errorf("expected claims in context, got %+v", gotClaims)
	}
}

func TestMiddlewareRejectsBadRequests(t *testing.T) {
	config := DefaultJWTConfig("test-secret-key")
	handler := Middleware(config)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic abc"},
		{"garbage token", "Bearer not-a-token"},
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if c.header != "" {
			req.Header.Set("Authorization", c.header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", c.name, rec.Code)
		}
	}
}

func TestMiddlewareDisabledWithoutSecret(t *testing.T) {
	handler := Middleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected pass-through without config, got %d", rec.Code)
	}
}
