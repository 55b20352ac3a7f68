package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cedarpos/backend/internal/common"
)

func newTestService(t *testing.T, now time.Time) *Service {
	t.Helper()
	svc, err := NewService(Config{
		Secret: "test-secret",
		Issuer: "cedarpos",
		Now:    func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestParseMerchantTokenRoundTrip(t *testing.T) {
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	svc := newTestService(t, now)
	merchant := uuid.New()

	token, err := svc.SignMerchantToken(merchant, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	got, err := svc.ParseMerchantToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != merchant {
		t.Fatalf("merchant: got %s, want %s", got, merchant)
	}
}

func TestParseMerchantTokenUsesServiceClock(t *testing.T) {
	// A token whose expiry is long past on the wall clock must still parse
	// when the service clock sits inside its validity window.
	issued := time.Date(2020, 1, 2, 9, 0, 0, 0, time.UTC)
	svc := newTestService(t, issued.Add(30*time.Minute))
	merchant := uuid.New()

	signer := newTestService(t, issued)
	token, err := signer.SignMerchantToken(merchant, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	got, err := svc.ParseMerchantToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != merchant {
		t.Fatalf("merchant: got %s, want %s", got, merchant)
	}
}

func TestParseMerchantTokenRejectsExpired(t *testing.T) {
	issued := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	svc := newTestService(t, issued)
	token, err := svc.SignMerchantToken(uuid.New(), time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	later := newTestService(t, issued.Add(2*time.Hour))
	if _, err := later.ParseMerchantToken(token); err == nil {
		t.Fatal("expected expired token to fail")
	}
}

func TestParseMerchantTokenRejectsWrongSecret(t *testing.T) {
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	svc := newTestService(t, now)
	token, err := svc.SignMerchantToken(uuid.New(), time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	other, err := NewService(Config{Secret: "other-secret", Now: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if _, err := other.ParseMerchantToken(token); err == nil {
		t.Fatal("expected token signed with a different secret to fail")
	}
}

func TestRequireMerchantMiddleware(t *testing.T) {
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	svc := newTestService(t, now)
	merchant := uuid.New()
	token, err := svc.SignMerchantToken(merchant, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	var seen uuid.UUID
	handler := Middleware{Service: svc}.RequireMerchant(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = common.MerchantID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status: got %d", rec.Code)
	}
	if seen != merchant {
		t.Fatalf("context merchant: got %s, want %s", seen, merchant)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token status: got %d", rec.Code)
	}
}
