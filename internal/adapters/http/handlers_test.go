package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/settleline/conveyor/internal/adapters/security"
	"github.com/settleline/conveyor/internal/domain"
)

func mintWebhookToken(t *testing.T, secret string, ttl time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": "typeform",
		"aud": "conveyor",
		"exp": time.Now().Add(ttl).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func newAuthedHandler(t *testing.T) *Handler {
	t.Helper()
	verifier, err := security.NewWebhookVerifier("hook-secret", "conveyor")
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	return &Handler{verifier: verifier}
}

func TestWebhookAuthMiddlewareRejectsMissingToken(t *testing.T) {
	h := newAuthedHandler(t)
	next := h.webhookAuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	next.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhooks/v1/typeform", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestWebhookAuthMiddlewareRejectsExpiredToken(t *testing.T) {
	h := newAuthedHandler(t)
	next := h.webhookAuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/webhooks/v1/typeform", nil)
	req.Header.Set("Authorization", "Bearer "+mintWebhookToken(t, "hook-secret", -time.Minute))
	rec := httptest.NewRecorder()
	next.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestWebhookAuthMiddlewareAcceptsValidToken(t *testing.T) {
	h := newAuthedHandler(t)
	var issuer string
	next := h.webhookAuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		issuer, _ = r.Context().Value(ctxKeyIssuer).(string)
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/webhooks/v1/typeform", nil)
	req.Header.Set("Authorization", "Bearer "+mintWebhookToken(t, "hook-secret", time.Minute))
	rec := httptest.NewRecorder()
	next.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if issuer != "typeform" {
		t.Fatalf("issuer = %q", issuer)
	}
}

func TestWebhookAuthMiddlewareRejectsWrongSecret(t *testing.T) {
	h := newAuthedHandler(t)
	next := h.webhookAuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/webhooks/v1/typeform", nil)
	req.Header.Set("Authorization", "Bearer "+mintWebhookToken(t, "other-secret", time.Minute))
	rec := httptest.NewRecorder()
	next.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRequestIDMiddlewareGeneratesAndEchoes(t *testing.T) {
	var seen string
	next := requestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	next.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if seen == "" {
		t.Fatalf("request id not generated")
	}
	if rec.Header().Get("X-Request-Id") != seen {
		t.Fatalf("request id not echoed: header %q, context %q", rec.Header().Get("X-Request-Id"), seen)
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "fixed-id")
	rec = httptest.NewRecorder()
	next.ServeHTTP(rec, req)
	if seen != "fixed-id" {
		t.Fatalf("supplied request id not propagated, got %q", seen)
	}
}

func TestAnswerValueMapping(t *testing.T) {
	number := 42.5
	boolean := true

	text := typeformAnswer{Type: "text", Text: "NSW"}
	if v, dt := answerValue(text); v != "NSW" || dt != domain.DataTypeString {
		t.Fatalf("text answer = %q %q", v, dt)
	}

	email := typeformAnswer{Type: "email", Email: "jane@example.com"}
	if v, _ := answerValue(email); v != "jane@example.com" {
		t.Fatalf("email answer = %q", v)
	}

	num := typeformAnswer{Type: "number", Number: &number}
	if v, dt := answerValue(num); v != "42.5" || dt != domain.DataTypeNumber {
		t.Fatalf("number answer = %q %q", v, dt)
	}

	flag := typeformAnswer{Type: "boolean", Boolean: &boolean}
	if v, dt := answerValue(flag); v != "true" || dt != domain.DataTypeBoolean {
		t.Fatalf("boolean answer = %q %q", v, dt)
	}

	choice := typeformAnswer{Type: "choice"}
	choice.Choice.Label = "Buying"
	if v, _ := answerValue(choice); v != "Buying" {
		t.Fatalf("choice answer = %q", v)
	}
}

func TestMapDomainErrorStatuses(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{domain.ErrInvalidInput, http.StatusBadRequest},
		{domain.ErrIdempotencyRequired, http.StatusBadRequest},
		{domain.ErrIdempotencyConflict, http.StatusConflict},
		{domain.ErrServiceTypeUnresolved, http.StatusUnprocessableEntity},
		{domain.ErrLinkNotFound, http.StatusNotFound},
		{domain.ErrSymlinkInvalid, http.StatusConflict},
		{domain.ErrNotFound, http.StatusNotFound},
	}
	for _, tc := range cases {
		status, _, _ := mapDomainError(tc.err)
		if status != tc.status {
			t.Fatalf("%v mapped to %d, want %d", tc.err, status, tc.status)
		}
	}
}
