package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rohits-web03/chatvault/internal/config"
	"github.com/rohits-web03/chatvault/internal/encryption"
)

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return s
}

func TestAuthMiddleware_SetsUserAndSession(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signToken(t, jwt.MapClaims{"userId": "u1", "exp": exp.Unix()}, config.Envs.JWTSecret)

	var gotUser string
	var gotSession encryption.Session
	h := AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = UserID(r.Context())
		gotSession, _ = encryption.SessionFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/conversations", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: token})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", rec.Code)
	}
	if gotUser != "u1" {
		t.Errorf("Expected user u1, got %q", gotUser)
	}
	if gotSession.AccessToken != token {
		t.Error("Session should carry the raw access token")
	}
	if !gotSession.ExpiresAt.Equal(exp) {
		t.Errorf("Expected session expiry %v, got %v", exp, gotSession.ExpiresAt)
	}
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	h := AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run")
	}))

	cases := map[string]string{
		"wrong secret": signToken(t, jwt.MapClaims{"userId": "u1"}, "other-secret"),
		"no user id":   signToken(t, jwt.MapClaims{"sub": "u1"}, config.Envs.JWTSecret),
		"expired": signToken(t, jwt.MapClaims{
			"userId": "u1",
			"exp":    time.Now().Add(-time.Hour).Unix(),
		}, config.Envs.JWTSecret),
		"garbage": "not-a-jwt",
	}
	for name, token := range cases {
		req := httptest.NewRequest(http.MethodGet, "/conversations", nil)
		req.AddCookie(&http.Cookie{Name: "token", Value: token})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", name, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/conversations", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing cookie: expected 401, got %d", rec.Code)
	}
}
