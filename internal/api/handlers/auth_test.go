package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rohits-web03/chatvault/internal/api/middleware"
	"github.com/rohits-web03/chatvault/internal/encryption"
	"github.com/rohits-web03/chatvault/internal/models"
)

func TestState_RoundTrip(t *testing.T) {
	secret := []byte("state-secret")
	state, err := GenerateState(map[string]string{"flow": "register"}, secret)
	if err != nil {
		t.Fatalf("GenerateState failed: %v", err)
	}

	data, err := DecodeState(state, secret)
	if err != nil {
		t.Fatalf("DecodeState failed: %v", err)
	}
	if data["flow"] != "register" {
		t.Errorf("Expected flow=register, got %q", data["flow"])
	}
}

func TestState_RejectsTampering(t *testing.T) {
	secret := []byte("state-secret")
	state, _ := GenerateState(map[string]string{"flow": "login"}, secret)

	if _, err := DecodeState(state, []byte("other-secret")); err == nil {
		t.Error("Expected signature mismatch with a different secret")
	}

	parts := strings.Split(state, ".")
	forged, _ := GenerateState(map[string]string{"flow": "register"}, []byte("attacker"))
	parts[1] = strings.Split(forged, ".")[1]
	if _, err := DecodeState(strings.Join(parts, "."), secret); err == nil {
		t.Error("Expected swapped payload to be rejected")
	}

	if _, err := DecodeState("only.two", secret); err == nil {
		t.Error("Expected malformed state to be rejected")
	}
}

func TestIssueSession_AcceptedByAuthMiddleware(t *testing.T) {
	profile := &models.Profile{ID: uuid.New(), Username: "alice"}
	rec := httptest.NewRecorder()
	if err := issueSession(rec, profile); err != nil {
		t.Fatalf("issueSession failed: %v", err)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "token" {
		t.Fatalf("Expected a token cookie, got %v", cookies)
	}
	if !cookies[0].HttpOnly {
		t.Error("Token cookie must be HttpOnly")
	}

	var session encryption.Session
	var userID string
	h := middleware.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, _ = middleware.UserID(r.Context())
		session, _ = encryption.SessionFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.AddCookie(cookies[0])
	h.ServeHTTP(httptest.NewRecorder(), req)

	if userID != profile.ID.String() {
		t.Errorf("Expected user %s, got %q", profile.ID, userID)
	}
	if session.AccessToken != cookies[0].Value || session.ExpiresAt.IsZero() {
		t.Errorf("Unexpected session %+v", session)
	}
}

func TestLogout_ClearsCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	Logout(rec, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Errorf("Expected an expiring token cookie, got %v", cookies)
	}
}
