package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/keyhole/internal/session"
)

// TestMiddlewareChain_LoggingSeesGateUser はロギングの内側で認証ゲートが解決したユーザーIDが
// 外側のリクエストログに記録されることを検証する。
func TestMiddlewareChain_LoggingSeesGateUser(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	gate := NewAuthGate(session.NewIdentity(jekyllFinder()), nil)

	handler := NewRecoveryMiddleware()(
		NewLoggingMiddleware(logger)(
			NewSecurityHeadersMiddleware()(
				NewAuthGateMiddleware(testSessionStore, gate)(
					http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
						w.WriteHeader(http.StatusOK)
					}),
				),
			),
		),
	)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(signedInCookie(t, 1))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log: %v\nraw: %s", err, buf.String())
	}
	if entry["user_id"] != float64(1) {
		t.Errorf("user_id = %v, want 1", entry["user_id"])
	}
}

// TestMiddlewareChain_DeniedRequestIsLoggedAs302 は拒否されたリクエストが302として記録されることを検証する。
func TestMiddlewareChain_DeniedRequestIsLoggedAs302(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	gate := NewAuthGate(session.NewIdentity(jekyllFinder()), nil)

	handler := NewLoggingMiddleware(logger)(
		NewAuthGateMiddleware(testSessionStore, gate)(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler should not be called")
			}),
		),
	)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log: %v", err)
	}
	if entry["status"] != float64(http.StatusFound) {
		t.Errorf("status = %v, want 302", entry["status"])
	}
	if _, ok := entry["user_id"]; ok {
		t.Error("user_id should be omitted for denied request")
	}
}
