package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/hitoshi/keyhole/internal/auth"
	"github.com/hitoshi/keyhole/internal/session"
	"github.com/hitoshi/keyhole/internal/view"
)

func postForm(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// --- GET /signin テスト ---

func TestAuthHandler_SignInForm_RendersFlash(t *testing.T) {
	svc := &mockAuthService{
		signInPageFn: func(_ context.Context, values session.Values) auth.SignInPage {
			return auth.SignInPage{Message: session.ReadStructured(values)}
		},
	}
	renderer := &recordingRenderer{}
	h := NewAuthHandler(svc, testSessionStore, renderer)

	req := httptest.NewRequest(http.MethodGet, "/signin", nil)
	req.AddCookie(sessionCookie(t, func(v session.Values) {
		session.SetMessage(v, session.Structured{Error: auth.MessageInvalidCredentials})
	}))
	w := httptest.NewRecorder()

	h.SignInForm(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if renderer.page != view.PageSignIn {
		t.Errorf("page = %q, want %q", renderer.page, view.PageSignIn)
	}
	if renderer.data.Flash.Status != session.StatusError || renderer.data.Flash.Text != auth.MessageInvalidCredentials {
		t.Errorf("flash = %+v", renderer.data.Flash)
	}

	// フラッシュは1回で消費される
	sess := loadResponseSession(t, resp)
	if _, ok := sess.Get(session.KeyMessage); ok {
		t.Error("flash should be removed from the saved session")
	}
}

func TestAuthHandler_SignInForm_RedirectsWhenSignedIn(t *testing.T) {
	svc := &mockAuthService{
		signInPageFn: func(_ context.Context, _ session.Values) auth.SignInPage {
			return auth.SignInPage{RedirectTo: auth.RouteAdmin}
		},
	}
	renderer := &recordingRenderer{}
	h := NewAuthHandler(svc, testSessionStore, renderer)

	w := httptest.NewRecorder()
	h.SignInForm(w, httptest.NewRequest(http.MethodGet, "/signin", nil))

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusFound)
	}
	if loc := w.Header().Get("Location"); loc != auth.RouteAdmin {
		t.Errorf("Location = %q, want %q", loc, auth.RouteAdmin)
	}
	if renderer.page != "" {
		t.Error("page should not be rendered on redirect")
	}
}

func TestAuthHandler_SignInForm_RenderError_Returns500(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testSessionStore, &recordingRenderer{err: errors.New("template broken")})

	w := httptest.NewRecorder()
	h.SignInForm(w, httptest.NewRequest(http.MethodGet, "/signin", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

// --- POST /signin テスト ---

func TestAuthHandler_SignIn_Success_SavesSessionAndRedirects(t *testing.T) {
	var gotEmail, gotPassword string
	svc := &mockAuthService{
		signInFn: func(_ context.Context, values session.Values, email, password string) (string, error) {
			gotEmail, gotPassword = email, password
			session.SetAuthenticated(values, 1)
			return auth.RouteAdmin, nil
		},
	}
	h := NewAuthHandler(svc, testSessionStore, &recordingRenderer{})

	w := httptest.NewRecorder()
	h.SignIn(w, postForm("/signin", url.Values{"email": {"jekyll@example.com"}, "password": {"password"}}))

	resp := w.Result()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusFound)
	}
	if loc := resp.Header.Get("Location"); loc != auth.RouteAdmin {
		t.Errorf("Location = %q, want %q", loc, auth.RouteAdmin)
	}
	if gotEmail != "jekyll@example.com" || gotPassword != "password" {
		t.Errorf("form values = (%q, %q)", gotEmail, gotPassword)
	}

	sess := loadResponseSession(t, resp)
	if id := session.CurrentUserID(sess); id != 1 {
		t.Errorf("saved user ID = %d, want 1", id)
	}
}

func TestAuthHandler_SignIn_Rejected_RedirectsWithFlash(t *testing.T) {
	svc := &mockAuthService{
		signInFn: func(_ context.Context, values session.Values, _, _ string) (string, error) {
			session.SetMessage(values, session.Structured{Error: auth.MessageMissingFields})
			return auth.RouteSignIn, nil
		},
	}
	h := NewAuthHandler(svc, testSessionStore, &recordingRenderer{})

	w := httptest.NewRecorder()
	h.SignIn(w, postForm("/signin", url.Values{}))

	resp := w.Result()
	if loc := resp.Header.Get("Location"); loc != auth.RouteSignIn {
		t.Errorf("Location = %q, want %q", loc, auth.RouteSignIn)
	}
	flash := session.ReadStructured(loadResponseSession(t, resp))
	if flash.Text != auth.MessageMissingFields {
		t.Errorf("flash = %q, want %q", flash.Text, auth.MessageMissingFields)
	}
}

func TestAuthHandler_SignIn_StoreError_Returns500(t *testing.T) {
	svc := &mockAuthService{
		signInFn: func(_ context.Context, _ session.Values, _, _ string) (string, error) {
			return "", errors.New("connection refused")
		},
	}
	h := NewAuthHandler(svc, testSessionStore, &recordingRenderer{})

	w := httptest.NewRecorder()
	h.SignIn(w, postForm("/signin", url.Values{"email": {"a@example.com"}, "password": {"x"}}))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if w.Header().Get("Location") != "" {
		t.Error("no redirect expected on server error")
	}
}

// --- GET /signout テスト ---

func TestAuthHandler_SignOut_RedirectsHome(t *testing.T) {
	svc := &mockAuthService{
		signOutFn: func(values session.Values) string {
			session.ClearAuthenticated(values)
			return auth.RouteHome
		},
	}
	h := NewAuthHandler(svc, testSessionStore, &recordingRenderer{})

	req := httptest.NewRequest(http.MethodGet, "/signout", nil)
	req.AddCookie(sessionCookie(t, func(v session.Values) { session.SetAuthenticated(v, 1) }))
	w := httptest.NewRecorder()

	h.SignOut(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusFound)
	}
	if loc := resp.Header.Get("Location"); loc != auth.RouteHome {
		t.Errorf("Location = %q, want %q", loc, auth.RouteHome)
	}

	sess := loadResponseSession(t, resp)
	if session.IsSignedIn(sess) {
		t.Error("session should be signed out")
	}
	if flash := session.ReadPlain(sess); flash.Text != session.SignedOutMessage {
		t.Errorf("flash = %q, want %q", flash.Text, session.SignedOutMessage)
	}
}

// --- GET / テスト ---

func TestHomeHandler_ConsumesPlainFlash(t *testing.T) {
	renderer := &recordingRenderer{}
	h := NewHomeHandler(testSessionStore, renderer)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(sessionCookie(t, func(v session.Values) {
		session.SetMessage(v, session.PlainText(session.SignedOutMessage))
	}))
	w := httptest.NewRecorder()

	h.Home(w, req)

	if renderer.page != view.PageHome {
		t.Fatalf("page = %q, want %q", renderer.page, view.PageHome)
	}
	if renderer.data.Notice != session.SignedOutMessage {
		t.Errorf("Notice = %q, want %q", renderer.data.Notice, session.SignedOutMessage)
	}
	if renderer.data.SignedIn {
		t.Error("SignedIn should be false")
	}

	sess := loadResponseSession(t, w.Result())
	if _, ok := sess.Get(session.KeyMessage); ok {
		t.Error("flash should be consumed")
	}
}

func TestHomeHandler_ConsumesStructuredFlashWithoutNotice(t *testing.T) {
	renderer := &recordingRenderer{}
	h := NewHomeHandler(testSessionStore, renderer)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(sessionCookie(t, func(v session.Values) {
		session.SetMessage(v, session.Structured{Error: auth.MessageInvalidCredentials})
	}))
	w := httptest.NewRecorder()

	h.Home(w, req)

	if renderer.data.Notice != "" {
		t.Errorf("Notice = %q, want empty", renderer.data.Notice)
	}

	sess := loadResponseSession(t, w.Result())
	if _, ok := sess.Get(session.KeyMessage); ok {
		t.Error("structured flash should be consumed and saved")
	}
}

func TestHomeHandler_SignedIn(t *testing.T) {
	renderer := &recordingRenderer{}
	h := NewHomeHandler(testSessionStore, renderer)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(sessionCookie(t, func(v session.Values) { session.SetAuthenticated(v, 7) }))
	w := httptest.NewRecorder()

	h.Home(w, req)

	if !renderer.data.SignedIn {
		t.Error("SignedIn should be true for a session with user ID")
	}
	if len(w.Result().Cookies()) != 0 {
		t.Error("session should not be rewritten when nothing changed")
	}
}
