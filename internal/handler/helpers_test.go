package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/keyhole/internal/auth"
	"github.com/hitoshi/keyhole/internal/model"
	"github.com/hitoshi/keyhole/internal/session"
	"github.com/hitoshi/keyhole/internal/user"
	"github.com/hitoshi/keyhole/internal/view"
)

// --- モック定義 ---

// mockAuthService はAuthServiceInterfaceのモック実装。
type mockAuthService struct {
	signInFn     func(ctx context.Context, values session.Values, email, password string) (string, error)
	signOutFn    func(values session.Values) string
	signInPageFn func(ctx context.Context, values session.Values) auth.SignInPage
}

func (m *mockAuthService) SignIn(ctx context.Context, values session.Values, email, password string) (string, error) {
	if m.signInFn != nil {
		return m.signInFn(ctx, values, email, password)
	}
	return auth.RouteSignIn, nil
}

func (m *mockAuthService) SignOut(values session.Values) string {
	if m.signOutFn != nil {
		return m.signOutFn(values)
	}
	return auth.RouteHome
}

func (m *mockAuthService) SignInPage(ctx context.Context, values session.Values) auth.SignInPage {
	if m.signInPageFn != nil {
		return m.signInPageFn(ctx, values)
	}
	return auth.SignInPage{}
}

// mockProfileService はProfileServiceInterfaceのモック実装。
type mockProfileService struct {
	updateProfileFn  func(ctx context.Context, userID int64, name, email string) (*user.Profile, error)
	changePasswordFn func(ctx context.Context, current *model.User, oldPassword, newPassword string) error
}

func (m *mockProfileService) UpdateProfile(ctx context.Context, userID int64, name, email string) (*user.Profile, error) {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, userID, name, email)
	}
	return &user.Profile{Name: name, Email: email}, nil
}

func (m *mockProfileService) ChangePassword(ctx context.Context, current *model.User, oldPassword, newPassword string) error {
	if m.changePasswordFn != nil {
		return m.changePasswordFn(ctx, current, oldPassword, newPassword)
	}
	return nil
}

// recordingRenderer は描画内容を記録するPageRenderer。
type recordingRenderer struct {
	page string
	data view.PageData
	err  error
}

func (m *recordingRenderer) Render(w http.ResponseWriter, status int, page string, data view.PageData) error {
	if m.err != nil {
		return m.err
	}
	m.page = page
	m.data = data
	w.WriteHeader(status)
	return nil
}

var testSessionStore = session.NewStore([]byte("test-session-secret-32bytes-long!"), nil, session.Options{
	Name:   "keyhole_session",
	MaxAge: 3600,
})

// sessionCookie はfillで値を設定したセッションCookieを発行する。
func sessionCookie(t *testing.T, fill func(values session.Values)) *http.Cookie {
	t.Helper()
	sess := testSessionStore.Load(httptest.NewRequest(http.MethodGet, "/", nil))
	fill(sess)
	rec := httptest.NewRecorder()
	if err := sess.Save(rec); err != nil {
		t.Fatalf("failed to save session: %v", err)
	}
	return rec.Result().Cookies()[0]
}

// loadResponseSession はレスポンスのSet-Cookieからセッションを復元する。
func loadResponseSession(t *testing.T, resp *http.Response) *session.Session {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	found := false
	for _, c := range resp.Cookies() {
		if c.Name == testSessionStore.Name() {
			req.AddCookie(c)
			found = true
		}
	}
	if !found {
		t.Fatal("response has no session cookie")
	}
	return testSessionStore.Load(req)
}
