// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/keyhole/internal/auth"
	"github.com/hitoshi/keyhole/internal/middleware"
	"github.com/hitoshi/keyhole/internal/session"
	"github.com/hitoshi/keyhole/internal/view"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	SignIn(ctx context.Context, values session.Values, email, password string) (string, error)
	SignOut(values session.Values) string
	SignInPage(ctx context.Context, values session.Values) auth.SignInPage
}

// SessionLoader はリクエストのセッションを読み込む。
type SessionLoader interface {
	Load(r *http.Request) *session.Session
}

// PageRenderer は画面を描画する。
type PageRenderer interface {
	Render(w http.ResponseWriter, status int, page string, data view.PageData) error
}

// AuthHandler はサインイン・サインアウトのHTTPハンドラー。
type AuthHandler struct {
	service  AuthServiceInterface
	sessions SessionLoader
	renderer PageRenderer
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, sessions SessionLoader, renderer PageRenderer) *AuthHandler {
	return &AuthHandler{
		service:  service,
		sessions: sessions,
		renderer: renderer,
	}
}

// SignInForm はサインイン画面を表示する。
// GET /signin
func (h *AuthHandler) SignInForm(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Load(r)

	page := h.service.SignInPage(r.Context(), sess)
	if page.RedirectTo != "" {
		http.Redirect(w, r, page.RedirectTo, http.StatusFound)
		return
	}

	// フラッシュを消費したのでCookieを更新する
	if !saveSession(w, r, sess) {
		return
	}

	render(w, r, h.renderer, http.StatusOK, view.PageSignIn, view.PageData{
		Title:     "Sign in",
		CSRFToken: middleware.CSRFTokenFromContext(r.Context()),
		Flash:     page.Message,
	})
}

// SignIn はフォームの認証情報でサインインする。
// POST /signin
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Load(r)

	// 1. 認証
	location, err := h.service.SignIn(r.Context(), sess, r.PostFormValue("email"), r.PostFormValue("password"))
	if err != nil {
		slog.Error("sign in failed", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w, r)
		return
	}

	// 2. リダイレクト前にセッションを保存
	if !saveSession(w, r, sess) {
		return
	}

	http.Redirect(w, r, location, http.StatusFound)
}

// SignOut はサインアウトしてホーム画面へリダイレクトする。
// GET /signout, POST /signout
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Load(r)

	location := h.service.SignOut(sess)
	if !saveSession(w, r, sess) {
		return
	}

	http.Redirect(w, r, location, http.StatusFound)
}

// saveSession はセッションCookieを書き込む。
// 失敗した場合は500を返してfalseを返す。
func saveSession(w http.ResponseWriter, r *http.Request, sess *session.Session) bool {
	if err := sess.Save(w); err != nil {
		slog.Error("failed to save session", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w, r)
		return false
	}
	return true
}

// render は画面を描画する。失敗した場合は500を返す。
func render(w http.ResponseWriter, r *http.Request, renderer PageRenderer, status int, page string, data view.PageData) {
	if err := renderer.Render(w, status, page, data); err != nil {
		slog.Error("failed to render page",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w, r)
	}
}
