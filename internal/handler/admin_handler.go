package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/keyhole/internal/middleware"
	"github.com/hitoshi/keyhole/internal/model"
	"github.com/hitoshi/keyhole/internal/user"
	"github.com/hitoshi/keyhole/internal/view"
)

// MessagePasswordUpdated はパスワード変更成功時の文言。
const MessagePasswordUpdated = "Password updated"

// ProfileServiceInterface は管理画面ハンドラーが必要とするサービスインターフェース。
type ProfileServiceInterface interface {
	UpdateProfile(ctx context.Context, userID int64, name, email string) (*user.Profile, error)
	ChangePassword(ctx context.Context, current *model.User, oldPassword, newPassword string) error
}

// ProfileResponse はプロフィール更新APIのレスポンス。
type ProfileResponse struct {
	Data user.Profile `json:"data"`
}

// AdminHandler は管理画面のHTTPハンドラー。
// 認証ゲートの後段に置き、ユーザーはリクエストコンテキストから取得する。
type AdminHandler struct {
	profiles ProfileServiceInterface
	renderer PageRenderer
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(profiles ProfileServiceInterface, renderer PageRenderer) *AdminHandler {
	return &AdminHandler{profiles: profiles, renderer: renderer}
}

// Dashboard はダッシュボードを表示する。
// GET /admin
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, view.PageAdminDashboard, "Dashboard")
}

// Settings は設定画面を表示する。
// GET /admin/settings
func (h *AdminHandler) Settings(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, view.PageAdminSettings, "Settings")
}

// Profile はプロフィール画面を表示する。
// GET /admin/profile
func (h *AdminHandler) Profile(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, view.PageAdminProfile, "Profile")
}

// UpdateProfile は名前とメールアドレスを更新する。
// POST /admin/profile
func (h *AdminHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	current, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.WriteInternalServerError(w, r)
		return
	}

	profile, err := h.profiles.UpdateProfile(r.Context(), current.ID, r.PostFormValue("name"), r.PostFormValue("email"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ProfileResponse{Data: *profile})
}

// ChangePassword は現在のパスワードを確認してから新しいパスワードに変更する。
// POST /admin/profile-password
func (h *AdminHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	current, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.WriteInternalServerError(w, r)
		return
	}

	err := h.profiles.ChangePassword(r.Context(), current, r.PostFormValue("old_password"), r.PostFormValue("new_password"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"success": MessagePasswordUpdated})
}

func (h *AdminHandler) renderPage(w http.ResponseWriter, r *http.Request, page, title string) {
	current, ok := middleware.UserFromContext(r.Context())
	if !ok {
		// 認証ゲートを通らずに呼ばれた場合
		slog.Error("admin page reached without user", slog.String("path", r.URL.Path))
		middleware.WriteInternalServerError(w, r)
		return
	}

	render(w, r, h.renderer, http.StatusOK, page, view.PageData{
		Title:     title,
		CSRFToken: middleware.CSRFTokenFromContext(r.Context()),
		SignedIn:  true,
		User:      current,
	})
}

// handleServiceError はサービス層のエラーをJSONエラーレスポンスに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var appErr *model.AppError
	if errors.As(err, &appErr) {
		middleware.WriteAppError(w, mapAppErrorToHTTPStatus(appErr), appErr)
		return
	}

	// AppError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteAppError(w, http.StatusInternalServerError, model.NewInternalError())
}

// mapAppErrorToHTTPStatus はAppErrorコードからHTTPステータスコードにマッピングする。
func mapAppErrorToHTTPStatus(appErr *model.AppError) int {
	switch appErr.Code {
	case model.ErrCodeInvalidInput, model.ErrCodeInvalidCredentials:
		return http.StatusUnprocessableEntity
	case model.ErrCodeEmailTaken:
		return http.StatusConflict
	case model.ErrCodeUserNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}
