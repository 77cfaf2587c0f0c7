package handler

import (
	"net/http"

	"github.com/hitoshi/keyhole/internal/middleware"
	"github.com/hitoshi/keyhole/internal/session"
	"github.com/hitoshi/keyhole/internal/view"
)

// HomeHandler はホーム画面のHTTPハンドラー。
type HomeHandler struct {
	sessions SessionLoader
	renderer PageRenderer
}

// NewHomeHandler はHomeHandlerを生成する。
func NewHomeHandler(sessions SessionLoader, renderer PageRenderer) *HomeHandler {
	return &HomeHandler{sessions: sessions, renderer: renderer}
}

// Home はホーム画面を表示する。
// サインイン状態の表示分岐にはストアを参照しない軽量な判定を使う。
// GET /
func (h *HomeHandler) Home(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Load(r)

	signedIn := session.IsSignedIn(sess)
	// 文字列以外のメッセージも読み出し時に消費されるので、キーがあれば保存する
	_, hasMessage := sess.Get(session.KeyMessage)
	notice := session.ReadPlain(sess).Text
	if hasMessage {
		if !saveSession(w, r, sess) {
			return
		}
	}

	render(w, r, h.renderer, http.StatusOK, view.PageHome, view.PageData{
		Title:     "Home",
		CSRFToken: middleware.CSRFTokenFromContext(r.Context()),
		SignedIn:  signedIn,
		Notice:    notice,
	})
}
