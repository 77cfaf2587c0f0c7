package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/keyhole/internal/model"
	"github.com/hitoshi/keyhole/internal/session"
)

// 認証ゲートの拒否理由
const (
	ReasonAnonymous    = "anonymous"
	ReasonStaleSession = "stale_session"
	ReasonStoreError   = "store_error"
)

// signInPath は未認証時のリダイレクト先。
const signInPath = "/signin"

// GateDecision は認証ゲートの判定結果。AllowedかDeniedのいずれか。
type GateDecision interface {
	isGateDecision()
}

// Allowed は後段のハンドラーへ通すことを表す。
type Allowed struct {
	User *model.User
}

// Denied はリダイレクトで拒否することを表す。
type Denied struct {
	Location string
	Reason   string
}

func (Allowed) isGateDecision() {}
func (Denied) isGateDecision()  {}

// GateRecorder は認証ゲートの判定結果を記録する。
type GateRecorder interface {
	RecordGateDecision(decision string)
}

// SessionLoader はリクエストのセッションを読み込む。
type SessionLoader interface {
	Load(r *http.Request) *session.Session
}

// AuthGate は保護されたルートへのアクセス可否を判定する。
type AuthGate struct {
	identity *session.Identity
	recorder GateRecorder
}

// NewAuthGate はAuthGateを生成する。recorderはnilでもよい。
func NewAuthGate(identity *session.Identity, recorder GateRecorder) *AuthGate {
	return &AuthGate{identity: identity, recorder: recorder}
}

// Check はセッションのユーザーをストアで1回だけ解決し、判定結果を返す。
// セッションの内容は変更しない。
func (g *AuthGate) Check(ctx context.Context, values session.Values) GateDecision {
	decision := g.check(ctx, values)
	if g.recorder != nil {
		switch d := decision.(type) {
		case Allowed:
			g.recorder.RecordGateDecision("allowed")
		case Denied:
			g.recorder.RecordGateDecision(d.Reason)
		}
	}
	return decision
}

func (g *AuthGate) check(ctx context.Context, values session.Values) GateDecision {
	userID := session.CurrentUserID(values)
	if userID == 0 {
		return Denied{Location: signInPath, Reason: ReasonAnonymous}
	}

	user, err := g.identity.LookupUser(ctx, values)
	if err != nil {
		slog.Error("failed to resolve session user in auth gate",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
		return Denied{Location: signInPath, Reason: ReasonStoreError}
	}
	if user == nil {
		return Denied{Location: signInPath, Reason: ReasonStaleSession}
	}

	return Allowed{User: user}
}

// NewAuthGateMiddleware はサインイン済みユーザーのみを後段へ通すミドルウェアを返す。
// 未認証リクエストは後段を呼ばずに302で/signinへリダイレクトする。
// 認証済みの場合はユーザーをリクエストコンテキストに注入し、
// 後段のレスポンスをそのまま返す。
func NewAuthGateMiddleware(sessions SessionLoader, gate *AuthGate) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. セッションを読み込み判定
			sess := sessions.Load(r)

			switch d := gate.Check(r.Context(), sess).(type) {
			case Allowed:
				// 2a. ユーザーをコンテキストに注入して後段へ
				annotateUserID(r.Context(), d.User.ID)
				next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), d.User)))
			case Denied:
				// 2b. サインイン画面へリダイレクト
				slog.Debug("auth gate denied request",
					slog.String("path", r.URL.Path),
					slog.String("reason", d.Reason),
				)
				http.Redirect(w, r, d.Location, http.StatusFound)
			}
		})
	}
}
