package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/keyhole/internal/model"
	"github.com/hitoshi/keyhole/internal/session"
)

// リダイレクト先
const (
	RouteHome   = "/"
	RouteSignIn = "/signin"
	RouteAdmin  = "/admin"
)

// フラッシュ文言
const (
	MessageMissingFields      = "Email and password are required"
	MessageInvalidCredentials = "Invalid credentials"
)

// SignInRecorder はサインイン結果を記録する。
type SignInRecorder interface {
	RecordSignIn(result string)
}

// UserUpdater はユーザーの部分更新を行う。
type UserUpdater interface {
	Update(ctx context.Context, id int64, fields model.UserUpdate) error
}

// SignInPage はサインイン画面の表示内容。
// RedirectToが空でない場合は画面を描画せずにリダイレクトする。
type SignInPage struct {
	RedirectTo string
	Message    session.Flash
}

// Service はサインイン・サインアウトのフローを提供する。
type Service struct {
	validator *Validator
	hasher    PasswordHasher
	identity  *session.Identity
	users     UserUpdater
	recorder  SignInRecorder
}

// NewService はServiceを生成する。recorderはnilでもよい。
func NewService(
	validator *Validator,
	hasher PasswordHasher,
	identity *session.Identity,
	users UserUpdater,
	recorder SignInRecorder,
) *Service {
	return &Service{
		validator: validator,
		hasher:    hasher,
		identity:  identity,
		users:     users,
		recorder:  recorder,
	}
}

// SignIn はフォームの認証情報を検証し、リダイレクト先を返す。
// 入力不備・認証失敗はフラッシュメッセージを残してサインイン画面へ戻す。
// ストアエラーの場合はエラーを返す。
func (s *Service) SignIn(ctx context.Context, values session.Values, email, password string) (string, error) {
	// 1. 必須項目の確認
	if email == "" || password == "" {
		session.SetMessage(values, session.Structured{Error: MessageMissingFields})
		s.record("missing_fields")
		return RouteSignIn, nil
	}

	// 2. 認証情報の検証
	outcome, user, err := s.validator.Validate(ctx, email, password)
	if err != nil {
		s.record("error")
		return "", fmt.Errorf("failed to validate credentials: %w", err)
	}
	s.record(outcome.String())

	if outcome != OutcomeValid {
		// どの項目が誤っているかは利用者に区別させない
		session.SetMessage(values, session.Structured{Error: MessageInvalidCredentials})
		slog.Info("sign in rejected", slog.String("outcome", outcome.String()))
		return RouteSignIn, nil
	}

	// 3. セッションにサインイン状態を記録
	session.SetAuthenticated(values, user.ID)
	slog.Info("user signed in", slog.Int64("user_id", user.ID))

	// 4. パラメータが古いハッシュは作り直す
	s.rehashIfNeeded(ctx, user, password)

	return RouteAdmin, nil
}

// SignOut はサインイン状態を解除し、リダイレクト先を返す。
func (s *Service) SignOut(values session.Values) string {
	if id := session.CurrentUserID(values); id != 0 {
		slog.Info("user signed out", slog.Int64("user_id", id))
	}
	session.ClearAuthenticated(values)
	return RouteHome
}

// SignInPage はサインイン画面の表示内容を決める。
// サインイン済みの場合は管理画面へリダイレクトし、フラッシュは消費しない。
func (s *Service) SignInPage(ctx context.Context, values session.Values) SignInPage {
	// 存在しないユーザーIDでリダイレクトループにならないようストアで確認する
	if s.identity.IsAuthenticated(ctx, values) {
		return SignInPage{RedirectTo: RouteAdmin}
	}
	return SignInPage{Message: session.ReadStructured(values)}
}

func (s *Service) rehashIfNeeded(ctx context.Context, user *model.User, password string) {
	if s.users == nil || !s.hasher.NeedsRehash(user.PasswordHash) {
		return
	}

	encoded, err := s.hasher.Hash(ctx, password)
	if err != nil {
		slog.Warn("failed to rehash password",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := s.users.Update(ctx, user.ID, model.UserUpdate{PasswordHash: &encoded}); err != nil {
		slog.Warn("failed to store rehashed password",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	slog.Info("password hash upgraded", slog.Int64("user_id", user.ID))
}

func (s *Service) record(result string) {
	if s.recorder != nil {
		s.recorder.RecordSignIn(result)
	}
}
