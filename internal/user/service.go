// Package user はサインイン済みユーザーのプロフィール管理を提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"unicode/utf8"

	"github.com/hitoshi/keyhole/internal/auth"
	"github.com/hitoshi/keyhole/internal/model"
	"github.com/hitoshi/keyhole/internal/repository"
)

// maxFieldLen はnameとemailの最大文字数（usersテーブルのVARCHAR(255)）。
const maxFieldLen = 255

// 入力エラーの文言
const (
	MessageNameRequired     = "Name is required"
	MessageEmailInvalid     = "Email is invalid"
	MessageFieldTooLong     = "Name and email must be at most 255 characters"
	MessagePasswordRequired = "Current and new password are required"
)

// ProfileStore はプロフィールの参照と部分更新を行う。
type ProfileStore interface {
	FindByID(ctx context.Context, id int64) (*model.User, error)
	Update(ctx context.Context, id int64, fields model.UserUpdate) error
}

// CredentialChecker は現在の認証情報を検証する。
type CredentialChecker interface {
	Validate(ctx context.Context, email, password string) (auth.Outcome, *model.User, error)
}

// TextSanitizer は利用者入力のテキストを無害化する。
type TextSanitizer interface {
	SanitizeText(raw string) string
}

// Profile はプロフィール画面とAPIに返す項目。
type Profile struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Service はユーザー管理のサービス層。
// プロフィール更新とパスワード変更のビジネスロジックを提供する。
type Service struct {
	users       ProfileStore
	credentials CredentialChecker
	hasher      auth.PasswordHasher
	sanitizer   TextSanitizer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	users ProfileStore,
	credentials CredentialChecker,
	hasher auth.PasswordHasher,
	sanitizer TextSanitizer,
) *Service {
	return &Service{
		users:       users,
		credentials: credentials,
		hasher:      hasher,
		sanitizer:   sanitizer,
	}
}

// ProfileOf はユーザーのプロフィール項目を返す。
func ProfileOf(u *model.User) Profile {
	return Profile{Name: u.Name, Email: u.Email}
}

// UpdateProfile はサインイン中ユーザーの名前とメールアドレスを更新し、更新後のプロフィールを返す。
func (s *Service) UpdateProfile(ctx context.Context, userID int64, name, email string) (*Profile, error) {
	// 1. 入力の無害化と検証
	name = s.sanitizer.SanitizeText(name)
	email = s.sanitizer.SanitizeText(email)

	if name == "" {
		return nil, model.NewInvalidInputError(MessageNameRequired)
	}
	if utf8.RuneCountInString(name) > maxFieldLen || utf8.RuneCountInString(email) > maxFieldLen {
		return nil, model.NewInvalidInputError(MessageFieldTooLong)
	}
	if !validEmail(email) {
		return nil, model.NewInvalidInputError(MessageEmailInvalid)
	}

	// 2. 更新
	err := s.users.Update(ctx, userID, model.UserUpdate{Name: &name, Email: &email})
	switch {
	case errors.Is(err, repository.ErrEmailTaken):
		return nil, model.NewEmailTakenError()
	case errors.Is(err, repository.ErrUserNotFound):
		return nil, model.NewUserNotFoundError()
	case err != nil:
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	// 3. 更新後の値を読み直す
	updated, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload user: %w", err)
	}
	if updated == nil {
		return nil, model.NewUserNotFoundError()
	}

	slog.Info("profile updated", slog.Int64("user_id", userID))

	profile := ProfileOf(updated)
	return &profile, nil
}

// ChangePassword は現在のパスワードを再検証してから新しいパスワードに変更する。
// 検証にはサインイン中ユーザーのメールアドレスを使う。
func (s *Service) ChangePassword(ctx context.Context, current *model.User, oldPassword, newPassword string) error {
	if current == nil {
		return model.NewUserNotFoundError()
	}
	if oldPassword == "" || newPassword == "" {
		return model.NewInvalidInputError(MessagePasswordRequired)
	}

	// 1. 現在の認証情報を検証
	outcome, verified, err := s.credentials.Validate(ctx, current.Email, oldPassword)
	if err != nil {
		return fmt.Errorf("failed to validate credentials: %w", err)
	}
	if outcome != auth.OutcomeValid || verified.ID != current.ID {
		slog.Info("password change rejected",
			slog.Int64("user_id", current.ID),
			slog.String("outcome", outcome.String()),
		)
		return model.NewInvalidCredentialsError()
	}

	// 2. 新しいハッシュを保存
	encoded, err := s.hasher.Hash(ctx, newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	err = s.users.Update(ctx, current.ID, model.UserUpdate{PasswordHash: &encoded})
	if errors.Is(err, repository.ErrUserNotFound) {
		return model.NewUserNotFoundError()
	}
	if err != nil {
		return fmt.Errorf("failed to store password hash: %w", err)
	}

	slog.Info("password changed", slog.Int64("user_id", current.ID))
	return nil
}

// validEmail は表示名や山括弧を含まない単一のアドレスのみ受け付ける。
func validEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	return addr.Address == email
}
