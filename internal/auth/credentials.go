package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/keyhole/internal/model"
)

// Outcome は認証情報の検証結果。
type Outcome int

const (
	// OutcomeInvalidEmail はメールアドレスに一致するユーザーがいないことを表す。
	OutcomeInvalidEmail Outcome = iota
	// OutcomeInvalidPasswordHash は保存済みハッシュが解釈できないことを表す。
	OutcomeInvalidPasswordHash
	// OutcomeInvalid はパスワードが一致しないことを表す。
	OutcomeInvalid
	// OutcomeValid は認証情報が正しいことを表す。
	OutcomeValid
)

// String はログとメトリクスのラベルに使う名前を返す。
func (o Outcome) String() string {
	switch o {
	case OutcomeInvalidEmail:
		return "invalid_email"
	case OutcomeInvalidPasswordHash:
		return "invalid_password_hash"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeValid:
		return "valid"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// EmailFinder はメールアドレスでユーザーを取得する。見つからない場合はnil, nilを返す。
type EmailFinder interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

// Validator はメールアドレスとパスワードの組を検証する。
type Validator struct {
	users  EmailFinder
	hasher PasswordHasher
}

// NewValidator はValidatorを生成する。
func NewValidator(users EmailFinder, hasher PasswordHasher) *Validator {
	return &Validator{users: users, hasher: hasher}
}

// Validate は認証情報を検証する。OutcomeValidの場合のみユーザーを返す。
// ストアエラーの場合はOutcomeInvalidEmailとエラーを返す。
func (v *Validator) Validate(ctx context.Context, email, password string) (Outcome, *model.User, error) {
	// 1. メールアドレスでユーザーを取得（完全一致）
	user, err := v.users.FindByEmail(ctx, email)
	if err != nil {
		return OutcomeInvalidEmail, nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if user == nil {
		return OutcomeInvalidEmail, nil, nil
	}

	// 2. 保存済みハッシュを分解
	parsed, err := v.hasher.ParseHash(user.PasswordHash)
	if err != nil {
		// データ不整合の兆候なのでエラーとして記録する
		slog.Error("stored password hash is unreadable",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return OutcomeInvalidPasswordHash, nil, nil
	}

	// 3. パスワードを照合
	if !v.hasher.VerifyParsed(ctx, password, parsed) {
		return OutcomeInvalid, nil, nil
	}

	return OutcomeValid, user, nil
}
