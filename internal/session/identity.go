package session

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/hitoshi/keyhole/internal/model"
)

// KeyUserID はサインイン中ユーザーのIDを保持するセッションキー。
const KeyUserID = "user_id"

// SignedOutMessage はサインアウト時に表示するフラッシュ文言。
const SignedOutMessage = "You have been signed out"

// UserFinder はIDでユーザーを取得する。見つからない場合はnil, nilを返す。
type UserFinder interface {
	FindByID(ctx context.Context, id int64) (*model.User, error)
}

// CurrentUserID はセッションのユーザーIDを返す。
// 未設定・nil・解釈できない型の場合は0を返す。
func CurrentUserID(values Values) int64 {
	v, ok := values.Get(KeyUserID)
	if !ok || v == nil {
		return 0
	}
	switch id := v.(type) {
	case int64:
		return id
	case int:
		return int64(id)
	case int32:
		return int64(id)
	case float64:
		return int64(id)
	case string:
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// IsSignedIn はセッションにユーザーIDがあるかだけを確認する。
// ストアは参照しないため、画面表示の分岐にのみ使う。
func IsSignedIn(values Values) bool {
	return CurrentUserID(values) != 0
}

// SetAuthenticated はユーザーをサインイン状態にする。
func SetAuthenticated(values Values, userID int64) {
	values.Set(KeyUserID, userID)
}

// ClearAuthenticated はサインイン状態を解除し、サインアウトの案内を残す。
func ClearAuthenticated(values Values) {
	values.Remove(KeyUserID)
	SetMessage(values, PlainText(SignedOutMessage))
}

// Identity はセッションのユーザーIDをユーザーストアで解決する。
type Identity struct {
	users UserFinder
}

// NewIdentity はIdentityを生成する。
func NewIdentity(users UserFinder) *Identity {
	return &Identity{users: users}
}

// LookupUser はセッションのユーザーを1回のストア参照で取得する。
// IDが0またはユーザーが存在しない場合はnil, nilを返す。
func (i *Identity) LookupUser(ctx context.Context, values Values) (*model.User, error) {
	id := CurrentUserID(values)
	if id == 0 {
		return nil, nil
	}
	return i.users.FindByID(ctx, id)
}

// IsAuthenticated はユーザーIDがストアに存在する場合にtrueを返す。
// ストアエラーは未認証として扱う。
func (i *Identity) IsAuthenticated(ctx context.Context, values Values) bool {
	return i.CurrentUser(ctx, values) != nil
}

// CurrentUser はサインイン中のユーザーを返す。取得できない場合はnil。
func (i *Identity) CurrentUser(ctx context.Context, values Values) *model.User {
	user, err := i.LookupUser(ctx, values)
	if err != nil {
		slog.Error("failed to resolve session user",
			slog.Int64("user_id", CurrentUserID(values)),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return user
}
