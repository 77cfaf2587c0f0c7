// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/keyhole/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.User, error)

	// FindByEmail はメールアドレスの完全一致（大文字小文字を区別）でユーザーを取得する。
	// 見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成し、採番されたIDとタイムスタンプをuserに設定する。
	Create(ctx context.Context, user *model.User) error

	// Update はfieldsで指定された項目のみ更新する。updated_atは常に更新される。
	// 該当ユーザーが存在しない場合はErrUserNotFoundを返す。
	Update(ctx context.Context, id int64, fields model.UserUpdate) error

	// DeleteByID は指定IDのユーザーを削除する。
	DeleteByID(ctx context.Context, id int64) error

	// Count は登録済みユーザー数を返す。
	Count(ctx context.Context) (int, error)
}
