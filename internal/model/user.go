// Package model はドメインモデルを定義する。
package model

import "time"

// User はアプリケーションにサインインできるユーザーを表す。
// PasswordHashにはアルゴリズム・パラメータ・ソルト・ダイジェストを含む
// PHC形式の文字列が入り、平文パスワードは保持しない。
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserUpdate はユーザーの部分更新に使うフィールド集合。
// nilのフィールドは変更しない。
type UserUpdate struct {
	Name         *string
	Email        *string
	PasswordHash *string
}

// IsEmpty は更新対象のフィールドが1つもない場合にtrueを返す。
func (u UserUpdate) IsEmpty() bool {
	return u.Name == nil && u.Email == nil && u.PasswordHash == nil
}
