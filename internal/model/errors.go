// Package model はドメインモデルを定義する。
package model

import "fmt"

// AppError はユーザーに返してよいエラー情報を表す。
// 内部の詳細はログにのみ記録し、Messageには一般的な文言だけを入れる。
type AppError struct {
	Code    string // エラーコード
	Message string // ユーザー向けメッセージ
}

// Error はerrorインターフェースを実装する。
func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeInvalidInput       = "INVALID_INPUT"
	ErrCodeEmailTaken         = "EMAIL_TAKEN"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// NewInvalidCredentialsError は認証情報不一致エラーを生成する。
// どの項目が誤っているかは利用者に明かさない。
func NewInvalidCredentialsError() *AppError {
	return &AppError{
		Code:    ErrCodeInvalidCredentials,
		Message: "Invalid credentials",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *AppError {
	return &AppError{
		Code:    ErrCodeUserNotFound,
		Message: "User not found",
	}
}

// NewInvalidInputError は入力値が不正な場合のエラーを生成する。
func NewInvalidInputError(reason string) *AppError {
	return &AppError{
		Code:    ErrCodeInvalidInput,
		Message: reason,
	}
}

// NewEmailTakenError はメールアドレスが既に使われている場合のエラーを生成する。
func NewEmailTakenError() *AppError {
	return &AppError{
		Code:    ErrCodeEmailTaken,
		Message: "Email is already in use",
	}
}

// NewInternalError は内部エラーを生成する。
func NewInternalError() *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: "Failed to update user",
	}
}
