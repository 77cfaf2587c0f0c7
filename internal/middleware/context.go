// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"

	"github.com/hitoshi/keyhole/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	// userContextKey は認証ゲートが解決したユーザーを格納するキー。
	userContextKey = contextKey("user")
	// requestInfoContextKey はリクエストログ用の情報を格納するキー。
	requestInfoContextKey = contextKey("request_info")
	// csrfTokenContextKey はCSRFトークンを格納するキー。
	csrfTokenContextKey = contextKey("csrf_token")
)

// UserFromContext は認証ゲートを通過したリクエストのユーザーを返す。
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userContextKey).(*model.User)
	return user, ok && user != nil
}

// ContextWithUser はコンテキストにユーザーを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// requestInfo はロギングミドルウェアが後段から受け取る情報。
// 後段で解決されたユーザーIDを外側のログに載せるためにポインタで共有する。
type requestInfo struct {
	requestID string
	userID    int64
}

func requestInfoFromContext(ctx context.Context) *requestInfo {
	info, _ := ctx.Value(requestInfoContextKey).(*requestInfo)
	return info
}

// RequestIDFromContext はロギングミドルウェアが採番したリクエストIDを返す。
func RequestIDFromContext(ctx context.Context) string {
	if info := requestInfoFromContext(ctx); info != nil {
		return info.requestID
	}
	return ""
}

// annotateUserID はリクエストログにユーザーIDを記録する。
func annotateUserID(ctx context.Context, userID int64) {
	if info := requestInfoFromContext(ctx); info != nil {
		info.userID = userID
	}
}
