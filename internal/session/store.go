// Package session は署名付きCookieセッション、フラッシュメッセージ、
// サインイン状態の読み書きを提供する。
package session

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
)

// Values はリクエスト単位のセッションのキー・値ストア。
// 実装はリクエストスコープで使われ、ゴルーチン間で共有しない。
type Values interface {
	// Get はkeyの値を返す。存在しない場合はfalseを返す。
	Get(key string) (any, bool)
	// Set はkeyに値を書き込む。
	Set(key string, value any)
	// Remove はkeyを削除する。存在しない場合は何もしない。
	Remove(key string)
}

// Options はセッションCookieの属性。
type Options struct {
	Name   string // Cookie名
	MaxAge int    // 有効期間（秒）
	Secure bool   // HTTPS限定
	Domain string // 空の場合はホスト限定
}

// Store はgorilla/sessionsのCookieStoreをラップしたセッションストア。
// セッション内容はHMAC署名され、blockKeyを指定した場合はAESで暗号化される。
type Store struct {
	cookies *sessions.CookieStore
	name    string
}

// NewStore はStoreを生成する。blockKeyがnilの場合は署名のみ行う。
func NewStore(hashKey, blockKey []byte, opts Options) *Store {
	var keyPairs [][]byte
	if len(blockKey) > 0 {
		keyPairs = [][]byte{hashKey, blockKey}
	} else {
		keyPairs = [][]byte{hashKey}
	}

	cookies := sessions.NewCookieStore(keyPairs...)
	cookies.Options = &sessions.Options{
		Path:     "/",
		Domain:   opts.Domain,
		MaxAge:   opts.MaxAge,
		Secure:   opts.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	// securecookie側の有効期限もCookieのMaxAgeに揃える
	cookies.MaxAge(opts.MaxAge)

	return &Store{cookies: cookies, name: opts.Name}
}

// Name はセッションCookie名を返す。
func (s *Store) Name() string {
	return s.name
}

// Load はリクエストのセッションを読み込む。
// 同一リクエスト内で複数回呼んでも同じセッションが返る。
// Cookieの署名検証や復号に失敗した場合は匿名の新規セッションとして扱う。
func (s *Store) Load(r *http.Request) *Session {
	raw, err := s.cookies.Get(r, s.name)
	if err != nil {
		slog.Warn("discarding unreadable session cookie",
			slog.String("path", r.URL.Path),
			slog.String("reason", decodeFailureReason(err)),
			slog.String("error", err.Error()),
		)
	}
	return &Session{raw: raw, r: r}
}

// decodeFailureReason はCookie復元エラーの種類をログ用の短い名前にする。
// 署名不一致や期限切れはdecode、鍵設定やgobの問題はinternalになる。
func decodeFailureReason(err error) string {
	var cookieErr securecookie.Error
	if errors.As(err, &cookieErr) {
		switch {
		case cookieErr.IsDecode():
			return "decode"
		case cookieErr.IsInternal():
			return "internal"
		}
	}
	return "unknown"
}

// Session はリクエストに紐づくセッション。Valuesを実装する。
type Session struct {
	raw *sessions.Session
	r   *http.Request
}

// Get はkeyの値を返す。
func (s *Session) Get(key string) (any, bool) {
	v, ok := s.raw.Values[key]
	return v, ok
}

// Set はkeyに値を書き込む。
func (s *Session) Set(key string, value any) {
	s.raw.Values[key] = value
}

// Remove はkeyを削除する。
func (s *Session) Remove(key string) {
	delete(s.raw.Values, key)
}

// IsNew はCookieから復元されず新規作成されたセッションの場合にtrueを返す。
func (s *Session) IsNew() bool {
	return s.raw.IsNew
}

// Save はセッションをCookieとしてレスポンスに書き込む。
// レスポンスヘッダ送出前に呼ぶ必要がある。
func (s *Session) Save(w http.ResponseWriter) error {
	return s.raw.Save(s.r, w)
}

// compile-time interface check
var _ Values = (*Session)(nil)
