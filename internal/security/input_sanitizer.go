// Package security はアプリケーションのセキュリティ機能を提供する。
//
// InputSanitizer はプロフィール入力などの利用者が送るテキストから
// HTMLタグを除去し、制御文字を取り除いたプレーンテキストにする。
// bluemondayのStrictPolicyで全タグを除去し、エンティティは元の文字に戻して保存する。
// 表示時のエスケープはテンプレート側で行う。
package security

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

// InputSanitizer はテキスト入力のサニタイズ機能のインターフェースを定義する。
type InputSanitizer interface {
	// SanitizeText はHTMLタグと制御文字を除去し、前後の空白を取り除いた文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeText(raw string) string
}

// inputSanitizer はInputSanitizerの実装。
// bluemondayのポリシーはスレッドセーフなので共有してよい。
type inputSanitizer struct {
	policy *bluemonday.Policy
}

// NewInputSanitizer はInputSanitizerの新しいインスタンスを生成する。
func NewInputSanitizer() *inputSanitizer {
	return &inputSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// SanitizeText はテキスト入力をサニタイズする。
func (s *inputSanitizer) SanitizeText(raw string) string {
	stripped := s.policy.Sanitize(raw)
	// StrictPolicyは & などをエスケープするため、保存用に戻す
	text := html.UnescapeString(stripped)

	text = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, text)

	return strings.TrimSpace(text)
}

// compile-time interface check
var _ InputSanitizer = (*inputSanitizer)(nil)
