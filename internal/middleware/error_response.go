package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/hitoshi/keyhole/internal/model"
)

// ErrorsResponseBody はJSONエンドポイントのエラーレスポンス。
// {"errors": {"server_error": "..."}} の形式で返す。
type ErrorsResponseBody struct {
	Errors map[string]string `json:"errors"`
}

// WriteJSONErrors はフィールド名とメッセージの組をJSONエラーレスポンスとして書き込む。
func WriteJSONErrors(w http.ResponseWriter, statusCode int, errs map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorsResponseBody{Errors: errs})
}

// WriteAppError はAppErrorをserver_errorとしてJSONで書き込む。
func WriteAppError(w http.ResponseWriter, statusCode int, appErr *model.AppError) {
	WriteJSONErrors(w, statusCode, map[string]string{"server_error": appErr.Message})
}

// WriteInternalServerError は内部サーバーエラーのレスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
// JSONを要求するリクエストにはJSON、それ以外にはテキストで返す。
func WriteInternalServerError(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		WriteJSONErrors(w, http.StatusInternalServerError, map[string]string{
			"server_error": "Internal server error",
		})
		return
	}
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

// wantsJSON はAcceptヘッダーまたはContent-TypeがJSONを示す場合にtrueを返す。
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}
