package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	// ErrNotAuthenticated はトークンがないため呼び出しを送信しなかったことを示す。
	ErrNotAuthenticated = errors.New("api: not authenticated")
	// ErrTransport は通信自体が失敗したことを示す（接続不可、タイムアウト、キャンセル）。
	ErrTransport = errors.New("api: transport failure")
)

// Error はバックエンドが2xx以外のステータスを返したことを表す。
type Error struct {
	Op         string // 呼び出し名（例: "list_projects"）
	StatusCode int
	Message    string
}

// Error はerrorインターフェースを実装する。
func (e *Error) Error() string {
	return fmt.Sprintf("api %s: status %d: %s", e.Op, e.StatusCode, e.Message)
}

// StatusCode はエラーが*Errorであればそのステータスコードを返す。
func StatusCode(err error) (int, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode, true
	}
	return 0, false
}

// IsNotFound はバックエンドが404を返したかを返す。
func IsNotFound(err error) bool {
	code, ok := StatusCode(err)
	return ok && code == http.StatusNotFound
}

// errorMessage はレスポンスボディからエラーメッセージを取り出す。
// message → msg → error の順に探し、見つからなければステータステキストを返す。
func errorMessage(body []byte, statusCode int) string {
	if gjson.ValidBytes(body) {
		for _, key := range []string{"message", "msg", "error"} {
			if v := gjson.GetBytes(body, key); v.Type == gjson.String && strings.TrimSpace(v.Str) != "" {
				return v.Str
			}
		}
	}
	if text := http.StatusText(statusCode); text != "" {
		return text
	}
	return fmt.Sprintf("status %d", statusCode)
}
