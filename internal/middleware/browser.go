// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/internhub/internal/auth"
)

// BrowserCookieName はブラウザプロファイルを識別するCookieの名前。
const BrowserCookieName = "browser_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// browserIDContextKey はリクエストコンテキストにブラウザIDを格納するためのキー。
var browserIDContextKey = contextKey("browser_id")

// ContextProvider はブラウザIDに対応するAuth Contextを払い出す。
// auth.Providerの部分集合として定義する。
type ContextProvider interface {
	Get(ctx context.Context, browserID string) *auth.Context
}

// BrowserCookieConfig はブラウザIDCookieの設定。
type BrowserCookieConfig struct {
	MaxAge       time.Duration
	CookieSecure bool
	CookieDomain string
}

// NewBrowserSessionMiddleware はHTTP Only CookieからブラウザIDを読み取り、
// 対応するAuth Contextをリクエストコンテキストに注入するミドルウェアを返す。
// Cookieが無いか不正な場合は新しいIDを発行する。
func NewBrowserSessionMiddleware(provider ContextProvider, config BrowserCookieConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			browserID := ""
			if cookie, err := r.Cookie(BrowserCookieName); err == nil {
				if _, err := uuid.Parse(cookie.Value); err == nil {
					browserID = cookie.Value
				}
			}
			if browserID == "" {
				browserID = uuid.NewString()
			}

			// 期限を延長するため毎回設定し直す
			http.SetCookie(w, &http.Cookie{
				Name:     BrowserCookieName,
				Value:    browserID,
				Path:     "/",
				Domain:   config.CookieDomain,
				MaxAge:   int(config.MaxAge.Seconds()),
				HttpOnly: true,
				Secure:   config.CookieSecure,
				SameSite: http.SameSiteLaxMode,
			})

			ac := provider.Get(r.Context(), browserID)
			ctx := ContextWithBrowserID(r.Context(), browserID)
			ctx = auth.WithContext(ctx, ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BrowserIDFromContext はリクエストコンテキストからブラウザIDを取得する。
// ブラウザセッションミドルウェアを通過したリクエストでのみ有効。
func BrowserIDFromContext(ctx context.Context) (string, error) {
	browserID, ok := ctx.Value(browserIDContextKey).(string)
	if !ok || browserID == "" {
		return "", fmt.Errorf("browser ID not found in context")
	}
	return browserID, nil
}

// ContextWithBrowserID はコンテキストにブラウザIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithBrowserID(ctx context.Context, browserID string) context.Context {
	return context.WithValue(ctx, browserIDContextKey, browserID)
}
