// Package guard は保護された画面へのアクセス制御（ルートガード）を提供する。
// ガードはネットワーク呼び出しを行わず、Auth Contextの状態のみで判定する。
package guard

import (
	"net/http"

	"github.com/hitoshi/internhub/internal/auth"
)

// Guard はガードの種類。
type Guard int

const (
	// Auth はログイン済みであることを要求する。
	Auth Guard = iota
	// Admin はログイン済みかつ管理者であることを要求する。
	Admin
)

// RedirectTo はガードが拒否したときの遷移先を返す。
func (g Guard) RedirectTo() string {
	if g == Admin {
		return auth.PathAdminLogin
	}
	return auth.PathLogin
}

// Decision はガードの判定結果。
// Replaceは遷移が履歴を置き換える（保護されたURLを履歴に残さない）ことを表す。
type Decision struct {
	Allow      bool   `json:"allow"`
	RedirectTo string `json:"redirectTo,omitempty"`
	Replace    bool   `json:"replace,omitempty"`
}

// Authenticated はセッションがあるかを返す。
func Authenticated(s auth.State) bool {
	return s.LoggedIn()
}

// AuthenticatedAdmin はセッションがあり、かつ管理者かを返す。
func AuthenticatedAdmin(s auth.State) bool {
	return s.LoggedIn() && s.IsAdmin
}

// Evaluate はガードを状態に適用する。
func Evaluate(g Guard, s auth.State) Decision {
	allowed := Authenticated(s)
	if g == Admin {
		allowed = AuthenticatedAdmin(s)
	}
	if allowed {
		return Decision{Allow: true}
	}
	return Decision{RedirectTo: g.RedirectTo(), Replace: true}
}

// RequireAuth はセッションのないリクエストを /login へリダイレクトするミドルウェア。
func RequireAuth(next http.Handler) http.Handler {
	return require(Auth, next)
}

// RequireAdmin はセッションがない、または管理者でないリクエストを /admin へリダイレクトするミドルウェア。
func RequireAdmin(next http.Handler) http.Handler {
	return require(Admin, next)
}

func require(g Guard, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := Evaluate(g, auth.StateFromContext(r.Context()))
		if !d.Allow {
			// 302は保護されたURLを履歴に残さない
			http.Redirect(w, r, d.RedirectTo, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Redirector は拒否時の遷移を行うコールバック。replaceは履歴を置き換えるかを表す。
type Redirector func(path string, replace bool)

// Mount は保護された画面の表示中にガードを維持する。
// 表示開始時と、Auth Contextの状態が変わるたびに同期的に再判定し、
// 拒否されたら直ちにredirectを呼ぶ。戻り値の関数で購読を解除する。
func Mount(c *auth.Context, g Guard, redirect Redirector) (Decision, func()) {
	check := func(s auth.State) Decision {
		d := Evaluate(g, s)
		if !d.Allow && redirect != nil {
			redirect(d.RedirectTo, d.Replace)
		}
		return d
	}

	unsubscribe := c.Subscribe(func(s auth.State) { check(s) })
	return check(c.State()), unsubscribe
}
