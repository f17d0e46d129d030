// Package auth はブラウザプロファイルごとの認証状態（Auth Context）を提供する。
//
// Contextはセッションストアから一度だけ状態を復元し、login / logout /
// updateProfile で状態を変更する。変更のたびに購読者へ同期的に通知する。
// ContextはProviderがブラウザIDごとに払い出し、グローバルには保持しない。
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/hitoshi/internhub/internal/model"
	"github.com/hitoshi/internhub/internal/session"
)

// 遷移先パス
const (
	PathLogin          = "/login"
	PathAdminLogin     = "/admin"
	PathDashboard      = "/dashboard"
	PathAdminDashboard = "/admin-dashboard"
)

// Navigator は画面遷移を行うコールバック。nilの場合は遷移しない。
type Navigator func(path string)

// User はログイン中の利用者。トークンのみを保持する。
type User struct {
	Token string `json:"token"`
}

// State はAuth Contextの状態のスナップショット。
type State struct {
	User        *User              `json:"user"`
	IsAdmin     bool               `json:"isAdmin"`
	UserProfile *model.UserProfile `json:"userProfile"`
}

// LoggedIn はセッションがあるかを返す。
func (s State) LoggedIn() bool {
	return s.User != nil && s.User.Token != ""
}

// LoginOptions はlogin呼び出しの構造化された引数。
type LoginOptions struct {
	Token       string
	Name        string
	Email       string
	AdminStatus bool
}

// SessionStore はContextが使用するセッション永続化のインターフェース。
// session.Storeの部分集合として定義する。
type SessionStore interface {
	Save(ctx context.Context, browserID, token string, isAdmin bool, profile *model.UserProfile) error
	SaveProfile(ctx context.Context, browserID string, profile *model.UserProfile) error
	Load(ctx context.Context, browserID string) session.Record
	Clear(ctx context.Context, browserID string) error
}

// Context は1つのブラウザプロファイルの認証状態。
type Context struct {
	browserID   string
	store       SessionStore
	emailDomain string

	// writeMu はストアへの書き込みと状態の更新を1つの操作として直列化する。
	// 通知は解放後に行う。
	writeMu sync.Mutex

	mu          sync.Mutex
	state       State
	initialized bool
	listeners   map[int]func(State)
	nextID      int
}

// NewContext はContextを生成する。状態はInitで復元する。
func NewContext(browserID string, store SessionStore, emailDomain string) *Context {
	return &Context{
		browserID:   browserID,
		store:       store,
		emailDomain: emailDomain,
		listeners:   make(map[int]func(State)),
	}
}

// BrowserID は対象のブラウザIDを返す。
func (c *Context) BrowserID() string {
	return c.browserID
}

// State は現在の状態を返す。
func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Init はセッションストアから状態を一度だけ復元する。2回目以降は何もしない。
// 保存されたトークンがない場合は空の状態になる。失敗しない。
// ストレージの読み出しに失敗した場合は空の状態のまま未初期化とし、次回のInitで再度復元する。
func (c *Context) Init(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initialized {
		return
	}

	rec := c.store.Load(ctx, c.browserID)
	if rec.Degraded {
		c.state = State{}
		return
	}
	c.initialized = true
	if rec.Empty() {
		c.state = State{}
		return
	}
	c.state = State{
		User:        &User{Token: rec.Session.Token},
		IsAdmin:     rec.Session.IsAdmin,
		UserProfile: rec.Profile,
	}
}

// Login はセッションを保存し、状態を更新して購読者に通知したあと、
// 管理者なら /admin-dashboard、それ以外は /dashboard へ遷移する。
// 既存のセッションは無条件に上書きする。
// 保存に失敗した場合もメモリ上の状態は更新し、エラーを返す。
func (c *Context) Login(ctx context.Context, opts LoginOptions, navigate Navigator) error {
	profile := DeriveProfile(opts.Name, opts.Email, c.emailDomain)

	c.writeMu.Lock()
	saveErr := c.store.Save(ctx, c.browserID, opts.Token, opts.AdminStatus, &profile)
	if saveErr != nil {
		slog.Error("failed to persist session on login",
			slog.String("browser_id", c.browserID),
			slog.String("error", saveErr.Error()),
		)
	}

	snapshot, listeners := c.replace(State{
		User:        &User{Token: opts.Token},
		IsAdmin:     opts.AdminStatus,
		UserProfile: &profile,
	})
	c.writeMu.Unlock()
	notify(listeners, snapshot)

	if navigate != nil {
		if opts.AdminStatus {
			navigate(PathAdminDashboard)
		} else {
			navigate(PathDashboard)
		}
	}

	if saveErr != nil {
		return fmt.Errorf("login: %w", saveErr)
	}
	return nil
}

// LoginPositional は位置引数形式のlogin呼び出しをLoginに変換する。
func (c *Context) LoginPositional(ctx context.Context, token string, navigate Navigator, adminStatus bool, name, email string) error {
	return c.Login(ctx, LoginOptions{
		Token:       token,
		Name:        name,
		Email:       email,
		AdminStatus: adminStatus,
	}, navigate)
}

// Logout はセッションを削除し、状態を空にして通知したあと /login へ遷移する。
// セッションがない状態で呼んでも安全。
func (c *Context) Logout(ctx context.Context, navigate Navigator) error {
	err := c.clear(ctx)
	if navigate != nil {
		navigate(PathLogin)
	}
	return err
}

// UpdateProfile はプロフィールにpatchを浅くマージし、保存して通知する。
// 再認証は不要で、同じpatchを繰り返し適用しても結果は変わらない。
// 同時に呼ばれた場合は順に適用され、どちらの変更も失われない。
func (c *Context) UpdateProfile(ctx context.Context, patch model.ProfilePatch) (*model.UserProfile, error) {
	c.writeMu.Lock()
	c.mu.Lock()
	merged := MergeProfile(c.state.UserProfile, patch)
	c.mu.Unlock()

	saveErr := c.store.SaveProfile(ctx, c.browserID, merged)

	c.mu.Lock()
	c.state.UserProfile = merged
	snapshot, listeners := c.snapshotLocked(), c.listenersLocked()
	c.mu.Unlock()
	c.writeMu.Unlock()
	notify(listeners, snapshot)

	p := *merged
	if saveErr != nil {
		return &p, fmt.Errorf("update profile: %w", saveErr)
	}
	return &p, nil
}

// Teardown はContextの寿命を終える。セッションを削除して通知し、購読者をすべて解除する。
// 遷移は行わない。
func (c *Context) Teardown(ctx context.Context) error {
	err := c.clear(ctx)
	c.release()
	return err
}

// Subscribe は状態変更の購読者を登録し、解除関数を返す。
// 購読者は状態が変わるたびに、変更を行ったgoroutine上で同期的に呼ばれる。
func (c *Context) Subscribe(fn func(State)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.listeners, id)
		})
	}
}

func (c *Context) clear(ctx context.Context) error {
	c.writeMu.Lock()
	err := c.store.Clear(ctx, c.browserID)
	if err != nil {
		slog.Error("failed to clear session",
			slog.String("browser_id", c.browserID),
			slog.String("error", err.Error()),
		)
	}
	snapshot, listeners := c.replace(State{})
	c.writeMu.Unlock()
	notify(listeners, snapshot)
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// release は購読者をすべて解除する。
func (c *Context) release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = make(map[int]func(State))
}

// replace は状態を置き換え、通知すべきスナップショットと購読者を返す。
func (c *Context) replace(s State) (State, []func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
	c.initialized = true
	return c.snapshotLocked(), c.listenersLocked()
}

func (c *Context) snapshotLocked() State {
	s := State{IsAdmin: c.state.IsAdmin}
	if c.state.User != nil {
		u := *c.state.User
		s.User = &u
	}
	if c.state.UserProfile != nil {
		p := *c.state.UserProfile
		s.UserProfile = &p
	}
	return s
}

func (c *Context) listenersLocked() []func(State) {
	ids := make([]int, 0, len(c.listeners))
	for id := range c.listeners {
		ids = append(ids, id)
	}
	// 登録順に呼ぶ
	slices.Sort(ids)
	out := make([]func(State), 0, len(ids))
	for _, id := range ids {
		out = append(out, c.listeners[id])
	}
	return out
}

func notify(listeners []func(State), s State) {
	for _, fn := range listeners {
		fn(s)
	}
}
