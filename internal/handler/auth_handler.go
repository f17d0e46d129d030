// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"github.com/hitoshi/internhub/internal/api"
	"github.com/hitoshi/internhub/internal/auth"
	"github.com/hitoshi/internhub/internal/metrics"
	"github.com/hitoshi/internhub/internal/middleware"
	"github.com/hitoshi/internhub/internal/model"
)

// AuthClient は認証ハンドラーが必要とするバックエンド呼び出し。
type AuthClient interface {
	Register(ctx context.Context, req api.RegisterRequest) (string, error)
	Login(ctx context.Context, cred api.Credentials) (api.LoginResult, error)
	AdminLogin(ctx context.Context, cred api.Credentials) (api.AdminLoginResult, error)
}

var _ AuthClient = (*api.Client)(nil)

// AuthHandler はログイン・ログアウト・プロフィール関連のHTTPハンドラー。
type AuthHandler struct {
	client  AuthClient
	metrics metrics.MetricsCollector
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(client AuthClient, mc metrics.MetricsCollector) *AuthHandler {
	if mc == nil {
		mc = metrics.NopCollector{}
	}
	return &AuthHandler{
		client:  client,
		metrics: mc,
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type redirectResponse struct {
	Redirect string `json:"redirect"`
	Message  string `json:"message,omitempty"`
}

type meResponse struct {
	LoggedIn    bool               `json:"loggedIn"`
	IsAdmin     bool               `json:"isAdmin"`
	UserProfile *model.UserProfile `json:"userProfile"`
}

// Register は利用者を登録し、そのままログインする。
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ac, ok := authContext(w, r)
	if !ok {
		return
	}

	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Password == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("name, email and password are required"))
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("email is not a valid address"))
		return
	}

	msg, err := h.client.Register(r.Context(), api.RegisterRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.writeLoginError(w, r, err)
		return
	}

	res, err := h.client.Login(r.Context(), api.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		h.metrics.RecordLogin("user", false)
		h.writeLoginError(w, r, err)
		return
	}
	h.metrics.RecordLogin("user", true)

	name := res.Name
	if name == "" {
		name = req.Name
	}
	redirect := h.login(r, ac, auth.LoginOptions{Token: res.Token, Name: name, Email: req.Email})
	middleware.WriteJSON(w, http.StatusCreated, redirectResponse{Redirect: redirect, Message: msg})
}

// Login は利用者としてログインする。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ac, ok := authContext(w, r)
	if !ok {
		return
	}

	cred, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	res, err := h.client.Login(r.Context(), cred)
	if err != nil {
		h.metrics.RecordLogin("user", false)
		h.writeLoginError(w, r, err)
		return
	}
	h.metrics.RecordLogin("user", true)

	email := res.Email
	if email == "" {
		email = cred.Email
	}
	redirect := h.login(r, ac, auth.LoginOptions{Token: res.Token, Name: res.Name, Email: email})
	middleware.WriteJSON(w, http.StatusOK, redirectResponse{Redirect: redirect})
}

// AdminLogin は管理者としてログインする。
// POST /auth/admin-login
func (h *AuthHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	ac, ok := authContext(w, r)
	if !ok {
		return
	}

	cred, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	res, err := h.client.AdminLogin(r.Context(), cred)
	if err != nil {
		h.metrics.RecordLogin("admin", false)
		h.writeLoginError(w, r, err)
		return
	}
	if !res.IsAdmin {
		h.metrics.RecordLogin("admin", false)
		middleware.WriteErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
		return
	}
	h.metrics.RecordLogin("admin", true)

	redirect := h.login(r, ac, auth.LoginOptions{Token: res.Token, Email: cred.Email, AdminStatus: true})
	middleware.WriteJSON(w, http.StatusOK, redirectResponse{Redirect: redirect})
}

// Logout はセッションを破棄する。セッションがなくても成功する。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ac, ok := authContext(w, r)
	if !ok {
		return
	}

	redirect := auth.PathLogin
	if err := ac.Logout(r.Context(), func(p string) { redirect = p }); err != nil {
		slog.ErrorContext(r.Context(), "ログアウト時のセッション削除に失敗しました",
			slog.String("browser_id", ac.BrowserID()),
			slog.String("error", err.Error()),
		)
	}
	middleware.WriteJSON(w, http.StatusOK, redirectResponse{Redirect: redirect})
}

// Me は現在の認証状態を返す。トークンは返さない。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	state := auth.StateFromContext(r.Context())
	middleware.WriteJSON(w, http.StatusOK, meResponse{
		LoggedIn:    state.LoggedIn(),
		IsAdmin:     state.IsAdmin,
		UserProfile: state.UserProfile,
	})
}

// GetProfile はプロフィールを返す。
// GET /profile
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	state := auth.StateFromContext(r.Context())
	profile := state.UserProfile
	if profile == nil {
		profile = &model.UserProfile{}
	}
	middleware.WriteJSON(w, http.StatusOK, profile)
}

// UpdateProfile はプロフィールを部分更新する。
// PUT /profile
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ac, ok := authContext(w, r)
	if !ok {
		return
	}

	var patch model.ProfilePatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	if patch.Email != nil {
		if _, err := mail.ParseAddress(strings.TrimSpace(*patch.Email)); err != nil {
			middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("email is not a valid address"))
			return
		}
	}

	profile, err := ac.UpdateProfile(r.Context(), patch)
	if err != nil {
		// メモリ上のプロフィールは更新済みのため、保存失敗はログに残して結果を返す
		slog.ErrorContext(r.Context(), "プロフィールの保存に失敗しました",
			slog.String("browser_id", ac.BrowserID()),
			slog.String("error", err.Error()),
		)
	}
	middleware.WriteJSON(w, http.StatusOK, profile)
}

// login はAuth Contextにログインし、遷移先のパスを返す。
// 保存に失敗しても遷移先は決まるため、ログに残して続行する。
func (h *AuthHandler) login(r *http.Request, ac *auth.Context, opts auth.LoginOptions) string {
	redirect := auth.PathDashboard
	if err := ac.Login(r.Context(), opts, func(p string) { redirect = p }); err != nil {
		slog.ErrorContext(r.Context(), "ログイン状態の保存に失敗しました",
			slog.String("browser_id", ac.BrowserID()),
			slog.String("error", err.Error()),
		)
	}
	return redirect
}

// writeLoginError はログイン・登録の失敗を書き込む。
// バックエンドの4xxは入力の誤りとしてメッセージをそのまま返す。
func (h *AuthHandler) writeLoginError(w http.ResponseWriter, r *http.Request, err error) {
	var upstream *api.Error
	if errors.As(err, &upstream) && upstream.StatusCode >= 400 && upstream.StatusCode < 500 {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewInvalidCredentialsError(upstream.Message))
		return
	}
	handleUpstreamError(w, r, err)
}

func decodeCredentials(w http.ResponseWriter, r *http.Request) (api.Credentials, bool) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return api.Credentials{}, false
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("email and password are required"))
		return api.Credentials{}, false
	}
	return api.Credentials{Email: req.Email, Password: req.Password}, true
}

// authContext はブラウザセッションミドルウェアが注入したAuth Contextを取り出す。
func authContext(w http.ResponseWriter, r *http.Request) (*auth.Context, bool) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		slog.ErrorContext(r.Context(), "auth context is missing from request")
		middleware.WriteInternalServerError(w)
		return nil, false
	}
	return ac, true
}
