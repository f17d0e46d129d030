package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/internhub/internal/guard"
	"github.com/hitoshi/internhub/internal/metrics"
	"github.com/hitoshi/internhub/internal/middleware"
)

// HealthChecker はセッションストアの疎通確認を行う。nilの場合は常に正常とみなす。
type HealthChecker func(ctx context.Context) error

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Provider          middleware.ContextProvider
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CookieConfig      middleware.BrowserCookieConfig
	CSRFConfig        middleware.CSRFConfig
	Logger            *slog.Logger

	// ヘルスチェック・メトリクス
	HealthChecker HealthChecker
	Gatherer      prometheus.Gatherer
	Metrics       metrics.MetricsCollector

	// 画面処理
	AuthClient AuthClient
	Portal     PortalService
	Admin      AdminService
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → BrowserSession → Logging → RateLimit(General) → CSRF
//
// 保護されたルートはさらにRequireAuthまたはRequireAdminで包む。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware(middleware.SecurityHeadersConfig{HSTS: deps.CookieConfig.CookieSecure}))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	// ヘルスチェックとメトリクスはブラウザセッションを必要としない
	r.Get("/health", healthHandler(deps.HealthChecker))
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	authHandler := NewAuthHandler(deps.AuthClient, deps.Metrics)
	portalHandler := NewPortalHandler(deps.Portal)
	adminHandler := NewAdminHandler(deps.Admin)

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewBrowserSessionMiddleware(deps.Provider, deps.CookieConfig))
		r.Use(middleware.NewLoggingMiddleware(logger))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		// --- 認証不要のルート ---
		r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(deps.RateLimiter.LoginMiddleware())
				r.Post("/register", authHandler.Register)
				r.Post("/login", authHandler.Login)
				r.Post("/admin-login", authHandler.AdminLogin)
			})
			r.Post("/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)
		})

		r.Get("/internship/{id}", portalHandler.InternshipDetail)

		// --- ログインが必要なルート ---
		r.Group(func(r chi.Router) {
			r.Use(guard.RequireAuth)

			r.Get("/dashboard", portalHandler.Dashboard)
			r.Get("/profile", authHandler.GetProfile)
			r.Put("/profile", authHandler.UpdateProfile)
			r.Get("/project/{id}", portalHandler.ProjectDetail)
			r.Post("/internship/{id}/apply", portalHandler.ApplyInternship)
			r.Post("/project/{id}/apply", portalHandler.ApplyProject)
			r.Put("/{kind}/applications/{applicationID}/submission", portalHandler.SaveSubmission)
		})

		// --- 管理者ルート ---
		r.Route("/admin-dashboard", func(r chi.Router) {
			r.Use(guard.RequireAdmin)

			r.Get("/", adminHandler.Dashboard)

			r.Route("/applications/{kind}/{applicationID}", func(r chi.Router) {
				r.Post("/approve", adminHandler.Approve)
				r.Post("/reject", adminHandler.Reject)
			})

			r.Route("/projects", func(r chi.Router) {
				r.Post("/", adminHandler.CreateProject)
				r.Put("/{id}", adminHandler.UpdateProject)
				r.Delete("/{id}", adminHandler.DeleteProject)
			})

			r.Route("/internships", func(r chi.Router) {
				r.Post("/", adminHandler.CreateInternship)
				r.Put("/{id}", adminHandler.UpdateInternship)
				r.Delete("/{id}", adminHandler.DeleteInternship)
			})
		})
	})

	return r
}

// healthHandler はGET /healthのハンドラーを返す。
func healthHandler(check HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				slog.ErrorContext(r.Context(), "ヘルスチェックに失敗しました", slog.String("error", err.Error()))
				middleware.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
