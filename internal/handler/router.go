package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/keyhole/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// ミドルウェア依存
	Sessions    SessionLoader
	AuthGate    *middleware.AuthGate
	RateLimiter *middleware.RateLimiter
	CSRF        middleware.CSRFConfig

	// 画面
	Renderer  PageRenderer
	PublicDir string

	// サービス
	AuthService    AuthServiceInterface
	ProfileService ProfileServiceInterface

	// 運用
	HealthChecker  HealthChecker
	MetricsHandler http.Handler
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → RealIP → Logging → SecurityHeaders → CSRF
//
// /admin 配下はさらに AuthGate を通す。POST /signin は RateLimit を通す。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(chimw.RealIP)
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())

	authHandler := NewAuthHandler(deps.AuthService, deps.Sessions, deps.Renderer)
	homeHandler := NewHomeHandler(deps.Sessions, deps.Renderer)
	adminHandler := NewAdminHandler(deps.ProfileService, deps.Renderer)

	// --- CSRF対象外のルート ---

	// 静的ファイル
	if deps.PublicDir != "" {
		r.Handle("/public/*", http.StripPrefix("/public/", http.FileServer(http.Dir(deps.PublicDir))))
	}

	if deps.HealthChecker != nil {
		r.Get("/health", NewHealthHandler(deps.HealthChecker))
	}
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// --- 画面とフォーム ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCSRFMiddleware(deps.CSRF))

		r.Get("/", homeHandler.Home)
		r.Method(http.MethodGet, "/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRF))

		r.Get("/signin", authHandler.SignInForm)
		if deps.RateLimiter != nil {
			r.With(deps.RateLimiter.SignInMiddleware()).Post("/signin", authHandler.SignIn)
		} else {
			r.Post("/signin", authHandler.SignIn)
		}
		r.Get("/signout", authHandler.SignOut)
		r.Post("/signout", authHandler.SignOut)

		// --- 認証が必要なルート ---
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.NewAuthGateMiddleware(deps.Sessions, deps.AuthGate))

			r.Get("/", adminHandler.Dashboard)
			r.Get("/settings", adminHandler.Settings)
			r.Get("/profile", adminHandler.Profile)
			r.Post("/profile", adminHandler.UpdateProfile)
			r.Post("/profile-password", adminHandler.ChangePassword)
		})
	})

	return r
}
