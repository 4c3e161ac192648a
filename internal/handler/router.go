package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/bytechat/internal/metrics"
	"github.com/hitoshi/bytechat/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionVerifier   middleware.SessionVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	Logger            *slog.Logger

	// 可観測性
	HealthChecker   HealthChecker
	Metrics         metrics.MetricsCollector
	MetricsGatherer prometheus.Gatherer

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 投稿
	PostService PostServiceInterface
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → SecurityHeaders → Recovery → Logging → Metrics
//	/api 配下はさらに (Session →) RateLimit(General) → CSRF
//
// 書き込み系エンドポイント（signup/login/投稿作成/投稿削除）には
// 厳しめの書き込みレート制限を追加する。
// 保護ページ（/home*, /profile*）はルートガードで302リダイレクトする。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// CORS ミドルウェアを最上位に適用（全ルートに効く）
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.Metrics != nil {
		r.Use(metrics.NewHTTPMiddleware(deps.Metrics))
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig, deps.Metrics)
	postHandler := NewPostHandler(deps.PostService, deps.Metrics)
	pageHandler := NewPageHandler()

	// --- 可観測性 ---

	if deps.HealthChecker != nil {
		r.Get("/health", NewHealthHandler(deps.HealthChecker))
	}
	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	// --- 認証不要のAPIルート ---
	// ミドルウェアスタック: RateLimit(General) → CSRF

	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		// ユーザー登録・ログインは書き込みレート制限も適用
		r.With(deps.RateLimiter.WriteMiddleware()).Post("/api/signup", authHandler.Signup)
		r.With(deps.RateLimiter.WriteMiddleware()).Post("/api/login", authHandler.Login)
		r.Post("/api/logout", authHandler.Logout)
		r.Get("/api/me", authHandler.Me)
		r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))
	})

	// --- 認証が必要なAPIルート ---
	// ミドルウェアスタック: Session → RateLimit(General) → CSRF
	// セッション検証を通過するまでハンドラーはストレージに触れない。

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionVerifier))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		r.Route("/api/posts", func(r chi.Router) {
			r.Get("/", postHandler.ListPosts)
			r.With(deps.RateLimiter.WriteMiddleware()).Post("/", postHandler.CreatePost)
			r.With(deps.RateLimiter.WriteMiddleware()).Delete("/{id}", postHandler.DeletePost)
		})
	})

	// --- ページ・アセット ---

	r.Handle("/static/*", NewStaticHandler())

	r.Get("/login", pageHandler.Login)
	r.Get("/signup", pageHandler.Signup)

	// 保護ページはルートガード配下（サブパスも含む）
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewRouteGuard(deps.SessionVerifier, "/login"))

		r.Get("/home", pageHandler.Home)
		r.Get("/home/*", pageHandler.Home)
		r.Get("/profile", pageHandler.Profile)
		r.Get("/profile/*", pageHandler.Profile)
	})

	return r
}
