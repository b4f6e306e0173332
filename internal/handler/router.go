package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/kamitori/connect/internal/guard"
	"github.com/kamitori/connect/internal/middleware"
	"github.com/kamitori/connect/internal/model"
	"github.com/kamitori/connect/internal/security"
)

// UpstreamClient はエッジサーバーが中継に使うAPIクライアントのインターフェース。
// *apiclient.Clientが実装する。
type UpstreamClient interface {
	AuthServiceInterface
	ShopServiceInterface
	PostServiceInterface
	ChatServiceInterface
}

// MetricsRecorder はエッジサーバーが記録するメトリクスのインターフェース。
// *metrics.Collectorが実装する。
type MetricsRecorder interface {
	guard.RedirectRecorder
	middleware.StatusRecorder
	middleware.RateLimitRecorder
	ChatFailureRecorder
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Upstream    UpstreamClient
	Sanitizer   security.ContentSanitizerService
	RateLimiter *middleware.RateLimiter
	Metrics     MetricsRecorder // nilでもよい
	Logger      *slog.Logger
	// MetricsHandler は/metricsで公開するハンドラー。nilの場合はルートを作らない。
	MetricsHandler http.Handler

	Guard           guard.Config
	Auth            AuthHandlerConfig
	APIBaseURL      string
	DefaultLanguage model.LanguageCode
	CORSOrigins     []string
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RealIP → RequestID → Recovery → Logging → SecurityHeaders → CORS → Token
//
// /admin 以下はさらにエッジでのガード（Cookieの有無のみ）を通す。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	var (
		redirects guard.RedirectRecorder
		statuses  middleware.StatusRecorder
		chatFails ChatFailureRecorder
	)
	if deps.Metrics != nil {
		redirects, statuses, chatFails = deps.Metrics, deps.Metrics, deps.Metrics
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r.Use(chimw.RealIP)
	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewLoggingMiddleware(logger, statuses))
	r.Use(middleware.NewSecurityHeadersMiddleware(false))
	r.Use(middleware.NewCORSMiddleware(deps.CORSOrigins))
	r.Use(middleware.NewTokenMiddleware())

	authHandler := NewAuthHandler(deps.Upstream, deps.Auth)
	shopHandler := NewShopHandler(deps.Upstream)
	postHandler := NewPostHandler(deps.Upstream, deps.Sanitizer, deps.APIBaseURL, deps.DefaultLanguage, deps.Auth.AdminPath)
	chatHandler := NewChatHandler(deps.Upstream, deps.Sanitizer, chatFails)
	adminHandler := NewAdminHandler(deps.Upstream, deps.Upstream)

	r.Get("/health", Health)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- 公開ルート ---
	r.Get("/languages", postHandler.Languages)
	r.Get("/posts", postHandler.ListPosts)
	r.Get("/shops", shopHandler.ListShops)
	r.Get("/shops/{id}", shopHandler.GetShop)
	r.With(deps.RateLimiter.ChatMiddleware()).Post("/chat", chatHandler.Chat)

	r.Get(deps.Guard.LoginPath, authHandler.LoginPage)
	r.With(deps.RateLimiter.AuthMiddleware()).Post(deps.Guard.LoginPath, authHandler.Login)
	r.With(deps.RateLimiter.AuthMiddleware()).Post("/register", authHandler.Register)
	r.Post("/logout", authHandler.Logout)

	// --- 管理画面 ---
	// エッジでのガードはCookieの有無だけを見る。トークンの正当性はAPIサーバーが判断する。
	r.Route(deps.Guard.ProtectedPrefix, func(r chi.Router) {
		r.Use(guard.EdgeMiddleware(deps.Guard, redirects))
		r.Use(middleware.NewSecurityHeadersMiddleware(true))

		r.Get("/", adminHandler.Dashboard)
		r.Get("/me", authHandler.Me)

		r.Route("/shops", func(r chi.Router) {
			r.Get("/", shopHandler.ListShops)
			r.Post("/", shopHandler.CreateShop)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", shopHandler.GetShop)
				r.Put("/", shopHandler.UpdateShop)
				r.Delete("/", shopHandler.DeleteShop)
			})
		})

		r.Post("/posts", postHandler.CreatePost)
	})

	return r
}

// Health はヘルスチェックに応答する。
// GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
