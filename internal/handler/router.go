package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flamey-bot/dashboard/internal/middleware"
)

// SetupAuthRoutes は認証関連のルーティングを設定したchi.Routerを返す。
func SetupAuthRoutes(service AuthServiceInterface, config AuthHandlerConfig) http.Handler {
	r := chi.NewRouter()
	h := NewAuthHandler(service, config)

	r.Route("/auth", func(r chi.Router) {
		// OAuthフロー
		r.Get("/discord/login", h.Login)
		r.Get("/discord/callback", h.Callback)

		// セッション管理
		r.Post("/logout", h.Logout)
		r.Get("/me", h.Me)
	})

	return r
}

// HealthChecker はヘルスチェックで疎通確認する依存のインターフェース。
type HealthChecker interface {
	Ping() error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ギルド
	GuildService       GuildServiceInterface
	GuildConfigService GuildConfigServiceInterface

	// チャットボット（GEMINI_API_KEY未設定時はnil）
	ChatbotService ChatbotServiceInterface
	ChatbotMetrics ChatbotMetrics

	// ユーザー
	UserService UserServiceInterface

	// ヘルスチェック
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// ロギング。nilの場合はslog.Default()を使う。
	Logger *slog.Logger
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	SecurityHeaders → CORS → Logging → Recovery → SessionMiddleware → CSRF → RateLimit(General)
//
// 認証ルート（/auth/*）、/health、/metricsはセッションミドルウェアの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// 全ルートに効くミドルウェア
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewRecoveryMiddleware())

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	guildHandler := NewGuildHandler(deps.GuildService)
	configHandler := NewGuildConfigHandler(deps.GuildConfigService)
	chatbotHandler := NewChatbotHandler(deps.ChatbotService, deps.ChatbotMetrics)
	userHandler := NewUserHandler(deps.UserService)

	// --- 認証不要のルート ---

	if deps.HealthChecker != nil {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			if err := deps.HealthChecker.Ping(); err != nil {
				http.Error(w, "unhealthy", http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok"))
		})
	}

	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// 認証ルート（OAuthフロー）
	r.Route("/auth", func(r chi.Router) {
		r.Get("/discord/login", authHandler.Login)
		r.Get("/discord/callback", authHandler.Callback)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// CSRFトークン取得（セッション不要。SPAが起動時に取得する）
	r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → CSRF → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// ギルド管理
		r.Route("/api/guilds", func(r chi.Router) {
			r.Get("/", guildHandler.ListGuilds)
			r.Post("/common", guildHandler.CommonGuilds)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/channels", guildHandler.ListChannels)
				r.Get("/config", configHandler.GetConfig)
				r.Put("/config", configHandler.UpdateConfig)
			})
		})

		// チャットボット応答生成（専用レート制限を追加）
		r.With(deps.RateLimiter.ChatbotMiddleware()).
			Post("/api/chatbot/generate", chatbotHandler.Generate)

		// ユーザー管理
		r.Route("/api/users", func(r chi.Router) {
			r.Delete("/me", userHandler.Withdraw)
		})
	})

	return r
}
