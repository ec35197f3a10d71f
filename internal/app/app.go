package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/flamey-bot/dashboard/internal/auth"
	"github.com/flamey-bot/dashboard/internal/chatbot"
	"github.com/flamey-bot/dashboard/internal/config"
	"github.com/flamey-bot/dashboard/internal/database"
	"github.com/flamey-bot/dashboard/internal/discord"
	"github.com/flamey-bot/dashboard/internal/guildconfig"
	"github.com/flamey-bot/dashboard/internal/guilds"
	"github.com/flamey-bot/dashboard/internal/handler"
	"github.com/flamey-bot/dashboard/internal/logger"
	"github.com/flamey-bot/dashboard/internal/metrics"
	"github.com/flamey-bot/dashboard/internal/middleware"
	"github.com/flamey-bot/dashboard/internal/repository"
	"github.com/flamey-bot/dashboard/internal/user"
	"github.com/flamey-bot/dashboard/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandCleanup:
		return runCleanup(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	identRepo := repository.NewPostgresIdentityRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	credRepo := repository.NewPostgresCredentialRepo(db)
	guildConfigRepo := repository.NewPostgresGuildConfigRepo(db)

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. Discordクライアントの初期化
	// ユーザートークン系とBotトークン系でhttp.Clientを共有する（タイムアウトは共通）
	discordHTTPClient := &http.Client{Timeout: cfg.DiscordAPITimeout}

	discordOAuth := discord.NewOAuth(discord.OAuthConfig{
		ClientID:     cfg.DiscordClientID,
		ClientSecret: cfg.DiscordClientSecret,
		RedirectURL:  cfg.DiscordRedirectURL,
	}, discordHTTPClient, slog.Default())

	userClient := discord.NewUserClient(discordHTTPClient, slog.Default(), collector)

	botClient, err := discord.NewBotClient(cfg.DiscordBotToken, discordHTTPClient, slog.Default(), collector)
	if err != nil {
		return fmt.Errorf("failed to create discord bot client: %w", err)
	}

	// 5. ドメインサービスの初期化
	oauthProvider := auth.NewDiscordOAuthProvider(discordOAuth, userClient)
	authService := auth.NewService(
		oauthProvider, userRepo, identRepo, sessionRepo, credRepo,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
	)

	guildService := guilds.NewService(
		credRepo, userClient, discordOAuth, botClient, collector, slog.Default(),
	)
	guildConfigService := guildconfig.NewService(guildConfigRepo, slog.Default())
	userService := user.NewService(userRepo, sessionRepo, credRepo)

	// チャットボットはGEMINI_API_KEY設定時のみ有効化する
	var chatbotService handler.ChatbotServiceInterface
	if cfg.GeminiAPIKey != "" {
		chatbotService = chatbot.NewClient(
			&http.Client{Timeout: 30 * time.Second},
			slog.Default(), cfg.GeminiAPIKey, cfg.GeminiModel,
		)
		slog.Info("ai chatbot enabled", slog.String("model", cfg.GeminiModel))
	} else {
		slog.Info("ai chatbot disabled (GEMINI_API_KEY is not set)")
	}

	// 6. レート制限の構成（configはreq/min単位、limiterはreq/sec単位）
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rateLimiterCfg.ChatbotRate = rate.Limit(float64(cfg.RateLimitChatbot) / 60.0)
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	// 7. ルーターの構築
	deps := &handler.RouterDeps{
		SessionFinder:     sessionRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			BaseURL:       cfg.BaseURL,
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		GuildService:       guildService,
		GuildConfigService: guildConfigService,

		ChatbotService: chatbotService,
		ChatbotMetrics: collector,

		UserService: handler.NewUserServiceAdapter(userService),

		HealthChecker:  db,
		MetricsHandler: metrics.Handler(registry),

		Logger: slog.Default(),
	}

	router := handler.NewRouter(deps)

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runCleanup は期限切れセッションのクリーンアップジョブを1回実行する。
// cronやスケジューラから日次で起動されることを想定している。
func runCleanup(cfg *config.Config) error {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (cleanup)")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	job := cleanup.NewSessionCleanupJob(db, slog.Default())
	if err := job.Run(ctx); err != nil {
		return fmt.Errorf("cleanup job failed: %w", err)
	}

	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
