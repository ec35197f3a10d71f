package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"
)

const (
	defaultAuthURL  = "https://discord.com/oauth2/authorize"
	defaultTokenURL = "https://discord.com/api/v10/oauth2/token"
)

// OAuthConfig はDiscord OAuthプロバイダーの設定。
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// テスト用にオーバーライド可能なURL
	AuthURL  string
	TokenURL string
}

// OAuth はDiscordのOAuth 2.0トークンエンドポイントとのやり取りを提供する。
// 認可コード交換（ログイン時のトークン捕捉）とリフレッシュグラントの両方を扱う。
type OAuth struct {
	cfg        *oauth2.Config
	httpClient *http.Client
	logger     *slog.Logger
}

// NewOAuth はOAuthを生成する。
// httpClientにはタイムアウトを設定したクライアントを渡すこと。
func NewOAuth(config OAuthConfig, httpClient *http.Client, logger *slog.Logger) *OAuth {
	if config.AuthURL == "" {
		config.AuthURL = defaultAuthURL
	}
	if config.TokenURL == "" {
		config.TokenURL = defaultTokenURL
	}
	return &OAuth{
		cfg: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURL,
			Scopes:       []string{"identify", "email", "guilds"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   config.AuthURL,
				TokenURL:  config.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: httpClient,
		logger:     logger,
	}
}

// AuthCodeURL はDiscordの認可画面URLを生成する。
func (o *OAuth) AuthCodeURL(state string) string {
	return o.cfg.AuthCodeURL(state)
}

// Exchange は認可コードをトークンペアに交換する。
func (o *OAuth) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := o.cfg.Exchange(o.clientContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	return tok, nil
}

// Refresh はリフレッシュトークンを新しいトークンペアに交換する。
// プロバイダーが非2xxを返した場合はErrTokenRefreshでラップして返す。
// このエラーはリトライしてはならない。対話的な再ログインが必要な状態を意味する。
//
// Discordはリフレッシュトークンを回転させる。返されたRefreshTokenで必ず
// 保存済みの値を置き換えること（古い値の再利用は次回のリフレッシュで失敗する）。
func (o *OAuth) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	src := o.cfg.TokenSource(o.clientContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			o.logger.Warn("token refresh rejected by provider",
				slog.Int("status", retrieveErr.Response.StatusCode),
			)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenRefresh, err)
	}
	// RefreshTokenが空で返った場合は旧値を維持する
	if tok.RefreshToken == "" {
		tok.RefreshToken = refreshToken
	}
	return tok, nil
}

// clientContext はoauth2パッケージに注入するHTTPクライアントをctxに載せる。
func (o *OAuth) clientContext(ctx context.Context) context.Context {
	if o.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, o.httpClient)
}
