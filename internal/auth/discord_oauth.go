package auth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/flamey-bot/dashboard/internal/discord"
)

// DiscordUserFetcher はアクセストークンでDiscordユーザー情報を取得する
// インターフェース。discord.UserClientの部分集合として定義する。
type DiscordUserFetcher interface {
	CurrentUser(ctx context.Context, accessToken string) (*discord.User, error)
}

// DiscordOAuthProvider はDiscord OAuth 2.0による認証を提供する。
// コード交換はdiscord.OAuthに、ユーザー情報取得はdiscord.UserClientに委譲する。
type DiscordOAuthProvider struct {
	oauth      *discord.OAuth
	userClient DiscordUserFetcher
}

// NewDiscordOAuthProvider はDiscordOAuthProviderを生成する。
func NewDiscordOAuthProvider(oauth *discord.OAuth, userClient DiscordUserFetcher) *DiscordOAuthProvider {
	return &DiscordOAuthProvider{
		oauth:      oauth,
		userClient: userClient,
	}
}

// GetLoginURL はDiscord OAuthの認証URLを生成する。
// スコープにはidentify, email, guildsを含む。
func (p *DiscordOAuthProvider) GetLoginURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

// ExchangeCode は認可コードをトークンペアに交換し、ユーザー情報を取得する。
// 返されるトークンはギルド一覧取得のために永続化される。
func (p *DiscordOAuthProvider) ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, *oauth2.Token, error) {
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	user, err := p.userClient.CurrentUser(ctx, token.AccessToken)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch user info: %w", err)
	}

	return &OAuthUserInfo{
		ProviderUserID: user.ID,
		Email:          user.Email,
		Name:           user.Username,
		Provider:       "discord",
	}, token, nil
}

// compile-time interface check
var _ OAuthProvider = (*DiscordOAuthProvider)(nil)
