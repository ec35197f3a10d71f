// Package guilds はギルド一覧の取得・認可フィルタ・Bot参加状況の突き合わせを提供する。
// トークンリフレッシュを挟んだ1回だけのリトライもこのパッケージが調停する。
package guilds

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/flamey-bot/dashboard/internal/discord"
	"github.com/flamey-bot/dashboard/internal/model"
	"github.com/flamey-bot/dashboard/internal/repository"
)

// UserGuildLister はユーザートークンでのギルド一覧取得インターフェース。
// discord.UserClientの部分集合として定義する。
type UserGuildLister interface {
	UserGuilds(ctx context.Context, accessToken string) ([]model.Guild, error)
}

// TokenRefresher はリフレッシュグラントの実行インターフェース。
// discord.OAuthの部分集合として定義する。
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// BotGuildSource はBotトークンでのDiscord呼び出しインターフェース。
// discord.BotClientの部分集合として定義する。
type BotGuildSource interface {
	GuildIDs(ctx context.Context) (map[string]struct{}, error)
	TextChannels(ctx context.Context, guildID string) ([]model.GuildChannel, error)
}

// RefreshMetrics はトークンリフレッシュ結果のメトリクス記録インターフェース。
// nilの場合は記録しない。
type RefreshMetrics interface {
	RecordTokenRefresh(outcome string)
}

// Service はギルド関連のビジネスロジックを提供する。
type Service struct {
	credRepo   repository.CredentialRepository
	userClient UserGuildLister
	oauth      TokenRefresher
	bot        BotGuildSource
	metrics    RefreshMetrics
	logger     *slog.Logger

	// 同一ユーザーの同時リフレッシュを1回にまとめる。
	// Discordはリフレッシュトークンを回転させるため、並行リフレッシュは
	// 互いのトークンを無効化し合う。
	refreshGroup singleflight.Group
}

// NewService はServiceを生成する。
func NewService(
	credRepo repository.CredentialRepository,
	userClient UserGuildLister,
	oauth TokenRefresher,
	bot BotGuildSource,
	metrics RefreshMetrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		credRepo:   credRepo,
		userClient: userClient,
		oauth:      oauth,
		bot:        bot,
		metrics:    metrics,
		logger:     logger,
	}
}

// ListManageable はユーザーが設定変更可能なギルド一覧を返す。
//
// アルゴリズム:
//  1. 保存済みアクセストークンでギルド一覧を取得する。
//  2. 401の場合のみ、リフレッシュ→保存→1回だけリトライする。
//     リトライも失敗した場合はそのまま失敗を返す（ループしない）。
//  3. オーナーまたはADMINISTRATOR権限のギルドだけに絞り込む。
func (s *Service) ListManageable(ctx context.Context, userID string) ([]model.Guild, error) {
	cred, err := s.credRepo.FindByUserID(ctx, userID)
	if err != nil {
		// ストア障害は未連携状態とは別物。リトライ可能な基盤エラーとして扱う。
		return nil, fmt.Errorf("failed to load discord credential: %w", err)
	}
	if cred == nil {
		return nil, model.NewDiscordNotLinkedError()
	}

	guilds, err := s.userClient.UserGuilds(ctx, cred.AccessToken)
	if errors.Is(err, discord.ErrUnauthorized) {
		accessToken, refreshErr := s.refreshCredential(ctx, userID, cred.RefreshToken)
		if refreshErr != nil {
			return nil, refreshErr
		}
		guilds, err = s.userClient.UserGuilds(ctx, accessToken)
	}
	if err != nil {
		if errors.Is(err, discord.ErrUnauthorized) {
			// リフレッシュ直後のトークンまで拒否された。再ログインが必要。
			s.logger.Warn("discord rejected freshly refreshed token",
				slog.String("user_id", userID),
			)
			return nil, model.NewDiscordAuthExpiredError()
		}
		var apiErr *discord.APIError
		if errors.As(err, &apiErr) {
			return nil, model.NewDiscordAPIError(fmt.Sprintf("status %d", apiErr.StatusCode))
		}
		return nil, fmt.Errorf("failed to fetch user guilds: %w", err)
	}

	return discord.ManageableGuilds(guilds, s.logger), nil
}

// refreshCredential はリフレッシュグラントを実行し、新しいトークンペアを
// 永続化してからアクセストークンを返す。
// リトライがDiscordへ発行されるのは必ず保存完了後。保存前にリトライすると、
// 並行リクエストが回転済みの古いリフレッシュトークンを読んでしまう。
//
// singleflightによりユーザー単位で直列化され、同時に401を観測した
// リクエスト群は1回のリフレッシュ結果を共有する。
func (s *Service) refreshCredential(ctx context.Context, userID, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", model.NewDiscordNotLinkedError()
	}

	v, err, shared := s.refreshGroup.Do(userID, func() (interface{}, error) {
		tok, err := s.oauth.Refresh(ctx, refreshToken)
		if err != nil {
			if s.metrics != nil {
				s.metrics.RecordTokenRefresh("failure")
			}
			return nil, err
		}

		cred := &model.DiscordCredential{
			UserID:       userID,
			AccessToken:  tok.AccessToken,
			RefreshToken: tok.RefreshToken,
			ExpiresAt:    tok.Expiry,
			UpdatedAt:    time.Now(),
		}
		if err := s.credRepo.Upsert(ctx, cred); err != nil {
			return nil, fmt.Errorf("failed to store refreshed credential: %w", err)
		}

		if s.metrics != nil {
			s.metrics.RecordTokenRefresh("success")
		}
		s.logger.Info("discord token refreshed",
			slog.String("user_id", userID),
		)
		return tok.AccessToken, nil
	})
	if err != nil {
		if errors.Is(err, discord.ErrTokenRefresh) {
			return "", model.NewDiscordAuthExpiredError()
		}
		return "", err
	}
	if shared {
		s.logger.Debug("token refresh shared across concurrent requests",
			slog.String("user_id", userID),
		)
	}
	return v.(string), nil
}

// CommonGuilds はユーザーのギルドID一覧とBotの参加ギルドの積集合を返す。
// 読み取り専用で、ギルドのメンバーシップを変更することはない。
// 入力の順序を保ったまま返す（同一入力に対して結果は集合として不変）。
func (s *Service) CommonGuilds(ctx context.Context, userGuildIDs []string) ([]string, error) {
	botGuildIDs, err := s.bot.GuildIDs(ctx)
	if err != nil {
		var apiErr *discord.APIError
		if errors.As(err, &apiErr) {
			return nil, model.NewDiscordAPIError(fmt.Sprintf("status %d", apiErr.StatusCode))
		}
		return nil, fmt.Errorf("failed to fetch bot guilds: %w", err)
	}

	common := make([]string, 0, len(userGuildIDs))
	for _, id := range userGuildIDs {
		if _, ok := botGuildIDs[id]; ok {
			common = append(common, id)
		}
	}
	return common, nil
}

// GuildChannels は指定ギルドのテキスト系チャンネル一覧を返す。
// Botが未参加の場合はdiscord.ErrBotNotInGuildをそのまま返す
// （ハンドラー層で構造化レスポンスに変換される）。
func (s *Service) GuildChannels(ctx context.Context, guildID string) ([]model.GuildChannel, error) {
	channels, err := s.bot.TextChannels(ctx, guildID)
	if err != nil {
		if errors.Is(err, discord.ErrBotNotInGuild) {
			return nil, err
		}
		var apiErr *discord.APIError
		if errors.As(err, &apiErr) {
			return nil, model.NewDiscordAPIError(fmt.Sprintf("status %d", apiErr.StatusCode))
		}
		return nil, fmt.Errorf("failed to fetch guild channels: %w", err)
	}
	return channels, nil
}
