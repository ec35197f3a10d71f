package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/flamey-bot/dashboard/internal/model"
)

// botGuildsPageSize はBotギルド一覧の1ページあたりの最大取得件数（Discordの上限）。
const botGuildsPageSize = 200

// BotClient はプロセス共通のBotトークンでDiscord APIを呼び出すクライアント。
// ユーザーのOAuthトークンとは別の信頼ドメインで、リフレッシュは存在しない
// （Botトークンは失効しないため、非2xxはそのまま失敗として伝播する）。
type BotClient struct {
	session *discordgo.Session
	logger  *slog.Logger
	metrics MetricsRecorder
}

// NewBotClient はBotClientを生成する。
// httpClientが非nilの場合はdiscordgoの内部クライアントを差し替える
// （タイムアウト設定とテストでのトランスポート注入のため）。
func NewBotClient(botToken string, httpClient *http.Client, logger *slog.Logger, metrics MetricsRecorder) (*BotClient, error) {
	session, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	if httpClient != nil {
		session.Client = httpClient
	}
	return &BotClient{
		session: session,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// GuildIDs はBot自身が参加しているギルドのID集合を返す。
// 200件を超える場合はページングして全件取得する。
func (c *BotClient) GuildIDs(ctx context.Context) (map[string]struct{}, error) {
	ids := make(map[string]struct{})
	afterID := ""
	for {
		guilds, err := c.session.UserGuilds(botGuildsPageSize, "", afterID, discordgo.WithContext(ctx))
		if err != nil {
			return nil, c.wrapRESTError("bot guilds", err)
		}
		for _, g := range guilds {
			ids[g.ID] = struct{}{}
			afterID = g.ID
		}
		if len(guilds) < botGuildsPageSize {
			break
		}
	}
	if c.metrics != nil {
		c.metrics.RecordDiscordRequest("/users/@me/guilds (bot)", http.StatusOK)
	}
	return ids, nil
}

// TextChannels は指定ギルドのテキスト系チャンネル（type 0, 5）を返す。
// Botがギルドに参加していない、または権限不足の場合（403/404）は
// ErrBotNotInGuildを返す。これは障害ではなく再招待が必要な定常状態。
func (c *BotClient) TextChannels(ctx context.Context, guildID string) ([]model.GuildChannel, error) {
	channels, err := c.session.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		var restErr *discordgo.RESTError
		if errors.As(err, &restErr) && restErr.Response != nil {
			status := restErr.Response.StatusCode
			if status == http.StatusForbidden || status == http.StatusNotFound {
				c.logger.Info("bot has no access to guild",
					slog.String("guild_id", guildID),
					slog.Int("status", status),
				)
				return nil, ErrBotNotInGuild
			}
		}
		return nil, c.wrapRESTError("guild channels", err)
	}
	if c.metrics != nil {
		c.metrics.RecordDiscordRequest("/guilds/{id}/channels", http.StatusOK)
	}

	textChannels := make([]model.GuildChannel, 0, len(channels))
	for _, ch := range channels {
		if ch.Type == discordgo.ChannelTypeGuildText || ch.Type == discordgo.ChannelTypeGuildNews {
			textChannels = append(textChannels, model.GuildChannel{ID: ch.ID, Name: ch.Name})
		}
	}
	return textChannels, nil
}

// wrapRESTError はdiscordgoのエラーを*APIErrorへ変換する。
func (c *BotClient) wrapRESTError(endpoint string, err error) error {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		if c.metrics != nil {
			c.metrics.RecordDiscordRequest(endpoint, restErr.Response.StatusCode)
		}
		c.logger.Warn("bot-scoped discord call failed",
			slog.String("endpoint", endpoint),
			slog.Int("status", restErr.Response.StatusCode),
		)
		return &APIError{
			Endpoint:   endpoint,
			StatusCode: restErr.Response.StatusCode,
			Body:       string(restErr.ResponseBody),
		}
	}
	return fmt.Errorf("discord %s request failed: %w", endpoint, err)
}
