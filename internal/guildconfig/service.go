// Package guildconfig はギルドごとのBot設定の読み書きを提供する。
package guildconfig

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/flamey-bot/dashboard/internal/model"
	"github.com/flamey-bot/dashboard/internal/repository"
)

const maxPrefixLength = 5

// Service はギルド設定のビジネスロジックを提供する。
type Service struct {
	repo   repository.GuildConfigRepository
	logger *slog.Logger
}

// NewService はServiceを生成する。
func NewService(repo repository.GuildConfigRepository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Get は指定ギルドの設定を返す。
// 未設定のギルドには初期設定を返す（レコードは作成しない）。
func (s *Service) Get(ctx context.Context, guildID string) (*model.GuildConfig, error) {
	if guildID == "" {
		return nil, model.NewInvalidRequestError("guild IDが指定されていません")
	}

	cfg, err := s.repo.FindByGuildID(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to load guild config: %w", err)
	}
	if cfg == nil {
		return model.DefaultGuildConfig(guildID), nil
	}
	return cfg, nil
}

// Update はギルド設定を検証のうえ保存する。
func (s *Service) Update(ctx context.Context, cfg *model.GuildConfig) (*model.GuildConfig, error) {
	if cfg == nil || cfg.GuildID == "" {
		return nil, model.NewInvalidRequestError("guild IDが指定されていません")
	}
	if err := validatePrefix(cfg.Prefix); err != nil {
		return nil, err
	}

	cfg.UpdatedAt = time.Now()
	if err := s.repo.Upsert(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to store guild config: %w", err)
	}

	s.logger.Info("guild config updated",
		slog.String("guild_id", cfg.GuildID),
	)
	return cfg, nil
}

// validatePrefix はコマンドプレフィックスを検証する。
// 1〜5文字、空白を含まないこと。
func validatePrefix(prefix string) error {
	if prefix == "" || utf8.RuneCountInString(prefix) > maxPrefixLength {
		return model.NewInvalidPrefixError(prefix)
	}
	if strings.ContainsFunc(prefix, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r'
	}) {
		return model.NewInvalidPrefixError(prefix)
	}
	return nil
}
