package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/flamey-bot/dashboard/internal/model"
)

// PostgresGuildConfigRepo はPostgreSQLを使用したギルド設定リポジトリ。
type PostgresGuildConfigRepo struct {
	db *sql.DB
}

// NewPostgresGuildConfigRepo はPostgresGuildConfigRepoを生成する。
func NewPostgresGuildConfigRepo(db *sql.DB) *PostgresGuildConfigRepo {
	return &PostgresGuildConfigRepo{db: db}
}

// FindByGuildID は指定ギルドの設定を取得する。見つからない場合はnilを返す。
func (r *PostgresGuildConfigRepo) FindByGuildID(ctx context.Context, guildID string) (*model.GuildConfig, error) {
	cfg := &model.GuildConfig{}
	err := r.db.QueryRowContext(ctx,
		`SELECT guild_id, prefix,
		        welcome_enabled, welcome_channel, welcome_message,
		        goodbye_enabled, goodbye_message,
		        ai_chatbot_enabled, ai_chatbot_auto_channel, ai_chatbot_persona,
		        updated_at
		 FROM guild_configs
		 WHERE guild_id = $1`,
		guildID,
	).Scan(
		&cfg.GuildID, &cfg.Prefix,
		&cfg.WelcomeEnabled, &cfg.WelcomeChannel, &cfg.WelcomeMessage,
		&cfg.GoodbyeEnabled, &cfg.GoodbyeMessage,
		&cfg.AIChatbotEnabled, &cfg.AIChatbotAutoChannel, &cfg.AIChatbotPersona,
		&cfg.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find guild config: %w", err)
	}

	return cfg, nil
}

// Upsert は設定を冪等に保存する。
func (r *PostgresGuildConfigRepo) Upsert(ctx context.Context, cfg *model.GuildConfig) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO guild_configs (
		     guild_id, prefix,
		     welcome_enabled, welcome_channel, welcome_message,
		     goodbye_enabled, goodbye_message,
		     ai_chatbot_enabled, ai_chatbot_auto_channel, ai_chatbot_persona,
		     updated_at
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		 ON CONFLICT (guild_id) DO UPDATE SET
		     prefix = EXCLUDED.prefix,
		     welcome_enabled = EXCLUDED.welcome_enabled,
		     welcome_channel = EXCLUDED.welcome_channel,
		     welcome_message = EXCLUDED.welcome_message,
		     goodbye_enabled = EXCLUDED.goodbye_enabled,
		     goodbye_message = EXCLUDED.goodbye_message,
		     ai_chatbot_enabled = EXCLUDED.ai_chatbot_enabled,
		     ai_chatbot_auto_channel = EXCLUDED.ai_chatbot_auto_channel,
		     ai_chatbot_persona = EXCLUDED.ai_chatbot_persona,
		     updated_at = now()`,
		cfg.GuildID, cfg.Prefix,
		cfg.WelcomeEnabled, cfg.WelcomeChannel, cfg.WelcomeMessage,
		cfg.GoodbyeEnabled, cfg.GoodbyeMessage,
		cfg.AIChatbotEnabled, cfg.AIChatbotAutoChannel, cfg.AIChatbotPersona,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert guild config: %w", err)
	}
	return nil
}

// compile-time interface check
var _ GuildConfigRepository = (*PostgresGuildConfigRepo)(nil)
