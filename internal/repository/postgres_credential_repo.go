package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/flamey-bot/dashboard/internal/model"
)

// PostgresCredentialRepo はPostgreSQLを使用したDiscordトークンリポジトリ。
type PostgresCredentialRepo struct {
	db *sql.DB
}

// NewPostgresCredentialRepo はPostgresCredentialRepoを生成する。
func NewPostgresCredentialRepo(db *sql.DB) *PostgresCredentialRepo {
	return &PostgresCredentialRepo{db: db}
}

// FindByUserID は指定ユーザーのトークンペアを取得する。
// 保存されたトークンが存在しない場合は(nil, nil)を返す。
func (r *PostgresCredentialRepo) FindByUserID(ctx context.Context, userID string) (*model.DiscordCredential, error) {
	cred := &model.DiscordCredential{}
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, access_token, refresh_token, expires_at, updated_at
		 FROM discord_credentials
		 WHERE user_id = $1`,
		userID,
	).Scan(&cred.UserID, &cred.AccessToken, &cred.RefreshToken, &cred.ExpiresAt, &cred.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find discord credential: %w", err)
	}

	return cred, nil
}

// Upsert はトークンペアを保存する。既存レコードは上書きされる。
// 回転済みrefresh_tokenの取り残しを防ぐため、全カラムを新しい値で置き換える。
func (r *PostgresCredentialRepo) Upsert(ctx context.Context, cred *model.DiscordCredential) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO discord_credentials (user_id, access_token, refresh_token, expires_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id) DO UPDATE SET
		     access_token = EXCLUDED.access_token,
		     refresh_token = EXCLUDED.refresh_token,
		     expires_at = EXCLUDED.expires_at,
		     updated_at = EXCLUDED.updated_at`,
		cred.UserID, cred.AccessToken, cred.RefreshToken, cred.ExpiresAt, cred.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert discord credential: %w", err)
	}
	return nil
}

// DeleteByUserID は指定ユーザーのトークンペアを削除する。
func (r *PostgresCredentialRepo) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM discord_credentials WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete discord credential: %w", err)
	}
	return nil
}

// compile-time interface check
var _ CredentialRepository = (*PostgresCredentialRepo)(nil)
