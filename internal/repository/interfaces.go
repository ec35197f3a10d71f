// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/flamey-bot/dashboard/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するidentities、sessions、discord_credentialsはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// CredentialRepository はDiscord OAuthトークンペアの永続化インターフェース。
// ユーザー1人につき最大1件のレコードを保持する。
type CredentialRepository interface {
	// FindByUserID は指定ユーザーのトークンペアを取得する。
	// 保存されたトークンが存在しない場合は(nil, nil)を返す。
	// それ以外のエラーはストア自体の障害であり、未連携状態とは区別して扱うこと。
	FindByUserID(ctx context.Context, userID string) (*model.DiscordCredential, error)

	// Upsert はトークンペアを保存する。既存レコードは上書きされる。
	// リフレッシュで回転したrefresh_tokenを必ず新しい値で置き換えるため、
	// INSERT ... ON CONFLICT DO UPDATEで実装すること。
	Upsert(ctx context.Context, cred *model.DiscordCredential) error

	// DeleteByUserID は指定ユーザーのトークンペアを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// GuildConfigRepository はギルドごとのFlamey設定の永続化インターフェース。
type GuildConfigRepository interface {
	// FindByGuildID は指定ギルドの設定を取得する。見つからない場合はnilを返す。
	FindByGuildID(ctx context.Context, guildID string) (*model.GuildConfig, error)

	// Upsert は設定を冪等に保存する。
	Upsert(ctx context.Context, cfg *model.GuildConfig) error
}
