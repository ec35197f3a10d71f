package model

import "time"

// DiscordCredential はユーザー1人につき1件保持されるDiscordのOAuthトークンペア。
// ログイン成功時とトークンリフレッシュ成功時に上書きされる。
// AccessToken/RefreshTokenは秘匿情報であり、ログやレスポンスに出力してはならない。
type DiscordCredential struct {
	UserID       string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	UpdatedAt    time.Time
}

// IsExpired はアクセストークンの有効期限が切れているかを返す。
// 期限内でもDiscord側で失効している可能性はあるため、判定はヒントとして扱う。
func (c *DiscordCredential) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}
