// Package discord はDiscord APIとのやり取りを提供する。
// ユーザーのOAuthトークンを使う呼び出しと、Botトークンを使う呼び出しの
// 2つの信頼ドメインを扱う。
package discord

import (
	"errors"
	"fmt"
)

// ErrUnauthorized はDiscordがアクセストークンを401で拒否したことを示す。
// 呼び出し元はトークンリフレッシュを1回だけ試みてよい。
var ErrUnauthorized = errors.New("discord rejected the access token")

// ErrTokenRefresh はリフレッシュトークンの交換がプロバイダに拒否されたことを示す。
// リトライしてはならない。対話的な再ログインが必要な認証エラーとして扱う。
var ErrTokenRefresh = errors.New("discord token refresh failed")

// ErrBotNotInGuild はBotが対象ギルドに参加していない（403/404）ことを示す。
// システム障害ではなく、ユーザーがBotを招待していないだけの定常状態。
var ErrBotNotInGuild = errors.New("bot is not a member of the guild")

// APIError は401以外のDiscord APIエラー応答を表す。
// リフレッシュ&リトライの対象にはならず、そのまま呼び出し元へ伝播する。
type APIError struct {
	Endpoint   string // 呼び出したエンドポイントの概略（トークンは含めない）
	StatusCode int
	Body       string
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("discord api error: %s returned %d: %s", e.Endpoint, e.StatusCode, e.Body)
}
