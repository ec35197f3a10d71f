package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, discord, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeDiscordNotLinked   = "DISCORD_NOT_LINKED"
	ErrCodeDiscordAuthExpired = "DISCORD_AUTH_EXPIRED"
	ErrCodeDiscordAPIError    = "DISCORD_API_ERROR"
	ErrCodeBotNotInGuild      = "BOT_NOT_IN_GUILD"
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeInvalidPrefix      = "INVALID_PREFIX"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeChatbotUnavailable = "CHATBOT_UNAVAILABLE"
)

// BotNotInGuildMessage はBotがギルドに参加していない場合にUIへ返すメッセージ。
// エラーバナーではなく再招待の導線を表示するために使う。
const BotNotInGuildMessage = "Flameyはこのサーバーに参加していないか、チャンネルを閲覧する権限がありません。"

// NewDiscordNotLinkedError はDiscordトークンが保存されていない場合のエラーを生成する。
// guildsスコープの承認漏れが最も多い原因のため、対処方法で明示する。
func NewDiscordNotLinkedError() *APIError {
	return &APIError{
		Code:     ErrCodeDiscordNotLinked,
		Message:  "あなたのアカウントに保存されたDiscordトークンが見つかりません。",
		Category: "auth",
		Action:   "一度ログアウトし、再度Discordでログインして、要求されるすべての権限を承認してください。",
	}
}

// NewDiscordAuthExpiredError はリフレッシュ不能なトークン失効のエラーを生成する。
func NewDiscordAuthExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeDiscordAuthExpired,
		Message:  "Discord連携の有効期限が切れています。",
		Category: "auth",
		Action:   "一度ログアウトし、再度Discordでログインして連携を更新してください。",
	}
}

// NewDiscordAPIError はDiscord API呼び出し失敗のエラーを生成する。
// detailにはDiscordの応答概要を渡す（トークン値を含めてはならない）。
func NewDiscordAPIError(detail string) *APIError {
	return &APIError{
		Code:     ErrCodeDiscordAPIError,
		Message:  fmt.Sprintf("Discord APIの呼び出しに失敗しました: %s", detail),
		Category: "discord",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInvalidRequestError は不正なリクエストのエラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("無効なリクエストです: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewInvalidPrefixError は無効なコマンドプレフィックスのエラーを生成する。
func NewInvalidPrefixError(prefix string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPrefix,
		Message:  fmt.Sprintf("無効なプレフィックスです: %q", prefix),
		Category: "validation",
		Action:   "プレフィックスは1〜5文字の空白を含まない文字列を指定してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewChatbotUnavailableError はAIチャットボット機能が無効な場合のエラーを生成する。
// GEMINI_API_KEYが未設定のデプロイで返される。
func NewChatbotUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeChatbotUnavailable,
		Message:  "AIチャットボット機能はこの環境では利用できません。",
		Category: "system",
		Action:   "サーバー管理者にGEMINI_API_KEYの設定を依頼してください。",
	}
}
