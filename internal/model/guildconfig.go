package model

import "time"

// DefaultPrefix はコマンドプレフィックスの初期値。
const DefaultPrefix = ","

// GuildConfig はギルドごとのFlameyの設定を表す。
// ダッシュボードの各設定画面が読み書きする。
type GuildConfig struct {
	GuildID string

	// General Settings
	Prefix string

	// Messages
	WelcomeEnabled bool
	WelcomeChannel string
	WelcomeMessage string
	GoodbyeEnabled bool
	GoodbyeMessage string

	// AI Chatbot
	AIChatbotEnabled     bool
	AIChatbotAutoChannel string
	AIChatbotPersona     string

	UpdatedAt time.Time
}

// DefaultGuildConfig は未設定ギルドの初期設定を返す。
func DefaultGuildConfig(guildID string) *GuildConfig {
	return &GuildConfig{
		GuildID: guildID,
		Prefix:  DefaultPrefix,
	}
}
