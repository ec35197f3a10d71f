package model

// Guild はDiscord APIから取得したギルド（サーバー）を表す。
// 永続化はせず、リクエストごとにDiscordから取得する一時ビュー。
// PermissionsはDiscordが10進文字列で返すビットマスクをそのまま保持する。
type Guild struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Icon        *string `json:"icon"`
	Owner       bool    `json:"owner"`
	Permissions string  `json:"permissions"`
}

// GuildChannel はギルド内のテキスト系チャンネルを表す。
// idとname以外のチャンネルメタデータは公開しない。
type GuildChannel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
