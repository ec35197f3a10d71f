package discord

import (
	"log/slog"
	"strconv"

	"github.com/flamey-bot/dashboard/internal/model"
)

// Permissions はDiscordの権限ビットマスクを表す。
// Discordは10進文字列として返すため、2^53を超える値でも精度を失わないよう
// 必ず64bit整数としてパースする。float64経由のパースは上位ビットを壊す。
type Permissions uint64

// 権限ビット定数
const (
	// PermissionAdministrator はADMINISTRATOR権限（ビット3）。
	PermissionAdministrator Permissions = 0x8
)

// ParsePermissions はDiscordの10進権限文字列をパースする。
func ParsePermissions(s string) (Permissions, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return Permissions(v), nil
}

// Has は指定したビットがすべて立っているかを返す。
func (p Permissions) Has(flag Permissions) bool {
	return p&flag == flag
}

// ManageableGuilds はユーザーが設定変更可能なギルドだけを返す純関数。
// 条件: オーナーである、またはADMINISTRATOR権限を持つ。
// 権限文字列のパースに失敗したギルドは除外して処理を続行する（全体は中断しない）。
func ManageableGuilds(guilds []model.Guild, logger *slog.Logger) []model.Guild {
	manageable := make([]model.Guild, 0, len(guilds))
	for _, g := range guilds {
		if g.Owner {
			manageable = append(manageable, g)
			continue
		}
		perms, err := ParsePermissions(g.Permissions)
		if err != nil {
			if logger != nil {
				logger.Warn("failed to parse guild permissions",
					slog.String("guild_id", g.ID),
					slog.String("permissions", g.Permissions),
					slog.String("error", err.Error()),
				)
			}
			continue
		}
		if perms.Has(PermissionAdministrator) {
			manageable = append(manageable, g)
		}
	}
	return manageable
}
