package handler

import "economy-server/internal/domain/settings"

// SettingsResponse ギルド経済設定レスポンス
type SettingsResponse struct {
	GuildID  string                    `json:"guild_id"`
	Settings settings.CurrencySettings `json:"settings"`
	Default  bool                      `json:"default"`
}
