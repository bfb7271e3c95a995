package settings

import "economy-server/internal/domain/settings"

// GetSettingsRequest 設定取得リクエスト
type GetSettingsRequest struct {
	GuildID string
}

// UpdateSettingsRequest 設定更新リクエスト
type UpdateSettingsRequest struct {
	GuildID  string
	Settings settings.CurrencySettings
}

// SettingsResponse 設定レスポンス
type SettingsResponse struct {
	GuildID  string
	Settings settings.CurrencySettings
	Default  bool // 保存されておらず既定値を返した
}
