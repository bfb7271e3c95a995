package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	settingsapp "economy-server/internal/application/settings"
	"economy-server/internal/domain/settings"
)

// SettingsHandler ギルド経済設定ハンドラー
type SettingsHandler struct {
	settingsService *settingsapp.SettingsApplicationService
}

// NewSettingsHandler 新しいSettingsHandlerを作成
func NewSettingsHandler(settingsService *settingsapp.SettingsApplicationService) *SettingsHandler {
	return &SettingsHandler{
		settingsService: settingsService,
	}
}

// GetSettings 設定取得（ユーザーAPI用）
func (h *SettingsHandler) GetSettings(c echo.Context) error {
	guildID, _, err := principal(c)
	if err != nil {
		return err
	}
	return h.getSettings(c, guildID)
}

// GetSettingsAdmin 設定取得（管理API用）
func (h *SettingsHandler) GetSettingsAdmin(c echo.Context) error {
	guildID, err := pathParam(c, "guild_id")
	if err != nil {
		return err
	}
	return h.getSettings(c, guildID)
}

func (h *SettingsHandler) getSettings(c echo.Context, guildID string) error {
	resp, err := h.settingsService.GetSettings(c.Request().Context(), &settingsapp.GetSettingsRequest{GuildID: guildID})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSettingsResponse(resp))
}

// UpdateSettings 設定更新（管理API用）
// 省略されたフィールドは既定値で補われず、送られた内容で全体を置き換える
func (h *SettingsHandler) UpdateSettings(c echo.Context) error {
	guildID, err := pathParam(c, "guild_id")
	if err != nil {
		return err
	}

	var body settings.CurrencySettings
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	resp, err := h.settingsService.UpdateSettings(c.Request().Context(), &settingsapp.UpdateSettingsRequest{
		GuildID:  guildID,
		Settings: body,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSettingsResponse(resp))
}

func toSettingsResponse(resp *settingsapp.SettingsResponse) SettingsResponse {
	return SettingsResponse{
		GuildID:  resp.GuildID,
		Settings: resp.Settings,
		Default:  resp.Default,
	}
}
