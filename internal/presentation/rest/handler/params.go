package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	restmiddleware "economy-server/internal/presentation/rest/middleware"
)

// principal トークンから認証済みのギルドIDとユーザーIDを取得
func principal(c echo.Context) (guildID, userID string, err error) {
	guildID = restmiddleware.GuildID(c)
	userID = restmiddleware.UserID(c)
	if guildID == "" || userID == "" {
		return "", "", echo.NewHTTPError(http.StatusUnauthorized, "guild_id or user_id not found in token")
	}
	return guildID, userID, nil
}

// pathParam 必須のパスパラメータを取得
func pathParam(c echo.Context, name string) (string, error) {
	value := c.Param(name)
	if value == "" {
		return "", echo.NewHTTPError(http.StatusBadRequest, name+" is required")
	}
	return value, nil
}

// pathID 数値IDのパスパラメータを取得
func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// parseAmount 文字列の金額を解析
func parseAmount(s string) (uint64, error) {
	amount, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid amount format")
	}
	return amount, nil
}

func formatAmount(amount uint64) string {
	return strconv.FormatUint(amount, 10)
}

// pagination limitとoffsetのクエリパラメータを取得
func pagination(c echo.Context, defaultLimit, maxLimit int) (limit, offset int, err error) {
	limit = defaultLimit
	if s := c.QueryParam("limit"); s != "" {
		limit, err = strconv.Atoi(s)
		if err != nil || limit < 1 || limit > maxLimit {
			return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "invalid limit parameter")
		}
	}
	if s := c.QueryParam("offset"); s != "" {
		offset, err = strconv.Atoi(s)
		if err != nil || offset < 0 {
			return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "invalid offset parameter")
		}
	}
	return limit, offset, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}
