package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	historyapp "economy-server/internal/application/history"
)

// HistoryHandler 履歴関連ハンドラー
type HistoryHandler struct {
	historyService *historyapp.HistoryApplicationService
}

// NewHistoryHandler 新しいHistoryHandlerを作成
func NewHistoryHandler(historyService *historyapp.HistoryApplicationService) *HistoryHandler {
	return &HistoryHandler{
		historyService: historyService,
	}
}

// GetHistory 台帳履歴取得ハンドラー（ユーザーAPI用）
func (h *HistoryHandler) GetHistory(c echo.Context) error {
	guildID, userID, err := principal(c)
	if err != nil {
		return err
	}
	return h.getHistory(c, guildID, userID)
}

// GetHistoryAdmin 台帳履歴取得ハンドラー（管理API用）
func (h *HistoryHandler) GetHistoryAdmin(c echo.Context) error {
	guildID, err := pathParam(c, "guild_id")
	if err != nil {
		return err
	}
	userID, err := pathParam(c, "user_id")
	if err != nil {
		return err
	}
	return h.getHistory(c, guildID, userID)
}

func (h *HistoryHandler) getHistory(c echo.Context, guildID, userID string) error {
	limit, offset, err := pagination(c, 50, 100)
	if err != nil {
		return err
	}

	resp, err := h.historyService.GetHistory(c.Request().Context(), &historyapp.GetHistoryRequest{
		GuildID:         guildID,
		UserID:          userID,
		Limit:           limit,
		Offset:          offset,
		CurrencyType:    c.QueryParam("currency_type"),
		TransactionType: c.QueryParam("transaction_type"),
	})
	if err != nil {
		return err
	}

	entries := make([]HistoryEntryItem, len(resp.Entries))
	for i, e := range resp.Entries {
		entries[i] = HistoryEntryItem{
			ID:              e.ID,
			CurrencyType:    e.CurrencyType,
			TransactionType: e.TransactionType,
			Amount:          strconv.FormatInt(e.Amount, 10),
			BalanceAfter:    formatAmount(e.BalanceAfter),
			Description:     e.Description,
			CreatedAt:       formatTime(e.CreatedAt),
		}
	}

	return c.JSON(http.StatusOK, HistoryResponse{
		Entries: entries,
		Total:   resp.Total,
		Limit:   resp.Limit,
		Offset:  resp.Offset,
	})
}
