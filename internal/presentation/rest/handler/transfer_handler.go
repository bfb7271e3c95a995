package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	transferapp "economy-server/internal/application/transfer"
)

// TransferHandler 送金ハンドラー
type TransferHandler struct {
	transferService *transferapp.TransferApplicationService
}

// NewTransferHandler 新しいTransferHandlerを作成
func NewTransferHandler(transferService *transferapp.TransferApplicationService) *TransferHandler {
	return &TransferHandler{
		transferService: transferService,
	}
}

// Transfer 送金ハンドラー（ユーザーAPI用）
// 手数料は送金者が負担し、受取人は全額を受け取る
func (h *TransferHandler) Transfer(c echo.Context) error {
	guildID, userID, err := principal(c)
	if err != nil {
		return err
	}

	var reqBody TransferRequest
	if err := c.Bind(&reqBody); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if reqBody.ToUserID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "to_user_id is required")
	}
	amount, err := parseAmount(reqBody.Amount)
	if err != nil {
		return err
	}

	resp, err := h.transferService.Transfer(c.Request().Context(), &transferapp.TransferRequest{
		GuildID:      guildID,
		FromUserID:   userID,
		ToUserID:     reqBody.ToUserID,
		CurrencyType: reqBody.CurrencyType,
		Amount:       amount,
		Reason:       reqBody.Reason,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, TransferResponse{
		CurrencyType: resp.CurrencyType,
		Amount:       formatAmount(resp.Amount),
		Fee:          formatAmount(resp.Fee),
		FromBalance:  formatAmount(resp.FromBalance),
		ToBalance:    formatAmount(resp.ToBalance),
	})
}
