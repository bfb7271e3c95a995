package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	walletapp "economy-server/internal/application/wallet"
)

// WalletHandler ウォレット関連ハンドラー
type WalletHandler struct {
	walletService *walletapp.WalletApplicationService
}

// NewWalletHandler 新しいWalletHandlerを作成
func NewWalletHandler(walletService *walletapp.WalletApplicationService) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
	}
}

// GetWallets 残高取得ハンドラー（ユーザーAPI用）
func (h *WalletHandler) GetWallets(c echo.Context) error {
	guildID, userID, err := principal(c)
	if err != nil {
		return err
	}
	return h.getWallets(c, guildID, userID)
}

// GetWalletsAdmin 残高取得ハンドラー（管理API用）
func (h *WalletHandler) GetWalletsAdmin(c echo.Context) error {
	guildID, err := pathParam(c, "guild_id")
	if err != nil {
		return err
	}
	userID, err := pathParam(c, "user_id")
	if err != nil {
		return err
	}
	return h.getWallets(c, guildID, userID)
}

func (h *WalletHandler) getWallets(c echo.Context, guildID, userID string) error {
	resp, err := h.walletService.GetWallets(c.Request().Context(), &walletapp.GetWalletsRequest{
		GuildID: guildID,
		UserID:  userID,
	})
	if err != nil {
		return err
	}

	balances := make(map[string]string, len(resp.Balances))
	for ct, balance := range resp.Balances {
		balances[ct] = formatAmount(balance)
	}
	return c.JSON(http.StatusOK, WalletsResponse{
		GuildID:  resp.GuildID,
		UserID:   resp.UserID,
		Balances: balances,
	})
}

// Grant 通貨付与ハンドラー（管理API用）
func (h *WalletHandler) Grant(c echo.Context) error {
	return h.adjust(c, h.walletService.Grant)
}

// Take 通貨回収ハンドラー（管理API用）
func (h *WalletHandler) Take(c echo.Context) error {
	return h.adjust(c, h.walletService.Take)
}

func (h *WalletHandler) adjust(c echo.Context, op func(context.Context, *walletapp.AdjustRequest) (*walletapp.AdjustResponse, error)) error {
	guildID, err := pathParam(c, "guild_id")
	if err != nil {
		return err
	}
	userID, err := pathParam(c, "user_id")
	if err != nil {
		return err
	}

	var reqBody AdjustRequest
	if err := c.Bind(&reqBody); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	amount, err := parseAmount(reqBody.Amount)
	if err != nil {
		return err
	}

	resp, err := op(c.Request().Context(), &walletapp.AdjustRequest{
		GuildID:      guildID,
		UserID:       userID,
		CurrencyType: reqBody.CurrencyType,
		Amount:       amount,
		Reason:       reqBody.Reason,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, AdjustResponse{
		EntryID:      resp.EntryID,
		CurrencyType: resp.CurrencyType,
		Amount:       strconv.FormatInt(resp.Amount, 10),
		BalanceAfter: formatAmount(resp.BalanceAfter),
		CreatedAt:    formatTime(resp.CreatedAt),
	})
}
