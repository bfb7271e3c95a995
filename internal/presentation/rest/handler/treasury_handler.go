package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	treasuryapp "economy-server/internal/application/treasury"
)

// TreasuryHandler 国庫関連ハンドラー（管理API用）
type TreasuryHandler struct {
	treasuryService *treasuryapp.TreasuryApplicationService
	now             func() time.Time
}

// NewTreasuryHandler 新しいTreasuryHandlerを作成
func NewTreasuryHandler(treasuryService *treasuryapp.TreasuryApplicationService) *TreasuryHandler {
	return &TreasuryHandler{
		treasuryService: treasuryService,
		now:             time.Now,
	}
}

// GetTreasury 国庫残高の取得
func (h *TreasuryHandler) GetTreasury(c echo.Context) error {
	guildID, err := pathParam(c, "guild_id")
	if err != nil {
		return err
	}

	resp, err := h.treasuryService.GetTreasury(c.Request().Context(), &treasuryapp.GetTreasuryRequest{GuildID: guildID})
	if err != nil {
		return err
	}

	accounts := make(map[string]TreasuryAccountResponse, len(resp.Accounts))
	for ct, a := range resp.Accounts {
		accounts[ct] = TreasuryAccountResponse{
			Balance:          formatAmount(a.Balance),
			TotalCollected:   formatAmount(a.TotalCollected),
			TotalDistributed: formatAmount(a.TotalDistributed),
		}
	}
	return c.JSON(http.StatusOK, TreasuryResponse{GuildID: resp.GuildID, Accounts: accounts})
}

// Distribute 国庫からユーザーへの分配
func (h *TreasuryHandler) Distribute(c echo.Context) error {
	guildID, err := pathParam(c, "guild_id")
	if err != nil {
		return err
	}

	var reqBody DistributeRequest
	if err := c.Bind(&reqBody); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	amount, err := parseAmount(reqBody.Amount)
	if err != nil {
		return err
	}

	resp, err := h.treasuryService.Distribute(c.Request().Context(), &treasuryapp.DistributeRequest{
		GuildID:      guildID,
		CurrencyType: reqBody.CurrencyType,
		Amount:       amount,
		TargetUserID: reqBody.TargetUserID,
		Reason:       reqBody.Reason,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, DistributeResponse{
		TreasuryBalance: formatAmount(resp.TreasuryBalance),
		UserBalance:     formatAmount(resp.UserBalance),
	})
}

// ListTransactions 国庫トランザクション一覧
func (h *TreasuryHandler) ListTransactions(c echo.Context) error {
	guildID, err := pathParam(c, "guild_id")
	if err != nil {
		return err
	}
	limit, offset, err := pagination(c, 50, 100)
	if err != nil {
		return err
	}

	resp, err := h.treasuryService.ListTransactions(c.Request().Context(), &treasuryapp.ListTransactionsRequest{
		GuildID: guildID,
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		return err
	}

	items := make([]TreasuryTransactionItem, len(resp.Transactions))
	for i, tx := range resp.Transactions {
		items[i] = TreasuryTransactionItem{
			ID:              tx.ID,
			CurrencyType:    tx.CurrencyType,
			TransactionType: tx.TransactionType,
			Amount:          formatAmount(tx.Amount),
			TargetUserID:    tx.TargetUserID,
			Reason:          tx.Reason,
			CreatedAt:       formatTime(tx.CreatedAt),
		}
	}
	return c.JSON(http.StatusOK, TreasuryTransactionsResponse{
		Transactions: items,
		Limit:        resp.Limit,
		Offset:       resp.Offset,
	})
}

// CollectTax 月次税の手動徴収
// 同じ期間に対して二度目以降はskippedを返す
func (h *TreasuryHandler) CollectTax(c echo.Context) error {
	guildID, err := pathParam(c, "guild_id")
	if err != nil {
		return err
	}

	resp, err := h.treasuryService.CollectMonthlyTax(c.Request().Context(), &treasuryapp.CollectTaxRequest{
		GuildID: guildID,
		Now:     h.now(),
	})
	if err != nil {
		return err
	}

	collected := make(map[string]string, len(resp.Collected))
	for ct, amount := range resp.Collected {
		collected[ct] = formatAmount(amount)
	}
	return c.JSON(http.StatusOK, CollectTaxResponse{
		GuildID:   resp.GuildID,
		Period:    resp.Period,
		Skipped:   resp.Skipped,
		Reason:    resp.Reason,
		Collected: collected,
		Wallets:   resp.Wallets,
	})
}
