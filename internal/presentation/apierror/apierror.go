// Package apierror ドメインエラーとAPIのステータス・エラーコードの対応
package apierror

import (
	"errors"
	"net/http"

	authapp "economy-server/internal/application/auth"
	transferapp "economy-server/internal/application/transfer"
	"economy-server/internal/domain/earn"
	"economy-server/internal/domain/ledger"
	"economy-server/internal/domain/settings"
	"economy-server/internal/domain/shop"
	"economy-server/internal/domain/ticket"
	"economy-server/internal/domain/treasury"
	"economy-server/internal/domain/wallet"
)

// domainError ドメインエラーとHTTPレスポンスの対応
type domainError struct {
	err    error
	status int
	code   string
}

// 先頭から順に評価する。詳細を持つエラーはdetailsで展開される
var domainErrors = []domainError{
	{transferapp.ErrSelfTransfer, http.StatusBadRequest, "SELF_TRANSFER"},
	{transferapp.ErrInvalidAmount, http.StatusBadRequest, "INVALID_AMOUNT"},
	{wallet.ErrInvalidAmount, http.StatusBadRequest, "INVALID_AMOUNT"},
	{wallet.ErrAmountTooLarge, http.StatusBadRequest, "INVALID_AMOUNT"},
	{wallet.ErrInsufficientBalance, http.StatusConflict, "INSUFFICIENT_BALANCE"},
	{wallet.ErrBalanceOutOfRange, http.StatusConflict, "BALANCE_OUT_OF_RANGE"},
	{wallet.ErrInvalidGuildID, http.StatusBadRequest, "INVALID_GUILD_ID"},
	{wallet.ErrInvalidUserID, http.StatusBadRequest, "INVALID_USER_ID"},
	{wallet.ErrInvalidCurrencyType, http.StatusBadRequest, "INVALID_CURRENCY_TYPE"},
	{wallet.ErrWalletNotFound, http.StatusNotFound, "WALLET_NOT_FOUND"},
	{wallet.ErrInvalidDescription, http.StatusBadRequest, "INVALID_DESCRIPTION"},
	{ledger.ErrInvalidAmount, http.StatusBadRequest, "INVALID_AMOUNT"},
	{ledger.ErrInvalidTransactionType, http.StatusBadRequest, "INVALID_TRANSACTION_TYPE"},
	{shop.ErrItemNotFound, http.StatusNotFound, "ITEM_NOT_FOUND"},
	{shop.ErrItemDisabled, http.StatusConflict, "ITEM_DISABLED"},
	{shop.ErrInvalidQuantity, http.StatusBadRequest, "INVALID_QUANTITY"},
	{shop.ErrOutOfStock, http.StatusConflict, "OUT_OF_STOCK"},
	{shop.ErrPurchaseLimitExceeded, http.StatusConflict, "PURCHASE_LIMIT_EXCEEDED"},
	{shop.ErrCurrencyMismatch, http.StatusBadRequest, "CURRENCY_MISMATCH"},
	{shop.ErrInvalidItem, http.StatusBadRequest, "INVALID_ITEM"},
	{shop.ErrUserItemNotFound, http.StatusConflict, "ITEM_NOT_OWNED"},
	{shop.ErrInsufficientQuantity, http.StatusConflict, "INSUFFICIENT_QUANTITY"},
	{ticket.ErrTicketNotFound, http.StatusNotFound, "TICKET_NOT_FOUND"},
	{ticket.ErrRoleOptionNotFound, http.StatusNotFound, "ROLE_OPTION_NOT_FOUND"},
	{ticket.ErrItemNotOwned, http.StatusConflict, "ITEM_NOT_OWNED"},
	{ticket.ErrItemExpired, http.StatusConflict, "ITEM_EXPIRED"},
	{ticket.ErrInvalidTicket, http.StatusBadRequest, "INVALID_TICKET"},
	{ticket.ErrInvalidTransition, http.StatusConflict, "INVALID_TRANSITION"},
	{ticket.ErrSessionExpired, http.StatusGone, "SESSION_EXPIRED"},
	{ticket.ErrSessionNotFound, http.StatusNotFound, "SESSION_NOT_FOUND"},
	{earn.ErrInvalidActivityType, http.StatusBadRequest, "INVALID_ACTIVITY_TYPE"},
	{earn.ErrInvalidScope, http.StatusBadRequest, "INVALID_RULE"},
	{earn.ErrInvalidMultiplier, http.StatusBadRequest, "INVALID_RULE"},
	{earn.ErrInvalidTimeWindow, http.StatusBadRequest, "INVALID_RULE"},
	{earn.ErrInvalidTarget, http.StatusBadRequest, "INVALID_RULE"},
	{earn.ErrRuleNotFound, http.StatusNotFound, "RULE_NOT_FOUND"},
	{treasury.ErrTaxAlreadyCollected, http.StatusConflict, "TAX_ALREADY_COLLECTED"},
	{settings.ErrInvalidSettings, http.StatusBadRequest, "INVALID_SETTINGS"},
	{authapp.ErrInvalidToken, http.StatusUnauthorized, "UNAUTHORIZED"},
}

// Classification エラーの分類結果
type Classification struct {
	Status  int
	Code    string
	Details map[string]interface{}
}

// Classify 既知のドメインエラーを分類する。未知のエラーはfalse
func Classify(err error) (Classification, bool) {
	for _, de := range domainErrors {
		if errors.Is(err, de.err) {
			return Classification{Status: de.status, Code: de.code, Details: details(err)}, true
		}
	}
	return Classification{}, false
}

// details 詳細付きエラーの値を取り出す
func details(err error) map[string]interface{} {
	var (
		balance  *wallet.InsufficientBalanceError
		stock    *shop.OutOfStockError
		limit    *shop.PurchaseLimitExceededError
		quantity *shop.InsufficientQuantityError
	)
	switch {
	case errors.As(err, &balance):
		return map[string]interface{}{"required": balance.Required, "available": balance.Available}
	case errors.As(err, &stock):
		return map[string]interface{}{"available": stock.Available, "requested": stock.Requested}
	case errors.As(err, &limit):
		return map[string]interface{}{
			"max_per_user":  limit.MaxPerUser,
			"current_count": limit.CurrentCount,
			"requested":     limit.Requested,
		}
	case errors.As(err, &quantity):
		return map[string]interface{}{"required": quantity.Required, "available": quantity.Available}
	default:
		return nil
	}
}
