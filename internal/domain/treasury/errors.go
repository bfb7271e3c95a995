package treasury

import "errors"

var (
	// ErrTreasuryNotFound 国庫が見つからない
	ErrTreasuryNotFound = errors.New("treasury not found")
	// ErrInvalidTransactionType 国庫トランザクションタイプが無効
	ErrInvalidTransactionType = errors.New("invalid treasury transaction type")
	// ErrTaxAlreadyCollected 対象期間の税は徴収済み
	ErrTaxAlreadyCollected = errors.New("tax already collected for period")
)
