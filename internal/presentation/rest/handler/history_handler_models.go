package handler

// HistoryEntryItem 台帳エントリ
type HistoryEntryItem struct {
	ID              string  `json:"id"`
	CurrencyType    string  `json:"currency_type" example:"topy"`
	TransactionType string  `json:"transaction_type" example:"transfer_send"`
	Amount          string  `json:"amount" example:"-1012"`
	BalanceAfter    string  `json:"balance_after" example:"3988"`
	Description     *string `json:"description,omitempty"`
	CreatedAt       string  `json:"created_at" example:"2026-03-10T03:00:00Z"`
}

// HistoryResponse 台帳履歴レスポンス
type HistoryResponse struct {
	Entries []HistoryEntryItem `json:"entries"`
	Total   int                `json:"total" example:"1"`
	Limit   int                `json:"limit" example:"50"`
	Offset  int                `json:"offset" example:"0"`
}
