package history

import "time"

// GetHistoryRequest 台帳履歴取得リクエスト
type GetHistoryRequest struct {
	GuildID         string
	UserID          string
	Limit           int
	Offset          int
	CurrencyType    string // optional: "topy" or "ruby"
	TransactionType string // optional: "earn_text", "transfer_send", etc.
}

// EntryDTO 台帳エントリ
type EntryDTO struct {
	ID              string
	CurrencyType    string
	TransactionType string
	Amount          int64
	BalanceAfter    uint64
	Description     *string
	CreatedAt       time.Time
}

// GetHistoryResponse 台帳履歴取得レスポンス
type GetHistoryResponse struct {
	Entries []EntryDTO
	Total   int
	Limit   int
	Offset  int
}
