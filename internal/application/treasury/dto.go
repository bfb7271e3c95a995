package treasury

import "time"

// AccountDTO 通貨ごとの国庫口座
type AccountDTO struct {
	Balance          uint64
	TotalCollected   uint64
	TotalDistributed uint64
}

// GetTreasuryRequest 国庫取得リクエスト
type GetTreasuryRequest struct {
	GuildID string
}

// GetTreasuryResponse 国庫取得レスポンス
type GetTreasuryResponse struct {
	GuildID  string
	Accounts map[string]AccountDTO
}

// DistributeRequest 国庫からの分配リクエスト
type DistributeRequest struct {
	GuildID      string
	CurrencyType string
	Amount       uint64
	TargetUserID string
	Reason       *string
}

// DistributeResponse 国庫からの分配レスポンス
type DistributeResponse struct {
	TreasuryBalance uint64
	UserBalance     uint64
}

// ListTransactionsRequest 国庫トランザクション一覧リクエスト
type ListTransactionsRequest struct {
	GuildID string
	Limit   int
	Offset  int
}

// TransactionDTO 国庫トランザクション
type TransactionDTO struct {
	ID              string
	CurrencyType    string
	TransactionType string
	Amount          uint64
	TargetUserID    *string
	Reason          *string
	CreatedAt       time.Time
}

// ListTransactionsResponse 国庫トランザクション一覧レスポンス
type ListTransactionsResponse struct {
	Transactions []TransactionDTO
	Limit        int
	Offset       int
}

// CollectTaxRequest 月次税徴収リクエスト
type CollectTaxRequest struct {
	GuildID string
	Now     time.Time
}

// CollectTaxResponse 月次税徴収レスポンス
type CollectTaxResponse struct {
	GuildID   string
	Period    string
	Skipped   bool   // 無効または徴収済み
	Reason    string // Skippedの理由
	Collected map[string]uint64
	Wallets   int
}
