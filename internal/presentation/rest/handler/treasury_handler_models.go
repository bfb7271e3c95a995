package handler

// TreasuryAccountResponse 通貨ごとの国庫口座
type TreasuryAccountResponse struct {
	Balance          string `json:"balance" example:"1200"`
	TotalCollected   string `json:"total_collected" example:"1500"`
	TotalDistributed string `json:"total_distributed" example:"300"`
}

// TreasuryResponse 国庫レスポンス
type TreasuryResponse struct {
	GuildID  string                             `json:"guild_id"`
	Accounts map[string]TreasuryAccountResponse `json:"accounts"`
}

// DistributeRequest 国庫からの分配リクエスト
type DistributeRequest struct {
	CurrencyType string  `json:"currency_type" example:"topy"`
	Amount       string  `json:"amount" example:"500"`
	TargetUserID string  `json:"target_user_id" example:"200000000000000001"`
	Reason       *string `json:"reason,omitempty"`
}

// DistributeResponse 国庫からの分配レスポンス
type DistributeResponse struct {
	TreasuryBalance string `json:"treasury_balance" example:"700"`
	UserBalance     string `json:"user_balance" example:"500"`
}

// TreasuryTransactionItem 国庫トランザクション
type TreasuryTransactionItem struct {
	ID              string  `json:"id"`
	CurrencyType    string  `json:"currency_type" example:"topy"`
	TransactionType string  `json:"transaction_type" example:"transfer_fee"`
	Amount          string  `json:"amount" example:"12"`
	TargetUserID    *string `json:"target_user_id,omitempty"`
	Reason          *string `json:"reason,omitempty"`
	CreatedAt       string  `json:"created_at"`
}

// TreasuryTransactionsResponse 国庫トランザクション一覧レスポンス
type TreasuryTransactionsResponse struct {
	Transactions []TreasuryTransactionItem `json:"transactions"`
	Limit        int                       `json:"limit" example:"50"`
	Offset       int                       `json:"offset" example:"0"`
}

// CollectTaxResponse 月次税徴収レスポンス
type CollectTaxResponse struct {
	GuildID   string            `json:"guild_id"`
	Period    string            `json:"period" example:"2026-03"`
	Skipped   bool              `json:"skipped"`
	Reason    string            `json:"reason,omitempty" example:"already_collected"`
	Collected map[string]string `json:"collected"`
	Wallets   int               `json:"wallets"`
}
