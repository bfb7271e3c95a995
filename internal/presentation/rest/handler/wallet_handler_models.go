package handler

// WalletsResponse ウォレット残高レスポンス
type WalletsResponse struct {
	GuildID  string            `json:"guild_id" example:"100000000000000001"`
	UserID   string            `json:"user_id" example:"200000000000000001"`
	Balances map[string]string `json:"balances"`
}

// AdjustRequest 管理者による付与・回収リクエスト
type AdjustRequest struct {
	CurrencyType string  `json:"currency_type" example:"topy" enums:"topy,ruby"`
	Amount       string  `json:"amount" example:"1000"`
	Reason       *string `json:"reason,omitempty" example:"이벤트 보상"`
}

// AdjustResponse 管理者による付与・回収レスポンス
type AdjustResponse struct {
	EntryID      string `json:"entry_id"`
	CurrencyType string `json:"currency_type" example:"topy"`
	Amount       string `json:"amount" example:"-1000"`
	BalanceAfter string `json:"balance_after" example:"4000"`
	CreatedAt    string `json:"created_at" example:"2026-03-10T03:00:00Z"`
}
