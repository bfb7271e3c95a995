package wallet

import "time"

// GetWalletsRequest ウォレット取得リクエスト
type GetWalletsRequest struct {
	GuildID string
	UserID  string
}

// GetWalletsResponse ウォレット取得レスポンス
type GetWalletsResponse struct {
	GuildID  string
	UserID   string
	Balances map[string]uint64 // "topy" => 1000, "ruby" => 5
}

// AdjustRequest 管理者による付与・回収リクエスト
type AdjustRequest struct {
	GuildID      string
	UserID       string
	CurrencyType string
	Amount       uint64
	Reason       *string
}

// AdjustResponse 管理者による付与・回収レスポンス
type AdjustResponse struct {
	EntryID      string
	CurrencyType string
	Amount       int64
	BalanceAfter uint64
	CreatedAt    time.Time
}
