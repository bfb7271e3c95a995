package handler

// EarnRequest 活動報酬リクエスト
type EarnRequest struct {
	GuildID   string   `json:"guild_id"`
	UserID    string   `json:"user_id"`
	ChannelID string   `json:"channel_id"`
	RoleIDs   []string `json:"role_ids,omitempty"`
	Activity  string   `json:"activity"`
}

// EarnResponse 活動報酬レスポンス
type EarnResponse struct {
	Credited     bool   `json:"credited"`
	SkipReason   string `json:"skip_reason,omitempty"`
	Amount       string `json:"amount"`
	Multiplier   uint32 `json:"multiplier"`
	BalanceAfter string `json:"balance_after,omitempty"`
}

// GetWalletsRequest ウォレット取得リクエスト
type GetWalletsRequest struct {
	GuildID string `json:"guild_id"`
	UserID  string `json:"user_id"`
}

// GetWalletsResponse ウォレット取得レスポンス
type GetWalletsResponse struct {
	GuildID  string            `json:"guild_id"`
	UserID   string            `json:"user_id"`
	Balances map[string]string `json:"balances"`
}

// TransferRequest 送金リクエスト
type TransferRequest struct {
	GuildID      string  `json:"guild_id"`
	FromUserID   string  `json:"from_user_id"`
	ToUserID     string  `json:"to_user_id"`
	CurrencyType string  `json:"currency_type"`
	Amount       string  `json:"amount"`
	Reason       *string `json:"reason,omitempty"`
}

// TransferResponse 送金レスポンス
type TransferResponse struct {
	CurrencyType string `json:"currency_type"`
	Amount       string `json:"amount"`
	Fee          string `json:"fee"`
	FromBalance  string `json:"from_balance"`
	ToBalance    string `json:"to_balance"`
}

// ExchangeRoleRequest ロール交換リクエスト
type ExchangeRoleRequest struct {
	GuildID      string `json:"guild_id"`
	UserID       string `json:"user_id"`
	TicketID     int64  `json:"ticket_id"`
	RoleOptionID int64  `json:"role_option_id"`
}

// ExchangeRoleResponse ロール交換レスポンス
type ExchangeRoleResponse struct {
	NewRoleID         string   `json:"new_role_id"`
	RemovedRoleIDs    []string `json:"removed_role_ids,omitempty"`
	FixedRoleID       *string  `json:"fixed_role_id,omitempty"`
	RemainingQuantity uint32   `json:"remaining_quantity"`
	Warnings          []string `json:"warnings,omitempty"`
}
