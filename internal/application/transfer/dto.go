package transfer

// TransferRequest 送金リクエスト
type TransferRequest struct {
	GuildID      string
	FromUserID   string
	ToUserID     string
	CurrencyType string
	Amount       uint64
	Reason       *string
}

// TransferResponse 送金レスポンス
type TransferResponse struct {
	CurrencyType string
	Amount       uint64
	Fee          uint64
	FromBalance  uint64
	ToBalance    uint64
}
