package handler

// TransferRequest 送金リクエスト
type TransferRequest struct {
	ToUserID     string  `json:"to_user_id" example:"200000000000000002"`
	CurrencyType string  `json:"currency_type" example:"topy" enums:"topy,ruby"`
	Amount       string  `json:"amount" example:"1000"`
	Reason       *string `json:"reason,omitempty"`
}

// TransferResponse 送金レスポンス
type TransferResponse struct {
	CurrencyType string `json:"currency_type" example:"topy"`
	Amount       string `json:"amount" example:"1000"`
	Fee          string `json:"fee" example:"12"`
	FromBalance  string `json:"from_balance" example:"3988"`
	ToBalance    string `json:"to_balance" example:"1000"`
}
