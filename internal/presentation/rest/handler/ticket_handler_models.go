package handler

// RoleOptionResponse ロール選択肢
type RoleOptionResponse struct {
	ID          int64   `json:"id" example:"1"`
	RoleID      string  `json:"role_id" example:"300000000000000001"`
	Name        string  `json:"name" example:"빨강"`
	Description *string `json:"description,omitempty"`
}

// TicketResponse ロール交換チケット
type TicketResponse struct {
	ID                    int64                `json:"id" example:"1"`
	ShopItemID            int64                `json:"shop_item_id" example:"1"`
	Name                  string               `json:"name" example:"색상 변경권"`
	ConsumeQuantity       uint32               `json:"consume_quantity" example:"1"`
	IsPeriod              bool                 `json:"is_period"`
	RemovePreviousRole    bool                 `json:"remove_previous_role"`
	EffectDurationSeconds *uint32              `json:"effect_duration_seconds,omitempty"`
	FixedRoleID           *string              `json:"fixed_role_id,omitempty"`
	Options               []RoleOptionResponse `json:"options"`
}

// TicketsResponse チケット一覧レスポンス
type TicketsResponse struct {
	Tickets []TicketResponse `json:"tickets"`
}

// RoleOptionRequest ロール選択肢の入力
type RoleOptionRequest struct {
	RoleID      string  `json:"role_id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

// CreateTicketRequest チケット作成リクエスト（管理API用）
type CreateTicketRequest struct {
	ShopItemID            int64               `json:"shop_item_id"`
	Name                  string              `json:"name"`
	ConsumeQuantity       uint32              `json:"consume_quantity" example:"1"`
	RemovePreviousRole    bool                `json:"remove_previous_role"`
	EffectDurationSeconds *uint32             `json:"effect_duration_seconds,omitempty"`
	FixedRoleID           *string             `json:"fixed_role_id,omitempty"`
	Options               []RoleOptionRequest `json:"options"`
}

// ExchangeRoleRequest ロール交換リクエスト
type ExchangeRoleRequest struct {
	RoleOptionID int64 `json:"role_option_id" example:"1"`
}

// ExchangeRoleResponse ロール交換レスポンス
type ExchangeRoleResponse struct {
	NewRoleID         string   `json:"new_role_id"`
	RemovedRoleIDs    []string `json:"removed_role_ids"`
	FixedRoleID       *string  `json:"fixed_role_id,omitempty"`
	RemainingQuantity uint32   `json:"remaining_quantity"`
	IsPeriod          bool     `json:"is_period"`
	ExpiresAt         *string  `json:"expires_at,omitempty"`
	RoleExpiresAt     *string  `json:"role_expires_at,omitempty"`
	Warnings          []string `json:"warnings,omitempty"`
}

// SelectTicketRequest チケット選択リクエスト
type SelectTicketRequest struct {
	TicketID int64 `json:"ticket_id" example:"1"`
}

// SelectRoleRequest ロール選択リクエスト
type SelectRoleRequest struct {
	RoleOptionID int64 `json:"role_option_id" example:"1"`
}

// SessionResponse 交換セッションの状態
type SessionResponse struct {
	SessionID    string                `json:"session_id"`
	State        string                `json:"state" example:"SELECTING_TICKET"`
	TicketID     int64                 `json:"ticket_id,omitempty"`
	RoleOptionID int64                 `json:"role_option_id,omitempty"`
	Deadline     string                `json:"deadline"`
	Tickets      []TicketResponse      `json:"tickets,omitempty"`
	Options      []RoleOptionResponse  `json:"options,omitempty"`
	Result       *ExchangeRoleResponse `json:"result,omitempty"`
}

// ExpireRoleGrantsResponse 期限切れロール回収の結果
type ExpireRoleGrantsResponse struct {
	Revoked  int `json:"revoked"`
	Failures int `json:"failures"`
}
