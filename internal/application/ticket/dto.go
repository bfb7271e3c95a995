package ticket

import "time"

// RoleOptionInput ロール選択肢の入力
type RoleOptionInput struct {
	RoleID      string
	Name        string
	Description *string
}

// CreateTicketRequest チケット作成リクエスト
type CreateTicketRequest struct {
	GuildID               string
	ShopItemID            int64
	Name                  string
	ConsumeQuantity       uint32
	RemovePreviousRole    bool
	EffectDurationSeconds *uint32
	FixedRoleID           *string
	Options               []RoleOptionInput
}

// RoleOptionDTO ロール選択肢
type RoleOptionDTO struct {
	ID          int64
	RoleID      string
	Name        string
	Description *string
}

// TicketDTO ロール交換チケット
type TicketDTO struct {
	ID                    int64
	GuildID               string
	ShopItemID            int64
	Name                  string
	ConsumeQuantity       uint32
	IsPeriod              bool
	RemovePreviousRole    bool
	EffectDurationSeconds *uint32
	FixedRoleID           *string
	Options               []RoleOptionDTO
}

// ListTicketsRequest チケット一覧リクエスト
type ListTicketsRequest struct {
	GuildID string
}

// ListTicketsResponse チケット一覧レスポンス
type ListTicketsResponse struct {
	Tickets []TicketDTO
}

// ExchangeRoleRequest ロール交換リクエスト
type ExchangeRoleRequest struct {
	GuildID      string
	UserID       string
	TicketID     int64
	RoleOptionID int64
}

// ExchangeRoleResponse ロール交換レスポンス
//
// Warningsはコミット後のロール反映で失敗した内容。交換自体は成立している。
type ExchangeRoleResponse struct {
	NewRoleID         string
	RemovedRoleIDs    []string
	FixedRoleID       *string
	RemainingQuantity uint32
	IsPeriod          bool
	ExpiresAt         *time.Time
	RoleExpiresAt     *time.Time
	Warnings          []string
}

// StartSessionRequest セッション開始リクエスト
type StartSessionRequest struct {
	GuildID string
	UserID  string
}

// SessionRequest セッション操作リクエスト
type SessionRequest struct {
	SessionID string
	UserID    string
}

// SelectTicketRequest チケット選択リクエスト
type SelectTicketRequest struct {
	SessionRequest
	TicketID int64
}

// SelectRoleRequest ロール選択リクエスト
type SelectRoleRequest struct {
	SessionRequest
	RoleOptionID int64
}

// SessionResponse セッションの状態
type SessionResponse struct {
	SessionID    string
	State        string
	TicketID     int64
	RoleOptionID int64
	Deadline     time.Time
	Tickets      []TicketDTO     // チケット選択中: 利用可能なチケット
	Options      []RoleOptionDTO // ロール選択中: 選択肢
	Result       *ExchangeRoleResponse
}

// ExpireRoleGrantsResponse 期限切れロール回収の結果
type ExpireRoleGrantsResponse struct {
	Revoked  int
	Failures int
}
