package shop

import "time"

// ItemDTO 商品
type ItemDTO struct {
	ID           int64
	GuildID      string
	Name         string
	Description  *string
	Price        uint64
	CurrencyType string
	DurationDays uint32
	Stock        *uint32
	MaxPerUser   *uint32
	Enabled      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserItemDTO 所持アイテム
type UserItemDTO struct {
	ShopItemID     int64
	Quantity       uint32
	PurchasedCount uint32
	ExpiresAt      *time.Time
	Expired        bool
}

// ItemInput 商品の作成・更新内容
type ItemInput struct {
	Name         string
	Description  *string
	Price        uint64
	CurrencyType string
	DurationDays uint32
	Stock        *uint32
	MaxPerUser   *uint32
	Enabled      bool
}

// CreateItemRequest 商品作成リクエスト
type CreateItemRequest struct {
	GuildID string
	Item    ItemInput
}

// UpdateItemRequest 商品更新リクエスト
type UpdateItemRequest struct {
	GuildID string
	ItemID  int64
	Item    ItemInput
}

// ListItemsRequest 商品一覧リクエスト
type ListItemsRequest struct {
	GuildID         string
	IncludeDisabled bool
}

// ListItemsResponse 商品一覧レスポンス
type ListItemsResponse struct {
	Items []ItemDTO
}

// InventoryRequest 所持品リクエスト
type InventoryRequest struct {
	GuildID string
	UserID  string
}

// InventoryResponse 所持品レスポンス
type InventoryResponse struct {
	Items []UserItemDTO
}

// PurchaseRequest 購入リクエスト
type PurchaseRequest struct {
	GuildID      string
	UserID       string
	ItemID       int64
	Quantity     *uint32 // nilの場合は1
	CurrencyType string // 任意。指定時は商品の通貨と一致する必要がある
}

// PurchaseResponse 購入レスポンス
type PurchaseResponse struct {
	Item         ItemDTO
	UserItem     UserItemDTO
	TotalCost    uint64
	BalanceAfter uint64
}
