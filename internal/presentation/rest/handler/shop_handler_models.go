package handler

// ItemResponse 商品
type ItemResponse struct {
	ID           int64   `json:"id" example:"1"`
	Name         string  `json:"name" example:"색상 변경권"`
	Description  *string `json:"description,omitempty"`
	Price        string  `json:"price" example:"5000"`
	CurrencyType string  `json:"currency_type" example:"topy"`
	DurationDays uint32  `json:"duration_days" example:"0"`
	Stock        *uint32 `json:"stock,omitempty"`
	MaxPerUser   *uint32 `json:"max_per_user,omitempty"`
	Enabled      bool    `json:"enabled" example:"true"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

// ItemsResponse 商品一覧レスポンス
type ItemsResponse struct {
	Items []ItemResponse `json:"items"`
}

// ItemRequest 商品の作成・更新リクエスト（管理API用）
// stockとmax_per_userは省略時に無制限
type ItemRequest struct {
	Name         string  `json:"name"`
	Description  *string `json:"description,omitempty"`
	Price        string  `json:"price" example:"5000"`
	CurrencyType string  `json:"currency_type" example:"topy" enums:"topy,ruby"`
	DurationDays uint32  `json:"duration_days" example:"30"`
	Stock        *uint32 `json:"stock,omitempty"`
	MaxPerUser   *uint32 `json:"max_per_user,omitempty"`
	Enabled      *bool   `json:"enabled,omitempty"`
}

// PurchaseRequest 購入リクエスト
type PurchaseRequest struct {
	Quantity     *uint32 `json:"quantity,omitempty" example:"1"`
	CurrencyType string `json:"currency_type,omitempty" example:"topy"`
}

// UserItemResponse 所持アイテム
type UserItemResponse struct {
	ShopItemID     int64   `json:"shop_item_id" example:"1"`
	Quantity       uint32  `json:"quantity" example:"2"`
	PurchasedCount uint32  `json:"purchased_count" example:"3"`
	ExpiresAt      *string `json:"expires_at,omitempty"`
	Expired        bool    `json:"expired"`
}

// PurchaseResponse 購入レスポンス
type PurchaseResponse struct {
	Item         ItemResponse     `json:"item"`
	UserItem     UserItemResponse `json:"user_item"`
	TotalCost    string           `json:"total_cost" example:"5000"`
	BalanceAfter string           `json:"balance_after" example:"0"`
}

// InventoryResponse 所持品レスポンス
type InventoryResponse struct {
	Items []UserItemResponse `json:"items"`
}
