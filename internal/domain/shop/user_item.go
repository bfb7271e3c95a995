package shop

import (
	"time"

	"economy-server/internal/domain/wallet"
)

// UserItem ユーザーの所持アイテム（ギルド・ユーザー・商品ごとに1行）
//
// 数量が0になっても行は削除しない。
type UserItem struct {
	guildID        string
	userID         string
	shopItemID     int64
	quantity       uint32
	purchasedCount uint32
	expiresAt      *time.Time
	createdAt      time.Time
	updatedAt      time.Time
}

// NewUserItem 数量0の所持アイテムを作成
func NewUserItem(guildID, userID string, shopItemID int64) (*UserItem, error) {
	if err := wallet.ValidateGuildID(guildID); err != nil {
		return nil, err
	}
	if err := wallet.ValidateUserID(userID); err != nil {
		return nil, err
	}
	now := time.Now()
	return &UserItem{
		guildID:    guildID,
		userID:     userID,
		shopItemID: shopItemID,
		createdAt:  now,
		updatedAt:  now,
	}, nil
}

// RestoreUserItem 永続化された値から所持アイテムを復元
func RestoreUserItem(
	guildID, userID string,
	shopItemID int64,
	quantity, purchasedCount uint32,
	expiresAt *time.Time,
	createdAt, updatedAt time.Time,
) *UserItem {
	return &UserItem{
		guildID:        guildID,
		userID:         userID,
		shopItemID:     shopItemID,
		quantity:       quantity,
		purchasedCount: purchasedCount,
		expiresAt:      expiresAt,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}
}

// GuildID ギルドIDを返す
func (u *UserItem) GuildID() string { return u.guildID }

// UserID ユーザーIDを返す
func (u *UserItem) UserID() string { return u.userID }

// ShopItemID 商品IDを返す
func (u *UserItem) ShopItemID() int64 { return u.shopItemID }

// Quantity 所持数量を返す
func (u *UserItem) Quantity() uint32 { return u.quantity }

// PurchasedCount 累計購入数を返す
func (u *UserItem) PurchasedCount() uint32 { return u.purchasedCount }

// ExpiresAt 有効期限を返す（nil = 永続）
func (u *UserItem) ExpiresAt() *time.Time { return u.expiresAt }

// CreatedAt 作成日時を返す
func (u *UserItem) CreatedAt() time.Time { return u.createdAt }

// UpdatedAt 更新日時を返す
func (u *UserItem) UpdatedAt() time.Time { return u.updatedAt }

// IsExpired 有効期限切れかどうかを返す
func (u *UserItem) IsExpired(now time.Time) bool {
	return u.expiresAt != nil && !now.Before(*u.expiresAt)
}

// AddPurchase 購入分の数量を加算し、有効期限を延長する
func (u *UserItem) AddPurchase(quantity, durationDays uint32, now time.Time) {
	u.quantity += quantity
	u.purchasedCount += quantity
	u.expiresAt = ExtendExpiry(u.expiresAt, now, durationDays, quantity)
	u.updatedAt = now
}

// Consume 数量を消費する
func (u *UserItem) Consume(quantity uint32) error {
	if quantity == 0 {
		return nil
	}
	if u.quantity < quantity {
		return &InsufficientQuantityError{Required: quantity, Available: u.quantity}
	}
	u.quantity -= quantity
	u.updatedAt = time.Now()
	return nil
}
