package shop

import (
	"fmt"
	"time"

	"economy-server/internal/domain/wallet"
)

const (
	// MinQuantity 1回の購入数量の下限
	MinQuantity = 1
	// MaxQuantity 1回の購入数量の上限
	MaxQuantity = 99
	// MaxNameLength 商品名の最大長
	MaxNameLength = 100
)

// ItemSpec 管理者が編集できる商品定義
type ItemSpec struct {
	Name         string
	Description  *string
	Price        uint64
	CurrencyType wallet.CurrencyType
	DurationDays uint32  // 0 = 永続
	Stock        *uint32 // nil = 無制限
	MaxPerUser   *uint32 // nil = 無制限
	Enabled      bool
}

// Validate 商品定義を検証
func (s ItemSpec) Validate() error {
	if s.Name == "" || len([]rune(s.Name)) > MaxNameLength {
		return fmt.Errorf("%w: name must be 1-%d characters", ErrInvalidItem, MaxNameLength)
	}
	if s.Price == 0 || s.Price > wallet.MaxAmount {
		return fmt.Errorf("%w: price out of range", ErrInvalidItem)
	}
	if !s.CurrencyType.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidItem, wallet.ErrInvalidCurrencyType)
	}
	if s.MaxPerUser != nil && *s.MaxPerUser == 0 {
		return fmt.Errorf("%w: max per user must be positive", ErrInvalidItem)
	}
	return nil
}

// Item ショップ商品エンティティ
type Item struct {
	id        int64
	guildID   string
	spec      ItemSpec
	createdAt time.Time
	updatedAt time.Time
}

// NewItem 新しい商品を作成（IDは永続化時に採番）
func NewItem(guildID string, spec ItemSpec) (*Item, error) {
	if err := wallet.ValidateGuildID(guildID); err != nil {
		return nil, err
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	now := time.Now()
	return &Item{guildID: guildID, spec: spec, createdAt: now, updatedAt: now}, nil
}

// RestoreItem 永続化された値から商品を復元
func RestoreItem(id int64, guildID string, spec ItemSpec, createdAt, updatedAt time.Time) *Item {
	return &Item{id: id, guildID: guildID, spec: spec, createdAt: createdAt, updatedAt: updatedAt}
}

// ID 商品IDを返す
func (i *Item) ID() int64 { return i.id }

// SetID 採番されたIDを設定
func (i *Item) SetID(id int64) { i.id = id }

// GuildID ギルドIDを返す
func (i *Item) GuildID() string { return i.guildID }

// Spec 商品定義を返す
func (i *Item) Spec() ItemSpec { return i.spec }

// Name 商品名を返す
func (i *Item) Name() string { return i.spec.Name }

// Price 単価を返す
func (i *Item) Price() uint64 { return i.spec.Price }

// CurrencyType 通貨タイプを返す
func (i *Item) CurrencyType() wallet.CurrencyType { return i.spec.CurrencyType }

// DurationDays 有効日数を返す（0 = 永続）
func (i *Item) DurationDays() uint32 { return i.spec.DurationDays }

// Stock 在庫数を返す（nil = 無制限）
func (i *Item) Stock() *uint32 { return i.spec.Stock }

// MaxPerUser ユーザーごとの購入上限を返す（nil = 無制限）
func (i *Item) MaxPerUser() *uint32 { return i.spec.MaxPerUser }

// Enabled 販売中かどうかを返す
func (i *Item) Enabled() bool { return i.spec.Enabled }

// CreatedAt 作成日時を返す
func (i *Item) CreatedAt() time.Time { return i.createdAt }

// UpdatedAt 更新日時を返す
func (i *Item) UpdatedAt() time.Time { return i.updatedAt }

// Update 商品定義を更新する。既存の所持アイテムの期限には影響しない
func (i *Item) Update(spec ItemSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	i.spec = spec
	i.updatedAt = time.Now()
	return nil
}

// CheckPurchase 販売状態・数量・在庫・購入上限を順に検証する
//
// purchasedCountはユーザーの累計購入数。
func (i *Item) CheckPurchase(quantity uint32, purchasedCount uint32) error {
	if !i.spec.Enabled {
		return ErrItemDisabled
	}
	if quantity < MinQuantity || quantity > MaxQuantity {
		return ErrInvalidQuantity
	}
	if i.spec.Stock != nil && *i.spec.Stock < quantity {
		return &OutOfStockError{Available: *i.spec.Stock, Requested: quantity}
	}
	if i.spec.MaxPerUser != nil && uint64(purchasedCount)+uint64(quantity) > uint64(*i.spec.MaxPerUser) {
		return &PurchaseLimitExceededError{
			MaxPerUser:   *i.spec.MaxPerUser,
			CurrentCount: purchasedCount,
			Requested:    quantity,
		}
	}
	return nil
}

// TotalCost 合計金額を返す
func (i *Item) TotalCost(quantity uint32) (uint64, error) {
	if quantity < MinQuantity || quantity > MaxQuantity {
		return 0, ErrInvalidQuantity
	}
	// price <= MaxAmount, quantity <= 99 なので溢れない
	total := i.spec.Price * uint64(quantity)
	if total > wallet.MaxAmount {
		return 0, wallet.ErrAmountTooLarge
	}
	return total, nil
}

// ReserveStock 在庫を減らす。在庫無制限の場合は何もしない
func (i *Item) ReserveStock(quantity uint32) error {
	if i.spec.Stock == nil {
		return nil
	}
	if *i.spec.Stock < quantity {
		return &OutOfStockError{Available: *i.spec.Stock, Requested: quantity}
	}
	remaining := *i.spec.Stock - quantity
	i.spec.Stock = &remaining
	i.updatedAt = time.Now()
	return nil
}

// MustNewItem テスト用ヘルパー: NewItemを呼び出し、エラーが発生した場合はpanicする
func MustNewItem(id int64, guildID string, spec ItemSpec) *Item {
	item, err := NewItem(guildID, spec)
	if err != nil {
		panic(err)
	}
	item.SetID(id)
	return item
}
