package shop

import (
	"errors"
	"fmt"
)

var (
	// ErrItemNotFound 商品が見つからない
	ErrItemNotFound = errors.New("item not found")
	// ErrItemDisabled 商品が販売停止中
	ErrItemDisabled = errors.New("item disabled")
	// ErrInvalidQuantity 購入数量が無効
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrOutOfStock 在庫不足
	ErrOutOfStock = errors.New("out of stock")
	// ErrPurchaseLimitExceeded ユーザーごとの購入上限超過
	ErrPurchaseLimitExceeded = errors.New("purchase limit exceeded")
	// ErrCurrencyMismatch 指定通貨が商品の通貨と異なる
	ErrCurrencyMismatch = errors.New("currency mismatch")
	// ErrInvalidItem 商品定義が無効
	ErrInvalidItem = errors.New("invalid item")
	// ErrUserItemNotFound 所持アイテムが見つからない
	ErrUserItemNotFound = errors.New("user item not found")
	// ErrInsufficientQuantity 所持数量不足
	ErrInsufficientQuantity = errors.New("insufficient quantity")
)

// OutOfStockError 在庫数と要求数を保持する在庫不足エラー
type OutOfStockError struct {
	Available uint32
	Requested uint32
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("out of stock: available %d, requested %d", e.Available, e.Requested)
}

// Unwrap ErrOutOfStockを返す
func (e *OutOfStockError) Unwrap() error {
	return ErrOutOfStock
}

// PurchaseLimitExceededError 上限と累計購入数を保持する購入上限エラー
type PurchaseLimitExceededError struct {
	MaxPerUser   uint32
	CurrentCount uint32
	Requested    uint32
}

func (e *PurchaseLimitExceededError) Error() string {
	return fmt.Sprintf("purchase limit exceeded: max %d, current %d, requested %d", e.MaxPerUser, e.CurrentCount, e.Requested)
}

// Unwrap ErrPurchaseLimitExceededを返す
func (e *PurchaseLimitExceededError) Unwrap() error {
	return ErrPurchaseLimitExceeded
}

// InsufficientQuantityError 必要数と所持数を保持する数量不足エラー
type InsufficientQuantityError struct {
	Required  uint32
	Available uint32
}

func (e *InsufficientQuantityError) Error() string {
	return fmt.Sprintf("insufficient quantity: required %d, available %d", e.Required, e.Available)
}

// Unwrap ErrInsufficientQuantityを返す
func (e *InsufficientQuantityError) Unwrap() error {
	return ErrInsufficientQuantity
}
