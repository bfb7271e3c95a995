package wallet

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientBalance 残高不足エラー
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInvalidAmount 無効な金額エラー
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrAmountTooLarge 金額が大きすぎる
	ErrAmountTooLarge = errors.New("amount too large")
	// ErrBalanceOutOfRange 残高が範囲外
	ErrBalanceOutOfRange = errors.New("balance out of range")
	// ErrInvalidGuildID ギルドIDが無効
	ErrInvalidGuildID = errors.New("invalid guild id")
	// ErrInvalidUserID ユーザーIDが無効
	ErrInvalidUserID = errors.New("invalid user id")
	// ErrInvalidCurrencyType 通貨タイプが無効
	ErrInvalidCurrencyType = errors.New("invalid currency type")
	// ErrInvalidDescription 説明文が長すぎる
	ErrInvalidDescription = errors.New("invalid description")
	// ErrWalletNotFound ウォレットが見つからない
	ErrWalletNotFound = errors.New("wallet not found")
)

// InsufficientBalanceError 必要額と利用可能額を保持する残高不足エラー
type InsufficientBalanceError struct {
	Required  uint64
	Available uint64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: required %d, available %d", e.Required, e.Available)
}

// Unwrap ErrInsufficientBalanceを返す
func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}
