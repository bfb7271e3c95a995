package ledger

import (
	"errors"
	"time"

	"economy-server/internal/domain/wallet"
)

var (
	// ErrInvalidEntryID エントリIDが無効
	ErrInvalidEntryID = errors.New("invalid entry id")
	// ErrInvalidAmount 変動額が無効
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInvalidTransactionType トランザクションタイプが無効
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	// ErrEntryNotFound エントリが見つからない
	ErrEntryNotFound = errors.New("ledger entry not found")
)

// Entry 残高に影響する1件の出来事を記録する不変の台帳エントリ
type Entry struct {
	id              string
	key             wallet.Key
	transactionType TransactionType
	amount          int64 // 符号付きの変動額
	balanceAfter    uint64
	description     *string
	createdAt       time.Time
}

// NewEntry 新しいEntryを作成
func NewEntry(
	id string,
	key wallet.Key,
	transactionType TransactionType,
	amount int64,
	balanceAfter uint64,
	description *string,
	createdAt time.Time,
) (*Entry, error) {
	if id == "" {
		return nil, ErrInvalidEntryID
	}
	if !transactionType.Valid() {
		return nil, ErrInvalidTransactionType
	}
	if amount == 0 || amount > wallet.MaxAmount || amount < -wallet.MaxAmount {
		return nil, ErrInvalidAmount
	}
	if balanceAfter > wallet.MaxAmount {
		return nil, wallet.ErrBalanceOutOfRange
	}
	if err := wallet.ValidateDescription(description); err != nil {
		return nil, err
	}
	return &Entry{
		id:              id,
		key:             key,
		transactionType: transactionType,
		amount:          amount,
		balanceAfter:    balanceAfter,
		description:     description,
		createdAt:       createdAt,
	}, nil
}

// ID エントリIDを返す
func (e *Entry) ID() string {
	return e.id
}

// Key ウォレットキーを返す
func (e *Entry) Key() wallet.Key {
	return e.key
}

// GuildID ギルドIDを返す
func (e *Entry) GuildID() string {
	return e.key.GuildID
}

// UserID ユーザーIDを返す
func (e *Entry) UserID() string {
	return e.key.UserID
}

// CurrencyType 通貨タイプを返す
func (e *Entry) CurrencyType() wallet.CurrencyType {
	return e.key.CurrencyType
}

// TransactionType トランザクションタイプを返す
func (e *Entry) TransactionType() TransactionType {
	return e.transactionType
}

// Amount 符号付き変動額を返す
func (e *Entry) Amount() int64 {
	return e.amount
}

// BalanceAfter 処理後の残高を返す
func (e *Entry) BalanceAfter() uint64 {
	return e.balanceAfter
}

// Description 説明を返す
func (e *Entry) Description() *string {
	return e.description
}

// CreatedAt 作成日時を返す
func (e *Entry) CreatedAt() time.Time {
	return e.createdAt
}
