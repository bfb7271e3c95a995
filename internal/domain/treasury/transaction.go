package treasury

import (
	"fmt"
	"time"

	"economy-server/internal/domain/wallet"
)

// TransactionType 国庫トランザクションの種別
type TransactionType string

const (
	TransactionTypeTransferFee     TransactionType = "transfer_fee"     // 送金手数料
	TransactionTypeShopFee         TransactionType = "shop_fee"         // ショップ売上
	TransactionTypeTax             TransactionType = "tax"              // 月次税
	TransactionTypeAdminDistribute TransactionType = "admin_distribute" // 管理者分配
)

// NewTransactionType 新しいTransactionTypeを作成
func NewTransactionType(s string) (TransactionType, error) {
	tt := TransactionType(s)
	if !tt.Valid() {
		return "", fmt.Errorf("%w: %s", ErrInvalidTransactionType, s)
	}
	return tt, nil
}

// String 文字列表現を返す
func (tt TransactionType) String() string {
	return string(tt)
}

// Valid 有効なタイプかどうかを返す
func (tt TransactionType) Valid() bool {
	switch tt {
	case TransactionTypeTransferFee, TransactionTypeShopFee, TransactionTypeTax, TransactionTypeAdminDistribute:
		return true
	default:
		return false
	}
}

// IsCollection 国庫への入金かどうかを返す
func (tt TransactionType) IsCollection() bool {
	return tt != TransactionTypeAdminDistribute
}

// Transaction 追記専用の国庫トランザクション
type Transaction struct {
	id              string
	guildID         string
	currencyType    wallet.CurrencyType
	transactionType TransactionType
	amount          uint64
	targetUserID    *string
	reason          *string
	createdAt       time.Time
}

// NewTransaction 新しい国庫トランザクションを作成
func NewTransaction(
	id string,
	guildID string,
	currencyType wallet.CurrencyType,
	transactionType TransactionType,
	amount uint64,
	targetUserID *string,
	reason *string,
	createdAt time.Time,
) (*Transaction, error) {
	if err := wallet.ValidateGuildID(guildID); err != nil {
		return nil, err
	}
	if !currencyType.Valid() {
		return nil, wallet.ErrInvalidCurrencyType
	}
	if !transactionType.Valid() {
		return nil, ErrInvalidTransactionType
	}
	if amount == 0 {
		return nil, wallet.ErrInvalidAmount
	}
	if err := wallet.ValidateDescription(reason); err != nil {
		return nil, err
	}
	return &Transaction{
		id:              id,
		guildID:         guildID,
		currencyType:    currencyType,
		transactionType: transactionType,
		amount:          amount,
		targetUserID:    targetUserID,
		reason:          reason,
		createdAt:       createdAt,
	}, nil
}

// ID IDを返す
func (t *Transaction) ID() string { return t.id }

// GuildID ギルドIDを返す
func (t *Transaction) GuildID() string { return t.guildID }

// CurrencyType 通貨タイプを返す
func (t *Transaction) CurrencyType() wallet.CurrencyType { return t.currencyType }

// TransactionType 種別を返す
func (t *Transaction) TransactionType() TransactionType { return t.transactionType }

// Amount 金額を返す
func (t *Transaction) Amount() uint64 { return t.amount }

// TargetUserID 対象ユーザーIDを返す
func (t *Transaction) TargetUserID() *string { return t.targetUserID }

// Reason 理由を返す
func (t *Transaction) Reason() *string { return t.reason }

// CreatedAt 作成日時を返す
func (t *Transaction) CreatedAt() time.Time { return t.createdAt }
