package ledger

import (
	"fmt"
)

// TransactionType 台帳エントリの種別を表す値オブジェクト
type TransactionType string

const (
	TransactionTypeEarnText        TransactionType = "earn_text"        // テキスト活動報酬
	TransactionTypeEarnVoice       TransactionType = "earn_voice"       // ボイス活動報酬
	TransactionTypeTransferSend    TransactionType = "transfer_send"    // 送金（手数料込み）
	TransactionTypeTransferReceive TransactionType = "transfer_receive" // 受取
	TransactionTypeShopPurchase    TransactionType = "shop_purchase"    // ショップ購入
	TransactionTypeAdminGrant      TransactionType = "admin_grant"      // 管理者付与
	TransactionTypeAdminTake       TransactionType = "admin_take"       // 管理者回収
	TransactionTypeAdminDistribute TransactionType = "admin_distribute" // 国庫からの分配
	TransactionTypeTax             TransactionType = "tax"              // 月次税
)

var transactionTypes = map[TransactionType]struct{}{
	TransactionTypeEarnText:        {},
	TransactionTypeEarnVoice:       {},
	TransactionTypeTransferSend:    {},
	TransactionTypeTransferReceive: {},
	TransactionTypeShopPurchase:    {},
	TransactionTypeAdminGrant:      {},
	TransactionTypeAdminTake:       {},
	TransactionTypeAdminDistribute: {},
	TransactionTypeTax:             {},
}

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

// Valid 有効なトランザクションタイプかどうかを返す
func (tt TransactionType) Valid() bool {
	_, ok := transactionTypes[tt]
	return ok
}
