package ledger

import (
	"context"

	"economy-server/internal/domain/wallet"
)

// Filter 履歴取得時の絞り込み条件
type Filter struct {
	CurrencyType    *wallet.CurrencyType
	TransactionType *TransactionType
}

// LedgerRepository 台帳リポジトリインターフェース（追記専用）
type LedgerRepository interface {
	// Append エントリを追記
	Append(ctx context.Context, entry *Entry) error

	// FindByID IDでエントリを取得
	FindByID(ctx context.Context, id string) (*Entry, error)

	// FindByUser ユーザーのエントリを新しい順に取得（ページネーション対応）
	FindByUser(ctx context.Context, guildID, userID string, filter Filter, limit, offset int) ([]*Entry, error)

	// CountByUser ユーザーのエントリ件数を取得
	CountByUser(ctx context.Context, guildID, userID string, filter Filter) (int, error)
}
