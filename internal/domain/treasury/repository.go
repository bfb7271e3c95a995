package treasury

import (
	"context"
)

// TreasuryRepository 国庫リポジトリインターフェース
type TreasuryRepository interface {
	// FindByGuild 国庫を取得。存在しない場合はErrTreasuryNotFound
	FindByGuild(ctx context.Context, guildID string) (*Treasury, error)

	// FindOrCreateForUpdate 必要に応じて作成し、行ロック付きで取得
	FindOrCreateForUpdate(ctx context.Context, guildID string) (*Treasury, error)

	// Save 国庫の残高と累計を保存
	Save(ctx context.Context, t *Treasury) error

	// AppendTransaction 国庫トランザクションを追記
	AppendTransaction(ctx context.Context, tx *Transaction) error

	// FindTransactions 国庫トランザクションを新しい順に取得
	FindTransactions(ctx context.Context, guildID string, limit, offset int) ([]*Transaction, error)

	// ClaimTaxRun 対象期間の徴収権を確保する。既に確保済みならErrTaxAlreadyCollected
	ClaimTaxRun(ctx context.Context, guildID, period string) error
}
