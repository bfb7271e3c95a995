package ledger

import (
	"context"
)

// TransactionManager トランザクション管理インターフェース
//
// fnに渡されるctxは実行中のトランザクションを保持しており、リポジトリはそれを通して同一トランザクションで動作する。
// fnがエラーを返した場合はロールバックされる。
type TransactionManager interface {
	// WithTransaction トランザクション内で関数を実行
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
