package wallet

import "context"

// WalletRepository ウォレットリポジトリインターフェース
//
// ForUpdate系のメソッドは実行中のトランザクション内で行ロックを取得する。
type WalletRepository interface {
	// FindByKey キーでウォレットを取得。存在しない場合はErrWalletNotFound
	FindByKey(ctx context.Context, key Key) (*Wallet, error)

	// FindByUser ユーザーの全通貨ウォレットを取得
	FindByUser(ctx context.Context, guildID, userID string) ([]*Wallet, error)

	// FindByKeyForUpdate 行ロック付きで取得。存在しない場合はErrWalletNotFound
	FindByKeyForUpdate(ctx context.Context, key Key) (*Wallet, error)

	// FindOrCreateForUpdate 残高0の行を必要に応じて作成してから行ロック付きで取得
	FindOrCreateForUpdate(ctx context.Context, key Key) (*Wallet, error)

	// Save 残高を保存
	Save(ctx context.Context, w *Wallet) error

	// ListPositive 残高が正のウォレットをユーザーID順にページングして取得
	ListPositive(ctx context.Context, guildID string, currencyType CurrencyType, afterUserID string, limit int) ([]*Wallet, error)
}
