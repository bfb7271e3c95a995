package memory

import (
	"context"

	"economy-server/internal/domain/ledger"
	"economy-server/internal/domain/wallet"
)

// WalletRepository メモリ実装のWalletRepository
type WalletRepository struct{ s *Store }

func (r *WalletRepository) find(st *state, key wallet.Key) (*wallet.Wallet, error) {
	row, ok := st.wallets[key]
	if !ok {
		return nil, wallet.ErrWalletNotFound
	}
	return wallet.RestoreWallet(key, row.balance, row.updatedAt), nil
}

// FindByKey キーでウォレットを取得
func (r *WalletRepository) FindByKey(ctx context.Context, key wallet.Key) (w *wallet.Wallet, err error) {
	err = r.s.do(ctx, func(st *state) error {
		w, err = r.find(st, key)
		return err
	})
	return w, err
}

// FindByUser ユーザーの全通貨ウォレットを取得
func (r *WalletRepository) FindByUser(ctx context.Context, guildID, userID string) ([]*wallet.Wallet, error) {
	var wallets []*wallet.Wallet
	err := r.s.do(ctx, func(st *state) error {
		for _, ct := range wallet.AllCurrencyTypes() {
			key := wallet.Key{GuildID: guildID, UserID: userID, CurrencyType: ct}
			if w, err := r.find(st, key); err == nil {
				wallets = append(wallets, w)
			}
		}
		return nil
	})
	return wallets, err
}

// FindByKeyForUpdate 行ロック付きで取得
func (r *WalletRepository) FindByKeyForUpdate(ctx context.Context, key wallet.Key) (w *wallet.Wallet, err error) {
	err = r.s.locked(ctx, func(st *state) error {
		w, err = r.find(st, key)
		return err
	})
	return w, err
}

// FindOrCreateForUpdate 残高0の行を必要に応じて作成してから取得
func (r *WalletRepository) FindOrCreateForUpdate(ctx context.Context, key wallet.Key) (w *wallet.Wallet, err error) {
	err = r.s.locked(ctx, func(st *state) error {
		if _, ok := st.wallets[key]; !ok {
			st.wallets[key] = walletRow{}
		}
		w, err = r.find(st, key)
		return err
	})
	return w, err
}

// Save 残高を保存
func (r *WalletRepository) Save(ctx context.Context, w *wallet.Wallet) error {
	return r.s.do(ctx, func(st *state) error {
		if _, ok := st.wallets[w.Key()]; !ok {
			return wallet.ErrWalletNotFound
		}
		st.wallets[w.Key()] = walletRow{balance: w.Balance(), updatedAt: w.UpdatedAt()}
		return nil
	})
}

// ListPositive 残高が正のウォレットをユーザーID順にページングして取得
func (r *WalletRepository) ListPositive(ctx context.Context, guildID string, currencyType wallet.CurrencyType, afterUserID string, limit int) ([]*wallet.Wallet, error) {
	var wallets []*wallet.Wallet
	err := r.s.do(ctx, func(st *state) error {
		keys := sortedKeys(st.wallets, func(a, b wallet.Key) bool { return a.Less(b) })
		for _, k := range keys {
			if k.GuildID != guildID || k.CurrencyType != currencyType || k.UserID <= afterUserID {
				continue
			}
			row := st.wallets[k]
			if row.balance == 0 {
				continue
			}
			wallets = append(wallets, wallet.RestoreWallet(k, row.balance, row.updatedAt))
			if len(wallets) == limit {
				break
			}
		}
		return nil
	})
	return wallets, err
}

// LedgerRepository メモリ実装のLedgerRepository
type LedgerRepository struct{ s *Store }

// Append エントリを追記
func (r *LedgerRepository) Append(ctx context.Context, entry *ledger.Entry) error {
	return r.s.do(ctx, func(st *state) error {
		st.entries = append(st.entries, entry)
		return nil
	})
}

// FindByID IDでエントリを取得
func (r *LedgerRepository) FindByID(ctx context.Context, id string) (e *ledger.Entry, err error) {
	err = r.s.do(ctx, func(st *state) error {
		for _, entry := range st.entries {
			if entry.ID() == id {
				e = entry
				return nil
			}
		}
		return ledger.ErrEntryNotFound
	})
	return e, err
}

func (r *LedgerRepository) matching(st *state, guildID, userID string, filter ledger.Filter) []*ledger.Entry {
	var out []*ledger.Entry
	// 追記順の逆 = 新しい順
	for i := len(st.entries) - 1; i >= 0; i-- {
		e := st.entries[i]
		if e.GuildID() != guildID || e.UserID() != userID {
			continue
		}
		if filter.CurrencyType != nil && e.CurrencyType() != *filter.CurrencyType {
			continue
		}
		if filter.TransactionType != nil && e.TransactionType() != *filter.TransactionType {
			continue
		}
		out = append(out, e)
	}
	return out
}

// FindByUser ユーザーのエントリを新しい順に取得
func (r *LedgerRepository) FindByUser(ctx context.Context, guildID, userID string, filter ledger.Filter, limit, offset int) ([]*ledger.Entry, error) {
	var page []*ledger.Entry
	err := r.s.do(ctx, func(st *state) error {
		all := r.matching(st, guildID, userID, filter)
		if offset >= len(all) {
			return nil
		}
		end := offset + limit
		if end > len(all) {
			end = len(all)
		}
		page = all[offset:end]
		return nil
	})
	return page, err
}

// CountByUser ユーザーのエントリ件数を取得
func (r *LedgerRepository) CountByUser(ctx context.Context, guildID, userID string, filter ledger.Filter) (n int, err error) {
	err = r.s.do(ctx, func(st *state) error {
		n = len(r.matching(st, guildID, userID, filter))
		return nil
	})
	return n, err
}
