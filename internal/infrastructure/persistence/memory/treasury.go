package memory

import (
	"context"

	"economy-server/internal/domain/treasury"
	"economy-server/internal/domain/wallet"
)

// TreasuryRepository メモリ実装のTreasuryRepository
type TreasuryRepository struct{ s *Store }

func (r *TreasuryRepository) find(st *state, guildID string) (*treasury.Treasury, error) {
	row, ok := st.treasuries[guildID]
	if !ok {
		return nil, treasury.ErrTreasuryNotFound
	}
	return treasury.RestoreTreasury(guildID, copyAccounts(row.accounts), row.updatedAt), nil
}

// FindByGuild 国庫を取得
func (r *TreasuryRepository) FindByGuild(ctx context.Context, guildID string) (t *treasury.Treasury, err error) {
	err = r.s.do(ctx, func(st *state) error {
		t, err = r.find(st, guildID)
		return err
	})
	return t, err
}

// FindOrCreateForUpdate 必要に応じて作成して取得
func (r *TreasuryRepository) FindOrCreateForUpdate(ctx context.Context, guildID string) (t *treasury.Treasury, err error) {
	err = r.s.locked(ctx, func(st *state) error {
		if _, ok := st.treasuries[guildID]; !ok {
			created, err := treasury.NewTreasury(guildID)
			if err != nil {
				return err
			}
			st.treasuries[guildID] = treasuryRow{accounts: accountsOf(created), updatedAt: created.UpdatedAt()}
		}
		t, err = r.find(st, guildID)
		return err
	})
	return t, err
}

// Save 国庫の残高と累計を保存
func (r *TreasuryRepository) Save(ctx context.Context, t *treasury.Treasury) error {
	return r.s.do(ctx, func(st *state) error {
		if _, ok := st.treasuries[t.GuildID()]; !ok {
			return treasury.ErrTreasuryNotFound
		}
		st.treasuries[t.GuildID()] = treasuryRow{accounts: accountsOf(t), updatedAt: t.UpdatedAt()}
		return nil
	})
}

// AppendTransaction 国庫トランザクションを追記
func (r *TreasuryRepository) AppendTransaction(ctx context.Context, tx *treasury.Transaction) error {
	return r.s.do(ctx, func(st *state) error {
		st.treasuryTxs = append(st.treasuryTxs, tx)
		return nil
	})
}

// FindTransactions 国庫トランザクションを新しい順に取得
func (r *TreasuryRepository) FindTransactions(ctx context.Context, guildID string, limit, offset int) ([]*treasury.Transaction, error) {
	var page []*treasury.Transaction
	err := r.s.do(ctx, func(st *state) error {
		skipped := 0
		for i := len(st.treasuryTxs) - 1; i >= 0 && len(page) < limit; i-- {
			tx := st.treasuryTxs[i]
			if tx.GuildID() != guildID {
				continue
			}
			if skipped < offset {
				skipped++
				continue
			}
			page = append(page, tx)
		}
		return nil
	})
	return page, err
}

// ClaimTaxRun 対象期間の徴収権を確保する
func (r *TreasuryRepository) ClaimTaxRun(ctx context.Context, guildID, period string) error {
	return r.s.do(ctx, func(st *state) error {
		key := guildID + "/" + period
		if _, ok := st.taxRuns[key]; ok {
			return treasury.ErrTaxAlreadyCollected
		}
		st.taxRuns[key] = struct{}{}
		return nil
	})
}

func accountsOf(t *treasury.Treasury) map[wallet.CurrencyType]treasury.Account {
	accounts := make(map[wallet.CurrencyType]treasury.Account)
	for _, ct := range wallet.AllCurrencyTypes() {
		accounts[ct] = t.Account(ct)
	}
	return accounts
}
