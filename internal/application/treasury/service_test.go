package treasury

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"economy-server/internal/application/apptest"
	"economy-server/internal/domain/ledger"
	"economy-server/internal/domain/settings"
	"economy-server/internal/domain/wallet"
)

func newService(f *apptest.Fixture) *TreasuryApplicationService {
	return NewTreasuryApplicationService(
		f.Store.Treasuries(),
		f.Store.Wallets(),
		f.Store.Settings(),
		f.Store,
		f.Ledger,
		f.Logger,
		f.Metrics,
	)
}

func enableTax(t *testing.T, f *apptest.Fixture, guildID string, bps uint32) {
	t.Helper()
	cfg := settings.Default()
	cfg.MonthlyTaxEnabled = true
	cfg.MonthlyTaxBps = bps
	require.NoError(t, f.Store.Settings().Save(context.Background(), guildID, cfg))
}

func TestTreasuryApplicationService_GetTreasury(t *testing.T) {
	f := apptest.New(t)
	s := newService(f)
	ctx := context.Background()

	t.Run("正常系: 未作成の国庫は0", func(t *testing.T) {
		resp, err := s.GetTreasury(ctx, &GetTreasuryRequest{GuildID: apptest.GuildID})
		require.NoError(t, err)
		assert.Equal(t, AccountDTO{}, resp.Accounts["topy"])
		assert.Equal(t, AccountDTO{}, resp.Accounts["ruby"])
	})

	t.Run("正常系: 徴収後の残高と累計", func(t *testing.T) {
		f.SeedTreasury(t, apptest.GuildID, wallet.CurrencyTypeTopy, 500)
		resp, err := s.GetTreasury(ctx, &GetTreasuryRequest{GuildID: apptest.GuildID})
		require.NoError(t, err)
		assert.Equal(t, AccountDTO{Balance: 500, TotalCollected: 500}, resp.Accounts["topy"])
	})

	t.Run("異常系: 無効なギルドID", func(t *testing.T) {
		_, err := s.GetTreasury(ctx, &GetTreasuryRequest{GuildID: "guild"})
		assert.ErrorIs(t, err, wallet.ErrInvalidGuildID)
	})
}

func TestTreasuryApplicationService_Distribute(t *testing.T) {
	ctx := context.Background()
	reason := "event reward"

	tests := []struct {
		name        string
		seed        uint64
		amount      uint64
		wantErr     error
		wantBalance uint64
	}{
		{name: "正常系: 国庫から分配", seed: 1_000, amount: 300, wantBalance: 700},
		{name: "正常系: 全額分配", seed: 1_000, amount: 1_000, wantBalance: 0},
		{name: "異常系: 国庫残高不足", seed: 100, amount: 101, wantErr: wallet.ErrInsufficientBalance, wantBalance: 100},
		{name: "異常系: 金額0", seed: 100, amount: 0, wantErr: wallet.ErrInvalidAmount, wantBalance: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := apptest.New(t)
			s := newService(f)
			f.SeedTreasury(t, apptest.GuildID, wallet.CurrencyTypeTopy, tt.seed)

			resp, err := s.Distribute(ctx, &DistributeRequest{
				GuildID:      apptest.GuildID,
				CurrencyType: "topy",
				Amount:       tt.amount,
				TargetUserID: apptest.Alice,
				Reason:       &reason,
			})

			acc := f.Treasury(t, apptest.GuildID, wallet.CurrencyTypeTopy)
			assert.Equal(t, tt.wantBalance, acc.Balance)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, uint64(0), f.Balance(t, apptest.GuildID, apptest.Alice, wallet.CurrencyTypeTopy))
				assert.Zero(t, acc.TotalDistributed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBalance, resp.TreasuryBalance)
			assert.Equal(t, tt.amount, resp.UserBalance)
			assert.Equal(t, tt.amount, acc.TotalDistributed)
			assert.Equal(t, tt.seed, acc.TotalCollected)

			entries := f.Entries(t, apptest.GuildID, apptest.Alice)
			require.Len(t, entries, 1)
			assert.Equal(t, ledger.TransactionTypeAdminDistribute, entries[0].TransactionType())
			assert.Equal(t, int64(tt.amount), entries[0].Amount())
			assert.Equal(t, &reason, entries[0].Description())
		})
	}
}

func TestTreasuryApplicationService_Distribute_InsufficientDetail(t *testing.T) {
	f := apptest.New(t)
	s := newService(f)
	f.SeedTreasury(t, apptest.GuildID, wallet.CurrencyTypeRuby, 5)

	_, err := s.Distribute(context.Background(), &DistributeRequest{
		GuildID:      apptest.GuildID,
		CurrencyType: "ruby",
		Amount:       8,
		TargetUserID: apptest.Bob,
	})

	var insufficient *wallet.InsufficientBalanceError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, uint64(8), insufficient.Required)
	assert.Equal(t, uint64(5), insufficient.Available)
}

func TestTreasuryApplicationService_Distribute_ReasonTooLong(t *testing.T) {
	f := apptest.New(t)
	s := newService(f)
	f.SeedTreasury(t, apptest.GuildID, wallet.CurrencyTypeTopy, 500)
	reason := strings.Repeat("r", wallet.MaxDescriptionLength+1)

	resp, err := s.Distribute(context.Background(), &DistributeRequest{
		GuildID:      apptest.GuildID,
		CurrencyType: "topy",
		Amount:       100,
		TargetUserID: apptest.Bob,
		Reason:       &reason,
	})

	assert.ErrorIs(t, err, wallet.ErrInvalidDescription)
	assert.Nil(t, resp)
	assert.Equal(t, uint64(500), f.Treasury(t, apptest.GuildID, wallet.CurrencyTypeTopy).Balance)
	assert.Equal(t, uint64(0), f.Balance(t, apptest.GuildID, apptest.Bob, wallet.CurrencyTypeTopy))
}

func TestTreasuryApplicationService_ListTransactions(t *testing.T) {
	f := apptest.New(t)
	s := newService(f)
	ctx := context.Background()

	f.SeedTreasury(t, apptest.GuildID, wallet.CurrencyTypeTopy, 1_000)
	_, err := s.Distribute(ctx, &DistributeRequest{
		GuildID: apptest.GuildID, CurrencyType: "topy", Amount: 200, TargetUserID: apptest.Alice,
	})
	require.NoError(t, err)

	resp, err := s.ListTransactions(ctx, &ListTransactionsRequest{GuildID: apptest.GuildID})
	require.NoError(t, err)
	require.Len(t, resp.Transactions, 2)
	assert.Equal(t, 50, resp.Limit)
	assert.Equal(t, "admin_distribute", resp.Transactions[0].TransactionType)
	require.NotNil(t, resp.Transactions[0].TargetUserID)
	assert.Equal(t, apptest.Alice, *resp.Transactions[0].TargetUserID)
	assert.Equal(t, "tax", resp.Transactions[1].TransactionType)

	resp, err = s.ListTransactions(ctx, &ListTransactionsRequest{GuildID: apptest.GuildID, Limit: 500, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 100, resp.Limit)
	require.Len(t, resp.Transactions, 1)
	assert.Equal(t, "tax", resp.Transactions[0].TransactionType)
}

func TestTreasuryApplicationService_CollectMonthlyTax(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("正常系: 残高に応じて切り捨てで徴収", func(t *testing.T) {
		f := apptest.New(t)
		s := newService(f)
		enableTax(t, f, apptest.GuildID, 300)
		f.Seed(t, apptest.GuildID, apptest.Alice, wallet.CurrencyTypeTopy, 10_000)
		f.Seed(t, apptest.GuildID, apptest.Bob, wallet.CurrencyTypeTopy, 33)
		f.Seed(t, apptest.GuildID, apptest.Bob, wallet.CurrencyTypeRuby, 100)

		resp, err := s.CollectMonthlyTax(ctx, &CollectTaxRequest{GuildID: apptest.GuildID, Now: now})
		require.NoError(t, err)
		assert.False(t, resp.Skipped)
		assert.Equal(t, "2026-03", resp.Period)
		assert.Equal(t, uint64(300), resp.Collected["topy"])
		assert.Equal(t, uint64(3), resp.Collected["ruby"])
		assert.Equal(t, 2, resp.Wallets)

		assert.Equal(t, uint64(9_700), f.Balance(t, apptest.GuildID, apptest.Alice, wallet.CurrencyTypeTopy))
		assert.Equal(t, uint64(33), f.Balance(t, apptest.GuildID, apptest.Bob, wallet.CurrencyTypeTopy))
		assert.Equal(t, uint64(97), f.Balance(t, apptest.GuildID, apptest.Bob, wallet.CurrencyTypeRuby))
		assert.Equal(t, uint64(300), f.Treasury(t, apptest.GuildID, wallet.CurrencyTypeTopy).Balance)
		assert.Equal(t, uint64(3), f.Treasury(t, apptest.GuildID, wallet.CurrencyTypeRuby).Balance)

		entries := f.Entries(t, apptest.GuildID, apptest.Alice)
		require.Len(t, entries, 2)
		assert.Equal(t, ledger.TransactionTypeTax, entries[0].TransactionType())
		assert.Equal(t, int64(-300), entries[0].Amount())
	})

	t.Run("正常系: 同じ期間は一度だけ", func(t *testing.T) {
		f := apptest.New(t)
		s := newService(f)
		enableTax(t, f, apptest.GuildID, 1_000)
		f.Seed(t, apptest.GuildID, apptest.Alice, wallet.CurrencyTypeTopy, 1_000)

		_, err := s.CollectMonthlyTax(ctx, &CollectTaxRequest{GuildID: apptest.GuildID, Now: now})
		require.NoError(t, err)
		resp, err := s.CollectMonthlyTax(ctx, &CollectTaxRequest{GuildID: apptest.GuildID, Now: now.Add(time.Hour)})
		require.NoError(t, err)
		assert.True(t, resp.Skipped)
		assert.Equal(t, SkipReasonAlreadyCollected, resp.Reason)
		assert.Equal(t, uint64(900), f.Balance(t, apptest.GuildID, apptest.Alice, wallet.CurrencyTypeTopy))

		resp, err = s.CollectMonthlyTax(ctx, &CollectTaxRequest{GuildID: apptest.GuildID, Now: now.AddDate(0, 1, 0)})
		require.NoError(t, err)
		assert.False(t, resp.Skipped)
		assert.Equal(t, uint64(810), f.Balance(t, apptest.GuildID, apptest.Alice, wallet.CurrencyTypeTopy))
	})

	t.Run("正常系: 期間はギルドのタイムゾーンで決まる", func(t *testing.T) {
		f := apptest.New(t)
		s := newService(f)
		enableTax(t, f, apptest.GuildID, 100)

		// UTC 2/28 15:00 は KST 3/1 0:00
		resp, err := s.CollectMonthlyTax(ctx, &CollectTaxRequest{
			GuildID: apptest.GuildID,
			Now:     time.Date(2026, 2, 28, 15, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
		assert.Equal(t, "2026-03", resp.Period)
	})

	t.Run("正常系: 無効化されている場合はスキップ", func(t *testing.T) {
		f := apptest.New(t)
		s := newService(f)
		f.Seed(t, apptest.GuildID, apptest.Alice, wallet.CurrencyTypeTopy, 1_000)

		resp, err := s.CollectMonthlyTax(ctx, &CollectTaxRequest{GuildID: apptest.GuildID, Now: now})
		require.NoError(t, err)
		assert.True(t, resp.Skipped)
		assert.Equal(t, SkipReasonDisabled, resp.Reason)
		assert.Equal(t, uint64(1_000), f.Balance(t, apptest.GuildID, apptest.Alice, wallet.CurrencyTypeTopy))
	})

	t.Run("正常系: ページをまたいで全ウォレットを処理", func(t *testing.T) {
		f := apptest.New(t)
		s := newService(f)
		enableTax(t, f, apptest.GuildID, 1_000)
		n := taxPageSize + 5
		for i := 0; i < n; i++ {
			f.Seed(t, apptest.GuildID, fmt.Sprintf("3%017d", i), wallet.CurrencyTypeTopy, 10)
		}

		resp, err := s.CollectMonthlyTax(ctx, &CollectTaxRequest{GuildID: apptest.GuildID, Now: now})
		require.NoError(t, err)
		assert.Equal(t, n, resp.Wallets)
		assert.Equal(t, uint64(n), resp.Collected["topy"])
		assert.Equal(t, uint64(9), f.Balance(t, apptest.GuildID, fmt.Sprintf("3%017d", n-1), wallet.CurrencyTypeTopy))
	})
}

func TestTreasuryApplicationService_CollectAll(t *testing.T) {
	f := apptest.New(t)
	s := newService(f)
	ctx := context.Background()
	other := "100000000000000002"

	enableTax(t, f, apptest.GuildID, 500)
	require.NoError(t, f.Store.Settings().Save(ctx, other, settings.Default()))
	f.Seed(t, apptest.GuildID, apptest.Alice, wallet.CurrencyTypeTopy, 1_000)
	f.Seed(t, other, apptest.Alice, wallet.CurrencyTypeTopy, 1_000)

	results, err := s.CollectAll(ctx, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, uint64(950), f.Balance(t, apptest.GuildID, apptest.Alice, wallet.CurrencyTypeTopy))
	assert.Equal(t, uint64(1_000), f.Balance(t, other, apptest.Alice, wallet.CurrencyTypeTopy))
}

func TestTreasuryApplicationService_StorageFailure(t *testing.T) {
	f := apptest.New(t)
	storageErr := errors.New("connection refused")
	s := NewTreasuryApplicationService(
		f.Store.Treasuries(), f.Store.Wallets(), f.Store.Settings(),
		apptest.FailingTxManager{Err: storageErr}, f.Ledger, f.Logger, f.Metrics,
	)
	f.SeedTreasury(t, apptest.GuildID, wallet.CurrencyTypeTopy, 1_000)

	_, err := s.Distribute(context.Background(), &DistributeRequest{
		GuildID: apptest.GuildID, CurrencyType: "topy", Amount: 10, TargetUserID: apptest.Alice,
	})
	assert.ErrorIs(t, err, storageErr)
	assert.NotErrorIs(t, err, wallet.ErrInsufficientBalance)
}
