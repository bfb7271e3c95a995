// Package apptest アプリケーションサービスのテスト用フィクスチャ
package apptest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"economy-server/internal/domain/ledger"
	"economy-server/internal/domain/service"
	"economy-server/internal/domain/treasury"
	"economy-server/internal/domain/wallet"
	otelinfra "economy-server/internal/infrastructure/observability/otel"
	"economy-server/internal/infrastructure/persistence/memory"
)

const (
	GuildID = "100000000000000001"
	Alice   = "200000000000000001"
	Bob     = "200000000000000002"
)

// Fixture インメモリストアを使ったテスト環境
type Fixture struct {
	Store   *memory.Store
	Ledger  *service.LedgerService
	Logger  *otelinfra.Logger
	Metrics *otelinfra.Metrics
}

// New 新しいFixtureを作成
func New(t testing.TB) *Fixture {
	t.Helper()
	store := memory.NewStore()
	metrics, err := otelinfra.NewMetrics("test")
	require.NoError(t, err)
	return &Fixture{
		Store:   store,
		Ledger:  service.NewLedgerService(store.Wallets(), store.Ledger(), store.Treasuries()),
		Logger:  otelinfra.NewNopLogger(),
		Metrics: metrics,
	}
}

// Seed ウォレットに残高を入れる
func (f *Fixture) Seed(t testing.TB, guildID, userID string, ct wallet.CurrencyType, amount uint64) {
	t.Helper()
	key, err := wallet.NewKey(guildID, userID, ct)
	require.NoError(t, err)
	err = f.Store.WithTransaction(context.Background(), func(ctx context.Context) error {
		_, err := f.Ledger.Credit(ctx, service.Posting{Key: key, Amount: amount, Type: ledger.TransactionTypeAdminGrant})
		return err
	})
	require.NoError(t, err)
}

// SeedTreasury 国庫に残高を入れる
func (f *Fixture) SeedTreasury(t testing.TB, guildID string, ct wallet.CurrencyType, amount uint64) {
	t.Helper()
	err := f.Store.WithTransaction(context.Background(), func(ctx context.Context) error {
		_, err := f.Ledger.Collect(ctx, service.TreasuryMovement{
			GuildID:      guildID,
			CurrencyType: ct,
			Amount:       amount,
			Type:         treasury.TransactionTypeTax,
		})
		return err
	})
	require.NoError(t, err)
}

// Balance ウォレット残高を返す。ウォレットが無い場合は0
func (f *Fixture) Balance(t testing.TB, guildID, userID string, ct wallet.CurrencyType) uint64 {
	t.Helper()
	key, err := wallet.NewKey(guildID, userID, ct)
	require.NoError(t, err)
	w, err := f.Store.Wallets().FindByKey(context.Background(), key)
	if errors.Is(err, wallet.ErrWalletNotFound) {
		return 0
	}
	require.NoError(t, err)
	return w.Balance()
}

// Treasury 国庫の口座を返す
func (f *Fixture) Treasury(t testing.TB, guildID string, ct wallet.CurrencyType) treasury.Account {
	t.Helper()
	tr, err := f.Store.Treasuries().FindByGuild(context.Background(), guildID)
	if errors.Is(err, treasury.ErrTreasuryNotFound) {
		return treasury.Account{}
	}
	require.NoError(t, err)
	return tr.Account(ct)
}

// Entries ユーザーの台帳エントリを新しい順に返す
func (f *Fixture) Entries(t testing.TB, guildID, userID string) []*ledger.Entry {
	t.Helper()
	entries, err := f.Store.Ledger().FindByUser(context.Background(), guildID, userID, ledger.Filter{}, 1000, 0)
	require.NoError(t, err)
	return entries
}

// FailingTxManager 常に失敗するトランザクションマネージャー
type FailingTxManager struct {
	Err error
}

// WithTransaction fnを実行せずにErrを返す
func (m FailingTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.Err
}
