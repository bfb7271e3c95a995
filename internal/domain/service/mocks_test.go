package service

import (
	"context"

	"economy-server/internal/domain/ledger"
	"economy-server/internal/domain/treasury"
	"economy-server/internal/domain/wallet"

	"github.com/stretchr/testify/mock"
)

// MockWalletRepository モックウォレットリポジトリ
type MockWalletRepository struct {
	mock.Mock
}

func (m *MockWalletRepository) FindByKey(ctx context.Context, key wallet.Key) (*wallet.Wallet, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

func (m *MockWalletRepository) FindByUser(ctx context.Context, guildID, userID string) ([]*wallet.Wallet, error) {
	args := m.Called(ctx, guildID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*wallet.Wallet), args.Error(1)
}

func (m *MockWalletRepository) FindByKeyForUpdate(ctx context.Context, key wallet.Key) (*wallet.Wallet, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

func (m *MockWalletRepository) FindOrCreateForUpdate(ctx context.Context, key wallet.Key) (*wallet.Wallet, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

func (m *MockWalletRepository) Save(ctx context.Context, w *wallet.Wallet) error {
	args := m.Called(ctx, w)
	return args.Error(0)
}

func (m *MockWalletRepository) ListPositive(ctx context.Context, guildID string, currencyType wallet.CurrencyType, afterUserID string, limit int) ([]*wallet.Wallet, error) {
	args := m.Called(ctx, guildID, currencyType, afterUserID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*wallet.Wallet), args.Error(1)
}

// MockLedgerRepository モック台帳リポジトリ
type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) Append(ctx context.Context, entry *ledger.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLedgerRepository) FindByID(ctx context.Context, id string) (*ledger.Entry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepository) FindByUser(ctx context.Context, guildID, userID string, filter ledger.Filter, limit, offset int) ([]*ledger.Entry, error) {
	args := m.Called(ctx, guildID, userID, filter, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepository) CountByUser(ctx context.Context, guildID, userID string, filter ledger.Filter) (int, error) {
	args := m.Called(ctx, guildID, userID, filter)
	return args.Int(0), args.Error(1)
}

// MockTreasuryRepository モック国庫リポジトリ
type MockTreasuryRepository struct {
	mock.Mock
}

func (m *MockTreasuryRepository) FindByGuild(ctx context.Context, guildID string) (*treasury.Treasury, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*treasury.Treasury), args.Error(1)
}

func (m *MockTreasuryRepository) FindOrCreateForUpdate(ctx context.Context, guildID string) (*treasury.Treasury, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*treasury.Treasury), args.Error(1)
}

func (m *MockTreasuryRepository) Save(ctx context.Context, t *treasury.Treasury) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTreasuryRepository) AppendTransaction(ctx context.Context, tx *treasury.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTreasuryRepository) FindTransactions(ctx context.Context, guildID string, limit, offset int) ([]*treasury.Transaction, error) {
	args := m.Called(ctx, guildID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*treasury.Transaction), args.Error(1)
}

func (m *MockTreasuryRepository) ClaimTaxRun(ctx context.Context, guildID, period string) error {
	args := m.Called(ctx, guildID, period)
	return args.Error(0)
}
