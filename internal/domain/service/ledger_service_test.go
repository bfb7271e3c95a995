package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"economy-server/internal/domain/ledger"
	"economy-server/internal/domain/treasury"
	"economy-server/internal/domain/wallet"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestLedgerService(w *MockWalletRepository, l *MockLedgerRepository, tr *MockTreasuryRepository) *LedgerService {
	s := NewLedgerService(w, l, tr)
	s.newID = func() string { return "id-1" }
	s.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	return s
}

func topyKey(userID string) wallet.Key {
	return wallet.Key{GuildID: "1", UserID: userID, CurrencyType: wallet.CurrencyTypeTopy}
}

func TestLedgerService_Debit(t *testing.T) {
	tests := []struct {
		name       string
		amount     uint64
		setupMocks func(*MockWalletRepository, *MockLedgerRepository)
		wantErr    error
		wantEntry  func(t *testing.T, e *ledger.Entry)
	}{
		{
			name:   "正常系: 減算と台帳追記",
			amount: 300,
			setupMocks: func(w *MockWalletRepository, l *MockLedgerRepository) {
				w.On("FindByKeyForUpdate", mock.Anything, topyKey("2")).Return(wallet.MustNewWallet("1", "2", wallet.CurrencyTypeTopy, 1000), nil)
				w.On("Save", mock.Anything, mock.MatchedBy(func(x *wallet.Wallet) bool { return x.Balance() == 700 })).Return(nil)
				l.On("Append", mock.Anything, mock.AnythingOfType("*ledger.Entry")).Return(nil)
			},
			wantEntry: func(t *testing.T, e *ledger.Entry) {
				assert.Equal(t, int64(-300), e.Amount())
				assert.Equal(t, uint64(700), e.BalanceAfter())
				assert.Equal(t, ledger.TransactionTypeAdminTake, e.TransactionType())
			},
		},
		{
			name:   "異常系: ウォレットなしは残高0として残高不足",
			amount: 1,
			setupMocks: func(w *MockWalletRepository, l *MockLedgerRepository) {
				w.On("FindByKeyForUpdate", mock.Anything, topyKey("2")).Return(nil, wallet.ErrWalletNotFound)
			},
			wantErr: wallet.ErrInsufficientBalance,
		},
		{
			name:   "異常系: 残高不足では保存も追記もしない",
			amount: 1001,
			setupMocks: func(w *MockWalletRepository, l *MockLedgerRepository) {
				w.On("FindByKeyForUpdate", mock.Anything, topyKey("2")).Return(wallet.MustNewWallet("1", "2", wallet.CurrencyTypeTopy, 1000), nil)
			},
			wantErr: wallet.ErrInsufficientBalance,
		},
		{
			name:   "異常系: 台帳追記の失敗",
			amount: 10,
			setupMocks: func(w *MockWalletRepository, l *MockLedgerRepository) {
				w.On("FindByKeyForUpdate", mock.Anything, topyKey("2")).Return(wallet.MustNewWallet("1", "2", wallet.CurrencyTypeTopy, 1000), nil)
				w.On("Save", mock.Anything, mock.Anything).Return(nil)
				l.On("Append", mock.Anything, mock.Anything).Return(errors.New("connection reset"))
			},
			wantErr: errors.New("failed to append ledger entry: connection reset"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, l, tr := new(MockWalletRepository), new(MockLedgerRepository), new(MockTreasuryRepository)
			tt.setupMocks(w, l)
			s := newTestLedgerService(w, l, tr)

			entry, err := s.Debit(context.Background(), Posting{Key: topyKey("2"), Amount: tt.amount, Type: ledger.TransactionTypeAdminTake})
			if tt.wantErr != nil {
				require.Error(t, err)
				if errors.Is(tt.wantErr, wallet.ErrInsufficientBalance) {
					assert.ErrorIs(t, err, tt.wantErr)
				} else {
					assert.EqualError(t, err, tt.wantErr.Error())
				}
				assert.Nil(t, entry)
			} else {
				require.NoError(t, err)
				tt.wantEntry(t, entry)
			}
			w.AssertExpectations(t)
			l.AssertExpectations(t)
		})
	}
}

func TestLedgerService_Credit_CreatesWallet(t *testing.T) {
	w, l, tr := new(MockWalletRepository), new(MockLedgerRepository), new(MockTreasuryRepository)
	w.On("FindOrCreateForUpdate", mock.Anything, topyKey("3")).Return(wallet.MustNewWallet("1", "3", wallet.CurrencyTypeTopy, 0), nil)
	w.On("Save", mock.Anything, mock.Anything).Return(nil)
	l.On("Append", mock.Anything, mock.Anything).Return(nil)
	s := newTestLedgerService(w, l, tr)

	entry, err := s.Credit(context.Background(), Posting{Key: topyKey("3"), Amount: 1000, Type: ledger.TransactionTypeTransferReceive})

	require.NoError(t, err)
	assert.Equal(t, int64(1000), entry.Amount())
	assert.Equal(t, uint64(1000), entry.BalanceAfter())
	w.AssertExpectations(t)
}

func TestLedgerService_LockWallets_SortedAndDeduplicated(t *testing.T) {
	w, l, tr := new(MockWalletRepository), new(MockLedgerRepository), new(MockTreasuryRepository)
	var order []string
	w.On("FindOrCreateForUpdate", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { order = append(order, args.Get(1).(wallet.Key).UserID) }).
		Return(wallet.MustNewWallet("1", "9", wallet.CurrencyTypeTopy, 0), nil)
	s := newTestLedgerService(w, l, tr)

	err := s.LockWallets(context.Background(), topyKey("5"), topyKey("3"), topyKey("5"), topyKey("4"))

	require.NoError(t, err)
	assert.Equal(t, []string{"3", "4", "5"}, order)
}

func TestLedgerService_Collect(t *testing.T) {
	w, l, tr := new(MockWalletRepository), new(MockLedgerRepository), new(MockTreasuryRepository)
	existing, _ := treasury.NewTreasury("1")
	tr.On("FindOrCreateForUpdate", mock.Anything, "1").Return(existing, nil)
	tr.On("Save", mock.Anything, existing).Return(nil)
	tr.On("AppendTransaction", mock.Anything, mock.MatchedBy(func(tx *treasury.Transaction) bool {
		return tx.Amount() == 12 && tx.TransactionType() == treasury.TransactionTypeTransferFee
	})).Return(nil)
	s := newTestLedgerService(w, l, tr)

	got, err := s.Collect(context.Background(), TreasuryMovement{
		GuildID:      "1",
		CurrencyType: wallet.CurrencyTypeTopy,
		Amount:       12,
		Type:         treasury.TransactionTypeTransferFee,
	})

	require.NoError(t, err)
	assert.Equal(t, treasury.Account{Balance: 12, TotalCollected: 12}, got.Account(wallet.CurrencyTypeTopy))
	tr.AssertExpectations(t)

	_, err = s.Collect(context.Background(), TreasuryMovement{GuildID: "1", Type: treasury.TransactionTypeAdminDistribute})
	assert.ErrorIs(t, err, treasury.ErrInvalidTransactionType)
}

func TestLedgerService_Distribute_Insufficient(t *testing.T) {
	w, l, tr := new(MockWalletRepository), new(MockLedgerRepository), new(MockTreasuryRepository)
	existing, _ := treasury.NewTreasury("1")
	tr.On("FindOrCreateForUpdate", mock.Anything, "1").Return(existing, nil)
	s := newTestLedgerService(w, l, tr)

	_, err := s.Distribute(context.Background(), TreasuryMovement{
		GuildID:      "1",
		CurrencyType: wallet.CurrencyTypeRuby,
		Amount:       5,
		Type:         treasury.TransactionTypeAdminDistribute,
	})

	var insufficient *wallet.InsufficientBalanceError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, uint64(0), insufficient.Available)
	tr.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}
