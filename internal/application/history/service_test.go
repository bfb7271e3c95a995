package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"economy-server/internal/domain/ledger"
	"economy-server/internal/domain/wallet"
	otelinfra "economy-server/internal/infrastructure/observability/otel"
)

const (
	guildID = "100000000000000001"
	userID  = "200000000000000001"
)

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

func newEntry(t *testing.T, id string, ct wallet.CurrencyType, tt ledger.TransactionType, amount int64, after uint64) *ledger.Entry {
	t.Helper()
	key, err := wallet.NewKey(guildID, userID, ct)
	require.NoError(t, err)
	e, err := ledger.NewEntry(id, key, tt, amount, after, nil, time.Now())
	require.NoError(t, err)
	return e
}

func TestHistoryApplicationService_GetHistory(t *testing.T) {
	topy := wallet.CurrencyTypeTopy
	send := ledger.TransactionTypeTransferSend

	tests := []struct {
		name       string
		req        *GetHistoryRequest
		setupMocks func(*testing.T, *MockLedgerRepository)
		wantErr    error
		checkFunc  func(*testing.T, *GetHistoryResponse)
	}{
		{
			name: "正常系: 履歴を取得",
			req:  &GetHistoryRequest{GuildID: guildID, UserID: userID, Limit: 10},
			setupMocks: func(t *testing.T, m *MockLedgerRepository) {
				entries := []*ledger.Entry{
					newEntry(t, "e2", wallet.CurrencyTypeTopy, ledger.TransactionTypeTransferSend, -1012, 0),
					newEntry(t, "e1", wallet.CurrencyTypeTopy, ledger.TransactionTypeEarnText, 1012, 1012),
				}
				m.On("FindByUser", mock.Anything, guildID, userID, ledger.Filter{}, 10, 0).Return(entries, nil)
				m.On("CountByUser", mock.Anything, guildID, userID, ledger.Filter{}).Return(12, nil)
			},
			checkFunc: func(t *testing.T, resp *GetHistoryResponse) {
				require.Len(t, resp.Entries, 2)
				assert.Equal(t, "e2", resp.Entries[0].ID)
				assert.Equal(t, int64(-1012), resp.Entries[0].Amount)
				assert.Equal(t, "transfer_send", resp.Entries[0].TransactionType)
				assert.Equal(t, 12, resp.Total)
			},
		},
		{
			name: "正常系: 通貨とタイプで絞り込み",
			req:  &GetHistoryRequest{GuildID: guildID, UserID: userID, CurrencyType: "topy", TransactionType: "transfer_send"},
			setupMocks: func(t *testing.T, m *MockLedgerRepository) {
				filter := ledger.Filter{CurrencyType: &topy, TransactionType: &send}
				m.On("FindByUser", mock.Anything, guildID, userID, filter, 50, 0).Return([]*ledger.Entry{}, nil)
				m.On("CountByUser", mock.Anything, guildID, userID, filter).Return(0, nil)
			},
			checkFunc: func(t *testing.T, resp *GetHistoryResponse) {
				assert.Empty(t, resp.Entries)
				assert.Equal(t, 50, resp.Limit)
			},
		},
		{
			name: "正常系: 最大値の制限",
			req:  &GetHistoryRequest{GuildID: guildID, UserID: userID, Limit: 200, Offset: -1},
			setupMocks: func(t *testing.T, m *MockLedgerRepository) {
				m.On("FindByUser", mock.Anything, guildID, userID, ledger.Filter{}, 100, 0).Return([]*ledger.Entry{}, nil)
				m.On("CountByUser", mock.Anything, guildID, userID, ledger.Filter{}).Return(0, nil)
			},
			checkFunc: func(t *testing.T, resp *GetHistoryResponse) {
				assert.Equal(t, 100, resp.Limit)
				assert.Equal(t, 0, resp.Offset)
			},
		},
		{
			name:       "異常系: 不明な通貨",
			req:        &GetHistoryRequest{GuildID: guildID, UserID: userID, CurrencyType: "gem"},
			setupMocks: func(*testing.T, *MockLedgerRepository) {},
			wantErr:    wallet.ErrInvalidCurrencyType,
		},
		{
			name:       "異常系: 不明なトランザクションタイプ",
			req:        &GetHistoryRequest{GuildID: guildID, UserID: userID, TransactionType: "refund"},
			setupMocks: func(*testing.T, *MockLedgerRepository) {},
			wantErr:    ledger.ErrInvalidTransactionType,
		},
		{
			name:       "異常系: 無効なユーザーID",
			req:        &GetHistoryRequest{GuildID: guildID, UserID: "user123"},
			setupMocks: func(*testing.T, *MockLedgerRepository) {},
			wantErr:    wallet.ErrInvalidUserID,
		},
		{
			name: "異常系: データベースエラー",
			req:  &GetHistoryRequest{GuildID: guildID, UserID: userID, Limit: 10},
			setupMocks: func(t *testing.T, m *MockLedgerRepository) {
				m.On("FindByUser", mock.Anything, guildID, userID, ledger.Filter{}, 10, 0).Return(nil, assert.AnError)
			},
			wantErr: assert.AnError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockLedgerRepo := new(MockLedgerRepository)
			tt.setupMocks(t, mockLedgerRepo)

			metrics, err := otelinfra.NewMetrics("test")
			require.NoError(t, err)
			svc := NewHistoryApplicationService(mockLedgerRepo, otelinfra.NewNopLogger(), metrics)

			got, err := svc.GetHistory(context.Background(), tt.req)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.checkFunc(t, got)
			mockLedgerRepo.AssertExpectations(t)
		})
	}
}
