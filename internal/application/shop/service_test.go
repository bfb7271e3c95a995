package shop

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"economy-server/internal/application/apptest"
	"economy-server/internal/domain/ledger"
	"economy-server/internal/domain/shop"
	"economy-server/internal/domain/wallet"
)

func u32(v uint32) *uint32 { return &v }

func newTestService(f *apptest.Fixture) *ShopApplicationService {
	return NewShopApplicationService(f.Store.Items(), f.Store.UserItems(), f.Store, f.Ledger, f.Logger, f.Metrics)
}

func createItem(t *testing.T, s *ShopApplicationService, in ItemInput) ItemDTO {
	t.Helper()
	dto, err := s.CreateItem(context.Background(), &CreateItemRequest{GuildID: apptest.GuildID, Item: in})
	require.NoError(t, err)
	return *dto
}

func ticketInput() ItemInput {
	return ItemInput{Name: "Color ticket", Price: 100, CurrencyType: "topy", Enabled: true}
}

func TestShopApplicationService_Purchase(t *testing.T) {
	tests := []struct {
		name     string
		item     func() ItemInput
		seed     uint64
		owned    uint32
		itemID   func(id int64) int64
		quantity uint32
		currency string
		wantErr  error
	}{
		{
			name:     "正常系: 購入",
			item:     ticketInput,
			seed:     1000,
			quantity: 3,
		},
		{
			name:     "異常系: 商品が存在しない",
			item:     ticketInput,
			seed:     1000,
			itemID:   func(id int64) int64 { return id + 999 },
			quantity: 1,
			wantErr:  shop.ErrItemNotFound,
		},
		{
			name: "異常系: 販売停止中",
			item: func() ItemInput {
				in := ticketInput()
				in.Enabled = false
				return in
			},
			seed:     1000,
			quantity: 1,
			wantErr:  shop.ErrItemDisabled,
		},
		{
			name:     "異常系: 数量0",
			item:     ticketInput,
			seed:     1000,
			quantity: 0,
			wantErr:  shop.ErrInvalidQuantity,
		},
		{
			name:     "異常系: 数量が範囲外",
			item:     ticketInput,
			seed:     100_000,
			quantity: 100,
			wantErr:  shop.ErrInvalidQuantity,
		},
		{
			name: "異常系: 在庫不足",
			item: func() ItemInput {
				in := ticketInput()
				in.Stock = u32(2)
				return in
			},
			seed:     1000,
			quantity: 3,
			wantErr:  shop.ErrOutOfStock,
		},
		{
			name:     "異常系: 残高不足",
			item:     ticketInput,
			seed:     250,
			quantity: 3,
			wantErr:  wallet.ErrInsufficientBalance,
		},
		{
			name:     "異常系: 通貨の不一致",
			item:     ticketInput,
			seed:     1000,
			quantity: 1,
			currency: "ruby",
			wantErr:  shop.ErrCurrencyMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := apptest.New(t)
			s := newTestService(f)
			item := createItem(t, s, tt.item())
			f.Seed(t, apptest.GuildID, apptest.Alice, wallet.CurrencyTypeTopy, tt.seed)
			itemID := item.ID
			if tt.itemID != nil {
				itemID = tt.itemID(item.ID)
			}

			resp, err := s.Purchase(context.Background(), &PurchaseRequest{
				GuildID:      apptest.GuildID,
				UserID:       apptest.Alice,
				ItemID:       itemID,
				Quantity:     u32(tt.quantity),
				CurrencyType: tt.currency,
			})

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, resp)
				assert.Equal(t, tt.seed, f.Balance(t, apptest.GuildID, apptest.Alice, wallet.CurrencyTypeTopy))
				assert.Equal(t, uint64(0), f.Treasury(t, apptest.GuildID, wallet.CurrencyTypeTopy).Balance)
				stored, err := f.Store.Items().FindByID(context.Background(), apptest.GuildID, item.ID)
				require.NoError(t, err)
				assert.Equal(t, item.Stock, stored.Stock())
				_, err = f.Store.UserItems().FindByKey(context.Background(), apptest.GuildID, apptest.Alice, item.ID)
				assert.ErrorIs(t, err, shop.ErrUserItemNotFound)
				return
			}

			require.NoError(t, err)
			cost := uint64(tt.quantity) * item.Price
			assert.Equal(t, cost, resp.TotalCost)
			assert.Equal(t, tt.seed-cost, resp.BalanceAfter)
			assert.Equal(t, tt.quantity, resp.UserItem.Quantity)
			assert.Nil(t, resp.UserItem.ExpiresAt)

			// 代金は全額国庫へ
			account := f.Treasury(t, apptest.GuildID, wallet.CurrencyTypeTopy)
			assert.Equal(t, cost, account.Balance)
			assert.Equal(t, cost, account.TotalCollected)

			entries := f.Entries(t, apptest.GuildID, apptest.Alice)
			require.Len(t, entries, 2)
			assert.Equal(t, ledger.TransactionTypeShopPurchase, entries[0].TransactionType())
			assert.Equal(t, -int64(cost), entries[0].Amount())
		})
	}
}

func TestShopApplicationService_Purchase_OutOfStockDetail(t *testing.T) {
	f := apptest.New(t)
	s := newTestService(f)
	in := ticketInput()
	in.Stock = u32(2)
	item := createItem(t, s, in)
	f.Seed(t, apptest.GuildID, apptest.Alice, wallet.CurrencyTypeTopy, 1000)

	_, err := s.Purchase(context.Background(), &PurchaseRequest{
		GuildID: apptest.GuildID, UserID: apptest.Alice, ItemID: item.ID, Quantity: u32(5),
	})

	var outOfStock *shop.OutOfStockError
	require.ErrorAs(t, err, &outOfStock)
	assert.Equal(t, uint32(2), outOfStock.Available)
	assert.Equal(t, uint32(5), outOfStock.Requested)
}

func TestShopApplicationService_Purchase_StockDecrements(t *testing.T) {
	f := apptest.New(t)
	s := newTestService(f)
	in := ticketInput()
	in.Stock = u32(10)
	item := createItem(t, s, in)
	f.Seed(t, apptest.GuildID, apptest.Alice, wallet.CurrencyTypeTopy, 1000)

	resp, err := s.Purchase(context.Background(), &PurchaseRequest{
		GuildID: apptest.GuildID, UserID: apptest.Alice, ItemID: item.ID, Quantity: u32(4),
	})
	require.NoError(t, err)
	assert.Equal(t, u32(6), resp.Item.Stock)

	// 残高不足の購入では在庫は減らない
	_, err = s.Purchase(context.Background(), &PurchaseRequest{
		GuildID: apptest.GuildID, UserID: apptest.Alice, ItemID: item.ID, Quantity: u32(6),
	})
	assert.ErrorIs(t, err, wallet.ErrInsufficientBalance)

	stored, err := f.Store.Items().FindByID(context.Background(), apptest.GuildID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, u32(6), stored.Stock())
}

func TestShopApplicationService_Purchase_ConcurrentLastUnit(t *testing.T) {
	f := apptest.New(t)
	s := newTestService(f)
	in := ticketInput()
	in.Stock = u32(1)
	item := createItem(t, s, in)
	f.Seed(t, apptest.GuildID, apptest.Alice, wallet.CurrencyTypeTopy, 1000)
	f.Seed(t, apptest.GuildID, apptest.Bob, wallet.CurrencyTypeTopy, 1000)

	errs := make([]error, 2)
	var g errgroup.Group
	for i, user := range []string{apptest.Alice, apptest.Bob} {
		g.Go(func() error {
			_, errs[i] = s.Purchase(context.Background(), &PurchaseRequest{
				GuildID: apptest.GuildID, UserID: user, ItemID: item.ID, Quantity: u32(1),
			})
			return nil
		})
	}
	require.NoError(t, g.Wait())

	var succeeded int
	var outOfStock *shop.OutOfStockError
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorAs(t, err, &outOfStock)
	}
	assert.Equal(t, 1, succeeded)
	require.NotNil(t, outOfStock)
	assert.Equal(t, uint32(0), outOfStock.Available)
	assert.Equal(t, uint32(1), outOfStock.Requested)

	stored, err := f.Store.Items().FindByID(context.Background(), apptest.GuildID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, u32(0), stored.Stock())
	assert.Equal(t, uint64(100), f.Treasury(t, apptest.GuildID, wallet.CurrencyTypeTopy).Balance)
	spent := 2000 - f.Balance(t, apptest.GuildID, apptest.Alice, wallet.CurrencyTypeTopy) -
		f.Balance(t, apptest.GuildID, apptest.Bob, wallet.CurrencyTypeTopy)
	assert.Equal(t, uint64(100), spent)
}

func TestShopApplicationService_Purchase_ExpiryStacks(t *testing.T) {
	f := apptest.New(t)
	s := newTestService(f)
	in := ticketInput()
	in.DurationDays = 7
	item := createItem(t, s, in)
	f.Seed(t, apptest.GuildID, apptest.Alice, wallet.CurrencyTypeTopy, 1000)

	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return t0 }
	first, err := s.Purchase(context.Background(), &PurchaseRequest{
		GuildID: apptest.GuildID, UserID: apptest.Alice, ItemID: item.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, first.UserItem.ExpiresAt)
	assert.Equal(t, t0.AddDate(0, 0, 7), *first.UserItem.ExpiresAt)

	s.now = func() time.Time { return t0.AddDate(0, 0, 2) }
	second, err := s.Purchase(context.Background(), &PurchaseRequest{
		GuildID: apptest.GuildID, UserID: apptest.Alice, ItemID: item.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, t0.AddDate(0, 0, 14), *second.UserItem.ExpiresAt)
	assert.Equal(t, uint32(2), second.UserItem.Quantity)
}

func TestShopApplicationService_Purchase_LimitExceeded(t *testing.T) {
	f := apptest.New(t)
	s := newTestService(f)
	in := ticketInput()
	in.MaxPerUser = u32(3)
	item := createItem(t, s, in)
	f.Seed(t, apptest.GuildID, apptest.Alice, wallet.CurrencyTypeTopy, 1000)

	_, err := s.Purchase(context.Background(), &PurchaseRequest{
		GuildID: apptest.GuildID, UserID: apptest.Alice, ItemID: item.ID, Quantity: u32(2),
	})
	require.NoError(t, err)

	_, err = s.Purchase(context.Background(), &PurchaseRequest{
		GuildID: apptest.GuildID, UserID: apptest.Alice, ItemID: item.ID, Quantity: u32(2),
	})

	var limit *shop.PurchaseLimitExceededError
	require.ErrorAs(t, err, &limit)
	assert.Equal(t, uint32(3), limit.MaxPerUser)
	assert.Equal(t, uint32(2), limit.CurrentCount)
	assert.Equal(t, uint32(2), limit.Requested)
	assert.Equal(t, uint64(800), f.Balance(t, apptest.GuildID, apptest.Alice, wallet.CurrencyTypeTopy))
}

func TestShopApplicationService_Purchase_StorageFailure(t *testing.T) {
	f := apptest.New(t)
	dbErr := errors.New("connection reset")
	s := NewShopApplicationService(f.Store.Items(), f.Store.UserItems(), apptest.FailingTxManager{Err: dbErr}, f.Ledger, f.Logger, f.Metrics)

	_, err := s.Purchase(context.Background(), &PurchaseRequest{
		GuildID: apptest.GuildID, UserID: apptest.Alice, ItemID: 1,
	})

	assert.ErrorIs(t, err, dbErr)
	assert.Contains(t, err.Error(), "failed to purchase item")
}

func TestShopApplicationService_ItemAdministration(t *testing.T) {
	f := apptest.New(t)
	s := newTestService(f)
	ctx := context.Background()

	enabled := createItem(t, s, ticketInput())
	disabledInput := ticketInput()
	disabledInput.Name = "Retired ticket"
	disabledInput.Enabled = false
	createItem(t, s, disabledInput)

	visible, err := s.ListItems(ctx, &ListItemsRequest{GuildID: apptest.GuildID})
	require.NoError(t, err)
	require.Len(t, visible.Items, 1)
	assert.Equal(t, enabled.ID, visible.Items[0].ID)

	all, err := s.ListItems(ctx, &ListItemsRequest{GuildID: apptest.GuildID, IncludeDisabled: true})
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)

	update := ticketInput()
	update.Price = 250
	update.Stock = u32(5)
	updated, err := s.UpdateItem(ctx, &UpdateItemRequest{GuildID: apptest.GuildID, ItemID: enabled.ID, Item: update})
	require.NoError(t, err)
	assert.Equal(t, uint64(250), updated.Price)
	assert.Equal(t, u32(5), updated.Stock)

	_, err = s.UpdateItem(ctx, &UpdateItemRequest{GuildID: apptest.GuildID, ItemID: enabled.ID + 100, Item: update})
	assert.ErrorIs(t, err, shop.ErrItemNotFound)

	invalid := ticketInput()
	invalid.Price = 0
	_, err = s.CreateItem(ctx, &CreateItemRequest{GuildID: apptest.GuildID, Item: invalid})
	assert.ErrorIs(t, err, shop.ErrInvalidItem)

	invalid = ticketInput()
	invalid.CurrencyType = "gold"
	_, err = s.CreateItem(ctx, &CreateItemRequest{GuildID: apptest.GuildID, Item: invalid})
	assert.ErrorIs(t, err, shop.ErrInvalidItem)
}

func TestShopApplicationService_Inventory(t *testing.T) {
	f := apptest.New(t)
	s := newTestService(f)
	in := ticketInput()
	in.DurationDays = 1
	item := createItem(t, s, in)
	f.Seed(t, apptest.GuildID, apptest.Alice, wallet.CurrencyTypeTopy, 1000)

	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return t0 }
	_, err := s.Purchase(context.Background(), &PurchaseRequest{
		GuildID: apptest.GuildID, UserID: apptest.Alice, ItemID: item.ID, Quantity: u32(2),
	})
	require.NoError(t, err)

	inv, err := s.Inventory(context.Background(), &InventoryRequest{GuildID: apptest.GuildID, UserID: apptest.Alice})
	require.NoError(t, err)
	require.Len(t, inv.Items, 1)
	assert.Equal(t, uint32(2), inv.Items[0].Quantity)
	assert.False(t, inv.Items[0].Expired)

	s.now = func() time.Time { return t0.AddDate(0, 0, 3) }
	inv, err = s.Inventory(context.Background(), &InventoryRequest{GuildID: apptest.GuildID, UserID: apptest.Alice})
	require.NoError(t, err)
	assert.True(t, inv.Items[0].Expired)
}
