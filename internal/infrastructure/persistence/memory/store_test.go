package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"economy-server/internal/domain/shop"
	"economy-server/internal/domain/treasury"
	"economy-server/internal/domain/wallet"
)

func TestStore_WithTransaction_RollbackOnError(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	key, err := wallet.NewKey("100", "200", wallet.CurrencyTypeTopy)
	require.NoError(t, err)

	err = store.WithTransaction(ctx, func(ctx context.Context) error {
		w, err := store.Wallets().FindOrCreateForUpdate(ctx, key)
		if err != nil {
			return err
		}
		if err := w.Credit(500); err != nil {
			return err
		}
		if err := store.Wallets().Save(ctx, w); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.Error(t, err)

	_, err = store.Wallets().FindByKey(ctx, key)
	assert.ErrorIs(t, err, wallet.ErrWalletNotFound)
}

func TestStore_WithTransaction_Commit(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	key, err := wallet.NewKey("100", "200", wallet.CurrencyTypeTopy)
	require.NoError(t, err)

	err = store.WithTransaction(ctx, func(ctx context.Context) error {
		w, err := store.Wallets().FindOrCreateForUpdate(ctx, key)
		if err != nil {
			return err
		}
		if err := w.Credit(500); err != nil {
			return err
		}
		return store.Wallets().Save(ctx, w)
	})
	require.NoError(t, err)

	w, err := store.Wallets().FindByKey(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), w.Balance())
}

func TestStore_ForUpdateRequiresTransaction(t *testing.T) {
	store := NewStore()
	key, err := wallet.NewKey("100", "200", wallet.CurrencyTypeTopy)
	require.NoError(t, err)

	_, err = store.Wallets().FindOrCreateForUpdate(context.Background(), key)
	assert.ErrorIs(t, err, ErrNoTransaction)
}

func TestItemRepository_StoredSpecIsIsolated(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	stock := uint32(3)
	item, err := shop.NewItem("100", shop.ItemSpec{Name: "VIP", Price: 10, CurrencyType: wallet.CurrencyTypeRuby, Stock: &stock, Enabled: true})
	require.NoError(t, err)
	require.NoError(t, store.Items().Create(ctx, item))

	stock = 0
	loaded, err := store.Items().FindByID(ctx, "100", item.ID())
	require.NoError(t, err)
	assert.Equal(t, uint32(3), *loaded.Stock())

	_, err = store.Items().FindByID(ctx, "101", item.ID())
	assert.ErrorIs(t, err, shop.ErrItemNotFound)
}

func TestTreasuryRepository_ClaimTaxRun(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.Treasuries().ClaimTaxRun(ctx, "100", "2024-03"))
	assert.ErrorIs(t, store.Treasuries().ClaimTaxRun(ctx, "100", "2024-03"), treasury.ErrTaxAlreadyCollected)
	assert.NoError(t, store.Treasuries().ClaimTaxRun(ctx, "100", "2024-04"))
}

func TestWalletRepository_ListPositive(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	for user, balance := range map[string]uint64{"201": 10, "202": 0, "203": 30, "204": 40} {
		key, err := wallet.NewKey("100", user, wallet.CurrencyTypeTopy)
		require.NoError(t, err)
		store.state.wallets[key] = walletRow{balance: balance, updatedAt: time.Now()}
	}

	page, err := store.Wallets().ListPositive(ctx, "100", wallet.CurrencyTypeTopy, "201", 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "203", page[0].UserID())
	assert.Equal(t, "204", page[1].UserID())
}
