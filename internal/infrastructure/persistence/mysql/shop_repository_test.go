package mysql

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"economy-server/internal/domain/shop"
	"economy-server/internal/domain/wallet"
)

var shopItemRowColumns = []string{"id", "guild_id", "name", "description", "price", "currency_type", "duration_days", "stock", "max_per_user", "enabled", "created_at", "updated_at"}

func uint32Of(v uint32) *uint32 { return &v }

func TestShopItemRepository_FindByIDForUpdate(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("正常系: 在庫と上限付きの商品", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := &ShopItemRepository{db: db, tracer: otel.Tracer("test")}
		ctx := beginTx(t, db, mock)

		mock.ExpectQuery(`FROM shop_items WHERE guild_id = \? AND id = \? FOR UPDATE`).
			WithArgs("100", int64(7)).
			WillReturnRows(sqlmock.NewRows(shopItemRowColumns).
				AddRow(7, "100", "Color Ticket", nil, 500, "topy", 30, 1, 2, true, now, now))

		item, err := repo.FindByIDForUpdate(ctx, "100", 7)
		require.NoError(t, err)
		assert.Equal(t, int64(7), item.ID())
		assert.Equal(t, uint64(500), item.Price())
		assert.Equal(t, wallet.CurrencyTypeTopy, item.CurrencyType())
		require.NotNil(t, item.Stock())
		assert.Equal(t, uint32(1), *item.Stock())
		require.NotNil(t, item.MaxPerUser())
		assert.Equal(t, uint32(2), *item.MaxPerUser())
		assert.Nil(t, item.Spec().Description)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("異常系: 商品が見つからない", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := &ShopItemRepository{db: db, tracer: otel.Tracer("test")}
		ctx := beginTx(t, db, mock)

		mock.ExpectQuery(`FOR UPDATE`).
			WithArgs("100", int64(8)).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.FindByIDForUpdate(ctx, "100", 8)
		assert.ErrorIs(t, err, shop.ErrItemNotFound)
	})
}

func TestShopItemRepository_FindByGuild(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	db, mock := newMockDB(t)
	repo := &ShopItemRepository{db: db, tracer: otel.Tracer("test")}

	mock.ExpectQuery(`FROM shop_items WHERE guild_id = \? AND enabled = TRUE ORDER BY id`).
		WithArgs("100").
		WillReturnRows(sqlmock.NewRows(shopItemRowColumns).
			AddRow(1, "100", "VIP", "monthly vip", 50, "ruby", 0, nil, nil, true, now, now))

	items, err := repo.FindByGuild(context.Background(), "100", false)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Nil(t, items[0].Stock())
	require.NotNil(t, items[0].Spec().Description)
	assert.Equal(t, "monthly vip", *items[0].Spec().Description)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShopItemRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &ShopItemRepository{db: db, tracer: otel.Tracer("test")}

	item, err := shop.NewItem("100", shop.ItemSpec{
		Name:         "Color Ticket",
		Price:        500,
		CurrencyType: wallet.CurrencyTypeTopy,
		Stock:        uint32Of(10),
		Enabled:      true,
	})
	require.NoError(t, err)

	mock.ExpectExec(`INSERT INTO shop_items`).
		WithArgs("100", "Color Ticket", sql.NullString{}, uint64(500), "topy", uint32(0),
			sql.NullInt64{Int64: 10, Valid: true}, sql.NullInt64{}, true).
		WillReturnResult(sqlmock.NewResult(12, 1))

	require.NoError(t, repo.Create(context.Background(), item))
	assert.Equal(t, int64(12), item.ID())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShopItemRepository_Save_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &ShopItemRepository{db: db, tracer: otel.Tracer("test")}

	item := shop.MustNewItem(12, "100", shop.ItemSpec{Name: "x", Price: 1, CurrencyType: wallet.CurrencyTypeTopy, Enabled: true})

	mock.ExpectExec(`UPDATE shop_items SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Save(context.Background(), item)
	assert.ErrorIs(t, err, shop.ErrItemNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserItemRepository_FindByKeyForUpdate(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	expires := now.Add(30 * 24 * time.Hour)

	t.Run("正常系: 期限付きの所持アイテム", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := &UserItemRepository{db: db, tracer: otel.Tracer("test")}
		ctx := beginTx(t, db, mock)

		mock.ExpectQuery(`FROM user_items WHERE guild_id = \? AND user_id = \? AND shop_item_id = \? FOR UPDATE`).
			WithArgs("100", "200", int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"guild_id", "user_id", "shop_item_id", "quantity", "purchased_count", "expires_at", "created_at", "updated_at"}).
				AddRow("100", "200", 7, 2, 3, expires, now, now))

		ui, err := repo.FindByKeyForUpdate(ctx, "100", "200", 7)
		require.NoError(t, err)
		assert.Equal(t, uint32(2), ui.Quantity())
		assert.Equal(t, uint32(3), ui.PurchasedCount())
		require.NotNil(t, ui.ExpiresAt())
		assert.True(t, expires.Equal(*ui.ExpiresAt()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("異常系: 所持していない", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := &UserItemRepository{db: db, tracer: otel.Tracer("test")}
		ctx := beginTx(t, db, mock)

		mock.ExpectQuery(`FOR UPDATE`).WillReturnError(sql.ErrNoRows)

		_, err := repo.FindByKeyForUpdate(ctx, "100", "200", 7)
		assert.ErrorIs(t, err, shop.ErrUserItemNotFound)
	})
}

func TestUserItemRepository_Save(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &UserItemRepository{db: db, tracer: otel.Tracer("test")}

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ui, err := shop.NewUserItem("100", "200", 7)
	require.NoError(t, err)
	ui.AddPurchase(1, 30, now)

	mock.ExpectExec(`INSERT INTO user_items .* ON DUPLICATE KEY UPDATE`).
		WithArgs("100", "200", int64(7), uint32(1), uint32(1), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Save(context.Background(), ui))
	assert.NoError(t, mock.ExpectationsWereMet())
}
