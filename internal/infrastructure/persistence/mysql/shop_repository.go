package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"economy-server/internal/domain/shop"
	"economy-server/internal/domain/wallet"
)

// ShopItemRepository MySQL実装のItemRepository
type ShopItemRepository struct {
	db     *DB
	tracer trace.Tracer
}

// NewShopItemRepository 新しいShopItemRepositoryを作成
func NewShopItemRepository(db *DB) *ShopItemRepository {
	return &ShopItemRepository{
		db:     db,
		tracer: otel.Tracer("shop-item-repository"),
	}
}

const shopItemColumns = `id, guild_id, name, description, price, currency_type, duration_days, stock, max_per_user, enabled, created_at, updated_at`

func scanShopItem(row interface{ Scan(dest ...any) error }) (*shop.Item, error) {
	var (
		id                   int64
		guildID, name, ctStr string
		description          sql.NullString
		spec                 shop.ItemSpec
		stock, maxPerUser    sql.NullInt64
		createdAt, updatedAt time.Time
	)
	err := row.Scan(&id, &guildID, &name, &description, &spec.Price, &ctStr, &spec.DurationDays,
		&stock, &maxPerUser, &spec.Enabled, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	ct, err := wallet.NewCurrencyType(ctStr)
	if err != nil {
		return nil, fmt.Errorf("invalid currency type: %w", err)
	}
	spec.Name = name
	spec.Description = stringPtr(description)
	spec.CurrencyType = ct
	spec.Stock = uint32Ptr(stock)
	spec.MaxPerUser = uint32Ptr(maxPerUser)
	return shop.RestoreItem(id, guildID, spec, createdAt, updatedAt), nil
}

// FindByID 商品を取得
func (r *ShopItemRepository) FindByID(ctx context.Context, guildID string, id int64) (*shop.Item, error) {
	ctx, span := r.tracer.Start(ctx, "ShopItemRepository.FindByID")
	defer span.End()

	span.SetAttributes(dbAttributes("SELECT", "shop_items")...)
	span.SetAttributes(attribute.Int64("db.shop_item_id", id))

	query := `SELECT ` + shopItemColumns + ` FROM shop_items WHERE guild_id = ? AND id = ?`
	return r.findOne(ctx, span, r.db.conn(ctx), query, guildID, id)
}

// FindByIDForUpdate 行ロック付きで商品を取得
func (r *ShopItemRepository) FindByIDForUpdate(ctx context.Context, guildID string, id int64) (*shop.Item, error) {
	ctx, span := r.tracer.Start(ctx, "ShopItemRepository.FindByIDForUpdate")
	defer span.End()

	span.SetAttributes(dbAttributes("SELECT FOR UPDATE", "shop_items")...)
	span.SetAttributes(attribute.Int64("db.shop_item_id", id))

	conn, err := r.db.lockingConn(ctx)
	if err != nil {
		return nil, failSpan(span, err)
	}
	query := `SELECT ` + shopItemColumns + ` FROM shop_items WHERE guild_id = ? AND id = ? FOR UPDATE`
	return r.findOne(ctx, span, conn, query, guildID, id)
}

func (r *ShopItemRepository) findOne(ctx context.Context, span trace.Span, conn executor, query string, args ...any) (*shop.Item, error) {
	item, err := scanShopItem(conn.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(otelcodes.Ok, "shop item not found")
		return nil, shop.ErrItemNotFound
	}
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("failed to find shop item: %w", err))
	}
	span.SetStatus(otelcodes.Ok, "shop item found")
	return item, nil
}

// FindByGuild ギルドの商品一覧を取得
func (r *ShopItemRepository) FindByGuild(ctx context.Context, guildID string, includeDisabled bool) ([]*shop.Item, error) {
	ctx, span := r.tracer.Start(ctx, "ShopItemRepository.FindByGuild")
	defer span.End()

	span.SetAttributes(dbAttributes("SELECT", "shop_items")...)
	span.SetAttributes(
		attribute.String("db.guild_id", guildID),
		attribute.Bool("db.include_disabled", includeDisabled),
	)

	query := `SELECT ` + shopItemColumns + ` FROM shop_items WHERE guild_id = ?`
	if !includeDisabled {
		query += ` AND enabled = TRUE`
	}
	query += ` ORDER BY id`

	rows, err := r.db.conn(ctx).QueryContext(ctx, query, guildID)
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("failed to query shop items: %w", err))
	}
	defer rows.Close()

	var items []*shop.Item
	for rows.Next() {
		item, err := scanShopItem(rows)
		if err != nil {
			return nil, failSpan(span, fmt.Errorf("failed to scan shop item: %w", err))
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, failSpan(span, fmt.Errorf("error iterating shop items: %w", err))
	}

	span.SetAttributes(attribute.Int("db.rows", len(items)))
	span.SetStatus(otelcodes.Ok, "shop items found")
	return items, nil
}

// Create 商品を作成しIDを設定
func (r *ShopItemRepository) Create(ctx context.Context, item *shop.Item) error {
	ctx, span := r.tracer.Start(ctx, "ShopItemRepository.Create")
	defer span.End()

	span.SetAttributes(dbAttributes("INSERT", "shop_items")...)
	span.SetAttributes(attribute.String("db.guild_id", item.GuildID()))

	spec := item.Spec()
	query := `INSERT INTO shop_items
		(guild_id, name, description, price, currency_type, duration_days, stock, max_per_user, enabled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := r.db.conn(ctx).ExecContext(ctx, query,
		item.GuildID(),
		spec.Name,
		nullString(spec.Description),
		spec.Price,
		spec.CurrencyType.String(),
		spec.DurationDays,
		nullUint32(spec.Stock),
		nullUint32(spec.MaxPerUser),
		spec.Enabled,
	)
	if err != nil {
		return failSpan(span, fmt.Errorf("failed to create shop item: %w", err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return failSpan(span, fmt.Errorf("failed to get shop item id: %w", err))
	}
	item.SetID(id)

	span.SetAttributes(attribute.Int64("db.shop_item_id", id))
	span.SetStatus(otelcodes.Ok, "shop item created")
	return nil
}

// Save 商品定義と在庫を保存
func (r *ShopItemRepository) Save(ctx context.Context, item *shop.Item) error {
	ctx, span := r.tracer.Start(ctx, "ShopItemRepository.Save")
	defer span.End()

	span.SetAttributes(dbAttributes("UPDATE", "shop_items")...)
	span.SetAttributes(attribute.Int64("db.shop_item_id", item.ID()))

	spec := item.Spec()
	query := `UPDATE shop_items SET
		name = ?, description = ?, price = ?, currency_type = ?, duration_days = ?,
		stock = ?, max_per_user = ?, enabled = ?, updated_at = ?
		WHERE guild_id = ? AND id = ?`
	result, err := r.db.conn(ctx).ExecContext(ctx, query,
		spec.Name,
		nullString(spec.Description),
		spec.Price,
		spec.CurrencyType.String(),
		spec.DurationDays,
		nullUint32(spec.Stock),
		nullUint32(spec.MaxPerUser),
		spec.Enabled,
		item.UpdatedAt(),
		item.GuildID(),
		item.ID(),
	)
	if err != nil {
		return failSpan(span, fmt.Errorf("failed to update shop item: %w", err))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return failSpan(span, fmt.Errorf("failed to get rows affected: %w", err))
	}
	if rowsAffected == 0 {
		return failSpan(span, shop.ErrItemNotFound)
	}

	span.SetStatus(otelcodes.Ok, "shop item saved")
	return nil
}

// UserItemRepository MySQL実装のUserItemRepository
type UserItemRepository struct {
	db     *DB
	tracer trace.Tracer
}

// NewUserItemRepository 新しいUserItemRepositoryを作成
func NewUserItemRepository(db *DB) *UserItemRepository {
	return &UserItemRepository{
		db:     db,
		tracer: otel.Tracer("user-item-repository"),
	}
}

const userItemColumns = `guild_id, user_id, shop_item_id, quantity, purchased_count, expires_at, created_at, updated_at`

func scanUserItem(row interface{ Scan(dest ...any) error }) (*shop.UserItem, error) {
	var (
		guildID, userID          string
		shopItemID               int64
		quantity, purchasedCount uint32
		expiresAt                sql.NullTime
		createdAt, updatedAt     time.Time
	)
	if err := row.Scan(&guildID, &userID, &shopItemID, &quantity, &purchasedCount, &expiresAt, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	return shop.RestoreUserItem(guildID, userID, shopItemID, quantity, purchasedCount, timePtr(expiresAt), createdAt, updatedAt), nil
}

// FindByKey 所持アイテムを取得
func (r *UserItemRepository) FindByKey(ctx context.Context, guildID, userID string, shopItemID int64) (*shop.UserItem, error) {
	ctx, span := r.tracer.Start(ctx, "UserItemRepository.FindByKey")
	defer span.End()

	span.SetAttributes(dbAttributes("SELECT", "user_items")...)
	span.SetAttributes(
		attribute.String("db.user_id", userID),
		attribute.Int64("db.shop_item_id", shopItemID),
	)

	query := `SELECT ` + userItemColumns + ` FROM user_items WHERE guild_id = ? AND user_id = ? AND shop_item_id = ?`
	return r.findOne(ctx, span, r.db.conn(ctx), query, guildID, userID, shopItemID)
}

// FindByKeyForUpdate 行ロック付きで取得
func (r *UserItemRepository) FindByKeyForUpdate(ctx context.Context, guildID, userID string, shopItemID int64) (*shop.UserItem, error) {
	ctx, span := r.tracer.Start(ctx, "UserItemRepository.FindByKeyForUpdate")
	defer span.End()

	span.SetAttributes(dbAttributes("SELECT FOR UPDATE", "user_items")...)
	span.SetAttributes(
		attribute.String("db.user_id", userID),
		attribute.Int64("db.shop_item_id", shopItemID),
	)

	conn, err := r.db.lockingConn(ctx)
	if err != nil {
		return nil, failSpan(span, err)
	}
	query := `SELECT ` + userItemColumns + ` FROM user_items WHERE guild_id = ? AND user_id = ? AND shop_item_id = ? FOR UPDATE`
	return r.findOne(ctx, span, conn, query, guildID, userID, shopItemID)
}

func (r *UserItemRepository) findOne(ctx context.Context, span trace.Span, conn executor, query string, args ...any) (*shop.UserItem, error) {
	item, err := scanUserItem(conn.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(otelcodes.Ok, "user item not found")
		return nil, shop.ErrUserItemNotFound
	}
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("failed to find user item: %w", err))
	}
	span.SetStatus(otelcodes.Ok, "user item found")
	return item, nil
}

// FindByUser ユーザーの所持アイテム一覧を取得
func (r *UserItemRepository) FindByUser(ctx context.Context, guildID, userID string) ([]*shop.UserItem, error) {
	ctx, span := r.tracer.Start(ctx, "UserItemRepository.FindByUser")
	defer span.End()

	span.SetAttributes(dbAttributes("SELECT", "user_items")...)
	span.SetAttributes(attribute.String("db.user_id", userID))

	query := `SELECT ` + userItemColumns + ` FROM user_items WHERE guild_id = ? AND user_id = ? ORDER BY shop_item_id`
	rows, err := r.db.conn(ctx).QueryContext(ctx, query, guildID, userID)
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("failed to query user items: %w", err))
	}
	defer rows.Close()

	var items []*shop.UserItem
	for rows.Next() {
		item, err := scanUserItem(rows)
		if err != nil {
			return nil, failSpan(span, fmt.Errorf("failed to scan user item: %w", err))
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, failSpan(span, fmt.Errorf("error iterating user items: %w", err))
	}

	span.SetAttributes(attribute.Int("db.rows", len(items)))
	span.SetStatus(otelcodes.Ok, "user items found")
	return items, nil
}

// Save 所持アイテムをupsert
func (r *UserItemRepository) Save(ctx context.Context, item *shop.UserItem) error {
	ctx, span := r.tracer.Start(ctx, "UserItemRepository.Save")
	defer span.End()

	span.SetAttributes(dbAttributes("UPSERT", "user_items")...)
	span.SetAttributes(
		attribute.String("db.user_id", item.UserID()),
		attribute.Int64("db.shop_item_id", item.ShopItemID()),
		attribute.Int("db.quantity", int(item.Quantity())),
	)

	query := `INSERT INTO user_items
		(guild_id, user_id, shop_item_id, quantity, purchased_count, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			quantity = VALUES(quantity),
			purchased_count = VALUES(purchased_count),
			expires_at = VALUES(expires_at),
			updated_at = VALUES(updated_at)`
	_, err := r.db.conn(ctx).ExecContext(ctx, query,
		item.GuildID(),
		item.UserID(),
		item.ShopItemID(),
		item.Quantity(),
		item.PurchasedCount(),
		nullTime(item.ExpiresAt()),
		item.UpdatedAt(),
	)
	if err != nil {
		return failSpan(span, fmt.Errorf("failed to save user item: %w", err))
	}

	span.SetStatus(otelcodes.Ok, "user item saved")
	return nil
}
