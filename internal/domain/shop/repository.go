package shop

import "context"

// ItemRepository 商品リポジトリインターフェース
type ItemRepository interface {
	// FindByID 商品を取得。存在しない場合はErrItemNotFound
	FindByID(ctx context.Context, guildID string, id int64) (*Item, error)

	// FindByIDForUpdate 行ロック付きで商品を取得。存在しない場合はErrItemNotFound
	FindByIDForUpdate(ctx context.Context, guildID string, id int64) (*Item, error)

	// FindByGuild ギルドの商品一覧を取得
	FindByGuild(ctx context.Context, guildID string, includeDisabled bool) ([]*Item, error)

	// Create 商品を作成しIDを設定
	Create(ctx context.Context, item *Item) error

	// Save 商品定義と在庫を保存
	Save(ctx context.Context, item *Item) error
}

// UserItemRepository 所持アイテムリポジトリインターフェース
type UserItemRepository interface {
	// FindByKey 所持アイテムを取得。存在しない場合はErrUserItemNotFound
	FindByKey(ctx context.Context, guildID, userID string, shopItemID int64) (*UserItem, error)

	// FindByKeyForUpdate 行ロック付きで取得。存在しない場合はErrUserItemNotFound
	FindByKeyForUpdate(ctx context.Context, guildID, userID string, shopItemID int64) (*UserItem, error)

	// FindByUser ユーザーの所持アイテム一覧を取得
	FindByUser(ctx context.Context, guildID, userID string) ([]*UserItem, error)

	// Save 所持アイテムをupsert
	Save(ctx context.Context, item *UserItem) error
}
