package ticket

import (
	"context"
	"time"
)

// TicketRepository チケットリポジトリインターフェース
type TicketRepository interface {
	// FindByID チケットを取得。存在しない場合はErrTicketNotFound
	FindByID(ctx context.Context, guildID string, id int64) (*Ticket, error)

	// FindByGuild ギルドのチケット一覧を取得
	FindByGuild(ctx context.Context, guildID string) ([]*Ticket, error)

	// Create チケットとロール選択肢を作成しIDを設定
	Create(ctx context.Context, t *Ticket) error
}

// RoleGrantRepository ロール付与記録リポジトリインターフェース
type RoleGrantRepository interface {
	// FindByUser ユーザーの付与記録を取得
	FindByUser(ctx context.Context, guildID, userID string) ([]*RoleGrant, error)

	// Save 付与記録をupsert
	Save(ctx context.Context, g *RoleGrant) error

	// Delete 指定チケットの付与記録を削除
	Delete(ctx context.Context, guildID, userID, roleID string, ticketID int64) error

	// FindExpired 期限切れの付与記録を行ロック付きで取得
	FindExpired(ctx context.Context, now time.Time, limit int) ([]*RoleGrant, error)
}
