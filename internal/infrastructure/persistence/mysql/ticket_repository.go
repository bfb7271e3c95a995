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

	"economy-server/internal/domain/ticket"
)

// TicketRepository MySQL実装のTicketRepository
type TicketRepository struct {
	db     *DB
	tracer trace.Tracer
}

// NewTicketRepository 新しいTicketRepositoryを作成
func NewTicketRepository(db *DB) *TicketRepository {
	return &TicketRepository{
		db:     db,
		tracer: otel.Tracer("ticket-repository"),
	}
}

const ticketColumns = `id, guild_id, shop_item_id, name, consume_quantity, remove_previous_role, effect_duration_seconds, fixed_role_id, created_at`

type ticketRow struct {
	id, shopItemID int64
	guildID, name  string
	config         ticket.Config
	createdAt      time.Time
}

func scanTicketRow(row interface{ Scan(dest ...any) error }) (*ticketRow, error) {
	var t ticketRow
	var duration sql.NullInt64
	var fixedRole sql.NullString
	err := row.Scan(&t.id, &t.guildID, &t.shopItemID, &t.name,
		&t.config.ConsumeQuantity, &t.config.RemovePreviousRole, &duration, &fixedRole, &t.createdAt)
	if err != nil {
		return nil, err
	}
	t.config.EffectDurationSeconds = uint32Ptr(duration)
	t.config.FixedRoleID = stringPtr(fixedRole)
	return &t, nil
}

// FindByID チケットを取得
func (r *TicketRepository) FindByID(ctx context.Context, guildID string, id int64) (*ticket.Ticket, error) {
	ctx, span := r.tracer.Start(ctx, "TicketRepository.FindByID")
	defer span.End()

	span.SetAttributes(dbAttributes("SELECT", "role_tickets")...)
	span.SetAttributes(attribute.Int64("db.ticket_id", id))

	query := `SELECT ` + ticketColumns + ` FROM role_tickets WHERE guild_id = ? AND id = ?`
	row, err := scanTicketRow(r.db.conn(ctx).QueryRowContext(ctx, query, guildID, id))
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(otelcodes.Ok, "ticket not found")
		return nil, ticket.ErrTicketNotFound
	}
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("failed to find ticket: %w", err))
	}

	options, err := r.findOptions(ctx, []int64{row.id})
	if err != nil {
		return nil, failSpan(span, err)
	}

	span.SetStatus(otelcodes.Ok, "ticket found")
	return ticket.RestoreTicket(row.id, row.guildID, row.shopItemID, row.name, row.config, options[row.id], row.createdAt), nil
}

// FindByGuild ギルドのチケット一覧を取得
func (r *TicketRepository) FindByGuild(ctx context.Context, guildID string) ([]*ticket.Ticket, error) {
	ctx, span := r.tracer.Start(ctx, "TicketRepository.FindByGuild")
	defer span.End()

	span.SetAttributes(dbAttributes("SELECT", "role_tickets")...)
	span.SetAttributes(attribute.String("db.guild_id", guildID))

	query := `SELECT ` + ticketColumns + ` FROM role_tickets WHERE guild_id = ? ORDER BY id`
	rows, err := r.db.conn(ctx).QueryContext(ctx, query, guildID)
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("failed to query tickets: %w", err))
	}

	var ticketRows []*ticketRow
	for rows.Next() {
		row, err := scanTicketRow(rows)
		if err != nil {
			rows.Close()
			return nil, failSpan(span, fmt.Errorf("failed to scan ticket: %w", err))
		}
		ticketRows = append(ticketRows, row)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, failSpan(span, fmt.Errorf("error iterating tickets: %w", err))
	}
	rows.Close()

	if len(ticketRows) == 0 {
		span.SetStatus(otelcodes.Ok, "no tickets")
		return nil, nil
	}

	ids := make([]int64, len(ticketRows))
	for i, row := range ticketRows {
		ids[i] = row.id
	}
	options, err := r.findOptions(ctx, ids)
	if err != nil {
		return nil, failSpan(span, err)
	}

	tickets := make([]*ticket.Ticket, len(ticketRows))
	for i, row := range ticketRows {
		tickets[i] = ticket.RestoreTicket(row.id, row.guildID, row.shopItemID, row.name, row.config, options[row.id], row.createdAt)
	}

	span.SetAttributes(attribute.Int("db.rows", len(tickets)))
	span.SetStatus(otelcodes.Ok, "tickets found")
	return tickets, nil
}

func (r *TicketRepository) findOptions(ctx context.Context, ticketIDs []int64) (map[int64][]ticket.RoleOption, error) {
	placeholders := make([]byte, 0, len(ticketIDs)*2)
	args := make([]any, len(ticketIDs))
	for i, id := range ticketIDs {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args[i] = id
	}

	query := `SELECT ticket_id, id, role_id, name, description FROM role_ticket_options
		WHERE ticket_id IN (` + string(placeholders) + `) ORDER BY ticket_id, position, id`
	rows, err := r.db.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query role options: %w", err)
	}
	defer rows.Close()

	options := make(map[int64][]ticket.RoleOption)
	for rows.Next() {
		var ticketID int64
		var opt ticket.RoleOption
		var description sql.NullString
		if err := rows.Scan(&ticketID, &opt.ID, &opt.RoleID, &opt.Name, &description); err != nil {
			return nil, fmt.Errorf("failed to scan role option: %w", err)
		}
		opt.Description = stringPtr(description)
		options[ticketID] = append(options[ticketID], opt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating role options: %w", err)
	}
	return options, nil
}

// Create チケットとロール選択肢を作成しIDを設定
//
// 選択肢も同じトランザクションで書き込むため、呼び出し側でトランザクションを開始しておくこと。
func (r *TicketRepository) Create(ctx context.Context, t *ticket.Ticket) error {
	ctx, span := r.tracer.Start(ctx, "TicketRepository.Create")
	defer span.End()

	span.SetAttributes(dbAttributes("INSERT", "role_tickets")...)
	span.SetAttributes(
		attribute.String("db.guild_id", t.GuildID()),
		attribute.Int64("db.shop_item_id", t.ShopItemID()),
	)

	conn := r.db.conn(ctx)
	cfg := t.Config()
	query := `INSERT INTO role_tickets
		(guild_id, shop_item_id, name, consume_quantity, remove_previous_role, effect_duration_seconds, fixed_role_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	result, err := conn.ExecContext(ctx, query,
		t.GuildID(),
		t.ShopItemID(),
		t.Name(),
		cfg.ConsumeQuantity,
		cfg.RemovePreviousRole,
		nullUint32(cfg.EffectDurationSeconds),
		nullString(cfg.FixedRoleID),
	)
	if err != nil {
		return failSpan(span, fmt.Errorf("failed to create ticket: %w", err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return failSpan(span, fmt.Errorf("failed to get ticket id: %w", err))
	}

	for i, opt := range t.Options() {
		_, err := conn.ExecContext(ctx,
			`INSERT INTO role_ticket_options (ticket_id, role_id, name, description, position) VALUES (?, ?, ?, ?, ?)`,
			id, opt.RoleID, opt.Name, nullString(opt.Description), i,
		)
		if err != nil {
			return failSpan(span, fmt.Errorf("failed to create role option: %w", err))
		}
	}
	t.SetID(id)

	span.SetAttributes(attribute.Int64("db.ticket_id", id))
	span.SetStatus(otelcodes.Ok, "ticket created")
	return nil
}

// RoleGrantRepository MySQL実装のRoleGrantRepository
type RoleGrantRepository struct {
	db     *DB
	tracer trace.Tracer
}

// NewRoleGrantRepository 新しいRoleGrantRepositoryを作成
func NewRoleGrantRepository(db *DB) *RoleGrantRepository {
	return &RoleGrantRepository{
		db:     db,
		tracer: otel.Tracer("role-grant-repository"),
	}
}

const roleGrantColumns = `guild_id, user_id, role_id, ticket_id, granted_at, expires_at`

func (r *RoleGrantRepository) queryGrants(ctx context.Context, span trace.Span, conn executor, query string, args ...any) ([]*ticket.RoleGrant, error) {
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("failed to query role grants: %w", err))
	}
	defer rows.Close()

	var grants []*ticket.RoleGrant
	for rows.Next() {
		var guildID, userID, roleID string
		var ticketID int64
		var grantedAt time.Time
		var expiresAt sql.NullTime
		if err := rows.Scan(&guildID, &userID, &roleID, &ticketID, &grantedAt, &expiresAt); err != nil {
			return nil, failSpan(span, fmt.Errorf("failed to scan role grant: %w", err))
		}
		grants = append(grants, ticket.NewRoleGrant(guildID, userID, roleID, ticketID, grantedAt, timePtr(expiresAt)))
	}
	if err := rows.Err(); err != nil {
		return nil, failSpan(span, fmt.Errorf("error iterating role grants: %w", err))
	}

	span.SetAttributes(attribute.Int("db.rows", len(grants)))
	span.SetStatus(otelcodes.Ok, "role grants found")
	return grants, nil
}

// FindByUser ユーザーの付与記録を取得
func (r *RoleGrantRepository) FindByUser(ctx context.Context, guildID, userID string) ([]*ticket.RoleGrant, error) {
	ctx, span := r.tracer.Start(ctx, "RoleGrantRepository.FindByUser")
	defer span.End()

	span.SetAttributes(dbAttributes("SELECT", "role_grants")...)
	span.SetAttributes(attribute.String("db.user_id", userID))

	query := `SELECT ` + roleGrantColumns + ` FROM role_grants WHERE guild_id = ? AND user_id = ? ORDER BY granted_at`
	return r.queryGrants(ctx, span, r.db.conn(ctx), query, guildID, userID)
}

// Save 付与記録をupsert
func (r *RoleGrantRepository) Save(ctx context.Context, g *ticket.RoleGrant) error {
	ctx, span := r.tracer.Start(ctx, "RoleGrantRepository.Save")
	defer span.End()

	span.SetAttributes(dbAttributes("UPSERT", "role_grants")...)
	span.SetAttributes(
		attribute.String("db.user_id", g.UserID()),
		attribute.String("db.role_id", g.RoleID()),
	)

	query := `INSERT INTO role_grants (` + roleGrantColumns + `) VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			granted_at = VALUES(granted_at),
			expires_at = VALUES(expires_at)`
	_, err := r.db.conn(ctx).ExecContext(ctx, query,
		g.GuildID(), g.UserID(), g.RoleID(), g.TicketID(), g.GrantedAt(), nullTime(g.ExpiresAt()))
	if err != nil {
		return failSpan(span, fmt.Errorf("failed to save role grant: %w", err))
	}

	span.SetStatus(otelcodes.Ok, "role grant saved")
	return nil
}

// Delete 指定チケットの付与記録を削除
func (r *RoleGrantRepository) Delete(ctx context.Context, guildID, userID, roleID string, ticketID int64) error {
	ctx, span := r.tracer.Start(ctx, "RoleGrantRepository.Delete")
	defer span.End()

	span.SetAttributes(dbAttributes("DELETE", "role_grants")...)
	span.SetAttributes(
		attribute.String("db.user_id", userID),
		attribute.String("db.role_id", roleID),
		attribute.Int64("db.ticket_id", ticketID),
	)

	_, err := r.db.conn(ctx).ExecContext(ctx,
		`DELETE FROM role_grants WHERE guild_id = ? AND user_id = ? AND role_id = ? AND ticket_id = ?`,
		guildID, userID, roleID, ticketID)
	if err != nil {
		return failSpan(span, fmt.Errorf("failed to delete role grant: %w", err))
	}

	span.SetStatus(otelcodes.Ok, "role grant deleted")
	return nil
}

// FindExpired 期限切れの付与記録を行ロック付きで取得
func (r *RoleGrantRepository) FindExpired(ctx context.Context, now time.Time, limit int) ([]*ticket.RoleGrant, error) {
	ctx, span := r.tracer.Start(ctx, "RoleGrantRepository.FindExpired")
	defer span.End()

	span.SetAttributes(dbAttributes("SELECT FOR UPDATE", "role_grants")...)
	span.SetAttributes(attribute.Int("db.limit", limit))

	conn, err := r.db.lockingConn(ctx)
	if err != nil {
		return nil, failSpan(span, err)
	}

	query := `SELECT ` + roleGrantColumns + ` FROM role_grants
		WHERE expires_at IS NOT NULL AND expires_at <= ?
		ORDER BY expires_at
		LIMIT ?
		FOR UPDATE SKIP LOCKED`
	return r.queryGrants(ctx, span, conn, query, now, limit)
}
