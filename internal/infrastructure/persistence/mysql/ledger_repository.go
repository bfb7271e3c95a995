package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"economy-server/internal/domain/ledger"
	"economy-server/internal/domain/wallet"
)

// LedgerRepository MySQL実装のLedgerRepository
type LedgerRepository struct {
	db     *DB
	tracer trace.Tracer
}

// NewLedgerRepository 新しいLedgerRepositoryを作成
func NewLedgerRepository(db *DB) *LedgerRepository {
	return &LedgerRepository{
		db:     db,
		tracer: otel.Tracer("ledger-repository"),
	}
}

const ledgerColumns = `id, guild_id, user_id, currency_type, transaction_type, amount, balance_after, description, created_at`

// Append エントリを追記
func (r *LedgerRepository) Append(ctx context.Context, entry *ledger.Entry) error {
	ctx, span := r.tracer.Start(ctx, "LedgerRepository.Append")
	defer span.End()

	span.SetAttributes(dbAttributes("INSERT", "ledger_entries")...)
	span.SetAttributes(
		attribute.String("db.entry_id", entry.ID()),
		attribute.String("db.transaction_type", entry.TransactionType().String()),
		attribute.Int64("db.amount", entry.Amount()),
	)

	query := `INSERT INTO ledger_entries (` + ledgerColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var description sql.NullString
	if entry.Description() != nil {
		description = sql.NullString{String: *entry.Description(), Valid: true}
	}

	_, err := r.db.conn(ctx).ExecContext(ctx, query,
		entry.ID(),
		entry.GuildID(),
		entry.UserID(),
		entry.CurrencyType().String(),
		entry.TransactionType().String(),
		entry.Amount(),
		entry.BalanceAfter(),
		description,
		entry.CreatedAt(),
	)
	if err != nil {
		return failSpan(span, fmt.Errorf("failed to append ledger entry: %w", err))
	}

	span.SetStatus(otelcodes.Ok, "ledger entry appended")
	return nil
}

// FindByID IDでエントリを取得
func (r *LedgerRepository) FindByID(ctx context.Context, id string) (*ledger.Entry, error) {
	ctx, span := r.tracer.Start(ctx, "LedgerRepository.FindByID")
	defer span.End()

	span.SetAttributes(dbAttributes("SELECT", "ledger_entries")...)
	span.SetAttributes(attribute.String("db.entry_id", id))

	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE id = ?`
	entry, err := scanEntry(r.db.conn(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(otelcodes.Ok, "ledger entry not found")
		return nil, ledger.ErrEntryNotFound
	}
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("failed to find ledger entry: %w", err))
	}

	span.SetStatus(otelcodes.Ok, "ledger entry found")
	return entry, nil
}

// FindByUser ユーザーのエントリを新しい順に取得
func (r *LedgerRepository) FindByUser(ctx context.Context, guildID, userID string, filter ledger.Filter, limit, offset int) ([]*ledger.Entry, error) {
	ctx, span := r.tracer.Start(ctx, "LedgerRepository.FindByUser")
	defer span.End()

	span.SetAttributes(dbAttributes("SELECT", "ledger_entries")...)
	span.SetAttributes(
		attribute.String("db.guild_id", guildID),
		attribute.String("db.user_id", userID),
		attribute.Int("db.limit", limit),
		attribute.Int("db.offset", offset),
	)

	where, args := ledgerWhere(guildID, userID, filter)
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE ` + where +
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("failed to query ledger entries: %w", err))
	}
	defer rows.Close()

	var entries []*ledger.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, failSpan(span, fmt.Errorf("failed to scan ledger entry: %w", err))
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, failSpan(span, fmt.Errorf("error iterating ledger entries: %w", err))
	}

	span.SetAttributes(attribute.Int("db.rows", len(entries)))
	span.SetStatus(otelcodes.Ok, "ledger entries found")
	return entries, nil
}

// CountByUser ユーザーのエントリ件数を取得
func (r *LedgerRepository) CountByUser(ctx context.Context, guildID, userID string, filter ledger.Filter) (int, error) {
	ctx, span := r.tracer.Start(ctx, "LedgerRepository.CountByUser")
	defer span.End()

	span.SetAttributes(dbAttributes("SELECT COUNT", "ledger_entries")...)

	where, args := ledgerWhere(guildID, userID, filter)
	var count int
	if err := r.db.conn(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger_entries WHERE `+where, args...).Scan(&count); err != nil {
		return 0, failSpan(span, fmt.Errorf("failed to count ledger entries: %w", err))
	}

	span.SetAttributes(attribute.Int("db.count", count))
	span.SetStatus(otelcodes.Ok, "ledger entries counted")
	return count, nil
}

func ledgerWhere(guildID, userID string, filter ledger.Filter) (string, []any) {
	conds := []string{"guild_id = ?", "user_id = ?"}
	args := []any{guildID, userID}
	if filter.CurrencyType != nil {
		conds = append(conds, "currency_type = ?")
		args = append(args, filter.CurrencyType.String())
	}
	if filter.TransactionType != nil {
		conds = append(conds, "transaction_type = ?")
		args = append(args, filter.TransactionType.String())
	}
	return strings.Join(conds, " AND "), args
}

func scanEntry(row interface{ Scan(dest ...any) error }) (*ledger.Entry, error) {
	var (
		id, guildID, userID, currencyType, transactionType string
		amount                                             int64
		balanceAfter                                       uint64
		description                                        sql.NullString
		createdAt                                          time.Time
	)
	if err := row.Scan(&id, &guildID, &userID, &currencyType, &transactionType, &amount, &balanceAfter, &description, &createdAt); err != nil {
		return nil, err
	}

	ct, err := wallet.NewCurrencyType(currencyType)
	if err != nil {
		return nil, fmt.Errorf("invalid currency type: %w", err)
	}
	key, err := wallet.NewKey(guildID, userID, ct)
	if err != nil {
		return nil, fmt.Errorf("invalid wallet key: %w", err)
	}
	tt, err := ledger.NewTransactionType(transactionType)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction type: %w", err)
	}

	var desc *string
	if description.Valid {
		desc = &description.String
	}
	return ledger.NewEntry(id, key, tt, amount, balanceAfter, desc, createdAt)
}
