package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"economy-server/internal/domain/treasury"
	"economy-server/internal/domain/wallet"
)

// mysqlErrDuplicateEntry 一意制約違反のエラー番号
const mysqlErrDuplicateEntry = 1062

// TreasuryRepository MySQL実装のTreasuryRepository
type TreasuryRepository struct {
	db     *DB
	tracer trace.Tracer
}

// NewTreasuryRepository 新しいTreasuryRepositoryを作成
func NewTreasuryRepository(db *DB) *TreasuryRepository {
	return &TreasuryRepository{
		db:     db,
		tracer: otel.Tracer("treasury-repository"),
	}
}

const treasuryColumns = `guild_id,
	topy_balance, topy_total_collected, topy_total_distributed,
	ruby_balance, ruby_total_collected, ruby_total_distributed,
	updated_at`

func scanTreasury(row interface{ Scan(dest ...any) error }) (*treasury.Treasury, error) {
	var guildID string
	var topy, ruby treasury.Account
	var updatedAt time.Time
	err := row.Scan(&guildID,
		&topy.Balance, &topy.TotalCollected, &topy.TotalDistributed,
		&ruby.Balance, &ruby.TotalCollected, &ruby.TotalDistributed,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	return treasury.RestoreTreasury(guildID, map[wallet.CurrencyType]treasury.Account{
		wallet.CurrencyTypeTopy: topy,
		wallet.CurrencyTypeRuby: ruby,
	}, updatedAt), nil
}

// FindByGuild 国庫を取得
func (r *TreasuryRepository) FindByGuild(ctx context.Context, guildID string) (*treasury.Treasury, error) {
	ctx, span := r.tracer.Start(ctx, "TreasuryRepository.FindByGuild")
	defer span.End()

	span.SetAttributes(dbAttributes("SELECT", "treasuries")...)
	span.SetAttributes(attribute.String("db.guild_id", guildID))

	query := `SELECT ` + treasuryColumns + ` FROM treasuries WHERE guild_id = ?`
	t, err := scanTreasury(r.db.conn(ctx).QueryRowContext(ctx, query, guildID))
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(otelcodes.Ok, "treasury not found")
		return nil, treasury.ErrTreasuryNotFound
	}
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("failed to find treasury: %w", err))
	}

	span.SetStatus(otelcodes.Ok, "treasury found")
	return t, nil
}

// FindOrCreateForUpdate 必要に応じて作成し、行ロック付きで取得
func (r *TreasuryRepository) FindOrCreateForUpdate(ctx context.Context, guildID string) (*treasury.Treasury, error) {
	ctx, span := r.tracer.Start(ctx, "TreasuryRepository.FindOrCreateForUpdate")
	defer span.End()

	span.SetAttributes(dbAttributes("SELECT FOR UPDATE", "treasuries")...)
	span.SetAttributes(attribute.String("db.guild_id", guildID))

	conn, err := r.db.lockingConn(ctx)
	if err != nil {
		return nil, failSpan(span, err)
	}

	if _, err := conn.ExecContext(ctx, `INSERT IGNORE INTO treasuries (guild_id) VALUES (?)`, guildID); err != nil {
		return nil, failSpan(span, fmt.Errorf("failed to create treasury: %w", err))
	}

	query := `SELECT ` + treasuryColumns + ` FROM treasuries WHERE guild_id = ? FOR UPDATE`
	t, err := scanTreasury(conn.QueryRowContext(ctx, query, guildID))
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("failed to lock treasury: %w", err))
	}

	span.SetStatus(otelcodes.Ok, "treasury locked")
	return t, nil
}

// Save 国庫の残高と累計を保存
func (r *TreasuryRepository) Save(ctx context.Context, t *treasury.Treasury) error {
	ctx, span := r.tracer.Start(ctx, "TreasuryRepository.Save")
	defer span.End()

	span.SetAttributes(dbAttributes("UPDATE", "treasuries")...)
	span.SetAttributes(attribute.String("db.guild_id", t.GuildID()))

	topy := t.Account(wallet.CurrencyTypeTopy)
	ruby := t.Account(wallet.CurrencyTypeRuby)

	query := `UPDATE treasuries SET
		topy_balance = ?, topy_total_collected = ?, topy_total_distributed = ?,
		ruby_balance = ?, ruby_total_collected = ?, ruby_total_distributed = ?,
		updated_at = ?
		WHERE guild_id = ?`
	result, err := r.db.conn(ctx).ExecContext(ctx, query,
		topy.Balance, topy.TotalCollected, topy.TotalDistributed,
		ruby.Balance, ruby.TotalCollected, ruby.TotalDistributed,
		t.UpdatedAt(), t.GuildID(),
	)
	if err != nil {
		return failSpan(span, fmt.Errorf("failed to update treasury: %w", err))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return failSpan(span, fmt.Errorf("failed to get rows affected: %w", err))
	}
	if rowsAffected == 0 {
		return failSpan(span, treasury.ErrTreasuryNotFound)
	}

	span.SetStatus(otelcodes.Ok, "treasury saved")
	return nil
}

// AppendTransaction 国庫トランザクションを追記
func (r *TreasuryRepository) AppendTransaction(ctx context.Context, tx *treasury.Transaction) error {
	ctx, span := r.tracer.Start(ctx, "TreasuryRepository.AppendTransaction")
	defer span.End()

	span.SetAttributes(dbAttributes("INSERT", "treasury_transactions")...)
	span.SetAttributes(
		attribute.String("db.transaction_id", tx.ID()),
		attribute.String("db.transaction_type", string(tx.TransactionType())),
		attribute.Int64("db.amount", int64(tx.Amount())),
	)

	query := `INSERT INTO treasury_transactions
		(id, guild_id, currency_type, transaction_type, amount, target_user_id, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.conn(ctx).ExecContext(ctx, query,
		tx.ID(),
		tx.GuildID(),
		tx.CurrencyType().String(),
		string(tx.TransactionType()),
		tx.Amount(),
		nullString(tx.TargetUserID()),
		nullString(tx.Reason()),
		tx.CreatedAt(),
	)
	if err != nil {
		return failSpan(span, fmt.Errorf("failed to append treasury transaction: %w", err))
	}

	span.SetStatus(otelcodes.Ok, "treasury transaction appended")
	return nil
}

// FindTransactions 国庫トランザクションを新しい順に取得
func (r *TreasuryRepository) FindTransactions(ctx context.Context, guildID string, limit, offset int) ([]*treasury.Transaction, error) {
	ctx, span := r.tracer.Start(ctx, "TreasuryRepository.FindTransactions")
	defer span.End()

	span.SetAttributes(dbAttributes("SELECT", "treasury_transactions")...)
	span.SetAttributes(
		attribute.String("db.guild_id", guildID),
		attribute.Int("db.limit", limit),
		attribute.Int("db.offset", offset),
	)

	query := `SELECT id, guild_id, currency_type, transaction_type, amount, target_user_id, reason, created_at
		FROM treasury_transactions
		WHERE guild_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`
	rows, err := r.db.conn(ctx).QueryContext(ctx, query, guildID, limit, offset)
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("failed to query treasury transactions: %w", err))
	}
	defer rows.Close()

	var txs []*treasury.Transaction
	for rows.Next() {
		var (
			id, gID, currencyType, transactionType string
			amount                                 uint64
			targetUserID, reason                   sql.NullString
			createdAt                              time.Time
		)
		if err := rows.Scan(&id, &gID, &currencyType, &transactionType, &amount, &targetUserID, &reason, &createdAt); err != nil {
			return nil, failSpan(span, fmt.Errorf("failed to scan treasury transaction: %w", err))
		}
		ct, err := wallet.NewCurrencyType(currencyType)
		if err != nil {
			return nil, failSpan(span, fmt.Errorf("invalid currency type: %w", err))
		}
		tt, err := treasury.NewTransactionType(transactionType)
		if err != nil {
			return nil, failSpan(span, fmt.Errorf("invalid transaction type: %w", err))
		}
		tx, err := treasury.NewTransaction(id, gID, ct, tt, amount, stringPtr(targetUserID), stringPtr(reason), createdAt)
		if err != nil {
			return nil, failSpan(span, fmt.Errorf("failed to restore treasury transaction: %w", err))
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, failSpan(span, fmt.Errorf("error iterating treasury transactions: %w", err))
	}

	span.SetAttributes(attribute.Int("db.rows", len(txs)))
	span.SetStatus(otelcodes.Ok, "treasury transactions found")
	return txs, nil
}

// ClaimTaxRun 対象期間の徴収権を確保する
func (r *TreasuryRepository) ClaimTaxRun(ctx context.Context, guildID, period string) error {
	ctx, span := r.tracer.Start(ctx, "TreasuryRepository.ClaimTaxRun")
	defer span.End()

	span.SetAttributes(dbAttributes("INSERT", "tax_runs")...)
	span.SetAttributes(
		attribute.String("db.guild_id", guildID),
		attribute.String("db.period", period),
	)

	_, err := r.db.conn(ctx).ExecContext(ctx, `INSERT INTO tax_runs (guild_id, period) VALUES (?, ?)`, guildID, period)
	var mysqlErr *mysqldriver.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry {
		span.SetStatus(otelcodes.Ok, "tax already collected")
		return treasury.ErrTaxAlreadyCollected
	}
	if err != nil {
		return failSpan(span, fmt.Errorf("failed to claim tax run: %w", err))
	}

	span.SetStatus(otelcodes.Ok, "tax run claimed")
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullUint32(v *uint32) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func uint32Ptr(v sql.NullInt64) *uint32 {
	if !v.Valid {
		return nil
	}
	u := uint32(v.Int64)
	return &u
}
