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

	"economy-server/internal/domain/wallet"
)

// WalletRepository MySQL実装のWalletRepository
type WalletRepository struct {
	db     *DB
	tracer trace.Tracer
}

// NewWalletRepository 新しいWalletRepositoryを作成
func NewWalletRepository(db *DB) *WalletRepository {
	return &WalletRepository{
		db:     db,
		tracer: otel.Tracer("wallet-repository"),
	}
}

const walletColumns = `guild_id, user_id, currency_type, balance, updated_at`

func scanWallet(row interface{ Scan(dest ...any) error }) (*wallet.Wallet, error) {
	var guildID, userID, currencyType string
	var balance uint64
	var updatedAt time.Time
	if err := row.Scan(&guildID, &userID, &currencyType, &balance, &updatedAt); err != nil {
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
	return wallet.RestoreWallet(key, balance, updatedAt), nil
}

// FindByKey キーでウォレットを取得
func (r *WalletRepository) FindByKey(ctx context.Context, key wallet.Key) (*wallet.Wallet, error) {
	ctx, span := r.tracer.Start(ctx, "WalletRepository.FindByKey")
	defer span.End()

	span.SetAttributes(dbAttributes("SELECT", "wallets")...)
	span.SetAttributes(attribute.String("db.wallet_key", key.String()))

	query := `SELECT ` + walletColumns + ` FROM wallets WHERE guild_id = ? AND user_id = ? AND currency_type = ?`
	w, err := scanWallet(r.db.conn(ctx).QueryRowContext(ctx, query, key.GuildID, key.UserID, key.CurrencyType.String()))
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(otelcodes.Ok, "wallet not found")
		return nil, wallet.ErrWalletNotFound
	}
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("failed to find wallet: %w", err))
	}

	span.SetAttributes(attribute.Int64("db.balance", int64(w.Balance())))
	span.SetStatus(otelcodes.Ok, "wallet found")
	return w, nil
}

// FindByUser ユーザーの全通貨ウォレットを取得
func (r *WalletRepository) FindByUser(ctx context.Context, guildID, userID string) ([]*wallet.Wallet, error) {
	ctx, span := r.tracer.Start(ctx, "WalletRepository.FindByUser")
	defer span.End()

	span.SetAttributes(dbAttributes("SELECT", "wallets")...)
	span.SetAttributes(
		attribute.String("db.guild_id", guildID),
		attribute.String("db.user_id", userID),
	)

	query := `SELECT ` + walletColumns + ` FROM wallets WHERE guild_id = ? AND user_id = ? ORDER BY currency_type`
	return r.queryWallets(ctx, span, query, guildID, userID)
}

// FindByKeyForUpdate 行ロック付きで取得
func (r *WalletRepository) FindByKeyForUpdate(ctx context.Context, key wallet.Key) (*wallet.Wallet, error) {
	ctx, span := r.tracer.Start(ctx, "WalletRepository.FindByKeyForUpdate")
	defer span.End()

	span.SetAttributes(dbAttributes("SELECT FOR UPDATE", "wallets")...)
	span.SetAttributes(attribute.String("db.wallet_key", key.String()))

	conn, err := r.db.lockingConn(ctx)
	if err != nil {
		return nil, failSpan(span, err)
	}

	query := `SELECT ` + walletColumns + ` FROM wallets WHERE guild_id = ? AND user_id = ? AND currency_type = ? FOR UPDATE`
	w, err := scanWallet(conn.QueryRowContext(ctx, query, key.GuildID, key.UserID, key.CurrencyType.String()))
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(otelcodes.Ok, "wallet not found")
		return nil, wallet.ErrWalletNotFound
	}
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("failed to lock wallet: %w", err))
	}

	span.SetStatus(otelcodes.Ok, "wallet locked")
	return w, nil
}

// FindOrCreateForUpdate 残高0の行を必要に応じて作成してから行ロック付きで取得
func (r *WalletRepository) FindOrCreateForUpdate(ctx context.Context, key wallet.Key) (*wallet.Wallet, error) {
	ctx, span := r.tracer.Start(ctx, "WalletRepository.FindOrCreateForUpdate")
	defer span.End()

	span.SetAttributes(dbAttributes("INSERT IGNORE", "wallets")...)
	span.SetAttributes(attribute.String("db.wallet_key", key.String()))

	conn, err := r.db.lockingConn(ctx)
	if err != nil {
		return nil, failSpan(span, err)
	}

	insert := `INSERT IGNORE INTO wallets (guild_id, user_id, currency_type, balance) VALUES (?, ?, ?, 0)`
	if _, err := conn.ExecContext(ctx, insert, key.GuildID, key.UserID, key.CurrencyType.String()); err != nil {
		return nil, failSpan(span, fmt.Errorf("failed to create wallet: %w", err))
	}

	query := `SELECT ` + walletColumns + ` FROM wallets WHERE guild_id = ? AND user_id = ? AND currency_type = ? FOR UPDATE`
	w, err := scanWallet(conn.QueryRowContext(ctx, query, key.GuildID, key.UserID, key.CurrencyType.String()))
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("failed to lock wallet: %w", err))
	}

	span.SetStatus(otelcodes.Ok, "wallet locked")
	return w, nil
}

// Save 残高を保存
func (r *WalletRepository) Save(ctx context.Context, w *wallet.Wallet) error {
	ctx, span := r.tracer.Start(ctx, "WalletRepository.Save")
	defer span.End()

	span.SetAttributes(dbAttributes("UPDATE", "wallets")...)
	span.SetAttributes(
		attribute.String("db.wallet_key", w.Key().String()),
		attribute.Int64("db.balance", int64(w.Balance())),
	)

	query := `UPDATE wallets SET balance = ?, updated_at = ? WHERE guild_id = ? AND user_id = ? AND currency_type = ?`
	result, err := r.db.conn(ctx).ExecContext(ctx, query,
		w.Balance(), w.UpdatedAt(), w.GuildID(), w.UserID(), w.CurrencyType().String())
	if err != nil {
		return failSpan(span, fmt.Errorf("failed to update wallet: %w", err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return failSpan(span, fmt.Errorf("failed to get rows affected: %w", err))
	}
	if rowsAffected == 0 {
		return failSpan(span, wallet.ErrWalletNotFound)
	}

	span.SetStatus(otelcodes.Ok, "wallet saved")
	return nil
}

// ListPositive 残高が正のウォレットをユーザーID順にページングして取得
func (r *WalletRepository) ListPositive(ctx context.Context, guildID string, currencyType wallet.CurrencyType, afterUserID string, limit int) ([]*wallet.Wallet, error) {
	ctx, span := r.tracer.Start(ctx, "WalletRepository.ListPositive")
	defer span.End()

	span.SetAttributes(dbAttributes("SELECT", "wallets")...)
	span.SetAttributes(
		attribute.String("db.guild_id", guildID),
		attribute.String("db.currency_type", currencyType.String()),
		attribute.Int("db.limit", limit),
	)

	query := `SELECT ` + walletColumns + ` FROM wallets
		WHERE guild_id = ? AND currency_type = ? AND balance > 0 AND user_id > ?
		ORDER BY user_id
		LIMIT ?`
	return r.queryWallets(ctx, span, query, guildID, currencyType.String(), afterUserID, limit)
}

func (r *WalletRepository) queryWallets(ctx context.Context, span trace.Span, query string, args ...any) ([]*wallet.Wallet, error) {
	rows, err := r.db.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("failed to query wallets: %w", err))
	}
	defer rows.Close()

	var wallets []*wallet.Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, failSpan(span, fmt.Errorf("failed to scan wallet: %w", err))
		}
		wallets = append(wallets, w)
	}
	if err := rows.Err(); err != nil {
		return nil, failSpan(span, fmt.Errorf("error iterating wallets: %w", err))
	}

	span.SetAttributes(attribute.Int("db.rows", len(wallets)))
	span.SetStatus(otelcodes.Ok, "wallets found")
	return wallets, nil
}
