package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"economy-server/internal/domain/settings"
)

// SettingsRepository MySQL実装のSettingsRepository
//
// 設定はJSONカラム1つに保存する。
type SettingsRepository struct {
	db     *DB
	tracer trace.Tracer
}

// NewSettingsRepository 新しいSettingsRepositoryを作成
func NewSettingsRepository(db *DB) *SettingsRepository {
	return &SettingsRepository{
		db:     db,
		tracer: otel.Tracer("settings-repository"),
	}
}

// FindByGuild 設定を取得
func (r *SettingsRepository) FindByGuild(ctx context.Context, guildID string) (*settings.CurrencySettings, error) {
	ctx, span := r.tracer.Start(ctx, "SettingsRepository.FindByGuild")
	defer span.End()

	span.SetAttributes(dbAttributes("SELECT", "currency_settings")...)
	span.SetAttributes(attribute.String("db.guild_id", guildID))

	var raw []byte
	err := r.db.conn(ctx).QueryRowContext(ctx, `SELECT settings FROM currency_settings WHERE guild_id = ?`, guildID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(otelcodes.Ok, "settings not found")
		return nil, settings.ErrSettingsNotFound
	}
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("failed to find settings: %w", err))
	}

	// 保存後に追加された項目はデフォルト値で補う
	s := settings.Default()
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, failSpan(span, fmt.Errorf("failed to decode settings: %w", err))
	}

	span.SetStatus(otelcodes.Ok, "settings found")
	return &s, nil
}

// Save 設定を保存
func (r *SettingsRepository) Save(ctx context.Context, guildID string, s settings.CurrencySettings) error {
	ctx, span := r.tracer.Start(ctx, "SettingsRepository.Save")
	defer span.End()

	span.SetAttributes(dbAttributes("UPSERT", "currency_settings")...)
	span.SetAttributes(attribute.String("db.guild_id", guildID))

	raw, err := json.Marshal(s)
	if err != nil {
		return failSpan(span, fmt.Errorf("failed to encode settings: %w", err))
	}

	query := `INSERT INTO currency_settings (guild_id, settings) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE settings = VALUES(settings)`
	if _, err := r.db.conn(ctx).ExecContext(ctx, query, guildID, raw); err != nil {
		return failSpan(span, fmt.Errorf("failed to save settings: %w", err))
	}

	span.SetStatus(otelcodes.Ok, "settings saved")
	return nil
}

// ListGuildIDs 設定が保存されている全ギルドIDを取得
func (r *SettingsRepository) ListGuildIDs(ctx context.Context) ([]string, error) {
	ctx, span := r.tracer.Start(ctx, "SettingsRepository.ListGuildIDs")
	defer span.End()

	span.SetAttributes(dbAttributes("SELECT", "currency_settings")...)

	rows, err := r.db.conn(ctx).QueryContext(ctx, `SELECT guild_id FROM currency_settings ORDER BY guild_id`)
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("failed to query guild ids: %w", err))
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, failSpan(span, fmt.Errorf("failed to scan guild id: %w", err))
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, failSpan(span, fmt.Errorf("error iterating guild ids: %w", err))
	}

	span.SetStatus(otelcodes.Ok, "guild ids found")
	return ids, nil
}
