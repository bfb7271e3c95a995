package mysql

import (
	"context"
	"errors"
	"fmt"

	mysqldriver "github.com/go-sql-driver/mysql"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"economy-server/internal/domain/earn"
)

// EarnRuleRepository MySQL実装のRuleRepository
type EarnRuleRepository struct {
	db     *DB
	tracer trace.Tracer
}

// NewEarnRuleRepository 新しいEarnRuleRepositoryを作成
func NewEarnRuleRepository(db *DB) *EarnRuleRepository {
	return &EarnRuleRepository{
		db:     db,
		tracer: otel.Tracer("earn-rule-repository"),
	}
}

// FindRules ギルドの倍率ルールを取得
func (r *EarnRuleRepository) FindRules(ctx context.Context, guildID string) ([]earn.MultiplierRule, error) {
	ctx, span := r.tracer.Start(ctx, "EarnRuleRepository.FindRules")
	defer span.End()

	span.SetAttributes(dbAttributes("SELECT", "earn_multiplier_rules")...)
	span.SetAttributes(attribute.String("db.guild_id", guildID))

	query := `SELECT id, guild_id, scope, target_id, activity, multiplier, start_minute, end_minute
		FROM earn_multiplier_rules WHERE guild_id = ? ORDER BY id`
	rows, err := r.db.conn(ctx).QueryContext(ctx, query, guildID)
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("failed to query multiplier rules: %w", err))
	}
	defer rows.Close()

	var rules []earn.MultiplierRule
	for rows.Next() {
		var rule earn.MultiplierRule
		var scope, activity string
		if err := rows.Scan(&rule.ID, &rule.GuildID, &scope, &rule.TargetID, &activity,
			&rule.Multiplier, &rule.StartMinute, &rule.EndMinute); err != nil {
			return nil, failSpan(span, fmt.Errorf("failed to scan multiplier rule: %w", err))
		}
		rule.Scope = earn.Scope(scope)
		rule.Activity = earn.ActivityType(activity)
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, failSpan(span, fmt.Errorf("error iterating multiplier rules: %w", err))
	}

	span.SetAttributes(attribute.Int("db.rows", len(rules)))
	span.SetStatus(otelcodes.Ok, "multiplier rules found")
	return rules, nil
}

// FindExclusions ギルドの除外ルールを取得
func (r *EarnRuleRepository) FindExclusions(ctx context.Context, guildID string) ([]earn.Exclusion, error) {
	ctx, span := r.tracer.Start(ctx, "EarnRuleRepository.FindExclusions")
	defer span.End()

	span.SetAttributes(dbAttributes("SELECT", "earn_exclusions")...)
	span.SetAttributes(attribute.String("db.guild_id", guildID))

	query := `SELECT id, guild_id, scope, target_id FROM earn_exclusions WHERE guild_id = ? ORDER BY id`
	rows, err := r.db.conn(ctx).QueryContext(ctx, query, guildID)
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("failed to query exclusions: %w", err))
	}
	defer rows.Close()

	var exclusions []earn.Exclusion
	for rows.Next() {
		var ex earn.Exclusion
		var scope string
		if err := rows.Scan(&ex.ID, &ex.GuildID, &scope, &ex.TargetID); err != nil {
			return nil, failSpan(span, fmt.Errorf("failed to scan exclusion: %w", err))
		}
		ex.Scope = earn.Scope(scope)
		exclusions = append(exclusions, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, failSpan(span, fmt.Errorf("error iterating exclusions: %w", err))
	}

	span.SetAttributes(attribute.Int("db.rows", len(exclusions)))
	span.SetStatus(otelcodes.Ok, "exclusions found")
	return exclusions, nil
}

// CreateRule 倍率ルールを作成しIDを返す
func (r *EarnRuleRepository) CreateRule(ctx context.Context, rule earn.MultiplierRule) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "EarnRuleRepository.CreateRule")
	defer span.End()

	span.SetAttributes(dbAttributes("INSERT", "earn_multiplier_rules")...)
	span.SetAttributes(
		attribute.String("db.guild_id", rule.GuildID),
		attribute.String("db.scope", string(rule.Scope)),
	)

	query := `INSERT INTO earn_multiplier_rules
		(guild_id, scope, target_id, activity, multiplier, start_minute, end_minute)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	result, err := r.db.conn(ctx).ExecContext(ctx, query,
		rule.GuildID, string(rule.Scope), rule.TargetID, string(rule.Activity),
		rule.Multiplier, rule.StartMinute, rule.EndMinute)
	if err != nil {
		return 0, failSpan(span, fmt.Errorf("failed to create multiplier rule: %w", err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, failSpan(span, fmt.Errorf("failed to get multiplier rule id: %w", err))
	}

	span.SetStatus(otelcodes.Ok, "multiplier rule created")
	return id, nil
}

// DeleteRule 倍率ルールを削除
func (r *EarnRuleRepository) DeleteRule(ctx context.Context, guildID string, id int64) error {
	ctx, span := r.tracer.Start(ctx, "EarnRuleRepository.DeleteRule")
	defer span.End()

	span.SetAttributes(dbAttributes("DELETE", "earn_multiplier_rules")...)
	return r.deleteByID(ctx, span, `DELETE FROM earn_multiplier_rules WHERE guild_id = ? AND id = ?`, guildID, id)
}

// CreateExclusion 除外ルールを作成しIDを返す
func (r *EarnRuleRepository) CreateExclusion(ctx context.Context, exclusion earn.Exclusion) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "EarnRuleRepository.CreateExclusion")
	defer span.End()

	span.SetAttributes(dbAttributes("INSERT", "earn_exclusions")...)
	span.SetAttributes(
		attribute.String("db.guild_id", exclusion.GuildID),
		attribute.String("db.scope", string(exclusion.Scope)),
	)

	result, err := r.db.conn(ctx).ExecContext(ctx,
		`INSERT INTO earn_exclusions (guild_id, scope, target_id) VALUES (?, ?, ?)`,
		exclusion.GuildID, string(exclusion.Scope), exclusion.TargetID)
	var mysqlErr *mysqldriver.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry {
		return 0, failSpan(span, fmt.Errorf("%w: exclusion already exists", earn.ErrInvalidTarget))
	}
	if err != nil {
		return 0, failSpan(span, fmt.Errorf("failed to create exclusion: %w", err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, failSpan(span, fmt.Errorf("failed to get exclusion id: %w", err))
	}

	span.SetStatus(otelcodes.Ok, "exclusion created")
	return id, nil
}

// DeleteExclusion 除外ルールを削除
func (r *EarnRuleRepository) DeleteExclusion(ctx context.Context, guildID string, id int64) error {
	ctx, span := r.tracer.Start(ctx, "EarnRuleRepository.DeleteExclusion")
	defer span.End()

	span.SetAttributes(dbAttributes("DELETE", "earn_exclusions")...)
	return r.deleteByID(ctx, span, `DELETE FROM earn_exclusions WHERE guild_id = ? AND id = ?`, guildID, id)
}

func (r *EarnRuleRepository) deleteByID(ctx context.Context, span trace.Span, query, guildID string, id int64) error {
	span.SetAttributes(
		attribute.String("db.guild_id", guildID),
		attribute.Int64("db.id", id),
	)

	result, err := r.db.conn(ctx).ExecContext(ctx, query, guildID, id)
	if err != nil {
		return failSpan(span, fmt.Errorf("failed to delete rule: %w", err))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return failSpan(span, fmt.Errorf("failed to get rows affected: %w", err))
	}
	if rowsAffected == 0 {
		span.SetStatus(otelcodes.Ok, "rule not found")
		return earn.ErrRuleNotFound
	}

	span.SetStatus(otelcodes.Ok, "rule deleted")
	return nil
}
