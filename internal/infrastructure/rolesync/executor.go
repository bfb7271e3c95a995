package rolesync

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"economy-server/internal/domain/ticket"
	"economy-server/internal/infrastructure/config"
	otelinfra "economy-server/internal/infrastructure/observability/otel"
)

// ErrPermanent リトライしても成功しない失敗。RoleMutatorがラップして返す
var ErrPermanent = errors.New("permanent role mutation failure")

const (
	ActionGrant  = "grant"
	ActionRevoke = "revoke"
)

// Failure ロール1件の反映失敗
type Failure struct {
	RoleID string
	Action string
	Err    error
}

// Report 反映結果。失敗は警告として呼び出し側に返す
type Report struct {
	Granted  []string
	Revoked  []string
	Failures []Failure
}

// OK すべて反映できたかどうか
func (r Report) OK() bool {
	return len(r.Failures) == 0
}

// Executor ロール変更指示をリトライ付きで反映する
//
// 台帳トランザクションのコミット後に呼ばれ、失敗しても経済的な効果は戻さない。
type Executor struct {
	mutator        RoleMutator
	logger         *otelinfra.Logger
	metrics        *otelinfra.Metrics
	tracer         trace.Tracer
	maxTries       uint
	maxElapsedTime time.Duration
	newBackOff     func() backoff.BackOff
}

// NewExecutor 新しいExecutorを作成
func NewExecutor(mutator RoleMutator, cfg config.RoleSyncConfig, logger *otelinfra.Logger, metrics *otelinfra.Metrics) *Executor {
	return &Executor{
		mutator:        mutator,
		logger:         logger,
		metrics:        metrics,
		tracer:         otel.Tracer("rolesync-executor"),
		maxTries:       cfg.MaxTries,
		maxElapsedTime: cfg.MaxElapsedTime,
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
}

// Apply 剥奪してから付与する順で指示を反映する
func (e *Executor) Apply(ctx context.Context, ins ticket.Instruction) Report {
	ctx, span := e.tracer.Start(ctx, "Executor.Apply")
	defer span.End()

	span.SetAttributes(
		attribute.String("guild_id", ins.GuildID),
		attribute.String("user_id", ins.UserID),
		attribute.Int("grant_count", len(ins.Grant)),
		attribute.Int("revoke_count", len(ins.Revoke)),
	)

	var report Report
	if ins.Empty() {
		return report
	}

	for _, roleID := range ins.Revoke {
		if err := e.run(ctx, ActionRevoke, roleID, func() error {
			return e.mutator.RemoveRole(ctx, ins.GuildID, ins.UserID, roleID)
		}); err != nil {
			report.Failures = append(report.Failures, Failure{RoleID: roleID, Action: ActionRevoke, Err: err})
			continue
		}
		report.Revoked = append(report.Revoked, roleID)
	}

	for _, roleID := range ins.Grant {
		if err := e.run(ctx, ActionGrant, roleID, func() error {
			return e.mutator.AddRole(ctx, ins.GuildID, ins.UserID, roleID)
		}); err != nil {
			report.Failures = append(report.Failures, Failure{RoleID: roleID, Action: ActionGrant, Err: err})
			continue
		}
		report.Granted = append(report.Granted, roleID)
	}

	for _, f := range report.Failures {
		e.metrics.RecordRoleSyncFailure(ctx, f.Action)
		e.logger.Warn(ctx, "Role mutation failed after retries", map[string]interface{}{
			"guild_id": ins.GuildID,
			"user_id":  ins.UserID,
			"role_id":  f.RoleID,
			"action":   f.Action,
			"error":    f.Err.Error(),
		})
	}
	if !report.OK() {
		span.SetStatus(otelcodes.Error, "role mutation partially failed")
	}
	return report
}

func (e *Executor) run(ctx context.Context, action, roleID string, op func() error) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := op()
		if errors.Is(err, ErrPermanent) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(e.newBackOff()),
		backoff.WithMaxTries(e.maxTries),
		backoff.WithMaxElapsedTime(e.maxElapsedTime),
		backoff.WithNotify(func(err error, next time.Duration) {
			e.logger.Debug(ctx, "Retrying role mutation", map[string]interface{}{
				"role_id": roleID,
				"action":  action,
				"error":   err.Error(),
				"next_ms": next.Milliseconds(),
			})
		}),
	)
	return err
}
