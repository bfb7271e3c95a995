// Package rolesync コミット済みのロール変更指示を外部へ反映する
package rolesync

import (
	"context"

	otelinfra "economy-server/internal/infrastructure/observability/otel"
)

// RoleMutator ギルドのロールを実際に付け外しする協力者
type RoleMutator interface {
	AddRole(ctx context.Context, guildID, userID, roleID string) error
	RemoveRole(ctx context.Context, guildID, userID, roleID string) error
}

// LogMutator 指示をログに出すだけのRoleMutator
//
// ボット側が台帳を購読して反映する構成で使う。
type LogMutator struct {
	logger *otelinfra.Logger
}

// NewLogMutator 新しいLogMutatorを作成
func NewLogMutator(logger *otelinfra.Logger) *LogMutator {
	return &LogMutator{logger: logger}
}

// AddRole ロール付与をログに出す
func (m *LogMutator) AddRole(ctx context.Context, guildID, userID, roleID string) error {
	m.logger.Info(ctx, "Role grant requested", map[string]interface{}{
		"guild_id": guildID,
		"user_id":  userID,
		"role_id":  roleID,
	})
	return nil
}

// RemoveRole ロール剥奪をログに出す
func (m *LogMutator) RemoveRole(ctx context.Context, guildID, userID, roleID string) error {
	m.logger.Info(ctx, "Role revoke requested", map[string]interface{}{
		"guild_id": guildID,
		"user_id":  userID,
		"role_id":  roleID,
	})
	return nil
}
