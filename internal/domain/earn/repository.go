package earn

import "context"

// RuleRepository 倍率ルール・除外ルールのリポジトリインターフェース
type RuleRepository interface {
	// FindRules ギルドの倍率ルールを取得
	FindRules(ctx context.Context, guildID string) ([]MultiplierRule, error)

	// FindExclusions ギルドの除外ルールを取得
	FindExclusions(ctx context.Context, guildID string) ([]Exclusion, error)

	// CreateRule 倍率ルールを作成しIDを返す
	CreateRule(ctx context.Context, rule MultiplierRule) (int64, error)

	// DeleteRule 倍率ルールを削除。存在しない場合はErrRuleNotFound
	DeleteRule(ctx context.Context, guildID string, id int64) error

	// CreateExclusion 除外ルールを作成しIDを返す
	CreateExclusion(ctx context.Context, exclusion Exclusion) (int64, error)

	// DeleteExclusion 除外ルールを削除。存在しない場合はErrRuleNotFound
	DeleteExclusion(ctx context.Context, guildID string, id int64) error
}
