package settings

import (
	"context"
	"errors"
)

// SettingsRepository 経済設定リポジトリインターフェース
type SettingsRepository interface {
	// FindByGuild 設定を取得。存在しない場合はErrSettingsNotFound
	FindByGuild(ctx context.Context, guildID string) (*CurrencySettings, error)

	// Save 設定を保存
	Save(ctx context.Context, guildID string, s CurrencySettings) error

	// ListGuildIDs 設定が保存されている全ギルドIDを取得
	ListGuildIDs(ctx context.Context) ([]string, error)
}

// Load ギルドの設定を取得する。保存されていない場合は既定値を返す
func Load(ctx context.Context, repo SettingsRepository, guildID string) (CurrencySettings, error) {
	s, err := repo.FindByGuild(ctx, guildID)
	if errors.Is(err, ErrSettingsNotFound) {
		return Default(), nil
	}
	if err != nil {
		return CurrencySettings{}, err
	}
	return *s, nil
}
