package earn

import (
	"context"
	"fmt"
	"time"
)

// Counter クールダウンと日次上限のユーザー別カウンタ
type Counter interface {
	// AcquireCooldown クールダウン窓内の回数を1つ消費する。上限に達している場合はfalse
	AcquireCooldown(ctx context.Context, key string, window time.Duration, limit uint32) (bool, error)

	// ReserveDaily 日次上限の残り枠からamountを確保し、確保できた量を返す
	ReserveDaily(ctx context.Context, key string, amount, dailyCap uint64, ttl time.Duration) (uint64, error)

	// ReleaseDaily 確保した枠を返却する
	ReleaseDaily(ctx context.Context, key string, amount uint64) error
}

// CooldownKey クールダウンカウンタのキー
func CooldownKey(guildID, userID string, activity ActivityType) string {
	return fmt.Sprintf("earn:cooldown:%s:%s:%s", guildID, userID, activity)
}

// DailyKey 日次カウンタのキー。日付はギルドのタイムゾーンで決まる
func DailyKey(guildID, userID string, activity ActivityType, now time.Time) string {
	return fmt.Sprintf("earn:daily:%s:%s:%s:%s", guildID, userID, activity, now.Format("2006-01-02"))
}

// UntilNextDay 次の0時までの時間
func UntilNextDay(now time.Time) time.Duration {
	y, m, d := now.Date()
	next := time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
	return next.Sub(now)
}
