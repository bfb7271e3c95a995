// Package earncounter 活動報酬のクールダウンと日次上限カウンタ
package earncounter

import (
	"context"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// クールダウン窓は最初のイベントから固定長
const cooldownScript = `
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
if count > tonumber(ARGV[2]) then
  return 0
end
return 1
`

// 残り枠から確保できた量を返す。dailyCapが0なら上限なし
const reserveScript = `
local amount = tonumber(ARGV[1])
local cap = tonumber(ARGV[2])
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
local grant = amount
if cap > 0 then
  local headroom = cap - current
  if headroom <= 0 then
    return 0
  end
  if grant > headroom then
    grant = headroom
  end
end
redis.call("INCRBY", KEYS[1], grant)
redis.call("PEXPIRE", KEYS[1], ARGV[3])
return grant
`

const releaseScript = `
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
local amount = tonumber(ARGV[1])
if current <= amount then
  redis.call("DEL", KEYS[1])
  return 0
end
return redis.call("DECRBY", KEYS[1], amount)
`

// RedisCounter Redis実装のCounter
type RedisCounter struct {
	client   redis.UniversalClient
	cooldown *redis.Script
	reserve  *redis.Script
	release  *redis.Script
}

// NewRedisCounter 新しいRedisCounterを作成
func NewRedisCounter(client redis.UniversalClient) *RedisCounter {
	return &RedisCounter{
		client:   client,
		cooldown: redis.NewScript(cooldownScript),
		reserve:  redis.NewScript(reserveScript),
		release:  redis.NewScript(releaseScript),
	}
}

// AcquireCooldown クールダウン窓内の回数を1つ消費する
func (c *RedisCounter) AcquireCooldown(ctx context.Context, key string, window time.Duration, limit uint32) (bool, error) {
	if key == "" {
		return false, errors.New("counter key is empty")
	}
	if window <= 0 {
		return true, nil
	}
	if limit == 0 {
		return false, nil
	}
	allowed, err := c.cooldown.Run(ctx, c.client, []string{key}, window.Milliseconds(), limit).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to acquire cooldown: %w", err)
	}
	return allowed == 1, nil
}

// ReserveDaily 日次上限の残り枠からamountを確保する
func (c *RedisCounter) ReserveDaily(ctx context.Context, key string, amount, dailyCap uint64, ttl time.Duration) (uint64, error) {
	if key == "" {
		return 0, errors.New("counter key is empty")
	}
	if amount == 0 {
		return 0, nil
	}
	granted, err := c.reserve.Run(ctx, c.client, []string{key}, amount, dailyCap, ttl.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to reserve daily amount: %w", err)
	}
	return uint64(granted), nil
}

// ReleaseDaily 確保した枠を返却する
func (c *RedisCounter) ReleaseDaily(ctx context.Context, key string, amount uint64) error {
	if amount == 0 {
		return nil
	}
	if err := c.release.Run(ctx, c.client, []string{key}, amount).Err(); err != nil {
		return fmt.Errorf("failed to release daily amount: %w", err)
	}
	return nil
}

// Ping Redisの疎通確認
func (c *RedisCounter) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
