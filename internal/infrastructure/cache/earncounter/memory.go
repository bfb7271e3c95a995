package earncounter

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     uint64
	expiresAt time.Time
}

// MemoryCounter プロセス内のCounter。Redisを使わない構成用
type MemoryCounter struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemoryCounter 新しいMemoryCounterを作成
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

func (c *MemoryCounter) get(key string, now time.Time) uint64 {
	e, ok := c.entries[key]
	if !ok {
		return 0
	}
	if !now.Before(e.expiresAt) {
		delete(c.entries, key)
		return 0
	}
	return e.value
}

// AcquireCooldown クールダウン窓内の回数を1つ消費する
func (c *MemoryCounter) AcquireCooldown(ctx context.Context, key string, window time.Duration, limit uint32) (bool, error) {
	if window <= 0 {
		return true, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	count := c.get(key, now)
	if count == 0 {
		c.entries[key] = entry{value: 1, expiresAt: now.Add(window)}
		return limit > 0, nil
	}
	e := c.entries[key]
	e.value++
	c.entries[key] = e
	return e.value <= uint64(limit), nil
}

// ReserveDaily 日次上限の残り枠からamountを確保する
func (c *MemoryCounter) ReserveDaily(ctx context.Context, key string, amount, dailyCap uint64, ttl time.Duration) (uint64, error) {
	if amount == 0 {
		return 0, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	current := c.get(key, now)
	grant := amount
	if dailyCap > 0 {
		if current >= dailyCap {
			return 0, nil
		}
		if headroom := dailyCap - current; grant > headroom {
			grant = headroom
		}
	}
	c.entries[key] = entry{value: current + grant, expiresAt: now.Add(ttl)}
	return grant, nil
}

// ReleaseDaily 確保した枠を返却する
func (c *MemoryCounter) ReleaseDaily(ctx context.Context, key string, amount uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.get(key, c.now())
	if current <= amount {
		delete(c.entries, key)
		return nil
	}
	e := c.entries[key]
	e.value = current - amount
	c.entries[key] = e
	return nil
}
