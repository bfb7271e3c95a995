package earn

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fixedSource uint64

func (f fixedSource) Uint64N(n uint64) uint64 {
	return uint64(f) % n
}

func TestDrawBase(t *testing.T) {
	assert.Equal(t, uint64(10), DrawBase(fixedSource(0), 10, 20))
	assert.Equal(t, uint64(20), DrawBase(fixedSource(10), 10, 20))
	assert.Equal(t, uint64(5), DrawBase(fixedSource(3), 5, 5))
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name        string
		amount      uint64
		earnedToday uint64
		dailyCap    uint64
		want        uint64
	}{
		{"正常系: 上限内はそのまま", 10, 50, 100, 10},
		{"正常系: 残り枠に切り詰め", 10, 95, 100, 5},
		{"正常系: 残り枠なしは0", 10, 100, 100, 0},
		{"正常系: 上限なし", 10, 1_000_000, 0, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clamp(tt.amount, tt.earnedToday, tt.dailyCap))
		})
	}
}

func TestDailyKey(t *testing.T) {
	loc := time.FixedZone("KST", 9*60*60)
	now := time.Date(2026, 3, 10, 23, 30, 0, 0, loc)

	assert.Equal(t, "earn:daily:1:2:text:2026-03-10", DailyKey("1", "2", ActivityTypeText, now))
	assert.Equal(t, 30*time.Minute, UntilNextDay(now))
}
