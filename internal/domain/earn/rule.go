package earn

import (
	"time"
)

const (
	// BaseMultiplier 倍率の基準値 (100 = 1.0倍)
	BaseMultiplier uint32 = 100
	// MaxMultiplier 倍率の上限 (10倍)
	MaxMultiplier uint32 = 1000

	minutesPerDay = 24 * 60
)

// Scope 倍率ルール・除外ルールの適用範囲
type Scope string

const (
	ScopeChannel Scope = "channel"
	ScopeRole    Scope = "role"
	ScopeHotTime Scope = "hot_time"
)

// MultiplierRule チャンネル・ロール・ホットタイムの倍率ルール
//
// ホットタイムのTargetIDは任意のチャンネル限定。StartMinute/EndMinuteは0時からの分で、日をまたぐ範囲も表せる。
type MultiplierRule struct {
	ID          int64
	GuildID     string
	Scope       Scope
	TargetID    string
	Activity    ActivityType // 空の場合は全活動
	Multiplier  uint32       // 100分率 (150 = 1.5倍)
	StartMinute uint16
	EndMinute   uint16
}

// Validate ルールを検証
func (r MultiplierRule) Validate() error {
	switch r.Scope {
	case ScopeChannel, ScopeRole:
		if r.TargetID == "" {
			return ErrInvalidTarget
		}
	case ScopeHotTime:
		if r.StartMinute >= minutesPerDay || r.EndMinute >= minutesPerDay || r.StartMinute == r.EndMinute {
			return ErrInvalidTimeWindow
		}
	default:
		return ErrInvalidScope
	}
	if r.Activity != "" && !r.Activity.Valid() {
		return ErrInvalidActivityType
	}
	if r.Multiplier == 0 || r.Multiplier > MaxMultiplier {
		return ErrInvalidMultiplier
	}
	return nil
}

// AppliesTo 活動コンテキストにルールが適用されるかを返す
func (r MultiplierRule) AppliesTo(c Context) bool {
	if r.Activity != "" && r.Activity != c.Activity {
		return false
	}
	switch r.Scope {
	case ScopeChannel:
		return r.TargetID == c.ChannelID
	case ScopeRole:
		return c.hasRole(r.TargetID)
	case ScopeHotTime:
		if r.TargetID != "" && r.TargetID != c.ChannelID {
			return false
		}
		return inWindow(minuteOfDay(c.Now), r.StartMinute, r.EndMinute)
	default:
		return false
	}
}

// Exclusion 報酬対象外とするチャンネル・ロール
type Exclusion struct {
	ID       int64
	GuildID  string
	Scope    Scope
	TargetID string
}

// Validate 除外ルールを検証
func (e Exclusion) Validate() error {
	if e.Scope != ScopeChannel && e.Scope != ScopeRole {
		return ErrInvalidScope
	}
	if e.TargetID == "" {
		return ErrInvalidTarget
	}
	return nil
}

// Matches 活動コンテキストが除外対象かを返す
func (e Exclusion) Matches(c Context) bool {
	switch e.Scope {
	case ScopeChannel:
		return e.TargetID == c.ChannelID
	case ScopeRole:
		return c.hasRole(e.TargetID)
	default:
		return false
	}
}

func minuteOfDay(t time.Time) uint16 {
	return uint16(t.Hour()*60 + t.Minute())
}

func inWindow(m, start, end uint16) bool {
	if start < end {
		return m >= start && m < end
	}
	return m >= start || m < end
}
