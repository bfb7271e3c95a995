package earn

import (
	"time"
)

// Context 報酬計算の対象となる活動
type Context struct {
	GuildID   string
	ChannelID string
	RoleIDs   []string
	Activity  ActivityType
	Now       time.Time // ギルドのタイムゾーンでの現在時刻
}

func (c Context) hasRole(roleID string) bool {
	for _, id := range c.RoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}

// Resolution 倍率解決の結果
type Resolution struct {
	Excluded   bool
	Multiplier uint32
	Rule       *MultiplierRule // 採用されたルール。基準倍率の場合はnil
}

// Resolve 除外を先に評価し、該当しなければ適用可能なルールの最大倍率を返す
//
// 倍率は加算せず、最大の1つだけが採用される。該当ルールがない場合は基準倍率。
func Resolve(c Context, rules []MultiplierRule, exclusions []Exclusion) Resolution {
	for _, e := range exclusions {
		if e.Matches(c) {
			return Resolution{Excluded: true}
		}
	}

	res := Resolution{Multiplier: BaseMultiplier}
	for i := range rules {
		r := rules[i]
		if !r.AppliesTo(c) {
			continue
		}
		if res.Rule == nil || r.Multiplier > res.Multiplier {
			res.Multiplier = r.Multiplier
			res.Rule = &r
		}
	}
	return res
}

// Apply 基本額に倍率を適用（切り捨て）
func (r Resolution) Apply(base uint64) uint64 {
	if r.Excluded {
		return 0
	}
	return base * uint64(r.Multiplier) / uint64(BaseMultiplier)
}
