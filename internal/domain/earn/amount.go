package earn

// Source 一様乱数の供給源 (*rand.Rand を想定)
type Source interface {
	Uint64N(n uint64) uint64
}

// DrawBase [minAmount, maxAmount] から基本額を一様に選ぶ
func DrawBase(src Source, minAmount, maxAmount uint64) uint64 {
	if maxAmount <= minAmount {
		return minAmount
	}
	return minAmount + src.Uint64N(maxAmount-minAmount+1)
}

// Headroom 日次上限までの残り枠を返す。dailyCapが0の場合は上限なし
func Headroom(earnedToday, dailyCap uint64) (uint64, bool) {
	if dailyCap == 0 {
		return 0, false
	}
	if earnedToday >= dailyCap {
		return 0, true
	}
	return dailyCap - earnedToday, true
}

// Clamp 日次上限を超える分を切り詰めた付与額を返す
func Clamp(amount, earnedToday, dailyCap uint64) uint64 {
	headroom, limited := Headroom(earnedToday, dailyCap)
	if !limited || amount <= headroom {
		return amount
	}
	return headroom
}
