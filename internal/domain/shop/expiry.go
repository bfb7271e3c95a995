package shop

import "time"

// ExtendExpiry 購入による有効期限の延長を計算する
//
// 未失効の期限があればそこから、なければnowから durationDays*quantity 日延長する。
// durationDaysが0の場合は既存の値をそのまま返す。
func ExtendExpiry(existing *time.Time, now time.Time, durationDays, quantity uint32) *time.Time {
	if durationDays == 0 {
		return existing
	}
	base := now
	if existing != nil && existing.After(now) {
		base = *existing
	}
	extended := base.AddDate(0, 0, int(durationDays)*int(quantity))
	return &extended
}
