package earn

import "errors"

var (
	// ErrInvalidActivityType 活動種別が無効
	ErrInvalidActivityType = errors.New("invalid activity type")
	// ErrInvalidScope スコープが無効
	ErrInvalidScope = errors.New("invalid rule scope")
	// ErrInvalidMultiplier 倍率が無効
	ErrInvalidMultiplier = errors.New("invalid multiplier")
	// ErrInvalidTimeWindow ホットタイムの時間帯が無効
	ErrInvalidTimeWindow = errors.New("invalid hot time window")
	// ErrInvalidTarget 対象IDが無効
	ErrInvalidTarget = errors.New("invalid rule target")
	// ErrRuleNotFound ルールが見つからない
	ErrRuleNotFound = errors.New("multiplier rule not found")
)
