package earn

import "fmt"

// ActivityType 報酬対象となる活動種別
type ActivityType string

const (
	ActivityTypeText  ActivityType = "text"
	ActivityTypeVoice ActivityType = "voice"
)

// NewActivityType 新しいActivityTypeを作成
func NewActivityType(s string) (ActivityType, error) {
	switch s {
	case "text", "voice":
		return ActivityType(s), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidActivityType, s)
	}
}

// Valid 有効な活動種別かどうかを返す
func (a ActivityType) Valid() bool {
	return a == ActivityTypeText || a == ActivityTypeVoice
}

// String 文字列表現を返す
func (a ActivityType) String() string {
	return string(a)
}
