package wallet

import (
	"fmt"
)

// CurrencyType 通貨タイプを表す値オブジェクト
type CurrencyType string

const (
	CurrencyTypeTopy CurrencyType = "topy" // 活動で獲得する基本通貨
	CurrencyTypeRuby CurrencyType = "ruby" // 上位通貨
)

// NewCurrencyType 新しいCurrencyTypeを作成
func NewCurrencyType(s string) (CurrencyType, error) {
	switch s {
	case "topy", "ruby":
		return CurrencyType(s), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidCurrencyType, s)
	}
}

// AllCurrencyTypes 全通貨タイプを返す
func AllCurrencyTypes() []CurrencyType {
	return []CurrencyType{CurrencyTypeTopy, CurrencyTypeRuby}
}

// String 文字列表現を返す
func (ct CurrencyType) String() string {
	return string(ct)
}

// Valid 有効な通貨タイプかどうかを返す
func (ct CurrencyType) Valid() bool {
	return ct == CurrencyTypeTopy || ct == CurrencyTypeRuby
}
