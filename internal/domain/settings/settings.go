package settings

import (
	"errors"
	"fmt"
	"time"
	_ "time/tzdata"

	"economy-server/internal/domain/earn"
	"economy-server/internal/domain/wallet"
)

const (
	// BasisPointsDenominator 1万分率の分母 (1.2% = 120)
	BasisPointsDenominator = 10_000
	// DefaultTimezone ギルドのデフォルトタイムゾーン
	DefaultTimezone = "Asia/Seoul"
)

var (
	// ErrSettingsNotFound 設定が見つからない
	ErrSettingsNotFound = errors.New("currency settings not found")
	// ErrInvalidSettings 設定値が無効
	ErrInvalidSettings = errors.New("invalid currency settings")
)

// EarnSettings 活動種別ごとの報酬パラメータ
type EarnSettings struct {
	MinAmount       uint64 `json:"min_amount"`
	MaxAmount       uint64 `json:"max_amount"`
	CooldownSeconds uint32 `json:"cooldown_seconds"`
	MaxPerCooldown  uint32 `json:"max_per_cooldown"`
	DailyCap        uint64 `json:"daily_cap"` // 0 = 上限なし
}

// Cooldown クールダウン期間を返す
func (e EarnSettings) Cooldown() time.Duration {
	return time.Duration(e.CooldownSeconds) * time.Second
}

// CurrencyRule 通貨ごとの表示名と送金ルール
type CurrencyRule struct {
	DisplayName    string `json:"display_name"`
	MinTransfer    uint64 `json:"min_transfer"`
	TransferFeeBps uint32 `json:"transfer_fee_bps"`
}

// CurrencySettings ギルドごとの経済設定
//
// 値として扱い、リクエストごとに一度取得して引数で受け渡す。
type CurrencySettings struct {
	Topy              CurrencyRule `json:"topy"`
	Ruby              CurrencyRule `json:"ruby"`
	TextEarn          EarnSettings `json:"text_earn"`
	VoiceEarn         EarnSettings `json:"voice_earn"`
	MonthlyTaxBps     uint32       `json:"monthly_tax_bps"`
	MonthlyTaxEnabled bool         `json:"monthly_tax_enabled"`
	Timezone          string       `json:"timezone"`
}

// Default 設定が保存されていない場合に適用される既定値
func Default() CurrencySettings {
	return CurrencySettings{
		Topy: CurrencyRule{DisplayName: "토피", MinTransfer: 100, TransferFeeBps: 120},
		Ruby: CurrencyRule{DisplayName: "루비", MinTransfer: 1, TransferFeeBps: 0},
		TextEarn: EarnSettings{
			MinAmount:       1,
			MaxAmount:       5,
			CooldownSeconds: 60,
			MaxPerCooldown:  1,
			DailyCap:        300,
		},
		VoiceEarn: EarnSettings{
			MinAmount:       10,
			MaxAmount:       20,
			CooldownSeconds: 300,
			MaxPerCooldown:  1,
			DailyCap:        1000,
		},
		MonthlyTaxBps:     300,
		MonthlyTaxEnabled: false,
		Timezone:          DefaultTimezone,
	}
}

// Rule 通貨ごとのルールを返す
func (s CurrencySettings) Rule(ct wallet.CurrencyType) CurrencyRule {
	if ct == wallet.CurrencyTypeRuby {
		return s.Ruby
	}
	return s.Topy
}

// Earn 活動種別ごとの報酬パラメータを返す
func (s CurrencySettings) Earn(activity earn.ActivityType) EarnSettings {
	if activity == earn.ActivityTypeVoice {
		return s.VoiceEarn
	}
	return s.TextEarn
}

// TransferFee 送金額に対する手数料（切り捨て）を返す
func (s CurrencySettings) TransferFee(ct wallet.CurrencyType, amount uint64) uint64 {
	return ApplyBasisPoints(amount, s.Rule(ct).TransferFeeBps)
}

// MonthlyTax 残高に対する月次税（切り捨て）を返す
func (s CurrencySettings) MonthlyTax(balance uint64) uint64 {
	if !s.MonthlyTaxEnabled {
		return 0
	}
	return ApplyBasisPoints(balance, s.MonthlyTaxBps)
}

// Location タイムゾーンを返す。解決できない場合はUTC
func (s CurrencySettings) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate 設定値を検証
func (s CurrencySettings) Validate() error {
	for name, r := range map[string]CurrencyRule{"topy": s.Topy, "ruby": s.Ruby} {
		if r.DisplayName == "" {
			return fmt.Errorf("%w: %s display name is empty", ErrInvalidSettings, name)
		}
		if r.MinTransfer == 0 {
			return fmt.Errorf("%w: %s min transfer must be positive", ErrInvalidSettings, name)
		}
		if r.TransferFeeBps > BasisPointsDenominator {
			return fmt.Errorf("%w: %s transfer fee exceeds 100%%", ErrInvalidSettings, name)
		}
	}
	for name, e := range map[string]EarnSettings{"text": s.TextEarn, "voice": s.VoiceEarn} {
		if e.MinAmount > e.MaxAmount {
			return fmt.Errorf("%w: %s earn min exceeds max", ErrInvalidSettings, name)
		}
		if e.MaxPerCooldown == 0 {
			return fmt.Errorf("%w: %s max per cooldown must be positive", ErrInvalidSettings, name)
		}
	}
	if s.MonthlyTaxBps > BasisPointsDenominator {
		return fmt.Errorf("%w: monthly tax exceeds 100%%", ErrInvalidSettings)
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return fmt.Errorf("%w: unknown timezone %q", ErrInvalidSettings, s.Timezone)
	}
	return nil
}

// ApplyBasisPoints amount * bps / 10000 を切り捨てで計算
func ApplyBasisPoints(amount uint64, bps uint32) uint64 {
	if bps == 0 || amount == 0 {
		return 0
	}
	// amountはwallet.MaxAmount以下なので乗算は溢れない
	return amount * uint64(bps) / BasisPointsDenominator
}
