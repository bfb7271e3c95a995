package wallet

import (
	"fmt"
	"regexp"
	"time"
	"unicode/utf8"
)

const (
	// MaxAmount 1回の操作および残高の上限 (10兆)
	MaxAmount = 10_000_000_000_000
	// MaxDescriptionLength 台帳の説明と国庫の理由の最大文字数
	MaxDescriptionLength = 255
)

var snowflakeRegex = regexp.MustCompile(`^[0-9]{1,20}$`)

// ValidateGuildID ギルドIDを検証
func ValidateGuildID(guildID string) error {
	if !snowflakeRegex.MatchString(guildID) {
		return ErrInvalidGuildID
	}
	return nil
}

// ValidateUserID ユーザーIDを検証
func ValidateUserID(userID string) error {
	if !snowflakeRegex.MatchString(userID) {
		return ErrInvalidUserID
	}
	return nil
}

// ValidateDescription 説明文の長さを検証。nilは許可する
func ValidateDescription(description *string) error {
	if description != nil && utf8.RuneCountInString(*description) > MaxDescriptionLength {
		return fmt.Errorf("%w: must be at most %d characters", ErrInvalidDescription, MaxDescriptionLength)
	}
	return nil
}

// Key ウォレットを一意に識別するキー
type Key struct {
	GuildID      string
	UserID       string
	CurrencyType CurrencyType
}

// NewKey 検証済みのKeyを作成
func NewKey(guildID, userID string, currencyType CurrencyType) (Key, error) {
	if err := ValidateGuildID(guildID); err != nil {
		return Key{}, err
	}
	if err := ValidateUserID(userID); err != nil {
		return Key{}, err
	}
	if !currencyType.Valid() {
		return Key{}, ErrInvalidCurrencyType
	}
	return Key{GuildID: guildID, UserID: userID, CurrencyType: currencyType}, nil
}

// String ログ用の文字列表現
func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%s", k.GuildID, k.UserID, k.CurrencyType)
}

// Less ロック取得順序を決める全順序
func (k Key) Less(o Key) bool {
	if k.GuildID != o.GuildID {
		return k.GuildID < o.GuildID
	}
	if k.UserID != o.UserID {
		return k.UserID < o.UserID
	}
	return k.CurrencyType < o.CurrencyType
}

// Wallet ギルド・ユーザー・通貨ごとの残高エンティティ
type Wallet struct {
	key       Key
	balance   uint64
	updatedAt time.Time
}

// NewWallet 新しいWalletエンティティを作成
func NewWallet(guildID, userID string, currencyType CurrencyType, balance uint64) (*Wallet, error) {
	key, err := NewKey(guildID, userID, currencyType)
	if err != nil {
		return nil, err
	}
	if balance > MaxAmount {
		return nil, ErrBalanceOutOfRange
	}
	return &Wallet{
		key:       key,
		balance:   balance,
		updatedAt: time.Now(),
	}, nil
}

// RestoreWallet 永続化された値からWalletを復元
func RestoreWallet(key Key, balance uint64, updatedAt time.Time) *Wallet {
	return &Wallet{key: key, balance: balance, updatedAt: updatedAt}
}

// Key ウォレットキーを返す
func (w *Wallet) Key() Key {
	return w.key
}

// GuildID ギルドIDを返す
func (w *Wallet) GuildID() string {
	return w.key.GuildID
}

// UserID ユーザーIDを返す
func (w *Wallet) UserID() string {
	return w.key.UserID
}

// CurrencyType 通貨タイプを返す
func (w *Wallet) CurrencyType() CurrencyType {
	return w.key.CurrencyType
}

// Balance 残高を返す
func (w *Wallet) Balance() uint64 {
	return w.balance
}

// UpdatedAt 更新日時を返す
func (w *Wallet) UpdatedAt() time.Time {
	return w.updatedAt
}

// Credit 残高を加算する
func (w *Wallet) Credit(amount uint64) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	if w.balance > MaxAmount-amount {
		return ErrBalanceOutOfRange
	}
	w.balance += amount
	w.updatedAt = time.Now()
	return nil
}

// Debit 残高を減算する。残高がマイナスになる場合はInsufficientBalanceErrorを返す
func (w *Wallet) Debit(amount uint64) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	if w.balance < amount {
		return &InsufficientBalanceError{Required: amount, Available: w.balance}
	}
	w.balance -= amount
	w.updatedAt = time.Now()
	return nil
}

func validateAmount(amount uint64) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	if amount > MaxAmount {
		return ErrAmountTooLarge
	}
	return nil
}

// MustNewWallet テスト用ヘルパー: NewWalletを呼び出し、エラーが発生した場合はpanicする
func MustNewWallet(guildID, userID string, currencyType CurrencyType, balance uint64) *Wallet {
	w, err := NewWallet(guildID, userID, currencyType, balance)
	if err != nil {
		panic(err)
	}
	return w
}
