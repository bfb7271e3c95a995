package treasury

import (
	"time"

	"economy-server/internal/domain/wallet"
)

// Account 通貨ごとの国庫残高と累計カウンタ
type Account struct {
	Balance          uint64
	TotalCollected   uint64
	TotalDistributed uint64
}

// Treasury ギルドごとの国庫エンティティ
//
// TotalCollectedとTotalDistributedは単調増加する。
type Treasury struct {
	guildID   string
	accounts  map[wallet.CurrencyType]Account
	updatedAt time.Time
}

// NewTreasury 残高0の国庫を作成
func NewTreasury(guildID string) (*Treasury, error) {
	if err := wallet.ValidateGuildID(guildID); err != nil {
		return nil, err
	}
	return &Treasury{
		guildID:   guildID,
		accounts:  make(map[wallet.CurrencyType]Account),
		updatedAt: time.Now(),
	}, nil
}

// RestoreTreasury 永続化された値から国庫を復元
func RestoreTreasury(guildID string, accounts map[wallet.CurrencyType]Account, updatedAt time.Time) *Treasury {
	copied := make(map[wallet.CurrencyType]Account, len(accounts))
	for ct, a := range accounts {
		copied[ct] = a
	}
	return &Treasury{guildID: guildID, accounts: copied, updatedAt: updatedAt}
}

// GuildID ギルドIDを返す
func (t *Treasury) GuildID() string {
	return t.guildID
}

// Account 通貨ごとの口座を返す
func (t *Treasury) Account(ct wallet.CurrencyType) Account {
	return t.accounts[ct]
}

// Balance 通貨ごとの残高を返す
func (t *Treasury) Balance(ct wallet.CurrencyType) uint64 {
	return t.accounts[ct].Balance
}

// UpdatedAt 更新日時を返す
func (t *Treasury) UpdatedAt() time.Time {
	return t.updatedAt
}

// Collect 手数料・税を受け入れる
func (t *Treasury) Collect(ct wallet.CurrencyType, amount uint64) error {
	if !ct.Valid() {
		return wallet.ErrInvalidCurrencyType
	}
	if amount == 0 {
		return wallet.ErrInvalidAmount
	}
	a := t.accounts[ct]
	if a.Balance > wallet.MaxAmount-amount {
		return wallet.ErrBalanceOutOfRange
	}
	a.Balance += amount
	a.TotalCollected += amount
	t.accounts[ct] = a
	t.updatedAt = time.Now()
	return nil
}

// Distribute 管理者による分配のため残高を減算する
func (t *Treasury) Distribute(ct wallet.CurrencyType, amount uint64) error {
	if !ct.Valid() {
		return wallet.ErrInvalidCurrencyType
	}
	if amount == 0 {
		return wallet.ErrInvalidAmount
	}
	a := t.accounts[ct]
	if a.Balance < amount {
		return &wallet.InsufficientBalanceError{Required: amount, Available: a.Balance}
	}
	a.Balance -= amount
	a.TotalDistributed += amount
	t.accounts[ct] = a
	t.updatedAt = time.Now()
	return nil
}
