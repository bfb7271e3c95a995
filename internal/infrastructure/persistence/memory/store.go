// Package memory プロセス内メモリに状態を保持するストア
//
// 単一のミューテックスで全トランザクションを直列化する。ローカル開発とテスト用。
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"economy-server/internal/domain/earn"
	"economy-server/internal/domain/ledger"
	"economy-server/internal/domain/settings"
	"economy-server/internal/domain/shop"
	"economy-server/internal/domain/ticket"
	"economy-server/internal/domain/treasury"
	"economy-server/internal/domain/wallet"
)

// ErrNoTransaction 行ロックを伴う操作がトランザクション外で呼ばれた
var ErrNoTransaction = errors.New("row lock requires an active transaction")

type walletRow struct {
	balance   uint64
	updatedAt time.Time
}

type treasuryRow struct {
	accounts  map[wallet.CurrencyType]treasury.Account
	updatedAt time.Time
}

type itemRow struct {
	guildID   string
	spec      shop.ItemSpec
	createdAt time.Time
	updatedAt time.Time
}

type userItemKey struct {
	guildID, userID string
	shopItemID      int64
}

type userItemRow struct {
	quantity, purchasedCount uint32
	expiresAt                *time.Time
	createdAt, updatedAt     time.Time
}

type ticketRow struct {
	guildID    string
	shopItemID int64
	name       string
	config     ticket.Config
	options    []ticket.RoleOption
	createdAt  time.Time
}

type grantKey struct {
	guildID, userID, roleID string
	ticketID                int64
}

type grantRow struct {
	grantedAt time.Time
	expiresAt *time.Time
}

type state struct {
	wallets     map[wallet.Key]walletRow
	entries     []*ledger.Entry
	treasuries  map[string]treasuryRow
	treasuryTxs []*treasury.Transaction
	taxRuns     map[string]struct{}
	settings    map[string]settings.CurrencySettings
	items       map[int64]itemRow
	userItems   map[userItemKey]userItemRow
	tickets     map[int64]ticketRow
	grants      map[grantKey]grantRow
	rules       map[int64]earn.MultiplierRule
	exclusions  map[int64]earn.Exclusion
	nextID      int64
}

func newState() *state {
	return &state{
		wallets:    make(map[wallet.Key]walletRow),
		treasuries: make(map[string]treasuryRow),
		taxRuns:    make(map[string]struct{}),
		settings:   make(map[string]settings.CurrencySettings),
		items:      make(map[int64]itemRow),
		userItems:  make(map[userItemKey]userItemRow),
		tickets:    make(map[int64]ticketRow),
		grants:     make(map[grantKey]grantRow),
		rules:      make(map[int64]earn.MultiplierRule),
		exclusions: make(map[int64]earn.Exclusion),
	}
}

// clone ロールバック用の複製。エントリ類は不変なのでスライスのコピーで足りる
func (s *state) clone() *state {
	c := &state{
		wallets:     make(map[wallet.Key]walletRow, len(s.wallets)),
		entries:     append([]*ledger.Entry(nil), s.entries...),
		treasuries:  make(map[string]treasuryRow, len(s.treasuries)),
		treasuryTxs: append([]*treasury.Transaction(nil), s.treasuryTxs...),
		taxRuns:     make(map[string]struct{}, len(s.taxRuns)),
		settings:    make(map[string]settings.CurrencySettings, len(s.settings)),
		items:       make(map[int64]itemRow, len(s.items)),
		userItems:   make(map[userItemKey]userItemRow, len(s.userItems)),
		tickets:     make(map[int64]ticketRow, len(s.tickets)),
		grants:      make(map[grantKey]grantRow, len(s.grants)),
		rules:       make(map[int64]earn.MultiplierRule, len(s.rules)),
		exclusions:  make(map[int64]earn.Exclusion, len(s.exclusions)),
		nextID:      s.nextID,
	}
	for k, v := range s.wallets {
		c.wallets[k] = v
	}
	for k, v := range s.treasuries {
		v.accounts = copyAccounts(v.accounts)
		c.treasuries[k] = v
	}
	for k := range s.taxRuns {
		c.taxRuns[k] = struct{}{}
	}
	for k, v := range s.settings {
		c.settings[k] = v
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.userItems {
		c.userItems[k] = v
	}
	for k, v := range s.tickets {
		c.tickets[k] = v
	}
	for k, v := range s.grants {
		c.grants[k] = v
	}
	for k, v := range s.rules {
		c.rules[k] = v
	}
	for k, v := range s.exclusions {
		c.exclusions[k] = v
	}
	return c
}

func (s *state) allocateID() int64 {
	s.nextID++
	return s.nextID
}

func copyAccounts(src map[wallet.CurrencyType]treasury.Account) map[wallet.CurrencyType]treasury.Account {
	dst := make(map[wallet.CurrencyType]treasury.Account, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// Store メモリ上のストア
type Store struct {
	mu    sync.Mutex
	state *state
}

// NewStore 空のストアを作成
func NewStore() *Store {
	return &Store{state: newState()}
}

type txKey struct{}

func inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(struct{})
	return ok
}

// WithTransaction トランザクション内で関数を実行
//
// fnがエラーを返すかpanicした場合は開始時点の状態に戻す。
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	defer func() {
		if p := recover(); p != nil {
			s.state = snapshot
			panic(p)
		}
		if err != nil {
			s.state = snapshot
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, struct{}{}))
}

// do トランザクション外ならロックを取って関数を実行
func (s *Store) do(ctx context.Context, fn func(st *state) error) error {
	if inTx(ctx) {
		return fn(s.state)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

// locked 行ロック相当の操作。トランザクション内でのみ許可
func (s *Store) locked(ctx context.Context, fn func(st *state) error) error {
	if !inTx(ctx) {
		return ErrNoTransaction
	}
	return fn(s.state)
}

// Wallets ウォレットリポジトリを返す
func (s *Store) Wallets() *WalletRepository { return &WalletRepository{s: s} }

// Ledger 台帳リポジトリを返す
func (s *Store) Ledger() *LedgerRepository { return &LedgerRepository{s: s} }

// Treasuries 国庫リポジトリを返す
func (s *Store) Treasuries() *TreasuryRepository { return &TreasuryRepository{s: s} }

// Settings 設定リポジトリを返す
func (s *Store) Settings() *SettingsRepository { return &SettingsRepository{s: s} }

// Items 商品リポジトリを返す
func (s *Store) Items() *ItemRepository { return &ItemRepository{s: s} }

// UserItems 所持アイテムリポジトリを返す
func (s *Store) UserItems() *UserItemRepository { return &UserItemRepository{s: s} }

// Tickets チケットリポジトリを返す
func (s *Store) Tickets() *TicketRepository { return &TicketRepository{s: s} }

// RoleGrants ロール付与記録リポジトリを返す
func (s *Store) RoleGrants() *RoleGrantRepository { return &RoleGrantRepository{s: s} }

// Rules 倍率ルールリポジトリを返す
func (s *Store) Rules() *RuleRepository { return &RuleRepository{s: s} }

func sortedKeys[K comparable, V any](m map[K]V, less func(a, b K) bool) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return less(keys[i], keys[j]) })
	return keys
}
