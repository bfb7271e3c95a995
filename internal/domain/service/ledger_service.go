package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"economy-server/internal/domain/ledger"
	"economy-server/internal/domain/treasury"
	"economy-server/internal/domain/wallet"

	"github.com/google/uuid"
)

// Posting ウォレット1件への加算・減算
type Posting struct {
	Key         wallet.Key
	Amount      uint64
	Type        ledger.TransactionType
	Description *string
}

// LedgerService 残高変更と台帳記録をまとめて行うドメインサービス
//
// すべてのメソッドは呼び出し側のトランザクション内で実行されることを前提とする。
// 残高の更新と台帳エントリの追記は同じトランザクションで行われる。
type LedgerService struct {
	walletRepo   wallet.WalletRepository
	ledgerRepo   ledger.LedgerRepository
	treasuryRepo treasury.TreasuryRepository
	newID        func() string
	now          func() time.Time
}

// NewLedgerService 新しいLedgerServiceを作成
func NewLedgerService(
	walletRepo wallet.WalletRepository,
	ledgerRepo ledger.LedgerRepository,
	treasuryRepo treasury.TreasuryRepository,
) *LedgerService {
	return &LedgerService{
		walletRepo:   walletRepo,
		ledgerRepo:   ledgerRepo,
		treasuryRepo: treasuryRepo,
		newID:        uuid.NewString,
		now:          time.Now,
	}
}

// LockWallets 複数ウォレットの行ロックをキー順に取得する
func (s *LedgerService) LockWallets(ctx context.Context, keys ...wallet.Key) error {
	sorted := make([]wallet.Key, 0, len(keys))
	seen := make(map[wallet.Key]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		sorted = append(sorted, k)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })

	for _, k := range sorted {
		if _, err := s.walletRepo.FindOrCreateForUpdate(ctx, k); err != nil {
			return fmt.Errorf("failed to lock wallet %s: %w", k, err)
		}
	}
	return nil
}

// Debit 残高を減算し、台帳エントリを追記する
func (s *LedgerService) Debit(ctx context.Context, p Posting) (*ledger.Entry, error) {
	w, err := s.walletRepo.FindByKeyForUpdate(ctx, p.Key)
	if errors.Is(err, wallet.ErrWalletNotFound) {
		return nil, &wallet.InsufficientBalanceError{Required: p.Amount, Available: 0}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find wallet: %w", err)
	}
	if err := w.Debit(p.Amount); err != nil {
		return nil, err
	}
	return s.persist(ctx, w, p, -int64(p.Amount))
}

// Credit 残高を加算し、台帳エントリを追記する。ウォレットが無い場合は作成する
func (s *LedgerService) Credit(ctx context.Context, p Posting) (*ledger.Entry, error) {
	w, err := s.walletRepo.FindOrCreateForUpdate(ctx, p.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to find wallet: %w", err)
	}
	if err := w.Credit(p.Amount); err != nil {
		return nil, err
	}
	return s.persist(ctx, w, p, int64(p.Amount))
}

func (s *LedgerService) persist(ctx context.Context, w *wallet.Wallet, p Posting, delta int64) (*ledger.Entry, error) {
	if err := s.walletRepo.Save(ctx, w); err != nil {
		return nil, fmt.Errorf("failed to save wallet: %w", err)
	}
	entry, err := ledger.NewEntry(s.newID(), w.Key(), p.Type, delta, w.Balance(), p.Description, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger entry: %w", err)
	}
	if err := s.ledgerRepo.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return entry, nil
}

// TreasuryMovement 国庫の入出金
type TreasuryMovement struct {
	GuildID      string
	CurrencyType wallet.CurrencyType
	Amount       uint64
	Type         treasury.TransactionType
	TargetUserID *string
	Reason       *string
}

// Collect 国庫に入金し、国庫トランザクションを追記する
func (s *LedgerService) Collect(ctx context.Context, m TreasuryMovement) (*treasury.Treasury, error) {
	if !m.Type.IsCollection() {
		return nil, treasury.ErrInvalidTransactionType
	}
	t, err := s.treasuryRepo.FindOrCreateForUpdate(ctx, m.GuildID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock treasury: %w", err)
	}
	if err := t.Collect(m.CurrencyType, m.Amount); err != nil {
		return nil, err
	}
	return t, s.persistTreasury(ctx, t, m)
}

// Distribute 国庫から出金し、国庫トランザクションを追記する
func (s *LedgerService) Distribute(ctx context.Context, m TreasuryMovement) (*treasury.Treasury, error) {
	if m.Type.IsCollection() {
		return nil, treasury.ErrInvalidTransactionType
	}
	t, err := s.treasuryRepo.FindOrCreateForUpdate(ctx, m.GuildID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock treasury: %w", err)
	}
	if err := t.Distribute(m.CurrencyType, m.Amount); err != nil {
		return nil, err
	}
	return t, s.persistTreasury(ctx, t, m)
}

func (s *LedgerService) persistTreasury(ctx context.Context, t *treasury.Treasury, m TreasuryMovement) error {
	if err := s.treasuryRepo.Save(ctx, t); err != nil {
		return fmt.Errorf("failed to save treasury: %w", err)
	}
	tx, err := treasury.NewTransaction(s.newID(), m.GuildID, m.CurrencyType, m.Type, m.Amount, m.TargetUserID, m.Reason, s.now())
	if err != nil {
		return fmt.Errorf("failed to create treasury transaction: %w", err)
	}
	if err := s.treasuryRepo.AppendTransaction(ctx, tx); err != nil {
		return fmt.Errorf("failed to append treasury transaction: %w", err)
	}
	return nil
}
