package treasury

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"economy-server/internal/domain/ledger"
	"economy-server/internal/domain/service"
	"economy-server/internal/domain/settings"
	"economy-server/internal/domain/treasury"
	"economy-server/internal/domain/wallet"
	otelinfra "economy-server/internal/infrastructure/observability/otel"
)

const (
	taxPageSize = 200

	SkipReasonDisabled         = "disabled"
	SkipReasonAlreadyCollected = "already_collected"
)

// TreasuryApplicationService 国庫アプリケーションサービス
type TreasuryApplicationService struct {
	treasuryRepo  treasury.TreasuryRepository
	walletRepo    wallet.WalletRepository
	settingsRepo  settings.SettingsRepository
	txManager     ledger.TransactionManager
	ledgerService *service.LedgerService
	logger        *otelinfra.Logger
	metrics       *otelinfra.Metrics
	tracer        trace.Tracer
}

// NewTreasuryApplicationService 新しいTreasuryApplicationServiceを作成
func NewTreasuryApplicationService(
	treasuryRepo treasury.TreasuryRepository,
	walletRepo wallet.WalletRepository,
	settingsRepo settings.SettingsRepository,
	txManager ledger.TransactionManager,
	ledgerService *service.LedgerService,
	logger *otelinfra.Logger,
	metrics *otelinfra.Metrics,
) *TreasuryApplicationService {
	return &TreasuryApplicationService{
		treasuryRepo:  treasuryRepo,
		walletRepo:    walletRepo,
		settingsRepo:  settingsRepo,
		txManager:     txManager,
		ledgerService: ledgerService,
		logger:        logger,
		metrics:       metrics,
		tracer:        otel.Tracer("treasury-service"),
	}
}

// GetTreasury 国庫の残高と累計を取得。未作成の場合はすべて0
func (s *TreasuryApplicationService) GetTreasury(ctx context.Context, req *GetTreasuryRequest) (*GetTreasuryResponse, error) {
	ctx, span := s.tracer.Start(ctx, "TreasuryApplicationService.GetTreasury")
	defer span.End()

	span.SetAttributes(attribute.String("guild_id", req.GuildID))

	t, err := s.treasuryRepo.FindByGuild(ctx, req.GuildID)
	if errors.Is(err, treasury.ErrTreasuryNotFound) {
		t, err = treasury.NewTreasury(req.GuildID)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		if errors.Is(err, wallet.ErrInvalidGuildID) {
			return nil, err
		}
		s.logger.Error(ctx, "Failed to find treasury", err, map[string]interface{}{
			"guild_id": req.GuildID,
		})
		return nil, fmt.Errorf("failed to find treasury: %w", err)
	}

	accounts := make(map[string]AccountDTO, len(wallet.AllCurrencyTypes()))
	for _, ct := range wallet.AllCurrencyTypes() {
		a := t.Account(ct)
		accounts[ct.String()] = AccountDTO{
			Balance:          a.Balance,
			TotalCollected:   a.TotalCollected,
			TotalDistributed: a.TotalDistributed,
		}
	}
	return &GetTreasuryResponse{GuildID: req.GuildID, Accounts: accounts}, nil
}

// Distribute 国庫から利用者へ分配する
func (s *TreasuryApplicationService) Distribute(ctx context.Context, req *DistributeRequest) (*DistributeResponse, error) {
	ctx, span := s.tracer.Start(ctx, "TreasuryApplicationService.Distribute")
	defer span.End()

	span.SetAttributes(
		attribute.String("guild_id", req.GuildID),
		attribute.String("target_user_id", req.TargetUserID),
		attribute.String("currency_type", req.CurrencyType),
		attribute.Int64("amount", int64(req.Amount)),
	)

	s.logger.Info(ctx, "Distributing from treasury", map[string]interface{}{
		"guild_id":       req.GuildID,
		"target_user_id": req.TargetUserID,
		"currency_type":  req.CurrencyType,
		"amount":         req.Amount,
	})

	currencyType, err := wallet.NewCurrencyType(req.CurrencyType)
	if err != nil {
		return nil, reject(span, err)
	}
	key, err := wallet.NewKey(req.GuildID, req.TargetUserID, currencyType)
	if err != nil {
		return nil, reject(span, err)
	}
	if req.Amount == 0 || req.Amount > wallet.MaxAmount {
		return nil, reject(span, wallet.ErrInvalidAmount)
	}
	if err := wallet.ValidateDescription(req.Reason); err != nil {
		return nil, reject(span, err)
	}

	resp := &DistributeResponse{}
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.ledgerService.LockWallets(txCtx, key); err != nil {
			return err
		}
		target := req.TargetUserID
		t, err := s.ledgerService.Distribute(txCtx, service.TreasuryMovement{
			GuildID:      req.GuildID,
			CurrencyType: currencyType,
			Amount:       req.Amount,
			Type:         treasury.TransactionTypeAdminDistribute,
			TargetUserID: &target,
			Reason:       req.Reason,
		})
		if err != nil {
			return err
		}
		entry, err := s.ledgerService.Credit(txCtx, service.Posting{
			Key:         key,
			Amount:      req.Amount,
			Type:        ledger.TransactionTypeAdminDistribute,
			Description: req.Reason,
		})
		if err != nil {
			return err
		}
		resp.TreasuryBalance = t.Balance(currencyType)
		resp.UserBalance = entry.BalanceAfter()
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		if errors.Is(err, wallet.ErrInsufficientBalance) || errors.Is(err, wallet.ErrBalanceOutOfRange) {
			return nil, err
		}
		s.logger.Error(ctx, "Failed to distribute", err, map[string]interface{}{
			"guild_id":       req.GuildID,
			"target_user_id": req.TargetUserID,
		})
		s.metrics.RecordError(ctx, "treasury_distribute_failed")
		return nil, fmt.Errorf("failed to distribute: %w", err)
	}

	s.metrics.RecordTransaction(ctx, ledger.TransactionTypeAdminDistribute.String(), currencyType.String())
	return resp, nil
}

// ListTransactions 国庫トランザクションを新しい順に取得
func (s *TreasuryApplicationService) ListTransactions(ctx context.Context, req *ListTransactionsRequest) (*ListTransactionsResponse, error) {
	ctx, span := s.tracer.Start(ctx, "TreasuryApplicationService.ListTransactions")
	defer span.End()

	if req.Limit <= 0 {
		req.Limit = 50
	}
	if req.Limit > 100 {
		req.Limit = 100
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	span.SetAttributes(
		attribute.String("guild_id", req.GuildID),
		attribute.Int("limit", req.Limit),
		attribute.Int("offset", req.Offset),
	)

	if err := wallet.ValidateGuildID(req.GuildID); err != nil {
		return nil, reject(span, err)
	}

	txs, err := s.treasuryRepo.FindTransactions(ctx, req.GuildID, req.Limit, req.Offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		s.logger.Error(ctx, "Failed to list treasury transactions", err, map[string]interface{}{
			"guild_id": req.GuildID,
		})
		return nil, fmt.Errorf("failed to list treasury transactions: %w", err)
	}

	out := make([]TransactionDTO, 0, len(txs))
	for _, tx := range txs {
		out = append(out, TransactionDTO{
			ID:              tx.ID(),
			CurrencyType:    tx.CurrencyType().String(),
			TransactionType: tx.TransactionType().String(),
			Amount:          tx.Amount(),
			TargetUserID:    tx.TargetUserID(),
			Reason:          tx.Reason(),
			CreatedAt:       tx.CreatedAt(),
		})
	}
	return &ListTransactionsResponse{Transactions: out, Limit: req.Limit, Offset: req.Offset}, nil
}

// CollectMonthlyTax ギルドの月次税を徴収する
//
// 期間はギルドのタイムゾーンでの YYYY-MM。同じ期間は一度だけ徴収される。
// ウォレットはページ単位で走査し、1ウォレットにつき1トランザクションで処理する。
func (s *TreasuryApplicationService) CollectMonthlyTax(ctx context.Context, req *CollectTaxRequest) (*CollectTaxResponse, error) {
	ctx, span := s.tracer.Start(ctx, "TreasuryApplicationService.CollectMonthlyTax")
	defer span.End()

	span.SetAttributes(attribute.String("guild_id", req.GuildID))

	if err := wallet.ValidateGuildID(req.GuildID); err != nil {
		return nil, reject(span, err)
	}

	cfg, err := settings.Load(ctx, s.settingsRepo, req.GuildID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	period := req.Now.In(cfg.Location()).Format("2006-01")
	resp := &CollectTaxResponse{GuildID: req.GuildID, Period: period, Collected: make(map[string]uint64)}
	span.SetAttributes(attribute.String("period", period))

	if !cfg.MonthlyTaxEnabled || cfg.MonthlyTaxBps == 0 {
		resp.Skipped = true
		resp.Reason = SkipReasonDisabled
		return resp, nil
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.treasuryRepo.ClaimTaxRun(txCtx, req.GuildID, period)
	})
	if errors.Is(err, treasury.ErrTaxAlreadyCollected) {
		resp.Skipped = true
		resp.Reason = SkipReasonAlreadyCollected
		return resp, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		s.logger.Error(ctx, "Failed to claim tax run", err, map[string]interface{}{
			"guild_id": req.GuildID,
			"period":   period,
		})
		return nil, fmt.Errorf("failed to claim tax run: %w", err)
	}

	for _, ct := range wallet.AllCurrencyTypes() {
		if err := s.taxCurrency(ctx, cfg, req.GuildID, ct, resp); err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
			s.logger.Error(ctx, "Failed to collect monthly tax", err, map[string]interface{}{
				"guild_id":      req.GuildID,
				"period":        period,
				"currency_type": ct.String(),
			})
			s.metrics.RecordError(ctx, "monthly_tax_failed")
			return resp, fmt.Errorf("failed to collect monthly tax: %w", err)
		}
	}

	s.logger.Info(ctx, "Monthly tax collected", map[string]interface{}{
		"guild_id":  req.GuildID,
		"period":    period,
		"wallets":   resp.Wallets,
		"collected": resp.Collected,
	})
	return resp, nil
}

func (s *TreasuryApplicationService) taxCurrency(ctx context.Context, cfg settings.CurrencySettings, guildID string, ct wallet.CurrencyType, resp *CollectTaxResponse) error {
	after := ""
	for {
		page, err := s.walletRepo.ListPositive(ctx, guildID, ct, after, taxPageSize)
		if err != nil {
			return err
		}
		for _, w := range page {
			tax, err := s.taxWallet(ctx, cfg, w.Key())
			if err != nil {
				return err
			}
			if tax > 0 {
				resp.Collected[ct.String()] += tax
				resp.Wallets++
				s.metrics.RecordTreasuryCollected(ctx, treasury.TransactionTypeTax.String(), ct.String(), tax)
			}
		}
		if len(page) < taxPageSize {
			return nil
		}
		after = page[len(page)-1].UserID()
	}
}

// taxWallet ロックした残高から税額を計算し、ウォレットから国庫へ移す
func (s *TreasuryApplicationService) taxWallet(ctx context.Context, cfg settings.CurrencySettings, key wallet.Key) (uint64, error) {
	var tax uint64
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		w, err := s.walletRepo.FindByKeyForUpdate(txCtx, key)
		if err != nil {
			return err
		}
		tax = cfg.MonthlyTax(w.Balance())
		if tax == 0 {
			return nil
		}
		if _, err := s.ledgerService.Debit(txCtx, service.Posting{
			Key:    key,
			Amount: tax,
			Type:   ledger.TransactionTypeTax,
		}); err != nil {
			return err
		}
		_, err = s.ledgerService.Collect(txCtx, service.TreasuryMovement{
			GuildID:      key.GuildID,
			CurrencyType: key.CurrencyType,
			Amount:       tax,
			Type:         treasury.TransactionTypeTax,
			TargetUserID: &key.UserID,
		})
		return err
	})
	return tax, err
}

// CollectAll 設定が保存されている全ギルドの月次税を徴収する
func (s *TreasuryApplicationService) CollectAll(ctx context.Context, now time.Time) ([]*CollectTaxResponse, error) {
	ctx, span := s.tracer.Start(ctx, "TreasuryApplicationService.CollectAll")
	defer span.End()

	guildIDs, err := s.settingsRepo.ListGuildIDs(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to list guilds: %w", err)
	}

	var (
		results []*CollectTaxResponse
		errs    []error
	)
	for _, guildID := range guildIDs {
		resp, err := s.CollectMonthlyTax(ctx, &CollectTaxRequest{GuildID: guildID, Now: now})
		if err != nil {
			errs = append(errs, fmt.Errorf("guild %s: %w", guildID, err))
			continue
		}
		results = append(results, resp)
	}
	if len(errs) > 0 {
		err := errors.Join(errs...)
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return results, err
	}
	return results, nil
}

func reject(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(otelcodes.Error, err.Error())
	return err
}
