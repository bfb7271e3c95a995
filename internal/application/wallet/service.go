package wallet

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"economy-server/internal/domain/ledger"
	"economy-server/internal/domain/service"
	"economy-server/internal/domain/wallet"
	otelinfra "economy-server/internal/infrastructure/observability/otel"
)

// WalletApplicationService ウォレットアプリケーションサービス
type WalletApplicationService struct {
	walletRepo    wallet.WalletRepository
	txManager     ledger.TransactionManager
	ledgerService *service.LedgerService
	logger        *otelinfra.Logger
	metrics       *otelinfra.Metrics
	tracer        trace.Tracer
}

// NewWalletApplicationService 新しいWalletApplicationServiceを作成
func NewWalletApplicationService(
	walletRepo wallet.WalletRepository,
	txManager ledger.TransactionManager,
	ledgerService *service.LedgerService,
	logger *otelinfra.Logger,
	metrics *otelinfra.Metrics,
) *WalletApplicationService {
	return &WalletApplicationService{
		walletRepo:    walletRepo,
		txManager:     txManager,
		ledgerService: ledgerService,
		logger:        logger,
		metrics:       metrics,
		tracer:        otel.Tracer("wallet-service"),
	}
}

// GetWallets 全通貨の残高を取得。ウォレットが無い通貨は0
func (s *WalletApplicationService) GetWallets(ctx context.Context, req *GetWalletsRequest) (*GetWalletsResponse, error) {
	ctx, span := s.tracer.Start(ctx, "WalletApplicationService.GetWallets")
	defer span.End()

	span.SetAttributes(
		attribute.String("guild_id", req.GuildID),
		attribute.String("user_id", req.UserID),
	)

	if err := validateOwner(req.GuildID, req.UserID); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	wallets, err := s.walletRepo.FindByUser(ctx, req.GuildID, req.UserID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		s.logger.Error(ctx, "Failed to find wallets", err, map[string]interface{}{
			"guild_id": req.GuildID,
			"user_id":  req.UserID,
		})
		return nil, fmt.Errorf("failed to find wallets: %w", err)
	}

	balances := make(map[string]uint64, len(wallet.AllCurrencyTypes()))
	for _, ct := range wallet.AllCurrencyTypes() {
		balances[ct.String()] = 0
	}
	for _, w := range wallets {
		balances[w.CurrencyType().String()] = w.Balance()
	}

	return &GetWalletsResponse{
		GuildID:  req.GuildID,
		UserID:   req.UserID,
		Balances: balances,
	}, nil
}

// Grant 管理者が通貨を付与
func (s *WalletApplicationService) Grant(ctx context.Context, req *AdjustRequest) (*AdjustResponse, error) {
	return s.adjust(ctx, "WalletApplicationService.Grant", ledger.TransactionTypeAdminGrant, req)
}

// Take 管理者が通貨を回収。残高不足の場合はInsufficientBalanceError
func (s *WalletApplicationService) Take(ctx context.Context, req *AdjustRequest) (*AdjustResponse, error) {
	return s.adjust(ctx, "WalletApplicationService.Take", ledger.TransactionTypeAdminTake, req)
}

func (s *WalletApplicationService) adjust(ctx context.Context, spanName string, tt ledger.TransactionType, req *AdjustRequest) (*AdjustResponse, error) {
	ctx, span := s.tracer.Start(ctx, spanName)
	defer span.End()

	span.SetAttributes(
		attribute.String("guild_id", req.GuildID),
		attribute.String("user_id", req.UserID),
		attribute.String("currency_type", req.CurrencyType),
		attribute.Int64("amount", int64(req.Amount)),
		attribute.String("transaction_type", tt.String()),
	)

	s.logger.Info(ctx, "Adjusting wallet", map[string]interface{}{
		"guild_id":         req.GuildID,
		"user_id":          req.UserID,
		"currency_type":    req.CurrencyType,
		"amount":           req.Amount,
		"transaction_type": tt.String(),
	})

	currencyType, err := wallet.NewCurrencyType(req.CurrencyType)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}
	key, err := wallet.NewKey(req.GuildID, req.UserID, currencyType)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}
	if req.Amount == 0 {
		span.SetStatus(otelcodes.Error, wallet.ErrInvalidAmount.Error())
		return nil, wallet.ErrInvalidAmount
	}
	if err := wallet.ValidateDescription(req.Reason); err != nil {
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	var entry *ledger.Entry
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		posting := service.Posting{Key: key, Amount: req.Amount, Type: tt, Description: req.Reason}
		var err error
		if tt == ledger.TransactionTypeAdminTake {
			entry, err = s.ledgerService.Debit(txCtx, posting)
		} else {
			entry, err = s.ledgerService.Credit(txCtx, posting)
		}
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		var insufficient *wallet.InsufficientBalanceError
		if errors.As(err, &insufficient) {
			s.logger.Warn(ctx, "Insufficient balance for take", map[string]interface{}{
				"guild_id":  req.GuildID,
				"user_id":   req.UserID,
				"required":  insufficient.Required,
				"available": insufficient.Available,
			})
			return nil, err
		}
		if isValidationError(err) {
			return nil, err
		}
		s.logger.Error(ctx, "Failed to adjust wallet", err, map[string]interface{}{
			"guild_id": req.GuildID,
			"user_id":  req.UserID,
		})
		s.metrics.RecordError(ctx, "wallet_adjust_failed")
		return nil, fmt.Errorf("failed to adjust wallet: %w", err)
	}

	s.metrics.RecordTransaction(ctx, tt.String(), currencyType.String())

	return &AdjustResponse{
		EntryID:      entry.ID(),
		CurrencyType: currencyType.String(),
		Amount:       entry.Amount(),
		BalanceAfter: entry.BalanceAfter(),
		CreatedAt:    entry.CreatedAt(),
	}, nil
}

func validateOwner(guildID, userID string) error {
	if err := wallet.ValidateGuildID(guildID); err != nil {
		return err
	}
	return wallet.ValidateUserID(userID)
}

func isValidationError(err error) bool {
	return errors.Is(err, wallet.ErrAmountTooLarge) || errors.Is(err, wallet.ErrBalanceOutOfRange)
}
