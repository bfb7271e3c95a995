package transfer

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
	"economy-server/internal/domain/settings"
	"economy-server/internal/domain/treasury"
	"economy-server/internal/domain/wallet"
	otelinfra "economy-server/internal/infrastructure/observability/otel"
)

// TransferApplicationService 送金アプリケーションサービス
type TransferApplicationService struct {
	settingsRepo  settings.SettingsRepository
	txManager     ledger.TransactionManager
	ledgerService *service.LedgerService
	logger        *otelinfra.Logger
	metrics       *otelinfra.Metrics
	tracer        trace.Tracer
}

// NewTransferApplicationService 新しいTransferApplicationServiceを作成
func NewTransferApplicationService(
	settingsRepo settings.SettingsRepository,
	txManager ledger.TransactionManager,
	ledgerService *service.LedgerService,
	logger *otelinfra.Logger,
	metrics *otelinfra.Metrics,
) *TransferApplicationService {
	return &TransferApplicationService{
		settingsRepo:  settingsRepo,
		txManager:     txManager,
		ledgerService: ledgerService,
		logger:        logger,
		metrics:       metrics,
		tracer:        otel.Tracer("transfer-service"),
	}
}

// Transfer 送金する
//
// 送金者は金額と手数料の合計を支払い、受取人は金額をそのまま受け取る。手数料は国庫に入る。
// 送金者の減算・受取人の加算・国庫への入金は1つのトランザクションで行う。
func (s *TransferApplicationService) Transfer(ctx context.Context, req *TransferRequest) (*TransferResponse, error) {
	ctx, span := s.tracer.Start(ctx, "TransferApplicationService.Transfer")
	defer span.End()

	span.SetAttributes(
		attribute.String("guild_id", req.GuildID),
		attribute.String("from_user_id", req.FromUserID),
		attribute.String("to_user_id", req.ToUserID),
		attribute.String("currency_type", req.CurrencyType),
		attribute.Int64("amount", int64(req.Amount)),
	)

	s.logger.Info(ctx, "Transferring currency", map[string]interface{}{
		"guild_id":      req.GuildID,
		"from_user_id":  req.FromUserID,
		"to_user_id":    req.ToUserID,
		"currency_type": req.CurrencyType,
		"amount":        req.Amount,
	})

	// 検証順: 自己送金、金額、残高
	if req.FromUserID == req.ToUserID {
		return nil, s.reject(span, ErrSelfTransfer)
	}

	currencyType, err := wallet.NewCurrencyType(req.CurrencyType)
	if err != nil {
		return nil, s.reject(span, err)
	}
	fromKey, err := wallet.NewKey(req.GuildID, req.FromUserID, currencyType)
	if err != nil {
		return nil, s.reject(span, err)
	}
	toKey, err := wallet.NewKey(req.GuildID, req.ToUserID, currencyType)
	if err != nil {
		return nil, s.reject(span, err)
	}
	if err := wallet.ValidateDescription(req.Reason); err != nil {
		return nil, s.reject(span, err)
	}

	cfg, err := settings.Load(ctx, s.settingsRepo, req.GuildID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		s.logger.Error(ctx, "Failed to load settings", err, map[string]interface{}{
			"guild_id": req.GuildID,
		})
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	rule := cfg.Rule(currencyType)
	if req.Amount < rule.MinTransfer || req.Amount == 0 {
		return nil, s.reject(span, &InvalidAmountError{
			Message: fmt.Sprintf("minimum transfer amount is %d %s", rule.MinTransfer, rule.DisplayName),
		})
	}
	if req.Amount > wallet.MaxAmount {
		return nil, s.reject(span, &InvalidAmountError{
			Message: fmt.Sprintf("maximum transfer amount is %d", uint64(wallet.MaxAmount)),
		})
	}
	fee := cfg.TransferFee(currencyType, req.Amount)
	if req.Amount+fee > wallet.MaxAmount {
		return nil, s.reject(span, &InvalidAmountError{
			Message: fmt.Sprintf("maximum transfer amount including fee is %d", uint64(wallet.MaxAmount)),
		})
	}
	span.SetAttributes(attribute.Int64("fee", int64(fee)))

	resp := &TransferResponse{CurrencyType: currencyType.String(), Amount: req.Amount, Fee: fee}
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.ledgerService.LockWallets(txCtx, fromKey, toKey); err != nil {
			return err
		}

		sent, err := s.ledgerService.Debit(txCtx, service.Posting{
			Key:         fromKey,
			Amount:      req.Amount + fee,
			Type:        ledger.TransactionTypeTransferSend,
			Description: req.Reason,
		})
		if err != nil {
			return err
		}
		received, err := s.ledgerService.Credit(txCtx, service.Posting{
			Key:         toKey,
			Amount:      req.Amount,
			Type:        ledger.TransactionTypeTransferReceive,
			Description: req.Reason,
		})
		if err != nil {
			return err
		}
		resp.FromBalance = sent.BalanceAfter()
		resp.ToBalance = received.BalanceAfter()

		if fee == 0 {
			return nil
		}
		_, err = s.ledgerService.Collect(txCtx, service.TreasuryMovement{
			GuildID:      req.GuildID,
			CurrencyType: currencyType,
			Amount:       fee,
			Type:         treasury.TransactionTypeTransferFee,
			TargetUserID: &req.FromUserID,
			Reason:       req.Reason,
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		var insufficient *wallet.InsufficientBalanceError
		if errors.As(err, &insufficient) {
			s.logger.Warn(ctx, "Insufficient balance for transfer", map[string]interface{}{
				"guild_id":  req.GuildID,
				"user_id":   req.FromUserID,
				"required":  insufficient.Required,
				"available": insufficient.Available,
			})
			return nil, err
		}
		if errors.Is(err, wallet.ErrBalanceOutOfRange) {
			return nil, err
		}
		s.logger.Error(ctx, "Failed to transfer", err, map[string]interface{}{
			"guild_id":     req.GuildID,
			"from_user_id": req.FromUserID,
			"to_user_id":   req.ToUserID,
		})
		s.metrics.RecordError(ctx, "transfer_failed")
		return nil, fmt.Errorf("failed to transfer: %w", err)
	}

	s.metrics.RecordTransaction(ctx, ledger.TransactionTypeTransferSend.String(), currencyType.String())
	if fee > 0 {
		s.metrics.RecordTreasuryCollected(ctx, treasury.TransactionTypeTransferFee.String(), currencyType.String(), fee)
	}

	s.logger.Info(ctx, "Transfer completed", map[string]interface{}{
		"guild_id":     req.GuildID,
		"from_user_id": req.FromUserID,
		"to_user_id":   req.ToUserID,
		"amount":       req.Amount,
		"fee":          fee,
	})

	return resp, nil
}

func (s *TransferApplicationService) reject(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(otelcodes.Error, err.Error())
	return err
}
