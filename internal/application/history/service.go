package history

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"economy-server/internal/domain/ledger"
	"economy-server/internal/domain/wallet"
	otelinfra "economy-server/internal/infrastructure/observability/otel"
)

// HistoryApplicationService 履歴アプリケーションサービス
type HistoryApplicationService struct {
	ledgerRepo ledger.LedgerRepository
	logger     *otelinfra.Logger
	metrics    *otelinfra.Metrics
	tracer     trace.Tracer
}

// NewHistoryApplicationService 新しいHistoryApplicationServiceを作成
func NewHistoryApplicationService(
	ledgerRepo ledger.LedgerRepository,
	logger *otelinfra.Logger,
	metrics *otelinfra.Metrics,
) *HistoryApplicationService {
	return &HistoryApplicationService{
		ledgerRepo: ledgerRepo,
		logger:     logger,
		metrics:    metrics,
		tracer:     otel.Tracer("history-service"),
	}
}

// GetHistory ユーザーの台帳エントリを新しい順に取得
func (s *HistoryApplicationService) GetHistory(ctx context.Context, req *GetHistoryRequest) (*GetHistoryResponse, error) {
	ctx, span := s.tracer.Start(ctx, "HistoryApplicationService.GetHistory")
	defer span.End()

	// バリデーション
	if req.Limit <= 0 {
		req.Limit = 50 // デフォルト値
	}
	if req.Limit > 100 {
		req.Limit = 100 // 最大値
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	span.SetAttributes(
		attribute.String("guild_id", req.GuildID),
		attribute.String("user_id", req.UserID),
		attribute.Int("limit", req.Limit),
		attribute.Int("offset", req.Offset),
	)

	filter, err := buildFilter(req)
	if err == nil {
		err = wallet.ValidateGuildID(req.GuildID)
	}
	if err == nil {
		err = wallet.ValidateUserID(req.UserID)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	entries, err := s.ledgerRepo.FindByUser(ctx, req.GuildID, req.UserID, filter, req.Limit, req.Offset)
	if err != nil {
		return nil, s.fail(ctx, span, err, req)
	}
	total, err := s.ledgerRepo.CountByUser(ctx, req.GuildID, req.UserID, filter)
	if err != nil {
		return nil, s.fail(ctx, span, err, req)
	}

	dtos := make([]EntryDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, EntryDTO{
			ID:              e.ID(),
			CurrencyType:    e.CurrencyType().String(),
			TransactionType: e.TransactionType().String(),
			Amount:          e.Amount(),
			BalanceAfter:    e.BalanceAfter(),
			Description:     e.Description(),
			CreatedAt:       e.CreatedAt(),
		})
	}

	return &GetHistoryResponse{
		Entries: dtos,
		Total:   total,
		Limit:   req.Limit,
		Offset:  req.Offset,
	}, nil
}

func buildFilter(req *GetHistoryRequest) (ledger.Filter, error) {
	var filter ledger.Filter
	if req.CurrencyType != "" {
		ct, err := wallet.NewCurrencyType(req.CurrencyType)
		if err != nil {
			return filter, err
		}
		filter.CurrencyType = &ct
	}
	if req.TransactionType != "" {
		tt, err := ledger.NewTransactionType(req.TransactionType)
		if err != nil {
			return filter, err
		}
		filter.TransactionType = &tt
	}
	return filter, nil
}

func (s *HistoryApplicationService) fail(ctx context.Context, span trace.Span, err error, req *GetHistoryRequest) error {
	span.RecordError(err)
	span.SetStatus(otelcodes.Error, err.Error())
	s.logger.Error(ctx, "Failed to get ledger history", err, map[string]interface{}{
		"guild_id": req.GuildID,
		"user_id":  req.UserID,
	})
	s.metrics.RecordError(ctx, "history_failed")
	return fmt.Errorf("failed to get ledger history: %w", err)
}
