package earn

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"economy-server/internal/domain/earn"
	"economy-server/internal/domain/ledger"
	"economy-server/internal/domain/service"
	"economy-server/internal/domain/settings"
	"economy-server/internal/domain/wallet"
	otelinfra "economy-server/internal/infrastructure/observability/otel"
)

const (
	SkipReasonExcluded = "excluded"
	SkipReasonCooldown = "cooldown"
	SkipReasonZero     = "zero_amount"
	SkipReasonDailyCap = "daily_cap"
)

type globalSource struct{}

func (globalSource) Uint64N(n uint64) uint64 { return rand.Uint64N(n) }

// EarnApplicationService 活動報酬アプリケーションサービス
type EarnApplicationService struct {
	ruleRepo      earn.RuleRepository
	settingsRepo  settings.SettingsRepository
	counter       earn.Counter
	txManager     ledger.TransactionManager
	ledgerService *service.LedgerService
	logger        *otelinfra.Logger
	metrics       *otelinfra.Metrics
	tracer        trace.Tracer
	source        earn.Source
	now           func() time.Time
}

// NewEarnApplicationService 新しいEarnApplicationServiceを作成
func NewEarnApplicationService(
	ruleRepo earn.RuleRepository,
	settingsRepo settings.SettingsRepository,
	counter earn.Counter,
	txManager ledger.TransactionManager,
	ledgerService *service.LedgerService,
	logger *otelinfra.Logger,
	metrics *otelinfra.Metrics,
) *EarnApplicationService {
	return &EarnApplicationService{
		ruleRepo:      ruleRepo,
		settingsRepo:  settingsRepo,
		counter:       counter,
		txManager:     txManager,
		ledgerService: ledgerService,
		logger:        logger,
		metrics:       metrics,
		tracer:        otel.Tracer("earn-service"),
		source:        globalSource{},
		now:           time.Now,
	}
}

// Earn 活動に対してtopyを付与する
//
// 除外・クールダウン・日次上限のいずれかに該当する場合はエラーではなくスキップとして返す。
func (s *EarnApplicationService) Earn(ctx context.Context, req *EarnRequest) (*EarnResponse, error) {
	ctx, span := s.tracer.Start(ctx, "EarnApplicationService.Earn")
	defer span.End()

	span.SetAttributes(
		attribute.String("guild_id", req.GuildID),
		attribute.String("user_id", req.UserID),
		attribute.String("channel_id", req.ChannelID),
		attribute.String("activity", req.Activity),
	)

	activity, err := earn.NewActivityType(req.Activity)
	if err != nil {
		return nil, reject(span, err)
	}
	key, err := wallet.NewKey(req.GuildID, req.UserID, wallet.CurrencyTypeTopy)
	if err != nil {
		return nil, reject(span, err)
	}

	cfg, err := settings.Load(ctx, s.settingsRepo, req.GuildID)
	if err != nil {
		return nil, s.fail(ctx, span, "Failed to load settings", err, req)
	}
	now := s.now().In(cfg.Location())

	res, err := s.resolve(ctx, earn.Context{
		GuildID:   req.GuildID,
		ChannelID: req.ChannelID,
		RoleIDs:   req.RoleIDs,
		Activity:  activity,
		Now:       now,
	})
	if err != nil {
		return nil, s.fail(ctx, span, "Failed to resolve multiplier", err, req)
	}
	if res.Excluded {
		return s.skip(ctx, SkipReasonExcluded, 0), nil
	}

	params := cfg.Earn(activity)
	ok, err := s.counter.AcquireCooldown(ctx, earn.CooldownKey(req.GuildID, req.UserID, activity), params.Cooldown(), params.MaxPerCooldown)
	if err != nil {
		return nil, s.fail(ctx, span, "Failed to acquire cooldown", err, req)
	}
	if !ok {
		return s.skip(ctx, SkipReasonCooldown, res.Multiplier), nil
	}

	amount := res.Apply(earn.DrawBase(s.source, params.MinAmount, params.MaxAmount))
	if amount == 0 {
		return s.skip(ctx, SkipReasonZero, res.Multiplier), nil
	}

	dailyKey := earn.DailyKey(req.GuildID, req.UserID, activity, now)
	amount, err = s.counter.ReserveDaily(ctx, dailyKey, amount, params.DailyCap, earn.UntilNextDay(now))
	if err != nil {
		return nil, s.fail(ctx, span, "Failed to reserve daily cap", err, req)
	}
	if amount == 0 {
		return s.skip(ctx, SkipReasonDailyCap, res.Multiplier), nil
	}

	txType := ledger.TransactionTypeEarnText
	if activity == earn.ActivityTypeVoice {
		txType = ledger.TransactionTypeEarnVoice
	}

	var entry *ledger.Entry
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		entry, err = s.ledgerService.Credit(txCtx, service.Posting{Key: key, Amount: amount, Type: txType})
		return err
	})
	if err != nil {
		if releaseErr := s.counter.ReleaseDaily(ctx, dailyKey, amount); releaseErr != nil {
			s.logger.Warn(ctx, "Failed to release daily cap reservation", map[string]interface{}{
				"key":   dailyKey,
				"error": releaseErr.Error(),
			})
		}
		if errors.Is(err, wallet.ErrBalanceOutOfRange) {
			return nil, reject(span, err)
		}
		return nil, s.fail(ctx, span, "Failed to credit earn", err, req)
	}

	span.SetAttributes(attribute.Int64("amount", int64(amount)))
	s.metrics.RecordEarn(ctx, activity.String(), wallet.CurrencyTypeTopy.String(), amount)
	s.metrics.RecordTransaction(ctx, txType.String(), wallet.CurrencyTypeTopy.String())

	return &EarnResponse{
		Credited:     true,
		Amount:       amount,
		Multiplier:   res.Multiplier,
		BalanceAfter: entry.BalanceAfter(),
	}, nil
}

// ResolveMultiplier 活動に適用される倍率を返す
func (s *EarnApplicationService) ResolveMultiplier(ctx context.Context, req *ResolveRequest) (*ResolveResponse, error) {
	ctx, span := s.tracer.Start(ctx, "EarnApplicationService.ResolveMultiplier")
	defer span.End()

	span.SetAttributes(
		attribute.String("guild_id", req.GuildID),
		attribute.String("channel_id", req.ChannelID),
	)

	activity, err := earn.NewActivityType(req.Activity)
	if err != nil {
		return nil, reject(span, err)
	}
	if err := wallet.ValidateGuildID(req.GuildID); err != nil {
		return nil, reject(span, err)
	}
	cfg, err := settings.Load(ctx, s.settingsRepo, req.GuildID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	res, err := s.resolve(ctx, earn.Context{
		GuildID:   req.GuildID,
		ChannelID: req.ChannelID,
		RoleIDs:   req.RoleIDs,
		Activity:  activity,
		Now:       s.now().In(cfg.Location()),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to resolve multiplier: %w", err)
	}

	resp := &ResolveResponse{Excluded: res.Excluded, Multiplier: res.Multiplier}
	if res.Rule != nil {
		id := res.Rule.ID
		resp.RuleID = &id
	}
	return resp, nil
}

func (s *EarnApplicationService) resolve(ctx context.Context, c earn.Context) (earn.Resolution, error) {
	exclusions, err := s.ruleRepo.FindExclusions(ctx, c.GuildID)
	if err != nil {
		return earn.Resolution{}, err
	}
	// 除外に該当すればルールの取得は不要
	if res := earn.Resolve(c, nil, exclusions); res.Excluded {
		return res, nil
	}
	rules, err := s.ruleRepo.FindRules(ctx, c.GuildID)
	if err != nil {
		return earn.Resolution{}, err
	}
	return earn.Resolve(c, rules, nil), nil
}

func (s *EarnApplicationService) skip(ctx context.Context, reason string, multiplier uint32) *EarnResponse {
	s.metrics.RecordEarnSkipped(ctx, reason)
	return &EarnResponse{SkipReason: reason, Multiplier: multiplier}
}

func (s *EarnApplicationService) fail(ctx context.Context, span trace.Span, msg string, err error, req *EarnRequest) error {
	span.RecordError(err)
	span.SetStatus(otelcodes.Error, err.Error())
	s.logger.Error(ctx, msg, err, map[string]interface{}{
		"guild_id": req.GuildID,
		"user_id":  req.UserID,
		"activity": req.Activity,
	})
	s.metrics.RecordError(ctx, "earn_failed")
	return fmt.Errorf("failed to earn: %w", err)
}

func reject(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(otelcodes.Error, err.Error())
	return err
}
