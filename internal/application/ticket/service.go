package ticket

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"economy-server/internal/domain/ledger"
	"economy-server/internal/domain/shop"
	"economy-server/internal/domain/ticket"
	"economy-server/internal/domain/wallet"
	otelinfra "economy-server/internal/infrastructure/observability/otel"
	"economy-server/internal/infrastructure/rolesync"
)

const expireBatchSize = 100

// RoleSyncer コミット済みのロール変更指示を反映する
type RoleSyncer interface {
	Apply(ctx context.Context, ins ticket.Instruction) rolesync.Report
}

// TicketApplicationService ロール交換アプリケーションサービス
type TicketApplicationService struct {
	ticketRepo   ticket.TicketRepository
	grantRepo    ticket.RoleGrantRepository
	itemRepo     shop.ItemRepository
	userItemRepo shop.UserItemRepository
	txManager    ledger.TransactionManager
	syncer       RoleSyncer
	sessions     *SessionStore
	timeout      time.Duration
	logger       *otelinfra.Logger
	metrics      *otelinfra.Metrics
	tracer       trace.Tracer
	now          func() time.Time
	newID        func() string
}

// NewTicketApplicationService 新しいTicketApplicationServiceを作成
func NewTicketApplicationService(
	ticketRepo ticket.TicketRepository,
	grantRepo ticket.RoleGrantRepository,
	itemRepo shop.ItemRepository,
	userItemRepo shop.UserItemRepository,
	txManager ledger.TransactionManager,
	syncer RoleSyncer,
	sessionTimeout time.Duration,
	logger *otelinfra.Logger,
	metrics *otelinfra.Metrics,
) *TicketApplicationService {
	return &TicketApplicationService{
		ticketRepo:   ticketRepo,
		grantRepo:    grantRepo,
		itemRepo:     itemRepo,
		userItemRepo: userItemRepo,
		txManager:    txManager,
		syncer:       syncer,
		sessions:     NewSessionStore(),
		timeout:      sessionTimeout,
		logger:       logger,
		metrics:      metrics,
		tracer:       otel.Tracer("ticket-service"),
		now:          time.Now,
		newID:        uuid.NewString,
	}
}

// CreateTicket ショップ商品を元にチケットを作成
func (s *TicketApplicationService) CreateTicket(ctx context.Context, req *CreateTicketRequest) (*TicketDTO, error) {
	ctx, span := s.tracer.Start(ctx, "TicketApplicationService.CreateTicket")
	defer span.End()

	span.SetAttributes(
		attribute.String("guild_id", req.GuildID),
		attribute.Int64("shop_item_id", req.ShopItemID),
	)

	options := make([]ticket.RoleOption, 0, len(req.Options))
	for _, o := range req.Options {
		options = append(options, ticket.RoleOption{RoleID: o.RoleID, Name: o.Name, Description: o.Description})
	}
	t, err := ticket.NewTicket(req.GuildID, req.ShopItemID, req.Name, ticket.Config{
		ConsumeQuantity:       req.ConsumeQuantity,
		RemovePreviousRole:    req.RemovePreviousRole,
		EffectDurationSeconds: req.EffectDurationSeconds,
		FixedRoleID:           req.FixedRoleID,
	}, options)
	if err != nil {
		return nil, reject(span, err)
	}

	// 選択肢のIDは永続化時に採番されるため作成後に読み直す
	var created *ticket.Ticket
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if _, err := s.itemRepo.FindByID(txCtx, req.GuildID, req.ShopItemID); err != nil {
			return err
		}
		if err := s.ticketRepo.Create(txCtx, t); err != nil {
			return err
		}
		var err error
		created, err = s.ticketRepo.FindByID(txCtx, req.GuildID, t.ID())
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		if errors.Is(err, shop.ErrItemNotFound) {
			return nil, err
		}
		s.logger.Error(ctx, "Failed to create ticket", err, map[string]interface{}{
			"guild_id":     req.GuildID,
			"shop_item_id": req.ShopItemID,
		})
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}

	s.logger.Info(ctx, "Ticket created", map[string]interface{}{
		"guild_id":  req.GuildID,
		"ticket_id": created.ID(),
		"options":   len(options),
	})

	dto := toTicketDTO(created)
	return &dto, nil
}

// ListTickets ギルドのチケット一覧を取得
func (s *TicketApplicationService) ListTickets(ctx context.Context, req *ListTicketsRequest) (*ListTicketsResponse, error) {
	ctx, span := s.tracer.Start(ctx, "TicketApplicationService.ListTickets")
	defer span.End()

	span.SetAttributes(attribute.String("guild_id", req.GuildID))

	if err := wallet.ValidateGuildID(req.GuildID); err != nil {
		return nil, reject(span, err)
	}
	tickets, err := s.ticketRepo.FindByGuild(ctx, req.GuildID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	out := make([]TicketDTO, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, toTicketDTO(t))
	}
	return &ListTicketsResponse{Tickets: out}, nil
}

// ExchangeRole チケットを使ってロールを交換する
//
// 所持品の消費とロール付与記録の更新をコミットしてから、ロール変更指示を反映する。
// 反映の失敗は警告として返し、コミット済みの消費は取り消さない。
func (s *TicketApplicationService) ExchangeRole(ctx context.Context, req *ExchangeRoleRequest) (*ExchangeRoleResponse, error) {
	ctx, span := s.tracer.Start(ctx, "TicketApplicationService.ExchangeRole")
	defer span.End()

	span.SetAttributes(
		attribute.String("guild_id", req.GuildID),
		attribute.String("user_id", req.UserID),
		attribute.Int64("ticket_id", req.TicketID),
		attribute.Int64("role_option_id", req.RoleOptionID),
	)

	s.logger.Info(ctx, "Exchanging role", map[string]interface{}{
		"guild_id":       req.GuildID,
		"user_id":        req.UserID,
		"ticket_id":      req.TicketID,
		"role_option_id": req.RoleOptionID,
	})

	if err := wallet.ValidateGuildID(req.GuildID); err != nil {
		return nil, reject(span, err)
	}
	if err := wallet.ValidateUserID(req.UserID); err != nil {
		return nil, reject(span, err)
	}

	var (
		resp *ExchangeRoleResponse
		ins  ticket.Instruction
	)
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		now := s.now()

		t, err := s.ticketRepo.FindByID(txCtx, req.GuildID, req.TicketID)
		if err != nil {
			return err
		}
		if _, err := t.Option(req.RoleOptionID); err != nil {
			return err
		}
		held, err := s.userItemRepo.FindByKeyForUpdate(txCtx, req.GuildID, req.UserID, t.ShopItemID())
		if errors.Is(err, shop.ErrUserItemNotFound) {
			held, err = nil, nil
		}
		if err != nil {
			return err
		}
		grants, err := s.grantRepo.FindByUser(txCtx, req.GuildID, req.UserID)
		if err != nil {
			return err
		}

		plan, err := t.PlanExchange(req.RoleOptionID, held, grants, now)
		if err != nil {
			return err
		}

		if plan.Consume > 0 {
			if err := held.Consume(plan.Consume); err != nil {
				return err
			}
			if err := s.userItemRepo.Save(txCtx, held); err != nil {
				return fmt.Errorf("failed to save user item: %w", err)
			}
		}

		granted := []string{plan.NewRoleID}
		if plan.FixedRoleID != nil && *plan.FixedRoleID != plan.NewRoleID {
			granted = append(granted, *plan.FixedRoleID)
		}
		for _, roleID := range granted {
			g := ticket.NewRoleGrant(req.GuildID, req.UserID, roleID, t.ID(), now, plan.RoleExpiresAt)
			if err := s.grantRepo.Save(txCtx, g); err != nil {
				return fmt.Errorf("failed to save role grant: %w", err)
			}
		}
		for _, roleID := range plan.ReleasedRoleIDs {
			if err := s.grantRepo.Delete(txCtx, req.GuildID, req.UserID, roleID, t.ID()); err != nil {
				return fmt.Errorf("failed to delete role grant: %w", err)
			}
		}

		ins = plan.Instruction(req.GuildID, req.UserID)
		resp = &ExchangeRoleResponse{
			NewRoleID:         plan.NewRoleID,
			RemovedRoleIDs:    plan.RemovedRoleIDs,
			FixedRoleID:       plan.FixedRoleID,
			RemainingQuantity: held.Quantity(),
			IsPeriod:          t.IsPeriod(),
			ExpiresAt:         held.ExpiresAt(),
			RoleExpiresAt:     plan.RoleExpiresAt,
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		if isExchangeRejection(err) {
			s.logger.Warn(ctx, "Role exchange rejected", map[string]interface{}{
				"guild_id":  req.GuildID,
				"user_id":   req.UserID,
				"ticket_id": req.TicketID,
				"reason":    err.Error(),
			})
			return nil, err
		}
		s.logger.Error(ctx, "Failed to exchange role", err, map[string]interface{}{
			"guild_id":  req.GuildID,
			"user_id":   req.UserID,
			"ticket_id": req.TicketID,
		})
		s.metrics.RecordError(ctx, "role_exchange_failed")
		return nil, fmt.Errorf("failed to exchange role: %w", err)
	}

	report := s.syncer.Apply(ctx, ins)
	resp.Warnings = warnings(report)

	s.logger.Info(ctx, "Role exchanged", map[string]interface{}{
		"guild_id":           req.GuildID,
		"user_id":            req.UserID,
		"new_role_id":        resp.NewRoleID,
		"removed_role_ids":   resp.RemovedRoleIDs,
		"remaining_quantity": resp.RemainingQuantity,
		"warnings":           len(resp.Warnings),
	})

	return resp, nil
}

// ExpireRoleGrants 期限切れのロール付与記録を削除し、剥奪指示を反映する
func (s *TicketApplicationService) ExpireRoleGrants(ctx context.Context) (*ExpireRoleGrantsResponse, error) {
	ctx, span := s.tracer.Start(ctx, "TicketApplicationService.ExpireRoleGrants")
	defer span.End()

	resp := &ExpireRoleGrantsResponse{}
	now := s.now()
	for {
		var expired, revoke []*ticket.RoleGrant
		err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
			var err error
			expired, err = s.grantRepo.FindExpired(txCtx, now, expireBatchSize)
			if err != nil {
				return err
			}
			for _, g := range expired {
				if err := s.grantRepo.Delete(txCtx, g.GuildID(), g.UserID(), g.RoleID(), g.TicketID()); err != nil {
					return err
				}
			}
			revoke, err = s.unheldGrants(txCtx, expired, now)
			return err
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
			s.logger.Error(ctx, "Failed to expire role grants", err, nil)
			s.metrics.RecordError(ctx, "role_expiry_failed")
			return resp, fmt.Errorf("failed to expire role grants: %w", err)
		}

		for _, ins := range revokeInstructions(revoke) {
			report := s.syncer.Apply(ctx, ins)
			resp.Revoked += len(report.Revoked)
			resp.Failures += len(report.Failures)
		}
		if len(expired) < expireBatchSize {
			break
		}
	}

	span.SetAttributes(
		attribute.Int("revoked", resp.Revoked),
		attribute.Int("failures", resp.Failures),
	)
	if resp.Revoked > 0 || resp.Failures > 0 {
		s.logger.Info(ctx, "Expired role grants revoked", map[string]interface{}{
			"revoked":  resp.Revoked,
			"failures": resp.Failures,
		})
	}
	return resp, nil
}

// revokeInstructions ユーザーごとに剥奪指示をまとめる
// unheldGrants 削除後も他のチケットで有効な付与記録が残るロールを除外する
func (s *TicketApplicationService) unheldGrants(ctx context.Context, expired []*ticket.RoleGrant, now time.Time) ([]*ticket.RoleGrant, error) {
	type owner struct{ guildID, userID string }
	type role struct {
		owner
		roleID string
	}
	remaining := make(map[owner][]*ticket.RoleGrant)
	seen := make(map[role]bool)
	var out []*ticket.RoleGrant
	for _, g := range expired {
		k := owner{g.GuildID(), g.UserID()}
		if seen[role{k, g.RoleID()}] {
			continue
		}
		seen[role{k, g.RoleID()}] = true
		grants, ok := remaining[k]
		if !ok {
			var err error
			grants, err = s.grantRepo.FindByUser(ctx, g.GuildID(), g.UserID())
			if err != nil {
				return nil, err
			}
			remaining[k] = grants
		}
		if ticket.HeldByOtherTicket(grants, g.RoleID(), g.TicketID(), now) {
			continue
		}
		out = append(out, g)
	}
	return out, nil
}

func revokeInstructions(grants []*ticket.RoleGrant) []ticket.Instruction {
	type owner struct{ guildID, userID string }
	index := make(map[owner]int)
	var out []ticket.Instruction
	for _, g := range grants {
		k := owner{g.GuildID(), g.UserID()}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, ticket.Instruction{GuildID: g.GuildID(), UserID: g.UserID()})
		}
		out[i].Revoke = append(out[i].Revoke, g.RoleID())
	}
	return out
}

func warnings(report rolesync.Report) []string {
	if report.OK() {
		return nil
	}
	out := make([]string, 0, len(report.Failures))
	for _, f := range report.Failures {
		out = append(out, fmt.Sprintf("failed to %s role %s: %v", f.Action, f.RoleID, f.Err))
	}
	return out
}

func toTicketDTO(t *ticket.Ticket) TicketDTO {
	cfg := t.Config()
	options := make([]RoleOptionDTO, 0, len(t.Options()))
	for _, o := range t.Options() {
		options = append(options, RoleOptionDTO{ID: o.ID, RoleID: o.RoleID, Name: o.Name, Description: o.Description})
	}
	return TicketDTO{
		ID:                    t.ID(),
		GuildID:               t.GuildID(),
		ShopItemID:            t.ShopItemID(),
		Name:                  t.Name(),
		ConsumeQuantity:       cfg.ConsumeQuantity,
		IsPeriod:              t.IsPeriod(),
		RemovePreviousRole:    cfg.RemovePreviousRole,
		EffectDurationSeconds: cfg.EffectDurationSeconds,
		FixedRoleID:           cfg.FixedRoleID,
		Options:               options,
	}
}

// isExchangeRejection 利用者に返す交換エラーかどうか
func isExchangeRejection(err error) bool {
	for _, target := range []error{
		ticket.ErrTicketNotFound,
		ticket.ErrRoleOptionNotFound,
		ticket.ErrItemNotOwned,
		ticket.ErrItemExpired,
		shop.ErrInsufficientQuantity,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func reject(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(otelcodes.Error, err.Error())
	return err
}
