package ticket

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"economy-server/internal/domain/ticket"
	"economy-server/internal/domain/wallet"
)

// StartSession ロール交換セッションを開始し、利用可能なチケットを返す
func (s *TicketApplicationService) StartSession(ctx context.Context, req *StartSessionRequest) (*SessionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "TicketApplicationService.StartSession")
	defer span.End()

	span.SetAttributes(
		attribute.String("guild_id", req.GuildID),
		attribute.String("user_id", req.UserID),
	)

	if err := wallet.ValidateGuildID(req.GuildID); err != nil {
		return nil, reject(span, err)
	}
	if err := wallet.ValidateUserID(req.UserID); err != nil {
		return nil, reject(span, err)
	}

	now := s.now()
	s.sessions.Sweep(now)

	tickets, err := s.usableTickets(ctx, req.GuildID, req.UserID)
	if err != nil {
		return nil, reject(span, err)
	}

	session := ticket.NewSession(s.newID(), req.GuildID, req.UserID, s.timeout, now)
	s.sessions.put(session)

	resp := sessionResponse(session)
	resp.Tickets = tickets
	return resp, nil
}

// SelectTicket チケットを選択し、ロール選択肢を返す
func (s *TicketApplicationService) SelectTicket(ctx context.Context, req *SelectTicketRequest) (*SessionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "TicketApplicationService.SelectTicket")
	defer span.End()

	span.SetAttributes(
		attribute.String("session_id", req.SessionID),
		attribute.Int64("ticket_id", req.TicketID),
	)

	snapshot, err := s.sessions.peek(req.SessionID, req.UserID)
	if err != nil {
		return nil, reject(span, err)
	}
	t, err := s.ticketRepo.FindByID(ctx, snapshot.GuildID(), req.TicketID)
	if err != nil {
		return nil, reject(span, err)
	}

	var resp *SessionResponse
	err = s.sessions.update(req.SessionID, req.UserID, func(e *sessionEntry) error {
		if err := e.session.SelectTicket(t.ID(), s.now()); err != nil {
			return err
		}
		resp = sessionResponse(e.session)
		resp.Options = toTicketDTO(t).Options
		return nil
	})
	if err != nil {
		return nil, reject(span, err)
	}
	return resp, nil
}

// SelectRole ロールを選択し、確認段階へ進む
func (s *TicketApplicationService) SelectRole(ctx context.Context, req *SelectRoleRequest) (*SessionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "TicketApplicationService.SelectRole")
	defer span.End()

	span.SetAttributes(
		attribute.String("session_id", req.SessionID),
		attribute.Int64("role_option_id", req.RoleOptionID),
	)

	snapshot, err := s.sessions.peek(req.SessionID, req.UserID)
	if err != nil {
		return nil, reject(span, err)
	}
	if snapshot.State() == ticket.StateSelectingRole {
		t, err := s.ticketRepo.FindByID(ctx, snapshot.GuildID(), snapshot.TicketID())
		if err != nil {
			return nil, reject(span, err)
		}
		if _, err := t.Option(req.RoleOptionID); err != nil {
			return nil, reject(span, err)
		}
	}

	var resp *SessionResponse
	err = s.sessions.update(req.SessionID, req.UserID, func(e *sessionEntry) error {
		if e.session.TicketID() != snapshot.TicketID() {
			return ticket.ErrInvalidTransition
		}
		if err := e.session.SelectRole(req.RoleOptionID, s.now()); err != nil {
			return err
		}
		resp = sessionResponse(e.session)
		return nil
	})
	if err != nil {
		return nil, reject(span, err)
	}
	return resp, nil
}

// Back 一つ前の段階へ戻る
func (s *TicketApplicationService) Back(ctx context.Context, req *SessionRequest) (*SessionResponse, error) {
	_, span := s.tracer.Start(ctx, "TicketApplicationService.Back")
	defer span.End()

	span.SetAttributes(attribute.String("session_id", req.SessionID))

	var resp *SessionResponse
	err := s.sessions.update(req.SessionID, req.UserID, func(e *sessionEntry) error {
		if e.committing {
			return ticket.ErrInvalidTransition
		}
		if err := e.session.Back(s.now()); err != nil {
			return err
		}
		resp = sessionResponse(e.session)
		return nil
	})
	if err != nil {
		return nil, reject(span, err)
	}
	return resp, nil
}

// Cancel セッションを中断する
func (s *TicketApplicationService) Cancel(ctx context.Context, req *SessionRequest) (*SessionResponse, error) {
	_, span := s.tracer.Start(ctx, "TicketApplicationService.Cancel")
	defer span.End()

	span.SetAttributes(attribute.String("session_id", req.SessionID))

	var resp *SessionResponse
	err := s.sessions.update(req.SessionID, req.UserID, func(e *sessionEntry) error {
		if e.committing {
			return ticket.ErrInvalidTransition
		}
		if err := e.session.Cancel(s.now()); err != nil {
			return err
		}
		resp = sessionResponse(e.session)
		return nil
	})
	if err != nil {
		return nil, reject(span, err)
	}
	return resp, nil
}

// Commit 確認段階のセッションでロール交換を確定する
//
// 確定処理そのものにはタイムアウトを適用しない。失敗した場合セッションはABORTEDになる。
func (s *TicketApplicationService) Commit(ctx context.Context, req *SessionRequest) (*SessionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "TicketApplicationService.Commit")
	defer span.End()

	span.SetAttributes(attribute.String("session_id", req.SessionID))

	var exchange *ExchangeRoleRequest
	err := s.sessions.update(req.SessionID, req.UserID, func(e *sessionEntry) error {
		if e.committing {
			return ticket.ErrInvalidTransition
		}
		if err := e.session.ReadyToCommit(s.now()); err != nil {
			return err
		}
		e.committing = true
		exchange = &ExchangeRoleRequest{
			GuildID:      e.session.GuildID(),
			UserID:       e.session.UserID(),
			TicketID:     e.session.TicketID(),
			RoleOptionID: e.session.RoleOptionID(),
		}
		return nil
	})
	if err != nil {
		return nil, reject(span, err)
	}

	result, exchangeErr := s.ExchangeRole(ctx, exchange)

	var resp *SessionResponse
	err = s.sessions.update(req.SessionID, req.UserID, func(e *sessionEntry) error {
		e.committing = false
		if exchangeErr != nil {
			e.session.Abort()
			return nil
		}
		if err := e.session.MarkApplied(); err != nil {
			return fmt.Errorf("failed to mark session applied: %w", err)
		}
		resp = sessionResponse(e.session)
		resp.Result = result
		return nil
	})
	if exchangeErr != nil {
		return nil, exchangeErr
	}
	if err != nil {
		return nil, reject(span, err)
	}
	return resp, nil
}

// usableTickets ユーザーが所持していて期限切れでないチケットを返す
func (s *TicketApplicationService) usableTickets(ctx context.Context, guildID, userID string) ([]TicketDTO, error) {
	tickets, err := s.ticketRepo.FindByGuild(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	held, err := s.userItemRepo.FindByUser(ctx, guildID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find inventory: %w", err)
	}
	now := s.now()
	usable := make(map[int64]bool, len(held))
	for _, ui := range held {
		usable[ui.ShopItemID()] = ui.Quantity() > 0 && !ui.IsExpired(now)
	}

	out := make([]TicketDTO, 0, len(tickets))
	for _, t := range tickets {
		if usable[t.ShopItemID()] {
			out = append(out, toTicketDTO(t))
		}
	}
	return out, nil
}

func sessionResponse(session *ticket.Session) *SessionResponse {
	return &SessionResponse{
		SessionID:    session.ID(),
		State:        string(session.State()),
		TicketID:     session.TicketID(),
		RoleOptionID: session.RoleOptionID(),
		Deadline:     session.Deadline(),
	}
}
