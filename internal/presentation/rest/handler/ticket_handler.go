package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	ticketapp "economy-server/internal/application/ticket"
)

// TicketHandler ロール交換チケット関連ハンドラー
type TicketHandler struct {
	ticketService *ticketapp.TicketApplicationService
}

// NewTicketHandler 新しいTicketHandlerを作成
func NewTicketHandler(ticketService *ticketapp.TicketApplicationService) *TicketHandler {
	return &TicketHandler{
		ticketService: ticketService,
	}
}

// ListTickets チケット一覧（ユーザーAPI用）
func (h *TicketHandler) ListTickets(c echo.Context) error {
	guildID, _, err := principal(c)
	if err != nil {
		return err
	}

	resp, err := h.ticketService.ListTickets(c.Request().Context(), &ticketapp.ListTicketsRequest{GuildID: guildID})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, TicketsResponse{Tickets: toTicketResponses(resp.Tickets)})
}

// ExchangeRole 一括でのロール交換（ユーザーAPI用）
func (h *TicketHandler) ExchangeRole(c echo.Context) error {
	guildID, userID, err := principal(c)
	if err != nil {
		return err
	}
	ticketID, err := pathID(c, "ticket_id")
	if err != nil {
		return err
	}

	var reqBody ExchangeRoleRequest
	if err := c.Bind(&reqBody); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	resp, err := h.ticketService.ExchangeRole(c.Request().Context(), &ticketapp.ExchangeRoleRequest{
		GuildID:      guildID,
		UserID:       userID,
		TicketID:     ticketID,
		RoleOptionID: reqBody.RoleOptionID,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toExchangeRoleResponse(resp))
}

// StartSession 交換セッション開始
func (h *TicketHandler) StartSession(c echo.Context) error {
	guildID, userID, err := principal(c)
	if err != nil {
		return err
	}

	resp, err := h.ticketService.StartSession(c.Request().Context(), &ticketapp.StartSessionRequest{
		GuildID: guildID,
		UserID:  userID,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toSessionResponse(resp))
}

// SelectTicket チケット選択
func (h *TicketHandler) SelectTicket(c echo.Context) error {
	var reqBody SelectTicketRequest
	if err := c.Bind(&reqBody); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return h.step(c, func(ctx context.Context, req ticketapp.SessionRequest) (*ticketapp.SessionResponse, error) {
		return h.ticketService.SelectTicket(ctx, &ticketapp.SelectTicketRequest{SessionRequest: req, TicketID: reqBody.TicketID})
	})
}

// SelectRole ロール選択
func (h *TicketHandler) SelectRole(c echo.Context) error {
	var reqBody SelectRoleRequest
	if err := c.Bind(&reqBody); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return h.step(c, func(ctx context.Context, req ticketapp.SessionRequest) (*ticketapp.SessionResponse, error) {
		return h.ticketService.SelectRole(ctx, &ticketapp.SelectRoleRequest{SessionRequest: req, RoleOptionID: reqBody.RoleOptionID})
	})
}

// Back 一つ前の状態に戻る
func (h *TicketHandler) Back(c echo.Context) error {
	return h.step(c, func(ctx context.Context, req ticketapp.SessionRequest) (*ticketapp.SessionResponse, error) {
		return h.ticketService.Back(ctx, &req)
	})
}

// Confirm 確認してロール交換を確定
func (h *TicketHandler) Confirm(c echo.Context) error {
	return h.step(c, func(ctx context.Context, req ticketapp.SessionRequest) (*ticketapp.SessionResponse, error) {
		return h.ticketService.Commit(ctx, &req)
	})
}

// Cancel 交換セッションを取り消す
func (h *TicketHandler) Cancel(c echo.Context) error {
	return h.step(c, func(ctx context.Context, req ticketapp.SessionRequest) (*ticketapp.SessionResponse, error) {
		return h.ticketService.Cancel(ctx, &req)
	})
}

func (h *TicketHandler) step(c echo.Context, op func(context.Context, ticketapp.SessionRequest) (*ticketapp.SessionResponse, error)) error {
	_, userID, err := principal(c)
	if err != nil {
		return err
	}
	sessionID, err := pathParam(c, "session_id")
	if err != nil {
		return err
	}

	resp, err := op(c.Request().Context(), ticketapp.SessionRequest{SessionID: sessionID, UserID: userID})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSessionResponse(resp))
}

// CreateTicket チケット作成（管理API用）
func (h *TicketHandler) CreateTicket(c echo.Context) error {
	guildID, err := pathParam(c, "guild_id")
	if err != nil {
		return err
	}

	var reqBody CreateTicketRequest
	if err := c.Bind(&reqBody); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	options := make([]ticketapp.RoleOptionInput, len(reqBody.Options))
	for i, o := range reqBody.Options {
		options[i] = ticketapp.RoleOptionInput{RoleID: o.RoleID, Name: o.Name, Description: o.Description}
	}

	resp, err := h.ticketService.CreateTicket(c.Request().Context(), &ticketapp.CreateTicketRequest{
		GuildID:               guildID,
		ShopItemID:            reqBody.ShopItemID,
		Name:                  reqBody.Name,
		ConsumeQuantity:       reqBody.ConsumeQuantity,
		RemovePreviousRole:    reqBody.RemovePreviousRole,
		EffectDurationSeconds: reqBody.EffectDurationSeconds,
		FixedRoleID:           reqBody.FixedRoleID,
		Options:               options,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toTicketResponse(*resp))
}

// ExpireRoleGrants 期限切れロールの回収（管理API用）
func (h *TicketHandler) ExpireRoleGrants(c echo.Context) error {
	resp, err := h.ticketService.ExpireRoleGrants(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ExpireRoleGrantsResponse{Revoked: resp.Revoked, Failures: resp.Failures})
}

func toTicketResponses(tickets []ticketapp.TicketDTO) []TicketResponse {
	out := make([]TicketResponse, len(tickets))
	for i, t := range tickets {
		out[i] = toTicketResponse(t)
	}
	return out
}

func toTicketResponse(t ticketapp.TicketDTO) TicketResponse {
	return TicketResponse{
		ID:                    t.ID,
		ShopItemID:            t.ShopItemID,
		Name:                  t.Name,
		ConsumeQuantity:       t.ConsumeQuantity,
		IsPeriod:              t.IsPeriod,
		RemovePreviousRole:    t.RemovePreviousRole,
		EffectDurationSeconds: t.EffectDurationSeconds,
		FixedRoleID:           t.FixedRoleID,
		Options:               toRoleOptionResponses(t.Options),
	}
}

func toRoleOptionResponses(options []ticketapp.RoleOptionDTO) []RoleOptionResponse {
	out := make([]RoleOptionResponse, len(options))
	for i, o := range options {
		out[i] = RoleOptionResponse{ID: o.ID, RoleID: o.RoleID, Name: o.Name, Description: o.Description}
	}
	return out
}

func toExchangeRoleResponse(resp *ticketapp.ExchangeRoleResponse) *ExchangeRoleResponse {
	if resp == nil {
		return nil
	}
	removed := resp.RemovedRoleIDs
	if removed == nil {
		removed = []string{}
	}
	return &ExchangeRoleResponse{
		NewRoleID:         resp.NewRoleID,
		RemovedRoleIDs:    removed,
		FixedRoleID:       resp.FixedRoleID,
		RemainingQuantity: resp.RemainingQuantity,
		IsPeriod:          resp.IsPeriod,
		ExpiresAt:         formatTimePtr(resp.ExpiresAt),
		RoleExpiresAt:     formatTimePtr(resp.RoleExpiresAt),
		Warnings:          resp.Warnings,
	}
}

func toSessionResponse(resp *ticketapp.SessionResponse) SessionResponse {
	out := SessionResponse{
		SessionID:    resp.SessionID,
		State:        resp.State,
		TicketID:     resp.TicketID,
		RoleOptionID: resp.RoleOptionID,
		Deadline:     formatTime(resp.Deadline),
		Result:       toExchangeRoleResponse(resp.Result),
	}
	if len(resp.Tickets) > 0 {
		out.Tickets = toTicketResponses(resp.Tickets)
	}
	if len(resp.Options) > 0 {
		out.Options = toRoleOptionResponses(resp.Options)
	}
	return out
}
