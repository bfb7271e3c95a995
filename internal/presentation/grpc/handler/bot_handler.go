package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	earnapp "economy-server/internal/application/earn"
	ticketapp "economy-server/internal/application/ticket"
	transferapp "economy-server/internal/application/transfer"
	walletapp "economy-server/internal/application/wallet"
	"economy-server/internal/presentation/apierror"
)

// errorDomain ErrorInfoのドメイン
const errorDomain = "economy-server"

// BotHandler ボット向けgRPCハンドラー
type BotHandler struct {
	earnService     *earnapp.EarnApplicationService
	walletService   *walletapp.WalletApplicationService
	transferService *transferapp.TransferApplicationService
	ticketService   *ticketapp.TicketApplicationService
}

var _ BotServiceServer = (*BotHandler)(nil)

// NewBotHandler 新しいBotHandlerを作成
func NewBotHandler(
	earnService *earnapp.EarnApplicationService,
	walletService *walletapp.WalletApplicationService,
	transferService *transferapp.TransferApplicationService,
	ticketService *ticketapp.TicketApplicationService,
) *BotHandler {
	return &BotHandler{
		earnService:     earnService,
		walletService:   walletService,
		transferService: transferService,
		ticketService:   ticketService,
	}
}

// Earn 活動報酬の付与
func (h *BotHandler) Earn(ctx context.Context, req *EarnRequest) (*EarnResponse, error) {
	resp, err := h.earnService.Earn(ctx, &earnapp.EarnRequest{
		GuildID:   req.GuildID,
		UserID:    req.UserID,
		ChannelID: req.ChannelID,
		RoleIDs:   req.RoleIDs,
		Activity:  req.Activity,
	})
	if err != nil {
		return nil, h.handleError(err)
	}

	out := &EarnResponse{
		Credited:   resp.Credited,
		SkipReason: resp.SkipReason,
		Amount:     strconv.FormatUint(resp.Amount, 10),
		Multiplier: resp.Multiplier,
	}
	if resp.Credited {
		out.BalanceAfter = strconv.FormatUint(resp.BalanceAfter, 10)
	}
	return out, nil
}

// GetWallets ウォレット残高の取得
func (h *BotHandler) GetWallets(ctx context.Context, req *GetWalletsRequest) (*GetWalletsResponse, error) {
	resp, err := h.walletService.GetWallets(ctx, &walletapp.GetWalletsRequest{
		GuildID: req.GuildID,
		UserID:  req.UserID,
	})
	if err != nil {
		return nil, h.handleError(err)
	}

	balances := make(map[string]string, len(resp.Balances))
	for ct, balance := range resp.Balances {
		balances[ct] = strconv.FormatUint(balance, 10)
	}
	return &GetWalletsResponse{GuildID: resp.GuildID, UserID: resp.UserID, Balances: balances}, nil
}

// Transfer 送金
func (h *BotHandler) Transfer(ctx context.Context, req *TransferRequest) (*TransferResponse, error) {
	if req.Amount == "" {
		return nil, status.Error(codes.InvalidArgument, "amount is required")
	}
	amount, err := strconv.ParseUint(req.Amount, 10, 64)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid amount format")
	}

	resp, err := h.transferService.Transfer(ctx, &transferapp.TransferRequest{
		GuildID:      req.GuildID,
		FromUserID:   req.FromUserID,
		ToUserID:     req.ToUserID,
		CurrencyType: req.CurrencyType,
		Amount:       amount,
		Reason:       req.Reason,
	})
	if err != nil {
		return nil, h.handleError(err)
	}

	return &TransferResponse{
		CurrencyType: resp.CurrencyType,
		Amount:       strconv.FormatUint(resp.Amount, 10),
		Fee:          strconv.FormatUint(resp.Fee, 10),
		FromBalance:  strconv.FormatUint(resp.FromBalance, 10),
		ToBalance:    strconv.FormatUint(resp.ToBalance, 10),
	}, nil
}

// ExchangeRole ロール交換
func (h *BotHandler) ExchangeRole(ctx context.Context, req *ExchangeRoleRequest) (*ExchangeRoleResponse, error) {
	resp, err := h.ticketService.ExchangeRole(ctx, &ticketapp.ExchangeRoleRequest{
		GuildID:      req.GuildID,
		UserID:       req.UserID,
		TicketID:     req.TicketID,
		RoleOptionID: req.RoleOptionID,
	})
	if err != nil {
		return nil, h.handleError(err)
	}

	return &ExchangeRoleResponse{
		NewRoleID:         resp.NewRoleID,
		RemovedRoleIDs:    resp.RemovedRoleIDs,
		FixedRoleID:       resp.FixedRoleID,
		RemainingQuantity: resp.RemainingQuantity,
		Warnings:          resp.Warnings,
	}, nil
}

// handleError エラーをgRPCステータスに変換
// エラーコードと詳細はErrorInfoとして付与する
func (h *BotHandler) handleError(err error) error {
	ce, ok := apierror.Classify(err)
	if !ok {
		if errors.Is(err, context.Canceled) {
			return status.Error(codes.Canceled, "request canceled")
		}
		return status.Error(codes.Internal, "internal server error")
	}

	st := status.New(grpcCode(ce.Status), err.Error())
	info := &errdetails.ErrorInfo{Reason: ce.Code, Domain: errorDomain}
	if len(ce.Details) > 0 {
		info.Metadata = make(map[string]string, len(ce.Details))
		for k, v := range ce.Details {
			info.Metadata[k] = fmt.Sprint(v)
		}
	}
	if withInfo, detailErr := st.WithDetails(info); detailErr == nil {
		st = withInfo
	}
	return st.Err()
}

// grpcCode HTTPステータスをgRPCコードに変換
func grpcCode(httpStatus int) codes.Code {
	switch httpStatus {
	case http.StatusBadRequest:
		return codes.InvalidArgument
	case http.StatusUnauthorized:
		return codes.Unauthenticated
	case http.StatusNotFound:
		return codes.NotFound
	case http.StatusConflict:
		return codes.FailedPrecondition
	case http.StatusGone:
		return codes.DeadlineExceeded
	default:
		return codes.Internal
	}
}
