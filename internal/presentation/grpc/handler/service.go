package handler

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName BotServiceの完全修飾名
const ServiceName = "economy.v1.BotService"

// BotServiceServer ボット向けgRPCサービス
type BotServiceServer interface {
	Earn(context.Context, *EarnRequest) (*EarnResponse, error)
	GetWallets(context.Context, *GetWalletsRequest) (*GetWalletsResponse, error)
	Transfer(context.Context, *TransferRequest) (*TransferResponse, error)
	ExchangeRole(context.Context, *ExchangeRoleRequest) (*ExchangeRoleResponse, error)
}

// BotServiceDesc BotServiceのサービス定義
var BotServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BotServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Earn", BotServiceServer.Earn),
		unary("GetWallets", BotServiceServer.GetWallets),
		unary("Transfer", BotServiceServer.Transfer),
		unary("ExchangeRole", BotServiceServer.ExchangeRole),
	},
	Streams: []grpc.StreamDesc{},
}

func unary[Req, Resp any](name string, call func(BotServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(BotServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(BotServiceServer), ctx, req.(*Req))
			})
		},
	}
}

// BotClient BotServiceのクライアント
type BotClient struct {
	cc grpc.ClientConnInterface
}

// NewBotClient 新しいBotClientを作成
func NewBotClient(cc grpc.ClientConnInterface) *BotClient {
	return &BotClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, c *BotClient, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Earn 活動報酬の付与
func (c *BotClient) Earn(ctx context.Context, in *EarnRequest, opts ...grpc.CallOption) (*EarnResponse, error) {
	return invoke[EarnResponse](ctx, c, "Earn", in, opts)
}

// GetWallets ウォレット残高の取得
func (c *BotClient) GetWallets(ctx context.Context, in *GetWalletsRequest, opts ...grpc.CallOption) (*GetWalletsResponse, error) {
	return invoke[GetWalletsResponse](ctx, c, "GetWallets", in, opts)
}

// Transfer 送金
func (c *BotClient) Transfer(ctx context.Context, in *TransferRequest, opts ...grpc.CallOption) (*TransferResponse, error) {
	return invoke[TransferResponse](ctx, c, "Transfer", in, opts)
}

// ExchangeRole ロール交換
func (c *BotClient) ExchangeRole(ctx context.Context, in *ExchangeRoleRequest, opts ...grpc.CallOption) (*ExchangeRoleResponse, error) {
	return invoke[ExchangeRoleResponse](ctx, c, "ExchangeRole", in, opts)
}
