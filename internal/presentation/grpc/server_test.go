package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"economy-server/internal/application/apptest"
	earnapp "economy-server/internal/application/earn"
	ticketapp "economy-server/internal/application/ticket"
	transferapp "economy-server/internal/application/transfer"
	walletapp "economy-server/internal/application/wallet"
	"economy-server/internal/domain/wallet"
	"economy-server/internal/infrastructure/cache/earncounter"
	"economy-server/internal/infrastructure/config"
	"economy-server/internal/infrastructure/rolesync"
	"economy-server/internal/presentation/grpc/handler"
)

const testAPIKey = "bot-key"

func setupTestServer(t *testing.T) (*handler.BotClient, *apptest.Fixture) {
	t.Helper()
	f := apptest.New(t)
	store := f.Store

	cfg := &config.Config{
		Environment: "production",
		AdminAPI:    config.AdminAPIConfig{APIKeys: []string{testAPIKey}},
	}
	syncer := rolesync.NewExecutor(rolesync.NewLogMutator(f.Logger), config.RoleSyncConfig{MaxTries: 1, MaxElapsedTime: time.Second}, f.Logger, f.Metrics)

	listener := bufconn.Listen(1024 * 1024)
	server := NewServerWithListener(cfg, f.Logger, f.Metrics, Services{
		Earn: earnapp.NewEarnApplicationService(
			store.Rules(), store.Settings(), earncounter.NewMemoryCounter(), store, f.Ledger, f.Logger, f.Metrics,
		),
		Wallet:   walletapp.NewWalletApplicationService(store.Wallets(), store, f.Ledger, f.Logger, f.Metrics),
		Transfer: transferapp.NewTransferApplicationService(store.Settings(), store, f.Ledger, f.Logger, f.Metrics),
		Ticket: ticketapp.NewTicketApplicationService(
			store.Tickets(), store.RoleGrants(), store.Items(), store.UserItems(), store, syncer, time.Minute, f.Logger, f.Metrics,
		),
	}, listener)

	go func() {
		_ = server.Start()
	}()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Stop(ctx)
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return handler.NewBotClient(conn), f
}

func withKey(key string) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), "x-api-key", key)
}

func errorInfo(t *testing.T, err error) *errdetails.ErrorInfo {
	t.Helper()
	st, ok := status.FromError(err)
	require.True(t, ok)
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok {
			return info
		}
	}
	t.Fatalf("no ErrorInfo in status: %v", st)
	return nil
}

func TestServer_Authentication(t *testing.T) {
	client, _ := setupTestServer(t)
	req := &handler.GetWalletsRequest{GuildID: apptest.GuildID, UserID: apptest.Alice}

	tests := []struct {
		name         string
		ctx          context.Context
		expectedCode codes.Code
	}{
		{name: "正常系: 有効なAPIキー", ctx: withKey(testAPIKey), expectedCode: codes.OK},
		{name: "異常系: APIキーなし", ctx: context.Background(), expectedCode: codes.Unauthenticated},
		{name: "異常系: 無効なAPIキー", ctx: withKey("wrong"), expectedCode: codes.Unauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.GetWallets(tt.ctx, req)
			assert.Equal(t, tt.expectedCode, status.Code(err))
		})
	}
}

func TestServer_HealthWithoutKey(t *testing.T) {
	f := apptest.New(t)
	listener := bufconn.Listen(1024 * 1024)
	server := NewServerWithListener(&config.Config{Environment: "development"}, f.Logger, f.Metrics, Services{}, listener)
	go func() {
		_ = server.Start()
	}()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, server.Stop(ctx))
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	defer conn.Close()

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: handler.ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestServer_Transfer(t *testing.T) {
	client, f := setupTestServer(t)
	f.Seed(t, apptest.GuildID, apptest.Alice, wallet.CurrencyTypeTopy, 5000)
	ctx := withKey(testAPIKey)

	resp, err := client.Transfer(ctx, &handler.TransferRequest{
		GuildID: apptest.GuildID, FromUserID: apptest.Alice, ToUserID: apptest.Bob,
		CurrencyType: "topy", Amount: "1000",
	})
	require.NoError(t, err)
	assert.Equal(t, "12", resp.Fee)
	assert.Equal(t, "3988", resp.FromBalance)
	assert.Equal(t, "1000", resp.ToBalance)

	t.Run("異常系: 残高不足は詳細付きで返る", func(t *testing.T) {
		_, err := client.Transfer(ctx, &handler.TransferRequest{
			GuildID: apptest.GuildID, FromUserID: apptest.Alice, ToUserID: apptest.Bob,
			CurrencyType: "topy", Amount: "3950",
		})
		assert.Equal(t, codes.FailedPrecondition, status.Code(err))
		info := errorInfo(t, err)
		assert.Equal(t, "INSUFFICIENT_BALANCE", info.GetReason())
		assert.Equal(t, "3988", info.GetMetadata()["available"])
		assert.Equal(t, "3997", info.GetMetadata()["required"])
	})

	t.Run("異常系: 金額の形式が不正", func(t *testing.T) {
		_, err := client.Transfer(ctx, &handler.TransferRequest{
			GuildID: apptest.GuildID, FromUserID: apptest.Alice, ToUserID: apptest.Bob,
			CurrencyType: "topy", Amount: "-1",
		})
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})

	t.Run("正常系: 残高取得", func(t *testing.T) {
		resp, err := client.GetWallets(ctx, &handler.GetWalletsRequest{GuildID: apptest.GuildID, UserID: apptest.Bob})
		require.NoError(t, err)
		assert.Equal(t, "1000", resp.Balances["topy"])
	})
}

func TestServer_Earn(t *testing.T) {
	client, f := setupTestServer(t)
	ctx := withKey(testAPIKey)

	resp, err := client.Earn(ctx, &handler.EarnRequest{
		GuildID: apptest.GuildID, UserID: apptest.Alice, ChannelID: "400000000000000001", Activity: "voice",
	})
	require.NoError(t, err)
	assert.True(t, resp.Credited)
	assert.Equal(t, uint32(100), resp.Multiplier)
	assert.Equal(t, resp.Amount, resp.BalanceAfter)
	balance := f.Balance(t, apptest.GuildID, apptest.Alice, wallet.CurrencyTypeTopy)
	assert.GreaterOrEqual(t, balance, uint64(10))
	assert.LessOrEqual(t, balance, uint64(20))

	_, err = client.Earn(ctx, &handler.EarnRequest{GuildID: apptest.GuildID, UserID: apptest.Alice, Activity: "dance"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Equal(t, "INVALID_ACTIVITY_TYPE", errorInfo(t, err).GetReason())
}

func TestServer_ExchangeRole_NotFound(t *testing.T) {
	client, _ := setupTestServer(t)

	_, err := client.ExchangeRole(withKey(testAPIKey), &handler.ExchangeRoleRequest{
		GuildID: apptest.GuildID, UserID: apptest.Alice, TicketID: 99, RoleOptionID: 1,
	})
	assert.Equal(t, codes.NotFound, status.Code(err))
	assert.Equal(t, "TICKET_NOT_FOUND", errorInfo(t, err).GetReason())
}

func TestServer_Stop_Timeout(t *testing.T) {
	f := apptest.New(t)
	server := NewServerWithListener(&config.Config{}, f.Logger, f.Metrics, Services{}, bufconn.Listen(1024))
	go func() {
		_ = server.Start()
	}()
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()

	// 処理中のRPCがなければ期限前に終わることもある
	if err := server.Stop(ctx); err != nil {
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	}
}
