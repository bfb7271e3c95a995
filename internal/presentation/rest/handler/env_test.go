package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"economy-server/internal/application/apptest"
	authapp "economy-server/internal/application/auth"
	earnapp "economy-server/internal/application/earn"
	historyapp "economy-server/internal/application/history"
	settingsapp "economy-server/internal/application/settings"
	shopapp "economy-server/internal/application/shop"
	ticketapp "economy-server/internal/application/ticket"
	transferapp "economy-server/internal/application/transfer"
	treasuryapp "economy-server/internal/application/treasury"
	walletapp "economy-server/internal/application/wallet"
	"economy-server/internal/infrastructure/cache/earncounter"
	"economy-server/internal/infrastructure/config"
	otelinfra "economy-server/internal/infrastructure/observability/otel"
	"economy-server/internal/infrastructure/rolesync"
	restmiddleware "economy-server/internal/presentation/rest/middleware"
)

// testEnv インメモリストア上の実サービスで組み立てたハンドラー群
type testEnv struct {
	f        *apptest.Fixture
	auth     *AuthHandler
	wallet   *WalletHandler
	transfer *TransferHandler
	shop     *ShopHandler
	ticket   *TicketHandler
	treasury *TreasuryHandler
	earn     *EarnHandler
	history  *HistoryHandler
	settings *SettingsHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	f := apptest.New(t)
	store := f.Store

	syncer := rolesync.NewExecutor(rolesync.NewLogMutator(f.Logger), config.RoleSyncConfig{MaxTries: 1, MaxElapsedTime: time.Second}, f.Logger, f.Metrics)

	return &testEnv{
		f: f,
		auth: NewAuthHandler(authapp.NewAuthApplicationService(&config.JWTConfig{
			Secret: "test-secret", Issuer: "economy-server", Expiration: time.Hour,
		}, f.Logger)),
		wallet:   NewWalletHandler(walletapp.NewWalletApplicationService(store.Wallets(), store, f.Ledger, f.Logger, f.Metrics)),
		transfer: NewTransferHandler(transferapp.NewTransferApplicationService(store.Settings(), store, f.Ledger, f.Logger, f.Metrics)),
		shop:     NewShopHandler(shopapp.NewShopApplicationService(store.Items(), store.UserItems(), store, f.Ledger, f.Logger, f.Metrics)),
		ticket: NewTicketHandler(ticketapp.NewTicketApplicationService(
			store.Tickets(), store.RoleGrants(), store.Items(), store.UserItems(), store, syncer, time.Minute, f.Logger, f.Metrics,
		)),
		treasury: NewTreasuryHandler(treasuryapp.NewTreasuryApplicationService(
			store.Treasuries(), store.Wallets(), store.Settings(), store, f.Ledger, f.Logger, f.Metrics,
		)),
		earn: NewEarnHandler(earnapp.NewEarnApplicationService(
			store.Rules(), store.Settings(), earncounter.NewMemoryCounter(), store, f.Ledger, f.Logger, f.Metrics,
		)),
		history:  NewHistoryHandler(historyapp.NewHistoryApplicationService(store.Ledger(), f.Logger, f.Metrics)),
		settings: NewSettingsHandler(settingsapp.NewSettingsApplicationService(store.Settings(), f.Logger)),
	}
}

// call 指定ルートにハンドラーを登録してリクエストを処理する
// userIDが空でなければ認証済みの利用者として扱う
type call struct {
	method  string
	pattern string
	target  string
	body    interface{}
	userID  string
}

func serve(t *testing.T, h echo.HandlerFunc, c call) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.Use(restmiddleware.ErrorHandlerMiddleware(otelinfra.NewNopLogger()))

	var mws []echo.MiddlewareFunc
	if c.userID != "" {
		mws = append(mws, func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(ec echo.Context) error {
				ec.Set(restmiddleware.ContextKeyGuildID, apptest.GuildID)
				ec.Set(restmiddleware.ContextKeyUserID, c.userID)
				return next(ec)
			}
		})
	}
	e.Add(c.method, c.pattern, h, mws...)

	var body bytes.Buffer
	if c.body != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(c.body))
	}
	target := c.target
	if target == "" {
		target = c.pattern
	}
	req := httptest.NewRequest(c.method, target, &body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// errorBody エラーレスポンス
type errorBody struct {
	Message string                 `json:"message"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details"`
}

func assertStatus(t *testing.T, want int, rec *httptest.ResponseRecorder) {
	t.Helper()
	require.Equal(t, want, rec.Code, rec.Body.String())
}

func uint32Ptr(v uint32) *uint32 { return &v }

func boolPtr(v bool) *bool { return &v }

// createItem 管理APIで商品を作成する
func (env *testEnv) createItem(t *testing.T, req ItemRequest) ItemResponse {
	t.Helper()
	rec := serve(t, env.shop.CreateItem, call{
		method:  http.MethodPost,
		pattern: "/admin/guilds/:guild_id/shop/items",
		target:  "/admin/guilds/" + apptest.GuildID + "/shop/items",
		body:    req,
	})
	assertStatus(t, http.StatusCreated, rec)
	return decode[ItemResponse](t, rec)
}

func itemPath(itemID int64) string {
	return "/shop/items/" + strconv.FormatInt(itemID, 10) + "/purchase"
}
