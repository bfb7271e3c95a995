package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authapp "economy-server/internal/application/auth"
	earnapp "economy-server/internal/application/earn"
	historyapp "economy-server/internal/application/history"
	settingsapp "economy-server/internal/application/settings"
	shopapp "economy-server/internal/application/shop"
	ticketapp "economy-server/internal/application/ticket"
	transferapp "economy-server/internal/application/transfer"
	treasuryapp "economy-server/internal/application/treasury"
	walletapp "economy-server/internal/application/wallet"
	"economy-server/internal/infrastructure/config"
	otelinfra "economy-server/internal/infrastructure/observability/otel"
	"economy-server/internal/presentation/rest/handler"
	restmiddleware "economy-server/internal/presentation/rest/middleware"
)

// Services ルーターが公開するアプリケーションサービス
type Services struct {
	Auth     *authapp.AuthApplicationService
	Wallet   *walletapp.WalletApplicationService
	Transfer *transferapp.TransferApplicationService
	Shop     *shopapp.ShopApplicationService
	Ticket   *ticketapp.TicketApplicationService
	Treasury *treasuryapp.TreasuryApplicationService
	Earn     *earnapp.EarnApplicationService
	History  *historyapp.HistoryApplicationService
	Settings *settingsapp.SettingsApplicationService
}

type handlers struct {
	auth     *handler.AuthHandler
	wallet   *handler.WalletHandler
	transfer *handler.TransferHandler
	shop     *handler.ShopHandler
	ticket   *handler.TicketHandler
	treasury *handler.TreasuryHandler
	earn     *handler.EarnHandler
	history  *handler.HistoryHandler
	settings *handler.SettingsHandler
}

// Router REST APIルーター
type Router struct {
	echo   *echo.Echo
	server *http.Server
}

// NewRouter 新しいRouterを作成
// registryがnilの場合は/metricsを公開しない
func NewRouter(
	cfg *config.Config,
	logger *otelinfra.Logger,
	metrics *otelinfra.Metrics,
	registry *prometheus.Registry,
	services Services,
) (*Router, error) {
	if services.Auth == nil {
		return nil, fmt.Errorf("auth service is required")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// エラーはErrorHandlerMiddlewareでレスポンスに変換済み
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code := http.StatusInternalServerError
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
		}
		_ = c.JSON(code, restmiddleware.ErrorResponse{Error: http.StatusText(code), Message: http.StatusText(code)})
	}

	setupMiddleware(e, cfg, logger, metrics)

	h := handlers{
		auth:     handler.NewAuthHandler(services.Auth),
		wallet:   handler.NewWalletHandler(services.Wallet),
		transfer: handler.NewTransferHandler(services.Transfer),
		shop:     handler.NewShopHandler(services.Shop),
		ticket:   handler.NewTicketHandler(services.Ticket),
		treasury: handler.NewTreasuryHandler(services.Treasury),
		earn:     handler.NewEarnHandler(services.Earn),
		history:  handler.NewHistoryHandler(services.History),
		settings: handler.NewSettingsHandler(services.Settings),
	}
	setupRoutes(e, cfg, logger, services.Auth, h)

	if registry != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	return &Router{
		echo: e,
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:      e,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		},
	}, nil
}

// setupMiddleware ミドルウェアを設定
func setupMiddleware(e *echo.Echo, cfg *config.Config, logger *otelinfra.Logger, metrics *otelinfra.Metrics) {
	e.Use(middleware.Recover())

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "X-API-Key"},
	}))

	e.Use(middleware.RequestID())
	e.Use(restmiddleware.SecurityHeadersMiddleware())
	e.Use(restmiddleware.TracingMiddleware())
	if metrics != nil {
		e.Use(restmiddleware.MetricsMiddleware(metrics))
	}
	e.Use(restmiddleware.LoggingMiddleware(logger))

	// 最内側でエラーをJSONに変換し、外側のミドルウェアはステータスコードで判定する
	e.Use(restmiddleware.ErrorHandlerMiddleware(logger))
}

// setupRoutes ルーティングを設定
func setupRoutes(e *echo.Echo, cfg *config.Config, logger *otelinfra.Logger, auth *authapp.AuthApplicationService, h handlers) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// ユーザーAPI（JWT認証、ギルドとユーザーはトークンから取得）
	api := e.Group("/api/v1", restmiddleware.AuthMiddleware(auth, logger))

	api.GET("/wallets", h.wallet.GetWallets)
	api.POST("/transfers", h.transfer.Transfer)
	api.GET("/history", h.history.GetHistory)
	api.GET("/settings", h.settings.GetSettings)

	api.GET("/shop/items", h.shop.ListItems)
	api.POST("/shop/items/:item_id/purchase", h.shop.Purchase)
	api.GET("/inventory", h.shop.Inventory)

	api.GET("/tickets", h.ticket.ListTickets)
	api.POST("/tickets/:ticket_id/exchange", h.ticket.ExchangeRole)
	api.POST("/exchange/sessions", h.ticket.StartSession)
	api.POST("/exchange/sessions/:session_id/ticket", h.ticket.SelectTicket)
	api.POST("/exchange/sessions/:session_id/role", h.ticket.SelectRole)
	api.POST("/exchange/sessions/:session_id/back", h.ticket.Back)
	api.POST("/exchange/sessions/:session_id/confirm", h.ticket.Confirm)
	api.DELETE("/exchange/sessions/:session_id", h.ticket.Cancel)

	// 管理API（APIキー認証、ボットと管理ツールから呼ばれる）
	admin := e.Group("/admin", restmiddleware.APIKeyMiddleware(&cfg.AdminAPI, logger))

	admin.POST("/auth/token", h.auth.GenerateToken)
	admin.POST("/role-grants/expire", h.ticket.ExpireRoleGrants)

	guild := admin.Group("/guilds/:guild_id")

	guild.POST("/earn", h.earn.Earn)
	guild.GET("/multiplier", h.earn.ResolveMultiplier)
	guild.GET("/rules", h.earn.ListRules)
	guild.POST("/rules", h.earn.CreateRule)
	guild.DELETE("/rules/:id", h.earn.DeleteRule)
	guild.POST("/exclusions", h.earn.CreateExclusion)
	guild.DELETE("/exclusions/:id", h.earn.DeleteExclusion)

	guild.GET("/users/:user_id/wallets", h.wallet.GetWalletsAdmin)
	guild.POST("/users/:user_id/grant", h.wallet.Grant)
	guild.POST("/users/:user_id/take", h.wallet.Take)
	guild.GET("/users/:user_id/history", h.history.GetHistoryAdmin)

	guild.GET("/treasury", h.treasury.GetTreasury)
	guild.POST("/treasury/distribute", h.treasury.Distribute)
	guild.GET("/treasury/transactions", h.treasury.ListTransactions)
	guild.POST("/tax/collect", h.treasury.CollectTax)

	guild.GET("/settings", h.settings.GetSettingsAdmin)
	guild.PUT("/settings", h.settings.UpdateSettings)

	guild.GET("/shop/items", h.shop.ListItemsAdmin)
	guild.POST("/shop/items", h.shop.CreateItem)
	guild.PUT("/shop/items/:item_id", h.shop.UpdateItem)
	guild.POST("/tickets", h.ticket.CreateTicket)
}

// Handler HTTPハンドラーを返す
func (r *Router) Handler() http.Handler {
	return r.echo
}

// Start サーバーを起動。Shutdownで停止した場合はnilを返す
func (r *Router) Start() error {
	if err := r.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 処理中のリクエストを待ってサーバーを停止
func (r *Router) Shutdown(ctx context.Context) error {
	return r.server.Shutdown(ctx)
}
