package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	authapp "economy-server/internal/application/auth"
	earnapp "economy-server/internal/application/earn"
	historyapp "economy-server/internal/application/history"
	settingsapp "economy-server/internal/application/settings"
	shopapp "economy-server/internal/application/shop"
	ticketapp "economy-server/internal/application/ticket"
	transferapp "economy-server/internal/application/transfer"
	treasuryapp "economy-server/internal/application/treasury"
	walletapp "economy-server/internal/application/wallet"
	"economy-server/internal/domain/earn"
	"economy-server/internal/domain/ledger"
	"economy-server/internal/domain/service"
	"economy-server/internal/domain/settings"
	"economy-server/internal/domain/shop"
	"economy-server/internal/domain/ticket"
	"economy-server/internal/domain/treasury"
	"economy-server/internal/domain/wallet"
	"economy-server/internal/infrastructure/cache/earncounter"
	"economy-server/internal/infrastructure/config"
	otelinfra "economy-server/internal/infrastructure/observability/otel"
	"economy-server/internal/infrastructure/persistence/memory"
	"economy-server/internal/infrastructure/persistence/mysql"
	"economy-server/internal/infrastructure/rolesync"
)

// repositories 永続化層の実装をまとめたもの
type repositories struct {
	wallets    wallet.WalletRepository
	ledger     ledger.LedgerRepository
	treasuries treasury.TreasuryRepository
	settings   settings.SettingsRepository
	items      shop.ItemRepository
	userItems  shop.UserItemRepository
	tickets    ticket.TicketRepository
	grants     ticket.RoleGrantRepository
	rules      earn.RuleRepository
	tx         ledger.TransactionManager
}

func memoryRepositories() repositories {
	store := memory.NewStore()
	return repositories{
		wallets:    store.Wallets(),
		ledger:     store.Ledger(),
		treasuries: store.Treasuries(),
		settings:   store.Settings(),
		items:      store.Items(),
		userItems:  store.UserItems(),
		tickets:    store.Tickets(),
		grants:     store.RoleGrants(),
		rules:      store.Rules(),
		tx:         store,
	}
}

func mysqlRepositories(db *mysql.DB) repositories {
	return repositories{
		wallets:    mysql.NewWalletRepository(db),
		ledger:     mysql.NewLedgerRepository(db),
		treasuries: mysql.NewTreasuryRepository(db),
		settings:   mysql.NewSettingsRepository(db),
		items:      mysql.NewShopItemRepository(db),
		userItems:  mysql.NewUserItemRepository(db),
		tickets:    mysql.NewTicketRepository(db),
		grants:     mysql.NewRoleGrantRepository(db),
		rules:      mysql.NewEarnRuleRepository(db),
		tx:         mysql.NewTransactionManager(db),
	}
}

// services アプリケーションサービス一式
type services struct {
	auth     *authapp.AuthApplicationService
	wallet   *walletapp.WalletApplicationService
	transfer *transferapp.TransferApplicationService
	shop     *shopapp.ShopApplicationService
	ticket   *ticketapp.TicketApplicationService
	treasury *treasuryapp.TreasuryApplicationService
	earn     *earnapp.EarnApplicationService
	history  *historyapp.HistoryApplicationService
	settings *settingsapp.SettingsApplicationService
}

// app 起動したプロセスが共有する依存関係
type app struct {
	cfg      *config.Config
	zap      *zap.Logger
	logger   *otelinfra.Logger
	metrics  *otelinfra.Metrics
	registry *prometheus.Registry
	repos    repositories
	services services
	closers  []func(context.Context) error
}

// newApp 設定を読み込み、観測基盤と永続化層を初期化する
// inMemoryがtrueの場合はMySQLに接続せずインメモリストアを使う
func newApp(ctx context.Context, inMemory bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	zapLogger, err := otelinfra.NewZapLogger(cfg.Environment, &cfg.OpenTelemetry, &cfg.Log)
	if err != nil {
		return nil, err
	}
	a := &app{
		cfg:      cfg,
		zap:      zapLogger,
		logger:   otelinfra.NewLogger(zapLogger),
		registry: prometheus.NewRegistry(),
	}

	tracerShutdown, err := otelinfra.InitTracer(&cfg.OpenTelemetry)
	if err != nil {
		return nil, a.fail(fmt.Errorf("failed to initialize tracer: %w", err))
	}
	a.closers = append(a.closers, tracerShutdown)

	meterShutdown, err := otelinfra.InitMeter(&cfg.OpenTelemetry, a.registry)
	if err != nil {
		return nil, a.fail(fmt.Errorf("failed to initialize meter: %w", err))
	}
	a.closers = append(a.closers, meterShutdown)

	a.metrics, err = otelinfra.NewMetrics(cfg.OpenTelemetry.ServiceName)
	if err != nil {
		return nil, a.fail(fmt.Errorf("failed to create metrics: %w", err))
	}

	if inMemory {
		a.logger.Warn(ctx, "Using in-memory storage, data is lost on exit", nil)
		a.repos = memoryRepositories()
	} else {
		db, err := mysql.NewDB(&cfg.Database)
		if err != nil {
			return nil, a.fail(fmt.Errorf("failed to connect to database: %w", err))
		}
		a.closers = append(a.closers, func(context.Context) error { return db.Close() })
		if cfg.Database.AutoMigrate {
			if err := mysql.MigrateUp(db); err != nil {
				return nil, a.fail(err)
			}
			a.logger.Info(ctx, "Database migrations applied", nil)
		}
		a.repos = mysqlRepositories(db)
	}

	counter, err := a.earnCounter(ctx)
	if err != nil {
		return nil, a.fail(err)
	}
	a.services = a.buildServices(counter)
	return a, nil
}

// earnCounter Redisが有効ならRedis、そうでなければプロセス内のカウンターを返す
func (a *app) earnCounter(ctx context.Context) (earn.Counter, error) {
	if !a.cfg.Redis.Enabled {
		return earncounter.NewMemoryCounter(), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Address(),
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return client.Close() })
	a.logger.Info(ctx, "Earn counters backed by redis", map[string]interface{}{
		"address": a.cfg.Redis.Address(),
	})
	return earncounter.NewRedisCounter(client), nil
}

func (a *app) buildServices(counter earn.Counter) services {
	r := a.repos
	ledgerService := service.NewLedgerService(r.wallets, r.ledger, r.treasuries)
	syncer := rolesync.NewExecutor(rolesync.NewLogMutator(a.logger), a.cfg.RoleSync, a.logger, a.metrics)

	return services{
		auth:     authapp.NewAuthApplicationService(&a.cfg.JWT, a.logger),
		wallet:   walletapp.NewWalletApplicationService(r.wallets, r.tx, ledgerService, a.logger, a.metrics),
		transfer: transferapp.NewTransferApplicationService(r.settings, r.tx, ledgerService, a.logger, a.metrics),
		shop:     shopapp.NewShopApplicationService(r.items, r.userItems, r.tx, ledgerService, a.logger, a.metrics),
		ticket: ticketapp.NewTicketApplicationService(
			r.tickets, r.grants, r.items, r.userItems, r.tx, syncer, a.cfg.Exchange.SessionTimeout, a.logger, a.metrics,
		),
		treasury: treasuryapp.NewTreasuryApplicationService(
			r.treasuries, r.wallets, r.settings, r.tx, ledgerService, a.logger, a.metrics,
		),
		earn:     earnapp.NewEarnApplicationService(r.rules, r.settings, counter, r.tx, ledgerService, a.logger, a.metrics),
		history:  historyapp.NewHistoryApplicationService(r.ledger, a.logger, a.metrics),
		settings: settingsapp.NewSettingsApplicationService(r.settings, a.logger),
	}
}

// fail 初期化途中で確保したリソースを解放してerrを返す
func (a *app) fail(err error) error {
	a.close()
	return err
}

// close 確保した順と逆順にリソースを解放する
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Error(ctx, "Failed to release resource", err, nil)
		}
	}
	a.closers = nil
	_ = a.zap.Sync()
}
