package shop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"economy-server/internal/domain/ledger"
	"economy-server/internal/domain/service"
	"economy-server/internal/domain/shop"
	"economy-server/internal/domain/treasury"
	"economy-server/internal/domain/wallet"
	otelinfra "economy-server/internal/infrastructure/observability/otel"
)

// ShopApplicationService ショップアプリケーションサービス
type ShopApplicationService struct {
	itemRepo      shop.ItemRepository
	userItemRepo  shop.UserItemRepository
	txManager     ledger.TransactionManager
	ledgerService *service.LedgerService
	logger        *otelinfra.Logger
	metrics       *otelinfra.Metrics
	tracer        trace.Tracer
	now           func() time.Time
}

// NewShopApplicationService 新しいShopApplicationServiceを作成
func NewShopApplicationService(
	itemRepo shop.ItemRepository,
	userItemRepo shop.UserItemRepository,
	txManager ledger.TransactionManager,
	ledgerService *service.LedgerService,
	logger *otelinfra.Logger,
	metrics *otelinfra.Metrics,
) *ShopApplicationService {
	return &ShopApplicationService{
		itemRepo:      itemRepo,
		userItemRepo:  userItemRepo,
		txManager:     txManager,
		ledgerService: ledgerService,
		logger:        logger,
		metrics:       metrics,
		tracer:        otel.Tracer("shop-service"),
		now:           time.Now,
	}
}

// Purchase 商品を購入する
//
// 在庫の減少、代金の減算、国庫への入金、所持品の更新、台帳の記録を1つのトランザクションで行う。
// 行ロックは 商品 → 所持品 → ウォレット → 国庫 の順に取得する。
func (s *ShopApplicationService) Purchase(ctx context.Context, req *PurchaseRequest) (*PurchaseResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ShopApplicationService.Purchase")
	defer span.End()

	quantity := uint32(1)
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	span.SetAttributes(
		attribute.String("guild_id", req.GuildID),
		attribute.String("user_id", req.UserID),
		attribute.Int64("item_id", req.ItemID),
		attribute.Int("quantity", int(quantity)),
	)

	s.logger.Info(ctx, "Purchasing item", map[string]interface{}{
		"guild_id": req.GuildID,
		"user_id":  req.UserID,
		"item_id":  req.ItemID,
		"quantity": quantity,
	})

	if err := wallet.ValidateGuildID(req.GuildID); err != nil {
		return nil, reject(span, err)
	}
	if err := wallet.ValidateUserID(req.UserID); err != nil {
		return nil, reject(span, err)
	}

	var resp *PurchaseResponse
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		now := s.now()

		item, err := s.itemRepo.FindByIDForUpdate(txCtx, req.GuildID, req.ItemID)
		if err != nil {
			return err
		}

		held, err := s.userItemRepo.FindByKeyForUpdate(txCtx, req.GuildID, req.UserID, item.ID())
		if errors.Is(err, shop.ErrUserItemNotFound) {
			held, err = shop.NewUserItem(req.GuildID, req.UserID, item.ID())
		}
		if err != nil {
			return err
		}

		if err := item.CheckPurchase(quantity, held.PurchasedCount()); err != nil {
			return err
		}
		if req.CurrencyType != "" && req.CurrencyType != item.CurrencyType().String() {
			return shop.ErrCurrencyMismatch
		}
		totalCost, err := item.TotalCost(quantity)
		if err != nil {
			return err
		}

		key, err := wallet.NewKey(req.GuildID, req.UserID, item.CurrencyType())
		if err != nil {
			return err
		}
		if err := s.ledgerService.LockWallets(txCtx, key); err != nil {
			return err
		}
		description := fmt.Sprintf("%s x%d", item.Name(), quantity)
		entry, err := s.ledgerService.Debit(txCtx, service.Posting{
			Key:         key,
			Amount:      totalCost,
			Type:        ledger.TransactionTypeShopPurchase,
			Description: &description,
		})
		if err != nil {
			return err
		}

		if err := item.ReserveStock(quantity); err != nil {
			return err
		}
		if item.Stock() != nil {
			if err := s.itemRepo.Save(txCtx, item); err != nil {
				return fmt.Errorf("failed to save item: %w", err)
			}
		}

		held.AddPurchase(quantity, item.DurationDays(), now)
		if err := s.userItemRepo.Save(txCtx, held); err != nil {
			return fmt.Errorf("failed to save user item: %w", err)
		}

		userID := req.UserID
		if _, err := s.ledgerService.Collect(txCtx, service.TreasuryMovement{
			GuildID:      req.GuildID,
			CurrencyType: item.CurrencyType(),
			Amount:       totalCost,
			Type:         treasury.TransactionTypeShopFee,
			TargetUserID: &userID,
			Reason:       &description,
		}); err != nil {
			return err
		}

		resp = &PurchaseResponse{
			Item:         toItemDTO(item),
			UserItem:     toUserItemDTO(held, now),
			TotalCost:    totalCost,
			BalanceAfter: entry.BalanceAfter(),
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		if isPurchaseRejection(err) {
			s.logger.Warn(ctx, "Purchase rejected", map[string]interface{}{
				"guild_id": req.GuildID,
				"user_id":  req.UserID,
				"item_id":  req.ItemID,
				"reason":   err.Error(),
			})
			return nil, err
		}
		s.logger.Error(ctx, "Failed to purchase item", err, map[string]interface{}{
			"guild_id": req.GuildID,
			"user_id":  req.UserID,
			"item_id":  req.ItemID,
		})
		s.metrics.RecordError(ctx, "purchase_failed")
		return nil, fmt.Errorf("failed to purchase item: %w", err)
	}

	s.metrics.RecordPurchase(ctx, resp.Item.CurrencyType, quantity)
	s.metrics.RecordTransaction(ctx, ledger.TransactionTypeShopPurchase.String(), resp.Item.CurrencyType)
	s.metrics.RecordTreasuryCollected(ctx, treasury.TransactionTypeShopFee.String(), resp.Item.CurrencyType, resp.TotalCost)

	return resp, nil
}

// ListItems 商品一覧を取得
func (s *ShopApplicationService) ListItems(ctx context.Context, req *ListItemsRequest) (*ListItemsResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ShopApplicationService.ListItems")
	defer span.End()

	span.SetAttributes(
		attribute.String("guild_id", req.GuildID),
		attribute.Bool("include_disabled", req.IncludeDisabled),
	)

	if err := wallet.ValidateGuildID(req.GuildID); err != nil {
		return nil, reject(span, err)
	}

	items, err := s.itemRepo.FindByGuild(ctx, req.GuildID, req.IncludeDisabled)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		s.logger.Error(ctx, "Failed to list items", err, map[string]interface{}{
			"guild_id": req.GuildID,
		})
		return nil, fmt.Errorf("failed to list items: %w", err)
	}

	out := make([]ItemDTO, 0, len(items))
	for _, item := range items {
		out = append(out, toItemDTO(item))
	}
	return &ListItemsResponse{Items: out}, nil
}

// Inventory ユーザーの所持品を取得
func (s *ShopApplicationService) Inventory(ctx context.Context, req *InventoryRequest) (*InventoryResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ShopApplicationService.Inventory")
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

	items, err := s.userItemRepo.FindByUser(ctx, req.GuildID, req.UserID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		s.logger.Error(ctx, "Failed to find inventory", err, map[string]interface{}{
			"guild_id": req.GuildID,
			"user_id":  req.UserID,
		})
		return nil, fmt.Errorf("failed to find inventory: %w", err)
	}

	now := s.now()
	out := make([]UserItemDTO, 0, len(items))
	for _, ui := range items {
		out = append(out, toUserItemDTO(ui, now))
	}
	return &InventoryResponse{Items: out}, nil
}

// CreateItem 商品を作成
func (s *ShopApplicationService) CreateItem(ctx context.Context, req *CreateItemRequest) (*ItemDTO, error) {
	ctx, span := s.tracer.Start(ctx, "ShopApplicationService.CreateItem")
	defer span.End()

	span.SetAttributes(
		attribute.String("guild_id", req.GuildID),
		attribute.String("name", req.Item.Name),
	)

	spec, err := req.Item.toSpec()
	if err != nil {
		return nil, reject(span, err)
	}
	item, err := shop.NewItem(req.GuildID, spec)
	if err != nil {
		return nil, reject(span, err)
	}
	if err := s.itemRepo.Create(ctx, item); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		s.logger.Error(ctx, "Failed to create item", err, map[string]interface{}{
			"guild_id": req.GuildID,
		})
		return nil, fmt.Errorf("failed to create item: %w", err)
	}

	s.logger.Info(ctx, "Item created", map[string]interface{}{
		"guild_id": req.GuildID,
		"item_id":  item.ID(),
		"name":     item.Name(),
	})

	dto := toItemDTO(item)
	return &dto, nil
}

// UpdateItem 商品を更新。既存の所持品の有効期限は変更しない
func (s *ShopApplicationService) UpdateItem(ctx context.Context, req *UpdateItemRequest) (*ItemDTO, error) {
	ctx, span := s.tracer.Start(ctx, "ShopApplicationService.UpdateItem")
	defer span.End()

	span.SetAttributes(
		attribute.String("guild_id", req.GuildID),
		attribute.Int64("item_id", req.ItemID),
	)

	spec, err := req.Item.toSpec()
	if err != nil {
		return nil, reject(span, err)
	}

	var item *shop.Item
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		item, err = s.itemRepo.FindByIDForUpdate(txCtx, req.GuildID, req.ItemID)
		if err != nil {
			return err
		}
		if err := item.Update(spec); err != nil {
			return err
		}
		return s.itemRepo.Save(txCtx, item)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		if errors.Is(err, shop.ErrItemNotFound) || errors.Is(err, shop.ErrInvalidItem) {
			return nil, err
		}
		s.logger.Error(ctx, "Failed to update item", err, map[string]interface{}{
			"guild_id": req.GuildID,
			"item_id":  req.ItemID,
		})
		return nil, fmt.Errorf("failed to update item: %w", err)
	}

	dto := toItemDTO(item)
	return &dto, nil
}

func (in ItemInput) toSpec() (shop.ItemSpec, error) {
	ct, err := wallet.NewCurrencyType(in.CurrencyType)
	if err != nil {
		return shop.ItemSpec{}, fmt.Errorf("%w: %v", shop.ErrInvalidItem, err)
	}
	return shop.ItemSpec{
		Name:         in.Name,
		Description:  in.Description,
		Price:        in.Price,
		CurrencyType: ct,
		DurationDays: in.DurationDays,
		Stock:        in.Stock,
		MaxPerUser:   in.MaxPerUser,
		Enabled:      in.Enabled,
	}, nil
}

func toItemDTO(item *shop.Item) ItemDTO {
	spec := item.Spec()
	return ItemDTO{
		ID:           item.ID(),
		GuildID:      item.GuildID(),
		Name:         spec.Name,
		Description:  spec.Description,
		Price:        spec.Price,
		CurrencyType: spec.CurrencyType.String(),
		DurationDays: spec.DurationDays,
		Stock:        spec.Stock,
		MaxPerUser:   spec.MaxPerUser,
		Enabled:      spec.Enabled,
		CreatedAt:    item.CreatedAt(),
		UpdatedAt:    item.UpdatedAt(),
	}
}

func toUserItemDTO(ui *shop.UserItem, now time.Time) UserItemDTO {
	return UserItemDTO{
		ShopItemID:     ui.ShopItemID(),
		Quantity:       ui.Quantity(),
		PurchasedCount: ui.PurchasedCount(),
		ExpiresAt:      ui.ExpiresAt(),
		Expired:        ui.IsExpired(now),
	}
}

// isPurchaseRejection 利用者に返す購入エラーかどうか
func isPurchaseRejection(err error) bool {
	for _, target := range []error{
		shop.ErrItemNotFound,
		shop.ErrItemDisabled,
		shop.ErrInvalidQuantity,
		shop.ErrOutOfStock,
		shop.ErrPurchaseLimitExceeded,
		shop.ErrCurrencyMismatch,
		wallet.ErrInsufficientBalance,
		wallet.ErrAmountTooLarge,
		wallet.ErrBalanceOutOfRange,
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
