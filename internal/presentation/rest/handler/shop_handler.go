package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	shopapp "economy-server/internal/application/shop"
)

// ShopHandler ショップ関連ハンドラー
type ShopHandler struct {
	shopService *shopapp.ShopApplicationService
}

// NewShopHandler 新しいShopHandlerを作成
func NewShopHandler(shopService *shopapp.ShopApplicationService) *ShopHandler {
	return &ShopHandler{
		shopService: shopService,
	}
}

// ListItems 販売中の商品一覧（ユーザーAPI用）
func (h *ShopHandler) ListItems(c echo.Context) error {
	guildID, _, err := principal(c)
	if err != nil {
		return err
	}
	return h.listItems(c, guildID, false)
}

// ListItemsAdmin 停止中を含む商品一覧（管理API用）
func (h *ShopHandler) ListItemsAdmin(c echo.Context) error {
	guildID, err := pathParam(c, "guild_id")
	if err != nil {
		return err
	}
	return h.listItems(c, guildID, true)
}

func (h *ShopHandler) listItems(c echo.Context, guildID string, includeDisabled bool) error {
	resp, err := h.shopService.ListItems(c.Request().Context(), &shopapp.ListItemsRequest{
		GuildID:         guildID,
		IncludeDisabled: includeDisabled,
	})
	if err != nil {
		return err
	}

	items := make([]ItemResponse, len(resp.Items))
	for i, item := range resp.Items {
		items[i] = toItemResponse(item)
	}
	return c.JSON(http.StatusOK, ItemsResponse{Items: items})
}

// Purchase 購入ハンドラー（ユーザーAPI用）
func (h *ShopHandler) Purchase(c echo.Context) error {
	guildID, userID, err := principal(c)
	if err != nil {
		return err
	}
	itemID, err := pathID(c, "item_id")
	if err != nil {
		return err
	}

	var reqBody PurchaseRequest
	if err := c.Bind(&reqBody); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	resp, err := h.shopService.Purchase(c.Request().Context(), &shopapp.PurchaseRequest{
		GuildID:      guildID,
		UserID:       userID,
		ItemID:       itemID,
		Quantity:     reqBody.Quantity,
		CurrencyType: reqBody.CurrencyType,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, PurchaseResponse{
		Item:         toItemResponse(resp.Item),
		UserItem:     toUserItemResponse(resp.UserItem),
		TotalCost:    formatAmount(resp.TotalCost),
		BalanceAfter: formatAmount(resp.BalanceAfter),
	})
}

// Inventory 所持品ハンドラー（ユーザーAPI用）
func (h *ShopHandler) Inventory(c echo.Context) error {
	guildID, userID, err := principal(c)
	if err != nil {
		return err
	}

	resp, err := h.shopService.Inventory(c.Request().Context(), &shopapp.InventoryRequest{
		GuildID: guildID,
		UserID:  userID,
	})
	if err != nil {
		return err
	}

	items := make([]UserItemResponse, len(resp.Items))
	for i, item := range resp.Items {
		items[i] = toUserItemResponse(item)
	}
	return c.JSON(http.StatusOK, InventoryResponse{Items: items})
}

// CreateItem 商品作成ハンドラー（管理API用）
func (h *ShopHandler) CreateItem(c echo.Context) error {
	guildID, err := pathParam(c, "guild_id")
	if err != nil {
		return err
	}
	input, err := bindItemInput(c)
	if err != nil {
		return err
	}

	item, err := h.shopService.CreateItem(c.Request().Context(), &shopapp.CreateItemRequest{
		GuildID: guildID,
		Item:    input,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toItemResponse(*item))
}

// UpdateItem 商品更新ハンドラー（管理API用）
func (h *ShopHandler) UpdateItem(c echo.Context) error {
	guildID, err := pathParam(c, "guild_id")
	if err != nil {
		return err
	}
	itemID, err := pathID(c, "item_id")
	if err != nil {
		return err
	}
	input, err := bindItemInput(c)
	if err != nil {
		return err
	}

	item, err := h.shopService.UpdateItem(c.Request().Context(), &shopapp.UpdateItemRequest{
		GuildID: guildID,
		ItemID:  itemID,
		Item:    input,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toItemResponse(*item))
}

func bindItemInput(c echo.Context) (shopapp.ItemInput, error) {
	var reqBody ItemRequest
	if err := c.Bind(&reqBody); err != nil {
		return shopapp.ItemInput{}, echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	price, err := parseAmount(reqBody.Price)
	if err != nil {
		return shopapp.ItemInput{}, err
	}
	enabled := true
	if reqBody.Enabled != nil {
		enabled = *reqBody.Enabled
	}
	return shopapp.ItemInput{
		Name:         reqBody.Name,
		Description:  reqBody.Description,
		Price:        price,
		CurrencyType: reqBody.CurrencyType,
		DurationDays: reqBody.DurationDays,
		Stock:        reqBody.Stock,
		MaxPerUser:   reqBody.MaxPerUser,
		Enabled:      enabled,
	}, nil
}

func toItemResponse(item shopapp.ItemDTO) ItemResponse {
	return ItemResponse{
		ID:           item.ID,
		Name:         item.Name,
		Description:  item.Description,
		Price:        formatAmount(item.Price),
		CurrencyType: item.CurrencyType,
		DurationDays: item.DurationDays,
		Stock:        item.Stock,
		MaxPerUser:   item.MaxPerUser,
		Enabled:      item.Enabled,
		CreatedAt:    formatTime(item.CreatedAt),
		UpdatedAt:    formatTime(item.UpdatedAt),
	}
}

func toUserItemResponse(item shopapp.UserItemDTO) UserItemResponse {
	return UserItemResponse{
		ShopItemID:     item.ShopItemID,
		Quantity:       item.Quantity,
		PurchasedCount: item.PurchasedCount,
		ExpiresAt:      formatTimePtr(item.ExpiresAt),
		Expired:        item.Expired,
	}
}
