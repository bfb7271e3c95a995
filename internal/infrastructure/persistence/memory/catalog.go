package memory

import (
	"context"
	"time"

	"economy-server/internal/domain/earn"
	"economy-server/internal/domain/settings"
	"economy-server/internal/domain/shop"
	"economy-server/internal/domain/ticket"
)

// SettingsRepository メモリ実装のSettingsRepository
type SettingsRepository struct{ s *Store }

// FindByGuild 設定を取得
func (r *SettingsRepository) FindByGuild(ctx context.Context, guildID string) (out *settings.CurrencySettings, err error) {
	err = r.s.do(ctx, func(st *state) error {
		v, ok := st.settings[guildID]
		if !ok {
			return settings.ErrSettingsNotFound
		}
		out = &v
		return nil
	})
	return out, err
}

// Save 設定を保存
func (r *SettingsRepository) Save(ctx context.Context, guildID string, s settings.CurrencySettings) error {
	return r.s.do(ctx, func(st *state) error {
		st.settings[guildID] = s
		return nil
	})
}

// ListGuildIDs 設定が保存されている全ギルドIDを取得
func (r *SettingsRepository) ListGuildIDs(ctx context.Context) (ids []string, err error) {
	err = r.s.do(ctx, func(st *state) error {
		ids = sortedKeys(st.settings, func(a, b string) bool { return a < b })
		return nil
	})
	return ids, err
}

// ItemRepository メモリ実装のItemRepository
type ItemRepository struct{ s *Store }

func copySpec(spec shop.ItemSpec) shop.ItemSpec {
	if spec.Description != nil {
		v := *spec.Description
		spec.Description = &v
	}
	if spec.Stock != nil {
		v := *spec.Stock
		spec.Stock = &v
	}
	if spec.MaxPerUser != nil {
		v := *spec.MaxPerUser
		spec.MaxPerUser = &v
	}
	return spec
}

func (r *ItemRepository) find(st *state, guildID string, id int64) (*shop.Item, error) {
	row, ok := st.items[id]
	if !ok || row.guildID != guildID {
		return nil, shop.ErrItemNotFound
	}
	return shop.RestoreItem(id, row.guildID, copySpec(row.spec), row.createdAt, row.updatedAt), nil
}

// FindByID 商品を取得
func (r *ItemRepository) FindByID(ctx context.Context, guildID string, id int64) (item *shop.Item, err error) {
	err = r.s.do(ctx, func(st *state) error {
		item, err = r.find(st, guildID, id)
		return err
	})
	return item, err
}

// FindByIDForUpdate 行ロック付きで商品を取得
func (r *ItemRepository) FindByIDForUpdate(ctx context.Context, guildID string, id int64) (item *shop.Item, err error) {
	err = r.s.locked(ctx, func(st *state) error {
		item, err = r.find(st, guildID, id)
		return err
	})
	return item, err
}

// FindByGuild ギルドの商品一覧を取得
func (r *ItemRepository) FindByGuild(ctx context.Context, guildID string, includeDisabled bool) ([]*shop.Item, error) {
	var items []*shop.Item
	err := r.s.do(ctx, func(st *state) error {
		for _, id := range sortedKeys(st.items, func(a, b int64) bool { return a < b }) {
			row := st.items[id]
			if row.guildID != guildID || (!includeDisabled && !row.spec.Enabled) {
				continue
			}
			items = append(items, shop.RestoreItem(id, row.guildID, copySpec(row.spec), row.createdAt, row.updatedAt))
		}
		return nil
	})
	return items, err
}

// Create 商品を作成しIDを設定
func (r *ItemRepository) Create(ctx context.Context, item *shop.Item) error {
	return r.s.do(ctx, func(st *state) error {
		id := st.allocateID()
		st.items[id] = itemRow{guildID: item.GuildID(), spec: copySpec(item.Spec()), createdAt: item.CreatedAt(), updatedAt: item.UpdatedAt()}
		item.SetID(id)
		return nil
	})
}

// Save 商品定義と在庫を保存
func (r *ItemRepository) Save(ctx context.Context, item *shop.Item) error {
	return r.s.do(ctx, func(st *state) error {
		row, ok := st.items[item.ID()]
		if !ok || row.guildID != item.GuildID() {
			return shop.ErrItemNotFound
		}
		row.spec = copySpec(item.Spec())
		row.updatedAt = item.UpdatedAt()
		st.items[item.ID()] = row
		return nil
	})
}

// UserItemRepository メモリ実装のUserItemRepository
type UserItemRepository struct{ s *Store }

func (r *UserItemRepository) find(st *state, key userItemKey) (*shop.UserItem, error) {
	row, ok := st.userItems[key]
	if !ok {
		return nil, shop.ErrUserItemNotFound
	}
	return shop.RestoreUserItem(key.guildID, key.userID, key.shopItemID,
		row.quantity, row.purchasedCount, copyTime(row.expiresAt), row.createdAt, row.updatedAt), nil
}

// FindByKey 所持アイテムを取得
func (r *UserItemRepository) FindByKey(ctx context.Context, guildID, userID string, shopItemID int64) (ui *shop.UserItem, err error) {
	err = r.s.do(ctx, func(st *state) error {
		ui, err = r.find(st, userItemKey{guildID, userID, shopItemID})
		return err
	})
	return ui, err
}

// FindByKeyForUpdate 行ロック付きで取得
func (r *UserItemRepository) FindByKeyForUpdate(ctx context.Context, guildID, userID string, shopItemID int64) (ui *shop.UserItem, err error) {
	err = r.s.locked(ctx, func(st *state) error {
		ui, err = r.find(st, userItemKey{guildID, userID, shopItemID})
		return err
	})
	return ui, err
}

// FindByUser ユーザーの所持アイテム一覧を取得
func (r *UserItemRepository) FindByUser(ctx context.Context, guildID, userID string) ([]*shop.UserItem, error) {
	var items []*shop.UserItem
	err := r.s.do(ctx, func(st *state) error {
		keys := sortedKeys(st.userItems, func(a, b userItemKey) bool { return a.shopItemID < b.shopItemID })
		for _, k := range keys {
			if k.guildID != guildID || k.userID != userID {
				continue
			}
			ui, _ := r.find(st, k)
			items = append(items, ui)
		}
		return nil
	})
	return items, err
}

// Save 所持アイテムをupsert
func (r *UserItemRepository) Save(ctx context.Context, item *shop.UserItem) error {
	return r.s.do(ctx, func(st *state) error {
		st.userItems[userItemKey{item.GuildID(), item.UserID(), item.ShopItemID()}] = userItemRow{
			quantity:       item.Quantity(),
			purchasedCount: item.PurchasedCount(),
			expiresAt:      copyTime(item.ExpiresAt()),
			createdAt:      item.CreatedAt(),
			updatedAt:      item.UpdatedAt(),
		}
		return nil
	})
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// TicketRepository メモリ実装のTicketRepository
type TicketRepository struct{ s *Store }

func (r *TicketRepository) restore(id int64, row ticketRow) *ticket.Ticket {
	return ticket.RestoreTicket(id, row.guildID, row.shopItemID, row.name, row.config,
		append([]ticket.RoleOption(nil), row.options...), row.createdAt)
}

// FindByID チケットを取得
func (r *TicketRepository) FindByID(ctx context.Context, guildID string, id int64) (t *ticket.Ticket, err error) {
	err = r.s.do(ctx, func(st *state) error {
		row, ok := st.tickets[id]
		if !ok || row.guildID != guildID {
			return ticket.ErrTicketNotFound
		}
		t = r.restore(id, row)
		return nil
	})
	return t, err
}

// FindByGuild ギルドのチケット一覧を取得
func (r *TicketRepository) FindByGuild(ctx context.Context, guildID string) ([]*ticket.Ticket, error) {
	var tickets []*ticket.Ticket
	err := r.s.do(ctx, func(st *state) error {
		for _, id := range sortedKeys(st.tickets, func(a, b int64) bool { return a < b }) {
			if row := st.tickets[id]; row.guildID == guildID {
				tickets = append(tickets, r.restore(id, row))
			}
		}
		return nil
	})
	return tickets, err
}

// Create チケットとロール選択肢を作成しIDを設定
func (r *TicketRepository) Create(ctx context.Context, t *ticket.Ticket) error {
	return r.s.do(ctx, func(st *state) error {
		id := st.allocateID()
		options := append([]ticket.RoleOption(nil), t.Options()...)
		for i := range options {
			options[i].ID = st.allocateID()
		}
		st.tickets[id] = ticketRow{
			guildID:    t.GuildID(),
			shopItemID: t.ShopItemID(),
			name:       t.Name(),
			config:     t.Config(),
			options:    options,
			createdAt:  t.CreatedAt(),
		}
		t.SetID(id)
		return nil
	})
}

// RoleGrantRepository メモリ実装のRoleGrantRepository
type RoleGrantRepository struct{ s *Store }

func grantOf(k grantKey, row grantRow) *ticket.RoleGrant {
	return ticket.NewRoleGrant(k.guildID, k.userID, k.roleID, k.ticketID, row.grantedAt, copyTime(row.expiresAt))
}

func grantLess(a, b grantKey) bool {
	if a.guildID != b.guildID {
		return a.guildID < b.guildID
	}
	if a.userID != b.userID {
		return a.userID < b.userID
	}
	if a.roleID != b.roleID {
		return a.roleID < b.roleID
	}
	return a.ticketID < b.ticketID
}

// FindByUser ユーザーの付与記録を取得
func (r *RoleGrantRepository) FindByUser(ctx context.Context, guildID, userID string) ([]*ticket.RoleGrant, error) {
	var grants []*ticket.RoleGrant
	err := r.s.do(ctx, func(st *state) error {
		for _, k := range sortedKeys(st.grants, grantLess) {
			if k.guildID == guildID && k.userID == userID {
				grants = append(grants, grantOf(k, st.grants[k]))
			}
		}
		return nil
	})
	return grants, err
}

// Save 付与記録をupsert
func (r *RoleGrantRepository) Save(ctx context.Context, g *ticket.RoleGrant) error {
	return r.s.do(ctx, func(st *state) error {
		st.grants[grantKey{g.GuildID(), g.UserID(), g.RoleID(), g.TicketID()}] = grantRow{
			grantedAt: g.GrantedAt(),
			expiresAt: copyTime(g.ExpiresAt()),
		}
		return nil
	})
}

// Delete 指定チケットの付与記録を削除
func (r *RoleGrantRepository) Delete(ctx context.Context, guildID, userID, roleID string, ticketID int64) error {
	return r.s.do(ctx, func(st *state) error {
		delete(st.grants, grantKey{guildID, userID, roleID, ticketID})
		return nil
	})
}

// FindExpired 期限切れの付与記録を取得
func (r *RoleGrantRepository) FindExpired(ctx context.Context, now time.Time, limit int) ([]*ticket.RoleGrant, error) {
	var grants []*ticket.RoleGrant
	err := r.s.locked(ctx, func(st *state) error {
		for _, k := range sortedKeys(st.grants, grantLess) {
			g := grantOf(k, st.grants[k])
			if g.IsExpired(now) {
				grants = append(grants, g)
				if len(grants) == limit {
					break
				}
			}
		}
		return nil
	})
	return grants, err
}

// RuleRepository メモリ実装のRuleRepository
type RuleRepository struct{ s *Store }

// FindRules ギルドの倍率ルールを取得
func (r *RuleRepository) FindRules(ctx context.Context, guildID string) ([]earn.MultiplierRule, error) {
	var rules []earn.MultiplierRule
	err := r.s.do(ctx, func(st *state) error {
		for _, id := range sortedKeys(st.rules, func(a, b int64) bool { return a < b }) {
			if rule := st.rules[id]; rule.GuildID == guildID {
				rules = append(rules, rule)
			}
		}
		return nil
	})
	return rules, err
}

// FindExclusions ギルドの除外ルールを取得
func (r *RuleRepository) FindExclusions(ctx context.Context, guildID string) ([]earn.Exclusion, error) {
	var exclusions []earn.Exclusion
	err := r.s.do(ctx, func(st *state) error {
		for _, id := range sortedKeys(st.exclusions, func(a, b int64) bool { return a < b }) {
			if ex := st.exclusions[id]; ex.GuildID == guildID {
				exclusions = append(exclusions, ex)
			}
		}
		return nil
	})
	return exclusions, err
}

// CreateRule 倍率ルールを作成しIDを返す
func (r *RuleRepository) CreateRule(ctx context.Context, rule earn.MultiplierRule) (id int64, err error) {
	err = r.s.do(ctx, func(st *state) error {
		id = st.allocateID()
		rule.ID = id
		st.rules[id] = rule
		return nil
	})
	return id, err
}

// DeleteRule 倍率ルールを削除
func (r *RuleRepository) DeleteRule(ctx context.Context, guildID string, id int64) error {
	return r.s.do(ctx, func(st *state) error {
		if rule, ok := st.rules[id]; !ok || rule.GuildID != guildID {
			return earn.ErrRuleNotFound
		}
		delete(st.rules, id)
		return nil
	})
}

// CreateExclusion 除外ルールを作成しIDを返す
func (r *RuleRepository) CreateExclusion(ctx context.Context, exclusion earn.Exclusion) (id int64, err error) {
	err = r.s.do(ctx, func(st *state) error {
		for _, ex := range st.exclusions {
			if ex.GuildID == exclusion.GuildID && ex.Scope == exclusion.Scope && ex.TargetID == exclusion.TargetID {
				return earn.ErrInvalidTarget
			}
		}
		id = st.allocateID()
		exclusion.ID = id
		st.exclusions[id] = exclusion
		return nil
	})
	return id, err
}

// DeleteExclusion 除外ルールを削除
func (r *RuleRepository) DeleteExclusion(ctx context.Context, guildID string, id int64) error {
	return r.s.do(ctx, func(st *state) error {
		if ex, ok := st.exclusions[id]; !ok || ex.GuildID != guildID {
			return earn.ErrRuleNotFound
		}
		delete(st.exclusions, id)
		return nil
	})
}
