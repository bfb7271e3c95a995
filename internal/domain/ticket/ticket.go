package ticket

import (
	"fmt"
	"time"

	"economy-server/internal/domain/shop"
	"economy-server/internal/domain/wallet"
)

// RoleOption チケットで選択できるロール
type RoleOption struct {
	ID          int64
	RoleID      string
	Name        string
	Description *string
}

// Config ロール交換の挙動
type Config struct {
	ConsumeQuantity       uint32  // 0 = 期間チケット（消費しない）
	RemovePreviousRole    bool    // 同じチケットで付与したロールを外す
	EffectDurationSeconds *uint32 // nil = 永続
	FixedRoleID           *string // 選択に関係なく常に付与するロール
}

// Ticket ショップ商品を元にしたロール交換チケット
type Ticket struct {
	id         int64
	guildID    string
	shopItemID int64
	name       string
	config     Config
	options    []RoleOption
	createdAt  time.Time
}

// NewTicket 新しいチケットを作成（IDは永続化時に採番）
func NewTicket(guildID string, shopItemID int64, name string, config Config, options []RoleOption) (*Ticket, error) {
	if err := wallet.ValidateGuildID(guildID); err != nil {
		return nil, err
	}
	if shopItemID <= 0 {
		return nil, fmt.Errorf("%w: shop item id is required", ErrInvalidTicket)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidTicket)
	}
	if len(options) == 0 {
		return nil, fmt.Errorf("%w: at least one role option is required", ErrInvalidTicket)
	}
	seen := make(map[string]struct{}, len(options))
	for _, o := range options {
		if o.RoleID == "" || o.Name == "" {
			return nil, fmt.Errorf("%w: role option needs role id and name", ErrInvalidTicket)
		}
		if _, dup := seen[o.RoleID]; dup {
			return nil, fmt.Errorf("%w: duplicate role %s", ErrInvalidTicket, o.RoleID)
		}
		seen[o.RoleID] = struct{}{}
	}
	return &Ticket{
		guildID:    guildID,
		shopItemID: shopItemID,
		name:       name,
		config:     config,
		options:    append([]RoleOption(nil), options...),
		createdAt:  time.Now(),
	}, nil
}

// RestoreTicket 永続化された値からチケットを復元
func RestoreTicket(id int64, guildID string, shopItemID int64, name string, config Config, options []RoleOption, createdAt time.Time) *Ticket {
	return &Ticket{
		id:         id,
		guildID:    guildID,
		shopItemID: shopItemID,
		name:       name,
		config:     config,
		options:    options,
		createdAt:  createdAt,
	}
}

// ID チケットIDを返す
func (t *Ticket) ID() int64 { return t.id }

// SetID 採番されたIDを設定
func (t *Ticket) SetID(id int64) { t.id = id }

// GuildID ギルドIDを返す
func (t *Ticket) GuildID() string { return t.guildID }

// ShopItemID 元となる商品IDを返す
func (t *Ticket) ShopItemID() int64 { return t.shopItemID }

// Name チケット名を返す
func (t *Ticket) Name() string { return t.name }

// Config 交換設定を返す
func (t *Ticket) Config() Config { return t.config }

// Options ロール選択肢を返す
func (t *Ticket) Options() []RoleOption { return t.options }

// CreatedAt 作成日時を返す
func (t *Ticket) CreatedAt() time.Time { return t.createdAt }

// IsPeriod 期間チケット（消費しない）かどうかを返す
func (t *Ticket) IsPeriod() bool {
	return t.config.ConsumeQuantity == 0
}

// Option IDでロール選択肢を取得
func (t *Ticket) Option(optionID int64) (RoleOption, error) {
	for _, o := range t.options {
		if o.ID == optionID {
			return o, nil
		}
	}
	return RoleOption{}, ErrRoleOptionNotFound
}

// RoleExpiresAt 付与ロールの有効期限を返す（nil = 永続）
func (t *Ticket) RoleExpiresAt(now time.Time) *time.Time {
	if t.config.EffectDurationSeconds == nil {
		return nil
	}
	expiresAt := now.Add(time.Duration(*t.config.EffectDurationSeconds) * time.Second)
	return &expiresAt
}

// Plan ロール交換で行う変更
type Plan struct {
	NewRoleID   string
	FixedRoleID *string
	// ReleasedRoleIDs このチケットの付与記録から削除するロール
	ReleasedRoleIDs []string
	// RemovedRoleIDs 実際に剥奪するロール。他のチケットの有効な付与記録が残るものは含まない
	RemovedRoleIDs []string
	Consume        uint32
	RoleExpiresAt  *time.Time
}

// PlanExchange 所持状況と現在のロール付与記録から交換内容を決定する
//
// 検証順: ロール選択肢、所持、有効期限、数量。
func (t *Ticket) PlanExchange(optionID int64, held *shop.UserItem, grants []*RoleGrant, now time.Time) (*Plan, error) {
	option, err := t.Option(optionID)
	if err != nil {
		return nil, err
	}
	if held == nil {
		return nil, ErrItemNotOwned
	}
	if held.IsExpired(now) {
		return nil, ErrItemExpired
	}
	// 期間チケットも1個以上の所持が必要
	required := t.config.ConsumeQuantity
	if required == 0 {
		required = 1
	}
	if held.Quantity() < required {
		return nil, &shop.InsufficientQuantityError{Required: required, Available: held.Quantity()}
	}

	plan := &Plan{
		NewRoleID:     option.RoleID,
		FixedRoleID:   t.config.FixedRoleID,
		Consume:       t.config.ConsumeQuantity,
		RoleExpiresAt: t.RoleExpiresAt(now),
	}
	if t.config.RemovePreviousRole {
		for _, g := range grants {
			if g.TicketID() != t.id || g.RoleID() == option.RoleID {
				continue
			}
			if t.config.FixedRoleID != nil && g.RoleID() == *t.config.FixedRoleID {
				continue
			}
			plan.ReleasedRoleIDs = append(plan.ReleasedRoleIDs, g.RoleID())
			if !HeldByOtherTicket(grants, g.RoleID(), t.id, now) {
				plan.RemovedRoleIDs = append(plan.RemovedRoleIDs, g.RoleID())
			}
		}
	}
	return plan, nil
}

// Instruction 計画からロール変更指示を作成
func (p *Plan) Instruction(guildID, userID string) Instruction {
	grant := []string{p.NewRoleID}
	if p.FixedRoleID != nil && *p.FixedRoleID != p.NewRoleID {
		grant = append(grant, *p.FixedRoleID)
	}
	return Instruction{
		GuildID: guildID,
		UserID:  userID,
		Grant:   grant,
		Revoke:  append([]string(nil), p.RemovedRoleIDs...),
	}
}
