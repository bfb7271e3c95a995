package ticket

import "time"

// RoleGrant チケットによって付与されたロールの記録
type RoleGrant struct {
	guildID   string
	userID    string
	roleID    string
	ticketID  int64
	grantedAt time.Time
	expiresAt *time.Time
}

// NewRoleGrant 新しい付与記録を作成
func NewRoleGrant(guildID, userID, roleID string, ticketID int64, grantedAt time.Time, expiresAt *time.Time) *RoleGrant {
	return &RoleGrant{
		guildID:   guildID,
		userID:    userID,
		roleID:    roleID,
		ticketID:  ticketID,
		grantedAt: grantedAt,
		expiresAt: expiresAt,
	}
}

// GuildID ギルドIDを返す
func (g *RoleGrant) GuildID() string { return g.guildID }

// UserID ユーザーIDを返す
func (g *RoleGrant) UserID() string { return g.userID }

// RoleID ロールIDを返す
func (g *RoleGrant) RoleID() string { return g.roleID }

// TicketID 付与元チケットIDを返す
func (g *RoleGrant) TicketID() int64 { return g.ticketID }

// GrantedAt 付与日時を返す
func (g *RoleGrant) GrantedAt() time.Time { return g.grantedAt }

// ExpiresAt 有効期限を返す（nil = 永続）
func (g *RoleGrant) ExpiresAt() *time.Time { return g.expiresAt }

// IsExpired 有効期限切れかどうかを返す
func (g *RoleGrant) IsExpired(now time.Time) bool {
	return g.expiresAt != nil && !now.Before(*g.expiresAt)
}

// HeldByOtherTicket ticketID以外のチケットによる有効な付与記録がroleIDに残っているかを返す
func HeldByOtherTicket(grants []*RoleGrant, roleID string, ticketID int64, now time.Time) bool {
	for _, g := range grants {
		if g.roleID == roleID && g.ticketID != ticketID && !g.IsExpired(now) {
			return true
		}
	}
	return false
}

// Instruction ロール変更指示。コミット後に外部の協力者へ渡される
type Instruction struct {
	GuildID string
	UserID  string
	Grant   []string
	Revoke  []string
}

// Empty 変更がないかどうかを返す
func (i Instruction) Empty() bool {
	return len(i.Grant) == 0 && len(i.Revoke) == 0
}
