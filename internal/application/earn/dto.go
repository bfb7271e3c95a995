package earn

// EarnRequest 活動報酬リクエスト
type EarnRequest struct {
	GuildID   string
	UserID    string
	ChannelID string
	RoleIDs   []string
	Activity  string
}

// EarnResponse 活動報酬レスポンス
type EarnResponse struct {
	Credited     bool
	SkipReason   string // Creditedがfalseの場合の理由
	Amount       uint64
	Multiplier   uint32
	BalanceAfter uint64
}

// ResolveRequest 倍率解決リクエスト
type ResolveRequest struct {
	GuildID   string
	ChannelID string
	RoleIDs   []string
	Activity  string
}

// ResolveResponse 倍率解決レスポンス
type ResolveResponse struct {
	Excluded   bool
	Multiplier uint32
	RuleID     *int64
}

// RuleDTO 倍率ルール
type RuleDTO struct {
	ID          int64
	Scope       string
	TargetID    string
	Activity    string
	Multiplier  uint32
	StartMinute uint16
	EndMinute   uint16
}

// ExclusionDTO 除外ルール
type ExclusionDTO struct {
	ID       int64
	Scope    string
	TargetID string
}

// ListRulesRequest ルール一覧リクエスト
type ListRulesRequest struct {
	GuildID string
}

// ListRulesResponse ルール一覧レスポンス
type ListRulesResponse struct {
	Rules      []RuleDTO
	Exclusions []ExclusionDTO
}

// CreateRuleRequest 倍率ルール作成リクエスト
type CreateRuleRequest struct {
	GuildID     string
	Scope       string
	TargetID    string
	Activity    string
	Multiplier  uint32
	StartMinute uint16
	EndMinute   uint16
}

// CreateExclusionRequest 除外ルール作成リクエスト
type CreateExclusionRequest struct {
	GuildID  string
	Scope    string
	TargetID string
}

// DeleteRuleRequest ルール削除リクエスト
type DeleteRuleRequest struct {
	GuildID string
	ID      int64
}
