package handler

// EarnRequest 活動報酬リクエスト（管理API用、ボットから呼ばれる）
type EarnRequest struct {
	UserID    string   `json:"user_id" example:"200000000000000001"`
	ChannelID string   `json:"channel_id" example:"400000000000000001"`
	RoleIDs   []string `json:"role_ids"`
	Activity  string   `json:"activity" example:"text" enums:"text,voice"`
}

// EarnResponse 活動報酬レスポンス
type EarnResponse struct {
	Credited     bool   `json:"credited"`
	SkipReason   string `json:"skip_reason,omitempty" example:"cooldown"`
	Amount       string `json:"amount" example:"3"`
	Multiplier   uint32 `json:"multiplier" example:"100"`
	BalanceAfter string `json:"balance_after,omitempty" example:"103"`
}

// MultiplierResponse 倍率解決レスポンス
type MultiplierResponse struct {
	Excluded   bool   `json:"excluded"`
	Multiplier uint32 `json:"multiplier" example:"150"`
	RuleID     *int64 `json:"rule_id,omitempty"`
}

// RuleRequest 倍率ルール作成リクエスト
type RuleRequest struct {
	Scope       string `json:"scope" example:"channel" enums:"channel,role,hot_time"`
	TargetID    string `json:"target_id,omitempty"`
	Activity    string `json:"activity,omitempty" example:"text"`
	Multiplier  uint32 `json:"multiplier" example:"150"`
	StartMinute uint16 `json:"start_minute,omitempty"`
	EndMinute   uint16 `json:"end_minute,omitempty"`
}

// RuleResponse 倍率ルール
type RuleResponse struct {
	ID          int64  `json:"id"`
	Scope       string `json:"scope"`
	TargetID    string `json:"target_id,omitempty"`
	Activity    string `json:"activity,omitempty"`
	Multiplier  uint32 `json:"multiplier"`
	StartMinute uint16 `json:"start_minute"`
	EndMinute   uint16 `json:"end_minute"`
}

// ExclusionRequest 除外ルール作成リクエスト
type ExclusionRequest struct {
	Scope    string `json:"scope" example:"channel" enums:"channel,role"`
	TargetID string `json:"target_id"`
}

// ExclusionResponse 除外ルール
type ExclusionResponse struct {
	ID       int64  `json:"id"`
	Scope    string `json:"scope"`
	TargetID string `json:"target_id"`
}

// RulesResponse ルール一覧レスポンス
type RulesResponse struct {
	Rules      []RuleResponse      `json:"rules"`
	Exclusions []ExclusionResponse `json:"exclusions"`
}
