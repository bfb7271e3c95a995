package handler

// GenerateTokenRequest トークン生成リクエスト
type GenerateTokenRequest struct {
	GuildID string `json:"guild_id" example:"100000000000000001"`
	UserID  string `json:"user_id" example:"200000000000000001"`
}

// GenerateTokenResponse トークン生成レスポンス
type GenerateTokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in" example:"86400"`
	TokenType string `json:"token_type" example:"Bearer"`
}
