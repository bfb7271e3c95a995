package auth

// GenerateTokenRequest トークン生成リクエスト
type GenerateTokenRequest struct {
	GuildID string
	UserID  string
}

// GenerateTokenResponse トークン生成レスポンス
type GenerateTokenResponse struct {
	Token     string
	ExpiresIn int64  // 秒単位
	TokenType string // "Bearer"
}

// Principal トークンが表す利用者
type Principal struct {
	GuildID string
	UserID  string
}
