package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"economy-server/internal/application/apptest"
)

func TestAuthHandler_GenerateToken(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		expectedStatus int
	}{
		{
			name:           "正常系: トークン生成成功",
			body:           GenerateTokenRequest{GuildID: apptest.GuildID, UserID: apptest.Alice},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "異常系: user_idが空",
			body:           GenerateTokenRequest{GuildID: apptest.GuildID},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "異常系: guild_idがsnowflakeでない",
			body:           GenerateTokenRequest{GuildID: "guild", UserID: apptest.Alice},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "異常系: 不正なボディ",
			body:           "not-an-object",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			rec := serve(t, env.auth.GenerateToken, call{method: http.MethodPost, pattern: "/admin/auth/token", body: tt.body})
			assertStatus(t, tt.expectedStatus, rec)
			if tt.expectedStatus == http.StatusOK {
				resp := decode[GenerateTokenResponse](t, rec)
				assert.NotEmpty(t, resp.Token)
				assert.Equal(t, "Bearer", resp.TokenType)
				assert.Equal(t, 3600, resp.ExpiresIn)
			}
		})
	}
}
