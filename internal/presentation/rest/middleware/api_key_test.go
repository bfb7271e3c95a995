package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"economy-server/internal/infrastructure/config"
	otelinfra "economy-server/internal/infrastructure/observability/otel"
)

func TestAPIKeyMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		apiKey         string
		clientIP       string
		config         *config.AdminAPIConfig
		expectedStatus int
	}{
		{
			name:           "正常系: 有効なAPIキー",
			apiKey:         "test-api-key",
			config:         &config.AdminAPIConfig{APIKeys: []string{"test-api-key"}},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "正常系: 複数キーの二つ目",
			apiKey:         "rotated-key",
			config:         &config.AdminAPIConfig{APIKeys: []string{"test-api-key", "rotated-key"}},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "異常系: APIキーが空",
			apiKey:         "",
			config:         &config.AdminAPIConfig{APIKeys: []string{"test-api-key"}},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "異常系: 無効なAPIキー",
			apiKey:         "invalid-key",
			config:         &config.AdminAPIConfig{APIKeys: []string{"test-api-key"}},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "異常系: キー未設定で管理APIが無効",
			apiKey:         "test-api-key",
			config:         &config.AdminAPIConfig{},
			expectedStatus: http.StatusForbidden,
		},
		{
			name:     "正常系: IP制限あり（許可されたIP）",
			apiKey:   "test-api-key",
			clientIP: "127.0.0.1",
			config: &config.AdminAPIConfig{
				APIKeys:    []string{"test-api-key"},
				AllowedIPs: []string{"127.0.0.1", "192.0.2.1"},
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:     "正常系: CIDRに含まれるIP",
			apiKey:   "test-api-key",
			clientIP: "10.1.2.3",
			config: &config.AdminAPIConfig{
				APIKeys:    []string{"test-api-key"},
				AllowedIPs: []string{"10.0.0.0/8"},
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:     "異常系: CIDRの前方一致だけでは許可しない",
			apiKey:   "test-api-key",
			clientIP: "10.10.0.1",
			config: &config.AdminAPIConfig{
				APIKeys:    []string{"test-api-key"},
				AllowedIPs: []string{"10.1.0.0/16"},
			},
			expectedStatus: http.StatusForbidden,
		},
		{
			name:     "異常系: IP制限あり（許可されていないIP）",
			apiKey:   "test-api-key",
			clientIP: "192.168.1.1",
			config: &config.AdminAPIConfig{
				APIKeys:    []string{"test-api-key"},
				AllowedIPs: []string{"10.0.0.1"},
			},
			expectedStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()

			middlewareFunc := APIKeyMiddleware(tt.config, otelinfra.NewNopLogger())
			handler := middlewareFunc(func(c echo.Context) error {
				return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.apiKey != "" {
				req.Header.Set("X-API-Key", tt.apiKey)
			}
			if tt.clientIP != "" {
				req.Header.Set("X-Real-IP", tt.clientIP)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			err := handler(c)
			if err != nil {
				e.HTTPErrorHandler(err, c)
			}

			assert.Equal(t, tt.expectedStatus, rec.Code)
		})
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		forwarded  string
		realIP     string
		remoteAddr string
		want       string
	}{
		{name: "X-Forwarded-Forの先頭", forwarded: "203.0.113.5, 10.0.0.1", want: "203.0.113.5"},
		{name: "X-Real-IP", realIP: "198.51.100.7", want: "198.51.100.7"},
		{name: "RemoteAddr", remoteAddr: "192.0.2.9:51234", want: "192.0.2.9"},
		{name: "IPv6のRemoteAddr", remoteAddr: "[2001:db8::1]:443", want: "2001:db8::1"},
	}

	for _, tt := range tests {
		t.Run("正常系: "+tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			if tt.remoteAddr != "" {
				req.RemoteAddr = tt.remoteAddr
			}
			c := e.NewContext(req, httptest.NewRecorder())
			assert.Equal(t, tt.want, getClientIP(c))
		})
	}
}
