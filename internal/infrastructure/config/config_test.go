package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		wantError   bool
		checkConfig func(*testing.T, *Config)
	}{
		{
			name: "正常系: デフォルト値で設定を読み込む",
			env: map[string]string{
				"DB_HOST":    "localhost",
				"DB_NAME":    "test_db",
				"JWT_SECRET": "test-secret",
			},
			checkConfig: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "development", cfg.Environment)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, "test_db", cfg.Database.Database)
				assert.Equal(t, "test-secret", cfg.JWT.Secret)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 9090, cfg.Server.GRPCPort)
				assert.Equal(t, 3306, cfg.Database.Port)
				assert.False(t, cfg.Redis.Enabled)
				assert.Equal(t, "prometheus", cfg.OpenTelemetry.MetricsExporter)
				assert.Equal(t, "0 0 1 * *", cfg.Scheduler.TaxSpec)
				assert.Equal(t, 60*time.Second, cfg.Exchange.SessionTimeout)
				assert.Equal(t, uint(3), cfg.RoleSync.MaxTries)
			},
		},
		{
			name: "正常系: 環境変数から設定を読み込む",
			env: map[string]string{
				"ENVIRONMENT":           "production",
				"SERVER_PORT":           "9000",
				"DB_HOST":               "db.example.com",
				"DB_PORT":               "3307",
				"DB_NAME":               "prod_db",
				"JWT_SECRET":            "prod-secret",
				"JWT_EXPIRATION":        "12h",
				"REDIS_ENABLED":         "true",
				"ADMIN_API_KEYS":        "key-a,key-b",
				"ADMIN_API_ALLOWED_IPS": "10.0.0.1",
				"LOG_LEVEL":             "debug",
			},
			checkConfig: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "production", cfg.Environment)
				assert.Equal(t, 9000, cfg.Server.Port)
				assert.Equal(t, "db.example.com", cfg.Database.Host)
				assert.Equal(t, 3307, cfg.Database.Port)
				assert.Equal(t, 12*time.Hour, cfg.JWT.Expiration)
				assert.True(t, cfg.Redis.Enabled)
				assert.Equal(t, []string{"key-a", "key-b"}, cfg.AdminAPI.APIKeys)
				assert.Equal(t, []string{"10.0.0.1"}, cfg.AdminAPI.AllowedIPs)
				assert.Equal(t, "debug", cfg.Log.Level)
			},
		},
		{
			name: "異常系: 本番環境でJWT_SECRETが未設定",
			env: map[string]string{
				"ENVIRONMENT": "production",
			},
			wantError: true,
		},
		{
			name: "異常系: 未対応のメトリクスエクスポーター",
			env: map[string]string{
				"OTEL_METRICS_EXPORTER": "statsd",
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.checkConfig(t, cfg)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{User: "app", Password: "secret", Host: "db", Port: 3306, Database: "economy"}
	assert.Equal(t, "app:secret@tcp(db:3306)/economy?charset=utf8mb4&parseTime=True&loc=UTC&multiStatements=true", cfg.DSN())
}

func TestRedisConfig_Address(t *testing.T) {
	cfg := RedisConfig{Host: "cache", Port: 6380}
	assert.Equal(t, "cache:6380", cfg.Address())
}
