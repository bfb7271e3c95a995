package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config アプリケーション全体の設定
type Config struct {
	Environment   string              `envconfig:"ENVIRONMENT" default:"development"`
	Server        ServerConfig        `envconfig:"SERVER"`
	Database      DatabaseConfig      `envconfig:"DB"`
	Redis         RedisConfig         `envconfig:"REDIS"`
	JWT           JWTConfig           `envconfig:"JWT"`
	AdminAPI      AdminAPIConfig      `envconfig:"ADMIN_API"`
	OpenTelemetry OpenTelemetryConfig `envconfig:"OTEL"`
	Log           LogConfig           `envconfig:"LOG"`
	Scheduler     SchedulerConfig     `envconfig:"SCHEDULER"`
	RoleSync      RoleSyncConfig      `envconfig:"ROLESYNC"`
	Exchange      ExchangeConfig      `envconfig:"EXCHANGE"`
}

// ServerConfig サーバー設定
type ServerConfig struct {
	Port            int           `envconfig:"PORT" default:"8080"`
	GRPCPort        int           `envconfig:"GRPC_PORT" default:"9090"` // 0 = 無効
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	CORSOrigins     []string      `envconfig:"CORS_ORIGINS" default:"*"`
}

// DatabaseConfig データベース設定
type DatabaseConfig struct {
	Host            string        `envconfig:"HOST" default:"localhost"`
	Port            int           `envconfig:"PORT" default:"3306"`
	User            string        `envconfig:"USER" default:"root"`
	Password        string        `envconfig:"PASSWORD"`
	Database        string        `envconfig:"NAME" default:"economy"`
	MaxOpenConns    int           `envconfig:"MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `envconfig:"MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"CONN_MAX_LIFETIME" default:"5m"`
	ConnMaxIdleTime time.Duration `envconfig:"CONN_MAX_IDLE_TIME" default:"10m"`
	AutoMigrate     bool          `envconfig:"AUTO_MIGRATE" default:"false"`
}

// RedisConfig Redis設定
type RedisConfig struct {
	Enabled  bool   `envconfig:"ENABLED" default:"false"`
	Host     string `envconfig:"HOST" default:"localhost"`
	Port     int    `envconfig:"PORT" default:"6379"`
	Password string `envconfig:"PASSWORD"`
	DB       int    `envconfig:"DB" default:"0"`
}

// JWTConfig JWT設定
type JWTConfig struct {
	Secret     string        `envconfig:"SECRET"`
	Expiration time.Duration `envconfig:"EXPIRATION" default:"24h"`
	Issuer     string        `envconfig:"ISSUER" default:"economy-server"`
}

// AdminAPIConfig 管理APIの設定
type AdminAPIConfig struct {
	APIKeys    []string `envconfig:"KEYS"`
	AllowedIPs []string `envconfig:"ALLOWED_IPS"`
}

// OpenTelemetryConfig OpenTelemetry設定
type OpenTelemetryConfig struct {
	Enabled         bool   `envconfig:"ENABLED" default:"true"`
	ServiceName     string `envconfig:"SERVICE_NAME" default:"economy-server"`
	ServiceVersion  string `envconfig:"SERVICE_VERSION" default:"1.0.0"`
	OTLPEndpoint    string `envconfig:"EXPORTER_OTLP_ENDPOINT" default:"localhost:4318"`
	OTLPInsecure    bool   `envconfig:"EXPORTER_OTLP_INSECURE" default:"true"`
	TraceExporter   string `envconfig:"TRACES_EXPORTER" default:"otlp"`         // "otlp", "stdout"
	MetricsExporter string `envconfig:"METRICS_EXPORTER" default:"prometheus"` // "otlp", "prometheus", "stdout"
}

// LogConfig ログ設定
type LogConfig struct {
	Level string `envconfig:"LEVEL" default:"info"`
}

// SchedulerConfig 定期ジョブの設定
type SchedulerConfig struct {
	Enabled        bool   `envconfig:"ENABLED" default:"true"`
	Timezone       string `envconfig:"TIMEZONE" default:"Asia/Seoul"`
	TaxSpec        string `envconfig:"TAX_SPEC" default:"0 0 1 * *"`
	RoleExpirySpec string `envconfig:"ROLE_EXPIRY_SPEC" default:"*/5 * * * *"`
}

// RoleSyncConfig ロール変更のリトライ設定
type RoleSyncConfig struct {
	MaxTries       uint          `envconfig:"MAX_TRIES" default:"3"`
	MaxElapsedTime time.Duration `envconfig:"MAX_ELAPSED_TIME" default:"10s"`
}

// ExchangeConfig ロール交換セッションの設定
type ExchangeConfig struct {
	SessionTimeout time.Duration `envconfig:"SESSION_TIMEOUT" default:"60s"`
}

// Load 設定を読み込む
func Load() (*Config, error) {
	// .envファイルを読み込む（存在しない場合は無視）
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// IsDevelopment 開発環境かどうかを返す
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// validate 設定の検証
func (c *Config) validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.JWT.Secret == "" && !c.IsDevelopment() {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.OpenTelemetry.TraceExporter {
	case "otlp", "stdout":
	default:
		return fmt.Errorf("unsupported trace exporter: %s", c.OpenTelemetry.TraceExporter)
	}
	switch c.OpenTelemetry.MetricsExporter {
	case "otlp", "prometheus", "stdout":
	default:
		return fmt.Errorf("unsupported metrics exporter: %s", c.OpenTelemetry.MetricsExporter)
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("invalid SCHEDULER_TIMEZONE: %w", err)
	}
	return nil
}

// DSN データベース接続文字列を返す
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC&multiStatements=true",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address Redis接続アドレスを返す
func (c *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
