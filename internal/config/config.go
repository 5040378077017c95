package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	DatabaseURL      string // あればPOSTGRES_*より優先
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     int
	PostgresSSLMode  string

	JWTSecret       string        // JWT署名シークレット
	AccessTokenTTL  time.Duration // アクセストークン（15分）
	RefreshTokenTTL time.Duration // リフレッシュトークン（14日）

	GoEnv string // development/production

	PaystackSecretKey string
	PaystackBaseURL   string
	PaystackTimeout   time.Duration

	RabbitMQURL string // 空ならイベントは送らない

	// 起動時に作る管理者（USERNAMEとPASSWORDが揃ったときだけ）
	AdminUsername string
	AdminEmail    string
	AdminPassword string
}

func (c Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// .envがあれば読み込んでからLoadする
func LoadWithDotenv(paths ...string) (Config, error) {
	// .envは無くてもよい
	_ = godotenv.Load(paths...)
	return Load()
}

// Loadは環境変数
func Load() (Config, error) {
	pgPort, err := getInt("POSTGRES_PORT", 5432)
	if err != nil {
		return Config{}, err
	}
	accessTTL, err := getDuration("ACCESS_TOKEN_TTL", 15*time.Minute)
	if err != nil {
		return Config{}, err
	}
	refreshTTL, err := getDuration("REFRESH_TOKEN_TTL", 14*24*time.Hour)
	if err != nil {
		return Config{}, err
	}
	paystackTimeout, err := getDuration("PAYSTACK_TIMEOUT", 15*time.Second)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port: getString("PORT", "8080"),

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PostgresUser:     getString("POSTGRES_USER", "postgres"),
		PostgresPassword: getString("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:       getString("POSTGRES_DB", "chefchain"),
		PostgresHost:     getString("POSTGRES_HOST", "localhost"),
		PostgresPort:     pgPort,
		PostgresSSLMode:  getString("POSTGRES_SSLMODE", "disable"),

		JWTSecret:       os.Getenv("JWT_SECRET"),
		AccessTokenTTL:  accessTTL,
		RefreshTokenTTL: refreshTTL,

		GoEnv: getString("GO_ENV", "development"),

		PaystackSecretKey: os.Getenv("PAYSTACK_SECRET_KEY"),
		PaystackBaseURL:   strings.TrimRight(getString("PAYSTACK_BASE_URL", "https://api.paystack.co"), "/"),
		PaystackTimeout:   paystackTimeout,

		RabbitMQURL: os.Getenv("RABBITMQ_URL"),

		AdminUsername: os.Getenv("ADMIN_USERNAME"),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}

	//必須チェック
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.AccessTokenTTL <= 0 || cfg.RefreshTokenTTL <= 0 {
		return Config{}, fmt.Errorf("token TTL must be positive")
	}

	return cfg, nil
}

// DSNはgorm(postgres)に渡す接続文字列
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode,
	)
}

// Addrは":8080"の形
func (c Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func getString(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be duration: %w", key, err)
	}
	return d, nil
}
